// Package hub keeps the live client connections of one process and pushes
// notification payloads to them.
//
// Hub implements realtime.HubSender. Every connection opened with Connect is
// registered in a Registry (usually realtime.Directory) so the delivery
// carrier can resolve recipients, and removed again when it closes.
//
//	h, _ := hub.New(directory)
//	router.Get("/v1/events", h.Handler(hub.QueryIdentity))
//
// Handler serves a server-sent event stream in the datastar signal format.
// Each connection has a bounded buffer; a push to a full buffer skips that
// connection instead of blocking the carrier.
package hub
