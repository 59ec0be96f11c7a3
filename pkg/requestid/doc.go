// Package requestid correlates API requests with the log records they produce.
//
// Middleware accepts a client supplied X-Request-ID header when it is a short
// token of letters, digits, dashes and underscores, and otherwise generates a
// UUIDv7. The ID is stored in the request context and echoed in the response.
//
//	log := logger.New(logger.WithContextExtractors(requestid.LoggerExtractor()))
//	r := chi.NewRouter()
//	r.Use(requestid.Middleware)
//
// Handlers that log with the request context, such as the notification
// enqueue and mail endpoints, then carry a request_id attribute.
package requestid
