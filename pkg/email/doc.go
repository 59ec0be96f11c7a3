// Package email turns outbound messages into wire-format mail and hands them
// to a relay through a transport.Pool.
//
// Dispatcher.Send never returns an error. Every outcome is a Result whose
// Kind tells the caller what happened and whether a retry makes sense:
//
//	res := dispatcher.Send(ctx, email.Message{
//	    To:       []string{"user@example.com"},
//	    Subject:  "Your invoice",
//	    HTMLBody: html,
//	})
//	switch res.Kind {
//	case email.KindDelivered:
//	case email.KindRecipientRejected, email.KindSenderRejected, email.KindContentRejected:
//	    // terminal; res.Message holds the relay's text verbatim
//	default:
//	    if res.Retryable() {
//	        // back off and try again, or use SendWithRetry
//	    }
//	}
//
// The wire message is built with github.com/wneessen/go-mail. Importance
// sets the Importance, Priority and X-Priority headers; attachments become
// MIME parts.
//
// The pooled connection is released when the relay accepted or refused the
// message (after an RSET), and invalidated on connection or protocol
// failures.
package email
