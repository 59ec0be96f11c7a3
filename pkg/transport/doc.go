// Package transport manages reusable sessions with an outbound mail relay.
//
// A Pool hands out connections partitioned by sender Override. Each override
// signature owns a bucket with its own lock and a hard upper bound on open
// connections; when the bound is reached Acquire fails fast with
// ErrPoolExhausted instead of waiting.
//
// Every connection handed out by Acquire must be returned exactly once:
//
//	conn, err := pool.Acquire(ctx, transport.Override{})
//	if err != nil {
//	    return err // ErrPoolExhausted, *DialError or ErrPoolClosed
//	}
//	if err := conn.Send(ctx, env); err != nil {
//	    pool.Invalidate(conn) // session state unknown
//	    return err
//	}
//	pool.Release(conn)
//
// # Dialers
//
//   - SMTPDialer talks to an SMTP relay using net/smtp (STARTTLS, PLAIN auth).
//     Relay replies surface as *StageError wrapping *textproto.Error.
//   - PostmarkDialer sends through the Postmark API; API error codes are mapped
//     to *RejectedError or *ProtocolError.
//   - DevDialer writes messages to disk for local development.
//
// Named sender accounts can be loaded from YAML with LoadAccounts.
package transport
