// Package mail validates mailer settings, resolves recipients and composes
// messages. Delivery lives in the smtp and noop subpackages.
package mail

import (
	"context"
	"io"
)

// Sender delivers messages built from a validated Config.
type Sender interface {
	// Send delivers messages one by one and stops at the first error.
	Send(ctx context.Context, msgs ...Message) error
	io.Closer
}

// Message is a single plain-text mail.
//
// The recipient is To when set, otherwise the address configured for Role,
// otherwise the configured default recipient.
type Message struct {
	To      string
	Role    string
	Subject string
	Body    string
}
