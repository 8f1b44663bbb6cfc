package noop

import (
	"context"
	"io"
	"sync"

	"github.com/pkg/errors"

	"github.com/pure-golang/mailer/logger"
	"github.com/pure-golang/mailer/mail"
)

var _ mail.Sender = (*Sender)(nil)

// Sender is a dry-run mail sender. It resolves recipients, checks
// preconditions and composes messages like a real sender, but never
// opens a connection.
type Sender struct {
	mx     sync.Mutex
	cfg    *mail.Config
	out    io.Writer
	sent   []*mail.Envelope
	closed bool
}

// NewSender creates a new dry-run Sender. When out is not nil every
// composed message is written to it.
func NewSender(cfg *mail.Config, out io.Writer) *Sender {
	return &Sender{cfg: cfg, out: out}
}

// Send composes messages and discards them.
func (n *Sender) Send(ctx context.Context, msgs ...mail.Message) error {
	n.mx.Lock()
	defer n.mx.Unlock()

	if n.closed {
		return mail.NewError(mail.KindGenericTransportError, "", "sender is closed", nil)
	}

	for _, msg := range msgs {
		env, err := n.cfg.Prepare(msg)
		if err != nil {
			return err
		}
		if n.out != nil {
			if _, err := env.WriteTo(n.out); err != nil {
				return errors.Wrap(err, "failed to write dry-run message")
			}
		}
		n.sent = append(n.sent, env)
		logger.FromContext(ctx).Info("dry run, mail not sent", "to", env.To, "subject", env.Subject)
	}
	return nil
}

// Sent returns the envelopes composed so far.
func (n *Sender) Sent() []*mail.Envelope {
	n.mx.Lock()
	defer n.mx.Unlock()
	return append([]*mail.Envelope(nil), n.sent...)
}

// Close marks the sender closed.
func (n *Sender) Close() error {
	n.mx.Lock()
	defer n.mx.Unlock()
	n.closed = true
	return nil
}
