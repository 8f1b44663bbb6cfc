package mail

import (
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	gomail "github.com/wneessen/go-mail"
)

// Envelope is a composed message ready for delivery.
type Envelope struct {
	From      string
	To        string
	Subject   string
	Body      string // wrapped
	MessageID string // without angle brackets
	Date      time.Time
}

// Compose checks the send preconditions and builds the envelope for one
// message. The subject is checked before the body.
func (c *Config) Compose(recipient, subject, body string) (*Envelope, error) {
	if subject == "" {
		return nil, NewError(KindMissingSubject, "", ErrMissingSubject.Message, nil)
	}
	if body == "" {
		return nil, NewError(KindMissingMailContent, "", ErrMissingMailContent.Message, nil)
	}

	return &Envelope{
		From:      c.sender,
		To:        recipient,
		Subject:   subject,
		Body:      WrapBody(body, c.wrapWidth),
		MessageID: uuid.NewString() + "@" + domainOf(c.sender),
		Date:      time.Now(),
	}, nil
}

// Prepare resolves the recipient of msg and composes its envelope.
// Resolution errors are reported before precondition errors.
func (c *Config) Prepare(msg Message) (*Envelope, error) {
	rcpt, err := c.recipientFor(msg)
	if err != nil {
		return nil, err
	}
	return c.Compose(rcpt, msg.Subject, msg.Body)
}

// Msg renders the envelope as a go-mail message.
func (e *Envelope) Msg() (*gomail.Msg, error) {
	m := gomail.NewMsg(gomail.WithNoDefaultUserAgent())
	if err := m.From(e.From); err != nil {
		return nil, errors.Wrap(err, "failed to set From")
	}
	if err := m.To(e.To); err != nil {
		return nil, errors.Wrap(err, "failed to set To")
	}
	m.Subject(e.Subject)
	m.SetMessageIDWithValue(e.MessageID)
	m.SetDateWithValue(e.Date)
	m.SetBodyString(gomail.TypeTextPlain, e.Body)
	return m, nil
}

// WriteTo writes the RFC 5322 representation of the envelope to w.
func (e *Envelope) WriteTo(w io.Writer) (int64, error) {
	m, err := e.Msg()
	if err != nil {
		return 0, err
	}
	n, err := m.WriteTo(w)
	if err != nil {
		return n, errors.Wrap(err, "failed to write message")
	}
	return n, nil
}
