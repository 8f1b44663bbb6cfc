package smtp

import (
	"context"
	"crypto/tls"
	"io"
	"net"
	"time"

	"github.com/emersion/go-sasl"
	gosmtp "github.com/emersion/go-smtp"
	"github.com/pkg/errors"
)

// DefaultPort is used in unencrypted mode when no port is configured.
const DefaultPort = 25

// Session is one SMTP conversation with a server.
// Close must be safe to call after Quit.
type Session interface {
	StartTLS(config *tls.Config) error
	Auth(username, password string) error
	Mail(from string) error
	Rcpt(to string) error
	Data(msg io.WriterTo) error
	Quit() error
	Close() error
}

// Dialer opens sessions. Dial connects in plain text, DialTLS over implicit TLS.
type Dialer interface {
	Dial(ctx context.Context, addr string) (Session, error)
	DialTLS(ctx context.Context, addr string, config *tls.Config) (Session, error)
}

// NetDialer opens go-smtp client sessions over TCP.
type NetDialer struct {
	// Timeout bounds connection setup when the context has no deadline.
	Timeout time.Duration
	// LocalName is sent with EHLO. Defaults to "localhost".
	LocalName string
}

var _ Dialer = (*NetDialer)(nil)

func (d *NetDialer) Dial(ctx context.Context, addr string) (Session, error) {
	conn, err := d.netDialer().DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to connect to %s", addr)
	}
	return d.newSession(ctx, conn, addr)
}

func (d *NetDialer) DialTLS(ctx context.Context, addr string, config *tls.Config) (Session, error) {
	td := &tls.Dialer{NetDialer: d.netDialer(), Config: config}
	conn, err := td.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to connect to %s over TLS", addr)
	}
	return d.newSession(ctx, conn, addr)
}

func (d *NetDialer) netDialer() *net.Dialer {
	return &net.Dialer{Timeout: d.Timeout}
}

func (d *NetDialer) newSession(ctx context.Context, conn net.Conn, addr string) (Session, error) {
	// A cancelled context tears the connection down mid-command.
	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})

	deadline, hasDeadline := ctx.Deadline()
	if hasDeadline {
		_ = conn.SetDeadline(deadline)
	}

	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}

	client, err := gosmtp.NewClient(conn, host)
	if err != nil {
		stop()
		return nil, errors.Wrap(err, "failed to read server greeting")
	}
	if hasDeadline {
		// go-smtp resets the connection deadline per command.
		remaining := time.Until(deadline)
		client.CommandTimeout = remaining
		client.SubmissionTimeout = remaining
	}
	if d.LocalName != "" {
		if err := client.Hello(d.LocalName); err != nil {
			stop()
			_ = client.Close()
			return nil, err
		}
	}

	return &clientSession{client: client, stop: stop}, nil
}

type clientSession struct {
	client *gosmtp.Client
	stop   func() bool
	closed bool
}

func (s *clientSession) StartTLS(config *tls.Config) error {
	return s.client.StartTLS(config)
}

func (s *clientSession) Auth(username, password string) error {
	return s.client.Auth(sasl.NewPlainClient("", username, password))
}

func (s *clientSession) Mail(from string) error {
	return s.client.Mail(from, nil)
}

func (s *clientSession) Rcpt(to string) error {
	return s.client.Rcpt(to)
}

func (s *clientSession) Data(msg io.WriterTo) error {
	w, err := s.client.Data()
	if err != nil {
		return err
	}
	if _, err := msg.WriteTo(w); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

func (s *clientSession) Quit() error {
	if err := s.client.Quit(); err != nil {
		return err
	}
	s.closed = true
	s.stop()
	return nil
}

func (s *clientSession) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.stop()
	return s.client.Close()
}
