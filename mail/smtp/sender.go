package smtp

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/pure-golang/mailer/logger"
	"github.com/pure-golang/mailer/mail"
)

// DefaultTimeout bounds connection setup when the caller's context has no deadline.
const DefaultTimeout = 30 * time.Second

// Default ports per mode, used when the config names none (local servers only).
var defaultPorts = map[mail.Encryption]uint16{
	mail.EncryptionOff:      DefaultPort,
	mail.EncryptionStartTLS: DefaultPort,
	mail.EncryptionSSL:      465,
}

var _ mail.Sender = (*Sender)(nil)

// Sender delivers messages over SMTP using the transport mode of its Config.
// Every message gets its own session, so a Sender is safe for concurrent use.
type Sender struct {
	mx     sync.Mutex
	cfg    *mail.Config
	dialer Dialer
	closed bool
}

// SenderOptions contains options for creating a Sender.
type SenderOptions struct {
	// Dialer opens SMTP sessions. Defaults to a NetDialer.
	Dialer Dialer
}

// NewSender creates a new SMTP Sender for a validated config.
func NewSender(cfg *mail.Config, options *SenderOptions) *Sender {
	s := &Sender{cfg: cfg}
	if options != nil {
		s.dialer = options.Dialer
	}
	if s.dialer == nil {
		s.dialer = &NetDialer{Timeout: DefaultTimeout}
	}
	return s
}

// NewSenderFromSettings validates raw settings and creates a Sender.
// Validation errors are returned unchanged.
func NewSenderFromSettings(raw mail.Settings, options *SenderOptions, opts ...mail.Option) (*Sender, error) {
	cfg, err := mail.Validate(raw, opts...)
	if err != nil {
		return nil, err
	}
	return NewSender(cfg, options), nil
}

// Config returns the validated configuration.
func (s *Sender) Config() *mail.Config {
	return s.cfg
}

// Send sends messages one by one and stops at the first error.
func (s *Sender) Send(ctx context.Context, msgs ...mail.Message) error {
	for _, msg := range msgs {
		if err := s.send(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sender) send(ctx context.Context, msg mail.Message) error {
	if s.isClosed() {
		return mail.NewError(mail.KindGenericTransportError, "", "sender is closed", nil)
	}

	env, err := s.cfg.Prepare(msg)
	if err != nil {
		return err
	}
	if msg.To != "" {
		logger.FromContext(ctx).Debug("recipient overridden", "to", env.To)
	}
	return s.dispatch(ctx, env)
}

// dispatch delivers a composed envelope with the strategy of the configured mode.
func (s *Sender) dispatch(ctx context.Context, env *mail.Envelope) (err error) {
	enc := s.cfg.Encryption()
	addr := s.address()

	ctx, span := startSpan(ctx, s.cfg, addr)
	defer span.End()
	span.SetAttributes(
		attribute.Int("mail.recipient.count", 1),
		attribute.String("mail.message_id", env.MessageID),
	)

	started := time.Now()
	defer func() {
		recordError(span, err)
		recordSend(enc, err, started)
	}()

	err = strategies[enc](ctx, s, env)
	if err != nil {
		logger.FromContextWithErr(ctx, err).Error(failureMessages[mail.KindOf(err)],
			"kind", string(mail.KindOf(err)),
			"address", addr,
			"encryption", enc.String(),
			"to", env.To,
		)
		return err
	}

	logger.FromContext(ctx).Debug("mail sent",
		"address", addr,
		"encryption", enc.String(),
		"to", env.To,
		"message_id", env.MessageID,
	)
	return nil
}

// address is server:port, falling back to the mode's default port.
// Unencrypted sessions always use DefaultPort.
func (s *Sender) address() string {
	port, ok := s.cfg.Port()
	if !ok || s.cfg.Encryption() == mail.EncryptionOff {
		port = defaultPorts[s.cfg.Encryption()]
	}
	return net.JoinHostPort(s.cfg.Server(), strconv.Itoa(int(port)))
}

func (s *Sender) isClosed() bool {
	s.mx.Lock()
	defer s.mx.Unlock()
	return s.closed
}

// Close closes the sender. Later sends fail.
func (s *Sender) Close() error {
	s.mx.Lock()
	defer s.mx.Unlock()

	s.closed = true
	return nil
}
