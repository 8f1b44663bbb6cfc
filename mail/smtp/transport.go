package smtp

import (
	"context"
	"fmt"
	"io"
	"net"
	"syscall"
	"time"

	gosmtp "github.com/emersion/go-smtp"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/trace"

	"github.com/pure-golang/mailer/logger"
	"github.com/pure-golang/mailer/mail"
)

// step names the part of the SMTP conversation that failed.
type step string

const (
	stepConnect  step = "connect"
	stepStartTLS step = "starttls"
	stepAuth     step = "auth"
	stepMail     step = "mail"
	stepRcpt     step = "rcpt"
	stepData     step = "data"
)

// strategy delivers one envelope using a single transport mode.
type strategy func(ctx context.Context, s *Sender, env *mail.Envelope) error

var strategies = map[mail.Encryption]strategy{
	mail.EncryptionOff:      sendPlain,
	mail.EncryptionSSL:      sendSSL,
	mail.EncryptionStartTLS: sendStartTLS,
}

// sendPlain talks to the server without TLS and without authentication.
func sendPlain(ctx context.Context, s *Sender, env *mail.Envelope) error {
	if port, ok := s.cfg.Port(); ok && port != DefaultPort {
		logger.FromContext(ctx).Debug("encryption is off, ignoring configured port", "port", port, "using", DefaultPort)
	}
	sess, err := s.dialer.Dial(ctx, s.address())
	if err != nil {
		return translate(ctx, stepConnect, err)
	}
	return s.converse(ctx, sess, env, nil)
}

// sendSSL connects over implicit TLS and authenticates when credentials are set.
func sendSSL(ctx context.Context, s *Sender, env *mail.Envelope) error {
	sess, err := s.dialer.DialTLS(ctx, s.address(), s.cfg.TLSConfig())
	if err != nil {
		return translate(ctx, stepConnect, err)
	}
	return s.converse(ctx, sess, env, s.authenticate)
}

// sendStartTLS connects in plain text, upgrades the connection and
// authenticates when credentials are set.
func sendStartTLS(ctx context.Context, s *Sender, env *mail.Envelope) error {
	sess, err := s.dialer.Dial(ctx, s.address())
	if err != nil {
		return translate(ctx, stepConnect, err)
	}
	return s.converse(ctx, sess, env, func(ctx context.Context, sess Session) error {
		trace.SpanFromContext(ctx).AddEvent("smtp.starttls")
		if err := sess.StartTLS(s.cfg.TLSConfig()); err != nil {
			return translate(ctx, stepStartTLS, err)
		}
		return s.authenticate(ctx, sess)
	})
}

func (s *Sender) authenticate(ctx context.Context, sess Session) error {
	username, passphrase, ok := s.cfg.Credentials()
	if !ok {
		logger.FromContext(ctx).Debug("no SMTP credentials configured, sending unauthenticated")
		return nil
	}
	trace.SpanFromContext(ctx).AddEvent("smtp.auth")
	if err := sess.Auth(username, passphrase); err != nil {
		return translate(ctx, stepAuth, err)
	}
	return nil
}

// converse runs the mail transaction on an open session and always
// releases it.
func (s *Sender) converse(ctx context.Context, sess Session, env *mail.Envelope, prepare func(context.Context, Session) error) error {
	defer func() {
		if err := sess.Close(); err != nil {
			logger.FromContextWithErr(ctx, err).Debug("failed to close SMTP session")
		}
	}()

	if prepare != nil {
		if err := prepare(ctx, sess); err != nil {
			return err
		}
	}

	span := trace.SpanFromContext(ctx)
	span.AddEvent("smtp.mail")
	if err := sess.Mail(env.From); err != nil {
		return translate(ctx, stepMail, err)
	}
	span.AddEvent("smtp.rcpt")
	if err := sess.Rcpt(env.To); err != nil {
		return translate(ctx, stepRcpt, err)
	}
	span.AddEvent("smtp.data")
	if err := sess.Data(env); err != nil {
		return translate(ctx, stepData, err)
	}

	if err := sess.Quit(); err != nil {
		logger.FromContextWithErr(ctx, err).Warn("message accepted, but QUIT failed")
	}
	return nil
}

// translate maps a provider failure to the transport error kinds.
func translate(ctx context.Context, st step, err error) error {
	if ctxErr := contextErr(ctx); ctxErr != nil {
		return mail.NewError(mail.KindGenericTransportError, "",
			fmt.Sprintf("%s during %s", ctxErr, st), fmt.Errorf("%w: %w", ctxErr, err))
	}

	var reply *gosmtp.SMTPError
	isReply := errors.As(err, &reply)

	kind := mail.KindGenericTransportError
	switch {
	case isDisconnect(err) || (isReply && reply.Code == 421):
		kind = mail.KindServerDisconnected
	case st == stepAuth:
		kind = mail.KindAuthenticationFailed
	case st == stepMail && isReply:
		kind = mail.KindSenderRefused
	case st == stepRcpt && isReply:
		kind = mail.KindRecipientRefused
	}

	return mail.NewError(kind, "", fmt.Sprintf("%s during %s", failureMessages[kind], st), err)
}

var failureMessages = map[mail.Kind]string{
	mail.KindAuthenticationFailed:  "SMTP authentication failed, check username and passphrase",
	mail.KindSenderRefused:         "SMTP server refused the sender address",
	mail.KindRecipientRefused:      "SMTP server refused the recipient address",
	mail.KindServerDisconnected:    "SMTP server unexpectedly disconnected",
	mail.KindGenericTransportError: "problem sending mail",
}

// contextErr also reports a passed deadline whose timer has not fired yet,
// since the connection deadline can expire first.
func contextErr(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok && !time.Now().Before(deadline) {
		return context.DeadlineExceeded
	}
	return nil
}

func isDisconnect(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, syscall.EPIPE)
}
