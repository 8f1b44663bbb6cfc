package mail

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompose_Preconditions(t *testing.T) {
	cfg, err := Validate(remoteSettings())
	require.NoError(t, err)

	_, err = cfg.Compose("a@x.com", "", "body")
	assert.ErrorIs(t, err, ErrMissingSubject)
	assert.True(t, IsPreconditionError(err))

	_, err = cfg.Compose("a@x.com", "Hi", "")
	assert.ErrorIs(t, err, ErrMissingMailContent)

	_, err = cfg.Compose("a@x.com", "", "")
	assert.ErrorIs(t, err, ErrMissingSubject, "subject is checked first")
}

func TestCompose_Envelope(t *testing.T) {
	s := remoteSettings()
	s[KeyWrapWidth] = 10
	cfg, err := Validate(s)
	require.NoError(t, err)

	env, err := cfg.Compose("a@x.com", "Hi", "The quick brown fox")
	require.NoError(t, err)

	assert.Equal(t, "b@x.com", env.From)
	assert.Equal(t, "a@x.com", env.To)
	assert.Equal(t, "Hi", env.Subject)
	assert.Equal(t, "The quick\nbrown fox\n", env.Body)
	assert.True(t, strings.HasSuffix(env.MessageID, "@x.com"))
	assert.False(t, env.Date.IsZero())
}

func TestPrepare_ResolutionBeforePreconditions(t *testing.T) {
	cfg := roleConfig(t, map[string]string{"admin": "b@x.com"})

	_, err := cfg.Prepare(Message{Subject: "", Body: ""})
	assert.ErrorIs(t, err, ErrNoRecipientAvailable)

	env, err := cfg.Prepare(Message{Role: "admin", Subject: "Hi", Body: "text"})
	require.NoError(t, err)
	assert.Equal(t, "b@x.com", env.To)
}

func TestEnvelope_WriteTo(t *testing.T) {
	cfg, err := Validate(remoteSettings())
	require.NoError(t, err)

	env, err := cfg.Compose("a@x.com", "Status report", "all good")
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := env.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)

	out := buf.String()
	assert.Contains(t, out, "From: <b@x.com>")
	assert.Contains(t, out, "To: <a@x.com>")
	assert.Contains(t, out, "Subject: Status report")
	assert.Contains(t, out, "Message-ID: <"+env.MessageID+">")
	assert.Contains(t, out, "text/plain")
	assert.Contains(t, out, "all good")
	assert.NotContains(t, out, "go-mail")
}

func TestEnvelope_Msg(t *testing.T) {
	cfg, err := Validate(remoteSettings())
	require.NoError(t, err)

	env, err := cfg.Compose("a@x.com", "Hi", "body")
	require.NoError(t, err)

	m, err := env.Msg()
	require.NoError(t, err)

	rcpts, err := m.GetRecipients()
	require.NoError(t, err)
	assert.Equal(t, []string{"a@x.com"}, rcpts)

	from, err := m.GetSender(false)
	require.NoError(t, err)
	assert.Equal(t, "b@x.com", from)
}
