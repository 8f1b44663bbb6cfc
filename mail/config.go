package mail

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log/slog"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"
)

// Settings is the raw configuration record, as decoded from a file,
// the environment or built in code.
type Settings map[string]any

// Allowed configuration keys.
const (
	KeyServer     = "server"
	KeyServerPort = "server_port"
	KeyEncryption = "encryption"
	KeyUsername   = "username"
	KeyPassphrase = "passphrase"
	KeyRecipient  = "recipient"
	KeySender     = "sender"
	KeyWrapWidth  = "wrap_width"
)

// Defaults applied when the corresponding key is absent.
const (
	DefaultServer    = "localhost"
	DefaultWrapWidth = 80
)

var allowedKeys = map[string]struct{}{
	KeyServer:     {},
	KeyServerPort: {},
	KeyEncryption: {},
	KeyUsername:   {},
	KeyPassphrase: {},
	KeyRecipient:  {},
	KeySender:     {},
	KeyWrapWidth:  {},
}

var requiredKeys = []string{KeyRecipient, KeySender}

var localHosts = map[string]struct{}{
	"localhost": {},
	"127.0.0.1": {},
	"::1":       {},
}

// IsLocalHost reports whether server is a loopback destination.
func IsLocalHost(server string) bool {
	_, ok := localHosts[server]
	return ok
}

// Config is a validated, immutable mailer configuration.
// Build it with Validate.
type Config struct {
	server           string
	isLocal          bool
	encryption       Encryption
	port             uint16
	username         string
	passphrase       string
	recipients       RecipientSpec
	defaultRecipient string
	sender           string
	wrapWidth        uint
	tlsConfig        *tls.Config
}

type validateOptions struct {
	logger  *slog.Logger
	rootCAs *x509.CertPool
}

// Option customizes Validate.
type Option func(*validateOptions)

// WithLogger sets the logger used for construction warnings.
func WithLogger(l *slog.Logger) Option {
	return func(o *validateOptions) {
		o.logger = l
	}
}

// WithRootCAs replaces the system trust roots used to verify the server.
func WithRootCAs(pool *x509.CertPool) Option {
	return func(o *validateOptions) {
		o.rootCAs = pool
	}
}

// Validate checks raw settings and builds a Config.
// Structural errors are reported before semantic ones, so the result is
// deterministic for a given input.
func Validate(raw Settings, opts ...Option) (*Config, error) {
	o := validateOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	for _, key := range slices.Sorted(maps.Keys(raw)) {
		if _, ok := allowedKeys[key]; !ok {
			return nil, NewError(KindUnknownKey, key, "unknown key "+quote(key), nil)
		}
	}
	for _, key := range requiredKeys {
		if v, ok := raw[key]; !ok || v == nil {
			return nil, NewError(KindMissingRequiredKey, key, "required key "+quote(key)+" is missing", nil)
		}
	}

	c := &Config{server: DefaultServer, wrapWidth: DefaultWrapWidth}

	if v := raw[KeyServer]; v != nil {
		s, ok := v.(string)
		if !ok || strings.TrimSpace(s) == "" {
			return nil, NewError(KindInvalidServer, KeyServer, ErrInvalidServer.Message, nil)
		}
		c.server = s
	}
	c.isLocal = IsLocalHost(c.server)

	if v := raw[KeyEncryption]; v != nil {
		s, _ := v.(string)
		mode, ok := ParseEncryption(s)
		if !ok {
			return nil, NewError(KindInvalidEncryptionMode, KeyEncryption, fmt.Sprintf("%s, got %v", ErrInvalidEncryptionMode.Message, v), nil)
		}
		c.encryption = mode
	}

	if !c.isLocal && c.encryption == EncryptionOff {
		return nil, NewError(KindUnencryptedRemoteConnection, KeyEncryption,
			"connection to "+quote(c.server)+" is not to localhost, but an encryption method is not set", nil)
	}

	if v := raw[KeyServerPort]; v != nil {
		port, ok := toInt(v)
		if !ok || port < 1 || port > math.MaxUint16 {
			return nil, NewError(KindInvalidPort, KeyServerPort, fmt.Sprintf("%s, got %v", ErrInvalidPort.Message, v), nil)
		}
		c.port = uint16(port)
	} else if !c.isLocal {
		return nil, NewError(KindMissingPort, KeyServerPort, "you must provide a port if you connect to a remote SMTP server", nil)
	}

	var err error
	if c.username, err = optionalString(raw, KeyUsername); err != nil {
		return nil, err
	}
	if c.passphrase, err = optionalString(raw, KeyPassphrase); err != nil {
		return nil, err
	}
	if c.username == "" {
		o.logger.Debug("no username for the SMTP server set, skipping authentication", "server", c.server)
	}
	if c.passphrase == "" {
		o.logger.Debug("no passphrase for the SMTP server set", "server", c.server)
	}

	if err := c.setRecipients(raw[KeyRecipient], o.logger); err != nil {
		return nil, err
	}

	sender, ok := raw[KeySender].(string)
	if !ok || !IsValidEmail(sender) {
		return nil, NewError(KindInvalidEmail, KeySender, fmt.Sprintf("sender %v is not a valid email address", raw[KeySender]), nil)
	}
	c.sender = sender

	if v := raw[KeyWrapWidth]; v != nil {
		width, ok := toInt(v)
		if !ok || width < 0 {
			return nil, NewError(KindInvalidWrapWidth, KeyWrapWidth, fmt.Sprintf("%s, got %v", ErrInvalidWrapWidth.Message, v), nil)
		}
		c.wrapWidth = uint(width)
	}

	c.tlsConfig = &tls.Config{
		MinVersion: tls.VersionTLS12,
		ServerName: c.server,
		RootCAs:    o.rootCAs,
	}

	return c, nil
}

func (c *Config) setRecipients(v any, log *slog.Logger) error {
	var roles map[string]any
	switch r := v.(type) {
	case string:
		if !IsValidEmail(r) {
			return NewError(KindInvalidEmail, KeyRecipient, "recipient "+quote(r)+" is not a valid email address", nil)
		}
		c.recipients = SingleAddress(r)
		c.defaultRecipient = r
		return nil
	case SingleAddress:
		return c.setRecipients(string(r), log)
	case RoleMap:
		roles = make(map[string]any, len(r))
		for k, addr := range r {
			roles[k] = addr
		}
	case map[string]string:
		return c.setRecipients(RoleMap(r), log)
	case map[string]any:
		roles = r
	case Settings: // nested YAML mappings decode into the parent's map type
		roles = r
	default:
		return NewError(KindInvalidRecipientType, KeyRecipient, fmt.Sprintf("%s, got %T", ErrInvalidRecipientType.Message, v), nil)
	}

	if len(roles) == 0 {
		return NewError(KindEmptyRecipientMap, KeyRecipient, ErrEmptyRecipientMap.Message, nil)
	}

	m := make(RoleMap, len(roles))
	for _, role := range slices.Sorted(maps.Keys(roles)) {
		field := KeyRecipient + "." + role
		if strings.TrimSpace(role) == "" {
			return NewError(KindInvalidRecipientType, field, "role name must not be empty", nil)
		}
		addr, ok := roles[role].(string)
		if !ok {
			return NewError(KindInvalidRecipientType, field, fmt.Sprintf("address for role %s must be a string, got %T", quote(role), roles[role]), nil)
		}
		if !IsValidEmail(addr) {
			return NewError(KindInvalidEmail, field, "address "+quote(addr)+" for role "+quote(role)+" is not a valid email address", nil)
		}
		m[role] = addr
	}

	c.recipients = m
	if addr, ok := m.Lookup(DefaultRole); ok {
		c.defaultRecipient = addr
	} else {
		log.Warn("recipient map has no default role, sends must name a recipient or a role", "roles", m.Roles())
	}
	return nil
}

func optionalString(raw Settings, key string) (string, error) {
	v := raw[key]
	if v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", NewError(KindInvalidCredential, key, fmt.Sprintf("%s must be a string, got %T", key, v), nil)
	}
	return s, nil
}

// toInt accepts any Go integer kind and integral floats, as produced by
// YAML and JSON decoders.
func toInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return uintToInt(uint64(n))
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return uintToInt(n)
	case float32:
		return floatToInt(float64(n))
	case float64:
		return floatToInt(n)
	case interface{ Int64() (int64, error) }: // json.Number
		i, err := n.Int64()
		return i, err == nil
	default:
		return 0, false
	}
}

func uintToInt(n uint64) (int64, bool) {
	if n > math.MaxInt64 {
		return 0, false
	}
	return int64(n), true
}

func floatToInt(f float64) (int64, bool) {
	if f != math.Trunc(f) || math.IsInf(f, 0) || f > math.MaxInt32 || f < math.MinInt32 {
		return 0, false
	}
	return int64(f), true
}

func quote(s string) string {
	return strconv.Quote(s)
}

// Server is the SMTP host name.
func (c *Config) Server() string { return c.server }

// IsLocal reports whether the server is a loopback destination.
func (c *Config) IsLocal() bool { return c.isLocal }

// Encryption is the transport security mode.
func (c *Config) Encryption() Encryption { return c.encryption }

// Port returns the configured server port, if any.
func (c *Config) Port() (uint16, bool) { return c.port, c.port != 0 }

// Username is the SMTP login name, possibly empty.
func (c *Config) Username() string { return c.username }

// Credentials returns username and passphrase; ok is true only when both are set.
func (c *Config) Credentials() (username, passphrase string, ok bool) {
	return c.username, c.passphrase, c.username != "" && c.passphrase != ""
}

// Recipients returns a copy of the configured RecipientSpec.
func (c *Config) Recipients() RecipientSpec {
	if m, ok := c.recipients.(RoleMap); ok {
		return maps.Clone(m)
	}
	return c.recipients
}

// DefaultRecipient returns the address used when a send names no recipient.
func (c *Config) DefaultRecipient() (string, bool) {
	return c.defaultRecipient, c.defaultRecipient != ""
}

// Sender is the envelope and From address.
func (c *Config) Sender() string { return c.sender }

// WrapWidth is the body line width; 0 disables wrapping.
func (c *Config) WrapWidth() uint { return c.wrapWidth }

// TLSConfig returns a fresh copy of the TLS settings used for SSL and STARTTLS.
func (c *Config) TLSConfig() *tls.Config {
	return c.tlsConfig.Clone()
}

// String describes the config without secrets.
func (c *Config) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "server=%s encryption=%s", c.server, c.encryption)
	if port, ok := c.Port(); ok {
		fmt.Fprintf(&b, " port=%d", port)
	}
	if c.username != "" {
		fmt.Fprintf(&b, " username=%s", c.username)
	}
	if c.passphrase != "" {
		b.WriteString(" passphrase=***")
	}
	switch r := c.recipients.(type) {
	case SingleAddress:
		fmt.Fprintf(&b, " recipient=%s", string(r))
	case RoleMap:
		for _, role := range r.Roles() {
			fmt.Fprintf(&b, " recipient.%s=%s", role, r[role])
		}
	}
	fmt.Fprintf(&b, " sender=%s wrap_width=%d", c.sender, c.wrapWidth)
	return b.String()
}
