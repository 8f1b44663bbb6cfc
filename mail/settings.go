package mail

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// EnvSettings is the environment representation of Settings, for use with
// envconfig. Unset fields are left out of the resulting Settings.
type EnvSettings struct {
	Server         string            `envconfig:"MAIL_SERVER"`
	ServerPort     *int              `envconfig:"MAIL_SERVER_PORT"`
	Encryption     string            `envconfig:"MAIL_ENCRYPTION"`
	Username       string            `envconfig:"MAIL_USERNAME"`
	Passphrase     string            `envconfig:"MAIL_PASSPHRASE"`
	Recipient      string            `envconfig:"MAIL_RECIPIENT"`
	RecipientRoles map[string]string `envconfig:"MAIL_RECIPIENT_ROLES"` // role:addr,role:addr
	Sender         string            `envconfig:"MAIL_SENDER"`
	WrapWidth      *int              `envconfig:"MAIL_WRAP_WIDTH"`
}

// Settings converts the environment values. MAIL_RECIPIENT_ROLES wins over
// MAIL_RECIPIENT.
func (e EnvSettings) Settings() Settings {
	s := Settings{}
	putString(s, KeyServer, e.Server)
	putString(s, KeyEncryption, e.Encryption)
	putString(s, KeyUsername, e.Username)
	putString(s, KeyPassphrase, e.Passphrase)
	putString(s, KeySender, e.Sender)
	if e.ServerPort != nil {
		s[KeyServerPort] = *e.ServerPort
	}
	if e.WrapWidth != nil {
		s[KeyWrapWidth] = *e.WrapWidth
	}
	switch {
	case len(e.RecipientRoles) > 0:
		s[KeyRecipient] = RoleMap(e.RecipientRoles)
	case e.Recipient != "":
		s[KeyRecipient] = e.Recipient
	}
	return s
}

func putString(s Settings, key, v string) {
	if v != "" {
		s[key] = v
	}
}

// LoadSettingsFile reads settings from a YAML or JSON file, chosen by
// extension (.json is JSON, anything else YAML). ${VAR} references are
// expanded from the environment before decoding.
func LoadSettingsFile(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read settings file %s", path)
	}
	return ParseSettings(os.ExpandEnv(string(data)), strings.EqualFold(filepath.Ext(path), ".json"))
}

// ParseSettings decodes a YAML (or JSON, when asJSON is set) document.
func ParseSettings(doc string, asJSON bool) (Settings, error) {
	var s Settings
	if asJSON {
		dec := json.NewDecoder(strings.NewReader(doc))
		dec.UseNumber()
		if err := dec.Decode(&s); err != nil {
			return nil, errors.Wrap(err, "failed to decode JSON settings")
		}
	} else if err := yaml.Unmarshal([]byte(doc), &s); err != nil {
		return nil, errors.Wrap(err, "failed to decode YAML settings")
	}
	if s == nil {
		s = Settings{}
	}
	return s, nil
}
