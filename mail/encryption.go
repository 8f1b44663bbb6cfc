package mail

// Encryption is the transport security mode used to reach the SMTP server.
type Encryption int

const (
	EncryptionOff Encryption = iota
	EncryptionStartTLS
	EncryptionSSL
)

var encryptionNames = map[Encryption]string{
	EncryptionOff:      "off",
	EncryptionStartTLS: "starttls",
	EncryptionSSL:      "ssl",
}

// Encryptions lists every supported mode.
func Encryptions() []Encryption {
	return []Encryption{EncryptionOff, EncryptionStartTLS, EncryptionSSL}
}

// ParseEncryption maps the configuration value to a mode. Matching is exact.
func ParseEncryption(s string) (Encryption, bool) {
	for e, name := range encryptionNames {
		if name == s {
			return e, true
		}
	}
	return EncryptionOff, false
}

func (e Encryption) String() string {
	if name, ok := encryptionNames[e]; ok {
		return name
	}
	return "unknown"
}
