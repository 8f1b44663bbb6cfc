package env

import (
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"

	"github.com/pure-golang/mailer/mail"
)

const DefaultEnvFile = ".env"

// InitConfig fills config from the process environment after loading
// DefaultEnvFile, if present.
func InitConfig(config any) error {
	return Load(DefaultEnvFile, config)
}

// Load is InitConfig with a custom dotenv file. Variables already set in the
// environment take precedence over the file.
func Load(file string, config any) error {
	// nolint:errcheck // .env file is optional, failure is acceptable
	_ = godotenv.Load(file)

	if err := envconfig.Process("", config); err != nil {
		return errors.Wrap(err, "failed to envconfig.Process")
	}

	return nil
}

// MailSettings reads mail.Settings from MAIL_* variables.
func MailSettings() (mail.Settings, error) {
	var es mail.EnvSettings
	if err := InitConfig(&es); err != nil {
		return nil, err
	}
	return es.Settings(), nil
}
