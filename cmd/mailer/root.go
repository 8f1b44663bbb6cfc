package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/pure-golang/mailer/env"
	"github.com/pure-golang/mailer/logger"
	"github.com/pure-golang/mailer/mail"
	"github.com/pure-golang/mailer/mail/smtp"
	"github.com/pure-golang/mailer/metrics"
	"github.com/pure-golang/mailer/tracing"
	"github.com/pure-golang/mailer/tracing/otlp"
)

// rootOptions holds the global flags and whatever the pre-run hook started.
type rootOptions struct {
	cfgFile string
	closers []io.Closer
	// dialer overrides the SMTP dialer; nil uses the default.
	dialer smtp.Dialer
}

func newRootCmd() *cobra.Command {
	return newRootCmdWith(&rootOptions{})
}

func newRootCmdWith(opts *rootOptions) *cobra.Command {

	cmd := &cobra.Command{
		Use:   "mailer",
		Short: "Send notification mail over SMTP",
		Long: `Mailer validates SMTP settings and delivers plain-text notifications
to a single address or to one of several role addresses.

Settings come from a YAML or JSON file (--config) or, without one,
from MAIL_* environment variables.

Example:
  mailer check --config mail.yaml
  mailer send --config mail.yaml --subject "Disk full" --role admin < report.txt
  mailer send --subject Test --body hello --dry-run`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			opts.teardown(cmd.Context())
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.cfgFile, "config", "c", "", "settings file (.yaml, .yml or .json); MAIL_* env when empty")

	cmd.AddCommand(newCheckCmd(opts))
	cmd.AddCommand(newSendCmd(opts))

	return cmd
}

// setup installs the logger, metrics server and tracer provider from env.
func (o *rootOptions) setup(cmd *cobra.Command) error {
	var logCfg logger.Config
	if err := env.InitConfig(&logCfg); err != nil {
		return errors.Wrap(err, "failed to read logger config")
	}
	l := logger.New(logCfg, writerFor(cmd, logCfg.Output))
	slog.SetDefault(l)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(logger.NewContext(ctx, l))

	var metricsCfg metrics.Config
	if err := env.InitConfig(&metricsCfg); err != nil {
		return errors.Wrap(err, "failed to read metrics config")
	}
	m, err := metrics.InitDefault(metricsCfg)
	if err != nil {
		return err
	}
	o.closers = append(o.closers, m)

	var tracingCfg otlp.Config
	if err := env.InitConfig(&tracingCfg); err != nil {
		return errors.Wrap(err, "failed to read tracing config")
	}
	if tracingCfg.EndPoint != "" {
		tp, err := tracing.Init(otlp.NewProviderBuilder(tracingCfg))
		if err != nil {
			l.Warn("tracing disabled", "error", err.Error())
		}
		o.closers = append(o.closers, tp)
	}

	return nil
}

func (o *rootOptions) teardown(ctx context.Context) {
	for i := len(o.closers) - 1; i >= 0; i-- {
		if err := o.closers[i].Close(); err != nil {
			logger.FromContextWithErr(ctx, err).Warn("failed to shut down")
		}
	}
	o.closers = nil
}

// settings reads the settings file, or MAIL_* variables when none is given.
func (o *rootOptions) settings() (mail.Settings, error) {
	if o.cfgFile == "" {
		return env.MailSettings()
	}
	return mail.LoadSettingsFile(o.cfgFile)
}

// config validates settings with the command's logger.
func (o *rootOptions) config(ctx context.Context) (*mail.Config, error) {
	raw, err := o.settings()
	if err != nil {
		return nil, err
	}
	return mail.Validate(raw, mail.WithLogger(logger.FromContext(ctx)))
}

func writerFor(cmd *cobra.Command, out logger.Output) io.Writer {
	if out == logger.OutputStdout {
		return cmd.OutOrStdout()
	}
	return cmd.ErrOrStderr()
}
