package main

import (
	"context"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/pure-golang/mailer/mail"
	"github.com/pure-golang/mailer/mail/noop"
	"github.com/pure-golang/mailer/mail/smtp"
)

type sendOptions struct {
	subject string
	to      string
	role    string
	body    string
	dryRun  bool
	timeout time.Duration
}

func newSendCmd(root *rootOptions) *cobra.Command {
	opts := &sendOptions{}

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send one message",
		Long: `Send one plain-text message.

The recipient is --to when given, otherwise the address of --role,
otherwise the configured default recipient. The body is read from
stdin unless --body is set.

With --dry-run the message is composed and printed instead of sent.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.config(cmd.Context())
			if err != nil {
				return err
			}

			msg := mail.Message{To: opts.to, Role: opts.role, Subject: opts.subject, Body: opts.body}
			if !cmd.Flags().Changed("body") {
				body, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return errors.Wrap(err, "failed to read body from stdin")
				}
				msg.Body = string(body)
			}

			var sender mail.Sender
			if opts.dryRun {
				sender = noop.NewSender(cfg, cmd.OutOrStdout())
			} else {
				sender = smtp.NewSender(cfg, &smtp.SenderOptions{Dialer: root.dialer})
			}
			defer sender.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			return sender.Send(ctx, msg)
		},
	}

	cmd.Flags().StringVarP(&opts.subject, "subject", "s", "", "message subject")
	cmd.Flags().StringVar(&opts.to, "to", "", "recipient address, overrides --role and the default recipient")
	cmd.Flags().StringVarP(&opts.role, "role", "r", "", "recipient role from the configured role map")
	cmd.Flags().StringVarP(&opts.body, "body", "b", "", "message body (default: read from stdin)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "compose and print the message without sending")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", smtp.DefaultTimeout, "timeout for the whole delivery")
	cmd.MarkFlagsMutuallyExclusive("to", "role")

	return cmd
}
