package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/telhawk-systems/mirror-notify/common/logging"
	"github.com/telhawk-systems/mirror-notify/common/messaging"
	natsclient "github.com/telhawk-systems/mirror-notify/common/messaging/nats"
	"github.com/telhawk-systems/mirror-notify/internal/cli/output"
)

type eventView struct {
	Subject  string            `json:"subject" yaml:"subject"`
	Received time.Time         `json:"received" yaml:"received"`
	Metadata map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	Data     string            `json:"data" yaml:"data"`
}

func (a *app) eventsCommand() *cobra.Command {
	eventsCmd := &cobra.Command{
		Use:   "events",
		Short: "Side event commands",
	}

	var subject string
	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Print events published by the notify service until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			natsCfg := natsclient.DefaultConfig()
			natsCfg.URL = a.cfg.NATS.URL
			natsCfg.Token = a.cfg.NATS.Token
			natsCfg.Name = "notifyctl"

			client, err := natsclient.NewClient(natsCfg, logging.Discard().Logger)
			if err != nil {
				return err
			}
			defer client.Close()

			return watch(cmd, client, subject, a.format)
		},
	}
	watchCmd.Flags().StringVar(&subject, "subject", messaging.SubjectAll, "subject or wildcard to watch")

	eventsCmd.AddCommand(watchCmd)
	return eventsCmd
}

// watch prints every message on subject until the command's context ends.
func watch(cmd *cobra.Command, sub messaging.Subscriber, subject, format string) error {
	out := cmd.OutOrStdout()
	s, err := sub.Subscribe(subject, func(ctx context.Context, msg *messaging.Message) error {
		view := eventView{
			Subject:  msg.Subject,
			Received: msg.Timestamp,
			Metadata: msg.Metadata,
			Data:     string(msg.Data),
		}
		if handled, err := output.Write(out, format, view); handled {
			return err
		}
		fmt.Fprintf(out, "%s  %-28s  %s\n", view.Received.Format(time.RFC3339), view.Subject, view.Data)
		return nil
	})
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", subject, err)
	}
	defer func() { _ = s.Unsubscribe() }()

	output.Info(cmd.ErrOrStderr(), "Watching %s (Ctrl-C to stop)", subject)
	<-cmd.Context().Done()
	return nil
}
