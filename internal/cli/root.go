// Package cli implements notifyctl, the admin tool for subscription records,
// stored credentials and test notifications.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/telhawk-systems/mirror-notify/internal/config"
	"github.com/telhawk-systems/mirror-notify/internal/repository"
)

// OpenRepository connects to the configured store. Tests replace it.
var OpenRepository = func(ctx context.Context, cfg *config.Config) (repository.Repository, error) {
	if cfg.Database.Type != "postgres" {
		return nil, errors.New("user and credential commands need database.type=postgres; the in-memory store does not outlive this process")
	}
	return repository.NewPostgresRepository(ctx, cfg.Database.Postgres.ConnString())
}

type app struct {
	cfgFile string
	format  string
	cfg     *config.Config
}

// NewRootCommand builds the notifyctl command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "notifyctl",
		Short: "Mirror notify admin CLI",
		Long: `notifyctl manages the records the notify service reads: subscription users
with their verify tokens and stored OAuth access tokens. It can also send test
notifications to a running service and watch the events it publishes.`,
		Version:       "0.1.0",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			a.cfg = cfg
			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "service config file (default: ./config.yaml or /etc/mirror-notify/config.yaml)")
	root.PersistentFlags().StringVarP(&a.format, "output", "o", "table", "output format: table, json, yaml")

	root.AddCommand(
		a.userCommand(),
		a.credentialCommand(),
		a.simulateCommand(),
		a.eventsCommand(),
		a.statsCommand(),
	)

	return root
}

// withRepository opens the store for the duration of fn.
func (a *app) withRepository(cmd *cobra.Command, fn func(repository.Repository) error) error {
	repo, err := OpenRepository(cmd.Context(), a.cfg)
	if err != nil {
		return err
	}
	defer repo.Close()
	return fn(repo)
}
