package cli

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/telhawk-systems/mirror-notify/internal/cli/output"
	"github.com/telhawk-systems/mirror-notify/internal/usage"
)

func (a *app) statsCommand() *cobra.Command {
	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Per-user notification statistics (requires usage.enabled on the service)",
	}

	userCmd := &cobra.Command{
		Use:   "user [user-id]",
		Short: "Show notification counts for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withUsage(func(client *usage.Client) error {
				stats, err := client.GetStats(cmd.Context(), args[0])
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if handled, err := output.Write(out, a.format, stats); handled {
					return err
				}

				table := output.NewTable("USER", "TOTAL", "LAST HOUR", "LAST 24H", "LAST COLLECTION", "LAST NOTIFIED")
				table.AddRow(stats.UserID,
					strconv.FormatInt(stats.TotalNotifications, 10),
					strconv.FormatInt(stats.NotificationsLastHour, 10),
					strconv.FormatInt(stats.NotificationsLast24h, 10),
					orDash(stats.LastCollection),
					formatTime(stats.LastNotifiedAt))
				table.Render(out)
				return nil
			})
		},
	}

	var since time.Duration
	activeCmd := &cobra.Command{
		Use:   "active",
		Short: "List users notified recently",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withUsage(func(client *usage.Client) error {
				users, err := client.ListActiveUsers(cmd.Context(), since)
				if err != nil {
					return err
				}
				sort.Strings(users)

				out := cmd.OutOrStdout()
				if handled, err := output.Write(out, a.format, users); handled {
					return err
				}
				if len(users) == 0 {
					output.Info(out, "No users notified in the last %s", since)
					return nil
				}
				for _, u := range users {
					fmt.Fprintln(out, u)
				}
				return nil
			})
		},
	}
	activeCmd.Flags().DurationVar(&since, "since", time.Hour, "look-back window")

	statsCmd.AddCommand(userCmd, activeCmd)
	return statsCmd
}

func (a *app) withUsage(fn func(*usage.Client) error) error {
	client, err := usage.NewClient(a.cfg.Redis.URL, "notifyctl")
	if err != nil {
		return err
	}
	defer client.Close()
	return fn(client)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
