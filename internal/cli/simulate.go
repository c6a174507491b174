package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/spf13/cobra"

	"github.com/telhawk-systems/mirror-notify/internal/cli/output"
	"github.com/telhawk-systems/mirror-notify/internal/models"
)

type simulateOptions struct {
	url         string
	userToken   string
	verifyToken string
	itemID      string
	operation   string
	action      string
	collection  string
	timeout     time.Duration
}

type simulateResult struct {
	Path         string              `json:"path" yaml:"path"`
	Status       int                 `json:"status" yaml:"status"`
	RequestID    string              `json:"request_id,omitempty" yaml:"request_id,omitempty"`
	Notification models.Notification `json:"notification" yaml:"notification"`
	Response     string              `json:"response,omitempty" yaml:"response,omitempty"`
}

func (a *app) simulateCommand() *cobra.Command {
	opts := &simulateOptions{}

	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "Send a test notification to a running notify service",
		Long: `Send a subscription callback the way the upstream would. Missing item ids
are filled with random values so repeated runs do not collide.`,
	}
	simulateCmd.PersistentFlags().StringVar(&opts.url, "url", "", "service base URL (default: http://localhost:<server.port>)")
	simulateCmd.PersistentFlags().StringVar(&opts.userToken, "user", "", "userToken to send")
	simulateCmd.PersistentFlags().StringVar(&opts.verifyToken, "verify-token", "", "verifyToken to send")
	simulateCmd.PersistentFlags().StringVar(&opts.itemID, "item-id", "", "itemId to send (random when empty)")
	simulateCmd.PersistentFlags().StringVar(&opts.operation, "operation", models.OperationUpdate, "operation to send")
	simulateCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "request timeout")
	_ = simulateCmd.MarkPersistentFlagRequired("user")

	timelineCmd := &cobra.Command{
		Use:   "timeline",
		Short: "POST a timeline notification to /timeline_update",
		RunE: func(cmd *cobra.Command, args []string) error {
			n := a.notification(opts)
			if opts.action != "" {
				n.UserActions = []models.UserAction{{Type: opts.action}}
			}
			return a.send(cmd, opts, "/timeline_update", n)
		},
	}
	timelineCmd.Flags().StringVar(&opts.action, "action", models.ActionShare, "type of the first user action (empty sends none)")

	locationCmd := &cobra.Command{
		Use:   "location",
		Short: "POST a location notification to /locations_update",
		RunE: func(cmd *cobra.Command, args []string) error {
			n := a.notification(opts)
			n.Collection = opts.collection
			if opts.itemID == "" {
				n.ItemID = "latest"
			}
			return a.send(cmd, opts, "/locations_update", n)
		},
	}
	locationCmd.Flags().StringVar(&opts.collection, "collection", models.CollectionLocations, "collection to send")

	simulateCmd.AddCommand(timelineCmd, locationCmd)
	return simulateCmd
}

func (a *app) notification(opts *simulateOptions) models.Notification {
	itemID := opts.itemID
	if itemID == "" {
		itemID = gofakeit.UUID()
	}
	return models.Notification{
		UserToken:   opts.userToken,
		VerifyToken: opts.verifyToken,
		Operation:   opts.operation,
		ItemID:      itemID,
	}
}

func (a *app) send(cmd *cobra.Command, opts *simulateOptions, path string, n models.Notification) error {
	base := opts.url
	if base == "" {
		base = fmt.Sprintf("http://localhost:%d", a.cfg.Server.Port)
	}

	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost, strings.TrimRight(base, "/")+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: opts.timeout}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	result := simulateResult{
		Path:         path,
		Status:       resp.StatusCode,
		RequestID:    resp.Header.Get("X-Request-ID"),
		Notification: n,
		Response:     strings.TrimSpace(string(respBody)),
	}

	out := cmd.OutOrStdout()
	if handled, err := output.Write(out, a.format, result); handled {
		return err
	}
	output.Info(out, "POST %s -> %d %s", path, resp.StatusCode, http.StatusText(resp.StatusCode))
	fmt.Fprintf(out, "  Item:       %s\n", n.ItemID)
	fmt.Fprintf(out, "  Request ID: %s\n", result.RequestID)
	if result.Response != "" {
		fmt.Fprintf(out, "  Response:   %s\n", result.Response)
	}
	return nil
}
