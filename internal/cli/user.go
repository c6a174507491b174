package cli

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/telhawk-systems/mirror-notify/internal/cli/output"
	"github.com/telhawk-systems/mirror-notify/internal/models"
	"github.com/telhawk-systems/mirror-notify/internal/repository"
)

// userView exposes the verify token, which models.User hides from JSON.
type userView struct {
	ID             string     `json:"id" yaml:"id"`
	VerifyToken    string     `json:"verify_token,omitempty" yaml:"verify_token,omitempty"`
	Latitude       *float64   `json:"latitude,omitempty" yaml:"latitude,omitempty"`
	Longitude      *float64   `json:"longitude,omitempty" yaml:"longitude,omitempty"`
	LocationUpdate *time.Time `json:"location_update,omitempty" yaml:"location_update,omitempty"`
	CreatedAt      time.Time  `json:"created_at" yaml:"created_at"`
}

func newUserView(u *models.User, withToken bool) userView {
	v := userView{
		ID:             u.ID,
		Latitude:       u.Latitude,
		Longitude:      u.Longitude,
		LocationUpdate: u.LocationUpdate,
		CreatedAt:      u.CreatedAt,
	}
	if withToken {
		v.VerifyToken = u.VerifyToken
	}
	return v
}

func (a *app) userCommand() *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "Subscription user commands",
	}

	var id, verifyToken string
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a subscription user",
		Long: `Create the user record a subscription's userToken points at. The verify
token must match the one registered with the upstream subscription; one is
generated when omitted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if verifyToken == "" {
				token, err := generateToken()
				if err != nil {
					return err
				}
				verifyToken = token
			}

			user := &models.User{ID: id, VerifyToken: verifyToken}
			return a.withRepository(cmd, func(repo repository.Repository) error {
				if err := repo.CreateUser(cmd.Context(), user); err != nil {
					return fmt.Errorf("failed to create user: %w", err)
				}

				out := cmd.OutOrStdout()
				if handled, err := output.Write(out, a.format, newUserView(user, true)); handled {
					return err
				}
				output.Success(out, "User created")
				fmt.Fprintf(out, "  ID:           %s\n", user.ID)
				fmt.Fprintf(out, "  Verify token: %s\n", user.VerifyToken)
				return nil
			})
		},
	}
	createCmd.Flags().StringVar(&id, "id", "", "identity token (the subscription's userToken)")
	createCmd.Flags().StringVar(&verifyToken, "verify-token", "", "verify token registered with the subscription")
	_ = createCmd.MarkFlagRequired("id")

	var showToken bool
	getCmd := &cobra.Command{
		Use:   "get [user-id]",
		Short: "Show a subscription user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withRepository(cmd, func(repo repository.Repository) error {
				user, err := repo.GetUser(cmd.Context(), args[0])
				if err != nil {
					return fmt.Errorf("failed to get user: %w", err)
				}

				out := cmd.OutOrStdout()
				if handled, err := output.Write(out, a.format, newUserView(user, showToken)); handled {
					return err
				}

				table := output.NewTable("ID", "LATITUDE", "LONGITUDE", "LOCATION UPDATE", "CREATED")
				table.AddRow(user.ID, formatFloat(user.Latitude), formatFloat(user.Longitude),
					formatTime(user.LocationUpdate), user.CreatedAt.Format(time.RFC3339))
				table.Render(out)
				return nil
			})
		},
	}
	getCmd.Flags().BoolVar(&showToken, "show-token", false, "include the verify token in json/yaml output")

	userCmd.AddCommand(createCmd, getCmd)
	return userCmd
}

// generateToken returns 24 random bytes, base64url encoded.
func generateToken() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate verify token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func formatFloat(f *float64) string {
	if f == nil {
		return "-"
	}
	return strconv.FormatFloat(*f, 'f', 6, 64)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}
