package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/telhawk-systems/mirror-notify/internal/cli/output"
	"github.com/telhawk-systems/mirror-notify/internal/models"
	"github.com/telhawk-systems/mirror-notify/internal/repository"
)

type credentialView struct {
	UserID      string     `json:"user_id" yaml:"user_id"`
	TokenType   string     `json:"token_type" yaml:"token_type"`
	AccessToken string     `json:"access_token" yaml:"access_token"`
	Expiry      *time.Time `json:"expiry,omitempty" yaml:"expiry,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at" yaml:"updated_at"`
}

func newCredentialView(c *models.Credential) credentialView {
	return credentialView{
		UserID:      c.UserID,
		TokenType:   c.TokenType,
		AccessToken: maskToken(c.AccessToken),
		Expiry:      c.Expiry,
		UpdatedAt:   c.UpdatedAt,
	}
}

func (a *app) credentialCommand() *cobra.Command {
	credCmd := &cobra.Command{
		Use:   "credential",
		Short: "Stored OAuth credential commands",
	}

	var userID, accessToken, tokenType string
	var expiresIn time.Duration
	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Store the access token used to call the Mirror API for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			cred := &models.Credential{
				UserID:      userID,
				AccessToken: accessToken,
				TokenType:   tokenType,
			}
			if expiresIn > 0 {
				expiry := time.Now().Add(expiresIn).UTC()
				cred.Expiry = &expiry
			}

			return a.withRepository(cmd, func(repo repository.Repository) error {
				if err := repo.PutCredential(cmd.Context(), cred); err != nil {
					return fmt.Errorf("failed to store credential: %w", err)
				}
				output.Success(cmd.OutOrStdout(), "Credential stored for %s", userID)
				return nil
			})
		},
	}
	setCmd.Flags().StringVar(&userID, "user", "", "user id")
	setCmd.Flags().StringVar(&accessToken, "access-token", "", "OAuth access token")
	setCmd.Flags().StringVar(&tokenType, "token-type", "Bearer", "token type")
	setCmd.Flags().DurationVar(&expiresIn, "expires-in", 0, "token lifetime (0 = no explicit expiry)")
	_ = setCmd.MarkFlagRequired("user")
	_ = setCmd.MarkFlagRequired("access-token")

	getCmd := &cobra.Command{
		Use:   "get [user-id]",
		Short: "Show the stored credential for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withRepository(cmd, func(repo repository.Repository) error {
				cred, err := repo.GetCredential(cmd.Context(), args[0])
				if err != nil {
					return fmt.Errorf("failed to get credential: %w", err)
				}

				out := cmd.OutOrStdout()
				view := newCredentialView(cred)
				if handled, err := output.Write(out, a.format, view); handled {
					return err
				}

				table := output.NewTable("USER", "TYPE", "TOKEN", "EXPIRY", "UPDATED")
				table.AddRow(view.UserID, view.TokenType, view.AccessToken,
					formatTime(view.Expiry), view.UpdatedAt.UTC().Format(time.RFC3339))
				table.Render(out)
				return nil
			})
		},
	}

	credCmd.AddCommand(setCmd, getCmd)
	return credCmd
}

// maskToken keeps the first and last four characters of long tokens.
func maskToken(token string) string {
	if len(token) <= 12 {
		return strings.Repeat("*", len(token))
	}
	return token[:4] + strings.Repeat("*", len(token)-8) + token[len(token)-4:]
}
