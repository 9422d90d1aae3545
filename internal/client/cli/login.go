package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/iudanet/manuscript/internal/client/config"
)

func (c *Cli) loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Verify an access token and store it",
		Long: "Verify an access token issued by the account system (or 'manuscript-server token') " +
			"and store it together with the server URL. Without --token the token is read from stdin.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c.io.Println("=== Login ===")

			if c.cfg.ServerURL == "" {
				return config.ErrMissingServerURL
			}

			token := c.cfg.Token
			if token == "" {
				var err error
				token, err = c.io.ReadPassword("Access token: ")
				if err != nil {
					return fmt.Errorf("failed to read token: %w", err)
				}
			}
			if token == "" {
				return fmt.Errorf("token cannot be empty")
			}

			data, err := c.authService.Login(ctx, c.cfg.ServerURL, token)
			if err != nil {
				return err
			}

			c.io.Println("✓ Login successful!")
			c.io.Printf("User:   %s\n", data.UserID)
			c.io.Printf("Server: %s\n", data.ServerURL)
			if data.ExpiresAt > 0 {
				c.io.Printf("Token expires: %s\n", time.Unix(data.ExpiresAt, 0).UTC().Format(time.RFC3339))
			}
			return nil
		},
	}
}
