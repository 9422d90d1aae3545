package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/iudanet/manuscript/internal/client/auth"
	clientsync "github.com/iudanet/manuscript/internal/client/sync"
)

func (c *Cli) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status [project...]",
		Short: "Show authentication status and local changes since the last sync",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := c.authStatus(ctx); err != nil {
				return err
			}

			projects := args
			if len(projects) == 0 {
				var err error
				projects, err = c.store.ListProjects(ctx)
				if err != nil {
					return fmt.Errorf("failed to list projects: %w", err)
				}
			}
			for _, name := range projects {
				if err := c.projectStatus(ctx, name); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func (c *Cli) authStatus(ctx context.Context) error {
	c.io.Println("=== Authentication Status ===")

	data, err := c.authService.Current(ctx)
	if errors.Is(err, auth.ErrNotAuthenticated) {
		c.io.Println("Status: Not authenticated")
		c.io.Println("Run 'manuscript login' to authenticate.")
		return nil
	}
	if err != nil {
		return err
	}

	c.io.Println("Status: Authenticated")
	c.io.Printf("User:   %s\n", data.UserID)
	c.io.Printf("Server: %s\n", data.ServerURL)
	if data.ExpiresAt > 0 {
		remaining := time.Until(time.Unix(data.ExpiresAt, 0))
		c.io.Printf("Time remaining: %s\n", remaining.Round(time.Second))
	}
	return nil
}

func (c *Cli) projectStatus(ctx context.Context, name string) error {
	p, err := c.openProject(name)
	if err != nil {
		return err
	}
	st, err := clientsync.LocalStatus(ctx, p, c.store)
	if err != nil {
		return fmt.Errorf("failed to compute status of %s: %w", name, err)
	}

	return c.render("status", projectStatusTemplate, struct {
		*clientsync.Status
		Project string
		Clean   bool
	}{
		Status:  st,
		Project: name,
		Clean:   len(st.New)+len(st.Modified)+len(st.PendingDeletions) == 0,
	})
}
