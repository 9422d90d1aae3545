package cli

import (
	"github.com/spf13/cobra"

	clientsync "github.com/iudanet/manuscript/internal/client/sync"
)

func (c *Cli) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <project> <id>",
		Short: "Delete an entity locally, the server copy is deleted on the next sync",
		Long: "Delete an entity of any type. A scene is deleted with its subtree and drafts. " +
			"Entities the server already has are queued for deletion on the next sync.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[1])
			if err != nil {
				return err
			}
			p, err := c.openProject(args[0])
			if err != nil {
				return err
			}

			removed, err := clientsync.DeleteLocal(cmd.Context(), p, c.store, id)
			if err != nil {
				return err
			}
			c.io.Printf("✓ Deleted %s\n", joinIDs(removed))
			return nil
		},
	}
}
