package cli

import (
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func (c *Cli) noteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "note",
		Short: "Manage project notes",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "add <project> <text...>",
		Short: "Add a note",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := c.openProject(args[0])
			if err != nil {
				return err
			}
			note, err := p.AddNote(strings.Join(args[1:], " "), time.Now().Truncate(time.Second))
			if err != nil {
				return err
			}
			c.io.Printf("✓ Added note %d\n", note.ID)
			return nil
		},
	})
	return cmd
}
