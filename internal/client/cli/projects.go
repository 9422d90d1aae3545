package cli

import (
	"github.com/spf13/cobra"
)

func (c *Cli) projectsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "projects",
		Short: "List the projects stored on the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := c.apiClient(cmd.Context())
			if err != nil {
				return err
			}
			projects, err := client.ListProjects(cmd.Context())
			if err != nil {
				return err
			}

			if len(projects) == 0 {
				c.io.Println("No projects on the server.")
				return nil
			}
			for _, p := range projects {
				c.io.Printf("%s\n", p.Name)
			}
			return nil
		},
	}
}
