package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iudanet/manuscript/internal/client/project"
	"github.com/iudanet/manuscript/internal/models"
	"github.com/iudanet/manuscript/internal/scenetree"
)

func (c *Cli) sceneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scene",
		Short: "Edit the scene tree of a local project",
	}
	cmd.AddCommand(c.sceneAddCmd(), c.sceneMoveCmd(), c.sceneListCmd())
	return cmd
}

func (c *Cli) sceneAddCmd() *cobra.Command {
	var (
		parent  int
		chapter bool
		content string
	)

	cmd := &cobra.Command{
		Use:   "add <project> <name>",
		Short: "Add a scene or chapter as the last child of a chapter",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := c.openProject(args[0])
			if err != nil {
				return err
			}
			sceneType := models.SceneTypeScene
			if chapter {
				sceneType = models.SceneTypeChapter
			}

			scene, err := p.AddScene(parent, args[1], sceneType, content)
			if err != nil {
				return err
			}
			c.io.Printf("✓ Added %s %d %q\n", scene.Type, scene.ID, scene.Name)
			return nil
		},
	}
	cmd.Flags().IntVar(&parent, "parent", models.RootSceneID, "parent chapter id (0 - root)")
	cmd.Flags().BoolVar(&chapter, "chapter", false, "create a chapter instead of a scene")
	cmd.Flags().StringVar(&content, "content", "", "scene text")
	return cmd
}

func (c *Cli) sceneMoveCmd() *cobra.Command {
	var before, after, into int

	cmd := &cobra.Command{
		Use:   "move <project> <id>",
		Short: "Move a scene before or after another scene, or into a chapter",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[1])
			if err != nil {
				return err
			}

			var (
				target int
				place  project.Placement
			)
			switch {
			case cmd.Flags().Changed("before"):
				target, place = before, project.PlaceBefore
			case cmd.Flags().Changed("after"):
				target, place = after, project.PlaceAfter
			case cmd.Flags().Changed("into"):
				target, place = into, project.PlaceInto
			default:
				return fmt.Errorf("one of --before, --after or --into is required")
			}

			p, err := c.openProject(args[0])
			if err != nil {
				return err
			}
			if err := p.MoveSceneTo(id, target, place); err != nil {
				return err
			}
			c.io.Printf("✓ Moved scene %d\n", id)
			return nil
		},
	}
	cmd.Flags().IntVar(&before, "before", 0, "place before this scene")
	cmd.Flags().IntVar(&after, "after", 0, "place after this scene")
	cmd.Flags().IntVar(&into, "into", 0, "append to this chapter (0 - root)")
	cmd.MarkFlagsMutuallyExclusive("before", "after", "into")
	return cmd
}

func (c *Cli) sceneListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <project>",
		Short: "Print the scene tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := c.openProject(args[0])
			if err != nil {
				return err
			}
			tree, err := p.SceneTree()
			if err != nil {
				return err
			}
			if tree.Len() == 0 {
				c.io.Println("No scenes.")
				return nil
			}
			c.printTree(tree.Root(), 0)
			return nil
		},
	}
}

func (c *Cli) printTree(n *scenetree.Node, depth int) {
	for _, child := range n.Children() {
		marker := "-"
		if child.Item.IsChapter() {
			marker = "+"
		}
		c.io.Printf("%s%s [%d] %s\n", strings.Repeat("  ", depth), marker, child.ID(), child.Item.Name)
		c.printTree(child, depth+1)
	}
}
