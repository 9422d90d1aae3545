package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	clientsync "github.com/iudanet/manuscript/internal/client/sync"
	"github.com/iudanet/manuscript/internal/models"
)

// Стратегии разрешения конфликтов
const (
	ConflictAsk    = "ask"
	ConflictLocal  = "local"
	ConflictServer = "server"
)

var (
	// ErrConflictNeedsDecision a conflict occurred, stdin is not a terminal and no strategy was given
	ErrConflictNeedsDecision = errors.New("conflict requires a decision: use --on-conflict local|server")
	// ErrUnknownStrategy unknown --on-conflict value
	ErrUnknownStrategy = errors.New("unknown conflict strategy")
)

func (c *Cli) syncCmd() *cobra.Command {
	var strategy string

	cmd := &cobra.Command{
		Use:   "sync <project>",
		Short: "Synchronize a project with the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch strategy {
			case ConflictAsk, ConflictLocal, ConflictServer:
			default:
				return fmt.Errorf("%w %q", ErrUnknownStrategy, strategy)
			}
			return c.runSync(cmd.Context(), args[0], strategy)
		},
	}
	cmd.Flags().StringVar(&strategy, "on-conflict", ConflictAsk, "conflict resolution: ask, local or server")
	return cmd
}

func (c *Cli) runSync(ctx context.Context, name, strategy string) error {
	c.io.Println("=== Synchronization ===")

	client, err := c.apiClient(ctx)
	if err != nil {
		return err
	}
	p, err := c.openProject(name)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	var s *clientsync.Synchronizer
	s = clientsync.New(client, p, c.store, c.logger, clientsync.WithCallbacks(clientsync.Callbacks{
		OnLog: func(msg string) {
			c.io.Printf("  %s\n", msg)
		},
		OnConflict: func(conflict models.Conflict) {
			resolution, err := c.chooseVersion(conflict, strategy)
			if err != nil {
				cancel(err)
				return
			}
			if resolution == nil {
				err = s.ConfirmDeletion(ctx, conflict.EntityID())
			} else {
				err = s.ResolveConflict(ctx, resolution)
			}
			if err != nil {
				cancel(fmt.Errorf("failed to resolve conflict on %d: %w", conflict.EntityID(), err))
			}
		},
	}))

	runner := clientsync.NewRunner()
	runner.Start(ctx, s)
	result, err := runner.Wait(name)
	if err != nil {
		if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
			return fmt.Errorf("synchronization failed: %w", cause)
		}
		return fmt.Errorf("synchronization failed: %w", err)
	}

	return c.render("sync", syncReportTemplate, struct {
		*clientsync.Result
		Project string
	}{Result: result, Project: name})
}

// chooseVersion выбирает версию сущности по стратегии или спрашивает
// пользователя. nil означает, что локальное удаление остается в силе.
func (c *Cli) chooseVersion(conflict models.Conflict, strategy string) (models.Entity, error) {
	switch strategy {
	case ConflictLocal:
		return conflict.Client(), nil
	case ConflictServer:
		return conflict.Server(), nil
	}

	if !c.io.IsInteractive() {
		return nil, ErrConflictNeedsDecision
	}

	local := []byte("(deleted locally)")
	if !conflict.Deleted() {
		var err error
		if local, err = json.MarshalIndent(conflict.Client(), "", "  "); err != nil {
			return nil, err
		}
	}
	server, err := json.MarshalIndent(conflict.Server(), "", "  ")
	if err != nil {
		return nil, err
	}
	if err := c.render("conflict", conflictTemplate, map[string]any{
		"Type":   conflict.Type(),
		"ID":     conflict.EntityID(),
		"Local":  string(local),
		"Server": string(server),
	}); err != nil {
		return nil, err
	}

	for {
		answer, err := c.io.ReadInput("Keep [l]ocal or [s]erver version? ")
		if err != nil {
			return nil, fmt.Errorf("failed to read answer: %w", err)
		}
		switch strings.ToLower(answer) {
		case "l", ConflictLocal:
			return conflict.Client(), nil
		case "s", ConflictServer:
			return conflict.Server(), nil
		}
		c.io.Println("Please answer 'l' or 's'.")
	}
}
