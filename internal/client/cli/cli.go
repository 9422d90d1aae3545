// Package cli реализует команды клиента manuscript: вход по токену,
// синхронизацию проектов и локальное редактирование дерева сцен.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"text/template"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	clientapi "github.com/iudanet/manuscript/internal/client/api"
	"github.com/iudanet/manuscript/internal/client/auth"
	"github.com/iudanet/manuscript/internal/client/config"
	"github.com/iudanet/manuscript/internal/client/iocli"
	"github.com/iudanet/manuscript/internal/client/project"
	"github.com/iudanet/manuscript/internal/client/storage/boltdb"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

var templateFuncs = template.FuncMap{
	"ids": joinIDs,
}

func joinIDs(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ", ")
}

type Cli struct {
	io          iocli.IO
	v           *viper.Viper
	cfg         *config.Config
	logger      *slog.Logger
	store       *boltdb.Storage
	authService auth.Service
	configFile  string
}

// New creates the client CLI writing to and reading from io.
func New(io iocli.IO) *Cli {
	return &Cli{
		io:     io,
		v:      config.New(),
		logger: slog.New(slog.DiscardHandler),
	}
}

// Command builds the root command with every subcommand.
func (c *Cli) Command() *cobra.Command {
	root := &cobra.Command{
		Use:           "manuscript",
		Short:         "Manuscript project client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.init(cmd.Context())
		},
	}
	root.SetOut(c.io)
	root.PersistentFlags().StringVar(&c.configFile, "config", "", "path to config file (toml, yaml or json)")
	if err := config.BindFlags(c.v, root.PersistentFlags()); err != nil {
		panic(err)
	}

	root.AddCommand(
		c.loginCmd(),
		c.logoutCmd(),
		c.statusCmd(),
		c.projectsCmd(),
		c.syncCmd(),
		c.sceneCmd(),
		c.noteCmd(),
		c.deleteCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Show version information",
			// Версия не требует конфигурации и базы
			PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
			Run: func(cmd *cobra.Command, args []string) {
				c.printVersion()
			},
		},
	)
	return root
}

// init загружает конфигурацию и открывает локальное хранилище
func (c *Cli) init(ctx context.Context) error {
	cfg, err := config.Load(c.v, c.configFile)
	if err != nil {
		return err
	}
	c.cfg = cfg

	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	c.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	store, err := boltdb.New(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	c.store = store

	c.authService = auth.NewService(store, func(serverURL, token string) auth.Verifier {
		return c.newClient(serverURL, token)
	}, c.logger)
	return nil
}

// Close releases the local database.
func (c *Cli) Close() error {
	if c.store == nil {
		return nil
	}
	err := c.store.Close()
	c.store = nil
	return err
}

func (c *Cli) newClient(serverURL, token string) *clientapi.Client {
	return clientapi.NewClient(serverURL,
		clientapi.WithToken(token),
		clientapi.WithTimeout(c.cfg.Timeout),
		clientapi.WithCompressThreshold(c.cfg.CompressThreshold))
}

// apiClient клиент сервера: адрес и токен из конфигурации важнее сохраненных
func (c *Cli) apiClient(ctx context.Context) (*clientapi.Client, error) {
	serverURL, token := c.cfg.ServerURL, c.cfg.Token
	if serverURL == "" || token == "" {
		data, err := c.authService.Current(ctx)
		if err != nil {
			if errors.Is(err, auth.ErrNotAuthenticated) {
				return nil, fmt.Errorf("not authenticated. Please run 'manuscript login' first")
			}
			return nil, err
		}
		if serverURL == "" {
			serverURL = data.ServerURL
		}
		if token == "" {
			token = data.AccessToken
		}
	}
	if serverURL == "" {
		return nil, config.ErrMissingServerURL
	}
	return c.newClient(serverURL, token), nil
}

func (c *Cli) openProject(name string) (*project.Project, error) {
	return project.Open(c.cfg.ProjectsDir, name, c.logger)
}

func (c *Cli) render(name, text string, data any) error {
	tmpl, err := template.New(name).Funcs(templateFuncs).Parse(text)
	if err != nil {
		return err
	}
	return tmpl.Execute(c.io, data)
}

func (c *Cli) printVersion() {
	c.io.Printf("Manuscript Client\n")
	c.io.Printf("Version:    %s\n", Version)
	c.io.Printf("Build Date: %s\n", BuildDate)
	c.io.Printf("Git Commit: %s\n", GitCommit)
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
