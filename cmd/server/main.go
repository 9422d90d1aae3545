package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/iudanet/manuscript/internal/server"
	"github.com/iudanet/manuscript/internal/server/config"
	"github.com/iudanet/manuscript/internal/server/handlers"
	"github.com/iudanet/manuscript/internal/validation"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := config.New()
	var configFile string

	root := &cobra.Command{
		Use:           "manuscript-server",
		Short:         "Manuscript project synchronization server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "path to config file (toml, yaml or json)")
	if err := config.BindFlags(v, root.PersistentFlags()); err != nil {
		panic(err)
	}

	root.AddCommand(
		newServeCmd(v, &configFile),
		newTokenCmd(v, &configFile),
		&cobra.Command{
			Use:   "version",
			Short: "Show version information",
			Run: func(cmd *cobra.Command, args []string) {
				printVersion()
			},
		},
	)
	return root
}

func newServeCmd(v *viper.Viper, configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v, *configFile)
			if err != nil {
				return err
			}

			logger, closer, err := server.NewLogger(cfg.Log, os.Stdout)
			if err != nil {
				return err
			}
			defer closer.Close()
			slog.SetDefault(logger)
			handlers.Version = Version

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv, err := server.New(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := srv.Close(); err != nil {
					logger.Error("failed to close storage", "error", err)
				}
			}()

			return srv.Run(ctx)
		},
	}
}

// newTokenCmd выпускает bearer токен для пользователя. Учетные записи ведет
// внешняя система, команда нужна для администрирования и локальной работы.
func newTokenCmd(v *viper.Viper, configFile *string) *cobra.Command {
	var (
		user string
		ttl  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v, *configFile)
			if err != nil {
				return err
			}
			if cfg.JWT.Secret == "" {
				return config.ErrMissingJWTSecret
			}
			if err := validation.ValidateUsername(user); err != nil {
				return err
			}

			jwtCfg := server.JWTConfig(cfg)
			if ttl > 0 {
				jwtCfg.AccessTokenTTL = ttl
			}
			token, _, err := handlers.GenerateAccessToken(jwtCfg, user, user)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "user id to issue the token for")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default from config)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func printVersion() {
	fmt.Printf("Manuscript Server\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}

