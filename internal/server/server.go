// Package server собирает HTTP сервер синхронизации: хранилища, сессии,
// обработчики и middleware.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/iudanet/manuscript/internal/filestore"
	"github.com/iudanet/manuscript/internal/server/config"
	"github.com/iudanet/manuscript/internal/server/handlers"
	"github.com/iudanet/manuscript/internal/server/middleware"
	"github.com/iudanet/manuscript/internal/server/repository"
	"github.com/iudanet/manuscript/internal/server/session"
	"github.com/iudanet/manuscript/internal/server/storage/sqlite"
	"github.com/iudanet/manuscript/internal/server/synchronizer"
)

// Server HTTP сервер синхронизации проектов
type Server struct {
	cfg      *config.Config
	logger   *slog.Logger
	storage  *sqlite.Storage
	sessions *repository.SessionManager
	handler  http.Handler
}

// New открывает хранилища и собирает маршруты. Close освобождает базу.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if err := os.MkdirAll(cfg.Storage.DataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	if dir := filepath.Dir(cfg.Storage.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create database dir: %w", err)
		}
	}

	store, err := sqlite.New(ctx, cfg.Storage.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	layout := filestore.Layout{Root: cfg.Storage.DataDir, Codec: filestore.JSONCodec{}}
	sessions := session.NewManager[repository.Key, *repository.SyncSession](
		session.WithTTL(cfg.Sync.SessionTTL),
		session.WithLogger(logger),
	)
	repo := repository.New(
		sessions,
		synchronizer.NewHandlers(synchronizer.LayoutStores{Layout: layout}, logger),
		store,
		layout,
		logger,
	)

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		storage:  store,
		sessions: sessions,
	}
	s.handler = s.routes(repo)

	return s, nil
}

// JWTConfig returns the token settings used by the auth middleware.
func (s *Server) JWTConfig() handlers.JWTConfig {
	return JWTConfig(s.cfg)
}

// JWTConfig converts server config into handler token settings.
func JWTConfig(cfg *config.Config) handlers.JWTConfig {
	return handlers.JWTConfig{
		Issuer:         cfg.JWT.Issuer,
		Secret:         []byte(cfg.JWT.Secret),
		AccessTokenTTL: cfg.JWT.TokenTTL,
	}
}

func (s *Server) routes(service handlers.SyncService) http.Handler {
	syncHandler := handlers.NewSyncHandler(s.logger, service)
	healthHandler := handlers.NewHealthHandler(s.logger, s.storage.DB())

	auth := middleware.AuthMiddleware(s.logger, s.JWTConfig())
	limit := middleware.RateLimitMiddleware(s.cfg.HTTP.RateLimit, s.cfg.HTTP.RateWindow, s.logger)
	decompress := middleware.DecompressMiddleware(s.logger, s.cfg.HTTP.MaxDecodedBody)

	// auth -> rate limit -> decompress -> handler
	protect := func(h http.HandlerFunc) http.Handler {
		return auth(limit(decompress(h)))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/health", healthHandler.Health)

	mux.Handle("GET /api/v1/projects", protect(syncHandler.ListProjects))
	mux.Handle("POST /api/v1/projects/{project}/sync/begin", protect(syncHandler.BeginSync))
	mux.Handle("POST /api/v1/projects/{project}/sync/end", protect(syncHandler.EndSync))
	mux.Handle("POST /api/v1/projects/{project}/sync/cancel", protect(syncHandler.CancelSync))
	mux.Handle("GET /api/v1/projects/{project}/entities/{type}/{id}", protect(syncHandler.LoadEntity))
	mux.Handle("PUT /api/v1/projects/{project}/entities/{type}/{id}", protect(syncHandler.SaveEntity))
	mux.Handle("DELETE /api/v1/projects/{project}/entities/{id}", protect(syncHandler.DeleteEntity))

	// recovery -> logging -> mux
	return middleware.RecoveryMiddleware(s.logger)(
		middleware.LoggingWithSkip(s.logger, []string{"/api/v1/health"})(mux),
	)
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run обслуживает запросы до отмены ctx, затем корректно завершает работу.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.HTTP.Address,
		Handler:      s.handler,
		ReadTimeout:  s.cfg.HTTP.ReadTimeout,
		WriteTimeout: s.cfg.HTTP.WriteTimeout,
		IdleTimeout:  s.cfg.HTTP.IdleTimeout,
	}

	cleanupCtx, stopCleanup := context.WithCancel(ctx)
	defer stopCleanup()
	if s.cfg.Sync.CleanupInterval > 0 {
		s.sessions.StartCleanup(cleanupCtx, s.cfg.Sync.CleanupInterval)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server started", "address", s.cfg.HTTP.Address, "data_dir", s.cfg.Storage.DataDir)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// Close releases the database.
func (s *Server) Close() error {
	return s.storage.Close()
}

// NewLogger создает логгер по конфигурации. При заданном файле вывод идет
// в ротируемый файл, closer нужно закрыть при завершении.
func NewLogger(cfg config.LogConfig, stdout io.Writer) (*slog.Logger, io.Closer, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.Level))); err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	out := stdout
	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		out = rotator
		closer = rotator
	}

	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	switch cfg.Format {
	case "json":
		h = slog.NewJSONHandler(out, opts)
	default:
		h = slog.NewTextHandler(out, opts)
	}
	return slog.New(h), closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
