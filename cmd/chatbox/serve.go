package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/RichardoC/chatbox/internal/api"
	"github.com/RichardoC/chatbox/internal/auth"
	"github.com/RichardoC/chatbox/internal/chat"
	"github.com/RichardoC/chatbox/internal/config"
	"github.com/RichardoC/chatbox/internal/llm"
	"github.com/RichardoC/chatbox/internal/store"
	"github.com/RichardoC/chatbox/internal/store/sqlite"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}

			logger, err := newLogger(cfg.Log)
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg, logger)
		},
	}
}

type app struct {
	router  http.Handler
	closers []io.Closer
}

func (a *app) Close() error {
	var err error
	for i := len(a.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, a.closers[i].Close())
	}
	return err
}

// build wires config into a ready router. Close releases the stores it opened.
func build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	a := &app{}

	st, err := store.Open(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, st)

	client, err := llm.New(cfg.LLM)
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("failed to initialize LLM client: %w", err), a.Close())
	}
	logger.Info("using LLM provider", zap.String("provider", cfg.LLM.Provider), zap.String("model", cfg.LLM.Model))

	var (
		authService *auth.Service
		chatOpts    []chat.Option
	)
	if cfg.Auth.Enabled {
		authStore, err := openAuthStore(cfg, st, a, logger)
		if err != nil {
			return nil, multierr.Append(err, a.Close())
		}
		authService = auth.NewService(authStore, cfg.Auth.SessionTTL, logger)
		chatOpts = append(chatOpts, chat.WithOwners(authStore))
	} else {
		logger.Warn("authentication is disabled; conversation routes are open")
	}

	handler := api.NewHandler(
		chat.NewService(st, client, logger, chatOpts...),
		authService,
		logger,
		api.WithCookie(cfg.Auth.SecureCookie, int(cfg.Auth.SessionTTL.Seconds())),
	)
	a.router = api.NewRouter(handler, cfg.Server.StaticDir)
	return a, nil
}

// openAuthStore shares the sqlite conversation database when there is one.
func openAuthStore(cfg *config.Config, st store.Store, a *app, logger *zap.Logger) (auth.Store, error) {
	if s, ok := st.(*sqlite.Store); ok {
		return auth.NewSQLStore(s.DB())
	}

	if cfg.Auth.SQLitePath != "" {
		db, err := sqlite.Open(cfg.Storage.SQLite.Driver, cfg.Auth.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open auth database: %w", err)
		}
		a.closers = append(a.closers, db)
		return auth.NewSQLStore(db)
	}

	logger.Warn("users and sessions are kept in memory; set auth.sqlite_path to persist them")
	return auth.NewMemoryStore(), nil
}

func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) (err error) {
	a, err := build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, a.Close()) }()

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("starting server", zap.String("addr", cfg.Server.Addr))
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}
