package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/kurobon/gitlane/internal/config"
	"github.com/kurobon/gitlane/internal/git"
	"github.com/kurobon/gitlane/internal/state"
)

const shutdownTimeout = 10 * time.Second

// Run serves s on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()
	s.logger.Info("server listening", "addr", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	s.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Serve opens the repository named by cfg, loads its log and serves it on
// cfg.Addr. Repositories on disk are watched for reference changes.
func Serve(ctx context.Context, cfg *config.Config, logger *slog.Logger, hide ...string) error {
	repo, err := git.Open(cfg.RepoPath)
	if err != nil {
		return err
	}
	ctrl, err := state.NewController(repo, state.OptionsFromConfig(cfg, logger, nil))
	if err != nil {
		return err
	}
	if err := ctrl.Hide(hide...); err != nil {
		return err
	}
	if _, err := ctrl.Load(ctx); err != nil {
		// the partial log is still served; the status carries the error
		logger.Warn("initial load incomplete", "error", err)
	}

	s := NewServer(ctrl, logger)
	if dir := git.GitDir(repo); dir != "" {
		go func() {
			if err := s.Watch(ctx, dir, cfg.WatchDebounce); err != nil {
				logger.Warn("reference watcher disabled", "error", err)
			}
		}()
	}
	return s.Run(ctx, cfg.Addr)
}
