// Package api serves the HTTP API on a unix socket.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

const shutdownTimeout = 5 * time.Second

// Serve mounts apiRouter under /api on a unix socket at socketPath and blocks
// until ctx is done or the server fails.
func Serve(ctx context.Context, socketPath string, apiRouter chi.Router) error {
	if err := os.Remove(socketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove existing UNIX socket: %w", err)
	}

	socket, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("error while serving UNIX socket: %w", err)
	}
	defer os.Remove(socketPath)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Mount("/api", apiRouter)

	srv := &http.Server{
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		if e := srv.Serve(socket); e != nil && !errors.Is(e, http.ErrServerClosed) {
			errChan <- fmt.Errorf("failed to serve UNIX socket: %w", e)
		}
		close(errChan)
	}()
	log.Info().Str("path", socketPath).Msg("serving API on UNIX socket")

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err = srv.Shutdown(shutdownCtx)
	if errors.Is(err, context.DeadlineExceeded) {
		log.Warn().Msg("UNIX socket server shutdown timed out; some connections may not have closed cleanly")
		return nil
	}
	return err
}
