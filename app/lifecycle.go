package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/communityhub/platform/observability"
)

const (
	defaultShutdownTimeout = 10 * time.Second
	serverErrorMsg         = "server: %w"
)

// serve starts the HTTP server in a goroutine and returns its error channel.
func (a *App) serve() <-chan error {
	errCh := make(chan error, 1)

	go func() {
		err := a.server.Start()
		a.logger.Debug().Err(err).Msg("Server goroutine terminating")
		errCh <- err
		close(errCh)
	}()

	return errCh
}

// waitForShutdownOrServerError blocks until a signal arrives or the server stops on its own.
func (a *App) waitForShutdownOrServerError(serverErrCh <-chan error) (bool, error) {
	quit := make(chan os.Signal, 1)
	a.signalNotify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		a.logger.Info().Str("signal", sig.String()).Msg("Shutdown requested via signal")
		return true, nil
	case err, ok := <-serverErrCh:
		if !ok {
			return false, nil
		}
		return false, err
	}
}

// Run starts the admin server and blocks until a shutdown signal or a server failure,
// then shuts everything down within the configured shutdown timeout.
func (a *App) Run() error {
	serverErrCh := a.serve()

	shutdownRequested, serverErr := a.waitForShutdownOrServerError(serverErrCh)

	var errs []error
	if serverErr != nil && !errors.Is(serverErr, http.ErrServerClosed) {
		a.logger.Error().Err(serverErr).Msg("Server stopped unexpectedly")
		errs = append(errs, fmt.Errorf(serverErrorMsg, serverErr))
	}

	timeout := a.cfg.Server.Timeout.Shutdown
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := a.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}

	if shutdownRequested {
		if err := <-serverErrCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, fmt.Errorf(serverErrorMsg, err))
		}
	}

	return errors.Join(errs...)
}

// Shutdown stops the server, releases the registry, closes the store connection and
// flushes metrics. Every step runs even if an earlier one fails.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	start := time.Now()

	a.logger.Info().Msg("Shutting down cache service")

	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf(serverErrorMsg, err))
			a.logger.Error().Err(err).Msg("Failed to shutdown server")
		}
	}

	if a.registry != nil {
		a.registry.Close()
	}

	if a.conn != nil {
		if err := a.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store connection: %w", err))
			a.logger.Error().Err(err).Msg("Failed to close store connection")
		}
	}

	if a.metrics != nil {
		timeout := defaultShutdownTimeout
		if deadline, ok := ctx.Deadline(); ok {
			timeout = time.Until(deadline)
		}
		if err := observability.Shutdown(a.metrics, timeout); err != nil {
			errs = append(errs, err)
			a.logger.Error().Err(err).Msg("Failed to shutdown metrics")
		}
	}

	a.logger.Info().Dur("duration", time.Since(start)).Msg("Cache service shutdown complete")
	return errors.Join(errs...)
}
