package routes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

const shutdownGrace = 5 * time.Second

// Listen binds addr. Binding is separate from Serve so callers can learn the
// resolved address before requests arrive.
func Listen(addr string) (net.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return ln, nil
}

// Serve accepts connections on ln until ctx is cancelled, handling each one on
// its own goroutine. Cancellation closes the listener and gives in-flight
// requests a grace period to finish. An accept failure ends Serve with an
// error.
func Serve(ctx context.Context, ln net.Listener, handler http.Handler) error {
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errs := make(chan error, 1)
	go func() {
		errs <- srv.Serve(ln)
	}()

	select {
	case err := <-errs:
		return fmt.Errorf("endpoint stopped accepting connections: %w", err)
	case <-ctx.Done():
	}

	slog.Info("Shutting down endpoint")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.With(slog.Any("error", err)).Warn("Endpoint did not shut down cleanly")
	}
	if err := <-errs; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
