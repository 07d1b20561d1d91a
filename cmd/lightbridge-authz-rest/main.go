// Command lightbridge-authz-rest serves the REST management plane: API key
// and ACL CRUD behind bearer-token authentication.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ADORSYS-GIS/lightbridge-authz/internal/app"
)

func main() {
	configPath := flag.String("config", "", "path to config YAML (overrides CONFIG_PATH)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	deps, err := app.Bootstrap(ctx, *configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer deps.Close()

	if deps.Config.Server.REST == nil {
		fmt.Fprintln(os.Stderr, "error: server.rest is not configured")
		os.Exit(1)
	}
	addr := deps.Config.Server.REST.Addr()
	srv := &http.Server{
		Addr:              addr,
		Handler:           app.NewRESTServer(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		deps.Logger.Info("rest server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		deps.Logger.Info("shutting down rest server")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			deps.Logger.Error("rest server shutdown", "error", err)
		}
	case err := <-errCh:
		deps.Logger.Error("rest server failed", "error", err)
		os.Exit(1)
	}
}
