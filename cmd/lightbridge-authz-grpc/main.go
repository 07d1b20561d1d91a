// Command lightbridge-authz-grpc serves the Envoy ext_authz v3 Check RPC:
// the data-plane authorization decision engine.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	authv3 "github.com/envoyproxy/go-control-plane/envoy/service/auth/v3"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

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

	if deps.Config.Server.GRPC == nil {
		fmt.Fprintln(os.Stderr, "error: server.grpc is not configured")
		os.Exit(1)
	}
	addr := deps.Config.Server.GRPC.Addr()

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		deps.Logger.Error("listening", "addr", addr, "error", err)
		os.Exit(1)
	}

	grpcServer := grpc.NewServer()
	authv3.RegisterAuthorizationServer(grpcServer, app.NewAuthzServer(deps))

	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	go func() {
		<-ctx.Done()
		deps.Logger.Info("shutting down grpc server")
		grpcServer.GracefulStop()
	}()

	deps.Logger.Info("grpc server listening", "addr", addr)
	if err := grpcServer.Serve(lis); err != nil {
		deps.Logger.Error("grpc server failed", "error", err)
		os.Exit(1)
	}
}
