// Command lightbridge-authz-migrate applies the embedded schema migrations
// to the configured database and exits. Useful for running migrations as a
// discrete CI/deploy step ahead of starting the rest/grpc servers, which also
// apply migrations on boot as a safety net.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/ADORSYS-GIS/lightbridge-authz/internal/config"
	"github.com/ADORSYS-GIS/lightbridge-authz/internal/platform"
	"github.com/ADORSYS-GIS/lightbridge-authz/migrations"
)

func main() {
	configPath := flag.String("config", "", "path to config YAML (overrides CONFIG_PATH)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: loading config: %v\n", err)
		os.Exit(1)
	}

	if err := platform.RunMigrations(cfg.Database.URL, migrations.FS, migrations.Dir); err != nil {
		fmt.Fprintf(os.Stderr, "error: running migrations: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("migrations applied")
}
