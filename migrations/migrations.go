// Package migrations embeds the SQL migration set applied at process start
// by every binary in this module (see internal/platform.RunMigrations).
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS

// Dir is the root iofs.New is pointed at; the embedded files live at the
// package root rather than a nested directory.
const Dir = "."
