// Package migrations embeds the PostgreSQL schema so the server and the
// migrate tool can apply it without a checkout on disk.
package migrations

import "embed"

// FS holds every NNNNNN_name.{up,down}.sql file
//
//go:embed *.sql
var FS embed.FS
