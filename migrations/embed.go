// Package migrations embeds the SQL migration scripts applied at startup.
package migrations

import "embed"

// FS holds all migration scripts. Files are named
// YYYYMMDD_HHMMSS_description.{up,down}.sql and applied in lexical order.
//
//go:embed *.sql
var FS embed.FS
