package migrations

import "embed"

// FS holds the embedded SQL migration files for the order service.
//
//go:embed *.sql
var FS embed.FS
