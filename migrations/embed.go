package migrations

import "embed"

// FS holds the goose SQL migrations compiled into cmd/migrate.
//
//go:embed *.sql
var FS embed.FS
