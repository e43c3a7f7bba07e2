// Package migrations embeds the promotion service's SQL schema.
package migrations

import "embed"

// FS holds the *.up.sql and *.down.sql files, applied in filename order.
//
//go:embed *.sql
var FS embed.FS
