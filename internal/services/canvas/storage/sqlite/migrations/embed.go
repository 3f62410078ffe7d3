// Package migrations contains embedded SQLite migrations for canvas
// storage.
package migrations

import "embed"

// FS contains embedded SQLite migrations for canvas storage.
//
//go:embed *.sql
var FS embed.FS
