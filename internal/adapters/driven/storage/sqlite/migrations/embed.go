// Package migrations holds the SQLite schema as numbered NNN_name.up.sql
// scripts with matching .down.sql scripts for manual rollback.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
