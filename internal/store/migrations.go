package store

import "embed"

// PostgresMigrations holds the versioned schema of the Postgres backend as
// migrations/<version>_<name>.<up|down>.sql. cmd/migrate applies them;
// OpenPostgres only checks that they ran.
//
//go:embed migrations/*.sql
var PostgresMigrations embed.FS
