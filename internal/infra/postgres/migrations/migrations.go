package migrations

import "github.com/uptrace/bun/migrate"

// Migrations holds every schema change; each file registers one step named after the file.
var Migrations = migrate.NewMigrations()
