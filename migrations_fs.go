package cloudlib

import (
	"embed"
	"io/fs"
)

// migrationsFS holds the activity ledger migrations. Postgres files live at
// the root, sqlite alternatives under data/sql/migrations/sqlite.
//
//go:embed data/sql/migrations/*.sql data/sql/migrations/sqlite/*.sql
var migrationsFS embed.FS

func GetMigrationsFS() fs.FS {
	return migrationsFS
}
