package accounts

import (
	"embed"
	"fmt"
	"io/fs"
)

//go:embed data/sql/migrations
var migrationsFS embed.FS

// Migration dialect directories
const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

// GetMigrationsFS returns the migration files for this package
func GetMigrationsFS() embed.FS {
	return migrationsFS
}

// MigrationsFor returns the goose migrations for dialect rooted at its directory.
func MigrationsFor(dialect string) (fs.FS, error) {
	switch dialect {
	case DialectSQLite, DialectPostgres:
		return fs.Sub(migrationsFS, "data/sql/migrations/"+dialect)
	}
	return nil, fmt.Errorf("unsupported migrations dialect %q", dialect)
}
