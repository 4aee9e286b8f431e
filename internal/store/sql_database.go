package store

import (
	"database/sql"

	"github.com/MKhiriev/go-life-tracker/internal/logger"
	"github.com/MKhiriev/go-life-tracker/migrations"
)

// DB wraps the raw database handle together with the application logger.
// Repositories embed it to inherit the full database/sql API.
type DB struct {
	*sql.DB
	logger *logger.Logger
}

// Migrate brings the schema of the wrapped database up to date.
func (db *DB) Migrate() error {
	return migrations.Migrate(db.DB)
}
