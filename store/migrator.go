package store

import (
	"context"
	"embed"
	"fmt"
	"log/slog"

	"github.com/pkg/errors"
)

// Fresh installations are initialized from the full schema file for the
// active driver: store/migration/{driver}/LATEST.sql. Already-initialized
// databases are left untouched.

//go:embed migration
var migrationFS embed.FS

// Migrate initializes the database schema when needed.
func (s *Store) Migrate(ctx context.Context) error {
	initialized, err := s.driver.IsInitialized(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to check database initialization")
	}
	if initialized {
		return nil
	}

	schemaPath := fmt.Sprintf("migration/%s/LATEST.sql", s.profile.Driver)
	schema, err := migrationFS.ReadFile(schemaPath)
	if err != nil {
		return errors.Wrapf(err, "failed to read schema file %s", schemaPath)
	}

	if _, err := s.driver.GetDB().ExecContext(ctx, string(schema)); err != nil {
		return errors.Wrap(err, "failed to apply schema")
	}

	slog.Info("database initialized", "driver", s.profile.Driver)
	return nil
}
