package db

import (
	"github.com/pkg/errors"

	"github.com/openslate/docshare/internal/profile"
	"github.com/openslate/docshare/store"
	"github.com/openslate/docshare/store/db/postgres"
	"github.com/openslate/docshare/store/db/sqlite"
)

// NewDBDriver creates a new db driver based on profile.
//
// PostgreSQL is the production database; embeddings are stored with pgvector.
// SQLite is supported for development and testing, storing embeddings as JSON
// text since all similarity math runs in Go.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	var driver store.Driver
	var err error

	switch profile.Driver {
	case "sqlite":
		driver, err = sqlite.NewDB(profile)
	case "postgres":
		driver, err = postgres.NewDB(profile)
	default:
		return nil, errors.Errorf("unknown db driver %q: only 'postgres' and 'sqlite' are supported", profile.Driver)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to create db driver")
	}
	return driver, nil
}
