package store

import (
	"time"

	"github.com/openslate/docshare/internal/profile"
	"github.com/openslate/docshare/store/cache"
)

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver

	// embeddingCache keeps hot document embeddings in memory; detection
	// reads the source embedding on every run.
	embeddingCache *cache.Cache
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
		embeddingCache: cache.New(cache.Config{
			DefaultTTL:      10 * time.Minute,
			CleanupInterval: 5 * time.Minute,
			MaxItems:        1000,
		}),
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	s.embeddingCache.Close()
	return s.driver.Close()
}
