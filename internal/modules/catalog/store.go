package catalog

import (
	"sync/atomic"

	"github.com/aristath/renewals/internal/domain"
	"github.com/rs/zerolog"
)

// Store publishes the active catalog. Readers call Current once per query and
// keep using that snapshot; Replace swaps the pointer, so a reader observes
// either the old batch or the new one in full.
type Store struct {
	current atomic.Pointer[Catalog]
	log     zerolog.Logger
}

// NewStore creates an empty store
func NewStore(log zerolog.Logger) *Store {
	return &Store{
		log: log.With().Str("component", "catalog_store").Logger(),
	}
}

// Current returns the active catalog
func (s *Store) Current() (*Catalog, error) {
	c := s.current.Load()
	if c == nil {
		return nil, domain.ErrNoCatalog
	}
	return c, nil
}

// Replace publishes c as the active catalog and returns the one it replaced
// (nil on first publish).
func (s *Store) Replace(c *Catalog) *Catalog {
	previous := s.current.Swap(c)

	event := s.log.Info().
		Str("version", c.Version()).
		Str("source", c.Source()).
		Int("entities", c.Len()).
		Str("latest_period", c.LatestPeriod())
	if previous != nil {
		event = event.Str("previous_version", previous.Version())
	}
	event.Msg("Catalog replaced")

	return previous
}

// Load builds a catalog from the batch and publishes it. A rejected batch
// leaves the active catalog untouched.
func (s *Store) Load(batch Batch) (*Catalog, error) {
	c, err := Build(batch)
	if err != nil {
		s.log.Warn().Err(err).Str("source", batch.Source).Msg("Batch rejected, keeping active catalog")
		return nil, err
	}
	s.Replace(c)
	return c, nil
}
