package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aristath/renewals/internal/modules/catalog"
	"github.com/rs/zerolog"
)

// DefaultLoadTimeout bounds one scheduled reload
const DefaultLoadTimeout = 2 * time.Minute

// Loader pulls a batch from the primary source and publishes it. Accepted
// batches are written to the snapshot store when one is configured. Loads are
// serialized so the snapshot on disk always matches the published catalog.
type Loader struct {
	mu       sync.Mutex
	source   Source
	snapshot *SnapshotStore
	store    *catalog.Store
	timeout  time.Duration
	log      zerolog.Logger
}

// NewLoader creates a loader. snapshot may be nil.
func NewLoader(source Source, snapshot *SnapshotStore, store *catalog.Store, log zerolog.Logger) *Loader {
	return &Loader{
		source:   source,
		snapshot: snapshot,
		store:    store,
		timeout:  DefaultLoadTimeout,
		log:      log.With().Str("component", "loader").Logger(),
	}
}

// Name returns the job name
func (l *Loader) Name() string {
	return "catalog_reload"
}

// Run reloads with the default timeout; it is the scheduler entry point.
func (l *Loader) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()

	_, err := l.Reload(ctx)
	return err
}

// Reload loads the primary source and publishes the batch. A failed load or a
// rejected batch leaves the active catalog in place.
func (l *Loader) Reload(ctx context.Context) (*catalog.Catalog, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.reload(ctx)
}

func (l *Loader) reload(ctx context.Context) (*catalog.Catalog, error) {
	start := time.Now()

	batch, err := l.source.Load(ctx)
	if err != nil {
		l.log.Error().Err(err).Str("source", l.source.Name()).Msg("Failed to load batch")
		return nil, fmt.Errorf("failed to load batch: %w", err)
	}

	c, err := l.store.Load(batch)
	if err != nil {
		return nil, fmt.Errorf("batch from %s rejected: %w", l.source.Name(), err)
	}

	if l.snapshot != nil {
		if err := l.snapshot.Save(batch); err != nil {
			l.log.Warn().Err(err).Msg("Failed to save snapshot")
		}
	}

	l.log.Info().
		Str("source", l.source.Name()).
		Str("version", c.Version()).
		Int("entities", c.Len()).
		Dur("duration", time.Since(start)).
		Msg("Catalog reloaded")
	return c, nil
}

// Bootstrap loads the initial catalog. When the primary source fails the last
// snapshot is used instead; an error is returned only if neither yields a catalog.
func (l *Loader) Bootstrap(ctx context.Context) (*catalog.Catalog, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, primaryErr := l.reload(ctx)
	if primaryErr == nil {
		return c, nil
	}
	if l.snapshot == nil {
		return nil, primaryErr
	}

	l.log.Warn().Err(primaryErr).Str("path", l.snapshot.Path()).Msg("Primary source failed, falling back to snapshot")

	batch, err := l.snapshot.Load(ctx)
	if err != nil {
		if errors.Is(err, ErrNoSnapshot) {
			return nil, primaryErr
		}
		return nil, errors.Join(primaryErr, fmt.Errorf("snapshot fallback: %w", err))
	}

	c, err = l.store.Load(batch)
	if err != nil {
		return nil, errors.Join(primaryErr, fmt.Errorf("snapshot rejected: %w", err))
	}
	l.log.Info().Str("version", c.Version()).Int("entities", c.Len()).Msg("Catalog restored from snapshot")
	return c, nil
}
