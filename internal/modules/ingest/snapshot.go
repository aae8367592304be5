package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aristath/renewals/internal/modules/catalog"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// snapshotFormat is bumped whenever the encoded layout changes
const snapshotFormat = 1

// ErrNoSnapshot is returned when no snapshot has been written yet
var ErrNoSnapshot = errors.New("no snapshot available")

type snapshotFile struct {
	Format  int           `msgpack:"format"`
	SavedAt time.Time     `msgpack:"saved_at"`
	Batch   catalog.Batch `msgpack:"batch"`
}

// SnapshotStore keeps the last accepted batch on disk so the service can start
// with data when the primary source is unavailable.
type SnapshotStore struct {
	path string
	log  zerolog.Logger
}

// NewSnapshotStore creates a snapshot store writing to path
func NewSnapshotStore(path string, log zerolog.Logger) *SnapshotStore {
	return &SnapshotStore{
		path: path,
		log:  log.With().Str("component", "snapshot_store").Logger(),
	}
}

// Name returns the source name
func (s *SnapshotStore) Name() string {
	return "snapshot"
}

// Path returns the snapshot file path
func (s *SnapshotStore) Path() string {
	return s.path
}

// Save writes batch atomically (temp file + rename)
func (s *SnapshotStore) Save(batch catalog.Batch) error {
	data, err := msgpack.Marshal(&snapshotFile{
		Format:  snapshotFormat,
		SavedAt: time.Now().UTC(),
		Batch:   batch,
	})
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create snapshot temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}

	s.log.Debug().Str("path", s.path).Int("entities", len(batch.Entities)).Int("bytes", len(data)).Msg("Snapshot saved")
	return nil
}

// Load reads the last saved batch. The batch keeps the name of the source it
// originally came from.
func (s *SnapshotStore) Load(ctx context.Context) (catalog.Batch, error) {
	if err := ctx.Err(); err != nil {
		return catalog.Batch{}, err
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return catalog.Batch{}, ErrNoSnapshot
	}
	if err != nil {
		return catalog.Batch{}, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snap snapshotFile
	if err := msgpack.Unmarshal(data, &snap); err != nil {
		return catalog.Batch{}, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if snap.Format != snapshotFormat {
		return catalog.Batch{}, fmt.Errorf("unsupported snapshot format %d", snap.Format)
	}

	s.log.Debug().Time("saved_at", snap.SavedAt).Int("entities", len(snap.Batch.Entities)).Msg("Snapshot loaded")
	return snap.Batch, nil
}
