package ingest

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aristath/renewals/internal/database"
	"github.com/aristath/renewals/internal/domain"
	"github.com/aristath/renewals/internal/modules/catalog"
	"github.com/rs/zerolog"
)

// Schema is the staging schema the provider populates
const Schema = `
CREATE TABLE IF NOT EXISTS entities (
	id TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	name TEXT NOT NULL,
	region TEXT NOT NULL DEFAULT '',
	size_class TEXT NOT NULL DEFAULT '',
	manager TEXT NOT NULL DEFAULT '',
	position INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS period_metrics (
	entity_id TEXT NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
	period TEXT NOT NULL,
	policy_count INTEGER NOT NULL,
	amount_due REAL NOT NULL,
	amount_collected REAL NOT NULL,
	PRIMARY KEY (entity_id, period)
);

CREATE INDEX IF NOT EXISTS idx_entities_position ON entities(position);
`

// SQLiteSource reads batches from the staging database
type SQLiteSource struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewSQLiteSource creates a source over an open connection
func NewSQLiteSource(db *sql.DB, log zerolog.Logger) *SQLiteSource {
	return &SQLiteSource{
		db:  db,
		log: log.With().Str("component", "sqlite_source").Logger(),
	}
}

// Name returns the source name
func (s *SQLiteSource) Name() string {
	return "sqlite"
}

// Load reads every entity and its periods in one read transaction
func (s *SQLiteSource) Load(ctx context.Context) (catalog.Batch, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return catalog.Batch{}, wrapSource(s.Name(), fmt.Errorf("failed to begin read: %w", err))
	}
	defer func() { _ = tx.Rollback() }()

	a := newAssembler()

	rows, err := tx.QueryContext(ctx, `
		SELECT id, kind, name, region, size_class, manager
		FROM entities
		ORDER BY position, id`)
	if err != nil {
		return catalog.Batch{}, wrapSource(s.Name(), fmt.Errorf("failed to query entities: %w", err))
	}
	for rows.Next() {
		var e domain.Entity
		var kind string
		if err := rows.Scan(&e.ID, &kind, &e.Name, &e.Region, &e.SizeClass, &e.Manager); err != nil {
			rows.Close()
			return catalog.Batch{}, wrapSource(s.Name(), fmt.Errorf("failed to scan entity: %w", err))
		}
		e.Kind = domain.EntityKind(kind)
		if err := a.addEntity(e); err != nil {
			rows.Close()
			return catalog.Batch{}, err
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return catalog.Batch{}, wrapSource(s.Name(), fmt.Errorf("error iterating entities: %w", err))
	}
	rows.Close()

	rows, err = tx.QueryContext(ctx, `
		SELECT entity_id, period, policy_count, amount_due, amount_collected
		FROM period_metrics
		ORDER BY entity_id, period`)
	if err != nil {
		return catalog.Batch{}, wrapSource(s.Name(), fmt.Errorf("failed to query period metrics: %w", err))
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var entityID string
		var m domain.PeriodMetrics
		if err := rows.Scan(&entityID, &m.Period, &m.PolicyCount, &m.AmountDue, &m.AmountCollected); err != nil {
			return catalog.Batch{}, wrapSource(s.Name(), fmt.Errorf("failed to scan period metrics: %w", err))
		}
		if err := a.addPeriod(entityID, m); err != nil {
			return catalog.Batch{}, err
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return catalog.Batch{}, wrapSource(s.Name(), fmt.Errorf("error iterating period metrics: %w", err))
	}

	s.log.Debug().Int("entities", len(a.order)).Int("periods", count).Msg("Loaded batch from staging database")
	return a.batch(s.Name()), nil
}

// EnsureSchema creates the staging tables if they do not exist
func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(Schema); err != nil {
		return fmt.Errorf("failed to create staging schema: %w", err)
	}
	return nil
}

// WriteBatch replaces the staging contents with batch in one transaction
func WriteBatch(db *sql.DB, batch catalog.Batch) error {
	return database.WithTransaction(db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM period_metrics`); err != nil {
			return fmt.Errorf("failed to clear period metrics: %w", err)
		}
		if _, err := tx.Exec(`DELETE FROM entities`); err != nil {
			return fmt.Errorf("failed to clear entities: %w", err)
		}

		entityStmt, err := tx.Prepare(`
			INSERT INTO entities (id, kind, name, region, size_class, manager, position)
			VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare entity insert: %w", err)
		}
		defer entityStmt.Close()

		periodStmt, err := tx.Prepare(`
			INSERT INTO period_metrics (entity_id, period, policy_count, amount_due, amount_collected)
			VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare period insert: %w", err)
		}
		defer periodStmt.Close()

		for i, e := range batch.Entities {
			if _, err := entityStmt.Exec(e.ID, string(e.Kind), e.Name, e.Region, e.SizeClass, e.Manager, i); err != nil {
				return fmt.Errorf("failed to insert entity %s: %w", e.ID, err)
			}
			for _, m := range e.History {
				if _, err := periodStmt.Exec(e.ID, m.Period, m.PolicyCount, m.AmountDue, m.AmountCollected); err != nil {
					return fmt.Errorf("failed to insert period %s/%s: %w", e.ID, m.Period, err)
				}
			}
		}
		return nil
	})
}
