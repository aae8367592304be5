package scheduler

import (
	"database/sql"
	"fmt"

	"github.com/aristath/renewals/internal/database"
	"github.com/rs/zerolog"
)

// CheckStagingDatabaseJob verifies integrity of the staging SQLite database
type CheckStagingDatabaseJob struct {
	log zerolog.Logger
	db  *database.DB
}

// NewCheckStagingDatabaseJob creates a new CheckStagingDatabaseJob
func NewCheckStagingDatabaseJob(db *database.DB, log zerolog.Logger) *CheckStagingDatabaseJob {
	return &CheckStagingDatabaseJob{
		log: log.With().Str("job", "check_staging_database").Logger(),
		db:  db,
	}
}

// Name returns the job name
func (j *CheckStagingDatabaseJob) Name() string {
	return "check_staging_database"
}

// Run executes the integrity check
func (j *CheckStagingDatabaseJob) Run() error {
	if j.db == nil {
		j.log.Warn().Msg("Database not initialized, skipping")
		return nil
	}

	if err := checkDatabaseIntegrity(j.db.Conn()); err != nil {
		j.log.Error().
			Err(err).
			Str("database", j.db.Name()).
			Msg("Staging database integrity check failed")
		return fmt.Errorf("database %s is corrupted: %w", j.db.Name(), err)
	}

	j.log.Debug().Str("database", j.db.Name()).Msg("Database integrity OK")
	return nil
}

// checkDatabaseIntegrity runs SQLite's PRAGMA integrity_check
func checkDatabaseIntegrity(db *sql.DB) error {
	var result string
	err := db.QueryRow("PRAGMA integrity_check").Scan(&result)
	if err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}

	if result != "ok" {
		return fmt.Errorf("integrity check returned: %s", result)
	}

	return nil
}
