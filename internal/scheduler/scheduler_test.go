package scheduler

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	testingpkg "github.com/aristath/renewals/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	runs atomic.Int32
	err  error
}

func (j *countingJob) Name() string { return "counting" }

func (j *countingJob) Run() error {
	j.runs.Add(1)
	return j.err
}

func TestScheduler_AddJob(t *testing.T) {
	s := New(zerolog.Nop())

	require.NoError(t, s.AddJob("@every 15m", &countingJob{}))
	require.NoError(t, s.AddJob("0 */5 * * * *", &countingJob{}))
	assert.Equal(t, 2, s.Len())

	assert.Error(t, s.AddJob("not a schedule", &countingJob{}))
	assert.Equal(t, 2, s.Len())
}

func TestScheduler_RunsScheduledJobs(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{err: errors.New("failing jobs keep their schedule")}
	require.NoError(t, s.AddJob("@every 1s", job))

	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool { return job.runs.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
}

func TestScheduler_RunNow(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{}

	require.NoError(t, s.RunNow(job))
	assert.Equal(t, int32(1), job.runs.Load())

	job.err = errors.New("boom")
	assert.EqualError(t, s.RunNow(job), "boom")
}

func TestCheckStagingDatabaseJob(t *testing.T) {
	db := testingpkg.NewTestDB(t, "staging")
	job := NewCheckStagingDatabaseJob(db, zerolog.Nop())

	assert.Equal(t, "check_staging_database", job.Name())
	assert.NoError(t, job.Run())

	assert.NoError(t, NewCheckStagingDatabaseJob(nil, zerolog.Nop()).Run())
}
