package catalog_test

import (
	"sync"
	"testing"

	"github.com/aristath/renewals/internal/domain"
	"github.com/aristath/renewals/internal/modules/catalog"
	testingpkg "github.com/aristath/renewals/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_CurrentBeforeLoad(t *testing.T) {
	store := catalog.NewStore(zerolog.Nop())

	c, err := store.Current()
	assert.Nil(t, c)
	assert.ErrorIs(t, err, domain.ErrNoCatalog)
}

func TestStore_LoadAndReplace(t *testing.T) {
	store := catalog.NewStore(zerolog.Nop())

	first, err := store.Load(testingpkg.NewBranchBatch())
	require.NoError(t, err)

	current, err := store.Current()
	require.NoError(t, err)
	assert.Same(t, first, current)

	second, err := catalog.Build(testingpkg.NewBranchBatch())
	require.NoError(t, err)
	previous := store.Replace(second)
	assert.Same(t, first, previous)

	current, err = store.Current()
	require.NoError(t, err)
	assert.Equal(t, second.Version(), current.Version())
}

func TestStore_RejectedBatchKeepsActiveCatalog(t *testing.T) {
	store := catalog.NewStore(zerolog.Nop())
	active, err := store.Load(testingpkg.NewBranchBatch())
	require.NoError(t, err)

	bad := testingpkg.NewBranchBatch()
	bad.Entities[2].History[1].PolicyCount = -5

	c, err := store.Load(bad)
	assert.Nil(t, c)
	assert.ErrorIs(t, err, domain.ErrValidation)

	current, err := store.Current()
	require.NoError(t, err)
	assert.Equal(t, active.Version(), current.Version())
}

// Readers swapping between two batches must always see a catalog whose
// entities all come from one of them.
func TestStore_ConcurrentReadsNeverMixBatches(t *testing.T) {
	store := catalog.NewStore(zerolog.Nop())

	branches := testingpkg.NewBranchBatch()
	trend := catalog.Batch{Source: "trend", Entities: []domain.Entity{testingpkg.NewTrendFixture(), testingpkg.NewAprSepFixture()}}

	a, err := catalog.Build(branches)
	require.NoError(t, err)
	b, err := catalog.Build(trend)
	require.NoError(t, err)
	store.Replace(a)

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			if i%2 == 0 {
				store.Replace(b)
			} else {
				store.Replace(a)
			}
		}
		close(stop)
	}()

	errs := make(chan string, 8)
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				c, err := store.Current()
				if err != nil {
					errs <- err.Error()
					return
				}
				want := a
				if c.Version() == b.Version() {
					want = b
				}
				entities := c.Entities()
				if len(entities) != want.Len() {
					errs <- "entity count does not match batch"
					return
				}
				for _, e := range entities {
					got, err := want.Get(e.ID)
					if err != nil || got != e {
						errs <- "entity " + e.ID + " from another batch"
						return
					}
				}
			}
		}()
	}

	wg.Wait()
	close(errs)
	for msg := range errs {
		t.Error(msg)
	}
}
