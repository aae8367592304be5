package peers

import (
	"sync"
	"time"

	"github.com/aristath/renewals/internal/modules/catalog"
	"github.com/rs/zerolog"
)

// Resolver memoizes FindPeer per catalog version. Entries of older versions
// are dropped the first time a newer catalog is queried.
type Resolver struct {
	mu       sync.RWMutex
	version  string
	loadedAt time.Time
	memo     map[string]result
	log      zerolog.Logger
}

type result struct {
	match Match
	err   error
}

// NewResolver creates an empty resolver
func NewResolver(log zerolog.Logger) *Resolver {
	return &Resolver{
		memo: make(map[string]result),
		log:  log.With().Str("component", "peer_resolver").Logger(),
	}
}

// Resolve returns the peer of the entity identified by id in c.
func (r *Resolver) Resolve(c *catalog.Catalog, id string) (Match, error) {
	r.mu.RLock()
	if r.version == c.Version() {
		if res, ok := r.memo[id]; ok {
			r.mu.RUnlock()
			return res.match, res.err
		}
	}
	r.mu.RUnlock()

	entity, err := c.Get(id)
	if err != nil {
		return Match{}, err
	}
	match, err := FindPeer(entity, c)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.version != c.Version() {
		// A reader still holding an older catalog must not evict the newer memo
		if r.version != "" && c.LoadedAt().Before(r.loadedAt) {
			return match, err
		}
		r.log.Debug().
			Str("version", c.Version()).
			Int("evicted", len(r.memo)).
			Msg("Catalog changed, resetting peer memo")
		r.version = c.Version()
		r.memo = make(map[string]result)
		r.loadedAt = c.LoadedAt()
	}
	r.memo[id] = result{match: match, err: err}
	return match, err
}

// Len returns the number of memoized entries
func (r *Resolver) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.memo)
}
