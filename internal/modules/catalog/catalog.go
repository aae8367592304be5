// Package catalog builds and publishes immutable entity catalogs.
//
// A catalog is constructed once per ingestion batch. Build either accepts the whole
// batch or rejects it with a *domain.ValidationError; there is no partial catalog.
package catalog

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/aristath/renewals/internal/domain"
	"github.com/google/uuid"
)

// Batch is one delivery from a data-provisioning source
type Batch struct {
	Source   string          `json:"source" msgpack:"source"`
	Entities []domain.Entity `json:"entities" msgpack:"entities"`
}

// Catalog is an immutable snapshot of entities and their period history
type Catalog struct {
	version  string
	source   string
	loadedAt time.Time
	entities []*domain.Entity
	index    map[string]int
	latest   domain.Period
}

// Build validates a batch and constructs a catalog from it.
// Period labels are normalized to YYYY-MM; the input batch is not modified.
func Build(batch Batch) (*Catalog, error) {
	if len(batch.Entities) == 0 {
		return nil, &domain.ValidationError{Reason: "batch contains no entities"}
	}

	c := &Catalog{
		version:  uuid.New().String(),
		source:   batch.Source,
		loadedAt: time.Now().UTC(),
		entities: make([]*domain.Entity, 0, len(batch.Entities)),
		index:    make(map[string]int, len(batch.Entities)),
	}

	for _, raw := range batch.Entities {
		entity, last, err := normalize(raw)
		if err != nil {
			return nil, err
		}
		if _, dup := c.index[entity.ID]; dup {
			return nil, &domain.ValidationError{EntityID: entity.ID, Reason: "duplicate identifier"}
		}
		c.index[entity.ID] = len(c.entities)
		c.entities = append(c.entities, entity)
		if last.Index() > c.latest.Index() {
			c.latest = last
		}
	}

	return c, nil
}

// normalize validates one entity and returns a private copy with canonical labels.
func normalize(raw domain.Entity) (*domain.Entity, domain.Period, error) {
	e := raw.Clone()
	e.ID = strings.TrimSpace(e.ID)

	if e.ID == "" {
		return nil, domain.Period{}, &domain.ValidationError{Reason: fmt.Sprintf("entity %q has an empty identifier", e.Name)}
	}
	if !e.Kind.Valid() {
		return nil, domain.Period{}, &domain.ValidationError{EntityID: e.ID, Reason: fmt.Sprintf("unknown kind %q", e.Kind)}
	}
	if len(e.History) == 0 {
		return nil, domain.Period{}, &domain.ValidationError{EntityID: e.ID, Reason: "no period history"}
	}

	var prev domain.Period
	for i := range e.History {
		m := &e.History[i]
		p, err := domain.ParsePeriod(m.Period)
		if err != nil {
			return nil, domain.Period{}, &domain.ValidationError{EntityID: e.ID, Period: m.Period, Reason: err.Error()}
		}
		if i > 0 {
			switch {
			case p.Index() <= prev.Index():
				return nil, domain.Period{}, &domain.ValidationError{EntityID: e.ID, Period: m.Period, Reason: "periods are not in chronological order"}
			case p.Index() != prev.Index()+1:
				return nil, domain.Period{}, &domain.ValidationError{EntityID: e.ID, Period: m.Period, Reason: fmt.Sprintf("gap after %s", prev)}
			}
		}
		if m.PolicyCount < 0 {
			return nil, domain.Period{}, &domain.ValidationError{EntityID: e.ID, Period: m.Period, Reason: "negative policy count"}
		}
		if !isFinite(m.AmountDue) || !isFinite(m.AmountCollected) {
			return nil, domain.Period{}, &domain.ValidationError{EntityID: e.ID, Period: m.Period, Reason: "non-finite amount"}
		}
		if m.AmountDue < 0 || m.AmountCollected < 0 {
			return nil, domain.Period{}, &domain.ValidationError{EntityID: e.ID, Period: m.Period, Reason: "negative amount"}
		}
		m.Period = p.String()
		prev = p
	}

	return &e, prev, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Version identifies this batch; it changes on every Build.
func (c *Catalog) Version() string { return c.version }

// Source names the provider the batch came from
func (c *Catalog) Source() string { return c.source }

// LoadedAt is when the catalog was built
func (c *Catalog) LoadedAt() time.Time { return c.loadedAt }

// Len returns the number of entities
func (c *Catalog) Len() int { return len(c.entities) }

// LatestPeriod is the most recent period label across all entities
func (c *Catalog) LatestPeriod() string { return c.latest.String() }

// Entities returns the entities in insertion order. The slice is a copy; the
// entities themselves are shared and must not be modified.
func (c *Catalog) Entities() []*domain.Entity {
	out := make([]*domain.Entity, len(c.entities))
	copy(out, c.entities)
	return out
}

// OfKind returns the entities of one kind in insertion order. An empty kind
// returns every entity.
func (c *Catalog) OfKind(kind domain.EntityKind) []*domain.Entity {
	if kind == "" {
		return c.Entities()
	}
	var out []*domain.Entity
	for _, e := range c.entities {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// Get looks up an entity by identifier
func (c *Catalog) Get(id string) (*domain.Entity, error) {
	i, ok := c.index[strings.TrimSpace(id)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	return c.entities[i], nil
}
