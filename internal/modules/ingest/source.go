// Package ingest loads entity batches from the data-provisioning sources and
// publishes them to the catalog store.
package ingest

import (
	"context"
	"fmt"
	"sort"

	"github.com/aristath/renewals/internal/domain"
	"github.com/aristath/renewals/internal/modules/catalog"
)

// Source delivers one complete batch per call
type Source interface {
	Name() string
	Load(ctx context.Context) (catalog.Batch, error)
}

// assembler groups flat period rows under their entities, keeping entity order
type assembler struct {
	order    []string
	entities map[string]*domain.Entity
}

func newAssembler() *assembler {
	return &assembler{entities: make(map[string]*domain.Entity)}
}

func (a *assembler) addEntity(e domain.Entity) error {
	if _, dup := a.entities[e.ID]; dup {
		return &domain.ValidationError{EntityID: e.ID, Reason: "duplicate identifier"}
	}
	a.order = append(a.order, e.ID)
	a.entities[e.ID] = &e
	return nil
}

func (a *assembler) addPeriod(entityID string, m domain.PeriodMetrics) error {
	e, ok := a.entities[entityID]
	if !ok {
		return &domain.ValidationError{EntityID: entityID, Period: m.Period, Reason: "period row for unknown entity"}
	}
	e.History = append(e.History, m)
	return nil
}

// batch returns the entities with each history sorted by period. Labels that do
// not parse keep their position; the catalog rejects them.
func (a *assembler) batch(source string) catalog.Batch {
	b := catalog.Batch{Source: source, Entities: make([]domain.Entity, 0, len(a.order))}
	for _, id := range a.order {
		e := a.entities[id]
		sort.SliceStable(e.History, func(i, j int) bool {
			pi, errI := domain.ParsePeriod(e.History[i].Period)
			pj, errJ := domain.ParsePeriod(e.History[j].Period)
			if errI != nil || errJ != nil {
				return false
			}
			return pi.Index() < pj.Index()
		})
		b.Entities = append(b.Entities, *e)
	}
	return b
}

func wrapSource(name string, err error) error {
	return fmt.Errorf("source %s: %w", name, err)
}
