// Package ranking orders and filters entities by their latest derived metrics.
package ranking

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aristath/renewals/internal/domain"
	"github.com/aristath/renewals/internal/modules/metrics"
)

// Direction is the sort order
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// ParseDirection accepts asc/desc (case-insensitive); empty means descending.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "desc", "descending":
		return Descending, nil
	case "asc", "ascending":
		return Ascending, nil
	}
	return "", fmt.Errorf("%w: unknown direction %q", domain.ErrInvalidQuery, s)
}

// Summary pairs an entity with the derived metrics of its latest period
type Summary struct {
	Entity *domain.Entity
	Latest metrics.Derived
}

// Summarize derives the latest period of each entity, keeping input order.
func Summarize(entities []*domain.Entity, policy metrics.RiskPolicy) []Summary {
	out := make([]Summary, 0, len(entities))
	for _, e := range entities {
		latest, _ := metrics.Latest(e, policy)
		out = append(out, Summary{Entity: e, Latest: latest})
	}
	return out
}

// Rank returns a sorted copy of summaries. Entities whose metric is undefined
// sort last in either direction; ties break by identifier ascending.
func Rank(summaries []Summary, key metrics.MetricKey, direction Direction) ([]Summary, error) {
	if _, err := metrics.ParseMetricKey(string(key)); err != nil {
		return nil, err
	}
	if direction != Ascending && direction != Descending {
		return nil, fmt.Errorf("%w: unknown direction %q", domain.ErrInvalidQuery, direction)
	}

	out := make([]Summary, len(summaries))
	copy(out, summaries)

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Latest.Value(key), out[j].Latest.Value(key)
		switch {
		case a == nil && b == nil:
			return out[i].Entity.ID < out[j].Entity.ID
		case a == nil:
			return false
		case b == nil:
			return true
		case *a != *b:
			if direction == Ascending {
				return *a < *b
			}
			return *a > *b
		}
		return out[i].Entity.ID < out[j].Entity.ID
	})
	return out, nil
}

// Position returns the 1-based rank of id within summaries and the total count.
func Position(summaries []Summary, id string, key metrics.MetricKey, direction Direction) (int, int, error) {
	ranked, err := Rank(summaries, key, direction)
	if err != nil {
		return 0, 0, err
	}
	for i, s := range ranked {
		if s.Entity.ID == id {
			return i + 1, len(ranked), nil
		}
	}
	return 0, len(ranked), fmt.Errorf("%w: %s", domain.ErrNotFound, id)
}

// FormatPosition renders a position the way the detail panel shows it ("#3 of 7").
func FormatPosition(position, total int) string {
	return fmt.Sprintf("#%d of %d", position, total)
}
