// Package trends aggregates derived history into seasonal profiles and projects
// short-horizon forecasts. Nothing here keeps state between calls.
package trends

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aristath/renewals/internal/domain"
	"github.com/aristath/renewals/internal/modules/metrics"
	"github.com/aristath/renewals/pkg/formulas"
)

// SeasonKey selects how periods are bucketed
type SeasonKey string

const (
	SeasonQuarter SeasonKey = "quarter"
	SeasonMonth   SeasonKey = "month"
)

// ParseSeasonKey validates a season key; empty means quarter.
func ParseSeasonKey(s string) (SeasonKey, error) {
	switch SeasonKey(strings.ToLower(strings.TrimSpace(s))) {
	case "", SeasonQuarter:
		return SeasonQuarter, nil
	case SeasonMonth:
		return SeasonMonth, nil
	}
	return "", fmt.Errorf("%w: unknown season key %q", domain.ErrInvalidQuery, s)
}

// Bucket returns the seasonal bucket label of a period ("Q3" or "08").
func (k SeasonKey) Bucket(p domain.Period) string {
	if k == SeasonMonth {
		return fmt.Sprintf("%02d", int(p.Month))
	}
	return fmt.Sprintf("Q%d", p.Quarter())
}

// Bucket aggregates the collection rates of one season across all years.
type Bucket struct {
	Key        string  `json:"key"`
	Count      int     `json:"count"`
	MeanRate   float64 `json:"mean_rate"`
	Volatility float64 `json:"volatility"`
}

// Seasonal groups periods with a defined collection rate by season. Buckets
// without observations are omitted. The result is sorted by bucket key.
func Seasonal(history []metrics.Derived, key SeasonKey) ([]Bucket, error) {
	rates := make(map[string][]float64)
	for _, d := range history {
		if d.CollectionRate == nil {
			continue
		}
		p, err := domain.ParsePeriod(d.Period)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidQuery, err)
		}
		bucket := key.Bucket(p)
		rates[bucket] = append(rates[bucket], *d.CollectionRate)
	}

	buckets := make([]Bucket, 0, len(rates))
	for k, values := range rates {
		buckets = append(buckets, Bucket{
			Key:        k,
			Count:      len(values),
			MeanRate:   formulas.Mean(values),
			Volatility: formulas.PopStdDev(values),
		})
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Key < buckets[j].Key })
	return buckets, nil
}
