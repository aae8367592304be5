// Package opportunities quantifies what an entity would collect if it matched
// a peer's collection rate or a fixed target.
package opportunities

import (
	"fmt"
	"math"

	"github.com/aristath/renewals/internal/domain"
	"github.com/aristath/renewals/internal/modules/metrics"
)

// DefaultTargetRate is the benchmark collection rate of the legacy dashboard
const DefaultTargetRate = 96.8

// Gap is the distance between an entity and a benchmark at their latest periods.
// PerformanceGapPct is positive when the entity underperforms. When either rate
// is undefined, PerformanceGapPct and OpportunityAmount are nil and MissingRate is set.
type Gap struct {
	BenchmarkRate     *float64 `json:"benchmark_rate"`
	EntityRate        *float64 `json:"entity_rate"`
	PerformanceGapPct *float64 `json:"performance_gap_pct"`
	PolicyVolumeGap   *int64   `json:"policy_volume_gap,omitempty"`
	OpportunityAmount *float64 `json:"opportunity_amount"`
	MissingRate       bool     `json:"missing_rate"`
}

// Compare computes the gap between an entity and its peer. The error is
// domain.ErrMissingRate (wrapped) when a rate is undefined; the returned Gap is
// still populated with everything that could be computed.
func Compare(entity, peer metrics.Derived) (Gap, error) {
	volume := peer.PolicyCount - entity.PolicyCount
	gap := compute(entity, peer.CollectionRate)
	gap.PolicyVolumeGap = &volume
	if gap.MissingRate {
		return gap, fmt.Errorf("peer comparison: %w", domain.ErrMissingRate)
	}
	return gap, nil
}

// AgainstTarget computes the gap between an entity and a fixed target rate.
func AgainstTarget(entity metrics.Derived, targetRate float64) (Gap, error) {
	gap := compute(entity, &targetRate)
	if gap.MissingRate {
		return gap, fmt.Errorf("target comparison: %w", domain.ErrMissingRate)
	}
	return gap, nil
}

func compute(entity metrics.Derived, benchmark *float64) Gap {
	gap := Gap{BenchmarkRate: benchmark, EntityRate: entity.CollectionRate}
	if entity.CollectionRate == nil || benchmark == nil {
		gap.MissingRate = true
		return gap
	}

	diff := *benchmark - *entity.CollectionRate
	opportunity := math.Max(0, diff/100) * entity.AmountDue
	gap.PerformanceGapPct = &diff
	gap.OpportunityAmount = &opportunity
	return gap
}
