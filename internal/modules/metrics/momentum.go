package metrics

import "github.com/aristath/renewals/pkg/formulas"

// MomentumLabel describes where growth is heading
type MomentumLabel string

const (
	MomentumAccelerating MomentumLabel = "accelerating"
	MomentumSteady       MomentumLabel = "steady"
	MomentumDecelerating MomentumLabel = "decelerating"
	MomentumUnknown      MomentumLabel = "unknown"
)

const (
	// DefaultMomentumPeriod is the EMA length applied to the growth series
	DefaultMomentumPeriod = 3
	// momentumTolerance is how far (in growth points) the latest growth may sit
	// from its EMA and still count as steady
	momentumTolerance = 0.5
)

// Momentum compares the latest growth rate with the EMA of the growth series
type Momentum struct {
	LatestGrowth *float64      `json:"latest_growth"`
	GrowthEMA    *float64      `json:"growth_ema"`
	Label        MomentumLabel `json:"label"`
}

// ComputeMomentum labels the growth trend of a derived history.
func ComputeMomentum(history []Derived, period int) Momentum {
	growth := make([]float64, 0, len(history))
	for _, d := range history {
		if d.GrowthRate != nil {
			growth = append(growth, *d.GrowthRate)
		}
	}
	if len(growth) == 0 {
		return Momentum{Label: MomentumUnknown}
	}

	latest := growth[len(growth)-1]
	ema := formulas.CalculateEMA(growth, period)
	m := Momentum{LatestGrowth: &latest, GrowthEMA: ema, Label: MomentumSteady}

	switch diff := latest - *ema; {
	case diff > momentumTolerance:
		m.Label = MomentumAccelerating
	case diff < -momentumTolerance:
		m.Label = MomentumDecelerating
	}
	return m
}
