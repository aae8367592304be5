package metrics

import "github.com/aristath/renewals/pkg/formulas"

// RiskScale is the upper bound of the risk score
const RiskScale = 50.0

// RiskPolicy holds the tunable weights and normalization ranges of the risk score.
//
//	risk = 50 * (1 - RateWeight*rate_n - GrowthWeight*growth_n + VolatilityWeight*vol_n)
//
// clamped to [0, 50], where
//
//	rate_n   = clamp((rate - RateFloor) / (100 - RateFloor), 0, 1)
//	growth_n = clamp((growth + GrowthSpan) / (2 * GrowthSpan), 0, 1)
//	vol_n    = clamp(volatility / VolatilityCeiling, 0, 1)
type RiskPolicy struct {
	RateWeight        float64
	GrowthWeight      float64
	VolatilityWeight  float64
	RateFloor         float64
	GrowthSpan        float64
	VolatilityCeiling float64
}

// DefaultRiskPolicy returns the weights used when nothing is configured
func DefaultRiskPolicy() RiskPolicy {
	return RiskPolicy{
		RateWeight:        0.4,
		GrowthWeight:      0.3,
		VolatilityWeight:  0.3,
		RateFloor:         80,
		GrowthSpan:        10,
		VolatilityCeiling: 10,
	}
}

// Score computes the risk score. A nil rate yields nil. A nil growth counts as
// neutral and a nil volatility as zero spread.
func (p RiskPolicy) Score(rate, growth, volatility *float64) *float64 {
	if rate == nil {
		return nil
	}

	rateN := normalize(*rate-p.RateFloor, 100-p.RateFloor)

	growthN := 0.5
	if growth != nil {
		growthN = normalize(*growth+p.GrowthSpan, 2*p.GrowthSpan)
	}

	volN := 0.0
	if volatility != nil {
		volN = normalize(*volatility, p.VolatilityCeiling)
	}

	score := RiskScale * (1 - p.RateWeight*rateN - p.GrowthWeight*growthN + p.VolatilityWeight*volN)
	score = formulas.Clamp(score, 0, RiskScale)
	return &score
}

func normalize(v, span float64) float64 {
	if span <= 0 {
		if v > 0 {
			return 1
		}
		return 0
	}
	return formulas.Clamp(v/span, 0, 1)
}

// RiskBand groups risk scores for display
type RiskBand string

const (
	BandLow     RiskBand = "low"
	BandMedium  RiskBand = "medium"
	BandHigh    RiskBand = "high"
	BandUnknown RiskBand = "unknown"
)

// Band thresholds, inclusive upper bounds
const (
	LowRiskMax    = 20.0
	MediumRiskMax = 35.0
)

// BandOf classifies a risk score. Entities in the high band count as concerning.
func BandOf(score *float64) RiskBand {
	switch {
	case score == nil:
		return BandUnknown
	case *score <= LowRiskMax:
		return BandLow
	case *score <= MediumRiskMax:
		return BandMedium
	default:
		return BandHigh
	}
}
