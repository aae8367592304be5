// Package metrics derives collection rate, growth, productivity, volatility and
// risk from raw period counters. Every function here is pure; a value that
// cannot be computed is returned as nil rather than as an error or a zero.
package metrics

import (
	"github.com/aristath/renewals/internal/domain"
	"github.com/aristath/renewals/pkg/formulas"
)

const (
	// MaxCollectionRate bounds the reported rate; raw ratios above it are anomalies
	MaxCollectionRate = 150.0
)

// Derived is one period of an entity with its derived metrics
type Derived struct {
	Period          string   `json:"period"`
	PolicyCount     int64    `json:"policy_count"`
	AmountDue       float64  `json:"amount_due"`
	AmountCollected float64  `json:"amount_collected"`
	CollectionRate  *float64 `json:"collection_rate"`
	GrowthRate      *float64 `json:"growth_rate"`
	RiskScore       *float64 `json:"risk_score"`
	Productivity    *float64 `json:"productivity"`
	Volatility      *float64 `json:"volatility"`
	Anomaly         bool     `json:"anomaly"`
}

// CollectionRate returns collected/due*100 clamped to [0, 150], or nil when
// nothing was due. anomaly reports a raw ratio above 150%.
func CollectionRate(m domain.PeriodMetrics) (rate *float64, anomaly bool) {
	if m.AmountDue == 0 {
		return nil, false
	}
	raw := m.AmountCollected / m.AmountDue * 100
	clamped := formulas.Clamp(raw, 0, MaxCollectionRate)
	return &clamped, raw > MaxCollectionRate
}

// GrowthRate returns the percent change in collected amount against the
// previous period, or nil without a previous period or when it collected nothing.
func GrowthRate(current domain.PeriodMetrics, previous *domain.PeriodMetrics) *float64 {
	if previous == nil {
		return nil
	}
	return formulas.PercentChange(current.AmountCollected, previous.AmountCollected)
}

// Productivity returns collected amount per policy, or nil for zero policies.
func Productivity(m domain.PeriodMetrics) *float64 {
	if m.PolicyCount == 0 {
		return nil
	}
	p := m.AmountCollected / float64(m.PolicyCount)
	return &p
}

// Derive computes the metrics of one period from its counters, the previous
// period (nil for the first) and the trailing volatility (nil if unknown).
func Derive(current domain.PeriodMetrics, previous *domain.PeriodMetrics, volatility *float64, policy RiskPolicy) Derived {
	rate, anomaly := CollectionRate(current)
	growth := GrowthRate(current, previous)

	return Derived{
		Period:          current.Period,
		PolicyCount:     current.PolicyCount,
		AmountDue:       current.AmountDue,
		AmountCollected: current.AmountCollected,
		CollectionRate:  rate,
		GrowthRate:      growth,
		RiskScore:       policy.Score(rate, growth, volatility),
		Productivity:    Productivity(current),
		Volatility:      volatility,
		Anomaly:         anomaly,
	}
}

// DeriveHistory derives every period of the entity in chronological order.
// Volatility at each period is the population standard deviation of the
// collection rates observed up to and including it.
func DeriveHistory(entity *domain.Entity, policy RiskPolicy) []Derived {
	out := make([]Derived, 0, len(entity.History))
	rates := make([]float64, 0, len(entity.History))

	for i, m := range entity.History {
		var previous *domain.PeriodMetrics
		if i > 0 {
			previous = &entity.History[i-1]
		}

		if rate, _ := CollectionRate(m); rate != nil {
			rates = append(rates, *rate)
		}
		var volatility *float64
		if len(rates) > 0 {
			v := formulas.PopStdDev(rates)
			volatility = &v
		}

		out = append(out, Derive(m, previous, volatility, policy))
	}
	return out
}

// Latest derives the entity's history and returns its most recent period.
func Latest(entity *domain.Entity, policy RiskPolicy) (Derived, bool) {
	history := DeriveHistory(entity, policy)
	if len(history) == 0 {
		return Derived{}, false
	}
	return history[len(history)-1], true
}

// Rates extracts the defined collection rates of a derived history.
func Rates(history []Derived) []float64 {
	rates := make([]float64, 0, len(history))
	for _, d := range history {
		if d.CollectionRate != nil {
			rates = append(rates, *d.CollectionRate)
		}
	}
	return rates
}
