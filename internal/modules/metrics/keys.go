package metrics

import (
	"fmt"

	"github.com/aristath/renewals/internal/domain"
)

// MetricKey names a sortable, filterable metric
type MetricKey string

const (
	KeyCollectionRate  MetricKey = "collectionRate"
	KeyGrowthRate      MetricKey = "growthRate"
	KeyRiskScore       MetricKey = "riskScore"
	KeyProductivity    MetricKey = "productivity"
	KeyVolatility      MetricKey = "volatility"
	KeyPolicyCount     MetricKey = "policyCount"
	KeyAmountDue       MetricKey = "amountDue"
	KeyAmountCollected MetricKey = "amountCollected"
)

var knownKeys = map[MetricKey]struct{}{
	KeyCollectionRate:  {},
	KeyGrowthRate:      {},
	KeyRiskScore:       {},
	KeyProductivity:    {},
	KeyVolatility:      {},
	KeyPolicyCount:     {},
	KeyAmountDue:       {},
	KeyAmountCollected: {},
}

// ParseMetricKey validates a metric key
func ParseMetricKey(s string) (MetricKey, error) {
	key := MetricKey(s)
	if _, ok := knownKeys[key]; !ok {
		return "", fmt.Errorf("%w: unknown metric %q", domain.ErrInvalidQuery, s)
	}
	return key, nil
}

// Value returns the metric named by key, or nil when it is undefined.
func (d Derived) Value(key MetricKey) *float64 {
	switch key {
	case KeyCollectionRate:
		return d.CollectionRate
	case KeyGrowthRate:
		return d.GrowthRate
	case KeyRiskScore:
		return d.RiskScore
	case KeyProductivity:
		return d.Productivity
	case KeyVolatility:
		return d.Volatility
	case KeyPolicyCount:
		v := float64(d.PolicyCount)
		return &v
	case KeyAmountDue:
		v := d.AmountDue
		return &v
	case KeyAmountCollected:
		v := d.AmountCollected
		return &v
	}
	return nil
}
