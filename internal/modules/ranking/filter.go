package ranking

import (
	"strings"

	"github.com/aristath/renewals/internal/modules/metrics"
)

// FilterSpec holds the optional filters of the entity list. Empty or nil fields
// are not applied; the rest must all match.
type FilterSpec struct {
	NameContains      string   `json:"name_contains,omitempty"`
	Region            string   `json:"region,omitempty"`
	MinCollectionRate *float64 `json:"min_collection_rate,omitempty"`
	MaxRiskScore      *float64 `json:"max_risk_score,omitempty"`
}

// Filter returns the summaries matching spec, keeping input order.
func Filter(summaries []Summary, spec FilterSpec) []Summary {
	needle := strings.ToLower(strings.TrimSpace(spec.NameContains))
	region := strings.TrimSpace(spec.Region)

	out := make([]Summary, 0, len(summaries))
	for _, s := range summaries {
		if needle != "" && !matchesName(s, needle) {
			continue
		}
		if region != "" && !strings.EqualFold(s.Entity.Region, region) {
			continue
		}
		if spec.MinCollectionRate != nil {
			rate := s.Latest.Value(metrics.KeyCollectionRate)
			if rate == nil || *rate < *spec.MinCollectionRate {
				continue
			}
		}
		if spec.MaxRiskScore != nil {
			risk := s.Latest.Value(metrics.KeyRiskScore)
			if risk == nil || *risk > *spec.MaxRiskScore {
				continue
			}
		}
		out = append(out, s)
	}
	return out
}

// matchesName searches name, code and manager, like the branch search box.
func matchesName(s Summary, needle string) bool {
	for _, field := range []string{s.Entity.Name, s.Entity.ID, s.Entity.Manager} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}
