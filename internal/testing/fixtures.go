package testing

import (
	"github.com/aristath/renewals/internal/domain"
	"github.com/aristath/renewals/internal/modules/catalog"
)

type branchRow struct {
	code, name, region, manager, size string
	policies                          int64
	collections, rate, growth         float64
}

// Latest-month figures from the branch performance sample sheet.
var branchRows = []branchRow{
	{"BR001", "Delhi Central", "North", "Rajesh Kumar", "Large", 450, 2250000, 96.8, 8.5},
	{"BR002", "Gurgaon", "North", "Priya Singh", "Medium", 380, 1900000, 95.2, 6.2},
	{"BR021", "Bangalore Tech", "South", "Suresh Nair", "Large", 520, 2080000, 92.4, 4.8},
	{"BR022", "Chennai Port", "South", "Lakshmi Devi", "Medium", 410, 1640000, 88.9, -1.2},
	{"BR041", "Kolkata Commercial", "East", "Amit Roy", "Large", 485, 1940000, 89.7, 3.1},
	{"BR061", "Mumbai Central", "West", "Neha Sharma", "Large", 680, 3400000, 95.1, 12.3},
	{"BR081", "Indore", "Central", "Vikash Gupta", "Small", 285, 1140000, 88.4, -2.1},
}

// NewBranchFixtures returns seven branches with three months of history
// (2025-06..2025-08). The August figures match the sample sheet; July is
// back-computed from the sheet's growth so that derived growth reproduces it.
// Branches with negative growth lost ten policies in August.
func NewBranchFixtures() []domain.Entity {
	entities := make([]domain.Entity, 0, len(branchRows))
	for _, r := range branchRows {
		prevCollected := r.collections / (1 + r.growth/100)
		prevPolicies := r.policies
		if r.growth < 0 {
			prevPolicies += 10
		}
		prev := domain.PeriodMetrics{
			PolicyCount:     prevPolicies,
			AmountDue:       prevCollected * 100 / r.rate,
			AmountCollected: prevCollected,
		}
		june, july := prev, prev
		june.Period, july.Period = "2025-06", "2025-07"

		entities = append(entities, domain.Entity{
			ID:        r.code,
			Name:      r.name,
			Kind:      domain.KindBranch,
			Region:    r.region,
			SizeClass: r.size,
			Manager:   r.manager,
			History: []domain.PeriodMetrics{
				june,
				july,
				{
					Period:          "2025-08",
					PolicyCount:     r.policies,
					AmountDue:       r.collections * 100 / r.rate,
					AmountCollected: r.collections,
				},
			},
		})
	}
	return entities
}

// NewBranchBatch wraps the branch fixtures in a batch
func NewBranchBatch() catalog.Batch {
	return catalog.Batch{Source: "fixtures", Entities: NewBranchFixtures()}
}

// NewTrendFixture returns a portfolio-level entity with nine months of history
// (2025-01..2025-09), amounts in rupees.
func NewTrendFixture() domain.Entity {
	dueMillions := []float64{45.2, 47.8, 44.1, 48.9, 46.5, 49.7, 47.2, 48.3, 49.1}
	collectedMillions := []float64{40.3, 43.8, 39.1, 45.1, 42.2, 46.3, 43.4, 44.8, 45.3}

	history := make([]domain.PeriodMetrics, len(dueMillions))
	for i := range dueMillions {
		history[i] = domain.PeriodMetrics{
			Period:          domain.Period{Year: 2025, Month: 1}.Add(i).String(),
			PolicyCount:     12000 + int64(i)*50,
			AmountDue:       dueMillions[i] * 1e6,
			AmountCollected: collectedMillions[i] * 1e6,
		}
	}

	return domain.Entity{
		ID:        "ALL",
		Name:      "All Branches",
		Kind:      domain.KindRegion,
		Region:    "National",
		SizeClass: "Large",
		Manager:   "Head Office",
		History:   history,
	}
}

// NewAprSepFixture returns a branch with April..September 2025 due/collected pairs
// rising from (850000, 782000) to (1100000, 1045000).
func NewAprSepFixture() domain.Entity {
	due := []float64{850000, 900000, 950000, 1000000, 1050000, 1100000}
	collected := []float64{782000, 833000, 884000, 935000, 990000, 1045000}

	history := make([]domain.PeriodMetrics, len(due))
	for i := range due {
		history[i] = domain.PeriodMetrics{
			Period:          domain.Period{Year: 2025, Month: 4}.Add(i).String(),
			PolicyCount:     200 + int64(i)*5,
			AmountDue:       due[i],
			AmountCollected: collected[i],
		}
	}

	return domain.Entity{
		ID:        "BR101",
		Name:      "Pune Camp",
		Kind:      domain.KindBranch,
		Region:    "West",
		SizeClass: "Medium",
		Manager:   "Anita Desai",
		History:   history,
	}
}

// FloatPtr returns a pointer to f
func FloatPtr(f float64) *float64 {
	return &f
}
