// Package domain provides the entity model shared by the analytics modules.
package domain

// EntityKind identifies what an entity aggregates
type EntityKind string

const (
	// KindBranch is a single sales/servicing branch
	KindBranch EntityKind = "branch"
	// KindRegion is a geographic roll-up of branches
	KindRegion EntityKind = "region"
	// KindProduct is a product line
	KindProduct EntityKind = "product"
	// KindChannel is a payment or distribution channel
	KindChannel EntityKind = "channel"
)

// Valid reports whether k is one of the known kinds.
func (k EntityKind) Valid() bool {
	switch k {
	case KindBranch, KindRegion, KindProduct, KindChannel:
		return true
	}
	return false
}

// PeriodMetrics holds the raw counters of one entity for one period.
// Everything else is derived from these three numbers.
type PeriodMetrics struct {
	Period          string  `json:"period" msgpack:"period"` // canonical YYYY-MM
	PolicyCount     int64   `json:"policy_count" msgpack:"policy_count"`
	AmountDue       float64 `json:"amount_due" msgpack:"amount_due"`
	AmountCollected float64 `json:"amount_collected" msgpack:"amount_collected"`
}

// Entity is a branch, region, product or channel with its period history.
// History is chronological and contiguous once the entity has been accepted
// into a catalog; treat it as read-only.
type Entity struct {
	ID        string          `json:"id" msgpack:"id"`
	Name      string          `json:"name" msgpack:"name"`
	Kind      EntityKind      `json:"kind" msgpack:"kind"`
	Region    string          `json:"region" msgpack:"region"`
	SizeClass string          `json:"size_class" msgpack:"size_class"`
	Manager   string          `json:"manager" msgpack:"manager"`
	History   []PeriodMetrics `json:"history" msgpack:"history"`
}

// Latest returns the most recent period, or false if the history is empty.
func (e *Entity) Latest() (PeriodMetrics, bool) {
	if len(e.History) == 0 {
		return PeriodMetrics{}, false
	}
	return e.History[len(e.History)-1], true
}

// PeriodIndex returns the position of the period label in the history, or -1.
func (e *Entity) PeriodIndex(label string) int {
	for i := len(e.History) - 1; i >= 0; i-- {
		if e.History[i].Period == label {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy so that callers cannot alias catalog state.
func (e Entity) Clone() Entity {
	history := make([]PeriodMetrics, len(e.History))
	copy(history, e.History)
	e.History = history
	return e
}

// SamePeerGroup reports whether two entities share region and size class.
func (e *Entity) SamePeerGroup(other *Entity) bool {
	return e.Region == other.Region && e.SizeClass == other.SizeClass
}
