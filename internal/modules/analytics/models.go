package analytics

import (
	"github.com/aristath/renewals/internal/domain"
	"github.com/aristath/renewals/internal/modules/metrics"
	"github.com/aristath/renewals/internal/modules/opportunities"
	"github.com/aristath/renewals/internal/modules/trends"
)

// Every result carries the version of the catalog it was computed from, so a
// caller can tell that two widgets were rendered from the same batch.

// OverviewKpis are the headline cards of the dashboard
type OverviewKpis struct {
	CatalogVersion      string            `json:"catalog_version"`
	Period              string            `json:"period"`
	Kind                domain.EntityKind `json:"kind,omitempty"`
	EntityCount         int               `json:"entity_count"`
	TotalPolicies       int64             `json:"total_policies"`
	TotalDue            float64           `json:"total_due"`
	TotalCollections    float64           `json:"total_collections"`
	CollectionRate      *float64          `json:"collection_rate"`
	ConcerningCount     int               `json:"concerning_count"`
	PremiumLeakage      float64           `json:"premium_leakage"`
	SurrenderPropensity *float64          `json:"surrender_propensity"`
}

// EntitySummary is an entity with the metrics of its latest period
type EntitySummary struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Kind      domain.EntityKind `json:"kind"`
	Region    string            `json:"region"`
	SizeClass string            `json:"size_class"`
	Manager   string            `json:"manager"`
	Latest    metrics.Derived   `json:"latest"`
	RiskBand  metrics.RiskBand  `json:"risk_band"`
}

// RankedList is the result of ListRanked
type RankedList struct {
	CatalogVersion string          `json:"catalog_version"`
	Metric         string          `json:"metric"`
	Direction      string          `json:"direction"`
	Total          int             `json:"total"`
	Entities       []EntitySummary `json:"entities"`
}

// RankPosition places an entity among the entities of its kind
type RankPosition struct {
	Metric   string `json:"metric"`
	Position int    `json:"position"`
	Total    int    `json:"total"`
	Label    string `json:"label"`
}

// EntityDetail is the drill-down view of one entity
type EntityDetail struct {
	CatalogVersion string            `json:"catalog_version"`
	Summary        EntitySummary     `json:"summary"`
	History        []metrics.Derived `json:"history"`
	Momentum       metrics.Momentum  `json:"momentum"`
	Rank           RankPosition      `json:"rank"`
}

// PeerComparison compares an entity with its resolved peer
type PeerComparison struct {
	CatalogVersion string            `json:"catalog_version"`
	Entity         EntitySummary     `json:"entity"`
	Peer           EntitySummary     `json:"peer"`
	ExactMatch     bool              `json:"exact_match"`
	Gap            opportunities.Gap `json:"gap"`
}

// TargetGap compares an entity with the target collection rate
type TargetGap struct {
	CatalogVersion string            `json:"catalog_version"`
	Entity         EntitySummary     `json:"entity"`
	TargetRate     float64           `json:"target_rate"`
	Gap            opportunities.Gap `json:"gap"`
}

// ForecastResult is the observed history followed by projected periods
type ForecastResult struct {
	CatalogVersion string         `json:"catalog_version"`
	EntityID       string         `json:"entity_id"`
	Horizon        int            `json:"horizon"`
	Points         []trends.Point `json:"points"`
}

// SeasonalProfile is the per-season collection profile of an entity
type SeasonalProfile struct {
	CatalogVersion string          `json:"catalog_version"`
	EntityID       string          `json:"entity_id"`
	SeasonKey      string          `json:"season_key"`
	Buckets        []trends.Bucket `json:"buckets"`
}
