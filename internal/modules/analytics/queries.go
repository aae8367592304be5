package analytics

import (
	"fmt"
	"math"

	"github.com/aristath/renewals/internal/domain"
	"github.com/aristath/renewals/internal/modules/catalog"
	"github.com/aristath/renewals/internal/modules/metrics"
	"github.com/aristath/renewals/internal/modules/opportunities"
	"github.com/aristath/renewals/internal/modules/peers"
	"github.com/aristath/renewals/internal/modules/ranking"
	"github.com/aristath/renewals/internal/modules/trends"
)

// The functions in this file are the pure query operations. They take the
// catalog snapshot explicitly; Service supplies the active one.

// Options are the policy knobs of the query operations
type Options struct {
	Risk           metrics.RiskPolicy
	Forecast       trends.ForecastOptions
	TargetRate     float64
	MomentumPeriod int
}

// DefaultOptions returns the options used when nothing is configured
func DefaultOptions() Options {
	return Options{
		Risk:           metrics.DefaultRiskPolicy(),
		Forecast:       trends.DefaultForecastOptions(),
		TargetRate:     opportunities.DefaultTargetRate,
		MomentumPeriod: metrics.DefaultMomentumPeriod,
	}
}

// Overview aggregates the latest period of the entities of kind (every entity
// when kind is empty). Entities without that period do not contribute. Kinds
// roll up into each other, so an empty kind double-counts on mixed catalogs.
func Overview(c *catalog.Catalog, kind domain.EntityKind, opts Options) OverviewKpis {
	entities := c.OfKind(kind)
	kpis := OverviewKpis{
		CatalogVersion: c.Version(),
		Period:         latestPeriod(entities, c.LatestPeriod()),
		Kind:           kind,
	}

	var lost, previousPolicies int64
	hasPrevious := false

	for _, e := range entities {
		idx := e.PeriodIndex(kpis.Period)
		if idx < 0 {
			continue
		}
		history := metrics.DeriveHistory(e, opts.Risk)
		current := history[idx]

		kpis.EntityCount++
		kpis.TotalPolicies += current.PolicyCount
		kpis.TotalDue += current.AmountDue
		kpis.TotalCollections += current.AmountCollected
		kpis.PremiumLeakage += math.Max(0, current.AmountDue-current.AmountCollected)
		if metrics.BandOf(current.RiskScore) == metrics.BandHigh {
			kpis.ConcerningCount++
		}

		if idx > 0 {
			hasPrevious = true
			prev := history[idx-1].PolicyCount
			previousPolicies += prev
			if prev > current.PolicyCount {
				lost += prev - current.PolicyCount
			}
		}
	}

	if kpis.TotalDue > 0 {
		rate := kpis.TotalCollections / kpis.TotalDue * 100
		kpis.CollectionRate = &rate
	}
	if hasPrevious && previousPolicies > 0 {
		propensity := float64(lost) / float64(previousPolicies) * 100
		kpis.SurrenderPropensity = &propensity
	}
	return kpis
}

// Ranked filters and sorts the whole catalog by the metric at each entity's
// latest period.
func Ranked(c *catalog.Catalog, key metrics.MetricKey, direction ranking.Direction, spec ranking.FilterSpec, opts Options) (RankedList, error) {
	summaries := ranking.Filter(ranking.Summarize(c.Entities(), opts.Risk), spec)
	ranked, err := ranking.Rank(summaries, key, direction)
	if err != nil {
		return RankedList{}, err
	}

	list := RankedList{
		CatalogVersion: c.Version(),
		Metric:         string(key),
		Direction:      string(direction),
		Total:          len(ranked),
		Entities:       make([]EntitySummary, 0, len(ranked)),
	}
	for _, s := range ranked {
		list.Entities = append(list.Entities, summarize(s.Entity, s.Latest))
	}
	return list, nil
}

// Detail returns the full derived history of one entity, its momentum and its
// collection-rate position among entities of the same kind.
func Detail(c *catalog.Catalog, id string, opts Options) (EntityDetail, error) {
	entity, err := c.Get(id)
	if err != nil {
		return EntityDetail{}, err
	}

	history := metrics.DeriveHistory(entity, opts.Risk)
	latest := history[len(history)-1]

	position, total, err := ranking.Position(
		ranking.Summarize(c.OfKind(entity.Kind), opts.Risk),
		entity.ID, metrics.KeyCollectionRate, ranking.Descending,
	)
	if err != nil {
		return EntityDetail{}, fmt.Errorf("failed to rank %s: %w", entity.ID, err)
	}

	return EntityDetail{
		CatalogVersion: c.Version(),
		Summary:        summarize(entity, latest),
		History:        history,
		Momentum:       metrics.ComputeMomentum(history, opts.MomentumPeriod),
		Rank: RankPosition{
			Metric:   string(metrics.KeyCollectionRate),
			Position: position,
			Total:    total,
			Label:    ranking.FormatPosition(position, total),
		},
	}, nil
}

// ComparePeer compares an entity with the peer chosen by match. A missing rate
// is reported through Gap.MissingRate rather than as an error.
func ComparePeer(c *catalog.Catalog, id string, match func(*catalog.Catalog, string) (peers.Match, error), opts Options) (PeerComparison, error) {
	entity, err := c.Get(id)
	if err != nil {
		return PeerComparison{}, err
	}
	m, err := match(c, entity.ID)
	if err != nil {
		return PeerComparison{}, err
	}

	entityLatest, _ := metrics.Latest(entity, opts.Risk)
	peerLatest, _ := metrics.Latest(m.Peer, opts.Risk)
	gap, _ := opportunities.Compare(entityLatest, peerLatest)

	return PeerComparison{
		CatalogVersion: c.Version(),
		Entity:         summarize(entity, entityLatest),
		Peer:           summarize(m.Peer, peerLatest),
		ExactMatch:     m.ExactMatch,
		Gap:            gap,
	}, nil
}

// Target compares an entity's latest period with the configured target rate.
func Target(c *catalog.Catalog, id string, opts Options) (TargetGap, error) {
	entity, err := c.Get(id)
	if err != nil {
		return TargetGap{}, err
	}
	latest, _ := metrics.Latest(entity, opts.Risk)
	gap, _ := opportunities.AgainstTarget(latest, opts.TargetRate)

	return TargetGap{
		CatalogVersion: c.Version(),
		Entity:         summarize(entity, latest),
		TargetRate:     opts.TargetRate,
		Gap:            gap,
	}, nil
}

// ForecastFor projects horizon periods past the entity's history.
func ForecastFor(c *catalog.Catalog, id string, horizon int, opts Options) (ForecastResult, error) {
	entity, err := c.Get(id)
	if err != nil {
		return ForecastResult{}, err
	}
	points, err := trends.Forecast(metrics.DeriveHistory(entity, opts.Risk), horizon, opts.Forecast)
	if err != nil {
		return ForecastResult{}, fmt.Errorf("forecast %s: %w", entity.ID, err)
	}

	return ForecastResult{
		CatalogVersion: c.Version(),
		EntityID:       entity.ID,
		Horizon:        horizon,
		Points:         points,
	}, nil
}

// SeasonalFor buckets the entity's collection rates by season.
func SeasonalFor(c *catalog.Catalog, id string, opts Options) (SeasonalProfile, error) {
	entity, err := c.Get(id)
	if err != nil {
		return SeasonalProfile{}, err
	}
	key := opts.Forecast.SeasonKey
	if key == "" {
		key = trends.SeasonQuarter
	}
	buckets, err := trends.Seasonal(metrics.DeriveHistory(entity, opts.Risk), key)
	if err != nil {
		return SeasonalProfile{}, fmt.Errorf("seasonal profile %s: %w", entity.ID, err)
	}

	return SeasonalProfile{
		CatalogVersion: c.Version(),
		EntityID:       entity.ID,
		SeasonKey:      string(key),
		Buckets:        buckets,
	}, nil
}

// latestPeriod returns the most recent period label among entities, or
// fallback when there are none.
func latestPeriod(entities []*domain.Entity, fallback string) string {
	var latest domain.Period
	found := false
	for _, e := range entities {
		m, ok := e.Latest()
		if !ok {
			continue
		}
		p := domain.MustParsePeriod(m.Period)
		if !found || p.Index() > latest.Index() {
			latest, found = p, true
		}
	}
	if !found {
		return fallback
	}
	return latest.String()
}

func summarize(e *domain.Entity, latest metrics.Derived) EntitySummary {
	return EntitySummary{
		ID:        e.ID,
		Name:      e.Name,
		Kind:      e.Kind,
		Region:    e.Region,
		SizeClass: e.SizeClass,
		Manager:   e.Manager,
		Latest:    latest,
		RiskBand:  metrics.BandOf(latest.RiskScore),
	}
}
