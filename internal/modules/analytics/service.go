// Package analytics exposes the view-facing query operations over the active
// catalog. Each call reads the active catalog exactly once, so a result is
// always computed from a single batch.
package analytics

import (
	"github.com/aristath/renewals/internal/domain"
	"github.com/aristath/renewals/internal/modules/catalog"
	"github.com/aristath/renewals/internal/modules/metrics"
	"github.com/aristath/renewals/internal/modules/peers"
	"github.com/aristath/renewals/internal/modules/ranking"
	"github.com/rs/zerolog"
)

// CatalogProvider supplies the active catalog
type CatalogProvider interface {
	Current() (*catalog.Catalog, error)
}

// Service runs queries against the active catalog
type Service struct {
	catalogs CatalogProvider
	peers    *peers.Resolver
	opts     Options
	log      zerolog.Logger
}

// NewService creates a new analytics service
func NewService(catalogs CatalogProvider, opts Options, log zerolog.Logger) *Service {
	return &Service{
		catalogs: catalogs,
		peers:    peers.NewResolver(log),
		opts:     opts,
		log:      log.With().Str("service", "analytics").Logger(),
	}
}

// Options returns the configured query options
func (s *Service) Options() Options {
	return s.opts
}

// GetOverviewKpis aggregates the latest period of entities of kind (all if empty)
func (s *Service) GetOverviewKpis(kind domain.EntityKind) (OverviewKpis, error) {
	c, err := s.catalogs.Current()
	if err != nil {
		return OverviewKpis{}, err
	}
	return Overview(c, kind, s.opts), nil
}

// ListRanked filters and sorts the entities
func (s *Service) ListRanked(key metrics.MetricKey, direction ranking.Direction, spec ranking.FilterSpec) (RankedList, error) {
	c, err := s.catalogs.Current()
	if err != nil {
		return RankedList{}, err
	}
	return Ranked(c, key, direction, spec, s.opts)
}

// GetEntityDetail returns one entity with its derived history
func (s *Service) GetEntityDetail(id string) (EntityDetail, error) {
	c, err := s.catalogs.Current()
	if err != nil {
		return EntityDetail{}, err
	}
	return Detail(c, id, s.opts)
}

// GetPeerComparison compares an entity with its peer. Peers are memoized per
// catalog version.
func (s *Service) GetPeerComparison(id string) (PeerComparison, error) {
	c, err := s.catalogs.Current()
	if err != nil {
		return PeerComparison{}, err
	}
	result, err := ComparePeer(c, id, s.peers.Resolve, s.opts)
	if err != nil {
		return PeerComparison{}, err
	}
	if result.Gap.MissingRate {
		s.log.Debug().Str("entity", id).Str("peer", result.Peer.ID).Msg("Peer comparison without collection rate")
	}
	return result, nil
}

// GetTargetGap compares an entity with the target collection rate
func (s *Service) GetTargetGap(id string) (TargetGap, error) {
	c, err := s.catalogs.Current()
	if err != nil {
		return TargetGap{}, err
	}
	return Target(c, id, s.opts)
}

// GetForecast projects horizon periods for an entity
func (s *Service) GetForecast(id string, horizon int) (ForecastResult, error) {
	c, err := s.catalogs.Current()
	if err != nil {
		return ForecastResult{}, err
	}
	return ForecastFor(c, id, horizon, s.opts)
}

// GetSeasonalProfile returns the seasonal buckets of an entity
func (s *Service) GetSeasonalProfile(id string) (SeasonalProfile, error) {
	c, err := s.catalogs.Current()
	if err != nil {
		return SeasonalProfile{}, err
	}
	return SeasonalFor(c, id, s.opts)
}
