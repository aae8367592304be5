package analytics

import (
	"testing"

	"github.com/aristath/renewals/internal/domain"
	"github.com/aristath/renewals/internal/modules/catalog"
	"github.com/aristath/renewals/internal/modules/metrics"
	"github.com/aristath/renewals/internal/modules/ranking"
	testingpkg "github.com/aristath/renewals/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T, entities ...domain.Entity) (*Service, *catalog.Store) {
	t.Helper()
	store := catalog.NewStore(zerolog.Nop())
	if len(entities) > 0 {
		_, err := store.Load(catalog.Batch{Source: "test", Entities: entities})
		require.NoError(t, err)
	}
	return NewService(store, DefaultOptions(), zerolog.Nop()), store
}

func TestService_NoCatalog(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.GetOverviewKpis("")
	assert.ErrorIs(t, err, domain.ErrNoCatalog)
	_, err = svc.ListRanked(metrics.KeyCollectionRate, ranking.Descending, ranking.FilterSpec{})
	assert.ErrorIs(t, err, domain.ErrNoCatalog)
	_, err = svc.GetEntityDetail("BR001")
	assert.ErrorIs(t, err, domain.ErrNoCatalog)
	_, err = svc.GetPeerComparison("BR001")
	assert.ErrorIs(t, err, domain.ErrNoCatalog)
	_, err = svc.GetForecast("BR001", 3)
	assert.ErrorIs(t, err, domain.ErrNoCatalog)
}

func TestService_GetOverviewKpis(t *testing.T) {
	fixtures := testingpkg.NewBranchFixtures()
	svc, store := newService(t, fixtures...)
	c, err := store.Current()
	require.NoError(t, err)

	kpis, err := svc.GetOverviewKpis("")
	require.NoError(t, err)

	var leakage, due float64
	for _, e := range fixtures {
		last := e.History[len(e.History)-1]
		leakage += last.AmountDue - last.AmountCollected
		due += last.AmountDue
	}

	assert.Equal(t, c.Version(), kpis.CatalogVersion)
	assert.Equal(t, "2025-08", kpis.Period)
	assert.Equal(t, 7, kpis.EntityCount)
	assert.Equal(t, int64(3210), kpis.TotalPolicies)
	assert.InDelta(t, 14350000.0, kpis.TotalCollections, 1e-6)
	require.NotNil(t, kpis.CollectionRate)
	assert.InDelta(t, 14350000.0/due*100, *kpis.CollectionRate, 1e-9)
	assert.Equal(t, 1, kpis.ConcerningCount)
	assert.InDelta(t, leakage, kpis.PremiumLeakage, 1e-6)
	require.NotNil(t, kpis.SurrenderPropensity)
	assert.InDelta(t, 20.0/3230.0*100, *kpis.SurrenderPropensity, 1e-9)
}

func TestService_GetOverviewKpis_ByKind(t *testing.T) {
	svc, _ := newService(t, testingpkg.NewBranchFixtures()...)

	kpis, err := svc.GetOverviewKpis(domain.KindRegion)
	require.NoError(t, err)
	assert.Equal(t, 0, kpis.EntityCount)
	assert.Nil(t, kpis.CollectionRate)
	assert.Nil(t, kpis.SurrenderPropensity)
}

func TestOverview_UsesLatestPeriodOfKind(t *testing.T) {
	region := testingpkg.NewTrendFixture()
	c, err := catalog.Build(catalog.Batch{Entities: append(testingpkg.NewBranchFixtures(), region)})
	require.NoError(t, err)
	require.Equal(t, "2025-09", c.LatestPeriod())

	branches := Overview(c, domain.KindBranch, DefaultOptions())
	assert.Equal(t, "2025-08", branches.Period)
	assert.Equal(t, 7, branches.EntityCount)
	assert.Equal(t, int64(3210), branches.TotalPolicies)

	regions := Overview(c, domain.KindRegion, DefaultOptions())
	assert.Equal(t, "2025-09", regions.Period)
	assert.Equal(t, 1, regions.EntityCount)
}

func TestOverview_SkipsEntitiesWithoutLatestPeriod(t *testing.T) {
	aprSep := testingpkg.NewAprSepFixture()
	branches := testingpkg.NewBranchFixtures()
	c, err := catalog.Build(catalog.Batch{Entities: append(branches, aprSep)})
	require.NoError(t, err)

	kpis := Overview(c, "", DefaultOptions())
	assert.Equal(t, "2025-09", kpis.Period)
	assert.Equal(t, 1, kpis.EntityCount)
	assert.Equal(t, aprSep.History[5].PolicyCount, kpis.TotalPolicies)
}

func TestService_ListRanked(t *testing.T) {
	svc, _ := newService(t, testingpkg.NewBranchFixtures()...)

	list, err := svc.ListRanked(metrics.KeyCollectionRate, ranking.Descending, ranking.FilterSpec{Region: "North"})
	require.NoError(t, err)
	require.Len(t, list.Entities, 2)
	assert.Equal(t, 2, list.Total)
	assert.Equal(t, "BR001", list.Entities[0].ID)
	assert.Equal(t, "BR002", list.Entities[1].ID)
	assert.Equal(t, metrics.BandLow, list.Entities[0].RiskBand)

	_, err = svc.ListRanked("bogus", ranking.Descending, ranking.FilterSpec{})
	assert.ErrorIs(t, err, domain.ErrInvalidQuery)
}

func TestService_GetEntityDetail(t *testing.T) {
	svc, _ := newService(t, testingpkg.NewBranchFixtures()...)

	detail, err := svc.GetEntityDetail("BR061")
	require.NoError(t, err)
	assert.Equal(t, "Mumbai Central", detail.Summary.Name)
	assert.Len(t, detail.History, 3)
	assert.Equal(t, "#3 of 7", detail.Rank.Label)
	assert.NotEqual(t, metrics.MomentumUnknown, detail.Momentum.Label)

	_, err = svc.GetEntityDetail("BR999")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestService_GetPeerComparison(t *testing.T) {
	svc, _ := newService(t, testingpkg.NewBranchFixtures()...)

	t.Run("fallback peer, entity outperforms", func(t *testing.T) {
		cmp, err := svc.GetPeerComparison("BR001")
		require.NoError(t, err)
		assert.Equal(t, "BR002", cmp.Peer.ID)
		assert.False(t, cmp.ExactMatch)
		require.NotNil(t, cmp.Gap.PerformanceGapPct)
		assert.InDelta(t, -1.6, *cmp.Gap.PerformanceGapPct, 1e-9)
		assert.Equal(t, 0.0, *cmp.Gap.OpportunityAmount)
		assert.Equal(t, int64(-70), *cmp.Gap.PolicyVolumeGap)
	})

	t.Run("entity underperforms", func(t *testing.T) {
		cmp, err := svc.GetPeerComparison("BR022")
		require.NoError(t, err)
		assert.Equal(t, "BR001", cmp.Peer.ID)
		require.NotNil(t, cmp.Gap.OpportunityAmount)
		assert.InDelta(t, 0.079*1640000*100/88.9, *cmp.Gap.OpportunityAmount, 1e-3)
	})

	t.Run("unknown entity", func(t *testing.T) {
		_, err := svc.GetPeerComparison("BR999")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestService_GetPeerComparison_MissingRateAndNoPeer(t *testing.T) {
	zero := testingpkg.NewAprSepFixture()
	zero.History[5].AmountDue = 0
	peer := testingpkg.NewAprSepFixture()
	peer.ID = "BR102"

	svc, _ := newService(t, zero, peer)
	cmp, err := svc.GetPeerComparison("BR101")
	require.NoError(t, err)
	assert.True(t, cmp.ExactMatch)
	assert.True(t, cmp.Gap.MissingRate)
	assert.Nil(t, cmp.Gap.OpportunityAmount)

	single, _ := newService(t, testingpkg.NewAprSepFixture())
	_, err = single.GetPeerComparison("BR101")
	assert.ErrorIs(t, err, domain.ErrNoPeer)
}

func TestService_GetTargetGap(t *testing.T) {
	svc, _ := newService(t, testingpkg.NewBranchFixtures()...)

	gap, err := svc.GetTargetGap("BR081")
	require.NoError(t, err)
	assert.Equal(t, 96.8, gap.TargetRate)
	require.NotNil(t, gap.Gap.PerformanceGapPct)
	assert.InDelta(t, 8.4, *gap.Gap.PerformanceGapPct, 1e-9)
}

func TestService_GetForecast(t *testing.T) {
	single := testingpkg.NewAprSepFixture()
	single.ID = "ONE"
	single.History = single.History[:1]
	svc, _ := newService(t, testingpkg.NewTrendFixture(), single)

	result, err := svc.GetForecast("ALL", 4)
	require.NoError(t, err)
	assert.Equal(t, "ALL", result.EntityID)
	assert.Len(t, result.Points, 13)

	_, err = svc.GetForecast("ONE", 3)
	assert.ErrorIs(t, err, domain.ErrInsufficientHistory)

	_, err = svc.GetForecast("ALL", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidQuery)

	_, err = svc.GetForecast("NOPE", 3)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestService_GetSeasonalProfile(t *testing.T) {
	svc, _ := newService(t, testingpkg.NewTrendFixture())

	profile, err := svc.GetSeasonalProfile("ALL")
	require.NoError(t, err)
	assert.Equal(t, "quarter", profile.SeasonKey)
	assert.Len(t, profile.Buckets, 3)
}

func TestService_ResultsFollowCatalogSwap(t *testing.T) {
	svc, store := newService(t, testingpkg.NewBranchFixtures()...)

	before, err := svc.GetPeerComparison("BR001")
	require.NoError(t, err)

	next := append(testingpkg.NewBranchFixtures(), domain.Entity{
		ID: "BR003", Name: "Noida", Kind: domain.KindBranch, Region: "North", SizeClass: "Large",
		History: []domain.PeriodMetrics{{Period: "2025-08", PolicyCount: 300, AmountDue: 1000000, AmountCollected: 970000}},
	})
	c, err := store.Load(catalog.Batch{Source: "next", Entities: next})
	require.NoError(t, err)

	after, err := svc.GetPeerComparison("BR001")
	require.NoError(t, err)
	assert.NotEqual(t, before.CatalogVersion, after.CatalogVersion)
	assert.Equal(t, c.Version(), after.CatalogVersion)
	assert.Equal(t, "BR003", after.Peer.ID)
	assert.True(t, after.ExactMatch)
}
