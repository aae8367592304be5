package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aristath/renewals/internal/domain"
	"github.com/aristath/renewals/internal/modules/analytics"
	"github.com/aristath/renewals/internal/modules/catalog"
	testingpkg "github.com/aristath/renewals/internal/testing"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubReloader struct {
	store *catalog.Store
	batch catalog.Batch
	err   error
}

func (s *stubReloader) Reload(ctx context.Context) (*catalog.Catalog, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.store.Load(s.batch)
}

func setupRouter(t *testing.T, entities []domain.Entity, reloader Reloader) (http.Handler, *catalog.Store) {
	t.Helper()
	logger := zerolog.New(nil).Level(zerolog.Disabled)

	store := catalog.NewStore(logger)
	if len(entities) > 0 {
		_, err := store.Load(catalog.Batch{Source: "test", Entities: entities})
		require.NoError(t, err)
	}
	if r, ok := reloader.(*stubReloader); ok {
		r.store = store
	}

	handler := NewHandler(analytics.NewService(store, analytics.DefaultOptions(), logger), reloader, logger)
	router := chi.NewRouter()
	router.Route("/api", handler.RegisterRoutes)
	return router, store
}

func doRequest(t *testing.T, router http.Handler, method, path string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func allFixtures() []domain.Entity {
	return append(testingpkg.NewBranchFixtures(), testingpkg.NewTrendFixture())
}

func TestHandlers_StatusCodes(t *testing.T) {
	single := testingpkg.NewAprSepFixture()
	single.ID = "ONE"
	single.History = single.History[:1]
	router, _ := setupRouter(t, append(allFixtures(), single), nil)

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
	}{
		{"overview", http.MethodGet, "/api/analytics/overview", http.StatusOK},
		{"overview by kind", http.MethodGet, "/api/analytics/overview?kind=branch", http.StatusOK},
		{"overview unknown kind", http.MethodGet, "/api/analytics/overview?kind=agency", http.StatusBadRequest},
		{"list default", http.MethodGet, "/api/analytics/entities", http.StatusOK},
		{"list filtered", http.MethodGet, "/api/analytics/entities?metric=riskScore&direction=asc&region=North&min_rate=90&max_risk=40", http.StatusOK},
		{"list unknown metric", http.MethodGet, "/api/analytics/entities?metric=bogus", http.StatusBadRequest},
		{"list bad direction", http.MethodGet, "/api/analytics/entities?direction=up", http.StatusBadRequest},
		{"list bad threshold", http.MethodGet, "/api/analytics/entities?min_rate=abc", http.StatusBadRequest},
		{"detail", http.MethodGet, "/api/analytics/entities/BR001", http.StatusOK},
		{"detail not found", http.MethodGet, "/api/analytics/entities/BR999", http.StatusNotFound},
		{"peer", http.MethodGet, "/api/analytics/entities/BR001/peer", http.StatusOK},
		{"peer not found", http.MethodGet, "/api/analytics/entities/BR999/peer", http.StatusNotFound},
		{"target", http.MethodGet, "/api/analytics/entities/BR081/target", http.StatusOK},
		{"forecast", http.MethodGet, "/api/analytics/entities/ALL/forecast?horizon=4", http.StatusOK},
		{"forecast default horizon", http.MethodGet, "/api/analytics/entities/ALL/forecast", http.StatusOK},
		{"forecast bad horizon", http.MethodGet, "/api/analytics/entities/ALL/forecast?horizon=x", http.StatusBadRequest},
		{"forecast zero horizon", http.MethodGet, "/api/analytics/entities/ALL/forecast?horizon=0", http.StatusBadRequest},
		{"forecast horizon above limit", http.MethodGet, "/api/analytics/entities/ALL/forecast?horizon=37", http.StatusBadRequest},
		{"forecast max int horizon", http.MethodGet, "/api/analytics/entities/ALL/forecast?horizon=9223372036854775807", http.StatusBadRequest},
		{"forecast insufficient history", http.MethodGet, "/api/analytics/entities/ONE/forecast", http.StatusUnprocessableEntity},
		{"seasonal", http.MethodGet, "/api/analytics/entities/ALL/seasonal", http.StatusOK},
		{"reload not configured", http.MethodPost, "/api/analytics/reload", http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := doRequest(t, router, tt.method, tt.path)
			assert.Equal(t, tt.wantStatus, status)
			if tt.wantStatus == http.StatusOK {
				assert.Contains(t, body, "data")
				assert.Contains(t, body, "metadata")
			} else {
				assert.Contains(t, body, "error")
			}
		})
	}
}

func TestHandlers_OverviewKindOnMixedCatalog(t *testing.T) {
	router, _ := setupRouter(t, allFixtures(), nil)

	tests := []struct {
		query       string
		wantKind    interface{}
		wantPeriod  string
		wantEntries float64
	}{
		{query: "", wantKind: "branch", wantPeriod: "2025-08", wantEntries: 7},
		{query: "?kind=branch", wantKind: "branch", wantPeriod: "2025-08", wantEntries: 7},
		{query: "?kind=region", wantKind: "region", wantPeriod: "2025-09", wantEntries: 1},
		{query: "?kind=all", wantKind: nil, wantPeriod: "2025-09", wantEntries: 1},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			status, body := doRequest(t, router, http.MethodGet, "/api/analytics/overview"+tt.query)
			require.Equal(t, http.StatusOK, status)

			data := body["data"].(map[string]interface{})
			assert.Equal(t, tt.wantKind, data["kind"])
			assert.Equal(t, tt.wantPeriod, data["period"])
			assert.Equal(t, tt.wantEntries, data["entity_count"])
		})
	}
}

func TestHandlers_NoCatalog(t *testing.T) {
	router, _ := setupRouter(t, nil, nil)

	status, body := doRequest(t, router, http.MethodGet, "/api/analytics/overview")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, domain.ErrNoCatalog.Error(), body["error"])
}

func TestHandlers_NoPeer(t *testing.T) {
	router, _ := setupRouter(t, []domain.Entity{testingpkg.NewAprSepFixture()}, nil)

	status, _ := doRequest(t, router, http.MethodGet, "/api/analytics/entities/BR101/peer")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestHandlers_ListBody(t *testing.T) {
	router, _ := setupRouter(t, allFixtures(), nil)

	status, body := doRequest(t, router, http.MethodGet, "/api/analytics/entities?name=central&direction=desc")
	require.Equal(t, http.StatusOK, status)

	data := body["data"].(map[string]interface{})
	entities := data["entities"].([]interface{})
	require.Len(t, entities, 2)
	assert.Equal(t, "BR001", entities[0].(map[string]interface{})["id"])
	assert.Equal(t, "BR061", entities[1].(map[string]interface{})["id"])
	assert.Equal(t, "collectionRate", data["metric"])
}

func TestHandlers_DetailBody(t *testing.T) {
	router, _ := setupRouter(t, allFixtures(), nil)

	_, body := doRequest(t, router, http.MethodGet, "/api/analytics/entities/BR061")
	data := body["data"].(map[string]interface{})
	rank := data["rank"].(map[string]interface{})
	assert.Equal(t, "#3 of 7", rank["label"])
}

func TestHandlers_ForecastBody(t *testing.T) {
	router, _ := setupRouter(t, allFixtures(), nil)

	_, body := doRequest(t, router, http.MethodGet, "/api/analytics/entities/ALL/forecast?horizon=4")
	data := body["data"].(map[string]interface{})
	points := data["points"].([]interface{})
	require.Len(t, points, 13)

	forecast := 0
	for _, p := range points {
		if p.(map[string]interface{})["forecast"] == true {
			forecast++
		}
	}
	assert.Equal(t, 4, forecast)
}

func TestHandlers_Reload(t *testing.T) {
	reloader := &stubReloader{batch: catalog.Batch{Source: "reloaded", Entities: allFixtures()}}
	router, store := setupRouter(t, testingpkg.NewBranchFixtures(), reloader)
	before, err := store.Current()
	require.NoError(t, err)

	status, body := doRequest(t, router, http.MethodPost, "/api/analytics/reload")
	require.Equal(t, http.StatusOK, status)

	data := body["data"].(map[string]interface{})
	assert.Equal(t, "reloaded", data["source"])
	assert.EqualValues(t, 8, data["entities"])
	assert.NotEqual(t, before.Version(), data["version"])

	bad := testingpkg.NewBranchBatch()
	bad.Entities[0].History[0].PolicyCount = -1
	reloader.batch = bad
	status, _ = doRequest(t, router, http.MethodPost, "/api/analytics/reload")
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	reloader.err = errors.New("source unavailable")
	status, _ = doRequest(t, router, http.MethodPost, "/api/analytics/reload")
	assert.Equal(t, http.StatusInternalServerError, status)
}

func TestRegisterRoutes(t *testing.T) {
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	handler := NewHandler(analytics.NewService(catalog.NewStore(logger), analytics.DefaultOptions(), logger), nil, logger)

	router := chi.NewRouter()
	assert.NotPanics(t, func() {
		handler.RegisterRoutes(router)
	}, "RegisterRoutes should not panic")
}
