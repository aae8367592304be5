// Package handlers provides HTTP handlers for the analytics queries.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aristath/renewals/internal/domain"
	"github.com/aristath/renewals/internal/modules/analytics"
	"github.com/aristath/renewals/internal/modules/catalog"
	"github.com/aristath/renewals/internal/modules/metrics"
	"github.com/aristath/renewals/internal/modules/ranking"
	"github.com/rs/zerolog"
)

const (
	// DefaultHorizon is used when the forecast request has no horizon
	DefaultHorizon = 3
	// DefaultOverviewKind is used when the overview request has no kind.
	// Regions aggregate branches, so mixing kinds would count amounts twice.
	DefaultOverviewKind = domain.KindBranch

	overviewAllKinds domain.EntityKind = "all"
)

// Reloader reloads the catalog from the configured source
type Reloader interface {
	Reload(ctx context.Context) (*catalog.Catalog, error)
}

// Handler handles analytics HTTP requests
type Handler struct {
	service  *analytics.Service
	reloader Reloader
	log      zerolog.Logger
}

// NewHandler creates a new analytics handler. reloader may be nil, in which
// case the reload endpoint answers 503.
func NewHandler(service *analytics.Service, reloader Reloader, log zerolog.Logger) *Handler {
	return &Handler{
		service:  service,
		reloader: reloader,
		log:      log.With().Str("handler", "analytics").Logger(),
	}
}

// HandleGetOverview handles GET /api/analytics/overview
func (h *Handler) HandleGetOverview(w http.ResponseWriter, r *http.Request) {
	kind := domain.EntityKind(strings.ToLower(r.URL.Query().Get("kind")))
	switch kind {
	case "":
		kind = DefaultOverviewKind
	case overviewAllKinds:
		kind = ""
	}
	if kind != "" && !kind.Valid() {
		h.writeError(w, http.StatusBadRequest, "unknown kind: "+string(kind))
		return
	}

	kpis, err := h.service.GetOverviewKpis(kind)
	if err != nil {
		h.handleError(w, err, "Failed to get overview")
		return
	}
	h.writeData(w, kpis)
}

// HandleListEntities handles GET /api/analytics/entities
func (h *Handler) HandleListEntities(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	metric := q.Get("metric")
	if metric == "" {
		metric = string(metrics.KeyCollectionRate)
	}
	key, err := metrics.ParseMetricKey(metric)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	direction, err := ranking.ParseDirection(q.Get("direction"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	spec := ranking.FilterSpec{
		NameContains: q.Get("name"),
		Region:       q.Get("region"),
	}
	if spec.MinCollectionRate, err = parseOptionalFloat(q.Get("min_rate")); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid min_rate")
		return
	}
	if spec.MaxRiskScore, err = parseOptionalFloat(q.Get("max_risk")); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid max_risk")
		return
	}

	list, err := h.service.ListRanked(key, direction, spec)
	if err != nil {
		h.handleError(w, err, "Failed to list entities")
		return
	}
	h.writeData(w, list)
}

// HandleGetEntity handles GET /api/analytics/entities/{id}
func (h *Handler) HandleGetEntity(w http.ResponseWriter, r *http.Request, id string) {
	detail, err := h.service.GetEntityDetail(id)
	if err != nil {
		h.handleError(w, err, "Failed to get entity detail")
		return
	}
	h.writeData(w, detail)
}

// HandleGetPeer handles GET /api/analytics/entities/{id}/peer
func (h *Handler) HandleGetPeer(w http.ResponseWriter, r *http.Request, id string) {
	cmp, err := h.service.GetPeerComparison(id)
	if err != nil {
		h.handleError(w, err, "Failed to get peer comparison")
		return
	}
	h.writeData(w, cmp)
}

// HandleGetTarget handles GET /api/analytics/entities/{id}/target
func (h *Handler) HandleGetTarget(w http.ResponseWriter, r *http.Request, id string) {
	gap, err := h.service.GetTargetGap(id)
	if err != nil {
		h.handleError(w, err, "Failed to get target gap")
		return
	}
	h.writeData(w, gap)
}

// HandleGetForecast handles GET /api/analytics/entities/{id}/forecast
func (h *Handler) HandleGetForecast(w http.ResponseWriter, r *http.Request, id string) {
	horizon := DefaultHorizon
	if raw := r.URL.Query().Get("horizon"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid horizon")
			return
		}
		horizon = parsed
	}

	result, err := h.service.GetForecast(id, horizon)
	if err != nil {
		h.handleError(w, err, "Failed to get forecast")
		return
	}
	h.writeData(w, result)
}

// HandleGetSeasonal handles GET /api/analytics/entities/{id}/seasonal
func (h *Handler) HandleGetSeasonal(w http.ResponseWriter, r *http.Request, id string) {
	profile, err := h.service.GetSeasonalProfile(id)
	if err != nil {
		h.handleError(w, err, "Failed to get seasonal profile")
		return
	}
	h.writeData(w, profile)
}

// HandleReload handles POST /api/analytics/reload
func (h *Handler) HandleReload(w http.ResponseWriter, r *http.Request) {
	if h.reloader == nil {
		h.writeError(w, http.StatusServiceUnavailable, "reload not configured")
		return
	}

	c, err := h.reloader.Reload(r.Context())
	if err != nil {
		h.handleError(w, err, "Reload failed")
		return
	}

	h.writeData(w, map[string]interface{}{
		"version":       c.Version(),
		"source":        c.Source(),
		"entities":      c.Len(),
		"latest_period": c.LatestPeriod(),
		"loaded_at":     c.LoadedAt().Format(time.RFC3339),
	})
}

// handleError maps domain errors to HTTP statuses
func (h *Handler) handleError(w http.ResponseWriter, err error, msg string) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrNoPeer):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidQuery):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrInsufficientHistory), errors.Is(err, domain.ErrValidation):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrNoCatalog):
		status = http.StatusServiceUnavailable
	}

	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).Msg(msg)
	} else {
		h.log.Debug().Err(err).Int("status", status).Msg(msg)
	}
	h.writeError(w, status, err.Error())
}

func parseOptionalFloat(raw string) (*float64, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (h *Handler) writeData(w http.ResponseWriter, data interface{}) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
