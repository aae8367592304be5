package server

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/renewals/internal/database"
	"github.com/aristath/renewals/internal/modules/catalog"
)

// SystemHandlers serves operational status
type SystemHandlers struct {
	store     *catalog.Store
	stagingDB *database.DB
	dataDir   string
	started   time.Time
	log       zerolog.Logger

	// replaced in tests so the handler does not block on sampling
	statsFn func() (float64, float64)
}

// NewSystemHandlers creates system handlers. stagingDB may be nil.
func NewSystemHandlers(store *catalog.Store, stagingDB *database.DB, dataDir string, started time.Time, log zerolog.Logger) *SystemHandlers {
	h := &SystemHandlers{
		store:     store,
		stagingDB: stagingDB,
		dataDir:   dataDir,
		started:   started,
		log:       log.With().Str("handler", "system").Logger(),
	}
	h.statsFn = h.getSystemStats
	return h
}

// CatalogStatus describes the active catalog
type CatalogStatus struct {
	Loaded       bool   `json:"loaded"`
	Version      string `json:"version,omitempty"`
	Source       string `json:"source,omitempty"`
	LoadedAt     string `json:"loaded_at,omitempty"`
	Entities     int    `json:"entities"`
	LatestPeriod string `json:"latest_period,omitempty"`
}

// StagingStatus describes the sqlite staging database
type StagingStatus struct {
	Path    string  `json:"path"`
	SizeMB  float64 `json:"size_mb"`
	Healthy bool    `json:"healthy"`
	Error   string  `json:"error,omitempty"`
}

// SystemStatusResponse is the body of GET /api/system/status
type SystemStatusResponse struct {
	Status        string         `json:"status"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	CPUPercent    float64        `json:"cpu_percent"`
	MemoryPercent float64        `json:"memory_percent"`
	DataDir       string         `json:"data_dir"`
	Catalog       CatalogStatus  `json:"catalog"`
	Staging       *StagingStatus `json:"staging,omitempty"`
	Timestamp     string         `json:"timestamp"`
}

// HandleSystemStatus returns catalog and host status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPercent, memPercent := h.statsFn()

	response := SystemStatusResponse{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
		CPUPercent:    cpuPercent,
		MemoryPercent: memPercent,
		DataDir:       h.dataDir,
		Catalog:       h.catalogStatus(),
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
	}
	if !response.Catalog.Loaded {
		response.Status = "degraded"
	}

	if h.stagingDB != nil {
		staging := h.stagingStatus(r.Context())
		if !staging.Healthy {
			response.Status = "degraded"
		}
		response.Staging = &staging
	}

	writeJSON(w, http.StatusOK, response, h.log)
}

func (h *SystemHandlers) catalogStatus() CatalogStatus {
	if h.store == nil {
		return CatalogStatus{}
	}
	c, err := h.store.Current()
	if err != nil {
		return CatalogStatus{}
	}
	return CatalogStatus{
		Loaded:       true,
		Version:      c.Version(),
		Source:       c.Source(),
		LoadedAt:     c.LoadedAt().UTC().Format(time.RFC3339),
		Entities:     c.Len(),
		LatestPeriod: c.LatestPeriod(),
	}
}

func (h *SystemHandlers) stagingStatus(ctx context.Context) StagingStatus {
	status := StagingStatus{
		Path:    h.stagingDB.Path(),
		Healthy: true,
	}
	if info, err := os.Stat(h.stagingDB.Path()); err == nil {
		status.SizeMB = float64(info.Size()) / 1024 / 1024
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := h.stagingDB.QuickCheck(ctx); err != nil {
		h.log.Warn().Err(err).Str("path", filepath.Base(h.stagingDB.Path())).Msg("Staging database check failed")
		status.Healthy = false
		status.Error = err.Error()
	}
	return status
}

// getSystemStats samples CPU over 100ms and reads memory usage
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}
