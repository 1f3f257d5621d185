package handler

import (
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"runtime"
	"time"

	"github.com/iconidentify/upclip/internal/config"
	"github.com/iconidentify/upclip/internal/service"
)

var startTime = time.Now()

// PublishStatus reports whether YouTube publishing is usable.
type PublishStatus interface {
	Enabled() bool
	Connected() bool
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	ffmpeg     config.FFmpegConfig
	basePath   string
	events     *service.EventService
	publishing PublishStatus

	lookPath func(file string) (string, error)
}

// NewHealthHandler creates a new health handler. events and publishing may
// be nil.
func NewHealthHandler(ffmpeg config.FFmpegConfig, basePath string, events *service.EventService, publishing PublishStatus) *HealthHandler {
	return &HealthHandler{
		ffmpeg:     ffmpeg,
		basePath:   basePath,
		events:     events,
		publishing: publishing,
		lookPath:   exec.LookPath,
	}
}

// HealthResponse is the JSON response for health checks.
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// Live handles GET /health - liveness probe.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Ready handles GET /ready - readiness probe. The media tools must be
// resolvable and the storage root writable.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{
		"ffmpeg":  h.checkTool(h.ffmpeg.FFmpegPath),
		"ffprobe": h.checkTool(h.ffmpeg.FFprobePath),
		"storage": h.checkStorage(),
	}

	status, code := "ok", http.StatusOK
	for _, result := range checks {
		if result != "ok" {
			status, code = "error", http.StatusServiceUnavailable
			break
		}
	}

	writeJSON(w, code, HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	})
}

func (h *HealthHandler) checkTool(path string) string {
	if _, err := h.lookPath(path); err != nil {
		return "not found"
	}
	return "ok"
}

func (h *HealthHandler) checkStorage() string {
	f, err := os.CreateTemp(h.basePath, ".ready-*")
	if err != nil {
		return "not writable"
	}
	f.Close()
	os.Remove(f.Name())
	return "ok"
}

// SystemStats contains system resource statistics.
type SystemStats struct {
	Uptime         int64               `json:"uptime_seconds"`
	UptimeHuman    string              `json:"uptime_human"`
	MemAllocMB     int64               `json:"mem_alloc_mb"`
	MemSysMB       int64               `json:"mem_sys_mb"`
	MemHeapMB      int64               `json:"mem_heap_mb"`
	NumGoroutines  int                 `json:"num_goroutines"`
	NumCPU         int                 `json:"num_cpu"`
	CPUPercent     float64             `json:"cpu_percent"`
	DiskUsedBytes  int64               `json:"disk_used_bytes"`
	DiskFreeBytes  int64               `json:"disk_free_bytes"`
	DiskTotalBytes int64               `json:"disk_total_bytes"`
	DiskUsedPct    float64             `json:"disk_used_pct"`
	StoragePath    string              `json:"storage_path"`
	Events         *service.EventStats `json:"events,omitempty"`
	YouTube        *PublishStatusStats `json:"youtube,omitempty"`
}

// PublishStatusStats is the publishing part of SystemStats.
type PublishStatusStats struct {
	Enabled   bool `json:"enabled"`
	Connected bool `json:"connected"`
}

// Stats handles GET /api/v1/stats - system statistics.
func (h *HealthHandler) Stats(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	uptime := time.Since(startTime)

	stats := SystemStats{
		Uptime:        int64(uptime.Seconds()),
		UptimeHuman:   formatUptime(uptime),
		MemAllocMB:    int64(m.Alloc / 1024 / 1024),
		MemSysMB:      int64(m.Sys / 1024 / 1024),
		MemHeapMB:     int64(m.HeapAlloc / 1024 / 1024),
		NumGoroutines: runtime.NumGoroutine(),
		NumCPU:        runtime.NumCPU(),
		CPUPercent:    getCPUUsage(),
		StoragePath:   h.basePath,
	}
	stats.DiskTotalBytes, stats.DiskFreeBytes, stats.DiskUsedBytes, stats.DiskUsedPct = getDiskStats(h.basePath)

	if h.events != nil {
		es := h.events.Stats()
		stats.Events = &es
	}
	if h.publishing != nil {
		stats.YouTube = &PublishStatusStats{
			Enabled:   h.publishing.Enabled(),
			Connected: h.publishing.Connected(),
		}
	}

	writeJSON(w, http.StatusOK, stats)
}

func formatUptime(d time.Duration) string {
	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	mins := int(d.Minutes()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, mins)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, mins)
	}
	return fmt.Sprintf("%dm", mins)
}
