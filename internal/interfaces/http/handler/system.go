package handler

import (
	"net/http"
	"runtime"
	"sort"
	"time"

	"github.com/erp/tradedesk/internal/infrastructure/cache"
	"github.com/erp/tradedesk/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Pinger checks that a backing service is reachable
type Pinger interface {
	Ping() error
}

// SessionCounter reports the number of live composition sessions
type SessionCounter interface {
	Len() int
}

// CacheStatsReporter reports hit and miss counts of a read-through cache
type CacheStatsReporter interface {
	Stats() cache.Stats
}

// SystemHandler handles system-related API endpoints
type SystemHandler struct {
	BaseHandler
	name      string
	version   string
	startTime time.Time
	db        Pinger
	sessions  SessionCounter
	caches    map[string]CacheStatsReporter
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(name, version string, db Pinger, sessions SessionCounter, l *zap.Logger) *SystemHandler {
	return &SystemHandler{
		BaseHandler: newBaseHandler(l),
		name:        name,
		version:     version,
		startTime:   time.Now(),
		db:          db,
		sessions:    sessions,
		caches:      make(map[string]CacheStatsReporter),
	}
}

// WithCache adds a named cache to the health report
func (h *SystemHandler) WithCache(name string, r CacheStatsReporter) *SystemHandler {
	h.caches[name] = r
	return h
}

// RegisterRoutes registers the system endpoints
func (h *SystemHandler) RegisterRoutes(rg *gin.RouterGroup) {
	system := rg.Group("/system")
	system.GET("/info", h.GetSystemInfo)
	system.GET("/ping", h.Ping)
	system.GET("/health", h.Health)
}

// SystemInfoResponse represents the system information response
type SystemInfoResponse struct {
	Name      string `json:"name" example:"tradedesk"`
	Version   string `json:"version" example:"1.0.0"`
	GoVersion string `json:"go_version" example:"go1.25.5"`
	Uptime    string `json:"uptime" example:"1h30m45s"`
}

// GetSystemInfo godoc
// @Summary      Get system information
// @Tags         system
// @Success      200 {object} dto.Response
// @Router       /system/info [get]
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	h.Success(c, SystemInfoResponse{
		Name:      h.name,
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	})
}

// PingResponse represents the ping response
type PingResponse struct {
	Message   string `json:"message" example:"pong"`
	Timestamp string `json:"timestamp" example:"2026-01-23T12:00:00Z"`
}

// Ping godoc
// @Summary      Ping the API
// @Tags         system
// @Success      200 {object} dto.Response
// @Router       /system/ping [get]
func (h *SystemHandler) Ping(c *gin.Context) {
	h.Success(c, PingResponse{
		Message:   "pong",
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// CacheHealth is the state of one reference cache
type CacheHealth struct {
	Name   string `json:"name"`
	Hits   int64  `json:"hits"`
	Misses int64  `json:"misses"`
}

// HealthResponse is the readiness report
type HealthResponse struct {
	Status   string        `json:"status"`
	Database string        `json:"database"`
	Sessions int           `json:"sessions"`
	Caches   []CacheHealth `json:"caches,omitempty"`
}

// Health godoc
// @Summary      Readiness check
// @Description  Reports 503 when the database cannot be reached
// @Tags         system
// @Success      200 {object} dto.Response
// @Failure      503 {object} dto.Response
// @Router       /system/health [get]
func (h *SystemHandler) Health(c *gin.Context) {
	resp := HealthResponse{Status: "healthy", Database: "ok"}
	if h.sessions != nil {
		resp.Sessions = h.sessions.Len()
	}
	for name, r := range h.caches {
		s := r.Stats()
		resp.Caches = append(resp.Caches, CacheHealth{Name: name, Hits: s.Hits, Misses: s.Misses})
	}
	sort.Slice(resp.Caches, func(i, j int) bool { return resp.Caches[i].Name < resp.Caches[j].Name })

	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			h.logger.Warn("health check: database unreachable", zap.Error(err))
			resp.Status = "unhealthy"
			resp.Database = err.Error()
			c.JSON(http.StatusServiceUnavailable, dto.Response{Success: false, Data: resp, Error: &dto.ErrorInfo{
				Code:      dto.ErrCodeUnavailable,
				Message:   "Database unreachable",
				RequestID: getRequestID(c),
			}})
			return
		}
	}
	h.Success(c, resp)
}
