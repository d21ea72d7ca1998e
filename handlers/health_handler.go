package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/upb/order-protection/services/audit"
	"github.com/upb/order-protection/utils"
	"go.uber.org/zap"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewHealthHandler creates a new HealthHandler. db may be nil when no
// audit store is configured.
func NewHealthHandler(db *sql.DB, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		db:     db,
		logger: logger,
	}
}

// HandleHealth handles GET /healthz
// Basic health check - always returns 200 if service is running
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	_ = utils.WriteOK(w, response)
}

// HandleReadiness handles GET /readyz
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)
	allHealthy := true

	switch {
	case h.db == nil:
		checks["database"] = "not_configured"
	case h.checkDatabase(ctx) != nil:
		checks["database"] = "unhealthy"
		allHealthy = false
	default:
		checks["database"] = "healthy"
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if !allHealthy {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	response := HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	}

	if err := utils.WriteJSON(w, httpStatus, utils.SuccessResponse{Data: response}); err != nil {
		h.logger.Error("failed to write readiness response", zap.Error(err))
	}
}

func (h *HealthHandler) checkDatabase(ctx context.Context) error {
	if err := h.db.PingContext(ctx); err != nil {
		h.logger.Warn("database health check failed", zap.Error(err))
		return err
	}

	var result int
	if err := h.db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		h.logger.Warn("database health check failed", zap.Error(err))
		return err
	}

	return nil
}

// AuditStats reports the state of the audit worker pool
type AuditStats interface {
	GetStats() audit.Stats
}

// StatusInfo describes the running service
type StatusInfo struct {
	Version     string
	Environment string
	Platform    string
}

// StatusResponse is the body of GET /api/v1/status
type StatusResponse struct {
	Version     string       `json:"version"`
	Environment string       `json:"environment"`
	Platform    string       `json:"platform"`
	Uptime      string       `json:"uptime"`
	Audit       *audit.Stats `json:"audit,omitempty"`
}

// StatusHandler reports build and runtime information
type StatusHandler struct {
	info    StatusInfo
	audit   AuditStats
	started time.Time
}

// NewStatusHandler creates a new StatusHandler. stats may be nil.
func NewStatusHandler(info StatusInfo, stats AuditStats) *StatusHandler {
	return &StatusHandler{
		info:    info,
		audit:   stats,
		started: time.Now(),
	}
}

// HandleStatus handles GET /api/v1/status
func (h *StatusHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	response := StatusResponse{
		Version:     h.info.Version,
		Environment: h.info.Environment,
		Platform:    h.info.Platform,
		Uptime:      time.Since(h.started).Round(time.Second).String(),
	}
	if h.audit != nil {
		stats := h.audit.GetStats()
		response.Audit = &stats
	}

	_ = utils.WriteOK(w, response)
}
