package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/promptdesk/promptdesk/pkg/application"
)

type healthStatus string

const (
	healthStatusHealthy  healthStatus = "healthy"
	healthStatusDegraded healthStatus = "degraded"
	healthStatusDown     healthStatus = "down"
)

const dbDegradedLatency = 100 * time.Millisecond

type healthResponse struct {
	Status    healthStatus   `json:"status"`
	Timestamp string         `json:"timestamp"`
	Checks    map[string]any `json:"checks"`
}

type componentHealth struct {
	Status       healthStatus `json:"status"`
	ResponseTime string       `json:"responseTime,omitempty"`
	Error        string       `json:"error,omitempty"`
}

// HealthController reports liveness at /health. The endpoint is anonymous so
// load balancers can poll it without an identity header. With a nil pool the
// database check is skipped entirely, which is the in-memory backend case.
type HealthController struct {
	pool *pgxpool.Pool
}

func NewHealthController(pool *pgxpool.Pool) application.Controller {
	return &HealthController{pool: pool}
}

func (c *HealthController) Key() string {
	return "/health"
}

func (c *HealthController) Register(r *mux.Router) {
	r.HandleFunc("/health", c.get).Methods(http.MethodGet)
}

func (c *HealthController) get(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]any)
	overall := healthStatusHealthy

	if c.pool != nil {
		db := c.checkDatabase(r.Context())
		checks["database"] = db
		if db.Status == healthStatusDown {
			overall = healthStatusDown
		} else if db.Status == healthStatusDegraded {
			overall = healthStatusDegraded
		}
	}

	status := http.StatusOK
	if overall == healthStatusDown {
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, healthResponse{
		Status:    overall,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	})
}

func (c *HealthController) checkDatabase(ctx context.Context) componentHealth {
	start := time.Now()

	timeoutCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var result int
	err := c.pool.QueryRow(timeoutCtx, "SELECT 1").Scan(&result)
	responseTime := time.Since(start)
	if err != nil {
		return componentHealth{
			Status:       healthStatusDown,
			ResponseTime: responseTime.String(),
			Error:        err.Error(),
		}
	}

	status := healthStatusHealthy
	if responseTime > dbDegradedLatency {
		status = healthStatusDegraded
	}

	return componentHealth{
		Status:       status,
		ResponseTime: responseTime.String(),
	}
}
