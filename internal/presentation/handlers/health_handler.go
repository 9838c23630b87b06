package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// HealthChecker is implemented by backing services that can report liveness
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// component is one backing service in the health report. Non-critical
// components degrade the status instead of failing it.
type component struct {
	name     string
	checker  HealthChecker
	critical bool
}

// HealthHandler reports the health of the API's backing services
type HealthHandler struct {
	components []component
}

// NewHealthHandler creates a health handler over the database and the
// optional cache. A nil cache is simply omitted from the report.
func NewHealthHandler(db, cache HealthChecker) *HealthHandler {
	components := []component{
		{name: "database", checker: db, critical: true},
	}
	if cache != nil {
		components = append(components, component{name: "cache", checker: cache})
	}
	return &HealthHandler{components: components}
}

// HealthResponse is the GET /health body
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Services  map[string]string `json:"services"`
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Services:  make(map[string]string),
	}

	for _, c := range h.components {
		if err := c.checker.HealthCheck(ctx); err != nil {
			response.Services[c.name] = "unhealthy: " + err.Error()
			if c.critical {
				response.Status = "unhealthy"
			} else if response.Status == "healthy" {
				response.Status = "degraded"
			}
			continue
		}
		response.Services[c.name] = "healthy"
	}

	status := http.StatusOK
	if response.Status == "unhealthy" {
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}

// Ready handles GET /ready (Kubernetes readiness probe). Only critical
// components gate readiness.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	for _, c := range h.components {
		if !c.critical {
			continue
		}
		if err := c.checker.HealthCheck(ctx); err != nil {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ready"))
}

// Live handles GET /live (Kubernetes liveness probe)
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("alive"))
}
