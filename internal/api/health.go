package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/timberline-supply/storefront/internal/gateway"
)

// Pinger is a dependency reachability probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

const dbProbeTimeout = 5 * time.Second

// HealthHandler reports per-dependency health. Overall status is healthy
// only when both the remote commerce system and the datastore respond.
type HealthHandler struct {
	woo     Pinger
	db      Pinger
	tracker *gateway.HealthTracker
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(woo, db Pinger, tracker *gateway.HealthTracker) *HealthHandler {
	return &HealthHandler{woo: woo, db: db, tracker: tracker}
}

type dependencyStatus struct {
	Status         string `json:"status"`
	ResponseTimeMS int64  `json:"response_time_ms"`
	Error          string `json:"error,omitempty"`
}

// Handle serves the health probe.
// GET /health
func (h *HealthHandler) Handle(c *fiber.Ctx) error {
	ctx := c.UserContext()

	checks := map[string]dependencyStatus{
		"woocommerce": probe(ctx, h.woo, 0),
		"database":    probe(ctx, h.db, dbProbeTimeout),
	}

	status := "healthy"
	code := fiber.StatusOK
	for _, dep := range checks {
		if dep.Status != "healthy" {
			status = "degraded"
			code = fiber.StatusServiceUnavailable
			break
		}
	}

	body := fiber.Map{
		"status": status,
		"checks": checks,
	}
	if h.tracker != nil {
		body["gateway"] = h.tracker.Snapshot()
	}
	return c.Status(code).JSON(body)
}

// probe times one dependency check. timeout 0 leaves the pinger's own
// budget in charge.
func probe(ctx context.Context, p Pinger, timeout time.Duration) dependencyStatus {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	err := p.Ping(ctx)
	elapsed := time.Since(start).Milliseconds()

	if err != nil {
		return dependencyStatus{Status: "unhealthy", ResponseTimeMS: elapsed, Error: err.Error()}
	}
	return dependencyStatus{Status: "healthy", ResponseTimeMS: elapsed}
}
