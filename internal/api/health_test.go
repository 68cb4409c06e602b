package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timberline-supply/storefront/internal/gateway"
)

type fakePinger struct{ err error }

func (f fakePinger) Ping(ctx context.Context) error { return f.err }

type healthResponse struct {
	Status string                      `json:"status"`
	Checks map[string]dependencyStatus `json:"checks"`
}

func newHealthApp(woo, db Pinger) *fiber.App {
	app := fiber.New()
	app.Get("/health", NewHealthHandler(woo, db, gateway.NewHealthTracker()).Handle)
	return app
}

func getHealth(t *testing.T, app *fiber.App) (int, healthResponse) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	var hr healthResponse
	require.NoError(t, json.Unmarshal(body, &hr))
	return resp.StatusCode, hr
}

func TestHealth_AllHealthy(t *testing.T) {
	app := newHealthApp(fakePinger{}, fakePinger{})

	code, hr := getHealth(t, app)

	assert.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "healthy", hr.Status)
	assert.Equal(t, "healthy", hr.Checks["woocommerce"].Status)
	assert.Equal(t, "healthy", hr.Checks["database"].Status)
}

func TestHealth_DatabaseDownDegrades(t *testing.T) {
	app := newHealthApp(fakePinger{}, fakePinger{err: context.DeadlineExceeded})

	code, hr := getHealth(t, app)

	assert.Equal(t, fiber.StatusServiceUnavailable, code)
	assert.Equal(t, "degraded", hr.Status)
	assert.Equal(t, "healthy", hr.Checks["woocommerce"].Status)
	assert.Equal(t, "unhealthy", hr.Checks["database"].Status)
	assert.NotEmpty(t, hr.Checks["database"].Error)
}

func TestHealth_GatewayDownDegrades(t *testing.T) {
	app := newHealthApp(fakePinger{err: errors.New("connect: connection refused")}, fakePinger{})

	code, hr := getHealth(t, app)

	assert.Equal(t, fiber.StatusServiceUnavailable, code)
	assert.Equal(t, "unhealthy", hr.Checks["woocommerce"].Status)
	assert.Equal(t, "healthy", hr.Checks["database"].Status)
}
