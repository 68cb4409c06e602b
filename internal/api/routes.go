package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/timberline-supply/storefront/internal/webhook"
)

// RegisterRoutes wires the HTTP surface.
func RegisterRoutes(
	app *fiber.App,
	quoteHandler *QuoteHandler,
	catalogHandler *CatalogHandler,
	healthHandler *HealthHandler,
	webhookHandler *webhook.Handler,
) {
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	app.Get("/health", healthHandler.Handle)

	app.Post("/submit-order", quoteHandler.SubmitOrder)
	app.Post("/webhooks/commerce", webhookHandler.Handle)

	app.Get("/products", catalogHandler.ListProducts)
	app.Get("/products/:slug", catalogHandler.GetProduct)
}
