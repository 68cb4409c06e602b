package api

import (
	"context"
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/timberline-supply/storefront/internal/cache"
	"github.com/timberline-supply/storefront/internal/metrics"
)

// CatalogSource reads product data from the remote catalog.
type CatalogSource interface {
	ListProducts(ctx context.Context, params map[string]string) (json.RawMessage, error)
	GetProductBySlug(ctx context.Context, slug string) (json.RawMessage, error)
}

// CatalogHandler serves read-through cached catalog reads. List results and
// single-product lookups live in separate cache partitions with their own
// TTLs; webhook-driven invalidation evicts from both.
type CatalogHandler struct {
	logger *zap.Logger
	source CatalogSource
	list   *cache.Cache[json.RawMessage]
	detail *cache.Cache[json.RawMessage]
}

// NewCatalogHandler creates a CatalogHandler.
func NewCatalogHandler(logger *zap.Logger, source CatalogSource, list, detail *cache.Cache[json.RawMessage]) *CatalogHandler {
	return &CatalogHandler{logger: logger, source: source, list: list, detail: detail}
}

// ListProducts serves a catalog page, cached by the canonical parameter set.
// GET /products
func (h *CatalogHandler) ListProducts(c *fiber.Ctx) error {
	params := c.Queries()
	key := cache.ListKey(params)

	if payload, ok := h.list.Get(key); ok {
		metrics.IncCacheAccess("list", "hit")
		c.Set("Content-Type", "application/json")
		return c.Send(payload)
	}
	metrics.IncCacheAccess("list", "miss")

	payload, err := h.source.ListProducts(c.UserContext(), params)
	if err != nil {
		h.logger.Error("api.list_products_failed", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "catalog unavailable",
		})
	}

	h.list.Set(key, payload)
	c.Set("Content-Type", "application/json")
	return c.Send(payload)
}

// GetProduct serves one product by slug from the detail cache.
// GET /products/:slug
func (h *CatalogHandler) GetProduct(c *fiber.Ctx) error {
	slug := c.Params("slug")

	if payload, ok := h.detail.Get(slug); ok {
		metrics.IncCacheAccess("detail", "hit")
		c.Set("Content-Type", "application/json")
		return c.Send(payload)
	}
	metrics.IncCacheAccess("detail", "miss")

	payload, err := h.source.GetProductBySlug(c.UserContext(), slug)
	if err != nil {
		h.logger.Error("api.get_product_failed",
			zap.String("slug", slug),
			zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "catalog unavailable",
		})
	}

	h.detail.Set(slug, payload)
	c.Set("Content-Type", "application/json")
	return c.Send(payload)
}
