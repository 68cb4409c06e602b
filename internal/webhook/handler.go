package webhook

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/timberline-supply/storefront/internal/metrics"
)

// ListInvalidator wipes the list cache partition.
type ListInvalidator interface {
	Clear()
}

// DetailInvalidator evicts a single detail-cache entry by slug.
type DetailInvalidator interface {
	Delete(key string)
}

// SlugResolver maps a remote product id to the local content slug.
type SlugResolver interface {
	ResolveProductSlug(ctx context.Context, remoteID int) (string, error)
}

// event is the verified webhook payload. Only the entity id matters here.
type event struct {
	ID int `json:"id"`
}

// Handler verifies, parses and maps inbound commerce change events to cache
// invalidation.
type Handler struct {
	logger      *zap.Logger
	verifier    *Verifier
	list        ListInvalidator
	detail      DetailInvalidator
	resolver    SlugResolver
	topicHeader string
	sigHeader   string
}

// NewHandler creates a webhook Handler.
func NewHandler(
	logger *zap.Logger,
	verifier *Verifier,
	list ListInvalidator,
	detail DetailInvalidator,
	resolver SlugResolver,
	topicHeader, sigHeader string,
) *Handler {
	if strings.TrimSpace(topicHeader) == "" {
		topicHeader = "x-event-topic"
	}
	if strings.TrimSpace(sigHeader) == "" {
		sigHeader = "x-event-signature"
	}
	return &Handler{
		logger:      logger,
		verifier:    verifier,
		list:        list,
		detail:      detail,
		resolver:    resolver,
		topicHeader: topicHeader,
		sigHeader:   sigHeader,
	}
}

// Handle processes one commerce webhook delivery.
// POST /webhooks/commerce
func (h *Handler) Handle(c *fiber.Ctx) error {
	signature := c.Get(h.sigHeader)
	if !h.verifier.Verify(c.Body(), signature) {
		metrics.IncWebhook("invalid_signature")
		h.logger.Warn("webhook.invalid_signature",
			zap.String("topic", c.Get(h.topicHeader)))
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"ok":    false,
			"error": "Invalid signature",
		})
	}

	var ev event
	if err := json.Unmarshal(c.Body(), &ev); err != nil {
		metrics.IncWebhook("invalid_payload")
		h.logger.Warn("webhook.parse_error", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"ok":    false,
			"error": "Invalid JSON",
		})
	}

	topic := c.Get(h.topicHeader)
	if strings.HasPrefix(topic, "product.") {
		h.invalidate(c.UserContext(), topic, ev.ID)
	} else {
		h.logger.Debug("webhook.topic_ignored", zap.String("topic", topic))
	}

	metrics.IncWebhook("ok")
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
}

// invalidate maps a product change to cache eviction. Lists may reference
// the product on any page, so the whole list partition is always cleared;
// the detail entry is evicted only when a slug mapping exists. A missing
// mapping is not an error.
func (h *Handler) invalidate(ctx context.Context, topic string, remoteID int) {
	if remoteID == 0 {
		h.logger.Info("webhook.no_entity_id", zap.String("topic", topic))
		h.list.Clear()
		return
	}

	slug, err := h.resolver.ResolveProductSlug(ctx, remoteID)
	if err != nil {
		h.logger.Warn("webhook.slug_lookup_failed",
			zap.Int("remote_id", remoteID),
			zap.Error(err))
	}

	if slug != "" {
		h.detail.Delete(slug)
		h.logger.Info("webhook.cache_invalidated",
			zap.String("topic", topic),
			zap.Int("remote_id", remoteID),
			zap.String("slug", slug))
	} else {
		h.logger.Info("webhook.no_local_mapping",
			zap.String("topic", topic),
			zap.Int("remote_id", remoteID))
	}
	h.list.Clear()
}
