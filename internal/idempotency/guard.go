package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/timberline-supply/storefront/pkg/model"
)

// Guard rejects duplicate in-flight quote submissions. A submission
// fingerprint is claimed with SET NX for a short window; an identical
// submission inside the window is refused before any order is created.
// The guard is advisory: if Redis is unreachable the submission proceeds.
type Guard struct {
	rdb    *redis.Client
	window time.Duration
	logger *zap.Logger
}

// New creates a Guard. rdb may be nil to disable the guard entirely.
func New(rdb *redis.Client, window time.Duration, logger *zap.Logger) *Guard {
	if window <= 0 {
		window = 30 * time.Second
	}
	return &Guard{rdb: rdb, window: window, logger: logger}
}

// Acquire claims a submission fingerprint. It returns false when an
// identical submission already holds the claim.
func (g *Guard) Acquire(ctx context.Context, fingerprint string) bool {
	if g.rdb == nil {
		return true
	}
	ok, err := g.rdb.SetNX(ctx, "quote:inflight:"+fingerprint, 1, g.window).Result()
	if err != nil {
		// Never block a sale on guard availability.
		g.logger.Warn("idempotency.acquire_failed", zap.Error(err))
		return true
	}
	return ok
}

// Release drops a claim so a retried submission is not locked out after a
// fatal failure.
func (g *Guard) Release(ctx context.Context, fingerprint string) {
	if g.rdb == nil {
		return
	}
	if err := g.rdb.Del(ctx, "quote:inflight:"+fingerprint).Err(); err != nil {
		g.logger.Warn("idempotency.release_failed", zap.Error(err))
	}
}

// Fingerprint derives a stable digest of a submission: customer email plus
// the ordered line items.
func Fingerprint(req *model.QuoteRequest) string {
	h := sha256.New()
	h.Write([]byte(req.Billing.Email))
	if data, err := json.Marshal(req.Items); err == nil {
		h.Write(data)
	}
	return hex.EncodeToString(h.Sum(nil))
}
