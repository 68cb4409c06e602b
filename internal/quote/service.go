package quote

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/timberline-supply/storefront/internal/gateway"
	"github.com/timberline-supply/storefront/internal/idempotency"
	"github.com/timberline-supply/storefront/internal/metrics"
	"github.com/timberline-supply/storefront/internal/store"
	"github.com/timberline-supply/storefront/pkg/model"
)

// ErrEmptySubmission rejects submissions with no line items before any
// external call is made.
var ErrEmptySubmission = errors.New("submission has no line items")

// ErrDuplicateSubmission rejects an identical submission already in flight.
var ErrDuplicateSubmission = errors.New("identical submission already in flight")

const persistAttempts = 3

// OrderCreator is the gateway surface the orchestrator needs.
type OrderCreator interface {
	CreateOrder(ctx context.Context, payload *gateway.OrderPayload) (*model.RemoteOrder, error)
}

// Notifier dispatches the post-submission emails.
type Notifier interface {
	SendQuoteEmails(ctx context.Context, req *model.QuoteRequest, orderID int, total decimal.Decimal)
}

// SubmissionGuard claims submission fingerprints.
type SubmissionGuard interface {
	Acquire(ctx context.Context, fingerprint string) bool
	Release(ctx context.Context, fingerprint string)
}

// Result is the submission response. Success is false only when the remote
// order itself could not be created.
type Result struct {
	Success    bool               `json:"success"`
	Order      *model.RemoteOrder `json:"order,omitempty"`
	QuoteSaved bool               `json:"quote_saved"`
	OrderID    int                `json:"orderId,omitempty"`
}

// Service sequences one quote submission: remote order creation is the sole
// gate; local persistence and notifications are best-effort.
type Service struct {
	logger   *zap.Logger
	gateway  OrderCreator
	store    store.Store
	notifier Notifier
	guard    SubmissionGuard
}

// NewService creates the orchestrator. guard may be nil.
func NewService(logger *zap.Logger, gw OrderCreator, st store.Store, notifier Notifier, guard SubmissionGuard) *Service {
	return &Service{
		logger:   logger,
		gateway:  gw,
		store:    st,
		notifier: notifier,
		guard:    guard,
	}
}

// Submit runs the pipeline:
// Validate → BuildOrderPayload → CreateRemoteOrder → ComputeTotals →
// PersistQuoteRecord (best-effort) → DispatchNotifications (best-effort).
func (s *Service) Submit(ctx context.Context, req *model.QuoteRequest) (*Result, error) {
	if len(req.Items) == 0 {
		metrics.IncSubmission("rejected")
		return nil, ErrEmptySubmission
	}

	fingerprint := idempotency.Fingerprint(req)
	if s.guard != nil && !s.guard.Acquire(ctx, fingerprint) {
		metrics.IncSubmission("rejected")
		s.logger.Warn("quote.duplicate_submission",
			zap.String("fingerprint", fingerprint))
		return nil, ErrDuplicateSubmission
	}

	payload := buildOrderPayload(s.logger, req)

	order, stage := s.createOrder(ctx, payload)
	if stage.Kind == StageFatal {
		// No partial state exists, so a retried submission is fine.
		if s.guard != nil {
			s.guard.Release(ctx, fingerprint)
		}
		metrics.IncSubmission("failed")
		s.logger.Error("quote.order_create_failed",
			zap.String("reason", stage.Reason),
			zap.Error(stage.Err))
		return nil, stage.Err
	}

	total := computeTotal(req)
	s.logger.Info("quote.order_created",
		zap.Int("order_id", order.ID),
		zap.String("total", total.StringFixed(2)),
		zap.Int("line_items", len(payload.LineItems)))

	result := &Result{
		Success: true,
		Order:   order,
		OrderID: order.ID,
	}

	if persist := s.persist(ctx, req, order.ID, total); persist.Kind == StageOK {
		result.QuoteSaved = true
	} else {
		s.logger.Warn("quote.persist_soft_failure",
			zap.Int("order_id", order.ID),
			zap.String("reason", persist.Reason),
			zap.Error(persist.Err))
	}

	if notify := s.notify(ctx, req, order.ID, total); notify.Kind != StageOK {
		s.logger.Warn("quote.notify_soft_failure",
			zap.Int("order_id", order.ID),
			zap.String("reason", notify.Reason))
	}

	metrics.IncSubmission("created")
	return result, nil
}

// createOrder invokes the gateway. Any gateway error here is fatal to the
// submission.
func (s *Service) createOrder(ctx context.Context, payload *gateway.OrderPayload) (*model.RemoteOrder, StageResult) {
	order, err := s.gateway.CreateOrder(ctx, payload)
	if err != nil {
		return nil, stageFatal("order_create_failed", err)
	}
	return order, stageOK()
}

// persist writes the durable quote record. Always soft: the remote order
// exists whether or not the local copy lands.
func (s *Service) persist(ctx context.Context, req *model.QuoteRequest, orderID int, total decimal.Decimal) StageResult {
	rec := &model.QuoteRecord{
		ID:             uuid.New(),
		OrderID:        orderID,
		CustomerName:   req.Billing.FirstName + " " + req.Billing.LastName,
		CustomerEmail:  req.Billing.Email,
		CustomerPhone:  req.Billing.Phone,
		Company:        req.Billing.Company,
		Items:          req.Items,
		Total:          total,
		Note:           req.Note,
		ProjectType:    req.Meta.ProjectType,
		ShippingRegion: req.Meta.ShippingRegion,
	}

	res := s.store.CreateQuoteRecord(ctx, rec, persistAttempts)
	if res.Saved {
		return stageOK()
	}
	metrics.IncError("persist", reasonFor(res))
	return stageSoft(reasonFor(res), res.Err)
}

func reasonFor(res store.SaveResult) string {
	if res.Conflict {
		return "duplicate_order_id"
	}
	return "store_unavailable"
}

// notify dispatches both emails. The dispatcher already isolates per-send
// failures, so this stage only guards against a panic-free total outage.
func (s *Service) notify(ctx context.Context, req *model.QuoteRequest, orderID int, total decimal.Decimal) StageResult {
	if s.notifier == nil {
		return stageSoft("dispatcher_unconfigured", nil)
	}
	s.notifier.SendQuoteEmails(ctx, req, orderID, total)
	return stageOK()
}
