package quote

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/timberline-supply/storefront/internal/gateway"
	"github.com/timberline-supply/storefront/internal/store"
	"github.com/timberline-supply/storefront/pkg/model"
)

type fakeGateway struct {
	calls   int
	payload *gateway.OrderPayload
	order   *model.RemoteOrder
	err     error
}

func (f *fakeGateway) CreateOrder(ctx context.Context, payload *gateway.OrderPayload) (*model.RemoteOrder, error) {
	f.calls++
	f.payload = payload
	if f.err != nil {
		return nil, f.err
	}
	return f.order, nil
}

type fakeStore struct {
	calls  int
	rec    *model.QuoteRecord
	result store.SaveResult
}

func (f *fakeStore) CreateQuoteRecord(ctx context.Context, rec *model.QuoteRecord, maxAttempts int) store.SaveResult {
	f.calls++
	f.rec = rec
	return f.result
}

func (f *fakeStore) ResolveProductSlug(ctx context.Context, remoteID int) (string, error) {
	return "", nil
}
func (f *fakeStore) Ping(ctx context.Context) error { return nil }
func (f *fakeStore) Close()                         {}

type fakeNotifier struct {
	calls   int
	orderID int
	total   decimal.Decimal
}

func (f *fakeNotifier) SendQuoteEmails(ctx context.Context, req *model.QuoteRequest, orderID int, total decimal.Decimal) {
	f.calls++
	f.orderID = orderID
	f.total = total
}

type fakeGuard struct {
	acquires int
	releases int
	refuse   bool
}

func (f *fakeGuard) Acquire(ctx context.Context, fp string) bool {
	f.acquires++
	return !f.refuse
}

func (f *fakeGuard) Release(ctx context.Context, fp string) { f.releases++ }

func submission() *model.QuoteRequest {
	return &model.QuoteRequest{
		Billing: model.Address{
			FirstName: "Ana", LastName: "Reyes",
			Email: "ana@example.com", Phone: "555-0101",
		},
		Items: []model.LineItem{
			{ProductID: 101, Quantity: 2, UnitPrice: dec("50.00"), Name: "Oak Decking"},
			{VariationID: 55, ParentID: 200, Quantity: 1, UnitPrice: dec("120.00"), Name: "Cedar Panel / Large"},
		},
		ShippingLines: []model.ShippingLine{
			{MethodID: "flat_rate", MethodTitle: "Freight", Total: decimal.RequireFromString("35.00")},
		},
		Meta: model.QuoteMeta{ProjectType: "commercial"},
	}
}

func newTestService(gw *fakeGateway, st *fakeStore, n *fakeNotifier, g *fakeGuard) *Service {
	var guard SubmissionGuard
	if g != nil {
		guard = g
	}
	return NewService(zap.NewNop(), gw, st, n, guard)
}

func TestSubmit_FullPipeline(t *testing.T) {
	gw := &fakeGateway{order: &model.RemoteOrder{ID: 4321, Status: "pending"}}
	st := &fakeStore{result: store.SaveResult{Saved: true, Attempts: 1}}
	n := &fakeNotifier{}
	svc := newTestService(gw, st, n, nil)

	res, err := svc.Submit(context.Background(), submission())

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.True(t, res.QuoteSaved)
	assert.Equal(t, 4321, res.OrderID)
	require.NotNil(t, res.Order)

	// gateway payload per mapping rules
	require.Len(t, gw.payload.LineItems, 2)
	assert.Equal(t, 101, gw.payload.LineItems[0].ProductID)
	assert.Equal(t, 200, gw.payload.LineItems[1].ProductID)
	assert.Equal(t, 55, gw.payload.LineItems[1].VariationID)

	// locally computed total: 50*2 + 120 + 35 shipping
	require.Equal(t, 1, st.calls)
	assert.True(t, st.rec.Total.Equal(decimal.RequireFromString("255.00")), "got %s", st.rec.Total)
	assert.Equal(t, 4321, st.rec.OrderID)

	require.Equal(t, 1, n.calls)
	assert.Equal(t, 4321, n.orderID)
	assert.True(t, n.total.Equal(decimal.RequireFromString("255.00")))
}

func TestSubmit_EmptyItemsRejectedBeforeAnyCall(t *testing.T) {
	gw := &fakeGateway{}
	st := &fakeStore{}
	n := &fakeNotifier{}
	svc := newTestService(gw, st, n, nil)

	_, err := svc.Submit(context.Background(), &model.QuoteRequest{})

	require.ErrorIs(t, err, ErrEmptySubmission)
	assert.Zero(t, gw.calls, "no external call on validation failure")
	assert.Zero(t, st.calls)
	assert.Zero(t, n.calls)
}

func TestSubmit_GatewayFailureIsFatal(t *testing.T) {
	gwErr := &gateway.Error{Endpoint: "/orders", Status: 503, Retryable: true, Attempts: 3}
	gw := &fakeGateway{err: gwErr}
	st := &fakeStore{}
	n := &fakeNotifier{}
	g := &fakeGuard{}
	svc := newTestService(gw, st, n, g)

	res, err := svc.Submit(context.Background(), submission())

	require.Error(t, err)
	assert.Nil(t, res)
	assert.Zero(t, st.calls, "no quote record on gateway failure")
	assert.Zero(t, n.calls, "no notifications on gateway failure")
	assert.Equal(t, 1, g.releases, "fingerprint claim released for retry")
}

func TestSubmit_PersistenceConflictIsSoft(t *testing.T) {
	gw := &fakeGateway{order: &model.RemoteOrder{ID: 4321, Status: "pending"}}
	st := &fakeStore{result: store.SaveResult{Conflict: true, Attempts: 1}}
	n := &fakeNotifier{}
	svc := newTestService(gw, st, n, nil)

	res, err := svc.Submit(context.Background(), submission())

	require.NoError(t, err)
	assert.True(t, res.Success, "overall success despite persistence conflict")
	assert.False(t, res.QuoteSaved)
	assert.Equal(t, 1, n.calls, "notifications still dispatched")
}

func TestSubmit_PersistenceUnavailableIsSoft(t *testing.T) {
	gw := &fakeGateway{order: &model.RemoteOrder{ID: 4321, Status: "pending"}}
	st := &fakeStore{result: store.SaveResult{Attempts: 3, Err: context.DeadlineExceeded}}
	n := &fakeNotifier{}
	svc := newTestService(gw, st, n, nil)

	res, err := svc.Submit(context.Background(), submission())

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.False(t, res.QuoteSaved)
}

func TestSubmit_DuplicateInFlightRejected(t *testing.T) {
	gw := &fakeGateway{order: &model.RemoteOrder{ID: 4321}}
	st := &fakeStore{result: store.SaveResult{Saved: true}}
	n := &fakeNotifier{}
	g := &fakeGuard{refuse: true}
	svc := newTestService(gw, st, n, g)

	_, err := svc.Submit(context.Background(), submission())

	require.ErrorIs(t, err, ErrDuplicateSubmission)
	assert.Zero(t, gw.calls, "duplicate must be refused before the gateway call")
}
