package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "wh-secret"

type fakeList struct{ clears int }

func (f *fakeList) Clear() { f.clears++ }

type fakeDetail struct{ deleted []string }

func (f *fakeDetail) Delete(key string) { f.deleted = append(f.deleted, key) }

type fakeResolver struct {
	slugs map[int]string
	err   error
	calls int
}

func (f *fakeResolver) ResolveProductSlug(ctx context.Context, remoteID int) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.slugs[remoteID], nil
}

func sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func newTestApp(list *fakeList, detail *fakeDetail, resolver *fakeResolver) *fiber.App {
	h := NewHandler(zap.NewNop(), NewVerifier(testSecret), list, detail, resolver, "", "")
	app := fiber.New()
	app.Post("/webhooks/commerce", h.Handle)
	return app
}

func TestHandle_ValidProductUpdate(t *testing.T) {
	list := &fakeList{}
	detail := &fakeDetail{}
	resolver := &fakeResolver{slugs: map[int]string{101: "oak-decking"}}
	app := newTestApp(list, detail, resolver)

	body := []byte(`{"id":101,"name":"Oak Decking"}`)
	req := httptest.NewRequest("POST", "/webhooks/commerce", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-event-topic", "product.updated")
	req.Header.Set("x-event-signature", sign(body))

	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	respBody, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"ok":true}`, string(respBody))

	assert.Equal(t, []string{"oak-decking"}, detail.deleted, "detail entry evicted by slug")
	assert.Equal(t, 1, list.clears, "list partition cleared conservatively")
}

func TestHandle_InvalidSignatureTouchesNothing(t *testing.T) {
	list := &fakeList{}
	detail := &fakeDetail{}
	resolver := &fakeResolver{slugs: map[int]string{101: "oak-decking"}}
	app := newTestApp(list, detail, resolver)

	body := []byte(`{"id":101}`)
	req := httptest.NewRequest("POST", "/webhooks/commerce", bytes.NewReader(body))
	req.Header.Set("x-event-topic", "product.updated")
	req.Header.Set("x-event-signature", base64.StdEncoding.EncodeToString([]byte("forged")))

	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	respBody, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"ok":false,"error":"Invalid signature"}`, string(respBody))

	assert.Zero(t, list.clears, "no invalidation on auth failure")
	assert.Empty(t, detail.deleted)
	assert.Zero(t, resolver.calls)
}

func TestHandle_MissingSignatureRejected(t *testing.T) {
	list := &fakeList{}
	app := newTestApp(list, &fakeDetail{}, &fakeResolver{})

	body := []byte(`{"id":101}`)
	req := httptest.NewRequest("POST", "/webhooks/commerce", bytes.NewReader(body))
	req.Header.Set("x-event-topic", "product.updated")

	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Zero(t, list.clears)
}

func TestHandle_MalformedJSON(t *testing.T) {
	list := &fakeList{}
	app := newTestApp(list, &fakeDetail{}, &fakeResolver{})

	body := []byte(`{not json`)
	req := httptest.NewRequest("POST", "/webhooks/commerce", bytes.NewReader(body))
	req.Header.Set("x-event-topic", "product.updated")
	req.Header.Set("x-event-signature", sign(body))

	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	respBody, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"ok":false,"error":"Invalid JSON"}`, string(respBody))
	assert.Zero(t, list.clears)
}

func TestHandle_NoMappingClearsListOnly(t *testing.T) {
	list := &fakeList{}
	detail := &fakeDetail{}
	resolver := &fakeResolver{slugs: map[int]string{}}
	app := newTestApp(list, detail, resolver)

	body := []byte(`{"id":999}`)
	req := httptest.NewRequest("POST", "/webhooks/commerce", bytes.NewReader(body))
	req.Header.Set("x-event-topic", "product.deleted")
	req.Header.Set("x-event-signature", sign(body))

	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode, "absent mapping is not an error")
	assert.Equal(t, 1, list.clears)
	assert.Empty(t, detail.deleted, "unrelated detail entries untouched")
}

func TestHandle_NoEntityIDClearsListOnly(t *testing.T) {
	list := &fakeList{}
	detail := &fakeDetail{}
	resolver := &fakeResolver{}
	app := newTestApp(list, detail, resolver)

	body := []byte(`{"action":"bulk_change"}`)
	req := httptest.NewRequest("POST", "/webhooks/commerce", bytes.NewReader(body))
	req.Header.Set("x-event-topic", "product.updated")
	req.Header.Set("x-event-signature", sign(body))

	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, list.clears)
	assert.Zero(t, resolver.calls, "no lookup without an entity id")
	assert.Empty(t, detail.deleted)
}

func TestHandle_UnrelatedTopicIgnored(t *testing.T) {
	list := &fakeList{}
	detail := &fakeDetail{}
	app := newTestApp(list, detail, &fakeResolver{})

	body := []byte(`{"id":101}`)
	req := httptest.NewRequest("POST", "/webhooks/commerce", bytes.NewReader(body))
	req.Header.Set("x-event-topic", "order.updated")
	req.Header.Set("x-event-signature", sign(body))

	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Zero(t, list.clears)
	assert.Empty(t, detail.deleted)
}

func TestVerifier_EmptySecretFailsClosed(t *testing.T) {
	v := NewVerifier("")
	body := []byte(`{}`)
	assert.False(t, v.Verify(body, sign(body)))
}

func TestVerifier_RoundTrip(t *testing.T) {
	v := NewVerifier(testSecret)
	body := []byte(`{"id":1}`)
	assert.True(t, v.Verify(body, sign(body)))
	assert.False(t, v.Verify([]byte(`{"id":2}`), sign(body)))
	assert.False(t, v.Verify(body, ""))
}
