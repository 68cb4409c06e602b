package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/timberline-supply/storefront/internal/metrics"
	"github.com/timberline-supply/storefront/pkg/model"
)

const sendTimeout = 10 * time.Second

// Config holds delivery API access and template settings.
type Config struct {
	BaseURL          string
	Token            string
	SalesEmail       string
	CustomerTemplate string
	SalesTemplate    string
}

// Dispatcher sends the two transactional quote emails through the delivery
// API. Every send is best-effort: failures are logged and counted, never
// surfaced to the customer.
type Dispatcher struct {
	logger *zap.Logger
	cfg    Config
	http   *http.Client
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(logger *zap.Logger, cfg Config) *Dispatcher {
	return &Dispatcher{
		logger: logger,
		cfg:    cfg,
		http:   &http.Client{Timeout: sendTimeout},
	}
}

type sendRequest struct {
	Template  string         `json:"template"`
	To        string         `json:"to"`
	Subject   string         `json:"subject"`
	Variables map[string]any `json:"variables"`
}

// SendQuoteEmails dispatches the customer confirmation and the sales alert.
// The two sends are independent; one failing does not stop the other.
func (d *Dispatcher) SendQuoteEmails(ctx context.Context, req *model.QuoteRequest, orderID int, total decimal.Decimal) {
	customerName := strings.TrimSpace(req.Billing.FirstName + " " + req.Billing.LastName)

	if req.Billing.Email != "" {
		err := d.send(ctx, sendRequest{
			Template: d.cfg.CustomerTemplate,
			To:       req.Billing.Email,
			Subject:  fmt.Sprintf("Your quote request #%d", orderID),
			Variables: map[string]any{
				"customer_name":        customerName,
				"order_id":             orderID,
				"total":                total.StringFixed(2),
				"item_count":           len(req.Items),
				"fulfillment_estimate": req.Meta.FulfillmentEstimate,
			},
		})
		if err != nil {
			metrics.IncError("notify", "customer_send")
			d.logger.Warn("notify.customer_failed",
				zap.Int("order_id", orderID),
				zap.Error(err))
		}
	} else {
		d.logger.Warn("notify.customer_skipped_no_email", zap.Int("order_id", orderID))
	}

	err := d.send(ctx, sendRequest{
		Template: d.cfg.SalesTemplate,
		To:       d.cfg.SalesEmail,
		Subject:  salesSubject(orderID, req.Meta.ProjectType),
		Variables: map[string]any{
			"customer_name":   customerName,
			"customer_email":  req.Billing.Email,
			"customer_phone":  req.Billing.Phone,
			"order_id":        orderID,
			"total":           total.StringFixed(2),
			"item_count":      len(req.Items),
			"project_type":    req.Meta.ProjectType,
			"shipping_region": req.Meta.ShippingRegion,
			"note":            req.Note,
		},
	})
	if err != nil {
		metrics.IncError("notify", "sales_send")
		d.logger.Warn("notify.sales_failed",
			zap.Int("order_id", orderID),
			zap.Error(err))
	}
}

// salesSubject labels commercial projects for faster triage.
func salesSubject(orderID int, projectType string) string {
	subject := fmt.Sprintf("New quote request #%d", orderID)
	if strings.EqualFold(projectType, "commercial") {
		return "HIGH PRIORITY: " + subject
	}
	return subject
}

func (d *Dispatcher) send(ctx context.Context, msg sendRequest) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal send request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.cfg.BaseURL+"/v1/transactional", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+d.cfg.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.http.Do(req)
	if err != nil {
		return fmt.Errorf("email api request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("email api returned %d: %s", resp.StatusCode, string(respBody))
	}

	d.logger.Debug("notify.sent",
		zap.String("template", msg.Template),
		zap.String("to", msg.To))
	return nil
}
