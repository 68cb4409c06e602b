package quote

import (
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/timberline-supply/storefront/internal/gateway"
	"github.com/timberline-supply/storefront/pkg/model"
)

// buildOrderPayload maps a submission to the WooCommerce order shape.
// Variations ship the parent id as product_id; a variation without a parent
// id is malformed and is emitted without a product id (and filtered below).
// Unit price is forwarded only when explicitly supplied, so the remote
// catalog price stands otherwise.
func buildOrderPayload(logger *zap.Logger, req *model.QuoteRequest) *gateway.OrderPayload {
	lines := make([]gateway.OrderLineItem, 0, len(req.Items))
	for _, item := range req.Items {
		line := gateway.OrderLineItem{
			Quantity: item.Quantity,
			Price:    item.UnitPrice,
			Name:     item.Name,
		}
		if item.VariationID != 0 {
			line.VariationID = item.VariationID
			if item.ParentID != 0 {
				line.ProductID = item.ParentID
			} else {
				logger.Warn("quote.line_item_missing_parent",
					zap.Int("variation_id", item.VariationID),
					zap.String("name", item.Name))
			}
		} else {
			line.ProductID = item.ProductID
		}
		lines = append(lines, line)
	}

	// Items without a resolvable product id cannot be ordered; the order
	// proceeds without them.
	kept := lines[:0]
	for _, line := range lines {
		if line.ProductID == 0 {
			logger.Warn("quote.line_item_dropped",
				zap.Int("variation_id", line.VariationID),
				zap.String("name", line.Name))
			continue
		}
		kept = append(kept, line)
	}

	meta := make([]gateway.MetaData, 0, 3)
	if req.Meta.ProjectType != "" {
		meta = append(meta, gateway.MetaData{Key: "project_type", Value: req.Meta.ProjectType})
	}
	if req.Meta.ShippingRegion != "" {
		meta = append(meta, gateway.MetaData{Key: "shipping_region", Value: req.Meta.ShippingRegion})
	}
	if req.Meta.FulfillmentEstimate != "" {
		meta = append(meta, gateway.MetaData{Key: "fulfillment_estimate", Value: req.Meta.FulfillmentEstimate})
	}

	return &gateway.OrderPayload{
		Status:        "pending",
		Billing:       req.Billing,
		Shipping:      req.Shipping,
		LineItems:     kept,
		ShippingLines: req.ShippingLines,
		CustomerNote:  req.Note,
		MetaData:      meta,
		SetPaid:       false,
	}
}

// computeTotal sums unitPrice × quantity over the submitted (pre-filter)
// line items plus shipping-line totals. These are the figures the customer
// saw client-side, kept deliberately independent of the remote system's own
// total so emails match the on-screen summary.
func computeTotal(req *model.QuoteRequest) decimal.Decimal {
	total := decimal.Zero
	for _, item := range req.Items {
		if item.UnitPrice == nil {
			continue
		}
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	for _, sl := range req.ShippingLines {
		total = total.Add(sl.Total)
	}
	return total
}
