package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Address is a billing or shipping address block as submitted from checkout.
type Address struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Company   string `json:"company,omitempty"`
	Address1  string `json:"address_1"`
	Address2  string `json:"address_2,omitempty"`
	City      string `json:"city"`
	State     string `json:"state"`
	Postcode  string `json:"postcode"`
	Country   string `json:"country"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// LineItem is one cart line as the customer submitted it.
// A valid item references either a simple product (ProductID set) or a
// variation (VariationID plus ParentID set).
type LineItem struct {
	ProductID   int              `json:"productId,omitempty"`
	VariationID int              `json:"variationId,omitempty"`
	ParentID    int              `json:"parentId,omitempty"`
	Quantity    int              `json:"quantity"`
	UnitPrice   *decimal.Decimal `json:"unitPrice,omitempty"`
	Name        string           `json:"name"`
}

// ShippingLine carries the shipping method and its client-side total.
type ShippingLine struct {
	MethodID    string          `json:"method_id"`
	MethodTitle string          `json:"method_title"`
	Total       decimal.Decimal `json:"total"`
}

// QuoteMeta holds the structured tags attached to a quote submission.
type QuoteMeta struct {
	ProjectType         string `json:"projectType,omitempty"`
	ShippingRegion      string `json:"shippingRegion,omitempty"`
	FulfillmentEstimate string `json:"fulfillmentEstimate,omitempty"`
}

// QuoteRequest is a full quote submission from the storefront checkout.
type QuoteRequest struct {
	Billing       Address        `json:"billing"`
	Shipping      Address        `json:"shipping"`
	Items         []LineItem     `json:"items"`
	ShippingLines []ShippingLine `json:"shipping_lines,omitempty"`
	Note          string         `json:"customer_note,omitempty"`
	Meta          QuoteMeta      `json:"meta,omitempty"`
}

// RemoteOrder is the slice of the WooCommerce order response this service
// reads back. WooCommerce owns the order; only the id and status matter here.
type RemoteOrder struct {
	ID       int    `json:"id"`
	Status   string `json:"status"`
	Total    string `json:"total,omitempty"`
	Currency string `json:"currency,omitempty"`
}

// QuoteRecord is the durable local copy of a submitted quote. It is created
// once per remote order and never mutated afterwards.
type QuoteRecord struct {
	ID             uuid.UUID       `json:"id"`
	OrderID        int             `json:"order_id"`
	CustomerName   string          `json:"customer_name"`
	CustomerEmail  string          `json:"customer_email"`
	CustomerPhone  string          `json:"customer_phone,omitempty"`
	Company        string          `json:"company,omitempty"`
	Items          []LineItem      `json:"items"`
	Total          decimal.Decimal `json:"total"`
	Note           string          `json:"note,omitempty"`
	ProjectType    string          `json:"project_type,omitempty"`
	ShippingRegion string          `json:"shipping_region,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}
