package gateway

import (
	"github.com/shopspring/decimal"

	"github.com/timberline-supply/storefront/pkg/model"
)

// OrderLineItem is the WooCommerce line-item shape. For variations the
// product id carries the parent product and variation_id the variation.
// Price is omitted when the catalog price should stand.
type OrderLineItem struct {
	ProductID   int              `json:"product_id,omitempty"`
	VariationID int              `json:"variation_id,omitempty"`
	Quantity    int              `json:"quantity"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Name        string           `json:"name,omitempty"`
}

// MetaData is a WooCommerce order meta entry.
type MetaData struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// OrderPayload is the create-order request body sent to WooCommerce.
type OrderPayload struct {
	Status        string               `json:"status"`
	Billing       model.Address        `json:"billing"`
	Shipping      model.Address        `json:"shipping"`
	LineItems     []OrderLineItem      `json:"line_items"`
	ShippingLines []model.ShippingLine `json:"shipping_lines,omitempty"`
	CustomerNote  string               `json:"customer_note,omitempty"`
	MetaData      []MetaData           `json:"meta_data,omitempty"`
	SetPaid       bool                 `json:"set_paid"`
}

// wooErrorResponse is the error envelope WooCommerce returns on 4xx.
type wooErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
