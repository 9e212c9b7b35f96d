// Package pricing computes the monetary state of a cart: per-item
// discount and tax amounts and the aggregate summary. Discount amounts
// are apportioned exactly; the sum of a flat discount's per-item
// allocations always equals its nominal amount.
package pricing

import (
	"github.com/google/uuid"

	"github.com/noah-isme/toko-pricing/internal/customer"
	"github.com/noah-isme/toko-pricing/internal/discount"
)

// ItemDetail is one computed line of the contents-details result.
type ItemDetail struct {
	Key       int        `json:"key"`
	ProductID uuid.UUID  `json:"productId"`
	VariantID *uuid.UUID `json:"variantId,omitempty"`
	Qty       int        `json:"qty"`
	UnitPrice Money      `json:"unitPrice"`
	Subtotal  Money      `json:"subtotal"`
	Discount  Money      `json:"discount"`
	Tax       Money      `json:"tax"`
	Total     Money      `json:"total"`
}

// Fee is an order-level charge added on top of the item totals.
type Fee struct {
	Name   string `json:"name"`
	Amount Money  `json:"amount"`
}

// Summary aggregates the computed components across all lines.
type Summary struct {
	Subtotal Money `json:"subtotal"`
	Discount Money `json:"discount"`
	Tax      Money `json:"tax"`
	Fees     Money `json:"fees"`
	Total    Money `json:"total"`
}

// QuoteInput is the full cart state the engine prices.
type QuoteInput struct {
	Items       []discount.CartItem
	Codes       []string
	Fees        []Fee
	TaxOverride *Bps
	Customer    customer.Ref
}

// Summarize folds per-item details and fees into a Summary.
func Summarize(details []ItemDetail, fees []Fee) Summary {
	var s Summary
	for _, d := range details {
		s.Subtotal += d.Subtotal
		s.Discount += d.Discount
		s.Tax += d.Tax
		s.Total += d.Total
	}
	for _, f := range fees {
		s.Fees += f.Amount
	}
	s.Total += s.Fees
	return s
}
