package pricing

import (
	"context"

	"github.com/google/uuid"

	"github.com/noah-isme/toko-pricing/internal/customer"
	"github.com/noah-isme/toko-pricing/internal/discount"
	"github.com/noah-isme/toko-pricing/internal/obs"
)

// DiscountSource resolves a code against the cart. A false second
// return means the code is unknown or invalid and contributes zero.
type DiscountSource interface {
	Resolve(ctx context.Context, code string, items []discount.CartItem, cust customer.Ref) (discount.Resolved, bool)
}

// TaxSource supplies the effective tax rate when no explicit override
// is pinned on the cart.
type TaxSource interface {
	Rate(ctx context.Context) Bps
}

// ProductInfo is the slice of the catalog the engine cares about.
type ProductInfo struct {
	Price    Money
	TaxClass string
}

// ProductSource verifies that a line item still resolves to a product.
type ProductSource interface {
	Resolve(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) (ProductInfo, error)
}

// Engine assembles per-item pricing details. It is stateless; the cart
// store owns memoisation of its output.
type Engine struct {
	Discounts DiscountSource
	Tax       TaxSource
	Products  ProductSource
	Modifiers []Modifier
}

// Details prices the cart. A line whose product no longer resolves
// yields a zeroed detail in its position; the rest of the cart computes
// normally.
func (e *Engine) Details(ctx context.Context, in QuoteInput) []ItemDetail {
	valid := make([]discount.CartItem, 0, len(in.Items))
	broken := make(map[int]bool)
	for _, it := range in.Items {
		if it.ProductID == uuid.Nil || !e.resolvable(ctx, it) {
			broken[it.Key] = true
			continue
		}
		valid = append(valid, it)
	}

	resolved := e.resolveCodes(ctx, valid, in)
	perItem := Distribute(valid, resolved)
	rate := e.taxRate(ctx, in)

	details := make([]ItemDetail, 0, len(in.Items))
	for _, it := range in.Items {
		if broken[it.Key] {
			details = append(details, ItemDetail{Key: it.Key, ProductID: it.ProductID, VariantID: it.VariantID})
			continue
		}
		disc := perItem[it.Key]
		taxable := it.Subtotal - disc
		if taxable < 0 {
			taxable = 0
		}
		tax := PercentOf(taxable, rate)
		details = append(details, ItemDetail{
			Key:       it.Key,
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			Qty:       it.Qty,
			UnitPrice: it.UnitPrice,
			Subtotal:  it.Subtotal,
			Discount:  disc,
			Tax:       tax,
			Total:     it.Subtotal - disc + tax,
		})
	}
	for _, m := range e.Modifiers {
		details = m.Apply(in, details)
	}
	return details
}

// ItemDiscountAmount computes the discount owed to a single item given
// the whole cart and the applied codes.
func (e *Engine) ItemDiscountAmount(ctx context.Context, item discount.CartItem, all []discount.CartItem, codes []string, cust customer.Ref) Money {
	resolved := e.resolveCodes(ctx, all, QuoteInput{Codes: codes, Customer: cust})
	return Distribute(all, resolved)[item.Key]
}

func (e *Engine) resolveCodes(ctx context.Context, items []discount.CartItem, in QuoteInput) []discount.Resolved {
	if e.Discounts == nil {
		return nil
	}
	out := make([]discount.Resolved, 0, len(in.Codes))
	for _, code := range in.Codes {
		r, ok := e.Discounts.Resolve(ctx, code, items, in.Customer)
		if !ok {
			obs.DiscountEval("skipped")
			continue
		}
		obs.DiscountEval("applied")
		out = append(out, r)
	}
	return out
}

func (e *Engine) taxRate(ctx context.Context, in QuoteInput) Bps {
	if in.TaxOverride != nil {
		return *in.TaxOverride
	}
	if e.Tax != nil {
		return e.Tax.Rate(ctx)
	}
	return 0
}

func (e *Engine) resolvable(ctx context.Context, it discount.CartItem) bool {
	if e.Products == nil {
		return true
	}
	_, err := e.Products.Resolve(ctx, it.ProductID, it.VariantID)
	return err == nil
}

// Distribute computes each item's discount amount across all resolved
// codes. Codes are apportioned independently against the full eligible
// base and their per-item contributions sum.
func Distribute(items []discount.CartItem, resolved []discount.Resolved) map[int]Money {
	out := make(map[int]Money, len(items))
	for _, r := range resolved {
		switch r.Discount.Kind {
		case discount.KindPercent:
			// Per-item and order independent: no cross-item state.
			for _, it := range items {
				if !r.Eligible[it.Key] {
					continue
				}
				out[it.Key] += PercentOf(it.Subtotal, r.Discount.Amount)
			}
		case discount.KindFlat:
			apportionFlat(items, r, out)
		}
	}
	return out
}

// apportionFlat splits the nominal amount over eligible items weighted
// by subtotal share. Each raw share is rounded to minor units and the
// signed remainder lands on the last eligible item in cart insertion
// order, so the allocations reconcile exactly with the nominal amount.
func apportionFlat(items []discount.CartItem, r discount.Resolved, out map[int]Money) {
	eligible := make([]discount.CartItem, 0, len(items))
	var base Money
	for _, it := range items {
		if r.Eligible[it.Key] {
			eligible = append(eligible, it)
			base += it.Subtotal
		}
	}
	if len(eligible) == 0 || base == 0 {
		return
	}
	amount := r.Discount.Amount
	shares := make([]Money, len(eligible))
	var allocated Money
	for i, it := range eligible {
		shares[i] = Share(amount, it.Subtotal, base)
		allocated += shares[i]
	}
	shares[len(shares)-1] += amount - allocated
	for i, it := range eligible {
		c := shares[i]
		// A positive discount never drives a line past zero.
		if amount > 0 && c > it.Subtotal {
			c = it.Subtotal
		}
		out[it.Key] += c
	}
}
