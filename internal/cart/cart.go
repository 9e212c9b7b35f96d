// Package cart owns the shopping cart aggregate: the ordered line
// items, applied discount codes, fees, and the tax-rate override,
// together with the single-slot memo of the computed contents details.
// Every mutation invalidates the memo synchronously, before control
// returns to the caller, so a read can never observe stale totals.
package cart

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"github.com/google/uuid"

	"github.com/noah-isme/toko-pricing/internal/customer"
	"github.com/noah-isme/toko-pricing/internal/discount"
	"github.com/noah-isme/toko-pricing/internal/obs"
	"github.com/noah-isme/toko-pricing/internal/pricing"
)

// ErrNotFound indicates the requested cart or line could not be located.
var ErrNotFound = errors.New("cart not found")

// ErrInvalidInput is returned when the provided payload is invalid.
var ErrInvalidInput = errors.New("invalid input")

// ErrNotEligible indicates a discount code may not be applied to the cart.
var ErrNotEligible = errors.New("discount not eligible")

// LineItem is one cart position. Key is the stable insertion order and
// never changes for the lifetime of the line.
type LineItem struct {
	Key       int               `json:"key"`
	ProductID uuid.UUID         `json:"productId"`
	VariantID *uuid.UUID        `json:"variantId,omitempty"`
	UnitPrice pricing.Money     `json:"unitPrice"`
	Qty       int               `json:"qty"`
	Options   map[string]string `json:"options,omitempty"`
}

// Subtotal is the undiscounted line value.
func (li LineItem) Subtotal() pricing.Money {
	return pricing.Money(li.Qty) * li.UnitPrice
}

// Calculator prices a full cart snapshot. The pricing engine implements
// it; the cart memoises its output.
type Calculator interface {
	Details(ctx context.Context, in pricing.QuoteInput) []pricing.ItemDetail
}

// Stats is the cache introspection result.
type Stats struct {
	Cached    bool `json:"cached"`
	CacheSize int  `json:"cache_size"`
}

// State is the serialized form persisted to the session store.
type State struct {
	ID          string        `json:"id"`
	Customer    customer.Ref  `json:"customer"`
	Items       []LineItem    `json:"items"`
	NextKey     int           `json:"nextKey"`
	Codes       []string      `json:"codes,omitempty"`
	Fees        []pricing.Fee `json:"fees,omitempty"`
	TaxOverride *pricing.Bps  `json:"taxOverride,omitempty"`
}

// Cart is the aggregate. It is mutated by one logical owner at a time;
// no locking is required.
type Cart struct {
	id       string
	cust     customer.Ref
	items    []LineItem
	nextKey  int
	codes    []string
	fees     []pricing.Fee
	taxRate  *pricing.Bps
	calc     Calculator
	caching  bool
	cached   bool
	details  []pricing.ItemDetail
	memoSize int
}

// Option customises cart construction.
type Option func(*Cart)

// WithCaching enables the contents-details memo. Caching is opt-in;
// when disabled every read recomputes.
func WithCaching(enabled bool) Option {
	return func(c *Cart) { c.caching = enabled }
}

// WithCustomer attaches the buyer identity used for once-per-customer
// discount checks.
func WithCustomer(ref customer.Ref) Option {
	return func(c *Cart) { c.cust = ref }
}

// New constructs an empty cart.
func New(id string, calc Calculator, opts ...Option) *Cart {
	c := &Cart{id: id, calc: calc}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Restore rebuilds a cart from session state. The memo always starts
// unpopulated: each request begins with a cold slot.
func Restore(st State, calc Calculator, opts ...Option) *Cart {
	c := New(st.ID, calc, opts...)
	c.cust = st.Customer
	c.items = st.Items
	c.nextKey = st.NextKey
	c.codes = st.Codes
	c.fees = st.Fees
	c.taxRate = st.TaxOverride
	return c
}

// ID returns the session identifier the cart is keyed by.
func (c *Cart) ID() string { return c.id }

// Snapshot captures the serializable cart state.
func (c *Cart) Snapshot() State {
	return State{
		ID:          c.id,
		Customer:    c.cust,
		Items:       append([]LineItem(nil), c.items...),
		NextKey:     c.nextKey,
		Codes:       append([]string(nil), c.codes...),
		Fees:        append([]pricing.Fee(nil), c.fees...),
		TaxOverride: c.taxRate,
	}
}

// Items returns a copy of the line items in insertion order.
func (c *Cart) Items() []LineItem {
	return append([]LineItem(nil), c.items...)
}

// Codes returns the applied discount codes in application order.
func (c *Cart) Codes() []string {
	return append([]string(nil), c.codes...)
}

// Fees returns the order-level fees.
func (c *Cart) Fees() []pricing.Fee {
	return append([]pricing.Fee(nil), c.fees...)
}

// TaxOverride returns the pinned tax rate, nil meaning unknown.
func (c *Cart) TaxOverride() *pricing.Bps { return c.taxRate }

// AddItem appends a line or increments an identical existing one.
// The line's key reflects its original insertion position.
func (c *Cart) AddItem(productID uuid.UUID, variantID *uuid.UUID, unitPrice pricing.Money, qty int, options map[string]string) (int, error) {
	if productID == uuid.Nil {
		return 0, fmt.Errorf("product id required: %w", ErrInvalidInput)
	}
	if qty <= 0 {
		return 0, fmt.Errorf("qty must be positive: %w", ErrInvalidInput)
	}
	for i := range c.items {
		if sameLine(c.items[i], productID, variantID, options) {
			c.items[i].Qty += qty
			c.invalidate()
			return c.items[i].Key, nil
		}
	}
	key := c.nextKey
	c.nextKey++
	c.items = append(c.items, LineItem{
		Key:       key,
		ProductID: productID,
		VariantID: variantID,
		UnitPrice: unitPrice,
		Qty:       qty,
		Options:   options,
	})
	c.invalidate()
	return key, nil
}

// UpdateQty changes a line quantity.
func (c *Cart) UpdateQty(key, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("qty must be positive: %w", ErrInvalidInput)
	}
	for i := range c.items {
		if c.items[i].Key == key {
			c.items[i].Qty = qty
			c.invalidate()
			return nil
		}
	}
	return ErrNotFound
}

// RemoveItem deletes a line; its key is never reused.
func (c *Cart) RemoveItem(key int) error {
	for i := range c.items {
		if c.items[i].Key == key {
			c.items = append(c.items[:i], c.items[i+1:]...)
			c.invalidate()
			return nil
		}
	}
	return ErrNotFound
}

// Empty clears items, codes and fees but keeps the tax override.
func (c *Cart) Empty() {
	c.items = nil
	c.codes = nil
	c.fees = nil
	c.invalidate()
}

// ApplyCode appends a discount code. Codes stay ordered and unique.
func (c *Cart) ApplyCode(code string) error {
	if code == "" {
		return fmt.Errorf("code required: %w", ErrInvalidInput)
	}
	for _, existing := range c.codes {
		if existing == code {
			return fmt.Errorf("code already applied: %w", ErrInvalidInput)
		}
	}
	c.codes = append(c.codes, code)
	c.invalidate()
	return nil
}

// RemoveCode detaches a discount code.
func (c *Cart) RemoveCode(code string) error {
	for i, existing := range c.codes {
		if existing == code {
			c.codes = append(c.codes[:i], c.codes[i+1:]...)
			c.invalidate()
			return nil
		}
	}
	return ErrNotFound
}

// AddFee appends an order-level fee.
func (c *Cart) AddFee(fee pricing.Fee) {
	c.fees = append(c.fees, fee)
	c.invalidate()
}

// SetTaxRate pins an explicit rate or, with nil, marks the effective
// rate unknown. Only the nil case invalidates: cached totals computed
// under an explicit pin stay valid, while an unknown rate means they
// may no longer apply.
func (c *Cart) SetTaxRate(rate *pricing.Bps) {
	c.taxRate = rate
	if rate == nil {
		c.invalidate()
	}
}

// InvalidateCache clears the memo slot.
func (c *Cart) InvalidateCache() {
	c.invalidate()
}

func (c *Cart) invalidate() {
	if !c.caching {
		return
	}
	if c.cached {
		obs.CacheEvent("invalidate")
	}
	c.cached = false
	c.details = nil
	c.memoSize = 0
}

// ContentsDetails returns the per-item pricing details, serving the
// memo when populated and recomputing otherwise.
func (c *Cart) ContentsDetails(ctx context.Context) []pricing.ItemDetail {
	if c.caching && c.cached {
		obs.CacheEvent("hit")
		return c.details
	}
	obs.CacheEvent("miss")
	var details []pricing.ItemDetail
	if c.calc != nil {
		details = c.calc.Details(ctx, c.quoteInput())
	}
	if c.caching {
		c.details = details
		c.memoSize = len(details)
		c.cached = true
	}
	return details
}

// CalculationStats reports cache state without mutating it.
func (c *Cart) CalculationStats() Stats {
	if !c.caching || !c.cached {
		return Stats{}
	}
	return Stats{Cached: true, CacheSize: c.memoSize}
}

// Summary aggregates the detail array plus fees.
func (c *Cart) Summary(ctx context.Context) pricing.Summary {
	return pricing.Summarize(c.ContentsDetails(ctx), c.fees)
}

// Subtotal sums the undiscounted line values.
func (c *Cart) Subtotal(ctx context.Context) pricing.Money {
	return c.Summary(ctx).Subtotal
}

// Discount sums the per-item discount allocations.
func (c *Cart) Discount(ctx context.Context) pricing.Money {
	return c.Summary(ctx).Discount
}

// Tax sums the per-item tax amounts.
func (c *Cart) Tax(ctx context.Context) pricing.Money {
	return c.Summary(ctx).Tax
}

// Total is subtotal minus discount plus tax plus fees.
func (c *Cart) Total(ctx context.Context) pricing.Money {
	return c.Summary(ctx).Total
}

func (c *Cart) quoteInput() pricing.QuoteInput {
	items := make([]discount.CartItem, 0, len(c.items))
	for _, li := range c.items {
		items = append(items, discount.CartItem{
			Key:       li.Key,
			ProductID: li.ProductID,
			VariantID: li.VariantID,
			Qty:       li.Qty,
			UnitPrice: li.UnitPrice,
			Subtotal:  li.Subtotal(),
			Options:   li.Options,
		})
	}
	return pricing.QuoteInput{
		Items:       items,
		Codes:       append([]string(nil), c.codes...),
		Fees:        append([]pricing.Fee(nil), c.fees...),
		TaxOverride: c.taxRate,
		Customer:    c.cust,
	}
}

func sameLine(li LineItem, productID uuid.UUID, variantID *uuid.UUID, options map[string]string) bool {
	if li.ProductID != productID {
		return false
	}
	if (li.VariantID == nil) != (variantID == nil) {
		return false
	}
	if li.VariantID != nil && *li.VariantID != *variantID {
		return false
	}
	return maps.Equal(li.Options, options)
}
