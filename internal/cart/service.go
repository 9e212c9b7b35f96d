package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-pricing/internal/catalog"
	"github.com/noah-isme/toko-pricing/internal/customer"
	"github.com/noah-isme/toko-pricing/internal/pricing"
	"github.com/noah-isme/toko-pricing/internal/session"
)

// Service loads carts from the session store, applies mutations, and
// writes the updated state back. Each request works on its own restored
// copy; the last write wins.
type Service struct {
	Sessions  *session.Store
	Products  catalog.ProductLookup
	Discounts pricing.DiscountSource
	Calc      Calculator
	Caching   bool
	Log       zerolog.Logger
}

// Create starts a new empty cart and persists it.
func (s *Service) Create(ctx context.Context, cust customer.Ref) (*Cart, error) {
	c := New(uuid.NewString(), s.Calc, WithCaching(s.Caching), WithCustomer(cust))
	if err := s.save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Load restores a cart by session id.
func (s *Service) Load(ctx context.Context, id string) (*Cart, error) {
	var st State
	ok, err := s.Sessions.Load(ctx, id, &st)
	if err != nil {
		return nil, fmt.Errorf("load cart %s: %w", id, err)
	}
	if !ok {
		return nil, ErrNotFound
	}
	return Restore(st, s.Calc, WithCaching(s.Caching)), nil
}

// Delete removes the persisted cart.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.Sessions.Delete(ctx, id)
}

func (s *Service) save(ctx context.Context, c *Cart) error {
	if err := s.Sessions.Save(ctx, c.ID(), c.Snapshot()); err != nil {
		return fmt.Errorf("save cart %s: %w", c.ID(), err)
	}
	return nil
}

// AddItem resolves the product's current price from the catalog and
// appends the line. The price is captured at add time.
func (s *Service) AddItem(ctx context.Context, c *Cart, productID uuid.UUID, variantID *uuid.UUID, qty int, options map[string]string) (int, error) {
	if productID == uuid.Nil {
		return 0, fmt.Errorf("product id required: %w", ErrInvalidInput)
	}
	p, err := s.Products.Product(ctx, productID, variantID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return 0, fmt.Errorf("product %s: %w", productID, ErrNotFound)
		}
		return 0, fmt.Errorf("resolve product %s: %w", productID, err)
	}
	key, err := c.AddItem(productID, variantID, p.Price, qty, options)
	if err != nil {
		return 0, err
	}
	return key, s.save(ctx, c)
}

// UpdateQty changes a line quantity and persists.
func (s *Service) UpdateQty(ctx context.Context, c *Cart, key, qty int) error {
	if err := c.UpdateQty(key, qty); err != nil {
		return err
	}
	return s.save(ctx, c)
}

// RemoveItem deletes a line and persists.
func (s *Service) RemoveItem(ctx context.Context, c *Cart, key int) error {
	if err := c.RemoveItem(key); err != nil {
		return err
	}
	return s.save(ctx, c)
}

// Empty clears the cart contents and persists.
func (s *Service) Empty(ctx context.Context, c *Cart) error {
	c.Empty()
	return s.save(ctx, c)
}

// ApplyDiscount validates the code against the current cart contents
// before attaching it. Codes that resolve but fail eligibility are
// rejected with ErrNotEligible.
func (s *Service) ApplyDiscount(ctx context.Context, c *Cart, code string) error {
	if code == "" {
		return fmt.Errorf("code required: %w", ErrInvalidInput)
	}
	if s.Discounts != nil {
		if _, ok := s.Discounts.Resolve(ctx, code, c.quoteInput().Items, c.cust); !ok {
			s.Log.Debug().Str("cart_id", c.ID()).Str("code", code).Msg("discount rejected")
			return fmt.Errorf("code %q: %w", code, ErrNotEligible)
		}
	}
	if err := c.ApplyCode(code); err != nil {
		return err
	}
	return s.save(ctx, c)
}

// RemoveDiscount detaches the code and persists.
func (s *Service) RemoveDiscount(ctx context.Context, c *Cart, code string) error {
	if err := c.RemoveCode(code); err != nil {
		return err
	}
	return s.save(ctx, c)
}

// AddFee appends an order-level fee and persists.
func (s *Service) AddFee(ctx context.Context, c *Cart, fee pricing.Fee) error {
	if fee.Name == "" {
		return fmt.Errorf("fee name required: %w", ErrInvalidInput)
	}
	c.AddFee(fee)
	return s.save(ctx, c)
}

// SetTaxRate pins or clears the cart's tax-rate override and persists.
func (s *Service) SetTaxRate(ctx context.Context, c *Cart, rate *pricing.Bps) error {
	c.SetTaxRate(rate)
	return s.save(ctx, c)
}
