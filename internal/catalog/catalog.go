// Package catalog is the product lookup collaborator: id plus optional
// variant resolve to a unit price and tax classification. The pricing
// engine never queries the data store directly.
package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/noah-isme/toko-pricing/internal/pricing"
)

// ErrNotFound indicates the product or variant does not resolve.
var ErrNotFound = errors.New("product not found")

// Product is the catalog read model used for cart pricing.
type Product struct {
	ID          uuid.UUID   `json:"id"`
	VariantID   *uuid.UUID  `json:"variantId,omitempty"`
	Title       string      `json:"title"`
	Price       int64       `json:"price"`
	TaxClass    string      `json:"taxClass"`
	CategoryIDs []uuid.UUID `json:"categoryIds"`
}

// ProductLookup resolves a product, optionally pinned to a variant
// whose price overrides the product price.
type ProductLookup interface {
	Product(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) (Product, error)
}

// Source adapts a ProductLookup to the pricing engine's ProductSource.
type Source struct {
	Lookup ProductLookup
}

// Resolve fetches the product slice the engine needs.
func (s Source) Resolve(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) (pricing.ProductInfo, error) {
	if s.Lookup == nil {
		return pricing.ProductInfo{}, ErrNotFound
	}
	p, err := s.Lookup.Product(ctx, productID, variantID)
	if err != nil {
		return pricing.ProductInfo{}, err
	}
	return pricing.ProductInfo{Price: p.Price, TaxClass: p.TaxClass}, nil
}
