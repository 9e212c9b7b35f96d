package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGLookup implements ProductLookup over Postgres.
type PGLookup struct {
	Pool *pgxpool.Pool
}

var _ ProductLookup = (*PGLookup)(nil)

// Product loads a product and, when a variant is requested, overlays
// the variant price after checking it belongs to the product.
func (l *PGLookup) Product(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) (Product, error) {
	if l == nil || l.Pool == nil {
		return Product{}, errors.New("catalog lookup not configured")
	}
	var p Product
	err := l.Pool.QueryRow(ctx,
		`SELECT id, title, price, tax_class FROM products WHERE id = $1`,
		productID,
	).Scan(&p.ID, &p.Title, &p.Price, &p.TaxClass)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, err
	}
	if variantID != nil {
		var (
			owner uuid.UUID
			price int64
		)
		err := l.Pool.QueryRow(ctx,
			`SELECT product_id, price FROM product_variants WHERE id = $1`,
			*variantID,
		).Scan(&owner, &price)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return Product{}, ErrNotFound
			}
			return Product{}, err
		}
		if owner != productID {
			return Product{}, ErrNotFound
		}
		p.VariantID = variantID
		p.Price = price
	}
	rows, err := l.Pool.Query(ctx,
		`SELECT category_id FROM product_categories WHERE product_id = $1 ORDER BY category_id`,
		productID,
	)
	if err != nil {
		return Product{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var cid uuid.UUID
		if err := rows.Scan(&cid); err != nil {
			return Product{}, err
		}
		p.CategoryIDs = append(p.CategoryIDs, cid)
	}
	return p, rows.Err()
}
