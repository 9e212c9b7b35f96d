package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/toko-pricing/internal/discount"
)

// Tree holds the category parent relationships. An item assigned to a
// child category counts as a member of every ancestor, so a discount
// scoped to a parent category implicitly covers its descendants.
type Tree struct {
	parent map[uuid.UUID]uuid.UUID
}

// NewTree builds a tree from child to parent edges.
func NewTree(parent map[uuid.UUID]uuid.UUID) *Tree {
	if parent == nil {
		parent = map[uuid.UUID]uuid.UUID{}
	}
	return &Tree{parent: parent}
}

// LoadTree reads the category table into memory.
func LoadTree(ctx context.Context, pool *pgxpool.Pool) (*Tree, error) {
	if pool == nil {
		return nil, errors.New("category tree: pool not configured")
	}
	rows, err := pool.Query(ctx, `SELECT id, parent_id FROM categories`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	parent := map[uuid.UUID]uuid.UUID{}
	for rows.Next() {
		var (
			id uuid.UUID
			p  pgtype.UUID
		)
		if err := rows.Scan(&id, &p); err != nil {
			return nil, err
		}
		if p.Valid {
			parent[id] = uuid.UUID(p.Bytes)
		}
	}
	return NewTree(parent), rows.Err()
}

// Expand returns the given categories plus all their ancestors.
func (t *Tree) Expand(ids []uuid.UUID) discount.CategorySet {
	set := discount.CategorySet{}
	if t == nil {
		return set
	}
	for _, id := range ids {
		cur := id
		for i := 0; i < len(t.parent)+1; i++ { // cycle guard
			if _, seen := set[cur]; seen {
				break
			}
			set[cur] = struct{}{}
			next, ok := t.parent[cur]
			if !ok {
				break
			}
			cur = next
		}
	}
	return set
}

// Expander resolves a product's ancestor-expanded category memberships
// for the discount validator.
type Expander struct {
	Lookup ProductLookup
	Tree   *Tree
}

var _ discount.CategoryExpander = (*Expander)(nil)

// ExpandProduct resolves the product's categories and expands them.
func (e *Expander) ExpandProduct(ctx context.Context, productID uuid.UUID) (discount.CategorySet, error) {
	if e == nil || e.Lookup == nil {
		return discount.CategorySet{}, nil
	}
	p, err := e.Lookup.Product(ctx, productID, nil)
	if err != nil {
		return nil, err
	}
	return e.Tree.Expand(p.CategoryIDs), nil
}
