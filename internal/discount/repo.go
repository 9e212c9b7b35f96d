package discount

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/toko-pricing/internal/customer"
)

// PGRepo implements Repository and UsageChecker over Postgres.
type PGRepo struct {
	Pool *pgxpool.Pool
}

var _ Repository = (*PGRepo)(nil)
var _ UsageChecker = (*PGRepo)(nil)

// GetByCode loads a discount with its product and category rules.
func (r *PGRepo) GetByCode(ctx context.Context, code string) (Discount, error) {
	if r == nil || r.Pool == nil {
		return Discount{}, errors.New("discount repo not configured")
	}
	const q = `
		SELECT id, code, kind, amount, status, starts_at, ends_at,
		       min_charge, max_uses, use_count, once_per_customer,
		       product_condition, term_condition, scope
		FROM discounts WHERE code = $1`
	var (
		d        Discount
		startsAt pgtype.Timestamptz
		endsAt   pgtype.Timestamptz
	)
	err := r.Pool.QueryRow(ctx, q, code).Scan(
		&d.ID, &d.Code, &d.Kind, &d.Amount, &d.Status, &startsAt, &endsAt,
		&d.MinCharge, &d.MaxUses, &d.UseCount, &d.OncePerCustomer,
		&d.ProductCondition, &d.TermCondition, &d.Scope,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Discount{}, ErrNotFound
		}
		return Discount{}, err
	}
	if startsAt.Valid {
		t := startsAt.Time
		d.StartsAt = &t
	}
	if endsAt.Valid {
		t := endsAt.Time
		d.EndsAt = &t
	}
	if d.Requirements, err = r.productRefs(ctx, d.ID, false); err != nil {
		return Discount{}, err
	}
	if d.Excluded, err = r.productRefs(ctx, d.ID, true); err != nil {
		return Discount{}, err
	}
	if d.Categories, err = r.categories(ctx, d.ID); err != nil {
		return Discount{}, err
	}
	return d, nil
}

func (r *PGRepo) productRefs(ctx context.Context, id uuid.UUID, excluded bool) ([]ProductRef, error) {
	const q = `
		SELECT product_id, variant_id FROM discount_products
		WHERE discount_id = $1 AND excluded = $2
		ORDER BY product_id, variant_id`
	rows, err := r.Pool.Query(ctx, q, id, excluded)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var refs []ProductRef
	for rows.Next() {
		var ref ProductRef
		var variant pgtype.UUID
		if err := rows.Scan(&ref.ProductID, &variant); err != nil {
			return nil, err
		}
		if variant.Valid {
			v := uuid.UUID(variant.Bytes)
			ref.VariantID = &v
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

func (r *PGRepo) categories(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error) {
	const q = `SELECT category_id FROM discount_categories WHERE discount_id = $1 ORDER BY category_id`
	rows, err := r.Pool.Query(ctx, q, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uuid.UUID
	for rows.Next() {
		var cid uuid.UUID
		if err := rows.Scan(&cid); err != nil {
			return nil, err
		}
		ids = append(ids, cid)
	}
	return ids, rows.Err()
}

// IncrementUsage bumps use_count atomically, refusing to cross max_uses.
func (r *PGRepo) IncrementUsage(ctx context.Context, id uuid.UUID) error {
	const q = `
		UPDATE discounts SET use_count = use_count + 1
		WHERE id = $1 AND (max_uses = 0 OR use_count < max_uses)`
	tag, err := r.Pool.Exec(ctx, q, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errors.New("discount usage cap reached")
	}
	return nil
}

// DecrementUsage releases one use, e.g. after an order is cancelled.
func (r *PGRepo) DecrementUsage(ctx context.Context, id uuid.UUID) error {
	const q = `UPDATE discounts SET use_count = GREATEST(use_count - 1, 0) WHERE id = $1`
	_, err := r.Pool.Exec(ctx, q, id)
	return err
}

// MarkExpired persists the expired state for a discount whose end date
// has passed.
func (r *PGRepo) MarkExpired(ctx context.Context, id uuid.UUID) error {
	const q = `UPDATE discounts SET status = 'inactive' WHERE id = $1 AND status = 'active'`
	_, err := r.Pool.Exec(ctx, q, id)
	return err
}

// HasUsed reports whether the referenced customer already has a
// completed order recorded against the discount.
func (r *PGRepo) HasUsed(ctx context.Context, ref customer.Ref, discountID uuid.UUID) (bool, error) {
	if r == nil || r.Pool == nil {
		return false, errors.New("discount repo not configured")
	}
	var (
		q    string
		arg  any
		used int64
	)
	switch {
	case refHasCustomerID(ref):
		id, _ := ref.CustomerID()
		q = `SELECT COUNT(1) FROM discount_usages WHERE discount_id = $1 AND customer_id = $2`
		arg = id
	case refHasEmail(ref):
		email, _ := ref.Email()
		q = `SELECT COUNT(1) FROM discount_usages WHERE discount_id = $1 AND customer_email = $2`
		arg = email
	case refHasUserID(ref):
		id, _ := ref.UserID()
		q = `SELECT COUNT(1) FROM discount_usages WHERE discount_id = $1 AND user_id = $2`
		arg = id
	default:
		return false, nil
	}
	if err := r.Pool.QueryRow(ctx, q, discountID, arg).Scan(&used); err != nil {
		return false, err
	}
	return used > 0, nil
}

func refHasCustomerID(ref customer.Ref) bool { _, ok := ref.CustomerID(); return ok }
func refHasEmail(ref customer.Ref) bool      { _, ok := ref.Email(); return ok }
func refHasUserID(ref customer.Ref) bool     { _, ok := ref.UserID(); return ok }
