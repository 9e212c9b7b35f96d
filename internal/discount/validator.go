package discount

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-pricing/internal/customer"
)

// ErrNotFound indicates no discount exists for the requested code.
var ErrNotFound = errors.New("discount not found")

// Repository is the persisted discount collaborator. The engine reads
// discounts and delegates the usage-counter mutation back to it.
type Repository interface {
	GetByCode(ctx context.Context, code string) (Discount, error)
	IncrementUsage(ctx context.Context, id uuid.UUID) error
	DecrementUsage(ctx context.Context, id uuid.UUID) error
	// MarkExpired persists the expired state so later reads short-circuit.
	MarkExpired(ctx context.Context, id uuid.UUID) error
}

// UsageChecker answers whether a customer already has a completed order
// that used the discount.
type UsageChecker interface {
	HasUsed(ctx context.Context, ref customer.Ref, discountID uuid.UUID) (bool, error)
}

// CategoryExpander returns an item's category memberships expanded with
// ancestor categories.
type CategoryExpander interface {
	ExpandProduct(ctx context.Context, productID uuid.UUID) (CategorySet, error)
}

// Resolved pairs a discount with the set of cart item keys it may be
// distributed over.
type Resolved struct {
	Discount Discount
	// Eligible holds the keys of items the discount applies to, in
	// cart insertion order.
	Eligible map[int]bool
}

// Service evaluates discount validity and eligibility. All checks
// return plain booleans so callers can chain them; lookup failures are
// logged and treated as ineligible rather than raised.
type Service struct {
	Repo       Repository
	Usage      UsageChecker
	Categories CategoryExpander
	Now        func() time.Time
	Log        zerolog.Logger
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// IsActive reports whether the discount is in the active lifecycle
// state. When persistExpiry is set and the discount has expired, the
// expiry is written back through the repository as a side effect,
// decoupled from the boolean result.
func (s *Service) IsActive(ctx context.Context, d Discount, persistExpiry bool) bool {
	st := StateAt(d, s.now())
	if st == StateExpired && persistExpiry && s.Repo != nil {
		if err := s.Repo.MarkExpired(ctx, d.ID); err != nil {
			s.Log.Warn().Err(err).Str("code", d.Code).Msg("persist discount expiry")
		}
	}
	return st == StateActive
}

// IsValid reports whether the discount may legally apply to the cart:
// active, not at its usage cap, honours once-per-customer, meets the
// minimum charge over its discountable subtotal, and satisfies product
// and category rules.
func (s *Service) IsValid(ctx context.Context, d Discount, items []CartItem, cust customer.Ref) bool {
	if !s.IsActive(ctx, d, false) {
		return false
	}
	if d.OncePerCustomer && !cust.IsZero() {
		if s.Usage == nil {
			return false
		}
		used, err := s.Usage.HasUsed(ctx, cust, d.ID)
		if err != nil {
			s.Log.Warn().Err(err).Str("code", d.Code).Msg("check customer usage")
			return false
		}
		if used {
			return false
		}
	}
	if !ProductRequirementsMet(d, items) {
		return false
	}
	cats := s.categorySets(ctx, items)
	if !ValidForCategories(d, items, cats) {
		return false
	}
	if eligibleSubtotal(d, items, cats) < d.MinCharge {
		return false
	}
	return true
}

// Resolve looks up a code and evaluates it against the cart. A missing
// or invalid code yields ok=false so the distributor can silently skip
// it; user-facing messaging is the caller's concern.
func (s *Service) Resolve(ctx context.Context, code string, items []CartItem, cust customer.Ref) (Resolved, bool) {
	if s == nil || s.Repo == nil || code == "" {
		return Resolved{}, false
	}
	d, err := s.Repo.GetByCode(ctx, code)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.Log.Warn().Err(err).Str("code", code).Msg("load discount")
		}
		return Resolved{}, false
	}
	if !s.IsValid(ctx, d, items, cust) {
		return Resolved{}, false
	}
	cats := s.categorySets(ctx, items)
	eligible := make(map[int]bool, len(items))
	for _, it := range items {
		if AppliesToItem(d, it, cats[it.Key]) {
			eligible[it.Key] = true
		}
	}
	return Resolved{Discount: d, Eligible: eligible}, true
}

// categorySets resolves expanded category memberships per item key.
// Expansion failures degrade to an empty set for that item.
func (s *Service) categorySets(ctx context.Context, items []CartItem) map[int]CategorySet {
	sets := make(map[int]CategorySet, len(items))
	for _, it := range items {
		if s.Categories == nil {
			sets[it.Key] = CategorySet{}
			continue
		}
		set, err := s.Categories.ExpandProduct(ctx, it.ProductID)
		if err != nil {
			s.Log.Warn().Err(err).Str("product", it.ProductID.String()).Msg("expand categories")
			set = CategorySet{}
		}
		sets[it.Key] = set
	}
	return sets
}

// ProductRequirementsMet evaluates excluded products and the ALL/ANY
// product requirement condition. Excluded products short-circuit the
// whole discount; empty requirements are trivially satisfied. A
// not_global scope additionally demands that every cart item match a
// requirement.
func ProductRequirementsMet(d Discount, items []CartItem) bool {
	for _, it := range items {
		if matchesAny(d.Excluded, it) {
			return false
		}
	}
	if len(d.Requirements) == 0 {
		return true
	}
	if d.Scope == ScopeNotGlobal {
		for _, it := range items {
			if !matchesAny(d.Requirements, it) {
				return false
			}
		}
	}
	switch d.ProductCondition {
	case ConditionAll:
		for _, ref := range d.Requirements {
			found := false
			for _, it := range items {
				if matchesRef(ref, it) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
		return true
	default: // ConditionAny
		for _, it := range items {
			if matchesAny(d.Requirements, it) {
				return true
			}
		}
		return false
	}
}

// ValidForCategories checks the category allow/deny list against the
// items' ancestor-expanded category sets.
func ValidForCategories(d Discount, items []CartItem, cats map[int]CategorySet) bool {
	if len(d.Categories) == 0 {
		return true
	}
	anyMember := false
	for _, it := range items {
		if intersects(d.Categories, cats[it.Key]) {
			anyMember = true
			break
		}
	}
	if d.TermCondition == TermExclude {
		return !anyMember
	}
	return anyMember
}

// AppliesToItem is the per-item eligibility test shared by the
// distributor's weighting: an item excluded here receives zero for the
// code and is removed from the apportionment denominator entirely.
func AppliesToItem(d Discount, it CartItem, cats CategorySet) bool {
	if matchesAny(d.Excluded, it) {
		return false
	}
	if len(d.Requirements) > 0 && !matchesAny(d.Requirements, it) {
		return false
	}
	if len(d.Categories) > 0 {
		member := intersects(d.Categories, cats)
		if d.TermCondition == TermExclude {
			return !member
		}
		return member
	}
	return true
}

func eligibleSubtotal(d Discount, items []CartItem, cats map[int]CategorySet) int64 {
	var total int64
	for _, it := range items {
		if AppliesToItem(d, it, cats[it.Key]) {
			total += it.Subtotal
		}
	}
	return total
}

func intersects(ids []uuid.UUID, set CategorySet) bool {
	for _, id := range ids {
		if set.Has(id) {
			return true
		}
	}
	return false
}
