// Package discount holds the promotional discount entity, its lifecycle
// state machine, and the eligibility rules evaluated against cart
// contents.
package discount

import (
	"time"

	"github.com/google/uuid"
)

// Kind distinguishes how the discount amount is interpreted.
type Kind string

const (
	// KindPercent treats Amount as basis points applied per item.
	KindPercent Kind = "percent"
	// KindFlat treats Amount as minor units apportioned across items.
	KindFlat Kind = "flat"
)

// Status is the administratively assigned state of a discount.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusArchived Status = "archived"
)

// Condition controls how product requirements combine.
type Condition string

const (
	// ConditionAll requires every listed product to be present.
	ConditionAll Condition = "all"
	// ConditionAny requires at least one listed product.
	ConditionAny Condition = "any"
)

// TermCondition marks the category list as allow-list or deny-list.
type TermCondition string

const (
	TermInclude TermCondition = "include"
	TermExclude TermCondition = "exclude"
)

// Scope controls whether required products must be the only cart items.
type Scope string

const (
	ScopeGlobal    Scope = "global"
	ScopeNotGlobal Scope = "not_global"
)

// ProductRef names a product, optionally pinned to a single variant.
// A nil VariantID matches any variant of the product.
type ProductRef struct {
	ProductID uuid.UUID  `json:"product_id"`
	VariantID *uuid.UUID `json:"variant_id,omitempty"`
}

// Discount is the promotional discount entity. It is owned by the
// discount repository; this engine reads it and only ever mutates the
// usage counter through the repository.
type Discount struct {
	ID     uuid.UUID
	Code   string
	Kind   Kind
	// Amount is signed. Negative amounts are promotional surcharges.
	// Flat kind: minor units. Percent kind: basis points.
	Amount           int64
	Status           Status
	StartsAt         *time.Time
	EndsAt           *time.Time
	MinCharge        int64
	MaxUses          int32 // 0 means unlimited
	UseCount         int32
	OncePerCustomer  bool
	ProductCondition Condition
	Requirements     []ProductRef
	Excluded         []ProductRef
	Categories       []uuid.UUID
	TermCondition    TermCondition
	Scope            Scope
}

// CartItem is the read model of a cart line used for eligibility and
// distribution. Key is the stable insertion position in the cart.
type CartItem struct {
	Key       int
	ProductID uuid.UUID
	VariantID *uuid.UUID
	Qty       int
	UnitPrice int64
	Subtotal  int64
	Options   map[string]string
}

// CategorySet is an item's category memberships expanded with ancestor
// categories, so an item in a child category counts as a member of the
// parent.
type CategorySet map[uuid.UUID]struct{}

// Has reports membership.
func (s CategorySet) Has(id uuid.UUID) bool {
	_, ok := s[id]
	return ok
}

// matchesRef reports whether the item satisfies the product reference.
// A bare reference matches any variant; a variant-pinned reference
// requires the exact variant. Items without a variant identifier carry
// no variant constraint and only match bare references.
func matchesRef(ref ProductRef, it CartItem) bool {
	if ref.ProductID != it.ProductID {
		return false
	}
	if ref.VariantID == nil {
		return true
	}
	return it.VariantID != nil && *it.VariantID == *ref.VariantID
}

func matchesAny(refs []ProductRef, it CartItem) bool {
	for _, ref := range refs {
		if matchesRef(ref, it) {
			return true
		}
	}
	return false
}
