package discount

import "time"

// State is a point-in-time lifecycle state derived from the entity.
// pending -> active -> expired is driven by the clock against the
// validity window; active <-> maxed_out by the usage counter; archived
// and inactive are set administratively and absorb every other state.
type State string

const (
	StatePending  State = "pending"
	StateActive   State = "active"
	StateExpired  State = "expired"
	StateMaxedOut State = "maxed_out"
	StateInactive State = "inactive"
	StateArchived State = "archived"
)

// Window is a value object for an optional validity date range.
type Window struct {
	From *time.Time
	To   *time.Time
}

// NewWindow builds a window from explicit bounds. Either bound may be
// nil, meaning unbounded on that side.
func NewWindow(from, to *time.Time) Window {
	return Window{From: from, To: to}
}

// Before reports whether now is ahead of the window opening.
func (w Window) Before(now time.Time) bool {
	return w.From != nil && now.Before(*w.From)
}

// After reports whether now is past the window closing.
func (w Window) After(now time.Time) bool {
	return w.To != nil && now.After(*w.To)
}

// Contains reports whether now falls inside the window.
func (w Window) Contains(now time.Time) bool {
	return !w.Before(now) && !w.After(now)
}

// StateAt derives the lifecycle state of the discount at the given
// instant. Archived and inactive win over everything else; the date
// window is checked before the usage cap.
func StateAt(d Discount, now time.Time) State {
	switch d.Status {
	case StatusArchived:
		return StateArchived
	case StatusInactive:
		return StateInactive
	}
	w := NewWindow(d.StartsAt, d.EndsAt)
	if w.Before(now) {
		return StatePending
	}
	if w.After(now) {
		return StateExpired
	}
	if d.MaxUses > 0 && d.UseCount >= d.MaxUses {
		return StateMaxedOut
	}
	return StateActive
}
