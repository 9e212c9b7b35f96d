package pricing

// Modifier is an ordered pricing-adjustment strategy applied by the
// engine after discount distribution and tax. Modifiers replace ad-hoc
// interception of intermediate values: each receives the full quote
// input and the details computed so far and returns the adjusted
// details.
type Modifier interface {
	Name() string
	Apply(in QuoteInput, details []ItemDetail) []ItemDetail
}

// LineFloor clamps every line total at zero. Stacked surcharges and
// discounts can otherwise momentarily cross below it.
type LineFloor struct{}

// Name identifies the modifier in configuration and logs.
func (LineFloor) Name() string { return "line_floor" }

// Apply enforces the floor.
func (LineFloor) Apply(_ QuoteInput, details []ItemDetail) []ItemDetail {
	for i := range details {
		if details[i].Total < 0 {
			details[i].Total = 0
		}
	}
	return details
}
