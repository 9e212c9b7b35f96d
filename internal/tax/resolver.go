// Package tax supplies the effective tax rate for a cart, either from
// an explicit pinned override or derived from buyer-location context.
package tax

import (
	"context"
	"strings"

	"github.com/noah-isme/toko-pricing/internal/pricing"
)

// Location is the buyer context a rate is derived from.
type Location struct {
	Country    string
	Region     string
	PostalCode string
}

// RateProvider derives a rate for a location.
type RateProvider interface {
	Rate(ctx context.Context, loc Location) (pricing.Bps, error)
}

// Resolver distinguishes an explicitly pinned rate from "unknown, must
// recompute". A nil override means the rate has to be derived.
type Resolver struct {
	Provider RateProvider
	Default  pricing.Bps
}

// Resolve returns the pinned rate when set, otherwise derives one from
// the location. Provider failures fall back to the default rate.
func (r *Resolver) Resolve(ctx context.Context, override *pricing.Bps, loc Location) pricing.Bps {
	if override != nil {
		return *override
	}
	if r == nil {
		return 0
	}
	if r.Provider != nil {
		if rate, err := r.Provider.Rate(ctx, loc); err == nil {
			return rate
		}
	}
	return r.Default
}

// StaticProvider maps "country" or "country/region" keys to rates.
type StaticProvider struct {
	Rates   map[string]pricing.Bps
	Default pricing.Bps
}

// Rate looks up the most specific configured rate.
func (p StaticProvider) Rate(_ context.Context, loc Location) (pricing.Bps, error) {
	country := strings.ToUpper(strings.TrimSpace(loc.Country))
	region := strings.ToUpper(strings.TrimSpace(loc.Region))
	if region != "" {
		if rate, ok := p.Rates[country+"/"+region]; ok {
			return rate, nil
		}
	}
	if rate, ok := p.Rates[country]; ok {
		return rate, nil
	}
	return p.Default, nil
}

// Source adapts a Resolver to the pricing engine's TaxSource for a
// fixed way of obtaining the buyer location.
type Source struct {
	Resolver *Resolver
	Location func(ctx context.Context) Location
}

// Rate derives the effective rate with no override in play.
func (s Source) Rate(ctx context.Context) pricing.Bps {
	var loc Location
	if s.Location != nil {
		loc = s.Location(ctx)
	}
	return s.Resolver.Resolve(ctx, nil, loc)
}
