package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-pricing/internal/pricing"
)

type countingCalc struct {
	calls int
}

func (c *countingCalc) Details(_ context.Context, in pricing.QuoteInput) []pricing.ItemDetail {
	c.calls++
	details := make([]pricing.ItemDetail, 0, len(in.Items))
	for _, it := range in.Items {
		details = append(details, pricing.ItemDetail{
			Key:      it.Key,
			Qty:      it.Qty,
			Subtotal: it.Subtotal,
			Total:    it.Subtotal,
		})
	}
	return details
}

func newCachedCart(t *testing.T) (*Cart, *countingCalc) {
	t.Helper()
	calc := &countingCalc{}
	return New(uuid.NewString(), calc, WithCaching(true)), calc
}

func TestAddItemMergesIdenticalLines(t *testing.T) {
	c, _ := newCachedCart(t)
	pid := uuid.New()

	k1, err := c.AddItem(pid, nil, 100, 1, map[string]string{"size": "M"})
	require.NoError(t, err)
	k2, err := c.AddItem(pid, nil, 100, 2, map[string]string{"size": "M"})
	require.NoError(t, err)
	require.Equal(t, k1, k2)

	items := c.Items()
	require.Len(t, items, 1)
	require.Equal(t, 3, items[0].Qty)

	// Different options start a new line with a fresh key.
	k3, err := c.AddItem(pid, nil, 100, 1, map[string]string{"size": "L"})
	require.NoError(t, err)
	require.NotEqual(t, k1, k3)
	require.Len(t, c.Items(), 2)
}

func TestKeysAreNeverReused(t *testing.T) {
	c, _ := newCachedCart(t)

	k0, err := c.AddItem(uuid.New(), nil, 100, 1, nil)
	require.NoError(t, err)
	require.NoError(t, c.RemoveItem(k0))

	k1, err := c.AddItem(uuid.New(), nil, 100, 1, nil)
	require.NoError(t, err)
	require.Greater(t, k1, k0)
}

func TestContentsDetailsMemoises(t *testing.T) {
	ctx := context.Background()
	c, calc := newCachedCart(t)
	_, err := c.AddItem(uuid.New(), nil, 100, 2, nil)
	require.NoError(t, err)

	first := c.ContentsDetails(ctx)
	second := c.ContentsDetails(ctx)
	require.Equal(t, first, second)
	require.Equal(t, 1, calc.calls)

	stats := c.CalculationStats()
	require.True(t, stats.Cached)
	require.Equal(t, 1, stats.CacheSize)
}

func TestEveryMutationInvalidates(t *testing.T) {
	ctx := context.Background()

	mutations := []struct {
		name string
		run  func(t *testing.T, c *Cart, key int)
	}{
		{"AddItem", func(t *testing.T, c *Cart, _ int) {
			_, err := c.AddItem(uuid.New(), nil, 50, 1, nil)
			require.NoError(t, err)
		}},
		{"UpdateQty", func(t *testing.T, c *Cart, key int) {
			require.NoError(t, c.UpdateQty(key, 5))
		}},
		{"RemoveItem", func(t *testing.T, c *Cart, key int) {
			require.NoError(t, c.RemoveItem(key))
		}},
		{"Empty", func(t *testing.T, c *Cart, _ int) {
			c.Empty()
		}},
		{"ApplyCode", func(t *testing.T, c *Cart, _ int) {
			require.NoError(t, c.ApplyCode("SAVE20"))
		}},
		{"AddFee", func(t *testing.T, c *Cart, _ int) {
			c.AddFee(pricing.Fee{Name: "shipping", Amount: 499})
		}},
		{"ClearTaxRate", func(t *testing.T, c *Cart, _ int) {
			c.SetTaxRate(nil)
		}},
		{"InvalidateCache", func(t *testing.T, c *Cart, _ int) {
			c.InvalidateCache()
		}},
	}

	for _, m := range mutations {
		t.Run(m.name, func(t *testing.T) {
			c, _ := newCachedCart(t)
			key, err := c.AddItem(uuid.New(), nil, 100, 1, nil)
			require.NoError(t, err)

			c.ContentsDetails(ctx)
			require.True(t, c.CalculationStats().Cached)

			m.run(t, c, key)
			require.False(t, c.CalculationStats().Cached)
			require.Equal(t, Stats{}, c.CalculationStats())
		})
	}
}

func TestRemoveCodeInvalidates(t *testing.T) {
	ctx := context.Background()
	c, _ := newCachedCart(t)
	require.NoError(t, c.ApplyCode("SAVE20"))

	c.ContentsDetails(ctx)
	require.True(t, c.CalculationStats().Cached)

	require.NoError(t, c.RemoveCode("SAVE20"))
	require.False(t, c.CalculationStats().Cached)
	require.Empty(t, c.Codes())
}

func TestSetExplicitTaxRateKeepsMemo(t *testing.T) {
	ctx := context.Background()
	c, _ := newCachedCart(t)
	_, err := c.AddItem(uuid.New(), nil, 100, 1, nil)
	require.NoError(t, err)

	c.ContentsDetails(ctx)
	require.True(t, c.CalculationStats().Cached)

	rate := pricing.Bps(1500)
	c.SetTaxRate(&rate)
	require.True(t, c.CalculationStats().Cached)
	require.Equal(t, &rate, c.TaxOverride())

	c.SetTaxRate(nil)
	require.False(t, c.CalculationStats().Cached)
	require.Nil(t, c.TaxOverride())
}

func TestCachingDisabledAlwaysRecomputes(t *testing.T) {
	ctx := context.Background()
	calc := &countingCalc{}
	c := New(uuid.NewString(), calc, WithCaching(false))
	_, err := c.AddItem(uuid.New(), nil, 100, 1, nil)
	require.NoError(t, err)

	c.ContentsDetails(ctx)
	c.ContentsDetails(ctx)
	require.Equal(t, 2, calc.calls)
	require.Equal(t, Stats{}, c.CalculationStats())
}

func TestEmptyKeepsTaxOverride(t *testing.T) {
	c, _ := newCachedCart(t)
	rate := pricing.Bps(1000)
	c.SetTaxRate(&rate)
	_, err := c.AddItem(uuid.New(), nil, 100, 1, nil)
	require.NoError(t, err)
	require.NoError(t, c.ApplyCode("SAVE20"))
	c.AddFee(pricing.Fee{Name: "gift", Amount: 100})

	c.Empty()

	require.Empty(t, c.Items())
	require.Empty(t, c.Codes())
	require.Empty(t, c.Fees())
	require.Equal(t, &rate, c.TaxOverride())
}

func TestApplyCodeOrderedUnique(t *testing.T) {
	c, _ := newCachedCart(t)
	require.NoError(t, c.ApplyCode("A"))
	require.NoError(t, c.ApplyCode("B"))
	require.ErrorIs(t, c.ApplyCode("A"), ErrInvalidInput)
	require.Equal(t, []string{"A", "B"}, c.Codes())
}

func TestInputValidation(t *testing.T) {
	c, _ := newCachedCart(t)

	_, err := c.AddItem(uuid.Nil, nil, 100, 1, nil)
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = c.AddItem(uuid.New(), nil, 100, 0, nil)
	require.ErrorIs(t, err, ErrInvalidInput)

	require.ErrorIs(t, c.UpdateQty(0, 0), ErrInvalidInput)
	require.ErrorIs(t, c.UpdateQty(99, 1), ErrNotFound)
	require.ErrorIs(t, c.RemoveItem(99), ErrNotFound)
	require.ErrorIs(t, c.RemoveCode("MISSING"), ErrNotFound)
	require.ErrorIs(t, c.ApplyCode(""), ErrInvalidInput)
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	calc := &countingCalc{}
	c := New("sess-1", calc, WithCaching(true))
	_, err := c.AddItem(uuid.New(), nil, 100, 2, nil)
	require.NoError(t, err)
	require.NoError(t, c.ApplyCode("SAVE20"))
	rate := pricing.Bps(1500)
	c.SetTaxRate(&rate)
	c.ContentsDetails(ctx)

	restored := Restore(c.Snapshot(), calc, WithCaching(true))

	require.Equal(t, c.ID(), restored.ID())
	require.Equal(t, c.Items(), restored.Items())
	require.Equal(t, c.Codes(), restored.Codes())
	require.Equal(t, c.TaxOverride(), restored.TaxOverride())
	// The memo never survives a restore.
	require.False(t, restored.CalculationStats().Cached)
}
