package pricing

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPercentOf(t *testing.T) {
	require.EqualValues(t, 200, PercentOf(1000, 2000))
	require.EqualValues(t, 0, PercentOf(0, 2000))
	require.EqualValues(t, 0, PercentOf(1000, 0))
	// 333 * 20% = 66.6 rounds to 67
	require.EqualValues(t, 67, PercentOf(333, 2000))
	// negative rate acts as a surcharge
	require.EqualValues(t, -200, PercentOf(1000, -2000))
}

func TestShareRoundsHalfAwayFromZero(t *testing.T) {
	// 1000 * 333/999 = 333.33...
	require.EqualValues(t, 333, Share(1000, 333, 999))
	// 100 * 1/3 = 33.33, 100 * 1/2 = 50
	require.EqualValues(t, 33, Share(100, 1, 3))
	require.EqualValues(t, 50, Share(100, 1, 2))
	require.EqualValues(t, 0, Share(100, 0, 3))
	require.EqualValues(t, 0, Share(100, 1, 0))
}

func TestParseAmount(t *testing.T) {
	got, err := ParseAmount("19.99")
	require.NoError(t, err)
	require.EqualValues(t, 1999, got)

	got, err = ParseAmount("-4.50")
	require.NoError(t, err)
	require.EqualValues(t, -450, got)

	_, err = ParseAmount("not-a-number")
	require.Error(t, err)
}

func TestParseRate(t *testing.T) {
	got, err := ParseRate("0.15")
	require.NoError(t, err)
	require.EqualValues(t, 1500, got)

	got, err = ParseRate("0.2")
	require.NoError(t, err)
	require.EqualValues(t, 2000, got)

	_, err = ParseRate("")
	require.Error(t, err)
}

func TestFormatAmount(t *testing.T) {
	require.Equal(t, "19.99", FormatAmount(1999))
	require.Equal(t, "-0.50", FormatAmount(-50))
	require.Equal(t, "0.00", FormatAmount(0))
}
