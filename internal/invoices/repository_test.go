package invoices

import (
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestDecimalNumericRoundTrip(t *testing.T) {
	for _, raw := range []string{"0", "12", "10.50", "-3.25", "0.001"} {
		want, err := decimal.NewFromString(raw)
		require.NoError(t, err)

		n, err := decimalToNumeric(want)
		require.NoError(t, err)
		require.True(t, n.Valid)

		got := numericToDecimal(n)
		require.True(t, want.Equal(got), "round trip %s gave %s", raw, got)
	}
}

func TestNumericToDecimalInvalidIsZero(t *testing.T) {
	got := numericToDecimal(pgtype.Numeric{})
	require.True(t, got.IsZero())
}
