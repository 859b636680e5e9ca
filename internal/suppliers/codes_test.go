package suppliers

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeCodes(t *testing.T) {
	require.Equal(t, []string{"SUP01"}, NormalizeCodes("SUP01"))
	require.Equal(t, []string{"SUP01", "SUP02"}, NormalizeCodes(" SUP01 , SUP02 "))
	require.Equal(t, []string{"SUP01"}, NormalizeCodes("SUP01,SUP01,"))
	require.Empty(t, NormalizeCodes(" , ,"))
	require.Empty(t, NormalizeCodes(""))
}

func TestSupplierCodes(t *testing.T) {
	s := Supplier{SupplierCode: "A1, B2"}
	require.Equal(t, []string{"A1", "B2"}, s.Codes())
}
