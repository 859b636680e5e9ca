package invoices

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMappingApplyMergesWhitelistedKeys(t *testing.T) {
	m := HeaderMapping{InvoiceNumber: "Invoice No", Quantity: "Qty"}
	err := m.Apply(map[string]string{
		"quantity": "Quantita",
		"price":    "Prezzo",
	})
	require.NoError(t, err)
	require.Equal(t, "Quantita", m.Quantity)
	require.Equal(t, "Prezzo", m.Price)
	require.Equal(t, "Invoice No", m.InvoiceNumber, "untouched fields must survive the merge")
}

func TestMappingApplyRejectsUnknownKeysWithoutMutating(t *testing.T) {
	m := HeaderMapping{Quantity: "Qty"}
	err := m.Apply(map[string]string{
		"quantity":  "Quantita",
		"__proto__": "polluted",
	})
	var unknown ErrUnknownMappingField
	require.ErrorAs(t, err, &unknown)
	require.Equal(t, "__proto__", unknown.Field)
	require.Equal(t, "Qty", m.Quantity, "a rejected update must not half-apply")
}

func TestSaveMappingPersistsMergedMapping(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	svc := newTestService(repo, nil)

	m, err := svc.SaveMapping(context.Background(), 7, map[string]string{"invoice_number": "Nr Fattura"})
	require.NoError(t, err)
	require.Equal(t, "Nr Fattura", m.InvoiceNumber)
	require.Equal(t, int64(7), m.SupplierID)

	m, err = svc.SaveMapping(context.Background(), 7, map[string]string{"quantity": "Quantita"})
	require.NoError(t, err)
	require.Equal(t, "Nr Fattura", m.InvoiceNumber, "later updates must merge, not replace")
	require.Equal(t, "Quantita", m.Quantity)
}

func TestMappingMissingReturnsEmptyRecord(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	svc := newTestService(repo, nil)

	m, err := svc.Mapping(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, int64(7), m.SupplierID)
	require.Empty(t, m.InvoiceNumber)
}
