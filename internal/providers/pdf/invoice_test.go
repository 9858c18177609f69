package pdf

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateInvoice(t *testing.T) {
	r, err := New().GenerateInvoice(context.Background(), InvoiceData{
		SellerName:    "spacebook",
		InvoiceNumber: "INV-20240307-ZZZ",
		IssueDate:     "2024-03-07",
		DueDate:       "on receipt",
		Status:        "issued",
		BillToID:      "42",
		Items: []InvoiceItem{{
			Description: "Room A",
			Period:      "2024-03-08 10:00 - 11:30 UTC",
			Duration:    "90 min",
			Amount:      "15.00 USD",
		}},
		Total:     "15.00 USD",
		AmountDue: "0.00 USD",
	})
	require.NoError(t, err)

	body, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.True(t, len(body) > 4)
	assert.Equal(t, "%PDF", string(body[:4]))
}
