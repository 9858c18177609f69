package format

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatInvoiceNumber(t *testing.T) {
	issuedAt := time.Date(2024, 3, 7, 23, 30, 0, 0, time.UTC)

	got, err := FormatInvoiceNumber(DefaultInvoiceNumberTemplate, "inv", issuedAt, snowflake.ID(46655))
	require.NoError(t, err)
	assert.Equal(t, "INV-20240307-ZZZ", got)

	_, err = FormatInvoiceNumber("{PREFIX}-{SEQ}", "INV", issuedAt, snowflake.ID(1))
	assert.Error(t, err)

	_, err = FormatInvoiceNumber(DefaultInvoiceNumberTemplate, "INV", issuedAt, 0)
	assert.Error(t, err)
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "15.00 USD", FormatAmount(1500, "usd"))
	assert.Equal(t, "0.05 EUR", FormatAmount(5, "eur"))
	assert.Equal(t, "-1.25 USD", FormatAmount(-125, "usd"))
}
