package format

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

const DefaultInvoiceNumberTemplate = "{PREFIX}-{YYYY}{MM}{DD}-{ID36}"

// FormatInvoiceNumber renders template for an invoice issued at issuedAt.
// The snowflake id keeps numbers unique without a shared sequence.
//
// Supported tokens: {PREFIX} {YYYY} {YY} {MM} {DD} {ID} {ID36}.
func FormatInvoiceNumber(template, prefix string, issuedAt time.Time, id snowflake.ID) (string, error) {
	if template == "" {
		return "", fmt.Errorf("invoice number template is empty")
	}
	if id <= 0 {
		return "", fmt.Errorf("invalid invoice id: %d", id)
	}

	issuedAt = issuedAt.UTC()
	out := strings.NewReplacer(
		"{PREFIX}", strings.ToUpper(strings.TrimSpace(prefix)),
		"{YYYY}", issuedAt.Format("2006"),
		"{YY}", issuedAt.Format("06"),
		"{MM}", issuedAt.Format("01"),
		"{DD}", issuedAt.Format("02"),
		"{ID36}", strings.ToUpper(strconv.FormatInt(int64(id), 36)),
		"{ID}", id.String(),
	).Replace(template)

	if strings.Contains(out, "{") || strings.Contains(out, "}") {
		return "", fmt.Errorf("unresolved token in invoice format: %s", out)
	}
	return out, nil
}

// FormatAmount renders minor units as a decimal amount with the currency code,
// e.g. 1500 usd -> "15.00 USD".
func FormatAmount(minor int64, currency string) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, minor/100, minor%100, strings.ToUpper(currency))
}
