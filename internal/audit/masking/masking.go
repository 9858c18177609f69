// Package masking redacts payment secrets before they reach the audit trail.
package masking

import "strings"

const maskToken = "****"

// SecretKeys are metadata keys whose string values identify or unlock a
// gateway payment. They are stored masked.
var SecretKeys = []string{
	"payment_intent_id",
	"client_secret",
	"stripe_signature",
}

// MaskSecret keeps the gateway prefix (pi_, pi_..._secret_) and the last four
// characters so an operator can still match an entry against the gateway
// dashboard.
func MaskSecret(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}

	prefix, remainder := splitPrefix(trimmed)
	if len(remainder) <= 4 {
		return prefix + maskToken
	}
	return prefix + maskToken + remainder[len(remainder)-4:]
}

// Metadata returns a copy of metadata with SecretKeys values masked at any
// depth. Keys are trimmed and empty keys dropped. Other values are kept as is.
func Metadata(metadata map[string]any) map[string]any {
	out := make(map[string]any, len(metadata))
	for key, value := range metadata {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if isSecretKey(key) {
			if str, ok := value.(string); ok {
				out[key] = MaskSecret(str)
				continue
			}
		}
		out[key] = maskNested(value)
	}
	return out
}

func maskNested(value any) any {
	switch cast := value.(type) {
	case map[string]any:
		return Metadata(cast)
	case []any:
		items := make([]any, 0, len(cast))
		for _, item := range cast {
			items = append(items, maskNested(item))
		}
		return items
	default:
		return value
	}
}

func isSecretKey(key string) bool {
	for _, secret := range SecretKeys {
		if strings.EqualFold(key, secret) {
			return true
		}
	}
	return false
}

func splitPrefix(value string) (string, string) {
	last := strings.LastIndex(value, "_")
	if last == -1 || last == len(value)-1 {
		return "", value
	}
	return value[:last+1], value[last+1:]
}
