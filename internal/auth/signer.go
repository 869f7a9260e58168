package auth

import (
	"fmt"
	"strings"
)

// BearerToken builds the Authorization header value the ntfy webhook
// expects for an access token.
func BearerToken(token string) string {
	return fmt.Sprintf("Bearer %s", token)
}

// Redact masks a secret for display. Only the first four characters of
// tokens long enough to stay unguessable are kept.
func Redact(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) < 12 {
		return strings.Repeat("*", 8)
	}
	return secret[:4] + strings.Repeat("*", 8)
}
