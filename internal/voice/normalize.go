package voice

import "strings"

// Normalize canonicalizes raw recognized text: lowercase, whitespace runs
// collapsed to single spaces, trimmed. Total and idempotent.
func Normalize(raw string) string {
	return strings.Join(strings.Fields(strings.ToLower(raw)), " ")
}
