// Package flatid canonicalizes the short flat identifiers used as keys
// throughout the identity store, the station registry, and both WebSocket
// channels.
package flatid

import "strings"

// Canonicalize trims surrounding whitespace and uppercases the id. All
// comparisons and map keys across the server use this form.
func Canonicalize(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}
