// Package keys defines how metric records and cached explanations are laid
// out in the key-value store.
//
// Metric records live under "<query>:<itemId>". Cached explanations live under
// "explanation:<id>". The explanation prefix is reserved by convention only: a
// metric query literally named "explanation" collides with the cache namespace
// and nothing here prevents it.
package keys

import (
	"strings"
)

// Separator joins the query and item id of a composite key.
const Separator = ":"

// ExplanationPrefix is the reserved namespace for cached explanations.
const ExplanationPrefix = "explanation" + Separator

// Encode builds the composite key for a (query, itemId) pair.
func Encode(query, itemID string) string {
	return query + Separator + itemID
}

// Decode splits a composite key on the first separator only, so an item id
// that itself contains the separator is returned intact. ok is false when the
// key has no separator.
func Decode(key string) (query, itemID string, ok bool) {
	query, itemID, ok = strings.Cut(key, Separator)
	return query, itemID, ok
}

// EncodeExplanation returns the namespaced cache key for an explanation id.
func EncodeExplanation(id string) string {
	return ExplanationPrefix + id
}

// IsExplanation reports whether key belongs to the explanation namespace.
func IsExplanation(key string) bool {
	return strings.HasPrefix(key, ExplanationPrefix)
}

// NormalizeQuery returns the canonical stored form of a query.
func NormalizeQuery(query string) string {
	return strings.ToLower(query)
}

// IsNormalized reports whether query is already in canonical form.
func IsNormalized(query string) bool {
	return query == NormalizeQuery(query)
}

var patternEscaper = strings.NewReplacer(
	`\`, `\\`,
	`*`, `\*`,
	`?`, `\?`,
	`[`, `\[`,
	`]`, `\]`,
)

// EscapePattern escapes the glob metacharacters understood by SCAN MATCH.
func EscapePattern(s string) string {
	return patternEscaper.Replace(s)
}
