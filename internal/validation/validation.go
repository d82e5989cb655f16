package validation

import (
	"bytes"
	"strings"
	"unicode"
	"unicode/utf8"

	"metricbridge/internal/keys"
	"metricbridge/internal/models"
)

// Length limits for path and body identifiers.
const (
	MaxQueryLength  = 256
	MaxItemIDLength = 512
	MaxIDLength     = 256
)

// ReservedExplanationID is routed to the cache flush, so an entry stored
// under it could never be read back.
const ReservedExplanationID = "flush"

// ValidateQuery checks a query component. The separator is rejected because
// a query containing it cannot be told apart from its item id.
func ValidateQuery(query string) (bool, string) {
	if ok, msg := validateText("query", query, MaxQueryLength); !ok {
		return false, msg
	}
	if strings.Contains(query, keys.Separator) {
		return false, "query must not contain " + `"` + keys.Separator + `"`
	}
	return true, ""
}

// ValidateItemID checks an item id. Item ids may contain the separator.
func ValidateItemID(itemID string) (bool, string) {
	return validateText("item id", itemID, MaxItemIDLength)
}

// ValidateExplanationID checks a cache entry id.
func ValidateExplanationID(id string) (bool, string) {
	return validateText("id", id, MaxIDLength)
}

// ValidateExplanationWrite checks a cache write before it reaches the store:
// an id and a JSON object under data are required.
func ValidateExplanationWrite(w *models.ExplanationWrite) (bool, string) {
	if w == nil {
		return false, "request body is required"
	}
	if w.CacheID() == "" {
		return false, "missing id or data in request body"
	}
	if ok, msg := ValidateExplanationID(w.CacheID()); !ok {
		return false, msg
	}
	if w.CacheID() == ReservedExplanationID {
		return false, `id "` + ReservedExplanationID + `" is reserved`
	}

	data := bytes.TrimSpace(w.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return false, "missing id or data in request body"
	}
	if data[0] != '{' {
		return false, "data must be a JSON object"
	}
	return true, ""
}

func validateText(field, s string, maxLen int) (bool, string) {
	if strings.TrimSpace(s) == "" {
		return false, field + " is required"
	}
	if len(s) > maxLen {
		return false, field + " is too long"
	}
	if !utf8.ValidString(s) {
		return false, field + " must be valid UTF-8"
	}
	if strings.IndexFunc(s, unicode.IsControl) >= 0 {
		return false, field + " must not contain control characters"
	}
	return true, ""
}
