package models

import (
	"encoding/json"
	"time"
)

// Explanation is a cached generated explanation. The caller's document is kept
// opaque under Data; metadata lives in named fields so it can never collide
// with caller-supplied keys.
type Explanation struct {
	Data         json.RawMessage `json:"data"`
	CachedAt     time.Time       `json:"cachedAt"`
	SourceQuery  string          `json:"sourceQuery"`
	SourceItemID string          `json:"sourceItemId"`
	Title        string          `json:"title"`
}

// ExplanationWrite is the body of POST /explanation. Key and ProductID are the
// legacy spellings of ID and ItemID.
type ExplanationWrite struct {
	ID        string          `json:"id"`
	Key       string          `json:"key"`
	Data      json.RawMessage `json:"data"`
	Query     string          `json:"query"`
	ItemID    string          `json:"itemId"`
	ProductID string          `json:"productId"`
	Title     string          `json:"title"`
}

// CacheID returns the explanation id, accepting the legacy "key" field.
func (w *ExplanationWrite) CacheID() string {
	if w.ID != "" {
		return w.ID
	}
	return w.Key
}

// SourceItemID returns the item id, accepting the legacy "productId" field.
func (w *ExplanationWrite) SourceItemID() string {
	if w.ItemID != "" {
		return w.ItemID
	}
	return w.ProductID
}
