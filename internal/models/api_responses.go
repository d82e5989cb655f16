package models

// HealthResponse reports connector liveness.
type HealthResponse struct {
	Status    string `json:"status"`
	Connected bool   `json:"connected"`
	TotalKeys int64  `json:"totalKeys"`
	Message   string `json:"message,omitempty"`
}

// MetricsResponse is the result of resolving one composite key.
type MetricsResponse struct {
	Success    bool     `json:"success"`
	Found      bool     `json:"found"`
	Query      string   `json:"query"`
	ItemID     string   `json:"itemId"`
	Metrics    *Metrics `json:"metrics"`
	MatchedKey string   `json:"matchedKey,omitempty"`
	Fallback   bool     `json:"fallback,omitempty"`
	TriedKeys  []string `json:"triedKeys,omitempty"`
	Message    string   `json:"message,omitempty"`
}

// SearchResponse maps item ids to metrics for every key under a query.
type SearchResponse struct {
	Success      bool               `json:"success"`
	Query        string             `json:"query"`
	MatchedQuery string             `json:"matchedQuery"`
	Results      map[string]Metrics `json:"results"`
	Count        int                `json:"count"`
	Skipped      int                `json:"skipped,omitempty"`
	Truncated    bool               `json:"truncated"`
}

// StatsResponse keeps the exact total apart from the sampled estimates.
// TotalRecords is the backend key count and includes cache entries.
type StatsResponse struct {
	Success              bool     `json:"success"`
	TotalRecords         int64    `json:"totalRecords"`
	TotalIncludesCache   bool     `json:"totalIncludesCache"`
	SampleSize           int      `json:"sampleSize"`
	SampleQueries        []string `json:"sampleQueries"`
	UniqueQueriesSample  int      `json:"uniqueQueriesSample"`
	UniqueProductsSample int      `json:"uniqueProductsSample"`
	CachedExplanations   int      `json:"cachedExplanations"`
	Approximate          bool     `json:"approximate"`
	Note                 string   `json:"note"`
}

// ExplanationWriteResponse acknowledges a cache write.
type ExplanationWriteResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
	Message string `json:"message"`
}

// FlushResponse reports how many cache entries a flush removed.
type FlushResponse struct {
	Success      bool   `json:"success"`
	DeletedCount int64  `json:"deletedCount"`
	Message      string `json:"message"`
}
