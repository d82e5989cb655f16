package models

// Metrics is a precomputed metric record for one (query, item) pair.
// Field names follow the producer's stored JSON; rates are passed through as
// stored and never re-derived here.
type Metrics struct {
	Viewers            int64   `json:"viewers"`
	Clickers           int64   `json:"clickers"`
	Enrollers          int64   `json:"enrollers"`
	PaidEnrollers      int64   `json:"paid_enrollers"`
	CTR                float64 `json:"ctr"`
	EnrollmentRate     float64 `json:"enrollment_rate"`
	PaidConversionRate float64 `json:"paid_conversion_rate"`
}

// Record pairs a metric record with the composite key it was stored under.
type Record struct {
	Query   string  `json:"query"`
	ItemID  string  `json:"itemId"`
	Key     string  `json:"key"`
	Metrics Metrics `json:"metrics"`
}
