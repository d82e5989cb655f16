package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"metricbridge/internal/models"
)

// Column names of the metric export.
const (
	colQuery              = "searched_query"
	colItem               = "clicked_product"
	colViewers            = "viewers"
	colClickers           = "clickers"
	colEnrollers          = "enrollers"
	colPaidEnrollers      = "paid_enrollers"
	colCTR                = "ctr"
	colEnrollmentRate     = "enrollment_rate"
	colPaidConversionRate = "paid_conversion_rate"
)

// progressEvery controls how often progress is logged.
const progressEvery = 10000

// BatchWriter writes metric records in batches.
type BatchWriter interface {
	PutMetricsBatch(ctx context.Context, records []models.Record) (int, error)
}

// Result counts what a load did.
type Result struct {
	Rows    int // data rows read
	Written int // records stored
	Failed  int // rows skipped or writes rejected
}

// header maps column names to their positions.
type header map[string]int

func parseHeader(row []string) (header, error) {
	h := make(header, len(row))
	for i, name := range row {
		h[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	for _, required := range []string{colQuery, colItem} {
		if _, ok := h[required]; !ok {
			return nil, fmt.Errorf("missing required column %q", required)
		}
	}
	return h, nil
}

func (h header) get(row []string, col string) string {
	i, ok := h[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// intField parses a count. Exports write counts as floats at times, so
// "12.0" is accepted. Absent, negative, non-finite or out-of-range values
// are 0.
func (h header) intField(row []string, col string) int64 {
	raw := h.get(row, col)
	if raw == "" {
		return 0
	}
	if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return max(v, 0)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || v < 0 || v >= math.MaxInt64 {
		return 0
	}
	return int64(v)
}

// floatField parses a rate. Absent, negative or non-finite values are 0;
// JSON has no encoding for NaN or infinities.
func (h header) floatField(row []string, col string) float64 {
	v, err := strconv.ParseFloat(h.get(row, col), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// parseRecord converts one CSV row. Rows without a query or item id are
// rejected; the store write normalizes the query.
func (h header) parseRecord(row []string) (models.Record, error) {
	query := h.get(row, colQuery)
	itemID := h.get(row, colItem)
	if query == "" || itemID == "" {
		return models.Record{}, errors.New("missing query or item id")
	}
	return models.Record{
		Query:  query,
		ItemID: itemID,
		Metrics: models.Metrics{
			Viewers:            h.intField(row, colViewers),
			Clickers:           h.intField(row, colClickers),
			Enrollers:          h.intField(row, colEnrollers),
			PaidEnrollers:      h.intField(row, colPaidEnrollers),
			CTR:                h.floatField(row, colCTR),
			EnrollmentRate:     h.floatField(row, colEnrollmentRate),
			PaidConversionRate: h.floatField(row, colPaidConversionRate),
		},
	}, nil
}

// Load reads the CSV from r and writes its rows through w in batches.
// A bad row is logged and counted, never fatal; a failed batch write is.
func Load(ctx context.Context, w BatchWriter, r io.Reader, batchSize int) (Result, error) {
	var res Result
	if batchSize <= 0 {
		batchSize = 500
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	first, err := reader.Read()
	if err != nil {
		return res, fmt.Errorf("failed to read header: %w", err)
	}
	h, err := parseHeader(first)
	if err != nil {
		return res, err
	}

	batch := make([]models.Record, 0, batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := w.PutMetricsBatch(ctx, batch)
		res.Written += n
		res.Failed += len(batch) - n
		batch = batch[:0]
		return err
	}

	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			slog.Warn("skipping unreadable row", "error", err)
			res.Failed++
			continue
		}
		res.Rows++

		rec, err := h.parseRecord(row)
		if err != nil {
			line, _ := reader.FieldPos(0)
			slog.Warn("skipping row", "line", line, "error", err)
			res.Failed++
			continue
		}

		batch = append(batch, rec)
		if len(batch) == batchSize {
			if err := flush(); err != nil {
				return res, err
			}
		}
		if res.Rows%progressEvery == 0 {
			slog.Info("loading", "rows", res.Rows, "written", res.Written)
		}
	}

	if err := flush(); err != nil {
		return res, err
	}
	return res, nil
}
