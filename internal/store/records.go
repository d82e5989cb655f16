package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"metricbridge/internal/keys"
	"metricbridge/internal/models"
)

// PutMetrics stores a metric record. The query is normalized at write time so
// readers never depend on the case fallback for freshly written data.
// Concurrent writers to one key race; the last write wins.
func (s *Store) PutMetrics(ctx context.Context, query, itemID string, m models.Metrics) (string, error) {
	client, err := s.conn(ctx)
	if err != nil {
		return "", err
	}

	key := keys.Encode(keys.NormalizeQuery(query), itemID)
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("failed to encode metrics for %s: %w", key, err)
	}

	err = client.Set(ctx, key, data, 0).Err()
	s.observe(client, err)
	if err != nil {
		return "", fmt.Errorf("failed to store %s: %w", key, err)
	}
	return key, nil
}

// PutMetricsBatch stores many records in one pipelined round trip and
// returns how many were written. Queries are normalized as in PutMetrics. A
// record that cannot be encoded is logged and left out; the rest of the batch
// is still written.
func (s *Store) PutMetricsBatch(ctx context.Context, records []models.Record) (int, error) {
	type entry struct {
		key  string
		data []byte
	}
	entries := make([]entry, 0, len(records))
	for _, r := range records {
		key := keys.Encode(keys.NormalizeQuery(r.Query), r.ItemID)
		data, err := json.Marshal(r.Metrics)
		if err != nil {
			s.logger.Warn("skipping record that cannot be encoded", "key", key, "error", err)
			continue
		}
		entries = append(entries, entry{key: key, data: data})
	}
	if len(entries) == 0 {
		return 0, nil
	}

	client, err := s.conn(ctx)
	if err != nil {
		return 0, err
	}

	cmds, err := client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, e := range entries {
			pipe.Set(ctx, e.key, e.data, 0)
		}
		return nil
	})
	s.observe(client, err)

	written := 0
	for _, cmd := range cmds {
		if cmd.Err() == nil {
			written++
		}
	}
	if err != nil {
		return written, fmt.Errorf("failed to store batch: %w", err)
	}
	return written, nil
}

// decodeMetrics parses a stored metric value.
func decodeMetrics(key, raw string) (models.Metrics, error) {
	var m models.Metrics
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return m, fmt.Errorf("%w: %s: %v", ErrMalformedRecord, key, err)
	}
	return m, nil
}
