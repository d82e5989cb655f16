package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"metricbridge/internal/keys"
	"metricbridge/internal/models"
)

// fetchBatchSize bounds how many GETs share one pipeline.
const fetchBatchSize = 500

// SearchResult maps item ids to the metrics stored under one query.
type SearchResult struct {
	MatchedQuery string // query form whose prefix produced the keys
	Results      map[string]models.Metrics
	Skipped      int // keys whose values could not be parsed
	Truncated    bool
}

// SearchQuery collects every record stored under query, up to maxResults.
// The literal query prefix is scanned first; only when it yields nothing and
// the query is not lower case is the lower-cased prefix scanned. A value that
// cannot be parsed is logged and skipped. Keys that expire between the scan
// and the fetch are left out.
func (s *Store) SearchQuery(ctx context.Context, query string, maxResults int) (*SearchResult, error) {
	matched := query
	scan, err := s.ScanByPrefix(ctx, query+keys.Separator, maxResults)
	if err != nil {
		return nil, err
	}
	if len(scan.Keys) == 0 && !keys.IsNormalized(query) {
		matched = keys.NormalizeQuery(query)
		scan, err = s.ScanByPrefix(ctx, matched+keys.Separator, maxResults)
		if err != nil {
			return nil, err
		}
	}

	values, err := s.fetch(ctx, scan.Keys)
	if err != nil {
		return nil, err
	}

	result := &SearchResult{
		MatchedQuery: matched,
		Results:      make(map[string]models.Metrics, len(values)),
		Truncated:    scan.Truncated,
	}
	for _, key := range scan.Keys {
		raw, ok := values[key]
		if !ok {
			continue
		}
		_, itemID, _ := keys.Decode(key)
		m, err := decodeMetrics(key, raw)
		if err != nil {
			s.logger.Warn("skipping unparseable record", "key", key, "error", err)
			result.Skipped++
			continue
		}
		result.Results[itemID] = m
	}

	return result, nil
}

// fetch GETs keys in pipelined batches. Missing keys are absent from the map.
func (s *Store) fetch(ctx context.Context, keyList []string) (map[string]string, error) {
	values := make(map[string]string, len(keyList))
	if len(keyList) == 0 {
		return values, nil
	}

	client, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}

	for start := 0; start < len(keyList); start += fetchBatchSize {
		end := min(start+fetchBatchSize, len(keyList))
		batch := keyList[start:end]

		cmds := make([]*redis.StringCmd, len(batch))
		pipe := client.Pipeline()
		for i, key := range batch {
			cmds[i] = pipe.Get(ctx, key)
		}
		// Exec reports the first failed command, which is redis.Nil for any
		// vanished key; each command is inspected on its own below.
		_, _ = pipe.Exec(ctx)

		for i, cmd := range cmds {
			raw, err := cmd.Result()
			if errors.Is(err, redis.Nil) {
				continue
			}
			if err != nil {
				s.observe(client, err)
				return nil, fmt.Errorf("failed to get %s: %w", batch[i], err)
			}
			values[batch[i]] = raw
		}
	}

	return values, nil
}
