package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"metricbridge/internal/keys"
	"metricbridge/internal/models"
)

// Resolution is the outcome of a successful metric lookup.
type Resolution struct {
	Metrics    models.Metrics
	MatchedKey string
	Fallback   bool // matched through the lower-cased query
}

// CandidateKeys returns the keys tried, in order, for a lookup: the literal
// composite key, then the lower-cased one when the query is not already
// lower case.
func CandidateKeys(query, itemID string) []string {
	candidates := []string{keys.Encode(query, itemID)}
	if !keys.IsNormalized(query) {
		candidates = append(candidates, keys.Encode(keys.NormalizeQuery(query), itemID))
	}
	return candidates
}

// ResolveMetrics looks up the record for (query, itemID), falling back to the
// lower-cased query. Records stored under any other casing are unreachable.
// Returns ErrNotFound when no candidate exists and ErrMalformedRecord when the
// matched value cannot be parsed.
func (s *Store) ResolveMetrics(ctx context.Context, query, itemID string) (*Resolution, error) {
	client, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}

	for i, key := range CandidateKeys(query, itemID) {
		raw, err := client.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		s.observe(client, err)
		if err != nil {
			return nil, fmt.Errorf("failed to get %s: %w", key, err)
		}

		m, err := decodeMetrics(key, raw)
		if err != nil {
			return nil, err
		}
		return &Resolution{Metrics: m, MatchedKey: key, Fallback: i > 0}, nil
	}

	return nil, ErrNotFound
}
