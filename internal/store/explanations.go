package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"metricbridge/internal/keys"
	"metricbridge/internal/models"
)

// flushBatchSize bounds how many cache keys one flush round collects.
const flushBatchSize = 1000

// PutExplanation writes an explanation under the cache namespace with an
// explicit expiration. A ttl <= 0 uses the configured default. CachedAt is
// always set to the write time; a rewrite replaces the previous entry.
func (s *Store) PutExplanation(ctx context.Context, id string, e *models.Explanation, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = s.opts.ExplanationTTL
	}

	client, err := s.conn(ctx)
	if err != nil {
		return err
	}

	e.CachedAt = time.Now().UTC()
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode explanation %s: %w", id, err)
	}

	key := keys.EncodeExplanation(id)
	err = client.Set(ctx, key, data, ttl).Err()
	s.observe(client, err)
	if err != nil {
		return fmt.Errorf("failed to store %s: %w", key, err)
	}
	return nil
}

// GetExplanation reads a cached explanation. Reads never extend the TTL.
func (s *Store) GetExplanation(ctx context.Context, id string) (*models.Explanation, error) {
	client, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}

	key := keys.EncodeExplanation(id)
	raw, err := client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrExplanationNotFound
	}
	s.observe(client, err)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}

	var e models.Explanation
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedRecord, key, err)
	}
	return &e, nil
}

// DeleteExplanation removes one cached explanation and reports whether it existed.
func (s *Store) DeleteExplanation(ctx context.Context, id string) (bool, error) {
	client, err := s.conn(ctx)
	if err != nil {
		return false, err
	}

	key := keys.EncodeExplanation(id)
	n, err := client.Del(ctx, key).Result()
	s.observe(client, err)
	if err != nil {
		return false, fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return n > 0, nil
}

// FlushExplanations deletes every key in the explanation namespace and
// returns how many were actually removed. Metric keys are never touched.
// Keys are collected in bounded rounds; each round is deleted as one batch.
func (s *Store) FlushExplanations(ctx context.Context) (int64, error) {
	var total int64
	for {
		scan, err := s.ScanByPrefix(ctx, keys.ExplanationPrefix, flushBatchSize)
		if err != nil {
			return total, err
		}
		if len(scan.Keys) == 0 {
			return total, nil
		}

		n, err := s.deleteKeys(ctx, scan.Keys)
		total += n
		if err != nil {
			return total, err
		}
		if !scan.Truncated || n == 0 {
			return total, nil
		}
	}
}

// deleteKeys removes keys in one command on a single node. A cluster cannot
// delete keys of different hash slots together, so there each key is deleted
// through one pipeline.
func (s *Store) deleteKeys(ctx context.Context, keyList []string) (int64, error) {
	client, err := s.conn(ctx)
	if err != nil {
		return 0, err
	}

	if _, ok := client.(*redis.ClusterClient); !ok {
		n, err := client.Del(ctx, keyList...).Result()
		s.observe(client, err)
		if err != nil {
			return 0, fmt.Errorf("failed to delete %d keys: %w", len(keyList), err)
		}
		return n, nil
	}

	cmds := make([]*redis.IntCmd, len(keyList))
	_, err = client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, key := range keyList {
			cmds[i] = pipe.Del(ctx, key)
		}
		return nil
	})
	s.observe(client, err)

	var n int64
	for _, cmd := range cmds {
		n += cmd.Val()
	}
	if err != nil {
		return n, fmt.Errorf("failed to delete %d keys: %w", len(keyList), err)
	}
	return n, nil
}
