package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/redis/go-redis/v9"

	"metricbridge/internal/keys"
)

// ScanResult holds the keys found by a bounded scan. Truncated is set when
// the result cap or the iteration cap stopped the scan before the cursor
// completed, so more matching keys may exist.
type ScanResult struct {
	Keys      []string
	Truncated bool
}

type scanner interface {
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
}

// ScanByPrefix enumerates at most maxResults keys starting with prefix using
// cursor-based SCAN. The prefix is matched literally. The scan stops as soon
// as ctx is done. In cluster mode every master is scanned.
func (s *Store) ScanByPrefix(ctx context.Context, prefix string, maxResults int) (*ScanResult, error) {
	if maxResults <= 0 {
		return nil, ErrInvalidLimit
	}

	client, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}

	match := keys.EscapePattern(prefix) + "*"
	col := newCollector(maxResults)

	if cluster, ok := client.(*redis.ClusterClient); ok {
		err = cluster.ForEachMaster(ctx, func(ctx context.Context, node *redis.Client) error {
			return s.scanNode(ctx, node, match, col)
		})
	} else {
		err = s.scanNode(ctx, client, match, col)
	}
	s.observe(client, err)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %q: %w", match, err)
	}

	return col.result(), nil
}

func (s *Store) scanNode(ctx context.Context, node scanner, match string, col *collector) error {
	var cursor uint64
	for i := 0; i < s.opts.ScanMaxIterations; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if col.full() {
			col.markTruncated()
			return nil
		}

		batch, next, err := node.Scan(ctx, cursor, match, s.opts.ScanBatchSize).Result()
		if err != nil {
			return err
		}
		col.add(batch)
		if next == 0 {
			return nil
		}
		if col.full() {
			col.markTruncated()
			return nil
		}
		cursor = next
	}

	s.logger.Warn("scan stopped at iteration cap", "match", match, "iterations", s.opts.ScanMaxIterations)
	col.markTruncated()
	return nil
}

// collector gathers scan results, possibly from several nodes at once. SCAN
// may return a key more than once, so keys are de-duplicated.
type collector struct {
	mu        sync.Mutex
	limit     int
	seen      map[string]struct{}
	keys      []string
	truncated bool
}

func newCollector(limit int) *collector {
	return &collector{limit: limit, seen: make(map[string]struct{})}
}

func (c *collector) add(batch []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range batch {
		if _, dup := c.seen[k]; dup {
			continue
		}
		if len(c.keys) >= c.limit {
			c.truncated = true
			return
		}
		c.seen[k] = struct{}{}
		c.keys = append(c.keys, k)
	}
}

func (c *collector) full() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.keys) >= c.limit
}

func (c *collector) markTruncated() {
	c.mu.Lock()
	c.truncated = true
	c.mu.Unlock()
}

func (c *collector) result() *ScanResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	sort.Strings(c.keys)
	return &ScanResult{Keys: c.keys, Truncated: c.truncated}
}
