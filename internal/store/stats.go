package store

import (
	"context"
	"sort"
	"strconv"

	"metricbridge/internal/keys"
)

// Sample summarizes a bounded slice of the keyspace. Every count here is
// taken within the sample only: once the keyspace is larger than the sample,
// the distinct counts are lower bounds, never exact.
type Sample struct {
	Size          int      // keys examined
	Queries       []string // distinct queries seen, sorted
	UniqueQueries int
	UniqueItems   int
	Explanations  int  // cache entries seen in the sample
	Complete      bool // the whole keyspace fit in the sample
}

// TotalRecords returns the exact key count reported by the backend. The count
// includes cache entries, so it overstates the number of metric records.
func (s *Store) TotalRecords(ctx context.Context) (int64, error) {
	return s.Size(ctx)
}

// SampleUniqueQueries scans at most sampleSize keys and counts the distinct
// queries among them. Concurrent calls with the same size share one scan. The
// shared scan is detached from any single caller and bounded by
// SampleTimeout; each caller stops waiting when its own ctx is done.
func (s *Store) SampleUniqueQueries(ctx context.Context, sampleSize int) (*Sample, error) {
	ch := s.sampling.DoChan(strconv.Itoa(sampleSize), func() (any, error) {
		scanCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.SampleTimeout)
		defer cancel()
		return s.sample(scanCtx, sampleSize)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Sample), nil
	}
}

func (s *Store) sample(ctx context.Context, sampleSize int) (*Sample, error) {
	scan, err := s.ScanByPrefix(ctx, "", sampleSize)
	if err != nil {
		return nil, err
	}

	queries := make(map[string]struct{})
	items := make(map[string]struct{})
	sample := &Sample{Size: len(scan.Keys), Complete: !scan.Truncated}

	for _, key := range scan.Keys {
		if keys.IsExplanation(key) {
			sample.Explanations++
			continue
		}
		query, itemID, ok := keys.Decode(key)
		if !ok {
			continue
		}
		queries[query] = struct{}{}
		items[itemID] = struct{}{}
	}

	sample.Queries = make([]string, 0, len(queries))
	for q := range queries {
		sample.Queries = append(sample.Queries, q)
	}
	sort.Strings(sample.Queries)
	sample.UniqueQueries = len(queries)
	sample.UniqueItems = len(items)

	return sample, nil
}
