// Package store bridges the HTTP layer to the Redis keyspace holding metric
// records and cached explanations.
package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"metricbridge/internal/retry"
)

// Options configures the connection and the bounds applied to scans.
type Options struct {
	Addrs    []string
	Cluster  bool
	Password string
	DB       int

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	ScanBatchSize     int64 // COUNT hint per SCAN round trip
	ScanMaxIterations int   // cursor round trips per node before a scan gives up
	SampleTimeout     time.Duration
	ExplanationTTL    time.Duration
}

func (o *Options) setDefaults() {
	if len(o.Addrs) == 0 {
		o.Addrs = []string{"localhost:6379"}
	}
	if o.DialTimeout == 0 {
		o.DialTimeout = 5 * time.Second
	}
	if o.ReadTimeout == 0 {
		o.ReadTimeout = 5 * time.Second
	}
	if o.WriteTimeout == 0 {
		o.WriteTimeout = 5 * time.Second
	}
	if o.ScanBatchSize <= 0 {
		o.ScanBatchSize = 100
	}
	if o.ScanMaxIterations <= 0 {
		o.ScanMaxIterations = 10000
	}
	if o.SampleTimeout <= 0 {
		o.SampleTimeout = 30 * time.Second
	}
	if o.ExplanationTTL <= 0 {
		o.ExplanationTTL = 30 * 24 * time.Hour
	}
}

// Store owns the one shared connection handle. The handle is established
// lazily, reused by every request, and dropped after a connection-level
// failure so the next operation reconnects.
type Store struct {
	opts   Options
	logger *slog.Logger

	mu     sync.Mutex
	client redis.UniversalClient

	sampling singleflight.Group
}

// New creates a Store without connecting.
func New(opts Options) *Store {
	opts.setDefaults()
	return &Store{
		opts:   opts,
		logger: slog.Default().With("component", "store"),
	}
}

// Connect creates a Store and retries the first connection under policy.
// The backing store may still be starting when the process comes up.
func Connect(ctx context.Context, opts Options, policy retry.Policy) (*Store, error) {
	s := New(opts)
	err := retry.Do(ctx, policy, func(ctx context.Context) error {
		_, err := s.conn(ctx)
		return err
	}, func(attempt int, err error) {
		s.logger.Warn("store connection attempt failed",
			"attempt", attempt, "max_attempts", policy.MaxAttempts, "addrs", s.opts.Addrs, "error", err)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %v: %w", s.opts.Addrs, err)
	}
	s.logger.Info("connected to store", "addrs", s.opts.Addrs, "cluster", s.opts.Cluster)
	return s, nil
}

// conn returns the shared client, connecting first if there is none.
func (s *Store) conn(ctx context.Context) (redis.UniversalClient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		return s.client, nil
	}

	client := s.newClient()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	s.client = client
	return client, nil
}

func (s *Store) newClient() redis.UniversalClient {
	if s.opts.Cluster {
		return redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:        s.opts.Addrs,
			Password:     s.opts.Password,
			DialTimeout:  s.opts.DialTimeout,
			ReadTimeout:  s.opts.ReadTimeout,
			WriteTimeout: s.opts.WriteTimeout,
		})
	}
	return redis.NewClient(&redis.Options{
		Addr:         s.opts.Addrs[0],
		Password:     s.opts.Password,
		DB:           s.opts.DB,
		DialTimeout:  s.opts.DialTimeout,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
	})
}

// observe drops the shared handle after a connection-level failure. The
// error itself is still returned to the caller; nothing is retried here.
func (s *Store) observe(client redis.UniversalClient, err error) {
	if !isConnectionError(err) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != client {
		return
	}
	s.logger.Warn("dropping store connection", "error", err)
	s.client.Close()
	s.client = nil
}

func isConnectionError(err error) bool {
	if err == nil || errors.Is(err, redis.Nil) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, redis.ErrClosed) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// Ping checks that the store answers.
func (s *Store) Ping(ctx context.Context) error {
	client, err := s.conn(ctx)
	if err != nil {
		return err
	}
	err = client.Ping(ctx).Err()
	s.observe(client, err)
	return err
}

// IsAlive reports whether the store answers a ping.
func (s *Store) IsAlive(ctx context.Context) bool {
	return s.Ping(ctx) == nil
}

// Size returns the number of keys reported by the backend. In cluster mode
// the count is summed over every master.
func (s *Store) Size(ctx context.Context) (int64, error) {
	client, err := s.conn(ctx)
	if err != nil {
		return 0, err
	}
	n, err := client.DBSize(ctx).Result()
	s.observe(client, err)
	if err != nil {
		return 0, fmt.Errorf("failed to read key count: %w", err)
	}
	return n, nil
}

// Close closes the connection handle, if any.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return nil
	}
	err := s.client.Close()
	s.client = nil
	return err
}
