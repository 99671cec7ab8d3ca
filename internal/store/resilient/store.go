// Package resilient wraps a project store with retry and circuit breaker
// patterns so a flaky backend degrades the editor gracefully instead of
// failing every save.
package resilient

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/retry"

	"github.com/craftpad/craftpad/internal/project"
	"github.com/craftpad/craftpad/internal/workspace"
)

// Store wraps an inner workspace.Store. Reads are retried with backoff;
// writes are never retried here because the controller owns write retry
// policy and a blind replay could double-create a project. All calls pass
// through a shared circuit breaker keyed on consecutive failures.
type Store struct {
	inner workspace.Store

	fetchRetry retry.Retry[project.Record]
	listRetry  retry.Retry[[]project.Record]

	fetchBreaker  circuitbreaker.CircuitBreaker[project.Record]
	listBreaker   circuitbreaker.CircuitBreaker[[]project.Record]
	createBreaker circuitbreaker.CircuitBreaker[string]
	writeBreaker  circuitbreaker.CircuitBreaker[struct{}]

	logger *slog.Logger
}

// Config holds tuning for the resilient wrapper.
type Config struct {
	// MaxAttempts for read retries (default: 3)
	MaxAttempts int

	// InitialDelay before the first retry (default: 200ms)
	InitialDelay time.Duration

	// Logger for resilience events
	Logger *slog.Logger
}

// DefaultConfig returns sensible defaults for a remote project store.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: 200 * time.Millisecond,
	}
}

// NewStore wraps inner with the resilience patterns from cfg.
func NewStore(inner workspace.Store, cfg Config) *Store {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = 200 * time.Millisecond
	}

	s := &Store{inner: inner, logger: cfg.Logger}

	retryCfg := retry.Config{
		MaxAttempts:   cfg.MaxAttempts,
		InitialDelay:  cfg.InitialDelay,
		MaxDelay:      5 * time.Second,
		Multiplier:    2.0,
		BackoffPolicy: retry.BackoffExponential,
		Jitter:        true,
		IsRetryable:   isRetryable,
	}
	s.fetchRetry = retry.New[project.Record](retryCfg)
	s.listRetry = retry.New[[]project.Record](retryCfg)

	s.fetchBreaker = circuitbreaker.New[project.Record](s.breakerConfig("fetch"))
	s.listBreaker = circuitbreaker.New[[]project.Record](s.breakerConfig("list"))
	s.createBreaker = circuitbreaker.New[string](s.breakerConfig("create"))
	s.writeBreaker = circuitbreaker.New[struct{}](s.breakerConfig("write"))

	return s
}

func (s *Store) breakerConfig(name string) circuitbreaker.Config {
	return circuitbreaker.Config{
		MaxRequests: 2,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts circuitbreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(from, to circuitbreaker.State) {
			if s.logger != nil {
				s.logger.Warn("store circuit breaker state change",
					"operation", name,
					"from", from.String(),
					"to", to.String())
			}
		},
	}
}

// FetchProject reads with retry behind the circuit breaker.
func (s *Store) FetchProject(ctx context.Context, id string) (project.Record, error) {
	return s.fetchBreaker.Execute(ctx, func(ctx context.Context) (project.Record, error) {
		return s.fetchRetry.Do(ctx, func(ctx context.Context) (project.Record, error) {
			return s.inner.FetchProject(ctx, id)
		})
	})
}

// CreateProject writes once, no retry.
func (s *Store) CreateProject(ctx context.Context, rec project.Record) (string, error) {
	return s.createBreaker.Execute(ctx, func(ctx context.Context) (string, error) {
		return s.inner.CreateProject(ctx, rec)
	})
}

// UpdateProject writes once, no retry.
func (s *Store) UpdateProject(ctx context.Context, id string, rec project.Record) error {
	_, err := s.writeBreaker.Execute(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.inner.UpdateProject(ctx, id, rec)
	})
	return err
}

// DeleteProject writes once, no retry.
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	_, err := s.writeBreaker.Execute(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.inner.DeleteProject(ctx, id)
	})
	return err
}

// ListProjects reads with retry behind the circuit breaker.
func (s *Store) ListProjects(ctx context.Context, ownerID string) ([]project.Record, error) {
	return s.listBreaker.Execute(ctx, func(ctx context.Context) ([]project.Record, error) {
		return s.listRetry.Do(ctx, func(ctx context.Context) ([]project.Record, error) {
			return s.inner.ListProjects(ctx, ownerID)
		})
	})
}

// isRetryable treats infrastructure failures as transient. Domain outcomes
// like a missing record never change on replay.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, workspace.ErrNotFound) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}
