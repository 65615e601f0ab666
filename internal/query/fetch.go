package query

import (
	"context"
	"fmt"
	"time"

	pkgerrors "github.com/angelmondragon/packtrack/pkg/errors"
	"github.com/sethvargo/go-retry"
)

// FetchOptions configures one read.
type FetchOptions struct {
	// Policy overrides the store default when non-nil.
	Policy *Policy
	// Operation names the read in classified errors, e.g. "getPackage(42)".
	Operation string
	// Force skips the cache and starts a new generation even if a fetch is in flight.
	Force bool
	// NoRetry disables the retry policy for this read.
	NoRetry bool
}

// Fetch returns the cached value for key when fresh; otherwise it runs fn once per key
// no matter how many callers are waiting, retries retryable failures, and commits the
// result only if no newer fetch or write has landed since this one was issued.
func Fetch[T any](ctx context.Context, s *Store, key Key, opts FetchOptions, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	id := key.String()
	operation := opts.Operation
	if operation == "" {
		operation = id
	}

	s.mu.Lock()
	e := s.entryLocked(key)
	if opts.Policy != nil {
		e.policy = *opts.Policy
	}
	e.accessedAt = s.now()
	if !opts.Force && !s.staleLocked(e) {
		if typed, ok := e.value.(T); ok {
			s.mu.Unlock()
			s.metrics.CacheHit(key.Entity())
			return typed, nil
		}
	}
	s.mu.Unlock()
	s.metrics.CacheMiss(key.Entity())

	if opts.Force {
		s.group.Forget(id)
	}

	ch := s.group.DoChan(id, func() (any, error) {
		return s.load(context.WithoutCancel(ctx), key, operation, opts.NoRetry, func(ctx context.Context) (any, error) {
			return fn(ctx)
		})
	})

	select {
	case <-ctx.Done():
		return zero, pkgerrors.Classify(ctx.Err(), operation)
	case res := <-ch:
		if res.Err != nil {
			return zero, pkgerrors.Classify(res.Err, operation)
		}
		typed, ok := res.Val.(T)
		if !ok && res.Val != nil {
			return zero, pkgerrors.Classify(fmt.Errorf("cached value for %s has type %T", id, res.Val), operation)
		}
		return typed, nil
	}
}

// Refetch forces a new fetch generation for key.
func Refetch[T any](ctx context.Context, s *Store, key Key, opts FetchOptions, fn func(context.Context) (T, error)) (T, error) {
	opts.Force = true
	return Fetch(ctx, s, key, opts, fn)
}

func (s *Store) load(ctx context.Context, key Key, operation string, noRetry bool, fn func(context.Context) (any, error)) (any, error) {
	s.mu.Lock()
	e := s.entryLocked(key)
	e.issued++
	generation := e.issued
	e.inflight++
	s.mu.Unlock()

	ctx = s.logger.WithCacheKey(ctx, key.String())
	ctx = s.logger.WithOperation(ctx, operation)

	retries := s.maxRetries
	if noRetry {
		retries = 0
	}
	backoff := retry.WithMaxRetries(retries, retry.NewExponential(s.retryBase))
	value, err := retry.DoValue(ctx, backoff, func(ctx context.Context) (any, error) {
		value, err := fn(ctx)
		if err == nil {
			return value, nil
		}
		classified := pkgerrors.Classify(err, operation)
		if classified.Retryable() {
			s.logger.Debug(ctx, "retrying read: "+classified.Message)
			return nil, retry.RetryableError(classified)
		}
		return nil, classified
	})

	var classified *pkgerrors.APIErrorResponse
	if err != nil {
		classified = pkgerrors.Classify(err, operation)
	}
	return s.commit(ctx, key, generation, value, classified)
}

// commit stores a fetch result unless a newer generation or write has superseded it.
func (s *Store) commit(ctx context.Context, key Key, generation uint64, value any, failure *pkgerrors.APIErrorResponse) (any, error) {
	s.mu.Lock()
	e := s.entryLocked(key)
	e.inflight--

	if generation <= e.committed {
		current, hasCurrent := e.value, e.hasValue
		s.mu.Unlock()
		s.metrics.IncDiscarded(key.Entity())
		s.logger.Debug(ctx, "discarded superseded response")
		if failure != nil {
			return nil, failure
		}
		if hasCurrent {
			return current, nil
		}
		return value, nil
	}

	e.committed = generation
	var ev Event
	if failure != nil {
		e.err = failure
		ev = Event{Key: key, Type: EventFailed}
	} else {
		s.writeLocked(e, value)
		ev = Event{Key: key, Type: EventUpdated}
	}
	listeners := s.listenersLocked(e)
	s.mu.Unlock()

	outcome := "success"
	if failure != nil {
		outcome = string(failure.Code)
	}
	s.metrics.ObserveFetch(key.Entity(), outcome)
	emit(listeners, ev)

	if failure != nil {
		return nil, failure
	}
	return value, nil
}

// State is the read-side view handed to UI-level callers.
type State[T any] struct {
	Data      T                           `json:"data"`
	HasData   bool                        `json:"hasData"`
	IsLoading bool                        `json:"isLoading"`
	IsStale   bool                        `json:"isStale"`
	Error     *pkgerrors.APIErrorResponse `json:"error,omitempty"`
	UpdatedAt time.Time                   `json:"updatedAt"`
}

// StateOf snapshots key without triggering a fetch.
func StateOf[T any](s *Store, key Key) State[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key.String()]
	if !ok {
		return State[T]{IsStale: true}
	}
	state := State[T]{
		IsLoading: e.inflight > 0,
		IsStale:   s.staleLocked(e),
		Error:     e.err,
		UpdatedAt: e.updatedAt,
	}
	if typed, ok := e.value.(T); ok && e.hasValue {
		state.Data = typed
		state.HasData = true
	}
	return state
}
