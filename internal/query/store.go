package query

import (
	"context"
	"sync"
	"time"

	"github.com/angelmondragon/packtrack/internal/notify"
	pkgerrors "github.com/angelmondragon/packtrack/pkg/errors"
	"github.com/angelmondragon/packtrack/pkg/logger"
	"github.com/angelmondragon/packtrack/pkg/metrics"
	"golang.org/x/sync/singleflight"
)

// Policy controls freshness and retention of an entry.
type Policy struct {
	// StaleTime is how long a value is served without refetching. Zero means always refetch.
	StaleTime time.Duration
	// GCTime is how long an unobserved entry survives after its last use.
	GCTime time.Duration
}

func DefaultPolicy(staleTime, gcTime time.Duration) Policy {
	return Policy{StaleTime: staleTime, GCTime: gcTime}
}

// NoCachePolicy always refetches and is dropped at the next sweep.
var NoCachePolicy = Policy{}

// EventType describes a change to an entry.
type EventType int

const (
	EventUpdated EventType = iota
	EventInvalidated
	EventFailed
	EventRemoved
)

func (t EventType) String() string {
	switch t {
	case EventUpdated:
		return "updated"
	case EventInvalidated:
		return "invalidated"
	case EventFailed:
		return "failed"
	case EventRemoved:
		return "removed"
	}
	return "unknown"
}

// Event is delivered to subscribers after the store lock is released.
type Event struct {
	Key  Key
	Type EventType
}

type entry struct {
	key         Key
	value       any
	hasValue    bool
	err         *pkgerrors.APIErrorResponse
	updatedAt   time.Time
	accessedAt  time.Time
	invalidated bool
	policy      Policy

	// issued is the last fetch generation handed out; committed is the generation
	// (or write) that produced the current value.
	issued    uint64
	committed uint64
	inflight  int

	optimisticSeq     uint64
	optimisticPending int
	// writes counts every value change; a rollback only restores when it is unchanged.
	writes uint64

	subscribers map[uint64]func(Event)
}

// Store is the keyed query cache. The zero value is not usable; call NewStore.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
	nextSub uint64

	group singleflight.Group

	policy     Policy
	maxRetries uint64
	retryBase  time.Duration

	now      func() time.Time
	logger   *logger.Logger
	metrics  *metrics.ClientMetrics
	notifier notify.Notifier
}

// Option configures a Store.
type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func WithLogger(log *logger.Logger) Option {
	return func(s *Store) {
		s.logger = log
	}
}

func WithMetrics(m *metrics.ClientMetrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// WithNotifier sets the default sink for mutation outcomes.
func WithNotifier(n notify.Notifier) Option {
	return func(s *Store) {
		s.notifier = notify.OrNoop(n)
	}
}

// WithDefaultPolicy sets the policy used when a fetch does not name one.
func WithDefaultPolicy(p Policy) Option {
	return func(s *Store) {
		s.policy = p
	}
}

// WithRetry sets how many times retryable read failures are retried and the initial backoff.
func WithRetry(maxRetries int, base time.Duration) Option {
	return func(s *Store) {
		if maxRetries < 0 {
			maxRetries = 0
		}
		s.maxRetries = uint64(maxRetries)
		if base > 0 {
			s.retryBase = base
		}
	}
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		entries:    make(map[string]*entry),
		policy:     DefaultPolicy(5*time.Minute, 10*time.Minute),
		maxRetries: 3,
		retryBase:  250 * time.Millisecond,
		now:        time.Now,
		notifier:   notify.Noop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// DefaultPolicy returns the policy applied to fetches without an explicit one.
func (s *Store) DefaultPolicy() Policy {
	return s.policy
}

// entryLocked returns the entry for key, creating it. Caller holds s.mu.
func (s *Store) entryLocked(key Key) *entry {
	id := key.String()
	e, ok := s.entries[id]
	if !ok {
		e = &entry{key: append(Key(nil), key...), policy: s.policy}
		s.entries[id] = e
	}
	return e
}

func (s *Store) listenersLocked(e *entry) []func(Event) {
	if len(e.subscribers) == 0 {
		return nil
	}
	out := make([]func(Event), 0, len(e.subscribers))
	for _, fn := range e.subscribers {
		out = append(out, fn)
	}
	return out
}

func emit(listeners []func(Event), ev Event) {
	for _, fn := range listeners {
		fn(ev)
	}
}

// Get returns the cached value regardless of freshness.
func (s *Store) Get(key Key) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key.String()]
	if !ok || !e.hasValue {
		return nil, false
	}
	e.accessedAt = s.now()
	return e.value, true
}

// Lookup is the typed form of Get.
func Lookup[T any](s *Store, key Key) (T, bool) {
	value, ok := s.Get(key)
	if !ok {
		var zero T
		return zero, false
	}
	typed, ok := value.(T)
	return typed, ok
}

// Set writes value as fresh and supersedes any read issued before it.
func (s *Store) Set(key Key, value any) {
	s.mu.Lock()
	e := s.entryLocked(key)
	s.writeLocked(e, value)
	listeners := s.listenersLocked(e)
	s.mu.Unlock()
	emit(listeners, Event{Key: key, Type: EventUpdated})
}

func (s *Store) writeLocked(e *entry, value any) {
	now := s.now()
	e.value = value
	e.hasValue = true
	e.err = nil
	e.updatedAt = now
	e.accessedAt = now
	e.invalidated = false
	e.committed = e.issued
	e.writes++
}

// Update rewrites a cached value in place. It is a no-op when key holds no value.
func (s *Store) Update(key Key, fn func(current any) any) bool {
	s.mu.Lock()
	e, ok := s.entries[key.String()]
	if !ok || !e.hasValue {
		s.mu.Unlock()
		return false
	}
	s.writeLocked(e, fn(e.value))
	listeners := s.listenersLocked(e)
	s.mu.Unlock()
	emit(listeners, Event{Key: key, Type: EventUpdated})
	return true
}

// UpdateAs is the typed form of Update; values of another type are left alone.
func UpdateAs[T any](s *Store, key Key, fn func(current T) T) bool {
	applied := false
	s.Update(key, func(current any) any {
		typed, ok := current.(T)
		if !ok {
			return current
		}
		applied = true
		return fn(typed)
	})
	return applied
}

// Invalidate marks keys stale so the next read refetches. Values stay readable.
func (s *Store) Invalidate(keys ...Key) {
	for _, key := range keys {
		s.mu.Lock()
		e, ok := s.entries[key.String()]
		if !ok {
			s.mu.Unlock()
			continue
		}
		e.invalidated = true
		listeners := s.listenersLocked(e)
		s.mu.Unlock()
		emit(listeners, Event{Key: key, Type: EventInvalidated})
	}
}

// InvalidatePrefix invalidates every entry under prefix and returns how many matched.
func (s *Store) InvalidatePrefix(prefix Key) int {
	s.mu.Lock()
	var keys []Key
	for _, e := range s.entries {
		if e.key.HasPrefix(prefix) {
			keys = append(keys, e.key)
		}
	}
	s.mu.Unlock()
	s.Invalidate(keys...)
	return len(keys)
}

// Remove drops key entirely.
func (s *Store) Remove(key Key) {
	s.mu.Lock()
	e, ok := s.entries[key.String()]
	if !ok {
		s.mu.Unlock()
		return
	}
	delete(s.entries, key.String())
	listeners := s.listenersLocked(e)
	s.mu.Unlock()
	emit(listeners, Event{Key: key, Type: EventRemoved})
}

// IsStale reports whether the next read of key would refetch.
func (s *Store) IsStale(key Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key.String()]
	if !ok {
		return true
	}
	return s.staleLocked(e)
}

func (s *Store) staleLocked(e *entry) bool {
	if !e.hasValue || e.invalidated || e.policy.StaleTime <= 0 {
		return true
	}
	return s.now().Sub(e.updatedAt) >= e.policy.StaleTime
}

// Subscribe registers fn for changes to key. The returned func cancels it.
func (s *Store) Subscribe(key Key, fn func(Event)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSub++
	id := s.nextSub
	e := s.entryLocked(key)
	if e.subscribers == nil {
		e.subscribers = make(map[uint64]func(Event))
	}
	e.subscribers[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if current, ok := s.entries[key.String()]; ok {
				delete(current.subscribers, id)
				current.accessedAt = s.now()
			}
		})
	}
}

// Collect removes unobserved, idle entries whose GCTime has elapsed since last use.
func (s *Store) Collect(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, e := range s.entries {
		if len(e.subscribers) > 0 || e.inflight > 0 || e.optimisticPending > 0 {
			continue
		}
		lastUsed := e.updatedAt
		if e.accessedAt.After(lastUsed) {
			lastUsed = e.accessedAt
		}
		if now.Sub(lastUsed) >= e.policy.GCTime {
			delete(s.entries, id)
			removed++
		}
	}
	if removed > 0 {
		s.metrics.AddEvictions(removed)
		s.logger.Debug(s.logger.WithField(context.Background(), "evicted", removed), "query cache sweep")
	}
	return removed
}

// Run sweeps the store every interval until ctx is done.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Collect(s.now())
		}
	}
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Clear drops every entry, e.g. on logout.
func (s *Store) Clear() {
	s.mu.Lock()
	var removed []Event
	var listeners [][]func(Event)
	for id, e := range s.entries {
		removed = append(removed, Event{Key: e.key, Type: EventRemoved})
		listeners = append(listeners, s.listenersLocked(e))
		delete(s.entries, id)
	}
	s.mu.Unlock()
	for i, ev := range removed {
		emit(listeners[i], ev)
	}
}
