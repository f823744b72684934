package querycache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"enrollment-portal/internal/clock"
	"enrollment-portal/internal/util"

	"go.uber.org/zap"
)

// ErrFetchCancelled is returned to waiters of a fetch cancelled by CancelQueries
// or superseded by an invalidation refetch.
var ErrFetchCancelled = errors.New("query fetch cancelled")

// FetchFunc loads the authoritative value for a key.
type FetchFunc func(ctx context.Context) (any, error)

// Config holds the freshness windows of a Store.
type Config struct {
	// StaleTime is how long fetched data is served without refetching.
	// Zero means data is stale as soon as it lands.
	StaleTime time.Duration
	// GCTime is how long an entry without subscribers is retained.
	// Zero or negative disables collection.
	GCTime time.Duration
}

// Store is an in-memory keyed query cache. All values are treated as
// immutable: writers replace them, never modify them in place.
type Store struct {
	mu      sync.Mutex
	entries map[Key]*entry
	cfg     Config
	clock   clock.Clock
	logger  *zap.Logger
}

type Option func(*Store)

// WithClock overrides the time source used for staleness and placeholders
func WithClock(c clock.Clock) Option {
	return func(s *Store) {
		s.clock = c
	}
}

// WithLogger overrides the global logger
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

type entry struct {
	key         Key
	data        any
	hasData     bool
	updatedAt   time.Time
	invalidated bool
	err         error
	fetcher     FetchFunc
	inflight    *fetchCall
	subs        map[*Subscription]struct{}
	gcTimer     *time.Timer
}

type fetchCall struct {
	cancel    context.CancelFunc
	done      chan struct{}
	cancelled bool
	data      any
	err       error
}

// State is a point-in-time view of one entry
type State struct {
	Data        any
	HasData     bool
	UpdatedAt   time.Time
	Invalidated bool
	Fetching    bool
	Err         error
}

// Snapshot is the rollback point captured before an optimistic write
type Snapshot struct {
	Key         Key
	Data        any
	Present     bool
	UpdatedAt   time.Time
	Invalidated bool
}

// NewStore creates an empty cache
func NewStore(cfg Config, opts ...Option) *Store {
	s := &Store{
		entries: make(map[Key]*entry),
		cfg:     cfg,
		clock:   clock.Real(),
		logger:  util.GetLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the store's notion of the current time
func (s *Store) Now() time.Time {
	return s.clock.Now()
}

// Fetch returns fresh cached data for key, or joins/starts a fetch. A nil fn
// reuses the fetcher last registered for the key.
func (s *Store) Fetch(ctx context.Context, key Key, fn FetchFunc) (any, error) {
	return s.fetch(ctx, key, fn, false)
}

// Refetch ignores freshness and always goes to the fetcher, joining a
// request already in flight.
func (s *Store) Refetch(ctx context.Context, key Key, fn FetchFunc) (any, error) {
	return s.fetch(ctx, key, fn, true)
}

func (s *Store) fetch(ctx context.Context, key Key, fn FetchFunc, force bool) (any, error) {
	s.mu.Lock()
	e := s.getOrCreateLocked(key)
	if fn != nil {
		e.fetcher = fn
	}
	if e.fetcher == nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("no fetcher registered for key %s", key)
	}

	if !force && e.hasData && !s.staleLocked(e) {
		data := e.data
		s.mu.Unlock()
		util.CacheHitsTotal.Inc()
		return data, nil
	}
	util.CacheMissesTotal.Inc()

	call := e.inflight
	if call == nil {
		call = s.startFetchLocked(e)
	}
	s.mu.Unlock()

	select {
	case <-call.done:
		return call.data, call.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// startFetchLocked runs the fetcher on a store-owned context so that one
// waiter giving up does not abort a request shared with others.
func (s *Store) startFetchLocked(e *entry) *fetchCall {
	ctx, cancel := context.WithCancel(context.Background())
	call := &fetchCall{cancel: cancel, done: make(chan struct{})}
	e.inflight = call
	s.notifyLocked(e)

	go s.runFetch(ctx, e, call, e.fetcher)
	return call
}

func (s *Store) runFetch(ctx context.Context, e *entry, call *fetchCall, fn FetchFunc) {
	data, err := fn(ctx)

	s.mu.Lock()
	switch {
	case call.cancelled:
		data, err = nil, ErrFetchCancelled
		util.QueryFetchesTotal.WithLabelValues("cancelled").Inc()
	case err != nil:
		if e.inflight == call {
			e.inflight = nil
		}
		e.err = err
		util.QueryFetchesTotal.WithLabelValues("error").Inc()
		s.logger.Debug("Query fetch failed", zap.String("key", string(e.key)), zap.Error(err))
		s.notifyLocked(e)
		s.scheduleGCLocked(e)
	default:
		if e.inflight == call {
			e.inflight = nil
		}
		e.data = data
		e.hasData = true
		e.updatedAt = s.clock.Now()
		e.invalidated = false
		e.err = nil
		util.QueryFetchesTotal.WithLabelValues("success").Inc()
		s.notifyLocked(e)
		s.scheduleGCLocked(e)
	}
	call.data, call.err = data, err
	s.mu.Unlock()

	call.cancel()
	close(call.done)
}

// CancelQueries cancels in-flight fetches for every entry matching one of
// the filters. Their results are discarded when they arrive.
func (s *Store) CancelQueries(filters ...Key) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cancelled := 0
	for k, e := range s.entries {
		if matchesAny(k, filters) && s.cancelLocked(e) {
			cancelled++
		}
	}
	return cancelled
}

func (s *Store) cancelLocked(e *entry) bool {
	call := e.inflight
	if call == nil {
		return false
	}
	call.cancelled = true
	call.cancel()
	e.inflight = nil
	s.notifyLocked(e)
	return true
}

// Invalidate marks matching entries stale. Entries with subscribers are
// refetched and Invalidate waits for those refetches or ctx. It returns the
// keys that were marked.
func (s *Store) Invalidate(ctx context.Context, filters ...Key) ([]Key, error) {
	s.mu.Lock()
	var (
		marked []Key
		calls  []*fetchCall
	)
	for k, e := range s.entries {
		if !matchesAny(k, filters) {
			continue
		}
		e.invalidated = true
		marked = append(marked, k)
		if len(e.subs) > 0 && e.fetcher != nil {
			s.cancelLocked(e)
			calls = append(calls, s.startFetchLocked(e))
		} else {
			s.notifyLocked(e)
		}
	}
	s.mu.Unlock()

	sort.Slice(marked, func(i, j int) bool { return marked[i] < marked[j] })
	util.CacheInvalidationsTotal.Add(float64(len(marked)))

	for _, call := range calls {
		select {
		case <-call.done:
		case <-ctx.Done():
			return marked, ctx.Err()
		}
	}
	return marked, nil
}

// ApplyOptimistic cancels in-flight reads for key, captures a snapshot and
// applies transform in one critical section, so no read already in flight
// can land on top of the optimistic value. When transform returns an error
// or write=false the entry is left untouched.
func (s *Store) ApplyOptimistic(key Key, transform func(current any, present bool) (next any, write bool, err error)) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{Key: key}
	e, ok := s.entries[key]
	if ok {
		s.cancelLocked(e)
		snap.Data = e.data
		snap.Present = e.hasData
		snap.UpdatedAt = e.updatedAt
		snap.Invalidated = e.invalidated
	}

	next, write, err := transform(snap.Data, snap.Present)
	if err != nil || !write {
		return snap, err
	}

	e = s.getOrCreateLocked(key)
	s.setLocked(e, next)
	return snap, nil
}

// Snapshot captures the entry at key exactly
func (s *Store) Snapshot(key Key) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{Key: key}
	if e, ok := s.entries[key]; ok {
		snap.Data = e.data
		snap.Present = e.hasData
		snap.UpdatedAt = e.updatedAt
		snap.Invalidated = e.invalidated
	}
	return snap
}

// Restore puts the entry back to the captured state. An absent snapshot
// clears the data rather than leaving a partial value behind.
func (s *Store) Restore(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[snap.Key]
	if !snap.Present {
		if !ok {
			return
		}
		if len(e.subs) == 0 && e.inflight == nil {
			s.deleteLocked(e)
			return
		}
		e.data = nil
		e.hasData = false
		e.updatedAt = time.Time{}
		e.invalidated = snap.Invalidated
		s.notifyLocked(e)
		return
	}

	if !ok {
		e = s.getOrCreateLocked(snap.Key)
	}
	e.data = snap.Data
	e.hasData = true
	e.updatedAt = snap.UpdatedAt
	e.invalidated = snap.Invalidated
	s.notifyLocked(e)
	s.scheduleGCLocked(e)
}

// SetData writes data at key as fresh
func (s *Store) SetData(key Key, data any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setLocked(s.getOrCreateLocked(key), data)
}

func (s *Store) setLocked(e *entry, data any) {
	e.data = data
	e.hasData = true
	e.updatedAt = s.clock.Now()
	e.invalidated = false
	e.err = nil
	s.notifyLocked(e)
	s.scheduleGCLocked(e)
}

// GetData returns the cached value at key without fetching
func (s *Store) GetData(key Key) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || !e.hasData {
		return nil, false
	}
	return e.data, true
}

// State returns a view of the entry at key
func (s *Store) State(key Key) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return State{}
	}
	return State{
		Data:        e.data,
		HasData:     e.hasData,
		UpdatedAt:   e.updatedAt,
		Invalidated: e.invalidated,
		Fetching:    e.inflight != nil,
		Err:         e.err,
	}
}

// IsStale reports whether the next Fetch for key would go to the network
func (s *Store) IsStale(key Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || !e.hasData {
		return true
	}
	return s.staleLocked(e)
}

// IsInvalidated reports whether key was explicitly invalidated since its last write
func (s *Store) IsInvalidated(key Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	return ok && e.invalidated
}

// Remove drops the entry at key, cancelling any fetch in flight
func (s *Store) Remove(key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[key]; ok {
		s.cancelLocked(e)
		s.deleteLocked(e)
	}
}

// Keys lists cached keys in order
func (s *Store) Keys() []Key {
	s.mu.Lock()
	keys := make([]Key, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	s.mu.Unlock()

	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func (s *Store) staleLocked(e *entry) bool {
	if e.invalidated {
		return true
	}
	return s.clock.Now().Sub(e.updatedAt) >= s.cfg.StaleTime
}

func (s *Store) getOrCreateLocked(key Key) *entry {
	if e, ok := s.entries[key]; ok {
		return e
	}
	e := &entry{key: key, subs: make(map[*Subscription]struct{})}
	s.entries[key] = e
	return e
}

func (s *Store) deleteLocked(e *entry) {
	if e.gcTimer != nil {
		e.gcTimer.Stop()
		e.gcTimer = nil
	}
	if s.entries[e.key] == e {
		delete(s.entries, e.key)
	}
}

func (s *Store) notifyLocked(e *entry) {
	for sub := range e.subs {
		select {
		case sub.ch <- struct{}{}:
		default:
		}
	}
}

func (s *Store) scheduleGCLocked(e *entry) {
	if len(e.subs) > 0 || s.cfg.GCTime <= 0 {
		return
	}
	if e.gcTimer != nil {
		e.gcTimer.Stop()
	}
	e.gcTimer = time.AfterFunc(s.cfg.GCTime, func() {
		s.collect(e)
	})
}

func (s *Store) collect(e *entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.entries[e.key] != e || len(e.subs) > 0 || e.inflight != nil {
		return
	}
	s.deleteLocked(e)
	util.CacheEvictionsTotal.Inc()
	s.logger.Debug("Cache entry collected", zap.String("key", string(e.key)))
}
