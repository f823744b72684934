package querycache

import (
	"context"
	"time"
)

// Result is what a read exposes to the presentation layer
type Result[T any] struct {
	Data       T
	HasData    bool
	IsLoading  bool
	IsFetching bool
	Err        error
	UpdatedAt  time.Time
}

// Query is a typed read handle over one key
type Query[T any] struct {
	store *Store
	key   Key
	fetch FetchFunc
	sub   *Subscription
}

// NewQuery binds a typed fetcher to key
func NewQuery[T any](store *Store, key Key, fetch func(ctx context.Context) (T, error)) *Query[T] {
	return &Query[T]{
		store: store,
		key:   key,
		fetch: func(ctx context.Context) (any, error) {
			return fetch(ctx)
		},
	}
}

func (q *Query[T]) Key() Key {
	return q.key
}

// Observe subscribes the query so invalidations refetch it in the background
func (q *Query[T]) Observe() *Query[T] {
	if q.sub == nil {
		q.sub = q.store.Subscribe(q.key, q.fetch)
	}
	return q
}

// Changes is nil until Observe is called
func (q *Query[T]) Changes() <-chan struct{} {
	if q.sub == nil {
		return nil
	}
	return q.sub.Changes()
}

func (q *Query[T]) Close() {
	if q.sub != nil {
		q.sub.Close()
		q.sub = nil
	}
}

// Load serves fresh cached data or fetches it
func (q *Query[T]) Load(ctx context.Context) Result[T] {
	_, err := q.store.Fetch(ctx, q.key, q.fetch)
	return q.withErr(err)
}

// Refetch always fetches
func (q *Query[T]) Refetch(ctx context.Context) Result[T] {
	_, err := q.store.Refetch(ctx, q.key, q.fetch)
	return q.withErr(err)
}

// Result reads the current state without fetching
func (q *Query[T]) Result() Result[T] {
	st := q.store.State(q.key)

	var res Result[T]
	if st.HasData {
		if data, ok := st.Data.(T); ok {
			res.Data = data
			res.HasData = true
		}
	}
	res.IsFetching = st.Fetching
	res.IsLoading = st.Fetching && !res.HasData
	res.Err = st.Err
	res.UpdatedAt = st.UpdatedAt
	return res
}

func (q *Query[T]) withErr(err error) Result[T] {
	res := q.Result()
	if err != nil && res.Err == nil {
		res.Err = err
	}
	return res
}

// GetData returns the typed value cached at key
func GetData[T any](s *Store, key Key) (T, bool) {
	var zero T
	raw, ok := s.GetData(key)
	if !ok {
		return zero, false
	}
	data, ok := raw.(T)
	if !ok {
		return zero, false
	}
	return data, true
}
