package querycache

import "sync"

// Subscription marks a key as actively observed, the equivalent of a
// mounted view. Invalidating an observed key refetches it immediately.
type Subscription struct {
	store *Store
	key   Key
	ch    chan struct{}
	once  sync.Once
}

// Subscribe registers an observer for key. fn becomes the key's fetcher
// when non-nil.
func (s *Store) Subscribe(key Key, fn FetchFunc) *Subscription {
	sub := &Subscription{store: s, key: key, ch: make(chan struct{}, 1)}

	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.getOrCreateLocked(key)
	if e.gcTimer != nil {
		e.gcTimer.Stop()
		e.gcTimer = nil
	}
	if fn != nil {
		e.fetcher = fn
	}
	e.subs[sub] = struct{}{}
	return sub
}

// Key returns the observed key
func (sub *Subscription) Key() Key {
	return sub.key
}

// Changes signals, coalesced, whenever the entry's data or fetch state changes
func (sub *Subscription) Changes() <-chan struct{} {
	return sub.ch
}

// Close unregisters the observer. The last one to leave starts the GC window.
func (sub *Subscription) Close() {
	sub.once.Do(func() {
		s := sub.store
		s.mu.Lock()
		defer s.mu.Unlock()

		e, ok := s.entries[sub.key]
		if !ok {
			return
		}
		delete(e.subs, sub)
		s.scheduleGCLocked(e)
	})
}
