package mutation

import (
	"context"
	"sync"
)

// Locker serializes mutations that target the same entity.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// NopLocker lets concurrent mutations on one entity race; the last response wins.
type NopLocker struct{}

func (NopLocker) Acquire(ctx context.Context, key string) (func(), error) {
	return func() {}, nil
}

// KeyedMutex is an in-process Locker holding one mutex per key. Waiters
// queue until the holder releases or their context ends.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	ch   chan struct{}
	refs int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyLock)}
}

func (k *KeyedMutex) Acquire(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{ch: make(chan struct{}, 1)}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	select {
	case l.ch <- struct{}{}:
	case <-ctx.Done():
		k.unref(key, l)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-l.ch
			k.unref(key, l)
		})
	}, nil
}

func (k *KeyedMutex) unref(key string, l *keyLock) {
	k.mu.Lock()
	defer k.mu.Unlock()

	l.refs--
	if l.refs == 0 && k.locks[key] == l {
		delete(k.locks, key)
	}
}

// Held reports how many keys currently have a holder or waiter
func (k *KeyedMutex) Held() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
