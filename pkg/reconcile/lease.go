package reconcile

import (
	"context"
	"fmt"
	"sync"

	"github.com/newtron-network/netconsole/pkg/util"
)

// LeaseKey identifies the unit of mutual exclusion: one interface of one device.
type LeaseKey struct {
	Device    string
	Interface string
}

func (k LeaseKey) String() string {
	return k.Device + "|" + k.Interface
}

// Locker serializes reconciliation runs per LeaseKey. Acquire blocks until
// the key is free or ctx is done; on ctx expiry it returns an error wrapping
// util.ErrInterfaceLocked. The returned release func must be called exactly once.
type Locker interface {
	Acquire(ctx context.Context, key LeaseKey) (release func(), err error)
}

// KeyedLocker is an in-process Locker. Keys are reference counted and
// dropped once no run holds or waits for them.
type KeyedLocker struct {
	mu    sync.Mutex
	slots map[LeaseKey]*slot
}

type slot struct {
	sem  chan struct{}
	refs int
}

// NewKeyedLocker creates an empty KeyedLocker.
func NewKeyedLocker() *KeyedLocker {
	return &KeyedLocker{slots: make(map[LeaseKey]*slot)}
}

// Acquire implements Locker.
func (l *KeyedLocker) Acquire(ctx context.Context, key LeaseKey) (func(), error) {
	l.mu.Lock()
	s, ok := l.slots[key]
	if !ok {
		s = &slot{sem: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	l.mu.Unlock()

	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		l.unref(key, s)
		return nil, fmt.Errorf("%s: %w", key, util.ErrInterfaceLocked)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.sem
			l.unref(key, s)
		})
	}, nil
}

func (l *KeyedLocker) unref(key LeaseKey, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}

// held returns the number of keys currently tracked.
func (l *KeyedLocker) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}
