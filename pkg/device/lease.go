package device

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/newtron-network/netconsole/pkg/reconcile"
	"github.com/newtron-network/netconsole/pkg/util"
)

// Lease defaults.
const (
	DefaultLeaseTTL     = 60 * time.Second
	defaultPollInterval = 250 * time.Millisecond
)

// InterfaceLease is a reconcile.Locker backed by a per-interface hash in the
// device's STATE_DB, so runs from different netconsole processes are
// serialized too. The lease carries a TTL that is refreshed while held, so a
// crashed holder frees the interface once the TTL lapses.
type InterfaceLease struct {
	conns  Connector
	holder string
	ttl    time.Duration
	poll   time.Duration
}

// NewInterfaceLease creates a lease manager. A ttl of 0 selects DefaultLeaseTTL.
func NewInterfaceLease(conns Connector, ttl time.Duration) *InterfaceLease {
	if ttl <= 0 {
		ttl = DefaultLeaseTTL
	}
	host, _ := os.Hostname()
	return &InterfaceLease{
		conns:  conns,
		holder: fmt.Sprintf("%s/%d/%s", host, os.Getpid(), uuid.NewString()[:8]),
		ttl:    ttl,
		poll:   defaultPollInterval,
	}
}

// Acquire implements reconcile.Locker. It polls until the lease is free or
// ctx is done.
func (l *InterfaceLease) Acquire(ctx context.Context, key reconcile.LeaseKey) (func(), error) {
	conn, err := l.conns.Connect(ctx, key.Device)
	if err != nil {
		return nil, err
	}
	name := key.String()
	// Each acquisition gets its own holder so two runs in this process are
	// told apart.
	holder := l.holder + "/" + uuid.NewString()[:8]

	for {
		ok, err := conn.State.AcquireLease(ctx, name, holder, l.ttl)
		if err != nil {
			if ctx.Err() != nil {
				return nil, lockedError(conn.State, name)
			}
			return nil, err
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, lockedError(conn.State, name)
		case <-time.After(l.poll):
		}
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go l.keepAlive(conn.State, name, holder, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			if err := conn.State.ReleaseLease(context.Background(), name, holder); err != nil {
				util.WithInterface(key.Device, key.Interface).Warnf("Failed to release lease: %v", err)
			}
		})
	}, nil
}

// lockedError reports a lease that could not be taken before the deadline,
// naming the current holder when it can be read.
func lockedError(state StateStore, name string) error {
	current, _, _ := state.LeaseHolder(context.Background(), name)
	if current != "" {
		return fmt.Errorf("%s held by %s: %w", name, current, util.ErrInterfaceLocked)
	}
	return fmt.Errorf("%s: %w", name, util.ErrInterfaceLocked)
}

// keepAlive refreshes the TTL at a third of its length until stop closes.
func (l *InterfaceLease) keepAlive(state StateStore, name, holder string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(l.ttl / 3)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ok, err := state.ExtendLease(context.Background(), name, holder, l.ttl)
			if err != nil {
				util.Logger.Warnf("Failed to extend lease %s: %v", name, err)
				continue
			}
			if !ok {
				util.Logger.Warnf("Lease %s lost before release", name)
				return
			}
		}
	}
}
