package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/newtron-network/netconsole/pkg/util"
)

func TestKeyedLocker_Exclusive(t *testing.T) {
	l := NewKeyedLocker()
	key := LeaseKey{Device: "leaf1-ny", Interface: "Ethernet0"}

	release, err := l.Acquire(context.Background(), key)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := l.Acquire(ctx, key); !errors.Is(err, util.ErrInterfaceLocked) {
		t.Fatalf("second Acquire err = %v, want ErrInterfaceLocked", err)
	}

	release()
	release() // idempotent

	release2, err := l.Acquire(context.Background(), key)
	if err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
	release2()

	if n := l.held(); n != 0 {
		t.Errorf("held() = %d after all releases, want 0", n)
	}
}

func TestKeyedLocker_IndependentKeys(t *testing.T) {
	l := NewKeyedLocker()

	r1, err := l.Acquire(context.Background(), LeaseKey{"leaf1-ny", "Ethernet0"})
	if err != nil {
		t.Fatal(err)
	}
	defer r1()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	r2, err := l.Acquire(ctx, LeaseKey{"leaf1-ny", "Ethernet4"})
	if err != nil {
		t.Fatalf("different interface should not block: %v", err)
	}
	defer r2()

	r3, err := l.Acquire(ctx, LeaseKey{"leaf2-ny", "Ethernet0"})
	if err != nil {
		t.Fatalf("different device should not block: %v", err)
	}
	defer r3()
}

func TestKeyedLocker_WaiterProceedsAfterRelease(t *testing.T) {
	l := NewKeyedLocker()
	key := LeaseKey{"leaf1-ny", "Ethernet0"}

	release, err := l.Acquire(context.Background(), key)
	if err != nil {
		t.Fatal(err)
	}

	acquired := make(chan struct{})
	go func() {
		r, err := l.Acquire(context.Background(), key)
		if err == nil {
			close(acquired)
			r()
		}
	}()

	select {
	case <-acquired:
		t.Fatal("waiter acquired while lease was held")
	case <-time.After(20 * time.Millisecond):
	}

	release()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("waiter did not acquire after release")
	}
}
