//go:build integration

package device_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/newtron-network/netconsole/internal/testutil"
	"github.com/newtron-network/netconsole/pkg/device"
	"github.com/newtron-network/netconsole/pkg/reconcile"
	"github.com/newtron-network/netconsole/pkg/util"
)

// redisConnector connects every node ID to the test Redis instance.
type redisConnector struct {
	conn *device.Conn
}

func (r *redisConnector) Connect(context.Context, string) (*device.Conn, error) {
	return r.conn, nil
}

func newRedisConnector(t *testing.T) *redisConnector {
	t.Helper()
	testutil.SkipIfNoRedis(t)
	testutil.SetupBothDBs(t)

	addr := testutil.RedisAddr()
	configDB := device.NewConfigDBClient(addr)
	stateDB := device.NewStateDBClient(addr)
	t.Cleanup(func() {
		configDB.Close()
		stateDB.Close()
	})

	ctx := testutil.Context(t)
	if err := configDB.Connect(ctx); err != nil {
		t.Fatalf("ConfigDBClient.Connect failed: %v", err)
	}
	if err := stateDB.Connect(ctx); err != nil {
		t.Fatalf("StateDBClient.Connect failed: %v", err)
	}
	return &redisConnector{conn: &device.Conn{Name: "test-leaf1", Config: configDB, State: stateDB}}
}

func TestConfigDBClient_KeysAndApply(t *testing.T) {
	conns := newRedisConnector(t)
	ctx := testutil.Context(t)
	db := conns.conn.Config

	keys, err := db.Keys(ctx, device.TablePort)
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(keys) != 3 {
		t.Errorf("PORT keys = %v, want 3", keys)
	}

	err = db.Apply(ctx, []device.TableChange{
		{Table: device.TableInterface, Key: "Ethernet0|10.1.0.0/31"},
		{Table: device.TableInterface, Key: "Ethernet0|10.9.0.1/24", Fields: map[string]string{}},
		{Table: device.TablePort, Key: "Ethernet0", Fields: map[string]string{"mtu": "1500"}},
	})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	addr := testutil.RedisAddr()
	if testutil.EntryExists(t, addr, testutil.ConfigDB, device.TableInterface, "Ethernet0|10.1.0.0/31") {
		t.Error("deleted entry still present")
	}
	if !testutil.EntryExists(t, addr, testutil.ConfigDB, device.TableInterface, "Ethernet0|10.9.0.1/24") {
		t.Error("field-less entry not created")
	}
	port := testutil.ReadEntry(t, addr, testutil.ConfigDB, device.TablePort, "Ethernet0")
	if port["mtu"] != "1500" || port["alias"] != "etp1" {
		t.Errorf("PORT|Ethernet0 = %v, want mtu updated and alias kept", port)
	}
}

func TestDiscovery_Redis(t *testing.T) {
	conns := newRedisConnector(t)

	obs, err := device.NewDiscovery(conns).Observe(testutil.Context(t), "test-leaf1", "Ethernet0")
	if err != nil {
		t.Fatalf("Observe: %v", err)
	}
	if obs.IPv4Address != "10.1.0.0" || obs.SubnetMask != "255.255.255.254" {
		t.Errorf("IPv4 = %s/%s", obs.IPv4Address, obs.SubnetMask)
	}
	if obs.OSPF == nil || obs.OSPF.ProcessID != 1 {
		t.Errorf("OSPF = %+v", obs.OSPF)
	}
	if obs.OperStatus != "up" {
		t.Errorf("OperStatus = %q", obs.OperStatus)
	}
}

func TestReconcile_Redis(t *testing.T) {
	conns := newRedisConnector(t)
	r := reconcile.New(device.NewExecutor(conns), reconcile.Options{Locker: device.NewInterfaceLease(conns, 0)})

	result, err := r.ReconcileFrom(testutil.Context(t), device.NewDiscovery(conns), "test-leaf1", "Ethernet8", "integration",
		func(d *reconcile.DesiredState) error {
			mtu := 1500
			d.AdminStatus = reconcile.AdminUp
			d.IPv4Address = "10.8.0.1"
			d.SubnetMask = "255.255.255.0"
			d.MTU = &mtu
			d.OSPFProcessID = "1"
			d.OSPFArea = "0"
			return nil
		})
	if err != nil {
		t.Fatalf("ReconcileFrom: %v", err)
	}
	if len(result.AppliedIntents) != 4 {
		t.Errorf("applied %d intents, want 4", len(result.AppliedIntents))
	}

	addr := testutil.RedisAddr()
	if !testutil.EntryExists(t, addr, testutil.ConfigDB, device.TableInterface, "Ethernet8|10.8.0.1/24") {
		t.Error("address not written")
	}
	ospf := testutil.ReadEntry(t, addr, testutil.ConfigDB, device.TableOSPFInterface, "Ethernet8")
	if ospf["process_id"] != "1" || ospf["area"] != "0" {
		t.Errorf("OSPFV2_INTERFACE|Ethernet8 = %v", ospf)
	}
	if testutil.EntryExists(t, addr, testutil.StateDB, "NETCONSOLE_LEASE", "test-leaf1|Ethernet8") {
		t.Error("lease not released")
	}
}

func TestStateDBClient_Lease(t *testing.T) {
	conns := newRedisConnector(t)
	ctx := testutil.Context(t)
	state := conns.conn.State

	ok, err := state.AcquireLease(ctx, "test-leaf1|Ethernet0", "holder-a", time.Minute)
	if err != nil || !ok {
		t.Fatalf("AcquireLease = %v, %v", ok, err)
	}
	if ok, _ := state.AcquireLease(ctx, "test-leaf1|Ethernet0", "holder-b", time.Minute); ok {
		t.Error("second holder must not acquire a held lease")
	}
	if ok, _ := state.ExtendLease(ctx, "test-leaf1|Ethernet0", "holder-b", time.Minute); ok {
		t.Error("non-holder must not extend")
	}
	if err := state.ReleaseLease(ctx, "test-leaf1|Ethernet0", "holder-b"); err == nil {
		t.Error("non-holder release should fail")
	}

	holder, acquired, err := state.LeaseHolder(ctx, "test-leaf1|Ethernet0")
	if err != nil || holder != "holder-a" || acquired.IsZero() {
		t.Errorf("LeaseHolder = %q, %v, %v", holder, acquired, err)
	}

	if err := state.ReleaseLease(ctx, "test-leaf1|Ethernet0", "holder-a"); err != nil {
		t.Fatalf("ReleaseLease: %v", err)
	}
	if err := state.ReleaseLease(ctx, "test-leaf1|Ethernet0", "holder-a"); err != nil {
		t.Errorf("releasing a free lease should succeed: %v", err)
	}

	locker := device.NewInterfaceLease(conns, time.Minute)
	state.AcquireLease(ctx, "test-leaf1|Ethernet4", "other-host", time.Minute)
	short, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
	defer cancel()
	if _, err := locker.Acquire(short, reconcile.LeaseKey{Device: "test-leaf1", Interface: "Ethernet4"}); !errors.Is(err, util.ErrInterfaceLocked) {
		t.Errorf("err = %v, want ErrInterfaceLocked", err)
	}
}
