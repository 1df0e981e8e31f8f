package device

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/newtron-network/netconsole/pkg/util"
)

func TestDiscovery_Observe(t *testing.T) {
	conns := newFakeConnector()
	conns.add("leaf1-ny", leafConfig(), leafState())
	d := NewDiscovery(conns)

	obs, err := d.Observe(context.Background(), "leaf1-ny", "Ethernet0")
	if err != nil {
		t.Fatalf("Observe: %v", err)
	}

	if obs.Name != "Ethernet0" || !obs.AdminStatus.IsUp() {
		t.Errorf("name/admin = %s/%s", obs.Name, obs.AdminStatus)
	}
	if obs.Description != "to spine1" || !obs.AutoNegotiate {
		t.Errorf("description/autoneg = %q/%v", obs.Description, obs.AutoNegotiate)
	}
	if obs.MTU == nil || *obs.MTU != 9100 {
		t.Errorf("MTU = %v, want 9100", obs.MTU)
	}
	if obs.IPv4Address != "10.1.0.0" || obs.SubnetMask != "255.255.255.254" {
		t.Errorf("IPv4 = %s %s", obs.IPv4Address, obs.SubnetMask)
	}
	if obs.IPv6Address != "2001:db8::/127" {
		t.Errorf("IPv6 = %q, link-local must be skipped", obs.IPv6Address)
	}
	if obs.OSPF == nil || obs.OSPF.ProcessID != 1 || obs.OSPF.Area != 0 {
		t.Errorf("OSPF = %+v, want process 1 area 0", obs.OSPF)
	}
	if obs.OperStatus != "up" || obs.MACAddress != "52:54:00:12:34:56" || obs.Duplex != "full" {
		t.Errorf("state fields = %s %s %s", obs.OperStatus, obs.MACAddress, obs.Duplex)
	}
	if obs.LastChange == nil || !obs.LastChange.Equal(time.Unix(1700000000, 0)) {
		t.Errorf("LastChange = %v", obs.LastChange)
	}
}

func TestDiscovery_ObserveSparsePort(t *testing.T) {
	conns := newFakeConnector()
	conns.add("leaf1-ny", leafConfig(), leafState())
	d := NewDiscovery(conns)

	// Abbreviated names are normalized before lookup.
	obs, err := d.Observe(context.Background(), "leaf1-ny", "eth4")
	if err != nil {
		t.Fatalf("Observe: %v", err)
	}
	if obs.Name != "Ethernet4" {
		t.Errorf("Name = %q, want Ethernet4", obs.Name)
	}
	if obs.AdminStatus.IsUp() {
		t.Error("Ethernet4 should be down")
	}
	if obs.MTU == nil || *obs.MTU != 9100 {
		t.Errorf("MTU should fall back to state_db, got %v", obs.MTU)
	}
	if obs.IPv4Address != "" || obs.IPv6Address != "" || obs.OSPF != nil {
		t.Errorf("unexpected addressing: %+v", obs)
	}
	if obs.AutoNegotiate || obs.LastChange != nil {
		t.Errorf("absent fields must default: %+v", obs)
	}
}

func TestDiscovery_Errors(t *testing.T) {
	conns := newFakeConnector()
	conns.add("leaf1-ny", leafConfig(), leafState())
	d := NewDiscovery(conns)

	if _, err := d.Observe(context.Background(), "leaf1-ny", "Ethernet99"); !errors.Is(err, util.ErrNotFound) {
		t.Errorf("missing interface err = %v, want ErrNotFound", err)
	}
	if _, err := d.Observe(context.Background(), "spine1", "Ethernet0"); err == nil {
		t.Error("expected error for unreachable device")
	}
}

func TestDiscovery_MissingStateDB(t *testing.T) {
	conns := newFakeConnector()
	conns.add("leaf1-ny", leafConfig(), newMemDB())
	d := NewDiscovery(conns)

	obs, err := d.Observe(context.Background(), "leaf1-ny", "Ethernet0")
	if err != nil {
		t.Fatalf("Observe: %v", err)
	}
	if obs.OperStatus != "" || obs.MACAddress != "" {
		t.Errorf("operational fields should be empty: %+v", obs)
	}
	if obs.OSPF == nil {
		t.Error("config fields must still be read")
	}
}

func TestParseArea(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"0", 0, false},
		{"51", 51, false},
		{"0.0.0.0", 0, false},
		{"0.0.0.10", 10, false},
		{"0.0.1.0", 256, false},
		{"backbone", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseArea(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseArea(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseLastChange(t *testing.T) {
	if _, ok := parseLastChange(""); ok {
		t.Error("empty should not parse")
	}
	ts, ok := parseLastChange("2024-03-01T10:00:00Z")
	if !ok || ts.Year() != 2024 {
		t.Errorf("RFC3339 parse = %v, %v", ts, ok)
	}
	if _, ok := parseLastChange("yesterday"); ok {
		t.Error("garbage should not parse")
	}
}
