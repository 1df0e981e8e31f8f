package device

import (
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/newtron-network/netconsole/pkg/reconcile"
	"github.com/newtron-network/netconsole/pkg/util"
)

// Discovery builds an ObservedState from CONFIG_DB and STATE_DB.
type Discovery struct {
	conns Connector
}

// NewDiscovery creates a Discovery that reaches devices through conns.
func NewDiscovery(conns Connector) *Discovery {
	return &Discovery{conns: conns}
}

// Observe implements reconcile.StateSource. Configuration comes from
// CONFIG_DB; operational fields come from STATE_DB and are left empty when
// STATE_DB is unavailable.
func (d *Discovery) Observe(ctx context.Context, nodeID, iface string) (*reconcile.ObservedState, error) {
	name := util.NormalizeInterfaceName(iface)
	logger := util.WithInterface(nodeID, name)

	conn, err := d.conns.Connect(ctx, nodeID)
	if err != nil {
		return nil, err
	}

	vals, err := conn.Config.Get(ctx, TablePort, name)
	if err != nil {
		forget(d.conns, nodeID)
		return nil, fmt.Errorf("reading %s|%s: %w", TablePort, name, err)
	}
	if len(vals) == 0 {
		return nil, fmt.Errorf("interface %s on %s: %w", name, nodeID, util.ErrNotFound)
	}
	port := parsePortEntry(vals)

	obs := &reconcile.ObservedState{
		Name:          name,
		Description:   port.Description,
		AutoNegotiate: parseBool(port.Autoneg),
	}
	if obs.AdminStatus, err = reconcile.ParseAdminStatus(port.AdminStatus); err != nil {
		logger.Warnf("Unrecognized admin_status %q, treating as down", port.AdminStatus)
		obs.AdminStatus = reconcile.AdminDown
	}
	if mtu, err := strconv.Atoi(port.MTU); err == nil {
		obs.MTU = &mtu
	}

	if err := d.loadAddresses(ctx, conn.Config, obs); err != nil {
		return nil, err
	}
	if err := d.loadOSPF(ctx, conn.Config, obs, logger.Warnf); err != nil {
		return nil, err
	}

	state, err := conn.State.GetEntry(ctx, TablePortState, name)
	if err != nil {
		logger.Warnf("Failed to read state_db: %v", err)
		return obs, nil
	}
	applyPortState(obs, parsePortStateEntry(state))
	return obs, nil
}

// loadAddresses picks the first IPv4 and the first global IPv6 address bound
// to the interface, in key order.
func (d *Discovery) loadAddresses(ctx context.Context, db ConfigStore, obs *reconcile.ObservedState) error {
	keys, err := db.Keys(ctx, TableInterface)
	if err != nil {
		return fmt.Errorf("listing %s: %w", TableInterface, err)
	}
	sort.Strings(keys)

	for _, key := range keys {
		name, cidr := splitInterfaceKey(key)
		if name != obs.Name || cidr == "" {
			continue
		}
		ip, length := util.SplitIPMask(cidr)
		switch {
		case util.IsValidIPv4(ip):
			if obs.IPv4Address != "" {
				continue
			}
			mask, err := util.PrefixLenToMask(length)
			if err != nil {
				continue
			}
			obs.IPv4Address, obs.SubnetMask = ip, mask
		case util.IsValidIPv6(ip) && !isLinkLocal(cidr):
			if obs.IPv6Address == "" {
				obs.IPv6Address = cidr
			}
		}
	}
	return nil
}

func (d *Discovery) loadOSPF(ctx context.Context, db ConfigStore, obs *reconcile.ObservedState, warnf func(string, ...interface{})) error {
	vals, err := db.Get(ctx, TableOSPFInterface, obs.Name)
	if err != nil {
		return fmt.Errorf("reading %s|%s: %w", TableOSPFInterface, obs.Name, err)
	}
	if len(vals) == 0 {
		return nil
	}
	proc, err := strconv.Atoi(vals["process_id"])
	if err != nil {
		warnf("Ignoring OSPF entry with process_id %q", vals["process_id"])
		return nil
	}
	area, err := parseArea(vals["area"])
	if err != nil {
		warnf("Ignoring OSPF entry with area %q", vals["area"])
		return nil
	}
	obs.OSPF = &reconcile.OSPFMembership{ProcessID: proc, Area: area}
	return nil
}

func applyPortState(obs *reconcile.ObservedState, st PortStateEntry) {
	obs.OperStatus = st.OperStatus
	obs.MACAddress = st.MAC
	obs.Duplex = st.Duplex
	if obs.MTU == nil {
		if mtu, err := strconv.Atoi(st.MTU); err == nil {
			obs.MTU = &mtu
		}
	}
	if ts, ok := parseLastChange(st.LastChange); ok {
		obs.LastChange = &ts
	}
}

// parseArea accepts an area as a decimal number or in dotted-quad form.
func parseArea(s string) (int, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	ip := net.ParseIP(s).To4()
	if ip == nil {
		return 0, fmt.Errorf("invalid OSPF area %q", s)
	}
	return int(binary.BigEndian.Uint32(ip)), nil
}

// normalizeArea renders an area as a decimal string. Unparseable values are
// returned unchanged.
func normalizeArea(s string) string {
	n, err := parseArea(s)
	if err != nil {
		return s
	}
	return strconv.Itoa(n)
}

// parseLastChange accepts RFC 3339 or Unix seconds.
func parseLastChange(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, true
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), true
	}
	return time.Time{}, false
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}
