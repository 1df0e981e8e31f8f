package device

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/newtron-network/netconsole/pkg/reconcile"
	"github.com/newtron-network/netconsole/pkg/util"
)

// Executor applies reconcile intents as CONFIG_DB writes. Each intent is a
// single atomic pipeline.
type Executor struct {
	conns Connector
}

// NewExecutor creates an Executor that reaches devices through conns.
func NewExecutor(conns Connector) *Executor {
	return &Executor{conns: conns}
}

type intentHandler func(ctx context.Context, db ConfigStore, iface string, p reconcile.Params) ([]TableChange, error)

var intentHandlers = map[string]intentHandler{
	reconcile.IntentEnable:         adminStatusHandler("up"),
	reconcile.IntentDisable:        adminStatusHandler("down"),
	reconcile.IntentSetIPv4:        setIPv4,
	reconcile.IntentSetDescription: setDescription,
	reconcile.IntentSetMTU:         setMTU,
	reconcile.IntentSetIPv6:        setIPv6,
	reconcile.IntentOSPFAdd:        ospfAdd,
	reconcile.IntentOSPFRemove:     ospfRemove,
}

// Execute implements reconcile.Executor.
func (e *Executor) Execute(ctx context.Context, intent, nodeID string, params reconcile.Params) error {
	handler, ok := intentHandlers[intent]
	if !ok {
		return fmt.Errorf("%s: %w", intent, util.ErrUnknownIntent)
	}
	iface, err := paramString(params, reconcile.ParamInterface)
	if err != nil {
		return err
	}

	conn, err := e.conns.Connect(ctx, nodeID)
	if err != nil {
		return err
	}

	changes, err := handler(ctx, conn.Config, iface, params)
	if err != nil {
		return err
	}
	if err := conn.Config.Apply(ctx, changes); err != nil {
		forget(e.conns, nodeID)
		return fmt.Errorf("writing config_db on %s: %w", nodeID, err)
	}

	util.WithInterface(nodeID, iface).Debugf("Applied %s (%d change(s))", intent, len(changes))
	return nil
}

// requirePort fails unless iface is a configured port.
func requirePort(ctx context.Context, db ConfigStore, iface, operation string) error {
	vals, err := db.Get(ctx, TablePort, iface)
	if err != nil {
		return fmt.Errorf("reading %s|%s: %w", TablePort, iface, err)
	}
	if len(vals) == 0 {
		return util.NewPreconditionError(operation, iface, "interface must exist", "not in PORT table")
	}
	return nil
}

func adminStatusHandler(status string) intentHandler {
	return func(ctx context.Context, db ConfigStore, iface string, _ reconcile.Params) ([]TableChange, error) {
		if err := requirePort(ctx, db, iface, "set admin status"); err != nil {
			return nil, err
		}
		return []TableChange{{Table: TablePort, Key: iface, Fields: map[string]string{"admin_status": status}}}, nil
	}
}

func setDescription(ctx context.Context, db ConfigStore, iface string, p reconcile.Params) ([]TableChange, error) {
	desc, err := paramString(p, reconcile.ParamDescription)
	if err != nil {
		return nil, err
	}
	if err := requirePort(ctx, db, iface, "set description"); err != nil {
		return nil, err
	}
	return []TableChange{{Table: TablePort, Key: iface, Fields: map[string]string{"description": desc}}}, nil
}

func setMTU(ctx context.Context, db ConfigStore, iface string, p reconcile.Params) ([]TableChange, error) {
	mtu, err := paramInt(p, reconcile.ParamMTU)
	if err != nil {
		return nil, err
	}
	if err := util.ValidateMTU(mtu); err != nil {
		return nil, err
	}
	if err := requirePort(ctx, db, iface, "set MTU"); err != nil {
		return nil, err
	}
	return []TableChange{{Table: TablePort, Key: iface, Fields: map[string]string{"mtu": strconv.Itoa(mtu)}}}, nil
}

func setIPv4(ctx context.Context, db ConfigStore, iface string, p reconcile.Params) ([]TableChange, error) {
	ip, err := paramString(p, reconcile.ParamIP)
	if err != nil {
		return nil, err
	}
	mask, err := paramString(p, reconcile.ParamMask)
	if err != nil {
		return nil, err
	}
	if !util.IsValidIPv4(ip) {
		return nil, fmt.Errorf("invalid IPv4 address: %q", ip)
	}
	length, err := util.MaskToPrefixLen(mask)
	if err != nil {
		return nil, err
	}
	return replaceAddress(ctx, db, iface, fmt.Sprintf("%s/%d", ip, length), false)
}

func setIPv6(ctx context.Context, db ConfigStore, iface string, p reconcile.Params) ([]TableChange, error) {
	ip, err := paramString(p, reconcile.ParamIP)
	if err != nil {
		return nil, err
	}
	prefix, err := paramInt(p, reconcile.ParamPrefix)
	if err != nil {
		return nil, err
	}
	if !util.IsValidIPv6(ip) {
		return nil, fmt.Errorf("invalid IPv6 address: %q", ip)
	}
	if prefix < 0 || prefix > 128 {
		return nil, fmt.Errorf("IPv6 prefix length must be between 0 and 128, got %d", prefix)
	}
	return replaceAddress(ctx, db, iface, fmt.Sprintf("%s/%d", ip, prefix), true)
}

// replaceAddress writes the INTERFACE base entry (if missing) and the address
// entry, removing any other address of the same family. IPv6 link-local
// addresses are left alone.
func replaceAddress(ctx context.Context, db ConfigStore, iface, cidr string, v6 bool) ([]TableChange, error) {
	keys, err := db.Keys(ctx, TableInterface)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", TableInterface, err)
	}

	var changes []TableChange
	hasBase := false
	for _, key := range keys {
		name, addr := splitInterfaceKey(key)
		if name != iface {
			continue
		}
		if addr == "" {
			hasBase = true
			continue
		}
		if addr == cidr || isIPv6(addr) != v6 || isLinkLocal(addr) {
			continue
		}
		changes = append(changes, TableChange{Table: TableInterface, Key: key})
	}

	if !hasBase {
		changes = append(changes, TableChange{Table: TableInterface, Key: iface, Fields: map[string]string{}})
	}
	changes = append(changes, TableChange{Table: TableInterface, Key: interfaceIPKey(iface, cidr), Fields: map[string]string{}})
	return changes, nil
}

func ospfAdd(ctx context.Context, db ConfigStore, iface string, p reconcile.Params) ([]TableChange, error) {
	entry, err := ospfEntry(p)
	if err != nil {
		return nil, err
	}
	return []TableChange{{Table: TableOSPFInterface, Key: iface, Fields: entry.fields()}}, nil
}

// ospfRemove deletes the membership only when it matches the given process
// and area. An interface that is not a member is already in the target state.
func ospfRemove(ctx context.Context, db ConfigStore, iface string, p reconcile.Params) ([]TableChange, error) {
	want, err := ospfEntry(p)
	if err != nil {
		return nil, err
	}
	vals, err := db.Get(ctx, TableOSPFInterface, iface)
	if err != nil {
		return nil, fmt.Errorf("reading %s|%s: %w", TableOSPFInterface, iface, err)
	}
	if len(vals) == 0 {
		return nil, nil
	}
	if vals["process_id"] != want.ProcessID || normalizeArea(vals["area"]) != want.Area {
		return nil, util.NewPreconditionError("remove OSPF membership", iface,
			fmt.Sprintf("interface must be in process %s area %s", want.ProcessID, want.Area),
			fmt.Sprintf("found process %s area %s", vals["process_id"], vals["area"]))
	}
	return []TableChange{{Table: TableOSPFInterface, Key: iface}}, nil
}

func ospfEntry(p reconcile.Params) (OSPFInterfaceEntry, error) {
	proc, err := paramInt(p, reconcile.ParamProcessID)
	if err != nil {
		return OSPFInterfaceEntry{}, err
	}
	area, err := paramInt(p, reconcile.ParamArea)
	if err != nil {
		return OSPFInterfaceEntry{}, err
	}
	return OSPFInterfaceEntry{ProcessID: strconv.Itoa(proc), Area: strconv.Itoa(area)}, nil
}

func isIPv6(cidr string) bool {
	return strings.Contains(cidr, ":")
}

func isLinkLocal(cidr string) bool {
	return strings.HasPrefix(strings.ToLower(cidr), "fe80:")
}

// paramString returns a required string parameter.
func paramString(p reconcile.Params, key string) (string, error) {
	v, ok := p[key]
	if !ok {
		return "", fmt.Errorf("missing parameter %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("parameter %q must be a string, got %T", key, v)
	}
	return s, nil
}

// paramInt returns a required integer parameter. Params decoded from JSON
// carry numbers as float64 or json.Number; numeric strings are accepted too.
func paramInt(p reconcile.Params, key string) (int, error) {
	v, ok := p[key]
	if !ok {
		return 0, fmt.Errorf("missing parameter %q", key)
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("parameter %q must be an integer, got %v", key, n)
		}
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, fmt.Errorf("parameter %q must be an integer: %w", key, err)
		}
		return int(i), nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, fmt.Errorf("parameter %q must be an integer, got %q", key, n)
		}
		return i, nil
	}
	return 0, fmt.Errorf("parameter %q must be an integer, got %T", key, v)
}
