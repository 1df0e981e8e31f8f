package reconcile

import (
	"strconv"
	"strings"
)

// defaultIPv6Prefix is used when the operator enters an IPv6 address
// without a /prefix suffix.
const defaultIPv6Prefix = "64"

// rule decides whether one field group changed and, if so, what intent it
// implies. A rule returning ok=false emits nothing; that covers both "no
// change" and "change detected but the group is incomplete".
type rule struct {
	group FieldGroup
	eval  func(o *ObservedState, d *DesiredState) (intent string, params Params, ok bool)
}

// rules lists every field group. Evaluation order here has no bearing on
// execution order; see Sequence.
var rules = []rule{
	{GroupAdminStatus, adminStatusRule},
	{GroupIPv4, ipv4Rule},
	{GroupDescription, descriptionRule},
	{GroupMTU, mtuRule},
	{GroupIPv6, ipv6Rule},
	{GroupOSPF, ospfRule},
}

func adminStatusRule(o *ObservedState, d *DesiredState) (string, Params, bool) {
	if o.AdminStatus.IsUp() == d.AdminStatus.IsUp() {
		return "", nil, false
	}
	intent := IntentDisable
	if d.AdminStatus.IsUp() {
		intent = IntentEnable
	}
	return intent, Params{ParamInterface: o.Name}, true
}

// ipv4Rule requires address and mask together: a half-entered pair is skipped.
func ipv4Rule(o *ObservedState, d *DesiredState) (string, Params, bool) {
	if d.IPv4Address == o.IPv4Address && d.SubnetMask == o.SubnetMask {
		return "", nil, false
	}
	if d.IPv4Address == "" || d.SubnetMask == "" {
		return "", nil, false
	}
	return IntentSetIPv4, Params{
		ParamInterface: o.Name,
		ParamIP:        d.IPv4Address,
		ParamMask:      d.SubnetMask,
	}, true
}

func descriptionRule(o *ObservedState, d *DesiredState) (string, Params, bool) {
	if d.Description == o.Description {
		return "", nil, false
	}
	return IntentSetDescription, Params{
		ParamInterface:   o.Name,
		ParamDescription: d.Description,
	}, true
}

// mtuRule ignores a cleared or zero MTU: there is no "unset MTU" intent.
func mtuRule(o *ObservedState, d *DesiredState) (string, Params, bool) {
	if d.MTU == nil || *d.MTU == 0 {
		return "", nil, false
	}
	if o.MTU != nil && *o.MTU == *d.MTU {
		return "", nil, false
	}
	return IntentSetMTU, Params{
		ParamInterface: o.Name,
		ParamMTU:       *d.MTU,
	}, true
}

func ipv6Rule(o *ObservedState, d *DesiredState) (string, Params, bool) {
	if d.IPv6Address == o.IPv6Address || d.IPv6Address == "" {
		return "", nil, false
	}
	ip, prefix := splitIPv6(d.IPv6Address)
	return IntentSetIPv6, Params{
		ParamInterface: o.Name,
		ParamIP:        ip,
		ParamPrefix:    prefix,
	}, true
}

// ospfRule compares (process, area) pairs as strings.
//
//	old empty,     new empty         -> nothing
//	new complete,  differs from old  -> add with new values
//	new empty,     old non-empty     -> remove with old values
//	anything else                    -> nothing
//
// Moving between two memberships emits only the add; the old membership is
// left in place.
func ospfRule(o *ObservedState, d *DesiredState) (string, Params, bool) {
	oldProc, oldArea := o.ospfStrings()
	newProc := strings.TrimSpace(d.OSPFProcessID)
	newArea := strings.TrimSpace(d.OSPFArea)

	oldEmpty := oldProc == "" && oldArea == ""
	newEmpty := newProc == "" && newArea == ""
	newComplete := newProc != "" && newArea != ""

	switch {
	case oldEmpty && newEmpty:
		return "", nil, false
	case newComplete && (newProc != oldProc || newArea != oldArea):
		params, ok := ospfParams(o.Name, newProc, newArea)
		return IntentOSPFAdd, params, ok
	case newEmpty && !oldEmpty:
		params, ok := ospfParams(o.Name, oldProc, oldArea)
		return IntentOSPFRemove, params, ok
	}
	return "", nil, false
}

func ospfParams(iface, proc, area string) (Params, bool) {
	p, err := strconv.Atoi(proc)
	if err != nil {
		return nil, false
	}
	a, err := strconv.Atoi(area)
	if err != nil {
		return nil, false
	}
	return Params{
		ParamProcessID: p,
		ParamInterface: iface,
		ParamArea:      a,
	}, true
}

// splitIPv6 splits "addr/prefix"; an address without a prefix gets /64.
func splitIPv6(v string) (ip, prefix string) {
	if i := strings.Index(v, "/"); i >= 0 {
		return v[:i], v[i+1:]
	}
	return v, defaultIPv6Prefix
}
