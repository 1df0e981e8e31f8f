// Package reconcile computes and applies the configuration intents needed to
// move one device interface from its observed state to an operator's desired
// state.
//
// Diff and Sequence are pure. Reconciler executes the resulting intents one at
// a time against an Executor and stops at the first failure. Already-applied
// intents are never rolled back: a failed run leaves the interface partially
// configured and the caller retries with a freshly observed state.
package reconcile

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/newtron-network/netconsole/pkg/util"
)

// AdminStatus is the administrative state of an interface.
type AdminStatus string

const (
	AdminUp   AdminStatus = "up"
	AdminDown AdminStatus = "down"
)

// ParseAdminStatus accepts up/down in any case. The empty string parses as
// AdminDown since an absent status means the interface is not enabled.
func ParseAdminStatus(s string) (AdminStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up":
		return AdminUp, nil
	case "down", "":
		return AdminDown, nil
	}
	return "", fmt.Errorf("admin status must be 'up' or 'down', got %q", s)
}

// IsUp reports whether the status is up. Anything else, including the empty
// value, is down.
func (s AdminStatus) IsUp() bool {
	return strings.EqualFold(string(s), string(AdminUp))
}

// UnmarshalText normalizes case so "Up" and "UP" decode to AdminUp.
func (s *AdminStatus) UnmarshalText(text []byte) error {
	v, err := ParseAdminStatus(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// OSPFMembership is the association of an interface with an OSPF process and area.
type OSPFMembership struct {
	ProcessID int `json:"process_id" yaml:"process_id"`
	Area      int `json:"area" yaml:"area"`
}

// ObservedState is a snapshot of one interface as discovered on the device.
// It is captured once per reconciliation run and never modified.
type ObservedState struct {
	Name          string          `json:"name"`
	AdminStatus   AdminStatus     `json:"admin_status"`
	OperStatus    string          `json:"oper_status,omitempty"`
	Description   string          `json:"description,omitempty"`
	MACAddress    string          `json:"mac_address,omitempty"`
	Duplex        string          `json:"duplex,omitempty"`
	AutoNegotiate bool            `json:"auto_negotiate"`
	IPv4Address   string          `json:"ipv4_address,omitempty"`
	SubnetMask    string          `json:"subnet_mask,omitempty"`
	IPv6Address   string          `json:"ipv6_address,omitempty"`
	MTU           *int            `json:"mtu,omitempty"`
	OSPF          *OSPFMembership `json:"ospf,omitempty"`
	LastChange    *time.Time      `json:"last_change,omitempty"`
}

// ospfStrings renders the OSPF membership the way an operator edits it:
// empty strings when the interface is not a member.
func (o *ObservedState) ospfStrings() (string, string) {
	if o.OSPF == nil {
		return "", ""
	}
	return strconv.Itoa(o.OSPF.ProcessID), strconv.Itoa(o.OSPF.Area)
}

// DesiredState is the operator-edited target for one interface. It has the
// shape of ObservedState minus the read-only fields. OSPF process and area
// are free text so that clearing both expresses "leave OSPF".
type DesiredState struct {
	Name          string      `json:"name" yaml:"name"`
	AdminStatus   AdminStatus `json:"admin_status" yaml:"admin_status"`
	Description   string      `json:"description" yaml:"description"`
	Duplex        string      `json:"duplex,omitempty" yaml:"duplex,omitempty"`
	AutoNegotiate bool        `json:"auto_negotiate" yaml:"auto_negotiate"`
	IPv4Address   string      `json:"ipv4_address" yaml:"ipv4_address"`
	SubnetMask    string      `json:"subnet_mask" yaml:"subnet_mask"`
	IPv6Address   string      `json:"ipv6_address" yaml:"ipv6_address"`
	MTU           *int        `json:"mtu" yaml:"mtu"`
	OSPFProcessID string      `json:"ospf_process_id" yaml:"ospf_process_id"`
	OSPFArea      string      `json:"ospf_area" yaml:"ospf_area"`
}

// NewDesiredState returns an editable copy of the observed state.
func NewDesiredState(o *ObservedState) *DesiredState {
	d := &DesiredState{
		Name:          o.Name,
		AdminStatus:   o.AdminStatus,
		Description:   o.Description,
		Duplex:        o.Duplex,
		AutoNegotiate: o.AutoNegotiate,
		IPv4Address:   o.IPv4Address,
		SubnetMask:    o.SubnetMask,
		IPv6Address:   o.IPv6Address,
	}
	if o.MTU != nil {
		mtu := *o.MTU
		d.MTU = &mtu
	}
	d.OSPFProcessID, d.OSPFArea = o.ospfStrings()
	return d
}

// Validate reports operator input that can never produce a valid intent.
// Incomplete groups (an address without a mask, a process without an area)
// are not errors; the diff simply skips them.
func (d *DesiredState) Validate() error {
	v := &util.ValidationBuilder{}

	v.Add(strings.TrimSpace(d.Name) != "", "interface name is required")
	if _, err := ParseAdminStatus(string(d.AdminStatus)); err != nil {
		v.AddErrorf("%v", err)
	}
	if d.IPv4Address != "" && !util.IsValidIPv4(d.IPv4Address) {
		v.AddErrorf("invalid IPv4 address: %q", d.IPv4Address)
	}
	if d.SubnetMask != "" && !util.IsValidIPv4Mask(d.SubnetMask) {
		v.AddErrorf("invalid subnet mask: %q", d.SubnetMask)
	}
	if d.IPv6Address != "" {
		ip, prefix := splitIPv6(d.IPv6Address)
		if !util.IsValidIPv6(ip) {
			v.AddErrorf("invalid IPv6 address: %q", d.IPv6Address)
		} else if n, err := strconv.Atoi(prefix); err != nil || n < 0 || n > 128 {
			v.AddErrorf("invalid IPv6 prefix length: %q", prefix)
		}
	}
	if d.MTU != nil && *d.MTU != 0 {
		if err := util.ValidateMTU(*d.MTU); err != nil {
			v.AddErrorf("%v", err)
		}
	}
	if proc := strings.TrimSpace(d.OSPFProcessID); proc != "" {
		if n, err := strconv.Atoi(proc); err != nil || n < 1 {
			v.AddErrorf("OSPF process id must be a positive integer, got %q", d.OSPFProcessID)
		}
	}
	if area := strings.TrimSpace(d.OSPFArea); area != "" {
		if n, err := strconv.Atoi(area); err != nil || n < 0 {
			v.AddErrorf("OSPF area must be a non-negative integer, got %q", d.OSPFArea)
		}
	}

	return v.Build()
}
