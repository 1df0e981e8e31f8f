package reconcile

import (
	"strings"

	"github.com/newtron-network/netconsole/pkg/util"
)

// Edit is a partial change to a desired state. Nil fields keep the value
// copied from the observed state; a pointer to an empty string clears the
// field. It is the body of the plan and reconcile HTTP endpoints and the
// format of desired-state files read by the CLI.
type Edit struct {
	AdminStatus   *AdminStatus `json:"admin_status,omitempty" yaml:"admin_status,omitempty"`
	Description   *string      `json:"description,omitempty" yaml:"description,omitempty"`
	IPv4Address   *string      `json:"ipv4_address,omitempty" yaml:"ipv4_address,omitempty"`
	SubnetMask    *string      `json:"subnet_mask,omitempty" yaml:"subnet_mask,omitempty"`
	IPv6Address   *string      `json:"ipv6_address,omitempty" yaml:"ipv6_address,omitempty"`
	MTU           *int         `json:"mtu,omitempty" yaml:"mtu,omitempty"`
	OSPFProcessID *string      `json:"ospf_process_id,omitempty" yaml:"ospf_process_id,omitempty"`
	OSPFArea      *string      `json:"ospf_area,omitempty" yaml:"ospf_area,omitempty"`
}

// IsEmpty reports whether the edit changes nothing.
func (e *Edit) IsEmpty() bool {
	return e.AdminStatus == nil && e.Description == nil && e.IPv4Address == nil &&
		e.SubnetMask == nil && e.IPv6Address == nil && e.MTU == nil &&
		e.OSPFProcessID == nil && e.OSPFArea == nil
}

// SetIPv4CIDR fills address and mask from "a.b.c.d/len".
func (e *Edit) SetIPv4CIDR(cidr string) error {
	if !strings.Contains(cidr, "/") {
		return util.NewValidationError("IPv4 address must be in a.b.c.d/len form, got " + cidr)
	}
	ip, length := util.SplitIPMask(strings.TrimSpace(cidr))
	mask, err := util.PrefixLenToMask(length)
	if err != nil || length == 0 {
		return util.NewValidationError("invalid IPv4 prefix length in " + cidr)
	}
	e.IPv4Address = &ip
	e.SubnetMask = &mask
	return nil
}

// Apply copies the set fields onto d. Values are trimmed; validation is
// left to DesiredState.Validate.
func (e *Edit) Apply(d *DesiredState) error {
	if e.AdminStatus != nil {
		status, err := ParseAdminStatus(string(*e.AdminStatus))
		if err != nil {
			return util.NewValidationError(err.Error())
		}
		d.AdminStatus = status
	}
	setString(&d.Description, e.Description)
	setString(&d.IPv4Address, e.IPv4Address)
	setString(&d.SubnetMask, e.SubnetMask)
	setString(&d.IPv6Address, e.IPv6Address)
	setString(&d.OSPFProcessID, e.OSPFProcessID)
	setString(&d.OSPFArea, e.OSPFArea)
	if e.MTU != nil {
		mtu := *e.MTU
		d.MTU = &mtu
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}
