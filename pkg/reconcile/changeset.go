package reconcile

import (
	"fmt"
	"strings"
)

// FieldGroup is a set of interface fields that change together and map to
// at most one intent.
type FieldGroup string

const (
	GroupAdminStatus FieldGroup = "admin_status"
	GroupIPv4        FieldGroup = "ipv4"
	GroupDescription FieldGroup = "description"
	GroupMTU         FieldGroup = "mtu"
	GroupIPv6        FieldGroup = "ipv6"
	GroupOSPF        FieldGroup = "ospf"
)

// FieldChange is one detected difference and the intent it implies.
type FieldChange struct {
	Group  FieldGroup `json:"group"`
	Intent string     `json:"intent"`
	Params Params     `json:"params"`
}

// ChangeSet is the list of pending intents for one interface. It is built
// fresh for every reconciliation attempt and never persisted.
type ChangeSet struct {
	Device    string        `json:"device,omitempty"`
	Interface string        `json:"interface"`
	Changes   []FieldChange `json:"changes"`
}

// NewChangeSet creates an empty ChangeSet for an interface.
func NewChangeSet(iface string) *ChangeSet {
	return &ChangeSet{
		Interface: iface,
		Changes:   make([]FieldChange, 0),
	}
}

// Add appends a change to the set.
func (cs *ChangeSet) Add(group FieldGroup, intent string, params Params) {
	cs.Changes = append(cs.Changes, FieldChange{
		Group:  group,
		Intent: intent,
		Params: params,
	})
}

// IsEmpty returns true if there are no changes.
func (cs *ChangeSet) IsEmpty() bool {
	return len(cs.Changes) == 0
}

// String returns a human-readable representation of the changes.
func (cs *ChangeSet) String() string {
	if cs.IsEmpty() {
		return "No changes"
	}

	var sb strings.Builder
	for _, c := range cs.Changes {
		sb.WriteString(fmt.Sprintf("  [%s] %s", strings.ToUpper(string(c.Group)), c.Intent))
		if len(c.Params) > 0 {
			sb.WriteString(fmt.Sprintf(" → %s", c.Params))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// Preview returns a formatted preview of the changes.
func (cs *ChangeSet) Preview() string {
	var sb strings.Builder
	if cs.Device != "" {
		sb.WriteString(fmt.Sprintf("Device: %s\n", cs.Device))
	}
	sb.WriteString(fmt.Sprintf("Interface: %s\n", cs.Interface))
	sb.WriteString(fmt.Sprintf("Changes:\n%s", cs.String()))
	return sb.String()
}
