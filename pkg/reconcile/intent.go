package reconcile

import (
	"fmt"
	"sort"
	"strings"
)

// Intent names understood by the intent executor.
const (
	IntentEnable         = "interface.enable"
	IntentDisable        = "interface.disable"
	IntentSetIPv4        = "interface.set_ipv4"
	IntentSetDescription = "interface.set_description"
	IntentSetMTU         = "interface.set_mtu"
	IntentSetIPv6        = "interface.set_ipv6"
	IntentOSPFAdd        = "routing.ospf.add_network_interface"
	IntentOSPFRemove     = "routing.ospf.remove_network_interface"
)

// Parameter keys carried by intents.
const (
	ParamInterface   = "interface"
	ParamIP          = "ip"
	ParamMask        = "mask"
	ParamPrefix      = "prefix"
	ParamDescription = "description"
	ParamMTU         = "mtu"
	ParamProcessID   = "process_id"
	ParamArea        = "area"
)

// Params holds intent parameters. Values are strings or ints.
type Params map[string]any

// clone returns a shallow copy so intents never share a map with the change set.
func (p Params) clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// String renders params as key=value pairs sorted by key.
func (p Params) String() string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, p[k]))
	}
	return strings.Join(parts, " ")
}

// Intent is the atomic unit sent to the intent executor.
type Intent struct {
	Name   string `json:"name"`
	NodeID string `json:"node_id"`
	Params Params `json:"params"`
}

func (i Intent) String() string {
	return fmt.Sprintf("%s{%s}", i.Name, i.Params)
}
