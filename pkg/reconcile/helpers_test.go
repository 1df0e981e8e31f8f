package reconcile

import (
	"context"
	"sync"
)

func intPtr(v int) *int { return &v }

// recordingExecutor records every call and fails intents listed in failOn.
type recordingExecutor struct {
	mu     sync.Mutex
	calls  []Intent
	failOn map[string]error
}

func newRecordingExecutor() *recordingExecutor {
	return &recordingExecutor{failOn: make(map[string]error)}
}

func (e *recordingExecutor) Execute(ctx context.Context, intent, nodeID string, params Params) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, Intent{Name: intent, NodeID: nodeID, Params: params})
	return e.failOn[intent]
}

func (e *recordingExecutor) names() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.calls))
	for i, c := range e.calls {
		out[i] = c.Name
	}
	return out
}

// baseObserved is a typical routed port with no addressing and no OSPF.
func baseObserved() *ObservedState {
	return &ObservedState{
		Name:          "Ethernet0",
		AdminStatus:   AdminUp,
		OperStatus:    "up",
		Description:   "to spine1",
		MACAddress:    "52:54:00:12:34:56",
		Duplex:        "full",
		AutoNegotiate: true,
		MTU:           intPtr(9100),
	}
}

func intentNames(intents []Intent) []string {
	out := make([]string, len(intents))
	for i, in := range intents {
		out[i] = in.Name
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// hasGroup reports whether cs contains a change for group.
func hasGroup(cs *ChangeSet, group FieldGroup) bool {
	for _, c := range cs.Changes {
		if c.Group == group {
			return true
		}
	}
	return false
}
