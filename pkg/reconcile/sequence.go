package reconcile

import "sort"

// executionOrder is the fixed order in which field groups are applied.
// Admin status comes first because L3 configuration on a disabled port is
// not meaningful; addressing precedes routing protocol attachment.
// Description and MTU sit between the two only for determinism.
var executionOrder = []FieldGroup{
	GroupAdminStatus,
	GroupIPv4,
	GroupDescription,
	GroupMTU,
	GroupIPv6,
	GroupOSPF,
}

var groupRank = func() map[FieldGroup]int {
	m := make(map[FieldGroup]int, len(executionOrder))
	for i, g := range executionOrder {
		m[g] = i
	}
	return m
}()

// Sequence orders a change set for execution and returns one intent per
// change, addressed to cs.Device. Groups absent from the change set are
// absent from the result; Sequence never adds no-op intents. Changes of
// unknown groups are placed last in their original order.
func Sequence(cs *ChangeSet) []Intent {
	changes := make([]FieldChange, len(cs.Changes))
	copy(changes, cs.Changes)

	sort.SliceStable(changes, func(i, j int) bool {
		return rank(changes[i].Group) < rank(changes[j].Group)
	})

	intents := make([]Intent, 0, len(changes))
	for _, c := range changes {
		intents = append(intents, Intent{
			Name:   c.Intent,
			NodeID: cs.Device,
			Params: c.Params.clone(),
		})
	}
	return intents
}

func rank(g FieldGroup) int {
	if r, ok := groupRank[g]; ok {
		return r
	}
	return len(executionOrder)
}

// Plan validates the desired state and returns the ordered intents that a
// reconciliation would execute, without executing anything.
func Plan(nodeID string, observed *ObservedState, desired *DesiredState) ([]Intent, error) {
	if err := checkPair(observed, desired); err != nil {
		return nil, err
	}
	cs := Diff(observed, desired)
	cs.Device = nodeID
	return Sequence(cs), nil
}
