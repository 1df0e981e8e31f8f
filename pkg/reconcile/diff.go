package reconcile

// Diff compares the desired state of an interface against its observed state
// and returns the intents needed to converge, one per changed field group.
// Diff is pure: identical inputs always produce identical change sets.
// Read-only fields (oper status, MAC address, last change) are never compared.
func Diff(observed *ObservedState, desired *DesiredState) *ChangeSet {
	cs := NewChangeSet(observed.Name)
	for _, r := range rules {
		intent, params, ok := r.eval(observed, desired)
		if !ok {
			continue
		}
		cs.Add(r.group, intent, params)
	}
	return cs
}
