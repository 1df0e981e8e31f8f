package reconcile

import "context"

// Executor applies one intent to a device. Implementations must be safe for
// concurrent use by independent runs; within a run calls are strictly
// sequential and each call returns before the next is issued.
type Executor interface {
	Execute(ctx context.Context, intent, nodeID string, params Params) error
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, intent, nodeID string, params Params) error

// Execute calls f.
func (f ExecutorFunc) Execute(ctx context.Context, intent, nodeID string, params Params) error {
	return f(ctx, intent, nodeID, params)
}

// StateSource returns the currently observed state of one interface.
// A missing interface is reported as an error wrapping util.ErrNotFound.
type StateSource interface {
	Observe(ctx context.Context, nodeID, iface string) (*ObservedState, error)
}

// StateSourceFunc adapts a function to the StateSource interface.
type StateSourceFunc func(ctx context.Context, nodeID, iface string) (*ObservedState, error)

// Observe calls f.
func (f StateSourceFunc) Observe(ctx context.Context, nodeID, iface string) (*ObservedState, error) {
	return f(ctx, nodeID, iface)
}

// Recorder persists the outcome of a finished run, e.g. to an audit log.
type Recorder interface {
	Record(result *Result) error
}
