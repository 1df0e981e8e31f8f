// Package audit records reconciliation runs and dry-run plans as JSON-lines
// events that can be queried later.
package audit

import (
	"time"

	"github.com/google/uuid"

	"github.com/newtron-network/netconsole/pkg/reconcile"
)

// Operations recorded in the audit log.
const (
	OperationReconcile = "interface.reconcile"
	OperationPlan      = "interface.plan"
)

// Event represents an auditable configuration change event
type Event struct {
	ID           string             `json:"id"`
	Timestamp    time.Time          `json:"timestamp"`
	User         string             `json:"user"`
	Device       string             `json:"device"`
	Interface    string             `json:"interface,omitempty"`
	Operation    string             `json:"operation"`
	RunID        string             `json:"run_id,omitempty"`
	State        reconcile.RunState `json:"state,omitempty"`
	Planned      int                `json:"planned"`
	Intents      []reconcile.Intent `json:"intents"`
	FailedIntent *reconcile.Intent  `json:"failed_intent,omitempty"`
	Success      bool               `json:"success"`
	Error        string             `json:"error,omitempty"`
	ExecuteMode  bool               `json:"execute_mode"` // true if -x was used
	DryRun       bool               `json:"dry_run"`
	Duration     time.Duration      `json:"duration"`
	ClientIP     string             `json:"client_ip,omitempty"`
}

// Filter selects audit events. Zero fields match everything.
type Filter struct {
	Device      string
	User        string
	Operation   string
	Interface   string
	RunID       string
	StartTime   time.Time
	FailureOnly bool
	Newest      bool // newest first, applied before Offset and Limit
	Limit       int
	Offset      int
}

// NewEvent creates a new audit event
func NewEvent(user, device, operation string) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		User:      user,
		Device:    device,
		Operation: operation,
	}
}

// FromResult builds an event for a finished reconciliation run. Intents
// holds the intents that were applied; a failed run also carries the
// intent that failed.
func FromResult(r *reconcile.Result) *Event {
	e := NewEvent(r.User, r.Device, OperationReconcile).
		WithInterface(r.Interface).
		WithIntents(r.AppliedIntents).
		WithDuration(r.Duration).
		WithExecuteMode(true)
	e.Timestamp = r.StartedAt
	e.RunID = r.RunID
	e.State = r.State
	e.Planned = r.Planned

	if r.Succeeded() {
		return e.WithSuccess()
	}
	e.FailedIntent = r.FailedIntent
	e.Success = false
	e.Error = r.Error
	return e
}

// WithInterface sets the interface name
func (e *Event) WithInterface(iface string) *Event {
	e.Interface = iface
	return e
}

// WithIntents sets the intents and, unless already set, the planned count.
func (e *Event) WithIntents(intents []reconcile.Intent) *Event {
	e.Intents = intents
	if e.Planned == 0 {
		e.Planned = len(intents)
	}
	return e
}

// WithSuccess marks the event as successful
func (e *Event) WithSuccess() *Event {
	e.Success = true
	return e
}

// WithError marks the event as failed
func (e *Event) WithError(err error) *Event {
	e.Success = false
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// WithDuration sets the operation duration
func (e *Event) WithDuration(d time.Duration) *Event {
	e.Duration = d
	return e
}

// WithExecuteMode marks if execute mode was used
func (e *Event) WithExecuteMode(execute bool) *Event {
	e.ExecuteMode = execute
	e.DryRun = !execute
	return e
}

// WithClientIP records the remote address of an HTTP caller.
func (e *Event) WithClientIP(ip string) *Event {
	e.ClientIP = ip
	return e
}

// Recorder adapts a Logger to reconcile.Recorder.
type Recorder struct {
	Logger Logger
}

// Record implements reconcile.Recorder. A nil Logger falls back to the
// default logger.
func (r Recorder) Record(result *reconcile.Result) error {
	event := FromResult(result)
	if r.Logger == nil {
		return Log(event)
	}
	return r.Logger.Log(event)
}
