package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/newtron-network/netconsole/pkg/util"
)

// RunState is the state of a single reconciliation run.
//
//	Idle -> Diffing -> Executing(i) -> Executing(i+1) | Failed | Completed
//
// Completed and Failed are terminal. There is no retry state: a retry is a
// new run against a freshly observed state.
type RunState string

const (
	StateIdle      RunState = "idle"
	StateDiffing   RunState = "diffing"
	StateExecuting RunState = "executing"
	StateCompleted RunState = "completed"
	StateFailed    RunState = "failed"
)

// Default timeouts.
const (
	DefaultIntentTimeout = 30 * time.Second
	DefaultLeaseTimeout  = 10 * time.Second
)

// Transition is emitted each time a run changes state. Step and Intent are
// set only for StateExecuting.
type Transition struct {
	RunID  string
	State  RunState
	Step   int
	Intent *Intent
}

// Options configures a Reconciler. Zero values select defaults.
type Options struct {
	// IntentTimeout bounds each executor call. A timeout fails the run
	// exactly like an executor error.
	IntentTimeout time.Duration

	// LeaseTimeout bounds the wait for another run on the same interface.
	LeaseTimeout time.Duration

	// Locker serializes runs per (device, interface). Defaults to an
	// in-process KeyedLocker.
	Locker Locker

	// Recorder receives every finished run. Optional.
	Recorder Recorder

	// OnTransition observes state changes. Optional; called synchronously.
	OnTransition func(Transition)
}

// Request is the input to one reconciliation run.
type Request struct {
	NodeID   string
	Observed *ObservedState
	Desired  *DesiredState
	User     string
}

// Result summarizes a finished run. A Completed result with no applied
// intents means the interface already matched the desired state.
type Result struct {
	RunID          string        `json:"run_id"`
	Device         string        `json:"device"`
	Interface      string        `json:"interface"`
	User           string        `json:"user,omitempty"`
	State          RunState      `json:"state"`
	Planned        int           `json:"planned"`
	AppliedIntents []Intent      `json:"applied_intents"`
	FailedIntent   *Intent       `json:"failed_intent,omitempty"`
	Error          string        `json:"error,omitempty"`
	StartedAt      time.Time     `json:"started_at"`
	Duration       time.Duration `json:"duration"`

	// Err is the *ExecutionError behind Error.
	Err error `json:"-"`
}

// Succeeded reports whether every planned intent was applied.
func (r *Result) Succeeded() bool {
	return r.State == StateCompleted
}

// Changed reports whether at least one intent was applied.
func (r *Result) Changed() bool {
	return len(r.AppliedIntents) > 0
}

// Reconciler diffs, sequences and executes interface changes.
type Reconciler struct {
	executor Executor
	opts     Options
}

// New creates a Reconciler that applies intents through executor.
func New(executor Executor, opts Options) *Reconciler {
	if opts.IntentTimeout <= 0 {
		opts.IntentTimeout = DefaultIntentTimeout
	}
	if opts.LeaseTimeout <= 0 {
		opts.LeaseTimeout = DefaultLeaseTimeout
	}
	if opts.Locker == nil {
		opts.Locker = NewKeyedLocker()
	}
	return &Reconciler{executor: executor, opts: opts}
}

// Reconcile moves one interface from req.Observed to req.Desired.
//
// Invalid input is returned as an error before any lease is taken. Otherwise
// a Result is always returned. When an intent fails the Result is in
// StateFailed, lists the intents applied before the failure, and the same
// *ExecutionError is returned as the error. Nothing applied is undone.
func (r *Reconciler) Reconcile(ctx context.Context, req Request) (*Result, error) {
	if err := checkPair(req.Observed, req.Desired); err != nil {
		return nil, err
	}
	key := LeaseKey{Device: req.NodeID, Interface: util.NormalizeInterfaceName(req.Observed.Name)}
	return r.run(ctx, key, req.User, func(context.Context) (*ObservedState, *DesiredState, error) {
		return req.Observed, req.Desired, nil
	})
}

// ReconcileFrom observes the interface through source while holding the
// interface lease, builds the desired state by applying edit to a copy of
// the observed state, and reconciles. A failed observation is returned as
// a *LoadError with no intent attempted. The interface name is normalized
// before the lease is taken, so Eth0 and Ethernet0 share one lease.
func (r *Reconciler) ReconcileFrom(ctx context.Context, source StateSource, nodeID, iface, user string, edit func(*DesiredState) error) (*Result, error) {
	iface = util.NormalizeInterfaceName(iface)
	key := LeaseKey{Device: nodeID, Interface: iface}
	return r.run(ctx, key, user, func(ctx context.Context) (*ObservedState, *DesiredState, error) {
		observed, err := source.Observe(ctx, nodeID, iface)
		if err != nil {
			return nil, nil, &LoadError{NodeID: nodeID, Interface: iface, Err: err}
		}
		desired := NewDesiredState(observed)
		if edit != nil {
			if err := edit(desired); err != nil {
				return nil, nil, err
			}
		}
		if err := checkPair(observed, desired); err != nil {
			return nil, nil, err
		}
		return observed, desired, nil
	})
}

type loadFunc func(ctx context.Context) (*ObservedState, *DesiredState, error)

func (r *Reconciler) run(ctx context.Context, key LeaseKey, user string, load loadFunc) (*Result, error) {
	leaseCtx, cancel := context.WithTimeout(ctx, r.opts.LeaseTimeout)
	release, err := r.opts.Locker.Acquire(leaseCtx, key)
	cancel()
	if err != nil {
		return nil, err
	}

	// An intent abandoned at its deadline may still be writing to the
	// device. The lease is held until that call returns.
	var abandoned <-chan struct{}
	defer func() {
		if abandoned == nil {
			release()
			return
		}
		go func() {
			<-abandoned
			release()
		}()
	}()

	observed, desired, err := load(ctx)
	if err != nil {
		return nil, err
	}

	result := &Result{
		RunID:          uuid.NewString(),
		Device:         key.Device,
		Interface:      key.Interface,
		User:           user,
		State:          StateIdle,
		AppliedIntents: make([]Intent, 0),
		StartedAt:      time.Now(),
	}
	logger := util.WithInterface(key.Device, key.Interface).WithField("run", result.RunID)

	r.transition(result, StateDiffing, -1, nil)
	cs := Diff(observed, desired)
	cs.Device = key.Device
	intents := Sequence(cs)
	result.Planned = len(intents)

	if len(intents) == 0 {
		logger.Debug("Interface already matches desired state")
	}

	for i := range intents {
		intent := intents[i]
		r.transition(result, StateExecuting, i, &intent)
		logger.Debugf("Executing step %d/%d: %s", i+1, len(intents), intent)

		pending, err := r.execute(ctx, intent)
		if err != nil {
			abandoned = pending
			intentsTotal.WithLabelValues(intent.Name, "failure").Inc()
			execErr := &ExecutionError{Intent: intent, Err: err}
			result.FailedIntent = &intent
			result.Error = execErr.Error()
			result.Err = execErr
			r.finish(result, StateFailed)
			logger.Warnf("Reconciliation failed after %d of %d intents: %v",
				len(result.AppliedIntents), len(intents), execErr)
			return result, execErr
		}

		intentsTotal.WithLabelValues(intent.Name, "success").Inc()
		result.AppliedIntents = append(result.AppliedIntents, intent)
	}

	r.finish(result, StateCompleted)
	logger.Infof("Reconciliation completed: %d intent(s) applied", len(result.AppliedIntents))
	return result, nil
}

// execute runs one intent under the per-intent timeout. The executor is
// called on its own goroutine so a call that ignores ctx still cannot stall
// the run past the deadline. Panics are reported as errors.
//
// When the deadline wins, the returned channel is closed once the
// abandoned executor call finally returns; it is nil otherwise.
func (r *Reconciler) execute(ctx context.Context, intent Intent) (<-chan struct{}, error) {
	stepCtx, cancel := context.WithTimeout(ctx, r.opts.IntentTimeout)
	defer cancel()

	done := make(chan error, 1)
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		defer func() {
			if p := recover(); p != nil {
				done <- fmt.Errorf("executor panic: %v", p)
			}
		}()
		done <- r.executor.Execute(stepCtx, intent.Name, intent.NodeID, intent.Params)
	}()

	select {
	case err := <-done:
		return nil, err
	case <-stepCtx.Done():
		// Prefer a result that arrived together with the deadline.
		select {
		case err := <-done:
			return nil, err
		default:
		}
		if errors.Is(stepCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return finished, fmt.Errorf("no response within %s: %w", r.opts.IntentTimeout, stepCtx.Err())
		}
		return finished, stepCtx.Err()
	}
}

func (r *Reconciler) transition(result *Result, state RunState, step int, intent *Intent) {
	result.State = state
	if r.opts.OnTransition != nil {
		r.opts.OnTransition(Transition{RunID: result.RunID, State: state, Step: step, Intent: intent})
	}
}

func (r *Reconciler) finish(result *Result, state RunState) {
	result.Duration = time.Since(result.StartedAt)
	r.transition(result, state, -1, nil)

	runsTotal.WithLabelValues(string(state)).Inc()
	runDuration.Observe(result.Duration.Seconds())

	if r.opts.Recorder != nil {
		if err := r.opts.Recorder.Record(result); err != nil {
			util.WithInterface(result.Device, result.Interface).Warnf("Could not record run %s: %v", result.RunID, err)
		}
	}
}
