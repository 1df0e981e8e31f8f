package reconcile

import (
	"fmt"

	"github.com/newtron-network/netconsole/pkg/util"
)

// ExecutionError reports an intent the executor rejected, failed or did not
// answer in time. It stops the run that produced it.
type ExecutionError struct {
	Intent Intent
	Err    error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("executing %s: %v", e.Intent.Name, e.Err)
}

// Unwrap exposes both the cause and util.ErrExecutionFailed to errors.Is.
func (e *ExecutionError) Unwrap() []error {
	return []error{e.Err, util.ErrExecutionFailed}
}

// LoadError reports that the observed state could not be fetched. No intent
// is attempted after a LoadError.
type LoadError struct {
	NodeID    string
	Interface string
	Err       error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load failed for %s on %s: %v", e.Interface, e.NodeID, e.Err)
}

func (e *LoadError) Unwrap() []error {
	return []error{e.Err, util.ErrLoadFailed}
}

func checkPair(observed *ObservedState, desired *DesiredState) error {
	if observed == nil {
		return util.NewValidationError("observed state is required")
	}
	if desired == nil {
		return util.NewValidationError("desired state is required")
	}
	if err := desired.Validate(); err != nil {
		return err
	}
	if desired.Name != observed.Name {
		return util.NewValidationError(fmt.Sprintf(
			"desired state is for %q but observed state is for %q", desired.Name, observed.Name))
	}
	return nil
}
