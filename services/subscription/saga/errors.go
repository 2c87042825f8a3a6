package saga

import (
	"fmt"
)

// ValidationError is raised before any mutation and never triggers
// rollback.
type ValidationError struct {
	Rule    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed (%s): %s", e.Rule, e.Message)
}

func newValidationError(rule, format string, args ...any) *ValidationError {
	return &ValidationError{Rule: rule, Message: fmt.Sprintf(format, args...)}
}

// NonCriticalStepError marks a local step failure with no external
// mutation behind it; nothing is rolled back.
type NonCriticalStepError struct {
	StepID StepID
	Err    error
}

func (e *NonCriticalStepError) Error() string {
	return fmt.Sprintf("step %s failed: %v", e.StepID, e.Err)
}

func (e *NonCriticalStepError) Unwrap() error {
	return e.Err
}

// CriticalStepError carries the original triggering error annotated with
// the rollback outcome, so the caller can distinguish "failed but cleaned
// up" from "failed and inconsistent, needs a human".
type CriticalStepError struct {
	StepID  StepID
	Err     error
	Outcome RollbackOutcome
}

func (e *CriticalStepError) Error() string {
	if e.Outcome.Recovered() {
		return fmt.Sprintf("step %s failed: %v (rolled back)", e.StepID, e.Err)
	}
	return fmt.Sprintf("step %s failed: %v (rollback incomplete, manual intervention required)", e.StepID, e.Err)
}

func (e *CriticalStepError) Unwrap() error {
	return e.Err
}

// CompensationFailure is one failed rollback action. It never stops the
// remaining compensations; it is aggregated into the RollbackOutcome.
type CompensationFailure struct {
	StepID StepID
	Err    error
}

func (e CompensationFailure) Error() string {
	return fmt.Sprintf("compensation for step %s failed: %v", e.StepID, e.Err)
}

func (e CompensationFailure) Unwrap() error {
	return e.Err
}
