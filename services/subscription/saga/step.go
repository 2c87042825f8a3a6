package saga

import (
	"context"
	"time"
)

type StepID string

const (
	Step_ValidateInput         StepID = "ValidateInput"
	Step_CreateRecord          StepID = "CreateSubscriptionRecord"
	Step_CreateNetworkConfig   StepID = "CreateNetworkConfig"
	Step_CreateRemoteProfile   StepID = "CreateRemoteAuthProfile"
	Step_AllocateAddress       StepID = "AllocateAddressAssignment"
	Step_VerifySync            StepID = "VerifyCrossSystemSync"
	Step_ValidatePlanChange    StepID = "ValidatePlanChange"
	Step_UpdateRecord          StepID = "UpdateSubscriptionRecord"
	Step_UpdateRemoteProfile   StepID = "UpdateRemoteAuthProfile"
	Step_ValidateNodeChange    StepID = "ValidateNodeChange"
	Step_SnapshotCurrent       StepID = "SnapshotCurrentState"
	Step_DeleteOldProfile      StepID = "DeleteOldRemoteProfile"
	Step_MoveRecord            StepID = "MoveSubscriptionToNewNode"
	Step_CreateProfileOnNew    StepID = "CreateProfileOnNewRouter"
	Step_VerifyConnectivity    StepID = "VerifyConnectivity"
	Step_ValidateZoneChange    StepID = "ValidateZoneChange"
	Step_ValidateAddressChange StepID = "ValidateAddressChange"
	Step_UpdateAddress         StepID = "UpdateAddressFields"
)

type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusRunning   StepStatus = "running"
	StepStatusCompleted StepStatus = "completed"
	StepStatusFailed    StepStatus = "failed"
)

// TransactionStep is the per-execution record of one step. It lives only
// for the duration of one saga run and is never persisted.
type TransactionStep struct {
	ID          StepID
	Description string
	Status      StepStatus
	Message     string
}

// Step is one entry of an operation's step table. Critical marks steps
// whose failure, after partial completion, leaves external state
// inconsistent and therefore mandates rollback. Compensate is nil for
// steps with nothing to undo.
type Step struct {
	ID          StepID
	Description string
	Critical    bool
	Run         func(ctx context.Context, ex *execution) error
	Compensate  func(ctx context.Context, bag *RollbackBag) error
}

type ProgressEvent struct {
	SagaID    string     `json:"sagaId"`
	StepID    StepID     `json:"stepId"`
	Status    StepStatus `json:"status"`
	Message   string     `json:"message,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// ProgressSink receives one event per step status transition. It is a
// notification side channel, not part of the result contract.
type ProgressSink interface {
	Publish(event ProgressEvent)
}
