package saga

import (
	"github.com/ispadmin-io/ispadmin/services/subscription/db/model"
	"github.com/ispadmin-io/ispadmin/services/subscription/gateway"
)

// RollbackBag accumulates the identifiers and snapshots produced by
// completed steps, so compensation can act without re-querying. Exactly
// one variant is populated per saga run, matching the operation kind.
type RollbackBag struct {
	SagaID string

	Create     *CreateRollback
	PlanChange *PlanChangeRollback
	NodeChange *NodeChangeRollback
}

type CreateRollback struct {
	SubscriptionID  uint
	NetworkConfigID uint
	Router          gateway.RouterRef
	RemoteProfileID string
	AssignmentID    string
}

type PlanChangeRollback struct {
	SubscriptionSnapshot *model.Subscription
	Router               gateway.RouterRef
	ProfileSnapshot      *gateway.ProfileSnapshot
}

type NodeChangeRollback struct {
	SubscriptionSnapshot *model.Subscription
	ConfigSnapshot       *model.NetworkConfig
	OldRouter            gateway.RouterRef
	OldProfileSnapshot   *gateway.ProfileSnapshot
	NewRouter            gateway.RouterRef
	NewRemoteProfileID   string
	NewAssignmentID      string
}

// RollbackOutcome is the result of one compensation pass.
type RollbackOutcome struct {
	SagaID   string
	Failures []CompensationFailure
}

// Recovered reports whether every compensating action succeeded and the
// system is back to its pre-saga state.
func (o RollbackOutcome) Recovered() bool {
	return len(o.Failures) == 0
}

// ManualInterventionAlert is handed to the admin alert channel when a
// rollback could not fully restore the pre-saga state.
type ManualInterventionAlert struct {
	SagaID          string        `json:"sagaId"`
	Operation       OperationKind `json:"operation"`
	TriggeringError string        `json:"triggeringError"`
	Bag             *RollbackBag  `json:"rollbackBag"`
	Failures        []string      `json:"compensationFailures"`
}
