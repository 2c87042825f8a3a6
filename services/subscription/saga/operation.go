package saga

import (
	"github.com/ispadmin-io/ispadmin/services/subscription/api/entities"
	"github.com/ispadmin-io/ispadmin/services/subscription/db/model"
)

type OperationKind string

const (
	Operation_CreateNew     OperationKind = "CREATE_NEW"
	Operation_ChangePlan    OperationKind = "CHANGE_PLAN"
	Operation_ChangeNode    OperationKind = "CHANGE_NODE"
	Operation_ChangeZone    OperationKind = "CHANGE_ZONE"
	Operation_ChangeAddress OperationKind = "CHANGE_ADDRESS"
)

func (k OperationKind) Valid() bool {
	switch k {
	case Operation_CreateNew, Operation_ChangePlan, Operation_ChangeNode,
		Operation_ChangeZone, Operation_ChangeAddress:
		return true
	}
	return false
}

// Classify decides which operation the requested change maps onto. It is a
// pure function of its inputs; the hint parameter is the explicit override
// channel for ambiguous combined edits. First match wins, and the order
// matters: zone changes imply node changes imply address changes, so the
// more specific classification is checked first.
func Classify(existing *model.Subscription, req entities.ChangeRequest, hint OperationKind) OperationKind {
	if existing == nil {
		return Operation_CreateNew
	}

	if hint.Valid() {
		return hint
	}

	if req.ZoneID != nil && *req.ZoneID != existing.ZoneID {
		return Operation_ChangeZone
	}

	if req.NodeID != nil && *req.NodeID != existing.NodeID {
		return Operation_ChangeNode
	}

	if req.HasAddressChange() {
		return Operation_ChangeAddress
	}

	return Operation_ChangePlan
}
