package entities

import (
	"github.com/shopspring/decimal"
)

type SubscriptionStatus string

const (
	SubscriptionStatusPending   SubscriptionStatus = "pending"
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusSuspended SubscriptionStatus = "suspended"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
)

// ChangeRequest is the target state supplied by the caller. The same shape
// drives both first-time provisioning and migrations; the saga classifier
// decides which operation applies.
type ChangeRequest struct {
	CustomerID       uint  `json:"customerId" validate:"required"`
	ServicePackageID *uint `json:"servicePackageId,omitempty"`
	ZoneID           *uint `json:"zoneId,omitempty"`
	NodeID           *uint `json:"nodeId,omitempty"`

	Street     string `json:"street,omitempty"`
	City       string `json:"city,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`

	BillingDay   int              `json:"billingDay,omitempty" validate:"omitempty,min=1,max=28"`
	CustomPrice  *decimal.Decimal `json:"customPrice,omitempty"`
	ChangeReason string           `json:"changeReason,omitempty"`

	// OperationHint forces a specific operation kind for ambiguous combined
	// edits. Empty means "classify automatically".
	OperationHint string `json:"operationHint,omitempty"`
}

func (r ChangeRequest) HasAddressChange() bool {
	return r.Street != "" || r.City != "" || r.PostalCode != ""
}

type SubscriptionResponse struct {
	ID               uint               `json:"id"`
	CustomerID       uint               `json:"customerId"`
	ServicePackageID uint               `json:"servicePackageId"`
	ZoneID           uint               `json:"zoneId"`
	NodeID           uint               `json:"nodeId"`
	Status           SubscriptionStatus `json:"status"`
	BillingDay       int                `json:"billingDay"`
	CustomPrice      *decimal.Decimal   `json:"customPrice,omitempty"`
	AuthUsername     string             `json:"authUsername"`
	Street           string             `json:"street,omitempty"`
	City             string             `json:"city,omitempty"`
	PostalCode       string             `json:"postalCode,omitempty"`
}

type NetworkConfigResponse struct {
	ID              uint    `json:"id"`
	SubscriptionID  uint    `json:"subscriptionId"`
	NodeID          uint    `json:"nodeId"`
	RouterAddress   string  `json:"routerAddress"`
	PoolID          string  `json:"poolId"`
	RemoteProfileID string  `json:"remoteProfileId,omitempty"`
	AssignmentID    *string `json:"assignmentId,omitempty"`
}

type StepView struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Message     string `json:"message,omitempty"`
}

type ProvisionResponse struct {
	SagaID        string                 `json:"sagaId"`
	Operation     string                 `json:"operation"`
	Subscription  *SubscriptionResponse  `json:"subscription,omitempty"`
	NetworkConfig *NetworkConfigResponse `json:"networkConfig,omitempty"`
	AssignedIP    string                 `json:"assignedIp,omitempty"`
	Steps         []StepView             `json:"steps"`
}

type ServicePackageResponse struct {
	ID          uint            `json:"id"`
	Name        string          `json:"name"`
	ProfileName string          `json:"profileName"`
	DownKbps    int64           `json:"downKbps"`
	UpKbps      int64           `json:"upKbps"`
	Price       decimal.Decimal `json:"price"`
}

type SyncReport struct {
	IsSync  bool   `json:"isSync"`
	Details string `json:"details,omitempty"`
}

type ConnectivityReport struct {
	IsConnected bool   `json:"isConnected"`
	Details     string `json:"details,omitempty"`
}
