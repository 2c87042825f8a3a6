package saga

import (
	"github.com/ispadmin-io/ispadmin/services/subscription/api/entities"
	"github.com/ispadmin-io/ispadmin/services/subscription/db/model"
)

// Store is the persistence boundary the saga consumes. db.Database
// satisfies it; tests substitute fakes. The address allocator is part of
// the same boundary in this deployment.
type Store interface {
	CreateSubscription(m *model.Subscription) error
	GetSubscription(id uint) (*model.Subscription, error)
	UpdateSubscription(id uint, patch map[string]any) error
	DeleteSubscription(id uint) error
	RestoreSubscriptionSnapshot(snapshot model.Subscription) error

	CreateNetworkConfig(m *model.NetworkConfig) error
	GetNetworkConfig(subscriptionID uint) (*model.NetworkConfig, error)
	UpdateNetworkConfig(id uint, patch map[string]any) error
	DeleteNetworkConfig(id uint) error
	RestoreNetworkConfigSnapshot(snapshot model.NetworkConfig) error

	GetNode(id uint) (*model.Node, error)
	GetServicePackage(id uint) (*model.ServicePackage, error)
	PackageAvailableInZone(packageID, zoneID uint) (bool, error)

	VerifySync(subscriptionID uint) (entities.SyncReport, error)
	VerifyConnectivity(subscriptionID uint) (entities.ConnectivityReport, error)

	AssignFromPool(subscriptionID uint, poolID string) (*model.AddressAssignment, error)
	ReleaseAssignment(assignmentID string) error
}
