package db

import (
	"errors"
	"fmt"

	"github.com/ispadmin-io/ispadmin/services/subscription/api/entities"
	"github.com/ispadmin-io/ispadmin/services/subscription/db/model"
	"gorm.io/gorm"
)

func (db Database) CreateSubscription(m *model.Subscription) error {
	return db.Orm.Model(&model.Subscription{}).Create(m).Error
}

func (db Database) GetSubscription(id uint) (*model.Subscription, error) {
	var sub model.Subscription
	if err := db.Orm.Model(&model.Subscription{}).Where("id = ?", id).First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

// GetActiveSubscriptionByCustomer returns the customer's non-cancelled
// subscription, or nil when the customer has none.
func (db Database) GetActiveSubscriptionByCustomer(customerID uint) (*model.Subscription, error) {
	var sub model.Subscription
	err := db.Orm.Model(&model.Subscription{}).
		Where("customer_id = ?", customerID).
		Where("status <> ?", entities.SubscriptionStatusCancelled).
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (db Database) UpdateSubscription(id uint, patch map[string]any) error {
	return db.Orm.Model(&model.Subscription{}).Where("id = ?", id).Updates(patch).Error
}

func (db Database) DeleteSubscription(id uint) error {
	return db.Orm.Unscoped().Where("id = ?", id).Delete(&model.Subscription{}).Error
}

// RestoreSubscriptionSnapshot writes back every mutable column from a
// pre-change copy of the row.
func (db Database) RestoreSubscriptionSnapshot(snapshot model.Subscription) error {
	return db.Orm.Model(&model.Subscription{}).Where("id = ?", snapshot.ID).Updates(map[string]any{
		"service_package_id": snapshot.ServicePackageID,
		"zone_id":            snapshot.ZoneID,
		"node_id":            snapshot.NodeID,
		"status":             snapshot.Status,
		"billing_day":        snapshot.BillingDay,
		"custom_price":       snapshot.CustomPrice,
		"auth_username":      snapshot.AuthUsername,
		"street":             snapshot.Street,
		"city":               snapshot.City,
		"postal_code":        snapshot.PostalCode,
		"last_change_reason": snapshot.LastChangeReason,
	}).Error
}

func (db Database) CreateNetworkConfig(m *model.NetworkConfig) error {
	return db.Orm.Model(&model.NetworkConfig{}).Create(m).Error
}

func (db Database) GetNetworkConfig(subscriptionID uint) (*model.NetworkConfig, error) {
	var cfg model.NetworkConfig
	if err := db.Orm.Model(&model.NetworkConfig{}).Where("subscription_id = ?", subscriptionID).First(&cfg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cfg, nil
}

func (db Database) UpdateNetworkConfig(id uint, patch map[string]any) error {
	return db.Orm.Model(&model.NetworkConfig{}).Where("id = ?", id).Updates(patch).Error
}

func (db Database) DeleteNetworkConfig(id uint) error {
	return db.Orm.Unscoped().Where("id = ?", id).Delete(&model.NetworkConfig{}).Error
}

func (db Database) RestoreNetworkConfigSnapshot(snapshot model.NetworkConfig) error {
	return db.Orm.Model(&model.NetworkConfig{}).Where("id = ?", snapshot.ID).Updates(map[string]any{
		"node_id":           snapshot.NodeID,
		"router_address":    snapshot.RouterAddress,
		"pool_id":           snapshot.PoolID,
		"remote_profile_id": snapshot.RemoteProfileID,
		"assignment_id":     snapshot.AssignmentID,
	}).Error
}

func (db Database) GetNode(id uint) (*model.Node, error) {
	var node model.Node
	if err := db.Orm.Model(&model.Node{}).Where("id = ?", id).First(&node).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &node, nil
}

func (db Database) GetServicePackage(id uint) (*model.ServicePackage, error) {
	var pkg model.ServicePackage
	if err := db.Orm.Model(&model.ServicePackage{}).Where("id = ?", id).First(&pkg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &pkg, nil
}

func (db Database) ListServicePackages() ([]model.ServicePackage, error) {
	var pkgs []model.ServicePackage
	if err := db.Orm.Model(&model.ServicePackage{}).Order("id").Find(&pkgs).Error; err != nil {
		return nil, err
	}
	return pkgs, nil
}

func (db Database) PackageAvailableInZone(packageID, zoneID uint) (bool, error) {
	var count int64
	err := db.Orm.Model(&model.PackageZone{}).
		Where("service_package_id = ? AND zone_id = ?", packageID, zoneID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// VerifySync cross-checks the subscription row against its network
// configuration and address assignment.
func (db Database) VerifySync(subscriptionID uint) (entities.SyncReport, error) {
	sub, err := db.GetSubscription(subscriptionID)
	if err != nil {
		return entities.SyncReport{}, err
	}
	if sub == nil {
		return entities.SyncReport{Details: fmt.Sprintf("subscription %d not found", subscriptionID)}, nil
	}

	cfg, err := db.GetNetworkConfig(subscriptionID)
	if err != nil {
		return entities.SyncReport{}, err
	}
	if cfg == nil {
		return entities.SyncReport{Details: "network config is missing"}, nil
	}
	if cfg.RemoteProfileID == "" {
		return entities.SyncReport{Details: "remote auth profile is not recorded"}, nil
	}
	if cfg.AssignmentID == nil {
		return entities.SyncReport{Details: "address assignment is missing"}, nil
	}
	if cfg.NodeID != sub.NodeID {
		return entities.SyncReport{Details: fmt.Sprintf("network config points at node %d, subscription at node %d", cfg.NodeID, sub.NodeID)}, nil
	}

	return entities.SyncReport{IsSync: true}, nil
}

// VerifyConnectivity reports whether the subscription's network side is
// complete enough for a PPP session to come up.
func (db Database) VerifyConnectivity(subscriptionID uint) (entities.ConnectivityReport, error) {
	cfg, err := db.GetNetworkConfig(subscriptionID)
	if err != nil {
		return entities.ConnectivityReport{}, err
	}
	if cfg == nil {
		return entities.ConnectivityReport{Details: "network config is missing"}, nil
	}
	if cfg.RemoteProfileID == "" {
		return entities.ConnectivityReport{Details: "no auth profile on router"}, nil
	}

	var assignment model.AddressAssignment
	if cfg.AssignmentID != nil {
		err := db.Orm.Model(&model.AddressAssignment{}).Where("id = ?", *cfg.AssignmentID).First(&assignment).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.ConnectivityReport{}, err
		}
		if assignment.Released {
			return entities.ConnectivityReport{Details: "address assignment was released"}, nil
		}
	}

	return entities.ConnectivityReport{IsConnected: true}, nil
}
