package model

import (
	"strconv"
	"time"

	"github.com/ispadmin-io/ispadmin/services/subscription/api/entities"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Subscription struct {
	gorm.Model

	CustomerID       uint `gorm:"index"`
	ServicePackageID uint
	ZoneID           uint
	NodeID           uint
	Status           entities.SubscriptionStatus `gorm:"size:20;index"`
	BillingDay       int
	CustomPrice      *decimal.Decimal `gorm:"type:numeric(12,2)"`
	AuthUsername     string           `gorm:"size:64;uniqueIndex"`

	Street     string `gorm:"size:200"`
	City       string `gorm:"size:100"`
	PostalCode string `gorm:"size:20"`

	LastChangeReason string `gorm:"size:500"`
}

func (s Subscription) ToAPI() entities.SubscriptionResponse {
	return entities.SubscriptionResponse{
		ID:               s.ID,
		CustomerID:       s.CustomerID,
		ServicePackageID: s.ServicePackageID,
		ZoneID:           s.ZoneID,
		NodeID:           s.NodeID,
		Status:           s.Status,
		BillingDay:       s.BillingDay,
		CustomPrice:      s.CustomPrice,
		AuthUsername:     s.AuthUsername,
		Street:           s.Street,
		City:             s.City,
		PostalCode:       s.PostalCode,
	}
}

// NetworkConfig binds a subscription to a router identity and an address
// pool. One row per active subscription.
type NetworkConfig struct {
	gorm.Model

	SubscriptionID  uint `gorm:"uniqueIndex"`
	NodeID          uint
	RouterAddress   string  `gorm:"size:100"`
	PoolID          string  `gorm:"size:64"`
	RemoteProfileID string  `gorm:"size:128"`
	AssignmentID    *string `gorm:"type:uuid"`
}

func (c NetworkConfig) ToAPI() entities.NetworkConfigResponse {
	return entities.NetworkConfigResponse{
		ID:              c.ID,
		SubscriptionID:  c.SubscriptionID,
		NodeID:          c.NodeID,
		RouterAddress:   c.RouterAddress,
		PoolID:          c.PoolID,
		RemoteProfileID: c.RemoteProfileID,
		AssignmentID:    c.AssignmentID,
	}
}

// AddressAssignment is a leased address from a finite pool. Released rows
// are kept for audit; the pool slot itself is freed on release.
type AddressAssignment struct {
	ID             string `gorm:"type:uuid;primaryKey"`
	SubscriptionID uint   `gorm:"index"`
	PoolID         string `gorm:"size:64"`
	Address        string `gorm:"size:45"`
	Released       bool
	ReleasedAt     *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PoolAddress is one slot of an address pool. AssignmentID is null while
// the slot is free.
type PoolAddress struct {
	ID           uint   `gorm:"primaryKey;autoIncrement"`
	PoolID       string `gorm:"size:64;uniqueIndex:idx_pool_address"`
	Address      string `gorm:"size:45;uniqueIndex:idx_pool_address"`
	AssignmentID *string `gorm:"type:uuid;index"`
}

type ServicePackage struct {
	gorm.Model

	Name        string `gorm:"size:100;uniqueIndex"`
	ProfileName string `gorm:"size:100"`
	DownKbps    int64
	UpKbps      int64
	Price       decimal.Decimal `gorm:"type:numeric(12,2)"`
}

// RateLimit renders the package limits in the rx/tx form routers expect.
func (p ServicePackage) RateLimit() string {
	if p.DownKbps == 0 && p.UpKbps == 0 {
		return ""
	}
	return formatKbps(p.UpKbps) + "/" + formatKbps(p.DownKbps)
}

func (p ServicePackage) ToAPI() entities.ServicePackageResponse {
	return entities.ServicePackageResponse{
		ID:          p.ID,
		Name:        p.Name,
		ProfileName: p.ProfileName,
		DownKbps:    p.DownKbps,
		UpKbps:      p.UpKbps,
		Price:       p.Price,
	}
}

func formatKbps(v int64) string {
	if v >= 1024 && v%1024 == 0 {
		return strconv.FormatInt(v/1024, 10) + "M"
	}
	return strconv.FormatInt(v, 10) + "k"
}

// PackageZone marks a service package as sellable in a zone.
type PackageZone struct {
	ServicePackageID uint `gorm:"primaryKey;autoIncrement:false"`
	ZoneID           uint `gorm:"primaryKey;autoIncrement:false"`
}

type Zone struct {
	gorm.Model

	Name string `gorm:"size:100;uniqueIndex"`
}

// Node is a physical access node; RouterAddress points at the
// network-access concentrator terminating its PPP sessions.
type Node struct {
	gorm.Model

	Name          string `gorm:"size:100;uniqueIndex"`
	ZoneID        uint   `gorm:"index"`
	RouterAddress string `gorm:"size:100"`
	PoolID        string `gorm:"size:64"`
}
