package db

import (
	"testing"

	idocker "github.com/ispadmin-io/ispadmin/pkg/dockertest"
	"github.com/ispadmin-io/ispadmin/services/subscription/api/entities"
	"github.com/ispadmin-io/ispadmin/services/subscription/db/model"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

type DatabaseTestSuite struct {
	suite.Suite

	orm *gorm.DB
	db  Database
}

func (s *DatabaseTestSuite) SetupSuite() {
	s.orm = idocker.StartupPostgreSQL(s.T())
	s.db = Database{Orm: s.orm}
}

func (s *DatabaseTestSuite) BeforeTest(suiteName, testName string) {
	require := s.Require()

	require.NoError(s.db.Initialize())
}

func (s *DatabaseTestSuite) AfterTest(suiteName, testName string) {
	require := s.Require()

	for _, table := range []string{
		"subscriptions", "network_configs", "address_assignments",
		"pool_addresses", "service_packages", "package_zones", "zones", "nodes",
	} {
		tx := s.orm.Exec("DROP TABLE IF EXISTS " + table + " CASCADE;")
		require.NoError(tx.Error, "drop %s", table)
	}
}

func TestDatabaseTestSuite(t *testing.T) {
	suite.Run(t, &DatabaseTestSuite{})
}

func (s *DatabaseTestSuite) seedPool(poolID string, addresses ...string) {
	require := s.Require()
	for _, address := range addresses {
		require.NoError(s.orm.Create(&model.PoolAddress{PoolID: poolID, Address: address}).Error)
	}
}

func (s *DatabaseTestSuite) TestSubscriptionLifecycle() {
	require := s.Require()

	sub := &model.Subscription{
		CustomerID:       42,
		ServicePackageID: 1,
		ZoneID:           1,
		NodeID:           5,
		Status:           entities.SubscriptionStatusPending,
		BillingDay:       14,
		AuthUsername:     "sub42",
	}
	require.NoError(s.db.CreateSubscription(sub))
	require.NotZero(sub.ID)

	got, err := s.db.GetSubscription(sub.ID)
	require.NoError(err)
	require.NotNil(got)
	require.Equal(uint(42), got.CustomerID)

	require.NoError(s.db.UpdateSubscription(sub.ID, map[string]any{
		"status":             entities.SubscriptionStatusActive,
		"last_change_reason": "initial provisioning",
	}))

	got, err = s.db.GetSubscription(sub.ID)
	require.NoError(err)
	require.Equal(entities.SubscriptionStatusActive, got.Status)
	require.Equal("initial provisioning", got.LastChangeReason)

	byCustomer, err := s.db.GetActiveSubscriptionByCustomer(42)
	require.NoError(err)
	require.NotNil(byCustomer)
	require.Equal(sub.ID, byCustomer.ID)

	require.NoError(s.db.DeleteSubscription(sub.ID))
	got, err = s.db.GetSubscription(sub.ID)
	require.NoError(err)
	require.Nil(got)
}

func (s *DatabaseTestSuite) TestCancelledSubscriptionIsNotActive() {
	require := s.Require()

	require.NoError(s.db.CreateSubscription(&model.Subscription{
		CustomerID:   7,
		Status:       entities.SubscriptionStatusCancelled,
		AuthUsername: "sub7",
	}))

	got, err := s.db.GetActiveSubscriptionByCustomer(7)
	require.NoError(err)
	require.Nil(got)
}

func (s *DatabaseTestSuite) TestRestoreSubscriptionSnapshot() {
	require := s.Require()

	sub := &model.Subscription{
		CustomerID:       42,
		ServicePackageID: 1,
		ZoneID:           1,
		NodeID:           5,
		Status:           entities.SubscriptionStatusActive,
		AuthUsername:     "sub42",
	}
	require.NoError(s.db.CreateSubscription(sub))
	snapshot := *sub

	require.NoError(s.db.UpdateSubscription(sub.ID, map[string]any{
		"service_package_id": uint(2),
		"node_id":            uint(6),
		"zone_id":            uint(2),
	}))

	require.NoError(s.db.RestoreSubscriptionSnapshot(snapshot))

	got, err := s.db.GetSubscription(sub.ID)
	require.NoError(err)
	require.Equal(uint(1), got.ServicePackageID)
	require.Equal(uint(5), got.NodeID)
	require.Equal(uint(1), got.ZoneID)
}

func (s *DatabaseTestSuite) TestAssignFromPool() {
	require := s.Require()
	s.seedPool("pool-a", "100.64.0.10", "100.64.0.11")

	first, err := s.db.AssignFromPool(1, "pool-a")
	require.NoError(err)
	require.Equal("100.64.0.10", first.Address)
	require.NotEmpty(first.ID)

	second, err := s.db.AssignFromPool(2, "pool-a")
	require.NoError(err)
	require.Equal("100.64.0.11", second.Address)
	require.NotEqual(first.ID, second.ID)
}

func (s *DatabaseTestSuite) TestPoolExhaustion() {
	require := s.Require()
	s.seedPool("pool-a", "100.64.0.10")

	_, err := s.db.AssignFromPool(1, "pool-a")
	require.NoError(err)

	_, err = s.db.AssignFromPool(2, "pool-a")
	require.ErrorIs(err, ErrPoolExhausted)
}

func (s *DatabaseTestSuite) TestReleaseAssignmentIsIdempotent() {
	require := s.Require()
	s.seedPool("pool-a", "100.64.0.10")

	assignment, err := s.db.AssignFromPool(1, "pool-a")
	require.NoError(err)

	require.NoError(s.db.ReleaseAssignment(assignment.ID))
	// the second and third releases must be harmless no-ops
	require.NoError(s.db.ReleaseAssignment(assignment.ID))
	require.NoError(s.db.ReleaseAssignment(assignment.ID))
	// so must releasing an assignment that was never granted
	require.NoError(s.db.ReleaseAssignment(""))
	require.NoError(s.db.ReleaseAssignment("00000000-0000-0000-0000-000000000000"))

	got, err := s.db.GetAssignment(assignment.ID)
	require.NoError(err)
	require.True(got.Released)
	require.NotNil(got.ReleasedAt)

	// the slot is free again and hands out the same address once
	again, err := s.db.AssignFromPool(2, "pool-a")
	require.NoError(err)
	require.Equal("100.64.0.10", again.Address)

	_, err = s.db.AssignFromPool(3, "pool-a")
	require.ErrorIs(err, ErrPoolExhausted)
}

func (s *DatabaseTestSuite) TestVerifySync() {
	require := s.Require()
	s.seedPool("pool-a", "100.64.0.10")

	sub := &model.Subscription{
		CustomerID:   42,
		NodeID:       5,
		Status:       entities.SubscriptionStatusPending,
		AuthUsername: "sub42",
	}
	require.NoError(s.db.CreateSubscription(sub))

	report, err := s.db.VerifySync(sub.ID)
	require.NoError(err)
	require.False(report.IsSync)
	require.Equal("network config is missing", report.Details)

	cfg := &model.NetworkConfig{
		SubscriptionID: sub.ID,
		NodeID:         5,
		RouterAddress:  "10.0.0.1",
		PoolID:         "pool-a",
	}
	require.NoError(s.db.CreateNetworkConfig(cfg))

	report, err = s.db.VerifySync(sub.ID)
	require.NoError(err)
	require.False(report.IsSync)
	require.Equal("remote auth profile is not recorded", report.Details)

	require.NoError(s.db.UpdateNetworkConfig(cfg.ID, map[string]any{"remote_profile_id": "*1"}))

	report, err = s.db.VerifySync(sub.ID)
	require.NoError(err)
	require.False(report.IsSync)
	require.Equal("address assignment is missing", report.Details)

	assignment, err := s.db.AssignFromPool(sub.ID, "pool-a")
	require.NoError(err)
	require.NoError(s.db.UpdateNetworkConfig(cfg.ID, map[string]any{"assignment_id": assignment.ID}))

	report, err = s.db.VerifySync(sub.ID)
	require.NoError(err)
	require.True(report.IsSync)

	// a node mismatch between the two rows breaks sync again
	require.NoError(s.db.UpdateSubscription(sub.ID, map[string]any{"node_id": uint(6)}))
	report, err = s.db.VerifySync(sub.ID)
	require.NoError(err)
	require.False(report.IsSync)
}

func (s *DatabaseTestSuite) TestVerifyConnectivity() {
	require := s.Require()
	s.seedPool("pool-a", "100.64.0.10")

	sub := &model.Subscription{CustomerID: 42, AuthUsername: "sub42"}
	require.NoError(s.db.CreateSubscription(sub))

	cfg := &model.NetworkConfig{
		SubscriptionID:  sub.ID,
		NodeID:          5,
		RouterAddress:   "10.0.0.1",
		PoolID:          "pool-a",
		RemoteProfileID: "*1",
	}
	require.NoError(s.db.CreateNetworkConfig(cfg))

	assignment, err := s.db.AssignFromPool(sub.ID, "pool-a")
	require.NoError(err)
	require.NoError(s.db.UpdateNetworkConfig(cfg.ID, map[string]any{"assignment_id": assignment.ID}))

	report, err := s.db.VerifyConnectivity(sub.ID)
	require.NoError(err)
	require.True(report.IsConnected)

	require.NoError(s.db.ReleaseAssignment(assignment.ID))
	report, err = s.db.VerifyConnectivity(sub.ID)
	require.NoError(err)
	require.False(report.IsConnected)
	require.Equal("address assignment was released", report.Details)
}

func (s *DatabaseTestSuite) TestPackageAvailability() {
	require := s.Require()

	require.NoError(s.orm.Create(&model.ServicePackage{Name: "bronze", ProfileName: "profile-bronze"}).Error)
	require.NoError(s.orm.Create(&model.PackageZone{ServicePackageID: 1, ZoneID: 1}).Error)

	ok, err := s.db.PackageAvailableInZone(1, 1)
	require.NoError(err)
	require.True(ok)

	ok, err = s.db.PackageAvailableInZone(1, 2)
	require.NoError(err)
	require.False(ok)
}

func (s *DatabaseTestSuite) TestNetworkConfigSnapshotRestore() {
	require := s.Require()

	cfg := &model.NetworkConfig{
		SubscriptionID:  1,
		NodeID:          5,
		RouterAddress:   "10.0.0.1",
		PoolID:          "pool-a",
		RemoteProfileID: "*1",
	}
	require.NoError(s.db.CreateNetworkConfig(cfg))
	snapshot := *cfg

	require.NoError(s.db.UpdateNetworkConfig(cfg.ID, map[string]any{
		"node_id":           uint(6),
		"router_address":    "10.0.0.2",
		"pool_id":           "pool-b",
		"remote_profile_id": "",
	}))

	require.NoError(s.db.RestoreNetworkConfigSnapshot(snapshot))

	got, err := s.db.GetNetworkConfig(uint(1))
	require.NoError(err)
	require.Equal("10.0.0.1", got.RouterAddress)
	require.Equal("pool-a", got.PoolID)
	require.Equal("*1", got.RemoteProfileID)
}
