package saga

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/ispadmin-io/ispadmin/services/subscription/api/entities"
	"github.com/ispadmin-io/ispadmin/services/subscription/db/model"
	"github.com/ispadmin-io/ispadmin/services/subscription/gateway"
)

func (o *Orchestrator) createSteps() []Step {
	return []Step{
		{
			ID:          Step_ValidateInput,
			Description: "validate provisioning input",
			Run:         o.runValidateInput,
		},
		{
			ID:          Step_CreateRecord,
			Description: "create subscription record",
			Run:         o.runCreateRecord,
			Compensate:  o.compensateCreateRecord,
		},
		{
			ID:          Step_CreateNetworkConfig,
			Description: "create network configuration",
			Run:         o.runCreateNetworkConfig,
			Compensate:  o.compensateCreateNetworkConfig,
		},
		{
			ID:          Step_CreateRemoteProfile,
			Description: "create auth profile on router",
			Critical:    true,
			Run:         o.runCreateRemoteProfile,
			Compensate:  o.compensateCreateRemoteProfile,
		},
		{
			ID:          Step_AllocateAddress,
			Description: "allocate address from pool",
			Critical:    true,
			Run:         o.runAllocateAddress,
			Compensate:  o.compensateAllocateAddress,
		},
		{
			ID:          Step_VerifySync,
			Description: "verify cross-system sync",
			Critical:    true,
			Run:         o.runVerifySyncAndActivate,
		},
	}
}

func (o *Orchestrator) runValidateInput(_ context.Context, ex *execution) error {
	req := ex.req

	if req.ServicePackageID == nil {
		return newValidationError("service-package-required", "a service package must be selected")
	}
	if req.NodeID == nil {
		return newValidationError("node-required", "a physical node must be selected")
	}

	pkg, err := o.store.GetServicePackage(*req.ServicePackageID)
	if err != nil {
		return fmt.Errorf("get service package: %w", err)
	}
	if pkg == nil {
		return newValidationError("service-package-unknown", "service package %d does not exist", *req.ServicePackageID)
	}

	node, err := o.store.GetNode(*req.NodeID)
	if err != nil {
		return fmt.Errorf("get node: %w", err)
	}
	if node == nil {
		return newValidationError("node-unknown", "node %d does not exist", *req.NodeID)
	}
	if req.ZoneID != nil && node.ZoneID != *req.ZoneID {
		return newValidationError("node-zone-mismatch", "node %d is not in zone %d", node.ID, *req.ZoneID)
	}

	available, err := o.store.PackageAvailableInZone(pkg.ID, node.ZoneID)
	if err != nil {
		return fmt.Errorf("check package availability: %w", err)
	}
	if !available {
		return newValidationError("package-not-in-zone", "service package %q is not offered in zone %d", pkg.Name, node.ZoneID)
	}

	ex.pkg = pkg
	ex.node = node
	return nil
}

func (o *Orchestrator) runCreateRecord(_ context.Context, ex *execution) error {
	username, err := o.nextAuthUsername()
	if err != nil {
		return err
	}
	password, err := generatePassword()
	if err != nil {
		return err
	}
	ex.password = password

	billingDay := ex.req.BillingDay
	if billingDay == 0 {
		billingDay = 1
	}

	sub := &model.Subscription{
		CustomerID:       ex.req.CustomerID,
		ServicePackageID: ex.pkg.ID,
		ZoneID:           ex.node.ZoneID,
		NodeID:           ex.node.ID,
		Status:           entities.SubscriptionStatusPending,
		BillingDay:       billingDay,
		CustomPrice:      ex.req.CustomPrice,
		AuthUsername:     username,
		Street:           ex.req.Street,
		City:             ex.req.City,
		PostalCode:       ex.req.PostalCode,
		LastChangeReason: ex.req.ChangeReason,
	}
	if err := o.store.CreateSubscription(sub); err != nil {
		return fmt.Errorf("create subscription: %w", err)
	}

	ex.subscription = sub
	ex.bag.Create = &CreateRollback{SubscriptionID: sub.ID}
	return nil
}

func (o *Orchestrator) compensateCreateRecord(_ context.Context, bag *RollbackBag) error {
	if bag.Create == nil || bag.Create.SubscriptionID == 0 {
		return nil
	}
	return o.store.DeleteSubscription(bag.Create.SubscriptionID)
}

func (o *Orchestrator) runCreateNetworkConfig(_ context.Context, ex *execution) error {
	cfg := &model.NetworkConfig{
		SubscriptionID: ex.subscription.ID,
		NodeID:         ex.node.ID,
		RouterAddress:  ex.node.RouterAddress,
		PoolID:         ex.node.PoolID,
	}
	if err := o.store.CreateNetworkConfig(cfg); err != nil {
		return fmt.Errorf("create network config: %w", err)
	}

	ex.netConfig = cfg
	ex.bag.Create.NetworkConfigID = cfg.ID
	return nil
}

func (o *Orchestrator) compensateCreateNetworkConfig(_ context.Context, bag *RollbackBag) error {
	if bag.Create == nil || bag.Create.NetworkConfigID == 0 {
		return nil
	}
	return o.store.DeleteNetworkConfig(bag.Create.NetworkConfigID)
}

func (o *Orchestrator) runCreateRemoteProfile(ctx context.Context, ex *execution) error {
	router := gateway.RouterRef{Address: ex.node.RouterAddress}

	profile, err := o.gw.CreateUser(ctx, router, gateway.Credentials{
		Username:    ex.subscription.AuthUsername,
		Password:    ex.password,
		ProfileName: ex.pkg.ProfileName,
		RateLimit:   ex.pkg.RateLimit(),
	})
	if err != nil {
		return err
	}

	ex.bag.Create.Router = router
	ex.bag.Create.RemoteProfileID = profile.RemoteID

	if err := o.store.UpdateNetworkConfig(ex.netConfig.ID, map[string]any{"remote_profile_id": profile.RemoteID}); err != nil {
		return fmt.Errorf("record remote profile id: %w", err)
	}
	ex.netConfig.RemoteProfileID = profile.RemoteID
	return nil
}

func (o *Orchestrator) compensateCreateRemoteProfile(ctx context.Context, bag *RollbackBag) error {
	if bag.Create == nil || bag.Create.RemoteProfileID == "" {
		return nil
	}
	return o.gw.DeleteUser(ctx, bag.Create.Router, bag.Create.RemoteProfileID)
}

func (o *Orchestrator) runAllocateAddress(_ context.Context, ex *execution) error {
	assignment, err := o.store.AssignFromPool(ex.subscription.ID, ex.netConfig.PoolID)
	if err != nil {
		return fmt.Errorf("assign from pool: %w", err)
	}

	ex.assignment = assignment
	ex.bag.Create.AssignmentID = assignment.ID

	if err := o.store.UpdateNetworkConfig(ex.netConfig.ID, map[string]any{"assignment_id": assignment.ID}); err != nil {
		return fmt.Errorf("record assignment id: %w", err)
	}
	ex.netConfig.AssignmentID = &assignment.ID
	return nil
}

func (o *Orchestrator) compensateAllocateAddress(_ context.Context, bag *RollbackBag) error {
	if bag.Create == nil {
		return nil
	}
	// releasing is idempotent, a never-granted or re-released assignment
	// is a safe no-op
	return o.store.ReleaseAssignment(bag.Create.AssignmentID)
}

func (o *Orchestrator) runVerifySyncAndActivate(_ context.Context, ex *execution) error {
	report, err := o.store.VerifySync(ex.subscription.ID)
	if err != nil {
		return fmt.Errorf("verify sync: %w", err)
	}
	if !report.IsSync {
		return fmt.Errorf("cross-system sync failed: %s", report.Details)
	}

	if err := o.store.UpdateSubscription(ex.subscription.ID, map[string]any{"status": entities.SubscriptionStatusActive}); err != nil {
		return fmt.Errorf("activate subscription: %w", err)
	}
	ex.subscription.Status = entities.SubscriptionStatusActive
	return nil
}

func generatePassword() (string, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("generate password: %w", err)
	}
	return hex.EncodeToString(b[:]), nil
}
