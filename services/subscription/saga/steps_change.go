package saga

import (
	"context"
	"errors"
	"fmt"

	"github.com/ispadmin-io/ispadmin/services/subscription/api/entities"
	"github.com/ispadmin-io/ispadmin/services/subscription/gateway"
)

func (o *Orchestrator) planChangeSteps() []Step {
	return []Step{
		{
			ID:          Step_ValidatePlanChange,
			Description: "validate plan change",
			Run:         o.runValidatePlanChange,
		},
		{
			ID:          Step_UpdateRecord,
			Description: "update subscription record",
			Run:         o.runUpdateRecord,
			Compensate:  o.compensateUpdateRecord,
		},
		{
			ID:          Step_UpdateRemoteProfile,
			Description: "update auth profile on router",
			Critical:    true,
			Run:         o.runUpdateRemoteProfile,
			Compensate:  o.compensateUpdateRemoteProfile,
		},
		{
			ID:          Step_VerifySync,
			Description: "verify cross-system sync",
			Critical:    true,
			Run:         o.runVerifySync,
		},
	}
}

func (o *Orchestrator) runValidatePlanChange(_ context.Context, ex *execution) error {
	if err := requireChangeable(ex); err != nil {
		return err
	}

	if ex.req.ServicePackageID == nil {
		return newValidationError("service-package-required", "a new service package must be selected")
	}
	if *ex.req.ServicePackageID == ex.existing.ServicePackageID {
		return newValidationError("package-unchanged", "subscription already uses service package %d", ex.existing.ServicePackageID)
	}

	pkg, err := o.store.GetServicePackage(*ex.req.ServicePackageID)
	if err != nil {
		return fmt.Errorf("get service package: %w", err)
	}
	if pkg == nil {
		return newValidationError("service-package-unknown", "service package %d does not exist", *ex.req.ServicePackageID)
	}

	available, err := o.store.PackageAvailableInZone(pkg.ID, ex.existing.ZoneID)
	if err != nil {
		return fmt.Errorf("check package availability: %w", err)
	}
	if !available {
		return newValidationError("package-not-in-zone", "service package %q is not offered in zone %d", pkg.Name, ex.existing.ZoneID)
	}

	ex.pkg = pkg
	return o.loadNetworkConfig(ex)
}

func (o *Orchestrator) runUpdateRecord(_ context.Context, ex *execution) error {
	snapshot := *ex.existing
	ex.bag.PlanChange = &PlanChangeRollback{SubscriptionSnapshot: &snapshot}

	patch := map[string]any{
		"service_package_id": ex.pkg.ID,
		"last_change_reason": ex.req.ChangeReason,
	}
	if ex.req.CustomPrice != nil {
		patch["custom_price"] = ex.req.CustomPrice
	}
	if err := o.store.UpdateSubscription(ex.existing.ID, patch); err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}

	ex.subscription.ServicePackageID = ex.pkg.ID
	if ex.req.CustomPrice != nil {
		ex.subscription.CustomPrice = ex.req.CustomPrice
	}
	return nil
}

func (o *Orchestrator) compensateUpdateRecord(_ context.Context, bag *RollbackBag) error {
	if bag.PlanChange == nil || bag.PlanChange.SubscriptionSnapshot == nil {
		return nil
	}
	return o.store.RestoreSubscriptionSnapshot(*bag.PlanChange.SubscriptionSnapshot)
}

func (o *Orchestrator) runUpdateRemoteProfile(ctx context.Context, ex *execution) error {
	router := gateway.RouterRef{Address: ex.netConfig.RouterAddress}

	snapshot, err := o.gw.GetProfile(ctx, router, ex.existing.AuthUsername)
	if err != nil {
		return err
	}
	ex.bag.PlanChange.Router = router
	ex.bag.PlanChange.ProfileSnapshot = snapshot

	rateLimit := ex.pkg.RateLimit()
	return o.gw.UpdateProfile(ctx, router, gateway.ProfilePatch{
		Username:    ex.existing.AuthUsername,
		ProfileName: &ex.pkg.ProfileName,
		RateLimit:   &rateLimit,
	})
}

func (o *Orchestrator) compensateUpdateRemoteProfile(ctx context.Context, bag *RollbackBag) error {
	if bag.PlanChange == nil || bag.PlanChange.ProfileSnapshot == nil {
		return nil
	}
	snapshot := bag.PlanChange.ProfileSnapshot
	return o.gw.UpdateProfile(ctx, bag.PlanChange.Router, gateway.ProfilePatch{
		Username:    snapshot.Username,
		ProfileName: &snapshot.ProfileName,
		RateLimit:   &snapshot.RateLimit,
	})
}

func (o *Orchestrator) runVerifySync(_ context.Context, ex *execution) error {
	report, err := o.store.VerifySync(ex.existing.ID)
	if err != nil {
		return fmt.Errorf("verify sync: %w", err)
	}
	if !report.IsSync {
		return fmt.Errorf("cross-system sync failed: %s", report.Details)
	}
	return nil
}

func (o *Orchestrator) nodeChangeSteps() []Step {
	return []Step{
		{
			ID:          Step_ValidateNodeChange,
			Description: "validate node change",
			Run:         o.runValidateNodeChange,
		},
		{
			ID:          Step_SnapshotCurrent,
			Description: "snapshot current configuration and auth profile",
			Run:         o.runSnapshotCurrent,
		},
		{
			ID:          Step_DeleteOldProfile,
			Description: "delete auth profile on old router",
			Critical:    true,
			Run:         o.runDeleteOldProfile,
			Compensate:  o.compensateDeleteOldProfile,
		},
		{
			ID:          Step_MoveRecord,
			Description: "move subscription to new node",
			Critical:    true,
			Run:         o.runMoveRecord,
			Compensate:  o.compensateMoveRecord,
		},
		{
			ID:          Step_CreateProfileOnNew,
			Description: "create auth profile on new router",
			Critical:    true,
			Run:         o.runCreateProfileOnNew,
			Compensate:  o.compensateCreateProfileOnNew,
		},
		{
			ID:          Step_VerifyConnectivity,
			Description: "verify connectivity",
			Critical:    true,
			Run:         o.runVerifyConnectivity,
		},
	}
}

func (o *Orchestrator) runValidateNodeChange(_ context.Context, ex *execution) error {
	if err := requireChangeable(ex); err != nil {
		return err
	}

	if ex.req.NodeID == nil {
		return newValidationError("node-required", "a destination node must be selected")
	}

	node, err := o.store.GetNode(*ex.req.NodeID)
	if err != nil {
		return fmt.Errorf("get node: %w", err)
	}
	if node == nil {
		return newValidationError("node-unknown", "node %d does not exist", *ex.req.NodeID)
	}
	if node.ID == ex.existing.NodeID {
		return newValidationError("node-unchanged", "subscription is already on node %d", node.ID)
	}
	if ex.req.ZoneID != nil && node.ZoneID != *ex.req.ZoneID {
		return newValidationError("node-zone-mismatch", "node %d is not in zone %d", node.ID, *ex.req.ZoneID)
	}

	pkgID := ex.existing.ServicePackageID
	if ex.req.ServicePackageID != nil {
		pkgID = *ex.req.ServicePackageID
	}
	pkg, err := o.store.GetServicePackage(pkgID)
	if err != nil {
		return fmt.Errorf("get service package: %w", err)
	}
	if pkg == nil {
		return newValidationError("service-package-unknown", "service package %d does not exist", pkgID)
	}

	ex.node = node
	ex.pkg = pkg
	return o.loadNetworkConfig(ex)
}

func (o *Orchestrator) runSnapshotCurrent(ctx context.Context, ex *execution) error {
	subSnapshot := *ex.existing
	cfgSnapshot := *ex.netConfig
	oldRouter := gateway.RouterRef{Address: ex.netConfig.RouterAddress}

	profileSnapshot, err := o.gw.GetProfile(ctx, oldRouter, ex.existing.AuthUsername)
	if err != nil {
		return err
	}

	ex.bag.NodeChange = &NodeChangeRollback{
		SubscriptionSnapshot: &subSnapshot,
		ConfigSnapshot:       &cfgSnapshot,
		OldRouter:            oldRouter,
		OldProfileSnapshot:   profileSnapshot,
	}
	return nil
}

func (o *Orchestrator) runDeleteOldProfile(ctx context.Context, ex *execution) error {
	if ex.netConfig.RemoteProfileID == "" {
		return nil
	}
	return o.gw.DeleteUser(ctx, ex.bag.NodeChange.OldRouter, ex.netConfig.RemoteProfileID)
}

func (o *Orchestrator) compensateDeleteOldProfile(ctx context.Context, bag *RollbackBag) error {
	if bag.NodeChange == nil || bag.NodeChange.OldProfileSnapshot == nil {
		return nil
	}

	profile, err := o.gw.RestoreProfile(ctx, *bag.NodeChange.OldProfileSnapshot)
	if err != nil {
		return err
	}

	// the recreated secret gets a fresh remote id
	return o.store.UpdateNetworkConfig(bag.NodeChange.ConfigSnapshot.ID,
		map[string]any{"remote_profile_id": profile.RemoteID})
}

func (o *Orchestrator) runMoveRecord(_ context.Context, ex *execution) error {
	if err := o.store.UpdateSubscription(ex.existing.ID, map[string]any{
		"node_id":            ex.node.ID,
		"zone_id":            ex.node.ZoneID,
		"last_change_reason": ex.req.ChangeReason,
	}); err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}

	if err := o.store.UpdateNetworkConfig(ex.netConfig.ID, map[string]any{
		"node_id":           ex.node.ID,
		"router_address":    ex.node.RouterAddress,
		"pool_id":           ex.node.PoolID,
		"remote_profile_id": "",
	}); err != nil {
		return fmt.Errorf("update network config: %w", err)
	}

	ex.subscription.NodeID = ex.node.ID
	ex.subscription.ZoneID = ex.node.ZoneID
	ex.netConfig.NodeID = ex.node.ID
	ex.netConfig.RouterAddress = ex.node.RouterAddress
	ex.netConfig.PoolID = ex.node.PoolID
	ex.netConfig.RemoteProfileID = ""
	return nil
}

func (o *Orchestrator) compensateMoveRecord(_ context.Context, bag *RollbackBag) error {
	if bag.NodeChange == nil {
		return nil
	}

	var errs []error
	if bag.NodeChange.SubscriptionSnapshot != nil {
		if err := o.store.RestoreSubscriptionSnapshot(*bag.NodeChange.SubscriptionSnapshot); err != nil {
			errs = append(errs, fmt.Errorf("restore subscription: %w", err))
		}
	}
	if bag.NodeChange.ConfigSnapshot != nil {
		if err := o.store.RestoreNetworkConfigSnapshot(*bag.NodeChange.ConfigSnapshot); err != nil {
			errs = append(errs, fmt.Errorf("restore network config: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (o *Orchestrator) runCreateProfileOnNew(ctx context.Context, ex *execution) error {
	newRouter := gateway.RouterRef{Address: ex.node.RouterAddress}

	password := ""
	if ex.bag.NodeChange.OldProfileSnapshot != nil {
		password = ex.bag.NodeChange.OldProfileSnapshot.Password
	}
	if password == "" {
		generated, err := generatePassword()
		if err != nil {
			return err
		}
		password = generated
	}

	profile, err := o.gw.CreateUser(ctx, newRouter, gateway.Credentials{
		Username:    ex.existing.AuthUsername,
		Password:    password,
		ProfileName: ex.pkg.ProfileName,
		RateLimit:   ex.pkg.RateLimit(),
	})
	if err != nil {
		return err
	}

	ex.bag.NodeChange.NewRouter = newRouter
	ex.bag.NodeChange.NewRemoteProfileID = profile.RemoteID

	if err := o.store.UpdateNetworkConfig(ex.netConfig.ID, map[string]any{"remote_profile_id": profile.RemoteID}); err != nil {
		return fmt.Errorf("record remote profile id: %w", err)
	}
	ex.netConfig.RemoteProfileID = profile.RemoteID
	return nil
}

func (o *Orchestrator) compensateCreateProfileOnNew(ctx context.Context, bag *RollbackBag) error {
	if bag.NodeChange == nil || bag.NodeChange.NewRemoteProfileID == "" {
		return nil
	}
	return o.gw.DeleteUser(ctx, bag.NodeChange.NewRouter, bag.NodeChange.NewRemoteProfileID)
}

func (o *Orchestrator) runVerifyConnectivity(ctx context.Context, ex *execution) error {
	report, err := o.store.VerifyConnectivity(ex.existing.ID)
	if err != nil {
		return fmt.Errorf("verify connectivity: %w", err)
	}
	if !report.IsConnected {
		return fmt.Errorf("connectivity check failed: %s", report.Details)
	}

	cfg, err := o.gw.GetUserConfig(ctx, gateway.RouterRef{Address: ex.node.RouterAddress}, ex.existing.AuthUsername)
	if err != nil {
		return err
	}
	if cfg.Disabled {
		return fmt.Errorf("secret %s is disabled on router %s", ex.existing.AuthUsername, ex.node.RouterAddress)
	}
	return nil
}

func (o *Orchestrator) zoneValidationSteps() []Step {
	return []Step{
		{
			ID:          Step_ValidateZoneChange,
			Description: "validate destination zone",
			Run:         o.runValidateZoneChange,
		},
	}
}

func (o *Orchestrator) runValidateZoneChange(_ context.Context, ex *execution) error {
	if ex.req.ZoneID == nil {
		return newValidationError("zone-required", "a destination zone must be selected")
	}

	pkgID := ex.existing.ServicePackageID
	if ex.req.ServicePackageID != nil {
		pkgID = *ex.req.ServicePackageID
	}

	available, err := o.store.PackageAvailableInZone(pkgID, *ex.req.ZoneID)
	if err != nil {
		return fmt.Errorf("check package availability: %w", err)
	}
	if !available {
		return newValidationError("package-not-in-zone", "service package %d is not offered in zone %d", pkgID, *ex.req.ZoneID)
	}
	return nil
}

func (o *Orchestrator) addressChangeSteps() []Step {
	return []Step{
		{
			ID:          Step_ValidateAddressChange,
			Description: "validate address change",
			Run:         o.runValidateAddressChange,
		},
		{
			ID:          Step_UpdateAddress,
			Description: "update address fields",
			Run:         o.runUpdateAddress,
		},
	}
}

func (o *Orchestrator) runValidateAddressChange(_ context.Context, ex *execution) error {
	if !ex.req.HasAddressChange() {
		return newValidationError("address-required", "no address fields were supplied")
	}
	if ex.req.ChangeReason == "" {
		return newValidationError("change-reason-required", "a change reason must be supplied for address changes")
	}
	return nil
}

func (o *Orchestrator) runUpdateAddress(_ context.Context, ex *execution) error {
	patch := map[string]any{"last_change_reason": ex.req.ChangeReason}
	if ex.req.Street != "" {
		patch["street"] = ex.req.Street
	}
	if ex.req.City != "" {
		patch["city"] = ex.req.City
	}
	if ex.req.PostalCode != "" {
		patch["postal_code"] = ex.req.PostalCode
	}

	if err := o.store.UpdateSubscription(ex.existing.ID, patch); err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}

	if ex.req.Street != "" {
		ex.subscription.Street = ex.req.Street
	}
	if ex.req.City != "" {
		ex.subscription.City = ex.req.City
	}
	if ex.req.PostalCode != "" {
		ex.subscription.PostalCode = ex.req.PostalCode
	}
	return nil
}

func requireChangeable(ex *execution) error {
	switch ex.existing.Status {
	case entities.SubscriptionStatusActive, entities.SubscriptionStatusSuspended:
		return nil
	}
	return newValidationError("subscription-not-changeable",
		"subscription %d is %s and cannot be changed", ex.existing.ID, ex.existing.Status)
}

func (o *Orchestrator) loadNetworkConfig(ex *execution) error {
	cfg, err := o.store.GetNetworkConfig(ex.existing.ID)
	if err != nil {
		return fmt.Errorf("get network config: %w", err)
	}
	if cfg == nil {
		return fmt.Errorf("subscription %d has no network config", ex.existing.ID)
	}
	ex.netConfig = cfg
	return nil
}
