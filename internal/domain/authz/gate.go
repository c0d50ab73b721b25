// Package authz implements the authorization gate used by document
// services: permission checks by role and default branch/warehouse
// assignment checks.
package authz

import (
	"context"
	"fmt"

	"backoffice/internal/core/apperror"
	"backoffice/internal/core/id"
)

// BypassRole is the role that skips permission grants.
const BypassRole = "super admin"

// Actions used in permission names.
const (
	ActionCreate  = "create"
	ActionRead    = "read"
	ActionUpdate  = "update"
	ActionDelete  = "delete"
	ActionApprove = "approve"
)

// Permission builds a permission name such as "approve stock correction".
func Permission(action, label string) string {
	return action + " " + label
}

// Directory is the persistence port of the gate.
type Directory interface {
	// RoleOf returns the role name of the user. ok is false when the user
	// has no role.
	RoleOf(ctx context.Context, userID id.ID) (role string, ok bool, err error)

	// PermissionGranted reports whether the permission exists and is
	// granted to the role.
	PermissionGranted(ctx context.Context, role, permission string) (bool, error)

	// DefaultBranch returns the branch flagged default for the user.
	DefaultBranch(ctx context.Context, userID id.ID) (branchID id.ID, ok bool, err error)

	// DefaultWarehouse returns the warehouse flagged default for the user.
	DefaultWarehouse(ctx context.Context, userID id.ID) (warehouseID id.ID, ok bool, err error)
}

// Gate answers authorization questions for document services.
type Gate struct {
	dir Directory
}

// NewGate creates a gate backed by dir.
func NewGate(dir Directory) *Gate {
	return &Gate{dir: dir}
}

// Check fails with Forbidden unless actor holds permission.
func (g *Gate) Check(ctx context.Context, actor id.ID, permission string) error {
	role, ok, err := g.dir.RoleOf(ctx, actor)
	if err != nil {
		return fmt.Errorf("lookup role: %w", err)
	}
	if !ok {
		return forbidden(permission)
	}
	if role == BypassRole {
		return nil
	}

	granted, err := g.dir.PermissionGranted(ctx, role, permission)
	if err != nil {
		return fmt.Errorf("lookup permission %q: %w", permission, err)
	}
	if !granted {
		return forbidden(permission)
	}
	return nil
}

// CanBypass reports whether actor holds the bypass capability. Callers use
// it instead of comparing role names.
func (g *Gate) CanBypass(ctx context.Context, actor id.ID) (bool, error) {
	role, ok, err := g.dir.RoleOf(ctx, actor)
	if err != nil {
		return false, fmt.Errorf("lookup role: %w", err)
	}
	return ok && role == BypassRole, nil
}

// RequireDefaultBranch fails unless branchID is the actor's default branch.
func (g *Gate) RequireDefaultBranch(ctx context.Context, actor, branchID id.ID) error {
	def, ok, err := g.dir.DefaultBranch(ctx, actor)
	if err != nil {
		return fmt.Errorf("lookup default branch: %w", err)
	}
	if !ok || def != branchID {
		return apperror.NewForbidden("Forbidden - Invalid default branch")
	}
	return nil
}

// RequireDefaultWarehouse fails unless warehouseID is the actor's default warehouse.
func (g *Gate) RequireDefaultWarehouse(ctx context.Context, actor, warehouseID id.ID) error {
	def, ok, err := g.dir.DefaultWarehouse(ctx, actor)
	if err != nil {
		return fmt.Errorf("lookup default warehouse: %w", err)
	}
	if !ok || def != warehouseID {
		return apperror.NewForbidden("Forbidden - Invalid default warehouse")
	}
	return nil
}

// RequireLocation runs both default assignment checks, branch first.
func (g *Gate) RequireLocation(ctx context.Context, actor, branchID, warehouseID id.ID) error {
	if err := g.RequireDefaultBranch(ctx, actor, branchID); err != nil {
		return err
	}
	return g.RequireDefaultWarehouse(ctx, actor, warehouseID)
}

func forbidden(permission string) error {
	return apperror.NewForbidden("Forbidden").WithDetail("permission", permission)
}
