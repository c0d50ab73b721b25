// Package auth_repo provides the PostgreSQL implementation of the
// authorization directory: user roles, role permissions and the default
// branch and warehouse of each user.
package auth_repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"backoffice/internal/core/id"
	"backoffice/internal/domain/authz"
	"backoffice/internal/infrastructure/storage/postgres"
)

const (
	roleQuery = `
		SELECT r.name
		FROM users u
		JOIN roles r ON r.id = u.role_id
		WHERE u.id = $1
	`

	permissionQuery = `
		SELECT EXISTS (
			SELECT 1
			FROM role_has_permissions rp
			JOIN roles r ON r.id = rp.role_id
			JOIN permissions p ON p.id = rp.permission_id
			WHERE r.name = $1 AND p.name = $2
		)
	`

	defaultBranchQuery    = "SELECT branch_id FROM branch_user WHERE user_id = $1 AND is_default"
	defaultWarehouseQuery = "SELECT warehouse_id FROM user_warehouse WHERE user_id = $1 AND is_default"
)

// DirectoryRepo implements authz.Directory.
type DirectoryRepo struct {
	txm *postgres.TxManager
}

// NewDirectoryRepo creates a new directory repository.
func NewDirectoryRepo(txm *postgres.TxManager) *DirectoryRepo {
	return &DirectoryRepo{txm: txm}
}

// RoleOf returns the role name of the user.
func (r *DirectoryRepo) RoleOf(ctx context.Context, userID id.ID) (string, bool, error) {
	var role string
	err := r.txm.GetQuerier(ctx).QueryRow(ctx, roleQuery, userID).Scan(&role)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query role: %w", err)
	}
	return role, true, nil
}

// PermissionGranted reports whether the permission exists and the role has it.
func (r *DirectoryRepo) PermissionGranted(ctx context.Context, role, permission string) (bool, error) {
	var granted bool
	if err := r.txm.GetQuerier(ctx).QueryRow(ctx, permissionQuery, role, permission).Scan(&granted); err != nil {
		return false, fmt.Errorf("query permission: %w", err)
	}
	return granted, nil
}

// DefaultBranch returns the branch flagged default for the user.
func (r *DirectoryRepo) DefaultBranch(ctx context.Context, userID id.ID) (id.ID, bool, error) {
	return r.defaultOf(ctx, defaultBranchQuery, userID)
}

// DefaultWarehouse returns the warehouse flagged default for the user.
func (r *DirectoryRepo) DefaultWarehouse(ctx context.Context, userID id.ID) (id.ID, bool, error) {
	return r.defaultOf(ctx, defaultWarehouseQuery, userID)
}

func (r *DirectoryRepo) defaultOf(ctx context.Context, query string, userID id.ID) (id.ID, bool, error) {
	var out id.ID
	err := r.txm.GetQuerier(ctx).QueryRow(ctx, limitOne(query), userID).Scan(&out)
	if errors.Is(err, pgx.ErrNoRows) {
		return id.Nil(), false, nil
	}
	if err != nil {
		return id.Nil(), false, fmt.Errorf("query default assignment: %w", err)
	}
	return out, true, nil
}

func limitOne(query string) string { return query + " LIMIT 1" }

var _ authz.Directory = (*DirectoryRepo)(nil)
