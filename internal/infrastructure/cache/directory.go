package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"backoffice/internal/core/id"
	"backoffice/internal/domain/authz"
	"backoffice/pkg/logger"
)

// DefaultDirectoryTTL bounds how long a revoked role keeps working.
const DefaultDirectoryTTL = time.Minute

const noRole = "\x00"

// Directory caches role and permission lookups of an authz.Directory in
// redis. Location lookups are not cached. A redis failure falls back to
// the wrapped directory.
type Directory struct {
	next   authz.Directory
	client redis.UniversalClient
	ttl    time.Duration
	prefix string
}

var _ authz.Directory = (*Directory)(nil)

// NewDirectory wraps next. A non-positive ttl uses DefaultDirectoryTTL.
func NewDirectory(next authz.Directory, client redis.UniversalClient, ttl time.Duration) *Directory {
	if ttl <= 0 {
		ttl = DefaultDirectoryTTL
	}
	return &Directory{next: next, client: client, ttl: ttl, prefix: "backoffice:authz:"}
}

// RoleOf returns the cached role of user.
func (d *Directory) RoleOf(ctx context.Context, user id.ID) (string, bool, error) {
	key := d.prefix + "role:" + user.String()
	if v, ok := d.get(ctx, key); ok {
		if v == noRole {
			return "", false, nil
		}
		return v, true, nil
	}

	role, ok, err := d.next.RoleOf(ctx, user)
	if err != nil {
		return "", false, err
	}
	stored := role
	if !ok {
		stored = noRole
	}
	d.set(ctx, key, stored)
	return role, ok, nil
}

// PermissionGranted returns the cached grant of perm to role.
func (d *Directory) PermissionGranted(ctx context.Context, role, perm string) (bool, error) {
	key := d.prefix + "perm:" + role + ":" + perm
	if v, ok := d.get(ctx, key); ok {
		granted, err := strconv.ParseBool(v)
		if err == nil {
			return granted, nil
		}
	}

	granted, err := d.next.PermissionGranted(ctx, role, perm)
	if err != nil {
		return false, err
	}
	d.set(ctx, key, strconv.FormatBool(granted))
	return granted, nil
}

// DefaultBranch is passed through.
func (d *Directory) DefaultBranch(ctx context.Context, user id.ID) (id.ID, bool, error) {
	return d.next.DefaultBranch(ctx, user)
}

// DefaultWarehouse is passed through.
func (d *Directory) DefaultWarehouse(ctx context.Context, user id.ID) (id.ID, bool, error) {
	return d.next.DefaultWarehouse(ctx, user)
}

// InvalidateUser drops the cached role of user.
func (d *Directory) InvalidateUser(ctx context.Context, user id.ID) error {
	if err := d.client.Del(ctx, d.prefix+"role:"+user.String()).Err(); err != nil {
		return fmt.Errorf("cache: invalidate user %s: %w", user, err)
	}
	return nil
}

func (d *Directory) get(ctx context.Context, key string) (string, bool) {
	v, err := d.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false
	}
	if err != nil {
		logger.Warn(ctx, "authz cache read failed", "key", key, "error", err)
		return "", false
	}
	return v, true
}

func (d *Directory) set(ctx context.Context, key, value string) {
	if err := d.client.Set(ctx, key, value, d.ttl).Err(); err != nil {
		logger.Warn(ctx, "authz cache write failed", "key", key, "error", err)
	}
}
