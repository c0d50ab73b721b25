package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backoffice/internal/core/id"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestNew_PingsServer(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()

	client, err := New(context.Background(), Options{Addr: addr})
	require.NoError(t, err)
	defer client.Close()

	mr.Close()
	_, err = New(context.Background(), Options{Addr: addr})
	assert.Error(t, err)
}

func TestProbe(t *testing.T) {
	mr, client := newTestClient(t)
	p := NewProbe(client)

	assert.Equal(t, "redis", p.Name())
	assert.NoError(t, p.Check(context.Background()))

	mr.Close()
	assert.Error(t, p.Check(context.Background()))
}

type countingDirectory struct {
	roles     map[id.ID]string
	roleCalls int
	permCalls int
}

func (c *countingDirectory) RoleOf(_ context.Context, u id.ID) (string, bool, error) {
	c.roleCalls++
	r, ok := c.roles[u]
	return r, ok, nil
}

func (c *countingDirectory) PermissionGranted(_ context.Context, role, perm string) (bool, error) {
	c.permCalls++
	return role == "clerk" && perm == "create stock correction", nil
}

func (c *countingDirectory) DefaultBranch(context.Context, id.ID) (id.ID, bool, error) {
	return id.ID{}, false, nil
}

func (c *countingDirectory) DefaultWarehouse(context.Context, id.ID) (id.ID, bool, error) {
	return id.ID{}, false, nil
}

func TestDirectory_CachesRoles(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestClient(t)
	clerk, stranger := id.New(), id.New()
	next := &countingDirectory{roles: map[id.ID]string{clerk: "clerk"}}
	d := NewDirectory(next, client, time.Minute)

	for i := 0; i < 3; i++ {
		role, ok, err := d.RoleOf(ctx, clerk)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "clerk", role)
	}
	assert.Equal(t, 1, next.roleCalls)

	// a missing role is cached too
	_, ok, err := d.RoleOf(ctx, stranger)
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, _ = d.RoleOf(ctx, stranger)
	assert.False(t, ok)
	assert.Equal(t, 2, next.roleCalls)

	require.NoError(t, d.InvalidateUser(ctx, clerk))
	_, _, _ = d.RoleOf(ctx, clerk)
	assert.Equal(t, 3, next.roleCalls)

	mr.FastForward(2 * time.Minute)
	_, _, _ = d.RoleOf(ctx, stranger)
	assert.Equal(t, 4, next.roleCalls)
}

func TestDirectory_CachesPermissions(t *testing.T) {
	ctx := context.Background()
	_, client := newTestClient(t)
	next := &countingDirectory{}
	d := NewDirectory(next, client, 0)

	granted, err := d.PermissionGranted(ctx, "clerk", "create stock correction")
	require.NoError(t, err)
	assert.True(t, granted)
	granted, err = d.PermissionGranted(ctx, "clerk", "create stock correction")
	require.NoError(t, err)
	assert.True(t, granted)

	granted, err = d.PermissionGranted(ctx, "clerk", "approve stock correction")
	require.NoError(t, err)
	assert.False(t, granted)

	assert.Equal(t, 2, next.permCalls)
}

func TestDirectory_FallsBackWhenRedisIsDown(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestClient(t)
	clerk := id.New()
	next := &countingDirectory{roles: map[id.ID]string{clerk: "clerk"}}
	d := NewDirectory(next, client, time.Minute)
	mr.Close()

	role, ok, err := d.RoleOf(ctx, clerk)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "clerk", role)
}
