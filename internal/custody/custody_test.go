package custody

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRegistry creates a registry connected to a miniredis instance
func setupTestRegistry(t *testing.T) *Registry {
	mr := miniredis.NewMiniRedis()
	err := mr.Start()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	registry, err := NewRegistry(&redis.Options{Addr: mr.Addr()}, "test-instance")
	require.NoError(t, err)
	t.Cleanup(func() { registry.Close() })

	return registry
}

func TestNewRegistry(t *testing.T) {
	t.Run("rejects empty instance name", func(t *testing.T) {
		_, err := NewRegistry(&redis.Options{Addr: "localhost:6379"}, "")
		assert.Error(t, err)
	})
}

func TestRegisterAndOwner(t *testing.T) {
	registry := setupTestRegistry(t)
	ctx := context.Background()

	t.Run("registers new asset", func(t *testing.T) {
		err := registry.Register(ctx, "asset-1", "alice")
		require.NoError(t, err)

		owner, err := registry.Owner(ctx, "asset-1")
		require.NoError(t, err)
		assert.Equal(t, "alice", owner)
	})

	t.Run("rejects duplicate registration", func(t *testing.T) {
		err := registry.Register(ctx, "asset-1", "bob")
		assert.ErrorIs(t, err, ErrAssetExists)

		// Registration must not have changed ownership
		owner, err := registry.Owner(ctx, "asset-1")
		require.NoError(t, err)
		assert.Equal(t, "alice", owner)
	})

	t.Run("rejects empty fields", func(t *testing.T) {
		assert.Error(t, registry.Register(ctx, "", "alice"))
		assert.Error(t, registry.Register(ctx, "asset-2", ""))
	})

	t.Run("unknown asset has no owner", func(t *testing.T) {
		_, err := registry.Owner(ctx, "nope")
		assert.ErrorIs(t, err, ErrUnknownAsset)
	})
}

func TestApprovals(t *testing.T) {
	registry := setupTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, registry.Register(ctx, "asset-1", "alice"))

	t.Run("owner is always approved", func(t *testing.T) {
		approved, err := registry.IsApproved(ctx, "asset-1", "alice")
		require.NoError(t, err)
		assert.True(t, approved)
	})

	t.Run("others start unapproved", func(t *testing.T) {
		approved, err := registry.IsApproved(ctx, "asset-1", "operator")
		require.NoError(t, err)
		assert.False(t, approved)
	})

	t.Run("owner grants approval", func(t *testing.T) {
		require.NoError(t, registry.Approve(ctx, "alice", "asset-1", "operator"))

		approved, err := registry.IsApproved(ctx, "asset-1", "operator")
		require.NoError(t, err)
		assert.True(t, approved)
	})

	t.Run("non-owner cannot grant approval", func(t *testing.T) {
		err := registry.Approve(ctx, "mallory", "asset-1", "mallory")
		assert.ErrorIs(t, err, ErrNotOwner)
	})

	t.Run("owner revokes approval", func(t *testing.T) {
		require.NoError(t, registry.Revoke(ctx, "alice", "asset-1", "operator"))

		approved, err := registry.IsApproved(ctx, "asset-1", "operator")
		require.NoError(t, err)
		assert.False(t, approved)
	})

	t.Run("non-owner cannot revoke", func(t *testing.T) {
		require.NoError(t, registry.Approve(ctx, "alice", "asset-1", "operator"))

		err := registry.Revoke(ctx, "mallory", "asset-1", "operator")
		assert.ErrorIs(t, err, ErrNotOwner)
	})
}

func TestTransfer(t *testing.T) {
	registry := setupTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, registry.Register(ctx, "asset-1", "alice"))

	t.Run("owner moves their own asset", func(t *testing.T) {
		err := registry.Transfer(ctx, "asset-1", "alice", "alice", "bob")
		require.NoError(t, err)

		owner, err := registry.Owner(ctx, "asset-1")
		require.NoError(t, err)
		assert.Equal(t, "bob", owner)
	})

	t.Run("approved operator moves the asset", func(t *testing.T) {
		require.NoError(t, registry.Approve(ctx, "bob", "asset-1", "operator"))

		err := registry.Transfer(ctx, "asset-1", "operator", "bob", "carol")
		require.NoError(t, err)

		owner, err := registry.Owner(ctx, "asset-1")
		require.NoError(t, err)
		assert.Equal(t, "carol", owner)
	})

	t.Run("rejects unapproved actor", func(t *testing.T) {
		err := registry.Transfer(ctx, "asset-1", "mallory", "carol", "mallory")
		assert.ErrorIs(t, err, ErrNotApproved)

		owner, err := registry.Owner(ctx, "asset-1")
		require.NoError(t, err)
		assert.Equal(t, "carol", owner)
	})

	t.Run("rejects actor whose approval was revoked", func(t *testing.T) {
		require.NoError(t, registry.Approve(ctx, "carol", "asset-1", "operator"))
		require.NoError(t, registry.Revoke(ctx, "carol", "asset-1", "operator"))

		err := registry.Transfer(ctx, "asset-1", "operator", "carol", "dave")
		assert.ErrorIs(t, err, ErrNotApproved)
	})

	t.Run("rejects transfer from non-owner", func(t *testing.T) {
		err := registry.Transfer(ctx, "asset-1", "alice", "alice", "dave")
		assert.ErrorIs(t, err, ErrNotOwner)

		owner, err := registry.Owner(ctx, "asset-1")
		require.NoError(t, err)
		assert.Equal(t, "carol", owner)
	})

	t.Run("rejects unknown asset", func(t *testing.T) {
		err := registry.Transfer(ctx, "nope", "alice", "alice", "bob")
		assert.ErrorIs(t, err, ErrUnknownAsset)
	})

	t.Run("rejects empty actor and target", func(t *testing.T) {
		assert.Error(t, registry.Transfer(ctx, "asset-1", "", "carol", "dave"))
		assert.Error(t, registry.Transfer(ctx, "asset-1", "carol", "carol", ""))
	})

	t.Run("clears approvals on transfer", func(t *testing.T) {
		require.NoError(t, registry.Approve(ctx, "carol", "asset-1", "operator"))

		err := registry.Transfer(ctx, "asset-1", "carol", "carol", "dave")
		require.NoError(t, err)

		approved, err := registry.IsApproved(ctx, "asset-1", "operator")
		require.NoError(t, err)
		assert.False(t, approved)
	})
}
