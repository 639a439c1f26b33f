package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/gavel/pkg/ledger"
)

func TestStartAuction(t *testing.T) {
	ctx := context.Background()

	t.Run("escrows the asset and opens an active auction", func(t *testing.T) {
		h := setupTestEngine(t)
		h.registerAsset(t, "asset-1", "alice")

		auction, err := h.engine.StartAuction(ctx, "alice", "asset-1", 100, time.Hour)
		require.NoError(t, err)

		assert.Equal(t, ledger.StateActive, auction.State)
		assert.Equal(t, "alice", auction.Seller)
		assert.Equal(t, int64(100), auction.StartingPrice)
		assert.Equal(t, h.clock.Now().Add(time.Hour).UnixMilli(), auction.EndTimeMs)
		assert.Empty(t, auction.HighestBidder)

		// Asset is held by the operator for the duration
		assert.Equal(t, h.engine.Operator(), h.owner(t, "asset-1"))

		assets, err := h.client.ListAssets(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"asset-1"}, assets)
	})

	t.Run("rejects non-owner", func(t *testing.T) {
		h := setupTestEngine(t)
		h.registerAsset(t, "asset-1", "alice")

		_, err := h.engine.StartAuction(ctx, "mallory", "asset-1", 100, time.Hour)
		assert.ErrorIs(t, err, ledger.ErrUnauthorized)
	})

	t.Run("rejects owner without operator approval", func(t *testing.T) {
		h := setupTestEngine(t)
		require.NoError(t, h.custody.Register(ctx, "asset-1", "alice"))

		_, err := h.engine.StartAuction(ctx, "alice", "asset-1", 100, time.Hour)
		assert.ErrorIs(t, err, ledger.ErrUnauthorized)

		// Asset stays with the seller
		assert.Equal(t, "alice", h.owner(t, "asset-1"))
	})

	t.Run("rejects non-positive price and duration", func(t *testing.T) {
		h := setupTestEngine(t)
		h.registerAsset(t, "asset-1", "alice")

		_, err := h.engine.StartAuction(ctx, "alice", "asset-1", 0, time.Hour)
		assert.Error(t, err)

		_, err = h.engine.StartAuction(ctx, "alice", "asset-1", 100, 0)
		assert.Error(t, err)
	})

	t.Run("rejects second auction while one is live", func(t *testing.T) {
		h := setupTestEngine(t)
		h.registerAsset(t, "asset-1", "alice")

		_, err := h.engine.StartAuction(ctx, "alice", "asset-1", 100, time.Hour)
		require.NoError(t, err)

		// The operator holds the asset now, so even the operator path is
		// blocked by the live record check
		_, err = h.engine.StartAuction(ctx, "alice", "asset-1", 100, time.Hour)
		assert.ErrorIs(t, err, ledger.ErrUnauthorized)
	})

	t.Run("rejects auction while a listing exists", func(t *testing.T) {
		h := setupTestEngine(t)
		h.registerAsset(t, "asset-1", "alice")

		_, err := h.engine.SetPrice(ctx, "alice", "asset-1", 500)
		require.NoError(t, err)

		_, err = h.engine.StartAuction(ctx, "alice", "asset-1", 100, time.Hour)
		assert.ErrorIs(t, err, ledger.ErrInvalidState)

		// The aborted start must have handed the asset back
		assert.Equal(t, "alice", h.owner(t, "asset-1"))
	})

	t.Run("allows relisting after cancellation", func(t *testing.T) {
		h := setupTestEngine(t)
		h.registerAsset(t, "asset-1", "alice")

		_, err := h.engine.StartAuction(ctx, "alice", "asset-1", 100, time.Hour)
		require.NoError(t, err)
		require.NoError(t, h.engine.CancelAuction(ctx, "alice", "asset-1"))

		// Transfer back to the seller cleared approvals; re-approve
		require.NoError(t, h.custody.Approve(ctx, "alice", "asset-1", h.engine.Operator()))

		auction, err := h.engine.StartAuction(ctx, "alice", "asset-1", 200, time.Hour)
		require.NoError(t, err)
		assert.Equal(t, int64(200), auction.StartingPrice)
		assert.Equal(t, ledger.StateActive, auction.State)
	})
}

func TestCancelAuction(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the asset and retires the record", func(t *testing.T) {
		h := setupTestEngine(t)
		h.registerAsset(t, "asset-1", "alice")

		_, err := h.engine.StartAuction(ctx, "alice", "asset-1", 100, time.Hour)
		require.NoError(t, err)

		require.NoError(t, h.engine.CancelAuction(ctx, "alice", "asset-1"))

		assert.Equal(t, "alice", h.owner(t, "asset-1"))

		auction, err := h.engine.Auction(ctx, "asset-1")
		require.NoError(t, err)
		assert.Equal(t, ledger.StateCancelled, auction.State)

		assets, err := h.client.ListAssets(ctx)
		require.NoError(t, err)
		assert.Empty(t, assets)
	})

	t.Run("only the seller may cancel", func(t *testing.T) {
		h := setupTestEngine(t)
		h.registerAsset(t, "asset-1", "alice")

		_, err := h.engine.StartAuction(ctx, "alice", "asset-1", 100, time.Hour)
		require.NoError(t, err)

		err = h.engine.CancelAuction(ctx, "mallory", "asset-1")
		assert.ErrorIs(t, err, ledger.ErrUnauthorized)
	})

	t.Run("refuses once a bid is escrowed", func(t *testing.T) {
		h := setupTestEngine(t)
		h.registerAsset(t, "asset-1", "alice")
		h.fund(t, "bob", 200)

		_, err := h.engine.StartAuction(ctx, "alice", "asset-1", 100, time.Hour)
		require.NoError(t, err)
		_, err = h.engine.Bid(ctx, "bob", "asset-1", 150)
		require.NoError(t, err)

		err = h.engine.CancelAuction(ctx, "alice", "asset-1")
		assert.ErrorIs(t, err, ledger.ErrInvalidState)

		// Asset stays escrowed
		assert.Equal(t, h.engine.Operator(), h.owner(t, "asset-1"))
	})

	t.Run("refuses without an auction", func(t *testing.T) {
		h := setupTestEngine(t)

		err := h.engine.CancelAuction(ctx, "alice", "asset-1")
		assert.ErrorIs(t, err, ledger.ErrInvalidState)
	})
}

func TestEndAuction(t *testing.T) {
	ctx := context.Background()

	t.Run("seller may close early", func(t *testing.T) {
		h := setupTestEngine(t)
		h.registerAsset(t, "asset-1", "alice")

		_, err := h.engine.StartAuction(ctx, "alice", "asset-1", 100, time.Hour)
		require.NoError(t, err)

		require.NoError(t, h.engine.EndAuction(ctx, "alice", "asset-1"))

		auction, err := h.engine.Auction(ctx, "asset-1")
		require.NoError(t, err)
		assert.Equal(t, ledger.StateEnded, auction.State)
	})

	t.Run("others cannot close before expiry", func(t *testing.T) {
		h := setupTestEngine(t)
		h.registerAsset(t, "asset-1", "alice")

		_, err := h.engine.StartAuction(ctx, "alice", "asset-1", 100, time.Hour)
		require.NoError(t, err)

		err = h.engine.EndAuction(ctx, "bob", "asset-1")
		assert.ErrorIs(t, err, ledger.ErrUnauthorized)
	})

	t.Run("anyone may close after expiry", func(t *testing.T) {
		h := setupTestEngine(t)
		h.registerAsset(t, "asset-1", "alice")

		_, err := h.engine.StartAuction(ctx, "alice", "asset-1", 100, time.Hour)
		require.NoError(t, err)

		h.clock.Advance(2 * time.Hour)

		require.NoError(t, h.engine.EndAuction(ctx, "bob", "asset-1"))

		auction, err := h.engine.Auction(ctx, "asset-1")
		require.NoError(t, err)
		assert.Equal(t, ledger.StateEnded, auction.State)
	})

	t.Run("refuses when not active", func(t *testing.T) {
		h := setupTestEngine(t)
		h.registerAsset(t, "asset-1", "alice")

		_, err := h.engine.StartAuction(ctx, "alice", "asset-1", 100, time.Hour)
		require.NoError(t, err)
		require.NoError(t, h.engine.EndAuction(ctx, "alice", "asset-1"))

		err = h.engine.EndAuction(ctx, "alice", "asset-1")
		assert.ErrorIs(t, err, ledger.ErrInvalidState)
	})
}

func TestFinalize(t *testing.T) {
	ctx := context.Background()

	t.Run("credits the seller and consumes the winning escrow", func(t *testing.T) {
		h := setupTestEngine(t)
		h.registerAsset(t, "asset-1", "alice")
		h.fund(t, "bob", 300)

		_, err := h.engine.StartAuction(ctx, "alice", "asset-1", 100, time.Hour)
		require.NoError(t, err)
		_, err = h.engine.Bid(ctx, "bob", "asset-1", 150)
		require.NoError(t, err)
		require.NoError(t, h.engine.EndAuction(ctx, "alice", "asset-1"))

		require.NoError(t, h.engine.Finalize(ctx, "alice", "asset-1"))

		auction, err := h.engine.Auction(ctx, "asset-1")
		require.NoError(t, err)
		assert.Equal(t, ledger.StateFinalized, auction.State)

		proceeds, err := h.engine.Proceeds(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, int64(150), proceeds)

		escrow, err := h.engine.Escrow(ctx, "asset-1")
		require.NoError(t, err)
		assert.NotContains(t, escrow, "bob")

		// Asset stays reserved for the winner until claim
		assert.Equal(t, h.engine.Operator(), h.owner(t, "asset-1"))
	})

	t.Run("no bids returns the asset and reports it", func(t *testing.T) {
		h := setupTestEngine(t)
		h.registerAsset(t, "asset-1", "alice")

		_, err := h.engine.StartAuction(ctx, "alice", "asset-1", 100, time.Hour)
		require.NoError(t, err)
		require.NoError(t, h.engine.EndAuction(ctx, "alice", "asset-1"))

		err = h.engine.Finalize(ctx, "alice", "asset-1")
		assert.ErrorIs(t, err, ledger.ErrNoBids)

		assert.Equal(t, "alice", h.owner(t, "asset-1"))

		auction, err := h.engine.Auction(ctx, "asset-1")
		require.NoError(t, err)
		assert.Equal(t, ledger.StateCancelled, auction.State)
	})

	t.Run("refuses before the window is closed", func(t *testing.T) {
		h := setupTestEngine(t)
		h.registerAsset(t, "asset-1", "alice")

		_, err := h.engine.StartAuction(ctx, "alice", "asset-1", 100, time.Hour)
		require.NoError(t, err)

		err = h.engine.Finalize(ctx, "alice", "asset-1")
		assert.ErrorIs(t, err, ledger.ErrInvalidState)
	})

	t.Run("refuses twice", func(t *testing.T) {
		h := setupTestEngine(t)
		h.registerAsset(t, "asset-1", "alice")
		h.fund(t, "bob", 300)

		_, err := h.engine.StartAuction(ctx, "alice", "asset-1", 100, time.Hour)
		require.NoError(t, err)
		_, err = h.engine.Bid(ctx, "bob", "asset-1", 150)
		require.NoError(t, err)
		require.NoError(t, h.engine.EndAuction(ctx, "alice", "asset-1"))
		require.NoError(t, h.engine.Finalize(ctx, "alice", "asset-1"))

		err = h.engine.Finalize(ctx, "alice", "asset-1")
		assert.ErrorIs(t, err, ledger.ErrInvalidState)

		// Proceeds were credited exactly once
		proceeds, err := h.engine.Proceeds(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, int64(150), proceeds)
	})
}

func TestClaimAsset(t *testing.T) {
	ctx := context.Background()

	// finalizedAuction runs an auction through to finalized with bob winning
	finalizedAuction := func(t *testing.T) *harness {
		h := setupTestEngine(t)
		h.registerAsset(t, "asset-1", "alice")
		h.fund(t, "bob", 300)

		_, err := h.engine.StartAuction(ctx, "alice", "asset-1", 100, time.Hour)
		require.NoError(t, err)
		_, err = h.engine.Bid(ctx, "bob", "asset-1", 150)
		require.NoError(t, err)
		require.NoError(t, h.engine.EndAuction(ctx, "alice", "asset-1"))
		require.NoError(t, h.engine.Finalize(ctx, "alice", "asset-1"))
		return h
	}

	t.Run("delivers the asset to the winner", func(t *testing.T) {
		h := finalizedAuction(t)

		require.NoError(t, h.engine.ClaimAsset(ctx, "bob", "asset-1"))

		assert.Equal(t, "bob", h.owner(t, "asset-1"))

		auction, err := h.engine.Auction(ctx, "asset-1")
		require.NoError(t, err)
		assert.Equal(t, ledger.StateClaimed, auction.State)

		assets, err := h.client.ListAssets(ctx)
		require.NoError(t, err)
		assert.Empty(t, assets)
	})

	t.Run("anyone may trigger delivery", func(t *testing.T) {
		h := finalizedAuction(t)

		require.NoError(t, h.engine.ClaimAsset(ctx, "carol", "asset-1"))
		assert.Equal(t, "bob", h.owner(t, "asset-1"))
	})

	t.Run("repeat claim reports already claimed", func(t *testing.T) {
		h := finalizedAuction(t)

		require.NoError(t, h.engine.ClaimAsset(ctx, "bob", "asset-1"))

		err := h.engine.ClaimAsset(ctx, "bob", "asset-1")
		assert.ErrorIs(t, err, ledger.ErrAlreadyClaimed)

		// The asset did not move again
		assert.Equal(t, "bob", h.owner(t, "asset-1"))
	})

	t.Run("refuses before finalization", func(t *testing.T) {
		h := setupTestEngine(t)
		h.registerAsset(t, "asset-1", "alice")

		_, err := h.engine.StartAuction(ctx, "alice", "asset-1", 100, time.Hour)
		require.NoError(t, err)

		err = h.engine.ClaimAsset(ctx, "bob", "asset-1")
		assert.ErrorIs(t, err, ledger.ErrInvalidState)
	})
}

func TestAuctionRead(t *testing.T) {
	ctx := context.Background()

	t.Run("unlisted asset reads as none", func(t *testing.T) {
		h := setupTestEngine(t)

		auction, err := h.engine.Auction(ctx, "asset-1")
		require.NoError(t, err)
		assert.Equal(t, ledger.StateNone, auction.State)
		assert.Equal(t, "asset-1", auction.Asset)
	})
}
