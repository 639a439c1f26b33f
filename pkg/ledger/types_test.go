package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAuctionStateLive(t *testing.T) {
	tests := []struct {
		state AuctionState
		live  bool
	}{
		{StateNone, false},
		{StateActive, true},
		{StateCancelled, false},
		{StateEnded, true},
		{StateFinalized, true},
		{StateClaimed, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			assert.Equal(t, tt.live, tt.state.Live())
		})
	}
}

func TestAuctionStateValidate(t *testing.T) {
	t.Run("accepts storable states", func(t *testing.T) {
		for _, s := range []AuctionState{StateActive, StateCancelled, StateEnded, StateFinalized, StateClaimed} {
			assert.NoError(t, s.Validate(), "state %s", s)
		}
	})

	t.Run("rejects none", func(t *testing.T) {
		assert.Error(t, StateNone.Validate())
	})

	t.Run("rejects unknown state", func(t *testing.T) {
		err := AuctionState("paused").Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "unknown auction state")
	})
}

func TestAuctionValidate(t *testing.T) {
	valid := func() *Auction {
		return &Auction{
			Asset:         "asset-1",
			Seller:        "alice",
			StartingPrice: 100,
			EndTimeMs:     1700000000000,
			State:         StateActive,
		}
	}

	t.Run("accepts valid auction", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("accepts auction with leading bid", func(t *testing.T) {
		a := valid()
		a.HighestBidder = "bob"
		a.HighestAmount = 150
		assert.NoError(t, a.Validate())
	})

	t.Run("rejects empty asset", func(t *testing.T) {
		a := valid()
		a.Asset = ""
		assert.Error(t, a.Validate())
	})

	t.Run("rejects empty seller", func(t *testing.T) {
		a := valid()
		a.Seller = ""
		assert.Error(t, a.Validate())
	})

	t.Run("rejects non-positive starting price", func(t *testing.T) {
		a := valid()
		a.StartingPrice = 0
		assert.Error(t, a.Validate())

		a.StartingPrice = -5
		assert.Error(t, a.Validate())
	})

	t.Run("rejects missing end time", func(t *testing.T) {
		a := valid()
		a.EndTimeMs = 0
		assert.Error(t, a.Validate())
	})

	t.Run("rejects amount without bidder", func(t *testing.T) {
		a := valid()
		a.HighestAmount = 50
		err := a.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "without a bidder")
	})

	t.Run("rejects negative highest amount", func(t *testing.T) {
		a := valid()
		a.HighestBidder = "bob"
		a.HighestAmount = -1
		assert.Error(t, a.Validate())
	})
}

func TestListingValidate(t *testing.T) {
	t.Run("accepts valid listing", func(t *testing.T) {
		l := &Listing{Asset: "asset-1", Seller: "alice", Price: 100}
		assert.NoError(t, l.Validate())
	})

	t.Run("rejects empty asset", func(t *testing.T) {
		l := &Listing{Seller: "alice", Price: 100}
		assert.Error(t, l.Validate())
	})

	t.Run("rejects empty seller", func(t *testing.T) {
		l := &Listing{Asset: "asset-1", Price: 100}
		assert.Error(t, l.Validate())
	})

	t.Run("rejects non-positive price", func(t *testing.T) {
		l := &Listing{Asset: "asset-1", Seller: "alice", Price: 0}
		assert.Error(t, l.Validate())
	})
}

func TestMarketEventValidate(t *testing.T) {
	valid := func() *MarketEvent {
		return &MarketEvent{
			ID:     "b9d9262f-84a3-4a5e-b9a2-0d1a19a3a001",
			Kind:   EventBidPlaced,
			Asset:  "asset-1",
			Actor:  "bob",
			Amount: 100,
			AtMs:   1700000000000,
		}
	}

	t.Run("accepts valid event", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("accepts empty asset for proceeds withdrawals", func(t *testing.T) {
		e := valid()
		e.Kind = EventProceedsPaid
		e.Asset = ""
		assert.NoError(t, e.Validate())
	})

	t.Run("rejects empty ID", func(t *testing.T) {
		e := valid()
		e.ID = ""
		assert.Error(t, e.Validate())
	})

	t.Run("rejects unknown kind", func(t *testing.T) {
		e := valid()
		e.Kind = "auction.exploded"
		assert.Error(t, e.Validate())
	})

	t.Run("rejects empty actor", func(t *testing.T) {
		e := valid()
		e.Actor = ""
		assert.Error(t, e.Validate())
	})

	t.Run("rejects negative amount", func(t *testing.T) {
		e := valid()
		e.Amount = -1
		assert.Error(t, e.Validate())
	})
}
