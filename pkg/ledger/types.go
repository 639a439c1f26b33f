package ledger

import (
	"fmt"
)

// Amounts are int64 base units ("uct"). Using integers keeps balance
// arithmetic exact; display formatting is the CLI's problem.

// Auction is the lifecycle record for a timed competitive sale of one asset.
// Exactly one live auction record may exist per asset at a time.
type Auction struct {
	Asset         string       `json:"asset"`          // Asset identifier this auction sells
	Seller        string       `json:"seller"`         // Identity of the lister, immutable after creation
	StartingPrice int64        `json:"starting_price"` // Minimum total accepted as an opening bid
	EndTimeMs     int64        `json:"end_time_ms"`    // Unix ms after which bidding closes
	HighestBidder string       `json:"highest_bidder"` // Current leading bidder ("" until first bid)
	HighestAmount int64        `json:"highest_amount"` // Leading bidder's total escrow, non-decreasing
	State         AuctionState `json:"state"`          // Current lifecycle state
	CreatedAtMs   int64        `json:"created_at_ms"`  // Unix ms when the auction was opened
}

// AuctionState is the lifecycle state of an auction record.
// An asset with no record at all is in StateNone.
type AuctionState string

const (
	// StateNone means no auction record exists for the asset.
	StateNone AuctionState = "none"

	// StateActive means the auction accepts bids (within its time window).
	StateActive AuctionState = "active"

	// StateCancelled means the seller cancelled before any bid was placed,
	// or finalization found no bids. The asset may be relisted.
	StateCancelled AuctionState = "cancelled"

	// StateEnded means the bidding window is closed but funds and custody
	// have not been settled yet.
	StateEnded AuctionState = "ended"

	// StateFinalized means proceeds have been credited to the seller and
	// the asset is reserved for the winning bidder.
	StateFinalized AuctionState = "finalized"

	// StateClaimed means custody has been transferred to the winner.
	// The record is retained for audit only.
	StateClaimed AuctionState = "claimed"
)

// Live reports whether the state blocks a competing sale path for the asset.
// Cancelled and claimed records are retired: the asset may be relisted.
func (s AuctionState) Live() bool {
	switch s {
	case StateActive, StateEnded, StateFinalized:
		return true
	default:
		return false
	}
}

// Validate checks if the AuctionState is a valid enum value.
func (s AuctionState) Validate() error {
	switch s {
	case StateActive, StateCancelled, StateEnded, StateFinalized, StateClaimed:
		return nil
	default:
		return fmt.Errorf("unknown auction state: %q", s)
	}
}

// Validate checks if the Auction has valid field values.
// StateNone is not storable: an asset without an auction simply has no record.
func (a *Auction) Validate() error {
	if a.Asset == "" {
		return fmt.Errorf("asset cannot be empty")
	}

	if a.Seller == "" {
		return fmt.Errorf("seller cannot be empty")
	}

	if a.StartingPrice <= 0 {
		return fmt.Errorf("starting price must be positive, got %d", a.StartingPrice)
	}

	if a.EndTimeMs <= 0 {
		return fmt.Errorf("end time must be set")
	}

	if err := a.State.Validate(); err != nil {
		return fmt.Errorf("invalid state: %w", err)
	}

	if a.HighestAmount < 0 {
		return fmt.Errorf("highest amount cannot be negative, got %d", a.HighestAmount)
	}

	if a.HighestBidder == "" && a.HighestAmount != 0 {
		return fmt.Errorf("highest amount %d recorded without a bidder", a.HighestAmount)
	}

	return nil
}

// Listing is a fixed-price record for instant purchase of one asset.
// Its lifecycle is independent of auctions, but a live auction and a listing
// are mutually exclusive for the same asset.
type Listing struct {
	Asset       string `json:"asset"`         // Asset identifier this listing sells
	Seller      string `json:"seller"`        // Identity of the lister
	Price       int64  `json:"price"`         // Exact amount moved from buyer to seller
	CreatedAtMs int64  `json:"created_at_ms"` // Unix ms when the price was set
}

// Validate checks if the Listing has valid field values.
func (l *Listing) Validate() error {
	if l.Asset == "" {
		return fmt.Errorf("asset cannot be empty")
	}

	if l.Seller == "" {
		return fmt.Errorf("seller cannot be empty")
	}

	if l.Price <= 0 {
		return fmt.Errorf("price must be positive, got %d", l.Price)
	}

	return nil
}

// EventKind identifies a market state transition published on the event
// channels. Kinds double as AMQP routing keys in the event bridge.
type EventKind string

const (
	EventAuctionStarted   EventKind = "auction.started"
	EventAuctionCancelled EventKind = "auction.cancelled"
	EventAuctionEnded     EventKind = "auction.ended"
	EventAuctionFinalized EventKind = "auction.finalized"
	EventAssetClaimed     EventKind = "auction.claimed"
	EventBidPlaced        EventKind = "bid.placed"
	EventBidWithdrawn     EventKind = "bid.withdrawn"
	EventSaleListed       EventKind = "sale.listed"
	EventSaleCompleted    EventKind = "sale.completed"
	EventProceedsPaid     EventKind = "proceeds.withdrawn"
)

// Validate checks if the EventKind is a valid enum value.
func (k EventKind) Validate() error {
	switch k {
	case EventAuctionStarted, EventAuctionCancelled, EventAuctionEnded,
		EventAuctionFinalized, EventAssetClaimed, EventBidPlaced,
		EventBidWithdrawn, EventSaleListed, EventSaleCompleted,
		EventProceedsPaid:
		return nil
	default:
		return fmt.Errorf("unknown event kind: %q", k)
	}
}

// MarketEvent is published after every committed state transition.
// Events are observational: all authoritative state lives in the records.
type MarketEvent struct {
	ID     string    `json:"id"`              // UUID, unique per event
	Kind   EventKind `json:"kind"`            // What happened
	Asset  string    `json:"asset,omitempty"` // Asset involved ("" for proceeds withdrawals)
	Actor  string    `json:"actor"`           // Identity that triggered the transition
	Amount int64     `json:"amount"`          // Monetary amount involved, 0 if none
	AtMs   int64     `json:"at_ms"`           // Unix ms when the transition committed
}

// Validate checks if the MarketEvent has valid field values.
func (e *MarketEvent) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("event ID cannot be empty")
	}

	if err := e.Kind.Validate(); err != nil {
		return err
	}

	if e.Actor == "" {
		return fmt.Errorf("actor cannot be empty")
	}

	if e.Amount < 0 {
		return fmt.Errorf("amount cannot be negative, got %d", e.Amount)
	}

	return nil
}
