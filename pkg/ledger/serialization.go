package ledger

import (
	"fmt"
	"strconv"
)

// Serialization helpers for converting between Go structs and Redis hashes
//
// Redis stores records as string-to-string maps (hashes). Monetary amounts
// and timestamps are stored as decimal strings and parsed back with
// strconv. Keeping individual fields (rather than one JSON blob) makes
// records inspectable with plain redis-cli.

// AuctionToHash converts an Auction struct to a Redis hash format.
func AuctionToHash(a *Auction) map[string]interface{} {
	return map[string]interface{}{
		"asset":          a.Asset,
		"seller":         a.Seller,
		"starting_price": a.StartingPrice,
		"end_time_ms":    a.EndTimeMs,
		"highest_bidder": a.HighestBidder,
		"highest_amount": a.HighestAmount,
		"state":          string(a.State),
		"created_at_ms":  a.CreatedAtMs,
	}
}

// HashToAuction converts a Redis hash to an Auction struct.
func HashToAuction(hash map[string]string) (*Auction, error) {
	startingPrice, err := strconv.ParseInt(hash["starting_price"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid starting_price field: %w", err)
	}

	endTimeMs, err := strconv.ParseInt(hash["end_time_ms"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid end_time_ms field: %w", err)
	}

	highestAmount, err := strconv.ParseInt(hash["highest_amount"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid highest_amount field: %w", err)
	}

	createdAtMs, err := strconv.ParseInt(hash["created_at_ms"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid created_at_ms field: %w", err)
	}

	return &Auction{
		Asset:         hash["asset"],
		Seller:        hash["seller"],
		StartingPrice: startingPrice,
		EndTimeMs:     endTimeMs,
		HighestBidder: hash["highest_bidder"],
		HighestAmount: highestAmount,
		State:         AuctionState(hash["state"]),
		CreatedAtMs:   createdAtMs,
	}, nil
}

// ListingToHash converts a Listing struct to a Redis hash format.
func ListingToHash(l *Listing) map[string]interface{} {
	return map[string]interface{}{
		"asset":         l.Asset,
		"seller":        l.Seller,
		"price":         l.Price,
		"created_at_ms": l.CreatedAtMs,
	}
}

// HashToListing converts a Redis hash to a Listing struct.
func HashToListing(hash map[string]string) (*Listing, error) {
	price, err := strconv.ParseInt(hash["price"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid price field: %w", err)
	}

	createdAtMs, err := strconv.ParseInt(hash["created_at_ms"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid created_at_ms field: %w", err)
	}

	return &Listing{
		Asset:       hash["asset"],
		Seller:      hash["seller"],
		Price:       price,
		CreatedAtMs: createdAtMs,
	}, nil
}

// HashToEscrow converts an escrow hash (bidder → decimal string) to a map of
// bidder → amount. Zeroed entries are dropped.
func HashToEscrow(hash map[string]string) (map[string]int64, error) {
	escrow := make(map[string]int64, len(hash))
	for bidder, raw := range hash {
		amount, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid escrow amount for %s: %w", bidder, err)
		}
		if amount != 0 {
			escrow[bidder] = amount
		}
	}
	return escrow, nil
}
