// Package market collects and formats the live market state (open auctions
// and fixed-price listings) for CLI display.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dyluth/gavel/pkg/ledger"
)

// Row is one line of market state for an asset: either an auction, a
// listing, or (never both - the paths are mutually exclusive).
type Row struct {
	Asset       string `json:"asset"`
	Kind        string `json:"kind"`  // "auction" or "listing"
	State       string `json:"state"` // auction state, or "listed"
	Seller      string `json:"seller"`
	Price       int64  `json:"price"`           // starting price or listed price
	HighBid     int64  `json:"high_bid"`        // 0 for listings
	HighBidder  string `json:"high_bidder"`     // "" for listings
	EndTimeMs   int64  `json:"end_time_ms"`     // 0 for listings
	CreatedAtMs int64  `json:"created_at_ms"`
}

// Collect builds rows for every asset in the live-market index, oldest
// first. Assets whose records were retired between the index read and the
// record read are skipped.
func Collect(ctx context.Context, client *ledger.Client) ([]Row, error) {
	assets, err := client.ListAssets(ctx)
	if err != nil {
		return nil, err
	}

	rows := make([]Row, 0, len(assets))
	for _, asset := range assets {
		if auction, err := client.GetAuction(ctx, asset); err == nil && auction.State.Live() {
			rows = append(rows, Row{
				Asset:       asset,
				Kind:        "auction",
				State:       string(auction.State),
				Seller:      auction.Seller,
				Price:       auction.StartingPrice,
				HighBid:     auction.HighestAmount,
				HighBidder:  auction.HighestBidder,
				EndTimeMs:   auction.EndTimeMs,
				CreatedAtMs: auction.CreatedAtMs,
			})
			continue
		} else if err != nil && !ledger.IsNotFound(err) {
			return nil, err
		}

		listing, err := client.GetListing(ctx, asset)
		if ledger.IsNotFound(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, Row{
			Asset:       asset,
			Kind:        "listing",
			State:       "listed",
			Seller:      listing.Seller,
			Price:       listing.Price,
			CreatedAtMs: listing.CreatedAtMs,
		})
	}

	return rows, nil
}

// FormatTable writes rows as a formatted table to the provided writer.
// Returns the number of rows formatted.
func FormatTable(w io.Writer, rows []Row, instanceName string) int {
	if len(rows) == 0 {
		fmt.Fprintf(w, "No open auctions or listings for instance '%s'\n", instanceName)
		return 0
	}

	fmt.Fprintf(w, "Market state for instance '%s':\n\n", instanceName)

	fmt.Fprintf(w, "%-14s %-8s %-10s %-14s %10s %10s %-8s\n",
		"ASSET", "KIND", "STATE", "SELLER", "PRICE", "HIGH BID", "ENDS")
	fmt.Fprintf(w, "%-14s %-8s %-10s %-14s %10s %10s %-8s\n",
		"--------------", "--------", "----------", "--------------",
		"----------", "----------", "--------")

	for _, r := range rows {
		fmt.Fprintf(w, "%-14s %-8s %-10s %-14s %10d %10d %-8s\n",
			truncate(r.Asset, 14),
			r.Kind,
			r.State,
			truncate(r.Seller, 14),
			r.Price,
			r.HighBid,
			formatEnds(r.EndTimeMs),
		)
	}

	countMsg := "entry"
	if len(rows) != 1 {
		countMsg = "entries"
	}
	fmt.Fprintf(w, "\n%d %s found\n", len(rows), countMsg)

	return len(rows)
}

// FormatJSONL writes rows as line-delimited JSON to the provided writer.
func FormatJSONL(w io.Writer, rows []Row) error {
	for _, row := range rows {
		data, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("failed to marshal row to JSON: %w", err)
		}

		if _, err := fmt.Fprintf(w, "%s\n", string(data)); err != nil {
			return fmt.Errorf("failed to write JSONL output: %w", err)
		}
	}

	return nil
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 1 {
		return string(runes[:max])
	}
	return string(runes[:max-1]) + "…"
}

// formatEnds renders the time remaining in a bidding window ("-" for
// listings, "closed" once expired).
func formatEnds(endTimeMs int64) string {
	if endTimeMs == 0 {
		return "-"
	}

	remaining := time.Until(time.UnixMilli(endTimeMs))
	if remaining <= 0 {
		return "closed"
	}

	switch {
	case remaining < time.Minute:
		return fmt.Sprintf("%ds", int(remaining.Seconds()))
	case remaining < time.Hour:
		return fmt.Sprintf("%dm", int(remaining.Minutes()))
	default:
		return fmt.Sprintf("%dh", int(remaining.Hours()))
	}
}
