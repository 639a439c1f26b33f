package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/dyluth/gavel/pkg/ledger"
)

// Auction lifecycle
//
//	none → StartAuction → active
//	active → CancelAuction (seller, no bids) → cancelled
//	active → EndAuction (seller early, or anyone after expiry) → ended
//	ended → Finalize → finalized (or cancelled + ErrNoBids)
//	finalized → ClaimAsset → claimed
//
// Closing is deliberately two-phase: EndAuction freezes bidding, Finalize
// settles funds and reserves the asset. The gap between them is the
// dispute window.

// StartAuction opens a timed auction for an asset the caller owns.
// The asset is escrowed under the engine's operator identity for the
// duration, so the seller cannot transfer it elsewhere mid-auction.
// Requires a prior custody approval for the operator.
func (e *Engine) StartAuction(ctx context.Context, caller, asset string, startingPrice int64, duration time.Duration) (*ledger.Auction, error) {
	if startingPrice <= 0 {
		return nil, fmt.Errorf("starting price must be positive, got %d", startingPrice)
	}
	if duration <= 0 {
		return nil, fmt.Errorf("duration must be positive, got %s", duration)
	}

	owner, err := e.custody.Owner(ctx, asset)
	if err != nil {
		return nil, err
	}
	if owner != caller {
		return nil, fmt.Errorf("%w: %s does not own %s", ledger.ErrUnauthorized, caller, asset)
	}

	approved, err := e.custody.IsApproved(ctx, asset, e.operator)
	if err != nil {
		return nil, err
	}
	if !approved {
		return nil, fmt.Errorf("%w: custody approval for %s required before listing %s",
			ledger.ErrUnauthorized, e.operator, asset)
	}

	var (
		record   *ledger.Auction
		escrowed bool
	)
	err = e.client.UpdateAsset(ctx, asset, func(tx *ledger.AssetTx) error {
		prior, err := tx.Auction()
		if err != nil && !ledger.IsNotFound(err) {
			return err
		}
		if prior != nil && prior.State.Live() {
			return fmt.Errorf("%w: auction for %s is %s", ledger.ErrInvalidState, asset, prior.State)
		}

		if _, err := tx.Listing(); err == nil {
			return fmt.Errorf("%w: %s has a live fixed-price listing", ledger.ErrInvalidState, asset)
		} else if !ledger.IsNotFound(err) {
			return err
		}

		// Take custody before committing the record: once the auction is
		// visible, the asset hold must already exist.
		if err := e.custody.Transfer(ctx, asset, e.operator, caller, e.operator); err != nil {
			return fmt.Errorf("%w: escrowing %s: %v", ledger.ErrTransferFailed, asset, err)
		}
		escrowed = true

		now := e.clock.Now()
		record = &ledger.Auction{
			Asset:         asset,
			Seller:        caller,
			StartingPrice: startingPrice,
			EndTimeMs:     now.Add(duration).UnixMilli(),
			State:         ledger.StateActive,
			CreatedAtMs:   now.UnixMilli(),
		}
		tx.PutAuction(record)
		tx.IndexAsset(record.CreatedAtMs)
		return nil
	})
	if err != nil {
		if escrowed {
			// Record never committed; hand the asset back.
			if cerr := e.custody.Transfer(ctx, asset, e.operator, e.operator, caller); cerr != nil {
				e.log.Error().Err(cerr).Str("asset", asset).
					Msg("failed to return asset after aborted auction start")
			}
		}
		return nil, err
	}

	e.log.Info().Str("asset", asset).Str("seller", caller).
		Int64("starting_price", startingPrice).Msg("auction started")
	e.publishAuction(ctx, ledger.EventAuctionStarted, asset, caller, startingPrice)
	return record, nil
}

// CancelAuction voids an active auction before any bid has been placed and
// returns the asset hold to the seller. Only the seller may cancel; once
// any escrow exists the auction can no longer be unilaterally voided.
func (e *Engine) CancelAuction(ctx context.Context, caller, asset string) error {
	var released bool
	err := e.client.UpdateAsset(ctx, asset, func(tx *ledger.AssetTx) error {
		auction, err := e.requireAuction(tx, asset)
		if err != nil {
			return err
		}
		if auction.State != ledger.StateActive {
			return fmt.Errorf("%w: auction for %s is %s", ledger.ErrInvalidState, asset, auction.State)
		}
		if auction.Seller != caller {
			return fmt.Errorf("%w: only the seller may cancel %s", ledger.ErrUnauthorized, asset)
		}

		escrow, err := tx.Escrow()
		if err != nil {
			return err
		}
		if len(escrow) > 0 {
			return fmt.Errorf("%w: auction for %s has %d escrowed bid(s)",
				ledger.ErrInvalidState, asset, len(escrow))
		}

		if err := e.custody.Transfer(ctx, asset, e.operator, e.operator, auction.Seller); err != nil {
			return fmt.Errorf("%w: releasing %s: %v", ledger.ErrTransferFailed, asset, err)
		}
		released = true

		auction.State = ledger.StateCancelled
		tx.PutAuction(auction)
		tx.DeindexAsset()
		return nil
	})
	if err != nil {
		if released {
			// The release cleared approvals; re-escrow as the holder.
			if cerr := e.custody.Transfer(ctx, asset, caller, caller, e.operator); cerr != nil {
				e.log.Error().Err(cerr).Str("asset", asset).
					Msg("failed to re-escrow asset after aborted cancel")
			}
		}
		return err
	}

	e.log.Info().Str("asset", asset).Str("seller", caller).Msg("auction cancelled")
	e.publishAuction(ctx, ledger.EventAuctionCancelled, asset, caller, 0)
	return nil
}

// EndAuction closes the bidding window (active → ended). The seller may
// close early; anyone may close once the window has expired. No further
// bids are accepted afterwards, but funds and custody are not settled
// until Finalize.
func (e *Engine) EndAuction(ctx context.Context, caller, asset string) error {
	err := e.client.UpdateAsset(ctx, asset, func(tx *ledger.AssetTx) error {
		auction, err := e.requireAuction(tx, asset)
		if err != nil {
			return err
		}
		if auction.State != ledger.StateActive {
			return fmt.Errorf("%w: auction for %s is %s", ledger.ErrInvalidState, asset, auction.State)
		}

		expired := e.clock.Now().UnixMilli() >= auction.EndTimeMs
		if !expired && caller != auction.Seller {
			return fmt.Errorf("%w: only the seller may close %s before expiry",
				ledger.ErrUnauthorized, asset)
		}

		auction.State = ledger.StateEnded
		tx.PutAuction(auction)
		return nil
	})
	if err != nil {
		return err
	}

	e.log.Info().Str("asset", asset).Str("caller", caller).Msg("bidding closed")
	e.publishAuction(ctx, ledger.EventAuctionEnded, asset, caller, 0)
	return nil
}

// Finalize settles a closed auction (ended → finalized): the winning escrow
// is consumed, its amount credited to the seller's proceeds, and the asset
// stays reserved for the winner until ClaimAsset.
//
// If the auction closed without bids, Finalize returns the asset hold to
// the seller, retires the record as cancelled so the asset can be relisted,
// and reports ErrNoBids.
func (e *Engine) Finalize(ctx context.Context, caller, asset string) error {
	var (
		auction  *ledger.Auction
		released bool
	)
	err := e.client.UpdateAsset(ctx, asset, func(tx *ledger.AssetTx) error {
		a, err := e.requireAuction(tx, asset)
		if err != nil {
			return err
		}
		if a.State != ledger.StateEnded {
			return fmt.Errorf("%w: auction for %s is %s", ledger.ErrInvalidState, asset, a.State)
		}
		auction = a

		if a.HighestBidder == "" {
			if err := e.custody.Transfer(ctx, asset, e.operator, e.operator, a.Seller); err != nil {
				return fmt.Errorf("%w: releasing %s: %v", ledger.ErrTransferFailed, asset, err)
			}
			released = true

			a.State = ledger.StateCancelled
			tx.PutAuction(a)
			tx.DeindexAsset()
			return nil
		}

		// The winning total moves from bid escrow to seller proceeds; the
		// money itself stays in the vault until withdrawal.
		tx.ClearEscrow(a.HighestBidder)
		tx.CreditProceeds(a.Seller, a.HighestAmount)
		a.State = ledger.StateFinalized
		tx.PutAuction(a)
		return nil
	})
	if err != nil {
		if released {
			if cerr := e.custody.Transfer(ctx, asset, auction.Seller, auction.Seller, e.operator); cerr != nil {
				e.log.Error().Err(cerr).Str("asset", asset).
					Msg("failed to re-escrow asset after aborted finalize")
			}
		}
		return err
	}

	if auction.HighestBidder == "" {
		e.log.Info().Str("asset", asset).Msg("auction closed without bids, asset returned")
		e.publishAuction(ctx, ledger.EventAuctionCancelled, asset, caller, 0)
		return fmt.Errorf("%w: auction for %s", ledger.ErrNoBids, asset)
	}

	e.log.Info().Str("asset", asset).Str("winner", auction.HighestBidder).
		Int64("amount", auction.HighestAmount).Msg("auction finalized")
	e.publishAuction(ctx, ledger.EventAuctionFinalized, asset, caller, auction.HighestAmount)
	return nil
}

// ClaimAsset transfers custody of a finalized auction's asset to the
// winning bidder (finalized → claimed). Callable by anyone, effective
// exactly once; repeats report ErrAlreadyClaimed with no transfer.
func (e *Engine) ClaimAsset(ctx context.Context, caller, asset string) error {
	var (
		winner      string
		transferred bool
	)
	err := e.client.UpdateAsset(ctx, asset, func(tx *ledger.AssetTx) error {
		auction, err := e.requireAuction(tx, asset)
		if err != nil {
			return err
		}
		switch auction.State {
		case ledger.StateFinalized:
			// proceed
		case ledger.StateClaimed:
			return fmt.Errorf("%w: %s", ledger.ErrAlreadyClaimed, asset)
		default:
			return fmt.Errorf("%w: auction for %s is %s", ledger.ErrInvalidState, asset, auction.State)
		}

		if err := e.custody.Transfer(ctx, asset, e.operator, e.operator, auction.HighestBidder); err != nil {
			return fmt.Errorf("%w: delivering %s: %v", ledger.ErrTransferFailed, asset, err)
		}
		transferred = true
		winner = auction.HighestBidder

		auction.State = ledger.StateClaimed
		tx.PutAuction(auction)
		tx.DeindexAsset()
		return nil
	})
	if err != nil {
		if transferred {
			if cerr := e.custody.Transfer(ctx, asset, winner, winner, e.operator); cerr != nil {
				e.log.Error().Err(cerr).Str("asset", asset).
					Msg("failed to re-escrow asset after aborted claim")
			}
		}
		return err
	}

	e.log.Info().Str("asset", asset).Str("winner", winner).Msg("asset claimed")
	e.publishAuction(ctx, ledger.EventAssetClaimed, asset, caller, 0)
	return nil
}

// Auction returns the current auction record for an asset, or a record in
// StateNone if the asset has never been auctioned.
func (e *Engine) Auction(ctx context.Context, asset string) (*ledger.Auction, error) {
	auction, err := e.client.GetAuction(ctx, asset)
	if ledger.IsNotFound(err) {
		return &ledger.Auction{Asset: asset, State: ledger.StateNone}, nil
	}
	return auction, err
}

// requireAuction reads the asset's auction record inside a transaction,
// mapping "no record" to ErrInvalidState.
func (e *Engine) requireAuction(tx *ledger.AssetTx, asset string) (*ledger.Auction, error) {
	auction, err := tx.Auction()
	if ledger.IsNotFound(err) {
		return nil, fmt.Errorf("%w: no auction for %s", ledger.ErrInvalidState, asset)
	}
	if err != nil {
		return nil, err
	}
	return auction, nil
}
