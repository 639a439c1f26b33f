package engine

import (
	"context"
	"fmt"

	"github.com/dyluth/gavel/pkg/ledger"
)

// Bidding is cumulative: repeated bids by the same caller add to their
// escrowed total, and it is the total - not the latest payment - that must
// beat the current leading bid. Outbid escrow is never pushed back
// automatically; bidders reclaim it through WithdrawBid (pull payments),
// so one bidder's failing transfer can never block the auction.

// Bid commits amount from the caller toward an active auction. The payment
// moves into the vault immediately; on success the caller becomes the
// leading bidder with their new escrowed total.
//
// Fails with ErrInvalidState outside the bidding window, and with
// ErrBidTooLow if the new total does not strictly exceed the leading bid
// (or, for the opening bid, does not meet the starting price).
func (e *Engine) Bid(ctx context.Context, caller, asset string, amount int64) (*ledger.Auction, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: bid amount must be positive, got %d", ledger.ErrBidTooLow, amount)
	}

	var (
		record    *ledger.Auction
		total     int64
		deposited bool
	)
	err := e.client.UpdateAsset(ctx, asset, func(tx *ledger.AssetTx) error {
		auction, err := e.requireAuction(tx, asset)
		if err != nil {
			return err
		}
		if auction.State != ledger.StateActive {
			return fmt.Errorf("%w: auction for %s is %s", ledger.ErrInvalidState, asset, auction.State)
		}
		if e.clock.Now().UnixMilli() >= auction.EndTimeMs {
			return fmt.Errorf("%w: bidding window for %s has expired", ledger.ErrInvalidState, asset)
		}

		prior, err := tx.EscrowAmount(caller)
		if err != nil {
			return err
		}
		total = prior + amount

		if auction.HighestBidder == "" {
			if total < auction.StartingPrice {
				return fmt.Errorf("%w: total %d below starting price %d",
					ledger.ErrBidTooLow, total, auction.StartingPrice)
			}
		} else if total <= auction.HighestAmount {
			return fmt.Errorf("%w: total %d does not beat leading bid %d",
				ledger.ErrBidTooLow, total, auction.HighestAmount)
		}

		if err := e.bank.Transfer(ctx, caller, e.vault, amount); err != nil {
			return fmt.Errorf("%w: escrowing payment: %v", ledger.ErrTransferFailed, err)
		}
		deposited = true

		tx.SetEscrow(caller, total)
		auction.HighestBidder = caller
		auction.HighestAmount = total
		tx.PutAuction(auction)
		record = auction
		return nil
	})
	if err != nil {
		if deposited {
			// Escrow record never committed; refund the payment.
			if cerr := e.bank.Transfer(ctx, e.vault, caller, amount); cerr != nil {
				e.log.Error().Err(cerr).Str("asset", asset).Str("bidder", caller).
					Int64("amount", amount).Msg("failed to refund payment after aborted bid")
			}
		}
		return nil, err
	}

	e.log.Info().Str("asset", asset).Str("bidder", caller).
		Int64("total", total).Msg("bid placed")
	e.publishAuction(ctx, ledger.EventBidPlaced, asset, caller, total)
	return record, nil
}

// WithdrawBid returns the caller's full escrowed balance for an asset.
// The current leading bid stays locked while the auction is active or
// ended-but-unsettled; everyone else may withdraw at any time, exactly
// once - a repeat reports ErrNothingToWithdraw.
func (e *Engine) WithdrawBid(ctx context.Context, caller, asset string) (int64, error) {
	var amount int64
	err := e.client.UpdateAsset(ctx, asset, func(tx *ledger.AssetTx) error {
		balance, err := tx.EscrowAmount(caller)
		if err != nil {
			return err
		}
		if balance == 0 {
			return fmt.Errorf("%w: %s has no escrow for %s", ledger.ErrNothingToWithdraw, caller, asset)
		}

		// The record may be gone (or retired) while escrow remains
		// claimable; only a live, unsettled auction locks the leader.
		auction, err := tx.Auction()
		if err != nil && !ledger.IsNotFound(err) {
			return err
		}
		if auction != nil && auction.HighestBidder == caller &&
			(auction.State == ledger.StateActive || auction.State == ledger.StateEnded) {
			return fmt.Errorf("%w: %s leads the auction for %s",
				ledger.ErrCannotWithdrawLeadingBid, caller, asset)
		}

		tx.ClearEscrow(caller)
		amount = balance
		return nil
	})
	if err != nil {
		return 0, err
	}

	// The escrow entry is already cleared; if the send fails the balance is
	// restored so the funds stay claimable.
	if err := e.bank.Transfer(ctx, e.vault, caller, amount); err != nil {
		if cerr := e.client.CreditEscrow(ctx, asset, caller, amount); cerr != nil {
			e.log.Error().Err(cerr).Str("asset", asset).Str("bidder", caller).
				Int64("amount", amount).Msg("failed to restore escrow after failed send")
		}
		return 0, fmt.Errorf("%w: refunding %s: %v", ledger.ErrTransferFailed, caller, err)
	}

	e.log.Info().Str("asset", asset).Str("bidder", caller).
		Int64("amount", amount).Msg("bid withdrawn")
	e.publishAuction(ctx, ledger.EventBidWithdrawn, asset, caller, amount)
	return amount, nil
}

// Escrow returns the current escrow balances for an asset's auction.
func (e *Engine) Escrow(ctx context.Context, asset string) (map[string]int64, error) {
	return e.client.GetEscrow(ctx, asset)
}
