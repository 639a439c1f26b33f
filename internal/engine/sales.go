package engine

import (
	"context"
	"fmt"

	"github.com/dyluth/gavel/pkg/ledger"
)

// Instant sale is the atomic accept-or-reject path: no escrow, no refund
// phase. The asset stays with the seller (under an approval hold) until a
// buyer pays, when payment, proceeds credit, custody transfer and listing
// removal commit together.

// SetPrice lists an asset for instant purchase at a fixed price, replacing
// any previous listing. The caller must own the asset and have approved
// the engine's operator. Fails with ErrInvalidState while the asset has a
// live auction - the two transfer paths are mutually exclusive.
func (e *Engine) SetPrice(ctx context.Context, caller, asset string, price int64) (*ledger.Listing, error) {
	if price <= 0 {
		return nil, fmt.Errorf("price must be positive, got %d", price)
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

	var listing *ledger.Listing
	err = e.client.UpdateAsset(ctx, asset, func(tx *ledger.AssetTx) error {
		auction, err := tx.Auction()
		if err != nil && !ledger.IsNotFound(err) {
			return err
		}
		if auction != nil && auction.State.Live() {
			return fmt.Errorf("%w: auction for %s is %s", ledger.ErrInvalidState, asset, auction.State)
		}

		listing = &ledger.Listing{
			Asset:       asset,
			Seller:      caller,
			Price:       price,
			CreatedAtMs: e.clock.Now().UnixMilli(),
		}
		tx.PutListing(listing)
		tx.IndexAsset(listing.CreatedAtMs)
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.log.Info().Str("asset", asset).Str("seller", caller).Int64("price", price).
		Msg("asset listed for instant sale")
	e.publishSale(ctx, ledger.EventSaleListed, asset, caller, price)
	return listing, nil
}

// InstantBuy purchases a listed asset at its fixed price. Payment is the
// buyer's declared cap and must cover the price; only the listed price ever
// leaves the buyer's account, so overpayment needs no refund path. On
// success the seller's proceeds are credited, custody moves to the buyer
// and the listing is cleared - a second buy reports ErrNoListing.
func (e *Engine) InstantBuy(ctx context.Context, caller, asset string, payment int64) error {
	var (
		listing     *ledger.Listing
		paid        bool
		transferred bool
	)
	err := e.client.UpdateAsset(ctx, asset, func(tx *ledger.AssetTx) error {
		l, err := tx.Listing()
		if ledger.IsNotFound(err) {
			return fmt.Errorf("%w: %s", ledger.ErrNoListing, asset)
		}
		if err != nil {
			return err
		}
		listing = l

		if payment < l.Price {
			return fmt.Errorf("%w: offered %d, price is %d",
				ledger.ErrInsufficientPayment, payment, l.Price)
		}

		if err := e.bank.Transfer(ctx, caller, e.vault, l.Price); err != nil {
			return fmt.Errorf("%w: collecting payment: %v", ledger.ErrTransferFailed, err)
		}
		paid = true

		if err := e.custody.Transfer(ctx, asset, e.operator, l.Seller, caller); err != nil {
			return fmt.Errorf("%w: delivering %s: %v", ledger.ErrTransferFailed, asset, err)
		}
		transferred = true

		tx.CreditProceeds(l.Seller, l.Price)
		tx.DeleteListing()
		tx.DeindexAsset()
		return nil
	})
	if err != nil {
		// Unwind in reverse order; neither side keeps the other's goods.
		if transferred {
			if cerr := e.custody.Transfer(ctx, asset, caller, caller, listing.Seller); cerr != nil {
				e.log.Error().Err(cerr).Str("asset", asset).
					Msg("failed to return asset after aborted instant buy")
			}
		}
		if paid {
			if cerr := e.bank.Transfer(ctx, e.vault, caller, listing.Price); cerr != nil {
				e.log.Error().Err(cerr).Str("asset", asset).Str("buyer", caller).
					Msg("failed to refund payment after aborted instant buy")
			}
		}
		return err
	}

	e.log.Info().Str("asset", asset).Str("buyer", caller).Str("seller", listing.Seller).
		Int64("price", listing.Price).Msg("instant sale completed")
	e.publishSale(ctx, ledger.EventSaleCompleted, asset, caller, listing.Price)
	return nil
}

// Listing returns the current fixed-price listing for an asset.
// Returns (nil, redis.Nil) if none exists; use ledger.IsNotFound to check.
func (e *Engine) Listing(ctx context.Context, asset string) (*ledger.Listing, error) {
	return e.client.GetListing(ctx, asset)
}
