package ledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// Optimistic per-asset transactions
//
// Every state-changing market operation runs as one WATCH/MULTI cycle over
// the asset's keys: reads and validation happen under WATCH, writes are
// staged in order and committed together with TxPipelined. If another
// writer touches a watched key between read and commit, the commit fails
// and the operation reports ErrConflict without having changed anything.

// AssetTx is a single optimistic transaction over one asset's market keys.
// Read methods observe current state; staging methods queue writes that
// commit atomically when the transaction function returns nil.
type AssetTx struct {
	ctx    context.Context
	tx     *redis.Tx
	c      *Client
	asset  string
	staged []func(pipe redis.Pipeliner)
}

// Auction reads the asset's auction record.
// Returns (nil, redis.Nil) if no record exists.
func (t *AssetTx) Auction() (*Auction, error) {
	hashData, err := t.tx.HGetAll(t.ctx, AuctionKey(t.c.instanceName, t.asset)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read auction: %w", err)
	}
	if len(hashData) == 0 {
		return nil, redis.Nil
	}
	return HashToAuction(hashData)
}

// Listing reads the asset's fixed-price listing.
// Returns (nil, redis.Nil) if no listing exists.
func (t *AssetTx) Listing() (*Listing, error) {
	hashData, err := t.tx.HGetAll(t.ctx, ListingKey(t.c.instanceName, t.asset)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read listing: %w", err)
	}
	if len(hashData) == 0 {
		return nil, redis.Nil
	}
	return HashToListing(hashData)
}

// Escrow reads all bid escrow balances for the asset.
func (t *AssetTx) Escrow() (map[string]int64, error) {
	raw, err := t.tx.HGetAll(t.ctx, EscrowKey(t.c.instanceName, t.asset)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read escrow: %w", err)
	}
	return HashToEscrow(raw)
}

// EscrowAmount reads one bidder's escrow balance (0 if none).
func (t *AssetTx) EscrowAmount(bidder string) (int64, error) {
	escrow, err := t.Escrow()
	if err != nil {
		return 0, err
	}
	return escrow[bidder], nil
}

// PutAuction stages a full write of the auction record.
func (t *AssetTx) PutAuction(a *Auction) {
	hash := AuctionToHash(a)
	t.staged = append(t.staged, func(pipe redis.Pipeliner) {
		pipe.HSet(t.ctx, AuctionKey(t.c.instanceName, t.asset), hash)
	})
}

// PutListing stages a full write of the listing record.
func (t *AssetTx) PutListing(l *Listing) {
	hash := ListingToHash(l)
	t.staged = append(t.staged, func(pipe redis.Pipeliner) {
		pipe.HSet(t.ctx, ListingKey(t.c.instanceName, t.asset), hash)
	})
}

// DeleteListing stages removal of the listing record.
func (t *AssetTx) DeleteListing() {
	t.staged = append(t.staged, func(pipe redis.Pipeliner) {
		pipe.Del(t.ctx, ListingKey(t.c.instanceName, t.asset))
	})
}

// SetEscrow stages a write of one bidder's escrow balance.
func (t *AssetTx) SetEscrow(bidder string, amount int64) {
	t.staged = append(t.staged, func(pipe redis.Pipeliner) {
		pipe.HSet(t.ctx, EscrowKey(t.c.instanceName, t.asset), bidder, amount)
	})
}

// ClearEscrow stages removal of one bidder's escrow balance.
func (t *AssetTx) ClearEscrow(bidder string) {
	t.staged = append(t.staged, func(pipe redis.Pipeliner) {
		pipe.HDel(t.ctx, EscrowKey(t.c.instanceName, t.asset), bidder)
	})
}

// CreditProceeds stages a credit to a seller's withdrawable balance.
func (t *AssetTx) CreditProceeds(seller string, amount int64) {
	t.staged = append(t.staged, func(pipe redis.Pipeliner) {
		pipe.IncrBy(t.ctx, ProceedsKey(t.c.instanceName, seller), amount)
	})
}

// IndexAsset stages adding the asset to the live-market index.
func (t *AssetTx) IndexAsset(createdAtMs int64) {
	t.staged = append(t.staged, func(pipe redis.Pipeliner) {
		pipe.ZAdd(t.ctx, AssetIndexKey(t.c.instanceName), redis.Z{
			Score:  float64(createdAtMs),
			Member: t.asset,
		})
	})
}

// DeindexAsset stages removing the asset from the live-market index.
func (t *AssetTx) DeindexAsset() {
	t.staged = append(t.staged, func(pipe redis.Pipeliner) {
		pipe.ZRem(t.ctx, AssetIndexKey(t.c.instanceName), t.asset)
	})
}

// UpdateAsset runs fn as one optimistic transaction over the asset's market
// keys. If fn returns an error, nothing is written. If the WATCH race is
// lost, UpdateAsset returns ErrConflict and nothing was written.
func (c *Client) UpdateAsset(ctx context.Context, asset string, fn func(tx *AssetTx) error) error {
	watched := []string{
		AuctionKey(c.instanceName, asset),
		EscrowKey(c.instanceName, asset),
		ListingKey(c.instanceName, asset),
	}

	err := c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		at := &AssetTx{ctx: ctx, tx: tx, c: c, asset: asset}

		if err := fn(at); err != nil {
			return err
		}

		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, stage := range at.staged {
				stage(pipe)
			}
			return nil
		})
		return err
	}, watched...)

	if errors.Is(err, redis.TxFailedErr) {
		return ErrConflict
	}
	return err
}

// TakeProceeds atomically reads and clears a seller's withdrawable balance.
// Returns ErrNothingToWithdraw if the balance is zero. The read-then-clear
// runs under WATCH so a concurrent credit is never silently discarded.
func (c *Client) TakeProceeds(ctx context.Context, seller string) (int64, error) {
	key := ProceedsKey(c.instanceName, seller)
	var balance int64

	err := c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Result()
		if err == redis.Nil {
			return ErrNothingToWithdraw
		}
		if err != nil {
			return fmt.Errorf("failed to read proceeds: %w", err)
		}

		balance, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid proceeds balance: %w", err)
		}
		if balance <= 0 {
			return ErrNothingToWithdraw
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			return nil
		})
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return 0, ErrConflict
	}
	if err != nil {
		return 0, err
	}
	return balance, nil
}
