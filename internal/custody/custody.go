// Package custody implements the asset ownership registry the market engine
// settles against. It owns the authoritative asset → owner mapping and the
// approval/transfer primitive; the engine consumes it through the
// engine.Custody interface.
//
// State lives in Redis, namespaced per instance alongside the ledger:
//
//	gavel:{instance}:custody:{asset}           hash  owner
//	gavel:{instance}:custody:{asset}:approved  set   approved operators
//
// Approvals are cleared on every transfer, the same discipline as token
// registries: a new owner starts with no outstanding grants.
package custody

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrUnknownAsset means no custody record exists for the asset.
	ErrUnknownAsset = errors.New("unknown asset")

	// ErrAssetExists means the asset is already registered.
	ErrAssetExists = errors.New("asset already registered")

	// ErrNotOwner means the transfer's "from" identity does not hold the asset.
	ErrNotOwner = errors.New("not the asset owner")

	// ErrNotApproved means the operator has no transfer approval for the asset.
	ErrNotApproved = errors.New("operator not approved")
)

// Registry is an instance-scoped, Redis-backed custody store.
// It is thread-safe; transfers run as optimistic transactions so a transfer
// is applied exactly once with no partial effects.
type Registry struct {
	rdb          *redis.Client
	instanceName string
}

// NewRegistry creates a custody registry for the specified instance.
// Returns an error if instanceName is empty.
func NewRegistry(redisOpts *redis.Options, instanceName string) (*Registry, error) {
	if instanceName == "" {
		return nil, fmt.Errorf("instance name cannot be empty")
	}

	return &Registry{
		rdb:          redis.NewClient(redisOpts),
		instanceName: instanceName,
	}, nil
}

// Close closes the Redis connection. Implements io.Closer.
func (r *Registry) Close() error {
	return r.rdb.Close()
}

// AssetKey returns the Redis key for an asset's custody record.
func AssetKey(instanceName, asset string) string {
	return fmt.Sprintf("gavel:%s:custody:%s", instanceName, asset)
}

// ApprovedKey returns the Redis key for an asset's approved-operator set.
func ApprovedKey(instanceName, asset string) string {
	return fmt.Sprintf("gavel:%s:custody:%s:approved", instanceName, asset)
}

// Register records a new asset under the given owner.
// Fails with ErrAssetExists if the asset is already registered.
func (r *Registry) Register(ctx context.Context, asset, owner string) error {
	if asset == "" || owner == "" {
		return fmt.Errorf("asset and owner cannot be empty")
	}

	key := AssetKey(r.instanceName, asset)
	set, err := r.rdb.HSetNX(ctx, key, "owner", owner).Result()
	if err != nil {
		return fmt.Errorf("failed to register asset: %w", err)
	}
	if !set {
		return fmt.Errorf("%w: %s", ErrAssetExists, asset)
	}
	return nil
}

// Owner returns the identity currently holding the asset.
// Fails with ErrUnknownAsset if no custody record exists.
func (r *Registry) Owner(ctx context.Context, asset string) (string, error) {
	key := AssetKey(r.instanceName, asset)

	owner, err := r.rdb.HGet(ctx, key, "owner").Result()
	if err == redis.Nil {
		return "", fmt.Errorf("%w: %s", ErrUnknownAsset, asset)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read owner: %w", err)
	}

	return owner, nil
}

// Approve grants an operator transfer rights over the asset.
// Only the current owner may grant approvals.
func (r *Registry) Approve(ctx context.Context, caller, asset, operator string) error {
	owner, err := r.Owner(ctx, asset)
	if err != nil {
		return err
	}
	if owner != caller {
		return fmt.Errorf("%w: %s does not hold %s", ErrNotOwner, caller, asset)
	}

	key := ApprovedKey(r.instanceName, asset)
	if err := r.rdb.SAdd(ctx, key, operator).Err(); err != nil {
		return fmt.Errorf("failed to approve operator: %w", err)
	}
	return nil
}

// Revoke withdraws an operator's transfer rights over the asset.
// Only the current owner may revoke approvals.
func (r *Registry) Revoke(ctx context.Context, caller, asset, operator string) error {
	owner, err := r.Owner(ctx, asset)
	if err != nil {
		return err
	}
	if owner != caller {
		return fmt.Errorf("%w: %s does not hold %s", ErrNotOwner, caller, asset)
	}

	key := ApprovedKey(r.instanceName, asset)
	if err := r.rdb.SRem(ctx, key, operator).Err(); err != nil {
		return fmt.Errorf("failed to revoke operator: %w", err)
	}
	return nil
}

// IsApproved reports whether the operator may move the asset.
// The current owner is always approved for their own asset.
func (r *Registry) IsApproved(ctx context.Context, asset, operator string) (bool, error) {
	owner, err := r.Owner(ctx, asset)
	if err != nil {
		return false, err
	}
	if owner == operator {
		return true, nil
	}

	key := ApprovedKey(r.instanceName, asset)
	approved, err := r.rdb.SIsMember(ctx, key, operator).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check approval: %w", err)
	}
	return approved, nil
}

// Transfer moves the asset from one identity to another and clears all
// approvals. The move is performed by "by", who must be the current owner
// or hold an approval for the asset; fails with ErrNotOwner if "from" does
// not hold the asset and ErrNotApproved if "by" may not move it. The
// checks and the write commit as one transaction, so a transfer can never
// be applied twice.
func (r *Registry) Transfer(ctx context.Context, asset, by, from, to string) error {
	if by == "" {
		return fmt.Errorf("transfer actor cannot be empty")
	}
	if to == "" {
		return fmt.Errorf("transfer target cannot be empty")
	}

	assetKey := AssetKey(r.instanceName, asset)
	approvedKey := ApprovedKey(r.instanceName, asset)

	err := r.rdb.Watch(ctx, func(tx *redis.Tx) error {
		owner, err := tx.HGet(ctx, assetKey, "owner").Result()
		if err == redis.Nil {
			return fmt.Errorf("%w: %s", ErrUnknownAsset, asset)
		}
		if err != nil {
			return fmt.Errorf("failed to read owner: %w", err)
		}

		if owner != from {
			return fmt.Errorf("%w: %s does not hold %s", ErrNotOwner, from, asset)
		}

		if by != owner {
			approved, err := tx.SIsMember(ctx, approvedKey, by).Result()
			if err != nil {
				return fmt.Errorf("failed to check approval: %w", err)
			}
			if !approved {
				return fmt.Errorf("%w: %s may not move %s", ErrNotApproved, by, asset)
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, assetKey, "owner", to)
			pipe.Del(ctx, approvedKey)
			return nil
		})
		return err
	}, assetKey, approvedKey)

	if errors.Is(err, redis.TxFailedErr) {
		return fmt.Errorf("custody transfer of %s lost a concurrent update", asset)
	}
	return err
}
