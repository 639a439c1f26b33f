// Package funds implements the monetary-transfer collaborator the market
// engine settles against: per-identity balances with an atomic transfer
// primitive. All escrowed money sits in the instance's vault account; bids
// move bidder → vault and withdrawals move vault → caller.
//
// A failed transfer never corrupts balances: the balance check and both
// balance writes commit as one transaction or not at all.
package funds

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// ErrInsufficientFunds means the source account cannot cover the transfer.
var ErrInsufficientFunds = errors.New("insufficient funds")

// Bank is an instance-scoped, Redis-backed account store.
// It is thread-safe; each account's balance lives under its own key so
// transfers between different account pairs never contend.
type Bank struct {
	rdb          *redis.Client
	instanceName string
}

// NewBank creates a bank for the specified instance.
// Returns an error if instanceName is empty.
func NewBank(redisOpts *redis.Options, instanceName string) (*Bank, error) {
	if instanceName == "" {
		return nil, fmt.Errorf("instance name cannot be empty")
	}

	return &Bank{
		rdb:          redis.NewClient(redisOpts),
		instanceName: instanceName,
	}, nil
}

// Close closes the Redis connection. Implements io.Closer.
func (b *Bank) Close() error {
	return b.rdb.Close()
}

// AccountKey returns the Redis key for an account's balance counter.
func AccountKey(instanceName, account string) string {
	return fmt.Sprintf("gavel:%s:funds:%s", instanceName, account)
}

// Deposit credits an account from outside the system (the "call payment"
// primitive). Amount must be positive.
func (b *Bank) Deposit(ctx context.Context, account string, amount int64) error {
	if account == "" {
		return fmt.Errorf("account cannot be empty")
	}
	if amount <= 0 {
		return fmt.Errorf("deposit amount must be positive, got %d", amount)
	}

	key := AccountKey(b.instanceName, account)
	if err := b.rdb.IncrBy(ctx, key, amount).Err(); err != nil {
		return fmt.Errorf("failed to deposit: %w", err)
	}
	return nil
}

// Balance returns an account's current balance (0 for unknown accounts).
func (b *Bank) Balance(ctx context.Context, account string) (int64, error) {
	key := AccountKey(b.instanceName, account)

	raw, err := b.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read balance: %w", err)
	}

	balance, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid balance: %w", err)
	}
	return balance, nil
}

// Transfer moves amount from one account to another as a single
// transaction. Fails with ErrInsufficientFunds if the source balance is too
// low, leaving both balances untouched.
func (b *Bank) Transfer(ctx context.Context, from, to string, amount int64) error {
	if from == "" || to == "" {
		return fmt.Errorf("accounts cannot be empty")
	}
	if amount <= 0 {
		return fmt.Errorf("transfer amount must be positive, got %d", amount)
	}

	fromKey := AccountKey(b.instanceName, from)
	toKey := AccountKey(b.instanceName, to)

	err := b.rdb.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, fromKey).Result()
		if err == redis.Nil {
			return fmt.Errorf("%w: %s has 0, needs %d", ErrInsufficientFunds, from, amount)
		}
		if err != nil {
			return fmt.Errorf("failed to read balance: %w", err)
		}

		balance, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid balance: %w", err)
		}

		if balance < amount {
			return fmt.Errorf("%w: %s has %d, needs %d", ErrInsufficientFunds, from, balance, amount)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.DecrBy(ctx, fromKey, amount)
			pipe.IncrBy(ctx, toKey, amount)
			return nil
		})
		return err
	}, fromKey)

	if errors.Is(err, redis.TxFailedErr) {
		return fmt.Errorf("transfer from %s lost a concurrent update", from)
	}
	return err
}
