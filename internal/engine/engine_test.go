package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/gavel/internal/custody"
	"github.com/dyluth/gavel/internal/funds"
	"github.com/dyluth/gavel/pkg/ledger"
)

// fakeClock is a manually advanced Clock for exercising bidding windows.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// failingBank always rejects transfers; used to exercise restore paths.
type failingBank struct {
	err error
}

func (b failingBank) Transfer(ctx context.Context, from, to string, amount int64) error {
	return b.err
}

// harness wires an engine to real collaborators on one miniredis instance.
type harness struct {
	engine  *Engine
	client  *ledger.Client
	custody *custody.Registry
	bank    *funds.Bank
	clock   *fakeClock
}

// setupTestEngine creates an engine with Redis-backed collaborators and a
// fixed starting time.
func setupTestEngine(t *testing.T) *harness {
	mr := miniredis.NewMiniRedis()
	err := mr.Start()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	opts := &redis.Options{Addr: mr.Addr()}

	client, err := ledger.NewClient(opts, "test-instance")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	registry, err := custody.NewRegistry(opts, "test-instance")
	require.NoError(t, err)
	t.Cleanup(func() { registry.Close() })

	bank, err := funds.NewBank(opts, "test-instance")
	require.NoError(t, err)
	t.Cleanup(func() { bank.Close() })

	clock := &fakeClock{now: time.UnixMilli(1700000000000)}

	engine := New(client, registry, bank, zerolog.Nop())
	engine.clock = clock

	return &harness{
		engine:  engine,
		client:  client,
		custody: registry,
		bank:    bank,
		clock:   clock,
	}
}

// registerAsset registers an asset under the owner and approves the engine's
// operator, the precondition for any listing path.
func (h *harness) registerAsset(t *testing.T, asset, owner string) {
	ctx := context.Background()
	require.NoError(t, h.custody.Register(ctx, asset, owner))
	require.NoError(t, h.custody.Approve(ctx, owner, asset, h.engine.Operator()))
}

// fund deposits spendable balance for an identity.
func (h *harness) fund(t *testing.T, account string, amount int64) {
	require.NoError(t, h.bank.Deposit(context.Background(), account, amount))
}

// owner returns the asset's current holder.
func (h *harness) owner(t *testing.T, asset string) string {
	owner, err := h.custody.Owner(context.Background(), asset)
	require.NoError(t, err)
	return owner
}

// balance returns an account's bank balance.
func (h *harness) balance(t *testing.T, account string) int64 {
	balance, err := h.bank.Balance(context.Background(), account)
	require.NoError(t, err)
	return balance
}

var errBankDown = errors.New("bank unavailable")
