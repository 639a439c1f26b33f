// Package engine implements the auction and settlement state machine: the
// rules that move an asset from listed to sold, track and refund competing
// bids, and make proceeds available to the seller exactly once.
//
// The engine holds no state of its own. Market records live in the ledger
// (pkg/ledger); asset ownership and money live with the custody and bank
// collaborators. Each operation is one atomic transaction against the
// asset's ledger keys: either all of its mutations and transfers commit, or
// none do.
package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dyluth/gavel/pkg/ledger"
)

// Custody is the external collaborator owning the asset → owner mapping.
// Implemented by internal/custody for a runnable deployment; faked in tests.
type Custody interface {
	// Owner returns the identity currently holding the asset.
	Owner(ctx context.Context, asset string) (string, error)

	// IsApproved reports whether the operator may move the asset.
	IsApproved(ctx context.Context, asset, operator string) (bool, error)

	// Transfer moves the asset from one identity to another, exactly once,
	// with no partial effects. The move is performed by "by", who must be
	// the owner or hold an approval for the asset.
	Transfer(ctx context.Context, asset, by, from, to string) error
}

// Bank is the external monetary-transfer collaborator. A failed transfer
// must leave both balances intact.
type Bank interface {
	Transfer(ctx context.Context, from, to string, amount int64) error
}

// Clock supplies the time reading used for auction windows. Time-based
// transitions are evaluated lazily at call time; nothing runs on a timer.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Engine executes market operations against the ledger and collaborators.
// It is thread-safe: all mutable state is in Redis, and each operation is
// confined to one asset's transaction.
type Engine struct {
	client  *ledger.Client
	custody Custody
	bank    Bank
	clock   Clock
	log     zerolog.Logger

	// operator holds escrowed assets; vault holds escrowed funds
	operator string
	vault    string
}

// New creates an engine bound to a ledger client and its collaborators.
func New(client *ledger.Client, custody Custody, bank Bank, log zerolog.Logger) *Engine {
	return &Engine{
		client:   client,
		custody:  custody,
		bank:     bank,
		clock:    realClock{},
		log:      log,
		operator: ledger.OperatorIdentity(client.InstanceName()),
		vault:    ledger.VaultAccount(client.InstanceName()),
	}
}

// Operator returns the identity under which the engine escrows assets.
func (e *Engine) Operator() string { return e.operator }

// Vault returns the account under which the engine escrows funds.
func (e *Engine) Vault() string { return e.vault }

// newEvent builds a market event for a committed transition.
func (e *Engine) newEvent(kind ledger.EventKind, asset, actor string, amount int64) *ledger.MarketEvent {
	return &ledger.MarketEvent{
		ID:     uuid.New().String(),
		Kind:   kind,
		Asset:  asset,
		Actor:  actor,
		Amount: amount,
		AtMs:   e.clock.Now().UnixMilli(),
	}
}

// publishAuction publishes on the auction channel; publish failures are
// logged, not surfaced - the state transition already committed.
func (e *Engine) publishAuction(ctx context.Context, kind ledger.EventKind, asset, actor string, amount int64) {
	event := e.newEvent(kind, asset, actor, amount)
	if err := e.client.PublishAuctionEvent(ctx, event); err != nil {
		e.log.Warn().Err(err).Str("kind", string(kind)).Str("asset", asset).
			Msg("failed to publish auction event")
	}
}

// publishSale publishes on the sale channel; same failure policy as above.
func (e *Engine) publishSale(ctx context.Context, kind ledger.EventKind, asset, actor string, amount int64) {
	event := e.newEvent(kind, asset, actor, amount)
	if err := e.client.PublishSaleEvent(ctx, event); err != nil {
		e.log.Warn().Err(err).Str("kind", string(kind)).Str("asset", asset).
			Msg("failed to publish sale event")
	}
}
