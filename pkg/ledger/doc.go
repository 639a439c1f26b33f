// Package ledger provides type-safe Go definitions and Redis schema patterns
// for the Gavel market ledger. The ledger is the shared state all Gavel
// components (engine, CLI, event daemon) interact with via well-defined
// records stored in Redis.
//
// # Records
//
// The ledger tracks four kinds of state, all keyed by asset identifier or
// account identity:
//
//   - Auction: the lifecycle record for a timed competitive sale
//     (active → cancelled | ended → finalized → claimed)
//   - Escrow: per-bidder balances held against an auction, stored as a
//     Redis hash of bidder → amount
//   - Proceeds: per-seller withdrawable balances from completed sales
//   - Listing: a fixed-price record for instant purchase
//
// # Atomicity
//
// Every state-changing market operation runs as a single optimistic
// transaction over the asset's keys (WATCH/MULTI). Reads and validation
// happen under WATCH; writes are staged and committed together, so no
// partially-applied state is ever visible to other callers. Operations on
// different assets never contend.
//
// # Namespacing
//
// All Redis keys and Pub/Sub channels are namespaced by instance name so
// multiple Gavel instances can safely share a single Redis server.
package ledger
