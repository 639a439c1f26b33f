package ledger

import (
	"errors"

	"github.com/redis/go-redis/v9"
)

// Market operations report failures through this taxonomy. Every error is
// returned synchronously and the failed operation leaves all records
// unchanged. Match with errors.Is; operations wrap these with context.
var (
	// ErrUnauthorized means the caller is not permitted to perform the
	// operation (wrong seller, not the asset owner).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidState means the operation is not valid for the record's
	// current lifecycle state (double close, cancel with bids, relist of a
	// live auction, ...).
	ErrInvalidState = errors.New("invalid state")

	// ErrBidTooLow means the bidder's new total escrow does not beat the
	// current leading bid (or, for an opening bid, the starting price).
	ErrBidTooLow = errors.New("bid too low")

	// ErrNoBids means the auction closed without receiving any bid.
	ErrNoBids = errors.New("no bids")

	// ErrNothingToWithdraw means the caller has no balance to reclaim.
	ErrNothingToWithdraw = errors.New("nothing to withdraw")

	// ErrCannotWithdrawLeadingBid means the caller currently holds the
	// leading bid, which must stay escrowed until settlement.
	ErrCannotWithdrawLeadingBid = errors.New("cannot withdraw leading bid")

	// ErrNoListing means the asset has no fixed price set.
	ErrNoListing = errors.New("no listing")

	// ErrInsufficientPayment means the offered payment is below the listed
	// price.
	ErrInsufficientPayment = errors.New("insufficient payment")

	// ErrAlreadyClaimed means the asset was already transferred to the
	// auction winner.
	ErrAlreadyClaimed = errors.New("asset already claimed")

	// ErrTransferFailed means a custody or monetary collaborator rejected a
	// transfer; the enclosing operation was aborted.
	ErrTransferFailed = errors.New("transfer failed")

	// ErrConflict means the optimistic transaction lost a WATCH race.
	// Safe to retry; no state was changed.
	ErrConflict = errors.New("concurrent update, retry")
)

// IsNotFound returns true if the error is a Redis "key not found" error
// (redis.Nil). Use this to check if a record read returned "not found".
func IsNotFound(err error) bool {
	return errors.Is(err, redis.Nil)
}
