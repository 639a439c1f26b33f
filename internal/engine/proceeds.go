package engine

import (
	"context"
	"fmt"

	"github.com/dyluth/gavel/pkg/ledger"
)

// Proceeds returns a seller's withdrawable balance from completed sales.
func (e *Engine) Proceeds(ctx context.Context, seller string) (int64, error) {
	return e.client.GetProceeds(ctx, seller)
}

// WithdrawProceeds pays out the caller's full withdrawable balance.
// The balance read-and-clear is atomic with respect to concurrent credits,
// so a finalize landing mid-withdrawal is never lost. A failed send
// restores the balance for retry.
func (e *Engine) WithdrawProceeds(ctx context.Context, caller string) (int64, error) {
	amount, err := e.client.TakeProceeds(ctx, caller)
	if err != nil {
		return 0, err
	}

	if err := e.bank.Transfer(ctx, e.vault, caller, amount); err != nil {
		if cerr := e.client.CreditProceeds(ctx, caller, amount); cerr != nil {
			e.log.Error().Err(cerr).Str("seller", caller).Int64("amount", amount).
				Msg("failed to restore proceeds after failed send")
		}
		return 0, fmt.Errorf("%w: paying %s: %v", ledger.ErrTransferFailed, caller, err)
	}

	e.log.Info().Str("seller", caller).Int64("amount", amount).Msg("proceeds withdrawn")
	e.publishSale(ctx, ledger.EventProceedsPaid, "", caller, amount)
	return amount, nil
}
