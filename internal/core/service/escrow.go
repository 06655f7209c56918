package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rl1809/acme-warehouse/internal/core/domain"
	"github.com/rl1809/acme-warehouse/internal/port"
)

// escrowAccount holds payments of open orders until they are shipped or rejected.
// The held total always equals the sum of Escrowed over open orders.
type escrowAccount struct {
	tx    port.EscrowTx
	payee port.Payee
}

func (e escrowAccount) hold(ctx context.Context, amount decimal.Decimal) error {
	held, err := e.tx.EscrowHeld(ctx)
	if err != nil {
		return fmt.Errorf("read escrow: %w", err)
	}
	next := held.Add(amount)
	if !domain.ValidAmount(next) {
		return fmt.Errorf("%w: escrow total would exceed %d digits", ErrInvalidArgument, domain.MaxAmountDigits)
	}
	if err := e.tx.SetEscrowHeld(ctx, next); err != nil {
		return fmt.Errorf("write escrow: %w", err)
	}
	return nil
}

// release must only run after the owning order has left the open state.
func (e escrowAccount) release(ctx context.Context, to domain.Address, amount decimal.Decimal) error {
	held, err := e.tx.EscrowHeld(ctx)
	if err != nil {
		return fmt.Errorf("read escrow: %w", err)
	}
	if held.LessThan(amount) {
		return fmt.Errorf("escrow holds %s wei, cannot release %s", held, amount)
	}
	if err := e.tx.SetEscrowHeld(ctx, held.Sub(amount)); err != nil {
		return fmt.Errorf("write escrow: %w", err)
	}

	bal, err := e.tx.AccountBalance(ctx, to)
	if err != nil {
		return fmt.Errorf("read account %s: %w", to, err)
	}
	credited := bal.Add(amount)
	if !domain.ValidAmount(credited) {
		return fmt.Errorf("%w: account %s would exceed %d digits", ErrInvalidArgument, to, domain.MaxAmountDigits)
	}
	if err := e.tx.SetAccountBalance(ctx, to, credited); err != nil {
		return fmt.Errorf("write account %s: %w", to, err)
	}

	if err := e.payee.Pay(ctx, to, amount); err != nil {
		return fmt.Errorf("pay %s wei to %s: %w", amount, to, err)
	}
	return nil
}
