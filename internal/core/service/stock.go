package service

import (
	"context"
	"fmt"
	"math"

	"github.com/rl1809/acme-warehouse/internal/core/domain"
	"github.com/rl1809/acme-warehouse/internal/port"
)

type stockLedger struct {
	tx port.StockTx
}

func (s stockLedger) balanceOf(ctx context.Context, holder domain.Address, item domain.ItemID) (int64, error) {
	qty, err := s.tx.Balance(ctx, holder, item)
	if err != nil {
		return 0, fmt.Errorf("read balance of %s for item %d: %w", holder, item, err)
	}
	return qty, nil
}

// overwrite is an administrative correction, not a transfer: totals are not conserved.
func (s stockLedger) overwrite(ctx context.Context, holder domain.Address, item domain.ItemID, quantity int64) error {
	if quantity < 0 {
		return fmt.Errorf("%w: stock quantity %d is negative", ErrInvalidArgument, quantity)
	}
	if err := s.tx.SetBalance(ctx, holder, item, quantity); err != nil {
		return fmt.Errorf("write balance of %s for item %d: %w", holder, item, err)
	}
	return nil
}

// transfer moves quantity of item from one holder to another, keeping the item total.
func (s stockLedger) transfer(ctx context.Context, from, to domain.Address, item domain.ItemID, quantity int64) error {
	if quantity <= 0 {
		return fmt.Errorf("%w: transfer quantity %d", ErrInvalidArgument, quantity)
	}
	fromBal, err := s.balanceOf(ctx, from, item)
	if err != nil {
		return err
	}
	if fromBal < quantity {
		return fmt.Errorf("%w: %s holds %d of item %d, need %d", ErrInsufficientStock, from, fromBal, item, quantity)
	}
	if err := s.overwrite(ctx, from, item, fromBal-quantity); err != nil {
		return err
	}

	// read after the debit so a self-transfer nets out
	toBal, err := s.balanceOf(ctx, to, item)
	if err != nil {
		return err
	}
	if toBal > math.MaxInt64-quantity {
		return fmt.Errorf("%w: balance of %s for item %d would overflow", ErrInvalidArgument, to, item)
	}
	return s.overwrite(ctx, to, item, toBal+quantity)
}
