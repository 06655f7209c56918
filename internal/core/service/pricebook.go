package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rl1809/acme-warehouse/internal/core/domain"
	"github.com/rl1809/acme-warehouse/internal/port"
)

type priceBook struct {
	tx port.PriceTx
}

func (p priceBook) price(ctx context.Context, item domain.ItemID) (decimal.Decimal, error) {
	amount, err := p.tx.Price(ctx, item)
	if err != nil {
		return decimal.Zero, fmt.Errorf("read price of item %d: %w", item, err)
	}
	return amount, nil
}

// required is the minimum payment for quantity units of item.
func (p priceBook) required(ctx context.Context, item domain.ItemID, quantity int64) (decimal.Decimal, error) {
	unit, err := p.price(ctx, item)
	if err != nil {
		return decimal.Zero, err
	}
	return unit.Mul(decimal.NewFromInt(quantity)), nil
}

func (p priceBook) set(ctx context.Context, item domain.ItemID, amount decimal.Decimal) error {
	if err := p.tx.SetPrice(ctx, item, amount); err != nil {
		return fmt.Errorf("write price of item %d: %w", item, err)
	}
	return nil
}
