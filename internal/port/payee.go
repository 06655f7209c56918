package port

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/rl1809/acme-warehouse/internal/core/domain"
)

// Payee receives value released from escrow. It runs inside the releasing
// operation's unit of work; returning an error aborts that operation.
type Payee interface {
	Pay(ctx context.Context, to domain.Address, amount decimal.Decimal) error
}
