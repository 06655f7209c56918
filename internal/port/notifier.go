package port

import (
	"context"

	"github.com/rl1809/acme-warehouse/internal/core/domain"
)

type OrderNotifier interface {
	// OrderPlaced is called once per committed order placement.
	OrderPlaced(ctx context.Context, event domain.OrderPlaced) error
}
