package notifier

import (
	"context"
	"errors"

	"github.com/rl1809/acme-warehouse/internal/core/domain"
	"github.com/rl1809/acme-warehouse/internal/port"
)

// Fanout delivers each event to every target and joins their errors.
type Fanout []port.OrderNotifier

func (f Fanout) OrderPlaced(ctx context.Context, event domain.OrderPlaced) error {
	var errs []error
	for _, n := range f {
		if err := n.OrderPlaced(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
