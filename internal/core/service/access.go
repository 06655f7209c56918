package service

import (
	"context"
	"fmt"

	"github.com/rl1809/acme-warehouse/internal/core/domain"
	"github.com/rl1809/acme-warehouse/internal/port"
)

// accessControl answers role questions against the roster of one unit of work.
type accessControl struct {
	tx port.RosterTx
}

func (a accessControl) isAdministrator(ctx context.Context, caller domain.Address) (bool, error) {
	if caller.IsZero() {
		return false, nil
	}
	admin, err := a.tx.Administrator(ctx)
	if err != nil {
		return false, fmt.Errorf("read administrator: %w", err)
	}
	return !admin.IsZero() && admin == caller, nil
}

func (a accessControl) requireAdministrator(ctx context.Context, caller domain.Address) error {
	ok, err := a.isAdministrator(ctx, caller)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s is not the administrator", ErrUnauthorized, caller)
	}
	return nil
}

// requireManagerOrAdministrator passes for the administrator, or for a caller
// that is the holder and currently a warehouse manager.
func (a accessControl) requireManagerOrAdministrator(ctx context.Context, caller, holder domain.Address) error {
	if !caller.IsZero() && caller == holder {
		ok, err := a.tx.IsManager(ctx, holder)
		if err != nil {
			return fmt.Errorf("read roster: %w", err)
		}
		if ok {
			return nil
		}
	}
	ok, err := a.isAdministrator(ctx, caller)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s may not manage stock of %s", ErrUnauthorized, caller, holder)
	}
	return nil
}

func (a accessControl) requireOrderOwner(caller domain.Address, order *domain.Order) error {
	if caller != order.Manager {
		return fmt.Errorf("%w: order %d belongs to %s", ErrUnauthorized, order.ID, order.Manager)
	}
	return nil
}
