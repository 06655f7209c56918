package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/acme-warehouse/internal/core/domain"
	"github.com/rl1809/acme-warehouse/internal/port"
)

// orderBook drives the order state machine: open -> shipped | rejected.
// It is bound to a single unit of work.
type orderBook struct {
	tx     port.Tx
	access accessControl
	prices priceBook
	stock  stockLedger
	escrow escrowAccount
	now    func() time.Time
}

func newOrderBook(tx port.Tx, payee port.Payee, now func() time.Time) orderBook {
	return orderBook{
		tx:     tx,
		access: accessControl{tx: tx},
		prices: priceBook{tx: tx},
		stock:  stockLedger{tx: tx},
		escrow: escrowAccount{tx: tx, payee: payee},
		now:    now,
	}
}

func (b orderBook) place(ctx context.Context, req PlaceOrderRequest) (*domain.Order, error) {
	ok, err := b.tx.IsManager(ctx, req.Manager)
	if err != nil {
		return nil, fmt.Errorf("read roster: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrManagerNotFound, req.Manager)
	}

	available, err := b.stock.balanceOf(ctx, req.Manager, req.ItemID)
	if err != nil {
		return nil, err
	}
	if available < req.Quantity {
		return nil, fmt.Errorf("%w: %s holds %d of item %d, order needs %d",
			ErrInsufficientStock, req.Manager, available, req.ItemID, req.Quantity)
	}

	required, err := b.prices.required(ctx, req.ItemID, req.Quantity)
	if err != nil {
		return nil, err
	}
	if req.Paid.LessThan(required) {
		return nil, fmt.Errorf("%w: paid %s, required %s", ErrInsufficientPayment, req.Paid, required)
	}

	id, err := b.tx.NextOrderID(ctx)
	if err != nil {
		return nil, fmt.Errorf("allocate order id: %w", err)
	}

	// The whole payment is escrowed, overpayment included.
	order := domain.Order{
		ID:       id,
		ItemID:   req.ItemID,
		Quantity: req.Quantity,
		Manager:  req.Manager,
		Customer: req.Customer,
		Escrowed: req.Paid,
		Status:   domain.OrderStatusOpen,
		PlacedAt: b.now().UTC(),
	}
	if err := b.tx.InsertOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("insert order %d: %w", id, err)
	}
	if err := b.escrow.hold(ctx, order.Escrowed); err != nil {
		return nil, err
	}
	return &order, nil
}

// openOrder loads an order that can still transition.
func (b orderBook) openOrder(ctx context.Context, id uint64) (*domain.Order, error) {
	order, err := b.tx.Order(ctx, id)
	if errors.Is(err, port.ErrNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrOrderNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("read order %d: %w", id, err)
	}
	if order.Status != domain.OrderStatusOpen {
		return nil, fmt.Errorf("%w: %d is %s", ErrOrderNotFound, id, order.Status)
	}
	return order, nil
}

// settle records the terminal status. It runs before any escrow release so a
// reentrant call made while paying out no longer sees the order as open.
func (b orderBook) settle(ctx context.Context, order *domain.Order, status domain.OrderStatus) error {
	settledAt := b.now().UTC()
	order.Status = status
	order.SettledAt = &settledAt
	if err := b.tx.UpdateOrder(ctx, *order); err != nil {
		return fmt.Errorf("update order %d: %w", order.ID, err)
	}
	return nil
}

func (b orderBook) reject(ctx context.Context, caller domain.Address, id uint64) (*domain.Order, error) {
	order, err := b.openOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := b.access.requireOrderOwner(caller, order); err != nil {
		return nil, err
	}
	if err := b.settle(ctx, order, domain.OrderStatusRejected); err != nil {
		return nil, err
	}
	if err := b.escrow.release(ctx, order.Customer, order.Escrowed); err != nil {
		return nil, err
	}
	return order, nil
}

func (b orderBook) ship(ctx context.Context, caller domain.Address, id uint64) (*domain.Order, error) {
	order, err := b.openOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := b.access.requireOrderOwner(caller, order); err != nil {
		return nil, err
	}

	// stock may have moved since placement
	available, err := b.stock.balanceOf(ctx, order.Manager, order.ItemID)
	if err != nil {
		return nil, err
	}
	if available < order.Quantity {
		return nil, fmt.Errorf("%w: %s holds %d of item %d, order %d needs %d",
			ErrInsufficientStock, order.Manager, available, order.ItemID, order.ID, order.Quantity)
	}

	if err := b.stock.transfer(ctx, order.Manager, order.Customer, order.ItemID, order.Quantity); err != nil {
		return nil, err
	}
	if err := b.settle(ctx, order, domain.OrderStatusShipped); err != nil {
		return nil, err
	}
	if err := b.escrow.release(ctx, order.Manager, order.Escrowed); err != nil {
		return nil, err
	}
	return order, nil
}

type PlaceOrderRequest struct {
	Customer domain.Address
	ItemID   domain.ItemID
	Quantity int64
	Manager  domain.Address
	Paid     decimal.Decimal

	// RequestID is an optional client key; a repeated key is rejected as a duplicate.
	RequestID string
}

func (r PlaceOrderRequest) validate() error {
	switch {
	case r.Customer.IsZero():
		return fmt.Errorf("%w: customer is required", ErrInvalidArgument)
	case r.Manager.IsZero():
		return fmt.Errorf("%w: manager is required", ErrInvalidArgument)
	case r.Quantity <= 0:
		return fmt.Errorf("%w: quantity must be positive, got %d", ErrInvalidArgument, r.Quantity)
	case !domain.ValidAmount(r.Paid):
		return fmt.Errorf("%w: paid amount %s is not a wei amount", ErrInvalidArgument, r.Paid)
	}
	return nil
}
