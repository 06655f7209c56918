package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/rl1809/acme-warehouse/internal/core/domain"
	"github.com/rl1809/acme-warehouse/internal/port"
)

// LedgerService exposes the administrator, manager, customer and public
// operations of the warehouse ledger. Every operation runs in exactly one unit
// of work of the store and leaves state untouched when it fails.
type LedgerService struct {
	store    port.Store
	notifier port.OrderNotifier
	payee    port.Payee
	guard    port.RequestGuard
	log      logrus.FieldLogger
	now      func() time.Time
}

type Option func(*LedgerService)

func WithPayee(p port.Payee) Option {
	return func(s *LedgerService) { s.payee = p }
}

// WithRequestGuard enables duplicate detection for orders carrying a RequestID.
func WithRequestGuard(g port.RequestGuard) Option {
	return func(s *LedgerService) { s.guard = g }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(s *LedgerService) { s.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *LedgerService) { s.now = now }
}

func NewLedgerService(store port.Store, notifier port.OrderNotifier, opts ...Option) *LedgerService {
	s := &LedgerService{
		store:    store,
		notifier: notifier,
		payee:    nopPayee{},
		log:      logrus.StandardLogger(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type nopPayee struct{}

func (nopPayee) Pay(context.Context, domain.Address, decimal.Decimal) error { return nil }

// Initialize fixes the administrator to caller and prices widgets at the default.
// Once initialized it returns the existing administrator with ErrAlreadyInitialized.
func (s *LedgerService) Initialize(ctx context.Context, caller domain.Address) (domain.Address, error) {
	if caller.IsZero() {
		return "", fmt.Errorf("%w: administrator address is required", ErrInvalidArgument)
	}

	var admin domain.Address
	err := s.store.Atomic(ctx, func(ctx context.Context, tx port.Tx) error {
		current, err := tx.Administrator(ctx)
		if err != nil {
			return fmt.Errorf("read administrator: %w", err)
		}
		if !current.IsZero() {
			admin = current
			return ErrAlreadyInitialized
		}
		if err := tx.SetAdministrator(ctx, caller); err != nil {
			return fmt.Errorf("write administrator: %w", err)
		}
		admin = caller
		return priceBook{tx: tx}.set(ctx, domain.WidgetsItemID, domain.DefaultWidgetPrice)
	})
	if err != nil {
		return admin, err
	}

	s.log.WithField("administrator", caller).Info("ledger initialized")
	return admin, nil
}

// Administrator is readable by the administrator only.
func (s *LedgerService) Administrator(ctx context.Context, caller domain.Address) (domain.Address, error) {
	var admin domain.Address
	err := s.store.View(ctx, func(ctx context.Context, tx port.Tx) error {
		current, err := tx.Administrator(ctx)
		if err != nil {
			return fmt.Errorf("read administrator: %w", err)
		}
		if current.IsZero() {
			return ErrNotInitialized
		}
		if current != caller {
			return fmt.Errorf("%w: %s is not the administrator", ErrUnauthorized, caller)
		}
		admin = current
		return nil
	})
	return admin, err
}

func (s *LedgerService) IsAdministrator(ctx context.Context, caller domain.Address) (bool, error) {
	var ok bool
	err := s.store.View(ctx, func(ctx context.Context, tx port.Tx) (err error) {
		ok, err = accessControl{tx: tx}.isAdministrator(ctx, caller)
		return err
	})
	return ok, err
}

func (s *LedgerService) IsManager(ctx context.Context, addr domain.Address) (bool, error) {
	var ok bool
	err := s.store.View(ctx, func(ctx context.Context, tx port.Tx) (err error) {
		ok, err = tx.IsManager(ctx, addr)
		return err
	})
	return ok, err
}

func (s *LedgerService) AddManager(ctx context.Context, caller, addr domain.Address) error {
	err := s.store.Atomic(ctx, func(ctx context.Context, tx port.Tx) error {
		if err := (accessControl{tx: tx}).requireAdministrator(ctx, caller); err != nil {
			return err
		}
		if addr.IsZero() {
			return fmt.Errorf("%w: manager address is required", ErrInvalidArgument)
		}
		exists, err := tx.IsManager(ctx, addr)
		if err != nil {
			return fmt.Errorf("read roster: %w", err)
		}
		if exists {
			return fmt.Errorf("%w: %s is already a warehouse manager", ErrAlreadyExists, addr)
		}
		return tx.AddManager(ctx, domain.Manager{Address: addr, AddedAt: s.now().UTC()})
	})
	if err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{"caller": caller, "manager": addr}).Info("warehouse manager added")
	return nil
}

// RemoveManager only revokes future authorization; balances and orders are kept.
func (s *LedgerService) RemoveManager(ctx context.Context, caller, addr domain.Address) error {
	err := s.store.Atomic(ctx, func(ctx context.Context, tx port.Tx) error {
		if err := (accessControl{tx: tx}).requireAdministrator(ctx, caller); err != nil {
			return err
		}
		exists, err := tx.IsManager(ctx, addr)
		if err != nil {
			return fmt.Errorf("read roster: %w", err)
		}
		if !exists {
			return fmt.Errorf("%w: %s is not a warehouse manager", ErrNotFound, addr)
		}
		return tx.RemoveManager(ctx, addr)
	})
	if err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{"caller": caller, "manager": addr}).Info("warehouse manager removed")
	return nil
}

func (s *LedgerService) ListManagers(ctx context.Context) ([]domain.Address, error) {
	var out []domain.Address
	err := s.store.View(ctx, func(ctx context.Context, tx port.Tx) error {
		managers, err := tx.Managers(ctx)
		if err != nil {
			return fmt.Errorf("list managers: %w", err)
		}
		out = make([]domain.Address, 0, len(managers))
		for _, m := range managers {
			out = append(out, m.Address)
		}
		return nil
	})
	return out, err
}

func (s *LedgerService) Manager(ctx context.Context, addr domain.Address) (*domain.Manager, error) {
	var m *domain.Manager
	err := s.store.View(ctx, func(ctx context.Context, tx port.Tx) (err error) {
		m, err = tx.Manager(ctx, addr)
		if errors.Is(err, port.ErrNotFound) {
			return fmt.Errorf("%w: %s is not a warehouse manager", ErrNotFound, addr)
		}
		return err
	})
	return m, err
}

func (s *LedgerService) GetPrice(ctx context.Context, item domain.ItemID) (decimal.Decimal, error) {
	var amount decimal.Decimal
	err := s.store.View(ctx, func(ctx context.Context, tx port.Tx) (err error) {
		amount, err = priceBook{tx: tx}.price(ctx, item)
		return err
	})
	return amount, err
}

// SetPrice overwrites the price unconditionally; zero is a valid price.
func (s *LedgerService) SetPrice(ctx context.Context, caller domain.Address, item domain.ItemID, amount decimal.Decimal) error {
	err := s.store.Atomic(ctx, func(ctx context.Context, tx port.Tx) error {
		if err := (accessControl{tx: tx}).requireAdministrator(ctx, caller); err != nil {
			return err
		}
		if !domain.ValidAmount(amount) {
			return fmt.Errorf("%w: price %s is not a wei amount", ErrInvalidArgument, amount)
		}
		return priceBook{tx: tx}.set(ctx, item, amount)
	})
	if err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{"item_id": item, "price": amount}).Info("item price set")
	return nil
}

func (s *LedgerService) BalanceOf(ctx context.Context, holder domain.Address, item domain.ItemID) (int64, error) {
	var qty int64
	err := s.store.View(ctx, func(ctx context.Context, tx port.Tx) (err error) {
		qty, err = stockLedger{tx: tx}.balanceOf(ctx, holder, item)
		return err
	})
	return qty, err
}

// SetBalance is the updateStock operation: an absolute overwrite of holder's
// balance, allowed for the administrator and for a manager on its own stock.
func (s *LedgerService) SetBalance(ctx context.Context, caller, holder domain.Address, item domain.ItemID, quantity int64) error {
	err := s.store.Atomic(ctx, func(ctx context.Context, tx port.Tx) error {
		if err := (accessControl{tx: tx}).requireManagerOrAdministrator(ctx, caller, holder); err != nil {
			return err
		}
		return stockLedger{tx: tx}.overwrite(ctx, holder, item, quantity)
	})
	if err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{
		"caller":   caller,
		"holder":   holder,
		"item_id":  item,
		"quantity": quantity,
	}).Info("stock updated")
	return nil
}

func (s *LedgerService) Holdings(ctx context.Context, item domain.ItemID) ([]domain.Holding, error) {
	var out []domain.Holding
	err := s.store.View(ctx, func(ctx context.Context, tx port.Tx) (err error) {
		out, err = tx.Holdings(ctx, item)
		return err
	})
	return out, err
}

func (s *LedgerService) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (uint64, error) {
	if err := req.validate(); err != nil {
		return 0, err
	}

	var guardKey string
	if req.RequestID != "" && s.guard != nil {
		guardKey = fmt.Sprintf("order:%s:%s", req.Customer, req.RequestID)
		ok, err := s.guard.Claim(ctx, guardKey)
		if err != nil {
			return 0, fmt.Errorf("idempotency check failed: %w", err)
		}
		if !ok {
			return 0, fmt.Errorf("%w: %s", ErrDuplicateRequest, req.RequestID)
		}
	}

	var order *domain.Order
	err := s.store.Atomic(ctx, func(ctx context.Context, tx port.Tx) (err error) {
		order, err = newOrderBook(tx, s.payee, s.now).place(ctx, req)
		return err
	})
	if err != nil {
		if guardKey != "" {
			if releaseErr := s.guard.Release(context.WithoutCancel(ctx), guardKey); releaseErr != nil {
				s.log.WithError(releaseErr).WithField("request_id", req.RequestID).Warn("release request key")
			}
		}
		return 0, err
	}

	log := s.log.WithFields(logrus.Fields{
		"order_id": order.ID,
		"item_id":  order.ItemID,
		"quantity": order.Quantity,
		"manager":  order.Manager,
		"customer": order.Customer,
	})
	log.Info("order placed")

	// The order is committed; a notifier failure is reported, not rolled back.
	if err := s.notifier.OrderPlaced(ctx, domain.NewOrderPlaced(*order)); err != nil {
		log.WithError(err).Error("notify order placed")
	}
	return order.ID, nil
}

func (s *LedgerService) RejectOpenOrder(ctx context.Context, caller domain.Address, id uint64) error {
	var order *domain.Order
	err := s.store.Atomic(ctx, func(ctx context.Context, tx port.Tx) (err error) {
		order, err = newOrderBook(tx, s.payee, s.now).reject(ctx, caller, id)
		return err
	})
	if err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{
		"order_id": order.ID,
		"customer": order.Customer,
		"refund":   order.Escrowed,
	}).Info("order rejected")
	return nil
}

func (s *LedgerService) ShipOpenOrder(ctx context.Context, caller domain.Address, id uint64) error {
	var order *domain.Order
	err := s.store.Atomic(ctx, func(ctx context.Context, tx port.Tx) (err error) {
		order, err = newOrderBook(tx, s.payee, s.now).ship(ctx, caller, id)
		return err
	})
	if err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{
		"order_id": order.ID,
		"manager":  order.Manager,
		"customer": order.Customer,
		"quantity": order.Quantity,
		"payment":  order.Escrowed,
	}).Info("order shipped")
	return nil
}

func (s *LedgerService) GetOpenOrders(ctx context.Context, manager domain.Address) ([]uint64, error) {
	var ids []uint64
	err := s.store.View(ctx, func(ctx context.Context, tx port.Tx) (err error) {
		ids, err = tx.OpenOrders(ctx, manager)
		return err
	})
	return ids, err
}

func (s *LedgerService) AllOpenOrders(ctx context.Context) ([]uint64, error) {
	var ids []uint64
	err := s.store.View(ctx, func(ctx context.Context, tx port.Tx) (err error) {
		ids, err = tx.AllOpenOrders(ctx)
		return err
	})
	return ids, err
}

// GetOrder returns an order in any state.
func (s *LedgerService) GetOrder(ctx context.Context, id uint64) (*domain.Order, error) {
	var order *domain.Order
	err := s.store.View(ctx, func(ctx context.Context, tx port.Tx) (err error) {
		order, err = tx.Order(ctx, id)
		if errors.Is(err, port.ErrNotFound) {
			return fmt.Errorf("%w: %d", ErrOrderNotFound, id)
		}
		return err
	})
	return order, err
}

func (s *LedgerService) EscrowHeld(ctx context.Context) (decimal.Decimal, error) {
	var held decimal.Decimal
	err := s.store.View(ctx, func(ctx context.Context, tx port.Tx) (err error) {
		held, err = tx.EscrowHeld(ctx)
		return err
	})
	return held, err
}

// AccountBalance is the wei credited to addr by escrow releases.
func (s *LedgerService) AccountBalance(ctx context.Context, addr domain.Address) (decimal.Decimal, error) {
	var bal decimal.Decimal
	err := s.store.View(ctx, func(ctx context.Context, tx port.Tx) (err error) {
		bal, err = tx.AccountBalance(ctx, addr)
		return err
	})
	return bal, err
}
