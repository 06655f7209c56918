package port

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/rl1809/acme-warehouse/internal/core/domain"
)

// ErrNotFound is returned by a Tx when a keyed row does not exist.
var ErrNotFound = errors.New("not found")

// Store runs units of work atomically. A unit either commits every write or none.
// When ctx already carries a unit of the same store, the new unit is nested in it:
// a failing nested unit is rolled back to where it started without aborting the outer one.
type Store interface {
	// Atomic runs fn inside a read-write unit of work.
	Atomic(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	// View runs fn against a consistent read-only snapshot.
	View(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

type RosterTx interface {
	// Administrator returns the zero Address before initialization.
	Administrator(ctx context.Context) (domain.Address, error)
	SetAdministrator(ctx context.Context, admin domain.Address) error

	IsManager(ctx context.Context, addr domain.Address) (bool, error)
	Manager(ctx context.Context, addr domain.Address) (*domain.Manager, error)
	AddManager(ctx context.Context, m domain.Manager) error
	RemoveManager(ctx context.Context, addr domain.Address) error

	// Managers lists the roster ordered by address.
	Managers(ctx context.Context) ([]domain.Manager, error)
}

type PriceTx interface {
	// Price returns zero for an item never priced.
	Price(ctx context.Context, item domain.ItemID) (decimal.Decimal, error)
	SetPrice(ctx context.Context, item domain.ItemID, amount decimal.Decimal) error
}

type StockTx interface {
	Balance(ctx context.Context, holder domain.Address, item domain.ItemID) (int64, error)
	SetBalance(ctx context.Context, holder domain.Address, item domain.ItemID, quantity int64) error

	// Holdings lists every non-zero balance of item ordered by holder.
	Holdings(ctx context.Context, item domain.ItemID) ([]domain.Holding, error)
}

type OrderTx interface {
	NextOrderID(ctx context.Context) (uint64, error)
	InsertOrder(ctx context.Context, order domain.Order) error
	Order(ctx context.Context, id uint64) (*domain.Order, error)

	// UpdateOrder persists status and settlement time; the open index follows the status.
	UpdateOrder(ctx context.Context, order domain.Order) error

	// OpenOrders lists open order IDs of a manager in placement order.
	OpenOrders(ctx context.Context, manager domain.Address) ([]uint64, error)
	AllOpenOrders(ctx context.Context) ([]uint64, error)
}

type EscrowTx interface {
	EscrowHeld(ctx context.Context) (decimal.Decimal, error)
	SetEscrowHeld(ctx context.Context, amount decimal.Decimal) error

	AccountBalance(ctx context.Context, addr domain.Address) (decimal.Decimal, error)
	SetAccountBalance(ctx context.Context, addr domain.Address, amount decimal.Decimal) error
}

type Tx interface {
	RosterTx
	PriceTx
	StockTx
	OrderTx
	EscrowTx
}
