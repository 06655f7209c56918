package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusOpen     OrderStatus = "open"
	OrderStatusShipped  OrderStatus = "shipped"
	OrderStatusRejected OrderStatus = "rejected"
)

func (s OrderStatus) Terminal() bool {
	return s == OrderStatusShipped || s == OrderStatusRejected
}

type Order struct {
	ID        uint64          `json:"id" db:"id"`
	ItemID    ItemID          `json:"item_id" db:"item_id"`
	Quantity  int64           `json:"quantity" db:"quantity"`
	Manager   Address         `json:"manager" db:"manager"`
	Customer  Address         `json:"customer" db:"customer"`
	Escrowed  decimal.Decimal `json:"escrowed" db:"escrowed"`
	Status    OrderStatus     `json:"status" db:"status"`
	PlacedAt  time.Time       `json:"placed_at" db:"placed_at"`
	SettledAt *time.Time      `json:"settled_at,omitempty" db:"settled_at"`
}

// OrderPlaced carries enough of an order for an observer to rebuild it without polling.
type OrderPlaced struct {
	EventID  uuid.UUID       `json:"event_id"`
	OrderID  uint64          `json:"order_id"`
	ItemID   ItemID          `json:"item_id"`
	Quantity int64           `json:"quantity"`
	Manager  Address         `json:"manager"`
	Customer Address         `json:"customer"`
	Escrowed decimal.Decimal `json:"escrowed"`
	PlacedAt time.Time       `json:"placed_at"`
}

func (e OrderPlaced) Type() string { return "OrderPlaced" }

func NewOrderPlaced(o Order) OrderPlaced {
	return OrderPlaced{
		EventID:  uuid.New(),
		OrderID:  o.ID,
		ItemID:   o.ItemID,
		Quantity: o.Quantity,
		Manager:  o.Manager,
		Customer: o.Customer,
		Escrowed: o.Escrowed,
		PlacedAt: o.PlacedAt,
	}
}
