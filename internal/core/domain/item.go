package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type ItemID uint64

// WidgetsItemID is the item every deployment prices at initialization.
const WidgetsItemID ItemID = 0

// DefaultWidgetPrice is 800,000,000,000,000 wei (0.0008 ether).
var DefaultWidgetPrice = decimal.New(8, 14)

// Holding is one non-zero balance entry of the stock ledger.
type Holding struct {
	Holder   Address `json:"holder" db:"holder"`
	ItemID   ItemID  `json:"item_id" db:"item_id"`
	Quantity int64   `json:"quantity" db:"quantity"`
}

type Manager struct {
	Address Address   `json:"address" db:"address"`
	AddedAt time.Time `json:"added_at" db:"added_at"`
}
