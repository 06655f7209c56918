package handler

import (
	"github.com/shopspring/decimal"

	"github.com/rl1809/acme-warehouse/internal/core/domain"
)

// Request and response bodies shared by the HTTP API and the gRPC JSON codec.

type Empty struct{}

type AddressRequest struct {
	Address domain.Address `json:"address"`
}

type ItemRequest struct {
	ItemID domain.ItemID `json:"item_id"`
}

type SetPriceRequest struct {
	ItemID domain.ItemID   `json:"item_id"`
	Amount decimal.Decimal `json:"amount"`
}

type BalanceRequest struct {
	Holder domain.Address `json:"holder"`
	ItemID domain.ItemID  `json:"item_id"`
}

type SetBalanceRequest struct {
	Holder   domain.Address `json:"holder"`
	ItemID   domain.ItemID  `json:"item_id"`
	Quantity int64          `json:"quantity"`
}

type PlaceOrderRequest struct {
	ItemID    domain.ItemID   `json:"item_id"`
	Quantity  int64           `json:"quantity"`
	Manager   domain.Address  `json:"manager"`
	Paid      decimal.Decimal `json:"paid"`
	RequestID string          `json:"request_id,omitempty"`
}

type OrderRequest struct {
	ID uint64 `json:"id"`
}

type AddressResponse struct {
	Address domain.Address `json:"address"`
}

type AddressesResponse struct {
	Addresses []domain.Address `json:"addresses"`
}

// AmountResponse carries a wei amount and its ether rendering.
type AmountResponse struct {
	Wei   decimal.Decimal `json:"wei"`
	Ether string          `json:"ether"`
}

func newAmountResponse(wei decimal.Decimal) *AmountResponse {
	return &AmountResponse{Wei: wei, Ether: domain.FormatEther(wei)}
}

type QuantityResponse struct {
	Holder   domain.Address `json:"holder"`
	ItemID   domain.ItemID  `json:"item_id"`
	Quantity int64          `json:"quantity"`
}

type HoldingsResponse struct {
	Holdings []domain.Holding `json:"holdings"`
}

type OrderIDResponse struct {
	ID uint64 `json:"id"`
}

type OrderIDsResponse struct {
	IDs []uint64 `json:"ids"`
}

type OrderResponse struct {
	Order domain.Order `json:"order"`
}

type ManagerResponse struct {
	Manager domain.Manager `json:"manager"`
}

// nonNil keeps empty lists encoded as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
