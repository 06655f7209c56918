package handler

import (
	"context"

	"github.com/shopspring/decimal"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/rl1809/acme-warehouse/internal/core/domain"
)

// LedgerClient calls the ledger service on behalf of one caller address.
type LedgerClient struct {
	conn   grpc.ClientConnInterface
	caller domain.Address
}

func NewLedgerClient(conn grpc.ClientConnInterface, caller domain.Address) *LedgerClient {
	return &LedgerClient{conn: conn, caller: caller}
}

// As returns a client acting as another caller over the same connection.
func (c *LedgerClient) As(caller domain.Address) *LedgerClient {
	return &LedgerClient{conn: c.conn, caller: caller}
}

func (c *LedgerClient) invoke(ctx context.Context, method string, in, out any) error {
	if !c.caller.IsZero() {
		ctx = metadata.AppendToOutgoingContext(ctx, CallerKey, c.caller.String())
	}
	return c.conn.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, grpc.CallContentSubtype(CodecName))
}

func (c *LedgerClient) Administrator(ctx context.Context) (domain.Address, error) {
	var out AddressResponse
	if err := c.invoke(ctx, "Administrator", &Empty{}, &out); err != nil {
		return "", err
	}
	return out.Address, nil
}

func (c *LedgerClient) ListManagers(ctx context.Context) ([]domain.Address, error) {
	var out AddressesResponse
	if err := c.invoke(ctx, "ListManagers", &Empty{}, &out); err != nil {
		return nil, err
	}
	return out.Addresses, nil
}

func (c *LedgerClient) Manager(ctx context.Context, addr domain.Address) (domain.Manager, error) {
	var out ManagerResponse
	err := c.invoke(ctx, "Manager", &AddressRequest{Address: addr}, &out)
	return out.Manager, err
}

func (c *LedgerClient) AddManager(ctx context.Context, addr domain.Address) error {
	return c.invoke(ctx, "AddManager", &AddressRequest{Address: addr}, &Empty{})
}

func (c *LedgerClient) RemoveManager(ctx context.Context, addr domain.Address) error {
	return c.invoke(ctx, "RemoveManager", &AddressRequest{Address: addr}, &Empty{})
}

func (c *LedgerClient) GetPrice(ctx context.Context, item domain.ItemID) (decimal.Decimal, error) {
	var out AmountResponse
	err := c.invoke(ctx, "GetPrice", &ItemRequest{ItemID: item}, &out)
	return out.Wei, err
}

func (c *LedgerClient) SetPrice(ctx context.Context, item domain.ItemID, amount decimal.Decimal) error {
	return c.invoke(ctx, "SetPrice", &SetPriceRequest{ItemID: item, Amount: amount}, &Empty{})
}

func (c *LedgerClient) Holdings(ctx context.Context, item domain.ItemID) ([]domain.Holding, error) {
	var out HoldingsResponse
	err := c.invoke(ctx, "Holdings", &ItemRequest{ItemID: item}, &out)
	return out.Holdings, err
}

func (c *LedgerClient) BalanceOf(ctx context.Context, holder domain.Address, item domain.ItemID) (int64, error) {
	var out QuantityResponse
	err := c.invoke(ctx, "BalanceOf", &BalanceRequest{Holder: holder, ItemID: item}, &out)
	return out.Quantity, err
}

func (c *LedgerClient) SetBalance(ctx context.Context, holder domain.Address, item domain.ItemID, qty int64) error {
	req := &SetBalanceRequest{Holder: holder, ItemID: item, Quantity: qty}
	return c.invoke(ctx, "SetBalance", req, &Empty{})
}

func (c *LedgerClient) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (uint64, error) {
	var out OrderIDResponse
	err := c.invoke(ctx, "PlaceOrder", &req, &out)
	return out.ID, err
}

func (c *LedgerClient) GetOrder(ctx context.Context, id uint64) (domain.Order, error) {
	var out OrderResponse
	err := c.invoke(ctx, "GetOrder", &OrderRequest{ID: id}, &out)
	return out.Order, err
}

func (c *LedgerClient) OpenOrders(ctx context.Context, manager domain.Address) ([]uint64, error) {
	var out OrderIDsResponse
	err := c.invoke(ctx, "OpenOrders", &AddressRequest{Address: manager}, &out)
	return out.IDs, err
}

func (c *LedgerClient) AllOpenOrders(ctx context.Context) ([]uint64, error) {
	var out OrderIDsResponse
	err := c.invoke(ctx, "AllOpenOrders", &Empty{}, &out)
	return out.IDs, err
}

func (c *LedgerClient) ShipOrder(ctx context.Context, id uint64) error {
	return c.invoke(ctx, "ShipOrder", &OrderRequest{ID: id}, &Empty{})
}

func (c *LedgerClient) RejectOrder(ctx context.Context, id uint64) error {
	return c.invoke(ctx, "RejectOrder", &OrderRequest{ID: id}, &Empty{})
}

func (c *LedgerClient) EscrowHeld(ctx context.Context) (decimal.Decimal, error) {
	var out AmountResponse
	err := c.invoke(ctx, "EscrowHeld", &Empty{}, &out)
	return out.Wei, err
}

func (c *LedgerClient) AccountBalance(ctx context.Context, addr domain.Address) (decimal.Decimal, error) {
	var out AmountResponse
	err := c.invoke(ctx, "AccountBalance", &AddressRequest{Address: addr}, &out)
	return out.Wei, err
}
