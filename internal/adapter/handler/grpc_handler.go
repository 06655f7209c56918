package handler

import (
	"context"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/rl1809/acme-warehouse/internal/core/domain"
	"github.com/rl1809/acme-warehouse/internal/core/service"
)

const (
	ServiceName = "acme.warehouse.v1.Ledger"
	CallerKey   = "x-caller-address"
)

// LedgerServer is the server side of the acme.warehouse.v1.Ledger service.
type LedgerServer interface {
	Administrator(context.Context, *Empty) (*AddressResponse, error)
	ListManagers(context.Context, *Empty) (*AddressesResponse, error)
	Manager(context.Context, *AddressRequest) (*ManagerResponse, error)
	AddManager(context.Context, *AddressRequest) (*Empty, error)
	RemoveManager(context.Context, *AddressRequest) (*Empty, error)
	GetPrice(context.Context, *ItemRequest) (*AmountResponse, error)
	SetPrice(context.Context, *SetPriceRequest) (*Empty, error)
	Holdings(context.Context, *ItemRequest) (*HoldingsResponse, error)
	BalanceOf(context.Context, *BalanceRequest) (*QuantityResponse, error)
	SetBalance(context.Context, *SetBalanceRequest) (*Empty, error)
	PlaceOrder(context.Context, *PlaceOrderRequest) (*OrderIDResponse, error)
	GetOrder(context.Context, *OrderRequest) (*OrderResponse, error)
	OpenOrders(context.Context, *AddressRequest) (*OrderIDsResponse, error)
	AllOpenOrders(context.Context, *Empty) (*OrderIDsResponse, error)
	ShipOrder(context.Context, *OrderRequest) (*Empty, error)
	RejectOrder(context.Context, *OrderRequest) (*Empty, error)
	EscrowHeld(context.Context, *Empty) (*AmountResponse, error)
	AccountBalance(context.Context, *AddressRequest) (*AmountResponse, error)
}

type GRPCHandler struct {
	ledger *service.LedgerService
	log    logrus.FieldLogger
}

func NewGRPCHandler(ledger *service.LedgerService, log logrus.FieldLogger) *GRPCHandler {
	return &GRPCHandler{ledger: ledger, log: log}
}

func RegisterLedgerServer(s grpc.ServiceRegistrar, srv LedgerServer) {
	s.RegisterService(&ledgerServiceDesc, srv)
}

func (h *GRPCHandler) Administrator(ctx context.Context, _ *Empty) (*AddressResponse, error) {
	admin, err := h.ledger.Administrator(ctx, callerFromContext(ctx))
	if err != nil {
		return nil, h.toStatus(err)
	}
	return &AddressResponse{Address: admin}, nil
}

func (h *GRPCHandler) ListManagers(ctx context.Context, _ *Empty) (*AddressesResponse, error) {
	managers, err := h.ledger.ListManagers(ctx)
	if err != nil {
		return nil, h.toStatus(err)
	}
	return &AddressesResponse{Addresses: nonNil(managers)}, nil
}

func (h *GRPCHandler) Manager(ctx context.Context, req *AddressRequest) (*ManagerResponse, error) {
	m, err := h.ledger.Manager(ctx, req.Address)
	if err != nil {
		return nil, h.toStatus(err)
	}
	return &ManagerResponse{Manager: *m}, nil
}

func (h *GRPCHandler) AddManager(ctx context.Context, req *AddressRequest) (*Empty, error) {
	if err := h.ledger.AddManager(ctx, callerFromContext(ctx), req.Address); err != nil {
		return nil, h.toStatus(err)
	}
	return &Empty{}, nil
}

func (h *GRPCHandler) RemoveManager(ctx context.Context, req *AddressRequest) (*Empty, error) {
	if err := h.ledger.RemoveManager(ctx, callerFromContext(ctx), req.Address); err != nil {
		return nil, h.toStatus(err)
	}
	return &Empty{}, nil
}

func (h *GRPCHandler) GetPrice(ctx context.Context, req *ItemRequest) (*AmountResponse, error) {
	price, err := h.ledger.GetPrice(ctx, req.ItemID)
	if err != nil {
		return nil, h.toStatus(err)
	}
	return newAmountResponse(price), nil
}

func (h *GRPCHandler) SetPrice(ctx context.Context, req *SetPriceRequest) (*Empty, error) {
	if err := h.ledger.SetPrice(ctx, callerFromContext(ctx), req.ItemID, req.Amount); err != nil {
		return nil, h.toStatus(err)
	}
	return &Empty{}, nil
}

func (h *GRPCHandler) Holdings(ctx context.Context, req *ItemRequest) (*HoldingsResponse, error) {
	holdings, err := h.ledger.Holdings(ctx, req.ItemID)
	if err != nil {
		return nil, h.toStatus(err)
	}
	return &HoldingsResponse{Holdings: nonNil(holdings)}, nil
}

func (h *GRPCHandler) BalanceOf(ctx context.Context, req *BalanceRequest) (*QuantityResponse, error) {
	qty, err := h.ledger.BalanceOf(ctx, req.Holder, req.ItemID)
	if err != nil {
		return nil, h.toStatus(err)
	}
	return &QuantityResponse{Holder: req.Holder, ItemID: req.ItemID, Quantity: qty}, nil
}

func (h *GRPCHandler) SetBalance(ctx context.Context, req *SetBalanceRequest) (*Empty, error) {
	if err := h.ledger.SetBalance(ctx, callerFromContext(ctx), req.Holder, req.ItemID, req.Quantity); err != nil {
		return nil, h.toStatus(err)
	}
	return &Empty{}, nil
}

func (h *GRPCHandler) PlaceOrder(ctx context.Context, req *PlaceOrderRequest) (*OrderIDResponse, error) {
	id, err := h.ledger.PlaceOrder(ctx, service.PlaceOrderRequest{
		Customer:  callerFromContext(ctx),
		ItemID:    req.ItemID,
		Quantity:  req.Quantity,
		Manager:   req.Manager,
		Paid:      req.Paid,
		RequestID: req.RequestID,
	})
	if err != nil {
		return nil, h.toStatus(err)
	}
	return &OrderIDResponse{ID: id}, nil
}

func (h *GRPCHandler) GetOrder(ctx context.Context, req *OrderRequest) (*OrderResponse, error) {
	order, err := h.ledger.GetOrder(ctx, req.ID)
	if err != nil {
		return nil, h.toStatus(err)
	}
	return &OrderResponse{Order: *order}, nil
}

func (h *GRPCHandler) OpenOrders(ctx context.Context, req *AddressRequest) (*OrderIDsResponse, error) {
	ids, err := h.ledger.GetOpenOrders(ctx, req.Address)
	if err != nil {
		return nil, h.toStatus(err)
	}
	return &OrderIDsResponse{IDs: nonNil(ids)}, nil
}

func (h *GRPCHandler) AllOpenOrders(ctx context.Context, _ *Empty) (*OrderIDsResponse, error) {
	ids, err := h.ledger.AllOpenOrders(ctx)
	if err != nil {
		return nil, h.toStatus(err)
	}
	return &OrderIDsResponse{IDs: nonNil(ids)}, nil
}

func (h *GRPCHandler) ShipOrder(ctx context.Context, req *OrderRequest) (*Empty, error) {
	if err := h.ledger.ShipOpenOrder(ctx, callerFromContext(ctx), req.ID); err != nil {
		return nil, h.toStatus(err)
	}
	return &Empty{}, nil
}

func (h *GRPCHandler) RejectOrder(ctx context.Context, req *OrderRequest) (*Empty, error) {
	if err := h.ledger.RejectOpenOrder(ctx, callerFromContext(ctx), req.ID); err != nil {
		return nil, h.toStatus(err)
	}
	return &Empty{}, nil
}

func (h *GRPCHandler) EscrowHeld(ctx context.Context, _ *Empty) (*AmountResponse, error) {
	held, err := h.ledger.EscrowHeld(ctx)
	if err != nil {
		return nil, h.toStatus(err)
	}
	return newAmountResponse(held), nil
}

func (h *GRPCHandler) AccountBalance(ctx context.Context, req *AddressRequest) (*AmountResponse, error) {
	bal, err := h.ledger.AccountBalance(ctx, req.Address)
	if err != nil {
		return nil, h.toStatus(err)
	}
	return newAmountResponse(bal), nil
}

func (h *GRPCHandler) toStatus(err error) error {
	code := grpcCode(err)
	if code == codes.Internal {
		h.log.WithError(err).Error("rpc failed")
		return status.Error(code, "internal error")
	}
	return status.Error(code, err.Error())
}

func callerFromContext(ctx context.Context) domain.Address {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get(CallerKey)
	if len(values) == 0 {
		return ""
	}
	addr, _ := domain.ParseAddress(values[0])
	return addr
}

// unaryMethod adapts a typed LedgerServer method to a grpc.MethodDesc.
func unaryMethod[Req, Resp any](name string, call func(LedgerServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(LedgerServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + ServiceName + "/" + name,
			}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(LedgerServer), ctx, req.(*Req))
			})
		},
	}
}

var ledgerServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LedgerServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("Administrator", LedgerServer.Administrator),
		unaryMethod("ListManagers", LedgerServer.ListManagers),
		unaryMethod("Manager", LedgerServer.Manager),
		unaryMethod("AddManager", LedgerServer.AddManager),
		unaryMethod("RemoveManager", LedgerServer.RemoveManager),
		unaryMethod("GetPrice", LedgerServer.GetPrice),
		unaryMethod("SetPrice", LedgerServer.SetPrice),
		unaryMethod("Holdings", LedgerServer.Holdings),
		unaryMethod("BalanceOf", LedgerServer.BalanceOf),
		unaryMethod("SetBalance", LedgerServer.SetBalance),
		unaryMethod("PlaceOrder", LedgerServer.PlaceOrder),
		unaryMethod("GetOrder", LedgerServer.GetOrder),
		unaryMethod("OpenOrders", LedgerServer.OpenOrders),
		unaryMethod("AllOpenOrders", LedgerServer.AllOpenOrders),
		unaryMethod("ShipOrder", LedgerServer.ShipOrder),
		unaryMethod("RejectOrder", LedgerServer.RejectOrder),
		unaryMethod("EscrowHeld", LedgerServer.EscrowHeld),
		unaryMethod("AccountBalance", LedgerServer.AccountBalance),
	},
	Streams: []grpc.StreamDesc{},
}
