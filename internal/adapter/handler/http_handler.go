package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/rl1809/acme-warehouse/internal/core/domain"
	"github.com/rl1809/acme-warehouse/internal/core/service"
)

const (
	CallerHeader    = "X-Caller-Address"
	RequestIDHeader = "X-Request-ID"
)

type HTTPHandler struct {
	ledger *service.LedgerService
	log    logrus.FieldLogger
}

type ErrorHTTPResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func NewHTTPHandler(ledger *service.LedgerService, log logrus.FieldLogger) *HTTPHandler {
	return &HTTPHandler{ledger: ledger, log: log}
}

func (h *HTTPHandler) Router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)

	s := r.PathPrefix("/api").Subrouter()
	s.HandleFunc("/administrator", h.Administrator).Methods(http.MethodGet)

	s.HandleFunc("/managers", h.ListManagers).Methods(http.MethodGet)
	s.HandleFunc("/managers", h.AddManager).Methods(http.MethodPost)
	s.HandleFunc("/managers/{address}", h.Manager).Methods(http.MethodGet)
	s.HandleFunc("/managers/{address}", h.RemoveManager).Methods(http.MethodDelete)
	s.HandleFunc("/managers/{address}/open-orders", h.OpenOrders).Methods(http.MethodGet)

	s.HandleFunc("/items/{item}/price", h.GetPrice).Methods(http.MethodGet)
	s.HandleFunc("/items/{item}/price", h.SetPrice).Methods(http.MethodPut)
	s.HandleFunc("/items/{item}/holdings", h.Holdings).Methods(http.MethodGet)

	s.HandleFunc("/balances/{holder}/{item}", h.BalanceOf).Methods(http.MethodGet)
	s.HandleFunc("/balances/{holder}/{item}", h.SetBalance).Methods(http.MethodPut)

	s.HandleFunc("/orders", h.AllOpenOrders).Methods(http.MethodGet)
	s.HandleFunc("/orders", h.PlaceOrder).Methods(http.MethodPost)
	s.HandleFunc("/orders/{id}", h.GetOrder).Methods(http.MethodGet)
	s.HandleFunc("/orders/{id}/ship", h.ShipOrder).Methods(http.MethodPost)
	s.HandleFunc("/orders/{id}/reject", h.RejectOrder).Methods(http.MethodPost)

	s.HandleFunc("/accounts/{address}", h.AccountBalance).Methods(http.MethodGet)
	s.HandleFunc("/escrow", h.EscrowHeld).Methods(http.MethodGet)

	return h.logMiddleware(r)
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) Administrator(w http.ResponseWriter, r *http.Request) {
	admin, err := h.ledger.Administrator(r.Context(), caller(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AddressResponse{Address: admin})
}

func (h *HTTPHandler) ListManagers(w http.ResponseWriter, r *http.Request) {
	managers, err := h.ledger.ListManagers(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AddressesResponse{Addresses: nonNil(managers)})
}

func (h *HTTPHandler) Manager(w http.ResponseWriter, r *http.Request) {
	m, err := h.ledger.Manager(r.Context(), domain.Address(mux.Vars(r)["address"]))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ManagerResponse{Manager: *m})
}

func (h *HTTPHandler) AddManager(w http.ResponseWriter, r *http.Request) {
	var req AddressRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.ledger.AddManager(r.Context(), caller(r), req.Address); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, AddressResponse{Address: req.Address})
}

func (h *HTTPHandler) RemoveManager(w http.ResponseWriter, r *http.Request) {
	addr := domain.Address(mux.Vars(r)["address"])
	if err := h.ledger.RemoveManager(r.Context(), caller(r), addr); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) OpenOrders(w http.ResponseWriter, r *http.Request) {
	ids, err := h.ledger.GetOpenOrders(r.Context(), domain.Address(mux.Vars(r)["address"]))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, OrderIDsResponse{IDs: nonNil(ids)})
}

func (h *HTTPHandler) GetPrice(w http.ResponseWriter, r *http.Request) {
	item, ok := h.itemVar(w, r)
	if !ok {
		return
	}
	price, err := h.ledger.GetPrice(r.Context(), item)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newAmountResponse(price))
}

func (h *HTTPHandler) SetPrice(w http.ResponseWriter, r *http.Request) {
	item, ok := h.itemVar(w, r)
	if !ok {
		return
	}
	var req SetPriceRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.ledger.SetPrice(r.Context(), caller(r), item, req.Amount); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newAmountResponse(req.Amount))
}

func (h *HTTPHandler) Holdings(w http.ResponseWriter, r *http.Request) {
	item, ok := h.itemVar(w, r)
	if !ok {
		return
	}
	holdings, err := h.ledger.Holdings(r.Context(), item)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, HoldingsResponse{Holdings: nonNil(holdings)})
}

func (h *HTTPHandler) BalanceOf(w http.ResponseWriter, r *http.Request) {
	item, ok := h.itemVar(w, r)
	if !ok {
		return
	}
	holder := domain.Address(mux.Vars(r)["holder"])
	qty, err := h.ledger.BalanceOf(r.Context(), holder, item)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, QuantityResponse{Holder: holder, ItemID: item, Quantity: qty})
}

func (h *HTTPHandler) SetBalance(w http.ResponseWriter, r *http.Request) {
	item, ok := h.itemVar(w, r)
	if !ok {
		return
	}
	var req SetBalanceRequest
	if !h.decode(w, r, &req) {
		return
	}
	holder := domain.Address(mux.Vars(r)["holder"])
	if err := h.ledger.SetBalance(r.Context(), caller(r), holder, item, req.Quantity); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, QuantityResponse{Holder: holder, ItemID: item, Quantity: req.Quantity})
}

func (h *HTTPHandler) AllOpenOrders(w http.ResponseWriter, r *http.Request) {
	ids, err := h.ledger.AllOpenOrders(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, OrderIDsResponse{IDs: nonNil(ids)})
}

func (h *HTTPHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req PlaceOrderRequest
	if !h.decode(w, r, &req) {
		return
	}
	id, err := h.ledger.PlaceOrder(r.Context(), service.PlaceOrderRequest{
		Customer:  caller(r),
		ItemID:    req.ItemID,
		Quantity:  req.Quantity,
		Manager:   req.Manager,
		Paid:      req.Paid,
		RequestID: req.RequestID,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, OrderIDResponse{ID: id})
}

func (h *HTTPHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderVar(w, r)
	if !ok {
		return
	}
	order, err := h.ledger.GetOrder(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, OrderResponse{Order: *order})
}

func (h *HTTPHandler) ShipOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderVar(w, r)
	if !ok {
		return
	}
	if err := h.ledger.ShipOpenOrder(r.Context(), caller(r), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, OrderIDResponse{ID: id})
}

func (h *HTTPHandler) RejectOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderVar(w, r)
	if !ok {
		return
	}
	if err := h.ledger.RejectOpenOrder(r.Context(), caller(r), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, OrderIDResponse{ID: id})
}

func (h *HTTPHandler) AccountBalance(w http.ResponseWriter, r *http.Request) {
	bal, err := h.ledger.AccountBalance(r.Context(), domain.Address(mux.Vars(r)["address"]))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newAmountResponse(bal))
}

func (h *HTTPHandler) EscrowHeld(w http.ResponseWriter, r *http.Request) {
	held, err := h.ledger.EscrowHeld(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newAmountResponse(held))
}

func caller(r *http.Request) domain.Address {
	addr, _ := domain.ParseAddress(r.Header.Get(CallerHeader))
	return addr
}

func (h *HTTPHandler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorHTTPResponse{Message: "invalid request body"})
		return false
	}
	return true
}

func (h *HTTPHandler) itemVar(w http.ResponseWriter, r *http.Request) (domain.ItemID, bool) {
	v, err := strconv.ParseUint(mux.Vars(r)["item"], 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorHTTPResponse{Message: "invalid item id"})
		return 0, false
	}
	return domain.ItemID(v), true
}

func (h *HTTPHandler) orderVar(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorHTTPResponse{Message: "invalid order id"})
		return 0, false
	}
	return id, true
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := httpStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		h.log.WithError(err).WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"request_id": w.Header().Get(RequestIDHeader),
		}).Error("request failed")
		message = "internal error"
	}
	writeJSON(w, status, ErrorHTTPResponse{Success: false, Message: message})
}

func (h *HTTPHandler) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, requestID)

		h.log.WithFields(logrus.Fields{
			"method":     r.Method,
			"url":        r.URL.String(),
			"caller":     r.Header.Get(CallerHeader),
			"request_id": requestID,
			"remoteAddr": r.RemoteAddr,
		}).Debug("got a new request")
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
