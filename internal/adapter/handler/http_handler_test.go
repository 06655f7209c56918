package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/acme-warehouse/internal/adapter/notifier"
	"github.com/rl1809/acme-warehouse/internal/adapter/storage"
	"github.com/rl1809/acme-warehouse/internal/core/domain"
	"github.com/rl1809/acme-warehouse/internal/core/service"
)

const (
	testAdmin    domain.Address = "0xadmin"
	testManager  domain.Address = "0xmanager"
	testCustomer domain.Address = "0xcustomer"
)

func setupLedger(t *testing.T) *service.LedgerService {
	t.Helper()
	log, _ := test.NewNullLogger()
	ledger := service.NewLedgerService(storage.NewMemoryAdapter(), notifier.NewRecorder(), service.WithLogger(log))
	ctx := context.Background()
	_, err := ledger.Initialize(ctx, testAdmin)
	require.NoError(t, err)
	require.NoError(t, ledger.AddManager(ctx, testAdmin, testManager))
	require.NoError(t, ledger.SetBalance(ctx, testManager, testManager, domain.WidgetsItemID, 100))
	return ledger
}

func setupHTTPTest(t *testing.T) http.Handler {
	t.Helper()
	log, _ := test.NewNullLogger()
	return NewHTTPHandler(setupLedger(t), log).Router()
}

func doRequest(h http.Handler, method, path string, as domain.Address, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if as != "" {
		req.Header.Set(CallerHeader, string(as))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHTTPHandler_HealthCheck(t *testing.T) {
	h := setupHTTPTest(t)

	rec := doRequest(h, http.MethodGet, "/health", "", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}

func TestHTTPHandler_OrderLifecycle(t *testing.T) {
	h := setupHTTPTest(t)

	rec := doRequest(h, http.MethodPost, "/api/orders", testCustomer,
		`{"item_id":0,"quantity":10,"manager":"0xmanager","paid":"8000000000000000"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var placed OrderIDResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &placed))
	assert.Equal(t, uint64(1), placed.ID)

	rec = doRequest(h, http.MethodGet, "/api/managers/0xmanager/open-orders", "", "")
	assert.JSONEq(t, `{"ids":[1]}`, rec.Body.String())

	rec = doRequest(h, http.MethodGet, "/api/escrow", "", "")
	var held AmountResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &held))
	assert.True(t, held.Wei.Equal(decimal.NewFromInt(8000000000000000)))
	assert.Equal(t, "0.008", held.Ether)

	rec = doRequest(h, http.MethodPost, "/api/orders/1/ship", testManager, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doRequest(h, http.MethodGet, "/api/orders/1", "", "")
	var got OrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, domain.OrderStatusShipped, got.Order.Status)
	assert.Equal(t, testCustomer, got.Order.Customer)

	rec = doRequest(h, http.MethodGet, "/api/balances/0xcustomer/0", "", "")
	assert.JSONEq(t, `{"holder":"0xcustomer","item_id":0,"quantity":10}`, rec.Body.String())

	rec = doRequest(h, http.MethodGet, "/api/orders", "", "")
	assert.JSONEq(t, `{"ids":[]}`, rec.Body.String())
}

func TestHTTPHandler_ErrorStatus(t *testing.T) {
	h := setupHTTPTest(t)

	tests := []struct {
		name       string
		method     string
		path       string
		as         domain.Address
		body       string
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "non-admin adds manager",
			method:     http.MethodPost,
			path:       "/api/managers",
			as:         testCustomer,
			body:       `{"address":"0xother"}`,
			wantStatus: http.StatusForbidden,
			wantMsg:    "unauthorized",
		},
		{
			name:       "manager already registered",
			method:     http.MethodPost,
			path:       "/api/managers",
			as:         testAdmin,
			body:       `{"address":"0xmanager"}`,
			wantStatus: http.StatusConflict,
		},
		{
			name:       "unknown manager",
			method:     http.MethodPost,
			path:       "/api/orders",
			as:         testCustomer,
			body:       `{"item_id":0,"quantity":1,"manager":"0xnobody","paid":"800000000000000"}`,
			wantStatus: http.StatusNotFound,
			wantMsg:    "warehouse manager does not exist",
		},
		{
			name:       "underpaid",
			method:     http.MethodPost,
			path:       "/api/orders",
			as:         testCustomer,
			body:       `{"item_id":0,"quantity":2,"manager":"0xmanager","paid":"800000000000000"}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantMsg:    "insufficient wei",
		},
		{
			name:       "settle unknown order",
			method:     http.MethodPost,
			path:       "/api/orders/42/reject",
			as:         testManager,
			wantStatus: http.StatusNotFound,
			wantMsg:    "order does not exist or is not open",
		},
		{
			name:       "negative stock",
			method:     http.MethodPut,
			path:       "/api/balances/0xmanager/0",
			as:         testManager,
			body:       `{"quantity":-1}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "malformed body",
			method:     http.MethodPut,
			path:       "/api/items/0/price",
			as:         testAdmin,
			body:       `{`,
			wantStatus: http.StatusBadRequest,
			wantMsg:    "invalid request body",
		},
		{
			name:       "bad item id",
			method:     http.MethodGet,
			path:       "/api/items/widgets/price",
			wantStatus: http.StatusBadRequest,
			wantMsg:    "invalid item id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(h, tt.method, tt.path, tt.as, tt.body)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var resp ErrorHTTPResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			if tt.wantMsg != "" {
				assert.Contains(t, resp.Message, tt.wantMsg)
			}
		})
	}
}

func TestHTTPHandler_Administration(t *testing.T) {
	h := setupHTTPTest(t)

	rec := doRequest(h, http.MethodGet, "/api/administrator", testAdmin, "")
	assert.JSONEq(t, `{"address":"0xadmin"}`, rec.Body.String())

	rec = doRequest(h, http.MethodGet, "/api/administrator", testManager, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(h, http.MethodPut, "/api/items/3/price", testAdmin, `{"amount":"1000"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = doRequest(h, http.MethodGet, "/api/items/3/price", "", "")
	assert.JSONEq(t, `{"wei":"1000","ether":"0.000000000000001"}`, rec.Body.String())

	rec = doRequest(h, http.MethodPost, "/api/managers", testAdmin, `{"address":"0xsecond"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	rec = doRequest(h, http.MethodGet, "/api/managers", "", "")
	assert.JSONEq(t, `{"addresses":["0xmanager","0xsecond"]}`, rec.Body.String())

	rec = doRequest(h, http.MethodDelete, "/api/managers/0xsecond", testAdmin, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = doRequest(h, http.MethodGet, "/api/managers/0xsecond", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(h, http.MethodGet, "/api/items/0/holdings", "", "")
	assert.JSONEq(t, `{"holdings":[{"holder":"0xmanager","item_id":0,"quantity":100}]}`, rec.Body.String())
}
