package main

import (
	"bytes"
	"context"
	"net"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"

	"github.com/rl1809/acme-warehouse/internal/adapter/handler"
	"github.com/rl1809/acme-warehouse/internal/adapter/notifier"
	"github.com/rl1809/acme-warehouse/internal/adapter/storage"
	"github.com/rl1809/acme-warehouse/internal/core/service"
)

func startLedger(t *testing.T) string {
	t.Helper()
	log, _ := test.NewNullLogger()
	ledger := service.NewLedgerService(storage.NewMemoryAdapter(), notifier.NewRecorder(), service.WithLogger(log))
	_, err := ledger.Initialize(context.Background(), "0xadmin")
	require.NoError(t, err)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := grpc.NewServer()
	handler.RegisterLedgerServer(srv, handler.NewGRPCHandler(ledger, log))
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	return lis.Addr().String()
}

func run(t *testing.T, addr string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out
	err := app.Run(append([]string{"acmectl", "--addr", addr}, args...))
	return out.String(), err
}

func TestAcmectl_OrderFlow(t *testing.T) {
	addr := startLedger(t)

	_, err := run(t, addr, "--as", "0xadmin", "add-manager", "0xmanager")
	require.NoError(t, err)
	_, err = run(t, addr, "--as", "0xmanager", "set-stock", "0xmanager", "0", "100")
	require.NoError(t, err)

	out, err := run(t, addr, "managers")
	require.NoError(t, err)
	assert.Contains(t, out, "0xmanager")

	out, err = run(t, addr, "--as", "0xcustomer", "place-order", "--manager", "0xmanager", "--quantity", "10")
	require.NoError(t, err)
	assert.Contains(t, out, "0.008 ether")

	out, err = run(t, addr, "open-orders", "0xmanager")
	require.NoError(t, err)
	assert.Contains(t, out, "0xcustomer")

	out, err = run(t, addr, "escrow")
	require.NoError(t, err)
	assert.Contains(t, out, "8000000000000000 wei")

	_, err = run(t, addr, "--as", "0xmanager", "ship-order", "1")
	require.NoError(t, err)

	out, err = run(t, addr, "order", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "shipped")

	out, err = run(t, addr, "balance", "0xcustomer")
	require.NoError(t, err)
	assert.Contains(t, out, "10")

	out, err = run(t, addr, "account", "0xmanager")
	require.NoError(t, err)
	assert.Contains(t, out, "0.008 ether")

	out, err = run(t, addr, "stock", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "90")
}

func TestAcmectl_Prices(t *testing.T) {
	addr := startLedger(t)

	_, err := run(t, addr, "--as", "0xadmin", "set-price", "4", "1500")
	require.NoError(t, err)

	out, err := run(t, addr, "prices", "0", "4")
	require.NoError(t, err)
	assert.Contains(t, out, decimal.New(8, 14).String())
	assert.Contains(t, out, "1500")
	assert.Contains(t, out, "0.0008")
}

func TestAcmectl_Errors(t *testing.T) {
	addr := startLedger(t)

	_, err := run(t, addr, "--as", "0xstranger", "add-manager", "0xmanager")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PermissionDenied")

	_, err = run(t, addr, "--as", "0xmanager", "ship-order", "9")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "order does not exist or is not open")

	_, err = run(t, addr, "order", "abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "usage: order <id>")

	_, err = run(t, addr, "--as", "0xadmin", "set-price", "0", "-5")
	assert.Error(t, err)
}
