package notifier

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/acme-warehouse/internal/core/domain"
)

func TestLogNotifier_OrderPlaced(t *testing.T) {
	log, hook := test.NewNullLogger()
	n := NewLogNotifier(log)

	ev := domain.NewOrderPlaced(domain.Order{ID: 3, Quantity: 2, Manager: "0xm", Customer: "0xc"})
	require.NoError(t, n.OrderPlaced(context.Background(), ev))

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "warehouse order", entry.Message)
	assert.Equal(t, uint64(3), entry.Data["order_id"])
	assert.Equal(t, "OrderPlaced", entry.Data["event"])
}

func TestLogPayee_Pay(t *testing.T) {
	log, hook := test.NewNullLogger()
	p := NewLogPayee(log)

	require.NoError(t, p.Pay(context.Background(), "0xm", decimal.New(8, 14)))

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "escrow released", entry.Message)
	assert.Equal(t, "0.0008", entry.Data["ether"])
	assert.Equal(t, domain.Address("0xm"), entry.Data["to"])
}
