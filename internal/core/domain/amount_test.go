package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWei(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "0", want: "0"},
		{in: "800000000000000", want: "800000000000000"},
		{in: "99999999999999999999999999999999999999999999999999999999999999999", want: "99999999999999999999999999999999999999999999999999999999999999999"},
		{in: "100000000000000000000000000000000000000000000000000000000000000000", wantErr: true},
		{in: "115792089237316195423570985008687907853269984665640564039457584007913129639935", wantErr: true},
		{in: "-1", wantErr: true},
		{in: "1.5", wantErr: true},
		{in: "wei", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseWei(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestValidAmount_Bounds(t *testing.T) {
	assert.Len(t, MaxAmount.String(), MaxAmountDigits)
	assert.True(t, ValidAmount(MaxAmount))
	assert.False(t, ValidAmount(MaxAmount.Add(decimal.NewFromInt(1))))
	assert.False(t, ValidAmount(decimal.NewFromInt(-1)))
}

func TestFormatEther(t *testing.T) {
	assert.Equal(t, "0.0008", FormatEther(DefaultWidgetPrice))
	assert.Equal(t, "1", FormatEther(decimal.New(1, 18)))
	assert.Equal(t, "0", FormatEther(decimal.Zero))
}

func TestParseAddress(t *testing.T) {
	addr, ok := ParseAddress("  0xabc ")
	assert.True(t, ok)
	assert.Equal(t, Address("0xabc"), addr)

	_, ok = ParseAddress("   ")
	assert.False(t, ok)
}

func TestOrderStatus_Terminal(t *testing.T) {
	assert.False(t, OrderStatusOpen.Terminal())
	assert.True(t, OrderStatusShipped.Terminal())
	assert.True(t, OrderStatusRejected.Terminal())
}

func TestNewOrderPlaced(t *testing.T) {
	o := Order{ID: 4, ItemID: 2, Quantity: 7, Manager: "0xm", Customer: "0xc", Escrowed: decimal.NewFromInt(70)}
	a, b := NewOrderPlaced(o), NewOrderPlaced(o)

	assert.Equal(t, uint64(4), a.OrderID)
	assert.Equal(t, "OrderPlaced", a.Type())
	assert.NotEqual(t, a.EventID, b.EventID)
}
