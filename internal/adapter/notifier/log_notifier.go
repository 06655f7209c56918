package notifier

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/rl1809/acme-warehouse/internal/core/domain"
)

type LogNotifier struct {
	log logrus.FieldLogger
}

func NewLogNotifier(log logrus.FieldLogger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) OrderPlaced(_ context.Context, event domain.OrderPlaced) error {
	n.log.WithFields(logrus.Fields{
		"event":    event.Type(),
		"event_id": event.EventID,
		"order_id": event.OrderID,
		"item_id":  event.ItemID,
		"quantity": event.Quantity,
		"manager":  event.Manager,
		"customer": event.Customer,
	}).Info("warehouse order")
	return nil
}

// LogPayee records escrow payouts in the log. Account balances are kept by the
// ledger itself, so there is nothing further to transfer.
type LogPayee struct {
	log logrus.FieldLogger
}

func NewLogPayee(log logrus.FieldLogger) *LogPayee {
	return &LogPayee{log: log}
}

func (p *LogPayee) Pay(_ context.Context, to domain.Address, amount decimal.Decimal) error {
	p.log.WithFields(logrus.Fields{
		"to":    to,
		"wei":   amount,
		"ether": domain.FormatEther(amount),
	}).Info("escrow released")
	return nil
}
