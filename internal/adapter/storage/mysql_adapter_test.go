package storage

import (
	"context"
	"os"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/rl1809/acme-warehouse/internal/core/domain"
	"github.com/rl1809/acme-warehouse/internal/port"
)

func getMySQLAdapter(t *testing.T) *MySQLAdapter {
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		dsn = "root:root@tcp(localhost:3306)/acme_test?parseTime=true&multiStatements=true"
	}

	db, err := sqlx.Open("mysql", dsn)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	adapter := NewMySQLAdapter(db)
	if err := adapter.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	for _, table := range []string{"accounts", "orders", "balances", "item_prices", "managers"} {
		db.MustExec("DELETE FROM " + table)
	}
	db.MustExec(`UPDATE ledger_settings SET administrator = '', escrow_held = 0, last_order_id = 0 WHERE id = 1`)
	return adapter
}

func TestMySQLAtomic_RoundTrip(t *testing.T) {
	adapter := getMySQLAdapter(t)
	ctx := context.Background()

	err := adapter.Atomic(ctx, func(ctx context.Context, tx port.Tx) error {
		if err := tx.SetAdministrator(ctx, "admin"); err != nil {
			return err
		}
		if err := tx.AddManager(ctx, domain.Manager{Address: "m1", AddedAt: time.Now().UTC()}); err != nil {
			return err
		}
		if err := tx.SetPrice(ctx, 0, domain.DefaultWidgetPrice); err != nil {
			return err
		}
		return tx.SetBalance(ctx, "m1", 0, 100)
	})
	if err != nil {
		t.Fatalf("Atomic failed: %v", err)
	}

	err = adapter.View(ctx, func(ctx context.Context, tx port.Tx) error {
		admin, err := tx.Administrator(ctx)
		if err != nil {
			return err
		}
		if admin != "admin" {
			t.Errorf("expected admin, got %s", admin)
		}
		price, err := tx.Price(ctx, 0)
		if err != nil {
			return err
		}
		if !price.Equal(domain.DefaultWidgetPrice) {
			t.Errorf("expected price %s, got %s", domain.DefaultWidgetPrice, price)
		}
		qty, err := tx.Balance(ctx, "m1", 0)
		if err != nil {
			return err
		}
		if qty != 100 {
			t.Errorf("expected balance 100, got %d", qty)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
}

func TestMySQLAtomic_RollbackOnError(t *testing.T) {
	adapter := getMySQLAdapter(t)
	ctx := context.Background()

	_ = adapter.Atomic(ctx, func(ctx context.Context, tx port.Tx) error {
		if err := tx.SetBalance(ctx, "m1", 0, 50); err != nil {
			return err
		}
		return errBoom
	})

	_ = adapter.View(ctx, func(ctx context.Context, tx port.Tx) error {
		qty, _ := tx.Balance(ctx, "m1", 0)
		if qty != 0 {
			t.Errorf("expected rolled back balance 0, got %d", qty)
		}
		return nil
	})
}

func TestMySQLAtomic_NestedSavepoint(t *testing.T) {
	adapter := getMySQLAdapter(t)
	ctx := context.Background()

	err := adapter.Atomic(ctx, func(ctx context.Context, tx port.Tx) error {
		if err := tx.SetBalance(ctx, "m1", 0, 5); err != nil {
			return err
		}
		inner := adapter.Atomic(ctx, func(ctx context.Context, tx port.Tx) error {
			if err := tx.SetBalance(ctx, "m1", 0, 99); err != nil {
				return err
			}
			return errBoom
		})
		if inner != errBoom {
			t.Errorf("expected errBoom from nested unit, got %v", inner)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Atomic failed: %v", err)
	}

	_ = adapter.View(ctx, func(ctx context.Context, tx port.Tx) error {
		qty, _ := tx.Balance(ctx, "m1", 0)
		if qty != 5 {
			t.Errorf("expected balance 5, got %d", qty)
		}
		return nil
	})
}

func TestMySQLOrders_Lifecycle(t *testing.T) {
	adapter := getMySQLAdapter(t)
	ctx := context.Background()

	err := adapter.Atomic(ctx, func(ctx context.Context, tx port.Tx) error {
		id, err := tx.NextOrderID(ctx)
		if err != nil {
			return err
		}
		if id != 1 {
			t.Errorf("expected first order id 1, got %d", id)
		}
		return tx.InsertOrder(ctx, domain.Order{
			ID:       id,
			ItemID:   0,
			Quantity: 3,
			Manager:  "m1",
			Customer: "c1",
			Escrowed: decimal.NewFromInt(2400),
			Status:   domain.OrderStatusOpen,
			PlacedAt: time.Now().UTC(),
		})
	})
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	err = adapter.Atomic(ctx, func(ctx context.Context, tx port.Tx) error {
		ids, err := tx.OpenOrders(ctx, "m1")
		if err != nil {
			return err
		}
		if len(ids) != 1 || ids[0] != 1 {
			t.Errorf("expected open orders [1], got %v", ids)
		}
		o, err := tx.Order(ctx, 1)
		if err != nil {
			return err
		}
		if !o.Escrowed.Equal(decimal.NewFromInt(2400)) || o.Customer != "c1" {
			t.Errorf("unexpected order %+v", o)
		}
		now := time.Now().UTC()
		o.Status = domain.OrderStatusShipped
		o.SettledAt = &now
		return tx.UpdateOrder(ctx, *o)
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}

	_ = adapter.View(ctx, func(ctx context.Context, tx port.Tx) error {
		ids, _ := tx.AllOpenOrders(ctx)
		if len(ids) != 0 {
			t.Errorf("expected no open orders, got %v", ids)
		}
		if _, err := tx.Order(ctx, 7); err != port.ErrNotFound {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		return nil
	})
}

func TestMySQLUpdateOrder_Missing(t *testing.T) {
	adapter := getMySQLAdapter(t)
	ctx := context.Background()

	err := adapter.Atomic(ctx, func(ctx context.Context, tx port.Tx) error {
		return tx.UpdateOrder(ctx, domain.Order{ID: 99, Status: domain.OrderStatusRejected})
	})
	if err != port.ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMySQLAmounts_MaxAmountRoundTrip(t *testing.T) {
	adapter := getMySQLAdapter(t)
	ctx := context.Background()

	err := adapter.Atomic(ctx, func(ctx context.Context, tx port.Tx) error {
		if err := tx.SetEscrowHeld(ctx, domain.MaxAmount); err != nil {
			return err
		}
		return tx.SetAccountBalance(ctx, "m1", domain.MaxAmount)
	})
	if err != nil {
		t.Fatalf("write failed: %v", err)
	}

	_ = adapter.View(ctx, func(ctx context.Context, tx port.Tx) error {
		held, err := tx.EscrowHeld(ctx)
		if err != nil || !held.Equal(domain.MaxAmount) {
			t.Errorf("expected escrow %s, got %s (%v)", domain.MaxAmount, held, err)
		}
		bal, err := tx.AccountBalance(ctx, "m1")
		if err != nil || !bal.Equal(domain.MaxAmount) {
			t.Errorf("expected account %s, got %s (%v)", domain.MaxAmount, bal, err)
		}
		return nil
	})
}
