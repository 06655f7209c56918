package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/rl1809/acme-warehouse/internal/core/domain"
	"github.com/rl1809/acme-warehouse/internal/port"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MySQLAdapter stores the ledger in MySQL. Write units lock the single
// ledger_settings row first, so state-changing operations run one at a time.
// The DSN must set parseTime=true and multiStatements=true.
type MySQLAdapter struct {
	db *sqlx.DB
}

func NewMySQLAdapter(db *sqlx.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

// Migrate applies every pending schema migration.
func (m *MySQLAdapter) Migrate() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return errors.Wrap(err, "open migrations")
	}
	driver, err := migratemysql.WithInstance(m.db.DB, &migratemysql.Config{})
	if err != nil {
		return errors.Wrap(err, "migration driver")
	}
	mg, err := migrate.NewWithInstance("iofs", src, "mysql", driver)
	if err != nil {
		return errors.Wrap(err, "init migrate")
	}
	if err := mg.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, "apply migrations")
	}
	return nil
}

type mysqlTxKey struct{}

func (m *MySQLAdapter) joined(ctx context.Context) (*mysqlTx, bool) {
	t, ok := ctx.Value(mysqlTxKey{}).(*mysqlTx)
	if !ok || t.owner != m {
		return nil, false
	}
	return t, true
}

func (m *MySQLAdapter) Atomic(ctx context.Context, fn func(ctx context.Context, tx port.Tx) error) error {
	if t, ok := m.joined(ctx); ok {
		if t.readOnly {
			return ErrReadOnly
		}
		return t.nested(ctx, fn)
	}

	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	var locked int
	if err := tx.GetContext(ctx, &locked, `SELECT id FROM ledger_settings WHERE id = 1 FOR UPDATE`); err != nil {
		return errors.Wrap(err, "lock ledger")
	}

	t := &mysqlTx{owner: m, tx: tx}
	if err := fn(context.WithValue(ctx, mysqlTxKey{}, t), t); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(), "commit tx")
}

func (m *MySQLAdapter) View(ctx context.Context, fn func(ctx context.Context, tx port.Tx) error) error {
	if t, ok := m.joined(ctx); ok {
		return fn(ctx, t)
	}

	tx, err := m.db.BeginTxx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return errors.Wrap(err, "begin read-only tx")
	}
	defer tx.Rollback()

	t := &mysqlTx{owner: m, tx: tx, readOnly: true}
	if err := fn(context.WithValue(ctx, mysqlTxKey{}, t), t); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(), "commit read-only tx")
}

type mysqlTx struct {
	owner    *MySQLAdapter
	tx       *sqlx.Tx
	readOnly bool
	depth    int
}

// nested runs fn under a savepoint of the enclosing transaction.
func (t *mysqlTx) nested(ctx context.Context, fn func(ctx context.Context, tx port.Tx) error) error {
	t.depth++
	defer func() { t.depth-- }()
	sp := fmt.Sprintf("unit_%d", t.depth)

	if _, err := t.tx.ExecContext(ctx, "SAVEPOINT "+sp); err != nil {
		return errors.Wrap(err, "savepoint")
	}
	if err := fn(ctx, t); err != nil {
		if _, rbErr := t.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+sp); rbErr != nil {
			return errors.Wrapf(rbErr, "rollback to savepoint after: %v", err)
		}
		return err
	}
	_, err := t.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+sp)
	return errors.Wrap(err, "release savepoint")
}

func (t *mysqlTx) Administrator(ctx context.Context) (domain.Address, error) {
	var admin domain.Address
	err := t.tx.GetContext(ctx, &admin, `SELECT administrator FROM ledger_settings WHERE id = 1`)
	return admin, errors.Wrap(err, "query administrator")
}

func (t *mysqlTx) SetAdministrator(ctx context.Context, admin domain.Address) error {
	_, err := t.tx.ExecContext(ctx, `UPDATE ledger_settings SET administrator = ? WHERE id = 1`, admin)
	return errors.Wrap(err, "update administrator")
}

func (t *mysqlTx) IsManager(ctx context.Context, addr domain.Address) (bool, error) {
	var n int
	err := t.tx.GetContext(ctx, &n, `SELECT COUNT(*) FROM managers WHERE address = ?`, addr)
	return n > 0, errors.Wrap(err, "query manager")
}

func (t *mysqlTx) Manager(ctx context.Context, addr domain.Address) (*domain.Manager, error) {
	var m domain.Manager
	err := t.tx.GetContext(ctx, &m, `SELECT address, added_at FROM managers WHERE address = ?`, addr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "query manager")
	}
	return &m, nil
}

func (t *mysqlTx) AddManager(ctx context.Context, m domain.Manager) error {
	_, err := t.tx.NamedExecContext(ctx, `INSERT INTO managers (address, added_at) VALUES (:address, :added_at)`, m)
	return errors.Wrap(err, "insert manager")
}

func (t *mysqlTx) RemoveManager(ctx context.Context, addr domain.Address) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM managers WHERE address = ?`, addr)
	return errors.Wrap(err, "delete manager")
}

func (t *mysqlTx) Managers(ctx context.Context) ([]domain.Manager, error) {
	var out []domain.Manager
	err := t.tx.SelectContext(ctx, &out, `SELECT address, added_at FROM managers ORDER BY address`)
	return out, errors.Wrap(err, "query managers")
}

func (t *mysqlTx) Price(ctx context.Context, item domain.ItemID) (decimal.Decimal, error) {
	var price decimal.Decimal
	err := t.tx.GetContext(ctx, &price, `SELECT price FROM item_prices WHERE item_id = ?`, item)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, nil
	}
	return price, errors.Wrap(err, "query price")
}

func (t *mysqlTx) SetPrice(ctx context.Context, item domain.ItemID, amount decimal.Decimal) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO item_prices (item_id, price) VALUES (?, ?)
		ON DUPLICATE KEY UPDATE price = VALUES(price)`, item, amount)
	return errors.Wrap(err, "upsert price")
}

func (t *mysqlTx) Balance(ctx context.Context, holder domain.Address, item domain.ItemID) (int64, error) {
	var qty int64
	err := t.tx.GetContext(ctx, &qty, `SELECT quantity FROM balances WHERE holder = ? AND item_id = ?`, holder, item)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return qty, errors.Wrap(err, "query balance")
}

func (t *mysqlTx) SetBalance(ctx context.Context, holder domain.Address, item domain.ItemID, quantity int64) error {
	if quantity == 0 {
		_, err := t.tx.ExecContext(ctx, `DELETE FROM balances WHERE holder = ? AND item_id = ?`, holder, item)
		return errors.Wrap(err, "delete balance")
	}
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO balances (holder, item_id, quantity) VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE quantity = VALUES(quantity)`, holder, item, quantity)
	return errors.Wrap(err, "upsert balance")
}

func (t *mysqlTx) Holdings(ctx context.Context, item domain.ItemID) ([]domain.Holding, error) {
	var out []domain.Holding
	err := t.tx.SelectContext(ctx, &out, `
		SELECT holder, item_id, quantity FROM balances
		WHERE item_id = ? AND quantity > 0 ORDER BY holder`, item)
	return out, errors.Wrap(err, "query holdings")
}

func (t *mysqlTx) NextOrderID(ctx context.Context) (uint64, error) {
	if _, err := t.tx.ExecContext(ctx, `UPDATE ledger_settings SET last_order_id = last_order_id + 1 WHERE id = 1`); err != nil {
		return 0, errors.Wrap(err, "increment order id")
	}
	var id uint64
	err := t.tx.GetContext(ctx, &id, `SELECT last_order_id FROM ledger_settings WHERE id = 1`)
	return id, errors.Wrap(err, "query order id")
}

const orderColumns = `id, item_id, quantity, manager, customer, escrowed, status, placed_at, settled_at`

func (t *mysqlTx) InsertOrder(ctx context.Context, order domain.Order) error {
	_, err := t.tx.NamedExecContext(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES (:id, :item_id, :quantity, :manager, :customer, :escrowed, :status, :placed_at, :settled_at)`, order)
	return errors.Wrap(err, "insert order")
}

func (t *mysqlTx) Order(ctx context.Context, id uint64) (*domain.Order, error) {
	var o domain.Order
	err := t.tx.GetContext(ctx, &o, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "query order")
	}
	return &o, nil
}

func (t *mysqlTx) UpdateOrder(ctx context.Context, order domain.Order) error {
	result, err := t.tx.ExecContext(ctx, `UPDATE orders SET status = ?, settled_at = ? WHERE id = ?`,
		order.Status, order.SettledAt, order.ID)
	if err != nil {
		return errors.Wrap(err, "update order")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "update order rows affected")
	}
	if rows == 0 {
		return port.ErrNotFound
	}
	return nil
}

func (t *mysqlTx) OpenOrders(ctx context.Context, manager domain.Address) ([]uint64, error) {
	var ids []uint64
	err := t.tx.SelectContext(ctx, &ids, `
		SELECT id FROM orders WHERE manager = ? AND status = ? ORDER BY id`, manager, domain.OrderStatusOpen)
	return ids, errors.Wrap(err, "query open orders")
}

func (t *mysqlTx) AllOpenOrders(ctx context.Context) ([]uint64, error) {
	var ids []uint64
	err := t.tx.SelectContext(ctx, &ids, `SELECT id FROM orders WHERE status = ? ORDER BY id`, domain.OrderStatusOpen)
	return ids, errors.Wrap(err, "query open orders")
}

func (t *mysqlTx) EscrowHeld(ctx context.Context) (decimal.Decimal, error) {
	var held decimal.Decimal
	err := t.tx.GetContext(ctx, &held, `SELECT escrow_held FROM ledger_settings WHERE id = 1`)
	return held, errors.Wrap(err, "query escrow")
}

func (t *mysqlTx) SetEscrowHeld(ctx context.Context, amount decimal.Decimal) error {
	_, err := t.tx.ExecContext(ctx, `UPDATE ledger_settings SET escrow_held = ? WHERE id = 1`, amount)
	return errors.Wrap(err, "update escrow")
}

func (t *mysqlTx) AccountBalance(ctx context.Context, addr domain.Address) (decimal.Decimal, error) {
	var bal decimal.Decimal
	err := t.tx.GetContext(ctx, &bal, `SELECT balance FROM accounts WHERE address = ?`, addr)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, nil
	}
	return bal, errors.Wrap(err, "query account")
}

func (t *mysqlTx) SetAccountBalance(ctx context.Context, addr domain.Address, amount decimal.Decimal) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO accounts (address, balance) VALUES (?, ?)
		ON DUPLICATE KEY UPDATE balance = VALUES(balance)`, addr, amount)
	return errors.Wrap(err, "upsert account")
}
