package storage

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/rl1809/acme-warehouse/internal/core/domain"
	"github.com/rl1809/acme-warehouse/internal/port"
)

var ErrReadOnly = errors.New("write attempted in a read-only unit")

type balanceKey struct {
	holder domain.Address
	item   domain.ItemID
}

type memoryState struct {
	admin       domain.Address
	managers    map[domain.Address]domain.Manager
	prices      map[domain.ItemID]decimal.Decimal
	balances    map[balanceKey]int64
	orders      map[uint64]domain.Order
	open        map[domain.Address][]uint64
	lastOrderID uint64
	escrow      decimal.Decimal
	accounts    map[domain.Address]decimal.Decimal
}

func newMemoryState() *memoryState {
	return &memoryState{
		managers: make(map[domain.Address]domain.Manager),
		prices:   make(map[domain.ItemID]decimal.Decimal),
		balances: make(map[balanceKey]int64),
		orders:   make(map[uint64]domain.Order),
		open:     make(map[domain.Address][]uint64),
		accounts: make(map[domain.Address]decimal.Decimal),
	}
}

func (s *memoryState) clone() *memoryState {
	open := make(map[domain.Address][]uint64, len(s.open))
	for k, ids := range s.open {
		open[k] = slices.Clone(ids)
	}
	return &memoryState{
		admin:       s.admin,
		managers:    maps.Clone(s.managers),
		prices:      maps.Clone(s.prices),
		balances:    maps.Clone(s.balances),
		orders:      maps.Clone(s.orders),
		open:        open,
		lastOrderID: s.lastOrderID,
		escrow:      s.escrow,
		accounts:    maps.Clone(s.accounts),
	}
}

// MemoryAdapter keeps the whole ledger in process. Write units are serialized
// and run against a staged copy that replaces the live state only on success.
type MemoryAdapter struct {
	mu    sync.RWMutex
	state *memoryState
}

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{state: newMemoryState()}
}

type memoryTxKey struct{}

func (m *MemoryAdapter) joined(ctx context.Context) (*memoryTx, bool) {
	tx, ok := ctx.Value(memoryTxKey{}).(*memoryTx)
	if !ok || tx.owner != m {
		return nil, false
	}
	return tx, true
}

func (m *MemoryAdapter) Atomic(ctx context.Context, fn func(ctx context.Context, tx port.Tx) error) error {
	if tx, ok := m.joined(ctx); ok {
		if tx.readOnly {
			return ErrReadOnly
		}
		saved := tx.st.clone()
		if err := fn(ctx, tx); err != nil {
			*tx.st = *saved
			return err
		}
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memoryTx{owner: m, st: m.state.clone()}
	if err := fn(context.WithValue(ctx, memoryTxKey{}, tx), tx); err != nil {
		return err
	}
	m.state = tx.st
	return nil
}

func (m *MemoryAdapter) View(ctx context.Context, fn func(ctx context.Context, tx port.Tx) error) error {
	if tx, ok := m.joined(ctx); ok {
		return fn(ctx, tx)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	tx := &memoryTx{owner: m, st: m.state, readOnly: true}
	return fn(context.WithValue(ctx, memoryTxKey{}, tx), tx)
}

type memoryTx struct {
	owner    *MemoryAdapter
	st       *memoryState
	readOnly bool
}

func (t *memoryTx) writable() error {
	if t.readOnly {
		return ErrReadOnly
	}
	return nil
}

func (t *memoryTx) Administrator(context.Context) (domain.Address, error) {
	return t.st.admin, nil
}

func (t *memoryTx) SetAdministrator(_ context.Context, admin domain.Address) error {
	if err := t.writable(); err != nil {
		return err
	}
	t.st.admin = admin
	return nil
}

func (t *memoryTx) IsManager(_ context.Context, addr domain.Address) (bool, error) {
	_, ok := t.st.managers[addr]
	return ok, nil
}

func (t *memoryTx) Manager(_ context.Context, addr domain.Address) (*domain.Manager, error) {
	m, ok := t.st.managers[addr]
	if !ok {
		return nil, port.ErrNotFound
	}
	return &m, nil
}

func (t *memoryTx) AddManager(_ context.Context, m domain.Manager) error {
	if err := t.writable(); err != nil {
		return err
	}
	t.st.managers[m.Address] = m
	return nil
}

func (t *memoryTx) RemoveManager(_ context.Context, addr domain.Address) error {
	if err := t.writable(); err != nil {
		return err
	}
	delete(t.st.managers, addr)
	return nil
}

func (t *memoryTx) Managers(context.Context) ([]domain.Manager, error) {
	out := make([]domain.Manager, 0, len(t.st.managers))
	for _, m := range t.st.managers {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out, nil
}

func (t *memoryTx) Price(_ context.Context, item domain.ItemID) (decimal.Decimal, error) {
	return t.st.prices[item], nil
}

func (t *memoryTx) SetPrice(_ context.Context, item domain.ItemID, amount decimal.Decimal) error {
	if err := t.writable(); err != nil {
		return err
	}
	t.st.prices[item] = amount
	return nil
}

func (t *memoryTx) Balance(_ context.Context, holder domain.Address, item domain.ItemID) (int64, error) {
	return t.st.balances[balanceKey{holder, item}], nil
}

func (t *memoryTx) SetBalance(_ context.Context, holder domain.Address, item domain.ItemID, quantity int64) error {
	if err := t.writable(); err != nil {
		return err
	}
	key := balanceKey{holder, item}
	if quantity == 0 {
		delete(t.st.balances, key)
		return nil
	}
	t.st.balances[key] = quantity
	return nil
}

func (t *memoryTx) Holdings(_ context.Context, item domain.ItemID) ([]domain.Holding, error) {
	var out []domain.Holding
	for k, qty := range t.st.balances {
		if k.item == item && qty > 0 {
			out = append(out, domain.Holding{Holder: k.holder, ItemID: item, Quantity: qty})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Holder < out[j].Holder })
	return out, nil
}

func (t *memoryTx) NextOrderID(context.Context) (uint64, error) {
	if err := t.writable(); err != nil {
		return 0, err
	}
	t.st.lastOrderID++
	return t.st.lastOrderID, nil
}

func (t *memoryTx) InsertOrder(_ context.Context, order domain.Order) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, exists := t.st.orders[order.ID]; exists {
		return errors.New("order already exists")
	}
	t.st.orders[order.ID] = order
	if order.Status == domain.OrderStatusOpen {
		t.st.open[order.Manager] = append(t.st.open[order.Manager], order.ID)
	}
	return nil
}

func (t *memoryTx) Order(_ context.Context, id uint64) (*domain.Order, error) {
	o, ok := t.st.orders[id]
	if !ok {
		return nil, port.ErrNotFound
	}
	return &o, nil
}

func (t *memoryTx) UpdateOrder(_ context.Context, order domain.Order) error {
	if err := t.writable(); err != nil {
		return err
	}
	prev, ok := t.st.orders[order.ID]
	if !ok {
		return port.ErrNotFound
	}
	t.st.orders[order.ID] = order

	if prev.Status == domain.OrderStatusOpen && order.Status != domain.OrderStatusOpen {
		ids := t.st.open[prev.Manager]
		if i := slices.Index(ids, order.ID); i >= 0 {
			ids = slices.Delete(ids, i, i+1)
		}
		if len(ids) == 0 {
			delete(t.st.open, prev.Manager)
		} else {
			t.st.open[prev.Manager] = ids
		}
	}
	return nil
}

func (t *memoryTx) OpenOrders(_ context.Context, manager domain.Address) ([]uint64, error) {
	return slices.Clone(t.st.open[manager]), nil
}

func (t *memoryTx) AllOpenOrders(context.Context) ([]uint64, error) {
	var out []uint64
	for _, ids := range t.st.open {
		out = append(out, ids...)
	}
	slices.Sort(out)
	return out, nil
}

func (t *memoryTx) EscrowHeld(context.Context) (decimal.Decimal, error) {
	return t.st.escrow, nil
}

func (t *memoryTx) SetEscrowHeld(_ context.Context, amount decimal.Decimal) error {
	if err := t.writable(); err != nil {
		return err
	}
	t.st.escrow = amount
	return nil
}

func (t *memoryTx) AccountBalance(_ context.Context, addr domain.Address) (decimal.Decimal, error) {
	return t.st.accounts[addr], nil
}

func (t *memoryTx) SetAccountBalance(_ context.Context, addr domain.Address, amount decimal.Decimal) error {
	if err := t.writable(); err != nil {
		return err
	}
	t.st.accounts[addr] = amount
	return nil
}
