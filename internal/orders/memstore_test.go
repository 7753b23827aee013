package orders

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"storefront/internal/apperr"
	"storefront/internal/models"
)

// memStore is a Store whose writes are serialised by one lock, which is how
// the Mongo and Postgres transactions behave for readers.
type memStore struct {
	mu     sync.RWMutex
	orders map[string]models.Order
	items  map[string][]models.OrderItem
	seq    int

	failWrites error
	// beforeStatusWrite runs inside UpdateOrderStatus before the
	// compare-and-set, simulating a concurrent operator.
	beforeStatusWrite func(m *memStore)
}

func newMemStore() *memStore {
	return &memStore{orders: map[string]models.Order{}, items: map[string][]models.OrderItem{}}
}

func (m *memStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func (m *memStore) CreateOrder(_ context.Context, order models.Order, items []models.OrderItem) (models.Order, []models.OrderItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrites != nil {
		return models.Order{}, nil, m.failWrites
	}
	order.ID = m.nextID("order")
	saved := make([]models.OrderItem, len(items))
	for i, item := range items {
		item.ID = m.nextID("item")
		item.OrderID = order.ID
		saved[i] = item
	}
	m.orders[order.ID] = order
	m.items[order.ID] = saved
	return order, saved, nil
}

func (m *memStore) GetOrder(_ context.Context, id string) (models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[id]
	if !ok {
		return models.Order{}, apperr.NotFound("order", id)
	}
	return o, nil
}

func (m *memStore) ListOrders(_ context.Context, q Query) ([]models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Order
	for _, o := range m.orders {
		if len(q.Statuses) > 0 && !containsStatus(q.Statuses, o.Status) {
			continue
		}
		if !q.Since.IsZero() && o.CreatedAt.Before(q.Since) {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func containsStatus(list []models.OrderStatus, s models.OrderStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (m *memStore) OrderItems(_ context.Context, orderID string) ([]models.OrderItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.OrderItem(nil), m.items[orderID]...), nil
}

// UpdateOrderStatus sets only the status fields, like the real stores, so a
// concurrent item edit survives.
func (m *memStore) UpdateOrderStatus(_ context.Context, from models.OrderStatus, next models.Order) (models.Order, bool, error) {
	if m.beforeStatusWrite != nil {
		m.beforeStatusWrite(m)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrites != nil {
		return models.Order{}, false, m.failWrites
	}
	current, ok := m.orders[next.ID]
	if !ok || current.Status != from {
		return models.Order{}, false, nil
	}
	current.Status = next.Status
	current.CancellationReason = next.CancellationReason
	current.AcceptedAt = next.AcceptedAt
	current.UpdatedAt = next.UpdatedAt
	m.orders[next.ID] = current
	return current, true, nil
}

func (m *memStore) ReplaceOrderItems(_ context.Context, orderID string, items []models.OrderItem, total decimal.Decimal, updatedAt time.Time) (models.Order, []models.OrderItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrites != nil {
		return models.Order{}, nil, m.failWrites
	}
	order, ok := m.orders[orderID]
	if !ok {
		return models.Order{}, nil, apperr.NotFound("order", orderID)
	}
	saved := make([]models.OrderItem, len(items))
	for i, item := range items {
		item.ID = m.nextID("item")
		saved[i] = item
	}
	order.Total = total
	order.UpdatedAt = updatedAt
	m.orders[orderID] = order
	m.items[orderID] = saved
	return order, saved, nil
}

func (m *memStore) DeleteOrder(_ context.Context, id string, from models.OrderStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrites != nil {
		return false, m.failWrites
	}
	current, ok := m.orders[id]
	if !ok || current.Status != from {
		return false, nil
	}
	delete(m.orders, id)
	delete(m.items, id)
	return true, nil
}

// snapshot reads an order and its items the way a concurrent reader would.
func (m *memStore) snapshot(id string) (models.Order, []models.OrderItem) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.orders[id], append([]models.OrderItem(nil), m.items[id]...)
}

// put stores an order directly, bypassing the service.
func (m *memStore) put(o models.Order, items ...models.OrderItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[o.ID] = o
	m.items[o.ID] = items
}
