package realtime

import (
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"storefront/internal/models"
)

type Kind string

const (
	OrderCreated Kind = "order_created"
	OrderUpdated Kind = "order_updated"
	OrderDeleted Kind = "order_deleted"
)

// Event carries a full order snapshot. Snapshots always replace the local
// copy; fields are never merged.
type Event struct {
	Kind  Kind         `json:"kind"`
	Order models.Order `json:"order"`
}

// Columns is the kanban view of the orders still being worked on.
type Columns struct {
	New            []models.Order `json:"novo"`
	InPreparation  []models.Order `json:"em_preparo"`
	OutForDelivery []models.Order `json:"saiu_entrega"`
}

// Board is the console's in-memory order collection, most recent first. It is
// a read-through cache of the store and is only changed through Reset and
// Apply.
type Board struct {
	mu     sync.RWMutex
	orders []models.Order

	subMu  sync.Mutex
	subs   map[int]chan Event
	nextID int
	alerts []func(models.Order)

	log logrus.FieldLogger
}

func NewBoard(log logrus.FieldLogger) *Board {
	return &Board{subs: make(map[int]chan Event), log: log}
}

// Reset replaces the whole collection, ordering it by creation time.
func (b *Board) Reset(orders []models.Order) {
	cp := make([]models.Order, len(orders))
	copy(cp, orders)
	sort.SliceStable(cp, func(i, j int) bool {
		return cp[i].CreatedAt.After(cp[j].CreatedAt)
	})

	b.mu.Lock()
	b.orders = cp
	b.mu.Unlock()
}

// Apply merges ev into the collection and reports whether anything changed.
//
// A created order is prepended and raises the new-order signal; if the id is
// already known it is replaced in place without a second signal. An update
// replaces the matching order, is ignored for unknown ids and is ignored when
// the snapshot is older than the local copy.
func (b *Board) Apply(ev Event) bool {
	var (
		changed  bool
		newOrder bool
	)

	b.mu.Lock()
	idx := b.indexLocked(ev.Order.ID)
	switch ev.Kind {
	case OrderCreated:
		if idx >= 0 {
			changed = b.replaceLocked(idx, ev.Order)
			break
		}
		b.orders = append([]models.Order{ev.Order}, b.orders...)
		changed, newOrder = true, true
	case OrderUpdated:
		if idx >= 0 {
			changed = b.replaceLocked(idx, ev.Order)
		}
	case OrderDeleted:
		if idx >= 0 {
			b.orders = append(b.orders[:idx], b.orders[idx+1:]...)
			changed = true
		}
	}
	b.mu.Unlock()

	if !changed {
		return false
	}
	b.broadcast(ev)
	if newOrder {
		b.signalNewOrder(ev.Order)
	}
	return true
}

func (b *Board) replaceLocked(idx int, order models.Order) bool {
	current := b.orders[idx]
	// compared at the millisecond precision the stores keep
	if order.UpdatedAt.Truncate(time.Millisecond).Before(current.UpdatedAt.Truncate(time.Millisecond)) {
		return false
	}
	b.orders[idx] = order
	return true
}

func (b *Board) indexLocked(id string) int {
	for i := range b.orders {
		if b.orders[i].ID == id {
			return i
		}
	}
	return -1
}

// Orders returns a copy of the collection.
func (b *Board) Orders() []models.Order {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]models.Order, len(b.orders))
	copy(out, b.orders)
	return out
}

func (b *Board) Get(id string) (models.Order, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if idx := b.indexLocked(id); idx >= 0 {
		return b.orders[idx], true
	}
	return models.Order{}, false
}

func (b *Board) Columns() Columns {
	cols := Columns{
		New:            []models.Order{},
		InPreparation:  []models.Order{},
		OutForDelivery: []models.Order{},
	}
	for _, o := range b.Orders() {
		switch o.Status {
		case models.StatusNew:
			cols.New = append(cols.New, o)
		case models.StatusInPreparation:
			cols.InPreparation = append(cols.InPreparation, o)
		case models.StatusOutForDelivery:
			cols.OutForDelivery = append(cols.OutForDelivery, o)
		}
	}
	return cols
}

// OnNewOrder registers fn to run whenever an unseen order is created.
func (b *Board) OnNewOrder(fn func(models.Order)) {
	b.subMu.Lock()
	b.alerts = append(b.alerts, fn)
	b.subMu.Unlock()
}

// Subscribe returns a channel receiving every applied event and a function
// that cancels the subscription. Events are dropped for a subscriber whose
// buffer is full.
func (b *Board) Subscribe(buffer int) (<-chan Event, func()) {
	ch := make(chan Event, buffer)

	b.subMu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.subMu.Lock()
			delete(b.subs, id)
			b.subMu.Unlock()
			close(ch)
		})
	}
}

func (b *Board) broadcast(ev Event) {
	b.subMu.Lock()
	defer b.subMu.Unlock()
	for id, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			b.log.WithFields(logrus.Fields{"subscriber": id, "order_id": ev.Order.ID}).
				Warn("board subscriber is full, event dropped")
		}
	}
}

func (b *Board) signalNewOrder(order models.Order) {
	b.subMu.Lock()
	alerts := append([]func(models.Order){}, b.alerts...)
	b.subMu.Unlock()
	for _, fn := range alerts {
		fn(order)
	}
}
