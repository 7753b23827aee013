package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"storefront/internal/apperr"
	"storefront/internal/models"
	"storefront/internal/realtime"
)

const orderChannel = "order_events"

// OrderFeed listens on the channel fed by the orders trigger and reloads the
// committed row for each notification.
type OrderFeed struct {
	pool   *pgxpool.Pool
	orders *Orders
}

func NewOrderFeed(pool *pgxpool.Pool, orders *Orders) *OrderFeed {
	return &OrderFeed{pool: pool, orders: orders}
}

type notification struct {
	Op string `json:"op"`
	ID string `json:"id"`
}

func parseNotification(payload string) (notification, error) {
	var n notification
	if err := json.Unmarshal([]byte(payload), &n); err != nil {
		return notification{}, fmt.Errorf("decode %s payload: %w", orderChannel, err)
	}
	if n.ID == "" {
		return notification{}, fmt.Errorf("%s payload without id", orderChannel)
	}
	return n, nil
}

func (f *OrderFeed) Run(ctx context.Context, ready func(), emit func(realtime.Event)) error {
	conn, err := f.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = conn.Exec(context.Background(), "UNLISTEN *")
		conn.Release()
	}()

	if _, err := conn.Exec(ctx, "LISTEN "+orderChannel); err != nil {
		return err
	}
	ready()

	for {
		raw, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		ev, ok, err := f.event(ctx, raw)
		if err != nil {
			return err
		}
		if ok {
			emit(ev)
		}
	}
}

func (f *OrderFeed) event(ctx context.Context, raw *pgconn.Notification) (realtime.Event, bool, error) {
	n, err := parseNotification(raw.Payload)
	if err != nil {
		return realtime.Event{}, false, err
	}

	if n.Op == "DELETE" {
		return realtime.Event{Kind: realtime.OrderDeleted, Order: models.Order{ID: n.ID}}, true, nil
	}

	kind := realtime.OrderUpdated
	if n.Op == "INSERT" {
		kind = realtime.OrderCreated
	}
	order, err := f.orders.GetOrder(ctx, n.ID)
	var nf *apperr.NotFoundError
	if errors.As(err, &nf) {
		// deleted before we got to it; the DELETE notification follows
		return realtime.Event{}, false, nil
	}
	if err != nil {
		return realtime.Event{}, false, err
	}
	return realtime.Event{Kind: kind, Order: order}, true, nil
}
