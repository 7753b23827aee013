package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"storefront/internal/apperr"
	"storefront/internal/models"
	"storefront/internal/orders"
)

const orderColumns = `id, customer_name, customer_phone, delivery_address, observations,
	total, status, cancellation_reason, accepted_at, created_at, updated_at`

const itemColumns = `id, order_id, product_id, product_name, product_price, quantity, subtotal, extras`

// Orders is the Postgres order store.
type Orders struct {
	pool *pgxpool.Pool
}

func NewOrders(pool *pgxpool.Pool) *Orders {
	return &Orders{pool: pool}
}

func scanOrder(row pgx.Row) (models.Order, error) {
	var (
		o      models.Order
		status string
	)
	err := row.Scan(
		&o.ID, &o.Name, &o.Phone, &o.Address, &o.Observations,
		&o.Total, &status, &o.CancellationReason, &o.AcceptedAt, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return models.Order{}, err
	}
	if o.Status, err = models.ParseOrderStatus(status); err != nil {
		return models.Order{}, err
	}
	return o, nil
}

func scanItem(row pgx.Row) (models.OrderItem, error) {
	var (
		item   models.OrderItem
		extras []byte
	)
	if err := row.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.ProductName,
		&item.ProductPrice, &item.Quantity, &item.Subtotal, &extras); err != nil {
		return models.OrderItem{}, err
	}
	if len(extras) > 0 {
		if err := json.Unmarshal(extras, &item.Extras); err != nil {
			return models.OrderItem{}, fmt.Errorf("decode extras of item %s: %w", item.ID, err)
		}
	}
	return item, nil
}

func (s *Orders) CreateOrder(ctx context.Context, order models.Order, items []models.OrderItem) (models.Order, []models.OrderItem, error) {
	order.ID = uuid.NewString()
	saved := withItemIDs(order.ID, items)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return models.Order{}, nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		order.ID, order.Name, order.Phone, order.Address, order.Observations,
		order.Total, string(order.Status), order.CancellationReason, order.AcceptedAt, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return models.Order{}, nil, err
	}
	if err := insertItems(ctx, tx, saved); err != nil {
		return models.Order{}, nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return models.Order{}, nil, err
	}
	return order, saved, nil
}

func (s *Orders) GetOrder(ctx context.Context, id string) (models.Order, error) {
	o, err := scanOrder(s.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Order{}, apperr.NotFound("order", id)
	}
	return o, err
}

func (s *Orders) ListOrders(ctx context.Context, q orders.Query) ([]models.Order, error) {
	var (
		where []string
		args  []interface{}
	)
	if len(q.Statuses) > 0 {
		statuses := make([]string, 0, len(q.Statuses))
		for _, st := range q.Statuses {
			statuses = append(statuses, string(st))
		}
		args = append(args, statuses)
		where = append(where, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if !q.Since.IsZero() {
		args = append(args, q.Since)
		where = append(where, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if !q.Until.IsZero() {
		args = append(args, q.Until)
		where = append(where, fmt.Sprintf("created_at < $%d", len(args)))
	}

	sql := `SELECT ` + orderColumns + ` FROM orders`
	if len(where) > 0 {
		sql += ` WHERE ` + strings.Join(where, " AND ")
	}
	sql += ` ORDER BY created_at DESC`
	if q.Limit > 0 {
		args = append(args, q.Limit)
		sql += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *Orders) OrderItems(ctx context.Context, orderID string) ([]models.OrderItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+itemColumns+` FROM order_items
		WHERE order_id = $1
		ORDER BY position`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.OrderItem{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (s *Orders) UpdateOrderStatus(ctx context.Context, from models.OrderStatus, next models.Order) (models.Order, bool, error) {
	written, err := scanOrder(s.pool.QueryRow(ctx, `
		UPDATE orders
		SET status = $1, cancellation_reason = $2, accepted_at = $3, updated_at = $4
		WHERE id = $5 AND status = $6
		RETURNING `+orderColumns,
		string(next.Status), next.CancellationReason, next.AcceptedAt, next.UpdatedAt, next.ID, string(from),
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Order{}, false, nil
	}
	if err != nil {
		return models.Order{}, false, err
	}
	return written, true, nil
}

func (s *Orders) ReplaceOrderItems(ctx context.Context, orderID string, items []models.OrderItem, total decimal.Decimal, updatedAt time.Time) (models.Order, []models.OrderItem, error) {
	saved := withItemIDs(orderID, items)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return models.Order{}, nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	updated, err := scanOrder(tx.QueryRow(ctx, `
		UPDATE orders SET total = $1, updated_at = $2
		WHERE id = $3
		RETURNING `+orderColumns,
		total, updatedAt, orderID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Order{}, nil, apperr.NotFound("order", orderID)
	}
	if err != nil {
		return models.Order{}, nil, err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM order_items WHERE order_id = $1`, orderID); err != nil {
		return models.Order{}, nil, err
	}
	if err := insertItems(ctx, tx, saved); err != nil {
		return models.Order{}, nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return models.Order{}, nil, err
	}
	return updated, saved, nil
}

func (s *Orders) DeleteOrder(ctx context.Context, id string, from models.OrderStatus) (bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// lock the row first so items cannot be replaced in between
	var locked string
	err = tx.QueryRow(ctx, `SELECT id FROM orders WHERE id = $1 AND status = $2 FOR UPDATE`, id, string(from)).Scan(&locked)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM order_items WHERE order_id = $1`, id); err != nil {
		return false, err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id); err != nil {
		return false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func insertItems(ctx context.Context, tx pgx.Tx, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for i, item := range items {
		extras, err := json.Marshal(extrasOrEmpty(item.Extras))
		if err != nil {
			return err
		}
		batch.Queue(`
			INSERT INTO order_items (id, order_id, position, product_id, product_name, product_price, quantity, subtotal, extras)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			item.ID, item.OrderID, i, item.ProductID, item.ProductName, item.ProductPrice, item.Quantity, item.Subtotal, extras,
		)
	}
	return tx.SendBatch(ctx, batch).Close()
}

func extrasOrEmpty(extras []models.OrderItemExtra) []models.OrderItemExtra {
	if extras == nil {
		return []models.OrderItemExtra{}
	}
	return extras
}

func withItemIDs(orderID string, items []models.OrderItem) []models.OrderItem {
	out := make([]models.OrderItem, len(items))
	for i, item := range items {
		item.ID = uuid.NewString()
		item.OrderID = orderID
		out[i] = item
	}
	return out
}

var _ orders.Store = (*Orders)(nil)
