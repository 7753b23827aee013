package orders

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"storefront/internal/apperr"
	"storefront/internal/models"
	"storefront/internal/realtime"
)

// Query narrows ListOrders. Zero values mean no restriction. Results are
// ordered by creation time, most recent first.
type Query struct {
	Statuses []models.OrderStatus
	Since    time.Time
	Until    time.Time
	Limit    int64
}

// Store is the authoritative order persistence. Implementations must make
// CreateOrder, ReplaceOrderItems and DeleteOrder atomic: an order's total and
// its items are always written together.
type Store interface {
	CreateOrder(ctx context.Context, order models.Order, items []models.OrderItem) (models.Order, []models.OrderItem, error)
	GetOrder(ctx context.Context, id string) (models.Order, error)
	ListOrders(ctx context.Context, q Query) ([]models.Order, error)
	OrderItems(ctx context.Context, orderID string) ([]models.OrderItem, error)

	// UpdateOrderStatus writes the status fields of next only while the stored
	// status still equals from, and returns the row as written. It reports
	// false when nothing matched.
	UpdateOrderStatus(ctx context.Context, from models.OrderStatus, next models.Order) (models.Order, bool, error)

	// ReplaceOrderItems swaps the order's items and total in one transaction.
	ReplaceOrderItems(ctx context.Context, orderID string, items []models.OrderItem, total decimal.Decimal, updatedAt time.Time) (models.Order, []models.OrderItem, error)

	// DeleteOrder removes the order and its items while the stored status
	// still equals from. It reports false when nothing matched.
	DeleteOrder(ctx context.Context, id string, from models.OrderStatus) (bool, error)
}

// Publisher receives every order change after it has been persisted.
type Publisher interface {
	Apply(ev realtime.Event) bool
}

// StoreHours reports whether the restaurant is accepting orders.
type StoreHours interface {
	IsOpen(ctx context.Context) (bool, error)
}

type Service struct {
	store   Store
	board   Publisher
	confirm Confirmer
	hours   StoreHours
	now     func() time.Time
	log     logrus.FieldLogger
}

func NewService(store Store, board Publisher, confirm Confirmer, hours StoreHours, log logrus.FieldLogger) *Service {
	return &Service{
		store:   store,
		board:   board,
		confirm: confirm,
		hours:   hours,
		now:     storeClock,
		log:     log,
	}
}

// storeClock matches the millisecond precision both stores keep, so a
// timestamp published locally compares equal to the same write read back.
func storeClock() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// PlaceOrder creates a new order with its items in one write.
func (s *Service) PlaceOrder(ctx context.Context, customer models.OrderCustomer, observations string, items []models.OrderItem) (models.Order, error) {
	customer = models.OrderCustomer{
		Name:    strings.TrimSpace(customer.Name),
		Phone:   strings.TrimSpace(customer.Phone),
		Address: strings.TrimSpace(customer.Address),
	}
	switch {
	case customer.Name == "":
		return models.Order{}, apperr.Validation("customerName", "is required")
	case customer.Phone == "":
		return models.Order{}, apperr.Validation("customerPhone", "is required")
	case customer.Address == "":
		return models.Order{}, apperr.Validation("deliveryAddress", "is required")
	case len(items) == 0:
		return models.Order{}, apperr.Validation("items", "at least one item is required")
	}

	prepared, total, err := Prepare("", items)
	if err != nil {
		return models.Order{}, err
	}

	if s.hours != nil {
		open, err := s.hours.IsOpen(ctx)
		if err != nil {
			return models.Order{}, apperr.Persistence("load store settings", err)
		}
		if !open {
			return models.Order{}, apperr.Validation("store", "the store is closed")
		}
	}

	now := s.now()
	order := models.Order{
		OrderCustomer: customer,
		Observations:  strings.TrimSpace(observations),
		Total:         total,
		Status:        models.StatusNew,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	created, _, err := s.store.CreateOrder(ctx, order, prepared)
	if err != nil {
		return models.Order{}, apperr.Persistence("create order", err)
	}

	s.publish(realtime.OrderCreated, created)
	s.log.WithFields(logrus.Fields{
		"order_id": created.ID,
		"total":    created.Total.StringFixed(2),
		"items":    len(prepared),
	}).Info("order placed")
	return created, nil
}

func (s *Service) Get(ctx context.Context, id string) (models.Order, []models.OrderItem, error) {
	order, err := s.store.GetOrder(ctx, id)
	if err != nil {
		return models.Order{}, nil, apperr.Persistence("load order", err)
	}
	items, err := s.store.OrderItems(ctx, id)
	if err != nil {
		return models.Order{}, nil, apperr.Persistence("load order items", err)
	}
	return order, items, nil
}

func (s *Service) List(ctx context.Context, q Query) ([]models.Order, error) {
	orders, err := s.store.ListOrders(ctx, q)
	if err != nil {
		return nil, apperr.Persistence("list orders", err)
	}
	return orders, nil
}

func (s *Service) Accept(ctx context.Context, id string) (models.Order, error) {
	return s.apply(ctx, id, EventAccept, "")
}

func (s *Service) Dispatch(ctx context.Context, id string) (models.Order, error) {
	return s.apply(ctx, id, EventDispatch, "")
}

func (s *Service) Deliver(ctx context.Context, id string) (models.Order, error) {
	return s.apply(ctx, id, EventDeliver, "")
}

func (s *Service) Reopen(ctx context.Context, id string) (models.Order, error) {
	return s.apply(ctx, id, EventReopen, "")
}

// Cancel requires a non-blank reason and the confirmation secret. Both are
// checked before the store is touched.
func (s *Service) Cancel(ctx context.Context, id, reason, confirmation string) (models.Order, error) {
	if strings.TrimSpace(reason) == "" {
		return models.Order{}, apperr.Validation("reason", "cancellation reason is required")
	}
	if err := s.confirm.Confirm("cancel order", confirmation); err != nil {
		return models.Order{}, err
	}
	return s.apply(ctx, id, EventCancel, reason)
}

// Delete removes an order that has not reached a terminal status, together
// with its items. It cannot be undone.
func (s *Service) Delete(ctx context.Context, id, confirmation string) error {
	if err := s.confirm.Confirm("delete order", confirmation); err != nil {
		return err
	}

	current, err := s.store.GetOrder(ctx, id)
	if err != nil {
		return apperr.Persistence("load order", err)
	}
	if _, err := Transition(current, EventDelete, "", s.now()); err != nil {
		return err
	}

	ok, err := s.store.DeleteOrder(ctx, id, current.Status)
	if err != nil {
		return apperr.Persistence("delete order", err)
	}
	if !ok {
		return s.conflict(ctx, id, EventDelete)
	}

	s.publish(realtime.OrderDeleted, current)
	s.log.WithFields(logrus.Fields{"order_id": id, "status": current.Status}).Warn("order deleted")
	return nil
}

// SaveItems replaces the order's items and total together.
func (s *Service) SaveItems(ctx context.Context, id string, items []models.OrderItem) (models.Order, []models.OrderItem, error) {
	prepared, total, err := Prepare(id, items)
	if err != nil {
		return models.Order{}, nil, err
	}

	order, saved, err := s.store.ReplaceOrderItems(ctx, id, prepared, total, s.now())
	if err != nil {
		return models.Order{}, nil, apperr.Persistence("save order items", err)
	}

	s.publish(realtime.OrderUpdated, order)
	s.log.WithFields(logrus.Fields{
		"order_id": id,
		"total":    order.Total.StringFixed(2),
		"items":    len(saved),
	}).Info("order items saved")
	return order, saved, nil
}

// EditItems loads the order's items into a Draft, lets edit change it and
// saves the result like SaveItems. Nothing is written when edit fails.
func (s *Service) EditItems(ctx context.Context, id string, edit func(*Draft) error) (models.Order, []models.OrderItem, error) {
	if _, err := s.store.GetOrder(ctx, id); err != nil {
		return models.Order{}, nil, apperr.Persistence("load order", err)
	}
	items, err := s.store.OrderItems(ctx, id)
	if err != nil {
		return models.Order{}, nil, apperr.Persistence("load order items", err)
	}

	draft := NewDraft(id, items)
	if err := edit(draft); err != nil {
		return models.Order{}, nil, err
	}
	return s.SaveItems(ctx, id, draft.Items)
}

func (s *Service) apply(ctx context.Context, id string, event Event, reason string) (models.Order, error) {
	current, err := s.store.GetOrder(ctx, id)
	if err != nil {
		return models.Order{}, apperr.Persistence("load order", err)
	}

	next, err := Transition(current, event, reason, s.now())
	if err != nil {
		return models.Order{}, err
	}

	written, ok, err := s.store.UpdateOrderStatus(ctx, current.Status, next)
	if err != nil {
		return models.Order{}, apperr.Persistence("update order status", err)
	}
	if !ok {
		return models.Order{}, s.conflict(ctx, id, event)
	}

	s.publish(realtime.OrderUpdated, written)
	s.log.WithFields(logrus.Fields{
		"order_id": id,
		"event":    event,
		"from":     current.Status,
		"status":   written.Status,
	}).Info("order status changed")
	return written, nil
}

// conflict explains a compare-and-set miss: the order is either gone or was
// moved by someone else first.
func (s *Service) conflict(ctx context.Context, id string, event Event) error {
	latest, err := s.store.GetOrder(ctx, id)
	if err != nil {
		var nf *apperr.NotFoundError
		if errors.As(err, &nf) {
			return err
		}
		return apperr.Persistence("reload order", err)
	}
	return &apperr.InvalidTransitionError{
		OrderID: id,
		From:    latest.Status.Label(),
		Event:   string(event),
	}
}

func (s *Service) publish(kind realtime.Kind, order models.Order) {
	if s.board == nil {
		return
	}
	s.board.Apply(realtime.Event{Kind: kind, Order: order})
}
