package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/apperr"
	"storefront/internal/models"
	"storefront/internal/orders"
	"storefront/internal/realtime"
	"storefront/internal/sla"
)

// fakeOrders answers from a map and applies transitions with the real rules.
type fakeOrders struct {
	orders    map[string]models.Order
	items     map[string][]models.OrderItem
	saveErr   error
	lastQuery orders.Query
}

func newFakeOrders(list ...models.Order) *fakeOrders {
	f := &fakeOrders{orders: map[string]models.Order{}, items: map[string][]models.OrderItem{}}
	for _, o := range list {
		f.orders[o.ID] = o
	}
	return f
}

func (f *fakeOrders) Get(_ context.Context, id string) (models.Order, []models.OrderItem, error) {
	o, ok := f.orders[id]
	if !ok {
		return models.Order{}, nil, apperr.NotFound("order", id)
	}
	return o, f.items[id], nil
}

func (f *fakeOrders) List(_ context.Context, q orders.Query) ([]models.Order, error) {
	f.lastQuery = q
	out := []models.Order{}
	for _, o := range f.orders {
		out = append(out, o)
	}
	return out, nil
}

func (f *fakeOrders) apply(id string, event orders.Event, reason string) (models.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return models.Order{}, apperr.NotFound("order", id)
	}
	next, err := orders.Transition(o, event, reason, time.Now())
	if err != nil {
		return models.Order{}, err
	}
	f.orders[id] = next
	return next, nil
}

func (f *fakeOrders) Accept(_ context.Context, id string) (models.Order, error) {
	return f.apply(id, orders.EventAccept, "")
}

func (f *fakeOrders) Dispatch(_ context.Context, id string) (models.Order, error) {
	return f.apply(id, orders.EventDispatch, "")
}

func (f *fakeOrders) Deliver(_ context.Context, id string) (models.Order, error) {
	return f.apply(id, orders.EventDeliver, "")
}

func (f *fakeOrders) Reopen(_ context.Context, id string) (models.Order, error) {
	return f.apply(id, orders.EventReopen, "")
}

func (f *fakeOrders) Cancel(_ context.Context, id, reason, confirmation string) (models.Order, error) {
	if confirmation != "letmein" {
		return models.Order{}, &apperr.AuthorizationError{Action: "cancel"}
	}
	return f.apply(id, orders.EventCancel, reason)
}

func (f *fakeOrders) Delete(_ context.Context, id, confirmation string) error {
	if confirmation != "letmein" {
		return &apperr.AuthorizationError{Action: "delete"}
	}
	delete(f.orders, id)
	return nil
}

func (f *fakeOrders) SaveItems(_ context.Context, id string, items []models.OrderItem) (models.Order, []models.OrderItem, error) {
	if f.saveErr != nil {
		return models.Order{}, nil, f.saveErr
	}
	prepared, total, err := orders.Prepare(id, items)
	if err != nil {
		return models.Order{}, nil, err
	}
	o := f.orders[id]
	o.Total = total
	f.orders[id] = o
	f.items[id] = prepared
	return o, prepared, nil
}

func (f *fakeOrders) EditItems(ctx context.Context, id string, edit func(*orders.Draft) error) (models.Order, []models.OrderItem, error) {
	if _, ok := f.orders[id]; !ok {
		return models.Order{}, nil, apperr.NotFound("order", id)
	}
	d := orders.NewDraft(id, f.items[id])
	if err := edit(d); err != nil {
		return models.Order{}, nil, err
	}
	return f.SaveItems(ctx, id, d.Items)
}

func (f *fakeOrders) History(context.Context, time.Time, *time.Location) ([]orders.DaySummary, error) {
	return []orders.DaySummary{}, nil
}

func (f *fakeOrders) Financial(context.Context) (orders.FinancialSummary, error) {
	return orders.FinancialSummary{}, nil
}

type shopSettings models.StoreSettings

func (s shopSettings) Get(context.Context) (models.StoreSettings, error) {
	return models.StoreSettings(s), nil
}

func orderRouter(svc OrderService, board *realtime.Board) *gin.Engine {
	r := gin.New()
	r.GET("/orders", ListOrders(svc, board))
	r.GET("/orders/:id", GetOrder(svc, sla.DefaultThresholds()))
	r.POST("/orders/:id/accept", TransitionOrder(svc, orders.EventAccept))
	r.POST("/orders/:id/dispatch", TransitionOrder(svc, orders.EventDispatch))
	r.POST("/orders/:id/cancel", CancelOrder(svc))
	r.DELETE("/orders/:id", DeleteOrder(svc))
	r.PUT("/orders/:id/items", SaveOrderItems(svc))
	r.POST("/orders/:id/items", AddOrderItem(svc, testCatalog()))
	r.PATCH("/orders/:id/items/:position", UpdateOrderItem(svc))
	r.DELETE("/orders/:id/items/:position", RemoveOrderItem(svc))
	r.GET("/orders/:id/ticket", OrderTicket(svc, shopSettings{Name: "Krikas Burguer"}, time.UTC))
	return r
}

func newOrder(id string, status models.OrderStatus) models.Order {
	now := time.Now()
	return models.Order{
		ID:            id,
		OrderCustomer: models.OrderCustomer{Name: "Ana", Phone: "555", Address: "Rua A, 1"},
		Status:        status,
		Total:         decimal.RequireFromString("30"),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestTransitionOrder(t *testing.T) {
	svc := newFakeOrders(newOrder("o1", models.StatusNew))
	r := orderRouter(svc, realtime.NewBoard(quietLogger()))

	w := doJSON(t, r, http.MethodPost, "/orders/o1/accept", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, string(models.StatusInPreparation), decodeBody(t, w)["status"])

	// a second operator clicking accept on the stale card
	w = doJSON(t, r, http.MethodPost, "/orders/o1/accept", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, true, decodeBody(t, w)["refresh"])

	assert.Equal(t, http.StatusNotFound, doJSON(t, r, http.MethodPost, "/orders/nope/dispatch", nil).Code)
}

func TestTransitionOrderRejectsPayloadEvents(t *testing.T) {
	assert.Panics(t, func() { TransitionOrder(newFakeOrders(), orders.EventCancel) })
}

func TestCancelOrder(t *testing.T) {
	svc := newFakeOrders(newOrder("o1", models.StatusInPreparation))
	r := orderRouter(svc, realtime.NewBoard(quietLogger()))

	w := doJSON(t, r, http.MethodPost, "/orders/o1/cancel", CancelOrderRequest{Reason: "no stock", Confirmation: "wrong"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, r, http.MethodPost, "/orders/o1/cancel", CancelOrderRequest{Reason: "  ", Confirmation: "letmein"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/orders/o1/cancel", CancelOrderRequest{Reason: "no stock", Confirmation: "letmein"})
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, string(models.StatusCancelled), body["status"])
	assert.Equal(t, "no stock", body["cancellationReason"])
}

func TestDeleteOrder(t *testing.T) {
	svc := newFakeOrders(newOrder("o1", models.StatusNew))
	r := orderRouter(svc, realtime.NewBoard(quietLogger()))

	assert.Equal(t, http.StatusForbidden, doJSON(t, r, http.MethodDelete, "/orders/o1", DeleteOrderRequest{}).Code)
	w := doJSON(t, r, http.MethodDelete, "/orders/o1", DeleteOrderRequest{Confirmation: "letmein"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, svc.orders, "o1")
}

func TestSaveOrderItems(t *testing.T) {
	svc := newFakeOrders(newOrder("o1", models.StatusNew))
	r := orderRouter(svc, realtime.NewBoard(quietLogger()))

	items := []models.OrderItem{
		{ProductName: "Pizza", ProductPrice: decimal.RequireFromString("12.50"), Quantity: 2},
		{ProductName: "Soda", ProductPrice: decimal.RequireFromString("5"), Quantity: 1},
	}
	w := doJSON(t, r, http.MethodPut, "/orders/o1/items", SaveOrderItemsRequest{Items: items})
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, svc.orders["o1"].Total.Equal(decimal.RequireFromString("30")))

	svc.saveErr = apperr.Persistence("replace items", assert.AnError)
	w = doJSON(t, r, http.MethodPut, "/orders/o1/items", SaveOrderItemsRequest{Items: items})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	echoed, ok := decodeBody(t, w)["items"].([]interface{})
	require.True(t, ok)
	assert.Len(t, echoed, 2)
}

func TestGetOrderDetail(t *testing.T) {
	accepted := time.Now().Add(-10 * time.Minute)
	o := newOrder("o1", models.StatusInPreparation)
	o.AcceptedAt = &accepted
	r := orderRouter(newFakeOrders(o), realtime.NewBoard(quietLogger()))

	w := doJSON(t, r, http.MethodGet, "/orders/o1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	events, ok := body["nextEvents"].([]interface{})
	require.True(t, ok)
	assert.Contains(t, events, string(orders.EventDispatch))
	assert.Contains(t, events, string(orders.EventCancel))
}

func TestListOrders(t *testing.T) {
	svc := newFakeOrders(newOrder("o1", models.StatusNew))
	board := realtime.NewBoard(quietLogger())
	board.Reset([]models.Order{newOrder("b1", models.StatusNew), newOrder("b2", models.StatusInPreparation)})
	r := orderRouter(svc, board)

	w := doJSON(t, r, http.MethodGet, "/orders", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var fromBoard []models.Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fromBoard))
	assert.Len(t, fromBoard, 2)

	w = doJSON(t, r, http.MethodGet, "/orders?status=novo,cancelado&limit=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []models.OrderStatus{models.StatusNew, models.StatusCancelled}, svc.lastQuery.Statuses)
	assert.EqualValues(t, 5, svc.lastQuery.Limit)

	assert.Equal(t, http.StatusBadRequest, doJSON(t, r, http.MethodGet, "/orders?status=pending", nil).Code)
}

func TestEditOrderItemsOneLineAtATime(t *testing.T) {
	svc := newFakeOrders(newOrder("o1", models.StatusInPreparation))
	r := orderRouter(svc, realtime.NewBoard(quietLogger()))

	w := doJSON(t, r, http.MethodPost, "/orders/o1/items", AddOrderItemRequest{ProductID: "pizza", Quantity: 2})
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, svc.items["o1"], 1)
	assert.Equal(t, "Pizza", svc.items["o1"][0].ProductName)
	assert.True(t, svc.orders["o1"].Total.Equal(decimal.RequireFromString("80")))

	price := decimal.RequireFromString("35")
	qty := 3
	w = doJSON(t, r, http.MethodPatch, "/orders/o1/items/1", UpdateOrderItemRequest{Price: &price, Quantity: &qty})
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, svc.orders["o1"].Total.Equal(decimal.RequireFromString("105")))

	w = doJSON(t, r, http.MethodPatch, "/orders/o1/items/2", UpdateOrderItemRequest{Quantity: &qty})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "items", decodeBody(t, w)["field"])

	negative := decimal.RequireFromString("-1")
	w = doJSON(t, r, http.MethodPatch, "/orders/o1/items/1", UpdateOrderItemRequest{Price: &negative})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.True(t, svc.orders["o1"].Total.Equal(decimal.RequireFromString("105")))

	w = doJSON(t, r, http.MethodDelete, "/orders/o1/items/1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, svc.items["o1"])
	assert.True(t, svc.orders["o1"].Total.IsZero())
}

func TestAddOrderItemRejectsInactiveProduct(t *testing.T) {
	svc := newFakeOrders(newOrder("o1", models.StatusNew))
	r := orderRouter(svc, realtime.NewBoard(quietLogger()))

	w := doJSON(t, r, http.MethodPost, "/orders/o1/items", AddOrderItemRequest{ProductID: "old"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodDelete, "/orders/o1/items/zero", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOrderTicket(t *testing.T) {
	svc := newFakeOrders(newOrder("o1", models.StatusInPreparation))
	svc.items["o1"] = []models.OrderItem{
		{ProductName: "Pizza", ProductPrice: decimal.RequireFromString("15"), Quantity: 2, Subtotal: decimal.RequireFromString("30")},
	}
	r := orderRouter(svc, realtime.NewBoard(quietLogger()))

	w := doJSON(t, r, http.MethodGet, "/orders/o1/ticket?paper=58mm", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
	assert.Contains(t, w.Body.String(), "KRIKAS BURGUER")
	assert.Contains(t, w.Body.String(), "2x Pizza")

	assert.Equal(t, http.StatusBadRequest, doJSON(t, r, http.MethodGet, "/orders/o1/ticket?paper=a4", nil).Code)
	assert.Equal(t, http.StatusNotFound, doJSON(t, r, http.MethodGet, "/orders/nope/ticket", nil).Code)
}
