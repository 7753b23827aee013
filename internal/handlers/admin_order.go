package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"storefront/internal/apperr"
	"storefront/internal/models"
	"storefront/internal/orders"
	"storefront/internal/realtime"
	"storefront/internal/sla"
)

// OrderService is the console's view of the order lifecycle.
type OrderService interface {
	Get(ctx context.Context, id string) (models.Order, []models.OrderItem, error)
	List(ctx context.Context, q orders.Query) ([]models.Order, error)
	Accept(ctx context.Context, id string) (models.Order, error)
	Dispatch(ctx context.Context, id string) (models.Order, error)
	Deliver(ctx context.Context, id string) (models.Order, error)
	Reopen(ctx context.Context, id string) (models.Order, error)
	Cancel(ctx context.Context, id, reason, confirmation string) (models.Order, error)
	Delete(ctx context.Context, id, confirmation string) error
	SaveItems(ctx context.Context, id string, items []models.OrderItem) (models.Order, []models.OrderItem, error)
	EditItems(ctx context.Context, id string, edit func(*orders.Draft) error) (models.Order, []models.OrderItem, error)
	History(ctx context.Context, since time.Time, loc *time.Location) ([]orders.DaySummary, error)
	Financial(ctx context.Context) (orders.FinancialSummary, error)
}

type CancelOrderRequest struct {
	Reason       string `json:"reason"`
	Confirmation string `json:"confirmation"`
}

type DeleteOrderRequest struct {
	Confirmation string `json:"confirmation"`
}

type SaveOrderItemsRequest struct {
	Items []models.OrderItem `json:"items" binding:"required"`
}

type AddOrderItemRequest struct {
	ProductID string `json:"productId" binding:"required,notblank"`
	Quantity  int    `json:"quantity"`
}

// UpdateOrderItemRequest changes only the fields that are present. A
// quantity of zero removes the line.
type UpdateOrderItemRequest struct {
	Name     *string          `json:"name"`
	Price    *decimal.Decimal `json:"price"`
	Quantity *int             `json:"quantity"`
}

// OrderDetail is an order with its items, elapsed clock and the events the
// console may offer next.
type OrderDetail struct {
	Order      models.Order       `json:"order"`
	Items      []models.OrderItem `json:"items"`
	Elapsed    sla.Reading        `json:"elapsed"`
	NextEvents []orders.Event     `json:"nextEvents"`
}

/*
GET /admin/api/orders
- no filter: the live board, most recent first
- ?status=novo,em_preparo&limit=50: read from the store
*/
func ListOrders(svc OrderService, board *realtime.Board) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /admin/api/orders"
		defer handlePanic(c, route)

		raw := strings.TrimSpace(c.Query("status"))
		if raw == "" {
			c.JSON(http.StatusOK, board.Orders())
			return
		}

		var statuses []models.OrderStatus
		for _, part := range strings.Split(raw, ",") {
			st, err := models.ParseOrderStatus(part)
			if err != nil {
				respondWithError(c, http.StatusBadRequest, route, err.Error())
				return
			}
			statuses = append(statuses, st)
		}
		limit, err := parseLimitParam(c.Query("limit"), 100, 500)
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid limit")
			return
		}

		list, err := svc.List(c.Request.Context(), orders.Query{Statuses: statuses, Limit: limit})
		if err != nil {
			respondWithDomainError(c, route, err, nil)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

// GET /admin/api/orders/board
func OrdersBoard(board *realtime.Board) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /admin/api/orders/board"
		defer handlePanic(c, route)

		c.JSON(http.StatusOK, board.Columns())
	}
}

// GET /admin/api/orders/history?days=30
func OrderHistory(svc OrderService, loc *time.Location) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /admin/api/orders/history"
		defer handlePanic(c, route)

		days, err := parseLimitParam(c.Query("days"), 30, 366)
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid days")
			return
		}
		now := time.Now().In(loc)
		start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, -int(days-1))

		history, err := svc.History(c.Request.Context(), start, loc)
		if err != nil {
			respondWithDomainError(c, route, err, nil)
			return
		}
		c.JSON(http.StatusOK, history)
	}
}

func GetOrder(svc OrderService, th sla.Thresholds) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /admin/api/orders/:id"
		defer handlePanic(c, route)

		order, items, err := svc.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondWithDomainError(c, route, err, nil)
			return
		}
		c.JSON(http.StatusOK, OrderDetail{
			Order:      order,
			Items:      items,
			Elapsed:    sla.Measure(order, time.Now(), th),
			NextEvents: orders.NextEvents(order.Status),
		})
	}
}

// TransitionOrder serves the events that need no payload: accept, dispatch,
// deliver and reopen.
func TransitionOrder(svc OrderService, event orders.Event) gin.HandlerFunc {
	var apply func(ctx context.Context, id string) (models.Order, error)
	switch event {
	case orders.EventAccept:
		apply = svc.Accept
	case orders.EventDispatch:
		apply = svc.Dispatch
	case orders.EventDeliver:
		apply = svc.Deliver
	case orders.EventReopen:
		apply = svc.Reopen
	default:
		panic("handlers: no plain transition for event " + string(event))
	}

	route := "POST /admin/api/orders/:id/" + string(event)
	return func(c *gin.Context) {
		defer handlePanic(c, route)

		order, err := apply(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondWithDomainError(c, route, err, nil)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func CancelOrder(svc OrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /admin/api/orders/:id/cancel"
		defer handlePanic(c, route)

		var req CancelOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, bindingMessage(err))
			return
		}

		order, err := svc.Cancel(c.Request.Context(), c.Param("id"), req.Reason, req.Confirmation)
		if err != nil {
			respondWithDomainError(c, route, err, nil)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func DeleteOrder(svc OrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /admin/api/orders/:id"
		defer handlePanic(c, route)

		var req DeleteOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, bindingMessage(err))
			return
		}

		id := c.Param("id")
		if err := svc.Delete(c.Request.Context(), id, req.Confirmation); err != nil {
			respondWithDomainError(c, route, err, nil)
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": id})
	}
}

// SaveOrderItems replaces the order's items and recomputes its total. On
// failure the attempted items are echoed back so the editor keeps them.
func SaveOrderItems(svc OrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /admin/api/orders/:id/items"
		defer handlePanic(c, route)

		var req SaveOrderItemsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, bindingMessage(err))
			return
		}

		order, items, err := svc.SaveItems(c.Request.Context(), c.Param("id"), req.Items)
		if err != nil {
			respondWithDomainError(c, route, err, gin.H{"items": req.Items})
			return
		}
		c.JSON(http.StatusOK, gin.H{"order": order, "items": items})
	}
}

/*
POST /admin/api/orders/:id/items
- appends a product at its current name and price
- quantity defaults to 1
*/
func AddOrderItem(svc OrderService, catalog ProductReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /admin/api/orders/:id/items"
		defer handlePanic(c, route)

		var req AddOrderItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, bindingMessage(err))
			return
		}

		product, err := catalog.GetProduct(c.Request.Context(), strings.TrimSpace(req.ProductID))
		if err != nil {
			respondWithDomainError(c, route, apperr.Persistence("load product", err), nil)
			return
		}
		if !product.IsActive {
			respondWithDomainError(c, route, apperr.Validation("productId", "product is not available"), nil)
			return
		}

		order, items, err := svc.EditItems(c.Request.Context(), c.Param("id"), func(d *orders.Draft) error {
			d.AddProduct(product, req.Quantity)
			return nil
		})
		if err != nil {
			respondWithDomainError(c, route, err, nil)
			return
		}
		c.JSON(http.StatusOK, gin.H{"order": order, "items": items})
	}
}

// PATCH /admin/api/orders/:id/items/:position
func UpdateOrderItem(svc OrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PATCH /admin/api/orders/:id/items/:position"
		defer handlePanic(c, route)

		idx, ok := itemIndex(c, route)
		if !ok {
			return
		}
		var req UpdateOrderItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, bindingMessage(err))
			return
		}

		order, items, err := svc.EditItems(c.Request.Context(), c.Param("id"), func(d *orders.Draft) error {
			if req.Name != nil {
				if err := d.SetName(idx, strings.TrimSpace(*req.Name)); err != nil {
					return err
				}
			}
			if req.Price != nil {
				if err := d.SetPrice(idx, *req.Price); err != nil {
					return err
				}
			}
			if req.Quantity != nil {
				return d.SetQuantity(idx, *req.Quantity)
			}
			return nil
		})
		if err != nil {
			respondWithDomainError(c, route, err, nil)
			return
		}
		c.JSON(http.StatusOK, gin.H{"order": order, "items": items})
	}
}

// DELETE /admin/api/orders/:id/items/:position
func RemoveOrderItem(svc OrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /admin/api/orders/:id/items/:position"
		defer handlePanic(c, route)

		idx, ok := itemIndex(c, route)
		if !ok {
			return
		}
		order, items, err := svc.EditItems(c.Request.Context(), c.Param("id"), func(d *orders.Draft) error {
			return d.Remove(idx)
		})
		if err != nil {
			respondWithDomainError(c, route, err, nil)
			return
		}
		c.JSON(http.StatusOK, gin.H{"order": order, "items": items})
	}
}

// itemIndex reads the 1-based :position param as a slice index.
func itemIndex(c *gin.Context, route string) (int, bool) {
	pos, err := strconv.Atoi(c.Param("position"))
	if err != nil || pos < 1 {
		respondWithError(c, http.StatusBadRequest, route, "invalid item position")
		return 0, false
	}
	return pos - 1, true
}

/*
GET /admin/api/orders/:id/ticket?paper=58mm
- plain text sized for the thermal roll, 80mm by default
*/
func OrderTicket(svc OrderService, settings SettingsReader, loc *time.Location) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /admin/api/orders/:id/ticket"
		defer handlePanic(c, route)

		paper, err := orders.ParsePaper(c.Query("paper"))
		if err != nil {
			respondWithDomainError(c, route, err, nil)
			return
		}
		order, items, err := svc.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondWithDomainError(c, route, err, nil)
			return
		}
		shop, err := settings.Get(c.Request.Context())
		if err != nil {
			respondWithDomainError(c, route, apperr.Persistence("load settings", err), nil)
			return
		}

		c.String(http.StatusOK, orders.Ticket(shop.Name, order, items, paper, loc))
	}
}

// GET /admin/api/reports/financial
func FinancialReport(svc OrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /admin/api/reports/financial"
		defer handlePanic(c, route)

		summary, err := svc.Financial(c.Request.Context())
		if err != nil {
			respondWithDomainError(c, route, err, nil)
			return
		}
		c.JSON(http.StatusOK, summary)
	}
}

func orderFromBoard(board *realtime.Board) sla.Lookup {
	return func(_ context.Context, id string) (models.Order, bool) {
		return board.Get(id)
	}
}

