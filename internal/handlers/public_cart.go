package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"storefront/internal/cart"
	"storefront/internal/extras"
	"storefront/internal/middleware"
	"storefront/internal/models"
)

type AddCartItemRequest struct {
	ProductID string   `json:"productId" binding:"required,notblank"`
	Quantity  *int     `json:"quantity"`
	Options   []string `json:"options"`
}

type UpdateCartItemRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

type CheckoutRequest struct {
	CustomerName    string `json:"customerName"`
	CustomerPhone   string `json:"customerPhone"`
	DeliveryAddress string `json:"deliveryAddress"`
	Observations    string `json:"observations"`
}

type cartLine struct {
	cart.LineItem
	LineTotal decimal.Decimal `json:"lineTotal"`
}

type cartView struct {
	SessionID string          `json:"sessionId"`
	Items     []cartLine      `json:"items"`
	ItemCount int             `json:"itemCount"`
	Total     decimal.Decimal `json:"total"`
}

func viewCart(c *cart.Cart) cartView {
	lines := make([]cartLine, 0, len(c.Items))
	for _, item := range c.Items {
		lines = append(lines, cartLine{LineItem: item, LineTotal: item.LineTotal()})
	}
	return cartView{
		SessionID: c.SessionID,
		Items:     lines,
		ItemCount: c.ItemCount(),
		Total:     c.Total(),
	}
}

func GetCart(carts *cart.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /cart"
		defer handlePanic(c, route)

		current, err := carts.Get(c.Request.Context(), middleware.CartSessionID(c))
		if err != nil {
			respondWithDomainError(c, route, err, nil)
			return
		}
		c.JSON(http.StatusOK, viewCart(current))
	}
}

func AddCartItem(carts *cart.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /cart/items"
		defer handlePanic(c, route)

		var req AddCartItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, bindingMessage(err))
			return
		}
		quantity := 1
		if req.Quantity != nil {
			quantity = *req.Quantity
		}

		updated, line, err := carts.Add(c.Request.Context(), middleware.CartSessionID(c), req.ProductID, quantity, extras.Selection(req.Options))
		if err != nil {
			respondWithDomainError(c, route, err, nil)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"line": line, "cart": viewCart(updated)})
	}
}

func UpdateCartItem(carts *cart.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PATCH /cart/items/:key"
		defer handlePanic(c, route)

		var req UpdateCartItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, bindingMessage(err))
			return
		}

		updated, err := carts.UpdateQuantity(c.Request.Context(), middleware.CartSessionID(c), c.Param("key"), *req.Quantity)
		if err != nil {
			respondWithDomainError(c, route, err, nil)
			return
		}
		c.JSON(http.StatusOK, viewCart(updated))
	}
}

func RemoveCartItem(carts *cart.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /cart/items/:key"
		defer handlePanic(c, route)

		updated, err := carts.Remove(c.Request.Context(), middleware.CartSessionID(c), c.Param("key"))
		if err != nil {
			respondWithDomainError(c, route, err, nil)
			return
		}
		c.JSON(http.StatusOK, viewCart(updated))
	}
}

func ClearCart(carts *cart.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /cart"
		defer handlePanic(c, route)

		if err := carts.Clear(c.Request.Context(), middleware.CartSessionID(c)); err != nil {
			respondWithDomainError(c, route, err, nil)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// Checkout turns the session's cart into an order. The cart survives a
// failed checkout.
func Checkout(carts *cart.Service, placer cart.OrderPlacer) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /cart/checkout"
		defer handlePanic(c, route)

		var req CheckoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, bindingMessage(err))
			return
		}

		order, err := carts.Checkout(
			c.Request.Context(),
			middleware.CartSessionID(c),
			placer,
			models.OrderCustomer{
				Name:    req.CustomerName,
				Phone:   req.CustomerPhone,
				Address: req.DeliveryAddress,
			},
			req.Observations,
		)
		if err != nil {
			respondWithDomainError(c, route, err, nil)
			return
		}
		c.JSON(http.StatusCreated, order)
	}
}
