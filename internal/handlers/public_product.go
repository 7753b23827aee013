package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"storefront/internal/apperr"
	"storefront/internal/database"
	"storefront/internal/extras"
	"storefront/internal/models"
)

type ProductReader interface {
	ListProducts(ctx context.Context, f database.ProductFilter) ([]models.Product, error)
	GetProduct(ctx context.Context, id string) (models.Product, error)
	ProductExtras(ctx context.Context, p models.Product) ([]models.ExtrasGroup, error)
}

type SelectionRequest struct {
	Selected []string `json:"selected"`
	OptionID string   `json:"optionId" binding:"required,notblank"`
}

// SelectionPreview is the selection after a toggle, priced per unit. Problem
// names what still blocks adding it to the cart.
type SelectionPreview struct {
	Selected  extras.Selection `json:"selected"`
	UnitPrice decimal.Decimal  `json:"unitPrice"`
	Complete  bool             `json:"complete"`
	Problem   string           `json:"problem,omitempty"`
}

// ProductDetail is a product with the extras groups offered with it.
type ProductDetail struct {
	models.Product
	Extras []models.ExtrasGroup `json:"extras"`
}

/*
GET /products
- active products only
- ?category= ?search= ?featured=true
*/
func GetProducts(catalog ProductReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /products"
		defer handlePanic(c, route)

		featured, err := parseOptionalBool(c.Query("featured"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid featured flag")
			return
		}

		products, err := catalog.ListProducts(c.Request.Context(), database.ProductFilter{
			CategoryID:   strings.TrimSpace(c.Query("category")),
			Search:       strings.TrimSpace(c.Query("search")),
			ActiveOnly:   true,
			FeaturedOnly: featured,
		})
		if err != nil {
			respondWithDomainError(c, route, apperr.Persistence("list products", err), nil)
			return
		}

		logger.WithFields(logrus.Fields{"route": route, "count": len(products)}).Debug("returning products")
		c.JSON(http.StatusOK, products)
	}
}

/*
GET /products/:id
- product + extras groups with their available options
*/
func GetProduct(catalog ProductReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /products/:id"
		defer handlePanic(c, route)

		id := c.Param("id")
		product, err := catalog.GetProduct(c.Request.Context(), id)
		if err != nil {
			respondWithDomainError(c, route, apperr.Persistence("load product", err), nil)
			return
		}
		if !product.IsActive {
			respondWithDomainError(c, route, apperr.NotFound("product", id), nil)
			return
		}

		groups, err := catalog.ProductExtras(c.Request.Context(), product)
		if err != nil {
			respondWithDomainError(c, route, apperr.Persistence("load product extras", err), nil)
			return
		}

		c.JSON(http.StatusOK, ProductDetail{Product: product, Extras: availableOnly(groups)})
	}
}

/*
POST /products/:id/selection
- toggles optionId within the current selection
- exclusive groups swap, full multi-select groups stay as they are
*/
func ToggleSelection(catalog ProductReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /products/:id/selection"
		defer handlePanic(c, route)

		var req SelectionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, bindingMessage(err))
			return
		}

		id := c.Param("id")
		product, err := catalog.GetProduct(c.Request.Context(), id)
		if err != nil {
			respondWithDomainError(c, route, apperr.Persistence("load product", err), nil)
			return
		}
		if !product.IsActive {
			respondWithDomainError(c, route, apperr.NotFound("product", id), nil)
			return
		}
		all, err := catalog.ProductExtras(c.Request.Context(), product)
		if err != nil {
			respondWithDomainError(c, route, apperr.Persistence("load product extras", err), nil)
			return
		}
		groups := availableOnly(all)

		group, ok := extras.GroupOf(groups, req.OptionID)
		if !ok {
			respondWithDomainError(c, route, apperr.Validation("optionId", "option is not offered for this product"), nil)
			return
		}

		next := extras.Toggle(group, extras.Selection(req.Selected), req.OptionID)
		preview := SelectionPreview{
			Selected:  next,
			UnitPrice: product.Price.Add(extras.Price(groups, next)),
			Complete:  true,
		}
		if err := extras.Validate(groups, next); err != nil {
			preview.Complete = false
			preview.Problem = err.Error()
		}
		c.JSON(http.StatusOK, preview)
	}
}

func availableOnly(groups []models.ExtrasGroup) []models.ExtrasGroup {
	out := make([]models.ExtrasGroup, 0, len(groups))
	for _, g := range groups {
		options := make([]models.ExtrasOption, 0, len(g.Options))
		for _, opt := range g.Options {
			if opt.IsAvailable {
				options = append(options, opt)
			}
		}
		g.Options = options
		out = append(out, g)
	}
	return out
}
