package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"storefront/internal/apperr"
	"storefront/internal/database"
	"storefront/internal/models"
)

type ProductStore interface {
	ProductReader
	CreateProduct(ctx context.Context, p models.Product) (models.Product, error)
	UpdateProduct(ctx context.Context, p models.Product) (models.Product, error)
	DeleteProduct(ctx context.Context, id string) (models.Product, error)
}

/* =======================
   REQUEST MODELS
======================= */

// ProductUpdateRequest carries the fields to write; nil fields are left as
// they are.
type ProductUpdateRequest struct {
	Name           *string          `json:"name"`
	Description    *string          `json:"description"`
	Price          *decimal.Decimal `json:"price"`
	ImageURL       *string          `json:"imageUrl"`
	CategoryID     *string          `json:"categoryId"`
	ExtrasGroupIDs *[]string        `json:"extrasGroupIds"`
	IsActive       *bool            `json:"isActive"`
	IsFeatured     *bool            `json:"isFeatured"`

	uploaded bool
}

func (r ProductUpdateRequest) apply(p *models.Product) {
	if r.Name != nil {
		p.Name = strings.TrimSpace(*r.Name)
	}
	if r.Description != nil {
		p.Description = strings.TrimSpace(*r.Description)
	}
	if r.Price != nil {
		p.Price = *r.Price
	}
	if r.ImageURL != nil {
		p.ImageURL = strings.TrimSpace(*r.ImageURL)
	}
	if r.CategoryID != nil {
		p.CategoryID = strings.TrimSpace(*r.CategoryID)
	}
	if r.ExtrasGroupIDs != nil {
		p.ExtrasGroups = models.NewIDList(*r.ExtrasGroupIDs...)
	}
	if r.IsActive != nil {
		p.IsActive = *r.IsActive
	}
	if r.IsFeatured != nil {
		p.IsFeatured = *r.IsFeatured
	}
}

func validateProduct(p models.Product) error {
	switch {
	case p.Name == "":
		return apperr.Validation("name", "is required")
	case p.Price.IsNegative():
		return apperr.Validation("price", "must be zero or greater")
	case p.CategoryID == "":
		return apperr.Validation("categoryId", "is required")
	}
	return nil
}

/* =======================
   HANDLERS
======================= */

/*
GET /admin/api/products
- active and inactive
- ?category= ?search=
*/
func GetAllProducts(store ProductStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /admin/api/products"
		defer handlePanic(c, route)

		products, err := store.ListProducts(c.Request.Context(), database.ProductFilter{
			CategoryID: strings.TrimSpace(c.Query("category")),
			Search:     strings.TrimSpace(c.Query("search")),
		})
		if err != nil {
			respondWithDomainError(c, route, apperr.Persistence("list products", err), nil)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": products})
	}
}

// GetAdminProduct returns the product with every extras option, available
// or not.
func GetAdminProduct(store ProductStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /admin/api/products/:id"
		defer handlePanic(c, route)

		product, err := store.GetProduct(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondWithDomainError(c, route, apperr.Persistence("load product", err), nil)
			return
		}
		groups, err := store.ProductExtras(c.Request.Context(), product)
		if err != nil {
			respondWithDomainError(c, route, apperr.Persistence("load product extras", err), nil)
			return
		}
		c.JSON(http.StatusOK, ProductDetail{Product: product, Extras: groups})
	}
}

/*
POST /admin/api/products
- JSON or multipart (with "image")
- new products are active unless isActive=false
*/
func CreateProduct(store ProductStore, uploads *Uploads) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /admin/api/products"
		defer handlePanic(c, route)

		req, err := bindProductRequest(c, uploads)
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		product := models.Product{IsActive: true, ExtrasGroups: models.IDList{}}
		req.apply(&product)
		if err := validateProduct(product); err != nil {
			if req.uploaded {
				uploads.discardUpload(product.ImageURL, route)
			}
			respondWithDomainError(c, route, err, nil)
			return
		}

		created, err := store.CreateProduct(c.Request.Context(), product)
		if err != nil {
			if req.uploaded {
				uploads.discardUpload(product.ImageURL, route)
			}
			respondWithDomainError(c, route, apperr.Persistence("create product", err), nil)
			return
		}
		c.JSON(http.StatusCreated, created)
	}
}

/*
PUT /admin/api/products/:id
- partial update
- a replaced image is removed from disk after the write succeeds
*/
func UpdateProduct(store ProductStore, uploads *Uploads) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /admin/api/products/:id"
		defer handlePanic(c, route)

		req, err := bindProductRequest(c, uploads)
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		existing, err := store.GetProduct(c.Request.Context(), c.Param("id"))
		if err != nil {
			if req.uploaded {
				uploads.discardUpload(*req.ImageURL, route)
			}
			respondWithDomainError(c, route, apperr.Persistence("load product", err), nil)
			return
		}

		next := existing
		req.apply(&next)
		if err := validateProduct(next); err != nil {
			if req.uploaded {
				uploads.discardUpload(next.ImageURL, route)
			}
			respondWithDomainError(c, route, err, nil)
			return
		}

		updated, err := store.UpdateProduct(c.Request.Context(), next)
		if err != nil {
			if req.uploaded {
				uploads.discardUpload(next.ImageURL, route)
			}
			respondWithDomainError(c, route, apperr.Persistence("update product", err), nil)
			return
		}

		if existing.ImageURL != "" && existing.ImageURL != updated.ImageURL {
			uploads.discardUpload(existing.ImageURL, route)
		}
		c.JSON(http.StatusOK, updated)
	}
}

func DeleteProduct(store ProductStore, uploads *Uploads) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /admin/api/products/:id"
		defer handlePanic(c, route)

		deleted, err := store.DeleteProduct(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondWithDomainError(c, route, apperr.Persistence("delete product", err), nil)
			return
		}
		uploads.discardUpload(deleted.ImageURL, route)
		c.JSON(http.StatusOK, gin.H{"deleted": deleted.ID})
	}
}
