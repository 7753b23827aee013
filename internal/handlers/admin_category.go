package handlers

import (
	"context"
	"net/http"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin"

	"storefront/internal/apperr"
	"storefront/internal/models"
)

type CategoryStore interface {
	CategoryReader
	CreateCategory(ctx context.Context, c models.Category) (models.Category, error)
	UpdateCategory(ctx context.Context, c models.Category) (models.Category, error)
	DeleteCategory(ctx context.Context, id string) error
}

type BannerStore interface {
	BannerReader
	CreateBanner(ctx context.Context, b models.Banner) (models.Banner, error)
	UpdateBanner(ctx context.Context, b models.Banner) (models.Banner, error)
	DeleteBanner(ctx context.Context, id string) (models.Banner, error)
}

type CategoryRequest struct {
	Name     string `json:"name" binding:"required,notblank"`
	Slug     string `json:"slug"`
	Order    int    `json:"order"`
	IsActive *bool  `json:"isActive"`
}

type BannerRequest struct {
	Title       string `json:"title" binding:"required,notblank"`
	Description string `json:"description"`
	ImageURL    string `json:"imageUrl" binding:"required,notblank"`
	Order       int    `json:"order"`
	IsActive    *bool  `json:"isActive"`
}

// slugify lowercases name and joins its letter and digit runs with dashes.
func slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if b.Len() > 0 && !dash {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func (r CategoryRequest) category() models.Category {
	slug := slugify(r.Slug)
	if slug == "" {
		slug = slugify(r.Name)
	}
	isActive := true
	if r.IsActive != nil {
		isActive = *r.IsActive
	}
	return models.Category{
		Name:     strings.TrimSpace(r.Name),
		Slug:     slug,
		Order:    r.Order,
		IsActive: isActive,
	}
}

func (r BannerRequest) banner() models.Banner {
	isActive := true
	if r.IsActive != nil {
		isActive = *r.IsActive
	}
	return models.Banner{
		Title:       strings.TrimSpace(r.Title),
		Description: strings.TrimSpace(r.Description),
		ImageURL:    strings.TrimSpace(r.ImageURL),
		Order:       r.Order,
		IsActive:    isActive,
	}
}

/* =========================
   CATEGORIES
========================= */

// GET /admin/api/categories (?isActive=true to hide inactive ones)
func GetAllCategories(store CategoryStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /admin/api/categories"
		defer handlePanic(c, route)

		activeOnly, err := parseOptionalBool(c.Query("isActive"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid isActive flag")
			return
		}
		categories, err := store.ListCategories(c.Request.Context(), activeOnly)
		if err != nil {
			respondWithDomainError(c, route, apperr.Persistence("list categories", err), nil)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": categories})
	}
}

func CreateCategory(store CategoryStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /admin/api/categories"
		defer handlePanic(c, route)

		var req CategoryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, bindingMessage(err))
			return
		}

		created, err := store.CreateCategory(c.Request.Context(), req.category())
		if err != nil {
			respondWithDomainError(c, route, apperr.Persistence("create category", err), nil)
			return
		}
		c.JSON(http.StatusCreated, created)
	}
}

func UpdateCategory(store CategoryStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /admin/api/categories/:id"
		defer handlePanic(c, route)

		var req CategoryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, bindingMessage(err))
			return
		}

		category := req.category()
		category.ID = c.Param("id")
		updated, err := store.UpdateCategory(c.Request.Context(), category)
		if err != nil {
			respondWithDomainError(c, route, apperr.Persistence("update category", err), nil)
			return
		}
		c.JSON(http.StatusOK, updated)
	}
}

// DeleteCategory only deactivates; products keep pointing at it.
func DeleteCategory(store CategoryStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /admin/api/categories/:id"
		defer handlePanic(c, route)

		id := c.Param("id")
		if err := store.DeleteCategory(c.Request.Context(), id); err != nil {
			respondWithDomainError(c, route, apperr.Persistence("delete category", err), nil)
			return
		}
		c.JSON(http.StatusOK, gin.H{"deactivated": id})
	}
}

/* =========================
   BANNERS
========================= */

func GetAllBanners(store BannerStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /admin/api/banners"
		defer handlePanic(c, route)

		banners, err := store.ListBanners(c.Request.Context(), false)
		if err != nil {
			respondWithDomainError(c, route, apperr.Persistence("list banners", err), nil)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": banners})
	}
}

func CreateBanner(store BannerStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /admin/api/banners"
		defer handlePanic(c, route)

		var req BannerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, bindingMessage(err))
			return
		}

		created, err := store.CreateBanner(c.Request.Context(), req.banner())
		if err != nil {
			respondWithDomainError(c, route, apperr.Persistence("create banner", err), nil)
			return
		}
		c.JSON(http.StatusCreated, created)
	}
}

func UpdateBanner(store BannerStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /admin/api/banners/:id"
		defer handlePanic(c, route)

		var req BannerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, bindingMessage(err))
			return
		}

		banner := req.banner()
		banner.ID = c.Param("id")
		updated, err := store.UpdateBanner(c.Request.Context(), banner)
		if err != nil {
			respondWithDomainError(c, route, apperr.Persistence("update banner", err), nil)
			return
		}
		c.JSON(http.StatusOK, updated)
	}
}

func DeleteBanner(store BannerStore, uploads *Uploads) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /admin/api/banners/:id"
		defer handlePanic(c, route)

		deleted, err := store.DeleteBanner(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondWithDomainError(c, route, apperr.Persistence("delete banner", err), nil)
			return
		}
		uploads.discardUpload(deleted.ImageURL, route)
		c.JSON(http.StatusOK, gin.H{"deleted": deleted.ID})
	}
}
