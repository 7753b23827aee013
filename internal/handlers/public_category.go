package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/apperr"
	"storefront/internal/models"
)

type CategoryReader interface {
	ListCategories(ctx context.Context, activeOnly bool) ([]models.Category, error)
}

type BannerReader interface {
	ListBanners(ctx context.Context, activeOnly bool) ([]models.Banner, error)
}

type SettingsReader interface {
	Get(ctx context.Context) (models.StoreSettings, error)
}

func GetCategories(store CategoryReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /categories"
		defer handlePanic(c, route)

		categories, err := store.ListCategories(c.Request.Context(), true)
		if err != nil {
			respondWithDomainError(c, route, apperr.Persistence("list categories", err), nil)
			return
		}
		c.JSON(http.StatusOK, categories)
	}
}

func GetBanners(store BannerReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /banners"
		defer handlePanic(c, route)

		banners, err := store.ListBanners(c.Request.Context(), true)
		if err != nil {
			respondWithDomainError(c, route, apperr.Persistence("list banners", err), nil)
			return
		}
		c.JSON(http.StatusOK, banners)
	}
}

// GetSettings serves the store profile and whether it is open. Shared by the
// storefront and the console.
func GetSettings(store SettingsReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /settings"
		defer handlePanic(c, route)

		settings, err := store.Get(c.Request.Context())
		if err != nil {
			respondWithDomainError(c, route, apperr.Persistence("load settings", err), nil)
			return
		}
		c.JSON(http.StatusOK, settings)
	}
}
