package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/apperr"
	"storefront/internal/models"
)

type SettingsStore interface {
	SettingsReader
	Save(ctx context.Context, st models.StoreSettings) (models.StoreSettings, error)
}

type SettingsRequest struct {
	Name         string `json:"name" binding:"required,notblank"`
	Address      string `json:"address"`
	Phone        string `json:"phone"`
	LogoURL      string `json:"logoUrl"`
	IsOpen       *bool  `json:"isOpen" binding:"required"`
	OpeningHours string `json:"openingHours"`
}

// PUT /admin/api/settings
func UpdateSettings(store SettingsStore, uploads *Uploads) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /admin/api/settings"
		defer handlePanic(c, route)

		var req SettingsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, bindingMessage(err))
			return
		}

		current, err := store.Get(c.Request.Context())
		if err != nil {
			respondWithDomainError(c, route, apperr.Persistence("load settings", err), nil)
			return
		}

		saved, err := store.Save(c.Request.Context(), models.StoreSettings{
			Name:         req.Name,
			Address:      req.Address,
			Phone:        req.Phone,
			LogoURL:      req.LogoURL,
			IsOpen:       *req.IsOpen,
			OpeningHours: req.OpeningHours,
		})
		if err != nil {
			respondWithDomainError(c, route, apperr.Persistence("save settings", err), nil)
			return
		}

		if current.LogoURL != "" && current.LogoURL != saved.LogoURL {
			uploads.discardUpload(current.LogoURL, route)
		}
		logger.WithField("open", saved.IsOpen).Info("store settings saved")
		c.JSON(http.StatusOK, saved)
	}
}
