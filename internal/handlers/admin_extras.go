package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"storefront/internal/apperr"
	"storefront/internal/models"
)

type ExtrasStore interface {
	ListExtrasGroups(ctx context.Context) ([]models.ExtrasGroup, error)
	GetExtrasGroup(ctx context.Context, id string) (models.ExtrasGroup, error)
	CreateExtrasGroup(ctx context.Context, g models.ExtrasGroup) (models.ExtrasGroup, error)
	UpdateExtrasGroup(ctx context.Context, g models.ExtrasGroup) (models.ExtrasGroup, error)
	DeleteExtrasGroup(ctx context.Context, id string) error
	CreateExtrasOption(ctx context.Context, o models.ExtrasOption) (models.ExtrasOption, error)
	UpdateExtrasOption(ctx context.Context, o models.ExtrasOption) (models.ExtrasOption, error)
	DeleteExtrasOption(ctx context.Context, groupID, id string) error
}

type ExtrasGroupRequest struct {
	Name       string `json:"name" binding:"required,notblank"`
	Required   bool   `json:"required"`
	MinOptions int    `json:"minOptions"`
	MaxOptions int    `json:"maxOptions" binding:"required"`
}

type ExtrasOptionRequest struct {
	Name        string          `json:"name" binding:"required,notblank"`
	Price       decimal.Decimal `json:"price"`
	IsAvailable *bool           `json:"isAvailable"`
}

func (r ExtrasGroupRequest) group() models.ExtrasGroup {
	return models.ExtrasGroup{
		Name:       strings.TrimSpace(r.Name),
		Required:   r.Required,
		MinOptions: r.MinOptions,
		MaxOptions: r.MaxOptions,
	}
}

func (r ExtrasOptionRequest) option(groupID string) models.ExtrasOption {
	available := true
	if r.IsAvailable != nil {
		available = *r.IsAvailable
	}
	return models.ExtrasOption{
		GroupID:     groupID,
		Name:        strings.TrimSpace(r.Name),
		Price:       r.Price,
		IsAvailable: available,
	}
}

func GetExtrasGroups(store ExtrasStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /admin/api/extras/groups"
		defer handlePanic(c, route)

		groups, err := store.ListExtrasGroups(c.Request.Context())
		if err != nil {
			respondWithDomainError(c, route, apperr.Persistence("list extras groups", err), nil)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": groups})
	}
}

func GetExtrasGroup(store ExtrasStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /admin/api/extras/groups/:id"
		defer handlePanic(c, route)

		group, err := store.GetExtrasGroup(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondWithDomainError(c, route, apperr.Persistence("load extras group", err), nil)
			return
		}
		c.JSON(http.StatusOK, group)
	}
}

func CreateExtrasGroup(store ExtrasStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /admin/api/extras/groups"
		defer handlePanic(c, route)

		var req ExtrasGroupRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, bindingMessage(err))
			return
		}

		created, err := store.CreateExtrasGroup(c.Request.Context(), req.group())
		if err != nil {
			respondWithDomainError(c, route, apperr.Persistence("create extras group", err), nil)
			return
		}
		c.JSON(http.StatusCreated, created)
	}
}

func UpdateExtrasGroup(store ExtrasStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /admin/api/extras/groups/:id"
		defer handlePanic(c, route)

		var req ExtrasGroupRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, bindingMessage(err))
			return
		}

		group := req.group()
		group.ID = c.Param("id")
		updated, err := store.UpdateExtrasGroup(c.Request.Context(), group)
		if err != nil {
			respondWithDomainError(c, route, apperr.Persistence("update extras group", err), nil)
			return
		}
		c.JSON(http.StatusOK, updated)
	}
}

// DeleteExtrasGroup also removes the group's options and unlinks it from
// every product.
func DeleteExtrasGroup(store ExtrasStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /admin/api/extras/groups/:id"
		defer handlePanic(c, route)

		id := c.Param("id")
		if err := store.DeleteExtrasGroup(c.Request.Context(), id); err != nil {
			respondWithDomainError(c, route, apperr.Persistence("delete extras group", err), nil)
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": id})
	}
}

func CreateExtrasOption(store ExtrasStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /admin/api/extras/groups/:id/options"
		defer handlePanic(c, route)

		var req ExtrasOptionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, bindingMessage(err))
			return
		}

		created, err := store.CreateExtrasOption(c.Request.Context(), req.option(c.Param("id")))
		if err != nil {
			respondWithDomainError(c, route, apperr.Persistence("create extras option", err), nil)
			return
		}
		c.JSON(http.StatusCreated, created)
	}
}

func UpdateExtrasOption(store ExtrasStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /admin/api/extras/groups/:id/options/:optionId"
		defer handlePanic(c, route)

		var req ExtrasOptionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, bindingMessage(err))
			return
		}

		option := req.option(c.Param("id"))
		option.ID = c.Param("optionId")
		updated, err := store.UpdateExtrasOption(c.Request.Context(), option)
		if err != nil {
			respondWithDomainError(c, route, apperr.Persistence("update extras option", err), nil)
			return
		}
		c.JSON(http.StatusOK, updated)
	}
}

func DeleteExtrasOption(store ExtrasStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /admin/api/extras/groups/:id/options/:optionId"
		defer handlePanic(c, route)

		id := c.Param("optionId")
		if err := store.DeleteExtrasOption(c.Request.Context(), c.Param("id"), id); err != nil {
			respondWithDomainError(c, route, apperr.Persistence("delete extras option", err), nil)
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": id})
	}
}
