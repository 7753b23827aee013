package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/models"
)

func TestSlugify(t *testing.T) {
	assert.Equal(t, "pizzas-doces", slugify("  Pizzas   Doces! "))
	assert.Equal(t, "açaí-300ml", slugify("Açaí 300ml"))
	assert.Equal(t, "", slugify("---"))
}

type memCategories struct {
	created models.Category
}

func (m *memCategories) ListCategories(context.Context, bool) ([]models.Category, error) {
	return []models.Category{}, nil
}

func (m *memCategories) CreateCategory(_ context.Context, c models.Category) (models.Category, error) {
	c.ID = "c1"
	m.created = c
	return c, nil
}

func (m *memCategories) UpdateCategory(_ context.Context, c models.Category) (models.Category, error) {
	return c, nil
}

func (m *memCategories) DeleteCategory(context.Context, string) error {
	return nil
}

func TestCreateCategory(t *testing.T) {
	store := &memCategories{}
	r := gin.New()
	r.POST("/categories", CreateCategory(store))

	w := doJSON(t, r, http.MethodPost, "/categories", CategoryRequest{Name: " Bebidas Geladas ", Order: 2})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Bebidas Geladas", store.created.Name)
	assert.Equal(t, "bebidas-geladas", store.created.Slug)
	assert.True(t, store.created.IsActive)

	inactive := false
	w = doJSON(t, r, http.MethodPost, "/categories", CategoryRequest{Name: "Old", Slug: "Legacy Menu", IsActive: &inactive})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "legacy-menu", store.created.Slug)
	assert.False(t, store.created.IsActive)

	assert.Equal(t, http.StatusBadRequest, doJSON(t, r, http.MethodPost, "/categories", CategoryRequest{}).Code)
}
