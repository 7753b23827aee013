package orders

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/apperr"
	"storefront/internal/models"
)

func TestPrepareBindsAndRecomputes(t *testing.T) {
	in := []models.OrderItem{
		{ProductName: " X-Burger ", ProductPrice: money("25.00"), Quantity: 3},
		{ProductName: "Soda", ProductPrice: money("0"), Quantity: 1},
	}

	items, total, err := Prepare("o1", in)
	require.NoError(t, err)

	assert.True(t, total.Equal(money("75.00")))
	assert.Equal(t, "o1", items[0].OrderID)
	assert.Equal(t, "X-Burger", items[0].ProductName)
	assert.True(t, items[0].Subtotal.Equal(money("75.00")))
	assert.Equal(t, " X-Burger ", in[0].ProductName, "input must stay untouched")
}

func TestPrepareRejectsBadItems(t *testing.T) {
	cases := map[string]models.OrderItem{
		"blank name":     {ProductName: " ", ProductPrice: money("1"), Quantity: 1},
		"negative price": {ProductName: "A", ProductPrice: money("-1"), Quantity: 1},
		"zero quantity":  {ProductName: "A", ProductPrice: money("1"), Quantity: 0},
	}
	for name, item := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := Prepare("o1", []models.OrderItem{item})
			var vErr *apperr.ValidationError
			assert.True(t, errors.As(err, &vErr))
		})
	}
}

func TestPrepareEmptySetIsZero(t *testing.T) {
	items, total, err := Prepare("o1", nil)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.True(t, total.IsZero())
}

func TestDraftKeepsSubtotalsCurrent(t *testing.T) {
	d := NewDraft("o1", []models.OrderItem{
		{ProductName: "X-Burger", ProductPrice: money("25.00"), Quantity: 1, Subtotal: money("25.00")},
	})
	d.AddProduct(models.Product{ID: "p2", Name: "Fries", Price: money("9.90")}, 2)

	require.NoError(t, d.SetPrice(0, money("20.00")))
	require.NoError(t, d.SetQuantity(0, 3))
	require.NoError(t, d.SetName(1, "Large fries"))

	assert.True(t, d.Items[0].Subtotal.Equal(money("60.00")))
	assert.True(t, d.Items[1].Subtotal.Equal(money("19.80")))
	assert.True(t, d.Total().Equal(money("79.80")))
	assert.Equal(t, "o1", d.Items[1].OrderID)

	require.NoError(t, d.SetQuantity(0, 0))
	require.Len(t, d.Items, 1)
	assert.Equal(t, "Large fries", d.Items[0].ProductName)

	assert.Error(t, d.SetPrice(5, money("1")))
	assert.Error(t, d.SetPrice(0, money("-1")))
}
