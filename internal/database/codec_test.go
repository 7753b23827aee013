package database

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"

	"storefront/internal/models"
)

func TestDecimalStoredAsDecimal128(t *testing.T) {
	item := models.OrderItem{ID: "i1", ProductName: "X-Burger", ProductPrice: decimal.RequireFromString("25.10"), Quantity: 3}
	item.Subtotal = item.ProductPrice.Mul(decimal.NewFromInt(3))

	raw, err := bson.MarshalWithRegistry(Registry(), item)
	require.NoError(t, err)

	price := bson.Raw(raw).Lookup("productPrice")
	assert.Equal(t, bsontype.Decimal128, price.Type)

	var back models.OrderItem
	require.NoError(t, bson.UnmarshalWithRegistry(Registry(), raw, &back))
	assert.True(t, back.Subtotal.Equal(decimal.RequireFromString("75.30")))
}

func TestDecimalReadsLegacyNumbers(t *testing.T) {
	cases := map[string]interface{}{
		"double": 12.5,
		"int32":  int32(12),
		"int64":  int64(12),
		"string": "12.50",
	}
	want := map[string]string{"double": "12.5", "int32": "12", "int64": "12", "string": "12.5"}

	for name, value := range cases {
		t.Run(name, func(t *testing.T) {
			raw, err := bson.Marshal(bson.M{"_id": "p1", "name": "Soda", "price": value})
			require.NoError(t, err)

			var p models.Product
			require.NoError(t, bson.UnmarshalWithRegistry(Registry(), raw, &p))
			assert.True(t, p.Price.Equal(decimal.RequireFromString(want[name])), "got %s", p.Price)
		})
	}
}

func TestOrderCustomerIsInlined(t *testing.T) {
	o := models.Order{ID: "o1", OrderCustomer: models.OrderCustomer{Name: "Ana"}, Status: models.StatusNew}

	raw, err := bson.MarshalWithRegistry(Registry(), o)
	require.NoError(t, err)

	assert.Equal(t, "Ana", bson.Raw(raw).Lookup("customerName").StringValue())
	assert.Equal(t, "novo", bson.Raw(raw).Lookup("status").StringValue())
}
