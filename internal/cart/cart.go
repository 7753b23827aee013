package cart

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"storefront/internal/apperr"
	"storefront/internal/extras"
	"storefront/internal/models"
)

// lineNamespace seeds the name-based UUIDs used as line keys.
var lineNamespace = uuid.MustParse("6f1c2a52-9b7e-4f0e-8a41-3d0c5e7b9a10")

// LineItem is one product-plus-extras combination in a cart. UnitPrice is
// frozen when the line is first added.
type LineItem struct {
	Key          string                  `bson:"key" json:"key"`
	ProductID    string                  `bson:"productId" json:"productId"`
	Name         string                  `bson:"name" json:"name"`
	ProductPrice decimal.Decimal         `bson:"productPrice" json:"productPrice"`
	ImageURL     string                  `bson:"imageUrl,omitempty" json:"imageUrl,omitempty"`
	Quantity     int                     `bson:"quantity" json:"quantity"`
	Extras       []models.OrderItemExtra `bson:"extras" json:"extras"`
	UnitPrice    decimal.Decimal         `bson:"unitPrice" json:"unitPrice"`
}

// LineTotal is UnitPrice × Quantity.
func (l LineItem) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart belongs to a single cart session. Version counts saves; a cart that
// was never stored has version 0.
type Cart struct {
	SessionID string     `bson:"_id" json:"sessionId"`
	Items     []LineItem `bson:"items" json:"items"`
	UpdatedAt time.Time  `bson:"updatedAt" json:"updatedAt"`
	Version   int64      `bson:"version" json:"-"`
}

func New(sessionID string) *Cart {
	return &Cart{SessionID: sessionID, Items: []LineItem{}}
}

// LineKey identifies a product with an exact extras selection. The option ids
// are sorted, so selection order never matters.
func LineKey(productID string, optionIDs []string) string {
	ids := append([]string(nil), optionIDs...)
	sort.Strings(ids)
	name := productID + "|" + strings.Join(ids, ",")
	return uuid.NewSHA1(lineNamespace, []byte(name)).String()
}

// AddItem validates the selection against the product's extras groups and
// either merges into the matching line or appends a new one. On error the cart
// is left untouched.
func (c *Cart) AddItem(product models.Product, quantity int, groups []models.ExtrasGroup, selection extras.Selection) (LineItem, error) {
	if !product.IsActive {
		return LineItem{}, apperr.Validationf("product", "%s is not available", product.Name)
	}
	if quantity <= 0 {
		return LineItem{}, apperr.Validation("quantity", "must be greater than zero")
	}

	chosen, err := extras.Resolve(groups, selection)
	if err != nil {
		return LineItem{}, err
	}

	optionIDs := make([]string, 0, len(chosen))
	for _, e := range chosen {
		optionIDs = append(optionIDs, e.OptionID)
	}
	key := LineKey(product.ID, optionIDs)

	for i := range c.Items {
		if c.Items[i].Key == key {
			c.Items[i].Quantity += quantity
			return c.Items[i], nil
		}
	}

	line := LineItem{
		Key:          key,
		ProductID:    product.ID,
		Name:         product.Name,
		ProductPrice: product.Price,
		ImageURL:     product.ImageURL,
		Quantity:     quantity,
		Extras:       chosen,
		UnitPrice:    product.Price.Add(extras.Sum(chosen)),
	}
	c.Items = append(c.Items, line)
	return line, nil
}

// UpdateQuantity sets the quantity of a line; zero or less removes it.
func (c *Cart) UpdateQuantity(key string, quantity int) error {
	if quantity <= 0 {
		return c.RemoveItem(key)
	}
	for i := range c.Items {
		if c.Items[i].Key == key {
			c.Items[i].Quantity = quantity
			return nil
		}
	}
	return apperr.NotFound("cart item", key)
}

// RemoveItem removes exactly the line with key. Other variants of the same
// product stay.
func (c *Cart) RemoveItem(key string) error {
	for i := range c.Items {
		if c.Items[i].Key == key {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return nil
		}
	}
	return apperr.NotFound("cart item", key)
}

func (c *Cart) Clear() {
	c.Items = []LineItem{}
}

func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.Items {
		total = total.Add(l.LineTotal())
	}
	return total
}

func (c *Cart) ItemCount() int {
	n := 0
	for _, l := range c.Items {
		n += l.Quantity
	}
	return n
}

func (c *Cart) Empty() bool {
	return len(c.Items) == 0
}

// OrderItems converts the cart lines into order items carrying the frozen unit
// price, so the order total equals Total().
func (c *Cart) OrderItems() []models.OrderItem {
	out := make([]models.OrderItem, 0, len(c.Items))
	for _, l := range c.Items {
		productID := l.ProductID
		out = append(out, models.OrderItem{
			ProductID:    &productID,
			ProductName:  l.Name,
			ProductPrice: l.UnitPrice,
			Quantity:     l.Quantity,
			Subtotal:     l.LineTotal(),
			Extras:       append([]models.OrderItemExtra(nil), l.Extras...),
		})
	}
	return out
}
