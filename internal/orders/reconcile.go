package orders

import (
	"strings"

	"github.com/shopspring/decimal"

	"storefront/internal/apperr"
	"storefront/internal/models"
)

// Subtotal is the captured unit price times quantity.
func Subtotal(price decimal.Decimal, quantity int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(quantity)))
}

// Recompute refreshes the item's subtotal from its price and quantity.
func Recompute(item *models.OrderItem) {
	item.Subtotal = Subtotal(item.ProductPrice, item.Quantity)
}

// Total sums the subtotals of items. An order's persisted total must always
// equal this value for its persisted items.
func Total(items []models.OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal)
	}
	return total
}

func validateItem(i int, item models.OrderItem) error {
	if strings.TrimSpace(item.ProductName) == "" {
		return apperr.Validationf("items", "item %d: name is required", i+1)
	}
	if item.ProductPrice.IsNegative() {
		return apperr.Validationf("items", "item %d: price cannot be negative", i+1)
	}
	if item.Quantity < 1 {
		return apperr.Validationf("items", "item %d: quantity must be at least 1", i+1)
	}
	return nil
}

// Prepare validates items, binds them to orderID and recomputes every
// subtotal. It returns fresh copies together with the new order total.
func Prepare(orderID string, items []models.OrderItem) ([]models.OrderItem, decimal.Decimal, error) {
	out := make([]models.OrderItem, 0, len(items))
	for i, item := range items {
		if err := validateItem(i, item); err != nil {
			return nil, decimal.Zero, err
		}
		item.OrderID = orderID
		item.ProductName = strings.TrimSpace(item.ProductName)
		item.Extras = append([]models.OrderItemExtra(nil), item.Extras...)
		Recompute(&item)
		out = append(out, item)
	}
	return out, Total(out), nil
}

// Draft is the working copy of an order's items while staff edit it. Every
// mutation keeps subtotals current.
type Draft struct {
	OrderID string
	Items   []models.OrderItem
}

func NewDraft(orderID string, items []models.OrderItem) *Draft {
	d := &Draft{OrderID: orderID, Items: make([]models.OrderItem, len(items))}
	copy(d.Items, items)
	return d
}

// AddProduct appends a line capturing the product's current name and price.
func (d *Draft) AddProduct(p models.Product, quantity int) {
	if quantity < 1 {
		quantity = 1
	}
	id := p.ID
	item := models.OrderItem{
		OrderID:      d.OrderID,
		ProductID:    &id,
		ProductName:  p.Name,
		ProductPrice: p.Price,
		Quantity:     quantity,
	}
	Recompute(&item)
	d.Items = append(d.Items, item)
}

func (d *Draft) SetName(i int, name string) error {
	if err := d.check(i); err != nil {
		return err
	}
	d.Items[i].ProductName = name
	return nil
}

func (d *Draft) SetPrice(i int, price decimal.Decimal) error {
	if err := d.check(i); err != nil {
		return err
	}
	if price.IsNegative() {
		return apperr.Validation("price", "cannot be negative")
	}
	d.Items[i].ProductPrice = price
	Recompute(&d.Items[i])
	return nil
}

// SetQuantity changes a line's quantity; zero or less removes the line.
func (d *Draft) SetQuantity(i int, quantity int) error {
	if err := d.check(i); err != nil {
		return err
	}
	if quantity <= 0 {
		return d.Remove(i)
	}
	d.Items[i].Quantity = quantity
	Recompute(&d.Items[i])
	return nil
}

func (d *Draft) Remove(i int) error {
	if err := d.check(i); err != nil {
		return err
	}
	d.Items = append(d.Items[:i], d.Items[i+1:]...)
	return nil
}

func (d *Draft) Total() decimal.Decimal {
	return Total(d.Items)
}

func (d *Draft) check(i int) error {
	if i < 0 || i >= len(d.Items) {
		return apperr.Validationf("items", "no item at position %d", i+1)
	}
	return nil
}
