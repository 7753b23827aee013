package orders

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"storefront/internal/apperr"
	"storefront/internal/models"
)

// Paper is the width of the thermal roll a ticket is printed on.
type Paper string

const (
	Paper58 Paper = "58mm"
	Paper80 Paper = "80mm"
)

// ParsePaper accepts "58mm" or "80mm"; empty means 80mm.
func ParsePaper(s string) (Paper, error) {
	switch Paper(strings.ToLower(strings.TrimSpace(s))) {
	case "", Paper80:
		return Paper80, nil
	case Paper58:
		return Paper58, nil
	}
	return "", apperr.Validationf("paper", "unknown paper size %q", s)
}

// Columns is how many monospace characters fit on one line.
func (p Paper) Columns() int {
	if p == Paper58 {
		return 32
	}
	return 48
}

// Ticket renders the kitchen ticket of an order as plain text. The narrow
// roll leaves out the extras lines.
func Ticket(shop string, order models.Order, items []models.OrderItem, paper Paper, loc *time.Location) string {
	width := paper.Columns()
	var b strings.Builder
	line := func(s string) {
		b.WriteString(s)
		b.WriteByte('\n')
	}

	line(center(strings.ToUpper(shop), width))
	line(center("Pedido #"+shortID(order.ID), width))
	line(center(order.CreatedAt.In(loc).Format("02/01/2006 15:04"), width))
	line(strings.Repeat("-", width))

	line("CLIENTE")
	for _, s := range wrap(order.Name, width) {
		line(s)
	}
	line(order.Phone)
	for _, s := range wrap(order.Address, width) {
		line(s)
	}
	if obs := strings.TrimSpace(order.Observations); obs != "" {
		for _, s := range wrap("Obs: "+obs, width) {
			line(s)
		}
	}
	line(strings.Repeat("=", width))

	line(spread("Qtd Item", "Valor", width))
	if len(items) == 0 {
		line(center("sem itens", width))
	}
	for _, item := range items {
		line(spread(strconv.Itoa(item.Quantity)+"x "+item.ProductName, formatBRL(item.Subtotal), width))
		if paper == Paper58 {
			continue
		}
		for _, e := range item.Extras {
			extra := "  + " + e.Name
			if !e.Price.IsZero() {
				extra += " (" + formatBRL(e.Price) + ")"
			}
			line(truncate(extra, width))
		}
	}
	line(strings.Repeat("=", width))

	line(spread("TOTAL", formatBRL(order.Total), width))
	line("")
	line(center("Obrigado pela preferência!", width))
	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func center(s string, width int) string {
	s = truncate(s, width)
	pad := (width - utf8.RuneCountInString(s)) / 2
	return strings.Repeat(" ", pad) + s
}

// spread puts left and right on one line, cutting left when they collide.
func spread(left, right string, width int) string {
	room := width - utf8.RuneCountInString(right) - 1
	if room < 1 {
		return truncate(right, width)
	}
	left = truncate(left, room)
	gap := width - utf8.RuneCountInString(left) - utf8.RuneCountInString(right)
	return left + strings.Repeat(" ", gap) + right
}

func truncate(s string, width int) string {
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	return string([]rune(s)[:width])
}

func wrap(s string, width int) []string {
	var out []string
	cur := ""
	for _, word := range strings.Fields(s) {
		word = truncate(word, width)
		switch {
		case cur == "":
			cur = word
		case utf8.RuneCountInString(cur)+1+utf8.RuneCountInString(word) <= width:
			cur += " " + word
		default:
			out = append(out, cur)
			cur = word
		}
	}
	if cur != "" {
		out = append(out, cur)
	}
	return out
}

// formatBRL writes an amount the Brazilian way: R$ 1.234,50.
func formatBRL(d decimal.Decimal) string {
	fixed := d.Abs().StringFixed(2)
	whole, cents := fixed[:len(fixed)-3], fixed[len(fixed)-2:]

	var grouped strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			grouped.WriteByte('.')
		}
		grouped.WriteRune(r)
	}
	sign := ""
	if d.IsNegative() {
		sign = "-"
	}
	return sign + "R$ " + grouped.String() + "," + cents
}
