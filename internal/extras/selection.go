package extras

import (
	"github.com/shopspring/decimal"

	"storefront/internal/apperr"
	"storefront/internal/models"
)

// Selection is the set of option ids a customer picked for one product.
type Selection []string

func (s Selection) Has(optionID string) bool {
	for _, id := range s {
		if id == optionID {
			return true
		}
	}
	return false
}

// countIn returns how many selected ids belong to group.
func (s Selection) countIn(group models.ExtrasGroup) int {
	n := 0
	for _, id := range s {
		if _, ok := group.Option(id); ok {
			n++
		}
	}
	return n
}

// Toggle flips optionID inside group and returns the resulting selection.
// The input slice is never modified.
//
// Deselecting always succeeds. For an exclusive group (max 1) selecting an
// option replaces the previous choice of that group. For a multi-select group
// at its cap the selection is returned unchanged.
func Toggle(group models.ExtrasGroup, current Selection, optionID string) Selection {
	if _, ok := group.Option(optionID); !ok {
		return clone(current)
	}

	if current.Has(optionID) {
		out := make(Selection, 0, len(current))
		for _, id := range current {
			if id != optionID {
				out = append(out, id)
			}
		}
		return out
	}

	inGroup := current.countIn(group)
	if group.Exclusive() && inGroup >= 1 {
		out := make(Selection, 0, len(current))
		for _, id := range current {
			if _, ok := group.Option(id); !ok {
				out = append(out, id)
			}
		}
		return append(out, optionID)
	}
	if group.MaxOptions > 1 && inGroup >= group.MaxOptions {
		return clone(current)
	}
	return append(clone(current), optionID)
}

// Validate checks a selection against the groups attached to a product.
// Every selected id must be an available option of one of the groups, a
// required group needs between min and max options, and an optional group
// either has none or between min and max.
func Validate(groups []models.ExtrasGroup, selected Selection) error {
	seen := make(map[string]struct{}, len(selected))
	for _, id := range selected {
		if _, dup := seen[id]; dup {
			return apperr.Validationf("extras", "option %s selected twice", id)
		}
		seen[id] = struct{}{}
		opt, ok := findOption(groups, id)
		if !ok {
			return apperr.Validationf("extras", "option %s is not offered for this product", id)
		}
		if !opt.IsAvailable {
			return apperr.Validationf("extras", "option %s is not available", opt.Name)
		}
	}

	for _, g := range groups {
		n := selected.countIn(g)
		if g.Required && n == 0 {
			return apperr.Validationf(g.Name, "select at least one option")
		}
		if n == 0 {
			continue
		}
		if n < g.MinOptions {
			return apperr.Validationf(g.Name, "select at least %d options", g.MinOptions)
		}
		if n > g.MaxOptions {
			return apperr.Validationf(g.Name, "select at most %d options", g.MaxOptions)
		}
	}
	return nil
}

// Resolve validates selected and returns the captured extras in group order,
// then option order, so identical selections always resolve identically.
func Resolve(groups []models.ExtrasGroup, selected Selection) ([]models.OrderItemExtra, error) {
	if err := Validate(groups, selected); err != nil {
		return nil, err
	}
	out := make([]models.OrderItemExtra, 0, len(selected))
	for _, g := range groups {
		for _, opt := range g.Options {
			if !selected.Has(opt.ID) {
				continue
			}
			out = append(out, models.OrderItemExtra{
				OptionID:  opt.ID,
				Name:      opt.Name,
				Price:     opt.Price,
				GroupName: g.Name,
			})
		}
	}
	return out, nil
}

// Sum adds the price deltas of the captured extras.
func Sum(chosen []models.OrderItemExtra) decimal.Decimal {
	total := decimal.Zero
	for _, e := range chosen {
		total = total.Add(e.Price)
	}
	return total
}

// Price adds the deltas of the selected options the groups offer, ignoring
// unknown ids. It prices a selection that may still be incomplete.
func Price(groups []models.ExtrasGroup, selected Selection) decimal.Decimal {
	total := decimal.Zero
	for _, id := range selected {
		if opt, ok := findOption(groups, id); ok {
			total = total.Add(opt.Price)
		}
	}
	return total
}

// GroupOf returns the group offering optionID.
func GroupOf(groups []models.ExtrasGroup, optionID string) (models.ExtrasGroup, bool) {
	for _, g := range groups {
		if _, ok := g.Option(optionID); ok {
			return g, true
		}
	}
	return models.ExtrasGroup{}, false
}

func findOption(groups []models.ExtrasGroup, id string) (models.ExtrasOption, bool) {
	for _, g := range groups {
		if opt, ok := g.Option(id); ok {
			return opt, true
		}
	}
	return models.ExtrasOption{}, false
}

func clone(s Selection) Selection {
	out := make(Selection, len(s))
	copy(out, s)
	return out
}
