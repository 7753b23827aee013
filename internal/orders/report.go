package orders

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"storefront/internal/apperr"
	"storefront/internal/models"
)

// DaySummary groups the finished orders created on one calendar day.
type DaySummary struct {
	Day       string          `json:"day"`
	Orders    []models.Order  `json:"orders"`
	Completed int             `json:"completed"`
	Cancelled int             `json:"cancelled"`
	Revenue   decimal.Decimal `json:"revenue"`
}

// Period totals completed orders in a time window.
type Period struct {
	Orders        int             `json:"orders"`
	Revenue       decimal.Decimal `json:"revenue"`
	AverageTicket decimal.Decimal `json:"averageTicket"`
}

func (p *Period) add(total decimal.Decimal) {
	p.Orders++
	p.Revenue = p.Revenue.Add(total)
	p.AverageTicket = p.Revenue.Div(decimal.NewFromInt(int64(p.Orders))).Round(2)
}

type FinancialSummary struct {
	Today    Period                     `json:"today"`
	Week     Period                     `json:"week"`
	Month    Period                     `json:"month"`
	AllTime  Period                     `json:"allTime"`
	ByStatus map[models.OrderStatus]int `json:"byStatus"`
}

// HistoryByDay groups completed and cancelled orders by the day they were
// created in loc, latest day first. Only completed orders count as revenue.
func HistoryByDay(orders []models.Order, loc *time.Location) []DaySummary {
	byDay := make(map[string]*DaySummary)
	for _, o := range orders {
		if !o.Status.Terminal() {
			continue
		}
		day := o.CreatedAt.In(loc).Format("2006-01-02")
		sum, ok := byDay[day]
		if !ok {
			sum = &DaySummary{Day: day, Revenue: decimal.Zero}
			byDay[day] = sum
		}
		sum.Orders = append(sum.Orders, o)
		if o.Status == models.StatusCompleted {
			sum.Completed++
			sum.Revenue = sum.Revenue.Add(o.Total)
		} else {
			sum.Cancelled++
		}
	}

	out := make([]DaySummary, 0, len(byDay))
	for _, sum := range byDay {
		sort.SliceStable(sum.Orders, func(i, j int) bool {
			return sum.Orders[i].CreatedAt.After(sum.Orders[j].CreatedAt)
		})
		out = append(out, *sum)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day > out[j].Day })
	return out
}

// Financial computes revenue for today, the last seven days, the current
// month and all time, using completed orders only.
func Financial(orders []models.Order, now time.Time) FinancialSummary {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	week := now.AddDate(0, 0, -7)
	month := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	sum := FinancialSummary{ByStatus: make(map[models.OrderStatus]int)}
	for _, s := range models.AllStatuses() {
		sum.ByStatus[s] = 0
	}
	for _, p := range []*Period{&sum.Today, &sum.Week, &sum.Month, &sum.AllTime} {
		p.Revenue, p.AverageTicket = decimal.Zero, decimal.Zero
	}

	for _, o := range orders {
		sum.ByStatus[o.Status]++
		if o.Status != models.StatusCompleted {
			continue
		}
		sum.AllTime.add(o.Total)
		if !o.CreatedAt.Before(today) {
			sum.Today.add(o.Total)
		}
		if !o.CreatedAt.Before(week) {
			sum.Week.add(o.Total)
		}
		if !o.CreatedAt.Before(month) {
			sum.Month.add(o.Total)
		}
	}
	return sum
}

func (s *Service) History(ctx context.Context, since time.Time, loc *time.Location) ([]DaySummary, error) {
	orders, err := s.store.ListOrders(ctx, Query{
		Statuses: []models.OrderStatus{models.StatusCompleted, models.StatusCancelled},
		Since:    since,
	})
	if err != nil {
		return nil, apperr.Persistence("list order history", err)
	}
	return HistoryByDay(orders, loc), nil
}

func (s *Service) Financial(ctx context.Context) (FinancialSummary, error) {
	orders, err := s.store.ListOrders(ctx, Query{})
	if err != nil {
		return FinancialSummary{}, apperr.Persistence("list orders", err)
	}
	return Financial(orders, s.now()), nil
}
