package service

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/model"
	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/permission"
	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/pipeline"
)

// ItemSales counts how often a menu item was sold.
type ItemSales struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// AnalyticsService reports sales figures over the orders the OrderService
// holds. Only managers may read them.
type AnalyticsService struct {
	orders  *OrderService
	policy  *permission.Policy
	sales   *pipeline.Orchestrator[[]ItemSales]
	revenue *pipeline.Orchestrator[float64]
	now     func() time.Time
}

func NewAnalyticsService(orders *OrderService, env Env) *AnalyticsService {
	env = env.withDefaults()
	return &AnalyticsService{
		orders:  orders,
		policy:  env.Policy,
		sales:   pipeline.NewOrchestrator[[]ItemSales](2),
		revenue: pipeline.NewOrchestrator[float64](2),
		now:     time.Now,
	}
}

// TopSelling counts items across served and paid orders, most sold first.
// Items with the same count are ordered by name.
func (s *AnalyticsService) TopSelling(ctx context.Context, actor permission.Staff) ([]ItemSales, error) {
	if err := s.policy.Check(actor, permission.FamilyAnalytics, "view top-selling analytics"); err != nil {
		return nil, err
	}
	return s.topSelling(ctx)
}

// RevenueToday sums the totals of paid orders created today.
func (s *AnalyticsService) RevenueToday(ctx context.Context, actor permission.Staff) (float64, error) {
	if err := s.policy.Check(actor, permission.FamilyAnalytics, "view revenue analytics"); err != nil {
		return 0, err
	}
	return s.revenueToday(ctx)
}

// TopSellingAsync runs TopSelling off the caller's goroutine. The permission
// check happens before anything starts.
func (s *AnalyticsService) TopSellingAsync(ctx context.Context, actor permission.Staff) (*pipeline.Future[[]ItemSales], error) {
	if err := s.policy.Check(actor, permission.FamilyAnalytics, "view top-selling analytics"); err != nil {
		return nil, err
	}
	future, _ := s.sales.Run(ctx, "top_selling", actor.ID, nil, pipeline.Stage[[]ItemSales]{
		Name: "count_items",
		Run: func(ctx context.Context, _ []ItemSales) ([]ItemSales, error) {
			return s.topSelling(ctx)
		},
	})
	return future, nil
}

// RevenueTodayAsync runs RevenueToday off the caller's goroutine.
func (s *AnalyticsService) RevenueTodayAsync(ctx context.Context, actor permission.Staff) (*pipeline.Future[float64], error) {
	if err := s.policy.Check(actor, permission.FamilyAnalytics, "view revenue analytics"); err != nil {
		return nil, err
	}
	future, _ := s.revenue.Run(ctx, "revenue_today", actor.ID, 0, pipeline.Stage[float64]{
		Name: "sum_revenue",
		Run: func(ctx context.Context, _ float64) (float64, error) {
			return s.revenueToday(ctx)
		},
	})
	return future, nil
}

func (s *AnalyticsService) topSelling(ctx context.Context) ([]ItemSales, error) {
	orders, err := s.orders.Orders(ctx)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, o := range orders {
		if o.Status != model.OrderStatusServed && o.Status != model.OrderStatusPaid {
			continue
		}
		for _, item := range o.Items {
			counts[item.Name]++
		}
	}

	out := make([]ItemSales, 0, len(counts))
	for name, n := range counts {
		out = append(out, ItemSales{Name: name, Count: n})
	}
	slices.SortFunc(out, func(a, b ItemSales) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return out, nil
}

func (s *AnalyticsService) revenueToday(ctx context.Context) (float64, error) {
	orders, err := s.orders.Orders(ctx)
	if err != nil {
		return 0, err
	}

	now := s.now()
	year, month, day := now.Date()
	var total float64
	for _, o := range orders {
		if o.Status != model.OrderStatusPaid {
			continue
		}
		y, m, d := o.CreatedAt.In(now.Location()).Date()
		if y == year && m == month && d == day {
			total += o.Total()
		}
	}
	return total, nil
}
