package service

import (
	"context"
	"sort"
	"time"

	"barpos-backend/internal/domain"
)

// ReportService builds read-only rollups from order data. Everything here
// is a pure function of its input and safe to re-run.
type ReportService struct {
	Orders   OrderStore
	Sessions SessionStore
}

func NewReportService(orders OrderStore, sessions SessionStore) *ReportService {
	return &ReportService{Orders: orders, Sessions: sessions}
}

// BuildDaySummary rolls a session and its orders into one summary. Closed
// sessions keep their frozen totals; active ones are summed live.
func BuildDaySummary(sess *domain.DaySession, orders []domain.OrderWithItems) domain.DaySummary {
	date := ""
	if sess.Date != nil {
		date = *sess.Date
	} else {
		date = sess.StartedAt.Format("2006-01-02")
	}

	summary := domain.DaySummary{Date: date, Orders: orders}
	if sess.TotalRevenue != nil && sess.TotalOrders != nil {
		summary.TotalRevenue = *sess.TotalRevenue
		summary.TotalOrders = *sess.TotalOrders
		return summary
	}
	for _, ow := range orders {
		summary.TotalRevenue += ow.Order.Total
	}
	summary.TotalOrders = len(orders)
	return summary
}

// AggregateProductSales groups items across orders by product name, summing
// quantity and revenue at the captured sale price, ordered by revenue
// descending. Ties keep first-encountered order.
func AggregateProductSales(orders []domain.OrderWithItems) []domain.ProductSales {
	index := make(map[string]int)
	var result []domain.ProductSales
	for _, ow := range orders {
		for _, it := range ow.Items {
			name := ""
			if it.ProductName != nil {
				name = *it.ProductName
			}
			revenue := it.PriceAtSale * domain.Money(it.Quantity)
			if i, ok := index[name]; ok {
				result[i].Quantity += it.Quantity
				result[i].Revenue += revenue
				continue
			}
			index[name] = len(result)
			result = append(result, domain.ProductSales{
				ProductName: name,
				Quantity:    it.Quantity,
				Revenue:     revenue,
			})
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Revenue > result[j].Revenue
	})
	return result
}

// SummaryForSession builds the day summary for a specific session.
func (s *ReportService) SummaryForSession(ctx context.Context, sessionID int64) (*domain.DaySummary, error) {
	sess, err := s.Sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	orders, err := s.Orders.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	summary := BuildDaySummary(sess, orders)
	return &summary, nil
}

// SummaryForDate builds a summary for a calendar date, whether or not a
// session record exists for it.
func (s *ReportService) SummaryForDate(ctx context.Context, date string) (*domain.DaySummary, error) {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, err
	}
	orders, err := s.Orders.ListByDate(ctx, date)
	if err != nil {
		return nil, err
	}
	summary := domain.DaySummary{Date: date, Orders: orders}
	for _, ow := range orders {
		summary.TotalRevenue += ow.Order.Total
	}
	summary.TotalOrders = len(orders)
	return &summary, nil
}
