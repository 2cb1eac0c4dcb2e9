package handler

import "barpos-backend/internal/domain"

// View helpers shared by the order, session, and report handlers. Money
// leaves the API as decimal units; internally it stays in minor units.

func itemView(it domain.OrderItem) map[string]any {
	return map[string]any{
		"id":          it.ID,
		"orderId":     it.OrderID,
		"productId":   it.ProductID,
		"productName": it.ProductName,
		"quantity":    it.Quantity,
		"priceAtSale": it.PriceAtSale.Decimal(),
	}
}

func orderView(ow domain.OrderWithItems) map[string]any {
	items := make([]map[string]any, 0, len(ow.Items))
	for _, it := range ow.Items {
		items = append(items, itemView(it))
	}
	return map[string]any{
		"id":           ow.Order.ID,
		"staffId":      ow.Order.StaffID,
		"staffName":    ow.Order.StaffName,
		"sessionId":    ow.Order.SessionID,
		"tableNumber":  ow.Order.TableNumber,
		"total":        ow.Order.Total.Decimal(),
		"customerName": ow.Order.CustomerName,
		"notes":        ow.Order.Notes,
		"status":       ow.Order.Status,
		"createdAt":    ow.Order.CreatedAt,
		"items":        items,
	}
}

func orderListView(orders []domain.OrderWithItems) []map[string]any {
	resp := make([]map[string]any, 0, len(orders))
	for _, ow := range orders {
		resp = append(resp, orderView(ow))
	}
	return resp
}

func sessionView(s domain.DaySession) map[string]any {
	v := map[string]any{
		"id":            s.ID,
		"date":          s.Date,
		"startedBy":     s.StartedBy,
		"startedByName": s.StartedByName,
		"startedAt":     s.StartedAt,
		"closedAt":      s.ClosedAt,
		"isActive":      s.IsActive,
	}
	if s.TotalRevenue != nil {
		v["totalRevenue"] = s.TotalRevenue.Decimal()
	} else {
		v["totalRevenue"] = nil
	}
	v["totalOrders"] = s.TotalOrders
	return v
}

func productView(p domain.Product) map[string]any {
	return map[string]any{
		"id":                p.ID,
		"name":              p.Name,
		"price":             p.Price.Decimal(),
		"quantity":          p.Quantity,
		"categoryId":        p.CategoryID,
		"categoryName":      p.CategoryName,
		"lowStockThreshold": p.LowStockThreshold,
		"createdAt":         p.CreatedAt,
	}
}

func staffView(s domain.Staff) map[string]any {
	return map[string]any{
		"id":        s.ID,
		"name":      s.Name,
		"hasPin":    s.PinHash != nil,
		"createdAt": s.CreatedAt,
	}
}

func productSalesView(rows []domain.ProductSales) []map[string]any {
	resp := make([]map[string]any, 0, len(rows))
	for _, ps := range rows {
		resp = append(resp, map[string]any{
			"productName": ps.ProductName,
			"quantity":    ps.Quantity,
			"revenue":     ps.Revenue.Decimal(),
		})
	}
	return resp
}

func summaryView(sum domain.DaySummary, products []domain.ProductSales) map[string]any {
	return map[string]any{
		"date":         sum.Date,
		"totalRevenue": sum.TotalRevenue.Decimal(),
		"totalOrders":  sum.TotalOrders,
		"orders":       orderListView(sum.Orders),
		"productSales": productSalesView(products),
	}
}
