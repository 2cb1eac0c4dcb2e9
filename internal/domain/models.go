package domain

import "time"

const (
	OrderOpen OrderStatus = "open"
	OrderPaid OrderStatus = "paid"
)

type OrderStatus string

type Category struct {
	ID   int64
	Name string
}

type Product struct {
	ID                int64
	Name              string
	Price             Money
	Quantity          int
	CategoryID        *int64
	CategoryName      *string
	LowStockThreshold int
	CreatedAt         time.Time
}

type Staff struct {
	ID        int64
	Name      string
	PinHash   *string
	CreatedAt time.Time
}

type Order struct {
	ID           int64
	StaffID      int64
	StaffName    *string
	SessionID    *int64
	TableNumber  int
	Total        Money
	CustomerName *string
	Notes        *string
	Status       OrderStatus
	CreatedAt    time.Time
}

// OrderItem captures the product price at the moment the line was added.
// Historical totals never join back to the live product price.
type OrderItem struct {
	ID          int64
	OrderID     int64
	ProductID   int64
	ProductName *string
	Quantity    int
	PriceAtSale Money
}

type OrderWithItems struct {
	Order Order
	Items []OrderItem
}

// DaySession is a bounded trading-day window. At most one session is active
// at any time; TotalRevenue and TotalOrders are frozen at close.
type DaySession struct {
	ID            int64
	Date          *string
	StartedBy     int64
	StartedByName *string
	StartedAt     time.Time
	ClosedAt      *time.Time
	IsActive      bool
	TotalRevenue  *Money
	TotalOrders   *int
}

type DaySummary struct {
	Date         string
	TotalRevenue Money
	TotalOrders  int
	Orders       []OrderWithItems
}

// ProductSales is one row of the per-product rollup across a set of orders.
type ProductSales struct {
	ProductName string
	Quantity    int
	Revenue     Money
}
