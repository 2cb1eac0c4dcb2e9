package service

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"barpos-backend/internal/domain"
	"log/slog"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type orderFixture struct {
	products *memProducts
	orders   *memOrders
	sessions *memSessions
	svc      *OrderService
}

func newOrderFixture(t *testing.T, products ...domain.Product) *orderFixture {
	t.Helper()
	mp := newMemProducts(products...)
	mo := newMemOrders(mp)
	ms := newMemSessions()
	return &orderFixture{
		products: mp,
		orders:   mo,
		sessions: ms,
		svc:      NewOrderService(mo, mp, ms, 20, testLogger()),
	}
}

func (f *orderFixture) startDay(t *testing.T) {
	t.Helper()
	if _, err := f.sessions.Insert(context.Background(), 1, time.Now()); err != nil {
		t.Fatalf("start day: %v", err)
	}
}

func beer() domain.Product {
	return domain.Product{ID: 1, Name: "Heineken", Price: domain.MoneyFromDecimal(5.00), Quantity: 10}
}

func wine() domain.Product {
	return domain.Product{ID: 2, Name: "Rioja", Price: domain.MoneyFromDecimal(12.50), Quantity: 4}
}

func TestCreateOrderRequiresActiveSession(t *testing.T) {
	f := newOrderFixture(t, beer())

	_, err := f.svc.Create(context.Background(), CreateOrderInput{
		StaffID:     1,
		TableNumber: 3,
		Items:       []OrderLine{{ProductID: 1, Quantity: 2}},
	})
	if !errors.Is(err, domain.ErrNoActiveSession) {
		t.Fatalf("expected ErrNoActiveSession, got %v", err)
	}
}

func TestCreateOrderSnapshotsPriceAndReservesStock(t *testing.T) {
	f := newOrderFixture(t, beer())
	f.startDay(t)

	ow, err := f.svc.Create(context.Background(), CreateOrderInput{
		StaffID:     1,
		TableNumber: 3,
		Items:       []OrderLine{{ProductID: 1, Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if got, want := ow.Order.Total, domain.MoneyFromDecimal(10.00); got != want {
		t.Fatalf("total = %v, want %v", got, want)
	}
	if len(ow.Items) != 1 || ow.Items[0].PriceAtSale != domain.MoneyFromDecimal(5.00) {
		t.Fatalf("unexpected items: %+v", ow.Items)
	}
	if got := f.products.stock(1); got != 8 {
		t.Fatalf("stock = %d, want 8", got)
	}
}

func TestCreateOrderRejectsSecondOpenOrderOnTable(t *testing.T) {
	f := newOrderFixture(t, beer())
	f.startDay(t)

	in := CreateOrderInput{StaffID: 1, TableNumber: 3, Items: []OrderLine{{ProductID: 1, Quantity: 1}}}
	if _, err := f.svc.Create(context.Background(), in); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := f.svc.Create(context.Background(), in)
	if !errors.Is(err, domain.ErrTableAlreadyOpen) {
		t.Fatalf("expected ErrTableAlreadyOpen, got %v", err)
	}
}

func TestCreateOrderTableOutOfRange(t *testing.T) {
	f := newOrderFixture(t, beer())
	f.startDay(t)

	for _, table := range []int{0, -1, 21} {
		_, err := f.svc.Create(context.Background(), CreateOrderInput{
			StaffID:     1,
			TableNumber: table,
			Items:       []OrderLine{{ProductID: 1, Quantity: 1}},
		})
		if !errors.Is(err, domain.ErrTableOutOfRange) {
			t.Fatalf("table %d: expected ErrTableOutOfRange, got %v", table, err)
		}
	}
}

func TestCreateOrderInsufficientStockIsAllOrNothing(t *testing.T) {
	f := newOrderFixture(t, beer(), wine())
	f.startDay(t)

	_, err := f.svc.Create(context.Background(), CreateOrderInput{
		StaffID:     1,
		TableNumber: 3,
		Items: []OrderLine{
			{ProductID: 1, Quantity: 2},
			{ProductID: 2, Quantity: 5},
		},
	})
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	var stockErr *domain.InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected InsufficientStockError, got %T", err)
	}
	if stockErr.ProductName != "Rioja" || stockErr.Requested != 5 || stockErr.Available != 4 {
		t.Fatalf("unexpected detail: %+v", stockErr)
	}
	if f.products.stock(1) != 10 || f.products.stock(2) != 4 {
		t.Fatalf("stock must be untouched, got %d and %d", f.products.stock(1), f.products.stock(2))
	}
}

func TestCreateOrderExactStockBoundary(t *testing.T) {
	p := beer()
	p.Quantity = 10
	f := newOrderFixture(t, p)
	f.startDay(t)

	// 8 units already held by another table.
	if _, err := f.svc.Create(context.Background(), CreateOrderInput{
		StaffID:     1,
		TableNumber: 1,
		Items:       []OrderLine{{ProductID: 1, Quantity: 8}},
	}); err != nil {
		t.Fatalf("first create: %v", err)
	}

	_, err := f.svc.Create(context.Background(), CreateOrderInput{
		StaffID:     1,
		TableNumber: 2,
		Items:       []OrderLine{{ProductID: 1, Quantity: 3}},
	})
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock for 3, got %v", err)
	}

	if _, err := f.svc.Create(context.Background(), CreateOrderInput{
		StaffID:     1,
		TableNumber: 2,
		Items:       []OrderLine{{ProductID: 1, Quantity: 2}},
	}); err != nil {
		t.Fatalf("create for remaining 2: %v", err)
	}
	if got := f.products.stock(1); got != 0 {
		t.Fatalf("stock = %d, want 0", got)
	}
}

func TestCreateOrderMergesDuplicateLines(t *testing.T) {
	f := newOrderFixture(t, beer())
	f.startDay(t)

	ow, err := f.svc.Create(context.Background(), CreateOrderInput{
		StaffID:     1,
		TableNumber: 3,
		Items: []OrderLine{
			{ProductID: 1, Quantity: 1},
			{ProductID: 1, Quantity: 2},
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(ow.Items) != 1 || ow.Items[0].Quantity != 3 {
		t.Fatalf("expected one merged line of 3, got %+v", ow.Items)
	}
}

func TestCreateOrderRejectsNonPositiveQuantity(t *testing.T) {
	f := newOrderFixture(t, beer())
	f.startDay(t)

	_, err := f.svc.Create(context.Background(), CreateOrderInput{
		StaffID:     1,
		TableNumber: 3,
		Items:       []OrderLine{{ProductID: 1, Quantity: 0}},
	})
	if err == nil {
		t.Fatal("expected error for zero quantity")
	}
}

func TestAddItemsKeepsOriginalSalePrice(t *testing.T) {
	f := newOrderFixture(t, beer())
	f.startDay(t)

	ow, err := f.svc.Create(context.Background(), CreateOrderInput{
		StaffID:     1,
		TableNumber: 3,
		Items:       []OrderLine{{ProductID: 1, Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Price rises after the order is opened.
	p := f.products.products[1]
	p.Price = domain.MoneyFromDecimal(6.00)
	f.products.products[1] = p

	ow, err = f.svc.AddItems(context.Background(), ow.Order.ID, []OrderLine{{ProductID: 1, Quantity: 1}})
	if err != nil {
		t.Fatalf("add items: %v", err)
	}
	if len(ow.Items) != 1 || ow.Items[0].Quantity != 3 {
		t.Fatalf("expected merged line of 3, got %+v", ow.Items)
	}
	if ow.Items[0].PriceAtSale != domain.MoneyFromDecimal(5.00) {
		t.Fatalf("price must stay at the captured 5.00, got %v", ow.Items[0].PriceAtSale)
	}
	if got, want := ow.Order.Total, domain.MoneyFromDecimal(15.00); got != want {
		t.Fatalf("total = %v, want %v", got, want)
	}
}

func TestAddItemsNewProductUsesCurrentPrice(t *testing.T) {
	f := newOrderFixture(t, beer(), wine())
	f.startDay(t)

	ow, err := f.svc.Create(context.Background(), CreateOrderInput{
		StaffID:     1,
		TableNumber: 3,
		Items:       []OrderLine{{ProductID: 1, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	ow, err = f.svc.AddItems(context.Background(), ow.Order.ID, []OrderLine{{ProductID: 2, Quantity: 2}})
	if err != nil {
		t.Fatalf("add items: %v", err)
	}
	if len(ow.Items) != 2 {
		t.Fatalf("expected two lines, got %+v", ow.Items)
	}
	if got, want := ow.Order.Total, domain.MoneyFromDecimal(30.00); got != want {
		t.Fatalf("total = %v, want %v", got, want)
	}
	if f.products.stock(2) != 2 {
		t.Fatalf("wine stock = %d, want 2", f.products.stock(2))
	}
}

func TestAddItemsToPaidOrderFails(t *testing.T) {
	f := newOrderFixture(t, beer())
	f.startDay(t)

	ow, err := f.svc.Create(context.Background(), CreateOrderInput{
		StaffID:     1,
		TableNumber: 3,
		Items:       []OrderLine{{ProductID: 1, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.svc.MarkPaid(context.Background(), ow.Order.ID); err != nil {
		t.Fatalf("pay: %v", err)
	}
	_, err = f.svc.AddItems(context.Background(), ow.Order.ID, []OrderLine{{ProductID: 1, Quantity: 1}})
	if !errors.Is(err, domain.ErrOrderNotOpen) {
		t.Fatalf("expected ErrOrderNotOpen, got %v", err)
	}
}

func TestIncreaseItemConsumesStock(t *testing.T) {
	f := newOrderFixture(t, beer())
	f.startDay(t)

	ow, err := f.svc.Create(context.Background(), CreateOrderInput{
		StaffID:     1,
		TableNumber: 3,
		Items:       []OrderLine{{ProductID: 1, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	ow, err = f.svc.IncreaseItem(context.Background(), ow.Items[0].ID)
	if err != nil {
		t.Fatalf("increase: %v", err)
	}
	if ow.Items[0].Quantity != 2 {
		t.Fatalf("quantity = %d, want 2", ow.Items[0].Quantity)
	}
	if got, want := ow.Order.Total, domain.MoneyFromDecimal(10.00); got != want {
		t.Fatalf("total = %v, want %v", got, want)
	}
	if f.products.stock(1) != 8 {
		t.Fatalf("stock = %d, want 8", f.products.stock(1))
	}
}

func TestIncreaseItemOutOfStock(t *testing.T) {
	p := beer()
	p.Quantity = 1
	f := newOrderFixture(t, p)
	f.startDay(t)

	ow, err := f.svc.Create(context.Background(), CreateOrderInput{
		StaffID:     1,
		TableNumber: 3,
		Items:       []OrderLine{{ProductID: 1, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err = f.svc.IncreaseItem(context.Background(), ow.Items[0].ID)
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
}

func TestDecreaseItemReturnsStock(t *testing.T) {
	f := newOrderFixture(t, beer())
	f.startDay(t)

	ow, err := f.svc.Create(context.Background(), CreateOrderInput{
		StaffID:     1,
		TableNumber: 3,
		Items:       []OrderLine{{ProductID: 1, Quantity: 3}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	ow, err = f.svc.DecreaseItem(context.Background(), ow.Items[0].ID)
	if err != nil {
		t.Fatalf("decrease: %v", err)
	}
	if ow.Items[0].Quantity != 2 {
		t.Fatalf("quantity = %d, want 2", ow.Items[0].Quantity)
	}
	if got, want := ow.Order.Total, domain.MoneyFromDecimal(10.00); got != want {
		t.Fatalf("total = %v, want %v", got, want)
	}
	if f.products.stock(1) != 8 {
		t.Fatalf("stock = %d, want 8", f.products.stock(1))
	}
}

func TestDecreaseLastItemDeletesOrder(t *testing.T) {
	f := newOrderFixture(t, beer())
	f.startDay(t)

	ow, err := f.svc.Create(context.Background(), CreateOrderInput{
		StaffID:     1,
		TableNumber: 3,
		Items:       []OrderLine{{ProductID: 1, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	orderID := ow.Order.ID

	got, err := f.svc.DecreaseItem(context.Background(), ow.Items[0].ID)
	if err != nil {
		t.Fatalf("decrease: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil order after deletion, got %+v", got)
	}
	if _, err := f.svc.Get(context.Background(), orderID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for deleted order, got %v", err)
	}
	if f.products.stock(1) != 10 {
		t.Fatalf("stock = %d, want full 10 back", f.products.stock(1))
	}

	// Table is free again.
	if _, err := f.svc.Create(context.Background(), CreateOrderInput{
		StaffID:     1,
		TableNumber: 3,
		Items:       []OrderLine{{ProductID: 1, Quantity: 1}},
	}); err != nil {
		t.Fatalf("reopen table: %v", err)
	}
}

func TestMarkPaidIsTerminal(t *testing.T) {
	f := newOrderFixture(t, beer())
	f.startDay(t)

	ow, err := f.svc.Create(context.Background(), CreateOrderInput{
		StaffID:     1,
		TableNumber: 3,
		Items:       []OrderLine{{ProductID: 1, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	ow, err = f.svc.MarkPaid(context.Background(), ow.Order.ID)
	if err != nil {
		t.Fatalf("pay: %v", err)
	}
	if ow.Order.Status != domain.OrderPaid {
		t.Fatalf("status = %s, want paid", ow.Order.Status)
	}
	if _, err := f.svc.MarkPaid(context.Background(), ow.Order.ID); !errors.Is(err, domain.ErrOrderNotOpen) {
		t.Fatalf("expected ErrOrderNotOpen on double pay, got %v", err)
	}
	if _, err := f.svc.IncreaseItem(context.Background(), ow.Items[0].ID); !errors.Is(err, domain.ErrOrderNotOpen) {
		t.Fatalf("expected ErrOrderNotOpen on increase after pay, got %v", err)
	}
}

func TestPaidOrderFreesTable(t *testing.T) {
	f := newOrderFixture(t, beer())
	f.startDay(t)

	ow, err := f.svc.Create(context.Background(), CreateOrderInput{
		StaffID:     1,
		TableNumber: 3,
		Items:       []OrderLine{{ProductID: 1, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.svc.MarkPaid(context.Background(), ow.Order.ID); err != nil {
		t.Fatalf("pay: %v", err)
	}
	if _, err := f.svc.Create(context.Background(), CreateOrderInput{
		StaffID:     1,
		TableNumber: 3,
		Items:       []OrderLine{{ProductID: 1, Quantity: 1}},
	}); err != nil {
		t.Fatalf("expected table free after payment, got %v", err)
	}
}

func TestListByDateRangeValidatesDates(t *testing.T) {
	f := newOrderFixture(t, beer())

	if _, err := f.svc.ListByDateRange(context.Background(), "not-a-date", "2026-01-02"); err == nil {
		t.Fatal("expected error for invalid from date")
	}
	if _, err := f.svc.ListByDateRange(context.Background(), "2026-01-01", "02-01-2026"); err == nil {
		t.Fatal("expected error for invalid to date")
	}
}
