package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"barpos-backend/internal/domain"
	"barpos-backend/internal/repository"
)

// OrderStore is the persistence surface the order state machine needs.
// Implemented by repository.OrderRepository; faked in tests.
type OrderStore interface {
	CreateOrder(ctx context.Context, in repository.CreateOrderInput) (*domain.OrderWithItems, error)
	ApplyMutation(ctx context.Context, m repository.OrderMutation) error
	MarkPaid(ctx context.Context, id int64) error
	UpdateNotes(ctx context.Context, id int64, customerName, notes *string) error
	GetOrder(ctx context.Context, id int64) (*domain.OrderWithItems, error)
	GetItem(ctx context.Context, itemID int64) (*domain.OrderItem, error)
	OpenOrderExists(ctx context.Context, tableNumber int) (bool, error)
	ListOpen(ctx context.Context) ([]domain.OrderWithItems, error)
	ListBySession(ctx context.Context, sessionID int64) ([]domain.OrderWithItems, error)
	ListByDate(ctx context.Context, date string) ([]domain.OrderWithItems, error)
	ListByDateRange(ctx context.Context, from, to string) ([]domain.OrderWithItems, error)
	SessionTotals(ctx context.Context, sessionID int64) (domain.Money, int, error)
	DateTotals(ctx context.Context, date string) (domain.Money, int, int, int64, error)
}

// ProductStore is the stock ledger surface consumed by order operations.
type ProductStore interface {
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	GetByIDs(ctx context.Context, ids []int64) (map[int64]domain.Product, error)
}

type OrderLine struct {
	ProductID int64
	Quantity  int
}

type CreateOrderInput struct {
	StaffID      int64
	TableNumber  int
	CustomerName *string
	Notes        *string
	Items        []OrderLine
}

// OrderService is the order state machine: one open order per table, price
// snapshots at item-add time, all-or-nothing stock reservation, and deletion
// of an order when its last line is removed.
type OrderService struct {
	Orders   OrderStore
	Products ProductStore
	Sessions SessionStore

	TableCount int
	Logger     *slog.Logger

	locks *keyedMutex
}

func NewOrderService(orders OrderStore, products ProductStore, sessions SessionStore, tableCount int, logger *slog.Logger) *OrderService {
	return &OrderService{
		Orders:     orders,
		Products:   products,
		Sessions:   sessions,
		TableCount: tableCount,
		Logger:     logger,
		locks:      newKeyedMutex(),
	}
}

func tableKey(n int) string { return fmt.Sprintf("table:%d", n) }
func orderKey(id int64) string { return fmt.Sprintf("order:%d", id) }

func (s *OrderService) Create(ctx context.Context, in CreateOrderInput) (*domain.OrderWithItems, error) {
	if in.TableNumber < 1 || in.TableNumber > s.TableCount {
		return nil, domain.ErrTableOutOfRange
	}
	lines, err := mergeLines(in.Items)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, errors.New("order must contain at least one item")
	}

	unlock := s.locks.lock(tableKey(in.TableNumber))
	defer unlock()

	sess, err := s.Sessions.Active(ctx)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, domain.ErrNoActiveSession
	}

	open, err := s.Orders.OpenOrderExists(ctx, in.TableNumber)
	if err != nil {
		return nil, err
	}
	if open {
		return nil, domain.ErrTableAlreadyOpen
	}

	items, deltas, total, err := s.priceLines(ctx, lines)
	if err != nil {
		return nil, err
	}

	ow, err := s.Orders.CreateOrder(ctx, repository.CreateOrderInput{
		StaffID:      in.StaffID,
		SessionID:    sess.ID,
		TableNumber:  in.TableNumber,
		Total:        total,
		CustomerName: in.CustomerName,
		Notes:        in.Notes,
		Items:        items,
		StockDeltas:  deltas,
	})
	if err != nil {
		return nil, err
	}
	s.Logger.Info("order created", "order_id", ow.Order.ID, "table", in.TableNumber, "total", total.Decimal())
	return ow, nil
}

// priceLines validates stock for every requested line and snapshots current
// prices. The check is advisory; the conditional stock update inside the
// store transaction is the authoritative guard.
func (s *OrderService) priceLines(ctx context.Context, lines []OrderLine) ([]repository.OrderItemUpsert, []repository.StockDelta, domain.Money, error) {
	ids := make([]int64, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	products, err := s.Products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, nil, 0, err
	}

	var total domain.Money
	items := make([]repository.OrderItemUpsert, 0, len(lines))
	deltas := make([]repository.StockDelta, 0, len(lines))
	for _, l := range lines {
		p, ok := products[l.ProductID]
		if !ok {
			return nil, nil, 0, fmt.Errorf("product %d: %w", l.ProductID, domain.ErrNotFound)
		}
		if p.Quantity < l.Quantity {
			return nil, nil, 0, &domain.InsufficientStockError{
				ProductID:   p.ID,
				ProductName: p.Name,
				Requested:   l.Quantity,
				Available:   p.Quantity,
			}
		}
		items = append(items, repository.OrderItemUpsert{
			ProductID:   l.ProductID,
			Quantity:    l.Quantity,
			PriceAtSale: p.Price,
		})
		deltas = append(deltas, repository.StockDelta{ProductID: l.ProductID, Delta: -l.Quantity})
		total += p.Price * domain.Money(l.Quantity)
	}
	return items, deltas, total, nil
}

// AddItems merges new lines into an open order. A product already on the
// order increments its existing line at the originally captured price; new
// products snapshot the current price.
func (s *OrderService) AddItems(ctx context.Context, orderID int64, reqLines []OrderLine) (*domain.OrderWithItems, error) {
	lines, err := mergeLines(reqLines)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, errors.New("no items to add")
	}

	unlock := s.locks.lock(orderKey(orderID))
	defer unlock()

	ow, err := s.Orders.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrOrderNotOpen
		}
		return nil, err
	}
	if ow.Order.Status != domain.OrderOpen {
		return nil, domain.ErrOrderNotOpen
	}

	ids := make([]int64, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	products, err := s.Products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	existing := make(map[int64]domain.OrderItem, len(ow.Items))
	for _, it := range ow.Items {
		existing[it.ProductID] = it
	}

	m := repository.OrderMutation{OrderID: orderID, NewTotal: ow.Order.Total}
	for _, l := range lines {
		p, ok := products[l.ProductID]
		if !ok {
			return nil, fmt.Errorf("product %d: %w", l.ProductID, domain.ErrNotFound)
		}
		if p.Quantity < l.Quantity {
			return nil, &domain.InsufficientStockError{
				ProductID:   p.ID,
				ProductName: p.Name,
				Requested:   l.Quantity,
				Available:   p.Quantity,
			}
		}
		if prev, ok := existing[l.ProductID]; ok {
			m.Upserts = append(m.Upserts, repository.OrderItemUpsert{
				ID:          prev.ID,
				ProductID:   l.ProductID,
				Quantity:    prev.Quantity + l.Quantity,
				PriceAtSale: prev.PriceAtSale,
			})
			m.NewTotal += prev.PriceAtSale * domain.Money(l.Quantity)
		} else {
			m.Upserts = append(m.Upserts, repository.OrderItemUpsert{
				ProductID:   l.ProductID,
				Quantity:    l.Quantity,
				PriceAtSale: p.Price,
			})
			m.NewTotal += p.Price * domain.Money(l.Quantity)
		}
		m.StockDeltas = append(m.StockDeltas, repository.StockDelta{ProductID: l.ProductID, Delta: -l.Quantity})
	}

	if err := s.Orders.ApplyMutation(ctx, m); err != nil {
		return nil, err
	}
	return s.Orders.GetOrder(ctx, orderID)
}

// IncreaseItem adds one unit to a line, consuming one unit of stock.
func (s *OrderService) IncreaseItem(ctx context.Context, itemID int64) (*domain.OrderWithItems, error) {
	it, err := s.Orders.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.lock(orderKey(it.OrderID))
	defer unlock()

	ow, line, err := s.openOrderLine(ctx, it.OrderID, itemID)
	if err != nil {
		return nil, err
	}

	p, err := s.Products.GetByID(ctx, line.ProductID)
	if err != nil {
		return nil, err
	}
	if p.Quantity < 1 {
		return nil, &domain.InsufficientStockError{
			ProductID:   p.ID,
			ProductName: p.Name,
			Requested:   1,
			Available:   p.Quantity,
		}
	}

	m := repository.OrderMutation{
		OrderID:  ow.Order.ID,
		NewTotal: ow.Order.Total + line.PriceAtSale,
		Upserts: []repository.OrderItemUpsert{{
			ID:          line.ID,
			ProductID:   line.ProductID,
			Quantity:    line.Quantity + 1,
			PriceAtSale: line.PriceAtSale,
		}},
		StockDeltas: []repository.StockDelta{{ProductID: line.ProductID, Delta: -1}},
	}
	if err := s.Orders.ApplyMutation(ctx, m); err != nil {
		return nil, err
	}
	return s.Orders.GetOrder(ctx, ow.Order.ID)
}

// DecreaseItem removes one unit from a line, returning it to stock. A line
// reaching zero is removed; removing the order's last line deletes the
// order, in which case the returned order is nil.
func (s *OrderService) DecreaseItem(ctx context.Context, itemID int64) (*domain.OrderWithItems, error) {
	it, err := s.Orders.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.lock(orderKey(it.OrderID))
	defer unlock()

	ow, line, err := s.openOrderLine(ctx, it.OrderID, itemID)
	if err != nil {
		return nil, err
	}

	m := repository.OrderMutation{
		OrderID:     ow.Order.ID,
		NewTotal:    ow.Order.Total - line.PriceAtSale,
		StockDeltas: []repository.StockDelta{{ProductID: line.ProductID, Delta: 1}},
	}
	if line.Quantity > 1 {
		m.Upserts = []repository.OrderItemUpsert{{
			ID:          line.ID,
			ProductID:   line.ProductID,
			Quantity:    line.Quantity - 1,
			PriceAtSale: line.PriceAtSale,
		}}
	} else {
		m.DeleteItemIDs = []int64{line.ID}
		if len(ow.Items) == 1 {
			m.DeleteOrder = true
		}
	}

	if err := s.Orders.ApplyMutation(ctx, m); err != nil {
		return nil, err
	}
	if m.DeleteOrder {
		s.Logger.Info("order deleted after last item removed", "order_id", ow.Order.ID, "table", ow.Order.TableNumber)
		return nil, nil
	}
	return s.Orders.GetOrder(ctx, ow.Order.ID)
}

func (s *OrderService) openOrderLine(ctx context.Context, orderID, itemID int64) (*domain.OrderWithItems, *domain.OrderItem, error) {
	ow, err := s.Orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	if ow.Order.Status != domain.OrderOpen {
		return nil, nil, domain.ErrOrderNotOpen
	}
	for i := range ow.Items {
		if ow.Items[i].ID == itemID {
			return ow, &ow.Items[i], nil
		}
	}
	// Item vanished between lookup and lock acquisition.
	return nil, nil, domain.ErrNotFound
}

// MarkPaid flips open → paid. Paid is terminal; the total is frozen.
func (s *OrderService) MarkPaid(ctx context.Context, orderID int64) (*domain.OrderWithItems, error) {
	unlock := s.locks.lock(orderKey(orderID))
	defer unlock()

	if err := s.Orders.MarkPaid(ctx, orderID); err != nil {
		return nil, err
	}
	return s.Orders.GetOrder(ctx, orderID)
}

func (s *OrderService) UpdateNotes(ctx context.Context, orderID int64, customerName, notes *string) (*domain.OrderWithItems, error) {
	if err := s.Orders.UpdateNotes(ctx, orderID, customerName, notes); err != nil {
		return nil, err
	}
	return s.Orders.GetOrder(ctx, orderID)
}

func (s *OrderService) Get(ctx context.Context, orderID int64) (*domain.OrderWithItems, error) {
	return s.Orders.GetOrder(ctx, orderID)
}

func (s *OrderService) ListOpen(ctx context.Context) ([]domain.OrderWithItems, error) {
	return s.Orders.ListOpen(ctx)
}

func (s *OrderService) ListByDateRange(ctx context.Context, from, to string) ([]domain.OrderWithItems, error) {
	if _, err := time.Parse("2006-01-02", from); err != nil {
		return nil, fmt.Errorf("invalid from date %q", from)
	}
	if _, err := time.Parse("2006-01-02", to); err != nil {
		return nil, fmt.Errorf("invalid to date %q", to)
	}
	return s.Orders.ListByDateRange(ctx, from, to)
}

// mergeLines combines duplicate products in one request into single lines.
func mergeLines(lines []OrderLine) ([]OrderLine, error) {
	merged := make([]OrderLine, 0, len(lines))
	index := make(map[int64]int, len(lines))
	for _, l := range lines {
		if l.Quantity <= 0 {
			return nil, fmt.Errorf("item quantity must be positive, got %d", l.Quantity)
		}
		if i, ok := index[l.ProductID]; ok {
			merged[i].Quantity += l.Quantity
			continue
		}
		index[l.ProductID] = len(merged)
		merged = append(merged, l)
	}
	return merged, nil
}
