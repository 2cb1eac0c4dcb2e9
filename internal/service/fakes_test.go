package service

import (
	"context"
	"sort"
	"time"

	"barpos-backend/internal/domain"
	"barpos-backend/internal/repository"
)

// In-memory store fakes mirroring the transactional guarantees of the
// Postgres repositories: all-or-nothing stock application, unique open
// table, conditional status transitions.

type memProducts struct {
	products map[int64]domain.Product
}

func newMemProducts(products ...domain.Product) *memProducts {
	m := &memProducts{products: make(map[int64]domain.Product)}
	for _, p := range products {
		m.products[p.ID] = p
	}
	return m
}

func (m *memProducts) GetByID(_ context.Context, id int64) (*domain.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (m *memProducts) GetByIDs(_ context.Context, ids []int64) (map[int64]domain.Product, error) {
	out := make(map[int64]domain.Product, len(ids))
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (m *memProducts) stock(id int64) int {
	return m.products[id].Quantity
}

type memOrders struct {
	products *memProducts

	nextOrderID int64
	nextItemID  int64
	orders      map[int64]*domain.Order
	items       map[int64][]domain.OrderItem
}

func newMemOrders(products *memProducts) *memOrders {
	return &memOrders{
		products:    products,
		nextOrderID: 1,
		nextItemID:  1,
		orders:      make(map[int64]*domain.Order),
		items:       make(map[int64][]domain.OrderItem),
	}
}

func (m *memOrders) applyStockDeltas(deltas []repository.StockDelta) error {
	for _, d := range deltas {
		p, ok := m.products.products[d.ProductID]
		if !ok {
			return domain.ErrNotFound
		}
		if p.Quantity+d.Delta < 0 {
			return &domain.InsufficientStockError{
				ProductID:   p.ID,
				ProductName: p.Name,
				Requested:   -d.Delta,
				Available:   p.Quantity,
			}
		}
	}
	for _, d := range deltas {
		p := m.products.products[d.ProductID]
		p.Quantity += d.Delta
		m.products.products[d.ProductID] = p
	}
	return nil
}

func (m *memOrders) CreateOrder(_ context.Context, in repository.CreateOrderInput) (*domain.OrderWithItems, error) {
	for _, o := range m.orders {
		if o.TableNumber == in.TableNumber && o.Status == domain.OrderOpen {
			return nil, domain.ErrTableAlreadyOpen
		}
	}
	if err := m.applyStockDeltas(in.StockDeltas); err != nil {
		return nil, err
	}

	o := domain.Order{
		ID:           m.nextOrderID,
		StaffID:      in.StaffID,
		SessionID:    &in.SessionID,
		TableNumber:  in.TableNumber,
		Total:        in.Total,
		CustomerName: in.CustomerName,
		Notes:        in.Notes,
		Status:       domain.OrderOpen,
		CreatedAt:    time.Now(),
	}
	m.nextOrderID++
	m.orders[o.ID] = &o

	for _, it := range in.Items {
		name := m.products.products[it.ProductID].Name
		m.items[o.ID] = append(m.items[o.ID], domain.OrderItem{
			ID:          m.nextItemID,
			OrderID:     o.ID,
			ProductID:   it.ProductID,
			ProductName: &name,
			Quantity:    it.Quantity,
			PriceAtSale: it.PriceAtSale,
		})
		m.nextItemID++
	}
	return m.GetOrder(context.Background(), o.ID)
}

func (m *memOrders) ApplyMutation(_ context.Context, mut repository.OrderMutation) error {
	o, ok := m.orders[mut.OrderID]
	if !ok || o.Status != domain.OrderOpen {
		return domain.ErrOrderNotOpen
	}
	if err := m.applyStockDeltas(mut.StockDeltas); err != nil {
		return err
	}

	for _, up := range mut.Upserts {
		if up.ID == 0 {
			name := m.products.products[up.ProductID].Name
			m.items[o.ID] = append(m.items[o.ID], domain.OrderItem{
				ID:          m.nextItemID,
				OrderID:     o.ID,
				ProductID:   up.ProductID,
				ProductName: &name,
				Quantity:    up.Quantity,
				PriceAtSale: up.PriceAtSale,
			})
			m.nextItemID++
			continue
		}
		for i := range m.items[o.ID] {
			if m.items[o.ID][i].ID == up.ID {
				m.items[o.ID][i].Quantity = up.Quantity
				m.items[o.ID][i].PriceAtSale = up.PriceAtSale
			}
		}
	}
	for _, id := range mut.DeleteItemIDs {
		kept := m.items[o.ID][:0]
		for _, it := range m.items[o.ID] {
			if it.ID != id {
				kept = append(kept, it)
			}
		}
		m.items[o.ID] = kept
	}

	if mut.DeleteOrder {
		delete(m.items, o.ID)
		delete(m.orders, o.ID)
		return nil
	}
	o.Total = mut.NewTotal
	return nil
}

func (m *memOrders) MarkPaid(_ context.Context, id int64) error {
	o, ok := m.orders[id]
	if !ok || o.Status != domain.OrderOpen {
		return domain.ErrOrderNotOpen
	}
	o.Status = domain.OrderPaid
	return nil
}

func (m *memOrders) UpdateNotes(_ context.Context, id int64, customerName, notes *string) error {
	o, ok := m.orders[id]
	if !ok {
		return domain.ErrNotFound
	}
	o.CustomerName = customerName
	o.Notes = notes
	return nil
}

func (m *memOrders) GetOrder(_ context.Context, id int64) (*domain.OrderWithItems, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	items := make([]domain.OrderItem, len(m.items[id]))
	copy(items, m.items[id])
	ow := domain.OrderWithItems{Order: *o, Items: items}
	return &ow, nil
}

func (m *memOrders) GetItem(_ context.Context, itemID int64) (*domain.OrderItem, error) {
	for _, items := range m.items {
		for _, it := range items {
			if it.ID == itemID {
				cp := it
				return &cp, nil
			}
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memOrders) OpenOrderExists(_ context.Context, tableNumber int) (bool, error) {
	for _, o := range m.orders {
		if o.TableNumber == tableNumber && o.Status == domain.OrderOpen {
			return true, nil
		}
	}
	return false, nil
}

func (m *memOrders) collect(match func(*domain.Order) bool) []domain.OrderWithItems {
	var out []domain.OrderWithItems
	for id, o := range m.orders {
		if match(o) {
			ow, _ := m.GetOrder(context.Background(), id)
			out = append(out, *ow)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order.ID < out[j].Order.ID })
	return out
}

func (m *memOrders) ListOpen(_ context.Context) ([]domain.OrderWithItems, error) {
	out := m.collect(func(o *domain.Order) bool { return o.Status == domain.OrderOpen })
	sort.Slice(out, func(i, j int) bool { return out[i].Order.TableNumber < out[j].Order.TableNumber })
	return out, nil
}

func (m *memOrders) ListBySession(_ context.Context, sessionID int64) ([]domain.OrderWithItems, error) {
	return m.collect(func(o *domain.Order) bool {
		return o.SessionID != nil && *o.SessionID == sessionID
	}), nil
}

func (m *memOrders) ListByDate(_ context.Context, date string) ([]domain.OrderWithItems, error) {
	return m.collect(func(o *domain.Order) bool {
		return o.CreatedAt.Format("2006-01-02") == date
	}), nil
}

func (m *memOrders) ListByDateRange(_ context.Context, from, to string) ([]domain.OrderWithItems, error) {
	return m.collect(func(o *domain.Order) bool {
		d := o.CreatedAt.Format("2006-01-02")
		return d >= from && d <= to
	}), nil
}

func (m *memOrders) SessionTotals(_ context.Context, sessionID int64) (domain.Money, int, error) {
	var total domain.Money
	count := 0
	for _, o := range m.orders {
		if o.SessionID != nil && *o.SessionID == sessionID && o.Status == domain.OrderPaid {
			total += o.Total
			count++
		}
	}
	return total, count, nil
}

func (m *memOrders) DateTotals(_ context.Context, date string) (domain.Money, int, int, int64, error) {
	var total domain.Money
	paidCount, anyCount := 0, 0
	var firstStaff int64
	var firstAt time.Time
	for _, o := range m.orders {
		if o.CreatedAt.Format("2006-01-02") != date {
			continue
		}
		anyCount++
		if firstStaff == 0 || o.CreatedAt.Before(firstAt) {
			firstStaff = o.StaffID
			firstAt = o.CreatedAt
		}
		if o.Status == domain.OrderPaid {
			total += o.Total
			paidCount++
		}
	}
	return total, paidCount, anyCount, firstStaff, nil
}

type memSessions struct {
	nextID   int64
	sessions map[int64]*domain.DaySession
}

func newMemSessions() *memSessions {
	return &memSessions{nextID: 1, sessions: make(map[int64]*domain.DaySession)}
}

func (m *memSessions) Active(_ context.Context) (*domain.DaySession, error) {
	for _, s := range m.sessions {
		if s.IsActive {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memSessions) GetByID(_ context.Context, id int64) (*domain.DaySession, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSessions) Insert(_ context.Context, staffID int64, startedAt time.Time) (*domain.DaySession, error) {
	for _, s := range m.sessions {
		if s.IsActive {
			return nil, domain.ErrSessionAlreadyActive
		}
	}
	date := startedAt.Format("2006-01-02")
	s := &domain.DaySession{
		ID:        m.nextID,
		Date:      &date,
		StartedBy: staffID,
		StartedAt: startedAt,
		IsActive:  true,
	}
	m.nextID++
	m.sessions[s.ID] = s
	cp := *s
	return &cp, nil
}

func (m *memSessions) Close(_ context.Context, id int64, closedAt time.Time, revenue domain.Money, orderCount int) error {
	s, ok := m.sessions[id]
	if !ok || !s.IsActive {
		return domain.ErrNoActiveSession
	}
	s.IsActive = false
	s.ClosedAt = &closedAt
	s.TotalRevenue = &revenue
	s.TotalOrders = &orderCount
	return nil
}

func (m *memSessions) ListClosed(_ context.Context, limit int) ([]domain.DaySession, error) {
	var out []domain.DaySession
	for _, s := range m.sessions {
		if !s.IsActive {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memSessions) ClosedExistsForDate(_ context.Context, date string) (bool, error) {
	for _, s := range m.sessions {
		if !s.IsActive && s.Date != nil && *s.Date == date {
			return true, nil
		}
	}
	return false, nil
}

func (m *memSessions) InsertClosed(_ context.Context, s domain.DaySession) (*domain.DaySession, error) {
	s.ID = m.nextID
	m.nextID++
	s.IsActive = false
	cp := s
	m.sessions[s.ID] = &cp
	out := s
	return &out, nil
}

type memStaff struct {
	nextID int64
	staff  map[int64]domain.Staff
	orders *memOrders
}

func newMemStaff(orders *memOrders) *memStaff {
	return &memStaff{nextID: 1, staff: make(map[int64]domain.Staff), orders: orders}
}

func (m *memStaff) List(_ context.Context) ([]domain.Staff, error) {
	var out []domain.Staff
	for _, s := range m.staff {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStaff) GetByID(_ context.Context, id int64) (*domain.Staff, error) {
	s, ok := m.staff[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &s, nil
}

func (m *memStaff) Create(_ context.Context, name string, pinHash *string) (*domain.Staff, error) {
	s := domain.Staff{ID: m.nextID, Name: name, PinHash: pinHash, CreatedAt: time.Now()}
	m.nextID++
	m.staff[s.ID] = s
	return &s, nil
}

func (m *memStaff) Delete(_ context.Context, id int64) error {
	if _, ok := m.staff[id]; !ok {
		return domain.ErrNotFound
	}
	if m.orders != nil {
		for _, o := range m.orders.orders {
			if o.StaffID == id {
				return domain.ErrStaffHasOrders
			}
		}
	}
	delete(m.staff, id)
	return nil
}
