package repository

import (
	"context"
	"errors"

	"barpos-backend/internal/db"
	"barpos-backend/internal/domain"
	"github.com/jackc/pgx/v5"
)

type OrderRepository struct {
	DB *db.Postgres
}

// StockDelta adjusts a product's on-hand quantity. Negative deltas consume
// stock and are refused when the quantity would go below zero.
type StockDelta struct {
	ProductID int64
	Delta     int
}

// OrderItemUpsert inserts a new line (ID zero) or sets the quantity of an
// existing one.
type OrderItemUpsert struct {
	ID          int64
	ProductID   int64
	Quantity    int
	PriceAtSale domain.Money
}

// OrderMutation is the target state of one order edit. Apply commits it in a
// single transaction: either every line, the total, and every stock delta
// land, or none of them do.
type OrderMutation struct {
	OrderID       int64
	NewTotal      domain.Money
	Upserts       []OrderItemUpsert
	DeleteItemIDs []int64
	DeleteOrder   bool
	StockDeltas   []StockDelta
}

type CreateOrderInput struct {
	StaffID      int64
	SessionID    int64
	TableNumber  int
	Total        domain.Money
	CustomerName *string
	Notes        *string
	Items        []OrderItemUpsert
	StockDeltas  []StockDelta
}

const orderColumns = `
	o.id, o.staff_id, s.name, o.session_id, o.table_number, o.total, o.customer_name, o.notes, o.status, o.created_at
`

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	err := row.Scan(&o.ID, &o.StaffID, &o.StaffName, &o.SessionID, &o.TableNumber, &o.Total, &o.CustomerName, &o.Notes, &o.Status, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

// CreateOrder inserts the order with its lines and reserves stock, all in
// one transaction. The partial unique index on open tables turns a lost
// race into ErrTableAlreadyOpen.
func (r OrderRepository) CreateOrder(ctx context.Context, in CreateOrderInput) (*domain.OrderWithItems, error) {
	tx, err := r.DB.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var orderID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO orders (staff_id, session_id, table_number, total, customer_name, notes, status)
		VALUES ($1, $2, $3, $4, $5, $6, 'open')
		RETURNING id
	`, in.StaffID, in.SessionID, in.TableNumber, in.Total, in.CustomerName, in.Notes).Scan(&orderID)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, domain.ErrTableAlreadyOpen
		}
		return nil, err
	}

	for _, it := range in.Items {
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items (order_id, product_id, quantity, price_at_sale)
			VALUES ($1, $2, $3, $4)
		`, orderID, it.ProductID, it.Quantity, it.PriceAtSale); err != nil {
			return nil, err
		}
	}

	if err := applyStockDeltas(ctx, tx, in.StockDeltas); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return r.GetOrder(ctx, orderID)
}

// ApplyMutation commits an order edit atomically. The order row is locked
// for the duration so concurrent edits serialize at the database as well.
func (r OrderRepository) ApplyMutation(ctx context.Context, m OrderMutation) error {
	tx, err := r.DB.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var status string
	err = tx.QueryRow(ctx, `
		SELECT status FROM orders WHERE id = $1 FOR UPDATE
	`, m.OrderID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrOrderNotOpen
		}
		return err
	}
	if domain.OrderStatus(status) != domain.OrderOpen {
		return domain.ErrOrderNotOpen
	}

	for _, up := range m.Upserts {
		if up.ID == 0 {
			if _, err := tx.Exec(ctx, `
				INSERT INTO order_items (order_id, product_id, quantity, price_at_sale)
				VALUES ($1, $2, $3, $4)
			`, m.OrderID, up.ProductID, up.Quantity, up.PriceAtSale); err != nil {
				return err
			}
			continue
		}
		if _, err := tx.Exec(ctx, `
			UPDATE order_items SET quantity = $1 WHERE id = $2 AND order_id = $3
		`, up.Quantity, up.ID, m.OrderID); err != nil {
			return err
		}
	}

	for _, id := range m.DeleteItemIDs {
		if _, err := tx.Exec(ctx, `
			DELETE FROM order_items WHERE id = $1 AND order_id = $2
		`, id, m.OrderID); err != nil {
			return err
		}
	}

	if err := applyStockDeltas(ctx, tx, m.StockDeltas); err != nil {
		return err
	}

	if m.DeleteOrder {
		// An open order with no lines is not a valid persisted state.
		if _, err := tx.Exec(ctx, `DELETE FROM order_items WHERE order_id = $1`, m.OrderID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM orders WHERE id = $1`, m.OrderID); err != nil {
			return err
		}
	} else {
		if _, err := tx.Exec(ctx, `
			UPDATE orders SET total = $1 WHERE id = $2
		`, m.NewTotal, m.OrderID); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func applyStockDeltas(ctx context.Context, tx pgx.Tx, deltas []StockDelta) error {
	for _, d := range deltas {
		if d.Delta == 0 {
			continue
		}
		ct, err := tx.Exec(ctx, `
			UPDATE products
			SET quantity = quantity + $1
			WHERE id = $2 AND quantity + $1 >= 0
		`, d.Delta, d.ProductID)
		if err != nil {
			return err
		}
		if ct.RowsAffected() == 0 {
			var available int
			if err := tx.QueryRow(ctx, `
				SELECT quantity FROM products WHERE id = $1
			`, d.ProductID).Scan(&available); err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return domain.ErrNotFound
				}
				return err
			}
			return &domain.InsufficientStockError{
				ProductID: d.ProductID,
				Requested: -d.Delta,
				Available: available,
			}
		}
	}
	return nil
}

func (r OrderRepository) MarkPaid(ctx context.Context, id int64) error {
	ct, err := r.DB.Pool.Exec(ctx, `
		UPDATE orders SET status = 'paid' WHERE id = $1 AND status = 'open'
	`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrOrderNotOpen
	}
	return nil
}

func (r OrderRepository) UpdateNotes(ctx context.Context, id int64, customerName, notes *string) error {
	ct, err := r.DB.Pool.Exec(ctx, `
		UPDATE orders SET customer_name = $1, notes = $2 WHERE id = $3
	`, customerName, notes, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r OrderRepository) GetOrder(ctx context.Context, id int64) (*domain.OrderWithItems, error) {
	row := r.DB.Pool.QueryRow(ctx, `
		SELECT `+orderColumns+`
		FROM orders o
		LEFT JOIN staff s ON o.staff_id = s.id
		WHERE o.id = $1
	`, id)
	o, err := scanOrder(row)
	if err != nil {
		return nil, err
	}

	items, err := r.itemsForOrders(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	return &domain.OrderWithItems{Order: *o, Items: items[id]}, nil
}

func (r OrderRepository) GetItem(ctx context.Context, itemID int64) (*domain.OrderItem, error) {
	var it domain.OrderItem
	err := r.DB.Pool.QueryRow(ctx, `
		SELECT oi.id, oi.order_id, oi.product_id, p.name, oi.quantity, oi.price_at_sale
		FROM order_items oi
		LEFT JOIN products p ON oi.product_id = p.id
		WHERE oi.id = $1
	`, itemID).Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.Quantity, &it.PriceAtSale)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &it, nil
}

func (r OrderRepository) OpenOrderExists(ctx context.Context, tableNumber int) (bool, error) {
	var exists bool
	err := r.DB.Pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM orders WHERE table_number = $1 AND status = 'open')
	`, tableNumber).Scan(&exists)
	return exists, err
}

func (r OrderRepository) ListOpen(ctx context.Context) ([]domain.OrderWithItems, error) {
	return r.listOrders(ctx, `WHERE o.status = 'open'`, `ORDER BY o.table_number ASC`)
}

func (r OrderRepository) ListBySession(ctx context.Context, sessionID int64) ([]domain.OrderWithItems, error) {
	return r.listOrders(ctx, `WHERE o.session_id = $1`, `ORDER BY o.created_at DESC`, sessionID)
}

func (r OrderRepository) ListByDate(ctx context.Context, date string) ([]domain.OrderWithItems, error) {
	return r.listOrders(ctx, `WHERE o.created_at::date = $1::date`, `ORDER BY o.created_at DESC`, date)
}

// ListByDateRange returns orders of any status created within the inclusive
// calendar-date range.
func (r OrderRepository) ListByDateRange(ctx context.Context, from, to string) ([]domain.OrderWithItems, error) {
	return r.listOrders(ctx,
		`WHERE o.created_at::date BETWEEN $1::date AND $2::date`,
		`ORDER BY o.created_at DESC`, from, to)
}

func (r OrderRepository) listOrders(ctx context.Context, where, order string, args ...any) ([]domain.OrderWithItems, error) {
	rows, err := r.DB.Pool.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders o
		LEFT JOIN staff s ON o.staff_id = s.id
		`+where+`
		`+order, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []domain.Order
	var ids []int64
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, nil
	}

	itemsByOrder, err := r.itemsForOrders(ctx, ids)
	if err != nil {
		return nil, err
	}

	result := make([]domain.OrderWithItems, 0, len(orders))
	for _, o := range orders {
		result = append(result, domain.OrderWithItems{Order: o, Items: itemsByOrder[o.ID]})
	}
	return result, nil
}

func (r OrderRepository) itemsForOrders(ctx context.Context, orderIDs []int64) (map[int64][]domain.OrderItem, error) {
	rows, err := r.DB.Pool.Query(ctx, `
		SELECT oi.id, oi.order_id, oi.product_id, p.name, oi.quantity, oi.price_at_sale
		FROM order_items oi
		LEFT JOIN products p ON oi.product_id = p.id
		WHERE oi.order_id = ANY($1)
		ORDER BY oi.id ASC
	`, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byOrder := make(map[int64][]domain.OrderItem)
	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.Quantity, &it.PriceAtSale); err != nil {
			return nil, err
		}
		byOrder[it.OrderID] = append(byOrder[it.OrderID], it)
	}
	return byOrder, rows.Err()
}

// SessionTotals sums paid orders for a session.
func (r OrderRepository) SessionTotals(ctx context.Context, sessionID int64) (domain.Money, int, error) {
	var total domain.Money
	var count int
	err := r.DB.Pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(total), 0), COUNT(*)
		FROM orders
		WHERE session_id = $1 AND status = 'paid'
	`, sessionID).Scan(&total, &count)
	return total, count, err
}

// DateTotals aggregates a calendar date for recovery: paid totals and count,
// how many orders of any status exist, and the staff member on the earliest
// order that day.
func (r OrderRepository) DateTotals(ctx context.Context, date string) (domain.Money, int, int, int64, error) {
	var total domain.Money
	var paidCount, anyCount int
	var firstStaff *int64
	err := r.DB.Pool.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(total) FILTER (WHERE status = 'paid'), 0),
			COUNT(*) FILTER (WHERE status = 'paid'),
			COUNT(*),
			(SELECT staff_id FROM orders
			 WHERE created_at::date = $1::date
			 ORDER BY created_at ASC LIMIT 1)
		FROM orders
		WHERE created_at::date = $1::date
	`, date).Scan(&total, &paidCount, &anyCount, &firstStaff)
	if err != nil {
		return 0, 0, 0, 0, err
	}
	var staffID int64
	if firstStaff != nil {
		staffID = *firstStaff
	}
	return total, paidCount, anyCount, staffID, nil
}
