package repository

import (
	"context"
	"errors"

	"barpos-backend/internal/db"
	"barpos-backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type ProductRepository struct {
	DB *db.Postgres
}

type SaveProductInput struct {
	Name              string
	Price             domain.Money
	Quantity          int
	CategoryID        *int64
	LowStockThreshold int
}

const productColumns = `
	p.id, p.name, p.price, p.quantity, p.category_id, c.name, p.low_stock_threshold, p.created_at
`

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var p domain.Product
	err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Quantity, &p.CategoryID, &p.CategoryName, &p.LowStockThreshold, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r ProductRepository) List(ctx context.Context) ([]domain.Product, error) {
	rows, err := r.DB.Pool.Query(ctx, `
		SELECT `+productColumns+`
		FROM products p
		LEFT JOIN categories c ON p.category_id = c.id
		ORDER BY p.name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProducts(rows)
}

func (r ProductRepository) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	row := r.DB.Pool.QueryRow(ctx, `
		SELECT `+productColumns+`
		FROM products p
		LEFT JOIN categories c ON p.category_id = c.id
		WHERE p.id = $1
	`, id)
	return scanProduct(row)
}

func (r ProductRepository) GetByIDs(ctx context.Context, ids []int64) (map[int64]domain.Product, error) {
	rows, err := r.DB.Pool.Query(ctx, `
		SELECT `+productColumns+`
		FROM products p
		LEFT JOIN categories c ON p.category_id = c.id
		WHERE p.id = ANY($1)
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items, err := collectProducts(rows)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]domain.Product, len(items))
	for _, p := range items {
		byID[p.ID] = p
	}
	return byID, nil
}

func (r ProductRepository) Create(ctx context.Context, in SaveProductInput) (*domain.Product, error) {
	var id int64
	err := r.DB.Pool.QueryRow(ctx, `
		INSERT INTO products (name, price, quantity, category_id, low_stock_threshold)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, in.Name, in.Price, in.Quantity, in.CategoryID, in.LowStockThreshold).Scan(&id)
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// Update is an inventory correction path: it may set quantity directly and
// bypasses reservation checks.
func (r ProductRepository) Update(ctx context.Context, id int64, in SaveProductInput) (*domain.Product, error) {
	ct, err := r.DB.Pool.Exec(ctx, `
		UPDATE products
		SET name = $1, price = $2, quantity = $3, category_id = $4, low_stock_threshold = $5
		WHERE id = $6
	`, in.Name, in.Price, in.Quantity, in.CategoryID, in.LowStockThreshold, id)
	if err != nil {
		return nil, err
	}
	if ct.RowsAffected() == 0 {
		return nil, domain.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r ProductRepository) Delete(ctx context.Context, id int64) error {
	ct, err := r.DB.Pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return errors.New("cannot delete product with recorded sales")
		}
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r ProductRepository) ListBelowThreshold(ctx context.Context) ([]domain.Product, error) {
	rows, err := r.DB.Pool.Query(ctx, `
		SELECT `+productColumns+`
		FROM products p
		LEFT JOIN categories c ON p.category_id = c.id
		WHERE p.quantity <= p.low_stock_threshold
		ORDER BY p.quantity ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProducts(rows)
}

func collectProducts(rows pgx.Rows) ([]domain.Product, error) {
	var items []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *p)
	}
	return items, rows.Err()
}
