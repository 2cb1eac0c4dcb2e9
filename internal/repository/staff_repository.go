package repository

import (
	"context"
	"errors"
	"fmt"

	"barpos-backend/internal/db"
	"barpos-backend/internal/domain"
	"github.com/jackc/pgx/v5"
)

type StaffRepository struct {
	DB *db.Postgres
}

func (r StaffRepository) List(ctx context.Context) ([]domain.Staff, error) {
	rows, err := r.DB.Pool.Query(ctx, `
		SELECT id, name, pin_hash, created_at
		FROM staff
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.Staff
	for rows.Next() {
		var s domain.Staff
		if err := rows.Scan(&s.ID, &s.Name, &s.PinHash, &s.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

func (r StaffRepository) GetByID(ctx context.Context, id int64) (*domain.Staff, error) {
	var s domain.Staff
	err := r.DB.Pool.QueryRow(ctx, `
		SELECT id, name, pin_hash, created_at
		FROM staff
		WHERE id = $1
	`, id).Scan(&s.ID, &s.Name, &s.PinHash, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r StaffRepository) Create(ctx context.Context, name string, pinHash *string) (*domain.Staff, error) {
	var s domain.Staff
	err := r.DB.Pool.QueryRow(ctx, `
		INSERT INTO staff (name, pin_hash)
		VALUES ($1, $2)
		RETURNING id, name, pin_hash, created_at
	`, name, pinHash).Scan(&s.ID, &s.Name, &s.PinHash, &s.CreatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, fmt.Errorf("staff member %q already exists", name)
		}
		return nil, err
	}
	return &s, nil
}

// Delete refuses to remove a staff member who owns orders; those orders are
// the accounting trail.
func (r StaffRepository) Delete(ctx context.Context, id int64) error {
	tx, err := r.DB.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var orderCount int
	if err := tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM orders WHERE staff_id = $1
	`, id).Scan(&orderCount); err != nil {
		return err
	}
	if orderCount > 0 {
		return domain.ErrStaffHasOrders
	}

	ct, err := tx.Exec(ctx, `DELETE FROM staff WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	return tx.Commit(ctx)
}
