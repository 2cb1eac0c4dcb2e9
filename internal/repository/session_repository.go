package repository

import (
	"context"
	"errors"
	"time"

	"barpos-backend/internal/db"
	"barpos-backend/internal/domain"
	"github.com/jackc/pgx/v5"
)

type SessionRepository struct {
	DB *db.Postgres
}

const sessionColumns = `
	ds.id, ds.date::text, ds.started_by, st.name, ds.started_at, ds.closed_at, ds.is_active, ds.total_revenue, ds.total_orders
`

func scanSession(row pgx.Row) (*domain.DaySession, error) {
	var s domain.DaySession
	err := row.Scan(&s.ID, &s.Date, &s.StartedBy, &s.StartedByName, &s.StartedAt, &s.ClosedAt, &s.IsActive, &s.TotalRevenue, &s.TotalOrders)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

// Active returns the active session, or nil when no day is open.
func (r SessionRepository) Active(ctx context.Context) (*domain.DaySession, error) {
	row := r.DB.Pool.QueryRow(ctx, `
		SELECT `+sessionColumns+`
		FROM day_sessions ds
		LEFT JOIN staff st ON ds.started_by = st.id
		WHERE ds.is_active
	`)
	s, err := scanSession(row)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return s, err
}

func (r SessionRepository) GetByID(ctx context.Context, id int64) (*domain.DaySession, error) {
	row := r.DB.Pool.QueryRow(ctx, `
		SELECT `+sessionColumns+`
		FROM day_sessions ds
		LEFT JOIN staff st ON ds.started_by = st.id
		WHERE ds.id = $1
	`, id)
	return scanSession(row)
}

// Insert opens a new active session. The partial unique index on is_active
// turns a lost start-day race into ErrSessionAlreadyActive.
func (r SessionRepository) Insert(ctx context.Context, staffID int64, startedAt time.Time) (*domain.DaySession, error) {
	var id int64
	err := r.DB.Pool.QueryRow(ctx, `
		INSERT INTO day_sessions (date, started_by, started_at, is_active)
		VALUES ($1::date, $2, $3, TRUE)
		RETURNING id
	`, startedAt.Format("2006-01-02"), staffID, startedAt).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, domain.ErrSessionAlreadyActive
		}
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// Close freezes the session totals and deactivates it. The session row is
// locked and the no-open-orders precondition re-verified inside the same
// transaction, so the snapshot is taken at a single instant.
func (r SessionRepository) Close(ctx context.Context, id int64, closedAt time.Time, revenue domain.Money, orderCount int) error {
	tx, err := r.DB.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var isActive bool
	err = tx.QueryRow(ctx, `
		SELECT is_active FROM day_sessions WHERE id = $1 FOR UPDATE
	`, id).Scan(&isActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNoActiveSession
		}
		return err
	}
	if !isActive {
		return domain.ErrNoActiveSession
	}

	var openCount int
	if err := tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM orders WHERE session_id = $1 AND status = 'open'
	`, id).Scan(&openCount); err != nil {
		return err
	}
	if openCount > 0 {
		return domain.ErrTablesStillOpen
	}

	if _, err := tx.Exec(ctx, `
		UPDATE day_sessions
		SET is_active = FALSE, closed_at = $1, total_revenue = $2, total_orders = $3
		WHERE id = $4
	`, closedAt, revenue, orderCount, id); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// ListClosed returns closed sessions newest first. A non-positive limit
// means unbounded.
func (r SessionRepository) ListClosed(ctx context.Context, limit int) ([]domain.DaySession, error) {
	q := `
		SELECT ` + sessionColumns + `
		FROM day_sessions ds
		LEFT JOIN staff st ON ds.started_by = st.id
		WHERE NOT ds.is_active
		ORDER BY ds.closed_at DESC NULLS LAST, ds.id DESC
	`
	var rows pgx.Rows
	var err error
	if limit > 0 {
		rows, err = r.DB.Pool.Query(ctx, q+` LIMIT $1`, limit)
	} else {
		rows, err = r.DB.Pool.Query(ctx, q)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.DaySession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *s)
	}
	return items, rows.Err()
}

func (r SessionRepository) ClosedExistsForDate(ctx context.Context, date string) (bool, error) {
	var exists bool
	err := r.DB.Pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM day_sessions WHERE date = $1::date AND NOT is_active
		)
	`, date).Scan(&exists)
	return exists, err
}

// InsertClosed records a recovered closing for a past date. It never touches
// the live active session.
func (r SessionRepository) InsertClosed(ctx context.Context, s domain.DaySession) (*domain.DaySession, error) {
	var id int64
	err := r.DB.Pool.QueryRow(ctx, `
		INSERT INTO day_sessions (date, started_by, started_at, closed_at, is_active, total_revenue, total_orders)
		VALUES ($1::date, $2, $3, $4, FALSE, $5, $6)
		RETURNING id
	`, s.Date, s.StartedBy, s.StartedAt, s.ClosedAt, s.TotalRevenue, s.TotalOrders).Scan(&id)
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}
