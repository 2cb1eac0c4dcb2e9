package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"barpos-backend/internal/domain"
)

// SessionStore is the persistence surface of the day-session lifecycle.
// Implemented by repository.SessionRepository; faked in tests.
type SessionStore interface {
	Active(ctx context.Context) (*domain.DaySession, error)
	GetByID(ctx context.Context, id int64) (*domain.DaySession, error)
	Insert(ctx context.Context, staffID int64, startedAt time.Time) (*domain.DaySession, error)
	Close(ctx context.Context, id int64, closedAt time.Time, revenue domain.Money, orderCount int) error
	ListClosed(ctx context.Context, limit int) ([]domain.DaySession, error)
	ClosedExistsForDate(ctx context.Context, date string) (bool, error)
	InsertClosed(ctx context.Context, s domain.DaySession) (*domain.DaySession, error)
}

// SessionService manages the singleton active trading day. All lifecycle
// transitions go through one process-wide mutex so check-then-act sequences
// are atomic; the partial unique index in the store is the backstop.
type SessionService struct {
	Sessions SessionStore
	Orders   OrderStore
	Logger   *slog.Logger

	mu sync.Mutex
}

func NewSessionService(sessions SessionStore, orders OrderStore, logger *slog.Logger) *SessionService {
	return &SessionService{Sessions: sessions, Orders: orders, Logger: logger}
}

func (s *SessionService) StartDay(ctx context.Context, staffID int64) (*domain.DaySession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	active, err := s.Sessions.Active(ctx)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, domain.ErrSessionAlreadyActive
	}

	sess, err := s.Sessions.Insert(ctx, staffID, time.Now())
	if err != nil {
		return nil, err
	}
	s.Logger.Info("day started", "session_id", sess.ID, "staff_id", staffID)
	return sess, nil
}

// CloseDay settles the books: every table must be settled, at least one
// order must have been paid, and the frozen totals cover exactly the paid
// orders of the session.
func (s *SessionService) CloseDay(ctx context.Context) (*domain.DaySession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.Sessions.Active(ctx)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, domain.ErrNoActiveSession
	}

	open, err := s.Orders.ListOpen(ctx)
	if err != nil {
		return nil, err
	}
	if len(open) > 0 {
		return nil, domain.ErrTablesStillOpen
	}

	revenue, count, err := s.Orders.SessionTotals(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, domain.ErrEmptyDay
	}

	if err := s.Sessions.Close(ctx, sess.ID, time.Now(), revenue, count); err != nil {
		return nil, err
	}
	s.Logger.Info("day closed", "session_id", sess.ID, "revenue", revenue.Decimal(), "orders", count)
	return s.Sessions.GetByID(ctx, sess.ID)
}

// Active returns the current active session, or nil when the day has not
// been started.
func (s *SessionService) Active(ctx context.Context) (*domain.DaySession, error) {
	return s.Sessions.Active(ctx)
}

// SalesHistory returns closed sessions newest first. A non-positive limit
// means unbounded.
func (s *SessionService) SalesHistory(ctx context.Context, limit int) ([]domain.DaySession, error) {
	return s.Sessions.ListClosed(ctx, limit)
}

// RecoverClosing synthesizes a closed session for a past date whose close
// was missed. It is a pure derivation over that date's orders, guarded by
// the duplicate check, and never touches the live session.
func (s *SessionService) RecoverClosing(ctx context.Context, date string) (*domain.DaySession, error) {
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q", date)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	exists, err := s.Sessions.ClosedExistsForDate(ctx, date)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrDuplicateClosing
	}

	revenue, paidCount, anyCount, firstStaff, err := s.Orders.DateTotals(ctx, date)
	if err != nil {
		return nil, err
	}
	if anyCount == 0 {
		return nil, domain.ErrNoOrdersFound
	}

	now := time.Now()
	sess, err := s.Sessions.InsertClosed(ctx, domain.DaySession{
		Date:         &date,
		StartedBy:    firstStaff,
		StartedAt:    day,
		ClosedAt:     &now,
		IsActive:     false,
		TotalRevenue: &revenue,
		TotalOrders:  &paidCount,
	})
	if err != nil {
		return nil, err
	}
	s.Logger.Info("recovered day closing", "session_id", sess.ID, "date", date, "revenue", revenue.Decimal(), "orders", paidCount)
	return sess, nil
}
