package reminders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB abstracts the pgx query interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const reservationColumns = `id, store_id, customer_id, customer_name, customer_phone, talktalk_user_id, service, reserved_at, note, status, created_at, updated_at`

const reminderColumns = `id, reservation_id, store_id, talktalk_user_id, lead_minutes, send_at, status, attempts, last_error, sent_at, created_at, updated_at`

// Store persists reservations and their reminders.
type Store struct {
	db  DB
	now func() time.Time
}

func NewStore(db DB) *Store {
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// CreateReservation inserts a booking.
func (s *Store) CreateReservation(ctx context.Context, r *Reservation) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	now := s.now()
	r.CreatedAt, r.UpdatedAt = now, now
	if r.Status == "" {
		r.Status = ReservationBooked
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO reservations (`+reservationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		r.ID, r.StoreID, r.CustomerID, r.CustomerName, r.CustomerPhone, r.TalkTalkUserID,
		r.Service, r.ReservedAt, r.Note, string(r.Status), r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("reminders: create reservation: %w", err)
	}
	return nil
}

// GetReservation loads a booking scoped to its store.
func (s *Store) GetReservation(ctx context.Context, storeID, id uuid.UUID) (*Reservation, error) {
	row := s.db.QueryRow(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE store_id = $1 AND id = $2`, storeID, id)
	r, err := scanReservation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reminders: get reservation: %w", err)
	}
	return r, nil
}

// ListReservations returns a store's bookings at or after from, soonest first.
func (s *Store) ListReservations(ctx context.Context, storeID uuid.UUID, from time.Time, limit int) ([]Reservation, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(ctx, `
		SELECT `+reservationColumns+`
		FROM reservations
		WHERE store_id = $1 AND reserved_at >= $2
		ORDER BY reserved_at ASC LIMIT $3`, storeID, from, limit)
	if err != nil {
		return nil, fmt.Errorf("reminders: list reservations: %w", err)
	}
	defer rows.Close()

	out := []Reservation{}
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("reminders: scan reservation: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// CancelReservation marks a booking cancelled and drops its pending reminders.
func (s *Store) CancelReservation(ctx context.Context, storeID, id uuid.UUID) error {
	now := s.now()
	tag, err := s.db.Exec(ctx, `
		UPDATE reservations SET status = 'cancelled', updated_at = $1
		WHERE store_id = $2 AND id = $3 AND status = 'booked'`, now, storeID, id)
	if err != nil {
		return fmt.Errorf("reminders: cancel reservation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	if _, err := s.db.Exec(ctx, `
		UPDATE reminders SET status = 'cancelled', updated_at = $1
		WHERE reservation_id = $2 AND status = 'pending'`, now, id); err != nil {
		return fmt.Errorf("reminders: cancel reminders: %w", err)
	}
	return nil
}

// CreateReminder inserts a pending reminder.
func (s *Store) CreateReminder(ctx context.Context, r *Reminder) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	now := s.now()
	r.CreatedAt, r.UpdatedAt = now, now
	if r.Status == "" {
		r.Status = StatusPending
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO reminders (`+reminderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		r.ID, r.ReservationID, r.StoreID, r.TalkTalkUserID, r.LeadMinutes, r.SendAt,
		string(r.Status), r.Attempts, r.LastError, r.SentAt, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("reminders: create reminder: %w", err)
	}
	return nil
}

// ListDue returns pending reminders with send_at on or before asOf whose
// reservation is still booked.
func (s *Store) ListDue(ctx context.Context, asOf time.Time, limit int) ([]DueReminder, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(ctx, `
		SELECT m.id, m.reservation_id, m.store_id, m.talktalk_user_id, m.lead_minutes, m.send_at,
			m.status, m.attempts, m.last_error, m.sent_at, m.created_at, m.updated_at,
			r.customer_name, r.customer_phone, r.service, r.reserved_at
		FROM reminders m
		JOIN reservations r ON r.id = m.reservation_id
		WHERE m.status = 'pending' AND m.send_at <= $1 AND r.status = 'booked'
		ORDER BY m.send_at ASC LIMIT $2`, asOf, limit)
	if err != nil {
		return nil, fmt.Errorf("reminders: list due: %w", err)
	}
	defer rows.Close()

	var out []DueReminder
	for rows.Next() {
		var d DueReminder
		var status string
		if err := rows.Scan(
			&d.ID, &d.ReservationID, &d.StoreID, &d.TalkTalkUserID, &d.LeadMinutes, &d.SendAt,
			&status, &d.Attempts, &d.LastError, &d.SentAt, &d.CreatedAt, &d.UpdatedAt,
			&d.CustomerName, &d.CustomerPhone, &d.Service, &d.ReservedAt,
		); err != nil {
			return nil, fmt.Errorf("reminders: scan due: %w", err)
		}
		d.Status = ReminderStatus(status)
		out = append(out, d)
	}
	return out, rows.Err()
}

// ListByStore returns a store's reminders, optionally filtered by status.
func (s *Store) ListByStore(ctx context.Context, storeID uuid.UUID, status *ReminderStatus, limit int) ([]Reminder, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows pgx.Rows
	var err error
	if status != nil {
		rows, err = s.db.Query(ctx, `
			SELECT `+reminderColumns+`
			FROM reminders
			WHERE store_id = $1 AND status = $2
			ORDER BY send_at ASC LIMIT $3`, storeID, string(*status), limit)
	} else {
		rows, err = s.db.Query(ctx, `
			SELECT `+reminderColumns+`
			FROM reminders
			WHERE store_id = $1
			ORDER BY send_at ASC LIMIT $2`, storeID, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("reminders: list by store: %w", err)
	}
	defer rows.Close()
	return scanReminders(rows)
}

// MarkSent transitions a reminder from pending to sent.
func (s *Store) MarkSent(ctx context.Context, id uuid.UUID) error {
	now := s.now()
	tag, err := s.db.Exec(ctx, `
		UPDATE reminders SET status = 'sent', sent_at = $1, attempts = attempts + 1, updated_at = $1
		WHERE id = $2 AND status = 'pending'`, now, id)
	if err != nil {
		return fmt.Errorf("reminders: mark sent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("reminders: mark sent: no pending reminder with id %s", id)
	}
	return nil
}

// MarkFailed records a failed attempt. The reminder stays pending until
// maxAttempts is reached, then becomes failed. It reports the new status.
func (s *Store) MarkFailed(ctx context.Context, id uuid.UUID, reason string, maxAttempts int) (ReminderStatus, error) {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	var status string
	err := s.db.QueryRow(ctx, `
		UPDATE reminders
		SET attempts = attempts + 1,
			last_error = $1,
			status = CASE WHEN attempts + 1 >= $2 THEN 'failed' ELSE 'pending' END,
			updated_at = $3
		WHERE id = $4 AND status = 'pending'
		RETURNING status`, reason, maxAttempts, s.now(), id).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("reminders: mark failed: %w", err)
	}
	return ReminderStatus(status), nil
}

// Stats returns reminder counts for a store.
func (s *Store) Stats(ctx context.Context, storeID uuid.UUID) (*Stats, error) {
	row := s.db.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = 'pending') AS pending,
			COUNT(*) FILTER (WHERE status = 'sent') AS sent,
			COUNT(*) FILTER (WHERE status = 'failed') AS failed,
			COUNT(*) FILTER (WHERE status = 'cancelled') AS cancelled
		FROM reminders
		WHERE store_id = $1`, storeID)

	var stats Stats
	if err := row.Scan(&stats.PendingCount, &stats.SentCount, &stats.FailedCount, &stats.CancelledCount); err != nil {
		return nil, fmt.Errorf("reminders: stats: %w", err)
	}
	if done := stats.SentCount + stats.FailedCount; done > 0 {
		stats.DeliveryPct = float64(stats.SentCount) / float64(done) * 100
	}
	return &stats, nil
}

func scanReservation(row pgx.Row) (*Reservation, error) {
	var r Reservation
	var status string
	if err := row.Scan(
		&r.ID, &r.StoreID, &r.CustomerID, &r.CustomerName, &r.CustomerPhone, &r.TalkTalkUserID,
		&r.Service, &r.ReservedAt, &r.Note, &status, &r.CreatedAt, &r.UpdatedAt,
	); err != nil {
		return nil, err
	}
	r.Status = ReservationStatus(status)
	return &r, nil
}

func scanReminders(rows pgx.Rows) ([]Reminder, error) {
	result := []Reminder{}
	for rows.Next() {
		var r Reminder
		var status string
		err := rows.Scan(
			&r.ID, &r.ReservationID, &r.StoreID, &r.TalkTalkUserID, &r.LeadMinutes, &r.SendAt,
			&status, &r.Attempts, &r.LastError, &r.SentAt, &r.CreatedAt, &r.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("reminders: scan reminder: %w", err)
		}
		r.Status = ReminderStatus(status)
		result = append(result, r)
	}
	return result, rows.Err()
}
