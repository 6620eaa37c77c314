package reminders

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("reminders: not found")
	ErrInvalid  = errors.New("reminders: invalid reservation")
)

// ReservationStatus tracks whether a booking is still on.
type ReservationStatus string

const (
	ReservationBooked    ReservationStatus = "booked"
	ReservationCancelled ReservationStatus = "cancelled"
)

// ReminderStatus tracks the lifecycle of one reminder message.
type ReminderStatus string

const (
	StatusPending   ReminderStatus = "pending"
	StatusSent      ReminderStatus = "sent"
	StatusFailed    ReminderStatus = "failed"
	StatusCancelled ReminderStatus = "cancelled"
)

// Reservation is a customer booking at a store.
type Reservation struct {
	ID             uuid.UUID         `json:"id"`
	StoreID        uuid.UUID         `json:"store_id"`
	CustomerID     *uuid.UUID        `json:"customer_id,omitempty"`
	CustomerName   string            `json:"customer_name"`
	CustomerPhone  string            `json:"customer_phone"`
	TalkTalkUserID string            `json:"talktalk_user_id"`
	Service        string            `json:"service"`
	ReservedAt     time.Time         `json:"reserved_at"`
	Note           string            `json:"note,omitempty"`
	Status         ReservationStatus `json:"status"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// Reminder is one scheduled TalkTalk message for a reservation.
type Reminder struct {
	ID             uuid.UUID      `json:"id"`
	ReservationID  uuid.UUID      `json:"reservation_id"`
	StoreID        uuid.UUID      `json:"store_id"`
	TalkTalkUserID string         `json:"talktalk_user_id"`
	LeadMinutes    int            `json:"lead_minutes"`
	SendAt         time.Time      `json:"send_at"`
	Status         ReminderStatus `json:"status"`
	Attempts       int            `json:"attempts"`
	LastError      string         `json:"last_error,omitempty"`
	SentAt         *time.Time     `json:"sent_at,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// Lead is how long before the reservation the reminder fires.
func (r Reminder) Lead() time.Duration {
	return time.Duration(r.LeadMinutes) * time.Minute
}

// DueReminder is a pending reminder joined with its reservation.
type DueReminder struct {
	Reminder
	CustomerName  string    `json:"customer_name"`
	CustomerPhone string    `json:"customer_phone"`
	Service       string    `json:"service"`
	ReservedAt    time.Time `json:"reserved_at"`
}

// Stats holds per-store reminder counts for the admin dashboard.
type Stats struct {
	PendingCount   int64   `json:"pending_count"`
	SentCount      int64   `json:"sent_count"`
	FailedCount    int64   `json:"failed_count"`
	CancelledCount int64   `json:"cancelled_count"`
	DeliveryPct    float64 `json:"delivery_pct"`
}
