package reminders

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ikjoobang/xivix-ai-core-sub000/internal/notify"
	"github.com/ikjoobang/xivix-ai-core-sub000/pkg/logging"
)

// DefaultLeadTimes fire a day before and an hour before the reservation.
var DefaultLeadTimes = []time.Duration{24 * time.Hour, time.Hour}

// dayBeforeEarliestHour is the earliest local hour a day-before reminder is sent.
const dayBeforeEarliestHour = 9

// StoreDirectory resolves store display data.
type StoreDirectory interface {
	StoreContact(ctx context.Context, storeID string) (name, ownerEmail string, err error)
}

// OwnerNotifier emails store owners.
type OwnerNotifier interface {
	NotifyNewReservation(ctx context.Context, n notify.ReservationNotice) error
}

// ReservationWriter is the persistence the scheduler needs.
type ReservationWriter interface {
	CreateReservation(ctx context.Context, r *Reservation) error
	CreateReminder(ctx context.Context, r *Reminder) error
}

// Plan is one reminder to schedule.
type Plan struct {
	Lead   time.Duration
	SendAt time.Time
}

// PlanReminders computes send times for a reservation. Times at or before now
// are skipped. Day-before reminders that would land before 09:00 local time
// move to 09:00.
func PlanReminders(reservedAt, now time.Time, leads []time.Duration, loc *time.Location) []Plan {
	if loc == nil {
		loc = time.UTC
	}
	seen := map[int64]bool{}
	var plans []Plan
	for _, lead := range leads {
		if lead <= 0 {
			continue
		}
		sendAt := reservedAt.Add(-lead)
		if lead >= 24*time.Hour {
			local := sendAt.In(loc)
			if local.Hour() < dayBeforeEarliestHour {
				sendAt = time.Date(local.Year(), local.Month(), local.Day(), dayBeforeEarliestHour, 0, 0, 0, loc)
			}
		}
		if !sendAt.After(now) || !sendAt.Before(reservedAt) {
			continue
		}
		key := sendAt.Unix()
		if seen[key] {
			continue
		}
		seen[key] = true
		plans = append(plans, Plan{Lead: lead, SendAt: sendAt.UTC()})
	}
	sort.Slice(plans, func(i, j int) bool { return plans[i].SendAt.Before(plans[j].SendAt) })
	return plans
}

// SchedulerConfig wires the scheduler.
type SchedulerConfig struct {
	Store     ReservationWriter
	Stores    StoreDirectory
	Notifier  OwnerNotifier
	LeadTimes []time.Duration
	Location  *time.Location
	Logger    *logging.Logger
}

// Scheduler books reservations and plans their reminders.
type Scheduler struct {
	store    ReservationWriter
	stores   StoreDirectory
	notifier OwnerNotifier
	leads    []time.Duration
	loc      *time.Location
	logger   *logging.Logger
	now      func() time.Time
}

func NewScheduler(cfg SchedulerConfig) *Scheduler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if len(cfg.LeadTimes) == 0 {
		cfg.LeadTimes = DefaultLeadTimes
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Scheduler{
		store:    cfg.Store,
		stores:   cfg.Stores,
		notifier: cfg.Notifier,
		leads:    cfg.LeadTimes,
		loc:      cfg.Location,
		logger:   cfg.Logger,
		now:      time.Now,
	}
}

// BookInput is a reservation request from the admin API.
type BookInput struct {
	StoreID        uuid.UUID  `json:"-"`
	CustomerID     *uuid.UUID `json:"customer_id,omitempty"`
	CustomerName   string     `json:"customer_name"`
	CustomerPhone  string     `json:"customer_phone"`
	TalkTalkUserID string     `json:"talktalk_user_id"`
	Service        string     `json:"service"`
	ReservedAt     time.Time  `json:"reserved_at"`
	Note           string     `json:"note"`
}

// Book stores a reservation, schedules its reminders and emails the owner.
// A reservation without a TalkTalk user gets no reminders.
func (s *Scheduler) Book(ctx context.Context, in BookInput) (*Reservation, []Reminder, error) {
	now := s.now()
	if in.StoreID == uuid.Nil {
		return nil, nil, fmt.Errorf("%w: store is required", ErrInvalid)
	}
	if in.ReservedAt.IsZero() || !in.ReservedAt.After(now) {
		return nil, nil, fmt.Errorf("%w: reserved_at must be in the future", ErrInvalid)
	}
	in.TalkTalkUserID = strings.TrimSpace(in.TalkTalkUserID)
	if in.TalkTalkUserID == "" && strings.TrimSpace(in.CustomerPhone) == "" {
		return nil, nil, fmt.Errorf("%w: talktalk_user_id or customer_phone is required", ErrInvalid)
	}

	res := &Reservation{
		StoreID:        in.StoreID,
		CustomerID:     in.CustomerID,
		CustomerName:   strings.TrimSpace(in.CustomerName),
		CustomerPhone:  strings.TrimSpace(in.CustomerPhone),
		TalkTalkUserID: in.TalkTalkUserID,
		Service:        strings.TrimSpace(in.Service),
		ReservedAt:     in.ReservedAt.UTC(),
		Note:           strings.TrimSpace(in.Note),
		Status:         ReservationBooked,
	}
	if err := s.store.CreateReservation(ctx, res); err != nil {
		return nil, nil, fmt.Errorf("reminders: book: %w", err)
	}
	logger := s.logger.With("store_id", res.StoreID, "reservation_id", res.ID)

	var scheduled []Reminder
	if res.TalkTalkUserID != "" {
		for _, p := range PlanReminders(res.ReservedAt, now, s.leads, s.loc) {
			rem := Reminder{
				ReservationID:  res.ID,
				StoreID:        res.StoreID,
				TalkTalkUserID: res.TalkTalkUserID,
				LeadMinutes:    int(p.Lead / time.Minute),
				SendAt:         p.SendAt,
				Status:         StatusPending,
			}
			if err := s.store.CreateReminder(ctx, &rem); err != nil {
				return res, scheduled, fmt.Errorf("reminders: schedule: %w", err)
			}
			scheduled = append(scheduled, rem)
		}
	}
	logger.Info("reminders: reservation booked", "reminders", len(scheduled),
		"reserved_at", res.ReservedAt.Format(time.RFC3339))

	s.notifyOwner(ctx, logger, res)
	return res, scheduled, nil
}

func (s *Scheduler) notifyOwner(ctx context.Context, logger *logging.Logger, res *Reservation) {
	if s.notifier == nil || s.stores == nil {
		return
	}
	name, email, err := s.stores.StoreContact(ctx, res.StoreID.String())
	if err != nil {
		logger.Warn("reminders: store lookup for owner email failed", "error", err)
		return
	}
	err = s.notifier.NotifyNewReservation(ctx, notify.ReservationNotice{
		StoreName:     name,
		OwnerEmail:    email,
		CustomerName:  res.CustomerName,
		CustomerPhone: res.CustomerPhone,
		Service:       res.Service,
		StartsAt:      res.ReservedAt,
		Note:          res.Note,
	})
	if err != nil {
		logger.Warn("reminders: owner notification failed", "error", err)
	}
}
