package reminders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ikjoobang/xivix-ai-core-sub000/internal/notify"
	"github.com/ikjoobang/xivix-ai-core-sub000/internal/observability/metrics"
	"github.com/ikjoobang/xivix-ai-core-sub000/pkg/logging"
)

// DefaultMaxAttempts is how many sends are tried before a reminder fails.
const DefaultMaxAttempts = 3

// Messenger pushes a text to a TalkTalk user on behalf of a store.
type Messenger interface {
	SendText(ctx context.Context, storeID, user, text string) error
}

// FailureNotifier tells owners about reminders that gave up.
type FailureNotifier interface {
	NotifyReminderFailed(ctx context.Context, n notify.ReservationNotice, reason string) error
}

// DueStore is the persistence the worker needs.
type DueStore interface {
	ListDue(ctx context.Context, asOf time.Time, limit int) ([]DueReminder, error)
	MarkSent(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string, maxAttempts int) (ReminderStatus, error)
}

// WorkerConfig wires the worker.
type WorkerConfig struct {
	Store        DueStore
	Messenger    Messenger
	Stores       StoreDirectory
	Notifier     FailureNotifier
	Location     *time.Location
	MaxAttempts  int
	PollInterval time.Duration
	BatchSize    int
	Logger       *logging.Logger
	Metrics      *metrics.ConversationMetrics
}

// Worker sends due reminders.
type Worker struct {
	store       DueStore
	messenger   Messenger
	stores      StoreDirectory
	notifier    FailureNotifier
	loc         *time.Location
	maxAttempts int
	interval    time.Duration
	batch       int
	logger      *logging.Logger
	metrics     *metrics.ConversationMetrics
	now         func() time.Time
}

func NewWorker(cfg WorkerConfig) *Worker {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	return &Worker{
		store:       cfg.Store,
		messenger:   cfg.Messenger,
		stores:      cfg.Stores,
		notifier:    cfg.Notifier,
		loc:         cfg.Location,
		maxAttempts: cfg.MaxAttempts,
		interval:    cfg.PollInterval,
		batch:       cfg.BatchSize,
		logger:      cfg.Logger,
		metrics:     cfg.Metrics,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Run polls until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("reminders worker: started", "interval", w.interval.String())
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		if _, err := w.ProcessDue(ctx); err != nil {
			w.logger.Error("reminders worker: poll failed", "error", err)
		}
		select {
		case <-ctx.Done():
			w.logger.Info("reminders worker: stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// ProcessDue sends every due reminder and returns how many were sent.
func (w *Worker) ProcessDue(ctx context.Context) (int, error) {
	due, err := w.store.ListDue(ctx, w.now(), w.batch)
	if err != nil {
		return 0, fmt.Errorf("reminders worker: list due: %w", err)
	}
	if len(due) == 0 {
		return 0, nil
	}
	w.logger.Info("reminders worker: processing due reminders", "count", len(due))

	sent := 0
	for i := range due {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}
		d := &due[i]
		if err := w.processOne(ctx, d); err != nil {
			w.fail(ctx, d, err)
			continue
		}
		sent++
	}
	return sent, nil
}

func (w *Worker) processOne(ctx context.Context, d *DueReminder) error {
	storeName := ""
	if w.stores != nil {
		name, _, err := w.stores.StoreContact(ctx, d.StoreID.String())
		if err != nil {
			return fmt.Errorf("store lookup: %w", err)
		}
		storeName = name
	}

	text := MessageTemplate(d, storeName, w.loc)
	if err := w.messenger.SendText(ctx, d.StoreID.String(), d.TalkTalkUserID, text); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	if err := w.store.MarkSent(ctx, d.ID); err != nil {
		// The message went out; do not count this as a failed send.
		w.logger.Error("reminders worker: mark sent failed", "id", d.ID, "error", err)
	}
	w.metrics.ObserveReminderSend("sent")
	w.logger.Info("reminders worker: reminder sent", "id", d.ID, "store_id", d.StoreID, "lead_minutes", d.LeadMinutes)
	return nil
}

func (w *Worker) fail(ctx context.Context, d *DueReminder, cause error) {
	status, err := w.store.MarkFailed(ctx, d.ID, cause.Error(), w.maxAttempts)
	if err != nil {
		w.logger.Error("reminders worker: mark failed", "id", d.ID, "error", err, "cause", cause)
		w.metrics.ObserveReminderSend("error")
		return
	}
	if status != StatusFailed {
		w.metrics.ObserveReminderSend("retry")
		w.logger.Warn("reminders worker: send failed, will retry", "id", d.ID, "attempt", d.Attempts+1, "error", cause)
		return
	}

	w.metrics.ObserveReminderSend("failed")
	w.logger.Error("reminders worker: reminder gave up", "id", d.ID, "attempts", d.Attempts+1, "error", cause)
	if w.notifier == nil || w.stores == nil {
		return
	}
	name, email, err := w.stores.StoreContact(ctx, d.StoreID.String())
	if err != nil {
		return
	}
	notice := notify.ReservationNotice{
		StoreName:     name,
		OwnerEmail:    email,
		CustomerName:  d.CustomerName,
		CustomerPhone: d.CustomerPhone,
		Service:       d.Service,
		StartsAt:      d.ReservedAt,
	}
	if err := w.notifier.NotifyReminderFailed(ctx, notice, cause.Error()); err != nil {
		w.logger.Warn("reminders worker: owner failure email not sent", "id", d.ID, "error", err)
	}
}
