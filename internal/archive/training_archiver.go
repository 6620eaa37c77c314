package archive

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ikjoobang/xivix-ai-core-sub000/internal/conversation"
	"github.com/ikjoobang/xivix-ai-core-sub000/pkg/logging"
)

const archiveFetchLimit = 5000

// LogSource reads persisted conversation logs.
type LogSource interface {
	ListByStore(ctx context.Context, storeID, customerID string, since time.Time, limit int) ([]conversation.LogRecord, error)
}

// Archiver groups a store's conversation logs per customer, labels them and
// writes one record per customer to object storage.
type Archiver struct {
	store  *Store
	logs   LogSource
	logger *logging.Logger
}

// NewArchiver returns nil when storage is not configured; a nil Archiver
// archives nothing.
func NewArchiver(store *Store, logs LogSource, logger *logging.Logger) *Archiver {
	if !store.Enabled() || logs == nil {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Archiver{store: store, logs: logs, logger: logger}
}

// Summary reports what ArchiveStore wrote.
type Summary struct {
	StoreID       string   `json:"store_id"`
	Conversations int      `json:"conversations"`
	Messages      int      `json:"messages"`
	NeedsReview   int      `json:"needs_review"`
	Keys          []string `json:"keys"`
}

// ArchiveStore archives every conversation at storeID logged since the given time.
func (a *Archiver) ArchiveStore(ctx context.Context, storeID string, since time.Time) (*Summary, error) {
	summary := &Summary{StoreID: storeID, Keys: []string{}}
	if a == nil {
		return summary, nil
	}

	records, err := a.logs.ListByStore(ctx, storeID, "", since, archiveFetchLimit)
	if err != nil {
		return nil, fmt.Errorf("archive: list logs: %w", err)
	}

	byCustomer := map[string][]conversation.LogRecord{}
	for _, rec := range records {
		byCustomer[rec.CustomerID] = append(byCustomer[rec.CustomerID], rec)
	}
	customers := make([]string, 0, len(byCustomer))
	for c := range byCustomer {
		customers = append(customers, c)
	}
	sort.Strings(customers)

	for _, customer := range customers {
		record := BuildRecord(storeID, customer, byCustomer[customer], a.store.now())
		key, err := a.store.ArchiveConversation(ctx, record)
		if err != nil {
			a.logger.Error("archive: conversation failed", "store_id", storeID, "conversation_id", record.ConversationID, "error", err)
			continue
		}
		summary.Conversations++
		summary.Messages += record.MessageCount
		if record.Labels.NeedsReview {
			summary.NeedsReview++
		}
		summary.Keys = append(summary.Keys, key)
	}

	a.logger.Info("archive: store archived", "store_id", storeID,
		"conversations", summary.Conversations, "needs_review", summary.NeedsReview)
	return summary, nil
}

// BuildRecord turns one customer's log rows into an archive record. Rows may
// arrive in any order; messages are emitted oldest first.
func BuildRecord(storeID, customerID string, rows []conversation.LogRecord, now time.Time) *ConversationRecord {
	sorted := make([]conversation.LogRecord, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].CreatedAt.Before(sorted[j].CreatedAt) })

	msgs := make([]Message, 0, len(sorted)*2)
	for _, row := range sorted {
		msgs = append(msgs,
			Message{Role: "user", Content: row.UserMessage, ConsultationType: string(row.ConsultationType), Timestamp: row.CreatedAt},
			Message{Role: "assistant", Content: row.AIResponse, Model: row.Model, Verified: row.Verified, Timestamp: row.CreatedAt},
		)
	}
	MaskMessages(msgs)

	var duration int
	if len(sorted) >= 2 {
		duration = int(sorted[len(sorted)-1].CreatedAt.Sub(sorted[0].CreatedAt).Seconds())
	}

	hash := HashCustomer(storeID, customerID)
	return &ConversationRecord{
		Version:         RecordVersion,
		ConversationID:  fmt.Sprintf("%s-%s", hash[:16], now.Format("20060102")),
		StoreID:         storeID,
		CustomerHash:    hash,
		ArchivedAt:      now,
		DurationSeconds: duration,
		MessageCount:    len(msgs),
		Labels:          Label(sorted),
		Messages:        msgs,
	}
}
