package conversation

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// LogRecord is one answered customer message persisted to conversation_logs.
type LogRecord struct {
	ID               uuid.UUID        `json:"id"`
	StoreID          string           `json:"store_id"`
	CustomerID       string           `json:"customer_id"`
	UserMessage      string           `json:"user_message"`
	AIResponse       string           `json:"ai_response"`
	ConsultationType ConsultationType `json:"consultation_type"`
	Model            string           `json:"model"`
	Verified         bool             `json:"verified"`
	Issues           []string         `json:"issues"`
	Confidence       *float64         `json:"confidence,omitempty"`
	Failure          string           `json:"failure,omitempty"`
	LatencyMS        int64            `json:"latency_ms"`
	CreatedAt        time.Time        `json:"created_at"`
}

// LogStore persists conversation logs to PostgreSQL.
type LogStore struct {
	db *sql.DB
}

// NewLogStore returns nil when db is nil so callers can skip persistence.
func NewLogStore(db *sql.DB) *LogStore {
	if db == nil {
		return nil
	}
	return &LogStore{db: db}
}

// Insert writes rec, filling ID and CreatedAt when unset.
func (s *LogStore) Insert(ctx context.Context, rec *LogRecord) error {
	if s == nil || rec == nil {
		return nil
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	issues := rec.Issues
	if issues == nil {
		issues = []string{}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversation_logs (id, store_id, customer_id, user_message, ai_response,
		    consultation_type, model, verified, issues, confidence, failure, latency_ms, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		rec.ID, rec.StoreID, rec.CustomerID, rec.UserMessage, rec.AIResponse,
		string(rec.ConsultationType), rec.Model, rec.Verified, pq.Array(issues),
		rec.Confidence, nullString(rec.Failure), rec.LatencyMS, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("conversation: insert log: %w", err)
	}
	return nil
}

// ListByStore returns the newest logs for a store, optionally narrowed to
// one customer and to records created at or after since.
func (s *LogStore) ListByStore(ctx context.Context, storeID, customerID string, since time.Time, limit int) ([]LogRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, store_id, customer_id, user_message, ai_response, consultation_type, model,
		       verified, issues, confidence, COALESCE(failure, ''), latency_ms, created_at
		FROM conversation_logs
		WHERE store_id = $1 AND ($2 = '' OR customer_id = $2) AND created_at >= $3
		ORDER BY created_at DESC
		LIMIT $4`, storeID, customerID, since, limit)
	if err != nil {
		return nil, fmt.Errorf("conversation: list logs: %w", err)
	}
	defer rows.Close()

	var out []LogRecord
	for rows.Next() {
		var (
			rec        LogRecord
			ctype      string
			confidence sql.NullFloat64
		)
		if err := rows.Scan(&rec.ID, &rec.StoreID, &rec.CustomerID, &rec.UserMessage, &rec.AIResponse,
			&ctype, &rec.Model, &rec.Verified, pq.Array(&rec.Issues), &confidence,
			&rec.Failure, &rec.LatencyMS, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("conversation: scan log: %w", err)
		}
		rec.ConsultationType = ConsultationType(ctype)
		if confidence.Valid {
			v := confidence.Float64
			rec.Confidence = &v
		}
		if rec.Issues == nil {
			rec.Issues = []string{}
		}
		out = append(out, rec)
	}
	if out == nil {
		out = []LogRecord{}
	}
	return out, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
