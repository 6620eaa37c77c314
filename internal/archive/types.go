package archive

import "time"

// RecordVersion is bumped when ConversationRecord changes shape.
const RecordVersion = "1.0"

// ConversationRecord is one customer's conversation at a store, archived as JSON.
type ConversationRecord struct {
	Version         string    `json:"version"`
	ConversationID  string    `json:"conversation_id"`
	StoreID         string    `json:"store_id"`
	CustomerHash    string    `json:"customer_hash"`
	ArchivedAt      time.Time `json:"archived_at"`
	DurationSeconds int       `json:"duration_seconds"`
	MessageCount    int       `json:"message_count"`
	Labels          Labels    `json:"labels"`
	Messages        []Message `json:"messages"`
}

// Labels summarize a conversation for later review.
type Labels struct {
	Category        string  `json:"category"` // simple|expert|image|mixed
	ExpertTurns     int     `json:"expert_turns"`
	ImageTurns      int     `json:"image_turns"`
	UnverifiedTurns int     `json:"unverified_turns"`
	DegradedTurns   int     `json:"degraded_turns"`
	MinConfidence   float64 `json:"min_confidence,omitempty"`
	ContainsPII     bool    `json:"contains_pii"`
	NeedsReview     bool    `json:"needs_review"`
}

// Message is a single turn.
type Message struct {
	Role             string    `json:"role"`
	Content          string    `json:"content"`
	ConsultationType string    `json:"consultation_type,omitempty"`
	Model            string    `json:"model,omitempty"`
	Verified         bool      `json:"verified,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}

// ManifestEntry is one JSONL line in the monthly manifest.
type ManifestEntry struct {
	ConversationID string `json:"conversation_id"`
	StoreID        string `json:"store_id"`
	Key            string `json:"key"`
	Category       string `json:"category"`
	NeedsReview    bool   `json:"needs_review"`
	ArchivedAt     string `json:"archived_at"`
	MessageCount   int    `json:"message_count"`
}

// Upload describes an object stored for a store.
type Upload struct {
	Key         string `json:"key"`
	URL         string `json:"url,omitempty"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}
