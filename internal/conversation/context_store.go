package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const (
	// MaxContextTurns is the most turns kept per (store, customer).
	MaxContextTurns = 20
	contextTTL      = 24 * time.Hour
)

// Turn is one stored utterance.
type Turn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ConversationContext is the short rolling memory for one customer at one store.
type ConversationContext struct {
	StoreID    string    `json:"store_id"`
	CustomerID string    `json:"customer_id"`
	Turns      []Turn    `json:"turns"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ChatHistory converts stored turns into model messages.
func (c *ConversationContext) ChatHistory() []ChatMessage {
	if c == nil {
		return nil
	}
	out := make([]ChatMessage, 0, len(c.Turns))
	for _, t := range c.Turns {
		out = append(out, ChatMessage{Role: t.Role, Content: t.Content})
	}
	return out
}

// ContextStore keeps conversation contexts in Redis. Updates are a plain
// read-modify-write; concurrent writers for the same customer may lose turns.
type ContextStore struct {
	redis    *redis.Client
	tracer   trace.Tracer
	ttl      time.Duration
	maxTurns int
	now      func() time.Time
}

// ContextStoreOption customizes a ContextStore.
type ContextStoreOption func(*ContextStore)

// WithContextTTL overrides the 24h expiry.
func WithContextTTL(ttl time.Duration) ContextStoreOption {
	return func(s *ContextStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithMaxTurns lowers the turn cap. Values above MaxContextTurns are clamped.
func WithMaxTurns(n int) ContextStoreOption {
	return func(s *ContextStore) {
		if n > 0 && n <= MaxContextTurns {
			s.maxTurns = n
		}
	}
}

// WithContextClock sets the clock used for timestamps.
func WithContextClock(now func() time.Time) ContextStoreOption {
	return func(s *ContextStore) {
		if now != nil {
			s.now = now
		}
	}
}

func NewContextStore(client *redis.Client, tracer trace.Tracer, opts ...ContextStoreOption) *ContextStore {
	if client == nil {
		panic("conversation: redis client cannot be nil")
	}
	if tracer == nil {
		tracer = otel.Tracer("xivix.internal.conversation.context")
	}
	s := &ContextStore{
		redis:    client,
		tracer:   tracer,
		ttl:      contextTTL,
		maxTurns: MaxContextTurns,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the stored context, or an empty one when nothing is stored.
func (s *ContextStore) Get(ctx context.Context, storeID, customerID string) (*ConversationContext, error) {
	ctx, span := s.tracer.Start(ctx, "conversation.context_get")
	defer span.End()

	empty := &ConversationContext{StoreID: storeID, CustomerID: customerID, Turns: []Turn{}}
	data, err := s.redis.Get(ctx, contextKey(storeID, customerID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return empty, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: failed to load context: %w", err)
	}

	var stored ConversationContext
	if err := json.Unmarshal(data, &stored); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: failed to decode context: %w", err)
	}
	if stored.Turns == nil {
		stored.Turns = []Turn{}
	}
	return &stored, nil
}

// Update appends a user turn and an assistant turn, keeps only the newest
// turns up to the cap, and refreshes the TTL.
func (s *ContextStore) Update(ctx context.Context, storeID, customerID, userMessage, assistantReply string) (*ConversationContext, error) {
	ctx, span := s.tracer.Start(ctx, "conversation.context_update")
	defer span.End()

	current, err := s.Get(ctx, storeID, customerID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	now := s.now().UTC()
	current.Turns = append(current.Turns,
		Turn{Role: ChatRoleUser, Content: userMessage, Timestamp: now},
		Turn{Role: ChatRoleAssistant, Content: assistantReply, Timestamp: now},
	)
	if len(current.Turns) > s.maxTurns {
		current.Turns = append([]Turn(nil), current.Turns[len(current.Turns)-s.maxTurns:]...)
	}
	current.StoreID = storeID
	current.CustomerID = customerID
	current.UpdatedAt = now

	data, err := json.Marshal(current)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: failed to marshal context: %w", err)
	}
	if err := s.redis.Set(ctx, contextKey(storeID, customerID), data, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: failed to persist context: %w", err)
	}
	return current, nil
}

// Clear deletes the stored context.
func (s *ContextStore) Clear(ctx context.Context, storeID, customerID string) error {
	ctx, span := s.tracer.Start(ctx, "conversation.context_clear")
	defer span.End()

	if err := s.redis.Del(ctx, contextKey(storeID, customerID)).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: failed to clear context: %w", err)
	}
	return nil
}

func contextKey(storeID, customerID string) string {
	return fmt.Sprintf("ctx:%s:%s", storeID, customerID)
}
