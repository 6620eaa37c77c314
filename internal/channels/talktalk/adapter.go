package talktalk

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ikjoobang/xivix-ai-core-sub000/internal/conversation"
	"github.com/ikjoobang/xivix-ai-core-sub000/internal/observability/metrics"
	"github.com/ikjoobang/xivix-ai-core-sub000/pkg/logging"
)

const maxWebhookBody = 1 << 20

// Conversations is the conversation pipeline the adapter feeds.
type Conversations interface {
	HandleInbound(ctx context.Context, msg conversation.InboundMessage) (*conversation.Outcome, error)
	Greeting(ctx context.Context, storeID string) (string, error)
}

// TokenSource returns the partner token used to reply on behalf of a store.
type TokenSource interface {
	TalkTalkToken(ctx context.Context, storeID string) (string, error)
}

// AdapterConfig wires the TalkTalk channel.
type AdapterConfig struct {
	Conversations Conversations
	Tokens        TokenSource
	Client        *Client
	ChunkRunes    int
	TypingDelay   time.Duration
	// QuickReplies are offered as TEXT buttons under the greeting. A tap
	// comes back as an ordinary send event carrying the label.
	QuickReplies  []string
	Logger        *logging.Logger
	Metrics       *metrics.ConversationMetrics
}

// Adapter receives TalkTalk webhooks and answers through the partner API.
type Adapter struct {
	conversations Conversations
	tokens        TokenSource
	client        *Client
	streamOpts    []StreamerOption
	quickReplies  []Button
	logger        *logging.Logger
	metrics       *metrics.ConversationMetrics
}

func NewAdapter(cfg AdapterConfig) *Adapter {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Client == nil {
		cfg.Client = NewClient("")
	}
	var opts []StreamerOption
	if cfg.ChunkRunes > 0 {
		opts = append(opts, WithChunkRunes(cfg.ChunkRunes))
	}
	if cfg.TypingDelay > 0 {
		opts = append(opts, WithTypingDelay(cfg.TypingDelay))
	}
	var quick []Button
	for _, label := range cfg.QuickReplies {
		if label = strings.TrimSpace(label); label != "" {
			quick = append(quick, TextButton(label, label))
		}
	}
	return &Adapter{
		conversations: cfg.Conversations,
		tokens:        cfg.Tokens,
		client:        cfg.Client,
		streamOpts:    opts,
		quickReplies:  quick,
		logger:        cfg.Logger,
		metrics:       cfg.Metrics,
	}
}

// RegisterRoutes mounts POST /webhooks/talktalk/{storeID}.
func (a *Adapter) RegisterRoutes(r chi.Router) {
	r.Post("/webhooks/talktalk/{storeID}", a.HandleWebhook)
}

// HandleWebhook processes one inbound event synchronously and acknowledges it.
func (a *Adapter) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	storeID := chi.URLParam(r, "storeID")

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	event := ParseWebhook(body)
	if event == nil {
		a.metrics.ObserveInbound("unknown", "rejected")
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	defer func() {
		a.metrics.ObserveWebhookLatency(event.Event, time.Since(start).Seconds())
	}()

	logger := a.logger.With("store_id", storeID, "event", event.Event)

	switch event.Event {
	case EventOpen:
		err = a.handleOpen(r.Context(), logger, storeID, event)
	case EventSend:
		err = a.handleSend(r.Context(), logger, storeID, event)
	default:
		a.metrics.ObserveInbound(event.Event, "ack")
	}

	if err != nil {
		if errors.Is(err, conversation.ErrStoreNotFound) || errors.Is(err, conversation.ErrStoreInactive) {
			a.metrics.ObserveInbound(event.Event, "unknown_store")
			http.Error(w, "store not found", http.StatusNotFound)
			return
		}
		a.metrics.ObserveInbound(event.Event, "error")
		logger.Error("talktalk: webhook failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

func (a *Adapter) handleOpen(ctx context.Context, logger *logging.Logger, storeID string, event *InboundEvent) error {
	greeting, err := a.conversations.Greeting(ctx, storeID)
	if err != nil {
		return err
	}
	a.metrics.ObserveInbound(EventOpen, "ok")
	a.reply(ctx, logger, storeID, event.User, greeting)
	a.offerQuickReplies(ctx, logger, storeID, event.User)
	return nil
}

// QuickReplyPrompt is the card text above the greeting quick replies.
const QuickReplyPrompt = "궁금하신 내용을 선택하시거나 직접 입력해 주세요."

func (a *Adapter) offerQuickReplies(ctx context.Context, logger *logging.Logger, storeID, user string) {
	if len(a.quickReplies) == 0 {
		return
	}
	client, err := a.Sender(ctx, storeID)
	if err != nil {
		a.metrics.ObserveOutbound("buttons", "skipped")
		return
	}
	if err := client.SendButtons(ctx, user, "", QuickReplyPrompt, a.quickReplies); err != nil {
		a.metrics.ObserveOutbound("buttons", "error")
		logger.Warn("talktalk: send quick replies failed", "error", err)
		return
	}
	a.metrics.ObserveOutbound("buttons", "ok")
}

func (a *Adapter) handleSend(ctx context.Context, logger *logging.Logger, storeID string, event *InboundEvent) error {
	outcome, err := a.conversations.HandleInbound(ctx, conversation.InboundMessage{
		StoreID:    storeID,
		CustomerID: event.User,
		Text:       event.Text,
		ImageURL:   event.ImageURL,
	})
	if err != nil {
		return err
	}
	status := "ok"
	switch {
	case outcome.RateLimited:
		status = "rate_limited"
	case outcome.Route != nil && outcome.Route.Degraded():
		status = "degraded"
	}
	a.metrics.ObserveInbound(EventSend, status)
	a.reply(ctx, logger, storeID, event.User, outcome.Reply)
	return nil
}

// reply sends text back to the user. Send failures are logged and counted
// but never fail the webhook, so the platform does not redeliver.
func (a *Adapter) reply(ctx context.Context, logger *logging.Logger, storeID, user, text string) {
	if text == "" {
		return
	}
	token := ""
	if a.tokens != nil {
		t, err := a.tokens.TalkTalkToken(ctx, storeID)
		if err != nil {
			logger.Warn("talktalk: token lookup failed", "error", err)
		}
		token = t
	}
	if token == "" {
		a.metrics.ObserveOutbound("text", "skipped")
		logger.Warn("talktalk: store has no partner token, reply not sent")
		return
	}

	streamer := NewStreamer(a.client.WithToken(token), a.streamOpts...)
	if err := streamer.SendText(ctx, user, text); err != nil {
		a.metrics.ObserveOutbound("text", "error")
		logger.Error("talktalk: send reply failed", "error", err)
		return
	}
	a.metrics.ObserveOutbound("text", "ok")
}

// Sender returns a client for a store, used by other packages that push
// messages outside a webhook (reminders).
func (a *Adapter) Sender(ctx context.Context, storeID string) (*Client, error) {
	if a.tokens == nil {
		return nil, ErrNoToken
	}
	token, err := a.tokens.TalkTalkToken(ctx, storeID)
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, ErrNoToken
	}
	return a.client.WithToken(token), nil
}

// SendText pushes a proactive message to a user of a store, chunked like a
// webhook reply.
func (a *Adapter) SendText(ctx context.Context, storeID, user, text string) error {
	client, err := a.Sender(ctx, storeID)
	if err != nil {
		a.metrics.ObserveOutbound("push", "skipped")
		return err
	}
	if err := NewStreamer(client, a.streamOpts...).SendText(ctx, user, text); err != nil {
		a.metrics.ObserveOutbound("push", "error")
		return err
	}
	a.metrics.ObserveOutbound("push", "ok")
	return nil
}
