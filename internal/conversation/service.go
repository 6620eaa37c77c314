package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ikjoobang/xivix-ai-core-sub000/internal/observability/metrics"
	"github.com/ikjoobang/xivix-ai-core-sub000/internal/ratelimit"
	"github.com/ikjoobang/xivix-ai-core-sub000/pkg/logging"
)

// RateLimitedReply is sent instead of an answer when a customer is throttled.
const RateLimitedReply = "메시지가 너무 많이 전송되었습니다. 잠시 후 다시 문의해 주세요."

var (
	ErrStoreNotFound = errors.New("conversation: store not found")
	ErrStoreInactive = errors.New("conversation: store inactive")
)

// StoreProfile is what the pipeline needs to know about a store.
type StoreProfile struct {
	ID           string
	BusinessType string
	// Language pins the reply language; empty means detect per message.
	Language string
	Active   bool
	Prompt   StorePromptConfig
}

// StoreResolver loads store profiles. Unknown stores return ErrStoreNotFound.
type StoreResolver interface {
	ResolveStore(ctx context.Context, storeID string) (*StoreProfile, error)
}

// RateLimiter is the sliding-window check used per customer.
type RateLimiter interface {
	Check(ctx context.Context, identifier string, maxRequests int, window time.Duration) (ratelimit.Result, error)
	Reset(ctx context.Context, identifier string) error
}

// ContextRepository is the conversation memory contract.
type ContextRepository interface {
	Get(ctx context.Context, storeID, customerID string) (*ConversationContext, error)
	Update(ctx context.Context, storeID, customerID, userMessage, assistantReply string) (*ConversationContext, error)
	Clear(ctx context.Context, storeID, customerID string) error
}

// LogWriter persists answered messages.
type LogWriter interface {
	Insert(ctx context.Context, rec *LogRecord) error
}

// InboundMessage is one customer message from a messaging channel.
type InboundMessage struct {
	StoreID    string
	CustomerID string
	Text       string
	ImageURL   string
}

// Outcome is what the channel adapter sends back.
type Outcome struct {
	Reply       string
	RateLimited bool
	Language    string
	Route       *RouteResult
}

// ServiceConfig wires the pipeline.
type ServiceConfig struct {
	Router          *Router
	Contexts        ContextRepository
	Stores          StoreResolver
	Limiter         RateLimiter
	RateLimitMax    int
	RateLimitWindow time.Duration
	Logs            LogWriter
	// MaskPII scrubs personal data before text reaches models, memory or logs.
	MaskPII func(string) string
	Logger  *logging.Logger
	Metrics *metrics.ConversationMetrics
}

// Service runs the inbound pipeline: rate limit, store lookup, PII masking,
// memory, classification, prompt assembly, routing, persistence.
type Service struct {
	router    *Router
	contexts  ContextRepository
	stores    StoreResolver
	limiter   RateLimiter
	limitMax  int
	limitWin  time.Duration
	logs      LogWriter
	mask      func(string) string
	logger    *logging.Logger
	metrics   *metrics.ConversationMetrics
	nowMillis func() int64
}

func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Router == nil {
		return nil, errors.New("conversation: router is required")
	}
	if cfg.Stores == nil {
		return nil, errors.New("conversation: store resolver is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.MaskPII == nil {
		cfg.MaskPII = func(s string) string { return s }
	}
	return &Service{
		router:    cfg.Router,
		contexts:  cfg.Contexts,
		stores:    cfg.Stores,
		limiter:   cfg.Limiter,
		limitMax:  cfg.RateLimitMax,
		limitWin:  cfg.RateLimitWindow,
		logs:      cfg.Logs,
		mask:      cfg.MaskPII,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
		nowMillis: func() int64 { return time.Now().UnixMilli() },
	}, nil
}

// RateLimitKey is the limiter identifier for a customer at a store.
func RateLimitKey(storeID, customerID string) string {
	return fmt.Sprintf("talktalk:%s:%s", storeID, customerID)
}

// HandleInbound answers one customer message. A Go error is returned only
// for an unknown or inactive store; every other failure still yields a reply.
func (s *Service) HandleInbound(ctx context.Context, msg InboundMessage) (*Outcome, error) {
	start := s.nowMillis()
	logger := s.logger.With("store_id", msg.StoreID, "customer_id", msg.CustomerID)

	if s.limiter != nil {
		res, err := s.limiter.Check(ctx, RateLimitKey(msg.StoreID, msg.CustomerID), s.limitMax, s.limitWin)
		if err != nil {
			logger.Warn("rate limiter unavailable", "error", err)
		} else if !res.Allowed {
			s.metrics.ObserveRateLimited("talktalk")
			return &Outcome{Reply: RateLimitedReply, RateLimited: true}, nil
		}
	}

	store, err := s.resolveStore(ctx, msg.StoreID)
	if err != nil {
		return nil, err
	}

	masked := s.mask(msg.Text)

	var history []ChatMessage
	if s.contexts != nil {
		stored, err := s.contexts.Get(ctx, msg.StoreID, msg.CustomerID)
		if err != nil {
			logger.Warn("context load failed", "error", err)
		} else {
			history = stored.ChatHistory()
		}
	}

	hasImage := strings.TrimSpace(msg.ImageURL) != ""
	ctype := s.router.Classifier().Classify(masked, store.BusinessType, hasImage)
	s.metrics.ObserveConsultation(string(ctype))

	lang := store.Language
	if lang == "" {
		lang = DetectLanguage(masked)
	}
	prompt := store.Prompt
	instruction := BuildSystemInstruction(&prompt, lang)

	result := s.router.Route(ctx, RouteRequest{
		Message:           masked,
		BusinessType:      store.BusinessType,
		SystemInstruction: instruction,
		History:           history,
		ImageURL:          msg.ImageURL,
		ConsultationType:  ctype,
	})
	if result.Failure != nil {
		logger.Error("degraded reply", "model", result.Model, "consultation_type", ctype, "error", result.Failure)
	} else if result.VerificationErr != nil {
		logger.Warn("reply sent unverified", "model", result.Model, "verifier", result.VerifiedBy, "error", result.VerificationErr)
	}

	if s.contexts != nil && !result.Degraded() {
		userTurn := masked
		if userTurn == "" && hasImage {
			userTurn = "[이미지]"
		}
		if _, err := s.contexts.Update(ctx, msg.StoreID, msg.CustomerID, userTurn, result.Response); err != nil {
			logger.Warn("context update failed", "error", err)
		}
	}

	s.writeLog(ctx, logger, msg, masked, result, s.nowMillis()-start)

	return &Outcome{Reply: result.Response, Language: lang, Route: result}, nil
}

// Greeting returns the store's first-contact message.
func (s *Service) Greeting(ctx context.Context, storeID string) (string, error) {
	store, err := s.resolveStore(ctx, storeID)
	if err != nil {
		return "", err
	}
	if g := strings.TrimSpace(store.Prompt.Greeting); g != "" {
		return g, nil
	}
	name := strings.TrimSpace(store.Prompt.Name)
	if name == "" {
		return "안녕하세요! 무엇을 도와드릴까요?", nil
	}
	return fmt.Sprintf("안녕하세요! %s입니다. 무엇을 도와드릴까요?", name), nil
}

// ClearContext drops a customer's memory at a store.
func (s *Service) ClearContext(ctx context.Context, storeID, customerID string) error {
	if s.contexts == nil {
		return nil
	}
	return s.contexts.Clear(ctx, storeID, customerID)
}

// ResetThrottle lifts the per-customer rate limit at a store.
func (s *Service) ResetThrottle(ctx context.Context, storeID, customerID string) error {
	if s.limiter == nil {
		return nil
	}
	if err := s.limiter.Reset(ctx, RateLimitKey(storeID, customerID)); err != nil {
		return fmt.Errorf("conversation: reset throttle: %w", err)
	}
	s.logger.Info("customer throttle reset", "store_id", storeID, "customer_id", customerID)
	return nil
}

func (s *Service) resolveStore(ctx context.Context, storeID string) (*StoreProfile, error) {
	store, err := s.stores.ResolveStore(ctx, storeID)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, ErrStoreNotFound
	}
	if !store.Active {
		return nil, ErrStoreInactive
	}
	return store, nil
}

func (s *Service) writeLog(ctx context.Context, logger *logging.Logger, msg InboundMessage, masked string, result *RouteResult, latencyMS int64) {
	if s.logs == nil {
		return
	}
	rec := &LogRecord{
		StoreID:          msg.StoreID,
		CustomerID:       msg.CustomerID,
		UserMessage:      masked,
		AIResponse:       result.Response,
		ConsultationType: result.ConsultationType,
		Model:            result.Model,
		Verified:         result.Verified,
		LatencyMS:        latencyMS,
	}
	if v := result.Verification; v != nil {
		rec.Issues = v.Issues
		confidence := v.Confidence
		rec.Confidence = &confidence
	}
	switch {
	case result.Failure != nil:
		rec.Failure = result.Failure.Error()
	case result.VerificationErr != nil:
		rec.Failure = result.VerificationErr.Error()
	}
	if err := s.logs.Insert(ctx, rec); err != nil {
		logger.Warn("conversation log insert failed", "error", err)
	}
}
