package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/ikjoobang/xivix-ai-core-sub000/internal/archive"
	appconfig "github.com/ikjoobang/xivix-ai-core-sub000/internal/config"
	"github.com/ikjoobang/xivix-ai-core-sub000/internal/conversation"
	"github.com/ikjoobang/xivix-ai-core-sub000/internal/observability/metrics"
	"github.com/ikjoobang/xivix-ai-core-sub000/pkg/logging"
)

// LLMClients are the hosted models the router dispatches to. Absent models
// are nil interfaces.
type LLMClients struct {
	Flash    conversation.LLMClient
	Pro      conversation.LLMClient
	Verifier conversation.LLMClient
}

// Configured reports whether any model is available.
func (c LLMClients) Configured() bool {
	return c.Flash != nil || c.Pro != nil || c.Verifier != nil
}

// BuildLLMClients creates the Gemini and OpenAI clients that have credentials.
func BuildLLMClients(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (LLMClients, error) {
	var clients LLMClients
	if cfg == nil {
		return clients, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if strings.TrimSpace(cfg.GeminiAPIKey) != "" {
		flash, err := conversation.NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, cfg.GeminiFlashModel, "gemini-flash")
		if err != nil {
			return clients, fmt.Errorf("bootstrap: gemini flash: %w", err)
		}
		pro, err := conversation.NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, cfg.GeminiProModel, "gemini-pro")
		if err != nil {
			return clients, fmt.Errorf("bootstrap: gemini pro: %w", err)
		}
		clients.Flash, clients.Pro = flash, pro
	} else {
		logger.Warn("GEMINI_API_KEY not set; fast and primary models disabled")
	}

	if strings.TrimSpace(cfg.OpenAIAPIKey) != "" {
		verifier, err := conversation.NewOpenAILLMClient(conversation.OpenAIConfig{
			APIKey:     cfg.OpenAIAPIKey,
			Model:      cfg.OpenAIModel,
			BaseURL:    cfg.OpenAIBaseURL,
			HTTPClient: &http.Client{Timeout: cfg.LLMTimeout},
		})
		if err != nil {
			return clients, fmt.Errorf("bootstrap: openai: %w", err)
		}
		clients.Verifier = verifier
	} else {
		logger.Warn("OPENAI_API_KEY not set; verification disabled")
	}
	return clients, nil
}

// LoadClassifier reads keyword tables from path, or returns the built-in
// tables when path is empty.
func LoadClassifier(path string) (*conversation.Classifier, error) {
	if strings.TrimSpace(path) == "" {
		return conversation.DefaultClassifier(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: read keywords: %w", err)
	}
	return conversation.NewClassifierFromYAML(data)
}

// BuildRouter wires the model router.
func BuildRouter(cfg *appconfig.Config, clients LLMClients, classifier *conversation.Classifier, logger *logging.Logger, m *metrics.ConversationMetrics) *conversation.Router {
	return conversation.NewRouter(conversation.RouterConfig{
		Flash:       clients.Flash,
		Pro:         clients.Pro,
		Verifier:    clients.Verifier,
		Classifier:  classifier,
		Images:      conversation.NewHTTPImageFetcher(&http.Client{Timeout: cfg.LLMTimeout}, cfg.ImageMaxBytes),
		FailClosed:  cfg.VerificationFailClosed,
		CallTimeout: cfg.LLMTimeout,
		Logger:      logger.Component("router"),
		Metrics:     m,
	})
}

// ConversationDeps are the collaborators BuildConversationService needs
// beyond config.
type ConversationDeps struct {
	Router  *conversation.Router
	Redis   *redis.Client
	Stores  conversation.StoreResolver
	Limiter conversation.RateLimiter
	Logs    *conversation.LogStore
	Logger  *logging.Logger
	Metrics *metrics.ConversationMetrics
}

// BuildConversationService wires the inbound pipeline. It also returns the
// context store so the admin handler can share it; the store is nil when
// Redis is disabled.
func BuildConversationService(cfg *appconfig.Config, deps ConversationDeps) (*conversation.Service, *conversation.ContextStore, error) {
	if cfg == nil {
		return nil, nil, fmt.Errorf("bootstrap: config is required")
	}
	if deps.Logger == nil {
		deps.Logger = logging.Default()
	}

	svcCfg := conversation.ServiceConfig{
		Router:          deps.Router,
		Stores:          deps.Stores,
		RateLimitMax:    cfg.RateLimitMax,
		RateLimitWindow: cfg.RateLimitWindow,
		MaskPII:         archive.MaskPII,
		Logger:          deps.Logger.Component("conversation"),
		Metrics:         deps.Metrics,
	}

	var contexts *conversation.ContextStore
	if deps.Redis != nil {
		contexts = conversation.NewContextStore(deps.Redis, nil,
			conversation.WithContextTTL(cfg.ContextTTL),
			conversation.WithMaxTurns(cfg.ContextMaxTurns),
		)
		svcCfg.Contexts = contexts
	} else {
		deps.Logger.Warn("redis disabled; conversation memory is off")
	}
	if deps.Limiter != nil {
		svcCfg.Limiter = deps.Limiter
	}
	if deps.Logs != nil {
		svcCfg.Logs = deps.Logs
	}

	svc, err := conversation.NewService(svcCfg)
	if err != nil {
		return nil, nil, err
	}
	return svc, contexts, nil
}
