package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ikjoobang/xivix-ai-core-sub000/internal/observability/metrics"
	"github.com/ikjoobang/xivix-ai-core-sub000/pkg/logging"
)

const (
	// ApologyReply is shown to the customer when a provider call fails.
	ApologyReply = "죄송합니다. 일시적인 오류로 답변을 드리지 못했습니다. 잠시 후 다시 문의해 주세요."
	// SafeRefusalReply replaces answers the verifier flagged without a correction.
	SafeRefusalReply = "정확한 안내를 위해 매장으로 직접 문의 부탁드립니다. 담당자가 확인 후 자세히 안내해 드리겠습니다."
	// NotConfiguredReply is returned when no model credentials are configured.
	NotConfiguredReply = "현재 AI 상담이 준비 중입니다. 매장으로 직접 문의 부탁드립니다."
	// ImageUnavailableReply is returned when the customer's image cannot be downloaded.
	ImageUnavailableReply = "죄송합니다. 보내주신 이미지를 확인하지 못했습니다. 다시 한 번 보내주시겠어요?"
)

var (
	// ErrNoProvider means no model client is configured for the requested path.
	ErrNoProvider = errors.New("conversation: no llm provider configured")
	// ErrVerificationUnparsed means the verifier reply carried no usable verdict.
	ErrVerificationUnparsed = errors.New("conversation: verification reply unparsed")
)

// RouterConfig wires the models and collaborators used by Router. Any of the
// model clients may be nil; the router degrades as documented on Route.
type RouterConfig struct {
	Flash      LLMClient
	Pro        LLMClient
	Verifier   LLMClient
	Classifier *Classifier
	Images     ImageFetcher
	// FailClosed refuses replies whose verification output cannot be parsed.
	FailClosed bool
	// CallTimeout bounds each provider call; zero means no extra bound.
	CallTimeout time.Duration
	Logger      *logging.Logger
	Metrics     *metrics.ConversationMetrics
	Tracer      trace.Tracer
}

// Router dispatches a classified message to the fast or high-accuracy model
// and runs the verification pass for high-stakes stores.
type Router struct {
	flash      LLMClient
	pro        LLMClient
	verifier   LLMClient
	classifier *Classifier
	images     ImageFetcher
	failClosed bool
	timeout    time.Duration
	logger     *logging.Logger
	metrics    *metrics.ConversationMetrics
	tracer     trace.Tracer
}

// RouteRequest is one inbound customer message plus its assembled context.
type RouteRequest struct {
	Message           string
	BusinessType      string
	SystemInstruction string
	History           []ChatMessage
	ImageURL          string
	// StoreFacts is what the verifier audits against; defaults to SystemInstruction.
	StoreFacts string
	// ConsultationType skips classification when already decided.
	ConsultationType ConsultationType
}

// RouteResult carries the text to display and, separately, any internal
// failure that produced a degraded reply.
type RouteResult struct {
	Response         string
	Model            string
	ConsultationType ConsultationType
	// Verified is true only when a verification pass ran and accepted the reply.
	Verified     bool
	Verification *VerificationResult
	VerifiedBy   string
	// VerificationErr is the verifier call's error. The primary reply is still
	// sent unless verification is fail-closed.
	VerificationErr error
	// Failure is set only when Response is a canned fallback.
	Failure error
}

// Degraded reports whether the reply is a canned fallback.
func (r *RouteResult) Degraded() bool {
	return r != nil && r.Failure != nil
}

// NewRouter builds a router.
func NewRouter(cfg RouterConfig) *Router {
	if cfg.Classifier == nil {
		cfg.Classifier = DefaultClassifier()
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Tracer == nil {
		cfg.Tracer = otel.Tracer("xivix.internal.conversation.router")
	}
	return &Router{
		flash:      cfg.Flash,
		pro:        cfg.Pro,
		verifier:   cfg.Verifier,
		classifier: cfg.Classifier,
		images:     cfg.Images,
		failClosed: cfg.FailClosed,
		timeout:    cfg.CallTimeout,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
		tracer:     cfg.Tracer,
	}
}

// Classifier returns the classifier the router uses.
func (r *Router) Classifier() *Classifier {
	return r.classifier
}

// Route produces a reply. It never returns a Go error: provider failures are
// reported through RouteResult.Failure alongside a displayable fallback.
//
// Simple messages go to the fast model (falling back to the primary, then the
// verifier model). Expert and image messages go to the primary model; when it
// is absent a single verifier-model call answers instead and no verification
// runs. Verification runs only for high-stakes business types with a
// configured verifier.
func (r *Router) Route(ctx context.Context, req RouteRequest) *RouteResult {
	ctype := req.ConsultationType
	if ctype == "" {
		ctype = r.classifier.Classify(req.Message, req.BusinessType, strings.TrimSpace(req.ImageURL) != "")
	}

	ctx, span := r.tracer.Start(ctx, "conversation.route", trace.WithAttributes(
		attribute.String("consultation_type", string(ctype)),
		attribute.String("business_type", req.BusinessType),
	))
	defer span.End()

	result := &RouteResult{ConsultationType: ctype}

	if ctype == ConsultationSimple {
		client := firstClient(r.flash, r.pro, r.verifier)
		r.answer(ctx, client, buildRequest(req, nil, 500, 0.7), result)
		return result
	}

	var images []ImagePart
	if ctype == ConsultationImage && strings.TrimSpace(req.ImageURL) != "" {
		img, err := r.fetchImage(ctx, req.ImageURL)
		if err != nil {
			span.RecordError(err)
			r.logger.Warn("image fetch failed", "error", err)
			result.Response = ImageUnavailableReply
			result.Failure = err
			return result
		}
		images = append(images, img)
	}

	llmReq := buildRequest(req, images, 1000, 0.3)
	if r.pro == nil {
		// Primary model missing: single call to the verifier model, no audit.
		r.answer(ctx, r.verifier, llmReq, result)
		return result
	}

	if !r.answer(ctx, r.pro, llmReq, result) {
		return result
	}
	if r.verifier == nil || !r.classifier.IsExpertBusiness(req.BusinessType) {
		return result
	}

	facts := req.StoreFacts
	if strings.TrimSpace(facts) == "" {
		facts = req.SystemInstruction
	}
	r.verify(ctx, facts, req.Message, result)
	return result
}

// answer calls client and fills the result; false means the call failed and
// result already holds the fallback reply.
func (r *Router) answer(ctx context.Context, client LLMClient, req LLMRequest, result *RouteResult) bool {
	if client == nil {
		result.Response = NotConfiguredReply
		result.Failure = ErrNoProvider
		r.logger.Warn("no llm provider configured", "consultation_type", result.ConsultationType)
		return false
	}
	result.Model = client.Label()

	resp, err := r.complete(ctx, client, req)
	if err != nil {
		result.Response = ApologyReply
		result.Failure = fmt.Errorf("conversation: %s call: %w", client.Label(), err)
		r.logger.Error("llm call failed", "model", client.Label(), "error", err)
		return false
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		result.Response = ApologyReply
		result.Failure = fmt.Errorf("conversation: %s returned empty reply (stop=%s)", client.Label(), resp.StopReason)
		r.logger.Warn("llm returned empty reply", "model", client.Label(), "stop_reason", resp.StopReason)
		return false
	}
	result.Response = text
	return true
}

func (r *Router) verify(ctx context.Context, facts, message string, result *RouteResult) {
	ctx, span := r.tracer.Start(ctx, "conversation.verify")
	defer span.End()

	result.VerifiedBy = r.verifier.Label()
	original := result.Response

	resp, err := r.complete(ctx, r.verifier, buildVerificationRequest(facts, message, original))
	if err != nil {
		span.RecordError(err)
		r.logger.Warn("verification call failed", "model", r.verifier.Label(), "error", err)
		result.VerificationErr = fmt.Errorf("conversation: verification: %w", err)
		r.observeVerification(err, false, "")
		if r.failClosed {
			result.Response = SafeRefusalReply
			result.Failure = result.VerificationErr
		}
		span.SetAttributes(attribute.Bool("verified", false))
		return
	}

	verdict, parsed := ParseVerificationResult(resp.Text)
	if !parsed {
		r.logger.Warn("verification reply unparsed", "model", r.verifier.Label())
	} else if warnings := VerificationShapeWarnings(resp.Text); len(warnings) > 0 {
		r.logger.Debug("verification reply off-shape", "model", r.verifier.Label(), "warnings", warnings)
	}
	if !parsed && r.failClosed {
		verdict = VerificationResult{Verified: false, Issues: []string{"verification output unavailable"}, Confidence: 0}
		result.Failure = ErrVerificationUnparsed
	}
	result.Verification = &verdict

	switch {
	case verdict.Verified:
		result.Verified = true
		result.Response = original
		r.observeVerification(err, parsed, "approved")
	case verdict.CorrectedResponse != "":
		result.Response = verdict.CorrectedResponse
		r.observeVerification(err, parsed, "corrected")
	case len(verdict.Issues) > 0:
		result.Response = SafeRefusalReply
		r.observeVerification(err, parsed, "refused")
	default:
		result.Response = original
		r.observeVerification(err, parsed, "unconfirmed")
	}
	span.SetAttributes(
		attribute.Bool("verified", result.Verified),
		attribute.Float64("confidence", verdict.Confidence),
	)
}

func (r *Router) observeVerification(err error, parsed bool, outcome string) {
	switch {
	case err != nil:
		outcome = "error"
	case !parsed:
		outcome = "unparsed"
	}
	r.metrics.ObserveVerification(outcome)
}

func (r *Router) complete(ctx context.Context, client LLMClient, req LLMRequest) (LLMResponse, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	ctx, span := r.tracer.Start(ctx, "conversation.llm_call", trace.WithAttributes(attribute.String("model", client.Label())))
	defer span.End()

	start := time.Now()
	resp, err := client.Complete(ctx, req)
	status := "ok"
	if err != nil {
		status = "error"
		span.RecordError(err)
	}
	r.metrics.ObserveLLMCall(client.Label(), status, time.Since(start).Seconds())
	return resp, err
}

func (r *Router) fetchImage(ctx context.Context, url string) (ImagePart, error) {
	if r.images == nil {
		return ImagePart{}, errors.New("conversation: image fetcher not configured")
	}
	img, err := r.images.Fetch(ctx, url)
	if err != nil {
		return ImagePart{}, fmt.Errorf("conversation: fetch image: %w", err)
	}
	return img, nil
}

func buildRequest(req RouteRequest, images []ImagePart, maxTokens int32, temperature float32) LLMRequest {
	messages := make([]ChatMessage, 0, len(req.History)+1)
	messages = append(messages, req.History...)
	message := req.Message
	if strings.TrimSpace(message) == "" && len(images) > 0 {
		message = "이 이미지를 확인하고 매장 상담원으로서 안내해 주세요."
	}
	messages = append(messages, ChatMessage{Role: ChatRoleUser, Content: message})

	var system []string
	if strings.TrimSpace(req.SystemInstruction) != "" {
		system = []string{req.SystemInstruction}
	}
	return LLMRequest{
		System:      system,
		Messages:    messages,
		Images:      images,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}
}

func firstClient(clients ...LLMClient) LLMClient {
	for _, c := range clients {
		if c != nil {
			return c
		}
	}
	return nil
}
