package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// ErrGeminiBlocked is returned when Gemini refuses the prompt or stops the
// candidate on a safety filter.
var ErrGeminiBlocked = errors.New("conversation: gemini blocked the reply")

// Medical, legal and beauty consultations routinely mention bodies, drugs
// and procedures; only high-probability harm is blocked.
var geminiSafety = []*genai.SafetySetting{
	{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockOnlyHigh},
	{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockMediumAndAbove},
	{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockMediumAndAbove},
	{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockMediumAndAbove},
}

// GeminiLLMClient answers through one Gemini model. The router holds two of
// them: flash for simple questions and pro for expert and image questions.
type GeminiLLMClient struct {
	client  *genai.Client
	modelID string
	label   string
}

// NewGeminiLLMClient dials Gemini with apiKey. label is what RouteResult.Model
// reports ("gemini-flash", "gemini-pro"); it defaults to modelID.
func NewGeminiLLMClient(ctx context.Context, apiKey, modelID, label string) (*GeminiLLMClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("conversation: gemini api key is required")
	}
	modelID = strings.TrimSpace(modelID)
	if modelID == "" {
		modelID = "gemini-2.0-flash"
	}
	if strings.TrimSpace(label) == "" {
		label = modelID
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("conversation: dial gemini: %w", err)
	}
	return &GeminiLLMClient{client: client, modelID: modelID, label: label}, nil
}

func (c *GeminiLLMClient) Label() string { return c.label }

func (c *GeminiLLMClient) model(req LLMRequest) *genai.GenerativeModel {
	m := c.client.GenerativeModel(c.modelID)
	m.SafetySettings = geminiSafety
	if req.Temperature > 0 {
		m.SetTemperature(req.Temperature)
	}
	if req.TopP > 0 {
		m.SetTopP(req.TopP)
	}
	if req.MaxTokens > 0 {
		m.SetMaxOutputTokens(req.MaxTokens)
	}
	if sys := strings.TrimSpace(strings.Join(req.System, "\n\n")); sys != "" {
		m.SystemInstruction = genai.NewUserContent(genai.Text(sys))
	}
	return m
}

// Complete sends the final message (plus any images) on top of the prior
// turns as chat history.
func (c *GeminiLLMClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	if len(req.Messages) == 0 {
		return LLMResponse{}, errors.New("conversation: gemini requires at least one message")
	}
	last := req.Messages[len(req.Messages)-1]

	cs := c.model(req).StartChat()
	cs.History = geminiHistory(req.Messages[:len(req.Messages)-1])

	parts := make([]genai.Part, 0, len(req.Images)+1)
	for _, img := range req.Images {
		parts = append(parts, genai.ImageData(imageFormat(img.MIMEType), img.Data))
	}
	parts = append(parts, genai.Text(last.Content))

	resp, err := cs.SendMessage(ctx, parts...)
	if err != nil {
		var blocked *genai.BlockedError
		if errors.As(err, &blocked) {
			return LLMResponse{}, fmt.Errorf("%w: %v", ErrGeminiBlocked, blocked)
		}
		return LLMResponse{}, fmt.Errorf("conversation: %s completion: %w", c.label, err)
	}
	return geminiResponse(resp)
}

// geminiHistory converts stored turns into Gemini chat history. Gemini wants
// the history to open with a user turn and to alternate roles, so a leading
// greeting from the assistant is dropped and consecutive same-role turns are
// merged.
func geminiHistory(msgs []ChatMessage) []*genai.Content {
	var history []*genai.Content
	for _, msg := range msgs {
		text := strings.TrimSpace(msg.Content)
		if text == "" || msg.Role == ChatRoleSystem {
			continue
		}
		role := "user"
		if msg.Role == ChatRoleAssistant {
			role = "model"
		}
		if len(history) == 0 && role == "model" {
			continue
		}
		if n := len(history); n > 0 && history[n-1].Role == role {
			history[n-1].Parts = append(history[n-1].Parts, genai.Text(text))
			continue
		}
		history = append(history, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(text)}})
	}
	return history
}

func geminiResponse(resp *genai.GenerateContentResponse) (LLMResponse, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		if resp != nil && resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockReasonUnspecified {
			return LLMResponse{}, fmt.Errorf("%w: prompt %s", ErrGeminiBlocked, resp.PromptFeedback.BlockReason)
		}
		return LLMResponse{}, errors.New("conversation: gemini returned no candidates")
	}
	cand := resp.Candidates[0]
	if cand.FinishReason == genai.FinishReasonSafety {
		return LLMResponse{}, fmt.Errorf("%w: candidate stopped on safety", ErrGeminiBlocked)
	}

	var text strings.Builder
	if cand.Content != nil {
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				text.WriteString(string(t))
			}
		}
	}
	out := LLMResponse{Text: strings.TrimSpace(text.String()), StopReason: cand.FinishReason.String()}
	if out.Text == "" {
		return LLMResponse{}, fmt.Errorf("conversation: gemini returned empty content (finish=%s)", out.StopReason)
	}
	if u := resp.UsageMetadata; u != nil {
		out.Usage = TokenUsage{InputTokens: u.PromptTokenCount, OutputTokens: u.CandidatesTokenCount, TotalTokens: u.TotalTokenCount}
	}
	return out, nil
}

// Close releases the underlying gRPC connection.
func (c *GeminiLLMClient) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

// imageFormat maps "image/png" to the "png" subtype genai.ImageData expects.
func imageFormat(mimeType string) string {
	if _, sub, ok := strings.Cut(strings.ToLower(strings.TrimSpace(mimeType)), "/"); ok && sub != "" {
		return sub
	}
	return "jpeg"
}
