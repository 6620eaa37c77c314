package conversation

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// contentGenerator is the subset of llms.Model used here.
type contentGenerator interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)
}

// OpenAILLMClient implements LLMClient over the chat-completions API.
type OpenAILLMClient struct {
	llm   contentGenerator
	label string
}

// OpenAIConfig configures the OpenAI client.
type OpenAIConfig struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

// NewOpenAILLMClient creates a chat-completions client.
func NewOpenAILLMClient(cfg OpenAIConfig) (*OpenAILLMClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("conversation: openai api key is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gpt-4o"
	}
	opts := []openai.Option{openai.WithToken(cfg.APIKey), openai.WithModel(model)}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		opts = append(opts, openai.WithBaseURL(base))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, openai.WithHTTPClient(cfg.HTTPClient))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("conversation: failed to create openai client: %w", err)
	}
	return &OpenAILLMClient{llm: llm, label: model}, nil
}

// Label implements LLMClient.
func (c *OpenAILLMClient) Label() string { return c.label }

// Complete implements LLMClient.
func (c *OpenAILLMClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	if len(req.Messages) == 0 {
		return LLMResponse{}, errors.New("conversation: openai requires at least one message")
	}

	messages := make([]llms.MessageContent, 0, len(req.Messages)+1)
	if systemText := strings.TrimSpace(strings.Join(req.System, "\n\n")); systemText != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, systemText))
	}
	for i, msg := range req.Messages {
		content := strings.TrimSpace(msg.Content)
		last := i == len(req.Messages)-1
		if content == "" && !last {
			continue
		}
		switch msg.Role {
		case ChatRoleSystem:
			messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, content))
		case ChatRoleAssistant:
			messages = append(messages, llms.TextParts(llms.ChatMessageTypeAI, content))
		default:
			parts := []llms.ContentPart{llms.TextContent{Text: content}}
			if last {
				for _, img := range req.Images {
					parts = append(parts, llms.ImageURLContent{URL: dataURL(img)})
				}
			}
			messages = append(messages, llms.MessageContent{Role: llms.ChatMessageTypeHuman, Parts: parts})
		}
	}

	var opts []llms.CallOption
	if req.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(int(req.MaxTokens)))
	}
	if req.Temperature > 0 {
		opts = append(opts, llms.WithTemperature(float64(req.Temperature)))
	}
	if req.TopP > 0 {
		opts = append(opts, llms.WithTopP(float64(req.TopP)))
	}

	resp, err := c.llm.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return LLMResponse{}, fmt.Errorf("conversation: openai completion failed: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil {
		return LLMResponse{}, errors.New("conversation: openai returned no choices")
	}

	choice := resp.Choices[0]
	return LLMResponse{
		Text:       strings.TrimSpace(choice.Content),
		StopReason: choice.StopReason,
		Usage: TokenUsage{
			InputTokens:  generationInt(choice.GenerationInfo, "PromptTokens"),
			OutputTokens: generationInt(choice.GenerationInfo, "CompletionTokens"),
			TotalTokens:  generationInt(choice.GenerationInfo, "TotalTokens"),
		},
	}, nil
}

func dataURL(img ImagePart) string {
	mimeType := img.MIMEType
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

func generationInt(info map[string]any, key string) int32 {
	switch v := info[key].(type) {
	case int:
		return int32(v)
	case int32:
		return v
	case int64:
		return int32(v)
	case float64:
		return int32(v)
	default:
		return 0
	}
}
