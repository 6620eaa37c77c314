package conversation

import "context"

// Chat roles as stored in the conversation context.
const (
	ChatRoleSystem    = "system"
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// ChatMessage is one turn handed to a model.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// LLMRequest is provider-neutral. System carries the store prompt (and the
// verification brief for audit calls); the last entry of Messages is the
// customer's current message and Images attach to it.
type LLMRequest struct {
	System      []string
	Messages    []ChatMessage
	Images      []ImagePart
	MaxTokens   int32
	Temperature float32
	TopP        float32
}

// TokenUsage is reported for metrics and logs only.
type TokenUsage struct {
	InputTokens, OutputTokens, TotalTokens int32
}

type LLMResponse struct {
	Text       string
	StopReason string
	Usage      TokenUsage
}

// LLMClient is one hosted model. Label is the short name reported back in
// RouteResult.Model: "gemini-flash", "gemini-pro" or "gpt-4o".
type LLMClient interface {
	Complete(ctx context.Context, req LLMRequest) (LLMResponse, error)
	Label() string
}
