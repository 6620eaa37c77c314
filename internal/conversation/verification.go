package conversation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// VerificationResult is the audit verdict returned by the verifier model.
// It never replaces the primary reply itself; callers pick a candidate.
type VerificationResult struct {
	Verified          bool     `json:"verified"`
	Issues            []string `json:"issues"`
	CorrectedResponse string   `json:"corrected_response,omitempty"`
	Confidence        float64  `json:"confidence"`
}

// fallbackVerification is used when the verifier reply carries no usable JSON.
var fallbackVerification = VerificationResult{Verified: true, Issues: []string{}, Confidence: 0.5}

const verificationSchema = `{
  "type": "object",
  "required": ["verified"],
  "properties": {
    "verified": {"type": "boolean"},
    "issues": {"type": "array", "items": {"type": "string"}},
    "corrected_response": {"type": ["string", "null"]},
    "confidence": {"type": "number", "minimum": 0, "maximum": 1}
  }
}`

var verificationSchemaCompiled = mustCompileSchema(verificationSchema)

func mustCompileSchema(schema string) *gojsonschema.Schema {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schema))
	if err != nil {
		panic(fmt.Sprintf("conversation: compile verification schema: %v", err))
	}
	return compiled
}

// ParseVerificationResult extracts the first balanced {...} block from the
// verifier's free text. ok is false only when there is no block, the block is
// not valid JSON, or it has no boolean "verified" field; the returned value is
// then the fail-open fallback {verified:true, issues:[], confidence:0.5}.
//
// Other fields are decoded leniently: a string "issues" becomes a one-item
// list, and a confidence given as a percentage (85) is rescaled and clamped
// to [0,1].
func ParseVerificationResult(text string) (VerificationResult, bool) {
	block := firstJSONObject(text)
	if block == "" {
		return copyFallback(), false
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(block), &raw); err != nil {
		return copyFallback(), false
	}
	verified, ok := decodeVerified(raw["verified"])
	if !ok {
		return copyFallback(), false
	}

	result := VerificationResult{
		Verified:   verified,
		Issues:     decodeIssues(raw["issues"]),
		Confidence: fallbackVerification.Confidence,
	}
	var corrected string
	if json.Unmarshal(raw["corrected_response"], &corrected) == nil {
		result.CorrectedResponse = strings.TrimSpace(corrected)
	}
	var confidence float64
	if json.Unmarshal(raw["confidence"], &confidence) == nil {
		result.Confidence = normalizeConfidence(confidence)
	}
	return result, true
}

// VerificationShapeWarnings lists the ways the verdict block in text departs
// from the requested shape. The verdict is still used; the warnings are for
// logs.
func VerificationShapeWarnings(text string) []string {
	block := firstJSONObject(text)
	if block == "" {
		return nil
	}
	validation, err := verificationSchemaCompiled.Validate(gojsonschema.NewStringLoader(block))
	if err != nil {
		return []string{err.Error()}
	}
	var warnings []string
	for _, e := range validation.Errors() {
		warnings = append(warnings, e.String())
	}
	return warnings
}

func decodeVerified(raw json.RawMessage) (bool, bool) {
	var b *bool
	if json.Unmarshal(raw, &b) != nil || b == nil {
		return false, false
	}
	return *b, true
}

func decodeIssues(raw json.RawMessage) []string {
	issues := []string{}
	var one string
	if json.Unmarshal(raw, &one) == nil {
		if one = strings.TrimSpace(one); one != "" {
			issues = append(issues, one)
		}
		return issues
	}
	var list []json.RawMessage
	if json.Unmarshal(raw, &list) != nil {
		return issues
	}
	for _, item := range list {
		var s string
		if json.Unmarshal(item, &s) != nil {
			s = string(item)
		}
		if s = strings.TrimSpace(s); s != "" && s != "null" {
			issues = append(issues, s)
		}
	}
	return issues
}

func normalizeConfidence(c float64) float64 {
	if c > 1 && c <= 100 {
		c /= 100
	}
	switch {
	case c < 0:
		return 0
	case c > 1:
		return 1
	}
	return c
}

func copyFallback() VerificationResult {
	out := fallbackVerification
	out.Issues = []string{}
	return out
}

// firstJSONObject returns the first brace-balanced substring starting at the
// first '{'. Braces inside JSON string literals are ignored.
func firstJSONObject(text string) string {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}

const verificationInstruction = `당신은 고객 상담 답변을 검수하는 감수자입니다.
아래 [매장 정보]와 대조하여 [AI 답변]에 사실과 다르거나 근거 없는 내용(가격, 진단, 처방, 법률/보험 판단 등)이 있는지 확인하세요.

반드시 아래 형식의 JSON 하나만 출력하세요.
{"verified": true 또는 false, "issues": ["문제점"], "corrected_response": "수정된 답변 (문제가 없으면 빈 문자열)", "confidence": 0.0~1.0}`

// buildVerificationRequest asks the verifier to audit reply against the
// store facts in storeFacts.
func buildVerificationRequest(storeFacts, customerMessage, reply string) LLMRequest {
	var b strings.Builder
	b.WriteString("[매장 정보]\n")
	b.WriteString(storeFacts)
	b.WriteString("\n\n[고객 질문]\n")
	b.WriteString(customerMessage)
	b.WriteString("\n\n[AI 답변]\n")
	b.WriteString(reply)

	return LLMRequest{
		System:      []string{verificationInstruction},
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: b.String()}},
		MaxTokens:   800,
		Temperature: 0.1,
	}
}
