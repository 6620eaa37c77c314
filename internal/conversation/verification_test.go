package conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVerificationResult_EmbeddedObject(t *testing.T) {
	text := `검수 결과입니다.
{"verified": false, "issues": ["가격 정보가 매장 정보와 다릅니다 {30,000원}"], "corrected_response": "스케일링은 30,000원입니다.", "confidence": 0.82}
이상입니다.`

	got, ok := ParseVerificationResult(text)
	require.True(t, ok)
	assert.False(t, got.Verified)
	assert.Equal(t, []string{"가격 정보가 매장 정보와 다릅니다 {30,000원}"}, got.Issues)
	assert.Equal(t, "스케일링은 30,000원입니다.", got.CorrectedResponse)
	assert.InDelta(t, 0.82, got.Confidence, 1e-9)
}

func TestParseVerificationResult_NoObjectFallsOpen(t *testing.T) {
	for _, text := range []string{"", "문제 없습니다.", "{ unterminated", `{"issues": []}`, `{"verified": "yes"}`} {
		got, ok := ParseVerificationResult(text)
		assert.False(t, ok, text)
		assert.Equal(t, VerificationResult{Verified: true, Issues: []string{}, Confidence: 0.5}, got, text)
	}
}

func TestParseVerificationResult_Defaults(t *testing.T) {
	got, ok := ParseVerificationResult(`{"verified": true, "corrected_response": null}`)
	require.True(t, ok)
	assert.True(t, got.Verified)
	assert.Empty(t, got.Issues)
	assert.NotNil(t, got.Issues)
	assert.Equal(t, "", got.CorrectedResponse)
	assert.Equal(t, 0.5, got.Confidence)
}

func TestParseVerificationResult_FallbackNotShared(t *testing.T) {
	first, _ := ParseVerificationResult("")
	first.Issues = append(first.Issues, "mutated")

	second, _ := ParseVerificationResult("")
	assert.Empty(t, second.Issues)
}

func TestFirstJSONObject(t *testing.T) {
	assert.Equal(t, `{"a":{"b":"}"}}`, firstJSONObject(`x {"a":{"b":"}"}} {"c":1}`))
	assert.Equal(t, `{"q":"\"{"}`, firstJSONObject(`{"q":"\"{"}`))
	assert.Equal(t, "", firstJSONObject("no braces"))
}

func TestParseVerificationResult_PercentConfidenceKeepsRejection(t *testing.T) {
	got, ok := ParseVerificationResult(`{"verified": false, "issues": ["가격 오류"], "corrected_response": "커트는 2만원입니다.", "confidence": 85}`)
	require.True(t, ok)
	assert.False(t, got.Verified)
	assert.Equal(t, []string{"가격 오류"}, got.Issues)
	assert.Equal(t, "커트는 2만원입니다.", got.CorrectedResponse)
	assert.InDelta(t, 0.85, got.Confidence, 1e-9)
	assert.NotEmpty(t, VerificationShapeWarnings(`{"verified": false, "confidence": 85}`))
}

func TestParseVerificationResult_StringIssues(t *testing.T) {
	got, ok := ParseVerificationResult(`{"verified": false, "issues": "가격 오류", "corrected_response": ""}`)
	require.True(t, ok)
	assert.False(t, got.Verified)
	assert.Equal(t, []string{"가격 오류"}, got.Issues)
}

func TestParseVerificationResult_LenientFields(t *testing.T) {
	cases := []struct {
		text       string
		issues     []string
		confidence float64
	}{
		{`{"verified": false, "issues": ["a", 3, null, " "], "confidence": -2}`, []string{"a", "3"}, 0},
		{`{"verified": true, "issues": {"x": 1}, "confidence": 250}`, []string{}, 1},
		{`{"verified": true, "confidence": "high"}`, []string{}, 0.5},
	}
	for _, tc := range cases {
		got, ok := ParseVerificationResult(tc.text)
		require.True(t, ok, tc.text)
		assert.Equal(t, tc.issues, got.Issues, tc.text)
		assert.InDelta(t, tc.confidence, got.Confidence, 1e-9, tc.text)
	}
	assert.Empty(t, VerificationShapeWarnings(`{"verified": true, "issues": [], "confidence": 0.9}`))
}
