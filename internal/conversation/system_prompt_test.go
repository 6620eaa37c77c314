package conversation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildSystemInstruction_CustomPromptAppendsMenu(t *testing.T) {
	cfg := &StorePromptConfig{
		Name:               "연남 파스타",
		CustomSystemPrompt: "당신은 연남 파스타의 상담원입니다.",
		MenuText:           "알리오올리오 13,000원\n까르보나라 15,000원",
	}

	got := BuildSystemInstruction(cfg, "")

	assert.True(t, strings.HasPrefix(got, cfg.CustomSystemPrompt), "custom prompt must be used verbatim")
	assert.Contains(t, got, cfg.MenuText)
	assert.Contains(t, got, "절대 안내하지 마세요")
}

func TestBuildSystemInstruction_CustomPromptAlreadyHasMenu(t *testing.T) {
	menu := "아메리카노 4,500원"
	cfg := &StorePromptConfig{
		CustomSystemPrompt: "카페 상담원입니다. 메뉴: " + menu,
		MenuText:           menu,
	}

	got := BuildSystemInstruction(cfg, "ko")

	assert.Equal(t, cfg.CustomSystemPrompt, got)
	assert.Equal(t, 1, strings.Count(got, menu))
}

func TestBuildSystemInstruction_LanguageBlockPrepended(t *testing.T) {
	cfg := &StorePromptConfig{CustomSystemPrompt: "custom", MenuText: "custom"}

	got := BuildSystemInstruction(cfg, "EN")
	assert.True(t, strings.HasPrefix(got, languageInstructions["en"]))
	assert.True(t, strings.HasSuffix(got, "custom"))

	// Unknown language codes are ignored.
	assert.Equal(t, "custom", BuildSystemInstruction(cfg, "xx"))
}

func TestBuildSystemInstruction_BaselineTemplate(t *testing.T) {
	cfg := &StorePromptConfig{
		Name:     "밝은 치과",
		Hours:    "평일 09:00-18:00",
		Address:  "서울시 마포구 1",
		Phone:    "02-123-4567",
		MenuText: `{"스케일링":"30,000원"}`,
		Persona:  "상냥한 실장",
		Tone:     "차분하게",
		Greeting: "안녕하세요, 밝은 치과입니다!",
	}

	got := BuildSystemInstruction(cfg, "")

	assert.Contains(t, got, baselinePrompt)
	assert.Contains(t, got, "매장명: 밝은 치과")
	assert.Contains(t, got, "영업시간: 평일 09:00-18:00")
	assert.Contains(t, got, "전화번호: 02-123-4567")
	assert.Contains(t, got, "{\n  \"스케일링\": \"30,000원\"\n}", "json menu should be pretty-printed")
	assert.Contains(t, got, "페르소나: 상냥한 실장")
	assert.Contains(t, got, "첫 인사말: 안녕하세요, 밝은 치과입니다!")
}

func TestBuildSystemInstruction_RawMenuAndNilConfig(t *testing.T) {
	cfg := &StorePromptConfig{Name: "분식집", MenuText: "떡볶이 {매운맛 5,000원"}
	got := BuildSystemInstruction(cfg, "")
	assert.Contains(t, got, "떡볶이 {매운맛 5,000원")
	assert.NotContains(t, got, "[상담원 설정]")

	assert.Contains(t, BuildSystemInstruction(nil, ""), "등록된 매장 정보가 없습니다")
}

func TestDetectLanguage(t *testing.T) {
	tests := map[string]string{
		"영업시간이 몇시예요?":              "ko",
		"What time do you open?":   "en",
		"営業時間は何時ですか":               "ja",
		"你们几点开门":                   "zh",
		"ร้านเปิดกี่โมง":           "th",
		"Mấy giờ quán mở cửa?":     "vi",
		"ok":                       "ko",
		"Hi 안녕하세요":                  "ko",
	}
	for text, want := range tests {
		assert.Equal(t, want, DetectLanguage(text), text)
	}
}
