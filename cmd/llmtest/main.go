package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/ikjoobang/xivix-ai-core-sub000/internal/app/bootstrap"
	appconfig "github.com/ikjoobang/xivix-ai-core-sub000/internal/config"
	"github.com/ikjoobang/xivix-ai-core-sub000/internal/conversation"
	"github.com/ikjoobang/xivix-ai-core-sub000/pkg/logging"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := appconfig.Load()
	logger := logging.New("warn")

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	clients, err := bootstrap.BuildLLMClients(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("build clients: %v", err)
	}

	history := []conversation.ChatMessage{
		{Role: conversation.ChatRoleUser, Content: "안녕하세요, 스케일링 예약하고 싶어요."},
		{Role: conversation.ChatRoleAssistant, Content: "안녕하세요! 밝은 치과입니다. 원하시는 날짜와 시간을 알려주시면 확인해 드리겠습니다."},
	}
	prompt := conversation.BuildSystemInstruction(&conversation.StorePromptConfig{
		Name:         "밝은 치과",
		BusinessType: "DENTAL",
		Hours:        "평일 09:00-18:00, 토요일 09:00-13:00",
		MenuText:     "스케일링 50,000원\n레진 치료 100,000원부터",
	}, "ko")

	fmt.Println(strings.Repeat("=", 60))
	fmt.Println("LLM Provider Test")
	fmt.Println(strings.Repeat("=", 60))

	direct := []struct {
		name   string
		client conversation.LLMClient
	}{
		{"fast", clients.Flash},
		{"primary", clients.Pro},
		{"verifier", clients.Verifier},
	}
	for i, d := range direct {
		if d.client == nil {
			fmt.Printf("\n[%d] Skipping %s model (no credentials)\n", i+1, d.name)
			continue
		}
		fmt.Printf("\n[%d] Testing %s model (%s)...\n", i+1, d.name, d.client.Label())
		start := time.Now()
		resp, err := d.client.Complete(ctx, conversation.LLMRequest{
			System:      []string{prompt},
			Messages:    append(history, conversation.ChatMessage{Role: conversation.ChatRoleUser, Content: "토요일 오전도 되나요?"}),
			MaxTokens:   300,
			Temperature: 0.7,
		})
		if err != nil {
			fmt.Printf("    ❌ %s error: %v\n", d.name, err)
			continue
		}
		fmt.Printf("    ✅ %s response (%v):\n", d.name, time.Since(start).Round(time.Millisecond))
		fmt.Printf("    %s\n", resp.Text)
		fmt.Printf("    Tokens: in=%d, out=%d\n", resp.Usage.InputTokens, resp.Usage.OutputTokens)
	}

	fmt.Println("\n[4] Routing an expert question through the full router...")
	router := bootstrap.BuildRouter(cfg, clients, nil, logger, nil)
	result := router.Route(ctx, conversation.RouteRequest{
		Message:           "임플란트 후에 잇몸이 계속 부어 있는데 괜찮은 건가요?",
		BusinessType:      "DENTAL",
		SystemInstruction: prompt,
		History:           history,
	})
	fmt.Printf("    type=%s model=%s verified=%t degraded=%t\n",
		result.ConsultationType, result.Model, result.Verified, result.Degraded())
	if result.Failure != nil {
		fmt.Printf("    failure: %v\n", result.Failure)
	}
	fmt.Printf("    %s\n", result.Response)

	if !clients.Configured() {
		fmt.Println("\nSet GEMINI_API_KEY and/or OPENAI_API_KEY to exercise the providers.")
		os.Exit(1)
	}
}
