package main

import (
	"context"
	"strings"
	"testing"

	appconfig "github.com/ikjoobang/xivix-ai-core-sub000/internal/config"
	"github.com/ikjoobang/xivix-ai-core-sub000/pkg/logging"
)

func TestRunRequiresPostgres(t *testing.T) {
	err := run(context.Background(), &appconfig.Config{}, logging.New("error"))
	if err == nil || !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Fatalf("expected missing postgres error, got %v", err)
	}
}
