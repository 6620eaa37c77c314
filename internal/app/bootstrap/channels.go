package bootstrap

import (
	"time"

	"github.com/ikjoobang/xivix-ai-core-sub000/internal/channels/talktalk"
	appconfig "github.com/ikjoobang/xivix-ai-core-sub000/internal/config"
	"github.com/ikjoobang/xivix-ai-core-sub000/internal/notify"
	"github.com/ikjoobang/xivix-ai-core-sub000/internal/observability/metrics"
	"github.com/ikjoobang/xivix-ai-core-sub000/pkg/logging"
)

// BuildTalkTalkAdapter wires the TalkTalk channel. conversations may be nil
// for binaries that only push messages.
func BuildTalkTalkAdapter(cfg *appconfig.Config, conversations talktalk.Conversations, tokens talktalk.TokenSource, logger *logging.Logger, m *metrics.ConversationMetrics) *talktalk.Adapter {
	client := talktalk.NewClient("")
	if cfg.TalkTalkAPIURL != "" {
		client.SetEndpoint(cfg.TalkTalkAPIURL)
	}
	return talktalk.NewAdapter(talktalk.AdapterConfig{
		Conversations: conversations,
		Tokens:        tokens,
		Client:        client,
		ChunkRunes:    cfg.TalkTalkChunkRunes,
		TypingDelay:   cfg.TalkTalkTypingDelay,
		QuickReplies:  cfg.TalkTalkQuickReplies,
		Logger:        logger.Component("talktalk"),
		Metrics:       m,
	})
}

// EmailProviderConfig maps env config onto the notify provider selection.
func EmailProviderConfig(cfg *appconfig.Config) notify.ProviderConfig {
	return notify.ProviderConfig{
		Provider: cfg.EmailProvider,
		SendGrid: notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		},
		SES: notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SendGridFromName,
		},
	}
}

// BuildNotifier returns the owner email service. ses may be nil unless the
// provider is "ses".
func BuildNotifier(cfg *appconfig.Config, ses notify.SESAPI, loc *time.Location, logger *logging.Logger) *notify.Service {
	logger = logger.Component("notify")
	return notify.NewService(notify.NewEmailSender(EmailProviderConfig(cfg), ses, logger), loc, logger)
}
