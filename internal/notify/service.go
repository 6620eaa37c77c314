package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ikjoobang/xivix-ai-core-sub000/pkg/logging"
)

// ProviderConfig selects the outbound email provider.
type ProviderConfig struct {
	Provider string
	SendGrid SendGridConfig
	SES      SESConfig
}

// NewEmailSender picks a configured provider and falls back to the stub.
// ses may be nil when the provider is not "ses".
func NewEmailSender(cfg ProviderConfig, ses SESAPI, logger *logging.Logger) EmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "ses":
		if sender := NewSESSender(ses, cfg.SES, logger); sender != nil {
			return sender
		}
	case "sendgrid", "":
		if sender := NewSendGridSender(cfg.SendGrid, logger); sender != nil {
			return sender
		}
	}
	logger.Warn("notify: email provider not configured, using stub", "provider", cfg.Provider)
	return NewStubEmailSender(logger)
}

// ReservationNotice describes a booking for an owner-facing email.
type ReservationNotice struct {
	StoreName     string
	OwnerEmail    string
	CustomerName  string
	CustomerPhone string
	Service       string
	StartsAt      time.Time
	Note          string
}

// Service sends store-owner notifications.
type Service struct {
	email    EmailSender
	location *time.Location
	logger   *logging.Logger
}

// NewService creates a notification service. Times are rendered in loc.
func NewService(email EmailSender, loc *time.Location, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{email: email, location: loc, logger: logger}
}

// NotifyNewReservation emails the owner about a booking made for their store.
// Stores without an owner email are skipped.
func (s *Service) NotifyNewReservation(ctx context.Context, n ReservationNotice) error {
	if s == nil || s.email == nil {
		return nil
	}
	if strings.TrimSpace(n.OwnerEmail) == "" {
		s.logger.Debug("notify: owner email missing, skipping reservation notice", "store", n.StoreName)
		return nil
	}
	customer := customerLabel(n)
	subject := fmt.Sprintf("[%s] 새 예약: %s", n.StoreName, customer)

	var b strings.Builder
	fmt.Fprintf(&b, "%s에 새 예약이 등록되었습니다.\n\n", n.StoreName)
	fmt.Fprintf(&b, "고객: %s\n", customer)
	fmt.Fprintf(&b, "일시: %s\n", s.formatTime(n.StartsAt))
	if n.Service != "" {
		fmt.Fprintf(&b, "서비스: %s\n", n.Service)
	}
	if n.Note != "" {
		fmt.Fprintf(&b, "메모: %s\n", n.Note)
	}
	b.WriteString("\n예약 하루 전과 한 시간 전에 고객에게 톡톡 알림이 발송됩니다.\n")

	if err := s.email.Send(ctx, EmailMessage{To: n.OwnerEmail, Subject: subject, Body: b.String(), Category: CategoryReservation}); err != nil {
		return fmt.Errorf("notify: reservation email: %w", err)
	}
	return nil
}

// NotifyReminderFailed tells the owner a reminder gave up after its retries.
func (s *Service) NotifyReminderFailed(ctx context.Context, n ReservationNotice, reason string) error {
	if s == nil || s.email == nil || strings.TrimSpace(n.OwnerEmail) == "" {
		return nil
	}
	subject := fmt.Sprintf("[%s] 예약 알림 발송 실패", n.StoreName)
	body := fmt.Sprintf("다음 예약의 톡톡 알림을 보내지 못했습니다.\n\n고객: %s\n일시: %s\n사유: %s\n\n고객에게 직접 연락해 주세요.\n",
		customerLabel(n), s.formatTime(n.StartsAt), reason)
	if err := s.email.Send(ctx, EmailMessage{To: n.OwnerEmail, Subject: subject, Body: body, Category: CategoryReminderFailed}); err != nil {
		return fmt.Errorf("notify: reminder failure email: %w", err)
	}
	return nil
}

func (s *Service) formatTime(t time.Time) string {
	return t.In(s.location).Format("2006-01-02 15:04")
}

func customerLabel(n ReservationNotice) string {
	switch {
	case n.CustomerName != "" && n.CustomerPhone != "" && n.CustomerName != n.CustomerPhone:
		return fmt.Sprintf("%s (%s)", n.CustomerName, n.CustomerPhone)
	case n.CustomerName != "":
		return n.CustomerName
	case n.CustomerPhone != "":
		return n.CustomerPhone
	default:
		return "고객"
	}
}
