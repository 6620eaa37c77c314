package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
)

type mockEmailSender struct {
	sent    []EmailMessage
	callErr error
}

func (m *mockEmailSender) Send(ctx context.Context, msg EmailMessage) error {
	if m.callErr != nil {
		return m.callErr
	}
	m.sent = append(m.sent, msg)
	return nil
}

type mockSES struct {
	inputs []*sesv2.SendEmailInput
}

func (m *mockSES) SendEmail(ctx context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	m.inputs = append(m.inputs, in)
	return &sesv2.SendEmailOutput{}, nil
}

var seoul = time.FixedZone("KST", 9*60*60)

func sampleNotice() ReservationNotice {
	return ReservationNotice{
		StoreName:     "밝은 치과",
		OwnerEmail:    "owner@example.com",
		CustomerName:  "김민수",
		CustomerPhone: "01012345678",
		Service:       "스케일링",
		StartsAt:      time.Date(2026, 4, 10, 5, 30, 0, 0, time.UTC),
	}
}

func TestService_NotifyNewReservation(t *testing.T) {
	sender := &mockEmailSender{}
	svc := NewService(sender, seoul, nil)

	if err := svc.NotifyNewReservation(context.Background(), sampleNotice()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected 1 email, got %d", len(sender.sent))
	}
	msg := sender.sent[0]
	if msg.To != "owner@example.com" {
		t.Errorf("unexpected recipient %q", msg.To)
	}
	if !strings.Contains(msg.Subject, "김민수 (01012345678)") {
		t.Errorf("subject missing customer: %q", msg.Subject)
	}
	if !strings.Contains(msg.Body, "2026-04-10 14:30") {
		t.Errorf("body should render local time, got %q", msg.Body)
	}
	if !strings.Contains(msg.Body, "서비스: 스케일링") {
		t.Errorf("body missing service: %q", msg.Body)
	}
}

func TestService_NotifyNewReservation_NoOwnerEmail(t *testing.T) {
	sender := &mockEmailSender{}
	svc := NewService(sender, seoul, nil)

	n := sampleNotice()
	n.OwnerEmail = " "
	if err := svc.NotifyNewReservation(context.Background(), n); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sender.sent) != 0 {
		t.Errorf("expected no email, got %d", len(sender.sent))
	}
}

func TestService_NotifyNewReservation_SendError(t *testing.T) {
	svc := NewService(&mockEmailSender{callErr: errors.New("boom")}, seoul, nil)
	if err := svc.NotifyNewReservation(context.Background(), sampleNotice()); err == nil {
		t.Error("expected error from failing sender")
	}
}

func TestService_NilSafe(t *testing.T) {
	var svc *Service
	if err := svc.NotifyNewReservation(context.Background(), sampleNotice()); err != nil {
		t.Errorf("nil service should be a no-op, got %v", err)
	}
	if err := NewService(nil, nil, nil).NotifyReminderFailed(context.Background(), sampleNotice(), "x"); err != nil {
		t.Errorf("nil sender should be a no-op, got %v", err)
	}
}

func TestService_NotifyReminderFailed(t *testing.T) {
	sender := &mockEmailSender{}
	svc := NewService(sender, seoul, nil)

	n := sampleNotice()
	n.CustomerName = ""
	if err := svc.NotifyReminderFailed(context.Background(), n, "talktalk 401"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected 1 email, got %d", len(sender.sent))
	}
	body := sender.sent[0].Body
	if !strings.Contains(body, "고객: 01012345678") || !strings.Contains(body, "talktalk 401") {
		t.Errorf("unexpected body %q", body)
	}
}

func TestNewEmailSender_Selection(t *testing.T) {
	ses := &mockSES{}
	sender := NewEmailSender(ProviderConfig{Provider: "SES", SES: SESConfig{FromEmail: "no-reply@xivix.kr"}}, ses, nil)
	if _, ok := sender.(*SESSender); !ok {
		t.Fatalf("expected SES sender, got %T", sender)
	}
	if err := sender.Send(context.Background(), EmailMessage{To: "a@b.c", Subject: "s", Body: "b"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ses.inputs) != 1 || *ses.inputs[0].FromEmailAddress != "XIVIX AI <no-reply@xivix.kr>" {
		t.Errorf("unexpected SES input %+v", ses.inputs)
	}

	sender = NewEmailSender(ProviderConfig{Provider: "sendgrid", SendGrid: SendGridConfig{APIKey: "k", FromEmail: "a@b.c"}}, nil, nil)
	if _, ok := sender.(*SendGridSender); !ok {
		t.Errorf("expected SendGrid sender, got %T", sender)
	}

	sender = NewEmailSender(ProviderConfig{Provider: "ses"}, nil, nil)
	if _, ok := sender.(*StubEmailSender); !ok {
		t.Errorf("expected stub fallback, got %T", sender)
	}
}
