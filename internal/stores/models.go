package stores

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ikjoobang/xivix-ai-core-sub000/internal/conversation"
)

var (
	ErrNotFound  = errors.New("stores: not found")
	ErrInvalid   = errors.New("stores: invalid store")
	ErrForbidden = errors.New("stores: forbidden")
)

// Store is one business using the TalkTalk agent.
type Store struct {
	ID                 uuid.UUID `json:"id"`
	OwnerID            uuid.UUID `json:"owner_id"`
	Name               string    `json:"name"`
	BusinessType       string    `json:"business_type"`
	Hours              string    `json:"hours"`
	Address            string    `json:"address"`
	Phone              string    `json:"phone"`
	MenuText           string    `json:"menu_text"`
	Persona            string    `json:"persona"`
	Tone               string    `json:"tone"`
	Greeting           string    `json:"greeting"`
	CustomSystemPrompt string    `json:"custom_system_prompt"`
	Language           string    `json:"language"`
	OwnerEmail         string    `json:"owner_email"`
	// TalkTalkToken authorizes outbound sends for this store's partner account.
	TalkTalkToken string    `json:"talktalk_token,omitempty"`
	Active        bool      `json:"active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Validate checks required fields and normalizes business type and language.
func (s *Store) Validate() error {
	s.Name = strings.TrimSpace(s.Name)
	if s.Name == "" {
		return errors.Join(ErrInvalid, errors.New("name is required"))
	}
	s.BusinessType = strings.ToUpper(strings.TrimSpace(s.BusinessType))
	if s.BusinessType == "" {
		s.BusinessType = "GENERAL"
	}
	s.Language = strings.ToLower(strings.TrimSpace(s.Language))
	if s.Language != "" && s.Language != "ko" && !conversation.SupportedLanguage(s.Language) {
		return errors.Join(ErrInvalid, errors.New("unsupported language "+s.Language))
	}
	return nil
}

// Profile converts the store into the conversation pipeline's view.
func (s *Store) Profile() *conversation.StoreProfile {
	return &conversation.StoreProfile{
		ID:           s.ID.String(),
		BusinessType: s.BusinessType,
		Language:     s.Language,
		Active:       s.Active,
		Prompt: conversation.StorePromptConfig{
			Name:               s.Name,
			BusinessType:       s.BusinessType,
			Hours:              s.Hours,
			Address:            s.Address,
			Phone:              s.Phone,
			MenuText:           s.MenuText,
			Persona:            s.Persona,
			Tone:               s.Tone,
			Greeting:           s.Greeting,
			CustomSystemPrompt: s.CustomSystemPrompt,
		},
	}
}

// Redacted hides the outbound token for API responses.
func (s Store) Redacted() Store {
	if s.TalkTalkToken != "" {
		s.TalkTalkToken = "********"
	}
	return s
}
