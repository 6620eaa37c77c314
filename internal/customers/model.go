package customers

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound     = errors.New("customers: not found")
	ErrInvalidPhone = errors.New("customers: invalid phone number")
)

// Customer is one CRM row owned by a store. Phone is unique per store.
type Customer struct {
	ID             string     `json:"id"`
	StoreID        string     `json:"store_id"`
	Name           string     `json:"name"`
	Phone          string     `json:"phone"`
	Email          string     `json:"email,omitempty"`
	TalkTalkUserID string     `json:"talktalk_user_id,omitempty"`
	Tags           []string   `json:"tags"`
	Memo           string     `json:"memo,omitempty"`
	VisitCount     int        `json:"visit_count"`
	LastVisitAt    *time.Time `json:"last_visit_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Validate normalizes the phone number and checks required fields.
func (c *Customer) Validate() error {
	c.Name = strings.TrimSpace(c.Name)
	phone, err := NormalizePhone(c.Phone)
	if err != nil {
		return err
	}
	c.Phone = phone
	if c.Name == "" {
		c.Name = phone
	}
	if c.Tags == nil {
		c.Tags = []string{}
	}
	return nil
}

// NormalizePhone reduces a Korean phone number to bare digits with a
// leading 0 (+82 10-1234-5678 becomes 01012345678).
func NormalizePhone(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if strings.HasPrefix(strings.TrimSpace(raw), "+82") || (strings.HasPrefix(digits, "82") && len(digits) >= 11) {
		digits = "0" + strings.TrimPrefix(digits, "82")
	}
	if len(digits) < 9 || len(digits) > 11 || digits[0] != '0' {
		return "", ErrInvalidPhone
	}
	return digits, nil
}

// ImportResult reports a CSV import.
type ImportResult struct {
	Imported int        `json:"imported"`
	Skipped  int        `json:"skipped"`
	Errors   []RowError `json:"errors"`
}

// RowError explains why a CSV line was skipped. Line is 1-based and counts the header.
type RowError struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}
