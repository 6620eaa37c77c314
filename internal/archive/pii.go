package archive

import (
	"crypto/sha256"
	"fmt"
	"regexp"
)

// Order matters: the longer digit patterns run before phone numbers so a
// card or RRN is not half-eaten by the phone pattern.
var piiRules = []struct {
	re   *regexp.Regexp
	mask string
}{
	{regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`), "[이메일]"},
	{regexp.MustCompile(`\b\d{6}[-\s]?[1-8]\d{6}\b`), "[주민번호]"},
	{regexp.MustCompile(`\b\d{4}[-\s]\d{4}[-\s]\d{4}[-\s]\d{4}\b|\b\d{16}\b`), "[카드번호]"},
	{regexp.MustCompile(`(?:\+82[-\s]?|\b0)1[016789][-\s.]?\d{3,4}[-\s.]?\d{4}\b`), "[전화번호]"},
	{regexp.MustCompile(`\b0(?:2|[3-6][1-5]|70)[-\s.]?\d{3,4}[-\s.]?\d{4}\b`), "[전화번호]"},
	{regexp.MustCompile(`\b\d{2,6}-\d{2,6}-\d{2,7}\b|\b\d{11,14}\b`), "[계좌번호]"},
}

// MaskPII replaces Korean personal identifiers in free text: emails,
// resident registration numbers, card numbers, mobile and landline numbers,
// and bank-account-like digit runs.
func MaskPII(text string) string {
	for _, rule := range piiRules {
		text = rule.re.ReplaceAllString(text, rule.mask)
	}
	return text
}

// ContainsPII reports whether MaskPII would change text.
func ContainsPII(text string) bool {
	for _, rule := range piiRules {
		if rule.re.MatchString(text) {
			return true
		}
	}
	return false
}

// HashCustomer returns the hex SHA-256 of a store-scoped customer ID.
func HashCustomer(storeID, customerID string) string {
	h := sha256.Sum256([]byte(storeID + ":" + customerID))
	return fmt.Sprintf("%x", h)
}

// MaskMessages applies MaskPII to every message in place.
func MaskMessages(msgs []Message) {
	for i := range msgs {
		msgs[i].Content = MaskPII(msgs[i].Content)
	}
}
