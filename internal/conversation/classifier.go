package conversation

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConsultationType is the routing decision made for a single inbound message.
type ConsultationType string

const (
	ConsultationSimple ConsultationType = "simple"
	ConsultationExpert ConsultationType = "expert"
	ConsultationImage  ConsultationType = "image"
)

//go:embed keywords.yaml
var defaultKeywordsYAML []byte

// KeywordTables is the data the classifier routes on.
type KeywordTables struct {
	ExpertBusinessTypes []string `yaml:"expert_business_types"`
	SimpleKeywords      []string `yaml:"simple_keywords"`
	ExpertKeywords      []string `yaml:"expert_keywords"`
}

// Classifier picks a processing path from message text, business type and
// image presence. It holds no mutable state.
type Classifier struct {
	expertTypes    map[string]struct{}
	simpleKeywords []string
	expertKeywords []string
}

var defaultClassifier = mustClassifier(defaultKeywordsYAML)

// DefaultClassifier returns the classifier built from the embedded tables.
func DefaultClassifier() *Classifier {
	return defaultClassifier
}

// NewClassifierFromYAML builds a classifier from a YAML document shaped like
// keywords.yaml.
func NewClassifierFromYAML(data []byte) (*Classifier, error) {
	var tables KeywordTables
	if err := yaml.Unmarshal(data, &tables); err != nil {
		return nil, fmt.Errorf("conversation: parse keyword tables: %w", err)
	}
	if len(tables.ExpertBusinessTypes) == 0 && len(tables.ExpertKeywords) == 0 {
		return nil, fmt.Errorf("conversation: keyword tables are empty")
	}
	return NewClassifier(tables), nil
}

// NewClassifier builds a classifier from in-memory tables.
func NewClassifier(tables KeywordTables) *Classifier {
	c := &Classifier{expertTypes: make(map[string]struct{}, len(tables.ExpertBusinessTypes))}
	for _, bt := range tables.ExpertBusinessTypes {
		if key := normalizeBusinessType(bt); key != "" {
			c.expertTypes[key] = struct{}{}
		}
	}
	c.simpleKeywords = normalizeKeywords(tables.SimpleKeywords)
	c.expertKeywords = normalizeKeywords(tables.ExpertKeywords)
	return c
}

func mustClassifier(data []byte) *Classifier {
	c, err := NewClassifierFromYAML(data)
	if err != nil {
		panic(err)
	}
	return c
}

// Classify returns the consultation type. Image presence dominates, then a
// high-stakes business type without a simple keyword, then any expert keyword.
func (c *Classifier) Classify(message, businessType string, hasImage bool) ConsultationType {
	if hasImage {
		return ConsultationImage
	}
	text := strings.ToLower(message)
	if c.IsExpertBusiness(businessType) && !containsAny(text, c.simpleKeywords) {
		return ConsultationExpert
	}
	if containsAny(text, c.expertKeywords) {
		return ConsultationExpert
	}
	return ConsultationSimple
}

// IsExpertBusiness reports whether businessType is in the high-stakes set.
func (c *Classifier) IsExpertBusiness(businessType string) bool {
	_, ok := c.expertTypes[normalizeBusinessType(businessType)]
	return ok
}

func normalizeBusinessType(bt string) string {
	bt = strings.ToUpper(strings.TrimSpace(bt))
	return strings.NewReplacer("-", "_", " ", "_").Replace(bt)
}

func normalizeKeywords(in []string) []string {
	out := make([]string, 0, len(in))
	for _, kw := range in {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			out = append(out, kw)
		}
	}
	return out
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
