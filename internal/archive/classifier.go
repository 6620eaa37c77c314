package archive

import (
	"github.com/ikjoobang/xivix-ai-core-sub000/internal/conversation"
)

// reviewConfidence is the verifier confidence below which a conversation is
// flagged for human review.
const reviewConfidence = 0.7

// Label derives review labels from a customer's log records.
func Label(records []conversation.LogRecord) Labels {
	var l Labels
	seen := map[conversation.ConsultationType]bool{}
	for _, rec := range records {
		seen[rec.ConsultationType] = true
		switch rec.ConsultationType {
		case conversation.ConsultationExpert:
			l.ExpertTurns++
			if !rec.Verified {
				l.UnverifiedTurns++
			}
		case conversation.ConsultationImage:
			l.ImageTurns++
		}
		if rec.Failure != "" {
			l.DegradedTurns++
		}
		if rec.Confidence != nil && (l.MinConfidence == 0 || *rec.Confidence < l.MinConfidence) {
			l.MinConfidence = *rec.Confidence
		}
		if ContainsPII(rec.UserMessage) || ContainsPII(rec.AIResponse) {
			l.ContainsPII = true
		}
	}

	switch {
	case len(seen) > 1:
		l.Category = "mixed"
	case len(seen) == 1:
		for k := range seen {
			l.Category = string(k)
		}
	default:
		l.Category = string(conversation.ConsultationSimple)
	}

	l.NeedsReview = l.DegradedTurns > 0 || l.UnverifiedTurns > 0 ||
		(l.MinConfidence > 0 && l.MinConfidence < reviewConfidence)
	return l
}
