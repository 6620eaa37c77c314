package talktalk

import (
	"encoding/json"
	"strings"
)

// ParseWebhook normalizes an inbound webhook body. It returns nil for shapes
// it does not understand: malformed JSON, a missing event or user, an unknown
// event, or a send event with neither text nor image.
func ParseWebhook(body []byte) *InboundEvent {
	var payload WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil
	}
	event := strings.TrimSpace(payload.Event)
	user := strings.TrimSpace(payload.User)
	if event == "" || user == "" {
		return nil
	}

	out := &InboundEvent{Event: event, User: user}
	switch event {
	case EventSend:
		if payload.TextContent != nil {
			out.Text = strings.TrimSpace(payload.TextContent.Text)
			out.Code = payload.TextContent.Code
		}
		if payload.ImageContent != nil {
			out.ImageURL = strings.TrimSpace(payload.ImageContent.ImageURL)
		}
		if !out.HasContent() {
			return nil
		}
	case EventOpen:
		if payload.Options != nil {
			out.Inflow = payload.Options.Inflow
		}
	case EventLeave, EventFriend, EventEcho, EventAction:
	default:
		return nil
	}
	return out
}
