package talktalk

// Event names sent by the TalkTalk partner webhook.
const (
	EventOpen   = "open"
	EventSend   = "send"
	EventLeave  = "leave"
	EventFriend = "friend"
	EventEcho   = "echo"
	EventAction = "action"
)

// WebhookPayload is the raw inbound webhook body.
type WebhookPayload struct {
	Event        string        `json:"event"`
	User         string        `json:"user"`
	TextContent  *TextContent  `json:"textContent,omitempty"`
	ImageContent *ImageContent `json:"imageContent,omitempty"`
	Options      *Options      `json:"options,omitempty"`
}

// TextContent carries a text message.
type TextContent struct {
	Text      string `json:"text"`
	Code      string `json:"code,omitempty"`
	InputType string `json:"inputType,omitempty"`
}

// ImageContent carries an image URL hosted by the platform.
type ImageContent struct {
	ImageURL string `json:"imageUrl"`
}

// Options holds event-specific flags (inflow for open, action for typing).
type Options struct {
	Inflow string `json:"inflow,omitempty"`
	Action string `json:"action,omitempty"`
	Set    string `json:"set,omitempty"`
}

// InboundEvent is the normalized result of parsing a webhook body.
type InboundEvent struct {
	Event    string
	User     string
	Text     string
	Code     string
	ImageURL string
	Inflow   string
}

// HasContent reports whether a send event carries something to answer.
func (e *InboundEvent) HasContent() bool {
	return e.Text != "" || e.ImageURL != ""
}

// SendRequest is the outbound event body.
type SendRequest struct {
	Event            string            `json:"event"`
	User             string            `json:"user"`
	TextContent      *TextContent      `json:"textContent,omitempty"`
	ImageContent     *ImageContent     `json:"imageContent,omitempty"`
	CompositeContent *CompositeContent `json:"compositeContent,omitempty"`
	Options          *Options          `json:"options,omitempty"`
}

// CompositeContent is a card list with buttons.
type CompositeContent struct {
	CompositeList []Composite `json:"compositeList"`
}

// Composite is one card.
type Composite struct {
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	ButtonList  []Button `json:"buttonList,omitempty"`
}

// Button is a card button. A TEXT button sends its title back as a message.
type Button struct {
	Type string     `json:"type"`
	Data ButtonData `json:"data"`
}

// ButtonData is the button payload.
type ButtonData struct {
	Title string `json:"title"`
	Code  string `json:"code,omitempty"`
}

// TextButton builds a quick-reply style button.
func TextButton(title, code string) Button {
	return Button{Type: "TEXT", Data: ButtonData{Title: title, Code: code}}
}

// SendResponse is the API acknowledgement.
type SendResponse struct {
	Success       bool   `json:"success"`
	ResultCode    string `json:"resultCode"`
	ResultMessage string `json:"resultMessage,omitempty"`
}
