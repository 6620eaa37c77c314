package talktalk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	DefaultAPIBase     = "https://gw.talk.naver.com/chatbot/v1/event"
	defaultHTTPTimeout = 10 * time.Second
)

// ErrNoToken is returned when sending without a partner token.
var ErrNoToken = errors.New("talktalk: missing partner token")

// Client sends events through the TalkTalk partner API for one store.
type Client struct {
	token      string
	endpoint   string
	httpClient *http.Client
}

// NewClient creates a client authorized with the store's partner token.
func NewClient(token string) *Client {
	return &Client{
		token:      token,
		endpoint:   DefaultAPIBase,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
}

// SetEndpoint overrides the API URL (used by tests).
func (c *Client) SetEndpoint(endpoint string) {
	c.endpoint = endpoint
}

// SetHTTPClient replaces the transport.
func (c *Client) SetHTTPClient(hc *http.Client) {
	if hc != nil {
		c.httpClient = hc
	}
}

// WithToken returns a copy of the client bound to another store's token.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

// SendText sends a plain text message.
func (c *Client) SendText(ctx context.Context, user, text string) error {
	return c.send(ctx, SendRequest{
		Event:       EventSend,
		User:        user,
		TextContent: &TextContent{Text: text},
	})
}

// SendButtons sends a single card with buttons.
func (c *Client) SendButtons(ctx context.Context, user, title, description string, buttons []Button) error {
	return c.send(ctx, SendRequest{
		Event: EventSend,
		User:  user,
		CompositeContent: &CompositeContent{CompositeList: []Composite{{
			Title:       title,
			Description: description,
			ButtonList:  buttons,
		}}},
	})
}

// SendTyping toggles the typing indicator.
func (c *Client) SendTyping(ctx context.Context, user string, on bool) error {
	action := "typingOff"
	if on {
		action = "typingOn"
	}
	return c.send(ctx, SendRequest{Event: EventAction, User: user, Options: &Options{Action: action}})
}

func (c *Client) send(ctx context.Context, req SendRequest) error {
	if c.token == "" {
		return ErrNoToken
	}
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("talktalk: marshal send request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("talktalk: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json;charset=UTF-8")
	httpReq.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("talktalk: send %s: %w", req.Event, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("talktalk: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("talktalk: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var ack SendResponse
	if err := json.Unmarshal(respBody, &ack); err != nil {
		return fmt.Errorf("talktalk: unmarshal response: %w", err)
	}
	if !ack.Success {
		return fmt.Errorf("talktalk: API error %s: %s", ack.ResultCode, ack.ResultMessage)
	}
	return nil
}
