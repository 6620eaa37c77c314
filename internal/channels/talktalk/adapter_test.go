package talktalk

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ikjoobang/xivix-ai-core-sub000/internal/conversation"
	"github.com/ikjoobang/xivix-ai-core-sub000/internal/observability/metrics"
)

type stubConversations struct {
	mu       sync.Mutex
	inbound  []conversation.InboundMessage
	outcome  *conversation.Outcome
	err      error
	greeting string
}

func (s *stubConversations) HandleInbound(_ context.Context, msg conversation.InboundMessage) (*conversation.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inbound = append(s.inbound, msg)
	if s.err != nil {
		return nil, s.err
	}
	return s.outcome, nil
}

func (s *stubConversations) Greeting(_ context.Context, _ string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.greeting, nil
}

type stubTokens map[string]string

func (s stubTokens) TalkTalkToken(_ context.Context, storeID string) (string, error) {
	return s[storeID], nil
}

type sentLog struct {
	mu   sync.Mutex
	reqs []SendRequest
}

func (l *sentLog) texts() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, r := range l.reqs {
		if r.TextContent != nil {
			out = append(out, r.TextContent.Text)
		}
	}
	return out
}

func newAdapterFixture(t *testing.T, conv *stubConversations, quickReplies ...string) (http.Handler, *sentLog) {
	t.Helper()
	log := &sentLog{}
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req SendRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		log.mu.Lock()
		log.reqs = append(log.reqs, req)
		log.mu.Unlock()
		_ = json.NewEncoder(w).Encode(SendResponse{Success: true, ResultCode: "00"})
	}))
	t.Cleanup(api.Close)

	client := NewClient("")
	client.SetEndpoint(api.URL)
	adapter := NewAdapter(AdapterConfig{
		Conversations: conv,
		Tokens:        stubTokens{"store-1": "tok-1"},
		Client:        client,
		QuickReplies:  quickReplies,
		Metrics:       metrics.NewConversationMetrics(prometheus.NewRegistry()),
	})
	r := chi.NewRouter()
	adapter.RegisterRoutes(r)
	return r, log
}

func post(h http.Handler, storeID, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhooks/talktalk/"+storeID, strings.NewReader(body)))
	return rec
}

func TestAdapter_SendEventRepliesThroughAPI(t *testing.T) {
	conv := &stubConversations{outcome: &conversation.Outcome{Reply: "오늘은 10시부터 영업합니다."}}
	h, sent := newAdapterFixture(t, conv)

	rec := post(h, "store-1", `{"event":"send","user":"cust-9","textContent":{"text":"몇 시에 열어요?"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())

	require.Len(t, conv.inbound, 1)
	assert.Equal(t, conversation.InboundMessage{StoreID: "store-1", CustomerID: "cust-9", Text: "몇 시에 열어요?"}, conv.inbound[0])
	assert.Equal(t, []string{"오늘은 10시부터 영업합니다."}, sent.texts())
	assert.Equal(t, "cust-9", sent.reqs[0].User)
}

func TestAdapter_OpenSendsGreeting(t *testing.T) {
	conv := &stubConversations{greeting: "안녕하세요! 연남 파스타입니다."}
	h, sent := newAdapterFixture(t, conv)

	rec := post(h, "store-1", `{"event":"open","user":"cust-1","options":{"inflow":"list"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"안녕하세요! 연남 파스타입니다."}, sent.texts())
	assert.Empty(t, conv.inbound)
}

func TestAdapter_OpenOffersQuickReplies(t *testing.T) {
	conv := &stubConversations{greeting: "안녕하세요! 연남 파스타입니다."}
	h, sent := newAdapterFixture(t, conv, "영업시간", " ", "예약 문의")

	rec := post(h, "store-1", `{"event":"open","user":"cust-1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, sent.reqs, 2)
	assert.Equal(t, "안녕하세요! 연남 파스타입니다.", sent.reqs[0].TextContent.Text)

	card := sent.reqs[1].CompositeContent
	require.NotNil(t, card)
	require.Len(t, card.CompositeList, 1)
	assert.Equal(t, QuickReplyPrompt, card.CompositeList[0].Description)
	assert.Equal(t, []Button{TextButton("영업시간", "영업시간"), TextButton("예약 문의", "예약 문의")}, card.CompositeList[0].ButtonList)
	assert.Equal(t, "cust-1", sent.reqs[1].User)

	// A tapped button arrives as a plain send event.
	conv.outcome = &conversation.Outcome{Reply: "평일 11시부터 21시까지 영업합니다."}
	rec = post(h, "store-1", `{"event":"send","user":"cust-1","textContent":{"text":"영업시간","code":"영업시간"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, conv.inbound, 1)
	assert.Equal(t, "영업시간", conv.inbound[0].Text)
}

func TestAdapter_QuickRepliesSkippedWithoutToken(t *testing.T) {
	conv := &stubConversations{greeting: "안녕하세요"}
	h, sent := newAdapterFixture(t, conv, "영업시간")

	rec := post(h, "store-2", `{"event":"open","user":"cust-1"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, sent.reqs)
}

func TestAdapter_AckOnlyEvents(t *testing.T) {
	conv := &stubConversations{}
	h, sent := newAdapterFixture(t, conv)

	for _, ev := range []string{"leave", "friend", "echo"} {
		rec := post(h, "store-1", `{"event":"`+ev+`","user":"cust-1"}`)
		assert.Equal(t, http.StatusOK, rec.Code, ev)
	}
	assert.Empty(t, conv.inbound)
	assert.Empty(t, sent.texts())
}

func TestAdapter_RejectsAndUnknownStore(t *testing.T) {
	conv := &stubConversations{err: conversation.ErrStoreNotFound}
	h, sent := newAdapterFixture(t, conv)

	assert.Equal(t, http.StatusBadRequest, post(h, "store-1", `{"event":"send","user":"u"}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(h, "store-1", `not json`).Code)
	assert.Equal(t, http.StatusNotFound, post(h, "store-x", `{"event":"send","user":"u","textContent":{"text":"hi"}}`).Code)

	conv.err = conversation.ErrStoreInactive
	assert.Equal(t, http.StatusNotFound, post(h, "store-1", `{"event":"open","user":"u"}`).Code)
	assert.Empty(t, sent.texts())
}

func TestAdapter_MissingTokenSkipsSend(t *testing.T) {
	conv := &stubConversations{outcome: &conversation.Outcome{Reply: "답변"}}
	h, sent := newAdapterFixture(t, conv)

	rec := post(h, "store-2", `{"event":"send","user":"u","textContent":{"text":"hi"}}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, sent.texts())
}

func TestAdapter_Sender(t *testing.T) {
	a := NewAdapter(AdapterConfig{Tokens: stubTokens{"store-1": "tok-1"}})
	c, err := a.Sender(context.Background(), "store-1")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", c.token)

	_, err = a.Sender(context.Background(), "store-2")
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestAdapter_SendTextPush(t *testing.T) {
	var got []SendRequest
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req SendRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		got = append(got, req)
		_ = json.NewEncoder(w).Encode(SendResponse{Success: true})
	}))
	t.Cleanup(api.Close)

	client := NewClient("")
	client.SetEndpoint(api.URL)
	a := NewAdapter(AdapterConfig{Tokens: stubTokens{"store-1": "tok-1"}, Client: client})

	require.NoError(t, a.SendText(context.Background(), "store-1", "cust-3", "내일 예약 안내드립니다."))
	require.Len(t, got, 1)
	assert.Equal(t, "cust-3", got[0].User)
	assert.Equal(t, "내일 예약 안내드립니다.", got[0].TextContent.Text)

	assert.ErrorIs(t, a.SendText(context.Background(), "store-2", "cust-3", "x"), ErrNoToken)
}
