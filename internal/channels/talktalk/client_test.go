package talktalk

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAPIServer(t *testing.T, status int, ack SendResponse, got *[]SendRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer store_token", r.Header.Get("Authorization"))
		var req SendRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		*got = append(*got, req)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(ack)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_SendVariants(t *testing.T) {
	var got []SendRequest
	srv := newAPIServer(t, http.StatusOK, SendResponse{Success: true, ResultCode: "00"}, &got)
	c := NewClient("store_token")
	c.SetEndpoint(srv.URL)
	ctx := context.Background()

	require.NoError(t, c.SendText(ctx, "u1", "안녕하세요"))
	require.NoError(t, c.SendButtons(ctx, "u1", "예약", "원하시는 시간을 선택하세요", []Button{
		TextButton("오늘", "TODAY"), TextButton("내일", "TOMORROW"),
	}))
	require.NoError(t, c.SendTyping(ctx, "u1", true))

	require.Len(t, got, 3)
	assert.Equal(t, "안녕하세요", got[0].TextContent.Text)
	require.NotNil(t, got[1].CompositeContent)
	buttons := got[1].CompositeContent.CompositeList[0].ButtonList
	require.Len(t, buttons, 2)
	assert.Equal(t, "TEXT", buttons[0].Type)
	assert.Equal(t, "TODAY", buttons[0].Data.Code)
	assert.Equal(t, "내일", buttons[1].Data.Title)
	assert.Equal(t, EventAction, got[2].Event)
	assert.Equal(t, "typingOn", got[2].Options.Action)
}

func TestClient_Errors(t *testing.T) {
	var got []SendRequest
	srv := newAPIServer(t, http.StatusOK, SendResponse{Success: false, ResultCode: "02", ResultMessage: "invalid user"}, &got)
	c := NewClient("store_token")
	c.SetEndpoint(srv.URL)
	err := c.SendText(context.Background(), "u1", "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid user")

	srv500 := newAPIServer(t, http.StatusInternalServerError, SendResponse{}, &got)
	c.SetEndpoint(srv500.URL)
	assert.ErrorContains(t, c.SendText(context.Background(), "u1", "hi"), "unexpected status 500")

	assert.ErrorIs(t, NewClient("").SendText(context.Background(), "u1", "hi"), ErrNoToken)
}
