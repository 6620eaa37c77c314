package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ikjoobang/xivix-ai-core-sub000/internal/auth"
)

func sessionService(t *testing.T, secret string) *auth.Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return auth.NewService(nil, nil, client, auth.Config{Secret: secret}, nil)
}

func issue(t *testing.T, svc *auth.Service, role string) string {
	t.Helper()
	token, _, err := svc.IssueToken(&auth.User{ID: uuid.New(), Email: "owner@example.com", Role: role})
	require.NoError(t, err)
	return token
}

func rejection(t *testing.T, rec *httptest.ResponseRecorder) auth.Result {
	t.Helper()
	var res auth.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	return res
}

func TestAdminJWTRejections(t *testing.T) {
	svc := sessionService(t, "secret")
	other := sessionService(t, "other-secret")
	loggedOut := issue(t, svc, auth.RoleOwner)
	require.True(t, svc.Logout(context.Background(), loggedOut).Success)

	cases := []struct {
		name     string
		verifier SessionVerifier
		header   string
		msg      string
	}{
		{"no verifier", nil, "Bearer x", MsgLoginRequired},
		{"no header", svc, "", MsgLoginRequired},
		{"not bearer", svc, "Basic b3duZXI6cHc=", MsgLoginRequired},
		{"foreign signature", svc, "Bearer " + issue(t, other, auth.RoleOwner), MsgSessionInvalid},
		{"logged out", svc, "Bearer " + loggedOut, MsgSessionInvalid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin/stores", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			AdminJWT(tc.verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatal("handler must not run")
			})).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
			res := rejection(t, rec)
			assert.False(t, res.Success)
			assert.Equal(t, tc.msg, res.Error)
		})
	}
}

func TestAdminJWTPutsClaimsOnContext(t *testing.T) {
	svc := sessionService(t, "secret")
	req := httptest.NewRequest(http.MethodGet, "/admin/stores", nil)
	req.Header.Set("Authorization", "Bearer "+issue(t, svc, auth.RoleOwner))
	rec := httptest.NewRecorder()

	var email string
	AdminJWT(svc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := auth.ClaimsFromContext(r.Context())
		require.True(t, ok)
		email = claims.Email
		w.WriteHeader(http.StatusNoContent)
	})).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "owner@example.com", email)
}

func TestRequireAdmin(t *testing.T) {
	svc := sessionService(t, "secret")
	h := AdminJWT(svc)(RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	for role, want := range map[string]int{auth.RoleOwner: http.StatusForbidden, auth.RoleAdmin: http.StatusOK} {
		req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
		req.Header.Set("Authorization", "Bearer "+issue(t, svc, role))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code, role)
		if want == http.StatusForbidden {
			assert.Equal(t, MsgForbidden, rejection(t, rec).Error)
		}
	}
}
