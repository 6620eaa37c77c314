package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthRouter(f *fixture) http.Handler {
	r := chi.NewRouter()
	r.Route("/auth", NewHandler(f.service, nil).RegisterRoutes)
	return r
}

func decodeResult(t *testing.T, rec *httptest.ResponseRecorder) Result {
	t.Helper()
	var res Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	return res
}

func TestHandler_RegisterConflict(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectExec("INSERT INTO users").WithArgs(anyArgs(7)...).WillReturnError(&pgconn.PgError{Code: "23505"})

	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(`{"email":"a@b.kr","password":"password123"}`))
	rec := httptest.NewRecorder()
	newAuthRouter(f).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	res := decodeResult(t, rec)
	assert.False(t, res.Success)
	assert.Equal(t, MsgDuplicateEmail, res.Error)
}

func TestHandler_LoginAndLogout(t *testing.T) {
	f := newFixture(t)
	f.expectUser(t, "a@b.kr", "password123")
	router := newAuthRouter(f)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"a@b.kr","password":"password123"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	login := decodeResult(t, rec)
	require.True(t, login.Success)
	assert.NotContains(t, rec.Body.String(), "password_hash")

	req = httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+login.Token)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeResult(t, rec).Success)
}

func TestHandler_LoginBadBody(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{`))
	rec := httptest.NewRecorder()
	newAuthRouter(f).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_Me(t *testing.T) {
	f := newFixture(t)
	f.expectUser(t, "a@b.kr", "password123")
	login := f.service.Login(t.Context(), "a@b.kr", "password123")
	require.True(t, login.Success)

	f.mock.ExpectQuery("SELECT id, email, password_hash").
		WithArgs(login.User.ID).
		WillReturnRows(pgxmock.NewRows(userColumns).AddRow(login.User.ID, "a@b.kr", "hash", "사장님", RoleOwner, login.User.CreatedAt, login.User.UpdatedAt))

	claims, err := f.service.VerifySession(t.Context(), login.Token)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req = req.WithContext(WithClaims(req.Context(), claims))
	rec := httptest.NewRecorder()
	NewHandler(f.service, nil).Me(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "a@b.kr", decodeResult(t, rec).User.Email)

	rec = httptest.NewRecorder()
	NewHandler(f.service, nil).Me(rec, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
