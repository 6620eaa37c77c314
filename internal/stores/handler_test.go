package stores

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ikjoobang/xivix-ai-core-sub000/internal/auth"
)

func newStoreRouter(backend Backend) http.Handler {
	h := NewHandler(backend, nil)
	r := chi.NewRouter()
	r.Route("/admin/stores", func(r chi.Router) {
		h.RegisterRoutes(r)
		r.With(h.RequireStoreAccess).Route("/{storeID}", h.RegisterStoreRoutes)
	})
	return r
}

func asUser(req *http.Request, id uuid.UUID, role string) *http.Request {
	claims := &auth.Claims{Email: "owner@example.com", Role: role, RegisteredClaims: jwt.RegisteredClaims{Subject: id.String()}}
	return req.WithContext(auth.WithClaims(req.Context(), claims))
}

func TestHandler_OwnerScoping(t *testing.T) {
	mine, theirs := sampleStore(), sampleStore()
	router := newStoreRouter(newMemoryBackend(mine, theirs))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, asUser(httptest.NewRequest(http.MethodGet, "/admin/stores/", nil), mine.OwnerID, auth.RoleOwner))
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Stores []Store `json:"stores"`
		Count  int     `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Equal(t, 1, list.Count)
	assert.Equal(t, mine.ID, list.Stores[0].ID)
	assert.Equal(t, "********", list.Stores[0].TalkTalkToken)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, asUser(httptest.NewRequest(http.MethodGet, "/admin/stores/"+theirs.ID.String()+"/", nil), mine.OwnerID, auth.RoleOwner))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, asUser(httptest.NewRequest(http.MethodGet, "/admin/stores/"+theirs.ID.String()+"/", nil), uuid.New(), auth.RoleAdmin))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, asUser(httptest.NewRequest(http.MethodGet, "/admin/stores/"+uuid.NewString()+"/", nil), uuid.New(), auth.RoleAdmin))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_CreateUpdateDelete(t *testing.T) {
	backend := newMemoryBackend()
	router := newStoreRouter(backend)
	owner := uuid.New()

	rec := httptest.NewRecorder()
	body := `{"name":"연남 파스타","business_type":"restaurant","menu_text":"알리오올리오 13,000원","talktalk_token":"secret"}`
	router.ServeHTTP(rec, asUser(httptest.NewRequest(http.MethodPost, "/admin/stores/", strings.NewReader(body)), owner, auth.RoleOwner))
	require.Equal(t, http.StatusCreated, rec.Code)

	var created Store
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, owner, created.OwnerID)
	assert.Equal(t, "RESTAURANT", created.BusinessType)
	assert.True(t, created.Active)
	assert.Equal(t, "owner@example.com", created.OwnerEmail)

	rec = httptest.NewRecorder()
	update := `{"name":"연남 파스타 2호점","business_type":"restaurant","talktalk_token":"********","active":true}`
	router.ServeHTTP(rec, asUser(httptest.NewRequest(http.MethodPut, "/admin/stores/"+created.ID.String()+"/", strings.NewReader(update)), owner, auth.RoleOwner))
	require.Equal(t, http.StatusOK, rec.Code)

	stored, err := backend.Get(t.Context(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "연남 파스타 2호점", stored.Name)
	assert.Equal(t, "secret", stored.TalkTalkToken)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, asUser(httptest.NewRequest(http.MethodDelete, "/admin/stores/"+created.ID.String()+"/", nil), owner, auth.RoleOwner))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	_, err = backend.Get(t.Context(), created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHandler_CreateValidation(t *testing.T) {
	router := newStoreRouter(newMemoryBackend())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, asUser(httptest.NewRequest(http.MethodPost, "/admin/stores/", strings.NewReader(`{"name":""}`)), uuid.New(), auth.RoleOwner))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/stores/", strings.NewReader(`{"name":"x"}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
