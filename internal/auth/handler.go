package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ikjoobang/xivix-ai-core-sub000/pkg/logging"
)

// Handler exposes register/login/logout/me as JSON endpoints.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes mounts the public auth endpoints. Expected under /auth.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/register", h.register)
	r.Post("/login", h.login)
	r.Post("/logout", h.logout)
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var body credentials
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, failure(MsgInvalidInput))
		return
	}
	res := h.service.Register(r.Context(), body.Email, body.Password, body.Name)
	writeJSON(w, statusFor(res, http.StatusCreated), res)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var body credentials
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, failure(MsgInvalidInput))
		return
	}
	res := h.service.Login(r.Context(), body.Email, body.Password)
	writeJSON(w, statusFor(res, http.StatusOK), res)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	res := h.service.Logout(r.Context(), BearerToken(r))
	writeJSON(w, statusFor(res, http.StatusOK), res)
}

// Me returns the signed-in user. It must sit behind the session middleware.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, failure(MsgInvalidCredentials))
		return
	}
	user, err := h.service.Me(r.Context(), claims)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidToken) {
			writeJSON(w, http.StatusUnauthorized, failure(MsgInvalidCredentials))
			return
		}
		h.logger.Error("auth handler: me", "error", err)
		writeJSON(w, http.StatusInternalServerError, failure(MsgInternal))
		return
	}
	writeJSON(w, http.StatusOK, Result{Success: true, User: user})
}

func statusFor(res Result, ok int) int {
	if res.Success {
		return ok
	}
	switch res.Error {
	case MsgInvalidInput:
		return http.StatusBadRequest
	case MsgDuplicateEmail:
		return http.StatusConflict
	case MsgAccountLocked:
		return http.StatusTooManyRequests
	case MsgInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusUnauthorized
	}
}

// BearerToken extracts the token from an Authorization header.
func BearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
}

type contextKey string

const claimsKey contextKey = "authClaims"

// WithClaims stores claims on ctx.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// ClaimsFromContext returns session claims if present.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*Claims)
	return claims, ok && claims != nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
