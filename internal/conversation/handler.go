package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ikjoobang/xivix-ai-core-sub000/pkg/logging"
)

// LogLister reads persisted conversation logs.
type LogLister interface {
	ListByStore(ctx context.Context, storeID, customerID string, since time.Time, limit int) ([]LogRecord, error)
}

// Handler exposes the admin conversation endpoints for one store.
type Handler struct {
	service  *Service
	contexts ContextRepository
	logs     LogLister
	logger   *logging.Logger
}

// NewHandler creates a conversation admin handler.
func NewHandler(service *Service, contexts ContextRepository, logs LogLister, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, contexts: contexts, logs: logs, logger: logger}
}

// RegisterRoutes mounts endpoints under /admin/stores/{storeID}.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/contexts/{customerID}", h.GetContext)
	r.Delete("/contexts/{customerID}", h.ClearContext)
	r.Delete("/throttles/{customerID}", h.ResetThrottle)
	r.Get("/conversation-logs", h.ListLogs)
	r.Post("/preview", h.Preview)
}

// GetContext handles GET /admin/stores/{storeID}/contexts/{customerID}.
func (h *Handler) GetContext(w http.ResponseWriter, r *http.Request) {
	if h.contexts == nil {
		http.Error(w, "context store not configured", http.StatusServiceUnavailable)
		return
	}
	storeID, customerID := chi.URLParam(r, "storeID"), chi.URLParam(r, "customerID")
	stored, err := h.contexts.Get(r.Context(), storeID, customerID)
	if err != nil {
		h.logger.Error("failed to load context", "store_id", storeID, "error", err)
		http.Error(w, "Failed to load context", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, stored)
}

// ClearContext handles DELETE /admin/stores/{storeID}/contexts/{customerID}.
func (h *Handler) ClearContext(w http.ResponseWriter, r *http.Request) {
	if h.contexts == nil {
		http.Error(w, "context store not configured", http.StatusServiceUnavailable)
		return
	}
	storeID, customerID := chi.URLParam(r, "storeID"), chi.URLParam(r, "customerID")
	if err := h.contexts.Clear(r.Context(), storeID, customerID); err != nil {
		h.logger.Error("failed to clear context", "store_id", storeID, "error", err)
		http.Error(w, "Failed to clear context", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ResetThrottle handles DELETE /admin/stores/{storeID}/throttles/{customerID}.
func (h *Handler) ResetThrottle(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		http.Error(w, "conversation service not configured", http.StatusServiceUnavailable)
		return
	}
	storeID, customerID := chi.URLParam(r, "storeID"), chi.URLParam(r, "customerID")
	if err := h.service.ResetThrottle(r.Context(), storeID, customerID); err != nil {
		h.logger.Error("failed to reset throttle", "store_id", storeID, "error", err)
		http.Error(w, "Failed to reset throttle", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListLogs handles GET /admin/stores/{storeID}/conversation-logs.
func (h *Handler) ListLogs(w http.ResponseWriter, r *http.Request) {
	if h.logs == nil {
		http.Error(w, "conversation logs not configured", http.StatusServiceUnavailable)
		return
	}
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	var since time.Time
	if raw := strings.TrimSpace(q.Get("since")); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			http.Error(w, "since must be RFC3339", http.StatusBadRequest)
			return
		}
		since = parsed
	}

	records, err := h.logs.ListByStore(r.Context(), chi.URLParam(r, "storeID"), q.Get("customer_id"), since, limit)
	if err != nil {
		h.logger.Error("failed to list conversation logs", "error", err)
		http.Error(w, "Failed to list logs", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"logs": records, "count": len(records)})
}

type previewRequest struct {
	CustomerID string `json:"customer_id"`
	Message    string `json:"message"`
	ImageURL   string `json:"image_url"`
}

type previewResponse struct {
	Reply            string              `json:"reply"`
	Model            string              `json:"model"`
	ConsultationType ConsultationType    `json:"consultation_type"`
	Verified         bool                `json:"verified"`
	Verification     *VerificationResult `json:"verification,omitempty"`
	Language         string              `json:"language"`
	RateLimited      bool                `json:"rate_limited"`
	Failure          string              `json:"failure,omitempty"`
	VerificationErr  string              `json:"verification_error,omitempty"`
}

// Preview handles POST /admin/stores/{storeID}/preview. It runs the full
// pipeline so owners can test their prompt from the dashboard.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Message) == "" && strings.TrimSpace(req.ImageURL) == "" {
		http.Error(w, "message or image_url is required", http.StatusBadRequest)
		return
	}
	if req.CustomerID == "" {
		req.CustomerID = "preview"
	}

	out, err := h.service.HandleInbound(r.Context(), InboundMessage{
		StoreID:    chi.URLParam(r, "storeID"),
		CustomerID: req.CustomerID,
		Text:       req.Message,
		ImageURL:   req.ImageURL,
	})
	if err != nil {
		if errors.Is(err, ErrStoreNotFound) || errors.Is(err, ErrStoreInactive) {
			http.Error(w, "store not found", http.StatusNotFound)
			return
		}
		h.logger.Error("preview failed", "error", err)
		http.Error(w, "Failed to process message", http.StatusInternalServerError)
		return
	}

	resp := previewResponse{Reply: out.Reply, Language: out.Language, RateLimited: out.RateLimited}
	if route := out.Route; route != nil {
		resp.Model = route.Model
		resp.ConsultationType = route.ConsultationType
		resp.Verified = route.Verified
		resp.Verification = route.Verification
		if route.Failure != nil {
			resp.Failure = route.Failure.Error()
		}
		if route.VerificationErr != nil {
			resp.VerificationErr = route.VerificationErr.Error()
		}
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}
