package stores

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ikjoobang/xivix-ai-core-sub000/internal/auth"
	"github.com/ikjoobang/xivix-ai-core-sub000/pkg/logging"
)

// Handler provides store CRUD for the admin API.
type Handler struct {
	repo   Backend
	logger *logging.Logger
}

func NewHandler(repo Backend, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, logger: logger}
}

// RegisterRoutes mounts collection routes. Expected under /admin/stores.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
}

// RegisterStoreRoutes mounts item routes. Expected under
// /admin/stores/{storeID} behind RequireStoreAccess.
func (h *Handler) RegisterStoreRoutes(r chi.Router) {
	r.Get("/", h.get)
	r.Put("/", h.update)
	r.Delete("/", h.delete)
}

// RequireStoreAccess lets admins through and owners only to their own
// stores. The loaded store is put on the request context.
func (h *Handler) RequireStoreAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := auth.ClaimsFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		id, err := uuid.Parse(chi.URLParam(r, "storeID"))
		if err != nil {
			http.Error(w, "invalid store id", http.StatusBadRequest)
			return
		}
		store, err := h.repo.Get(r.Context(), id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				http.Error(w, "store not found", http.StatusNotFound)
				return
			}
			h.logger.Error("stores handler: load store", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if !claims.IsAdmin() && store.OwnerID.String() != claims.Subject {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r.WithContext(withStore(r.Context(), store)))
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	owner := uuid.Nil
	if !claims.IsAdmin() {
		parsed, err := uuid.Parse(claims.Subject)
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		owner = parsed
	}
	list, err := h.repo.List(r.Context(), owner)
	if err != nil {
		h.logger.Error("stores handler: list", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	out := make([]Store, 0, len(list))
	for _, s := range list {
		out = append(out, s.Redacted())
	}
	writeJSON(w, http.StatusOK, map[string]any{"stores": out, "count": len(out)})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var s Store
	if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.ID = uuid.Nil
	if !claims.IsAdmin() || s.OwnerID == uuid.Nil {
		owner, err := uuid.Parse(claims.Subject)
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		s.OwnerID = owner
	}
	if s.OwnerEmail == "" {
		s.OwnerEmail = claims.Email
	}
	s.Active = true
	if err := h.repo.Create(r.Context(), &s); err != nil {
		h.logger.Error("stores handler: create", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, s.Redacted())
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	store, ok := StoreFromContext(r.Context())
	if !ok {
		http.Error(w, "store not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, store.Redacted())
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	current, ok := StoreFromContext(r.Context())
	if !ok {
		http.Error(w, "store not found", http.StatusNotFound)
		return
	}
	var patch Store
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	patch.ID = current.ID
	patch.OwnerID = current.OwnerID
	patch.CreatedAt = current.CreatedAt
	if patch.TalkTalkToken == "" || patch.TalkTalkToken == "********" {
		patch.TalkTalkToken = current.TalkTalkToken
	}
	if err := patch.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.repo.Update(r.Context(), &patch); err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "store not found", http.StatusNotFound)
			return
		}
		h.logger.Error("stores handler: update", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, patch.Redacted())
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	current, ok := StoreFromContext(r.Context())
	if !ok {
		http.Error(w, "store not found", http.StatusNotFound)
		return
	}
	if err := h.repo.Delete(r.Context(), current.ID); err != nil && !errors.Is(err, ErrNotFound) {
		h.logger.Error("stores handler: delete", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
