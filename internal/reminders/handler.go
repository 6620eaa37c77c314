package reminders

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ikjoobang/xivix-ai-core-sub000/pkg/logging"
)

// Backend is the read and cancel side used by the admin handler.
type Backend interface {
	ListReservations(ctx context.Context, storeID uuid.UUID, from time.Time, limit int) ([]Reservation, error)
	CancelReservation(ctx context.Context, storeID, id uuid.UUID) error
	ListByStore(ctx context.Context, storeID uuid.UUID, status *ReminderStatus, limit int) ([]Reminder, error)
	Stats(ctx context.Context, storeID uuid.UUID) (*Stats, error)
}

// Booker creates reservations.
type Booker interface {
	Book(ctx context.Context, in BookInput) (*Reservation, []Reminder, error)
}

// Handler serves reservations and reminders. Mount under
// /admin/stores/{storeID}/reservations behind store access checks.
type Handler struct {
	store  Backend
	booker Booker
	logger *logging.Logger
}

func NewHandler(store Backend, booker Booker, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, booker: booker, logger: logger}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.listReservations)
	r.Post("/", h.create)
	r.Delete("/{reservationID}", h.cancel)
	r.Get("/reminders", h.listReminders)
	r.Get("/stats", h.stats)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	storeID, ok := storeParam(w, r)
	if !ok {
		return
	}
	var in BookInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	in.StoreID = storeID

	res, scheduled, err := h.booker.Book(r.Context(), in)
	if err != nil {
		if errors.Is(err, ErrInvalid) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("reminders handler: book", "store_id", storeID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if scheduled == nil {
		scheduled = []Reminder{}
	}
	writeJSON(w, http.StatusCreated, map[string]any{"reservation": res, "reminders": scheduled})
}

func (h *Handler) listReservations(w http.ResponseWriter, r *http.Request) {
	storeID, ok := storeParam(w, r)
	if !ok {
		return
	}
	from := time.Now().Add(-24 * time.Hour)
	if raw := r.URL.Query().Get("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			http.Error(w, "from must be RFC3339", http.StatusBadRequest)
			return
		}
		from = t
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	list, err := h.store.ListReservations(r.Context(), storeID, from, limit)
	if err != nil {
		h.logger.Error("reminders handler: list reservations", "store_id", storeID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reservations": list, "count": len(list)})
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	storeID, ok := storeParam(w, r)
	if !ok {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "reservationID"))
	if err != nil {
		http.Error(w, "invalid reservation id", http.StatusBadRequest)
		return
	}
	if err := h.store.CancelReservation(r.Context(), storeID, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "reservation not found", http.StatusNotFound)
			return
		}
		h.logger.Error("reminders handler: cancel", "store_id", storeID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listReminders(w http.ResponseWriter, r *http.Request) {
	storeID, ok := storeParam(w, r)
	if !ok {
		return
	}
	var status *ReminderStatus
	if s := r.URL.Query().Get("status"); s != "" {
		st := ReminderStatus(s)
		status = &st
	}
	list, err := h.store.ListByStore(r.Context(), storeID, status, 100)
	if err != nil {
		h.logger.Error("reminders handler: list reminders", "store_id", storeID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reminders": list, "count": len(list)})
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	storeID, ok := storeParam(w, r)
	if !ok {
		return
	}
	stats, err := h.store.Stats(r.Context(), storeID)
	if err != nil {
		h.logger.Error("reminders handler: stats", "store_id", storeID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func storeParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "storeID"))
	if err != nil {
		http.Error(w, "invalid store id", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
