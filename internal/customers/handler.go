package customers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ikjoobang/xivix-ai-core-sub000/pkg/logging"
)

const maxImportBytes = 5 << 20

// Handler serves a store's customer list. Mount under
// /admin/stores/{storeID}/customers behind store access checks.
type Handler struct {
	repo     Backend
	importer *Importer
	logger   *logging.Logger
}

func NewHandler(repo Backend, importer *Importer, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, importer: importer, logger: logger}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.upsert)
	r.Post("/import", h.importCSV)
	r.Get("/{customerID}", h.get)
	r.Delete("/{customerID}", h.delete)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	storeID := chi.URLParam(r, "storeID")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := h.repo.List(r.Context(), storeID, r.URL.Query().Get("q"), limit)
	if err != nil {
		h.logger.Error("customers handler: list", "store_id", storeID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"customers": list, "count": len(list)})
}

func (h *Handler) upsert(w http.ResponseWriter, r *http.Request) {
	var c Customer
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	c.ID = ""
	c.StoreID = chi.URLParam(r, "storeID")
	if err := h.repo.Upsert(r.Context(), &c); err != nil {
		if errors.Is(err, ErrInvalidPhone) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("customers handler: upsert", "store_id", c.StoreID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// importCSV accepts either a multipart form with a "file" field or a raw
// text/csv body.
func (h *Handler) importCSV(w http.ResponseWriter, r *http.Request) {
	storeID := chi.URLParam(r, "storeID")
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)

	var src io.Reader = r.Body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		if err := r.ParseMultipartForm(maxImportBytes); err != nil {
			http.Error(w, "invalid multipart body", http.StatusBadRequest)
			return
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "file is required", http.StatusBadRequest)
			return
		}
		defer file.Close()
		src = file
	}

	result, err := h.importer.Import(r.Context(), storeID, src)
	if err != nil {
		if errors.Is(err, ErrNoPhoneColumn) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("customers handler: import", "store_id", storeID, "error", err)
		http.Error(w, "import failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	c, err := h.repo.Get(r.Context(), chi.URLParam(r, "storeID"), chi.URLParam(r, "customerID"))
	if err != nil {
		h.writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.Delete(r.Context(), chi.URLParam(r, "storeID"), chi.URLParam(r, "customerID")); err != nil {
		h.writeLookupError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeLookupError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNotFound) {
		http.Error(w, "customer not found", http.StatusNotFound)
		return
	}
	h.logger.Error("customers handler: lookup", "error", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
