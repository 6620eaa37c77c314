package archive

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ikjoobang/xivix-ai-core-sub000/pkg/logging"
)

const maxUploadBytes = 10 << 20

var allowedUploadTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/gif":       true,
	"image/webp":      true,
	"application/pdf": true,
	"text/csv":        true,
	"text/plain":      true,
}

// Handler serves uploads and archive runs for one store. Mount under
// /admin/stores/{storeID} behind store access checks.
type Handler struct {
	store    *Store
	archiver *Archiver
	logger   *logging.Logger
}

func NewHandler(store *Store, archiver *Archiver, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, archiver: archiver, logger: logger}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/uploads", h.upload)
	r.Post("/archive", h.archive)
}

func (h *Handler) upload(w http.ResponseWriter, r *http.Request) {
	storeID := chi.URLParam(r, "storeID")
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "invalid multipart body", http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		http.Error(w, "read failed", http.StatusBadRequest)
		return
	}
	if len(data) == 0 {
		http.Error(w, "file is empty", http.StatusBadRequest)
		return
	}
	if len(data) > maxUploadBytes {
		http.Error(w, "file too large", http.StatusRequestEntityTooLarge)
		return
	}

	contentType := detectType(data, header.Header.Get("Content-Type"), header.Filename)
	if !allowedUploadTypes[contentType] {
		http.Error(w, "unsupported file type", http.StatusUnsupportedMediaType)
		return
	}

	up, err := h.store.Upload(r.Context(), storeID, header.Filename, contentType, data)
	if err != nil {
		if errors.Is(err, ErrDisabled) {
			http.Error(w, "uploads not configured", http.StatusServiceUnavailable)
			return
		}
		h.logger.Error("archive handler: upload", "store_id", storeID, "error", err)
		http.Error(w, "upload failed", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusCreated, up)
}

type archiveRequest struct {
	Since string `json:"since"`
}

func (h *Handler) archive(w http.ResponseWriter, r *http.Request) {
	storeID := chi.URLParam(r, "storeID")
	if h.archiver == nil {
		http.Error(w, "archive not configured", http.StatusServiceUnavailable)
		return
	}
	since := time.Now().UTC().AddDate(0, 0, -1)
	var req archiveRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
	}
	if req.Since != "" {
		t, err := time.Parse(time.RFC3339, req.Since)
		if err != nil {
			http.Error(w, "since must be RFC3339", http.StatusBadRequest)
			return
		}
		since = t
	}
	summary, err := h.archiver.ArchiveStore(r.Context(), storeID, since)
	if err != nil {
		h.logger.Error("archive handler: archive", "store_id", storeID, "error", err)
		http.Error(w, "archive failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// detectType sniffs the bytes and falls back to the declared type or the
// file extension when sniffing is inconclusive.
func detectType(data []byte, declared, filename string) string {
	sniffed := http.DetectContentType(data)
	if i := strings.Index(sniffed, ";"); i >= 0 {
		sniffed = sniffed[:i]
	}
	if sniffed != "application/octet-stream" && sniffed != "text/plain" {
		return sniffed
	}
	if strings.HasSuffix(strings.ToLower(filename), ".csv") {
		return "text/csv"
	}
	if declared != "" {
		if i := strings.Index(declared, ";"); i >= 0 {
			declared = declared[:i]
		}
		return strings.TrimSpace(declared)
	}
	return sniffed
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
