package drive

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/andresuchdata/grocerystock/internal/domain"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// FolderResolver turns a folder path into a Drive folder id.
type FolderResolver interface {
	FindFolderByPath(ctx context.Context, path string) (string, error)
}

type Handler struct {
	files         FileStore
	folders       FolderResolver
	ingestService *IngestService
	defaultFolder string
}

func NewHandler(files FileStore, folders FolderResolver, ingestService *IngestService, defaultFolder string) *Handler {
	return &Handler{
		files:         files,
		folders:       folders,
		ingestService: ingestService,
		defaultFolder: defaultFolder,
	}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/drive/files", h.ListFiles).Methods(http.MethodGet)
	router.HandleFunc("/api/drive/ingest", h.IngestFile).Methods(http.MethodPost)
}

func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	folderID := query.Get("folderId")
	if folderID == "" {
		folderID = h.defaultFolder
	}

	if folderPath := query.Get("path"); folderPath != "" && h.folders != nil {
		id, err := h.folders.FindFolderByPath(r.Context(), folderPath)
		if err != nil {
			writeError(w, http.StatusNotFound, err)
			return
		}
		folderID = id
	}

	files, err := h.files.ListFiles(r.Context(), folderID)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	if files == nil {
		files = []*File{}
	}
	writeJSON(w, http.StatusOK, files)
}

// IngestFile imports one sheet by fileId, or the whole folder when only
// folderId is given.
func (h *Handler) IngestFile(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if fileID := query.Get("fileId"); fileID != "" {
		result, err := h.ingestService.IngestFile(r.Context(), fileID)
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, result)
		return
	}

	folderID := query.Get("folderId")
	if folderID == "" {
		folderID = h.defaultFolder
	}
	if folderID == "" {
		writeError(w, http.StatusBadRequest, errors.New("fileId or folderId parameter is required"))
		return
	}

	results, err := h.ingestService.IngestFolder(r.Context(), folderID)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func statusFor(err error) int {
	if errors.Is(err, domain.ErrInvalidInput) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusBadGateway
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("drive: failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
