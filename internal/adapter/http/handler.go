package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"

	"affekt/internal/adapter/http/validation"
	"affekt/internal/domain"
	"affekt/internal/infrastructure/logger"
)

type AnalysisService interface {
	SubmitUpload(filename string, file *os.File, size int64, mimeType string) (string, error)
	Reanalyze(jobID string) (string, error)
	Status(jobID string) (domain.Snapshot, error)
}

type Handlers struct {
	analysisSvc AnalysisService
	maxSizeMB   int
	version     string
}

func NewHandlers(analysisSvc AnalysisService, maxSizeMB int, version string) *Handlers {
	return &Handlers{
		analysisSvc: analysisSvc,
		maxSizeMB:   maxSizeMB,
		version:     version,
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps domain errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "analysis not found")
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Reason)
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// Submit accepts a multipart video upload and queues an analysis job.
// The job id is returned immediately; results arrive via polling.
func (h *Handlers) Submit() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		maxBytes := int64(h.maxSizeMB) * 1024 * 1024
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

		if err := r.ParseMultipartForm(maxBytes); err != nil {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "missing file field")
			return
		}
		defer file.Close() //nolint:errcheck

		tmpFile, err := os.CreateTemp("", "upload-*.tmp")
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to process upload")
			return
		}
		defer tmpFile.Close() //nolint:errcheck

		size, err := io.Copy(tmpFile, file)
		if err != nil {
			os.Remove(tmpFile.Name())
			writeError(w, http.StatusInternalServerError, "failed to save upload")
			return
		}

		mime, allowed, err := validation.ValidateMagicBytes(tmpFile)
		if err != nil {
			os.Remove(tmpFile.Name())
			writeError(w, http.StatusInternalServerError, "failed to inspect upload")
			return
		}
		if !allowed {
			os.Remove(tmpFile.Name())
			writeError(w, http.StatusBadRequest, "unsupported file type: "+mime)
			return
		}

		filename := validation.SanitizeFilename(header.Filename)
		id, err := h.analysisSvc.SubmitUpload(filename, tmpFile, size, mime)
		if err != nil {
			logger.Errorf("submit failed for %s: %v", filename, err)
			os.Remove(tmpFile.Name())
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusAccepted, map[string]string{"id": id})
	}
}

// Status returns the current snapshot of an analysis job.
func (h *Handlers) Status() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if id == "" {
			writeError(w, http.StatusBadRequest, "missing analysis id")
			return
		}

		snapshot, err := h.analysisSvc.Status(id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, snapshot)
	}
}

// Reanalyze queues a fresh job over the source media of an existing job.
func (h *Handlers) Reanalyze() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if id == "" {
			writeError(w, http.StatusBadRequest, "missing analysis id")
			return
		}

		newID, err := h.analysisSvc.Reanalyze(id)
		if err != nil {
			logger.Errorf("reanalyze failed for %s: %v", id, err)
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"id": newID})
	}
}

func (h *Handlers) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "ok",
			"version": h.version,
		})
	}
}
