package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"

	"github.com/yegors/micscribe/internal/presenter"
	"github.com/yegors/micscribe/internal/recorder"
	"github.com/yegors/micscribe/pkg/logger"
)

// Recorder is the controller surface exposed over HTTP
type Recorder interface {
	Toggle() error
	Clear() error
	Copy(ctx context.Context) error
	Download(ctx context.Context) (string, error)
	Snapshot(ctx context.Context) (recorder.Snapshot, error)
}

// Handler serves the control endpoints
type Handler struct {
	recorder Recorder
	view     *presenter.View
	logger   *logger.Logger
}

// NewHandler creates a new handler
func NewHandler(rec Recorder, view *presenter.View, logger *logger.Logger) *Handler {
	return &Handler{
		recorder: rec,
		view:     view,
		logger:   logger.Named("api-handler"),
	}
}

// StatusResponse is returned by GetStatus
type StatusResponse struct {
	State            recorder.State `json:"state"`
	Acquiring        bool           `json:"acquiring"`
	ExportEnabled    bool           `json:"export_enabled"`
	Entries          int            `json:"entries"`
	TranscriptLength int            `json:"transcript_length"`
}

// GetStatus returns the recording state
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.recorder.Snapshot(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, StatusResponse{
		State:            snapshot.State,
		Acquiring:        snapshot.Acquiring,
		ExportEnabled:    snapshot.ExportEnabled,
		Entries:          snapshot.Entries,
		TranscriptLength: len(snapshot.Transcript),
	})
}

// GetTranscript returns the transcript as plain text
func (h *Handler) GetTranscript(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.recorder.Snapshot(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(snapshot.Transcript))
}

// GetView returns what the presentation layer currently shows
func (h *Handler) GetView(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.view.State())
}

// Toggle starts or stops a take
func (h *Handler) Toggle(w http.ResponseWriter, r *http.Request) {
	if err := h.recorder.Toggle(); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// Clear empties the transcript
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.recorder.Clear(); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Copy puts the transcript on the clipboard of the host
func (h *Handler) Copy(w http.ResponseWriter, r *http.Request) {
	if err := h.recorder.Copy(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Download saves the transcript on the host and reports the file name
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	path, err := h.recorder.Download(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]string{
		"path":     path,
		"filename": filepath.Base(path),
	})
}

// GetHealth reports liveness
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("Failed to encode response", logger.Error(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, recorder.ErrExportDisabled):
		status = http.StatusConflict
	case errors.Is(err, recorder.ErrStopped):
		status = http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusRequestTimeout
	default:
		h.logger.Warn("Request failed", logger.Error(err))
	}
	h.writeJSON(w, status, map[string]string{"error": err.Error()})
}
