package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/bilisync/internal/models"
	"github.com/desertthunder/bilisync/internal/shared"
	"github.com/desertthunder/bilisync/internal/tasks"
)

// Syncer runs one sync by playlist type. Implemented by [tasks.PlaylistSyncer].
type Syncer interface {
	Sync(ctx context.Context, remoteSyncID string, playlistType models.PlaylistType, progress chan<- tasks.ProgressUpdate) (*tasks.SyncResult, error)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// HealthHandler reports liveness.
func HealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "bilisync"})
	})
}

// SyncHandler triggers a sync with POST /api/sync?type=<type>&id=<remote id>.
//
// The sync runs within the request; the response is the [tasks.SyncResult] as JSON.
type SyncHandler struct {
	syncer Syncer
	logger *log.Logger
}

// NewSyncHandler creates a [SyncHandler] backed by syncer.
func NewSyncHandler(syncer Syncer, logger *log.Logger) *SyncHandler {
	return &SyncHandler{syncer: syncer, logger: logger}
}

func (h *SyncHandler) Routes() []string {
	return []string{"/api/sync"}
}

func (h *SyncHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	q := r.URL.Query()
	playlistType := models.PlaylistType(q.Get("type"))
	id := q.Get("id")
	if !playlistType.IsRemote() {
		writeError(w, http.StatusBadRequest, "type must be one of favorite, collection, multi_page")
		return
	}
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	result, err := h.syncer.Sync(r.Context(), id, playlistType, nil)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("sync request failed", "type", playlistType, "id", id, "error", err)
		}
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, shared.ErrSyncAlreadyRunning):
		return http.StatusConflict
	case errors.Is(err, shared.ErrValidation), errors.Is(err, shared.ErrMissingArgument):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrAPIRequest):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
