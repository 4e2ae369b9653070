package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/fromsofaraway/financial-tracker/internal/core"
	appsync "github.com/fromsofaraway/financial-tracker/internal/sync"
)

const maxBodyBytes = 1 << 20 // 1MB

// apiResponse is the structured envelope for every sync endpoint reply.
type apiResponse struct {
	Success     bool   `json:"success"`
	Data        any    `json:"data,omitempty"`
	Error       string `json:"error,omitempty"`
	FailedIndex *int   `json:"failed_index,omitempty"`
	Committed   *int   `json:"committed,omitempty"`
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleSnapshotFetch(w, r)
	case http.MethodPost:
		s.handleUpdateSubmit(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		writeJSON(w, http.StatusMethodNotAllowed, apiResponse{Error: "method not allowed"})
	}
}

func (s *Server) handleSnapshotFetch(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserID(r.URL.Query().Get("user_id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, apiResponse{Error: err.Error()})
		return
	}

	snap, err := s.sync.Snapshot(r.Context(), userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Snapshot fetch failed", "user_id", userID, "error", err)
		writeJSON(w, http.StatusInternalServerError, apiResponse{Error: "failed to load snapshot, try again"})
		return
	}

	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: snap})
}

func (s *Server) handleUpdateSubmit(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, apiResponse{Error: "failed to read request body"})
		return
	}

	var req struct {
		UserID int64 `json:"user_id"`
		appsync.UpdateRequest
	}
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, apiResponse{Error: "invalid JSON body: " + err.Error()})
		return
	}
	if req.UserID <= 0 {
		writeJSON(w, http.StatusBadRequest, apiResponse{Error: "missing or invalid user_id"})
		return
	}

	snap, err := s.sync.ApplyUpdate(r.Context(), req.UserID, req.UpdateRequest)
	if err != nil {
		s.writeUpdateError(w, r, req.UserID, err)
		return
	}

	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: snap})
}

// writeUpdateError classifies an ApplyUpdate failure: validation problems
// (including batch partial failures) are client errors that name the
// offending constraint, everything else is a generic server error.
func (s *Server) writeUpdateError(w http.ResponseWriter, r *http.Request, userID int64, err error) {
	var batchErr *appsync.BatchError
	if errors.As(err, &batchErr) {
		resp := apiResponse{
			Error:       batchErr.Err.Error(),
			FailedIndex: &batchErr.Index,
			Committed:   &batchErr.Committed,
		}
		status := http.StatusUnprocessableEntity
		if !core.IsValidation(batchErr.Err) {
			status = http.StatusInternalServerError
			resp.Error = "failed to apply batch, try again"
		}
		writeJSON(w, status, resp)
		return
	}

	if core.IsValidation(err) {
		writeJSON(w, http.StatusUnprocessableEntity, apiResponse{Error: err.Error()})
		return
	}

	slog.ErrorContext(r.Context(), "Update submit failed", "user_id", userID, "error", err)
	writeJSON(w, http.StatusInternalServerError, apiResponse{Error: "failed to apply update, try again"})
}

// handleWebAppLaunch redirects the browser into the rich client with a fresh
// launch context in the query string. The context degrades rather than fails,
// so the redirect itself only errors on a bad user_id.
func (s *Server) handleWebAppLaunch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeJSON(w, http.StatusMethodNotAllowed, apiResponse{Error: "method not allowed"})
		return
	}
	if s.webAppURL == "" {
		writeJSON(w, http.StatusNotFound, apiResponse{Error: "web app is not configured"})
		return
	}

	userID, err := parseUserID(r.URL.Query().Get("user_id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, apiResponse{Error: err.Error()})
		return
	}

	launch := s.sync.Export(r.Context(), userID)
	http.Redirect(w, r, s.webAppURL+"?"+launch.Encode(), http.StatusFound)
}

func parseUserID(raw string) (int64, error) {
	if raw == "" {
		return 0, errors.New("missing required query parameter user_id")
	}
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || userID <= 0 {
		return 0, errors.New("user_id must be a positive integer")
	}
	return userID, nil
}

func writeJSON(w http.ResponseWriter, status int, resp apiResponse) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
