package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/inquesthq/inquest/internal/chat"
	"github.com/inquesthq/inquest/internal/store"
)

// createMessageRequest is the body of POST /api/sessions/{id}/messages.
type createMessageRequest struct {
	Message string `json:"message"`
}

// turnResponse is the JSON shape of a turn plus its persisted trace.
type turnResponse struct {
	Turn  *chat.Turn  `json:"turn"`
	Steps []chat.Step `json:"steps,omitempty"`
}

// handleCreateMessage accepts a user message, creates a pending turn
// and kicks off background processing. The turn is returned immediately
// with 202; callers follow progress on the events endpoint.
func (a *API) handleCreateMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("sessionID")

	var body createMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.Message == "" {
		writeError(w, http.StatusBadRequest, "'message' is required")
		return
	}

	turn, err := a.store.CreateTurn(uuid.NewString(), sessionID, body.Message)
	if err != nil {
		a.log.Error("create turn", "session", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create turn")
		return
	}

	// Processing outlives the request, so it runs on a background
	// context rather than the request's.
	go func() {
		if err := a.worker.Process(context.Background(), turn.ID); err != nil {
			a.log.Error("background turn processing", "turn", turn.ID, "error", err)
		}
	}()

	writeJSON(w, http.StatusAccepted, turnResponse{Turn: turn})
}

// handleListTurns returns a session's turns, oldest first.
func (a *API) handleListTurns(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("sessionID")
	turns, err := a.store.ListTurns(sessionID)
	if err != nil {
		a.log.Error("list turns", "session", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list turns")
		return
	}
	writeJSON(w, http.StatusOK, map[string][]chat.Turn{"turns": turns})
}

// handleGetTurn returns one turn together with its persisted steps.
func (a *API) handleGetTurn(w http.ResponseWriter, r *http.Request) {
	turnID := r.PathValue("turnID")

	turn, err := a.store.GetTurn(turnID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "turn not found")
			return
		}
		a.log.Error("get turn", "turn", turnID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load turn")
		return
	}

	steps, err := a.store.ListSteps(turnID)
	if err != nil {
		a.log.Error("list steps", "turn", turnID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load steps")
		return
	}
	writeJSON(w, http.StatusOK, turnResponse{Turn: turn, Steps: steps})
}

// handleSearchSteps serves full-text search over persisted steps.
func (a *API) handleSearchSteps(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "'q' is required")
		return
	}
	sessionID := r.URL.Query().Get("session")
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "'limit' must be a positive integer")
			return
		}
		limit = n
	}

	results, err := a.store.SearchSteps(query, sessionID, limit)
	if err != nil {
		a.log.Error("step search", "query", query, "error", err)
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string][]store.StepSearchResult{"results": results})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
