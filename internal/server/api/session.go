package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ayusman/vinyasa/internal/engine"
)

// SessionHandler handles session preflight requests: it resolves an exercise
// label and returns its reference angles so clients can render targets before
// streaming.
type SessionHandler struct {
	engine *engine.Engine
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(e *engine.Engine) *SessionHandler {
	return &SessionHandler{engine: e}
}

type sessionRequest struct {
	Exercise string `json:"exercise"`
}

type sessionResponse struct {
	Status          string              `json:"status"`
	Exercise        string              `json:"exercise"`
	ReferenceAngles map[string]*float64 `json:"reference_angles"`
}

// ServeHTTP handles POST /api/session.
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	exercise := strings.ToLower(req.Exercise)

	refs := h.engine.References()
	ref, ok := refs.Get(exercise)
	if !ok {
		writeError(w, http.StatusNotFound, unknownExerciseMessage(exercise, refs.Labels()))
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{
		Status:          "ok",
		Exercise:        exercise,
		ReferenceAngles: roundedAngles(ref.Angles),
	})
}
