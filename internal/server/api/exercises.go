// Package api provides the REST handlers for the pose comparison service.
package api

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strings"

	"github.com/ayusman/vinyasa/internal/engine"
	"github.com/ayusman/vinyasa/internal/pose"
)

// defaultExercises is returned by the listing endpoint when no reference
// dataset is loaded.
var defaultExercises = []string{"downdog", "goddess", "plank", "tree", "warrior2"}

// ExercisesHandler handles requests for the exercise listing.
type ExercisesHandler struct {
	engine *engine.Engine
}

// NewExercisesHandler creates a new ExercisesHandler backed by the engine's
// reference set.
func NewExercisesHandler(e *engine.Engine) *ExercisesHandler {
	return &ExercisesHandler{engine: e}
}

type listExercisesResponse struct {
	Exercises []string `json:"exercises"`
}

// ServeHTTP handles GET /api/exercises and returns the available exercises.
func (h *ExercisesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	exercises := h.engine.References().Labels()
	if len(exercises) == 0 {
		exercises = defaultExercises
	}

	writeJSON(w, http.StatusOK, listExercisesResponse{Exercises: exercises})
}

type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Status: "error", Message: message})
}

// unknownExerciseMessage formats the not-found message shared by the session
// and analysis endpoints.
func unknownExerciseMessage(name string, available []string) string {
	return fmt.Sprintf("Exercise '%s' not found. Available: %s", name, strings.Join(available, ", "))
}

// roundedAngles converts an angle set to its wire form: every joint name
// mapped to degrees at one decimal, null when undefined.
func roundedAngles(a pose.AngleSet) map[string]*float64 {
	m := make(map[string]*float64, pose.NumJoints)
	for j := pose.Joint(0); j < pose.NumJoints; j++ {
		if v, ok := a.At(j); ok {
			rounded := math.Round(v*10) / 10
			m[j.String()] = &rounded
		} else {
			m[j.String()] = nil
		}
	}
	return m
}

// RelativeKeypoints converts a pixel-space skeleton to the [x, y, confidence]
// triples sent to clients, with x and y scaled into [0,1] by the frame size.
func RelativeKeypoints(s *pose.Skeleton, width, height int) [][3]float64 {
	if s == nil || width <= 0 || height <= 0 {
		return [][3]float64{}
	}

	kps := make([][3]float64, 0, pose.NumKeypoints)
	for i := range s {
		kps = append(kps, [3]float64{
			roundTo(s[i].X/float64(width), 5),
			roundTo(s[i].Y/float64(height), 5),
			roundTo(s[i].Confidence, 4),
		})
	}
	return kps
}

func roundTo(v float64, decimals int) float64 {
	p := math.Pow10(decimals)
	return math.Round(v*p) / p
}
