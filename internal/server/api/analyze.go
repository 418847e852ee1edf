package api

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/ayusman/vinyasa/internal/compare"
	"github.com/ayusman/vinyasa/internal/engine"
)

// AnalyzeHandler handles single-image pose evaluation uploads.
type AnalyzeHandler struct {
	engine *engine.Engine
}

// NewAnalyzeHandler creates a new AnalyzeHandler.
func NewAnalyzeHandler(e *engine.Engine) *AnalyzeHandler {
	return &AnalyzeHandler{engine: e}
}

type analyzeResponse struct {
	Status             string                       `json:"status"`
	Detected           bool                         `json:"detected"`
	Exercise           string                       `json:"exercise,omitempty"`
	Message            string                       `json:"message,omitempty"`
	Similarity         float64                      `json:"similarity"`
	KeypointSimilarity float64                      `json:"keypoint_similarity"`
	AngleSimilarity    float64                      `json:"angle_similarity"`
	Confidence         float64                      `json:"confidence"`
	SkeletonColor      string                       `json:"skeleton_color"`
	Issues             []string                     `json:"issues"`
	Good               []string                     `json:"good"`
	Keypoints          [][3]float64                 `json:"keypoints"`
	LiveAngles         map[string]*float64          `json:"live_angles"`
	ReferenceAngles    map[string]*float64          `json:"reference_angles"`
	AngleDeviations    map[string]compare.Deviation `json:"angle_deviations"`
}

// ServeHTTP handles POST /api/analyze: a multipart form with an image under
// "file" and the target exercise under "exercise".
func (h *AnalyzeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read uploaded file")
		return
	}

	exercise := strings.ToLower(r.FormValue("exercise"))

	analysis, err := h.engine.AnalyzeImage(r.Context(), data, exercise)
	if err != nil {
		var unknownErr *engine.UnknownExerciseError
		switch {
		case errors.As(err, &unknownErr):
			writeError(w, http.StatusNotFound, unknownExerciseMessage(unknownErr.Name, unknownErr.Available))
		case errors.Is(err, engine.ErrBadImage):
			writeError(w, http.StatusBadRequest, "Could not decode image. Please upload a valid JPEG/PNG.")
		default:
			writeError(w, http.StatusInternalServerError, "Failed to analyze image")
		}
		return
	}

	if !analysis.Detected {
		writeJSON(w, http.StatusOK, analyzeResponse{
			Status:          "ok",
			Detected:        false,
			Message:         "No pose detected. Make sure your full body is visible in the image.",
			SkeletonColor:   "red",
			Issues:          []string{"No pose detected — make sure your full body is visible"},
			Good:            []string{},
			Keypoints:       [][3]float64{},
			LiveAngles:      map[string]*float64{},
			ReferenceAngles: map[string]*float64{},
			AngleDeviations: map[string]compare.Deviation{},
		})
		return
	}

	color := "red"
	if analysis.Match {
		color = "green"
	}

	writeJSON(w, http.StatusOK, analyzeResponse{
		Status:             "ok",
		Detected:           true,
		Exercise:           analysis.Exercise,
		Similarity:         analysis.Similarity,
		KeypointSimilarity: analysis.KeypointSimilarity,
		AngleSimilarity:    analysis.AngleSimilarity,
		Confidence:         analysis.Feedback.Confidence,
		SkeletonColor:      color,
		Issues:             analysis.Feedback.Issues,
		Good:               analysis.Feedback.Good,
		Keypoints:          RelativeKeypoints(analysis.Skeleton, analysis.FrameWidth, analysis.FrameHeight),
		LiveAngles:         roundedAngles(analysis.LiveAngles),
		ReferenceAngles:    roundedAngles(analysis.ReferenceAngles),
		AngleDeviations:    analysis.Deviations,
	})
}
