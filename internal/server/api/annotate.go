package api

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/ayusman/vinyasa/internal/engine"
)

// AnnotateHandler returns uploaded images with the detected skeleton drawn
// onto them.
type AnnotateHandler struct {
	engine *engine.Engine
}

// NewAnnotateHandler creates a new AnnotateHandler.
func NewAnnotateHandler(e *engine.Engine) *AnnotateHandler {
	return &AnnotateHandler{engine: e}
}

// ServeHTTP handles POST /api/annotate: a multipart form with an image under
// "file" and an optional "exercise" that decides the skeleton color.
func (h *AnnotateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
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

	annotated, err := h.engine.Annotate(r.Context(), data, exercise)
	if err != nil {
		switch {
		case errors.Is(err, engine.ErrBadImage):
			writeError(w, http.StatusBadRequest, "Could not decode image. Please upload a valid JPEG/PNG.")
		case errors.Is(err, engine.ErrNoPose):
			writeError(w, http.StatusNotFound, "No pose detected. Make sure your full body is visible in the image.")
		default:
			writeError(w, http.StatusInternalServerError, "Failed to annotate image")
		}
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Write(annotated)
}
