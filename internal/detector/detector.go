package detector

import (
	"errors"

	"gocv.io/x/gocv"

	"github.com/ayusman/vinyasa/internal/pose"
)

// ErrUnavailable is returned when the pose estimation backend cannot be
// located or started.
var ErrUnavailable = errors.New("pose detector unavailable")

// Detector defines the interface for pose estimation implementations.
type Detector interface {
	// Detect analyzes a video frame and returns the detected skeleton in
	// pixel coordinates. Returns nil if no person is found.
	Detect(frame *gocv.Mat) (*pose.Skeleton, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for pose detection.
type Config struct {
	// MinDetectionConfidence is the minimum pose detection confidence
	// threshold (0.0-1.0).
	MinDetectionConfidence float64

	// MinTrackingConfidence is the minimum pose presence confidence
	// threshold (0.0-1.0).
	MinTrackingConfidence float64

	// ScriptPath overrides the landmarker script location. When empty the
	// script is searched for in the usual install locations.
	ScriptPath string

	// PythonPath overrides the Python interpreter. When empty a virtualenv
	// interpreter is preferred, falling back to python3 on PATH.
	PythonPath string
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MinDetectionConfidence: 0.5,
		MinTrackingConfidence:  0.5,
	}
}
