package engine

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gocv.io/x/gocv"

	"github.com/ayusman/vinyasa/internal/compare"
	"github.com/ayusman/vinyasa/internal/metrics"
	"github.com/ayusman/vinyasa/internal/pose"
)

// User-facing messages pushed with streaming results.
const (
	msgNoPose     = "No pose detected — make sure your full body is visible"
	msgNoExercise = "Select an exercise to start pose comparison"
	msgTimeout    = "Processing timeout — please try again"
)

// Session is the per-connection streaming state: the selected exercise and
// the temporal smoother. A session belongs to a single connection loop and
// is not safe for concurrent use.
type Session struct {
	id       string
	engine   *Engine
	smoother *pose.Smoother

	exercise string
	ref      compare.ReferencePose
	hasRef   bool
}

// NewSession opens a streaming session.
func (e *Engine) NewSession() *Session {
	e.metrics.IncSessions()
	return &Session{
		id:       uuid.NewString(),
		engine:   e,
		smoother: pose.NewSmoother(),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Close releases the session.
func (s *Session) Close() {
	s.engine.metrics.DecSessions()
}

// Exercise returns the currently selected exercise label, or an empty
// string before any selection.
func (s *Session) Exercise() string {
	return s.exercise
}

// SelectExercise switches the session to the named exercise. The label is
// lowercased and kept even when no reference exists for it; frames then
// report that a known exercise must be selected. Returns the stored label
// and whether a reference was found.
func (s *Session) SelectExercise(name string) (string, bool) {
	s.exercise = strings.ToLower(name)
	s.ref, s.hasRef = s.engine.refs.Get(s.exercise)
	return s.exercise, s.hasRef
}

// StreamResult is the outcome of one streamed frame.
type StreamResult struct {
	Detected    bool
	Match       bool
	Similarity  float64
	Confidence  float64
	Issues      []string
	Good        []string
	Skeleton    *pose.Skeleton
	FrameWidth  int
	FrameHeight int
}

// ProcessFrame runs one streamed frame through detect, smooth, and compare.
// Failures the client can do nothing about come back as errors: ErrBadImage
// for undecodable frames and context errors when the caller's wait ends
// before the worker gets to the frame. Everything else, including a frame
// with nobody in it or a wait that hit the detection timeout, is a regular
// result with its message in Issues.
func (s *Session) ProcessFrame(ctx context.Context, imageData []byte) (*StreamResult, error) {
	img, err := gocv.IMDecode(imageData, gocv.IMReadColor)
	if err != nil || img.Empty() {
		if err == nil {
			img.Close()
		}
		return nil, ErrBadImage
	}
	width, height := img.Cols(), img.Rows()

	s.engine.metrics.IncFrames()

	detectCtx, cancel := context.WithTimeout(ctx, s.engine.timeout)
	defer cancel()

	skeleton, err := s.engine.detect(detectCtx, img)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return timeoutResult(), nil
		}
		return nil, err
	}
	if skeleton == nil {
		return noPoseResult(), nil
	}

	smoothed := s.smoother.Smooth(*skeleton)
	liveAngles := pose.ComputeAngles(smoothed)
	confidence := smoothed.MeanConfidence()

	result := &StreamResult{
		Detected:    true,
		Skeleton:    &smoothed,
		FrameWidth:  width,
		FrameHeight: height,
	}

	if s.hasRef {
		similarity := compare.Similarity(smoothed, s.ref.Keypoints, liveAngles, s.ref.Angles)
		feedback := compare.GenerateFeedback(liveAngles, s.ref.Angles, similarity, confidence)

		result.Similarity = feedback.Similarity
		result.Confidence = feedback.Confidence
		result.Issues = feedback.Issues
		result.Good = feedback.Good
		result.Match = similarity >= matchThreshold
	} else {
		result.Confidence = compare.Round2(confidence)
		result.Issues = []string{msgNoExercise}
		result.Good = []string{}
	}

	return result, nil
}

func noPoseResult() *StreamResult {
	return &StreamResult{
		Issues: []string{msgNoPose},
		Good:   []string{},
	}
}

func timeoutResult() *StreamResult {
	return &StreamResult{
		Issues: []string{msgTimeout},
		Good:   []string{},
	}
}
