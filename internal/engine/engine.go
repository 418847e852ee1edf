package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/vinyasa/internal/compare"
	"github.com/ayusman/vinyasa/internal/detector"
	"github.com/ayusman/vinyasa/internal/metrics"
	"github.com/ayusman/vinyasa/internal/overlay"
	"github.com/ayusman/vinyasa/internal/pose"
)

// matchThreshold is the similarity above which a pose counts as matching
// the reference. The frontend paints the skeleton green at or above it.
const matchThreshold = 70.0

// DefaultDetectTimeout bounds how long a caller waits for the detection
// worker before giving up on a frame.
const DefaultDetectTimeout = 10 * time.Second

var (
	// ErrBadImage is returned when uploaded bytes cannot be decoded as an
	// image.
	ErrBadImage = errors.New("could not decode image")

	// ErrNoPose is returned by operations that require a visible person.
	ErrNoPose = errors.New("no pose detected")
)

// UnknownExerciseError is returned when a request names an exercise with no
// reference pose.
type UnknownExerciseError struct {
	Name      string
	Available []string
}

func (e *UnknownExerciseError) Error() string {
	return fmt.Sprintf("exercise %q not found", e.Name)
}

// Config holds the engine's dependencies and tuning.
type Config struct {
	Detector   detector.Detector
	References *compare.ReferenceSet
	Metrics    *metrics.Metrics

	// QueueDepth bounds the detection backlog. Zero uses the queue default.
	QueueDepth int

	// DetectTimeout bounds the per-frame wait for the worker. Zero uses
	// DefaultDetectTimeout.
	DetectTimeout time.Duration
}

// Engine owns the detector, the single-worker queue in front of it, and the
// reference poses. All frame processing in the process goes through one
// Engine.
type Engine struct {
	detector detector.Detector
	refs     *compare.ReferenceSet
	metrics  *metrics.Metrics
	queue    *Queue
	timeout  time.Duration
}

// New creates an engine and starts its detection worker.
func New(cfg Config) *Engine {
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.New()
	}
	if cfg.DetectTimeout <= 0 {
		cfg.DetectTimeout = DefaultDetectTimeout
	}

	return &Engine{
		detector: cfg.Detector,
		refs:     cfg.References,
		metrics:  cfg.Metrics,
		queue:    NewQueue(cfg.QueueDepth),
		timeout:  cfg.DetectTimeout,
	}
}

// Close drains the detection queue and shuts down the detector.
func (e *Engine) Close() error {
	e.queue.Close()
	return e.detector.Close()
}

// References returns the loaded reference poses.
func (e *Engine) References() *compare.ReferenceSet {
	return e.refs
}

// Metrics returns the engine's instrumentation.
func (e *Engine) Metrics() *metrics.Metrics {
	return e.metrics
}

type detectResult struct {
	skeleton *pose.Skeleton
	err      error
}

// detect routes one frame through the worker queue. The task takes
// ownership of img and closes it, even if the caller stops waiting; the
// buffered reply channel lets the worker move on when nobody is listening.
func (e *Engine) detect(ctx context.Context, img gocv.Mat) (*pose.Skeleton, error) {
	reply := make(chan detectResult, 1)

	task := func() {
		defer img.Close()

		start := time.Now()
		skeleton, err := e.detector.Detect(&img)
		elapsed := time.Since(start)

		e.metrics.ObserveDetectDuration(elapsed)
		switch {
		case err != nil:
			e.metrics.IncDetection(metrics.OutcomeError)
		case skeleton == nil:
			e.metrics.IncDetection(metrics.OutcomeNoPose)
		default:
			e.metrics.IncDetection(metrics.OutcomePose)
		}

		reply <- detectResult{skeleton: skeleton, err: err}
	}

	if err := e.queue.Submit(ctx, task); err != nil {
		img.Close()
		return nil, err
	}
	e.metrics.SetQueueDepth(e.queue.Pending())

	select {
	case res := <-reply:
		return res.skeleton, res.err
	case <-ctx.Done():
		e.metrics.IncDetection(metrics.OutcomeTimeout)
		return nil, ctx.Err()
	}
}

// Analysis is the full evaluation of a single image against a reference.
type Analysis struct {
	Exercise    string
	Detected    bool
	Skeleton    *pose.Skeleton
	FrameWidth  int
	FrameHeight int

	Similarity         float64
	KeypointSimilarity float64
	AngleSimilarity    float64
	Match              bool

	Feedback        compare.Feedback
	LiveAngles      pose.AngleSet
	ReferenceAngles pose.AngleSet
	Deviations      map[string]compare.Deviation
}

// AnalyzeImage evaluates one uploaded image against the named exercise and
// returns the full metric breakdown. Unlike the streaming path there is no
// temporal smoothing: a lone image has no previous frame.
func (e *Engine) AnalyzeImage(ctx context.Context, imageData []byte, exercise string) (*Analysis, error) {
	ref, ok := e.refs.Get(exercise)
	if !ok {
		return nil, &UnknownExerciseError{Name: exercise, Available: e.refs.Labels()}
	}

	img, err := gocv.IMDecode(imageData, gocv.IMReadColor)
	if err != nil || img.Empty() {
		if err == nil {
			img.Close()
		}
		return nil, ErrBadImage
	}
	width, height := img.Cols(), img.Rows()

	e.metrics.IncFrames()

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	skeleton, err := e.detect(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("detect pose: %w", err)
	}
	if skeleton == nil {
		return &Analysis{Exercise: exercise}, nil
	}

	liveAngles := pose.ComputeAngles(*skeleton)
	confidence := skeleton.MeanConfidence()

	kpScore := compare.KeypointSimilarity(*skeleton, ref.Keypoints)
	angleScore := compare.AngleSimilarity(liveAngles, ref.Angles)
	similarity := compare.Similarity(*skeleton, ref.Keypoints, liveAngles, ref.Angles)

	return &Analysis{
		Exercise:           exercise,
		Detected:           true,
		Skeleton:           skeleton,
		FrameWidth:         width,
		FrameHeight:        height,
		Similarity:         similarity,
		KeypointSimilarity: compare.Round1(kpScore),
		AngleSimilarity:    compare.Round1(angleScore),
		Match:              similarity >= matchThreshold,
		Feedback:           compare.GenerateFeedback(liveAngles, ref.Angles, similarity, confidence),
		LiveAngles:         liveAngles,
		ReferenceAngles:    ref.Angles,
		Deviations:         compare.Deviations(liveAngles, ref.Angles),
	}, nil
}

// Annotate draws the detected skeleton onto the uploaded image and returns
// it re-encoded as JPEG. When exercise names a known reference the skeleton
// color reflects the similarity verdict, otherwise it is green.
func (e *Engine) Annotate(ctx context.Context, imageData []byte, exercise string) ([]byte, error) {
	img, err := gocv.IMDecode(imageData, gocv.IMReadColor)
	if err != nil || img.Empty() {
		if err == nil {
			img.Close()
		}
		return nil, ErrBadImage
	}
	defer img.Close()

	e.metrics.IncFrames()

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	// The worker owns its own copy so the original stays valid for drawing.
	skeleton, err := e.detect(ctx, img.Clone())
	if err != nil {
		return nil, fmt.Errorf("detect pose: %w", err)
	}
	if skeleton == nil {
		return nil, ErrNoPose
	}

	match := true
	if ref, ok := e.refs.Get(exercise); ok {
		angles := pose.ComputeAngles(*skeleton)
		similarity := compare.Similarity(*skeleton, ref.Keypoints, angles, ref.Angles)
		match = similarity >= matchThreshold
	}

	overlay.DrawSkeleton(&img, skeleton, match)

	buf, err := gocv.IMEncode(".jpg", img)
	if err != nil {
		return nil, fmt.Errorf("encode annotated image: %w", err)
	}
	defer buf.Close()

	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}
