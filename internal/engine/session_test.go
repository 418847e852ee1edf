package engine

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/ayusman/vinyasa/internal/detector"
	"github.com/ayusman/vinyasa/internal/pose"
)

func TestSession_SelectExercise(t *testing.T) {
	mock := detector.NewMockDetector()
	e := newTestEngine(t, mock)

	sess := e.NewSession()
	defer sess.Close()

	if sess.Exercise() != "" {
		t.Errorf("expected empty exercise before selection, got %q", sess.Exercise())
	}

	label, found := sess.SelectExercise("Tree")
	if label != "tree" {
		t.Errorf("expected lowercased label tree, got %q", label)
	}
	if !found {
		t.Error("expected tree reference to be found")
	}
	if sess.Exercise() != "tree" {
		t.Errorf("expected stored exercise tree, got %q", sess.Exercise())
	}

	// Unknown labels are still stored so the client sees them echoed back.
	label, found = sess.SelectExercise("Headstand")
	if label != "headstand" {
		t.Errorf("expected lowercased label headstand, got %q", label)
	}
	if found {
		t.Error("headstand has no reference")
	}
	if sess.Exercise() != "headstand" {
		t.Errorf("expected stored exercise headstand, got %q", sess.Exercise())
	}
}

func TestSession_ProcessFrame(t *testing.T) {
	t.Run("no exercise selected", func(t *testing.T) {
		mock := detector.NewMockDetector()
		mock.SetSkeleton(detector.TreePoseSkeleton())
		e := newTestEngine(t, mock)

		sess := e.NewSession()
		defer sess.Close()

		result, err := sess.ProcessFrame(context.Background(), jpegFrame(t))
		if err != nil {
			t.Fatalf("process failed: %v", err)
		}

		if !result.Detected {
			t.Error("expected a detected pose")
		}
		if result.Skeleton == nil {
			t.Fatal("expected smoothed skeleton in result")
		}
		if result.Similarity != 0 {
			t.Errorf("expected similarity 0 without a reference, got %v", result.Similarity)
		}
		if result.Match {
			t.Error("expected no match without a reference")
		}
		if result.Confidence != 0.95 {
			t.Errorf("expected confidence 0.95, got %v", result.Confidence)
		}
		if len(result.Issues) != 1 || result.Issues[0] != msgNoExercise {
			t.Errorf("unexpected issues: %v", result.Issues)
		}
		if result.FrameWidth != 640 || result.FrameHeight != 480 {
			t.Errorf("unexpected frame size %dx%d", result.FrameWidth, result.FrameHeight)
		}
	})

	t.Run("matching exercise", func(t *testing.T) {
		mock := detector.NewMockDetector()
		mock.SetSkeleton(detector.TreePoseSkeleton())
		e := newTestEngine(t, mock)

		sess := e.NewSession()
		defer sess.Close()
		sess.SelectExercise("tree")

		result, err := sess.ProcessFrame(context.Background(), jpegFrame(t))
		if err != nil {
			t.Fatalf("process failed: %v", err)
		}

		if result.Similarity != 100.0 {
			t.Errorf("expected similarity 100.0 against own reference, got %v", result.Similarity)
		}
		if !result.Match {
			t.Error("expected a match verdict")
		}
		if len(result.Good) != pose.NumJoints {
			t.Errorf("expected %d good joints, got %v", pose.NumJoints, result.Good)
		}
		if len(result.Issues) != 0 {
			t.Errorf("expected no issues, got %v", result.Issues)
		}
	})

	t.Run("unknown exercise selected", func(t *testing.T) {
		mock := detector.NewMockDetector()
		mock.SetSkeleton(detector.TreePoseSkeleton())
		e := newTestEngine(t, mock)

		sess := e.NewSession()
		defer sess.Close()
		sess.SelectExercise("headstand")

		result, err := sess.ProcessFrame(context.Background(), jpegFrame(t))
		if err != nil {
			t.Fatalf("process failed: %v", err)
		}

		// Frames against an unknown label behave like no selection at all.
		if !result.Detected {
			t.Error("expected a detected pose")
		}
		if len(result.Issues) != 1 || result.Issues[0] != msgNoExercise {
			t.Errorf("unexpected issues: %v", result.Issues)
		}
	})

	t.Run("nobody in frame", func(t *testing.T) {
		mock := detector.NewMockDetector()
		e := newTestEngine(t, mock)

		sess := e.NewSession()
		defer sess.Close()
		sess.SelectExercise("tree")

		result, err := sess.ProcessFrame(context.Background(), jpegFrame(t))
		if err != nil {
			t.Fatalf("process failed: %v", err)
		}

		if result.Detected {
			t.Error("expected no detection")
		}
		if result.Skeleton != nil {
			t.Error("expected nil skeleton")
		}
		if len(result.Issues) != 1 || result.Issues[0] != msgNoPose {
			t.Errorf("unexpected issues: %v", result.Issues)
		}
	})

	t.Run("undecodable frame", func(t *testing.T) {
		mock := detector.NewMockDetector()
		e := newTestEngine(t, mock)

		sess := e.NewSession()
		defer sess.Close()

		_, err := sess.ProcessFrame(context.Background(), []byte("junk"))
		if !errors.Is(err, ErrBadImage) {
			t.Errorf("expected ErrBadImage, got %v", err)
		}
	})

	t.Run("detector failure surfaces", func(t *testing.T) {
		mock := detector.NewMockDetector()
		mock.SetError(errors.New("subprocess died"))
		e := newTestEngine(t, mock)

		sess := e.NewSession()
		defer sess.Close()

		_, err := sess.ProcessFrame(context.Background(), jpegFrame(t))
		if err == nil {
			t.Fatal("expected an error")
		}
	})
}

func TestSession_DetectTimeoutBecomesResult(t *testing.T) {
	e := New(Config{
		Detector:      &slowDetector{delay: 300 * time.Millisecond},
		References:    testReferences(),
		DetectTimeout: 30 * time.Millisecond,
	})
	t.Cleanup(func() { e.Close() })

	sess := e.NewSession()
	defer sess.Close()

	result, err := sess.ProcessFrame(context.Background(), jpegFrame(t))
	if err != nil {
		t.Fatalf("a detection timeout should come back as a result, got error %v", err)
	}
	if result.Detected {
		t.Error("expected no detection on timeout")
	}
	if len(result.Issues) != 1 || result.Issues[0] != msgTimeout {
		t.Errorf("unexpected issues: %v", result.Issues)
	}
}

func TestSession_CallerDeadlineIsAnError(t *testing.T) {
	e := New(Config{
		Detector:   &slowDetector{delay: 300 * time.Millisecond},
		References: testReferences(),
	})
	t.Cleanup(func() { e.Close() })

	sess := e.NewSession()
	defer sess.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := sess.ProcessFrame(ctx, jpegFrame(t))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected DeadlineExceeded from the caller's context, got %v", err)
	}
}

func TestSession_SmoothsAcrossFrames(t *testing.T) {
	frameA := detector.TreePoseSkeleton()
	frameA[pose.Nose].X = 100
	frameB := detector.TreePoseSkeleton()
	frameB[pose.Nose].X = 200

	mock := detector.NewMockDetector()
	e := newTestEngine(t, mock)

	sess := e.NewSession()
	defer sess.Close()

	mock.SetSkeleton(frameA)
	first, err := sess.ProcessFrame(context.Background(), jpegFrame(t))
	if err != nil {
		t.Fatalf("first frame failed: %v", err)
	}
	if first.Skeleton[pose.Nose].X != 100 {
		t.Errorf("first frame should pass through unblended, got nose x %v", first.Skeleton[pose.Nose].X)
	}

	mock.SetSkeleton(frameB)
	second, err := sess.ProcessFrame(context.Background(), jpegFrame(t))
	if err != nil {
		t.Fatalf("second frame failed: %v", err)
	}
	// 0.6*200 + 0.4*100
	if math.Abs(second.Skeleton[pose.Nose].X-160) > 1e-9 {
		t.Errorf("expected blended nose x 160, got %v", second.Skeleton[pose.Nose].X)
	}

	// A fresh session starts from scratch.
	other := e.NewSession()
	defer other.Close()

	result, err := other.ProcessFrame(context.Background(), jpegFrame(t))
	if err != nil {
		t.Fatalf("other session frame failed: %v", err)
	}
	if result.Skeleton[pose.Nose].X != 200 {
		t.Errorf("sessions must not share smoothing state, got nose x %v", result.Skeleton[pose.Nose].X)
	}
}

func TestSession_UniqueIDs(t *testing.T) {
	mock := detector.NewMockDetector()
	e := newTestEngine(t, mock)

	a := e.NewSession()
	defer a.Close()
	b := e.NewSession()
	defer b.Close()

	if a.ID() == "" || b.ID() == "" {
		t.Fatal("expected non-empty session ids")
	}
	if a.ID() == b.ID() {
		t.Error("expected distinct session ids")
	}
}
