package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"gocv.io/x/gocv"

	"github.com/ayusman/vinyasa/internal/compare"
	"github.com/ayusman/vinyasa/internal/dataset"
	"github.com/ayusman/vinyasa/internal/detector"
	"github.com/ayusman/vinyasa/internal/engine"
	"github.com/ayusman/vinyasa/internal/pose"
)

// testReferences builds a two-exercise reference set from the detector
// fixtures.
func testReferences() *compare.ReferenceSet {
	tree := detector.TreePoseSkeleton()
	warrior := detector.WarriorPoseSkeleton()

	return compare.BuildReferences([]dataset.Sample{
		{
			ImageName:      "tree_001.jpg",
			PoseLabel:      "tree",
			Keypoints:      tree.Normalize(),
			Angles:         pose.ComputeAngles(*tree),
			ConfidenceMean: 0.95,
		},
		{
			ImageName:      "warrior2_001.jpg",
			PoseLabel:      "warrior2",
			Keypoints:      warrior.Normalize(),
			Angles:         pose.ComputeAngles(*warrior),
			ConfidenceMean: 0.95,
		},
	})
}

// newTestEngine creates an engine over the given detector and the fixture
// references.
func newTestEngine(t *testing.T, d detector.Detector) *engine.Engine {
	t.Helper()

	e := engine.New(engine.Config{
		Detector:   d,
		References: testReferences(),
	})
	t.Cleanup(func() { e.Close() })
	return e
}

// jpegFrame returns an encoded blank 640x480 frame.
func jpegFrame(t *testing.T) []byte {
	t.Helper()

	img := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer img.Close()

	buf, err := gocv.IMEncode(".jpg", img)
	if err != nil {
		t.Fatalf("failed to encode test frame: %v", err)
	}
	defer buf.Close()

	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out
}

// uploadRequest builds a multipart POST with an image under "file" and, when
// non-empty, the exercise field.
func uploadRequest(t *testing.T, path string, image []byte, exercise string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fw, err := mw.CreateFormFile("file", "frame.jpg")
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := fw.Write(image); err != nil {
		t.Fatalf("failed to write form file: %v", err)
	}
	if exercise != "" {
		if err := mw.WriteField("exercise", exercise); err != nil {
			t.Fatalf("failed to write exercise field: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestExercisesHandler(t *testing.T) {
	t.Run("lists loaded references", func(t *testing.T) {
		e := newTestEngine(t, detector.NewMockDetector())
		handler := NewExercisesHandler(e)

		req := httptest.NewRequest(http.MethodGet, "/api/exercises", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}

		var response listExercisesResponse
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}

		if len(response.Exercises) != 2 || response.Exercises[0] != "tree" || response.Exercises[1] != "warrior2" {
			t.Errorf("expected [tree warrior2], got %v", response.Exercises)
		}
	})

	t.Run("falls back to the fixed list when no references are loaded", func(t *testing.T) {
		e := engine.New(engine.Config{
			Detector:   detector.NewMockDetector(),
			References: compare.BuildReferences(nil),
		})
		t.Cleanup(func() { e.Close() })
		handler := NewExercisesHandler(e)

		req := httptest.NewRequest(http.MethodGet, "/api/exercises", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		var response listExercisesResponse
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}

		if len(response.Exercises) != 5 {
			t.Fatalf("expected the 5 fallback exercises, got %v", response.Exercises)
		}
		if response.Exercises[0] != "downdog" || response.Exercises[4] != "warrior2" {
			t.Errorf("unexpected fallback list: %v", response.Exercises)
		}
	})

	t.Run("only allows GET method", func(t *testing.T) {
		e := newTestEngine(t, detector.NewMockDetector())
		handler := NewExercisesHandler(e)

		req := httptest.NewRequest(http.MethodPost, "/api/exercises", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
		}
	})
}

func TestSessionHandler(t *testing.T) {
	t.Run("returns reference angles for a known exercise", func(t *testing.T) {
		e := newTestEngine(t, detector.NewMockDetector())
		handler := NewSessionHandler(e)

		body := strings.NewReader(`{"exercise": "Tree"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/session", body)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}

		var response sessionResponse
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}

		if response.Status != "ok" {
			t.Errorf("expected status ok, got %q", response.Status)
		}
		if response.Exercise != "tree" {
			t.Errorf("expected lowercased exercise tree, got %q", response.Exercise)
		}
		if len(response.ReferenceAngles) != pose.NumJoints {
			t.Fatalf("expected %d reference angles, got %d", pose.NumJoints, len(response.ReferenceAngles))
		}
		for name, v := range response.ReferenceAngles {
			if v == nil {
				t.Errorf("joint %s: expected a defined angle", name)
				continue
			}
			if *v <= 0 || *v > 180 {
				t.Errorf("joint %s: angle %v out of range", name, *v)
			}
		}
	})

	t.Run("unknown exercise returns 404 with the available list", func(t *testing.T) {
		e := newTestEngine(t, detector.NewMockDetector())
		handler := NewSessionHandler(e)

		body := strings.NewReader(`{"exercise": "headstand"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/session", body)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected status %d, got %d", http.StatusNotFound, rec.Code)
		}

		var response errorResponse
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}

		if response.Status != "error" {
			t.Errorf("expected status error, got %q", response.Status)
		}
		want := "Exercise 'headstand' not found. Available: tree, warrior2"
		if response.Message != want {
			t.Errorf("expected message %q, got %q", want, response.Message)
		}
	})

	t.Run("invalid JSON returns 400", func(t *testing.T) {
		e := newTestEngine(t, detector.NewMockDetector())
		handler := NewSessionHandler(e)

		req := httptest.NewRequest(http.MethodPost, "/api/session", strings.NewReader("{"))
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
		}
	})

	t.Run("only allows POST method", func(t *testing.T) {
		e := newTestEngine(t, detector.NewMockDetector())
		handler := NewSessionHandler(e)

		req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
		}
	})
}
