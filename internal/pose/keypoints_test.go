package pose

import (
	"encoding/json"
	"math"
	"testing"
)

const epsilon = 1e-9

// uprightSkeleton returns a plausible front-facing standing pose in pixel
// coordinates with high confidence everywhere.
func uprightSkeleton() Skeleton {
	var s Skeleton
	set := func(i int, x, y float64) {
		s[i] = Keypoint{X: x, Y: y, Confidence: 0.95}
	}
	set(Nose, 320, 80)
	set(LeftEye, 330, 70)
	set(RightEye, 310, 70)
	set(LeftEar, 345, 75)
	set(RightEar, 295, 75)
	set(LeftShoulder, 370, 140)
	set(RightShoulder, 270, 140)
	set(LeftElbow, 390, 220)
	set(RightElbow, 250, 220)
	set(LeftWrist, 400, 300)
	set(RightWrist, 240, 300)
	set(LeftHip, 350, 310)
	set(RightHip, 290, 310)
	set(LeftKnee, 345, 420)
	set(RightKnee, 295, 420)
	set(LeftAnkle, 340, 530)
	set(RightAnkle, 300, 530)
	return s
}

func TestSkeleton_Normalize(t *testing.T) {
	t.Run("hip midpoint at origin after normalization", func(t *testing.T) {
		s := uprightSkeleton()
		n := s.Normalize()

		midX := (n[LeftHip].X + n[RightHip].X) / 2
		midY := (n[LeftHip].Y + n[RightHip].Y) / 2

		if math.Abs(midX) > epsilon {
			t.Errorf("expected hip midpoint X to be 0, got %f", midX)
		}
		if math.Abs(midY) > epsilon {
			t.Errorf("expected hip midpoint Y to be 0, got %f", midY)
		}
	})

	t.Run("shoulder to opposite hip distance is 1.0", func(t *testing.T) {
		s := uprightSkeleton()
		n := s.Normalize()

		d := distance(n[LeftShoulder], n[RightHip])
		if math.Abs(d-1.0) > epsilon {
			t.Errorf("expected torso distance 1.0, got %f", d)
		}
	})

	t.Run("confidence passes through unchanged", func(t *testing.T) {
		s := uprightSkeleton()
		s[LeftWrist].Confidence = 0.12
		n := s.Normalize()

		for i := range s {
			if n[i].Confidence != s[i].Confidence {
				t.Errorf("keypoint %d: confidence changed from %f to %f", i, s[i].Confidence, n[i].Confidence)
			}
		}
	})

	t.Run("invariant under translation and uniform scale", func(t *testing.T) {
		s := uprightSkeleton()
		base := s.Normalize()

		moved := s
		for i := range moved {
			moved[i].X = s[i].X*2.5 + 1000
			moved[i].Y = s[i].Y*2.5 - 300
		}
		got := moved.Normalize()

		for i := range base {
			if math.Abs(got[i].X-base[i].X) > 1e-6 {
				t.Errorf("keypoint %d: X = %f, want %f", i, got[i].X, base[i].X)
			}
			if math.Abs(got[i].Y-base[i].Y) > 1e-6 {
				t.Errorf("keypoint %d: Y = %f, want %f", i, got[i].Y, base[i].Y)
			}
		}
	})

	t.Run("normalization is idempotent", func(t *testing.T) {
		s := uprightSkeleton()
		once := s.Normalize()
		twice := once.Normalize()

		for i := range once {
			if math.Abs(once[i].X-twice[i].X) > epsilon || math.Abs(once[i].Y-twice[i].Y) > epsilon {
				t.Errorf("keypoint %d changed on second normalization: (%f,%f) vs (%f,%f)",
					i, once[i].X, once[i].Y, twice[i].X, twice[i].Y)
			}
		}
	})

	t.Run("degenerate torso substitutes scale of 1", func(t *testing.T) {
		var s Skeleton
		for i := range s {
			s[i] = Keypoint{X: 5, Y: 5, Confidence: 0.9}
		}
		n := s.Normalize()

		// All points coincide with the hip midpoint, so translation alone
		// must leave everything at the origin without a division blow-up.
		for i := range n {
			if math.Abs(n[i].X) > epsilon || math.Abs(n[i].Y) > epsilon {
				t.Errorf("keypoint %d: expected origin, got (%f,%f)", i, n[i].X, n[i].Y)
			}
			if math.IsNaN(n[i].X) || math.IsInf(n[i].X, 0) {
				t.Errorf("keypoint %d: non-finite X %f", i, n[i].X)
			}
		}
	})
}

func TestSkeleton_MeanConfidence(t *testing.T) {
	t.Run("averages only confident keypoints", func(t *testing.T) {
		var s Skeleton
		for i := range s {
			s[i].Confidence = 0.1
		}
		s[Nose].Confidence = 0.8
		s[LeftHip].Confidence = 0.6

		got := s.MeanConfidence()
		want := 0.7
		if math.Abs(got-want) > epsilon {
			t.Errorf("MeanConfidence() = %f, want %f", got, want)
		}
	})

	t.Run("returns 0 when no keypoint is confident", func(t *testing.T) {
		var s Skeleton
		if got := s.MeanConfidence(); got != 0 {
			t.Errorf("MeanConfidence() = %f, want 0", got)
		}
	})
}

func TestKeypoint_JSON(t *testing.T) {
	t.Run("encodes as a triple", func(t *testing.T) {
		data, err := json.Marshal(Keypoint{X: 1.5, Y: -2, Confidence: 0.75})
		if err != nil {
			t.Fatalf("marshal error: %v", err)
		}
		if string(data) != "[1.5,-2,0.75]" {
			t.Errorf("got %s", data)
		}
	})

	t.Run("decodes a triple", func(t *testing.T) {
		var k Keypoint
		if err := json.Unmarshal([]byte("[3,4,0.5]"), &k); err != nil {
			t.Fatalf("unmarshal error: %v", err)
		}
		if k.X != 3 || k.Y != 4 || k.Confidence != 0.5 {
			t.Errorf("got %+v", k)
		}
	})

	t.Run("rejects non-array input", func(t *testing.T) {
		var k Keypoint
		if err := json.Unmarshal([]byte(`{"x":1}`), &k); err == nil {
			t.Error("expected error for object input")
		}
	})
}
