package compare

import (
	"math"
	"testing"

	"github.com/ayusman/vinyasa/internal/dataset"
	"github.com/ayusman/vinyasa/internal/pose"
)

func refSample(label string, noseX float64, elbow float64, hasElbow bool) dataset.Sample {
	var s pose.Skeleton
	for i := range s {
		s[i] = pose.Keypoint{X: noseX, Y: float64(i), Confidence: 0.9}
	}
	var a pose.AngleSet
	if hasElbow {
		a.Set(pose.JointLeftElbow, elbow)
	}
	return dataset.Sample{ImageName: label + ".jpg", PoseLabel: label, Keypoints: s, Angles: a}
}

func TestMedian(t *testing.T) {
	cases := []struct {
		name string
		vals []float64
		want float64
	}{
		{"single", []float64{42}, 42},
		{"odd count ignores outlier", []float64{10, 20, 100}, 20},
		{"even count averages middle pair", []float64{10, 20}, 15},
		{"unsorted input", []float64{100, 10, 10, 10}, 10},
		{"empty", nil, 0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := median(c.vals); math.Abs(got-c.want) > epsilon {
				t.Errorf("median(%v) = %v, want %v", c.vals, got, c.want)
			}
		})
	}
}

func TestMedian_DoesNotMutateInput(t *testing.T) {
	vals := []float64{3, 1, 2}
	median(vals)
	if vals[0] != 3 || vals[1] != 1 || vals[2] != 2 {
		t.Errorf("input reordered: %v", vals)
	}
}

func TestBuildReferences(t *testing.T) {
	samples := []dataset.Sample{
		refSample("tree", 10, 160, true),
		refSample("tree", 20, 150, true),
		refSample("tree", 90, 0, false),
		refSample("warrior2", 5, 100, true),
	}

	refs := BuildReferences(samples)

	if refs.Len() != 2 {
		t.Fatalf("expected 2 reference poses, got %d", refs.Len())
	}

	labels := refs.Labels()
	if len(labels) != 2 || labels[0] != "tree" || labels[1] != "warrior2" {
		t.Errorf("expected sorted labels [tree warrior2], got %v", labels)
	}

	tree, ok := refs.Get("tree")
	if !ok {
		t.Fatal("missing tree reference")
	}
	if tree.Label != "tree" {
		t.Errorf("expected label tree, got %q", tree.Label)
	}
	// Median of nose X values 10, 20, 90.
	if got := tree.Keypoints[pose.Nose].X; math.Abs(got-20) > epsilon {
		t.Errorf("expected median nose X 20, got %v", got)
	}
	// Elbow angle median over defined samples only: 160 and 150.
	if v, ok := tree.Angles.At(pose.JointLeftElbow); !ok || math.Abs(v-155) > epsilon {
		t.Errorf("expected median elbow 155, got %v (defined=%v)", v, ok)
	}
	// No sample defines a knee angle.
	if _, ok := tree.Angles.At(pose.JointLeftKnee); ok {
		t.Error("expected left knee to stay undefined")
	}

	if _, ok := refs.Get("plank"); ok {
		t.Error("Get returned a pose for an unknown label")
	}
}

func TestReferenceSet_LabelsIsACopy(t *testing.T) {
	refs := BuildReferences([]dataset.Sample{refSample("tree", 10, 160, true)})

	labels := refs.Labels()
	labels[0] = "mangled"

	if got := refs.Labels(); got[0] != "tree" {
		t.Errorf("mutating the returned slice leaked into the set: %v", got)
	}
}
