package compare

import (
	"sort"

	"github.com/ayusman/vinyasa/internal/dataset"
	"github.com/ayusman/vinyasa/internal/pose"
)

// ReferencePose is the aggregated target for one exercise label.
type ReferencePose struct {
	Label     string
	Keypoints pose.Skeleton
	Angles    pose.AngleSet
}

// ReferenceSet holds the aggregated reference poses, keyed by exercise
// label. It is built once at startup and read concurrently afterwards, so it
// is immutable.
type ReferenceSet struct {
	poses  map[string]ReferencePose
	labels []string
}

// BuildReferences aggregates dataset samples into one reference pose per
// label. Each keypoint component (x, y, confidence) and each joint angle is
// the median across that label's samples. Angles undefined in a sample are
// excluded from that joint's median, and a joint undefined in every sample
// stays undefined.
func BuildReferences(samples []dataset.Sample) *ReferenceSet {
	grouped := make(map[string][]dataset.Sample)
	for _, s := range samples {
		grouped[s.PoseLabel] = append(grouped[s.PoseLabel], s)
	}

	set := &ReferenceSet{
		poses:  make(map[string]ReferencePose, len(grouped)),
		labels: make([]string, 0, len(grouped)),
	}

	for label, group := range grouped {
		ref := ReferencePose{Label: label}

		xs := make([]float64, len(group))
		ys := make([]float64, len(group))
		cs := make([]float64, len(group))
		for i := 0; i < pose.NumKeypoints; i++ {
			for gi, s := range group {
				xs[gi] = s.Keypoints[i].X
				ys[gi] = s.Keypoints[i].Y
				cs[gi] = s.Keypoints[i].Confidence
			}
			ref.Keypoints[i] = pose.Keypoint{
				X:          median(xs),
				Y:          median(ys),
				Confidence: median(cs),
			}
		}

		vals := make([]float64, 0, len(group))
		for j := pose.Joint(0); j < pose.NumJoints; j++ {
			vals = vals[:0]
			for _, s := range group {
				if v, ok := s.Angles.At(j); ok {
					vals = append(vals, v)
				}
			}
			if len(vals) > 0 {
				ref.Angles.Set(j, median(vals))
			}
		}

		set.poses[label] = ref
		set.labels = append(set.labels, label)
	}

	sort.Strings(set.labels)
	return set
}

// Get returns the reference pose for a label.
func (rs *ReferenceSet) Get(label string) (ReferencePose, bool) {
	p, ok := rs.poses[label]
	return p, ok
}

// Labels returns the known exercise labels in sorted order.
func (rs *ReferenceSet) Labels() []string {
	out := make([]string, len(rs.labels))
	copy(out, rs.labels)
	return out
}

// Len returns the number of reference poses.
func (rs *ReferenceSet) Len() int {
	return len(rs.poses)
}

// median returns the middle value of vals, or the mean of the two middle
// values for an even count. vals is not modified. Returns 0 for an empty
// slice.
func median(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
