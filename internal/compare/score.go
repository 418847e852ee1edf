// Package compare scores a detected pose against a reference pose and turns
// the result into human-readable feedback. Joint angles carry most of the
// weight: they are invariant to body proportions and camera placement, while
// normalized keypoint positions act as a secondary spatial check.
package compare

import (
	"math"

	"github.com/ayusman/vinyasa/internal/pose"
)

const (
	// Weighting of the two similarity signals in the final score.
	keypointWeight = 0.25
	angleWeight    = 0.75

	// Exponential decay rate for keypoint distances. At 2.0 a normalized
	// distance of 0.35 still scores roughly 50%.
	decayRate = 2.0

	// Minimum number of mutually confident keypoints for a positional
	// comparison to mean anything.
	minComparable = 3

	// Returned when there is not enough signal to compare.
	neutralScore = 50.0
)

// KeypointSimilarity scores positional agreement between two skeletons in
// [0, 100]. Both skeletons are normalized before comparison, so callers may
// pass raw pixel coordinates. Only keypoints confident on both sides count;
// with fewer than three such pairs the score is neutral.
func KeypointSimilarity(live, ref pose.Skeleton) float64 {
	ln := live.Normalize()
	rn := ref.Normalize()

	var sum float64
	var n int
	for i := 0; i < pose.NumKeypoints; i++ {
		if live[i].Confidence < pose.MinConfidence || ref[i].Confidence < pose.MinConfidence {
			continue
		}
		dx := ln[i].X - rn[i].X
		dy := ln[i].Y - rn[i].Y
		d := math.Sqrt(dx*dx + dy*dy)
		sum += math.Exp(-decayRate * d)
		n++
	}

	if n < minComparable {
		return neutralScore
	}
	return sum / float64(n) * 100.0
}

// AngleSimilarity scores angular agreement between two angle sets in
// [0, 100]. Each joint defined on both sides contributes a banded score;
// with no comparable joints the score is neutral.
func AngleSimilarity(live, ref pose.AngleSet) float64 {
	var sum float64
	var n int
	for j := pose.Joint(0); j < pose.NumJoints; j++ {
		lv, lok := live.At(j)
		rv, rok := ref.At(j)
		if !lok || !rok {
			continue
		}
		sum += bandScore(math.Abs(lv - rv))
		n++
	}

	if n == 0 {
		return neutralScore
	}
	return sum / float64(n)
}

// bandScore maps an absolute angular deviation in degrees to a score.
// Deviations within 15 degrees are a full match, then the score falls off in
// progressively harsher bands: 70% at 30 degrees, 30% at 60, zero at 90.
func bandScore(diff float64) float64 {
	switch {
	case diff <= 15.0:
		return 100.0
	case diff <= 30.0:
		return 100.0 - (diff-15.0)*2.0
	case diff <= 60.0:
		return 70.0 - (diff-30.0)*(40.0/30.0)
	default:
		return math.Max(0.0, 30.0-(diff-60.0))
	}
}

// Similarity combines the keypoint and angle scores into the final weighted
// similarity, clamped to [0, 100] and rounded to one decimal.
func Similarity(liveKP, refKP pose.Skeleton, liveAngles, refAngles pose.AngleSet) float64 {
	kp := KeypointSimilarity(liveKP, refKP)
	ang := AngleSimilarity(liveAngles, refAngles)

	final := keypointWeight*kp + angleWeight*ang
	return Round1(math.Max(0.0, math.Min(100.0, final)))
}

// Round1 rounds to one decimal place.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Round2 rounds to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
