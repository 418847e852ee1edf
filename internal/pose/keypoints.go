// Package pose provides the COCO-17 skeleton types and the geometry used to
// compare body poses: coordinate normalization, joint-angle computation, and
// temporal smoothing.
package pose

import (
	"encoding/json"
	"fmt"
	"math"
)

// Keypoint indices following the COCO-17 convention.
const (
	Nose          = 0
	LeftEye       = 1
	RightEye      = 2
	LeftEar       = 3
	RightEar      = 4
	LeftShoulder  = 5
	RightShoulder = 6
	LeftElbow     = 7
	RightElbow    = 8
	LeftWrist     = 9
	RightWrist    = 10
	LeftHip       = 11
	RightHip      = 12
	LeftKnee      = 13
	RightKnee     = 14
	LeftAnkle     = 15
	RightAnkle    = 16
	NumKeypoints  = 17
)

// MinConfidence is the threshold below which a keypoint is treated as
// unreliable: it is excluded from angle computation, smoothing, positional
// comparison, and mean confidence.
const MinConfidence = 0.3

// geomEpsilon guards degenerate geometry (coincident points, zero torso).
const geomEpsilon = 1e-8

// Bones lists the skeleton connections between keypoint indices, used for
// drawing and for documenting adjacency.
var Bones = [16][2]int{
	{Nose, LeftEye}, {Nose, RightEye},
	{LeftEye, LeftEar}, {RightEye, RightEar},
	{LeftShoulder, RightShoulder},
	{LeftShoulder, LeftElbow}, {LeftElbow, LeftWrist},
	{RightShoulder, RightElbow}, {RightElbow, RightWrist},
	{LeftShoulder, LeftHip}, {RightShoulder, RightHip},
	{LeftHip, RightHip},
	{LeftHip, LeftKnee}, {LeftKnee, LeftAnkle},
	{RightHip, RightKnee}, {RightKnee, RightAnkle},
}

// Keypoint is one detected body landmark. X and Y are pixel coordinates
// before normalization and unit-less afterwards. Confidence is in [0,1].
type Keypoint struct {
	X          float64
	Y          float64
	Confidence float64
}

// MarshalJSON encodes the keypoint as the [x, y, confidence] triple used by
// the reference dataset and the streaming protocol.
func (k Keypoint) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]float64{k.X, k.Y, k.Confidence})
}

// UnmarshalJSON decodes a [x, y, confidence] triple.
func (k *Keypoint) UnmarshalJSON(data []byte) error {
	var triple [3]float64
	if err := json.Unmarshal(data, &triple); err != nil {
		return fmt.Errorf("keypoint: %w", err)
	}
	k.X, k.Y, k.Confidence = triple[0], triple[1], triple[2]
	return nil
}

// Skeleton is the fixed-order 17-keypoint representation of one detected
// body. Index identity is the only relation; the order is never changed.
type Skeleton [NumKeypoints]Keypoint

// distance calculates the Euclidean distance between two keypoints in the
// x/y plane.
func distance(a, b Keypoint) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Normalize translates the skeleton so the midpoint of the two hips is the
// origin and scales it by the distance from the left shoulder to the right
// hip. A degenerate torso (distance below epsilon) substitutes a scale of
// 1.0 rather than dividing by zero. Confidence values pass through
// unchanged. Applying Normalize to an already normalized skeleton is a
// no-op, so both raw and pre-normalized skeletons are safe inputs.
func (s Skeleton) Normalize() Skeleton {
	centerX := (s[LeftHip].X + s[RightHip].X) / 2.0
	centerY := (s[LeftHip].Y + s[RightHip].Y) / 2.0

	scale := distance(s[LeftShoulder], s[RightHip])
	if scale < geomEpsilon {
		scale = 1.0
	}

	normalized := s
	for i := range normalized {
		normalized[i].X = (s[i].X - centerX) / scale
		normalized[i].Y = (s[i].Y - centerY) / scale
	}
	return normalized
}

// MeanConfidence returns the mean confidence over keypoints at or above
// MinConfidence, or 0 when none qualify.
func (s Skeleton) MeanConfidence() float64 {
	sum := 0.0
	count := 0
	for i := range s {
		if s[i].Confidence >= MinConfidence {
			sum += s[i].Confidence
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}
