package pose

import (
	"encoding/json"
	"fmt"
	"math"
)

// Joint identifies one of the eight named joint angles tracked for
// comparison and feedback.
type Joint int

// The eight tracked joints, left/right elbow, shoulder, knee, and hip.
const (
	JointLeftElbow Joint = iota
	JointRightElbow
	JointLeftShoulder
	JointRightShoulder
	JointLeftKnee
	JointRightKnee
	JointLeftHip
	JointRightHip
)

// NumJoints is the number of tracked joint angles.
const NumJoints = 8

var jointNames = [NumJoints]string{
	JointLeftElbow:     "left_elbow",
	JointRightElbow:    "right_elbow",
	JointLeftShoulder:  "left_shoulder",
	JointRightShoulder: "right_shoulder",
	JointLeftKnee:      "left_knee",
	JointRightKnee:     "right_knee",
	JointLeftHip:       "left_hip",
	JointRightHip:      "right_hip",
}

// jointTriples defines each joint angle by an ordered (pointA, vertex,
// pointB) triple of keypoint indices. The angle is measured at the vertex.
var jointTriples = [NumJoints][3]int{
	JointLeftElbow:     {LeftShoulder, LeftElbow, LeftWrist},
	JointRightElbow:    {RightShoulder, RightElbow, RightWrist},
	JointLeftShoulder:  {LeftElbow, LeftShoulder, LeftHip},
	JointRightShoulder: {RightElbow, RightShoulder, RightHip},
	JointLeftKnee:      {LeftHip, LeftKnee, LeftAnkle},
	JointRightKnee:     {RightHip, RightKnee, RightAnkle},
	JointLeftHip:       {LeftShoulder, LeftHip, LeftKnee},
	JointRightHip:      {RightShoulder, RightHip, RightKnee},
}

// String returns the joint's wire name, e.g. "left_elbow".
func (j Joint) String() string {
	if j < 0 || j >= NumJoints {
		return fmt.Sprintf("joint(%d)", int(j))
	}
	return jointNames[j]
}

// JointFromName maps a wire name back to its Joint. The second return is
// false for names outside the fixed set.
func JointFromName(name string) (Joint, bool) {
	for j := Joint(0); j < NumJoints; j++ {
		if jointNames[j] == name {
			return j, true
		}
	}
	return 0, false
}

// AngleSet holds the eight joint angles in degrees. A joint whose defining
// keypoints were not all confident is undefined rather than zero.
type AngleSet struct {
	values  [NumJoints]float64
	defined [NumJoints]bool
}

// At returns the angle for the joint and whether it is defined.
func (a AngleSet) At(j Joint) (float64, bool) {
	if j < 0 || j >= NumJoints {
		return 0, false
	}
	return a.values[j], a.defined[j]
}

// Defined reports whether the joint's angle is defined.
func (a AngleSet) Defined(j Joint) bool {
	_, ok := a.At(j)
	return ok
}

// Set records a defined angle for the joint.
func (a *AngleSet) Set(j Joint, degrees float64) {
	if j < 0 || j >= NumJoints {
		return
	}
	a.values[j] = degrees
	a.defined[j] = true
}

// MarshalJSON encodes the set as an object keyed by joint name, with null
// for undefined joints, matching the reference dataset shape.
func (a AngleSet) MarshalJSON() ([]byte, error) {
	m := make(map[string]*float64, NumJoints)
	for j := Joint(0); j < NumJoints; j++ {
		if a.defined[j] {
			v := a.values[j]
			m[jointNames[j]] = &v
		} else {
			m[jointNames[j]] = nil
		}
	}
	return json.Marshal(m)
}

// UnmarshalJSON decodes an object keyed by joint name. Null values leave the
// joint undefined; names outside the fixed set are ignored.
func (a *AngleSet) UnmarshalJSON(data []byte) error {
	var m map[string]*float64
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("angle set: %w", err)
	}
	*a = AngleSet{}
	for name, v := range m {
		if v == nil {
			continue
		}
		if j, ok := JointFromName(name); ok {
			a.Set(j, *v)
		}
	}
	return nil
}

// angleAt computes the angle in degrees at the vertex formed by the vectors
// vertex->a and vertex->b. Degenerate vectors (norm below epsilon) yield 0.
// The cosine is clamped to [-1,1] before acos to absorb floating error at
// the domain boundary, so the result is always in [0,180].
func angleAt(a, vertex, b Keypoint) float64 {
	v1x, v1y := a.X-vertex.X, a.Y-vertex.Y
	v2x, v2y := b.X-vertex.X, b.Y-vertex.Y

	norm1 := math.Sqrt(v1x*v1x + v1y*v1y)
	norm2 := math.Sqrt(v2x*v2x + v2y*v2y)
	if norm1 < geomEpsilon || norm2 < geomEpsilon {
		return 0.0
	}

	cos := (v1x*v2x + v1y*v2y) / (norm1 * norm2)
	cos = math.Max(-1.0, math.Min(1.0, cos))
	return math.Acos(cos) * 180.0 / math.Pi
}

// ComputeAngles derives the eight joint angles from a skeleton. A joint is
// left undefined when any of its three defining keypoints has confidence
// below MinConfidence.
func ComputeAngles(s Skeleton) AngleSet {
	var angles AngleSet
	for j := Joint(0); j < NumJoints; j++ {
		t := jointTriples[j]
		a, vertex, b := s[t[0]], s[t[1]], s[t[2]]
		if a.Confidence < MinConfidence || vertex.Confidence < MinConfidence || b.Confidence < MinConfidence {
			continue
		}
		angles.Set(j, angleAt(a, vertex, b))
	}
	return angles
}
