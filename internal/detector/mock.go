package detector

import (
	"gocv.io/x/gocv"

	"github.com/ayusman/vinyasa/internal/pose"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	skeleton *pose.Skeleton
	err      error
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetSkeleton sets the skeleton that will be returned by Detect.
// Passing nil simulates a frame with no visible person.
func (m *MockDetector) SetSkeleton(s *pose.Skeleton) {
	m.skeleton = s
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.err = err
}

// Detect returns the pre-configured skeleton or error.
func (m *MockDetector) Detect(frame *gocv.Mat) (*pose.Skeleton, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.skeleton, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// TreePoseSkeleton returns a preset skeleton holding a tree pose in a
// 640x480 frame: standing on the right leg, left foot tucked against the
// right thigh, arms joined overhead.
func TreePoseSkeleton() *pose.Skeleton {
	var s pose.Skeleton
	set := func(i int, x, y float64) {
		s[i] = pose.Keypoint{X: x, Y: y, Confidence: 0.95}
	}

	// Head
	set(pose.Nose, 320, 60)
	set(pose.LeftEye, 310, 52)
	set(pose.RightEye, 330, 52)
	set(pose.LeftEar, 298, 58)
	set(pose.RightEar, 342, 58)

	// Arms raised overhead, wrists nearly touching
	set(pose.LeftShoulder, 270, 120)
	set(pose.RightShoulder, 370, 120)
	set(pose.LeftElbow, 285, 70)
	set(pose.RightElbow, 355, 70)
	set(pose.LeftWrist, 312, 22)
	set(pose.RightWrist, 328, 22)

	// Standing leg straight, left foot against the inner thigh
	set(pose.LeftHip, 290, 240)
	set(pose.RightHip, 350, 240)
	set(pose.LeftKnee, 238, 292)
	set(pose.RightKnee, 348, 330)
	set(pose.LeftAnkle, 334, 272)
	set(pose.RightAnkle, 346, 420)

	return &s
}

// WarriorPoseSkeleton returns a preset skeleton holding warrior II in a
// 640x480 frame: wide lunge with both arms extended horizontally.
func WarriorPoseSkeleton() *pose.Skeleton {
	var s pose.Skeleton
	set := func(i int, x, y float64) {
		s[i] = pose.Keypoint{X: x, Y: y, Confidence: 0.95}
	}

	// Head
	set(pose.Nose, 320, 90)
	set(pose.LeftEye, 312, 82)
	set(pose.RightEye, 328, 82)
	set(pose.LeftEar, 300, 88)
	set(pose.RightEar, 340, 88)

	// Arms stretched out to both sides at shoulder height
	set(pose.LeftShoulder, 275, 150)
	set(pose.RightShoulder, 365, 150)
	set(pose.LeftElbow, 200, 150)
	set(pose.RightElbow, 440, 150)
	set(pose.LeftWrist, 130, 150)
	set(pose.RightWrist, 510, 150)

	// Front knee bent over the ankle, back leg straight
	set(pose.LeftHip, 290, 270)
	set(pose.RightHip, 350, 270)
	set(pose.LeftKnee, 222, 350)
	set(pose.RightKnee, 420, 358)
	set(pose.LeftAnkle, 214, 432)
	set(pose.RightAnkle, 482, 430)

	return &s
}
