// Package detector provides pose estimation interfaces and the MediaPipe
// subprocess bridge that backs them.
package detector

import "github.com/ayusman/vinyasa/internal/pose"

// Pose landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/pose_landmarker
const (
	LandmarkNose          = 0
	LandmarkLeftEye       = 2
	LandmarkRightEye      = 5
	LandmarkLeftEar       = 7
	LandmarkRightEar      = 8
	LandmarkLeftShoulder  = 11
	LandmarkRightShoulder = 12
	LandmarkLeftElbow     = 13
	LandmarkRightElbow    = 14
	LandmarkLeftWrist     = 15
	LandmarkRightWrist    = 16
	LandmarkLeftHip       = 23
	LandmarkRightHip      = 24
	LandmarkLeftKnee      = 25
	LandmarkRightKnee     = 26
	LandmarkLeftAnkle     = 27
	LandmarkRightAnkle    = 28
	NumLandmarks          = 33
)

// Landmark is one MediaPipe pose landmark in normalized image coordinates,
// with X and Y in [0, 1] relative to the frame.
type Landmark struct {
	X          float64
	Y          float64
	Visibility float64
}

// cocoOrder maps each COCO keypoint index to the MediaPipe landmark that
// supplies it. The remaining MediaPipe landmarks (face detail, fingers,
// feet) are discarded.
var cocoOrder = [pose.NumKeypoints]int{
	LandmarkNose,
	LandmarkLeftEye,
	LandmarkRightEye,
	LandmarkLeftEar,
	LandmarkRightEar,
	LandmarkLeftShoulder,
	LandmarkRightShoulder,
	LandmarkLeftElbow,
	LandmarkRightElbow,
	LandmarkLeftWrist,
	LandmarkRightWrist,
	LandmarkLeftHip,
	LandmarkRightHip,
	LandmarkLeftKnee,
	LandmarkRightKnee,
	LandmarkLeftAnkle,
	LandmarkRightAnkle,
}

// SkeletonFromLandmarks converts the 33 MediaPipe landmarks into a COCO-17
// skeleton in pixel coordinates for a width by height frame. Landmark
// visibility becomes keypoint confidence. Returns nil unless exactly
// NumLandmarks landmarks are given.
func SkeletonFromLandmarks(landmarks []Landmark, width, height int) *pose.Skeleton {
	if len(landmarks) != NumLandmarks {
		return nil
	}

	var s pose.Skeleton
	for i, mp := range cocoOrder {
		lm := landmarks[mp]
		s[i] = pose.Keypoint{
			X:          lm.X * float64(width),
			Y:          lm.Y * float64(height),
			Confidence: lm.Visibility,
		}
	}
	return &s
}
