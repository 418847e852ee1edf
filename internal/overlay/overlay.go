// Package overlay draws detection results onto video frames.
package overlay

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/ayusman/vinyasa/internal/pose"
)

const (
	boneThickness  = 2
	keypointRadius = 5
)

// Skeleton colors follow the frontend convention: green when the pose
// matches the reference, red otherwise.
var (
	colorMatch = color.RGBA{G: 255}
	colorOff   = color.RGBA{R: 255}
)

// DrawSkeleton draws the COCO-17 skeleton onto img in place. Bones are drawn
// when both endpoints are confident, keypoint dots when the keypoint itself
// is. match selects the green or red palette.
func DrawSkeleton(img *gocv.Mat, s *pose.Skeleton, match bool) {
	if s == nil {
		return
	}

	col := colorOff
	if match {
		col = colorMatch
	}

	for _, bone := range pose.Bones {
		a, b := s[bone[0]], s[bone[1]]
		if a.Confidence < pose.MinConfidence || b.Confidence < pose.MinConfidence {
			continue
		}
		gocv.Line(img, image.Pt(int(a.X), int(a.Y)), image.Pt(int(b.X), int(b.Y)), col, boneThickness)
	}

	for _, kp := range s {
		if kp.Confidence < pose.MinConfidence {
			continue
		}
		gocv.Circle(img, image.Pt(int(kp.X), int(kp.Y)), keypointRadius, col, -1)
	}
}
