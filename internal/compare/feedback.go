package compare

import (
	"math"

	"github.com/ayusman/vinyasa/internal/pose"
)

// AngleTolerance is the deviation in degrees within which a joint still
// counts as correct. 25 degrees absorbs webcam and detection noise.
const AngleTolerance = 25.0

// Per-joint feedback templates, indexed by pose.Joint. The first message
// fires when the live angle is too small, the second when it is too large.
var issueMessages = [pose.NumJoints][2]string{
	pose.JointLeftElbow:     {"Left elbow bent too much", "Left elbow not bent enough"},
	pose.JointRightElbow:    {"Right elbow bent too much", "Right elbow not bent enough"},
	pose.JointLeftShoulder:  {"Left arm too close to body", "Left arm raised too high"},
	pose.JointRightShoulder: {"Right arm too close to body", "Right arm raised too high"},
	pose.JointLeftKnee:      {"Left knee bent too much", "Left knee not bent enough"},
	pose.JointRightKnee:     {"Right knee bent too much", "Right knee not bent enough"},
	pose.JointLeftHip:       {"Left hip angle too narrow", "Left hip angle too wide"},
	pose.JointRightHip:      {"Right hip angle too narrow", "Right hip angle too wide"},
}

var goodMessages = [pose.NumJoints]string{
	pose.JointLeftElbow:     "Left elbow position correct",
	pose.JointRightElbow:    "Right elbow position correct",
	pose.JointLeftShoulder:  "Left shoulder alignment correct",
	pose.JointRightShoulder: "Right shoulder alignment correct",
	pose.JointLeftKnee:      "Left knee position correct",
	pose.JointRightKnee:     "Right knee position correct",
	pose.JointLeftHip:       "Left hip alignment correct",
	pose.JointRightHip:      "Right hip alignment correct",
}

// Feedback is the human-readable verdict for one compared frame.
type Feedback struct {
	Similarity float64  `json:"similarity"`
	Confidence float64  `json:"confidence"`
	Issues     []string `json:"issues"`
	Good       []string `json:"good"`
}

// GenerateFeedback compares live joint angles against the reference and
// classifies each comparable joint as correct or off in a named direction.
// Joints undefined on either side are skipped. Issues and Good are always
// non-nil so they serialize as arrays.
func GenerateFeedback(live, ref pose.AngleSet, similarity, confidence float64) Feedback {
	issues := make([]string, 0, pose.NumJoints)
	good := make([]string, 0, pose.NumJoints)

	for j := pose.Joint(0); j < pose.NumJoints; j++ {
		lv, lok := live.At(j)
		rv, rok := ref.At(j)
		if !lok || !rok {
			continue
		}

		diff := lv - rv
		switch {
		case math.Abs(diff) <= AngleTolerance:
			good = append(good, goodMessages[j])
		case diff < -AngleTolerance:
			issues = append(issues, issueMessages[j][0])
		default:
			issues = append(issues, issueMessages[j][1])
		}
	}

	return Feedback{
		Similarity: similarity,
		Confidence: Round2(confidence),
		Issues:     issues,
		Good:       good,
	}
}

// Deviation is the per-joint breakdown returned by the image analysis
// endpoint.
type Deviation struct {
	Live      float64 `json:"live"`
	Reference float64 `json:"reference"`
	Deviation float64 `json:"deviation"`
	Status    string  `json:"status"`
}

// Deviations reports, for every joint defined in both angle sets, the live
// and reference angles, their absolute difference, and whether the joint is
// within tolerance. Values are rounded to one decimal.
func Deviations(live, ref pose.AngleSet) map[string]Deviation {
	out := make(map[string]Deviation)
	for j := pose.Joint(0); j < pose.NumJoints; j++ {
		lv, lok := live.At(j)
		rv, rok := ref.At(j)
		if !lok || !rok {
			continue
		}

		status := "correct"
		if math.Abs(lv-rv) > AngleTolerance {
			status = "incorrect"
		}
		out[j.String()] = Deviation{
			Live:      Round1(lv),
			Reference: Round1(rv),
			Deviation: Round1(math.Abs(lv - rv)),
			Status:    status,
		}
	}
	return out
}
