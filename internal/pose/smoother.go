package pose

// DefaultSmoothingAlpha is the EMA coefficient: the weight of the current
// frame against the previous smoothed frame.
const DefaultSmoothingAlpha = 0.6

// Smoother reduces frame-to-frame jitter with an exponential moving average
// over keypoint positions. Each streaming session owns its own Smoother;
// the state is not safe for concurrent use and must only be touched by one
// goroutine at a time.
type Smoother struct {
	alpha float64
	prev  *Skeleton
}

// NewSmoother creates a Smoother with the default coefficient.
func NewSmoother() *Smoother {
	return &Smoother{alpha: DefaultSmoothingAlpha}
}

// Smooth blends the current skeleton with the previous smoothed one:
// alpha*current + (1-alpha)*previous per coordinate. Keypoints whose current
// confidence is below MinConfidence pass through unblended so that noisy or
// absent detections do not drag good history. The first frame is stored and
// returned unchanged. The stored state always becomes the returned skeleton,
// passthroughs included.
func (sm *Smoother) Smooth(current Skeleton) Skeleton {
	if sm.prev == nil {
		stored := current
		sm.prev = &stored
		return current
	}

	smoothed := current
	for i := range current {
		if current[i].Confidence < MinConfidence {
			continue
		}
		smoothed[i].X = sm.alpha*current[i].X + (1-sm.alpha)*sm.prev[i].X
		smoothed[i].Y = sm.alpha*current[i].Y + (1-sm.alpha)*sm.prev[i].Y
	}

	stored := smoothed
	sm.prev = &stored
	return smoothed
}

// Reset clears the smoothing history so the next frame starts fresh.
func (sm *Smoother) Reset() {
	sm.prev = nil
}
