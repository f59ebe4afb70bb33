package cache

import (
	"math"

	"previewer/models"
)

// ComplexityPolicy classifies a chunk window as complex. Complexity never
// gates whether a chunk is rendered; it selects a slower, higher-quality
// encoder preset and is recorded in the manifest.
type ComplexityPolicy interface {
	IsComplex(tl *models.Timeline, start, end float64) bool
}

// AlwaysComplex treats any window with content as complex.
type AlwaysComplex struct{}

// IsComplex implements ComplexityPolicy.
func (AlwaysComplex) IsComplex(tl *models.Timeline, start, end float64) bool {
	return len(tl.VideoClipsOverlapping(start, end)) > 0 ||
		len(tl.AudioClipsOverlapping(start, end)) > 0
}

// HeuristicPolicy classifies a window as complex when real compositing work
// is present: multiple overlapping video clips, any effect, or a speed
// change. This is the default policy.
type HeuristicPolicy struct{}

// IsComplex implements ComplexityPolicy.
func (HeuristicPolicy) IsComplex(tl *models.Timeline, start, end float64) bool {
	video := tl.VideoClipsOverlapping(start, end)
	if len(video) > 1 {
		return true
	}

	for _, ref := range video {
		if len(ref.Clip.Effects) > 0 {
			return true
		}
		if math.Abs(ref.Clip.SpeedFactor()-1.0) > 0.001 {
			return true
		}
	}
	for _, ref := range tl.AudioClipsOverlapping(start, end) {
		if len(ref.Clip.Effects) > 0 {
			return true
		}
	}

	return false
}
