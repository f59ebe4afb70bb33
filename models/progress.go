package models

import "time"

// RenderProgress represents real-time metrics parsed from the encoder's
// diagnostic stream while a chunk renders.
type RenderProgress struct {
	ChunkIndex int

	// Current position in the chunk window
	Frame       int64   // current frame number
	FPS         float64 // frames per second being processed
	CurrentTime string  // current timestamp (HH:MM:SS.MS)

	// Performance metrics
	Bitrate string  // current bitrate (e.g., "128.0kbits/s")
	Speed   float64 // encoding speed multiplier

	// Progress calculation
	WindowDuration float64 // chunk window length in seconds
	Percent        float64 // percentage complete (0-100)

	UpdatedAt time.Time
}

// NewRenderProgress creates a progress tracker for one chunk window.
func NewRenderProgress(chunkIndex int, windowDuration float64) *RenderProgress {
	return &RenderProgress{
		ChunkIndex:     chunkIndex,
		WindowDuration: windowDuration,
		UpdatedAt:      time.Now(),
	}
}

// CalculateProgress updates the percentage from the encoder's elapsed time
// within the chunk window, clamped to 100.
func (rp *RenderProgress) CalculateProgress(elapsedSeconds float64) {
	if rp.WindowDuration > 0 {
		rp.Percent = (elapsedSeconds / rp.WindowDuration) * 100
		if rp.Percent > 100 {
			rp.Percent = 100
		}
	}
	rp.UpdatedAt = time.Now()
}

// ProgressFunc receives progress updates during a render.
type ProgressFunc func(progress *RenderProgress)
