// Package scrub synthesizes short audio snippets that give the user audible
// feedback while dragging the playhead or stepping frames.
//
// Snippets are transient: synthesized, handed to the caller, forgotten. At
// scrub speeds the ear cares about pitch contour and rough content, so the
// first matching clip in track declaration order is the sole source; mixing
// every overlapping clip would triple the latency for no audible gain.
package scrub

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"

	scrubcmd "previewer/command/scrub"
	"previewer/ffmpeg"
	"previewer/internal/logging"
	"previewer/metrics"
	"previewer/models"
)

// DefaultWindow is the snippet length in seconds while scrubbing. 50ms is
// long enough to be audible and short enough to track a fast drag.
const DefaultWindow = 0.05

// VelocityThreshold is the minimum |velocity| (in timeline seconds per
// wall-clock second) that produces sound. Below it the playhead is nearly
// parked and a snippet would be an audible stutter.
const VelocityThreshold = 0.1

// Synthesizer produces scrub and frame-step audio snippets.
type Synthesizer struct {
	invoker ffmpeg.Invoker
	window  float64
	logger  *slog.Logger
	meter   *metrics.Metrics

	mu       sync.Mutex
	timeline *models.Timeline
}

// NewSynthesizer creates a synthesizer. A zero window uses DefaultWindow;
// a nil meter disables instrumentation.
func NewSynthesizer(invoker ffmpeg.Invoker, window float64, logger *slog.Logger, meter *metrics.Metrics) *Synthesizer {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Synthesizer{
		invoker: invoker,
		window:  window,
		logger:  logging.Or(logger),
		meter:   meter,
	}
}

// SetTimeline swaps the snapshot snippets are resolved against.
func (s *Synthesizer) SetTimeline(tl *models.Timeline) {
	s.mu.Lock()
	s.timeline = tl
	s.mu.Unlock()
}

// UpdateScrub synthesizes the snippet for a playhead drag at the given
// timeline time and velocity. Returns nil without error when no sound is
// warranted: velocity under the threshold, no audio clip at the position, or
// missing media.
//
// Tempo tracks |velocity| so fast drags sound fast, and negative velocity
// plays the window reversed.
func (s *Synthesizer) UpdateScrub(t, velocity float64) (*models.AudioSnippet, error) {
	if math.Abs(velocity) < VelocityThreshold {
		return nil, nil
	}
	return s.synthesize(t, s.window, math.Abs(velocity), velocity < 0)
}

// PlayFrameAudio synthesizes the audio under a single stepped frame: one
// frame duration at normal speed, never reversed.
func (s *Synthesizer) PlayFrameAudio(t float64) (*models.AudioSnippet, error) {
	s.mu.Lock()
	tl := s.timeline
	s.mu.Unlock()
	if tl == nil || tl.Settings.FrameRate <= 0 {
		return nil, nil
	}
	return s.synthesize(t, 1.0/tl.Settings.FrameRate, 1.0, false)
}

func (s *Synthesizer) synthesize(t, window, tempo float64, reverse bool) (*models.AudioSnippet, error) {
	s.mu.Lock()
	tl := s.timeline
	s.mu.Unlock()
	if tl == nil {
		return nil, nil
	}

	ref, ok := tl.AudioClipAt(t)
	if !ok {
		return nil, nil
	}
	media := tl.MediaByID(ref.Clip.MediaID)
	if media == nil || media.Type == models.MediaImage {
		return nil, nil
	}

	builder := scrubcmd.NewSnippetBuilder(media.ResolvePath(), ref.Clip.SourceTimeAt(t), window)
	if tempo != 1.0 {
		builder.SetTempo(tempo)
	}
	builder.SetReverse(reverse)

	process, err := s.invoker.Start(builder.BuildArgs())
	if err != nil {
		return nil, fmt.Errorf("failed to start snippet extraction: %w", err)
	}
	go io.Copy(io.Discard, process.Stderr())

	pcm, readErr := io.ReadAll(process.Stdout())
	waitErr := process.Wait()
	if readErr != nil {
		return nil, fmt.Errorf("failed to read snippet at %.3fs: %w", t, readErr)
	}
	if waitErr != nil && len(pcm) == 0 {
		return nil, fmt.Errorf("snippet extraction failed at %.3fs: %w", t, waitErr)
	}

	s.meter.ScrubSnippet()
	return &models.AudioSnippet{
		Time:       t,
		Duration:   window,
		SampleRate: 48000,
		Channels:   2,
		PCM:        pcm,
	}, nil
}
