// Package models provides core data structures for the preview pipeline.
package models

import "os"

// TrackType identifies the kind of content a track carries.
type TrackType string

const (
	TrackVideo TrackType = "video"
	TrackAudio TrackType = "audio"
)

// MediaType identifies the kind of a source media item.
type MediaType string

const (
	MediaVideo MediaType = "video"
	MediaAudio MediaType = "audio"
	MediaImage MediaType = "image"
)

// Effect is an opaque effect applied to a clip. The payload is owned by the
// editing layer; the preview pipeline only folds it into content hashes and
// forwards it to the encoder graph untouched.
type Effect struct {
	Name    string `json:"name"`
	Payload string `json:"payload,omitempty"`
}

// Clip places a slice of source media on the timeline.
//
// A clip occupies [TimelineStart, TimelineStart+Duration) on the timeline and
// reads source content from [MediaIn, MediaOut). The two ranges need not be
// the same length: a mismatch means the clip plays at a changed speed.
type Clip struct {
	MediaID       string   `json:"mediaId"`
	TimelineStart float64  `json:"timelineStart"`
	Duration      float64  `json:"duration"`
	MediaIn       float64  `json:"mediaIn"`
	MediaOut      float64  `json:"mediaOut"`
	Enabled       bool     `json:"enabled"`
	Effects       []Effect `json:"effects,omitempty"`
}

// TimelineEnd returns the exclusive end of the clip on the timeline.
func (c *Clip) TimelineEnd() float64 {
	return c.TimelineStart + c.Duration
}

// Covers reports whether the timeline instant t falls inside the clip's
// half-open [TimelineStart, TimelineEnd) range.
func (c *Clip) Covers(t float64) bool {
	return t >= c.TimelineStart && t < c.TimelineEnd()
}

// Overlaps reports whether the clip intersects the half-open timeline range
// [start, end).
func (c *Clip) Overlaps(start, end float64) bool {
	return c.TimelineStart < end && c.TimelineEnd() > start
}

// SpeedFactor returns the source-to-timeline speed ratio. 1.0 means normal
// playback; anything else is a speed change.
func (c *Clip) SpeedFactor() float64 {
	if c.Duration <= 0 {
		return 1.0
	}
	return (c.MediaOut - c.MediaIn) / c.Duration
}

// SourceTimeAt maps a timeline instant inside the clip to the source time
// used for single-frame extraction: MediaIn + (t - TimelineStart).
func (c *Clip) SourceTimeAt(t float64) float64 {
	return c.MediaIn + (t - c.TimelineStart)
}

// Track is an ordered lane of clips. Later-listed video tracks composite
// above earlier ones.
type Track struct {
	Type    TrackType `json:"type"`
	Visible bool      `json:"visible"`
	Muted   bool      `json:"muted"`
	Clips   []Clip    `json:"clips"`
}

// MediaItem describes a source file referenced by clips.
type MediaItem struct {
	ID        string    `json:"id"`
	Path      string    `json:"path"`
	ProxyPath string    `json:"proxyPath,omitempty"`
	Type      MediaType `json:"type"`
	Duration  float64   `json:"duration"`
	Width     int       `json:"width,omitempty"`
	Height    int       `json:"height,omitempty"`
}

// ResolvePath returns the proxy path when the proxy file currently exists on
// disk, otherwise the full-quality source path. Chunk renders prefer the
// proxy for speed; single-frame extraction uses Path directly for accuracy.
func (m *MediaItem) ResolvePath() string {
	if m.ProxyPath != "" {
		if _, err := os.Stat(m.ProxyPath); err == nil {
			return m.ProxyPath
		}
	}
	return m.Path
}

// ProjectSettings carries the output geometry of the preview.
type ProjectSettings struct {
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	FrameRate float64 `json:"frameRate"`
}

// FrameInterval returns the duration of one frame in seconds.
func (p ProjectSettings) FrameInterval() float64 {
	if p.FrameRate <= 0 {
		return 1.0 / 30.0
	}
	return 1.0 / p.FrameRate
}

// Timeline is the read-only snapshot the editing layer hands to the preview
// pipeline. The pipeline never mutates it; every edit produces a fresh
// snapshot.
type Timeline struct {
	Tracks   []Track         `json:"tracks"`
	Media    []MediaItem     `json:"media"`
	Settings ProjectSettings `json:"settings"`
	Duration float64         `json:"duration"`
}

// ClipRef points at a clip together with its owning track, preserving track
// declaration order for compositing decisions.
type ClipRef struct {
	TrackIndex int
	Track      *Track
	Clip       *Clip
}

// MediaByID looks up a media item by id. Returns nil when the clip references
// media no longer present; callers degrade to black/silence in that case.
func (t *Timeline) MediaByID(id string) *MediaItem {
	for i := range t.Media {
		if t.Media[i].ID == id {
			return &t.Media[i]
		}
	}
	return nil
}

// VideoClipsAt returns the enabled clips on visible video tracks covering the
// timeline instant at, in track declaration order (bottom layer first).
func (t *Timeline) VideoClipsAt(at float64) []ClipRef {
	var refs []ClipRef
	for ti := range t.Tracks {
		track := &t.Tracks[ti]
		if track.Type != TrackVideo || !track.Visible {
			continue
		}
		for ci := range track.Clips {
			clip := &track.Clips[ci]
			if clip.Enabled && clip.Covers(at) {
				refs = append(refs, ClipRef{TrackIndex: ti, Track: track, Clip: clip})
			}
		}
	}
	return refs
}

// VideoClipsOverlapping returns the enabled clips on visible video tracks
// intersecting the half-open range [start, end), in track declaration order.
func (t *Timeline) VideoClipsOverlapping(start, end float64) []ClipRef {
	var refs []ClipRef
	for ti := range t.Tracks {
		track := &t.Tracks[ti]
		if track.Type != TrackVideo || !track.Visible {
			continue
		}
		for ci := range track.Clips {
			clip := &track.Clips[ci]
			if clip.Enabled && clip.Overlaps(start, end) {
				refs = append(refs, ClipRef{TrackIndex: ti, Track: track, Clip: clip})
			}
		}
	}
	return refs
}

// AudioClipsOverlapping returns enabled clips from unmuted tracks of either
// type intersecting [start, end). Video tracks participate because their
// media can carry embedded audio.
func (t *Timeline) AudioClipsOverlapping(start, end float64) []ClipRef {
	var refs []ClipRef
	for ti := range t.Tracks {
		track := &t.Tracks[ti]
		if track.Muted {
			continue
		}
		for ci := range track.Clips {
			clip := &track.Clips[ci]
			if clip.Enabled && clip.Overlaps(start, end) {
				refs = append(refs, ClipRef{TrackIndex: ti, Track: track, Clip: clip})
			}
		}
	}
	return refs
}

// AudioClipAt returns the first enabled clip from an unmuted track covering
// the instant at, in track declaration order. Scrub audio is built from a
// single source; overlapping audio clips are not mixed for scrub feedback.
func (t *Timeline) AudioClipAt(at float64) (ClipRef, bool) {
	for ti := range t.Tracks {
		track := &t.Tracks[ti]
		if track.Muted {
			continue
		}
		for ci := range track.Clips {
			clip := &track.Clips[ci]
			if clip.Enabled && clip.Covers(at) {
				return ClipRef{TrackIndex: ti, Track: track, Clip: clip}, true
			}
		}
	}
	return ClipRef{}, false
}
