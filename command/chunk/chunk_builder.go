// Package chunk builds the FFmpeg composition graph that renders one preview
// chunk window.
package chunk

import (
	"fmt"
	"strings"

	"previewer/command"
	"previewer/internal/timeutil"
	"previewer/models"
)

var _ command.Command = (*Builder)(nil)

// Builder assembles the encoder arguments for one chunk window.
//
// The graph composites every enabled video clip overlapping the window in
// track declaration order (later-declared tracks overlay on top) over a black
// base, and mixes every eligible audio contribution over silence. A window
// with no contributing clips renders flat black plus silence.
type Builder struct {
	timeline   *models.Timeline
	start, end float64
	outputPath string

	videoCodec   string
	preset       string
	crf          int
	audioCodec   string
	audioBitrate string
}

// NewBuilder creates a chunk render builder with preview-grade defaults.
func NewBuilder(timeline *models.Timeline, start, end float64, outputPath string) *Builder {
	return &Builder{
		timeline:     timeline,
		start:        start,
		end:          end,
		outputPath:   outputPath,
		videoCodec:   "libx264",
		preset:       "ultrafast",
		crf:          28,
		audioCodec:   "aac",
		audioBitrate: "128k",
	}
}

// SetPreset sets the encoder preset. Complex windows get a slower preset.
func (b *Builder) SetPreset(preset string) *Builder {
	b.preset = preset
	return b
}

// SetVideoCodec sets the video codec.
func (b *Builder) SetVideoCodec(codec string) *Builder {
	b.videoCodec = codec
	return b
}

// SetCRF sets the constant rate factor.
func (b *Builder) SetCRF(crf int) *Builder {
	b.crf = crf
	return b
}

// SetAudioCodec sets the audio codec and bitrate.
func (b *Builder) SetAudioCodec(codec, bitrate string) *Builder {
	b.audioCodec = codec
	b.audioBitrate = bitrate
	return b
}

// layer is one resolved media contribution to the window.
type layer struct {
	path     string
	srcStart float64 // seek into the source
	duration float64 // overlap length
	delay    float64 // offset from window start
}

// resolveVideoLayers maps overlapping video clips to input layers,
// skipping clips whose media is gone (those degrade to the black base).
func (b *Builder) resolveVideoLayers() []layer {
	var layers []layer
	for _, ref := range b.timeline.VideoClipsOverlapping(b.start, b.end) {
		media := b.timeline.MediaByID(ref.Clip.MediaID)
		if media == nil {
			continue
		}
		layers = append(layers, b.resolveLayer(ref.Clip, media.ResolvePath()))
	}
	return layers
}

// resolveAudioLayers maps eligible audio contributions (audio tracks and
// embedded audio of video tracks) to input layers.
func (b *Builder) resolveAudioLayers() []layer {
	var layers []layer
	for _, ref := range b.timeline.AudioClipsOverlapping(b.start, b.end) {
		media := b.timeline.MediaByID(ref.Clip.MediaID)
		if media == nil || media.Type == models.MediaImage {
			continue
		}
		layers = append(layers, b.resolveLayer(ref.Clip, media.ResolvePath()))
	}
	return layers
}

// resolveLayer computes the source trim for a clip's overlap with the chunk
// window, adjusted for any portion of the clip that starts before the chunk.
func (b *Builder) resolveLayer(clip *models.Clip, path string) layer {
	overlapStart := clip.TimelineStart
	if overlapStart < b.start {
		overlapStart = b.start
	}
	overlapEnd := clip.TimelineEnd()
	if overlapEnd > b.end {
		overlapEnd = b.end
	}
	return layer{
		path:     path,
		srcStart: clip.SourceTimeAt(overlapStart),
		duration: overlapEnd - overlapStart,
		delay:    overlapStart - b.start,
	}
}

// BuildArgs constructs the ffmpeg arguments for the chunk render.
func (b *Builder) BuildArgs() []string {
	windowDur := b.end - b.start
	settings := b.timeline.Settings

	video := b.resolveVideoLayers()
	audio := b.resolveAudioLayers()

	if len(video) == 0 && len(audio) == 0 {
		return b.blackSilenceArgs(windowDur, settings)
	}

	args := []string{}

	// Inputs: video layers first, then audio layers, each pre-trimmed.
	for _, l := range append(append([]layer{}, video...), audio...) {
		args = append(args,
			"-ss", timeutil.FormatSeconds(l.srcStart),
			"-t", timeutil.FormatSeconds(l.duration),
			"-i", l.path,
		)
	}

	args = append(args, "-filter_complex", b.buildFilterGraph(video, audio, windowDur, settings))

	args = append(args,
		"-map", "[vout]",
		"-map", "[aout]",
		"-c:v", b.videoCodec,
		"-preset", b.preset,
		"-crf", fmt.Sprintf("%d", b.crf),
		"-pix_fmt", "yuv420p",
		"-r", fmt.Sprintf("%g", settings.FrameRate),
		"-c:a", b.audioCodec,
		"-b:a", b.audioBitrate,
		"-t", timeutil.FormatSeconds(windowDur),
		"-y", b.outputPath,
	)

	return args
}

// buildFilterGraph builds the overlay/mix graph. Video layers overlay in
// order onto a black base, so later-declared tracks end up on top. Audio
// layers are delayed to their window offset and mixed over silence.
func (b *Builder) buildFilterGraph(video, audio []layer, windowDur float64, settings models.ProjectSettings) string {
	var parts []string

	parts = append(parts, fmt.Sprintf(
		"color=c=black:s=%dx%d:r=%g:d=%s[base]",
		settings.Width, settings.Height, settings.FrameRate, timeutil.Fixed3(windowDur)))

	for i, l := range video {
		parts = append(parts, fmt.Sprintf(
			"[%d:v]scale=%d:%d:force_original_aspect_ratio=decrease,"+
				"pad=%d:%d:(ow-iw)/2:(oh-ih)/2,setpts=PTS-STARTPTS+%s/TB[v%d]",
			i, settings.Width, settings.Height,
			settings.Width, settings.Height, timeutil.Fixed3(l.delay), i))
	}

	prev := "[base]"
	for i := range video {
		out := fmt.Sprintf("[ov%d]", i)
		if i == len(video)-1 {
			out = "[vout]"
		}
		parts = append(parts, fmt.Sprintf("%s[v%d]overlay=eof_action=pass%s", prev, i, out))
		prev = out
	}
	if len(video) == 0 {
		parts = append(parts, "[base]null[vout]")
	}

	parts = append(parts, fmt.Sprintf(
		"anullsrc=channel_layout=stereo:sample_rate=48000:d=%s[abase]",
		timeutil.Fixed3(windowDur)))

	mixInputs := "[abase]"
	for i, l := range audio {
		inputIdx := len(video) + i
		delayMs := int(l.delay * 1000)
		parts = append(parts, fmt.Sprintf(
			"[%d:a]asetpts=PTS-STARTPTS,adelay=%d:all=1[a%d]", inputIdx, delayMs, i))
		mixInputs += fmt.Sprintf("[a%d]", i)
	}
	parts = append(parts, fmt.Sprintf(
		"%samix=inputs=%d:duration=first:normalize=0[aout]", mixInputs, len(audio)+1))

	return strings.Join(parts, ";")
}

// blackSilenceArgs renders a flat black+silence chunk for an empty window.
func (b *Builder) blackSilenceArgs(windowDur float64, settings models.ProjectSettings) []string {
	return []string{
		"-f", "lavfi",
		"-i", fmt.Sprintf("color=c=black:s=%dx%d:r=%g", settings.Width, settings.Height, settings.FrameRate),
		"-f", "lavfi",
		"-i", "anullsrc=channel_layout=stereo:sample_rate=48000",
		"-c:v", b.videoCodec,
		"-preset", b.preset,
		"-crf", fmt.Sprintf("%d", b.crf),
		"-pix_fmt", "yuv420p",
		"-c:a", b.audioCodec,
		"-b:a", b.audioBitrate,
		"-t", timeutil.FormatSeconds(windowDur),
		"-y", b.outputPath,
	}
}

// DryRun returns the command that would be executed without running it.
func (b *Builder) DryRun() (string, error) {
	return "ffmpeg " + strings.Join(b.BuildArgs(), " "), nil
}
