// Package frame builds FFmpeg commands that extract exactly one frame as a
// raw RGBA buffer on stdout.
package frame

import (
	"fmt"
	"strings"

	"previewer/command"
	"previewer/internal/timeutil"
	"previewer/models"
)

var _ command.Command = (*Builder)(nil)

// Layer is one compositing input of a multi-clip frame, bottom first.
type Layer struct {
	Path       string  // source media path
	SourceTime float64 // instant to sample in the source
}

// Builder assembles a single-frame extraction command.
//
// Three shapes exist: simple (one clip, direct seek into the full-quality
// source), composite (scaled+padded layers alpha-overlaid bottom to top at a
// matching instant), and black (no covering clip; a synthesized frame).
type Builder struct {
	settings models.ProjectSettings
	layers   []Layer
	black    bool
}

// NewSimple creates a builder for a point covered by exactly one clip.
// The full-quality source path is used, never the proxy, so the extracted
// frame is exact.
func NewSimple(settings models.ProjectSettings, path string, sourceTime float64) *Builder {
	return &Builder{
		settings: settings,
		layers:   []Layer{{Path: path, SourceTime: sourceTime}},
	}
}

// NewComposite creates a builder overlaying the given layers bottom to top.
func NewComposite(settings models.ProjectSettings, layers []Layer) *Builder {
	return &Builder{settings: settings, layers: layers}
}

// NewBlack creates a builder that synthesizes a black frame.
func NewBlack(settings models.ProjectSettings) *Builder {
	return &Builder{settings: settings, black: true}
}

// FrameBytes returns the expected stdout size of one RGBA frame.
func (b *Builder) FrameBytes() int {
	return b.settings.Width * b.settings.Height * 4
}

// BuildArgs constructs the extraction arguments. Output is raw RGBA on
// stdout.
func (b *Builder) BuildArgs() []string {
	switch {
	case b.black || len(b.layers) == 0:
		return b.blackArgs()
	case len(b.layers) == 1:
		return b.simpleArgs()
	default:
		return b.compositeArgs()
	}
}

func (b *Builder) simpleArgs() []string {
	l := b.layers[0]
	return []string{
		"-ss", timeutil.FormatSeconds(l.SourceTime),
		"-i", l.Path,
		"-frames:v", "1",
		"-vf", b.scalePad(),
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"pipe:1",
	}
}

func (b *Builder) compositeArgs() []string {
	args := []string{}
	for _, l := range b.layers {
		args = append(args, "-ss", timeutil.FormatSeconds(l.SourceTime), "-i", l.Path)
	}

	var parts []string
	for i := range b.layers {
		parts = append(parts, fmt.Sprintf("[%d:v]%s[v%d]", i, b.scalePad(), i))
	}
	prev := "[v0]"
	for i := 1; i < len(b.layers); i++ {
		out := fmt.Sprintf("[ov%d]", i)
		if i == len(b.layers)-1 {
			out = "[vout]"
		}
		parts = append(parts, fmt.Sprintf("%s[v%d]overlay%s", prev, i, out))
		prev = out
	}

	args = append(args,
		"-filter_complex", strings.Join(parts, ";"),
		"-map", "[vout]",
		"-frames:v", "1",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"pipe:1",
	)
	return args
}

func (b *Builder) blackArgs() []string {
	return []string{
		"-f", "lavfi",
		"-i", fmt.Sprintf("color=c=black:s=%dx%d", b.settings.Width, b.settings.Height),
		"-frames:v", "1",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"pipe:1",
	}
}

func (b *Builder) scalePad() string {
	w, h := b.settings.Width, b.settings.Height
	return fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2",
		w, h, w, h)
}

// DryRun returns the command that would be executed without running it.
func (b *Builder) DryRun() (string, error) {
	return "ffmpeg " + strings.Join(b.BuildArgs(), " "), nil
}
