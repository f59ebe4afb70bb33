// Package scrub builds FFmpeg commands that extract short PCM snippets for
// scrub and frame-step audio feedback.
package scrub

import (
	"fmt"
	"strings"

	"previewer/command"
	"previewer/internal/timeutil"
)

var _ command.Command = (*SnippetBuilder)(nil)

// Tempo bounds of a single atempo stage. Speeds outside the band are reached
// by chaining stages.
const (
	MinStageTempo = 0.5
	MaxStageTempo = 2.0
)

// SnippetBuilder assembles a PCM snippet extraction command. Output is
// interleaved float32 little-endian samples on stdout.
type SnippetBuilder struct {
	path       string
	sourceTime float64
	window     float64
	tempo      float64
	reverse    bool
	sampleRate int
	channels   int
}

// NewSnippetBuilder creates a builder for a snippet anchored at sourceTime.
// A tempo of 1.0 extracts at normal speed (the frame-step path).
func NewSnippetBuilder(path string, sourceTime, window float64) *SnippetBuilder {
	return &SnippetBuilder{
		path:       path,
		sourceTime: sourceTime,
		window:     window,
		tempo:      1.0,
		sampleRate: 48000,
		channels:   2,
	}
}

// SetTempo sets the tempo scale factor applied to the snippet.
func (s *SnippetBuilder) SetTempo(tempo float64) *SnippetBuilder {
	s.tempo = tempo
	return s
}

// SetReverse reverses the audio before tempo scaling (negative scrub).
func (s *SnippetBuilder) SetReverse(reverse bool) *SnippetBuilder {
	s.reverse = reverse
	return s
}

// SetFormat sets the output sample rate and channel count.
func (s *SnippetBuilder) SetFormat(sampleRate, channels int) *SnippetBuilder {
	s.sampleRate = sampleRate
	s.channels = channels
	return s
}

// BuildAtempoChain decomposes a tempo factor into atempo stages, each inside
// [0.5, 2.0]. The chain is built greedily: extreme stages are applied while
// the remainder is out of range, then one corrective stage covers the rest.
// The cumulative product of the stages equals tempo.
func BuildAtempoChain(tempo float64) ([]float64, error) {
	if tempo <= 0 {
		return nil, fmt.Errorf("tempo must be positive, got %g", tempo)
	}

	var stages []float64
	for tempo > MaxStageTempo {
		stages = append(stages, MaxStageTempo)
		tempo /= MaxStageTempo
	}
	for tempo < MinStageTempo {
		stages = append(stages, MinStageTempo)
		tempo /= MinStageTempo
	}
	stages = append(stages, tempo)
	return stages, nil
}

// BuildArgs constructs the snippet extraction arguments.
func (s *SnippetBuilder) BuildArgs() []string {
	args := []string{
		"-ss", timeutil.FormatSeconds(s.sourceTime),
		"-t", timeutil.FormatSeconds(s.window),
		"-i", s.path,
		"-vn",
	}

	if filter := s.buildFilter(); filter != "" {
		args = append(args, "-af", filter)
	}

	args = append(args,
		"-f", "f32le",
		"-acodec", "pcm_f32le",
		"-ac", fmt.Sprintf("%d", s.channels),
		"-ar", fmt.Sprintf("%d", s.sampleRate),
		"pipe:1",
	)
	return args
}

func (s *SnippetBuilder) buildFilter() string {
	var filters []string

	if s.reverse {
		filters = append(filters, "areverse")
	}

	if s.tempo != 1.0 {
		stages, err := BuildAtempoChain(s.tempo)
		if err == nil {
			for _, stage := range stages {
				filters = append(filters, fmt.Sprintf("atempo=%s", timeutil.Fixed3(stage)))
			}
		}
	}

	return strings.Join(filters, ",")
}

// DryRun returns the command that would be executed without running it.
func (s *SnippetBuilder) DryRun() (string, error) {
	return "ffmpeg " + strings.Join(s.BuildArgs(), " "), nil
}
