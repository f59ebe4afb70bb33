package scrub

import (
	"math"
	"strings"
	"testing"
)

// TestBuildAtempoChain_Product tests that stage products equal the request
func TestBuildAtempoChain_Product(t *testing.T) {
	tests := []struct {
		name  string
		tempo float64
	}{
		{"normal speed", 1.0},
		{"in range", 1.5},
		{"fast scrub", 8.0},
		{"very fast", 12.5},
		{"slow scrub", 0.25},
		{"very slow", 0.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stages, err := BuildAtempoChain(tt.tempo)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			product := 1.0
			for _, stage := range stages {
				if stage < MinStageTempo-1e-9 || stage > MaxStageTempo+1e-9 {
					t.Errorf("stage %g outside [%g, %g]", stage, MinStageTempo, MaxStageTempo)
				}
				product *= stage
			}

			if math.Abs(product-tt.tempo) > 1e-9 {
				t.Errorf("chain product = %g, expected %g (stages %v)", product, tt.tempo, stages)
			}
		})
	}
}

// TestBuildAtempoChain_EightX tests the 8x decomposition: extreme stages
// while out of range, every factor in band, exact cumulative product
func TestBuildAtempoChain_EightX(t *testing.T) {
	stages, err := BuildAtempoChain(8.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	product := 1.0
	for _, s := range stages {
		if s < MinStageTempo || s > MaxStageTempo {
			t.Errorf("stage %g outside [%g, %g]", s, MinStageTempo, MaxStageTempo)
		}
		product *= s
	}
	if math.Abs(product-8.0) > 1e-9 {
		t.Errorf("chain product = %g, expected 8 (stages %v)", product, stages)
	}
}

// TestBuildAtempoChain_Invalid tests rejection of non-positive tempo
func TestBuildAtempoChain_Invalid(t *testing.T) {
	if _, err := BuildAtempoChain(0); err == nil {
		t.Error("expected error for zero tempo")
	}
	if _, err := BuildAtempoChain(-1.5); err == nil {
		t.Error("expected error for negative tempo")
	}
}

// TestSnippetBuilder_NormalTempo tests the frame-step shape (no filters)
func TestSnippetBuilder_NormalTempo(t *testing.T) {
	b := NewSnippetBuilder("/media/d.wav", 3.25, 1.0/30.0)
	joined := strings.Join(b.BuildArgs(), " ")

	if !strings.Contains(joined, "-ss 00:00:03.25") {
		t.Errorf("source anchor missing: %s", joined)
	}
	if strings.Contains(joined, "-af") {
		t.Error("normal tempo snippet should not carry an audio filter")
	}
	if !strings.HasSuffix(joined, "-f f32le -acodec pcm_f32le -ac 2 -ar 48000 pipe:1") {
		t.Errorf("PCM stdout output wrong: %s", joined)
	}
}

// TestSnippetBuilder_ReverseBeforeTempo tests filter ordering for reverse scrub
func TestSnippetBuilder_ReverseBeforeTempo(t *testing.T) {
	b := NewSnippetBuilder("/media/d.wav", 3.25, 0.05).
		SetTempo(4.0).
		SetReverse(true)

	args := b.BuildArgs()
	var filter string
	for i, a := range args {
		if a == "-af" && i+1 < len(args) {
			filter = args[i+1]
		}
	}
	if filter == "" {
		t.Fatal("expected an audio filter chain")
	}

	if !strings.HasPrefix(filter, "areverse,") {
		t.Errorf("reverse must run before tempo scaling: %s", filter)
	}
	if strings.Count(filter, "atempo=") != 2 {
		t.Errorf("4x tempo should decompose into 2 stages: %s", filter)
	}
}

// TestSnippetBuilder_Format tests sample rate and channel overrides
func TestSnippetBuilder_Format(t *testing.T) {
	b := NewSnippetBuilder("/media/d.wav", 0, 0.05).SetFormat(44100, 1)
	joined := strings.Join(b.BuildArgs(), " ")

	if !strings.Contains(joined, "-ac 1 -ar 44100") {
		t.Errorf("format override not applied: %s", joined)
	}
}
