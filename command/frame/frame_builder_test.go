package frame

import (
	"strings"
	"testing"

	"previewer/models"
)

var settings = models.ProjectSettings{Width: 1280, Height: 720, FrameRate: 30}

// TestSimpleArgs tests single-clip extraction arguments
func TestSimpleArgs(t *testing.T) {
	b := NewSimple(settings, "/media/full.mp4", 11.5)
	joined := strings.Join(b.BuildArgs(), " ")

	if !strings.Contains(joined, "-ss 00:00:11.50 -i /media/full.mp4") {
		t.Errorf("source seek missing: %s", joined)
	}
	if !strings.Contains(joined, "-frames:v 1") {
		t.Error("must extract exactly one frame")
	}
	if !strings.Contains(joined, "scale=1280:720:force_original_aspect_ratio=decrease,pad=1280:720") {
		t.Errorf("scale+pad to project resolution missing: %s", joined)
	}
	if !strings.HasSuffix(joined, "-f rawvideo -pix_fmt rgba pipe:1") {
		t.Errorf("raw RGBA stdout output missing: %s", joined)
	}
}

// TestCompositeArgs tests multi-layer overlay extraction
func TestCompositeArgs(t *testing.T) {
	b := NewComposite(settings, []Layer{
		{Path: "/media/bottom.mp4", SourceTime: 2},
		{Path: "/media/top.mp4", SourceTime: 5},
	})
	args := b.BuildArgs()
	joined := strings.Join(args, " ")

	if !strings.Contains(joined, "-ss 00:00:02.00 -i /media/bottom.mp4 -ss 00:00:05.00 -i /media/top.mp4") {
		t.Errorf("layer inputs wrong: %s", joined)
	}

	var graph string
	for i, a := range args {
		if a == "-filter_complex" && i+1 < len(args) {
			graph = args[i+1]
		}
	}
	if !strings.Contains(graph, "[v0][v1]overlay[vout]") {
		t.Errorf("bottom-to-top overlay chain wrong: %s", graph)
	}
	if !strings.Contains(joined, "-map [vout]") {
		t.Error("composite output must map the final overlay")
	}
}

// TestBlackArgs tests black frame synthesis
func TestBlackArgs(t *testing.T) {
	b := NewBlack(settings)
	joined := strings.Join(b.BuildArgs(), " ")

	if !strings.Contains(joined, "color=c=black:s=1280x720") {
		t.Errorf("black source missing: %s", joined)
	}
	if !strings.Contains(joined, "-frames:v 1") {
		t.Error("must extract exactly one frame")
	}
}

// TestFrameBytes tests the expected RGBA buffer size
func TestFrameBytes(t *testing.T) {
	b := NewBlack(settings)
	if got := b.FrameBytes(); got != 1280*720*4 {
		t.Errorf("FrameBytes = %d, expected %d", got, 1280*720*4)
	}
}
