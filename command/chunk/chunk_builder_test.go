package chunk

import (
	"strings"
	"testing"

	"previewer/models"
)

func chunkTimeline() *models.Timeline {
	return &models.Timeline{
		Tracks: []models.Track{
			{
				Type:    models.TrackVideo,
				Visible: true,
				Clips: []models.Clip{
					// starts before the [4,6) window, ends inside it
					{MediaID: "a", TimelineStart: 3, Duration: 2, MediaIn: 10, MediaOut: 12, Enabled: true},
				},
			},
			{
				Type:    models.TrackVideo,
				Visible: true,
				Clips: []models.Clip{
					{MediaID: "b", TimelineStart: 4.5, Duration: 3, MediaIn: 0, MediaOut: 3, Enabled: true},
				},
			},
		},
		Media: []models.MediaItem{
			{ID: "a", Path: "/media/a.mp4", Type: models.MediaVideo},
			{ID: "b", Path: "/media/b.mp4", Type: models.MediaVideo},
		},
		Settings: models.ProjectSettings{Width: 1280, Height: 720, FrameRate: 30},
		Duration: 10,
	}
}

// TestBuildArgs_EmptyWindow tests the flat black+silence fallback
func TestBuildArgs_EmptyWindow(t *testing.T) {
	tl := chunkTimeline()
	b := NewBuilder(tl, 8, 10, "/cache/chunk_4.mp4")

	args := strings.Join(b.BuildArgs(), " ")

	if !strings.Contains(args, "color=c=black") {
		t.Error("empty window should render a black source")
	}
	if !strings.Contains(args, "anullsrc") {
		t.Error("empty window should render silence")
	}
	if strings.Contains(args, "-filter_complex") {
		t.Error("empty window should not build a composition graph")
	}
	if !strings.HasSuffix(args, "-y /cache/chunk_4.mp4") {
		t.Errorf("output path missing: %s", args)
	}
}

// TestBuildArgs_TrimsClipStartingBeforeWindow tests per-clip source trims
func TestBuildArgs_TrimsClipStartingBeforeWindow(t *testing.T) {
	tl := chunkTimeline()
	b := NewBuilder(tl, 4, 6, "/cache/chunk_2.mp4")

	args := b.BuildArgs()
	joined := strings.Join(args, " ")

	// Clip a covers [3,5) with MediaIn=10; the window eats the first second,
	// so the source seek is 11.0 and the trimmed duration is 1s.
	if !strings.Contains(joined, "-ss 00:00:11.00 -t 00:00:01.00 -i /media/a.mp4") {
		t.Errorf("clip a trim wrong: %s", joined)
	}
	// Clip b starts at 4.5 inside the window: source seek 0, 1.5s of overlap.
	if !strings.Contains(joined, "-ss 00:00:00.00 -t 00:00:01.50 -i /media/b.mp4") {
		t.Errorf("clip b trim wrong: %s", joined)
	}
}

// TestBuildArgs_CompositionGraph tests the overlay/mix graph shape
func TestBuildArgs_CompositionGraph(t *testing.T) {
	tl := chunkTimeline()
	b := NewBuilder(tl, 4, 6, "/cache/chunk_2.mp4")

	args := b.BuildArgs()
	var graph string
	for i, a := range args {
		if a == "-filter_complex" && i+1 < len(args) {
			graph = args[i+1]
		}
	}
	if graph == "" {
		t.Fatal("expected a filter_complex graph")
	}

	// Black base, both layers, overlay chain ending in [vout], mix in [aout].
	for _, want := range []string{"color=c=black", "[v0]", "[v1]", "overlay", "[vout]", "anullsrc", "amix", "[aout]"} {
		if !strings.Contains(graph, want) {
			t.Errorf("graph missing %q: %s", want, graph)
		}
	}

	// Track 1 is declared after track 0, so its layer overlays last (on top).
	if strings.Index(graph, "[v0]overlay") > strings.Index(graph, "[v1]overlay") {
		t.Error("later-declared track should overlay after (on top of) earlier tracks")
	}
}

// TestBuildArgs_MissingMediaDegrades tests black degradation for lost media
func TestBuildArgs_MissingMediaDegrades(t *testing.T) {
	tl := chunkTimeline()
	tl.Media = tl.Media[:1] // media b disappears

	b := NewBuilder(tl, 4, 6, "/cache/chunk_2.mp4")
	joined := strings.Join(b.BuildArgs(), " ")

	if strings.Contains(joined, "/media/b.mp4") {
		t.Error("missing media must not appear as an input")
	}
	if !strings.Contains(joined, "/media/a.mp4") {
		t.Error("surviving clip should still render")
	}
}

// TestSetPreset tests preset selection for complex windows
func TestSetPreset(t *testing.T) {
	tl := chunkTimeline()
	b := NewBuilder(tl, 4, 6, "/out.mp4").SetPreset("veryfast")

	joined := strings.Join(b.BuildArgs(), " ")
	if !strings.Contains(joined, "-preset veryfast") {
		t.Errorf("preset override not applied: %s", joined)
	}
}
