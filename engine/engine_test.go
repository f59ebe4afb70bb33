package engine

import (
	"io"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"previewer/ffmpeg"
	"previewer/models"
)

// stubProcess succeeds instantly with no output.
type stubProcess struct{}

func (stubProcess) Stdout() io.Reader { return strings.NewReader("") }
func (stubProcess) Stderr() io.Reader { return strings.NewReader("") }
func (stubProcess) Wait() error       { return nil }
func (stubProcess) Kill() error       { return nil }

// stubInvoker fabricates every output file an encoder run would produce.
type stubInvoker struct {
	mu     sync.Mutex
	starts int
}

func (f *stubInvoker) Start(args []string) (ffmpeg.Process, error) {
	f.mu.Lock()
	f.starts++
	f.mu.Unlock()
	if len(args) >= 2 && args[len(args)-2] == "-y" {
		os.WriteFile(args[len(args)-1], []byte("bytes"), 0644)
	}
	return stubProcess{}, nil
}

func (f *stubInvoker) startCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts
}

func engineTimeline(duration float64) *models.Timeline {
	return &models.Timeline{
		Tracks: []models.Track{
			{
				Type:    models.TrackVideo,
				Visible: true,
				Clips: []models.Clip{
					{MediaID: "v", TimelineStart: 0, Duration: duration, MediaIn: 0, MediaOut: duration, Enabled: true},
				},
			},
		},
		Media: []models.MediaItem{
			{ID: "v", Path: "/media/v.mp4", Type: models.MediaVideo},
		},
		Settings: models.ProjectSettings{Width: 640, Height: 360, FrameRate: 30},
		Duration: duration,
	}
}

func newTestEngine(t *testing.T, invoker ffmpeg.Invoker) *Engine {
	t.Helper()
	e := New(Options{
		CacheDir:      t.TempDir(),
		ChunkDuration: 2.0,
	}, invoker, nil, nil)
	t.Cleanup(e.Dispose)
	return e
}

// waitFor polls the condition until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

// TestEngine_RendersToFullPreview tests the whole happy path: initialize,
// render every chunk, assemble once
func TestEngine_RendersToFullPreview(t *testing.T) {
	invoker := &stubInvoker{}
	e := newTestEngine(t, invoker)

	if e.SessionID() == "" {
		t.Error("session should have an identifier")
	}

	if err := e.Initialize(engineTimeline(6), ""); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}

	var previewPath string
	statusEvents := 0
	deadline := time.After(5 * time.Second)
	for previewPath == "" {
		select {
		case ev := <-e.Events():
			switch ev.Type {
			case EventChunkStatus:
				if ev.Status == models.ChunkValid {
					statusEvents++
				}
			case EventPreviewReady:
				previewPath = ev.PreviewPath
			case EventRenderError:
				t.Fatalf("unexpected render error: %v", ev.Err)
			}
		case <-deadline:
			t.Fatal("preview never assembled")
		}
	}

	if statusEvents != 3 {
		t.Errorf("saw %d valid-status events, expected 3", statusEvents)
	}
	if _, err := os.Stat(previewPath); err != nil {
		t.Errorf("preview file missing: %v", err)
	}

	st := e.Status()
	if st.ValidChunks != 3 || st.TotalChunks != 3 {
		t.Errorf("status = %d/%d valid, expected 3/3", st.ValidChunks, st.TotalChunks)
	}
	if st.PreviewPath != previewPath {
		t.Errorf("status preview path = %s, expected %s", st.PreviewPath, previewPath)
	}
}

// TestEngine_CachedRestartRendersNothing tests warm-start reuse across
// sessions sharing a cache directory
func TestEngine_CachedRestartRendersNothing(t *testing.T) {
	dir := t.TempDir()
	tl := engineTimeline(6)

	first := New(Options{CacheDir: dir, ChunkDuration: 2.0}, &stubInvoker{}, nil, nil)
	if err := first.Initialize(tl, "/projects/p.proj"); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}
	waitFor(t, "first session to finish", func() bool {
		st := first.Status()
		return st.ValidChunks == st.TotalChunks && st.PreviewPath != ""
	})
	first.Dispose()

	invoker := &stubInvoker{}
	second := New(Options{CacheDir: dir, ChunkDuration: 2.0}, invoker, nil, nil)
	defer second.Dispose()
	if err := second.Initialize(engineTimeline(6), "/projects/p.proj"); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}

	st := second.Status()
	if st.ValidChunks != 3 {
		t.Fatalf("warm start found %d valid chunks, expected 3", st.ValidChunks)
	}
	waitFor(t, "warm-start assembly", func() bool {
		return second.Status().PreviewPath != ""
	})

	// One start for the assembly concat, zero chunk renders.
	if invoker.startCount() != 1 {
		t.Errorf("warm start spawned %d processes, expected only the concat", invoker.startCount())
	}
}

// TestEngine_UpdateTimelineRerendersTouchedChunks tests hash-driven
// selective re-rendering after an edit
func TestEngine_UpdateTimelineRerendersTouchedChunks(t *testing.T) {
	invoker := &stubInvoker{}
	e := newTestEngine(t, invoker)

	// Two separated clips: "a" on [0,2), "b" on [4,6), chunk 1 is empty.
	twoClips := func() *models.Timeline {
		tl := engineTimeline(6)
		tl.Tracks[0].Clips = []models.Clip{
			{MediaID: "a", TimelineStart: 0, Duration: 2, MediaIn: 0, MediaOut: 2, Enabled: true},
			{MediaID: "b", TimelineStart: 4, Duration: 2, MediaIn: 0, MediaOut: 2, Enabled: true},
		}
		tl.Media = []models.MediaItem{
			{ID: "a", Path: "/media/a.mp4", Type: models.MediaVideo},
			{ID: "b", Path: "/media/b.mp4", Type: models.MediaVideo},
		}
		return tl
	}

	if err := e.Initialize(twoClips(), ""); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}
	waitFor(t, "initial render", func() bool {
		st := e.Status()
		return st.ValidChunks == 3 && st.PreviewPath != ""
	})

	// Slip clip "b" one second into its source: only chunk 2 changes.
	edited := twoClips()
	edited.Tracks[0].Clips[1].MediaIn = 1
	edited.Tracks[0].Clips[1].MediaOut = 3

	if err := e.UpdateTimeline(edited, ""); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	statuses := e.ChunkStatuses()
	for _, index := range []int{0, 1} {
		if statuses[index].Status != models.ChunkValid {
			t.Errorf("untouched chunk %d = %s, expected valid", index, statuses[index].Status)
		}
	}
	if statuses[2].Status == models.ChunkValid {
		t.Errorf("edited chunk 2 should not stay valid")
	}

	waitFor(t, "re-render after edit", func() bool {
		st := e.Status()
		return st.ValidChunks == 3
	})
}

// TestEngine_InvalidateRange tests forced invalidation and re-queue
func TestEngine_InvalidateRange(t *testing.T) {
	e := newTestEngine(t, &stubInvoker{})

	if err := e.Initialize(engineTimeline(10), ""); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}
	waitFor(t, "initial render", func() bool {
		return e.Status().ValidChunks == 5
	})

	e.InvalidateRange(5, 7)

	// Chunks 2 and 3 re-render; the rest never left valid.
	waitFor(t, "re-render after invalidation", func() bool {
		return e.Status().ValidChunks == 5
	})
}

// TestEngine_DisposeClosesEvents tests shutdown semantics
func TestEngine_DisposeClosesEvents(t *testing.T) {
	e := New(Options{CacheDir: t.TempDir(), ChunkDuration: 2.0}, &stubInvoker{}, nil, nil)
	if err := e.Initialize(engineTimeline(4), ""); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}

	e.Dispose()
	e.Dispose() // idempotent

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-e.Events():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("event channel never closed")
		}
	}
}
