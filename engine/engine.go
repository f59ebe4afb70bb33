// Package engine coordinates the preview pipeline: the chunk cache, the
// render scheduler, the full-preview assembler, the frame extractor and the
// scrub synthesizer behind one session-scoped facade.
//
// Every collaborator is injected at construction and every notification
// flows through a single bounded event channel, so the embedding UI owns the
// consumption rate and tests own the process boundary.
package engine

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"previewer/assembler"
	"previewer/cache"
	"previewer/ffmpeg"
	"previewer/frames"
	"previewer/internal/logging"
	"previewer/metrics"
	"previewer/models"
	"previewer/scheduler"
	"previewer/scrub"
)

// PlayheadRadius is how many chunks around the playhead are promoted to
// high render priority.
const PlayheadRadius = 2

// Options configures a preview engine.
type Options struct {
	CacheDir             string  // chunk cache directory
	OutputDir            string  // assembled preview directory, CacheDir when empty
	ChunkDuration        float64 // seconds per chunk
	MaxConcurrentRenders int
	FrameCacheCapacity   int
	ScrubWindow          float64 // seconds of audio per scrub snippet
	Preset               string  // encoder preset for simple chunks
	ComplexPreset        string  // encoder preset for complex chunks
	CRF                  int
	EventBuffer          int
}

// Status is a point-in-time summary of the session.
type Status struct {
	SessionID     string
	TotalChunks   int
	ValidChunks   int
	ErrorChunks   int
	QueuedRenders int
	ActiveRenders int
	CachedFrames  int
	Progress      float64 // valid chunks as a percentage of the grid
	IsRendering   bool
	PreviewPath   string
	CacheStats    cache.Stats
}

// Engine is one preview session over one timeline.
type Engine struct {
	sessionID string
	logger    *slog.Logger
	meter     *metrics.Metrics

	cache     *cache.ChunkCache
	scheduler *scheduler.Scheduler
	assembler *assembler.Assembler
	frames    *frames.Extractor
	scrub     *scrub.Synthesizer

	mu          sync.Mutex
	timeline    *models.Timeline
	chunks      []*models.PreviewChunk
	playhead    float64
	previewPath string
	assembling  bool
	disposed    bool

	events chan Event
	wg     sync.WaitGroup
}

// New wires a preview engine from its parts. A nil meter disables
// instrumentation; the invoker is shared by every encoder-spawning
// component.
func New(opts Options, invoker ffmpeg.Invoker, logger *slog.Logger, meter *metrics.Metrics) *Engine {
	logger = logging.Or(logger)
	if opts.OutputDir == "" {
		opts.OutputDir = opts.CacheDir
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = scheduler.DefaultEventBuffer
	}

	sessionID := uuid.NewString()
	sessionLogger := logger.With("session", sessionID)

	chunkCache := cache.NewChunkCache(opts.CacheDir, opts.ChunkDuration, sessionLogger)
	sched := scheduler.New(chunkCache, invoker, scheduler.Options{
		MaxConcurrent: opts.MaxConcurrentRenders,
		Preset:        opts.Preset,
		ComplexPreset: opts.ComplexPreset,
		CRF:           opts.CRF,
	}, sessionLogger, meter)

	e := &Engine{
		sessionID: sessionID,
		logger:    sessionLogger,
		meter:     meter,
		cache:     chunkCache,
		scheduler: sched,
		assembler: assembler.New(opts.OutputDir, invoker, sessionLogger),
		frames:    frames.NewExtractor(invoker, opts.FrameCacheCapacity, sessionLogger, meter),
		scrub:     scrub.NewSynthesizer(invoker, opts.ScrubWindow, sessionLogger, meter),
		events:    make(chan Event, opts.EventBuffer),
	}

	e.scheduler.Start()
	e.wg.Add(1)
	go e.run()
	return e
}

// SessionID returns the engine's unique session identifier.
func (e *Engine) SessionID() string {
	return e.sessionID
}

// Events returns the engine's notification stream. Closed by Dispose.
func (e *Engine) Events() <-chan Event {
	return e.events
}

// Initialize loads a timeline snapshot, validates the chunk cache against it
// and queues every chunk that needs rendering. Chunks near the playhead are
// queued at high priority so the visible region fills first.
func (e *Engine) Initialize(tl *models.Timeline, projectIdentity string) error {
	chunks, err := e.cache.Initialize(tl, projectIdentity)
	if err != nil {
		return fmt.Errorf("cache initialization failed: %w", err)
	}

	e.mu.Lock()
	e.timeline = tl
	e.chunks = chunks
	e.previewPath = ""
	playhead := e.playhead
	e.mu.Unlock()

	e.scheduler.SetTimeline(tl)
	e.frames.SetTimeline(tl)
	e.scrub.SetTimeline(tl)

	e.enqueuePending(chunks, playhead)
	e.logger.Info("session initialized",
		"chunks", len(chunks), "valid", countValid(chunks), "duration", tl.Duration)

	e.maybeAssemble()
	return nil
}

// UpdateTimeline replaces the snapshot after an edit. In-flight renders are
// cancelled first so no result computed against the old snapshot can land,
// then the whole grid is re-validated by content hash and invalid chunks are
// re-queued.
func (e *Engine) UpdateTimeline(tl *models.Timeline, projectIdentity string) error {
	e.scheduler.CancelAll()
	return e.Initialize(tl, projectIdentity)
}

// InvalidateRange force-invalidates [start, end) after an edit whose reach
// is known, dropping cached chunks and frames and re-queueing the renders.
func (e *Engine) InvalidateRange(start, end float64) {
	affected := e.cache.InvalidateRange(start, end)
	e.meter.ChunksInvalidated(len(affected))
	e.frames.InvalidateRange(start, end)

	e.mu.Lock()
	for _, index := range affected {
		if index < len(e.chunks) {
			e.chunks[index].Status = models.ChunkMissing
			e.chunks[index].FilePath = ""
		}
	}
	playhead := e.playhead
	chunks := e.chunks
	e.mu.Unlock()

	for _, index := range affected {
		e.scheduler.Enqueue(index, e.priorityFor(index, playhead, chunks))
		e.emit(Event{Type: EventChunkStatus, ChunkIndex: index, Status: models.ChunkMissing})
	}
}

// SetPlayhead records the playhead position and promotes queued renders
// around it.
func (e *Engine) SetPlayhead(t float64) {
	e.mu.Lock()
	e.playhead = t
	e.mu.Unlock()

	center := int(t / e.cache.ChunkDuration())
	for index := center - PlayheadRadius; index <= center+PlayheadRadius; index++ {
		if index >= 0 {
			e.scheduler.Promote(index)
		}
	}
}

// GetFrame returns the exact frame at timeline time t.
func (e *Engine) GetFrame(t float64) (*models.CachedFrame, error) {
	return e.frames.GetFrame(t)
}

// Prefetch warms the frame cache ahead of t.
func (e *Engine) Prefetch(t float64, count int) {
	e.frames.Prefetch(t, count)
}

// UpdateScrub synthesizes scrub audio for a playhead drag.
func (e *Engine) UpdateScrub(t, velocity float64) (*models.AudioSnippet, error) {
	return e.scrub.UpdateScrub(t, velocity)
}

// PlayFrameAudio synthesizes the audio under one stepped frame.
func (e *Engine) PlayFrameAudio(t float64) (*models.AudioSnippet, error) {
	return e.scrub.PlayFrameAudio(t)
}

// ClearCache deletes every rendered chunk and re-queues the full grid.
func (e *Engine) ClearCache() {
	e.cache.ClearAll()

	e.mu.Lock()
	for _, chunk := range e.chunks {
		chunk.Status = models.ChunkMissing
		chunk.FilePath = ""
	}
	chunks := e.chunks
	playhead := e.playhead
	e.previewPath = ""
	e.mu.Unlock()

	e.enqueuePending(chunks, playhead)
}

// Status summarizes the session.
func (e *Engine) Status() Status {
	e.mu.Lock()
	st := Status{
		SessionID:   e.sessionID,
		TotalChunks: len(e.chunks),
		PreviewPath: e.previewPath,
	}
	for _, chunk := range e.chunks {
		switch chunk.Status {
		case models.ChunkValid:
			st.ValidChunks++
		case models.ChunkError:
			st.ErrorChunks++
		}
	}
	e.mu.Unlock()

	st.QueuedRenders = e.scheduler.QueueLen()
	st.ActiveRenders = e.scheduler.ActiveCount()
	st.CachedFrames = e.frames.CacheLen()
	st.CacheStats = e.cache.Stats()
	if st.TotalChunks > 0 {
		st.Progress = 100 * float64(st.ValidChunks) / float64(st.TotalChunks)
	}
	st.IsRendering = st.QueuedRenders+st.ActiveRenders > 0
	return st
}

// ChunkStatuses returns a snapshot of every chunk's state.
func (e *Engine) ChunkStatuses() []models.PreviewChunk {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]models.PreviewChunk, len(e.chunks))
	for i, chunk := range e.chunks {
		out[i] = *chunk
	}
	return out
}

// Dispose cancels all work and shuts the engine down. The event channel
// closes once every in-flight notification has been delivered.
func (e *Engine) Dispose() {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return
	}
	e.disposed = true
	e.mu.Unlock()

	e.scheduler.Stop()
	e.wg.Wait()
	close(e.events)
	e.logger.Info("session disposed")
}

// run consumes scheduler events until the scheduler shuts down.
func (e *Engine) run() {
	defer e.wg.Done()

	for ev := range e.scheduler.Events() {
		// Events raced with a cancellation are stale; the re-queue after
		// the cancel re-reports everything that still matters.
		if ev.Generation != e.scheduler.Generation() {
			continue
		}

		switch ev.Type {
		case scheduler.EventProgress:
			e.emit(Event{Type: EventRenderProgress, ChunkIndex: ev.ChunkIndex, Progress: ev.Progress})

		case scheduler.EventChunkComplete:
			e.applyResult(ev.Result, models.ChunkValid)
			e.emit(Event{Type: EventChunkStatus, ChunkIndex: ev.ChunkIndex, Status: models.ChunkValid})
			e.maybeAssemble()

		case scheduler.EventChunkFailed:
			e.applyResult(ev.Result, models.ChunkError)
			e.emit(Event{Type: EventChunkStatus, ChunkIndex: ev.ChunkIndex, Status: models.ChunkError})
			e.emit(Event{Type: EventRenderError, ChunkIndex: ev.ChunkIndex, Err: ev.Result.Err})
		}
	}
}

func (e *Engine) applyResult(result *models.RenderResult, status models.ChunkStatus) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if result.ChunkIndex >= len(e.chunks) {
		return
	}
	chunk := e.chunks[result.ChunkIndex]
	chunk.Status = status
	chunk.FilePath = result.OutputPath
	if status == models.ChunkValid {
		chunk.ContentHash = result.ContentHash
		chunk.IsComplex = result.IsComplex
	}
}

// maybeAssemble kicks a background assembly when the grid is fully valid.
func (e *Engine) maybeAssemble() {
	e.mu.Lock()
	if e.assembling || len(e.chunks) == 0 || countValid(e.chunks) != len(e.chunks) {
		e.mu.Unlock()
		return
	}
	e.assembling = true
	chunks := make([]*models.PreviewChunk, len(e.chunks))
	copy(chunks, e.chunks)
	e.mu.Unlock()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()

		path, err := e.assembler.Assemble(chunks)

		e.mu.Lock()
		e.assembling = false
		if err == nil && path != "" {
			e.previewPath = path
		}
		e.mu.Unlock()

		if err != nil {
			e.logger.Warn("preview assembly failed", "error", err)
			e.emit(Event{Type: EventRenderError, Err: fmt.Errorf("assembly failed: %w", err)})
			return
		}
		if path != "" {
			e.meter.PreviewAssembled()
			e.emit(Event{Type: EventPreviewReady, PreviewPath: path})
		}
	}()
}

// enqueuePending queues every chunk that is not valid, playhead-near ones at
// high priority.
func (e *Engine) enqueuePending(chunks []*models.PreviewChunk, playhead float64) {
	for _, chunk := range chunks {
		if chunk.Status == models.ChunkValid {
			continue
		}
		e.scheduler.Enqueue(chunk.Index, e.priorityFor(chunk.Index, playhead, chunks))
	}
}

// priorityFor ranks a chunk: high near the playhead, normal elsewhere, low
// for trailing chunks far past it.
func (e *Engine) priorityFor(index int, playhead float64, chunks []*models.PreviewChunk) scheduler.Priority {
	center := int(playhead / e.cache.ChunkDuration())
	distance := index - center
	if distance < 0 {
		distance = -distance
	}
	switch {
	case distance <= PlayheadRadius:
		return scheduler.PriorityHigh
	case distance <= 4*PlayheadRadius:
		return scheduler.PriorityNormal
	default:
		return scheduler.PriorityLow
	}
}

// emit delivers an event, evicting the oldest buffered one when full.
func (e *Engine) emit(ev Event) {
	for {
		select {
		case e.events <- ev:
			return
		default:
			select {
			case <-e.events:
			default:
			}
		}
	}
}

func countValid(chunks []*models.PreviewChunk) int {
	valid := 0
	for _, chunk := range chunks {
		if chunk.Status == models.ChunkValid {
			valid++
		}
	}
	return valid
}
