// Package scheduler runs chunk renders through a bounded worker pool with a
// priority queue and generation-based cancellation.
//
// Renders are requested by chunk index; the scheduler resolves the window,
// content hash and output path against the chunk cache at execution time, so
// a request enqueued before an edit renders the post-edit content. All
// outcomes surface on a single event channel.
package scheduler

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"previewer/cache"
	"previewer/command/chunk"
	"previewer/ffmpeg"
	"previewer/internal/logging"
	"previewer/metrics"
	"previewer/models"
)

// DefaultMaxConcurrent bounds simultaneous encoder processes. Preview renders
// share the machine with the editor UI, so the pool stays small.
const DefaultMaxConcurrent = 2

// DefaultEventBuffer is the event channel capacity.
const DefaultEventBuffer = 256

// EventType discriminates scheduler events.
type EventType int

const (
	// EventProgress carries in-flight encoder telemetry.
	EventProgress EventType = iota
	// EventChunkComplete carries a successful render result.
	EventChunkComplete
	// EventChunkFailed carries a failed render result.
	EventChunkFailed
)

// Event is one scheduler notification. Progress events populate Progress;
// terminal events populate Result.
type Event struct {
	Type       EventType
	ChunkIndex int
	Generation uint64
	Progress   *models.RenderProgress
	Result     *models.RenderResult
}

// Options tunes the scheduler.
type Options struct {
	MaxConcurrent int    // worker pool size, DefaultMaxConcurrent when zero
	Preset        string // encoder preset for simple windows
	ComplexPreset string // encoder preset for complex windows
	CRF           int    // constant rate factor, builder default when zero
	EventBuffer   int    // event channel capacity, DefaultEventBuffer when zero
}

type activeRender struct {
	process    ffmpeg.Process
	generation uint64
	cancelled  bool
}

// Scheduler owns the render queue, the worker pool and the event stream.
type Scheduler struct {
	cache   *cache.ChunkCache
	invoker ffmpeg.Invoker
	opts    Options
	logger  *slog.Logger
	meter   *metrics.Metrics

	mu         sync.Mutex
	timeline   *models.Timeline
	queue      renderQueue
	running    map[int]*activeRender
	generation uint64
	stopped    bool

	events chan Event
	kick   chan struct{}
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New creates a scheduler over the given cache and process invoker.
// A nil meter disables instrumentation.
func New(chunkCache *cache.ChunkCache, invoker ffmpeg.Invoker, opts Options, logger *slog.Logger, meter *metrics.Metrics) *Scheduler {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = DefaultMaxConcurrent
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = DefaultEventBuffer
	}
	if opts.Preset == "" {
		opts.Preset = "ultrafast"
	}
	if opts.ComplexPreset == "" {
		opts.ComplexPreset = "veryfast"
	}

	return &Scheduler{
		cache:   chunkCache,
		invoker: invoker,
		opts:    opts,
		logger:  logging.Or(logger),
		meter:   meter,
		running: make(map[int]*activeRender),
		events:  make(chan Event, opts.EventBuffer),
		kick:    make(chan struct{}, opts.MaxConcurrent),
		stopCh:  make(chan struct{}),
	}
}

// Start launches the worker pool. Call once.
func (s *Scheduler) Start() {
	for i := 0; i < s.opts.MaxConcurrent; i++ {
		s.wg.Add(1)
		go s.worker()
	}
}

// Stop cancels all work, waits for workers to exit and closes the event
// channel.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()

	s.CancelAll()
	close(s.stopCh)
	s.wg.Wait()
	close(s.events)
}

// Events returns the scheduler's notification stream. Closed by Stop.
func (s *Scheduler) Events() <-chan Event {
	return s.events
}

// SetTimeline swaps the snapshot used to build render commands. Callers
// cancel in-flight work first; the scheduler never mutates the snapshot.
func (s *Scheduler) SetTimeline(tl *models.Timeline) {
	s.mu.Lock()
	s.timeline = tl
	s.mu.Unlock()
}

// Enqueue requests a render of the chunk index. Duplicate requests for an
// index already queued or rendering are no-ops. Returns true when the index
// was newly queued.
func (s *Scheduler) Enqueue(index int, priority Priority) bool {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return false
	}
	if _, active := s.running[index]; active {
		s.mu.Unlock()
		return false
	}
	added := s.queue.enqueue(index, priority)
	s.mu.Unlock()

	if added {
		s.wake()
	}
	return added
}

// Promote moves an already-queued index to high priority. A no-op for
// indices not queued (including those already rendering).
func (s *Scheduler) Promote(index int) {
	s.mu.Lock()
	promoted := s.queue.remove(index) && s.queue.enqueue(index, PriorityHigh)
	s.mu.Unlock()

	if promoted {
		s.wake()
	}
}

// EnqueueMany requests renders for several indices at one priority.
func (s *Scheduler) EnqueueMany(indices []int, priority Priority) {
	for _, index := range indices {
		s.Enqueue(index, priority)
	}
}

// Cancel withdraws a single chunk: a queued request is removed, an in-flight
// render is killed and its result discarded. Returns false when the index is
// neither queued nor rendering.
func (s *Scheduler) Cancel(index int) bool {
	s.mu.Lock()
	if s.queue.remove(index) {
		s.mu.Unlock()
		return true
	}
	active, ok := s.running[index]
	if ok {
		active.cancelled = true
	}
	s.mu.Unlock()

	if !ok {
		return false
	}
	if err := active.process.Kill(); err != nil {
		s.logger.Debug("kill failed", "chunk", index, "error", err)
	}
	return true
}

// CancelAll advances the generation, drains the queue and kills every
// in-flight encoder process. Results from the old generation are discarded
// when their workers notice the stale generation; their partial output files
// are deleted.
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	s.generation++
	s.queue.clear()
	procs := make([]ffmpeg.Process, 0, len(s.running))
	for _, active := range s.running {
		procs = append(procs, active.process)
	}
	s.mu.Unlock()

	for _, p := range procs {
		if err := p.Kill(); err != nil {
			s.logger.Debug("kill failed", "error", err)
		}
	}
}

// Generation returns the current cancellation generation.
func (s *Scheduler) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// QueueLen returns the number of queued (not yet running) renders.
func (s *Scheduler) QueueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.len()
}

// ActiveCount returns the number of in-flight renders.
func (s *Scheduler) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.running)
}

// wake nudges a worker. The kick channel holds one token per worker; a full
// channel means every worker is already awake and will drain the queue.
func (s *Scheduler) wake() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

func (s *Scheduler) worker() {
	defer s.wg.Done()
	for {
		select {
		case <-s.stopCh:
			return
		case <-s.kick:
			for {
				select {
				case <-s.stopCh:
					return
				default:
				}
				item, generation, ok := s.next()
				if !ok {
					break
				}
				s.render(item, generation)
			}
		}
	}
}

// next pops the queue head and snapshots the generation it belongs to.
func (s *Scheduler) next() (queueItem, uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.queue.dequeue()
	return item, s.generation, ok
}

// render executes one chunk render end to end: resolve against the cache,
// spawn the encoder, stream progress, then register or report.
func (s *Scheduler) render(item queueItem, generation uint64) {
	index := item.index

	s.mu.Lock()
	tl := s.timeline
	s.mu.Unlock()
	if tl == nil {
		s.logger.Warn("render requested without a timeline", "chunk", index)
		return
	}

	start, end := s.cache.ChunkWindow(index)
	contentHash := s.cache.ChunkHash(index)
	if contentHash == "" {
		return
	}

	// The chunk may have become valid while queued (duplicate request
	// resolved by an earlier render).
	if s.cache.IsValid(index, contentHash) {
		return
	}

	isComplex := s.cache.IsComplexWindow(index)
	preset := s.opts.Preset
	if isComplex {
		preset = s.opts.ComplexPreset
	}

	outputPath := s.cache.OutputPath(index, contentHash)
	builder := chunk.NewBuilder(tl, start, end, outputPath).SetPreset(preset)
	if s.opts.CRF > 0 {
		builder.SetCRF(s.opts.CRF)
	}

	s.logger.Debug("rendering chunk",
		"chunk", index, "window", fmt.Sprintf("[%.2f,%.2f)", start, end),
		"complex", isComplex, "priority", item.priority.String())

	startedAt := time.Now()
	s.meter.RenderStarted()
	defer s.meter.RenderFinished()

	process, err := s.invoker.Start(builder.BuildArgs())
	if err != nil {
		s.meter.ObserveRender(time.Since(startedAt), false)
		s.emitFailure(index, generation, fmt.Errorf("failed to start encoder: %w", err), "")
		return
	}

	active := &activeRender{process: process, generation: generation}
	s.mu.Lock()
	s.running[index] = active
	s.mu.Unlock()

	progress := models.NewRenderProgress(index, end-start)
	parser := ffmpeg.NewProgressParser()
	diagnostics := parser.Monitor(bufio.NewScanner(process.Stderr()), progress, func(p *models.RenderProgress) {
		s.emitProgress(generation, p)
	})

	waitErr := process.Wait()

	s.mu.Lock()
	delete(s.running, index)
	stale := generation != s.generation || active.cancelled
	s.mu.Unlock()

	if stale {
		// Cancelled mid-render: the file is partial, never publish it.
		if err := os.Remove(outputPath); err != nil && !os.IsNotExist(err) {
			s.logger.Debug("failed to remove cancelled chunk output", "path", outputPath, "error", err)
		}
		s.logger.Debug("discarding cancelled render", "chunk", index)
		return
	}

	duration := time.Since(startedAt)
	if waitErr != nil {
		if err := os.Remove(outputPath); err != nil && !os.IsNotExist(err) {
			s.logger.Debug("failed to remove failed chunk output", "path", outputPath, "error", err)
		}
		s.meter.ObserveRender(duration, false)
		s.emitFailure(index, generation, fmt.Errorf("encoder exited: %w", waitErr), diagnostics)
		return
	}

	s.cache.RegisterChunk(index, contentHash, outputPath, isComplex)
	s.meter.ObserveRender(duration, true)

	result, err := models.NewRenderSuccess(index, contentHash, outputPath, isComplex)
	if err != nil {
		s.logger.Error("inconsistent render result", "chunk", index, "error", err)
		return
	}
	s.logger.Info("chunk rendered", "chunk", index, "duration", duration.Round(time.Millisecond))
	s.emit(Event{Type: EventChunkComplete, ChunkIndex: index, Generation: generation, Result: result})
}

func (s *Scheduler) emitFailure(index int, generation uint64, renderErr error, diagnostics string) {
	result, err := models.NewRenderFailure(index, renderErr, diagnostics)
	if err != nil {
		s.logger.Error("inconsistent failure result", "chunk", index, "error", err)
		return
	}
	s.logger.Warn("chunk render failed", "chunk", index, "error", renderErr)
	s.emit(Event{Type: EventChunkFailed, ChunkIndex: index, Generation: generation, Result: result})
}

// emitProgress drops the update when the channel is full: progress is
// advisory and the next update supersedes it.
func (s *Scheduler) emitProgress(generation uint64, p *models.RenderProgress) {
	snapshot := *p
	select {
	case s.events <- Event{Type: EventProgress, ChunkIndex: p.ChunkIndex, Generation: generation, Progress: &snapshot}:
	default:
	}
}

// emit delivers a terminal event, evicting the oldest buffered event if the
// channel is full. Terminal events must not be lost; stale progress may be.
func (s *Scheduler) emit(ev Event) {
	for {
		select {
		case s.events <- ev:
			return
		default:
			select {
			case <-s.events:
			default:
			}
		}
	}
}
