// Package frames extracts single timeline frames as raw RGBA buffers and
// caches them for scrub responsiveness.
//
// Extraction reads the full-quality source, never the proxy: a paused
// preview shows the exact frame the export would contain. At most one
// extraction runs at a time; a newer request preempts the running one, since
// during a scrub only the latest position matters.
package frames

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"previewer/command/frame"
	"previewer/ffmpeg"
	"previewer/internal/logging"
	"previewer/internal/timeutil"
	"previewer/metrics"
	"previewer/models"
)

// DefaultCapacity is the frame cache size. Raw RGBA frames are large (a
// 1080p frame is ~8 MB), so the cache stays small.
const DefaultCapacity = 30

// ErrPreempted reports that a newer frame request displaced this one.
var ErrPreempted = errors.New("frame extraction preempted by newer request")

// Extractor serves single frames from cache or a fresh decode.
type Extractor struct {
	invoker ffmpeg.Invoker
	cache   *frameLRU
	logger  *slog.Logger
	meter   *metrics.Metrics

	mu          sync.Mutex
	timeline    *models.Timeline
	current     ffmpeg.Process
	generation  uint64
	prefetchGen uint64
}

// NewExtractor creates an extractor. A capacity of zero uses DefaultCapacity;
// a nil meter disables instrumentation.
func NewExtractor(invoker ffmpeg.Invoker, capacity int, logger *slog.Logger, meter *metrics.Metrics) *Extractor {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Extractor{
		invoker: invoker,
		cache:   newFrameLRU(capacity),
		logger:  logging.Or(logger),
		meter:   meter,
	}
}

// SetTimeline swaps the snapshot frames are resolved against and drops the
// whole cache: cheaper than diffing, and an edit usually moves the playhead
// anyway.
func (e *Extractor) SetTimeline(tl *models.Timeline) {
	e.mu.Lock()
	e.timeline = tl
	e.mu.Unlock()
	e.cache.clear()
}

// GetFrame returns the frame at timeline time t, from cache when possible.
// A cache miss spawns a decode, preempting any decode already in flight; the
// displaced caller receives ErrPreempted.
func (e *Extractor) GetFrame(t float64) (*models.CachedFrame, error) {
	key := timeutil.RoundMillis(t)
	if cached, ok := e.cache.get(key); ok {
		e.meter.FrameCacheHit()
		return cached, nil
	}
	e.meter.FrameCacheMiss()
	startedAt := time.Now()

	e.mu.Lock()
	tl := e.timeline
	if tl == nil {
		e.mu.Unlock()
		return nil, errors.New("no timeline set")
	}

	e.generation++
	myGen := e.generation
	if e.current != nil {
		if err := e.current.Kill(); err != nil {
			e.logger.Debug("failed to kill preempted extraction", "error", err)
		}
		e.current = nil
	}

	builder := e.builderFor(tl, t)
	process, err := e.invoker.Start(builder.BuildArgs())
	if err != nil {
		e.mu.Unlock()
		return nil, fmt.Errorf("failed to start frame extraction: %w", err)
	}
	e.current = process
	e.mu.Unlock()

	// Drain stderr so the decoder never blocks on a full pipe.
	go io.Copy(io.Discard, process.Stderr())

	pixels := make([]byte, builder.FrameBytes())
	_, readErr := io.ReadFull(process.Stdout(), pixels)
	waitErr := process.Wait()

	e.mu.Lock()
	if e.current == process {
		e.current = nil
	}
	preempted := myGen != e.generation
	e.mu.Unlock()

	if preempted {
		return nil, ErrPreempted
	}
	if readErr != nil {
		return nil, fmt.Errorf("failed to read frame at %.3fs: %w", t, readErr)
	}
	if waitErr != nil {
		return nil, fmt.Errorf("frame extraction failed at %.3fs: %w", t, waitErr)
	}
	e.meter.ObserveFrameExtraction(time.Since(startedAt))

	result := &models.CachedFrame{
		TimeMillis: key,
		Width:      tl.Settings.Width,
		Height:     tl.Settings.Height,
		Pixels:     pixels,
	}
	e.cache.put(key, result)
	return result, nil
}

// builderFor picks the extraction shape for the covering clips at t.
func (e *Extractor) builderFor(tl *models.Timeline, t float64) *frame.Builder {
	refs := tl.VideoClipsAt(t)

	layers := make([]frame.Layer, 0, len(refs))
	for _, ref := range refs {
		media := tl.MediaByID(ref.Clip.MediaID)
		if media == nil {
			continue
		}
		layers = append(layers, frame.Layer{
			Path:       media.Path,
			SourceTime: ref.Clip.SourceTimeAt(t),
		})
	}

	switch len(layers) {
	case 0:
		return frame.NewBlack(tl.Settings)
	case 1:
		return frame.NewSimple(tl.Settings, layers[0].Path, layers[0].SourceTime)
	default:
		return frame.NewComposite(tl.Settings, layers)
	}
}

// InvalidateRange drops cached frames inside [start, end] seconds, inclusive.
func (e *Extractor) InvalidateRange(start, end float64) int {
	removed := e.cache.invalidateRange(timeutil.RoundMillis(start), timeutil.RoundMillis(end))
	if removed > 0 {
		e.logger.Debug("frames invalidated", "count", removed)
	}
	return removed
}

// CacheLen returns the number of cached frames.
func (e *Extractor) CacheLen() int {
	return e.cache.len()
}

// Prefetch warms the cache with count frames starting at t, one frame
// interval apart, in a background goroutine. A newer Prefetch call
// supersedes a running one at its next frame boundary.
func (e *Extractor) Prefetch(t float64, count int) {
	e.mu.Lock()
	e.prefetchGen++
	myGen := e.prefetchGen
	tl := e.timeline
	e.mu.Unlock()

	if tl == nil || count <= 0 || tl.Settings.FrameRate <= 0 {
		return
	}
	interval := 1.0 / tl.Settings.FrameRate

	go func() {
		for i := 0; i < count; i++ {
			e.mu.Lock()
			superseded := myGen != e.prefetchGen
			e.mu.Unlock()
			if superseded {
				return
			}

			at := t + float64(i)*interval
			if at > tl.Duration {
				return
			}
			if _, err := e.GetFrame(at); err != nil {
				// Preemption means the user is actively requesting
				// frames; stop warming.
				return
			}
		}
	}()
}
