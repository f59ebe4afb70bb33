// Package cache owns the directory of rendered preview chunks and the JSON
// manifest describing them.
//
// The cache is the single point of manifest mutation: the scheduler reports
// render results to it and never touches the manifest directly. Staleness is
// detected with a cheap project-identity quick-reject plus a precise
// per-chunk content hash, so a single-clip edit re-renders only the chunks
// it touches.
package cache

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"previewer/internal/logging"
	"previewer/models"
)

// DefaultChunkDuration is the default chunk length in seconds.
const DefaultChunkDuration = 2.0

// Stats summarizes the cache contents.
type Stats struct {
	TotalChunks  int   // chunks in the current timeline grid
	CachedChunks int   // manifest entries whose file exists on disk
	TotalSize    int64 // bytes across existing chunk files
}

// ChunkCache validates, registers and invalidates rendered chunk files.
type ChunkCache struct {
	mu            sync.Mutex
	dir           string
	chunkDuration float64
	policy        ComplexityPolicy
	logger        *slog.Logger

	manifest     *Manifest
	manifestPath string
	timeline     *models.Timeline
}

// NewChunkCache creates a cache rooted at dir. A zero chunkDuration uses
// DefaultChunkDuration; a nil policy uses HeuristicPolicy.
func NewChunkCache(dir string, chunkDuration float64, logger *slog.Logger) *ChunkCache {
	if chunkDuration <= 0 {
		chunkDuration = DefaultChunkDuration
	}
	return &ChunkCache{
		dir:           dir,
		chunkDuration: chunkDuration,
		policy:        HeuristicPolicy{},
		logger:        logging.Or(logger),
		manifestPath:  filepath.Join(dir, manifestFileName),
	}
}

// SetPolicy overrides the complexity policy.
func (c *ChunkCache) SetPolicy(policy ComplexityPolicy) *ChunkCache {
	c.policy = policy
	return c
}

// ChunkDuration returns the configured chunk length in seconds.
func (c *ChunkCache) ChunkDuration() float64 {
	return c.chunkDuration
}

// Initialize builds the chunk grid for the snapshot and validates it against
// the persisted manifest.
//
// If the manifest's metadata (version, project hash, resolution, frame rate,
// chunk duration) matches the live session, every index is re-verified by
// recomputing its content hash: matching hash with an existing file is
// valid; a mismatched hash with an existing file is stale and the file is
// deleted immediately (the cache never serves stale bytes, even
// transiently); anything else is missing. A metadata mismatch or unreadable
// manifest discards the manifest and starts every chunk missing.
func (c *ChunkCache) Initialize(tl *models.Timeline, projectIdentity string) ([]*models.PreviewChunk, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	c.timeline = tl
	projectHash := HashProjectIdentity(projectIdentity)
	resolution := fmt.Sprintf("%dx%d", tl.Settings.Width, tl.Settings.Height)
	projectMtime := int64(0)
	if info, err := os.Stat(projectIdentity); err == nil {
		projectMtime = info.ModTime().Unix()
	}

	chunks, err := c.buildGrid(tl.Duration)
	if err != nil {
		return nil, err
	}

	manifest, err := loadManifest(c.manifestPath)
	if err != nil || !manifest.matches(projectHash, resolution, tl.Settings.FrameRate, c.chunkDuration) {
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			c.logger.Warn("manifest unreadable, starting fresh", "path", c.manifestPath, "error", err)
		}
		manifest = newManifest(projectHash, projectMtime, c.chunkDuration, tl.Duration, resolution, tl.Settings.FrameRate)
	}
	manifest.TotalDuration = tl.Duration
	c.manifest = manifest

	for _, chunk := range chunks {
		chunk.ContentHash = ComputeChunkHash(tl, chunk.StartTime, chunk.EndTime)
		chunk.IsComplex = c.policy.IsComplex(tl, chunk.StartTime, chunk.EndTime)

		entry, ok := manifest.entry(chunk.Index)
		if !ok {
			chunk.Status = models.ChunkMissing
			continue
		}

		filePath := filepath.Join(c.dir, entry.FileName)
		fileExists := fileExists(filePath)

		switch {
		case entry.ContentHash == chunk.ContentHash && fileExists:
			chunk.Status = models.ChunkValid
			chunk.FilePath = filePath
			chunk.IsComplex = entry.IsComplex
		case fileExists:
			// Stale bytes are deleted eagerly, never served.
			chunk.Status = models.ChunkStale
			if err := os.Remove(filePath); err != nil {
				c.logger.Warn("failed to delete stale chunk file", "path", filePath, "error", err)
			}
			manifest.remove(chunk.Index)
		default:
			chunk.Status = models.ChunkMissing
			manifest.remove(chunk.Index)
		}
	}

	c.saveManifest()
	return chunks, nil
}

// buildGrid slices the timeline into fixed-duration chunks, ceiling
// division, with the final chunk clamped to the actual duration.
func (c *ChunkCache) buildGrid(duration float64) ([]*models.PreviewChunk, error) {
	if duration <= 0 {
		return nil, nil
	}

	count := int(duration / c.chunkDuration)
	if duration > float64(count)*c.chunkDuration {
		count++
	}

	chunks := make([]*models.PreviewChunk, 0, count)
	for i := 0; i < count; i++ {
		start := float64(i) * c.chunkDuration
		end := start + c.chunkDuration
		if end > duration {
			end = duration
		}

		chunk, err := models.NewPreviewChunk(i, start, end)
		if err != nil {
			return nil, fmt.Errorf("invalid chunk %d: %w", i, err)
		}
		chunks = append(chunks, chunk)
	}

	if err := models.ValidateChunkGrid(chunks); err != nil {
		return nil, fmt.Errorf("chunk grid validation failed: %w", err)
	}
	return chunks, nil
}

// ChunkWindow returns the half-open timeline range of a chunk index, clamped
// to the timeline duration.
func (c *ChunkCache) ChunkWindow(index int) (start, end float64) {
	start = float64(index) * c.chunkDuration
	end = start + c.chunkDuration
	c.mu.Lock()
	if c.timeline != nil && end > c.timeline.Duration {
		end = c.timeline.Duration
	}
	c.mu.Unlock()
	return start, end
}

// ChunkHash recomputes the content hash for a chunk index against the
// current snapshot.
func (c *ChunkCache) ChunkHash(index int) string {
	start, end := c.ChunkWindow(index)
	c.mu.Lock()
	tl := c.timeline
	c.mu.Unlock()
	if tl == nil {
		return ""
	}
	return ComputeChunkHash(tl, start, end)
}

// IsComplexWindow classifies a chunk index under the cache's policy.
func (c *ChunkCache) IsComplexWindow(index int) bool {
	start, end := c.ChunkWindow(index)
	c.mu.Lock()
	tl := c.timeline
	c.mu.Unlock()
	if tl == nil {
		return false
	}
	return c.policy.IsComplex(tl, start, end)
}

// IsValid reports whether the manifest holds an entry for index with the
// given content hash and its file still exists. Used by render workers to
// skip chunks that became valid while queued.
func (c *ChunkCache) IsValid(index int, contentHash string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.manifest == nil {
		return false
	}
	entry, ok := c.manifest.entry(index)
	if !ok || entry.ContentHash != contentHash {
		return false
	}
	return fileExists(filepath.Join(c.dir, entry.FileName))
}

// OutputPath returns the deterministic file path for a chunk render:
// content-identical re-renders collide (idempotent), content-different
// renders never do.
func (c *ChunkCache) OutputPath(index int, contentHash string) string {
	prefix := contentHash
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	return filepath.Join(c.dir, fmt.Sprintf("chunk_%05d_%s.mp4", index, prefix))
}

// RegisterChunk records a completed render in the manifest, replacing any
// previous entry for the index, and persists the manifest wholesale.
func (c *ChunkCache) RegisterChunk(index int, contentHash, filePath string, isComplex bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.manifest == nil {
		return
	}
	c.manifest.upsert(ManifestChunk{
		Index:       index,
		ContentHash: contentHash,
		FileName:    filepath.Base(filePath),
		IsComplex:   isComplex,
	})
	c.saveManifest()
}

// InvalidateRange removes every manifest entry whose chunk window overlaps
// the half-open range [start, end), deleting its on-disk file best-effort,
// and returns the affected indices in ascending order for the caller to mark
// missing.
func (c *ChunkCache) InvalidateRange(start, end float64) []int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.manifest == nil {
		return nil
	}

	var affected []int
	for _, entry := range c.manifest.Chunks {
		chunkStart := float64(entry.Index) * c.chunkDuration
		chunkEnd := chunkStart + c.chunkDuration
		if chunkStart < end && chunkEnd > start {
			affected = append(affected, entry.Index)
		}
	}

	for _, index := range affected {
		entry, _ := c.manifest.entry(index)
		path := filepath.Join(c.dir, entry.FileName)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			c.logger.Warn("failed to delete invalidated chunk file", "path", path, "error", err)
		}
		c.manifest.remove(index)
	}

	if len(affected) > 0 {
		c.saveManifest()
	}
	sort.Ints(affected)
	return affected
}

// ClearAll deletes every cached chunk file and empties the manifest.
func (c *ChunkCache) ClearAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.manifest == nil {
		return
	}
	for _, entry := range c.manifest.Chunks {
		path := filepath.Join(c.dir, entry.FileName)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			c.logger.Warn("failed to delete chunk file", "path", path, "error", err)
		}
	}
	c.manifest.Chunks = nil
	c.saveManifest()
}

// Stats reports cache totals for status display.
func (c *ChunkCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := Stats{}
	if c.timeline != nil && c.timeline.Duration > 0 {
		count := int(c.timeline.Duration / c.chunkDuration)
		if c.timeline.Duration > float64(count)*c.chunkDuration {
			count++
		}
		stats.TotalChunks = count
	}
	if c.manifest == nil {
		return stats
	}
	for _, entry := range c.manifest.Chunks {
		path := filepath.Join(c.dir, entry.FileName)
		if info, err := os.Stat(path); err == nil {
			stats.CachedChunks++
			stats.TotalSize += info.Size()
		}
	}
	return stats
}

// saveManifest persists the manifest, logging failures only: an unsynced
// manifest just causes a future session to re-validate more chunks.
func (c *ChunkCache) saveManifest() {
	if c.manifest == nil {
		return
	}
	if err := c.manifest.save(c.manifestPath); err != nil {
		c.logger.Warn("failed to persist manifest", "path", c.manifestPath, "error", err)
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
