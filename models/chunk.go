package models

import "fmt"

// ChunkStatus is the cache-visible lifecycle state of a preview chunk.
type ChunkStatus string

const (
	ChunkMissing ChunkStatus = "missing" // no rendered file for the current hash
	ChunkStale   ChunkStatus = "stale"   // cached hash no longer matches the timeline
	ChunkValid   ChunkStatus = "valid"   // rendered file matches the current hash
	ChunkError   ChunkStatus = "error"   // last render attempt failed; terminal until re-queued
)

// PreviewChunk is a fixed-duration time slice of the timeline, rendered once
// and cached as one file.
//
// Chunks are identified by index = floor(time / chunkDuration). They are
// recreated (re-hashed) on every timeline snapshot change and never merged
// or split.
//
// Note: StartTime and EndTime use float64 to preserve fractional seconds,
// which is critical for precise trims at chunk boundaries.
type PreviewChunk struct {
	Index       int         `json:"index"`
	StartTime   float64     `json:"startTime"`
	EndTime     float64     `json:"endTime"`
	ContentHash string      `json:"contentHash"`
	Status      ChunkStatus `json:"status"`
	FilePath    string      `json:"filePath,omitempty"`
	IsComplex   bool        `json:"isComplex"`
}

// NewPreviewChunk creates a chunk with validation.
//
// Returns an error if the chunk parameters are invalid:
//   - Index must not be negative
//   - EndTime must be greater than StartTime
func NewPreviewChunk(index int, startTime, endTime float64) (*PreviewChunk, error) {
	c := &PreviewChunk{
		Index:     index,
		StartTime: startTime,
		EndTime:   endTime,
		Status:    ChunkMissing,
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid chunk: %w", err)
	}
	return c, nil
}

// Validate checks if the PreviewChunk has valid data.
func (c *PreviewChunk) Validate() error {
	if c.Index < 0 {
		return fmt.Errorf("index must not be negative")
	}
	if c.StartTime >= c.EndTime {
		return fmt.Errorf("start_time must be less than end_time")
	}
	return nil
}

// Window returns the half-open timeline range the chunk covers.
func (c *PreviewChunk) Window() (start, end float64) {
	return c.StartTime, c.EndTime
}

// ValidateChunkGrid validates a chunk sequence for completeness: indices must
// be contiguous from zero and windows must tile without gaps.
func ValidateChunkGrid(chunks []*PreviewChunk) error {
	if len(chunks) == 0 {
		return fmt.Errorf("chunk list is empty")
	}

	for i, chunk := range chunks {
		if err := chunk.Validate(); err != nil {
			return fmt.Errorf("chunk %d is invalid: %w", i, err)
		}
		if chunk.Index != i {
			return fmt.Errorf("chunk at position %d has index %d", i, chunk.Index)
		}
		if i > 0 && chunks[i-1].EndTime != chunk.StartTime {
			return fmt.Errorf("gap between chunk %d and %d: %.3f != %.3f",
				i-1, i, chunks[i-1].EndTime, chunk.StartTime)
		}
	}

	return nil
}
