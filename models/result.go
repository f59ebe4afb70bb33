package models

import (
	"fmt"
	"strings"
)

// RenderResult represents the outcome of rendering a single chunk.
//
// It enforces logical consistency: successful results must have an output
// path and no error, while failed results must have an error and no output
// path. Diagnostics carries the tail of the encoder's stderr for failures.
//
// Use NewRenderSuccess or NewRenderFailure to create validated instances.
type RenderResult struct {
	ChunkIndex  int    `json:"chunkIndex"`
	ContentHash string `json:"contentHash"`
	OutputPath  string `json:"outputPath"`
	IsComplex   bool   `json:"isComplex"`
	Success     bool   `json:"success"`
	Err         error  `json:"-"`
	Diagnostics string `json:"diagnostics,omitempty"`
}

// NewRenderSuccess creates a successful RenderResult with validation.
//
// Returns an error if outputPath is empty or whitespace-only.
func NewRenderSuccess(chunkIndex int, contentHash, outputPath string, isComplex bool) (*RenderResult, error) {
	r := &RenderResult{
		ChunkIndex:  chunkIndex,
		ContentHash: contentHash,
		OutputPath:  outputPath,
		IsComplex:   isComplex,
		Success:     true,
	}
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("invalid render result: %w", err)
	}
	return r, nil
}

// NewRenderFailure creates a failed RenderResult.
//
// The renderErr parameter must not be nil. diagnostics is the trailing
// portion of the encoder's stderr, may be empty.
func NewRenderFailure(chunkIndex int, renderErr error, diagnostics string) (*RenderResult, error) {
	if renderErr == nil {
		return nil, fmt.Errorf("invalid render result: error cannot be nil for failed result")
	}
	return &RenderResult{
		ChunkIndex:  chunkIndex,
		Success:     false,
		Err:         renderErr,
		Diagnostics: diagnostics,
	}, nil
}

// Validate checks if the RenderResult has consistent state.
func (r *RenderResult) Validate() error {
	if r.Success && r.Err != nil {
		return fmt.Errorf("inconsistent state: Success is true but Err is not nil")
	}
	if !r.Success && r.Err == nil {
		return fmt.Errorf("failed result must have an error")
	}
	if r.Success && strings.TrimSpace(r.OutputPath) == "" {
		return fmt.Errorf("output_path cannot be empty for successful result")
	}
	if !r.Success && strings.TrimSpace(r.OutputPath) != "" {
		return fmt.Errorf("failed result should not have output_path")
	}
	return nil
}

// CachedFrame is one extracted frame held in the frame LRU store.
type CachedFrame struct {
	TimeMillis int64  // millisecond-rounded timeline time, the cache key
	Width      int
	Height     int
	Pixels     []byte // raw RGBA, Width*Height*4 bytes
}

// AudioSnippet is a short PCM buffer produced for scrubbing or
// frame-stepping. Transient: produced and immediately forwarded, never
// persisted.
type AudioSnippet struct {
	Time       float64 `json:"time"`
	Duration   float64 `json:"duration"`
	SampleRate int     `json:"sampleRate"`
	Channels   int     `json:"channels"`
	PCM        []byte  `json:"-"` // interleaved float32 little-endian samples
}
