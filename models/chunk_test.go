package models

import "testing"

// TestNewPreviewChunk tests chunk construction with validation
func TestNewPreviewChunk(t *testing.T) {
	chunk, err := NewPreviewChunk(3, 6.0, 8.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if chunk.Status != ChunkMissing {
		t.Errorf("new chunk should start missing, got %s", chunk.Status)
	}
	if chunk.Index != 3 || chunk.StartTime != 6.0 || chunk.EndTime != 8.0 {
		t.Errorf("chunk fields not set: %+v", chunk)
	}
}

// TestNewPreviewChunk_Invalid tests rejection of bad parameters
func TestNewPreviewChunk_Invalid(t *testing.T) {
	if _, err := NewPreviewChunk(-1, 0, 2); err == nil {
		t.Error("expected error for negative index")
	}
	if _, err := NewPreviewChunk(0, 2, 2); err == nil {
		t.Error("expected error for empty window")
	}
	if _, err := NewPreviewChunk(0, 4, 2); err == nil {
		t.Error("expected error for inverted window")
	}
}

// TestValidateChunkGrid tests contiguity validation
func TestValidateChunkGrid(t *testing.T) {
	good := []*PreviewChunk{
		{Index: 0, StartTime: 0, EndTime: 2},
		{Index: 1, StartTime: 2, EndTime: 4},
		{Index: 2, StartTime: 4, EndTime: 5.5},
	}
	if err := ValidateChunkGrid(good); err != nil {
		t.Errorf("valid grid rejected: %v", err)
	}

	gap := []*PreviewChunk{
		{Index: 0, StartTime: 0, EndTime: 2},
		{Index: 1, StartTime: 3, EndTime: 4},
	}
	if err := ValidateChunkGrid(gap); err == nil {
		t.Error("expected error for gapped grid")
	}

	misindexed := []*PreviewChunk{
		{Index: 0, StartTime: 0, EndTime: 2},
		{Index: 2, StartTime: 2, EndTime: 4},
	}
	if err := ValidateChunkGrid(misindexed); err == nil {
		t.Error("expected error for non-contiguous indices")
	}

	if err := ValidateChunkGrid(nil); err == nil {
		t.Error("expected error for empty grid")
	}
}

// TestRenderResult_Validate tests success/failure consistency rules
func TestRenderResult_Validate(t *testing.T) {
	ok, err := NewRenderSuccess(1, "abc123", "/cache/chunk_00001_abc12345.mp4", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok.Success || ok.OutputPath == "" {
		t.Error("success result missing fields")
	}

	if _, err := NewRenderSuccess(1, "abc", "   ", false); err == nil {
		t.Error("expected error for blank output path")
	}

	if _, err := NewRenderFailure(1, nil, ""); err == nil {
		t.Error("expected error for nil failure cause")
	}
}
