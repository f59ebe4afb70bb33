package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// ManifestVersion is bumped whenever the manifest shape or the hash inputs
// change incompatibly; a mismatch discards the persisted manifest.
const ManifestVersion = 1

const manifestFileName = "manifest.json"

// ManifestChunk is one persisted chunk record, keyed by unique index.
type ManifestChunk struct {
	Index       int    `json:"index"`
	ContentHash string `json:"contentHash"`
	FileName    string `json:"fileName"`
	IsComplex   bool   `json:"isComplex"`
}

// Manifest is the cache's single source of truth, rewritten wholesale on
// every mutation (no partial patch format).
type Manifest struct {
	Version       int             `json:"version"`
	ProjectHash   string          `json:"projectHash"`
	ProjectMtime  int64           `json:"projectMtime"`
	ChunkDuration float64         `json:"chunkDuration"`
	TotalDuration float64         `json:"totalDuration"`
	Resolution    string          `json:"resolution"`
	FrameRate     float64         `json:"frameRate"`
	Chunks        []ManifestChunk `json:"chunks"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

func newManifest(projectHash string, projectMtime int64, chunkDuration, totalDuration float64, resolution string, frameRate float64) *Manifest {
	now := time.Now()
	return &Manifest{
		Version:       ManifestVersion,
		ProjectHash:   projectHash,
		ProjectMtime:  projectMtime,
		ChunkDuration: chunkDuration,
		TotalDuration: totalDuration,
		Resolution:    resolution,
		FrameRate:     frameRate,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// matches reports whether the persisted metadata still describes the live
// session. Chunk hashes are re-verified individually even on a match.
func (m *Manifest) matches(projectHash, resolution string, frameRate, chunkDuration float64) bool {
	return m.Version == ManifestVersion &&
		m.ProjectHash == projectHash &&
		m.Resolution == resolution &&
		m.FrameRate == frameRate &&
		m.ChunkDuration == chunkDuration
}

// entry returns the chunk record for index, if present.
func (m *Manifest) entry(index int) (ManifestChunk, bool) {
	for _, c := range m.Chunks {
		if c.Index == index {
			return c, true
		}
	}
	return ManifestChunk{}, false
}

// upsert replaces any existing entry for the chunk's index and appends the
// new one, keeping the at-most-one-entry-per-index invariant.
func (m *Manifest) upsert(chunk ManifestChunk) {
	kept := m.Chunks[:0]
	for _, c := range m.Chunks {
		if c.Index != chunk.Index {
			kept = append(kept, c)
		}
	}
	m.Chunks = append(kept, chunk)
	m.UpdatedAt = time.Now()
}

// remove drops the entry for index, reporting whether one existed.
func (m *Manifest) remove(index int) bool {
	kept := m.Chunks[:0]
	removed := false
	for _, c := range m.Chunks {
		if c.Index == index {
			removed = true
			continue
		}
		kept = append(kept, c)
	}
	m.Chunks = kept
	if removed {
		m.UpdatedAt = time.Now()
	}
	return removed
}

func loadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return &m, nil
}

func (m *Manifest) save(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}
