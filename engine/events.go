package engine

import "previewer/models"

// EventType discriminates engine notifications.
type EventType int

const (
	// EventChunkStatus reports a chunk's status transition.
	EventChunkStatus EventType = iota
	// EventRenderProgress carries encoder telemetry for a rendering chunk.
	EventRenderProgress
	// EventPreviewReady reports a freshly assembled full preview file.
	EventPreviewReady
	// EventRenderError reports a failed chunk render.
	EventRenderError
)

// Event is one engine notification for the embedding UI.
type Event struct {
	Type        EventType
	ChunkIndex  int
	Status      models.ChunkStatus
	Progress    *models.RenderProgress
	PreviewPath string
	Err         error
}
