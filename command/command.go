// Package command provides the Command interface implemented by the FFmpeg
// argument builders of the preview pipeline.
//
// Builders only assemble argument vectors; execution happens through
// ffmpeg.Invoker so the scheduler and extractor keep control of process
// lifecycles (kill on cancellation, single-flight preemption).
package command

// Command represents an FFmpeg command that can be built or previewed.
//
// Example usage:
//
//	b := chunk.NewBuilder(timeline, 4.0, 6.0, "/cache/chunk_2.mp4")
//	args := b.BuildArgs()          // for invoker.Start(args)
//	preview, _ := b.DryRun()       // "ffmpeg -ss ..." for logging
type Command interface {
	// BuildArgs constructs the FFmpeg command arguments as a slice,
	// suitable for Invoker.Start.
	BuildArgs() []string

	// DryRun returns the command as a printable string without executing
	// it. Useful for debugging and structured logs.
	DryRun() (string, error)
}
