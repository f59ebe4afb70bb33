package config

import (
	"flag"
	"fmt"
	"os"
)

// MergeFromFlags parses command-line flags and overrides config values
func (c *Config) MergeFromFlags() error {
	fs := flag.NewFlagSet("previewer", flag.ContinueOnError)
	fs.Usage = printUsage

	// Inputs
	timeline := fs.String("timeline", "", "Timeline snapshot JSON file (required)")
	project := fs.String("project", "", "Saved project file, empty for unsaved projects")

	// Config file override (handled by LoadConfig before this function is called)
	_ = fs.String("config", "", "Path to config file (default: search standard locations)")

	// Storage
	cacheDir := fs.String("cache-dir", "", "Chunk cache directory (default: from config)")
	outputDir := fs.String("output-dir", "", "Assembled preview directory (default: cache dir)")

	// Pipeline settings
	chunkDuration := fs.Float64("chunk-duration", -1, "Seconds per chunk (default: from config)")
	maxRenders := fs.Int("max-renders", -1, "Concurrent encoder processes (default: from config)")
	frameCache := fs.Int("frame-cache", -1, "Frame cache capacity (default: from config)")

	// External encoder
	ffmpegPath := fs.String("ffmpeg", "", "Path to the ffmpeg binary (default: from config)")

	// Encoding settings
	preset := fs.String("preset", "", "Encoder preset for simple chunks (default: from config)")
	complexPreset := fs.String("complex-preset", "", "Encoder preset for complex chunks (default: from config)")
	crf := fs.Int("crf", -1, "Video CRF, 0-51, lower = better quality (default: from config)")

	// Observability
	logLevel := fs.String("log-level", "", "Log level: debug, info, warn, error (default: from config)")
	logFormat := fs.String("log-format", "", "Log format: text, json (default: from config)")
	metricsAddr := fs.String("metrics-addr", "", "Prometheus listen address, e.g. :9090 (default: disabled)")

	// Behavioral flags
	verbose := fs.Bool("verbose", false, "Enable verbose logging")
	dryRun := fs.Bool("dry-run", false, "Print the render plan without encoding")

	if err := fs.Parse(os.Args[1:]); err != nil {
		return err
	}

	// Override with flag values (only if explicitly set)
	if *timeline != "" {
		c.Timeline = *timeline
	}
	if *project != "" {
		c.Project = *project
	}
	if *cacheDir != "" {
		c.CacheDir = *cacheDir
	}
	if *outputDir != "" {
		c.OutputDir = *outputDir
	}
	if *chunkDuration > 0 {
		c.ChunkDuration = *chunkDuration
	}
	if *maxRenders > 0 {
		c.MaxConcurrentRenders = *maxRenders
	}
	if *frameCache > 0 {
		c.FrameCacheCapacity = *frameCache
	}
	if *ffmpegPath != "" {
		c.FFmpegPath = *ffmpegPath
	}
	if *preset != "" {
		c.Render.Preset = *preset
	}
	if *complexPreset != "" {
		c.Render.ComplexPreset = *complexPreset
	}
	if *crf >= 0 {
		c.Render.CRF = *crf
	}
	if *logLevel != "" {
		c.LogLevel = *logLevel
	}
	if *logFormat != "" {
		c.LogFormat = *logFormat
	}
	if *metricsAddr != "" {
		c.MetricsAddr = *metricsAddr
	}
	if *verbose {
		c.Verbose = true
	}
	if *dryRun {
		c.DryRun = true
	}

	return nil
}

// printUsage prints help text
func printUsage() {
	fmt.Fprintf(os.Stderr, `previewer - Chunked timeline preview rendering

USAGE:
  previewer -timeline FILE [OPTIONS]

REQUIRED FLAGS:
  -timeline string
        Timeline snapshot JSON file

CONFIGURATION:
  -config string
        Path to config file (default: search ./previewer.yaml, ~/.previewer/config.yaml, /etc/previewer/config.yaml)
  -project string
        Saved project file; identifies the cache across sessions

STORAGE:
  -cache-dir string
        Chunk cache directory (default: ./preview-cache)
  -output-dir string
        Assembled preview directory (default: cache dir)

PIPELINE SETTINGS:
  -chunk-duration float
        Seconds per chunk (default: 2)
  -max-renders int
        Concurrent encoder processes (default: 2)
  -frame-cache int
        Frame cache capacity (default: 30)

ENCODING:
  -ffmpeg string
        Path to the ffmpeg binary (default: ffmpeg)
  -preset string
        Encoder preset for simple chunks (default: ultrafast)
  -complex-preset string
        Encoder preset for complex chunks (default: veryfast)
  -crf int
        Video CRF: 0-51, lower = better quality (default: 28)

OBSERVABILITY:
  -log-level string
        Log level: debug, info, warn, error (default: info)
  -log-format string
        Log format: text, json (default: text)
  -metrics-addr string
        Prometheus listen address, e.g. :9090 (default: disabled)

BEHAVIORAL FLAGS:
  --verbose
        Enable verbose logging
  --dry-run
        Print the render plan without encoding

EXAMPLES:
  # Render a full preview for a timeline snapshot
  previewer -timeline cut.json -project film.proj

  # Fast iteration on a shared cache with metrics
  previewer -timeline cut.json -cache-dir /tmp/cache -metrics-addr :9090

  # Inspect the render plan without spawning ffmpeg
  previewer -timeline cut.json --dry-run

CONFIGURATION FILES:
  Config files are searched in order:
    1. ./previewer.yaml
    2. ~/.previewer/config.yaml
    3. /etc/previewer/config.yaml

  Priority: CLI flags > Environment (PREVIEWER_*) > Config file > Defaults

`)
}
