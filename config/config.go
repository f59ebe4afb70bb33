package config

// Config holds all preview pipeline configuration options
type Config struct {
	// Inputs
	Timeline string `yaml:"timeline"` // timeline snapshot JSON (required)
	Project  string `yaml:"project"`  // saved project file, empty for unsaved projects

	// Storage
	CacheDir  string `yaml:"cache_dir"`  // rendered chunk cache directory
	OutputDir string `yaml:"output_dir"` // assembled preview directory (default: cache dir)

	// Pipeline settings
	ChunkDuration        float64 `yaml:"chunk_duration"`         // seconds per chunk
	MaxConcurrentRenders int     `yaml:"max_concurrent_renders"` // encoder process limit
	FrameCacheCapacity   int     `yaml:"frame_cache_capacity"`   // decoded frames held in memory
	ScrubWindow          float64 `yaml:"scrub_window"`           // scrub snippet length in seconds

	// External encoder
	FFmpegPath string `yaml:"ffmpeg_path"`

	// Encoding settings
	Render RenderConfig `yaml:"render"`

	// Observability
	LogLevel    string `yaml:"log_level"`    // debug, info, warn, error
	LogFormat   string `yaml:"log_format"`   // text, json
	MetricsAddr string `yaml:"metrics_addr"` // e.g. ":9090", empty disables the endpoint

	// Behavioral flags
	Verbose bool `yaml:"verbose"` // force debug logging
	DryRun  bool `yaml:"dry_run"` // print the render plan without encoding
}

// RenderConfig holds chunk encoding settings
type RenderConfig struct {
	VideoCodec    string `yaml:"video_codec"`    // e.g. "libx264"
	Preset        string `yaml:"preset"`         // preset for simple chunks
	ComplexPreset string `yaml:"complex_preset"` // preset for complex chunks
	CRF           int    `yaml:"crf"`            // 0-51, lower = better quality
	AudioCodec    string `yaml:"audio_codec"`    // e.g. "aac"
	AudioBitrate  string `yaml:"audio_bitrate"`  // e.g. "128k"
}

// DefaultConfig returns configuration with preview-grade defaults
func DefaultConfig() *Config {
	return &Config{
		CacheDir: "./preview-cache",

		// Pipeline defaults: small chunks for fast feedback, a small
		// render pool so the editor UI keeps its CPU headroom.
		ChunkDuration:        2.0,
		MaxConcurrentRenders: 2,
		FrameCacheCapacity:   30,
		ScrubWindow:          0.05,

		FFmpegPath: "ffmpeg",

		// Preview encodes trade quality for latency.
		Render: RenderConfig{
			VideoCodec:    "libx264",
			Preset:        "ultrafast",
			ComplexPreset: "veryfast",
			CRF:           28,
			AudioCodec:    "aac",
			AudioBitrate:  "128k",
		},

		LogLevel:  "info",
		LogFormat: "text",
	}
}

// Copy creates a copy of the config
func (c *Config) Copy() *Config {
	dup := *c
	return &dup
}
