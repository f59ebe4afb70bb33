package config

import (
	"os"
	"strconv"
)

// MergeFromEnv overrides config values from PREVIEWER_* environment
// variables. Sits between the config file and CLI flags in priority, so a
// .env file (loaded by the caller) can pin per-machine settings like the
// ffmpeg path without editing the shared YAML.
func (c *Config) MergeFromEnv() {
	if v := os.Getenv("PREVIEWER_CACHE_DIR"); v != "" {
		c.CacheDir = v
	}
	if v := os.Getenv("PREVIEWER_OUTPUT_DIR"); v != "" {
		c.OutputDir = v
	}
	if v := os.Getenv("PREVIEWER_FFMPEG_PATH"); v != "" {
		c.FFmpegPath = v
	}
	if v := os.Getenv("PREVIEWER_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("PREVIEWER_LOG_FORMAT"); v != "" {
		c.LogFormat = v
	}
	if v := os.Getenv("PREVIEWER_METRICS_ADDR"); v != "" {
		c.MetricsAddr = v
	}
	if v := os.Getenv("PREVIEWER_MAX_CONCURRENT_RENDERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.MaxConcurrentRenders = n
		}
	}
	if v := os.Getenv("PREVIEWER_CHUNK_DURATION"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			c.ChunkDuration = f
		}
	}
}
