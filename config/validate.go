package config

import (
	"fmt"
	"os"
	"strings"
)

// LogLevelValues returns valid log level values
func LogLevelValues() []string {
	return []string{"debug", "info", "warn", "error"}
}

// LogFormatValues returns valid log format values
func LogFormatValues() []string {
	return []string{"text", "json"}
}

func contains(values []string, v string) bool {
	for _, valid := range values {
		if v == valid {
			return true
		}
	}
	return false
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errors []string

	if c.Timeline == "" {
		errors = append(errors, "timeline snapshot file is required")
	} else if _, err := os.Stat(c.Timeline); os.IsNotExist(err) {
		errors = append(errors, fmt.Sprintf("timeline snapshot does not exist: %s", c.Timeline))
	}

	if c.CacheDir == "" {
		errors = append(errors, "cache directory is required")
	}

	if c.ChunkDuration <= 0 {
		errors = append(errors, "chunk duration must be positive")
	}
	if c.MaxConcurrentRenders <= 0 {
		errors = append(errors, "max concurrent renders must be positive")
	}
	if c.FrameCacheCapacity <= 0 {
		errors = append(errors, "frame cache capacity must be positive")
	}
	if c.ScrubWindow <= 0 {
		errors = append(errors, "scrub window must be positive")
	}

	if !contains(LogLevelValues(), c.LogLevel) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s', must be one of: %s",
			c.LogLevel, strings.Join(LogLevelValues(), ", ")))
	}
	if !contains(LogFormatValues(), c.LogFormat) {
		errors = append(errors, fmt.Sprintf("invalid log format '%s', must be one of: %s",
			c.LogFormat, strings.Join(LogFormatValues(), ", ")))
	}

	if err := c.Render.Validate(); err != nil {
		errors = append(errors, fmt.Sprintf("render config: %v", err))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

// Validate checks if render configuration is valid
func (rc *RenderConfig) Validate() error {
	var errors []string

	if rc.VideoCodec == "" {
		errors = append(errors, "video codec is required")
	}
	if rc.Preset == "" {
		errors = append(errors, "preset is required")
	}
	if rc.ComplexPreset == "" {
		errors = append(errors, "complex preset is required")
	}
	if rc.CRF < 0 || rc.CRF > 51 {
		errors = append(errors, "CRF must be between 0 and 51")
	}
	if rc.AudioCodec == "" {
		errors = append(errors, "audio codec is required")
	}
	if rc.AudioBitrate == "" {
		errors = append(errors, "audio bitrate is required")
	}

	if len(errors) > 0 {
		return fmt.Errorf("%s", strings.Join(errors, ", "))
	}

	return nil
}
