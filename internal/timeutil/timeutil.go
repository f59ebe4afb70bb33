// Package timeutil provides time formatting utilities for FFmpeg commands
// and for stable content hashing.
package timeutil

import (
	"fmt"
	"math"
)

// FormatSeconds converts seconds to HH:MM:SS.MS format for FFmpeg.
//
// This format is used for FFmpeg time parameters like -ss (seek start)
// and -to (seek end). Supports fractional seconds for precise timing.
//
// Example:
//
//	FormatSeconds(0)      // "00:00:00.00"
//	FormatSeconds(90)     // "00:01:30.00"
//	FormatSeconds(3661)   // "01:01:01.00"
//	FormatSeconds(30.53)  // "00:00:30.53"
func FormatSeconds(seconds float64) string {
	hours := int(seconds) / 3600
	minutes := (int(seconds) % 3600) / 60
	secs := seconds - float64(hours*3600) - float64(minutes*60)
	return fmt.Sprintf("%02d:%02d:%05.2f", hours, minutes, secs)
}

// Fixed3 formats a float with exactly three decimal places.
//
// Content hashes include clip timestamps through this formatter so that
// floating-point noise below millisecond precision never flips a hash.
func Fixed3(v float64) string {
	return fmt.Sprintf("%.3f", v)
}

// RoundMillis rounds a time in seconds to whole milliseconds.
//
// Used as the cache key granularity for extracted frames: requests within
// the same millisecond hit the same cached frame.
func RoundMillis(seconds float64) int64 {
	return int64(math.Round(seconds * 1000))
}
