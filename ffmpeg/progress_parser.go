package ffmpeg

import (
	"bufio"
	"regexp"
	"strconv"
	"strings"

	"previewer/models"
)

// ProgressParser parses ffmpeg stderr output for encoding metrics.
type ProgressParser struct {
	frameRegex   *regexp.Regexp
	fpsRegex     *regexp.Regexp
	timeRegex    *regexp.Regexp
	bitrateRegex *regexp.Regexp
	speedRegex   *regexp.Regexp
}

// NewProgressParser creates a new parser for ffmpeg progress output.
func NewProgressParser() *ProgressParser {
	return &ProgressParser{
		// Match both "frame=123" and "frame= 123" formats
		frameRegex:   regexp.MustCompile(`frame=\s*(\d+)`),
		fpsRegex:     regexp.MustCompile(`fps=\s*([0-9.]+)`),
		timeRegex:    regexp.MustCompile(`time=\s*([0-9:\.]+)`),
		bitrateRegex: regexp.MustCompile(`bitrate=\s*([0-9.]+)`),
		// Match speed both at line start and embedded in a stats line
		speedRegex: regexp.MustCompile(`(?:^|\s)speed=\s*([0-9.]+)x?`),
	}
}

// ParseLine parses a single line of ffmpeg stderr output and updates the
// progress. Returns true when any metric was updated. The elapsed-time
// marker (time=HH:MM:SS.cc) drives the percentage; lines without it update
// telemetry only.
func (pp *ProgressParser) ParseLine(line string, progress *models.RenderProgress) bool {
	line = strings.TrimSpace(line)
	if line == "" || line == "progress=continue" || line == "progress=end" {
		return false
	}

	updated := false

	if matches := pp.frameRegex.FindStringSubmatch(line); len(matches) > 1 {
		if frame, err := strconv.ParseInt(matches[1], 10, 64); err == nil {
			progress.Frame = frame
			updated = true
		}
	}

	if matches := pp.fpsRegex.FindStringSubmatch(line); len(matches) > 1 {
		if fps, err := strconv.ParseFloat(matches[1], 64); err == nil {
			progress.FPS = fps
			updated = true
		}
	}

	if matches := pp.timeRegex.FindStringSubmatch(line); len(matches) > 1 {
		progress.CurrentTime = matches[1]
		if seconds := timeToSeconds(matches[1]); seconds > 0 {
			progress.CalculateProgress(seconds)
		}
		updated = true
	}

	if matches := pp.bitrateRegex.FindStringSubmatch(line); len(matches) > 1 {
		progress.Bitrate = matches[1] + "kbits/s"
		updated = true
	}

	if matches := pp.speedRegex.FindStringSubmatch(line); len(matches) > 1 {
		if speed, err := strconv.ParseFloat(matches[1], 64); err == nil {
			progress.Speed = speed
			updated = true
		}
	}

	return updated
}

// Monitor reads the diagnostic stream to EOF, updating progress and invoking
// the callback on every parsed update. It returns the trailing
// DiagnosticTailLimit characters of the stream for error reporting.
//
// ffmpeg overwrites its stats line with \r; captured through a pipe each
// update usually arrives as its own line, but the scanner buffer is enlarged
// to survive long unbroken output.
func (pp *ProgressParser) Monitor(reader *bufio.Scanner, progress *models.RenderProgress, callback models.ProgressFunc) string {
	buf := make([]byte, 0, 64*1024)
	reader.Buffer(buf, 1024*1024)

	var tail strings.Builder

	for reader.Scan() {
		line := reader.Text()

		tail.WriteString(line)
		tail.WriteString("\n")
		if tail.Len() > 4*DiagnosticTailLimit {
			trimmed := Tail(tail.String())
			tail.Reset()
			tail.WriteString(trimmed)
		}

		if pp.ParseLine(line, progress) && callback != nil {
			callback(progress)
		}
	}

	return Tail(tail.String())
}

// timeToSeconds converts ffmpeg time format (HH:MM:SS.MS) to seconds.
func timeToSeconds(timeStr string) float64 {
	parts := strings.Split(timeStr, ":")
	if len(parts) != 3 {
		return 0
	}

	hours, err1 := strconv.ParseFloat(parts[0], 64)
	minutes, err2 := strconv.ParseFloat(parts[1], 64)
	seconds, err3 := strconv.ParseFloat(parts[2], 64)

	if err1 != nil || err2 != nil || err3 != nil {
		return 0
	}

	return hours*3600 + minutes*60 + seconds
}
