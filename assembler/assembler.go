// Package assembler stitches the full set of valid preview chunks into one
// playable file with the concat demuxer, stream copy only.
package assembler

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"previewer/ffmpeg"
	"previewer/internal/logging"
	"previewer/models"
)

// previewFilePrefix names assembled outputs; the cleanup pass matches on it.
const previewFilePrefix = "preview_"

// Assembler merges rendered chunks into a single preview file.
type Assembler struct {
	outputDir string
	invoker   ffmpeg.Invoker
	logger    *slog.Logger
}

// New creates an assembler writing into outputDir.
func New(outputDir string, invoker ffmpeg.Invoker, logger *slog.Logger) *Assembler {
	return &Assembler{
		outputDir: outputDir,
		invoker:   invoker,
		logger:    logging.Or(logger),
	}
}

// Assemble concatenates the chunk files into a timestamp-named preview file
// and returns its path. Assembly requires full coverage: if any chunk is not
// valid it returns an empty path and no error, since partial previews would
// play with silent gaps. Previous preview files are removed only after the
// new one exists.
func (a *Assembler) Assemble(chunks []*models.PreviewChunk) (string, error) {
	if len(chunks) == 0 {
		return "", nil
	}

	ordered := make([]*models.PreviewChunk, len(chunks))
	copy(ordered, chunks)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Index < ordered[j].Index
	})

	for _, chunk := range ordered {
		if chunk.Status != models.ChunkValid || chunk.FilePath == "" {
			a.logger.Debug("assembly skipped, coverage incomplete",
				"chunk", chunk.Index, "status", chunk.Status)
			return "", nil
		}
		if _, err := os.Stat(chunk.FilePath); err != nil {
			a.logger.Debug("assembly skipped, chunk file gone",
				"chunk", chunk.Index, "path", chunk.FilePath)
			return "", nil
		}
	}

	if err := os.MkdirAll(a.outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	listPath, err := a.writeConcatList(ordered)
	if err != nil {
		return "", err
	}
	defer os.Remove(listPath)

	outputPath := filepath.Join(a.outputDir,
		fmt.Sprintf("%s%d.mp4", previewFilePrefix, time.Now().UnixMilli()))

	if err := a.runConcat(listPath, outputPath); err != nil {
		return "", err
	}

	a.cleanupOldPreviews(outputPath)
	a.logger.Info("preview assembled", "path", outputPath, "chunks", len(ordered))
	return outputPath, nil
}

// writeConcatList writes the demuxer input list. Single quotes in paths are
// escaped per the demuxer's quoting rules.
func (a *Assembler) writeConcatList(chunks []*models.PreviewChunk) (string, error) {
	tmpFile, err := os.CreateTemp(a.outputDir, "concat-*.txt")
	if err != nil {
		return "", fmt.Errorf("failed to create concat list: %w", err)
	}
	defer tmpFile.Close()

	for _, chunk := range chunks {
		absPath, err := filepath.Abs(chunk.FilePath)
		if err != nil {
			os.Remove(tmpFile.Name())
			return "", fmt.Errorf("failed to resolve chunk path %s: %w", chunk.FilePath, err)
		}
		escaped := strings.ReplaceAll(absPath, "'", `'\''`)
		if _, err := fmt.Fprintf(tmpFile, "file '%s'\n", escaped); err != nil {
			os.Remove(tmpFile.Name())
			return "", fmt.Errorf("failed to write concat list: %w", err)
		}
	}

	return tmpFile.Name(), nil
}

// runConcat executes the stream-copy concatenation.
func (a *Assembler) runConcat(listPath, outputPath string) error {
	args := []string{
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		"-y", outputPath,
	}

	process, err := a.invoker.Start(args)
	if err != nil {
		return fmt.Errorf("failed to start concat: %w", err)
	}

	var tail strings.Builder
	scanner := bufio.NewScanner(process.Stderr())
	for scanner.Scan() {
		tail.WriteString(scanner.Text())
		tail.WriteString("\n")
	}

	if err := process.Wait(); err != nil {
		os.Remove(outputPath)
		return fmt.Errorf("concat failed: %w\n%s", err, ffmpeg.Tail(tail.String()))
	}

	if _, err := os.Stat(outputPath); err != nil {
		return fmt.Errorf("concat produced no output: %w", err)
	}
	return nil
}

// cleanupOldPreviews removes stale preview files, keeping current.
func (a *Assembler) cleanupOldPreviews(current string) {
	entries, err := os.ReadDir(a.outputDir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, previewFilePrefix) {
			continue
		}
		path := filepath.Join(a.outputDir, name)
		if path == current {
			continue
		}
		if err := os.Remove(path); err != nil {
			a.logger.Debug("failed to remove old preview", "path", path, "error", err)
		}
	}
}
