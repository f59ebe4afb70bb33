package assembler

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"previewer/ffmpeg"
	"previewer/models"
)

// concatInvoker fakes the concat run: it records the argument vector and
// writes the output file the way a successful run would.
type concatInvoker struct {
	mu      sync.Mutex
	args    [][]string
	waitErr error
	stderr  string
}

func (f *concatInvoker) Start(args []string) (ffmpeg.Process, error) {
	f.mu.Lock()
	f.args = append(f.args, args)
	f.mu.Unlock()

	if f.waitErr == nil && len(args) >= 2 && args[len(args)-2] == "-y" {
		os.WriteFile(args[len(args)-1], []byte("preview-bytes"), 0644)
	}
	return &concatProcess{stderr: f.stderr, waitErr: f.waitErr}, nil
}

type concatProcess struct {
	stderr  string
	waitErr error
}

func (p *concatProcess) Stdout() io.Reader { return strings.NewReader("") }
func (p *concatProcess) Stderr() io.Reader { return strings.NewReader(p.stderr) }
func (p *concatProcess) Wait() error       { return p.waitErr }
func (p *concatProcess) Kill() error       { return nil }

// validChunks fabricates a fully rendered grid with real files on disk.
func validChunks(t *testing.T, dir string, count int) []*models.PreviewChunk {
	t.Helper()

	chunks := make([]*models.PreviewChunk, 0, count)
	for i := 0; i < count; i++ {
		path := filepath.Join(dir, "chunk_"+string(rune('a'+i))+".mp4")
		if err := os.WriteFile(path, []byte("chunk"), 0644); err != nil {
			t.Fatalf("failed to write chunk file: %v", err)
		}
		chunks = append(chunks, &models.PreviewChunk{
			Index:     i,
			StartTime: float64(i) * 2,
			EndTime:   float64(i+1) * 2,
			Status:    models.ChunkValid,
			FilePath:  path,
		})
	}
	return chunks
}

// TestAssemble_FullCoverage tests the happy path: ordered concat list,
// stream copy, timestamped output
func TestAssemble_FullCoverage(t *testing.T) {
	dir := t.TempDir()
	invoker := &concatInvoker{}
	a := New(dir, invoker, nil)

	chunks := validChunks(t, dir, 3)
	// Hand chunks over out of order; assembly must sort by index.
	chunks[0], chunks[2] = chunks[2], chunks[0]

	path, err := a.Assemble(chunks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path == "" {
		t.Fatal("expected an output path")
	}
	if !strings.HasPrefix(filepath.Base(path), "preview_") {
		t.Errorf("output name %s should carry the preview prefix", filepath.Base(path))
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("output file missing: %v", err)
	}

	invoker.mu.Lock()
	args := invoker.args[0]
	invoker.mu.Unlock()

	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "-f concat") || !strings.Contains(joined, "-c copy") {
		t.Errorf("unexpected concat arguments: %v", args)
	}

	// The list file is deleted after the run; verify ordering through the
	// chunk file names the invoker saw is not possible, so re-read the
	// argument for the list path is enough: it must be gone.
	for i, arg := range args {
		if arg == "-i" && i+1 < len(args) {
			if _, err := os.Stat(args[i+1]); !os.IsNotExist(err) {
				t.Error("concat list file should be cleaned up")
			}
		}
	}
}

// TestAssemble_IncompleteCoverage tests that any non-valid chunk suppresses
// assembly entirely
func TestAssemble_IncompleteCoverage(t *testing.T) {
	dir := t.TempDir()
	invoker := &concatInvoker{}
	a := New(dir, invoker, nil)

	chunks := validChunks(t, dir, 3)
	chunks[1].Status = models.ChunkMissing
	chunks[1].FilePath = ""

	path, err := a.Assemble(chunks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "" {
		t.Errorf("partial coverage must not assemble, got %s", path)
	}

	invoker.mu.Lock()
	starts := len(invoker.args)
	invoker.mu.Unlock()
	if starts != 0 {
		t.Errorf("concat ran %d times for incomplete coverage, expected 0", starts)
	}
}

// TestAssemble_MissingFile tests that a valid status with a vanished file
// also suppresses assembly
func TestAssemble_MissingFile(t *testing.T) {
	dir := t.TempDir()
	a := New(dir, &concatInvoker{}, nil)

	chunks := validChunks(t, dir, 2)
	os.Remove(chunks[1].FilePath)

	path, err := a.Assemble(chunks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "" {
		t.Errorf("vanished chunk file must not assemble, got %s", path)
	}
}

// TestAssemble_ReplacesOldPreview tests old artifact cleanup after success
func TestAssemble_ReplacesOldPreview(t *testing.T) {
	dir := t.TempDir()
	invoker := &concatInvoker{}
	a := New(dir, invoker, nil)

	stale := filepath.Join(dir, "preview_1000.mp4")
	if err := os.WriteFile(stale, []byte("old"), 0644); err != nil {
		t.Fatalf("failed to seed old preview: %v", err)
	}

	path, err := a.Assemble(validChunks(t, dir, 2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path == "" {
		t.Fatal("expected an output path")
	}

	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("old preview file should be removed after a successful assembly")
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("new preview file missing: %v", err)
	}
}

// TestAssemble_ConcatFailure tests error propagation with the stderr tail
func TestAssemble_ConcatFailure(t *testing.T) {
	dir := t.TempDir()
	invoker := &concatInvoker{
		waitErr: os.ErrInvalid,
		stderr:  "Impossible to open 'chunk_a.mp4'\n",
	}
	a := New(dir, invoker, nil)

	path, err := a.Assemble(validChunks(t, dir, 2))
	if err == nil {
		t.Fatal("expected an error")
	}
	if path != "" {
		t.Errorf("failed assembly must not return a path, got %s", path)
	}
	if !strings.Contains(err.Error(), "Impossible to open") {
		t.Errorf("error should carry the stderr tail: %v", err)
	}
}

// TestAssemble_EmptyGrid tests the zero-chunk edge
func TestAssemble_EmptyGrid(t *testing.T) {
	a := New(t.TempDir(), &concatInvoker{}, nil)

	path, err := a.Assemble(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "" {
		t.Errorf("empty grid must not assemble, got %s", path)
	}
}
