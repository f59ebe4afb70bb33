// Package ffmpeg defines the external encoder invocation contract and parses
// the encoder's diagnostic stream.
//
// The preview pipeline never shells out directly; every component that needs
// a process goes through an Invoker, so tests substitute fakes and the
// scheduler can kill in-flight work.
package ffmpeg

import (
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
)

// DiagnosticTailLimit is how many trailing characters of the diagnostic
// stream are preserved for error reporting.
const DiagnosticTailLimit = 500

// Process is one running encoder invocation.
type Process interface {
	// Stdout returns the process standard output. Frame and audio
	// extraction read raw bytes from it.
	Stdout() io.Reader

	// Stderr returns the line-oriented diagnostic stream.
	Stderr() io.Reader

	// Wait blocks until the process exits. Returns nil on exit code 0.
	Wait() error

	// Kill forcibly terminates the process. Wait still must be called.
	Kill() error
}

// Invoker starts encoder processes from an ordered argument vector.
type Invoker interface {
	Start(args []string) (Process, error)
}

// ExecInvoker runs the configured ffmpeg binary via os/exec.
type ExecInvoker struct {
	binary string
}

// NewExecInvoker creates an invoker for the given binary path.
// An empty path defaults to "ffmpeg" resolved from PATH.
func NewExecInvoker(binary string) *ExecInvoker {
	if strings.TrimSpace(binary) == "" {
		binary = "ffmpeg"
	}
	return &ExecInvoker{binary: binary}
}

// Start implements Invoker.
func (e *ExecInvoker) Start(args []string) (Process, error) {
	cmd := exec.Command(e.binary, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", e.binary, err)
	}

	return &execProcess{cmd: cmd, stdout: stdout, stderr: stderr}, nil
}

type execProcess struct {
	cmd    *exec.Cmd
	stdout io.Reader
	stderr io.Reader

	waitOnce sync.Once
	waitErr  error
}

func (p *execProcess) Stdout() io.Reader { return p.stdout }
func (p *execProcess) Stderr() io.Reader { return p.stderr }

func (p *execProcess) Wait() error {
	p.waitOnce.Do(func() {
		p.waitErr = p.cmd.Wait()
	})
	return p.waitErr
}

func (p *execProcess) Kill() error {
	if p.cmd.Process == nil {
		return nil
	}
	return p.cmd.Process.Kill()
}

// Tail returns the last DiagnosticTailLimit characters of s.
func Tail(s string) string {
	if len(s) <= DiagnosticTailLimit {
		return s
	}
	return s[len(s)-DiagnosticTailLimit:]
}
