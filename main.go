package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/joho/godotenv"

	"previewer/cache"
	"previewer/config"
	"previewer/engine"
	"previewer/ffmpeg"
	"previewer/internal/logging"
	"previewer/internal/timeutil"
	"previewer/metrics"
	"previewer/models"
)

func main() {
	// A .env file feeds the PREVIEWER_* overrides; absence is fine.
	godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	tl, err := loadTimeline(cfg.Timeline)
	if err != nil {
		fmt.Fprintf(os.Stderr, "timeline error: %v\n", err)
		os.Exit(1)
	}

	if cfg.DryRun {
		if err := printPlan(cfg, tl); err != nil {
			fmt.Fprintf(os.Stderr, "dry run failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	var meter *metrics.Metrics
	if cfg.MetricsAddr != "" {
		meter = metrics.New()
		mux := http.NewServeMux()
		mux.Handle("/metrics", meter.Handler())
		go func() {
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				logger.Warn("metrics endpoint failed", "addr", cfg.MetricsAddr, "error", err)
			}
		}()
		logger.Info("metrics endpoint listening", "addr", cfg.MetricsAddr)
	}

	eng := engine.New(engine.Options{
		CacheDir:             cfg.CacheDir,
		OutputDir:            cfg.OutputDir,
		ChunkDuration:        cfg.ChunkDuration,
		MaxConcurrentRenders: cfg.MaxConcurrentRenders,
		FrameCacheCapacity:   cfg.FrameCacheCapacity,
		ScrubWindow:          cfg.ScrubWindow,
		Preset:               cfg.Render.Preset,
		ComplexPreset:        cfg.Render.ComplexPreset,
		CRF:                  cfg.Render.CRF,
	}, ffmpeg.NewExecInvoker(cfg.FFmpegPath), logger, meter)
	defer eng.Dispose()

	if err := eng.Initialize(tl, cfg.Project); err != nil {
		fmt.Fprintf(os.Stderr, "initialization failed: %v\n", err)
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	previewPath, interrupted := runToCompletion(eng, sigChan, logger)

	printStatus(eng.Status())
	if interrupted {
		os.Exit(130)
	}
	if previewPath == "" {
		fmt.Fprintln(os.Stderr, "preview incomplete; see the log for failed chunks")
		os.Exit(1)
	}
	fmt.Printf("\npreview ready: %s\n", previewPath)
}

// runToCompletion consumes engine events until the preview is assembled,
// the grid settles with failures, or the user interrupts.
func runToCompletion(eng *engine.Engine, sigChan <-chan os.Signal, logger *slog.Logger) (previewPath string, interrupted bool) {
	started := time.Now()

	for {
		select {
		case <-sigChan:
			logger.Warn("interrupt received, cancelling renders")
			return "", true

		case ev, ok := <-eng.Events():
			if !ok {
				return "", false
			}

			switch ev.Type {
			case engine.EventChunkStatus:
				if ev.Status == models.ChunkValid {
					st := eng.Status()
					logger.Info("chunk ready",
						"chunk", ev.ChunkIndex, "done", st.ValidChunks, "total", st.TotalChunks)
				}
			case engine.EventRenderError:
				logger.Warn("render failed", "chunk", ev.ChunkIndex, "error", ev.Err)
			case engine.EventPreviewReady:
				logger.Info("preview assembled",
					"path", ev.PreviewPath, "elapsed", time.Since(started).Round(time.Millisecond))
				return ev.PreviewPath, false
			}

			// A grid that settled with failures will never assemble.
			st := eng.Status()
			if st.TotalChunks > 0 &&
				st.ValidChunks+st.ErrorChunks == st.TotalChunks && st.ErrorChunks > 0 &&
				st.QueuedRenders == 0 && st.ActiveRenders == 0 {
				return "", false
			}
		}
	}
}

// loadTimeline reads and sanity-checks a timeline snapshot.
func loadTimeline(path string) (*models.Timeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var tl models.Timeline
	if err := json.Unmarshal(data, &tl); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}

	if tl.Duration <= 0 {
		return nil, fmt.Errorf("snapshot duration must be positive, got %g", tl.Duration)
	}
	if tl.Settings.Width <= 0 || tl.Settings.Height <= 0 || tl.Settings.FrameRate <= 0 {
		return nil, fmt.Errorf("snapshot is missing project settings")
	}
	return &tl, nil
}

// printPlan renders the chunk plan without touching the real cache: grid,
// windows, content hashes and complexity classification.
func printPlan(cfg *config.Config, tl *models.Timeline) error {
	tmpDir, err := os.MkdirTemp("", "previewer-plan-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmpDir)

	planCache := cache.NewChunkCache(tmpDir, cfg.ChunkDuration, nil)
	chunks, err := planCache.Initialize(tl, cfg.Project)
	if err != nil {
		return err
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"chunk", "window", "content hash", "complex"})

	complexCount := 0
	for _, chunk := range chunks {
		if chunk.IsComplex {
			complexCount++
		}
		tw.AppendRow(table.Row{
			chunk.Index,
			fmt.Sprintf("%s - %s",
				timeutil.FormatSeconds(chunk.StartTime), timeutil.FormatSeconds(chunk.EndTime)),
			chunk.ContentHash[:12],
			chunk.IsComplex,
		})
	}
	tw.Render()

	fmt.Printf("\n%d chunks (%d complex) at %gs each, cache %s\n",
		len(chunks), complexCount, cfg.ChunkDuration, cfg.CacheDir)
	fmt.Println("dry run: no encoding performed")
	return nil
}

// printStatus renders the session summary table.
func printStatus(st engine.Status) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"session", "chunks", "valid", "errors", "cached size"})
	tw.AppendRow(table.Row{
		st.SessionID,
		st.TotalChunks,
		st.ValidChunks,
		st.ErrorChunks,
		fmt.Sprintf("%.1f MiB", float64(st.CacheStats.TotalSize)/(1024*1024)),
	})
	tw.Render()
}
