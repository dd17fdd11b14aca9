// Package flightrecorder snapshots runtime execution traces when a request
// overruns its timeout budget. The LLM-backed routes are the usual suspects,
// and a trace of the seconds leading up to the timeout beats guessing.
package flightrecorder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/trace"
	"sync/atomic"
	"time"
)

const (
	defaultMinAge   = 5 * time.Minute
	defaultMaxBytes = 64 * 1024 * 1024

	// captureCooldown spaces out trace files so a burst of slow requests
	// does not fill the disk with near-identical snapshots.
	captureCooldown = 30 * time.Minute
)

// Service wraps a runtime trace.FlightRecorder with a traces directory and a
// capture cooldown.
type Service struct {
	logger          *slog.Logger
	recorder        *trace.FlightRecorder
	tracesDirectory string
	minAge          time.Duration
	maxBytes        uint64
	lastCaptureUnix atomic.Int64
}

// Config configures the flight recorder. Zero MinAge and MaxBytes pick the
// defaults; TracesDirectory is required and created when missing.
type Config struct {
	Logger          *slog.Logger
	MinAge          time.Duration
	MaxBytes        uint64
	TracesDirectory string
}

func New(cfg Config) (*Service, error) {
	if cfg.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if cfg.TracesDirectory == "" {
		return nil, errors.New("traces directory is required")
	}

	if stat, err := os.Stat(cfg.TracesDirectory); err != nil {
		if err = os.MkdirAll(cfg.TracesDirectory, 0500); err != nil {
			return nil, fmt.Errorf("create traces directory: %w", err)
		}
	} else if !stat.IsDir() {
		return nil, fmt.Errorf("traces path is not a directory: %s", cfg.TracesDirectory)
	}

	minAge := cfg.MinAge
	if minAge == 0 {
		minAge = defaultMinAge
	}
	maxBytes := cfg.MaxBytes
	if maxBytes == 0 {
		maxBytes = defaultMaxBytes
	}

	recorder := trace.NewFlightRecorder(trace.FlightRecorderConfig{
		MinAge:   minAge,
		MaxBytes: maxBytes,
	})
	if recorder == nil {
		return nil, errors.New("create flight recorder")
	}

	return &Service{
		logger:          cfg.Logger,
		recorder:        recorder,
		tracesDirectory: cfg.TracesDirectory,
		minAge:          minAge,
		maxBytes:        maxBytes,
		lastCaptureUnix: atomic.Int64{},
	}, nil
}

// Start begins buffering trace events in memory.
func (s *Service) Start(ctx context.Context) error {
	if err := s.recorder.Start(); err != nil {
		return fmt.Errorf("start flight recorder: %w", err)
	}

	s.logger.LogAttrs(ctx, slog.LevelInfo, "flight recorder started",
		slog.Duration("min_age", s.minAge),
		slog.Uint64("max_bytes", s.maxBytes),
		slog.Duration("cooldown", captureCooldown))
	return nil
}

// Stop ends flight recording.
func (s *Service) Stop(ctx context.Context) {
	s.recorder.Stop()
	s.logger.LogAttrs(ctx, slog.LevelInfo, "flight recorder stopped")
}

// CaptureTimeoutTrace writes the buffered trace to a timestamped file in the
// traces directory. At most one capture per cooldown window; concurrent
// callers race on a compare-and-swap and the losers return without writing.
func (s *Service) CaptureTimeoutTrace(ctx context.Context) {
	now := time.Now()
	last := s.lastCaptureUnix.Load()
	if last > 0 && now.Sub(time.Unix(last, 0)) < captureCooldown {
		s.logger.LogAttrs(ctx, slog.LevelDebug, "trace capture skipped during cooldown",
			slog.Time("last_capture", time.Unix(last, 0)))
		return
	}
	if !s.lastCaptureUnix.CompareAndSwap(last, now.Unix()) {
		return
	}

	filename := fmt.Sprintf("timeout-%s.trace", now.UTC().Format("20060102-150405"))
	fPath := filepath.Join(s.tracesDirectory, filename)

	file, err := os.Create(fPath)
	if err != nil {
		s.logger.LogAttrs(ctx, slog.LevelError, "failed to create trace file",
			slog.String("file", fPath), slog.Any("error", err))
		return
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			s.logger.LogAttrs(ctx, slog.LevelError, "failed to close trace file",
				slog.String("file", fPath), slog.Any("error", closeErr))
		}
	}()

	bytesWritten, err := s.recorder.WriteTo(file)
	if err != nil {
		s.logger.LogAttrs(ctx, slog.LevelError, "failed to write trace",
			slog.String("file", fPath), slog.Any("error", err))
		return
	}

	s.logger.LogAttrs(ctx, slog.LevelWarn, "captured timeout trace",
		slog.String("file", fPath), slog.Int64("bytes", bytesWritten))
}
