// Package clipper generates and caches per-segment video clips: the
// unmodified visual track muxed with the synthesized audio (or, when no
// synthesis exists, the original audio trimmed to the slot). Generation of
// one segment is serialized across workers by a named TTL lock.
package clipper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bekzodm/dubpipe/internal/observe"
	"github.com/bekzodm/dubpipe/pkg/lock"
	"github.com/bekzodm/dubpipe/pkg/media"
	"github.com/bekzodm/dubpipe/pkg/types"
)

// ErrNotReady means the clip is not available yet: a peer holds the
// generation lock and did not finish within the wait bound. Transient —
// the caller should retry later, not treat this as a failure.
var ErrNotReady = errors.New("clipper: clip not ready yet")

const (
	// DefaultChunkLength buckets segments into chunk files by start time.
	DefaultChunkLength = 12.0 // seconds

	defaultWaitInterval = 500 * time.Millisecond

	// minClipBytes guards against truncated muxes.
	minClipBytes = 1000
)

// Option is a functional option for configuring the Service.
type Option func(*Service)

// WithChunkLength overrides the chunk bucket length in seconds.
func WithChunkLength(seconds float64) Option {
	return func(s *Service) { s.chunkLength = seconds }
}

// WithWait overrides the busy-wait interval and bound for lock losers.
func WithWait(interval, bound time.Duration) Option {
	return func(s *Service) {
		s.waitInterval = interval
		s.waitBound = bound
	}
}

// WithSourceResolver overrides how the original video file is located.
func WithSourceResolver(fn func(videoID int64) string) Option {
	return func(s *Service) { s.sourceFor = fn }
}

// WithLogger overrides the default logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) { s.log = log }
}

// WithMetrics sets the telemetry instruments.
func WithMetrics(met *observe.Metrics) Option {
	return func(s *Service) { s.metrics = met }
}

// Service is the per-segment clip generator. Safe for concurrent use; all
// shared state lives in the locker and on disk.
type Service struct {
	runner media.Runner
	locker lock.Locker
	root   string

	chunkLength  float64
	waitInterval time.Duration
	waitBound    time.Duration
	sourceFor    func(videoID int64) string
	log          *slog.Logger
	metrics      *observe.Metrics
}

// New creates a Service rooted at the storage directory.
func New(runner media.Runner, locker lock.Locker, root string, opts ...Option) *Service {
	s := &Service{
		runner:       runner,
		locker:       locker,
		root:         root,
		chunkLength:  DefaultChunkLength,
		waitInterval: defaultWaitInterval,
		waitBound:    lock.SegmentTTL,
		log:          slog.Default(),
	}
	s.sourceFor = func(videoID int64) string {
		return filepath.Join(s.root, "sources", fmt.Sprintf("%d.mp4", videoID))
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ChunkIndex returns the chunk bucket for a segment start time.
func (s *Service) ChunkIndex(startTime float64) int {
	return int(math.Floor(startTime / s.chunkLength))
}

func (s *Service) chunkPath(seg types.Segment) string {
	return filepath.Join(s.root, "chunks", fmt.Sprintf("%d", seg.VideoID),
		fmt.Sprintf("seg_%d.mp4", s.ChunkIndex(seg.StartTime)))
}

func (s *Service) legacyPath(seg types.Segment) string {
	return filepath.Join(s.root, "segments", fmt.Sprintf("%d", seg.VideoID),
		fmt.Sprintf("seg_%d.mp4", seg.ID))
}

// readyPath returns the existing clip path. Chunk addressing wins over the
// legacy per-segment layout.
func (s *Service) readyPath(seg types.Segment) (string, bool) {
	for _, path := range []string{s.chunkPath(seg), s.legacyPath(seg)} {
		if st, err := os.Stat(path); err == nil && st.Size() > 0 {
			return path, true
		}
	}
	return "", false
}

// IsReady reports whether a playable clip already exists for the segment.
func (s *Service) IsReady(seg types.Segment) bool {
	_, ok := s.readyPath(seg)
	return ok
}

// IsGenerating reports whether a peer currently holds the segment's
// generation lock.
func (s *Service) IsGenerating(ctx context.Context, seg types.Segment) (bool, error) {
	return s.locker.Held(ctx, lock.SegmentKey(seg.ID))
}

// GetOrGenerate returns the clip path, generating it if needed. Exactly one
// caller generates; the rest wait for readiness on a coarse interval up to
// the lock bound and get ErrNotReady if it elapses. Ready clips are never
// regenerated.
func (s *Service) GetOrGenerate(ctx context.Context, seg types.Segment, audioPath string) (string, error) {
	if path, ok := s.readyPath(seg); ok {
		return path, nil
	}

	key := lock.SegmentKey(seg.ID)
	acquired, err := s.locker.Acquire(ctx, key, lock.SegmentTTL)
	if err != nil {
		return "", fmt.Errorf("clipper: acquire lock: %w", err)
	}

	if acquired {
		defer func() {
			if err := s.locker.Release(context.WithoutCancel(ctx), key); err != nil {
				s.log.Warn("clipper: lock release failed", "key", key, "error", err)
			}
		}()
		// A peer may have finished between our readiness check and the
		// lock grant.
		if path, ok := s.readyPath(seg); ok {
			return path, nil
		}
		return s.Generate(ctx, seg, audioPath)
	}

	return s.awaitReady(ctx, seg)
}

// awaitReady polls readiness while a peer generates.
func (s *Service) awaitReady(ctx context.Context, seg types.Segment) (string, error) {
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.LockWaitDuration.Record(ctx, time.Since(start).Seconds())
		}
	}()

	deadline := time.NewTimer(s.waitBound)
	defer deadline.Stop()
	tick := time.NewTicker(s.waitInterval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-deadline.C:
			return "", ErrNotReady
		case <-tick.C:
			if path, ok := s.readyPath(seg); ok {
				return path, nil
			}
		}
	}
}

// Generate muxes the clip unconditionally. The visual track is copied
// untouched; the audio is the synthesized clip when audioPath names an
// existing file, otherwise the original audio trimmed to the slot. A
// partial output never survives a failure.
func (s *Service) Generate(ctx context.Context, seg types.Segment, audioPath string) (path string, err error) {
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordClip(ctx, time.Since(start), err)
		}
	}()

	source := s.sourceFor(seg.VideoID)
	if _, err := os.Stat(source); err != nil {
		return "", fmt.Errorf("clipper: source video for %d: %w", seg.VideoID, err)
	}

	out := s.chunkPath(seg)
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return "", fmt.Errorf("clipper: create clip dir: %w", err)
	}

	duration := seg.SlotDuration()
	var args []string
	if audioPath != "" {
		if _, err := os.Stat(audioPath); err != nil {
			return "", fmt.Errorf("clipper: synthesized audio: %w", err)
		}
		args = []string{
			"-ss", fmt.Sprintf("%.3f", seg.StartTime),
			"-t", fmt.Sprintf("%.3f", duration),
			"-i", source,
			"-i", audioPath,
			"-map", "0:v", "-map", "1:a",
			"-c:v", "copy", "-c:a", "aac",
			"-shortest",
			out,
		}
	} else {
		args = []string{
			"-ss", fmt.Sprintf("%.3f", seg.StartTime),
			"-t", fmt.Sprintf("%.3f", duration),
			"-i", source,
			"-map", "0:v", "-map", "0:a?",
			"-c:v", "copy", "-c:a", "aac",
			out,
		}
	}

	if err := s.runner.Run(ctx, args...); err != nil {
		os.Remove(out)
		return "", fmt.Errorf("clipper: mux segment %d: %w", seg.ID, err)
	}
	st, err := os.Stat(out)
	if err != nil || st.Size() < minClipBytes {
		os.Remove(out)
		return "", fmt.Errorf("clipper: mux produced no usable clip for segment %d", seg.ID)
	}

	s.log.Info("clipper: clip generated", "segment", seg.ID, "video", seg.VideoID, "path", out)
	return out, nil
}

// SegmentsToPrefetch selects up to n segments after the current one, by
// start time, that are neither ready nor being generated. A hint list for
// caller-driven warm-up; nothing is scheduled here.
func (s *Service) SegmentsToPrefetch(ctx context.Context, current types.Segment, all []types.Segment, n int) ([]types.Segment, error) {
	ordered := make([]types.Segment, len(all))
	copy(ordered, all)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].StartTime < ordered[j].StartTime })

	var out []types.Segment
	for _, seg := range ordered {
		if len(out) >= n {
			break
		}
		if seg.StartTime <= current.StartTime {
			continue
		}
		if s.IsReady(seg) {
			continue
		}
		generating, err := s.IsGenerating(ctx, seg)
		if err != nil {
			return nil, fmt.Errorf("clipper: prefetch check: %w", err)
		}
		if generating {
			continue
		}
		out = append(out, seg)
	}
	return out, nil
}

// WarmUp generates the given segments concurrently. ErrNotReady from a
// peer race is not a failure; real generation errors are collected.
func (s *Service) WarmUp(ctx context.Context, segs []types.Segment, audioFor func(types.Segment) string, parallelism int) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for _, seg := range segs {
		seg := seg
		g.Go(func() error {
			audio := ""
			if audioFor != nil {
				audio = audioFor(seg)
			}
			_, err := s.GetOrGenerate(ctx, seg, audio)
			if errors.Is(err, ErrNotReady) {
				return nil
			}
			return err
		})
	}
	return g.Wait()
}
