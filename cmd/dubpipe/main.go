// Command dubpipe is the entry point for the dubbing voice pipeline worker.
//
// With -job it runs one synthesis-and-mux job described by a JSON file and
// exits; without it, it wires the full pipeline, serves the metrics
// endpoint, and waits for shutdown (the job layer invokes it externally).
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bekzodm/dubpipe/internal/audiofx"
	"github.com/bekzodm/dubpipe/internal/clipper"
	"github.com/bekzodm/dubpipe/internal/config"
	"github.com/bekzodm/dubpipe/internal/metricstore"
	"github.com/bekzodm/dubpipe/internal/observe"
	"github.com/bekzodm/dubpipe/internal/synth"
	"github.com/bekzodm/dubpipe/pkg/lock"
	"github.com/bekzodm/dubpipe/pkg/media"
	"github.com/bekzodm/dubpipe/pkg/provider/tts"
	"github.com/bekzodm/dubpipe/pkg/provider/tts/edge"
	"github.com/bekzodm/dubpipe/pkg/provider/tts/elevenlabs"
	"github.com/bekzodm/dubpipe/pkg/provider/tts/playht"
	"github.com/bekzodm/dubpipe/pkg/provider/tts/xtts"
	"github.com/bekzodm/dubpipe/pkg/types"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	jobPath := flag.String("job", "", "path to a JSON job file; run it and exit")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "dubpipe: config file %q not found\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "dubpipe: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("dubpipe starting",
		"config", *configPath,
		"storage_root", cfg.Storage.Root,
		"lock_backend", cfg.Locking.Backend,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	shutdownTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(sctx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Database (metrics store, postgres locking) ────────────────────────────
	var pool *pgxpool.Pool
	if cfg.Database.PostgresDSN != "" {
		pool, err = pgxpool.New(ctx, cfg.Database.PostgresDSN)
		if err != nil {
			slog.Error("failed to connect to postgres", "err", err)
			return 1
		}
		defer pool.Close()
	}

	// ── Lock service ──────────────────────────────────────────────────────────
	locker, err := buildLocker(ctx, cfg, pool)
	if err != nil {
		slog.Error("failed to build lock service", "err", err)
		return 1
	}

	// ── Quality metric store ──────────────────────────────────────────────────
	store, err := buildMetricStore(ctx, pool)
	if err != nil {
		slog.Error("failed to build metric store", "err", err)
		return 1
	}

	// ── Providers ─────────────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg, cfg)

	providers, err := synth.BuildProviders(reg, cfg.Providers)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	// ── Pipeline ──────────────────────────────────────────────────────────────
	runner := media.NewFFmpeg()
	processor := audiofx.NewProcessor(runner)

	var naturalOpts []audiofx.NaturalOption
	if cfg.Storage.BreathSampleDir != "" {
		naturalOpts = append(naturalOpts, audiofx.WithSampleDir(cfg.Storage.BreathSampleDir))
	}
	natural := audiofx.NewNaturalSpeech(runner, naturalOpts...)

	manager, err := synth.NewManager(providers, cfg.Providers.Default, cfg.Storage.Root,
		synth.WithProcessor(processor),
		synth.WithNaturalSpeech(natural),
		synth.WithMetricStore(store),
		synth.WithMetrics(observe.DefaultMetrics()),
	)
	if err != nil {
		slog.Error("failed to build synthesis manager", "err", err)
		return 1
	}

	clips := clipper.New(runner, locker, cfg.Storage.Root,
		clipper.WithChunkLength(cfg.Storage.ChunkLength),
		clipper.WithMetrics(observe.DefaultMetrics()),
	)

	printStartupSummary(cfg, providers)

	// ── One-shot job mode ─────────────────────────────────────────────────────
	if *jobPath != "" {
		if err := runJob(ctx, manager, clips, *jobPath); err != nil {
			slog.Error("job failed", "job", *jobPath, "err", err)
			return 1
		}
		return 0
	}

	// ── Metrics endpoint ──────────────────────────────────────────────────────
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	addr := cfg.Server.ListenAddr
	if addr == "" {
		addr = ":9090"
	}
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics endpoint error", "err", err)
			stop()
		}
	}()

	slog.Info("worker ready — press Ctrl+C to shut down", "metrics_addr", addr)
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("shutdown signal received, stopping…")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("metrics endpoint shutdown error", "err", err)
	}
	slog.Info("goodbye")
	return 0
}

// ── Job mode ──────────────────────────────────────────────────────────────────

// job describes one synthesis-and-mux unit of work, as handed over by the
// external job layer.
type job struct {
	Speaker    types.Speaker `json:"speaker"`
	Segment    types.Segment `json:"segment"`
	UsedVoices []string      `json:"used_voices"`

	// SkipClip stops after synthesis, leaving the mux to a later job.
	SkipClip bool `json:"skip_clip"`
}

func runJob(ctx context.Context, manager *synth.Manager, clips *clipper.Service, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read job: %w", err)
	}
	var j job
	if err := json.Unmarshal(data, &j); err != nil {
		return fmt.Errorf("decode job: %w", err)
	}

	res, err := manager.SynthesizeSegment(ctx, j.Speaker, j.Segment, j.UsedVoices)
	if err != nil {
		return err
	}
	slog.Info("segment synthesized",
		"segment", j.Segment.ID,
		"audio", res.AudioPath,
		"emotion", res.Direction.Emotion,
		"intensity", fmt.Sprintf("%.2f", res.Direction.Intensity),
		"stretch", res.StretchFactor,
	)

	if j.SkipClip {
		return nil
	}
	clip, err := clips.GetOrGenerate(ctx, j.Segment, res.AudioPath)
	if err != nil {
		return err
	}
	slog.Info("clip ready", "segment", j.Segment.ID, "clip", clip)
	return nil
}

// ── Wiring helpers ────────────────────────────────────────────────────────────

func buildLocker(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) (lock.Locker, error) {
	switch cfg.Locking.Backend {
	case config.LockMemory, "":
		return lock.NewMemory(), nil
	case config.LockRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Locking.RedisAddr,
			Password: cfg.Locking.RedisPassword,
			DB:       cfg.Locking.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		return lock.NewRedis(client), nil
	case config.LockPostgres:
		if pool == nil {
			return nil, errors.New("postgres locking requires database.postgres_dsn")
		}
		pg := lock.NewPostgres(pool)
		if err := pg.CreateSchema(ctx); err != nil {
			return nil, err
		}
		return pg, nil
	default:
		return nil, fmt.Errorf("unknown lock backend %q", cfg.Locking.Backend)
	}
}

func buildMetricStore(ctx context.Context, pool *pgxpool.Pool) (metricstore.Store, error) {
	if pool == nil {
		return metricstore.NewMemory(), nil
	}
	pg := metricstore.NewPostgres(pool)
	if err := pg.CreateSchema(ctx); err != nil {
		return nil, err
	}
	return pg, nil
}

// registerBuiltinProviders wires the shipped TTS drivers into reg.
func registerBuiltinProviders(reg *config.Registry, cfg *config.Config) {
	reg.Register("edge", func(entry config.ProviderEntry) (tts.Provider, error) {
		var opts []edge.Option
		if bin := optString(entry.Options, "binary"); bin != "" {
			opts = append(opts, edge.WithBinary(bin))
		}
		return edge.New(opts...), nil
	})

	reg.Register("elevenlabs", func(entry config.ProviderEntry) (tts.Provider, error) {
		var opts []elevenlabs.Option
		if model := optString(entry.Options, "model"); model != "" {
			opts = append(opts, elevenlabs.WithModel(model))
		}
		return elevenlabs.New(entry.APIKey, opts...)
	})

	reg.Register("playht", func(entry config.ProviderEntry) (tts.Provider, error) {
		return playht.New(entry.UserID, entry.APIKey)
	})

	reg.Register("xtts", func(entry config.ProviderEntry) (tts.Provider, error) {
		opts := []xtts.Option{xtts.WithStorageRoot(cfg.Storage.Root)}
		return xtts.New(entry.BaseURL, opts...)
	})
}

// optString reads a string value from a provider Options map.
func optString(options map[string]any, key string) string {
	if options == nil {
		return ""
	}
	if v, ok := options[key].(string); ok {
		return v
	}
	return ""
}

func printStartupSummary(cfg *config.Config, providers map[string]tts.Provider) {
	names := make([]string, 0, len(providers))
	for name, p := range providers {
		label := name
		if p.SupportsVoiceCloning() {
			label += "+clone"
		}
		names = append(names, label)
	}
	slog.Info("pipeline ready",
		"providers", names,
		"default_provider", cfg.Providers.Default,
		"chunk_length_s", cfg.Storage.ChunkLength,
		"prefetch", cfg.Prefetch.Count,
	)
}

func newLogger(level config.LogLevel) *slog.Logger {
	var l slog.Level
	switch level {
	case config.LogDebug:
		l = slog.LevelDebug
	case config.LogWarn:
		l = slog.LevelWarn
	case config.LogError:
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}
