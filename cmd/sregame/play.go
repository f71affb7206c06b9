package main

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/sregame/game"
	"github.com/m-mizutani/sregame/lifecycle"
	"github.com/m-mizutani/sregame/telemetry"
	"github.com/m-mizutani/sregame/trace"
	"github.com/m-mizutani/sregame/trace/storage"
	"github.com/urfave/cli/v3"
)

type playConfig struct {
	telemetry       telemetry.Config
	shutdownTimeout time.Duration
	graceWait       time.Duration
	traceDir        string
	traceBucket     string
	tracePrefix     string
	mapName         string
	fps             int
	maxFrames       int
}

func playCommand() *cli.Command {
	defaults := telemetry.DefaultConfig()

	return &cli.Command{
		Name:  "play",
		Usage: "Play a session headlessly, talking to every NPC of the map",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "otel-endpoint",
				Sources: cli.EnvVars("SREGAME_OTEL_ENDPOINT"),
				Usage:   "OTLP collector endpoint; telemetry is disabled when empty",
			},
			&cli.StringFlag{
				Name:    "otel-protocol",
				Value:   string(defaults.Protocol),
				Sources: cli.EnvVars("SREGAME_OTEL_PROTOCOL"),
				Usage:   "OTLP protocol (grpc, http/protobuf)",
			},
			&cli.DurationFlag{
				Name:    "metric-interval",
				Value:   defaults.MetricInterval,
				Sources: cli.EnvVars("SREGAME_METRIC_INTERVAL"),
				Usage:   "Metric export interval",
			},
			&cli.DurationFlag{
				Name:    "shutdown-timeout",
				Value:   5 * time.Second,
				Sources: cli.EnvVars("SREGAME_SHUTDOWN_TIMEOUT"),
				Usage:   "Upper bound for flushing telemetry on exit",
			},
			&cli.DurationFlag{
				Name:    "grace-wait",
				Sources: cli.EnvVars("SREGAME_GRACE_WAIT"),
				Usage:   "Extra wait after telemetry shutdown",
			},
			&cli.DurationFlag{
				Name:    "dial-timeout",
				Value:   defaults.DialTimeout,
				Sources: cli.EnvVars("SREGAME_DIAL_TIMEOUT"),
				Usage:   "Collector reachability check timeout; 0 skips the check",
			},
			&cli.StringFlag{
				Name:    "prometheus-addr",
				Sources: cli.EnvVars("SREGAME_PROMETHEUS_ADDR"),
				Usage:   "Serve a Prometheus /metrics endpoint on this address",
			},
			&cli.StringFlag{
				Name:    "trace-dir",
				Sources: cli.EnvVars("SREGAME_TRACE_DIR"),
				Usage:   "Local directory to save the session trace to",
			},
			&cli.StringFlag{
				Name:    "trace-bucket",
				Sources: cli.EnvVars("SREGAME_TRACE_BUCKET"),
				Usage:   "Google Cloud Storage bucket (name or gs:// URI) to save the session trace to",
			},
			&cli.StringFlag{
				Name:    "trace-prefix",
				Sources: cli.EnvVars("SREGAME_TRACE_PREFIX"),
				Usage:   "Google Cloud Storage object prefix",
			},
			&cli.StringFlag{
				Name:    "map",
				Value:   "town_of_endgame",
				Sources: cli.EnvVars("SREGAME_MAP"),
				Usage:   "Built-in map name or path to a map JSON file",
			},
			&cli.IntFlag{
				Name:    "fps",
				Value:   60,
				Sources: cli.EnvVars("SREGAME_FPS"),
				Usage:   "Simulated frames per second",
			},
			&cli.IntFlag{
				Name:  "max-frames",
				Value: 100000,
				Usage: "Stop after this many frames",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			tc := defaults
			tc.Endpoint = telemetry.NormalizeEndpoint(cmd.String("otel-endpoint"))
			tc.Protocol = telemetry.Protocol(cmd.String("otel-protocol"))
			tc.MetricInterval = cmd.Duration("metric-interval")
			tc.DialTimeout = cmd.Duration("dial-timeout")
			tc.PrometheusAddr = cmd.String("prometheus-addr")

			cfg := playConfig{
				telemetry:       tc,
				shutdownTimeout: cmd.Duration("shutdown-timeout"),
				graceWait:       cmd.Duration("grace-wait"),
				traceDir:        cmd.String("trace-dir"),
				traceBucket:     cmd.String("trace-bucket"),
				tracePrefix:     cmd.String("trace-prefix"),
				mapName:         cmd.String("map"),
				fps:             int(cmd.Int("fps")),
				maxFrames:       int(cmd.Int("max-frames")),
			}
			console := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
			return runPlay(ctx, cfg, console)
		},
	}
}

func loadMap(name string) (*game.MapData, error) {
	if strings.HasSuffix(name, ".json") {
		return game.LoadMapFile(name)
	}
	return game.BuiltinMap(name)
}

// traceRepository returns where the recorded session trace is saved, or nil
// when it is not persisted. The close func must be called after shutdown.
func traceRepository(ctx context.Context, cfg playConfig) (trace.Repository, func(), error) {
	if cfg.traceDir != "" && cfg.traceBucket != "" {
		return nil, nil, goerr.New("--trace-dir and --trace-bucket are mutually exclusive")
	}

	switch {
	case cfg.traceDir != "":
		return trace.NewFileRepository(cfg.traceDir), func() {}, nil

	case cfg.traceBucket != "":
		bucket, prefix := cfg.traceBucket, cfg.tracePrefix
		if strings.HasPrefix(bucket, "gs://") {
			var err error
			bucket, prefix, err = parseGSURI(bucket)
			if err != nil {
				return nil, nil, err
			}
		}
		repo, err := storage.New(ctx, bucket, storage.WithPrefix(prefix))
		if err != nil {
			return nil, nil, err
		}
		return repo, func() { _ = repo.Close() }, nil
	}

	return nil, func() {}, nil
}

func runPlay(ctx context.Context, cfg playConfig, console slog.Handler) error {
	if cfg.fps <= 0 {
		return goerr.New("fps must be positive", goerr.V("fps", cfg.fps))
	}
	dt := time.Second / time.Duration(cfg.fps)

	mapData, err := loadMap(cfg.mapName)
	if err != nil {
		return err
	}

	repo, closeRepo, err := traceRepository(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeRepo()

	opts := []lifecycle.Option{
		lifecycle.WithConsole(console),
		lifecycle.WithShutdownTimeout(cfg.shutdownTimeout),
		lifecycle.WithGraceWait(cfg.graceWait),
	}
	if repo != nil {
		opts = append(opts, lifecycle.WithTraceHandler(trace.New(
			trace.WithRepository(repo),
			trace.WithMetadata(trace.TraceMetadata{Version: cfg.telemetry.ServiceVersion}),
			trace.WithLogger(slog.New(console)),
		)))
	}

	mgr := lifecycle.New(cfg.telemetry, opts...)
	if err := mgr.Start(ctx); err != nil {
		return err
	}
	logger := mgr.Logger()

	session, err := mgr.BeginSession(ctx)
	if err != nil {
		_ = mgr.Shutdown(context.WithoutCancel(ctx))
		return err
	}

	world := game.NewWorld(mgr.Instrumentation(), session, game.WithLogger(logger))
	loadErr := world.LoadMap(mapData)
	if loadErr != nil {
		logger.Error("failed to load map", "error", loadErr)
		session.End(loadErr)
	} else {
		frames := game.Run(ctx, world, game.NewAutoplay(world, true), dt, cfg.maxFrames)
		logger.Info("autoplay finished",
			"frames", frames,
			"clock", world.Clock(),
			"interrupted", ctx.Err() != nil,
		)
	}
	world.Close()

	// The run context may already be cancelled by a signal; shutdown is
	// bounded by the shutdown timeout instead.
	if err := mgr.Shutdown(context.WithoutCancel(ctx)); err != nil {
		return goerr.Wrap(err, "telemetry shutdown incomplete")
	}
	return loadErr
}
