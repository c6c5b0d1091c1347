package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"geotrail/internal/adapter/slot"
	"geotrail/internal/adapter/source"
	"geotrail/internal/domain"
	"geotrail/internal/geo"
	"geotrail/internal/history"
	"geotrail/internal/infra/config"
	"geotrail/internal/infra/logger"
	"geotrail/internal/infra/tracer"
	"geotrail/internal/staticmap"
	"geotrail/internal/usecase/tracking"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "--help", "-h", "help":
			showUsage()
			return
		}
	}

	cmd := "watch"
	if len(os.Args) >= 2 {
		cmd = os.Args[1]
	}

	var err error
	switch cmd {
	case "once":
		err = withApp(runOnce)
	case "watch":
		err = withApp(runWatch)
	case "stats":
		err = withApp(runStats)
	case "map":
		err = withApp(runMap)
	case "clear":
		err = withApp(runClear)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\nRun 'geotrail --help' for usage information.\n", cmd)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", cmd, err)
		os.Exit(1)
	}
}

func showUsage() {
	fmt.Println(`geotrail - Location acquisition and trail history engine

USAGE:
    geotrail [COMMAND]

COMMANDS:
    once        Acquire a single position fix and print it
    watch       Watch continuously until interrupted (default)
    stats       Print trail statistics from the stored history
    map         Print static map URLs for the current trail
    clear       Clear the stored history

FLAGS:
    -h, --help  Show this help message

CONFIGURATION:
    Config file: ./config.yaml
    Environment: GEOTRAIL_* variables override config`)
}

// app bundles everything the subcommands need.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	session *tracking.Session
}

// withApp loads configuration, wires logger, tracer, storage, source
// and session, runs fn and tears everything down.
func withApp(fn func(ctx context.Context, a *app) error) error {
	cfg, err := config.Load(configPath())
	if err != nil {
		return err
	}

	log, closeLog, err := logger.New(cfg.Logger)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx := context.Background()
	shutdownTracer, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		return err
	}
	defer shutdownTracer(ctx)

	historySlot, err := buildSlot(cfg.Storage)
	if err != nil {
		return err
	}
	defer historySlot.Close()

	src, err := buildSource(cfg.Source, log)
	if err != nil {
		return err
	}

	store := history.NewStore(cfg.Tracking.HistoryCapacity, historySlot, log)
	session := tracking.NewSession(src, store, tracking.ControllerConfig{
		HighAccuracy:   cfg.Tracking.HighAccuracy,
		RequestTimeout: cfg.Tracking.RequestTimeout,
		MaxSampleAge:   cfg.Tracking.MaxSampleAge,
	}, log)

	return fn(ctx, &app{cfg: cfg, logger: log, session: session})
}

func configPath() string {
	for i, arg := range os.Args {
		if arg == "--config" && i+1 < len(os.Args) {
			return os.Args[i+1]
		}
	}
	return "./config.yaml"
}

// buildSlot selects the durable slot backend.
func buildSlot(cfg config.StorageConfig) (slot.Slot, error) {
	name := cfg.SlotName
	switch cfg.Backend {
	case "file":
		return slot.NewFileSlot(cfg.Dir, name)
	case "sqlite":
		return slot.NewSQLiteSlot(cfg.DBPath, name)
	case "memory":
		return slot.NewMemorySlot(name), nil
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Backend)
	}
}

// buildSource selects the position source implementation.
func buildSource(cfg config.SourceConfig, log *slog.Logger) (source.PositionSource, error) {
	switch cfg.Type {
	case "simulated":
		return source.NewSimulated(source.SimulatedConfig{
			StartLatitude:  cfg.Simulated.StartLatitude,
			StartLongitude: cfg.Simulated.StartLongitude,
			StepMeters:     cfg.Simulated.StepMeters,
			Interval:       cfg.Simulated.Interval,
			Seed:           cfg.Simulated.Seed,
		}, log), nil
	case "replay":
		return source.LoadReplay(cfg.Replay.TrailPath, cfg.Replay.Interval, cfg.Replay.Loop)
	default:
		return nil, fmt.Errorf("unknown source type: %s", cfg.Type)
	}
}

func runOnce(ctx context.Context, a *app) error {
	sample, err := a.session.GetCurrentPosition(ctx)
	if err != nil {
		return err
	}
	printSample(sample)
	return nil
}

func runWatch(ctx context.Context, a *app) error {
	unsubscribe := a.session.OnLocationUpdate(func(sample domain.PositionSample) {
		printSample(sample)
	})
	defer unsubscribe()

	if state := a.session.StartWatching(ctx); state == domain.StateError {
		if f := a.session.LastFailure(); f != nil {
			return f
		}
		return fmt.Errorf("watch failed to start")
	}
	defer a.session.StopWatching()

	a.logger.Info("watching, press Ctrl+C to stop")
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	return nil
}

func runStats(ctx context.Context, a *app) error {
	st := a.session.Stats()
	if st.Count == 0 {
		fmt.Println("no history")
		return nil
	}

	fmt.Printf("samples:   %d\n", st.Count)
	fmt.Printf("distance:  %.3f km\n", st.DistanceKm)
	fmt.Printf("area:      %.6f\n", st.AreaApprox)
	fmt.Printf("center:    %s, %s\n",
		geo.FormatDMS(st.Bounds.Center.Latitude),
		geo.FormatDMS(st.Bounds.Center.Longitude))
	fmt.Printf("northeast: %.6f, %.6f\n", st.Bounds.NorthEast.Latitude, st.Bounds.NorthEast.Longitude)
	fmt.Printf("southwest: %.6f, %.6f\n", st.Bounds.SouthWest.Latitude, st.Bounds.SouthWest.Longitude)
	return nil
}

func runMap(ctx context.Context, a *app) error {
	trail := a.session.History()
	if len(trail) == 0 {
		fmt.Println("no history")
		return nil
	}

	builder := staticmap.New("")
	size := staticmap.Size{Width: 600, Height: 400}
	latest := trail[len(trail)-1]

	fmt.Printf("position: %s\n", builder.PositionURL(latest, size))
	fmt.Printf("trail:    %s\n", builder.TrailURL(trail, size))
	return nil
}

func runClear(ctx context.Context, a *app) error {
	a.session.ClearHistory()
	fmt.Println("history cleared")
	return nil
}

func printSample(s domain.PositionSample) {
	fmt.Printf("%s  %s, %s  ±%.0fm (%s)  tz~%s\n",
		s.Time().Format("15:04:05"),
		geo.FormatDMS(s.Latitude),
		geo.FormatDMS(s.Longitude),
		s.Accuracy,
		geo.LevelForAccuracy(s.Accuracy),
		geo.TimezoneOffsetEstimate(s.Longitude),
	)
}
