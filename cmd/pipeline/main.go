package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/freightdata/pipeline/internal/clean"
	"github.com/freightdata/pipeline/internal/config"
	"github.com/freightdata/pipeline/internal/database"
	"github.com/freightdata/pipeline/internal/detect"
	"github.com/freightdata/pipeline/internal/extract"
	"github.com/freightdata/pipeline/internal/lease"
	"github.com/freightdata/pipeline/internal/model"
	"github.com/freightdata/pipeline/internal/notify"
	"github.com/freightdata/pipeline/internal/pipeline"
	"github.com/freightdata/pipeline/internal/retry"
	"github.com/freightdata/pipeline/internal/schedule"
	"github.com/freightdata/pipeline/internal/source"
	"github.com/freightdata/pipeline/internal/store"
	"github.com/freightdata/pipeline/internal/version"
	"github.com/freightdata/pipeline/internal/warehouse"
)

func main() {
	configPath := flag.String("config", "configs/pipeline.yaml", "path to config file")
	step := flag.String("step", "", "run a single stage (check)")
	skip := flag.String("skip", "", "comma-separated stages to skip (warehouse,notify)")
	continueOnError := flag.Bool("continue-on-error", false, "treat optional stage failures as warnings")
	years := flag.String("years", "", "comma-separated year filter override")
	force := flag.Bool("force", false, "run even when change detection reports no change")
	interval := flag.Duration("interval", 0, "run on a schedule instead of once")
	flag.Parse()

	// .env is optional; environment wins over file values.
	_ = godotenv.Load()

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.Log.Level),
	}))
	slog.SetDefault(logger)

	logger.Info("starting pipeline",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
		"source", cfg.Source.URL,
	)

	opts, err := buildOptions(cfg, *step, *skip, *years, *continueOnError, *force)
	if err != nil {
		logger.Error("invalid flags", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	deps, cleanup, err := buildDeps(ctx, cfg, opts, logger)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	orch := pipeline.New(deps, opts, logger)

	runInterval := *interval
	if runInterval == 0 {
		runInterval = cfg.Run.Interval
	}
	if runInterval > 0 {
		runner := schedule.New(runInterval, orch, logger)
		runner.Start(ctx)
		<-ctx.Done()

		stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer stopCancel()
		if err := runner.Stop(stopCtx); err != nil {
			logger.Error("scheduler shutdown timed out", "error", err)
			os.Exit(1)
		}
		return
	}

	summary, err := orch.Run(ctx)
	if err != nil {
		if errors.Is(err, lease.ErrHeld) {
			logger.Warn("another run is in progress", "error", err)
			os.Exit(2)
		}
		os.Exit(1)
	}
	logger.Info("done",
		"status", summary.Status,
		"appended", summary.RecordsAppended,
		"total", summary.TotalRecords,
		"max_period", model.FormatPeriod(summary.MaxPeriod),
	)
}

func buildOptions(cfg *config.PipelineConfig, step, skip, years string, continueOnError, force bool) (pipeline.Options, error) {
	opts := pipeline.Options{
		Years:            cfg.Extract.Years,
		ChunkSize:        cfg.Extract.ChunkSize,
		Step:             step,
		ContinueOnError:  continueOnError || cfg.Run.ContinueOnError,
		Force:            force,
		DatasetObject:    cfg.Store.DatasetObject,
		CheckpointObject: cfg.Store.CheckpointObject,
		TempDir:          cfg.Extract.TempDir,
		Retry: retry.Policy{
			MaxAttempts: cfg.Source.MaxRetries + 1,
			BaseDelay:   cfg.Source.RetryBackoff,
			MaxDelay:    time.Minute,
		},
	}

	if step != "" && step != pipeline.StepCheck {
		return opts, fmt.Errorf("unknown step %q", step)
	}

	for _, stage := range strings.Split(skip, ",") {
		switch strings.TrimSpace(stage) {
		case "":
		case "warehouse":
			opts.SkipWarehouse = true
		case "notify":
			opts.SkipNotify = true
		default:
			return opts, fmt.Errorf("unknown skip stage %q", stage)
		}
	}

	if years != "" {
		opts.Years = opts.Years[:0]
		for _, y := range strings.Split(years, ",") {
			n, err := strconv.Atoi(strings.TrimSpace(y))
			if err != nil {
				return opts, fmt.Errorf("bad year %q: %w", y, err)
			}
			opts.Years = append(opts.Years, n)
		}
	}
	return opts, nil
}

func buildDeps(ctx context.Context, cfg *config.PipelineConfig, opts pipeline.Options, logger *slog.Logger) (pipeline.Deps, func(), error) {
	cleanup := func() {}

	fs, err := store.NewFS(cfg.Store.Dir)
	if err != nil {
		return pipeline.Deps{}, cleanup, err
	}

	client := source.NewClient(cfg.Source.URL,
		source.WithTimeout(cfg.Source.Timeout),
		source.WithUserAgent(cfg.Source.UserAgent),
		source.WithLogger(logger),
	)
	extractor := extract.New(client, extract.Config{
		ChunkSize: cfg.Extract.ChunkSize,
		TempDir:   cfg.Extract.TempDir,
		Retry:     opts.Retry,
	}, logger)

	deps := pipeline.Deps{
		Store:    fs,
		Lease:    lease.New(filepath.Join(cfg.Store.Dir, cfg.Store.LeaseObject), cfg.Store.LeaseTTL, logger),
		Detector: detect.New(client, extractor, cfg.Source.SampleRows, logger),
		Source:   pipeline.ExtractorSource{Extractor: extractor},
		NewCleaner: func() pipeline.Cleaner {
			return clean.New(clean.Config{
				MinWeight:   decimal.NewFromFloat(cfg.Clean.MinWeight),
				MinValueFOB: decimal.NewFromFloat(cfg.Clean.MinValueFOB),
				MinValueCIF: decimal.NewFromFloat(cfg.Clean.MinValueCIF),
			}, logger)
		},
		Notifier: notify.LogNotifier{Logger: logger},
	}

	if cfg.Notify.Enabled {
		deps.Notifier = notify.NewSMTP(cfg.Notify, logger)
	}

	if cfg.Warehouse.Enabled && !opts.SkipWarehouse && opts.Step == "" {
		logger.Info("connecting to warehouse",
			"host", cfg.Warehouse.DB.Host,
			"port", cfg.Warehouse.DB.Port,
			"database", cfg.Warehouse.DB.Name,
		)
		pool, err := database.Connect(ctx, cfg.Warehouse.DB)
		if err != nil {
			return deps, cleanup, fmt.Errorf("connect warehouse: %w", err)
		}
		cleanup = pool.Close
		deps.Publisher = warehouse.NewPublisher(pool, cfg.Warehouse.Table, logger)
	}

	return deps, cleanup, nil
}

func logLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
