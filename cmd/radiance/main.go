package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/radiancemethod/radiance/internal/domain/entity"
	"github.com/radiancemethod/radiance/internal/domain/port"
	"github.com/radiancemethod/radiance/internal/infra/archive"
	"github.com/radiancemethod/radiance/internal/infra/config"
	"github.com/radiancemethod/radiance/internal/infra/csvstore"
	"github.com/radiancemethod/radiance/internal/infra/email"
	"github.com/radiancemethod/radiance/internal/infra/imaging"
	"github.com/radiancemethod/radiance/internal/infra/memory"
	"github.com/radiancemethod/radiance/internal/infra/metrics"
	miniostorage "github.com/radiancemethod/radiance/internal/infra/minio"
	"github.com/radiancemethod/radiance/internal/infra/postgres"
	"github.com/radiancemethod/radiance/internal/infra/rabbitmq"
	"github.com/radiancemethod/radiance/internal/infra/tracing"
	"github.com/radiancemethod/radiance/internal/usecase"
	"github.com/radiancemethod/radiance/pkg/logger"
)

const usage = `usage: radiance <command> [flags]

commands:
  extract   compute roi geometry and extract brightness series from the images
  analyze   compute intensities and extinction coefficients from extracted series
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	command, args := os.Args[1], os.Args[2:]

	cfg, err := config.Load()
	fatalOnErr(err, "load config")

	log, err := logger.New(cfg.LogLevel)
	fatalOnErr(err, "init logger")
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.JaegerEndpoint != "" {
		tp, err := tracing.InitTracer(ctx, cfg.JaegerEndpoint, command)
		if err != nil {
			log.Warn("tracing init failed, continuing without tracing", zap.Error(err))
		} else {
			defer tp.Shutdown(context.WithoutCancel(ctx))
		}
	}
	if cfg.MetricsPort > 0 {
		srv := metrics.StartMetricsServer(ctx, cfg.MetricsPort, log)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	switch command {
	case "extract":
		err = runExtract(ctx, cfg, log, args)
	case "analyze":
		err = runAnalyze(ctx, cfg, log, args)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", command, usage)
		os.Exit(2)
	}

	if cfg.PushgatewayURL != "" {
		job := "radiance_" + command
		if perr := metrics.Push(context.WithoutCancel(ctx), cfg.PushgatewayURL, job, prometheus.DefaultGatherer); perr != nil {
			log.Warn("metrics push failed", zap.Error(perr))
		}
	}
	if err != nil {
		log.Error("command failed", zap.String("command", command), zap.Error(err))
		log.Sync()
		os.Exit(1)
	}
}

func loadExperiment(cfg *config.Config, path string) (entity.ExperimentConfig, error) {
	exp, err := config.LoadExperiment(path)
	if err != nil {
		return exp, err
	}
	if cfg.ResultsDir != "" {
		exp.ResultsDir = cfg.ResultsDir
	}
	return exp, nil
}

func runExtract(ctx context.Context, cfg *config.Config, log *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	expPath := fs.String("experiment", cfg.ExperimentFile, "experiment yaml file")
	fs.Parse(args)

	exp, err := loadExperiment(cfg, *expPath)
	if err != nil {
		return err
	}

	decoder, err := imaging.NewDecoder(exp.ImageFormat, exp.Raw)
	if err != nil {
		return err
	}
	store, err := csvstore.NewStore(exp.ResultsDir, exp.Name)
	if err != nil {
		return err
	}

	var repo port.RunRepository = memory.NewRunRepository()
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer pool.Close()
		if err := postgres.RunMigrations(ctx, cfg.DatabaseURL); err != nil {
			log.Warn("migration warning", zap.Error(err))
		}
		repo = postgres.NewRunRepository(pool)
	}

	var publisher port.StatusPublisher
	if cfg.RabbitMQURL != "" {
		conn, err := amqp.Dial(cfg.RabbitMQURL)
		if err != nil {
			return fmt.Errorf("connect to rabbitmq: %w", err)
		}
		defer conn.Close()
		pub, err := rabbitmq.NewPublisher(conn, cfg.RabbitMQExchange)
		if err != nil {
			return err
		}
		defer pub.Close()
		publisher = rabbitmq.NewStatusPublisher(pub, cfg.RabbitMQStatusKey)
	}

	var (
		results port.ResultArchive
		zipper  port.Zipper
	)
	if cfg.ArchiveResults {
		storage, err := miniostorage.NewStorage(miniostorage.StorageConfig{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			UseSSL:    cfg.MinIOUseSSL,
			Bucket:    cfg.MinIOResultsBucket,
		})
		if err != nil {
			return fmt.Errorf("create minio storage: %w", err)
		}
		if err := storage.EnsureBucket(ctx); err != nil {
			return err
		}
		results, zipper = storage, archive.NewZipCreator()
	}

	var notifier port.FailureNotifier
	if cfg.NotificationTo != "" {
		notifier = email.NewSMTPNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, log)
	}

	uc := usecase.NewExtractSeriesUseCase(
		decoder, imaging.NewExifClock(), store, repo,
		publisher, results, zipper, notifier,
		log,
		usecase.ExtractSeriesConfig{
			ProgressEvery:  cfg.ProgressEvery,
			NotificationTo: cfg.NotificationTo,
		},
	)

	log.Info("starting extraction", zap.String("experiment", exp.Name), zap.String("results_dir", exp.ResultsDir))
	run, err := uc.Run(ctx, exp)
	if err != nil {
		return err
	}
	log.Info("extraction finished", zap.String("run_id", run.ID.String()), zap.Int("frames", run.FrameCount))
	return nil
}

func runAnalyze(ctx context.Context, cfg *config.Config, log *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	expPath := fs.String("experiment", cfg.ExperimentFile, "experiment yaml file")
	channelsFlag := fs.String("channels", "", "comma separated channels, default from the experiment file")
	baseStart := fs.Int("baseline-start", -1, "first baseline frame, default from the experiment file")
	baseEnd := fs.Int("baseline-end", -1, "end of the baseline frames, exclusive")
	fs.Parse(args)

	exp, err := loadExperiment(cfg, *expPath)
	if err != nil {
		return err
	}
	channels := exp.Channels
	if *channelsFlag != "" {
		if channels, err = parseChannels(*channelsFlag); err != nil {
			return err
		}
	}
	baseline := exp.Baseline
	if *baseStart >= 0 || *baseEnd >= 0 {
		baseline = entity.BaselineRange{Start: max(*baseStart, 0), End: *baseEnd}
	}

	store, err := csvstore.NewStore(exp.ResultsDir, exp.Name)
	if err != nil {
		return err
	}
	uc := usecase.NewAnalyzeSeriesUseCase(store, store, log, usecase.AnalyzeSeriesConfig{
		Experiment: exp.Name,
		ResultsDir: exp.ResultsDir,
	})
	res, err := uc.Analyze(ctx, channels, baseline)
	if err != nil {
		return err
	}
	for _, f := range res.Files {
		fmt.Println(f)
	}
	return nil
}

func parseChannels(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		ch, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("%w: channel %q", entity.ErrInvalidConfiguration, part)
		}
		out = append(out, ch)
	}
	return out, nil
}

func fatalOnErr(err error, msg string) {
	if err != nil {
		panic(msg + ": " + err.Error())
	}
}
