package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tier4/automan-annotation-archiver/internal/infra/config"
	"github.com/tier4/automan-annotation-archiver/internal/infra/metrics"
	"github.com/tier4/automan-annotation-archiver/internal/infra/tracing"
	"github.com/tier4/automan-annotation-archiver/pkg/logger"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

var version = "dev"

func main() {
	app := &cli.App{
		Name:    "automan-archiver",
		Usage:   "export an annotation with its frame images and store it as an archive",
		Version: version,
		Flags:   flags(),
		Action:  run,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "automan-info", Usage: "annotation service connection as JSON"},
		&cli.StringFlag{Name: "archive-info", Usage: "annotation and archive target as JSON"},
		&cli.StringFlag{Name: "storage-type", Usage: "LOCAL_NFS, AWS_S3 or MINIO"},
		&cli.StringFlag{Name: "storage-info", Usage: "storage settings as JSON"},
		&cli.StringFlag{Name: "staging-dir", Usage: "directory the export is staged in"},
		&cli.BoolFlag{Name: "no-images", Usage: "skip candidate files and overlays"},
	}
}

func run(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyFlags(c, cfg)

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	ctx := c.Context

	// Tracing (non-fatal if the collector is unavailable)
	tp, err := tracing.InitTracer(ctx, cfg.JaegerEndpoint, version)
	if err != nil {
		log.Warn("tracing init failed, continuing without tracing", zap.Error(err))
	} else if tp != nil {
		defer shutdownTracing(tp.Shutdown, log)
	}

	app, err := wire(ctx, cfg, log)
	if err != nil {
		log.Error("failed to start archiver", zap.Error(err))
		return err
	}
	defer app.close(log)

	log.Info("starting automan-annotation-archiver",
		zap.String("version", version),
		zap.String("storage_type", cfg.StorageType),
		zap.Int64("project_id", app.info.ProjectID),
		zap.Int64("annotation_id", app.info.AnnotationID),
	)

	result, runErr := app.usecase.Execute(ctx, app.info)

	pushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := metrics.Push(pushCtx, cfg.PushgatewayURL, tracing.ServiceName, result.ID.String(), log); err != nil {
		log.Warn("failed to push metrics", zap.Error(err))
	}

	if runErr != nil {
		return cli.Exit(runErr.Error(), 1)
	}
	log.Info("automan-annotation-archiver finished", zap.String("archive", result.ArchivePath))
	return nil
}

// shutdownTracing flushes pending spans. A failure is logged and does not change the exit code.
func shutdownTracing(shutdown func(context.Context) error, log *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		log.Warn("tracer shutdown failed", zap.Error(err))
	}
}

// applyFlags lets explicitly set flags override the environment.
func applyFlags(c *cli.Context, cfg *config.Config) {
	if c.IsSet("automan-info") {
		cfg.AutomanInfo = c.String("automan-info")
	}
	if c.IsSet("archive-info") {
		cfg.ArchiveInfo = c.String("archive-info")
	}
	if c.IsSet("storage-type") {
		cfg.StorageType = c.String("storage-type")
	}
	if c.IsSet("storage-info") {
		cfg.StorageInfo = c.String("storage-info")
	}
	if c.IsSet("staging-dir") {
		cfg.StagingDir = c.String("staging-dir")
	}
	if c.Bool("no-images") {
		cfg.ExportImages = false
	}
}
