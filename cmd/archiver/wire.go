package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tier4/automan-annotation-archiver/internal/domain/entity"
	"github.com/tier4/automan-annotation-archiver/internal/domain/port"
	"github.com/tier4/automan-annotation-archiver/internal/infra/archive"
	"github.com/tier4/automan-annotation-archiver/internal/infra/automan"
	"github.com/tier4/automan-annotation-archiver/internal/infra/config"
	"github.com/tier4/automan-annotation-archiver/internal/infra/email"
	miniostorage "github.com/tier4/automan-annotation-archiver/internal/infra/minio"
	"github.com/tier4/automan-annotation-archiver/internal/infra/overlay"
	"github.com/tier4/automan-annotation-archiver/internal/infra/postgres"
	"github.com/tier4/automan-annotation-archiver/internal/infra/rabbitmq"
	"github.com/tier4/automan-annotation-archiver/internal/infra/storage"
	"github.com/tier4/automan-annotation-archiver/internal/usecase"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type application struct {
	info    entity.ArchiveInfo
	usecase *usecase.ArchiveAnnotationsUseCase
	closers []func() error
}

func (a *application) close(log *zap.Logger) {
	var err error
	for i := len(a.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, a.closers[i]())
	}
	if err != nil {
		log.Warn("shutdown errors", zap.Error(err))
	}
}

func wire(ctx context.Context, cfg *config.Config, log *zap.Logger) (*application, error) {
	automanInfo, err := cfg.Automan()
	if err != nil {
		return nil, err
	}
	archiveInfo, err := cfg.Archive()
	if err != nil {
		return nil, err
	}
	storageInfo, err := cfg.Storage()
	if err != nil {
		return nil, err
	}
	formatVersion, err := cfg.FormatVersion()
	if err != nil {
		return nil, err
	}

	app := &application{info: archiveInfo}

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	client := automan.NewClient(automanInfo, httpClient, log)

	store, err := newStorage(ctx, cfg, archiveInfo, storageInfo, client, httpClient, log)
	if err != nil {
		return nil, err
	}

	archiver, err := archive.New(cfg.ArchiveFormat)
	if err != nil {
		return nil, err
	}

	// Optional collaborators stay nil interfaces when not configured
	var repo port.RunRepository
	if cfg.DatabaseURL != "" {
		if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsDir, log); err != nil {
			log.Warn("migration warning", zap.Error(err))
		}
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		app.closers = append(app.closers, func() error { pool.Close(); return nil })
		repo = postgres.NewRunRepository(pool)
	}

	var publisher port.StatusPublisher
	if cfg.RabbitMQURL != "" {
		pub, err := rabbitmq.NewStatusPublisher(rabbitmq.PublisherConfig{
			URL:         cfg.RabbitMQURL,
			Exchange:    cfg.RabbitMQExchange,
			RoutingKey:  cfg.RabbitMQRoutingKey,
			StatusQueue: cfg.RabbitMQStatusQueue,
		})
		if err != nil {
			log.Warn("status publisher unavailable", zap.Error(err))
		} else {
			app.closers = append(app.closers, pub.Close)
			publisher = pub
		}
	}

	var notifier port.FailureNotifier
	if cfg.NotificationTo != "" {
		notifier = email.NewSMTPNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, cfg.NotificationTo, log)
	}

	exporter := usecase.NewExportAnnotationsUseCase(
		client,
		overlay.NewRenderer(cfg.LineWidth, overlay.DefaultJPEGQuality, log),
		log,
		usecase.ExportConfig{
			ExportImages:  cfg.ExportImages,
			ExportClasses: cfg.ExportClasses,
			FormatVersion: formatVersion,
		},
	)

	app.usecase = usecase.NewArchiveAnnotationsUseCase(
		exporter, archiver, store, client,
		repo, publisher, notifier,
		log,
		usecase.ArchiveConfig{
			StagingDir:  cfg.StagingDir,
			KeepStaging: cfg.KeepStaging,
		},
	)
	return app, nil
}

// newStorage selects the archive storage variant named by the storage type.
func newStorage(
	ctx context.Context,
	cfg *config.Config,
	archiveInfo entity.ArchiveInfo,
	storageInfo entity.StorageInfo,
	presigner storage.Presigner,
	httpClient storage.HTTPClient,
	log *zap.Logger,
) (port.ArchiveStorage, error) {
	switch cfg.StorageType {
	case config.StorageLocalNFS:
		return storage.NewLocalStorage(archiveInfo.ArchiveDir, httpClient, log)
	case config.StorageAWSS3:
		return storage.NewPresignedStorage(archiveInfo.ArchiveDir, storageInfo, presigner, httpClient, log)
	case config.StorageMinIO:
		bucket := cfg.MinIOBucket
		if storageInfo.Bucket != "" {
			bucket = storageInfo.Bucket
		}
		s, err := miniostorage.NewStorage(miniostorage.StorageConfig{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			UseSSL:    cfg.MinIOUseSSL,
			Bucket:    bucket,
			OutputDir: archiveInfo.ArchiveDir,
		}, log)
		if err != nil {
			return nil, err
		}
		if err := s.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, cfg.ValidateStorageType()
}
