package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tier4/automan-annotation-archiver/internal/domain/entity"
	"github.com/tier4/automan-annotation-archiver/internal/infra/config"
	"github.com/tier4/automan-annotation-archiver/internal/infra/storage"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestApplyFlags(t *testing.T) {
	cfg := &config.Config{
		AutomanInfo:  `{"host": "env"}`,
		StorageType:  config.StorageLocalNFS,
		StagingDir:   "/env/staging",
		ExportImages: true,
	}

	app := &cli.App{
		Flags: flags(),
		Action: func(c *cli.Context) error {
			applyFlags(c, cfg)
			return nil
		},
	}
	err := app.Run([]string{"archiver",
		"--archive-info", `{"project_id": 1}`,
		"--storage-type", "AWS_S3",
		"--no-images",
	})
	require.NoError(t, err)

	assert.Equal(t, `{"host": "env"}`, cfg.AutomanInfo)
	assert.Equal(t, `{"project_id": 1}`, cfg.ArchiveInfo)
	assert.Equal(t, config.StorageAWSS3, cfg.StorageType)
	assert.Equal(t, "/env/staging", cfg.StagingDir)
	assert.False(t, cfg.ExportImages)
}

func TestNewStorage(t *testing.T) {
	dir := t.TempDir()
	info := entity.ArchiveInfo{ArchiveDir: dir}

	local, err := newStorage(context.Background(), &config.Config{StorageType: config.StorageLocalNFS}, info, entity.StorageInfo{}, nil, nil, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &storage.LocalStorage{}, local)
	assert.Equal(t, dir, local.OutputDir())

	presigned, err := newStorage(context.Background(), &config.Config{StorageType: config.StorageAWSS3}, info, entity.StorageInfo{StorageID: 1}, nil, nil, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &storage.PresignedStorage{}, presigned)

	_, err = newStorage(context.Background(), &config.Config{StorageType: "FTP"}, info, entity.StorageInfo{}, nil, nil, zap.NewNop())
	require.Error(t, err)
	assert.True(t, errors.Is(err, entity.ErrConfiguration))
}

func TestWireRejectsIncompleteConfig(t *testing.T) {
	_, err := wire(context.Background(), &config.Config{StorageType: config.StorageLocalNFS}, zap.NewNop())
	require.Error(t, err)
	assert.True(t, errors.Is(err, entity.ErrConfiguration))
}

func TestShutdownTracingLogsFailure(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	log := zap.New(core)

	shutdownTracing(func(ctx context.Context) error {
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		return errors.New("exporter unreachable")
	}, log)

	entries := logs.FilterMessage("tracer shutdown failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "exporter unreachable", entries[0].ContextMap()["error"])

	shutdownTracing(func(context.Context) error { return nil }, log)
	assert.Equal(t, 1, logs.Len())
}
