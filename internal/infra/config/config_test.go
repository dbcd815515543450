package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tier4/automan-annotation-archiver/internal/domain/entity"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StorageLocalNFS, cfg.StorageType)
	assert.True(t, cfg.ExportImages)
	assert.Equal(t, "gztar", cfg.ArchiveFormat)
	assert.Equal(t, 60*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 2.0, cfg.LineWidth)
	assert.Empty(t, cfg.ExportClasses)
	assert.NoError(t, cfg.ValidateStorageType())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("AUTOMAN_INFO", `{"host": "automan.example.com", "jwt": "tok", "presigned": "/projects/1/storages/upload/"}`)
	t.Setenv("ARCHIVE_INFO", `{"project_id": 1, "annotation_id": 2, "dataset_id": 3, "original_id": 4, "archive_dir": "/out", "archive_name": "ann", "extractor_version": "1.2.3"}`)
	t.Setenv("STORAGE_TYPE", "AWS_S3")
	t.Setenv("STORAGE_INFO", `{"storage_id": 9, "target_url": "https://bucket.example.com/x"}`)
	t.Setenv("EXPORT_CLASSES", "car,pedestrian")
	t.Setenv("EXPORT_IMAGES", "false")

	cfg, err := Load()
	require.NoError(t, err)

	automan, err := cfg.Automan()
	require.NoError(t, err)
	assert.Equal(t, entity.AutomanInfo{Host: "automan.example.com", JWT: "tok", Presigned: "/projects/1/storages/upload/"}, automan)

	archive, err := cfg.Archive()
	require.NoError(t, err)
	assert.Equal(t, int64(3), archive.DatasetID)
	assert.Equal(t, "ann", archive.ArchiveName)

	storage, err := cfg.Storage()
	require.NoError(t, err)
	assert.Equal(t, int64(9), storage.StorageID)

	version, err := cfg.FormatVersion()
	require.NoError(t, err)
	assert.Equal(t, "1.2.3", version.String())

	assert.Equal(t, []string{"car", "pedestrian"}, cfg.ExportClasses)
	assert.False(t, cfg.ExportImages)
	assert.NoError(t, cfg.ValidateStorageType())
}

func TestConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		call func(c *Config) error
	}{
		{
			name: "missing automan info",
			call: func(c *Config) error { _, err := c.Automan(); return err },
		},
		{
			name: "automan info without host",
			cfg:  Config{AutomanInfo: `{"jwt": "tok"}`},
			call: func(c *Config) error { _, err := c.Automan(); return err },
		},
		{
			name: "malformed archive info",
			cfg:  Config{ArchiveInfo: `{"project_id": `},
			call: func(c *Config) error { _, err := c.Archive(); return err },
		},
		{
			name: "archive info without name",
			cfg:  Config{ArchiveInfo: `{"project_id": 1, "annotation_id": 2, "archive_dir": "/out"}`},
			call: func(c *Config) error { _, err := c.Archive(); return err },
		},
		{
			name: "invalid extractor version",
			cfg:  Config{ArchiveInfo: `{"project_id": 1, "annotation_id": 2, "archive_dir": "/out", "archive_name": "a", "extractor_version": "not-a-version"}`},
			call: func(c *Config) error { _, err := c.FormatVersion(); return err },
		},
		{
			name: "malformed storage info",
			cfg:  Config{StorageInfo: `[`},
			call: func(c *Config) error { _, err := c.Storage(); return err },
		},
		{
			name: "unknown storage type",
			cfg:  Config{StorageType: "FTP"},
			call: func(c *Config) error { return c.ValidateStorageType() },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call(&tt.cfg)
			require.Error(t, err)
			assert.True(t, errors.Is(err, entity.ErrConfiguration))
		})
	}
}

func TestEmptyStorageInfo(t *testing.T) {
	cfg := Config{}
	info, err := cfg.Storage()
	require.NoError(t, err)
	assert.Equal(t, entity.StorageInfo{}, info)
}
