package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/tier4/automan-annotation-archiver/internal/domain/entity"
)

const (
	StorageLocalNFS = "LOCAL_NFS"
	StorageAWSS3    = "AWS_S3"
	StorageMinIO    = "MINIO"
)

type Config struct {
	AutomanInfo string `env:"AUTOMAN_INFO"`
	ArchiveInfo string `env:"ARCHIVE_INFO"`
	StorageType string `env:"STORAGE_TYPE" envDefault:"LOCAL_NFS"`
	StorageInfo string `env:"STORAGE_INFO"`

	StagingDir    string        `env:"STAGING_DIR"        envDefault:"/tmp/automan-archiver"`
	ExportImages  bool          `env:"EXPORT_IMAGES"      envDefault:"true"`
	ExportClasses []string      `env:"EXPORT_CLASSES"     envSeparator:","`
	ArchiveFormat string        `env:"ARCHIVE_FORMAT"     envDefault:"gztar"`
	KeepStaging   bool          `env:"KEEP_STAGING"       envDefault:"false"`
	HTTPTimeout   time.Duration `env:"HTTP_TIMEOUT"       envDefault:"60s"`
	LineWidth     float64       `env:"OVERLAY_LINE_WIDTH" envDefault:"2"`

	LogLevel       string `env:"LOG_LEVEL"       envDefault:"info"`
	JaegerEndpoint string `env:"JAEGER_ENDPOINT"`
	PushgatewayURL string `env:"PUSHGATEWAY_URL"`

	DatabaseURL   string `env:"DATABASE_URL"`
	MigrationsDir string `env:"MIGRATIONS_DIR" envDefault:"migrations"`

	RabbitMQURL         string `env:"RABBITMQ_URL"`
	RabbitMQExchange    string `env:"RABBITMQ_EXCHANGE"     envDefault:"automan.archive"`
	RabbitMQRoutingKey  string `env:"RABBITMQ_ROUTING_KEY"  envDefault:"archive.status"`
	RabbitMQStatusQueue string `env:"RABBITMQ_STATUS_QUEUE" envDefault:"archive.status"`

	SMTPHost       string `env:"SMTP_HOST"       envDefault:"localhost"`
	SMTPPort       int    `env:"SMTP_PORT"       envDefault:"25"`
	SMTPFrom       string `env:"SMTP_FROM"       envDefault:"noreply@automan.local"`
	NotificationTo string `env:"NOTIFICATION_TO"`

	MinIOEndpoint  string `env:"MINIO_ENDPOINT"   envDefault:"minio:9000"`
	MinIOAccessKey string `env:"MINIO_ACCESS_KEY" envDefault:"minioadmin"`
	MinIOSecretKey string `env:"MINIO_SECRET_KEY" envDefault:"minioadmin"`
	MinIOUseSSL    bool   `env:"MINIO_USE_SSL"    envDefault:"false"`
	MinIOBucket    string `env:"MINIO_BUCKET"     envDefault:"archives"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Automan() (entity.AutomanInfo, error) {
	var info entity.AutomanInfo
	if c.AutomanInfo == "" {
		return info, fmt.Errorf("%w: automan info is required", entity.ErrConfiguration)
	}
	if err := info.UnmarshalText([]byte(c.AutomanInfo)); err != nil {
		return info, err
	}
	if info.Host == "" {
		return info, fmt.Errorf("%w: automan info: host is required", entity.ErrConfiguration)
	}
	return info, nil
}

func (c *Config) Archive() (entity.ArchiveInfo, error) {
	var info entity.ArchiveInfo
	if c.ArchiveInfo == "" {
		return info, fmt.Errorf("%w: archive info is required", entity.ErrConfiguration)
	}
	if err := info.UnmarshalText([]byte(c.ArchiveInfo)); err != nil {
		return info, err
	}
	return info, info.Validate()
}

func (c *Config) Storage() (entity.StorageInfo, error) {
	var info entity.StorageInfo
	err := info.UnmarshalText([]byte(c.StorageInfo))
	return info, err
}

// FormatVersion is the version stamped into every annotation file.
func (c *Config) FormatVersion() (entity.FormatVersion, error) {
	info, err := c.Archive()
	if err != nil {
		return entity.FormatVersion{}, err
	}
	return entity.ParseFormatVersion(info.ExtractorVersion)
}

func (c *Config) ValidateStorageType() error {
	switch c.StorageType {
	case StorageLocalNFS, StorageAWSS3, StorageMinIO:
		return nil
	}
	return fmt.Errorf("%w: unsupported storage type %q", entity.ErrConfiguration, c.StorageType)
}
