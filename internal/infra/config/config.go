package config

import (
	"github.com/caarlos0/env/v11"
)

// Config is the process environment. Experiment parameters live in the file
// named by ExperimentFile, see LoadExperiment.
type Config struct {
	ExperimentFile string `env:"EXPERIMENT_FILE" envDefault:"experiment.yaml"`
	ResultsDir     string `env:"RESULTS_DIR"`

	RabbitMQURL       string `env:"RABBITMQ_URL"`
	RabbitMQExchange  string `env:"RABBITMQ_EXCHANGE"   envDefault:"radiance.runs"`
	RabbitMQStatusKey string `env:"RABBITMQ_STATUS_KEY" envDefault:"run.status"`

	MinIOEndpoint      string `env:"MINIO_ENDPOINT"       envDefault:"localhost:9000"`
	MinIOAccessKey     string `env:"MINIO_ACCESS_KEY"     envDefault:"minioadmin"`
	MinIOSecretKey     string `env:"MINIO_SECRET_KEY"     envDefault:"minioadmin"`
	MinIOUseSSL        bool   `env:"MINIO_USE_SSL"        envDefault:"false"`
	MinIOResultsBucket string `env:"MINIO_RESULTS_BUCKET" envDefault:"radiance-results"`
	ArchiveResults     bool   `env:"ARCHIVE_RESULTS"      envDefault:"false"`

	DatabaseURL string `env:"DATABASE_URL"`

	SMTPHost       string `env:"SMTP_HOST"       envDefault:"localhost"`
	SMTPPort       int    `env:"SMTP_PORT"       envDefault:"1025"`
	SMTPFrom       string `env:"SMTP_FROM"       envDefault:"radiance@localhost"`
	NotificationTo string `env:"NOTIFICATION_TO"`

	MetricsPort    int    `env:"METRICS_PORT"    envDefault:"0"`
	PushgatewayURL string `env:"PUSHGATEWAY_URL"`
	JaegerEndpoint string `env:"JAEGER_ENDPOINT"`
	LogLevel       string `env:"LOG_LEVEL"       envDefault:"info"`

	ProgressEvery int `env:"PROGRESS_EVERY" envDefault:"50"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
