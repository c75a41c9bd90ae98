package config

import (
	"database/sql"
	"time"

	_ "github.com/lib/pq"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/spf13/viper"
)

type Config struct {
	MinIOBucket string        `yaml:"minio_bucket"`
	App         App           `yaml:"app"`
	DB          *sql.DB       `yaml:"db"`
	Queue       *RabbitMQ     `yaml:"rabbitmq"`
	Storage     *minio.Client `yaml:"storage"`
	Server      Server        `yaml:"server"`
	Converter   Converter     `yaml:"converter"`
}

type App struct {
	Environment string `yaml:"environment"`
	Host        string `yaml:"host"`
	Protocol    string `yaml:"protocol"`
}

type Server struct {
	HttpPort string `yaml:"http_port"`
	Workers  int    `yaml:"workers"`
}

type RabbitMQ struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	User         string `json:"user"`
	Pass         string `json:"pass"`
	ExchangeName string `json:"exchange_name"`
	Kind         string `json:"kind"`
}

// Converter holds every pipeline limit. Values come from the yaml config
// with the defaults below; Cookies additionally falls back to the
// YT_COOKIES environment variable so the credential blob stays out of the
// config file.
type Converter struct {
	DownloadDir       string        `yaml:"download_dir"`
	ExtractionTimeout time.Duration `yaml:"extraction_timeout"`
	DurationHardCap   int           `yaml:"duration_hard_cap"`
	DurationSoftCap   int           `yaml:"duration_soft_cap"`
	MinFileSize       int64         `yaml:"min_file_size"`
	MaxFileSize       int64         `yaml:"max_file_size"`
	DedupWindow       time.Duration `yaml:"dedup_window"`
	RetentionWindow   time.Duration `yaml:"retention_window"`
	SweepInterval     time.Duration `yaml:"sweep_interval"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	Cookies           string        `yaml:"cookies"`
}

func setConverterDefaults() {
	viper.SetDefault("converter.download_dir", "storage/downloads")
	viper.SetDefault("converter.extraction_timeout", "600s")
	viper.SetDefault("converter.duration_hard_cap", 7200)
	viper.SetDefault("converter.duration_soft_cap", 3600)
	viper.SetDefault("converter.min_file_size", 1000)
	viper.SetDefault("converter.max_file_size", 200*1024*1024)
	viper.SetDefault("converter.dedup_window", "12h")
	viper.SetDefault("converter.retention_window", "24h")
	viper.SetDefault("converter.sweep_interval", "1h")
	viper.SetDefault("converter.heartbeat_interval", "30s")
	_ = viper.BindEnv("converter.cookies", "YT_COOKIES")
}

func Load(path string) (*Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	setConverterDefaults()
	err := viper.ReadInConfig()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("postgres", viper.GetString("postgresql_host"))
	if err != nil {
		return nil, err
	}

	rabbitmq := &RabbitMQ{
		Host: viper.GetString("rabbitmq_host"),
		Port: viper.GetInt("rabbitmq_port"),
		User: viper.GetString("rabbitmq_user"),
		Pass: viper.GetString("rabbitmq_pass"),
		Kind: viper.GetString("rabbitmq_kind"),
	}

	minioClient, err := minio.New(viper.GetString("minio.url"), &minio.Options{
		Creds:  credentials.NewStaticV4(viper.GetString("minio.access_id"), viper.GetString("minio.secret_access_key"), ""),
		Secure: false,
	})
	if err != nil {
		return nil, err
	}

	return &Config{
		MinIOBucket: viper.GetString("minio.bucket"),
		App: App{
			Environment: viper.GetString("app.environment"),
			Host:        viper.GetString("app.host"),
			Protocol:    viper.GetString("app.protocol"),
		},
		Server: Server{
			HttpPort: viper.GetString("server.port"),
			Workers:  viper.GetInt("server.workers"),
		},
		Converter: Converter{
			DownloadDir:       viper.GetString("converter.download_dir"),
			ExtractionTimeout: viper.GetDuration("converter.extraction_timeout"),
			DurationHardCap:   viper.GetInt("converter.duration_hard_cap"),
			DurationSoftCap:   viper.GetInt("converter.duration_soft_cap"),
			MinFileSize:       viper.GetInt64("converter.min_file_size"),
			MaxFileSize:       viper.GetInt64("converter.max_file_size"),
			DedupWindow:       viper.GetDuration("converter.dedup_window"),
			RetentionWindow:   viper.GetDuration("converter.retention_window"),
			SweepInterval:     viper.GetDuration("converter.sweep_interval"),
			HeartbeatInterval: viper.GetDuration("converter.heartbeat_interval"),
			Cookies:           viper.GetString("converter.cookies"),
		},
		DB:      db,
		Queue:   rabbitmq,
		Storage: minioClient,
	}, nil
}
