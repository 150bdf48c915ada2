package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/masterrlv/log-2/internal/db"
)

// Config holds every setting the process needs. It is constructed once
// at startup and passed by reference to the components that use it; no
// package-level mutable state.
type Config struct {
	Database db.Config
	Redis    RedisConfig
	Server   ServerConfig
	Ingest   IngestConfig
}

// RedisConfig configures the task queue broker connection.
type RedisConfig struct {
	Address  string
	Password string
	Database int
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Address        string
	AllowedOrigins []string
}

// IngestConfig configures the ingestion worker pool and retry policy.
type IngestConfig struct {
	UploadDir   string
	Workers     int
	JobTimeout  time.Duration
	MaxAttempts int
	RetryDelay  time.Duration
}

// Default returns the configuration used when neither config.yaml nor
// environment overrides are present.
func Default() Config {
	return Config{
		Database: db.DefaultConfig(),
		Redis: RedisConfig{
			Address: "localhost:6379",
		},
		Server: ServerConfig{
			Address:        ":8080",
			AllowedOrigins: []string{"http://localhost:5173"},
		},
		Ingest: IngestConfig{
			UploadDir:   "uploads",
			Workers:     2,
			JobTimeout:  10 * time.Minute,
			MaxAttempts: 3,
			RetryDelay:  5 * time.Minute,
		},
	}
}

// Load reads config.yaml from configPath and applies environment
// overrides (prefix LOGS, e.g. LOGS_DATABASE_HOST) on top of defaults.
func Load(configPath string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AutomaticEnv()
	v.SetEnvPrefix("LOGS")

	v.BindEnv("database.host")
	v.BindEnv("database.port")
	v.BindEnv("database.user")
	v.BindEnv("database.password")
	v.BindEnv("database.dbname")
	v.BindEnv("database.sslmode")
	v.BindEnv("redis.address")
	v.BindEnv("redis.password")
	v.BindEnv("server.address")
	v.BindEnv("ingest.upload_dir")
	v.BindEnv("ingest.workers")

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
		// No config.yaml is fine; defaults plus env apply.
	}

	if v.IsSet("database.host") {
		cfg.Database.Host = v.GetString("database.host")
	}
	if v.IsSet("database.port") {
		cfg.Database.Port = v.GetInt("database.port")
	}
	if v.IsSet("database.user") {
		cfg.Database.User = v.GetString("database.user")
	}
	if v.IsSet("database.password") {
		cfg.Database.Password = v.GetString("database.password")
	}
	if v.IsSet("database.dbname") {
		cfg.Database.DBName = v.GetString("database.dbname")
	}
	if v.IsSet("database.sslmode") {
		cfg.Database.SSLMode = v.GetString("database.sslmode")
	}
	if v.IsSet("redis.address") {
		cfg.Redis.Address = v.GetString("redis.address")
	}
	if v.IsSet("redis.password") {
		cfg.Redis.Password = v.GetString("redis.password")
	}
	if v.IsSet("redis.database") {
		cfg.Redis.Database = v.GetInt("redis.database")
	}
	if v.IsSet("server.address") {
		cfg.Server.Address = v.GetString("server.address")
	}
	if v.IsSet("server.allowed_origins") {
		cfg.Server.AllowedOrigins = v.GetStringSlice("server.allowed_origins")
	}
	if v.IsSet("ingest.upload_dir") {
		cfg.Ingest.UploadDir = v.GetString("ingest.upload_dir")
	}
	if v.IsSet("ingest.workers") {
		cfg.Ingest.Workers = v.GetInt("ingest.workers")
	}
	if v.IsSet("ingest.job_timeout") {
		cfg.Ingest.JobTimeout = v.GetDuration("ingest.job_timeout")
	}
	if v.IsSet("ingest.max_attempts") {
		cfg.Ingest.MaxAttempts = v.GetInt("ingest.max_attempts")
	}
	if v.IsSet("ingest.retry_delay") {
		cfg.Ingest.RetryDelay = v.GetDuration("ingest.retry_delay")
	}

	return cfg, nil
}
