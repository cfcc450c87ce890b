package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the client.
// The values are read by Viper from a config file or environment variables.
type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Database DatabaseConfig `mapstructure:"database"`
	Sync     SyncConfig     `mapstructure:"sync"`
	S3       S3Config       `mapstructure:"s3"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Log      LogConfig      `mapstructure:"log"`
}

// APIConfig points the client at the backend.
type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// DatabaseConfig locates the local SQLite store.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// SyncConfig tunes the background scheduler.
type SyncConfig struct {
	// Interval between periodic sync runs. Requests below the scheduler's
	// floor are clamped, mirroring host-OS work managers.
	Interval time.Duration `mapstructure:"interval"`
	// InitialBackoff and MaxBackoff bound the retry delay after failed runs.
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
}

// S3Config configures the object storage the devserver presigns against.
type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

// AuthConfig locates the cached login token.
type AuthConfig struct {
	TokenPath string `mapstructure:"token_path"`
}

// LogConfig controls the rotating client log file. An empty File logs to stderr.
type LogConfig struct {
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	// Environment variable handling: api.base_url -> API_BASE_URL etc.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`))

	viper.SetDefault("api.base_url", "http://localhost:8080")
	viper.SetDefault("api.timeout", "15s")
	viper.SetDefault("database.path", "gymsync.db")
	viper.SetDefault("sync.interval", "4h")
	viper.SetDefault("sync.initial_backoff", "30s")
	viper.SetDefault("sync.max_backoff", "10m")
	viper.SetDefault("s3.use_ssl", true)
	viper.SetDefault("auth.token_path", ".gymsync-token")
	viper.SetDefault("log.max_size_mb", 10)
	viper.SetDefault("log.max_backups", 3)

	err = viper.ReadInConfig()
	// Config file is optional; env vars and defaults are enough to run.
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		err = nil
	} else if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}
