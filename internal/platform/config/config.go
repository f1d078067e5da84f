package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Secrets   SecretsConfig   `mapstructure:"secrets"`
	Dispatch  DispatchConfig  `mapstructure:"dispatch"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Domains   DomainsConfig   `mapstructure:"domains"`
	Retention RetentionConfig `mapstructure:"retention"`
}

// RetentionConfig bounds the inbound audit log. Zero values fall back to
// the worker's defaults.
type RetentionConfig struct {
	EventMaxAge   time.Duration `mapstructure:"event_max_age"`
	PruneInterval time.Duration `mapstructure:"prune_interval"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

type DatabaseConfig struct {
	Path           string `mapstructure:"path"`
	MaxConnections int    `mapstructure:"max_connections"`
}

type JWTConfig struct {
	Secret         string        `mapstructure:"secret"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
}

// SecretsConfig configures the at-rest encryption of the secret store.
// MasterKey is base64 (32 bytes) or any passphrase; non-key material is
// run through HKDF.
type SecretsConfig struct {
	MasterKey string `mapstructure:"master_key"`
}

type DispatchConfig struct {
	RunnerURL     string        `mapstructure:"runner_url"`
	SigningSecret string        `mapstructure:"signing_secret"`
	WorkerCount   int           `mapstructure:"worker_count"`
	QueueSize     int           `mapstructure:"queue_size"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

type RateLimitConfig struct {
	InboundPerMinute  int `mapstructure:"inbound_per_minute"`
	APIReadPerMinute  int `mapstructure:"api_read_per_minute"`
	APIWritePerMinute int `mapstructure:"api_write_per_minute"`
}

type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	FilePath string `mapstructure:"file_path"`
}

// DomainsConfig holds the externally visible base URL. Setup-needed
// responses embed it as the target URL to configure at the provider.
type DomainsConfig struct {
	PublicBaseURL string `mapstructure:"public_base_url"`
}

func Load(path string) (*Config, error) {
	viper.SetConfigFile(path)
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
