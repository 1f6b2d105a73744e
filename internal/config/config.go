package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	configName = "za"
	configType = "toml"
	envPrefix  = "ZA"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Gateway    GatewayConfig    `mapstructure:"gateway"`
	Login      LoginConfig      `mapstructure:"login"`
	Pagination PaginationConfig `mapstructure:"pagination"`
	Batch      BatchConfig      `mapstructure:"batch"`
	Jobs       JobsConfig       `mapstructure:"jobs"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Events     EventsConfig     `mapstructure:"events"`
	Log        LogConfig        `mapstructure:"log"`
}

type ServerConfig struct {
	Addr           string   `mapstructure:"addr"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	MaxUploadMB    int64    `mapstructure:"max_upload_mb"`
}

type GatewayConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	Token          string        `mapstructure:"token"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type LoginConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

type PaginationConfig struct {
	MaxPages  int           `mapstructure:"max_pages"`
	PageDelay time.Duration `mapstructure:"page_delay"`
}

type BatchConfig struct {
	ItemDelay      time.Duration `mapstructure:"item_delay"`
	GroupSafeLimit int           `mapstructure:"group_safe_limit"`
	GroupChunkSize int           `mapstructure:"group_chunk_size"`
}

type JobsConfig struct {
	Retain int `mapstructure:"retain"`
}

type CacheConfig struct {
	Backend string        `mapstructure:"backend"`
	TTL     time.Duration `mapstructure:"ttl"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type EventsConfig struct {
	RedisChannel string `mapstructure:"redis_channel"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":3001")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.max_upload_mb", 25)

	v.SetDefault("gateway.base_url", "http://127.0.0.1:3100")
	v.SetDefault("gateway.token", "")
	v.SetDefault("gateway.request_timeout", 30*time.Second)

	v.SetDefault("login.timeout", 3*time.Minute)

	v.SetDefault("pagination.max_pages", 20)
	v.SetDefault("pagination.page_delay", 300*time.Millisecond)

	v.SetDefault("batch.item_delay", 1500*time.Millisecond)
	v.SetDefault("batch.group_safe_limit", 50)
	v.SetDefault("batch.group_chunk_size", 20)

	v.SetDefault("jobs.retain", 200)

	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.ttl", 5*time.Minute)

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("events.redis_channel", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.output", "stderr")
}

// Load reads za.toml from path (or the default search locations when path is
// empty), then applies ZA_* environment overrides.
func Load(v *viper.Viper, path string) (Config, error) {
	if v == nil {
		v = viper.New()
	}

	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType(configType)
		v.AddConfigPath(".")
		if homeDir, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(homeDir, ".config", "za"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &configNotFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) validate() error {
	switch strings.ToLower(c.Cache.Backend) {
	case "memory", "redis", "none":
	default:
		return fmt.Errorf("unsupported cache backend %q", c.Cache.Backend)
	}

	if c.Pagination.MaxPages < 0 {
		return errors.New("pagination.max_pages must not be negative")
	}
	if c.Batch.GroupChunkSize <= 0 {
		return errors.New("batch.group_chunk_size must be positive")
	}
	if c.Batch.GroupSafeLimit < 2 {
		return errors.New("batch.group_safe_limit must be at least 2")
	}

	return nil
}
