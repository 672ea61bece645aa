package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Mongo     MongoConfig
	SQLite    SQLiteConfig
	Redis     RedisConfig
	LLM       LLMConfig
	Query     QueryConfig
	RateLimit RateLimitConfig
	Logging   LoggingConfig
	Seed      SeedConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	ReadTimeout    int
	WriteTimeout   int
	BodyLimit      int
	AllowedOrigins []string
	Development    bool
}

type MongoConfig struct {
	URI                  string
	Database             string
	ConnectTimeoutSec    int
	ProductionCollection string
	QualityCollection    string
	DowntimeCollection   string
	AggregateTimeoutSec  int
}

type SQLiteConfig struct {
	Path string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type LLMConfig struct {
	BaseURL     string
	Model       string
	APIKey      string
	Temperature float32
	MaxTokens   int
	TimeoutSec  int
}

type QueryConfig struct {
	MaxQueryLength   int
	MaxStages        int
	AllowedOperators []string
	CacheTTLSec      int
	HistoryLimit     int
}

type RateLimitConfig struct {
	Enabled              bool
	MaxRequestsPerMinute int
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

type SeedConfig struct {
	OnStartup bool
	Days      int
}

func (c LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

func (c QueryConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSec) * time.Second
}

func (c MongoConfig) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutSec) * time.Second
}

func (c MongoConfig) AggregateTimeout() time.Duration {
	return time.Duration(c.AggregateTimeoutSec) * time.Second
}

// Load reads config.yaml from the usual locations and overlays GENBI_* env vars.
func Load() (*Config, error) {
	return LoadFrom(viper.New(), "")
}

// LoadFrom loads into v. An explicit path skips the search locations.
func LoadFrom(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/genbi")
	}

	v.SetEnvPrefix("GENBI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Mongo.URI == "" {
		return errors.New("mongo.uri is required")
	}
	if c.LLM.TimeoutSec <= 0 {
		return fmt.Errorf("llm.timeoutSec must be positive, got %d", c.LLM.TimeoutSec)
	}
	if c.Query.MaxStages < 0 {
		return fmt.Errorf("query.maxStages must not be negative, got %d", c.Query.MaxStages)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8001)
	v.SetDefault("server.readTimeout", 60)
	v.SetDefault("server.writeTimeout", 60)
	v.SetDefault("server.bodyLimit", 1048576)
	v.SetDefault("server.allowedOrigins", []string{"*"})
	v.SetDefault("server.development", false)

	v.SetDefault("mongo.uri", "mongodb://localhost:27017/")
	v.SetDefault("mongo.database", "genbi_manufacturing")
	v.SetDefault("mongo.connectTimeoutSec", 10)
	v.SetDefault("mongo.productionCollection", "production_data")
	v.SetDefault("mongo.qualityCollection", "quality_metrics")
	v.SetDefault("mongo.downtimeCollection", "equipment_downtime")
	v.SetDefault("mongo.aggregateTimeoutSec", 20)

	v.SetDefault("sqlite.path", "./data/genbi.db")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	v.SetDefault("llm.baseURL", "http://localhost:1234/v1")
	v.SetDefault("llm.model", "llama-3-8b-instruct")
	v.SetDefault("llm.apiKey", "lm-studio")
	v.SetDefault("llm.temperature", 0.1)
	v.SetDefault("llm.maxTokens", 1000)
	v.SetDefault("llm.timeoutSec", 30)

	v.SetDefault("query.maxQueryLength", 2000)
	v.SetDefault("query.maxStages", 20)
	v.SetDefault("query.allowedOperators", []string{})
	v.SetDefault("query.cacheTTLSec", 600)
	v.SetDefault("query.historyLimit", 50)

	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.maxRequestsPerMinute", 60)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.outputPath", "stdout")

	v.SetDefault("seed.onStartup", false)
	v.SetDefault("seed.days", 30)
}
