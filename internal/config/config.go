package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config is the full orchestrator configuration, loaded from research.yaml with
// environment overrides applied by viper.
type Config struct {
	Temporal TemporalConfig `mapstructure:"temporal"`
	Gateway  GatewayConfig  `mapstructure:"gateway"`
	Search   SearchConfig   `mapstructure:"search"`
	Research ResearchConfig `mapstructure:"research"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
}

// TemporalConfig points the worker and service at the Temporal cluster.
type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

// GatewayConfig configures the LLM gateway client.
type GatewayConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	Model          string        `mapstructure:"model"`
	APIKey         string        `mapstructure:"api_key"`
	Timeout        time.Duration `mapstructure:"timeout"`
	RequestsPerSec float64       `mapstructure:"requests_per_sec"`
	Burst          int           `mapstructure:"burst"`
}

// SearchConfig configures the retrieval tools.
type SearchConfig struct {
	WebEndpoint  string        `mapstructure:"web_endpoint"`
	WikiEndpoint string        `mapstructure:"wiki_endpoint"`
	WebMaxDocs   int           `mapstructure:"web_max_docs"`
	WikiMaxDocs  int           `mapstructure:"wiki_max_docs"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// ResearchConfig holds workflow-level knobs.
type ResearchConfig struct {
	MaxInterviewTurns int           `mapstructure:"max_interview_turns"`
	ActivityTimeout   time.Duration `mapstructure:"activity_timeout"`
	InterviewTimeout  time.Duration `mapstructure:"interview_timeout"`
}

// RedisConfig configures the session store backend.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// PostgresConfig configures the research archive database.
type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
	Enabled  bool   `mapstructure:"enabled"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// TracingConfig configures the OTLP trace exporter.
type TracingConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
	Service  string `mapstructure:"service"`
}

// Load reads research.yaml from CONFIG_PATH (default ./config/research.yaml),
// applies RESEARCH_* env overrides, and fills defaults.
func Load() (*Config, error) {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config/research.yaml"
	}

	v := viper.New()
	v.SetConfigFile(cfgPath)
	v.SetEnvPrefix("RESEARCH")
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Missing file is fine; defaults plus env carry a dev setup.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	applyEnvOverrides(&c)
	return &c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "research-orchestrator")
	v.SetDefault("gateway.base_url", "http://llm-gateway:8000")
	v.SetDefault("gateway.model", "gpt-4o-mini")
	v.SetDefault("gateway.timeout", 60*time.Second)
	v.SetDefault("gateway.requests_per_sec", 5.0)
	v.SetDefault("gateway.burst", 10)
	v.SetDefault("search.web_endpoint", "https://api.duckduckgo.com")
	v.SetDefault("search.wiki_endpoint", "https://en.wikipedia.org/w/api.php")
	v.SetDefault("search.web_max_docs", 3)
	v.SetDefault("search.wiki_max_docs", 2)
	v.SetDefault("search.timeout", 20*time.Second)
	v.SetDefault("research.max_interview_turns", 2)
	v.SetDefault("research.activity_timeout", 2*time.Minute)
	v.SetDefault("research.interview_timeout", 15*time.Minute)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("tracing.service", "research-orchestrator")
}

// applyEnvOverrides handles the operational secrets that ship via env only.
func applyEnvOverrides(c *Config) {
	if key := os.Getenv("GATEWAY_API_KEY"); key != "" {
		c.Gateway.APIKey = key
	}
	if pw := os.Getenv("REDIS_PASSWORD"); pw != "" {
		c.Redis.Password = pw
	}
	if pw := os.Getenv("POSTGRES_PASSWORD"); pw != "" {
		c.Postgres.Password = pw
	}
}
