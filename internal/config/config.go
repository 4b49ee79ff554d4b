package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the agent gateway
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Ollama   OllamaConfig   `mapstructure:"ollama"`
	Search   SearchConfig   `mapstructure:"search"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Database DatabaseConfig `mapstructure:"database"`
	Chat     ChatConfig     `mapstructure:"chat"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string   `mapstructure:"host"`
	Port         int      `mapstructure:"port"`
	Mode         string   `mapstructure:"mode"` // development, production
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// OllamaConfig holds inference endpoint configuration
type OllamaConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
	// ProbeTimeout bounds the status/models liveness probe, which must
	// answer quickly even when inference calls are allowed to run long.
	ProbeTimeout time.Duration `mapstructure:"probe_timeout"`
}

// SearchConfig holds web search provider configuration
type SearchConfig struct {
	Provider   string        `mapstructure:"provider"` // duckduckgo, serper, brave
	APIKey     string        `mapstructure:"api_key"`
	MaxResults int           `mapstructure:"max_results"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// CacheConfig holds search result cache configuration
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// DatabaseConfig holds session store configuration
type DatabaseConfig struct {
	Path       string        `mapstructure:"path"`
	SessionTTL time.Duration `mapstructure:"session_ttl"`
}

// ChatConfig holds prompt assembly configuration
type ChatConfig struct {
	// HistoryBudget caps the total characters of conversation history
	// forwarded to the model; oldest turns are dropped first.
	HistoryBudget int `mapstructure:"history_budget"`
}

// Load loads configuration from file and environment
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("AGENTGW")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found, use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "development")
	v.SetDefault("server.allow_origins", []string{"*"})

	v.SetDefault("ollama.base_url", "http://localhost:11434")
	v.SetDefault("ollama.model", "llama3.2:latest")
	v.SetDefault("ollama.timeout", "120s")
	v.SetDefault("ollama.probe_timeout", "5s")

	v.SetDefault("search.provider", "duckduckgo")
	v.SetDefault("search.api_key", "")
	v.SetDefault("search.max_results", 10)
	v.SetDefault("search.timeout", "10s")

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.ttl", "5m")

	v.SetDefault("database.path", "./data/agentgw.db")
	v.SetDefault("database.session_ttl", "24h")

	v.SetDefault("chat.history_budget", 16000)
}

// Address returns the server address
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Production reports whether the gateway runs in production mode.
func (c *Config) Production() bool {
	return c.Server.Mode == "production"
}
