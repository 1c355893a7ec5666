package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/cristopher-namchee/reserenv/internal/vocab"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Logging    LoggingConfig    `yaml:"logging"`
	Redis      RedisConfig      `yaml:"redis"`
	Slack      SlackConfig      `yaml:"slack"`
	Bot        BotConfig        `yaml:"bot"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Vocabulary vocab.Config     `yaml:"vocabulary"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type SlackConfig struct {
	BotToken      string          `yaml:"bot_token"`
	SigningSecret string          `yaml:"signing_secret"`
	Port          int             `yaml:"port"`
	VerifyRequest bool            `yaml:"verify_request"`
	RateLimit     RateLimitConfig `yaml:"rate_limit"`
}

type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type BotConfig struct {
	// ReminderTime is the local "HH:MM" at which the daily sweep fires
	// when the reminder binary runs with -loop.
	ReminderTime string `yaml:"reminder_time"`
	// SingleEnvironment rejects reserve/unreserve calls that name more
	// than one environment.
	SingleEnvironment *bool `yaml:"single_environment"`
	RateLimitMessages int   `yaml:"rate_limit_messages"`
	RateLimitWindow   int   `yaml:"rate_limit_window"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

// Load reads the YAML config at path, expanding ${VAR} references from the
// process environment after sourcing .env when present.
func Load(configPath string) (*Config, error) {
	// .env is optional; secrets usually arrive via real env vars.
	_ = godotenv.Load(".env")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expanded := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expanded, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Slack.BotToken == "" {
		return errors.New("slack bot token is required")
	}
	if c.Slack.VerifyRequest && c.Slack.SigningSecret == "" {
		return errors.New("slack signing secret is required when request verification is enabled")
	}
	if len(c.Vocabulary.Environments) == 0 {
		return errors.New("at least one environment must be configured")
	}

	// Full vocabulary checks (duplicates, alias shadowing, key-safe
	// names) live in vocab.New; running them here surfaces bad config at
	// load time instead of first use.
	if _, err := vocab.New(c.Vocabulary); err != nil {
		return err
	}

	return nil
}

// SingleEnvironmentPolicy reports whether multi-environment write commands
// are rejected. Defaults to true.
func (c *Config) SingleEnvironmentPolicy() bool {
	return c.Bot.SingleEnvironment == nil || *c.Bot.SingleEnvironment
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "reserenv"
	}
	if c.Slack.Port == 0 {
		c.Slack.Port = 8080
	}
	if c.Slack.RateLimit.RPS == 0 {
		c.Slack.RateLimit.RPS = 5
	}
	if c.Slack.RateLimit.Burst == 0 {
		c.Slack.RateLimit.Burst = 10
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.Bot.ReminderTime == "" {
		c.Bot.ReminderTime = "09:00"
	}
	if c.Bot.RateLimitMessages == 0 {
		c.Bot.RateLimitMessages = 20
	}
	if c.Bot.RateLimitWindow == 0 {
		c.Bot.RateLimitWindow = 60
	}
}
