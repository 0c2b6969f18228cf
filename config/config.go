package config

import (
	"fmt"
	"time"

	pkgconfig "tandem/pkg/config"
)

type Config struct {
	Env       string                    `yaml:"-"`
	DB        pkgconfig.DBConfig        `yaml:"db"`
	MQ        pkgconfig.MQConfig        `yaml:"mq"`
	Redis     pkgconfig.RedisConfig     `yaml:"redis"`
	JWT       pkgconfig.JWTConfig       `yaml:"jwt"`
	Server    pkgconfig.ServerConfig    `yaml:"server"`
	Assistant pkgconfig.AssistantConfig `yaml:"assistant"`
	Webhook   pkgconfig.WebhookConfig   `yaml:"webhook"`
	OTel      pkgconfig.OTelConfig      `yaml:"otel"`
	Cache     CacheConfig               `yaml:"cache"`
	Outbox    OutboxConfig              `yaml:"outbox"`
}

type CacheConfig struct {
	GoalsTTL time.Duration `yaml:"goals_ttl"`
	FeedTTL  time.Duration `yaml:"feed_ttl"`
}

type OutboxConfig struct {
	Interval   time.Duration `yaml:"interval"`
	BatchSize  int           `yaml:"batch_size"`
	MaxRetries int           `yaml:"max_retries"`
}

// Load reads config/<CONFIG_ENV>.yaml over config/base.yaml, then applies
// environment overrides.
func Load() (*Config, error) {
	env := pkgconfig.GetConfigEnv()
	dir := pkgconfig.GetEnv("CONFIG_DIR", "config")

	cfg := defaults()
	if err := pkgconfig.Decode(env, dir, cfg); err != nil {
		return nil, fmt.Errorf("load config (%s): %w", env, err)
	}
	cfg.Env = env

	pkgconfig.OverrideDBFromEnv(&cfg.DB)
	pkgconfig.OverrideMQFromEnv(&cfg.MQ)
	pkgconfig.OverrideRedisFromEnv(&cfg.Redis)
	pkgconfig.OverrideJWTFromEnv(&cfg.JWT)
	pkgconfig.OverrideServerFromEnv(&cfg.Server)
	pkgconfig.OverrideAssistantFromEnv(&cfg.Assistant)
	pkgconfig.OverrideWebhookFromEnv(&cfg.Webhook)
	pkgconfig.OverrideOTelFromEnv(&cfg.OTel)

	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("jwt.secret is required")
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		DB: pkgconfig.DBConfig{
			Host:               "localhost",
			Port:               5432,
			SSLMode:            "disable",
			MaxConns:           10,
			SlowQueryThreshold: 100 * time.Millisecond,
		},
		Server: pkgconfig.ServerConfig{Port: ":8080"},
		Assistant: pkgconfig.AssistantConfig{
			Timeout:    30 * time.Second,
			RatePerMin: 20,
		},
		OTel:   pkgconfig.OTelConfig{ServiceName: "tandem"},
		Cache:  CacheConfig{GoalsTTL: 10 * time.Minute, FeedTTL: 30 * time.Second},
		Outbox: OutboxConfig{Interval: time.Second, BatchSize: 100, MaxRetries: 5},
	}
}
