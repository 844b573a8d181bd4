package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all workflowd configuration.
// Priority: env vars > config.yaml > defaults.
type Config struct {
	Server struct {
		ListenAddr        string `mapstructure:"listen_addr"`
		MaxConcurrentRuns int    `mapstructure:"max_concurrent_runs"`
	} `mapstructure:"server"`
	DB struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"db"`
	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`
	Engine struct {
		RunTimeout      time.Duration `mapstructure:"run_timeout"`
		BehaviorTimeout time.Duration `mapstructure:"behavior_timeout"`
	} `mapstructure:"engine"`
	Telemetry struct {
		OTLPEndpoint string `mapstructure:"otlp_endpoint"`
		ServiceName  string `mapstructure:"service_name"`
	} `mapstructure:"telemetry"`
	Webhook struct {
		Timeout time.Duration `mapstructure:"timeout"`
	} `mapstructure:"webhook"`
	Runs struct {
		Retention     time.Duration `mapstructure:"retention"` // 0 keeps run reports forever
		PruneSchedule string        `mapstructure:"prune_schedule"`
	} `mapstructure:"runs"`
}

const envPrefix = "WORKFLOWD"

func workflowdDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".workflowd"
	}
	return filepath.Join(home, ".workflowd")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.listen_addr", ":4100")
	v.SetDefault("server.max_concurrent_runs", 32)
	v.SetDefault("db.path", "file:"+filepath.Join(workflowdDir(), "workflowd.db"))
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("engine.run_timeout", 2*time.Minute)
	v.SetDefault("engine.behavior_timeout", 30*time.Second)
	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("telemetry.service_name", "workflowd")
	v.SetDefault("webhook.timeout", 10*time.Second)
	v.SetDefault("runs.retention", 30*24*time.Hour)
	v.SetDefault("runs.prune_schedule", "@daily")
}

// loadConfig reads configFile when given, otherwise config.yaml from the
// usual search path. A missing default file is fine; a missing explicit one
// is not.
func loadConfig(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath(workflowdDir())
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, cfg.validate()
}

func (c *Config) validate() error {
	if c.DB.Path == "" {
		return errors.New("db.path is required")
	}
	if c.Server.MaxConcurrentRuns <= 0 {
		return fmt.Errorf("server.max_concurrent_runs must be positive, got %d", c.Server.MaxConcurrentRuns)
	}
	if c.Engine.RunTimeout <= 0 || c.Engine.BehaviorTimeout <= 0 {
		return errors.New("engine timeouts must be positive")
	}
	if c.Runs.Retention < 0 {
		return errors.New("runs.retention must not be negative")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}
