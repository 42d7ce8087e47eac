package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files, environment
// variables and command-line flags.
type Config struct {
	AppName  string `mapstructure:"app_name"`
	Env      string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level"`

	RunLogDir      string `mapstructure:"run_log_dir"`
	CollectorsFile string `mapstructure:"collectors_file"`
	ChannelsFile   string `mapstructure:"channels_file"`

	// City restricts collection to one city; empty collects everything.
	City string `mapstructure:"city"`
	// PushTo / EmailTo override the destinations configured in the channels
	// file for this run only.
	PushTo  string `mapstructure:"push_to"`
	EmailTo string `mapstructure:"email_to"`

	StoreType string `mapstructure:"store_type"`
	BoltPath  string `mapstructure:"bolt_path"`

	CollectTimeoutSeconds int64         `mapstructure:"collect_timeout_seconds"`
	SendTimeoutSeconds    int64         `mapstructure:"send_timeout_seconds"`
	CollectTimeout        time.Duration `mapstructure:"-"`
	SendTimeout           time.Duration `mapstructure:"-"`

	SendRetryMax       int           `mapstructure:"send_retry_max"`
	SendRetryBackoffMs int64         `mapstructure:"send_retry_backoff_ms"`
	SendRetryBackoff   time.Duration `mapstructure:"-"`

	// SendDelayMs is the minimum gap between successive sends once a batch
	// grows past SendDelayThreshold records. It caps the overall request
	// rate against third-party provider limits.
	SendDelayMs        int64         `mapstructure:"send_delay_ms"`
	SendDelayThreshold int           `mapstructure:"send_delay_threshold"`
	SendDelay          time.Duration `mapstructure:"-"`
}

// Load reads configuration from environment variables, config files, and the
// provided command-line arguments.
func Load(args []string) (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "tender-sentinel")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("run_log_dir", "./logs")
	v.SetDefault("collectors_file", "./configs/collectors.yaml")
	v.SetDefault("channels_file", "./configs/channels.yaml")
	v.SetDefault("store_type", "bbolt")
	v.SetDefault("bolt_path", "./data/tenders.db")
	v.SetDefault("collect_timeout_seconds", 60)
	v.SetDefault("send_timeout_seconds", 30)
	v.SetDefault("send_retry_max", 2)
	v.SetDefault("send_retry_backoff_ms", 1000)
	v.SetDefault("send_delay_ms", 1500)
	v.SetDefault("send_delay_threshold", 3)

	flags := pflag.NewFlagSet("tender-sentinel", pflag.ContinueOnError)
	flags.String("city", "", "city name to filter tenders (collects all when empty)")
	flags.String("push-to", "", "override the push-message destination for this run")
	flags.String("email-to", "", "override the email destination for this run")
	flags.String("log-level", "", "log verbosity (debug, info, warn, error)")
	if err := flags.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}
	bindings := map[string]string{
		"city":      "city",
		"push-to":   "push_to",
		"email-to":  "email_to",
		"log-level": "log_level",
	}
	for flagName, key := range bindings {
		f := flags.Lookup(flagName)
		if f != nil && f.Changed {
			v.Set(key, f.Value.String())
		}
	}

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CollectTimeoutSeconds <= 0 {
		return nil, fmt.Errorf("invalid collect_timeout_seconds (must be positive seconds)")
	}
	if cfg.SendTimeoutSeconds <= 0 {
		return nil, fmt.Errorf("invalid send_timeout_seconds (must be positive seconds)")
	}
	if cfg.SendRetryMax < 0 {
		return nil, fmt.Errorf("invalid send_retry_max (must not be negative)")
	}
	cfg.CollectTimeout = time.Duration(cfg.CollectTimeoutSeconds) * time.Second
	cfg.SendTimeout = time.Duration(cfg.SendTimeoutSeconds) * time.Second
	cfg.SendRetryBackoff = time.Duration(cfg.SendRetryBackoffMs) * time.Millisecond
	cfg.SendDelay = time.Duration(cfg.SendDelayMs) * time.Millisecond

	return &cfg, nil
}
