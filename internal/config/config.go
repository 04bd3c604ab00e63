// Package config loads and validates watcher configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"rentalwatch/internal/source/static"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig          `mapstructure:"server"`
	Logging  LoggingConfig         `mapstructure:"logging"`
	Schedule ScheduleConfig        `mapstructure:"schedule"`
	Crawl    CrawlConfig           `mapstructure:"crawl"`
	Oracle   OracleConfig          `mapstructure:"oracle"`
	Mail     MailConfig            `mapstructure:"mail"`
	Data     DataConfig            `mapstructure:"data"`
	Sites    map[string]SiteConfig `mapstructure:"sites"`
}

// ServerConfig controls the HTTP health surface.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// ScheduleConfig bounds the background loop.
type ScheduleConfig struct {
	StartHour     int           `mapstructure:"start_hour"`
	EndHour       int           `mapstructure:"end_hour"`
	CycleDelayMin time.Duration `mapstructure:"cycle_delay_min"`
	CycleDelayMax time.Duration `mapstructure:"cycle_delay_max"`
	WakeOffsetMin time.Duration `mapstructure:"wake_offset_min"`
	WakeOffsetMax time.Duration `mapstructure:"wake_offset_max"`
}

// CrawlConfig bounds discovery pacing.
type CrawlConfig struct {
	PageDelayMin   time.Duration `mapstructure:"page_delay_min"`
	PageDelayMax   time.Duration `mapstructure:"page_delay_max"`
	DetailDelayMin time.Duration `mapstructure:"detail_delay_min"`
	DetailDelayMax time.Duration `mapstructure:"detail_delay_max"`
}

// OracleConfig holds the classification-oracle credential and model.
type OracleConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// MailConfig holds mail-transport settings and the error-digest gate.
type MailConfig struct {
	Host               string `mapstructure:"host"`
	Port               int    `mapstructure:"port"`
	Username           string `mapstructure:"username"`
	Password           string `mapstructure:"password"`
	From               string `mapstructure:"from"`
	To                 string `mapstructure:"to"`
	ErrorDigestEnabled bool   `mapstructure:"error_digest_enabled"`
}

// DataConfig sets the root directory for the per-site state files.
type DataConfig struct {
	Dir string `mapstructure:"dir"`
}

// SiteConfig describes one aggregator site to watch.
type SiteConfig struct {
	BaseURL     string           `mapstructure:"base_url"`
	SearchURL   string           `mapstructure:"search_url"`
	Mode        string           `mapstructure:"mode"`
	PageParam   string           `mapstructure:"page_param"`
	PromptPath  string           `mapstructure:"prompt_path"`
	UserAgent   string           `mapstructure:"user_agent"`
	UserDataDir string           `mapstructure:"user_data_dir"`
	Selectors   static.Selectors `mapstructure:"selectors"`
}

// Site extraction modes.
const (
	ModeStatic   = "static"
	ModeHeadless = "headless"
)

// Validate checks one site's required settings. A failing site stays dormant;
// it does not bring the process down.
func (s SiteConfig) Validate() error {
	if s.BaseURL == "" {
		return fmt.Errorf("base_url is required")
	}
	if s.SearchURL == "" {
		return fmt.Errorf("search_url is required")
	}
	switch s.Mode {
	case "", ModeStatic, ModeHeadless:
	default:
		return fmt.Errorf("unknown mode %q", s.Mode)
	}
	return nil
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("RENTALWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindLegacyEnv(v)
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/rentalwatch/")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks process-wide settings. Per-site problems are left to
// SiteConfig.Validate so one bad site cannot block the rest.
func (c Config) Validate() error {
	if c.Schedule.StartHour < 0 || c.Schedule.StartHour > 23 {
		return fmt.Errorf("schedule.start_hour must be in [0,23], got %d", c.Schedule.StartHour)
	}
	if c.Schedule.EndHour < 0 || c.Schedule.EndHour > 23 {
		return fmt.Errorf("schedule.end_hour must be in [0,23], got %d", c.Schedule.EndHour)
	}
	if c.Schedule.CycleDelayMax < c.Schedule.CycleDelayMin {
		return fmt.Errorf("schedule.cycle_delay_max must be >= cycle_delay_min")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be a valid port, got %d", c.Server.Port)
	}
	return nil
}

// bindLegacyEnv wires the recognized plain environment variable names to
// their config keys.
func bindLegacyEnv(v *viper.Viper) {
	legacy := map[string]string{
		"schedule.start_hour":       "TIME_START",
		"schedule.end_hour":         "TIME_END",
		"mail.error_digest_enabled": "ERROR_DIGEST_ENABLED",
		"oracle.api_key":            "OPENAI_API_KEY",
		"mail.host":                 "EMAIL_HOST",
		"mail.port":                 "EMAIL_PORT",
		"mail.username":             "EMAIL_USER",
		"mail.password":             "EMAIL_PASS",
		"mail.from":                 "EMAIL_FROM",
		"mail.to":                   "SUBSCRIBER_EMAIL",
	}
	for key, env := range legacy {
		// BindEnv only fails when called without arguments.
		_ = v.BindEnv(key, env)
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3000)
	v.SetDefault("logging.development", false)

	v.SetDefault("schedule.start_hour", 8)
	v.SetDefault("schedule.end_hour", 1)
	v.SetDefault("schedule.cycle_delay_min", "3m")
	v.SetDefault("schedule.cycle_delay_max", "10m")
	v.SetDefault("schedule.wake_offset_min", "10m")
	v.SetDefault("schedule.wake_offset_max", "50m")

	v.SetDefault("crawl.page_delay_min", "2s")
	v.SetDefault("crawl.page_delay_max", "5s")
	v.SetDefault("crawl.detail_delay_min", "3s")
	v.SetDefault("crawl.detail_delay_max", "5s")

	v.SetDefault("oracle.model", "gpt-4o")

	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.error_digest_enabled", false)

	v.SetDefault("data.dir", "data")
}
