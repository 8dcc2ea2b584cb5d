package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config global configuration, mirrors config/config.yaml
type Config struct {
	Server    ServerConfig              `mapstructure:"server"`
	Database  DatabaseConfig            `mapstructure:"database"`
	Log       LogConfig                 `mapstructure:"log"`
	Sync      SyncConfig                `mapstructure:"sync"`
	Email     EmailConfig               `mapstructure:"email"`
	Platforms map[string]PlatformConfig `mapstructure:"platforms"` // keyed by provider name: better / lta / towerhamlets
}

// ServerConfig HTTP server settings
type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // gin mode: debug/release/test
}

// DatabaseConfig PostgreSQL settings
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// LogConfig logger settings
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// SyncConfig pipeline run settings
type SyncConfig struct {
	DaysToFetch int    `mapstructure:"days_to_fetch"` // default forward window when the trigger does not pass one
	MaxDays     int    `mapstructure:"max_days"`
	Timezone    string `mapstructure:"timezone"` // venue wall-clock timezone, used for "today" and timestamp conversion
	SampleSize  int    `mapstructure:"sample_size"`
}

// EmailConfig outbound email settings
type EmailConfig struct {
	Provider    string    `mapstructure:"provider"` // ses / log / noop
	FromAddress string    `mapstructure:"from_address"`
	FromName    string    `mapstructure:"from_name"`
	SiteURL     string    `mapstructure:"site_url"`
	SES         SESConfig `mapstructure:"ses"`
}

// SESConfig AWS SES credentials
type SESConfig struct {
	Region             string `mapstructure:"region"`
	AccessKeyID        string `mapstructure:"access_key_id"`
	SecretAccessKey    string `mapstructure:"secret_access_key"`
	InsecureSkipVerify bool   `mapstructure:"insecure_skip_verify"`
}

// PlatformConfig settings for one upstream booking provider
type PlatformConfig struct {
	BaseURL      string        `mapstructure:"base_url"`    // API / page root
	BookingURL   string        `mapstructure:"booking_url"` // public booking site, used for links in emails
	Timeout      int           `mapstructure:"timeout"`     // request timeout in seconds, 0 means none
	Proxy        string        `mapstructure:"proxy"`
	UserAgent    string        `mapstructure:"user_agent"`
	RequestDelay time.Duration `mapstructure:"request_delay"` // pause between sequential requests
	SlotMinutes  int           `mapstructure:"slot_minutes"`  // default bucket width for session grids
	Venues       []VenueConfig `mapstructure:"venues"`
}

// VenueConfig one venue in a provider's catalog
type VenueConfig struct {
	ID             string           `mapstructure:"id"`   // stable id used in the location key
	Slug           string           `mapstructure:"slug"` // upstream path segment
	Name           string           `mapstructure:"name"`
	OperatingHours OperatingHours   `mapstructure:"operating_hours"`
	SlotMinutes    int              `mapstructure:"slot_minutes"`
	Activities     []ActivityConfig `mapstructure:"activities"`
}

// ActivityConfig one bookable activity at a venue (grid/array provider only)
type ActivityConfig struct {
	ID             string         `mapstructure:"id"`
	Slug           string         `mapstructure:"slug"`
	Name           string         `mapstructure:"name"`
	OperatingHours OperatingHours `mapstructure:"operating_hours"`
}

// OperatingHours opening window in HH:MM, both ends inclusive
type OperatingHours struct {
	Start string `mapstructure:"start"`
	End   string `mapstructure:"end"`
}

// LoadConfig loads config/config.yaml; secrets are overridden from .env / the environment
func LoadConfig() (*Config, error) {
	_ = godotenv.Load() // .env is optional

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	setDefaults(v)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config file: %w", err)
	}

	overrideFromEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("log.level", "info")
	v.SetDefault("sync.days_to_fetch", 6)
	v.SetDefault("sync.max_days", 30)
	v.SetDefault("sync.timezone", "Europe/London")
	v.SetDefault("sync.sample_size", 5)
	v.SetDefault("email.provider", "log")
}

// overrideFromEnv secrets and per-environment URLs, env wins over yaml
func overrideFromEnv(cfg *Config) {
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("EMAIL_PROVIDER"); v != "" {
		cfg.Email.Provider = v
	}
	if v := os.Getenv("SES_ACCESS_KEY_ID"); v != "" {
		cfg.Email.SES.AccessKeyID = v
	}
	if v := os.Getenv("SES_SECRET_ACCESS_KEY"); v != "" {
		cfg.Email.SES.SecretAccessKey = v
	}
	if v := os.Getenv("SES_REGION"); v != "" {
		cfg.Email.SES.Region = v
	}
	for name, p := range cfg.Platforms {
		prefix := strings.ToUpper(name)
		if v := os.Getenv(prefix + "_BASE_URL"); v != "" {
			p.BaseURL = v
		}
		if v := os.Getenv(prefix + "_BOOKING_URL"); v != "" {
			p.BookingURL = v
		}
		if v := os.Getenv(prefix + "_PROXY"); v != "" {
			p.Proxy = v
		}
		cfg.Platforms[name] = p
	}
}

// Validate rejects catalogs the adapters cannot work with
func (c *Config) Validate() error {
	if c.Sync.DaysToFetch <= 0 {
		return fmt.Errorf("sync.days_to_fetch must be positive, got %d", c.Sync.DaysToFetch)
	}
	if c.Sync.MaxDays < c.Sync.DaysToFetch {
		return fmt.Errorf("sync.max_days (%d) is below sync.days_to_fetch (%d)", c.Sync.MaxDays, c.Sync.DaysToFetch)
	}
	if _, err := time.LoadLocation(c.Sync.Timezone); err != nil {
		return fmt.Errorf("sync.timezone: %w", err)
	}
	names := make([]string, 0, len(c.Platforms))
	for name := range c.Platforms {
		names = append(names, name)
	}
	sort.Strings(names)

	// location keys share one natural key space across providers
	owners := make(map[string]string)
	for _, name := range names {
		p := c.Platforms[name]
		if p.BaseURL == "" {
			return fmt.Errorf("platforms.%s.base_url is required", name)
		}
		seen := make(map[string]struct{}, len(p.Venues))
		for _, venue := range p.Venues {
			if venue.ID == "" {
				return fmt.Errorf("platforms.%s: venue without id", name)
			}
			if _, dup := seen[venue.ID]; dup {
				return fmt.Errorf("platforms.%s: duplicate venue id %q", name, venue.ID)
			}
			seen[venue.ID] = struct{}{}
		}
		for _, key := range p.LocationKeys() {
			if owner, dup := owners[key]; dup {
				return fmt.Errorf("location key %q is configured by both platforms.%s and platforms.%s", key, owner, name)
			}
			owners[key] = name
		}
	}
	return nil
}

// LocationKeys keys the provider's slots carry: venue/activity for venues with activities, otherwise the venue id
func (p PlatformConfig) LocationKeys() []string {
	var keys []string
	for _, venue := range p.Venues {
		if len(venue.Activities) == 0 {
			keys = append(keys, venue.ID)
			continue
		}
		for _, activity := range venue.Activities {
			keys = append(keys, venue.ID+"/"+activity.ID)
		}
	}
	return keys
}

// Location resolves the sync timezone; Validate has already checked it
func (s SyncConfig) Location() *time.Location {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// SlugOrID upstream slug, falling back to the id
func (v VenueConfig) SlugOrID() string {
	if v.Slug != "" {
		return v.Slug
	}
	return v.ID
}

// SlugOrID upstream slug, falling back to the id
func (a ActivityConfig) SlugOrID() string {
	if a.Slug != "" {
		return a.Slug
	}
	return a.ID
}
