package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Insight defaults applied when the YAML leaves a value unset.
const (
	DefaultTopCap          = 20
	DefaultCardCap         = 5
	DefaultSelectedCount   = 4
	DefaultHeatmapMonths   = 24
	DefaultSheetsReadRange = "A:Z"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	Sheets    SheetsConfig    `yaml:"sheets"`
	Insights  InsightsConfig  `yaml:"insights"`
	Log       LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// StaticDir, when set, is served at / as the dashboard frontend.
	StaticDir string `yaml:"static_dir"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

type AuthConfig struct {
	APIKey string `yaml:"api_key"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

// SheetsConfig holds Google Sheets API credentials. Only one of
// credentials_file, refresh_token (with client id and secret) or api_key is used.
type SheetsConfig struct {
	APIKey          string `yaml:"api_key"`
	CredentialsFile string `yaml:"credentials_file"`
	ClientID        string `yaml:"client_id"`
	ClientSecret    string `yaml:"client_secret"`
	RefreshToken    string `yaml:"refresh_token"`
	DefaultRange    string `yaml:"default_range"`
}

type InsightsConfig struct {
	TopCap          int  `yaml:"top_cap"`
	CardCap         int  `yaml:"card_cap"`
	DefaultSelected int  `yaml:"default_selected"`
	HeatmapMonths   int  `yaml:"heatmap_months"`
	DemoFallback    bool `yaml:"demo_fallback"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// SlogLevel maps the configured level name to a slog.Level, defaulting to info.
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Load reads config from a YAML file, then applies environment variable overrides.
// Env vars use the prefix SJ_ and underscore-separated paths:
//
//	SJ_SERVER_HOST, SJ_SERVER_PORT,
//	SJ_DB_HOST, SJ_DB_PORT, SJ_DB_NAME,
//	SJ_DB_USER, SJ_DB_PASSWORD, SJ_DB_SSLMODE,
//	SJ_AUTH_API_KEY,
//	SJ_SHEETS_API_KEY, SJ_SHEETS_CREDENTIALS_FILE, SJ_SHEETS_REFRESH_TOKEN,
//	SJ_LOG_LEVEL
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	setString("SJ_SERVER_HOST", &cfg.Server.Host)
	setInt("SJ_SERVER_PORT", &cfg.Server.Port)
	setString("SJ_DB_HOST", &cfg.Database.Host)
	setInt("SJ_DB_PORT", &cfg.Database.Port)
	setString("SJ_DB_NAME", &cfg.Database.Name)
	setString("SJ_DB_USER", &cfg.Database.User)
	setString("SJ_DB_PASSWORD", &cfg.Database.Password)
	setString("SJ_DB_SSLMODE", &cfg.Database.SSLMode)
	setString("SJ_AUTH_API_KEY", &cfg.Auth.APIKey)
	setString("SJ_SHEETS_API_KEY", &cfg.Sheets.APIKey)
	setString("SJ_SHEETS_CREDENTIALS_FILE", &cfg.Sheets.CredentialsFile)
	setString("SJ_SHEETS_REFRESH_TOKEN", &cfg.Sheets.RefreshToken)
	setString("SJ_LOG_LEVEL", &cfg.Log.Level)
}

func (c *Config) applyDefaults() {
	if c.Insights.TopCap == 0 {
		c.Insights.TopCap = DefaultTopCap
	}
	if c.Insights.CardCap == 0 {
		c.Insights.CardCap = DefaultCardCap
	}
	if c.Insights.DefaultSelected == 0 {
		c.Insights.DefaultSelected = DefaultSelectedCount
	}
	if c.Insights.HeatmapMonths == 0 {
		c.Insights.HeatmapMonths = DefaultHeatmapMonths
	}
	if c.Sheets.DefaultRange == "" {
		c.Sheets.DefaultRange = DefaultSheetsReadRange
	}
	if c.Tailscale.Hostname == "" {
		c.Tailscale.Hostname = "strengthjourneys"
	}
}

func (c *Config) validate() error {
	if c.Server.Port == 0 {
		return fmt.Errorf("server.port is required")
	}
	if c.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if c.Database.Port == 0 {
		return fmt.Errorf("database.port is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database.name is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database.user is required")
	}
	if c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key is required")
	}
	if c.Insights.TopCap < 0 || c.Insights.CardCap < 0 {
		return fmt.Errorf("insights caps must be positive")
	}
	if c.Insights.DefaultSelected < 0 || c.Insights.HeatmapMonths < 0 {
		return fmt.Errorf("insights.default_selected and insights.heatmap_months must be positive")
	}
	return nil
}
