package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Track source kinds.
const (
	SourceFile     = "file"
	SourceHTTP     = "http"
	SourcePostgres = "postgres"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Temporal  TemporalConfig  `mapstructure:"temporal"`
	Tracks    TracksConfig    `mapstructure:"tracks"`
	Tiles     TilesConfig     `mapstructure:"tiles"`
	Render    RenderConfig    `mapstructure:"render"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// NATSConfig configures event publishing. An empty URL disables it.
type NATSConfig struct {
	URL string `mapstructure:"url"`
}

// ValkeyConfig configures the raw track cache. An empty Addr disables it.
type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

// TracksConfig selects where raw GPX files come from.
type TracksConfig struct {
	Source   string `mapstructure:"source"`
	BaseDir  string `mapstructure:"base_dir"`
	BaseURL  string `mapstructure:"base_url"`
	Timeout  int    `mapstructure:"timeout"`
	CacheTTL int    `mapstructure:"cache_ttl"`
}

// TilesConfig describes the base map tile provider. URL may contain {z},
// {x}, {y}, {s} and {key} placeholders.
type TilesConfig struct {
	URL         string   `mapstructure:"url"`
	APIKey      string   `mapstructure:"api_key"`
	Attribution string   `mapstructure:"attribution"`
	Subdomains  []string `mapstructure:"subdomains"`
	UserAgent   string   `mapstructure:"user_agent"`
	Timeout     int      `mapstructure:"timeout"`
	Concurrency int      `mapstructure:"concurrency"`
	CacheSize   int      `mapstructure:"cache_size"`
}

// RenderConfig holds the raster map styling.
type RenderConfig struct {
	Width         int     `mapstructure:"width"`
	Height        int     `mapstructure:"height"`
	PathColor     string  `mapstructure:"path_color"`
	PathWidth     float64 `mapstructure:"path_width"`
	PathOpacity   float64 `mapstructure:"path_opacity"`
	MarkerRadius  float64 `mapstructure:"marker_radius"`
	MarkerStroke  float64 `mapstructure:"marker_stroke"`
	MarkerColor   string  `mapstructure:"marker_color"`
	MarkerFill    string  `mapstructure:"marker_fill"`
	FontSize      float64 `mapstructure:"font_size"`
	StartIconPath string  `mapstructure:"start_icon"`
}

// DefaultRender returns the built-in map styling.
func DefaultRender() RenderConfig {
	return RenderConfig{
		Width:        800,
		Height:       600,
		PathColor:    "#d97706",
		PathWidth:    5,
		PathOpacity:  0.8,
		MarkerRadius: 6,
		MarkerStroke: 2,
		MarkerColor:  "#d97706",
		MarkerFill:   "#ffffff",
		FontSize:     11,
	}
}

// DefaultTiles returns the OpenStreetMap tile provider.
func DefaultTiles() TilesConfig {
	return TilesConfig{
		URL:         "https://tile.openstreetmap.org/{z}/{x}/{y}.png",
		Attribution: "© OpenStreetMap contributors",
		UserAgent:   "racemap/1.0",
		Timeout:     10,
		Concurrency: 4,
		CacheSize:   512,
	}
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()

	rd := DefaultRender()
	td := DefaultTiles()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "racemap")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "racemap")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("nats.url", "")
	v.SetDefault("valkey.addr", "")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "track-validation")
	v.SetDefault("tracks.source", SourceFile)
	v.SetDefault("tracks.base_dir", "./assets")
	v.SetDefault("tracks.base_url", "")
	v.SetDefault("tracks.timeout", 10)
	v.SetDefault("tracks.cache_ttl", 300)
	v.SetDefault("tiles.url", td.URL)
	v.SetDefault("tiles.api_key", "")
	v.SetDefault("tiles.attribution", td.Attribution)
	v.SetDefault("tiles.subdomains", []string{})
	v.SetDefault("tiles.user_agent", td.UserAgent)
	v.SetDefault("tiles.timeout", td.Timeout)
	v.SetDefault("tiles.concurrency", td.Concurrency)
	v.SetDefault("tiles.cache_size", td.CacheSize)
	v.SetDefault("render.width", rd.Width)
	v.SetDefault("render.height", rd.Height)
	v.SetDefault("render.path_color", rd.PathColor)
	v.SetDefault("render.path_width", rd.PathWidth)
	v.SetDefault("render.path_opacity", rd.PathOpacity)
	v.SetDefault("render.marker_radius", rd.MarkerRadius)
	v.SetDefault("render.marker_stroke", rd.MarkerStroke)
	v.SetDefault("render.marker_color", rd.MarkerColor)
	v.SetDefault("render.marker_fill", rd.MarkerFill)
	v.SetDefault("render.font_size", rd.FontSize)
	v.SetDefault("render.start_icon", "")

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: RACEMAP_TILES_API_KEY → tiles.api_key
	v.SetEnvPrefix("RACEMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Database.Host == "" {
		errs = append(errs, "database.host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
	}
	if c.Database.User == "" {
		errs = append(errs, "database.user is required")
	}
	if c.Database.DBName == "" {
		errs = append(errs, "database.dbname is required")
	}

	switch c.Tracks.Source {
	case SourceFile:
		if c.Tracks.BaseDir == "" {
			errs = append(errs, "tracks.base_dir is required for file source")
		}
	case SourceHTTP:
		if c.Tracks.BaseURL == "" {
			errs = append(errs, "tracks.base_url is required for http source")
		}
	case SourcePostgres:
	default:
		errs = append(errs, fmt.Sprintf("tracks.source must be file, http or postgres, got %q", c.Tracks.Source))
	}
	if c.Tracks.CacheTTL < 0 {
		errs = append(errs, "tracks.cache_ttl must not be negative")
	}

	if c.Tiles.URL == "" {
		errs = append(errs, "tiles.url is required")
	} else if !strings.Contains(c.Tiles.URL, "{z}") || !strings.Contains(c.Tiles.URL, "{x}") || !strings.Contains(c.Tiles.URL, "{y}") {
		errs = append(errs, "tiles.url must contain {z}, {x} and {y}")
	}
	if strings.Contains(c.Tiles.URL, "{s}") && len(c.Tiles.Subdomains) == 0 {
		errs = append(errs, "tiles.subdomains is required when tiles.url uses {s}")
	}
	if strings.TrimSpace(c.Tiles.Attribution) == "" {
		errs = append(errs, "tiles.attribution is required")
	}
	if c.Tiles.Concurrency <= 0 {
		errs = append(errs, "tiles.concurrency must be positive")
	}
	if c.Tiles.CacheSize <= 0 {
		errs = append(errs, "tiles.cache_size must be positive")
	}

	if c.Render.Width <= 0 || c.Render.Height <= 0 {
		errs = append(errs, fmt.Sprintf("render size must be positive, got %dx%d", c.Render.Width, c.Render.Height))
	}
	if c.Render.PathOpacity < 0 || c.Render.PathOpacity > 1 {
		errs = append(errs, "render.path_opacity must be within 0-1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
