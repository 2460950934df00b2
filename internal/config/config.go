package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pders01/ranobe/internal/reader"
)

type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	API      APIConfig      `mapstructure:"api"`
	Reader   ReaderConfig   `mapstructure:"reader"`
	UI       UIConfig       `mapstructure:"ui"`
	Media    MediaConfig    `mapstructure:"media"`
	Keys     KeyConfig      `mapstructure:"keys"`
	Log      LogConfig      `mapstructure:"log"`
}

type DatabaseConfig struct {
	Path        string        `mapstructure:"path" validate:"required"`
	Timeout     time.Duration `mapstructure:"timeout" validate:"gt=0"`
	SearchIndex string        `mapstructure:"search_index"`
}

type APIConfig struct {
	BaseURL           string        `mapstructure:"base_url" validate:"required,url"`
	WebURL            string        `mapstructure:"web_url" validate:"omitempty,url"`
	Token             string        `mapstructure:"token"`
	HTTPTimeout       time.Duration `mapstructure:"http_timeout" validate:"gt=0"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" validate:"gte=0"`
	Burst             int           `mapstructure:"burst" validate:"gte=1"`
	UserAgent         string        `mapstructure:"user_agent" validate:"required"`
	UpdatesFeed       string        `mapstructure:"updates_feed" validate:"omitempty,url"`
	UpdatesRefresh    time.Duration `mapstructure:"updates_refresh" validate:"gte=0"`
	DefaultRetryAfter time.Duration `mapstructure:"default_retry_after" validate:"gte=0"`
}

type ReaderConfig struct {
	SaveInterval      time.Duration  `mapstructure:"save_interval" validate:"min=1s"`
	FrameInterval     time.Duration  `mapstructure:"frame_interval" validate:"min=1ms"`
	ScrolledThreshold int            `mapstructure:"scrolled_threshold" validate:"gte=0"`
	ShowTopThreshold  int            `mapstructure:"show_top_threshold" validate:"gte=0"`
	HideDeadZone      int            `mapstructure:"hide_dead_zone" validate:"gte=0"`
	MaxPositions      int            `mapstructure:"max_positions" validate:"gte=0"`
	Defaults          ReaderDefaults `mapstructure:"defaults"`
}

// ReaderDefaults seeds the reading settings on first run and after a reset.
type ReaderDefaults struct {
	FontFamily string  `mapstructure:"font_family" validate:"oneof=serif sans-serif mono"`
	FontSize   int     `mapstructure:"font_size" validate:"min=14,max=26"`
	LineHeight float64 `mapstructure:"line_height" validate:"min=1.4,max=2.4"`
	MaxWidth   string  `mapstructure:"max_width" validate:"oneof=narrow medium wide"`
	Theme      string  `mapstructure:"theme" validate:"oneof=light dark sepia night"`
	TextAlign  string  `mapstructure:"text_align" validate:"oneof=left justify"`
	AutoScroll string  `mapstructure:"auto_scroll" validate:"oneof=off slow medium fast"`
}

type UIConfig struct {
	Colors        UIColors `mapstructure:"colors"`
	PageSize      int      `mapstructure:"page_size" validate:"min=1,max=200"`
	ReleasesLimit int      `mapstructure:"releases_limit" validate:"gte=0"`
	Banner        bool     `mapstructure:"banner"`
}

type UIColors struct {
	Primary    string `mapstructure:"primary" validate:"omitempty,hexcolor"`
	Secondary  string `mapstructure:"secondary" validate:"omitempty,hexcolor"`
	Accent     string `mapstructure:"accent" validate:"omitempty,hexcolor"`
	Background string `mapstructure:"background" validate:"omitempty,hexcolor"`
	Surface    string `mapstructure:"surface" validate:"omitempty,hexcolor"`
	Text       string `mapstructure:"text" validate:"omitempty,hexcolor"`
	Muted      string `mapstructure:"muted" validate:"omitempty,hexcolor"`
	Error      string `mapstructure:"error" validate:"omitempty,hexcolor"`
	Success    string `mapstructure:"success" validate:"omitempty,hexcolor"`
}

type MediaConfig struct {
	Darwin        MediaOpeners `mapstructure:"darwin"`
	Linux         MediaOpeners `mapstructure:"linux"`
	Windows       MediaOpeners `mapstructure:"windows"`
	DefaultOpener string       `mapstructure:"default_opener"`
}

// MediaOpeners lists candidate programs per target, tried in order.
type MediaOpeners struct {
	Web   []string `mapstructure:"web"`
	Image []string `mapstructure:"image"`
}

type KeyConfig struct {
	Modifier string      `mapstructure:"modifier" validate:"oneof=ctrl alt"`
	Bindings KeyBindings `mapstructure:"bindings"`
}

// KeyBindings covers the catalog and novel screens. Reader keys are fixed.
type KeyBindings struct {
	Quit     string `mapstructure:"quit" validate:"required"`
	Search   string `mapstructure:"search" validate:"required"`
	Refresh  string `mapstructure:"refresh" validate:"required"`
	Download string `mapstructure:"download" validate:"required"`
	Remove   string `mapstructure:"remove" validate:"required"`
	Releases string `mapstructure:"releases" validate:"required"`
	Open     string `mapstructure:"open" validate:"required"`
	Back     string `mapstructure:"back" validate:"required"`
	Help     string `mapstructure:"help" validate:"required"`
}

type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn warning error off DEBUG INFO WARN WARNING ERROR OFF"`
	File  string `mapstructure:"file"`
}

// Scroll thresholds for the terminal reader, in lines. The reader package
// defaults count pixel-sized units; fifty of those fill several screens here.
const (
	ScrolledThresholdLines = 5
	ShowTopThresholdLines  = 5
	HideDeadZoneLines      = 10
)

func defaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".ranobe")
	d := reader.DefaultSettings()

	return &Config{
		Database: DatabaseConfig{
			Path:        filepath.Join(dataDir, "ranobe.db"),
			Timeout:     1 * time.Second,
			SearchIndex: filepath.Join(dataDir, "index.bleve"),
		},
		API: APIConfig{
			BaseURL:           "http://localhost:8000",
			WebURL:            "http://localhost:3000",
			HTTPTimeout:       30 * time.Second,
			RequestsPerSecond: 5,
			Burst:             5,
			UserAgent:         "ranobe/1.0 (terminal light novel reader)",
			UpdatesRefresh:    15 * time.Minute,
			DefaultRetryAfter: 15 * time.Minute,
		},
		Reader: ReaderConfig{
			SaveInterval:      reader.SaveInterval,
			FrameInterval:     reader.FrameInterval,
			ScrolledThreshold: ScrolledThresholdLines,
			ShowTopThreshold:  ShowTopThresholdLines,
			HideDeadZone:      HideDeadZoneLines,
			MaxPositions:      0,
			Defaults: ReaderDefaults{
				FontFamily: string(d.FontFamily),
				FontSize:   d.FontSize,
				LineHeight: d.LineHeight,
				MaxWidth:   string(d.MaxWidth),
				Theme:      string(d.Theme),
				TextAlign:  string(d.TextAlign),
				AutoScroll: string(d.AutoScrollSpeed),
			},
		},
		UI: UIConfig{
			Colors: UIColors{
				Primary:    "#E07A5F",
				Secondary:  "#81B29A",
				Accent:     "#F2CC8F",
				Background: "#1B1B2F",
				Surface:    "#23233A",
				Text:       "#EAEAEA",
				Muted:      "#94A3B8",
				Error:      "#F87171",
				Success:    "#4ADE80",
			},
			PageSize:      50,
			ReleasesLimit: 20,
			Banner:        true,
		},
		Media: MediaConfig{
			Darwin: MediaOpeners{
				Web:   []string{"open"},
				Image: []string{"preview", "open"},
			},
			Linux: MediaOpeners{
				Web:   []string{"xdg-open", "firefox", "chromium"},
				Image: []string{"sxiv", "feh", "eog", "xdg-open"},
			},
			Windows: MediaOpeners{
				Web:   []string{"start"},
				Image: []string{"start"},
			},
			DefaultOpener: getDefaultOpener(),
		},
		Keys: KeyConfig{
			Modifier: "ctrl",
			Bindings: KeyBindings{
				Quit:     "q",
				Search:   "/",
				Refresh:  "r",
				Download: "d",
				Remove:   "x",
				Releases: "u",
				Open:     "o",
				Back:     "esc",
				Help:     "?",
			},
		},
		Log: LogConfig{
			Level: "off",
		},
	}
}

// Default returns the built-in configuration.
func Default() *Config {
	return defaultConfig()
}

func getDefaultOpener() string {
	switch runtime.GOOS {
	case "darwin":
		return "open"
	case "linux":
		return "xdg-open"
	case "windows":
		return "start"
	default:
		return "open"
	}
}

// DefaultPath is ~/.config/ranobe/config.toml.
func DefaultPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".config", "ranobe", "config.toml")
}

// Load reads configPath, or config.toml from ~/.config/ranobe and the working
// directory when configPath is empty. RANOBE_* environment variables override
// file values, e.g. RANOBE_API_TOKEN for api.token.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	for key, value := range toSettings(defaultConfig()) {
		v.SetDefault(key, value)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(filepath.Dir(DefaultPath()))
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("RANOBE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	expandPaths(&config)
	return &config, nil
}

// expandPath expands ~ to home directory and converts to absolute path
func expandPath(path string) string {
	if path == "" {
		return path
	}
	if len(path) >= 2 && path[:2] == "~/" {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[2:])
	}
	if !filepath.IsAbs(path) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}
	return path
}

func expandPaths(cfg *Config) {
	cfg.Database.Path = expandPath(cfg.Database.Path)
	cfg.Database.SearchIndex = expandPath(cfg.Database.SearchIndex)
	cfg.Log.File = expandPath(cfg.Log.File)
}

// toSettings flattens cfg into dotted viper keys. Durations are written as
// strings so the generated TOML stays readable.
func toSettings(cfg *Config) map[string]any {
	c := cfg.UI.Colors
	k := cfg.Keys.Bindings
	d := cfg.Reader.Defaults
	return map[string]any{
		"database.path":         cfg.Database.Path,
		"database.timeout":      cfg.Database.Timeout.String(),
		"database.search_index": cfg.Database.SearchIndex,

		"api.base_url":            cfg.API.BaseURL,
		"api.web_url":             cfg.API.WebURL,
		"api.token":               cfg.API.Token,
		"api.http_timeout":        cfg.API.HTTPTimeout.String(),
		"api.requests_per_second": cfg.API.RequestsPerSecond,
		"api.burst":               cfg.API.Burst,
		"api.user_agent":          cfg.API.UserAgent,
		"api.updates_feed":        cfg.API.UpdatesFeed,
		"api.updates_refresh":     cfg.API.UpdatesRefresh.String(),
		"api.default_retry_after": cfg.API.DefaultRetryAfter.String(),

		"reader.save_interval":        cfg.Reader.SaveInterval.String(),
		"reader.frame_interval":       cfg.Reader.FrameInterval.String(),
		"reader.scrolled_threshold":   cfg.Reader.ScrolledThreshold,
		"reader.show_top_threshold":   cfg.Reader.ShowTopThreshold,
		"reader.hide_dead_zone":       cfg.Reader.HideDeadZone,
		"reader.max_positions":        cfg.Reader.MaxPositions,
		"reader.defaults.font_family": d.FontFamily,
		"reader.defaults.font_size":   d.FontSize,
		"reader.defaults.line_height": d.LineHeight,
		"reader.defaults.max_width":   d.MaxWidth,
		"reader.defaults.theme":       d.Theme,
		"reader.defaults.text_align":  d.TextAlign,
		"reader.defaults.auto_scroll": d.AutoScroll,

		"ui.colors.primary":    c.Primary,
		"ui.colors.secondary":  c.Secondary,
		"ui.colors.accent":     c.Accent,
		"ui.colors.background": c.Background,
		"ui.colors.surface":    c.Surface,
		"ui.colors.text":       c.Text,
		"ui.colors.muted":      c.Muted,
		"ui.colors.error":      c.Error,
		"ui.colors.success":    c.Success,
		"ui.page_size":         cfg.UI.PageSize,
		"ui.releases_limit":    cfg.UI.ReleasesLimit,
		"ui.banner":            cfg.UI.Banner,

		"media.darwin.web":     cfg.Media.Darwin.Web,
		"media.darwin.image":   cfg.Media.Darwin.Image,
		"media.linux.web":      cfg.Media.Linux.Web,
		"media.linux.image":    cfg.Media.Linux.Image,
		"media.windows.web":    cfg.Media.Windows.Web,
		"media.windows.image":  cfg.Media.Windows.Image,
		"media.default_opener": cfg.Media.DefaultOpener,

		"keys.modifier":          cfg.Keys.Modifier,
		"keys.bindings.quit":     k.Quit,
		"keys.bindings.search":   k.Search,
		"keys.bindings.refresh":  k.Refresh,
		"keys.bindings.download": k.Download,
		"keys.bindings.remove":   k.Remove,
		"keys.bindings.releases": k.Releases,
		"keys.bindings.open":     k.Open,
		"keys.bindings.back":     k.Back,
		"keys.bindings.help":     k.Help,

		"log.level": cfg.Log.Level,
		"log.file":  cfg.Log.File,
	}
}

func Save(config *Config, path string) error {
	v := viper.New()
	for key, value := range toSettings(config) {
		v.Set(key, value)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	return v.WriteConfigAs(path)
}

func GenerateDefaultConfig(path string) error {
	return Save(defaultConfig(), path)
}

// ReadingDefaults converts the configured defaults into reader settings.
func (c *Config) ReadingDefaults() reader.Settings {
	d := c.Reader.Defaults
	return reader.Settings{
		FontFamily:      reader.FontFamily(d.FontFamily),
		FontSize:        d.FontSize,
		LineHeight:      d.LineHeight,
		MaxWidth:        reader.MaxWidth(d.MaxWidth),
		Theme:           reader.Theme(d.Theme),
		TextAlign:       reader.TextAlign(d.TextAlign),
		AutoScrollSpeed: reader.AutoScrollSpeed(d.AutoScroll),
	}
}

// SessionOptions converts the reader section into session options.
func (c *Config) SessionOptions() reader.SessionOptions {
	opts := reader.DefaultSessionOptions()
	opts.SaveInterval = c.Reader.SaveInterval
	opts.MaxPositions = c.Reader.MaxPositions
	opts.Telemetry.ScrolledThreshold = c.Reader.ScrolledThreshold
	opts.Telemetry.Navbar.ShowTopThreshold = c.Reader.ShowTopThreshold
	opts.Telemetry.Navbar.HideDeadZone = c.Reader.HideDeadZone
	return opts
}
