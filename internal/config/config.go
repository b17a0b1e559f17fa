package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration. It is built once at start-up and
// then passed by value; nothing mutates it afterwards.
type Config struct {
	Debug    bool `yaml:"debug"`
	LogInfo  bool `yaml:"log_info"`
	LogError bool `yaml:"log_error"`

	// BeforeThisHour and EveryXMins are accepted for compatibility with older
	// deployments. The refresh loop does not consult them.
	BeforeThisHour int `yaml:"before_this_hour"`
	EveryXMins     int `yaml:"every_x_mins"`

	Ticker struct {
		BaseURL  string        `yaml:"base_url"`
		Product  string        `yaml:"product"`
		Label    string        `yaml:"label"`
		Currency string        `yaml:"currency"`
		Timeout  time.Duration `yaml:"timeout"`
	} `yaml:"ticker"`
	Display struct {
		Width           int    `yaml:"width"`
		Height          int    `yaml:"height"`
		Rotate180       *bool  `yaml:"rotate_180"`
		RefreshInterval string `yaml:"refresh_interval"`
		Timezone        string `yaml:"timezone"`
		SPIPort         string `yaml:"spi_port"`
	} `yaml:"display"`
	GhostFix struct {
		Enabled    bool          `yaml:"enabled"`
		Iterations int           `yaml:"iterations"`
		Dwell      time.Duration `yaml:"dwell"`
	} `yaml:"ghost_fix"`
	Font struct {
		Path string `yaml:"path"`
	} `yaml:"font"`
	Output struct {
		PNGPath string `yaml:"png_path"`
		Open    *bool  `yaml:"open"`
	} `yaml:"output"`
	Log struct {
		Path      string `yaml:"path"`
		MaxFiles  int    `yaml:"max_files"`
		MaxSizeMB int    `yaml:"max_size_mb"`
	} `yaml:"log"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{BeforeThisHour: -1}
	cfg.GhostFix.Iterations = -1
	cfg.GhostFix.Dwell = -1

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v, ok := envBool("PAPER_DEBUG"); ok {
		cfg.Debug = v
	}
	if v, ok := envBool("PAPER_LOG_INFO"); ok {
		cfg.LogInfo = v
	}
	if v, ok := envBool("PAPER_LOG_ERROR"); ok {
		cfg.LogError = v
	}
	if v, ok := envBool("GHOST_FIX"); ok {
		cfg.GhostFix.Enabled = v
	}
	if v := os.Getenv("TICKER_BASE_URL"); v != "" {
		cfg.Ticker.BaseURL = v
	}
	if v := os.Getenv("TICKER_PRODUCT"); v != "" {
		cfg.Ticker.Product = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("REFRESH_INTERVAL"); v != "" {
		cfg.Display.RefreshInterval = v
	}
	if v := os.Getenv("FONT_PATH"); v != "" {
		cfg.Font.Path = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}

	// Defaults
	if cfg.BeforeThisHour == -1 {
		cfg.BeforeThisHour = 1
	}
	if cfg.EveryXMins == 0 {
		cfg.EveryXMins = 5
	}
	if cfg.Ticker.BaseURL == "" {
		cfg.Ticker.BaseURL = "https://api.pro.coinbase.com"
	}
	if cfg.Ticker.Product == "" {
		cfg.Ticker.Product = "eth-gbp"
	}
	if cfg.Ticker.Label == "" {
		cfg.Ticker.Label = "ETH/GBP"
	}
	if cfg.Ticker.Currency == "" {
		cfg.Ticker.Currency = "£"
	}
	if cfg.Ticker.Timeout == 0 {
		cfg.Ticker.Timeout = 30 * time.Second
	}
	if cfg.Display.Width == 0 {
		cfg.Display.Width = 250
	}
	if cfg.Display.Height == 0 {
		cfg.Display.Height = 122
	}
	if cfg.Display.Rotate180 == nil {
		cfg.Display.Rotate180 = boolPtr(true)
	}
	if cfg.Display.RefreshInterval == "" {
		cfg.Display.RefreshInterval = "@every 50s"
	}
	// Unset ghost-fix keys keep the -1 sentinel; an explicit 0 is honoured.
	if cfg.GhostFix.Iterations == -1 {
		cfg.GhostFix.Iterations = 1440
	}
	if cfg.GhostFix.Dwell == -1 {
		cfg.GhostFix.Dwell = 30 * time.Second
	}
	if cfg.Output.PNGPath == "" {
		cfg.Output.PNGPath = "out.png"
	}
	if cfg.Output.Open == nil {
		cfg.Output.Open = boolPtr(true)
	}
	if cfg.Log.Path == "" {
		cfg.Log.Path = "log.txt"
	}
	if cfg.Log.MaxFiles == 0 {
		cfg.Log.MaxFiles = 10
	}
	if cfg.Log.MaxSizeMB == 0 {
		cfg.Log.MaxSizeMB = 1
	}

	return cfg, nil
}

// Validate checks that all fields hold usable values.
func (c *Config) Validate() error {
	if c.Ticker.BaseURL == "" {
		return fmt.Errorf("ticker.base_url is required")
	}
	if c.Ticker.Product == "" {
		return fmt.Errorf("ticker.product is required")
	}
	if c.Display.Width <= 0 || c.Display.Height <= 0 {
		return fmt.Errorf("display size must be positive, got %dx%d", c.Display.Width, c.Display.Height)
	}
	if _, err := cron.NewParser(ScheduleOptions).Parse(c.Display.RefreshInterval); err != nil {
		return fmt.Errorf("display.refresh_interval %q: %w", c.Display.RefreshInterval, err)
	}
	if c.Display.Timezone != "" {
		if _, err := time.LoadLocation(c.Display.Timezone); err != nil {
			return fmt.Errorf("display.timezone: %w", err)
		}
	}
	if c.GhostFix.Iterations < 0 {
		return fmt.Errorf("ghost_fix.iterations must not be negative")
	}
	if c.GhostFix.Dwell < 0 {
		return fmt.Errorf("ghost_fix.dwell must not be negative")
	}
	if c.BeforeThisHour < 0 || c.BeforeThisHour > 23 {
		return fmt.Errorf("before_this_hour must be within 0-23")
	}
	if c.EveryXMins < 1 || c.EveryXMins > 59 {
		return fmt.Errorf("every_x_mins must be within 1-59")
	}
	if c.Log.MaxFiles < 0 {
		return fmt.Errorf("log.max_files must not be negative")
	}
	if c.Telegram.BotToken != "" && c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is required when bot_token is set")
	}
	return nil
}

// ResolvePaths makes every relative file path absolute against baseDir,
// normally the directory holding the executable.
func (c *Config) ResolvePaths(baseDir string) {
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(baseDir, p)
	}
	c.Log.Path = resolve(c.Log.Path)
	c.Font.Path = resolve(c.Font.Path)
	c.Output.PNGPath = resolve(c.Output.PNGPath)
	c.Database.SQLitePath = resolve(c.Database.SQLitePath)
}

// Location returns the timezone used for the clock.
func (c *Config) Location() *time.Location {
	if c.Display.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Display.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// ProgramDir returns the directory of the running executable with symlinks resolved.
func ProgramDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe), nil
}

// ScheduleOptions is the cron field set accepted for display.refresh_interval.
const ScheduleOptions = cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor

func envBool(key string) (bool, bool) {
	v := os.Getenv(key)
	if v == "" {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}
	return b, true
}

func boolPtr(v bool) *bool { return &v }
