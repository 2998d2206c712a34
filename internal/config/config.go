// File: config.go

// Package config loads the server's YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"captchaAuth/internal/challenge"
)

const Version = 1

var ErrInvalid = errors.New("invalid config")

type Config struct {
	Version int `yaml:"version"`
	Server  struct {
		Addr          string `yaml:"addr"`
		StaticDir     string `yaml:"static_dir"`
		SessionSecret string `yaml:"session_secret"`
	} `yaml:"server"`
	Captcha struct {
		TextLength             int  `yaml:"text_length"`
		TextCaseSensitive      bool `yaml:"text_case_sensitive"`
		GridRequiredSelections int  `yaml:"grid_required_selections"`
		SliderTolerancePx      int  `yaml:"slider_tolerance_px"`
		DragTolerancePx        int  `yaml:"drag_tolerance_px"`
		DragPieces             int  `yaml:"drag_pieces"`
		DragCells              int  `yaml:"drag_cells"`
		ChallengeTTLSeconds    int  `yaml:"challenge_ttl_seconds"`
		SweepIntervalSeconds   int  `yaml:"sweep_interval_seconds"`
	} `yaml:"captcha"`
	Images struct {
		CacheDir       string `yaml:"cache_dir"`
		MaxAgeDays     int    `yaml:"max_age_days"`     // 0 keeps images forever
		MaxPerCategory int    `yaml:"max_per_category"` // 0 means no cap
	} `yaml:"images"`
	Render struct {
		Workers int `yaml:"workers"`
	} `yaml:"render"`
	Audit struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"audit"`
	Logging struct {
		Level       string `yaml:"level"`
		Development bool   `yaml:"development"`
	} `yaml:"logging"`
}

// Default returns the stock configuration.
func Default() *Config {
	d := challenge.DefaultConfig()
	var c Config
	c.Version = Version
	c.Server.Addr = ":28416"
	c.Server.StaticDir = "./static"
	c.Captcha.TextLength = d.TextLength
	c.Captcha.TextCaseSensitive = d.TextCaseSensitive
	c.Captcha.GridRequiredSelections = d.GridRequiredSelections
	c.Captcha.SliderTolerancePx = d.SliderTolerance
	c.Captcha.DragTolerancePx = d.DragTolerance
	c.Captcha.DragPieces = d.DragPieces
	c.Captcha.DragCells = d.DragCells
	c.Captcha.ChallengeTTLSeconds = int(d.TTL / time.Second)
	c.Captcha.SweepIntervalSeconds = 60
	c.Images.CacheDir = "./image_cache"
	c.Images.MaxAgeDays = 7
	c.Images.MaxPerCategory = 20
	c.Render.Workers = d.RenderWorkers
	c.Logging.Level = "info"
	return &c
}

// Load reads path on top of the defaults. An empty path yields the defaults.
// The session secret from the environment wins over the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		if cfg.Version != Version {
			return nil, fmt.Errorf("unsupported config version: %d", cfg.Version)
		}
	}

	secret, err := ResolveSecret(SessionSecretEnv)
	if err != nil {
		return nil, err
	}
	if secret != "" {
		cfg.Server.SessionSecret = secret
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	cc := c.Captcha
	switch {
	case c.Server.Addr == "":
		return fmt.Errorf("%w: server.addr is empty", ErrInvalid)
	case cc.TextLength <= 0:
		return fmt.Errorf("%w: captcha.text_length must be positive", ErrInvalid)
	case cc.GridRequiredSelections <= 0:
		return fmt.Errorf("%w: captcha.grid_required_selections must be positive", ErrInvalid)
	case cc.SliderTolerancePx < 0 || cc.DragTolerancePx < 0:
		return fmt.Errorf("%w: tolerances must not be negative", ErrInvalid)
	case cc.DragPieces <= 0 || cc.DragCells <= 0:
		return fmt.Errorf("%w: captcha.drag_pieces and captcha.drag_cells must be positive", ErrInvalid)
	case cc.DragPieces > cc.DragCells:
		return fmt.Errorf("%w: %d drag pieces do not fit %d cells", ErrInvalid, cc.DragPieces, cc.DragCells)
	case cc.ChallengeTTLSeconds <= 0:
		return fmt.Errorf("%w: captcha.challenge_ttl_seconds must be positive", ErrInvalid)
	case cc.SweepIntervalSeconds <= 0:
		return fmt.Errorf("%w: captcha.sweep_interval_seconds must be positive", ErrInvalid)
	case c.Render.Workers <= 0:
		return fmt.Errorf("%w: render.workers must be positive", ErrInvalid)
	case c.Images.MaxAgeDays < 0 || c.Images.MaxPerCategory < 0:
		return fmt.Errorf("%w: images.max_age_days and images.max_per_category must not be negative", ErrInvalid)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown logging.level %q", ErrInvalid, c.Logging.Level)
	}
	return nil
}

// Challenge converts the captcha section to engine defaults.
func (c *Config) Challenge() challenge.Config {
	out := challenge.DefaultConfig()
	out.TextLength = c.Captcha.TextLength
	out.TextCaseSensitive = c.Captcha.TextCaseSensitive
	out.GridRequiredSelections = c.Captcha.GridRequiredSelections
	out.SliderTolerance = c.Captcha.SliderTolerancePx
	out.DragTolerance = c.Captcha.DragTolerancePx
	out.DragPieces = c.Captcha.DragPieces
	out.DragCells = c.Captcha.DragCells
	out.TTL = time.Duration(c.Captcha.ChallengeTTLSeconds) * time.Second
	out.RenderWorkers = c.Render.Workers
	return out
}

func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.Captcha.SweepIntervalSeconds) * time.Second
}

// ImageMaxAge is how long cached images are kept. Zero disables the age rule.
func (c *Config) ImageMaxAge() time.Duration {
	return time.Duration(c.Images.MaxAgeDays) * 24 * time.Hour
}
