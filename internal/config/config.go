// Package config loads server settings and the game catalog from YAML and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kylechrisking/it-empire-idle/internal/domain/achievement"
	"github.com/kylechrisking/it-empire-idle/internal/domain/roster"
	"github.com/kylechrisking/it-empire-idle/internal/domain/rules"
	"github.com/kylechrisking/it-empire-idle/internal/domain/tutorial"
	"github.com/kylechrisking/it-empire-idle/internal/domain/unlock"
	"github.com/kylechrisking/it-empire-idle/internal/domain/upgrade"
)

// Storage drivers.
const (
	DriverSQLite = "sqlite"
	DriverFile   = "file"
	DriverMemory = "memory"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Loop    LoopConfig    `yaml:"loop"`
	Buffers BufferConfig  `yaml:"buffers"`
	Log     LogConfig     `yaml:"log"`
	Catalog Catalog       `yaml:"catalog"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	ActionsPerSec   int           `yaml:"actions_per_sec"` // per websocket client, 0 disables limiting
}

type StorageConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"` // database file for sqlite, directory for file
	Slot   string `yaml:"slot"`
}

type LoopConfig struct {
	TickInterval     time.Duration `yaml:"tick_interval"`
	AutoSaveInterval time.Duration `yaml:"autosave_interval"`
	HoldInterval     time.Duration `yaml:"hold_interval"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Catalog is everything the engine needs to know about the game's content.
type Catalog struct {
	Balance      Balance                  `yaml:"balance"`
	Roles        []roster.RoleSpec        `yaml:"roles"`
	Upgrades     []upgrade.Definition     `yaml:"upgrades"`
	Achievements []achievement.Definition `yaml:"achievements"`
	Unlocks      []unlock.Rule            `yaml:"unlocks"`
	Tutorial     []tutorial.Step          `yaml:"tutorial"`
}

type Balance struct {
	StartingClickValue float64       `yaml:"starting_click_value"`
	MinTaskDuration    time.Duration `yaml:"min_task_duration"`
}

// Default returns the stock configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 5 * time.Second,
			ActionsPerSec:   30,
		},
		Storage: StorageConfig{
			Driver: DriverSQLite,
			Path:   "data/empire.db",
			Slot:   "default",
		},
		Loop: LoopConfig{
			TickInterval:     100 * time.Millisecond,
			AutoSaveInterval: 30 * time.Second,
			HoldInterval:     750 * time.Millisecond,
		},
		Buffers: DefaultBuffers(),
		Log:     LogConfig{Level: "info", Format: "text"},
		Catalog: DefaultCatalog(),
	}
}

// DefaultCatalog returns the stock game content.
func DefaultCatalog() Catalog {
	return Catalog{
		Balance: Balance{
			StartingClickValue: 1,
			MinTaskDuration:    rules.DefaultMinTaskDuration,
		},
		Roles:        roster.Defaults(),
		Upgrades:     upgrade.Defaults(),
		Achievements: achievement.Defaults(),
		Unlocks:      unlock.DefaultRules(),
		Tutorial:     tutorial.DefaultScript(),
	}
}

// Load reads path over the defaults, then applies environment overrides.
// An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	ApplyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	var errs []error

	switch c.Storage.Driver {
	case DriverSQLite, DriverFile, DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("storage.driver %q is not one of sqlite, file, memory", c.Storage.Driver))
	}
	if c.Storage.Driver != DriverMemory && c.Storage.Path == "" {
		errs = append(errs, errors.New("storage.path is required"))
	}
	if c.Storage.Slot == "" {
		errs = append(errs, errors.New("storage.slot is required"))
	}
	if c.Loop.TickInterval <= 0 || c.Loop.AutoSaveInterval <= 0 || c.Loop.HoldInterval <= 0 {
		errs = append(errs, errors.New("loop intervals must be positive"))
	}
	if c.Catalog.Balance.MinTaskDuration <= 0 {
		errs = append(errs, errors.New("catalog.balance.min_task_duration must be positive"))
	}
	if c.Catalog.Balance.StartingClickValue < 0 {
		errs = append(errs, errors.New("catalog.balance.starting_click_value must not be negative"))
	}
	if _, err := roster.New(c.Catalog.Roles); err != nil {
		errs = append(errs, fmt.Errorf("catalog.roles: %w", err))
	}
	for _, u := range c.Catalog.Upgrades {
		if _, err := rules.ParseRewardKind(u.Kind); err != nil {
			errs = append(errs, fmt.Errorf("catalog.upgrades.%s: %w", u.ID, err))
		}
	}

	return errors.Join(errs...)
}
