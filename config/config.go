package config

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

var ErrUnsupportedFormat = errors.New("unsupported config format, use .json, .yml or .yaml")

// AppConfig holds the structure of the configuration
type AppConfig struct {
	Port                 string `json:"port" yaml:"port"`
	TileCount            int    `json:"tile_count" yaml:"tile_count"`
	Blocksize            int    `json:"blocksize" yaml:"blocksize"`
	CellGap              int    `json:"cell_gap" yaml:"cell_gap"`
	FoodCount            int    `json:"food_count" yaml:"food_count"`
	Reward               int    `json:"reward" yaml:"reward"`
	TickDelayMs          int    `json:"tick_delay_ms" yaml:"tick_delay_ms"`
	MaxPlacementAttempts int    `json:"max_placement_attempts" yaml:"max_placement_attempts"`
	ResetOnGameOver      bool   `json:"reset_on_game_over" yaml:"reset_on_game_over"`
	SkinDir              string `json:"skin_dir" yaml:"skin_dir"`
	StaticDir            string `json:"static_dir" yaml:"static_dir"`
}

var (
	instance *AppConfig
	loadErr  error
	once     sync.Once
)

// Default 20×20 grid of 20px cells, one food, 100ms ticks
func Default() AppConfig {
	return AppConfig{
		Port:            "38870",
		TileCount:       20,
		Blocksize:       20,
		CellGap:         2,
		FoodCount:       1,
		Reward:          10,
		TickDelayMs:     100,
		ResetOnGameOver: true,
		SkinDir:         "./skins",
		StaticDir:       "./static",
	}
}

// LoadConfig initializes the AppConfig singleton. The file is created with
// default values when it does not exist.
func LoadConfig(filePath string) (*AppConfig, error) {
	once.Do(func() {
		instance, loadErr = Load(filePath)
	})
	return instance, loadErr
}

// Get returns the singleton loaded by LoadConfig, or defaults when nothing was loaded
func Get() AppConfig {
	if instance == nil {
		return Default()
	}
	return *instance
}

// Load reads filePath, or writes defaults to it when missing.
func Load(filePath string) (*AppConfig, error) {
	cfg := Default()
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		if err := save(filePath, &cfg); err != nil {
			return nil, err
		}
		return &cfg, nil
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	if err := decode(filePath, data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()
	return &cfg, nil
}

// Normalize replaces out-of-range values with defaults
func (c *AppConfig) Normalize() {
	def := Default()
	if strings.TrimSpace(c.Port) == "" {
		c.Port = def.Port
	}
	if c.TileCount < 8 || c.TileCount > 200 {
		c.TileCount = def.TileCount
	}
	if c.Blocksize < 4 || c.Blocksize > 100 {
		c.Blocksize = def.Blocksize
	}
	if c.CellGap < 0 || c.CellGap >= c.Blocksize {
		c.CellGap = def.CellGap
	}
	if c.FoodCount < 1 {
		c.FoodCount = def.FoodCount
	}
	if c.Reward < 0 {
		c.Reward = def.Reward
	}
	if c.TickDelayMs < 10 {
		c.TickDelayMs = def.TickDelayMs
	}
	if c.MaxPlacementAttempts < 0 {
		c.MaxPlacementAttempts = 0
	}
	if c.SkinDir == "" {
		c.SkinDir = def.SkinDir
	}
	if c.StaticDir == "" {
		c.StaticDir = def.StaticDir
	}
}

func (c AppConfig) TickDelay() time.Duration {
	return time.Duration(c.TickDelayMs) * time.Millisecond
}

func decode(filePath string, data []byte, cfg *AppConfig) error {
	switch format(filePath) {
	case "json":
		if err := jsoniter.Unmarshal(data, cfg); err != nil {
			return errors.Wrap(err, "decode json config")
		}
	case "yaml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return errors.Wrap(err, "decode yaml config")
		}
	default:
		return ErrUnsupportedFormat
	}
	return nil
}

// save writes the current settings to the file
func save(filePath string, cfg *AppConfig) error {
	var (
		data []byte
		err  error
	)
	switch format(filePath) {
	case "json":
		data, err = jsoniter.MarshalIndent(cfg, "", "  ")
	case "yaml":
		data, err = yaml.Marshal(cfg)
	default:
		return ErrUnsupportedFormat
	}
	if err != nil {
		return errors.Wrap(err, "encode config")
	}
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return errors.Wrap(err, "write config")
	}
	return nil
}

func format(filePath string) string {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".json":
		return "json"
	case ".yml", ".yaml":
		return "yaml"
	}
	return ""
}
