package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"faction-intel/internal/constants"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
	"gopkg.in/yaml.v3"
)

const (
	DriverSQLite  = "sqlite"
	DriverLevelDB = "leveldb"
	DriverRedis   = "redis"
	DriverMemory  = "memory"
)

type Config struct {
	TornAPIKey      string `yaml:"torn_api_key" env:"TORN_API_KEY"`
	FFScouterAPIKey string `yaml:"ffscouter_api_key" env:"FFSCOUTER_API_KEY"`
	FactionID       int    `yaml:"faction_id" env:"FACTION_ID"`

	RefreshSeconds  int `yaml:"refresh_interval_seconds" env:"REFRESH_INTERVAL_SECONDS"`
	MetadataSeconds int `yaml:"metadata_interval_seconds" env:"METADATA_INTERVAL_SECONDS"`

	StoreDriver   string `yaml:"store_driver" env:"STORE_DRIVER"`
	DBPath        string `yaml:"db_path" env:"DB_PATH"`
	LevelDBPath   string `yaml:"leveldb_path" env:"LEVELDB_PATH"`
	RedisAddr     string `yaml:"redis_addr" env:"REDIS_ADDR"`
	RedisPassword string `yaml:"redis_password" env:"REDIS_PASSWORD"`
	RedisDB       int    `yaml:"redis_db" env:"REDIS_DB"`
	KeyPrefix     string `yaml:"key_prefix" env:"STORE_KEY_PREFIX"`

	TornBaseURL      string `yaml:"torn_base_url" env:"TORN_BASE_URL"`
	FFScouterBaseURL string `yaml:"ffscouter_base_url" env:"FFSCOUTER_BASE_URL"`
	FFDefaultsPath   string `yaml:"ff_defaults_path" env:"FF_DEFAULTS_PATH"`

	LogLevel string `yaml:"log_level" env:"LOG_LEVEL"`
}

func Default() *Config {
	return &Config{
		RefreshSeconds:   int(constants.DefaultRosterInterval / time.Second),
		MetadataSeconds:  int(constants.DefaultMetadataInterval / time.Second),
		StoreDriver:      DriverSQLite,
		DBPath:           "intel.db",
		LevelDBPath:      "./data/leveldb",
		RedisAddr:        "localhost:6379",
		KeyPrefix:        "intel:",
		TornBaseURL:      "https://api.torn.com/v2",
		FFScouterBaseURL: "https://ffscouter.com/api/v1",
		FFDefaultsPath:   "ffscouter_defaults.json",
		LogLevel:         "info",
	}
}

// Load layers configuration: defaults, then the optional YAML file named by
// INTEL_CONFIG_FILE, then environment variables (a .env file is read first).
func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := Default()
	if path := os.Getenv("INTEL_CONFIG_FILE"); path != "" {
		if err := LoadFile(path, cfg); err != nil {
			return nil, err
		}
		logger.Debug().Str("path", path).Msg("config file loaded")
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.FactionID == 0 && cfg.FFDefaultsPath != "" {
		if id, ok := factionFromDefaults(cfg.FFDefaultsPath); ok {
			cfg.FactionID = id
			logger.Debug().Int("faction_id", id).Msg("faction id taken from defaults file")
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger.Info().
		Int("faction_id", cfg.FactionID).
		Str("store_driver", cfg.StoreDriver).
		Dur("refresh_interval", cfg.RefreshInterval()).
		Dur("metadata_interval", cfg.MetadataInterval()).
		Bool("ffscouter", cfg.FFScouterAPIKey != "").
		Str("log_level", cfg.LogLevel).
		Msg("configuration loaded")

	return cfg, nil
}

func LoadFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.TornAPIKey) == "" {
		errs = append(errs, errors.New("TORN_API_KEY is required"))
	}
	if c.FactionID < 0 {
		errs = append(errs, fmt.Errorf("FACTION_ID must be positive, got %d", c.FactionID))
	}
	if c.RefreshSeconds <= 0 {
		errs = append(errs, fmt.Errorf("REFRESH_INTERVAL_SECONDS must be positive, got %d", c.RefreshSeconds))
	}
	if c.MetadataSeconds <= 0 {
		errs = append(errs, fmt.Errorf("METADATA_INTERVAL_SECONDS must be positive, got %d", c.MetadataSeconds))
	}
	switch c.StoreDriver {
	case DriverSQLite, DriverLevelDB, DriverRedis, DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}
	return errors.Join(errs...)
}

func (c *Config) RefreshInterval() time.Duration {
	return floorInterval(time.Duration(c.RefreshSeconds) * time.Second)
}

func (c *Config) MetadataInterval() time.Duration {
	return floorInterval(time.Duration(c.MetadataSeconds) * time.Second)
}

func floorInterval(d time.Duration) time.Duration {
	if d < constants.MinRefreshInterval {
		return constants.MinRefreshInterval
	}
	return d
}

func factionFromDefaults(path string) (int, bool) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	var payload struct {
		FactionID json.Number `json:"faction_id"`
	}
	if err := json.Unmarshal(b, &payload); err != nil {
		return 0, false
	}
	id, err := payload.FactionID.Int64()
	if err != nil || id <= 0 {
		return 0, false
	}
	return int(id), true
}

var Module = fx.Provide(Load)
