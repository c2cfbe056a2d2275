package config

import (
	"errors"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/dukerupert/choreauction/internal/auction"
)

// Config is the full application configuration.
type Config struct {
	Port     string         `koanf:"port"`
	DBPath   string         `koanf:"db_path"`
	LogLevel string         `koanf:"log_level"`
	Auction  auction.Config `koanf:"auction"`
}

// Default returns the baseline configuration before file and env layering.
func Default() Config {
	return Config{
		Port:     "8080",
		DBPath:   "choreauction.db",
		LogLevel: "info",
		Auction:  auction.DefaultConfig(),
	}
}

// Load builds the configuration by layering, lowest precedence first:
// defaults, an optional YAML file named by CHOREAUCTION_CONFIG, then env
// vars with the CHOREAUCTION_ prefix (CHOREAUCTION_PORT,
// CHOREAUCTION_AUCTION_NO_BID_INCREASE_FACTOR, ...).
func Load() (*Config, error) {
	cfg := Default()

	k := koanf.New(".")

	if path := os.Getenv("CHOREAUCTION_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	envProvider := env.Provider("CHOREAUCTION_", ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, "CHOREAUCTION_"))
		// First underscore separates the section from the key:
		// AUCTION_WIN_RATE_FLOOR -> auction.win_rate_floor.
		if rest, ok := strings.CutPrefix(s, "auction_"); ok {
			return "auction." + rest
		}
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, err
	}

	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, err
	}

	if cfg.Port == "" {
		return nil, errors.New("port must not be empty")
	}
	if cfg.DBPath == "" {
		return nil, errors.New("db_path must not be empty")
	}
	if cfg.Auction.NoBidIncreaseFactor < 1 {
		return nil, errors.New("auction.no_bid_increase_factor must be at least 1")
	}
	if cfg.Auction.WinRateFloor <= 0 || cfg.Auction.WinRateCeil < cfg.Auction.WinRateFloor {
		return nil, errors.New("auction win rate bounds are inverted")
	}
	return &cfg, nil
}
