package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/reshetovitsme/ouedkniss-telegram-feed/internal/shared/errors"
	"github.com/samber/lo"
	"github.com/samber/oops"
)

type Config struct {
	TelegramBotToken   string        `koanf:"telegram_bot_token"`
	TargetChannelID    string        `koanf:"target_channel_id"`
	FavoritesChannelID string        `koanf:"favorites_channel_id"`
	CommandChatID      string        `koanf:"command_chat_id"`
	LogFile            string        `koanf:"log_file"`
	StoragePath        string        `koanf:"storage_path"`
	StorageDriver      StorageDriver `koanf:"storage_driver"`
	PollInterval       time.Duration `koanf:"poll_interval"`
	HTTPPort           string        `koanf:"http_port"`
	AppEnv             AppEnv        `koanf:"app_env"`
	Search             Search        `koanf:"search"`
}

// Search is the static filter sent with every listing query
type Search struct {
	APIURL       string        `koanf:"api_url"`
	SiteURL      string        `koanf:"site_url"`
	CategorySlug string        `koanf:"category_slug"`
	RegionIDs    []string      `koanf:"region_ids"`
	CityIDs      []string      `koanf:"city_ids"`
	PriceMin     int           `koanf:"price_min"`
	PriceMax     int           `koanf:"price_max"`
	PriceUnit    string        `koanf:"price_unit"`
	MediaSize    string        `koanf:"media_size"`
	Count        int           `koanf:"count"`
	Timeout      time.Duration `koanf:"timeout"`
}

var defaults = map[string]any{
	"log_file":             "./data/bot.log",
	"storage_path":         "./data",
	"storage_driver":       string(StorageDriverFile),
	"poll_interval":        "10m",
	"http_port":            "8080",
	"app_env":              string(AppEnvProduction),
	"search.api_url":       "https://api.ouedkniss.com/graphql",
	"search.site_url":      "https://www.ouedkniss.com",
	"search.category_slug": "immobilier-location-appartement",
	"search.region_ids":    []string{"16"},
	"search.city_ids":      []string{"566", "577", "578", "580", "583", "584", "594", "595", "608"},
	"search.price_min":     1,
	"search.price_max":     8,
	"search.price_unit":    "MILLION",
	"search.media_size":    "MEDIUM",
	"search.count":         20,
	"search.timeout":       "30s",
}

func Load() (*Config, error) {
	k := koanf.New(".")

	// Try to load config file from various formats
	configFiles := []string{
		"config.yaml",
		"config.yml",
		"config.json",
		"config.toml",
	}

	configFile, found := lo.Find(configFiles, func(file string) bool {
		_, err := os.Stat(file)
		return err == nil
	})

	if found {
		var parser koanf.Parser
		ext := filepath.Ext(configFile)

		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		case ".toml":
			parser = toml.Parser()
		default:
			return nil, oops.Errorf("unsupported config file extension: %s", ext)
		}

		if err := k.Load(file.Provider(configFile), parser); err != nil {
			return nil, oops.With("config_file", configFile).Wrap(err)
		}
	}

	// Environment variables override config file values, "__" addresses nested keys
	if err := k.Load(env.Provider("", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(s), "__", ".")
	}), nil); err != nil {
		return nil, oops.With("context", "loading environment variables").Wrap(err)
	}

	for key, value := range defaults {
		if !k.Exists(key) {
			if err := k.Set(key, value); err != nil {
				return nil, oops.With("key", key).Wrap(err)
			}
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.With("context", "unmarshaling config").Wrap(err)
	}

	// Comma-separated id lists arrive as a single string from the environment
	cfg.Search.RegionIDs = parseIDList(k.Get("search.region_ids"), cfg.Search.RegionIDs)
	cfg.Search.CityIDs = parseIDList(k.Get("search.city_ids"), cfg.Search.CityIDs)

	appEnv, err := ParseAppEnv(string(cfg.AppEnv))
	if err != nil {
		appEnv = AppEnvProduction
	}
	cfg.AppEnv = appEnv

	driver, err := ParseStorageDriver(string(cfg.StorageDriver))
	if err != nil {
		return nil, oops.With("storage_driver", cfg.StorageDriver).Wrap(err)
	}
	cfg.StorageDriver = driver

	if cfg.PollInterval <= 0 {
		return nil, oops.With("poll_interval", cfg.PollInterval).Errorf("poll interval must be positive")
	}

	// Validate required fields
	if cfg.TelegramBotToken == "" {
		return nil, errors.ErrMissingBotToken
	}
	if cfg.TargetChannelID == "" {
		return nil, errors.ErrMissingTargetChannel
	}

	return &cfg, nil
}

// Debug reports whether verbose logging is wanted for the environment
func (c *Config) Debug() bool {
	return c.AppEnv == AppEnvLocal || c.AppEnv == AppEnvDevelopment
}

// ParseIDs parses comma-separated ids into a slice, dropping blanks
func ParseIDs(s string) []string {
	return lo.FilterMap(strings.Split(s, ","), func(part string, _ int) (string, bool) {
		part = strings.TrimSpace(part)
		return part, part != ""
	})
}

func parseIDList(raw any, decoded []string) []string {
	if s, ok := raw.(string); ok {
		return ParseIDs(s)
	}
	return decoded
}
