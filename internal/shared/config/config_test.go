package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/reshetovitsme/ouedkniss-telegram-feed/internal/shared/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("TARGET_CHANNEL_ID", "-1001")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "token", cfg.TelegramBotToken)
	assert.Equal(t, "-1001", cfg.TargetChannelID)
	assert.Empty(t, cfg.FavoritesChannelID)
	assert.Empty(t, cfg.CommandChatID)
	assert.Equal(t, 10*time.Minute, cfg.PollInterval)
	assert.Equal(t, StorageDriverFile, cfg.StorageDriver)
	assert.Equal(t, AppEnvProduction, cfg.AppEnv)
	assert.Equal(t, "./data", cfg.StoragePath)
	assert.Equal(t, "./data/bot.log", cfg.LogFile)
	assert.False(t, cfg.Debug())

	assert.Equal(t, "https://api.ouedkniss.com/graphql", cfg.Search.APIURL)
	assert.Equal(t, "immobilier-location-appartement", cfg.Search.CategorySlug)
	assert.Equal(t, []string{"16"}, cfg.Search.RegionIDs)
	assert.Len(t, cfg.Search.CityIDs, 9)
	assert.Equal(t, 1, cfg.Search.PriceMin)
	assert.Equal(t, 8, cfg.Search.PriceMax)
	assert.Equal(t, 20, cfg.Search.Count)
	assert.Equal(t, 30*time.Second, cfg.Search.Timeout)
}

func TestLoad_MissingToken(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("TARGET_CHANNEL_ID", "-1001")

	_, err := Load()
	assert.ErrorIs(t, err, errors.ErrMissingBotToken)
}

func TestLoad_MissingTargetChannel(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("TARGET_CHANNEL_ID", "")

	_, err := Load()
	assert.ErrorIs(t, err, errors.ErrMissingTargetChannel)
}

func TestLoad_EnvOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("FAVORITES_CHANNEL_ID", "-1002")
	t.Setenv("COMMAND_CHAT_ID", "-1003")
	t.Setenv("POLL_INTERVAL", "90s")
	t.Setenv("STORAGE_DRIVER", "BOLT")
	t.Setenv("APP_ENV", "development")
	t.Setenv("SEARCH__CITY_IDS", "1, 2,,3")
	t.Setenv("SEARCH__COUNT", "5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "-1002", cfg.FavoritesChannelID)
	assert.Equal(t, "-1003", cfg.CommandChatID)
	assert.Equal(t, 90*time.Second, cfg.PollInterval)
	assert.Equal(t, StorageDriverBolt, cfg.StorageDriver)
	assert.True(t, cfg.Debug())
	assert.Equal(t, []string{"1", "2", "3"}, cfg.Search.CityIDs)
	assert.Equal(t, 5, cfg.Search.Count)
}

func TestLoad_InvalidStorageDriver(t *testing.T) {
	setRequired(t)
	t.Setenv("STORAGE_DRIVER", "postgres")

	_, err := Load()
	assert.ErrorIs(t, err, ErrInvalidStorageDriver)
}

func TestLoad_ConfigFile(t *testing.T) {
	setRequired(t)

	content := `
favorites_channel_id: "@favorites"
http_port: ""
search:
  category_slug: immobilier-vente-appartement
  city_ids: ["10", "11"]
  price_max: 20
`
	require.NoError(t, os.WriteFile(filepath.Join(".", "config.yaml"), []byte(content), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "@favorites", cfg.FavoritesChannelID)
	assert.Empty(t, cfg.HTTPPort)
	assert.Equal(t, "immobilier-vente-appartement", cfg.Search.CategorySlug)
	assert.Equal(t, []string{"10", "11"}, cfg.Search.CityIDs)
	assert.Equal(t, 20, cfg.Search.PriceMax)
	assert.Equal(t, 1, cfg.Search.PriceMin)
}

func TestParseIDs(t *testing.T) {
	assert.Empty(t, ParseIDs(""))
	assert.Equal(t, []string{"a", "b"}, ParseIDs(" a ,b, "))
}
