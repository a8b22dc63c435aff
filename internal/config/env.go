package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

const (
	EnvConfigPath = "SPOTBOT_CONFIG"
	EnvMode       = "SPOTBOT_MODE"
	EnvAPIKey     = "BINANCE_API_KEY"
	EnvAPISecret  = "BINANCE_API_SECRET"
	EnvTGToken    = "TG_BOT_TOKEN"
	EnvTGChatID   = "TG_CHAT_ID"

	DefaultConfigPath = "configs/spotbot.toml"
)

// LoadDotEnv populates the environment from the given files. Missing files
// are skipped; variables already set win.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
	}
	return nil
}

// PathFromEnv returns the config path from SPOTBOT_CONFIG or the default.
func PathFromEnv() string {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p
	}
	return DefaultConfigPath
}

func applyEnv(c *Config, keys keySet) {
	if v, ok := lookup(EnvMode); ok {
		c.Trading.Mode = v
		keys.mark("trading.mode")
	}
	if v, ok := lookup(EnvAPIKey); ok {
		c.Exchange.APIKey = v
	}
	if v, ok := lookup(EnvAPISecret); ok {
		c.Exchange.APISecret = v
	}
	if v, ok := lookup(EnvTGToken); ok {
		c.Notify.Telegram.BotToken = v
	}
	if v, ok := lookup(EnvTGChatID); ok {
		c.Notify.Telegram.ChatID = v
	}
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}
