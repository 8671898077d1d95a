package config

import (
	"os"
	"strconv"
	"strings"

	"festreg/internal/connect"
)

type Config struct {
	HTTPAddr string

	// AppID scopes the remote collection for this deployment.
	AppID        string
	SettingsPath string

	FirebaseAPIKey     string
	FirebaseProjectID  string
	FirebaseAuthDomain string
	FirebaseAppID      string

	DefaultSheetURL string

	// Optional operator notification channel.
	TelegramToken  string
	TelegramChatID int64
}

func FromEnv() (Config, error) {
	var c Config
	c.HTTPAddr = strings.TrimSpace(os.Getenv("HTTP_ADDR"))
	if c.HTTPAddr == "" {
		c.HTTPAddr = ":8080"
	}

	c.AppID = strings.TrimSpace(os.Getenv("APP_ID"))
	if c.AppID == "" {
		c.AppID = "cultural-fest-app"
	}
	c.SettingsPath = strings.TrimSpace(os.Getenv("SETTINGS_PATH"))
	if c.SettingsPath == "" {
		c.SettingsPath = "festreg_settings.json"
	}

	c.FirebaseAPIKey = strings.TrimSpace(os.Getenv("FIREBASE_API_KEY"))
	if c.FirebaseAPIKey == "" {
		c.FirebaseAPIKey = connect.APIKeyPlaceholder
	}
	c.FirebaseProjectID = strings.TrimSpace(os.Getenv("FIREBASE_PROJECT_ID"))
	c.FirebaseAuthDomain = strings.TrimSpace(os.Getenv("FIREBASE_AUTH_DOMAIN"))
	c.FirebaseAppID = strings.TrimSpace(os.Getenv("FIREBASE_APP_ID"))

	c.DefaultSheetURL = strings.TrimSpace(os.Getenv("SHEET_URL"))

	c.TelegramToken = strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN"))
	chat := strings.TrimSpace(os.Getenv("TELEGRAM_CHAT_ID"))
	if chat != "" {
		v, err := strconv.ParseInt(chat, 10, 64)
		if err != nil {
			return c, err
		}
		c.TelegramChatID = v
	}

	return c, nil
}

// Firebase returns the built-in remote configuration; a persisted
// operator override takes precedence over it.
func (c Config) Firebase() connect.Config {
	return connect.Config{
		APIKey:     c.FirebaseAPIKey,
		ProjectID:  c.FirebaseProjectID,
		AuthDomain: c.FirebaseAuthDomain,
		AppID:      c.FirebaseAppID,
	}
}
