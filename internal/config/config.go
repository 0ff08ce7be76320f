package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application's configuration.
type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`
	Auth struct {
		AccessSecret       string `yaml:"access_secret"`
		RefreshSecret      string `yaml:"refresh_secret"`
		AccessTokenTTLMin  int64  `yaml:"access_token_ttl_minutes"`
		RefreshTokenTTLHrs int64  `yaml:"refresh_token_ttl_hours"`
		AccessCookieName   string `yaml:"access_cookie_name"`
		RefreshCookieName  string `yaml:"refresh_cookie_name"`
		SecureCookies      bool   `yaml:"secure_cookies"`
	} `yaml:"auth"`
	Upload struct {
		Dir         string `yaml:"dir"`
		MaxFileSize int64  `yaml:"max_file_size_bytes"`
	} `yaml:"upload"`
	Storage struct {
		// Base64-encoded 32-byte key for AES-256 encryption of stored documents.
		MasterKey string `yaml:"master_key"`
	} `yaml:"storage"`
	Admin struct {
		Enabled  bool   `yaml:"enabled"`
		Email    string `yaml:"email"`
		Password string `yaml:"password"`
	} `yaml:"admin"`
	Notifier struct {
		Enabled          bool   `yaml:"enabled"`
		TelegramBotToken string `yaml:"telegram_bot_token"`
		ChatID           int64  `yaml:"chat_id"`
	} `yaml:"notifier"`
}

// LoadConfig reads configuration from the specified YAML file, applies
// environment overrides for secret material and fills in defaults.
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}

	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	config.applyEnvOverrides()
	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("KYC_JWT_SECRET"); v != "" {
		c.Auth.AccessSecret = v
	}
	if v := os.Getenv("KYC_JWT_REFRESH_SECRET"); v != "" {
		c.Auth.RefreshSecret = v
	}
	if v := os.Getenv("MASTER_KEY"); v != "" {
		c.Storage.MasterKey = v
	}
	if v := os.Getenv("KYC_ADMIN_PASSWORD"); v != "" {
		c.Admin.Password = v
	}
	if v := os.Getenv("KYC_BOT_TOKEN"); v != "" {
		c.Notifier.TelegramBotToken = v
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = ":3000"
	}
	if c.Auth.AccessTokenTTLMin == 0 {
		c.Auth.AccessTokenTTLMin = 15
	}
	if c.Auth.RefreshTokenTTLHrs == 0 {
		c.Auth.RefreshTokenTTLHrs = 7 * 24
	}
	if c.Auth.AccessCookieName == "" {
		c.Auth.AccessCookieName = "accessToken"
	}
	if c.Auth.RefreshCookieName == "" {
		c.Auth.RefreshCookieName = "refreshToken"
	}
	if c.Upload.Dir == "" {
		c.Upload.Dir = "uploads"
	}
	if c.Upload.MaxFileSize == 0 {
		c.Upload.MaxFileSize = 5 << 20
	}
}

// Validate checks that required settings are present and well-formed.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return errors.New("database.url is required")
	}
	if c.Auth.AccessSecret == "" || c.Auth.RefreshSecret == "" {
		return errors.New("auth.access_secret and auth.refresh_secret are required")
	}
	if _, err := c.DocumentKey(); err != nil {
		return err
	}
	if c.Admin.Enabled && (c.Admin.Email == "" || c.Admin.Password == "") {
		return errors.New("admin.email and admin.password are required when admin bootstrap is enabled")
	}
	if c.Notifier.Enabled && c.Notifier.TelegramBotToken == "" {
		return errors.New("notifier.telegram_bot_token is required when the notifier is enabled")
	}
	return nil
}

// AccessTokenTTL returns the configured access token lifetime.
func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.Auth.AccessTokenTTLMin) * time.Minute
}

// RefreshTokenTTL returns the configured refresh token lifetime.
func (c *Config) RefreshTokenTTL() time.Duration {
	return time.Duration(c.Auth.RefreshTokenTTLHrs) * time.Hour
}

// DocumentKey decodes the at-rest encryption key for stored documents.
func (c *Config) DocumentKey() ([]byte, error) {
	if c.Storage.MasterKey == "" {
		return nil, errors.New("storage.master_key is required")
	}
	key, err := base64.StdEncoding.DecodeString(c.Storage.MasterKey)
	if err != nil {
		return nil, fmt.Errorf("storage.master_key is not valid base64: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("storage.master_key must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}
