package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Passphrase string `mapstructure:"BIOSELF_PASSPHRASE"`
	StorePath  string `mapstructure:"BIOSELF_STORE_PATH"`
	Env        string `mapstructure:"ENV"`
	LogLevel   string `mapstructure:"LOG_LEVEL"`
	Port       string `mapstructure:"PORT"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("ENV", "production")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("PORT", "8087")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("BIOSELF_PASSPHRASE")
	v.BindEnv("BIOSELF_STORE_PATH")
	v.BindEnv("ENV")
	v.BindEnv("LOG_LEVEL")
	v.BindEnv("PORT")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate checks that the configuration is complete enough to reach the
// record store. Both the passphrase and the store path are required; every
// command refuses to run without them.
func (c *Config) Validate() error {
	if c.Passphrase == "" {
		return fmt.Errorf("BIOSELF_PASSPHRASE is required")
	}
	if c.StorePath == "" {
		return fmt.Errorf("BIOSELF_STORE_PATH is required")
	}
	return nil
}
