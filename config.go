package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from an optional config
// file and environment variables. Environment variables win.
type Config struct {
	Env            string `mapstructure:"env"`             // "local" | "production"
	Port           string `mapstructure:"port"`            // HTTP listen port
	DBPath         string `mapstructure:"db_path"`         // SQLite file path
	SecureCookies  bool   `mapstructure:"secure_cookies"`  // true behind HTTPS
	AllowedOrigin  string `mapstructure:"allowed_origin"`  // deployed frontend origin
	BasePoints     int64  `mapstructure:"base_points"`     // currency for a first correct answer
	QuestionsPath  string `mapstructure:"questions_path"`  // seed file
	StoreItemsPath string `mapstructure:"store_items_path"` // seed file
}

// LoadConfig reads config.yaml (if present) and environment variables.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("env", "local")
	v.SetDefault("port", "8080")
	v.SetDefault("db_path", "practice.db")
	v.SetDefault("secure_cookies", false)
	v.SetDefault("allowed_origin", "https://dailyprep.io")
	v.SetDefault("base_points", 20)
	v.SetDefault("questions_path", "data/questions.json")
	v.SetDefault("store_items_path", "data/store-items.json")

	v.SetEnvPrefix("SAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error loading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}
	if cfg.BasePoints <= 0 {
		return nil, fmt.Errorf("base_points must be positive, got %d", cfg.BasePoints)
	}
	return &cfg, nil
}
