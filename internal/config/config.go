package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	ServerPort   string `validate:"required"`
	LogLevel     string `validate:"required,oneof=debug info warn error"`
	RedisAddr    string `validate:"required"`
	RedisPass    string
	RedisDB      int    `validate:"gte=0"`
	OutputDir    string `validate:"required"`
	DefaultModel string
	SimStepMS    int `validate:"gte=0"`
}

// Load reads configuration from environment variables, applying defaults
// for anything unset.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("server_port", "8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("output_dir", "outputs")
	v.SetDefault("default_model", "t2v")
	v.SetDefault("sim_step_ms", 100)
	v.AutomaticEnv()

	cfg := &Config{
		ServerPort:   v.GetString("server_port"),
		LogLevel:     v.GetString("log_level"),
		RedisAddr:    v.GetString("redis_addr"),
		RedisPass:    v.GetString("redis_password"),
		RedisDB:      v.GetInt("redis_db"),
		OutputDir:    v.GetString("output_dir"),
		DefaultModel: v.GetString("default_model"),
		SimStepMS:    v.GetInt("sim_step_ms"),
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}
