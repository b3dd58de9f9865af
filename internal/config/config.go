package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/example/ab-compare/internal/logging"
)

const (
	DefaultListenAddr      = "0.0.0.0:8893"
	DefaultModelAURL       = "http://192.168.0.59:8891/predict"
	DefaultModelBURL       = "http://192.168.0.59:8892/predict"
	DefaultUpstreamTimeout = 30 * time.Second
	DefaultShutdownTimeout = 15 * time.Second
)

// Config holds the gateway settings. Values come from an optional YAML file
// and are then overridden by environment variables.
type Config struct {
	ListenAddr      string        `yaml:"listen_addr"`
	ModelAURL       string        `yaml:"model_a_url"`
	ModelBURL       string        `yaml:"model_b_url"`
	UpstreamTimeout time.Duration `yaml:"upstream_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	LogLevel        string        `yaml:"log_level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ListenAddr:      DefaultListenAddr,
		ModelAURL:       DefaultModelAURL,
		ModelBURL:       DefaultModelBURL,
		UpstreamTimeout: DefaultUpstreamTimeout,
		ShutdownTimeout: DefaultShutdownTimeout,
		LogLevel:        "info",
	}
}

// Load builds the configuration from defaults, the YAML file at path (skipped
// when path is empty or the file does not exist) and the environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return Config{}, logging.NewOperationError("config.read_file", "", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, logging.NewOperationError("config.parse_yaml", "", err)
			}
		}
	}

	cfg.ListenAddr = getEnv("LISTEN_ADDR", cfg.ListenAddr)
	cfg.ModelAURL = getEnv("MODEL_A_URL", cfg.ModelAURL)
	cfg.ModelBURL = getEnv("MODEL_B_URL", cfg.ModelBURL)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)

	var err error
	if cfg.UpstreamTimeout, err = getDurationEnv("UPSTREAM_TIMEOUT", cfg.UpstreamTimeout); err != nil {
		return Config{}, err
	}
	if cfg.ShutdownTimeout, err = getDurationEnv("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout); err != nil {
		return Config{}, err
	}
	if cfg.UpstreamTimeout < 0 {
		cfg.UpstreamTimeout = 0
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, logging.NewOperationError("config.parse_"+key, "", err)
	}
	return d, nil
}
