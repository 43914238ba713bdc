// Package config loads runtime configuration from a YAML file with
// environment-variable overrides. A .env file in the working directory is
// picked up first so local runs need no exported variables.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// Config is the full runtime configuration.
type Config struct {
	HTTPAddr string `yaml:"http_addr"`
	Workers  int    `yaml:"workers"`

	Reference struct {
		UnitsPath  string `yaml:"units"`
		CourtsPath string `yaml:"courts"`
	} `yaml:"reference"`

	Dataset struct {
		Driver      string `yaml:"driver"` // "csv" or "postgres"
		Path        string `yaml:"path"`
		PostgresDSN string `yaml:"postgres_dsn"`
	} `yaml:"dataset"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	var cfg Config
	cfg.HTTPAddr = ":8080"
	cfg.Workers = 0 // 0 means NumCPU downstream
	cfg.Reference.UnitsPath = "data/teryt_units.csv"
	cfg.Reference.CourtsPath = "data/courts.csv"
	cfg.Dataset.Driver = "csv"
	cfg.Dataset.Path = "data/consolidated.csv"
	return cfg
}

// Load reads the YAML file at path, then applies environment overrides.
// An empty path loads defaults plus overrides only.
func Load(path string) (Config, error) {
	// Ignore a missing .env; exported variables still apply.
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.HTTPAddr = GetEnv("PRICEBOT_HTTP_ADDR", cfg.HTTPAddr)
	cfg.Workers = GetEnvInt("PRICEBOT_WORKERS", cfg.Workers)
	cfg.Reference.UnitsPath = GetEnv("PRICEBOT_UNITS_CSV", cfg.Reference.UnitsPath)
	cfg.Reference.CourtsPath = GetEnv("PRICEBOT_COURTS_CSV", cfg.Reference.CourtsPath)
	cfg.Dataset.Driver = GetEnv("PRICEBOT_DATASET_DRIVER", cfg.Dataset.Driver)
	cfg.Dataset.Path = GetEnv("PRICEBOT_DATASET_PATH", cfg.Dataset.Path)
	cfg.Dataset.PostgresDSN = GetEnv("PRICEBOT_POSTGRES_DSN", cfg.Dataset.PostgresDSN)

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch c.Dataset.Driver {
	case "csv", "postgres":
	default:
		return fmt.Errorf("unknown dataset driver %q", c.Dataset.Driver)
	}
	if c.Dataset.Driver == "postgres" && c.Dataset.PostgresDSN == "" {
		return fmt.Errorf("dataset driver postgres requires a DSN")
	}
	return nil
}

// GetEnv gets an environment variable with a default.
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvInt gets an integer environment variable with a default.
func GetEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
