package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/teambition/rrule-go"
	"gopkg.in/yaml.v3"

	"github.com/jakechorley/colony-allocator/pkg/core/allocator"
)

// StrategyOverride switches planets to another strategy on the days matched by an RRule
type StrategyOverride struct {
	RRule    string   `yaml:"rrule" validate:"required"`
	Strategy string   `yaml:"strategy" validate:"required,strategy"`
	Planets  []string `yaml:"planets,omitempty"` // Empty means every planet
}

// EngineConfig sizes the allocation engine. Zero values select the engine defaults.
type EngineConfig struct {
	Workers   int    `yaml:"workers" validate:"min=0"`
	KeepAlive string `yaml:"keepAlive,omitempty" validate:"omitempty,duration"`
}

// KeepAliveDuration returns the parsed keep-alive window, or 0 when unset
func (e EngineConfig) KeepAliveDuration() time.Duration {
	d, err := time.ParseDuration(e.KeepAlive)
	if err != nil {
		return 0
	}
	return d
}

// DatabaseConfig selects the store
type DatabaseConfig struct {
	Driver string `yaml:"driver" validate:"required,oneof=postgres sqlite"`
	URL    string `yaml:"url,omitempty" validate:"required_if=Driver postgres"`
	Path   string `yaml:"path,omitempty"`
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr,omitempty" validate:"required_if=Enabled true"`
}

// Config represents the application configuration
type Config struct {
	DefaultStrategy   string             `yaml:"defaultStrategy" validate:"required,strategy"`
	SimulationStart   string             `yaml:"simulationStart" validate:"required,datetime=2006-01-02"`
	Engine            EngineConfig       `yaml:"engine"`
	Database          DatabaseConfig     `yaml:"database"`
	StrategyOverrides []StrategyOverride `yaml:"strategyOverrides,omitempty" validate:"dive"`
	Metrics           MetricsConfig      `yaml:"metrics"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterValidation("strategy", func(fl validator.FieldLevel) bool {
		_, err := allocator.ParseStrategy(fl.Field().String())
		return err == nil
	})
	validate.RegisterValidation("duration", func(fl validator.FieldLevel) bool {
		d, err := time.ParseDuration(fl.Field().String())
		return err == nil && d > 0
	})
}

// Load loads and validates the configuration from colony_config.yaml
// It looks for the config file in the current directory first, then in the user's home directory
func Load() (*Config, error) {
	return loadNamed("colony_config.yaml")
}

// LoadWithEnv loads colony_config.<env>.yaml, after loading any .env file
// in the working directory into the process environment
func LoadWithEnv(env string) (*Config, error) {
	return loadNamed(fmt.Sprintf("colony_config.%s.yaml", env))
}

func loadNamed(configFileName string) (*Config, error) {
	// A missing .env is fine
	_ = godotenv.Load()

	configPath, err := findConfigFile(configFileName)
	if err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	return LoadFromPath(configPath)
}

// LoadFromPath loads and validates the configuration from a specific path.
// DATABASE_URL, when set, replaces database.url.
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if url := os.Getenv("DATABASE_URL"); url != "" {
		cfg.Database.URL = url
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate validates the configuration struct and checks rrule syntax
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	for i, override := range cfg.StrategyOverrides {
		if _, err := rrule.StrToRRule(override.RRule); err != nil {
			return fmt.Errorf("invalid rrule in strategyOverrides[%d]: %w", i, err)
		}
	}

	return nil
}

// findConfigFile searches for configFileName in current directory and home directory
func findConfigFile(configFileName string) (string, error) {
	if _, err := os.Stat(configFileName); err == nil {
		return configFileName, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	homeConfigPath := filepath.Join(homeDir, configFileName)
	if _, err := os.Stat(homeConfigPath); err == nil {
		return homeConfigPath, nil
	}

	return "", fmt.Errorf("%s not found in current directory or home directory", configFileName)
}
