package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Device  DeviceConfig  `mapstructure:"device"`
	Shader  ShaderConfig  `mapstructure:"shader"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type DeviceConfig struct {
	// Prefer selects the physical device by name substring; empty takes
	// the first device with a compute queue.
	Prefer  string `mapstructure:"prefer"`
	AppName string `mapstructure:"app_name"`
}

type ShaderConfig struct {
	// MetadataDir is where preprocessed binding metadata JSON files are
	// written and looked up.
	MetadataDir string `mapstructure:"metadata_dir"`
	// OutputDir is where preprocessed GLSL sources are written. Empty
	// writes next to the input file.
	OutputDir string `mapstructure:"output_dir"`
}

type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	File    string `mapstructure:"file"`
	Console bool   `mapstructure:"console"`
}

// DefaultConfig returns configuration with default values
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	flowvkDir := filepath.Join(home, ".flowvk")

	return &Config{
		Device: DeviceConfig{
			Prefer:  "",
			AppName: "flowvk",
		},
		Shader: ShaderConfig{
			MetadataDir: filepath.Join(flowvkDir, "metadata"),
			OutputDir:   "",
		},
		Logging: LoggingConfig{
			Level:   "info",
			File:    filepath.Join(flowvkDir, "flowvk.log"),
			Console: true,
		},
	}
}

// Load loads configuration from file, environment, and defaults
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	cfg := DefaultConfig()
	setDefaults(v, cfg)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("finding home directory: %w", err)
		}

		v.AddConfigPath(filepath.Join(home, ".flowvk"))
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName("config")
	}

	// Environment variables
	v.SetEnvPrefix("FLOWVK")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// Config file not found is okay, use defaults
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.ExpandPaths()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	validLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLevels, c.Logging.Level) {
		return fmt.Errorf("logging.level must be one of: %v", validLevels)
	}
	return nil
}

// ExpandPaths expands ~ and environment variables in paths
func (c *Config) ExpandPaths() {
	c.Shader.MetadataDir = expandPath(c.Shader.MetadataDir)
	c.Shader.OutputDir = expandPath(c.Shader.OutputDir)
	c.Logging.File = expandPath(c.Logging.File)
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return os.ExpandEnv(path)
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("device.prefer", cfg.Device.Prefer)
	v.SetDefault("device.app_name", cfg.Device.AppName)

	v.SetDefault("shader.metadata_dir", cfg.Shader.MetadataDir)
	v.SetDefault("shader.output_dir", cfg.Shader.OutputDir)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.console", cfg.Logging.Console)
}
