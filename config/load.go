package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/silvamed/ontoforge/errors"
)

var globalConfig *Config
var viperInstance *viper.Viper

// Load reads the ontoforge configuration: defaults, then the user config
// (~/.ontoforge/config.toml), then the project config (ontoforge.toml
// found by walking up from the working directory), then ONTOFORGE_*
// environment variables. The result is cached.
func Load() (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	v := initViper()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	globalConfig = &config
	return globalConfig, nil
}

// GetViper returns the Viper instance for advanced configuration access.
func GetViper() *viper.Viper {
	return initViper()
}

// LoadFromFile loads configuration from a specific file path, on top of
// the defaults but without environment binding.
func LoadFromFile(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("toml")
	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", configPath)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal config from %s", configPath)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Reset clears the cached configuration (useful for testing).
func Reset() {
	globalConfig = nil
	viperInstance = nil
}

func initViper() *viper.Viper {
	if viperInstance != nil {
		return viperInstance
	}

	v := viper.New()

	v.SetEnvPrefix("ONTOFORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	// Merge in precedence order: user config, then project config
	mergeConfigFiles(v)

	viperInstance = v
	return v
}

// findProjectConfig searches for ontoforge.toml by walking up the
// directory tree from the working directory.
func findProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		path := filepath.Join(dir, "ontoforge.toml")
		if _, err := os.Stat(path); err == nil {
			return path
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

func mergeConfigFiles(v *viper.Viper) {
	if home, err := os.UserHomeDir(); err == nil {
		userPath := filepath.Join(home, ".ontoforge", "config.toml")
		if _, err := os.Stat(userPath); err == nil {
			v.SetConfigFile(userPath)
			v.SetConfigType("toml")
			_ = v.MergeInConfig()
		}
	}

	if projectPath := findProjectConfig(); projectPath != "" {
		v.SetConfigFile(projectPath)
		v.SetConfigType("toml")
		_ = v.MergeInConfig()
	}
}
