// Package config merges command-line flags, a WILD_-prefixed
// environment, and an optional wild.yaml file into the settings Link
// needs, following the viper-backed layering the rest of the pack uses
// for CLI configuration.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the resolved set of link options, independent of how each
// one was supplied (flag, env var, or config file).
type Config struct {
	Output       string   `mapstructure:"output"`
	Emulation    string   `mapstructure:"emulation"`
	Jobs         int      `mapstructure:"jobs"`
	LibraryPaths []string `mapstructure:"library-path"`
	Export       []string `mapstructure:"export"`
	LogLevel     string   `mapstructure:"log-level"`
}

// Load builds a Config from flags (already parsed onto fs), a wild.yaml
// in the working directory if present, and WILD_* environment variables,
// in that priority order (flags win, then env, then file, then default).
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	v.SetDefault("output", "a.out")
	v.SetDefault("emulation", "riscv64")
	v.SetDefault("jobs", 0)
	v.SetDefault("log-level", "info")

	v.SetConfigName("wild")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: reading wild.yaml: %w", err)
		}
	}

	v.SetEnvPrefix("WILD")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("config: binding flags: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return cfg, nil
}
