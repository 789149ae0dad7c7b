package config

import (
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/maxbolgarin/errm"

	"github.com/maxbolgarin/repoq/internal/analyzer"
	"github.com/maxbolgarin/repoq/internal/model"
	"github.com/maxbolgarin/repoq/internal/provider"
	"github.com/maxbolgarin/repoq/internal/server"
)

// Config represents the main application configuration.
type Config struct {
	Provider provider.Config      `yaml:"provider"`
	Analysis model.AnalysisConfig `yaml:"analysis"`
	Analyzer analyzer.Config      `yaml:"analyzer"`
	Server   server.Config        `yaml:"server"`
}

// Load reads configuration from an optional YAML file and the
// environment. Environment variables win over file values.
func Load(path string) (Config, error) {
	var cfg Config

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return cfg, errm.Wrap(err, "config file is not readable", "path", path)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return cfg, errm.Wrap(err, "failed to read config file", "path", path)
		}
	} else {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return cfg, errm.Wrap(err, "failed to read environment")
		}
	}

	if err := cfg.Validate(); err != nil {
		return cfg, errm.Wrap(err, "invalid configuration")
	}

	return cfg, nil
}

// Validate prepares every section and checks cross-section consistency.
func (c *Config) Validate() error {
	if err := c.Provider.PrepareAndValidate(); err != nil {
		return errm.Wrap(err, "provider")
	}
	if err := c.Analysis.PrepareAndValidate(); err != nil {
		return errm.Wrap(err, "analysis")
	}
	if err := c.Analyzer.Rules.PrepareAndValidate(); err != nil {
		return errm.Wrap(err, "rules")
	}
	c.Provider.Filter = c.Analysis.Filter
	return nil
}
