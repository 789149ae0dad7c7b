package provider

import (
	"strings"

	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/repoq/internal/model"
	"github.com/maxbolgarin/repoq/internal/transport"
)

// Type identifies a supported hosting service.
type Type string

const (
	GitHub Type = "github"
	GitLab Type = "gitlab"
)

// Config represents source-hosting provider configuration. The token is
// optional: without it the host only grants a lower rate-limit ceiling.
type Config struct {
	Type      Type             `yaml:"type" env:"PROVIDER_TYPE"`
	BaseURL   string           `yaml:"base_url" env:"PROVIDER_BASE_URL"`
	Token     string           `yaml:"token" env:"PROVIDER_TOKEN"`
	Transport transport.Config `yaml:"transport"`

	// Filter controls directory pruning during tree walks.
	Filter model.FileFilter `yaml:"-"`
}

func (cfg *Config) PrepareAndValidate() error {
	if cfg.Type == "" {
		cfg.Type = GitHub
	}
	cfg.Type = Type(strings.ToLower(string(cfg.Type)))
	switch cfg.Type {
	case GitHub, GitLab:
	default:
		return errm.New("unsupported provider type %q", cfg.Type)
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	cfg.Filter.SetDefaults()
	return cfg.Transport.PrepareAndValidate()
}
