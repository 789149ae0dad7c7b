package provider

import (
	"github.com/maxbolgarin/erro"
	"github.com/maxbolgarin/repoq/internal/model/interfaces"
	"github.com/maxbolgarin/repoq/internal/provider/github"
	"github.com/maxbolgarin/repoq/internal/provider/gitlab"
)

// New creates a code host client based on the configuration.
func New(cfg Config) (interfaces.CodeHost, error) {
	if err := cfg.PrepareAndValidate(); err != nil {
		return nil, erro.Wrap(err, "validate config")
	}

	var host interfaces.CodeHost
	var err error

	switch cfg.Type {
	case GitHub:
		host, err = github.New(github.Config{
			BaseURL:   cfg.BaseURL,
			Token:     cfg.Token,
			Transport: cfg.Transport,
			Filter:    cfg.Filter,
		})
	case GitLab:
		host, err = gitlab.New(gitlab.Config{
			BaseURL:   cfg.BaseURL,
			Token:     cfg.Token,
			Transport: cfg.Transport,
			Filter:    cfg.Filter,
		})
	default:
		return nil, erro.New("unsupported provider type: %s", cfg.Type)
	}
	if err != nil {
		return nil, erro.Wrap(err, "failed to create provider")
	}

	return host, nil
}
