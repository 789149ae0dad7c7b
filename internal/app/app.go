package app

import (
	"context"

	"github.com/maxbolgarin/contem"
	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/logze/v2"

	"github.com/maxbolgarin/repoq/internal/analyzer"
	"github.com/maxbolgarin/repoq/internal/config"
	"github.com/maxbolgarin/repoq/internal/model"
	"github.com/maxbolgarin/repoq/internal/model/interfaces"
	"github.com/maxbolgarin/repoq/internal/provider"
	"github.com/maxbolgarin/repoq/internal/server"
)

// Repoq wires the code host client, the analysis pipeline and the API
// server together.
type Repoq struct {
	host     interfaces.CodeHost
	analyzer *analyzer.Analyzer
	server   *server.Server

	cfg config.Config
	log logze.Logger
}

// New creates the application from its configuration.
func New(ctx contem.Context, cfg config.Config) (*Repoq, error) {
	app := &Repoq{
		cfg: cfg,
		log: logze.With("component", "app"),
	}

	if err := app.init(ctx, cfg); err != nil {
		return nil, errm.Wrap(err, "failed to initialize application")
	}

	return app, nil
}

// Analyze runs the full pipeline for one repository reference string.
func (a *Repoq) Analyze(ctx context.Context, repo string) (*model.RepositoryReport, error) {
	ref, err := model.ParseRepositoryRef(repo)
	if err != nil {
		return nil, err
	}

	report, err := a.analyzer.Analyze(ctx, ref, a.cfg.Analysis)
	if err != nil {
		return nil, errm.Wrap(err, "failed to analyze repository")
	}
	return report, nil
}

// StartServer starts the analysis API server.
func (a *Repoq) StartServer(ctx context.Context) error {
	if err := a.server.Start(ctx); err != nil {
		return errm.Wrap(err, "failed to start API server")
	}
	return nil
}

func (a *Repoq) init(ctx contem.Context, cfg config.Config) (err error) {
	a.host, err = provider.New(cfg.Provider)
	if err != nil {
		return errm.Wrap(err, "failed to create code host client")
	}

	a.analyzer, err = analyzer.New(a.host, cfg.Analyzer)
	if err != nil {
		return errm.Wrap(err, "failed to create analyzer")
	}

	a.server, err = server.New(cfg.Server, a.analyzer)
	if err != nil {
		return errm.Wrap(err, "failed to create API server")
	}
	ctx.Add(a.server.Stop)

	return nil
}
