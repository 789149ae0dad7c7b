package remote

import (
	"context"
	"strings"

	"github.com/maxbolgarin/cliex"
	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/logze/v2"

	"github.com/maxbolgarin/repoq/internal/model"
	"github.com/maxbolgarin/repoq/internal/server"
)

// Client talks to a running repoq API server, so a thin CLI can offload
// the analysis to a shared instance.
type Client struct {
	client *cliex.HTTP
	log    logze.Logger
}

// New creates a remote analysis client for the given server base URL.
func New(baseURL string) (*Client, error) {
	if baseURL == "" {
		return nil, errm.New("remote server URL is required")
	}
	log := logze.With("component", "remote")

	cli, err := cliex.New(cliex.WithBaseURL(strings.TrimSuffix(baseURL, "/")), cliex.WithLogger(log))
	if err != nil {
		return nil, errm.Wrap(err, "failed to create HTTP client")
	}

	return &Client{
		client: cli,
		log:    log,
	}, nil
}

// Analyze sends one analysis request and decodes the report.
func (c *Client) Analyze(ctx context.Context, req server.AnalyzeRequest) (*model.RepositoryReport, error) {
	var report model.RepositoryReport
	if _, err := c.client.Post(ctx, "/api/v1/analyze", req, &report); err != nil {
		return nil, errm.Wrap(err, "analysis request failed")
	}
	return &report, nil
}
