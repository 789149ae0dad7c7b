package server

import (
	"context"
	"errors"
	"net/http"

	jsoniter "github.com/json-iterator/go"
	"github.com/maxbolgarin/erro"
	"github.com/maxbolgarin/logze/v2"
	"github.com/maxbolgarin/servex/v2"

	"github.com/maxbolgarin/repoq/internal/analyzer"
	"github.com/maxbolgarin/repoq/internal/model"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// AnalyzeRequest is the API payload for one analysis run.
type AnalyzeRequest struct {
	Repository  string   `json:"repository"`
	Extensions  []string `json:"extensions,omitempty"`
	MaxFiles    int      `json:"max_files,omitempty"`
	Depth       string   `json:"depth,omitempty"`
	CommitLimit int      `json:"commit_limit,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Server exposes the analysis pipeline over HTTP. It keeps no cross-run
// state: every request is one full pipeline run.
type Server struct {
	analyzer *analyzer.Analyzer
	config   Config
	log      logze.Logger
	server   *servex.Server
}

// New creates the analysis API server.
func New(cfg Config, analyzer *analyzer.Analyzer) (*Server, error) {
	if err := cfg.PrepareAndValidate(); err != nil {
		return nil, erro.Wrap(err, "validate config")
	}

	log := logze.With("module", "server")

	server, err := servex.NewServer(
		servex.WithReadTimeout(cfg.Timeout),
		servex.WithIdleTimeout(cfg.Timeout*2),
		servex.WithLogger(log),
		servex.WithHealthEndpoint(),
		servex.WithDefaultMetrics(),
		servex.WithCertificate(cfg.Certificate),
	)
	if err != nil {
		return nil, erro.Wrap(err, "failed to create server")
	}

	s := &Server{
		analyzer: analyzer,
		config:   cfg,
		log:      log,
		server:   server,
	}

	server.HandleFunc(cfg.Endpoint, s.handleAnalyze)

	return s, nil
}

// Start starts the API server.
func (s *Server) Start(ctx context.Context) error {
	if s.config.EnableHTTPS {
		return s.server.StartHTTPS(s.config.Address)
	}
	return s.server.StartHTTP(s.config.Address)
}

// Stop stops the API server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// handleAnalyze runs one analysis and writes the report as JSON.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	ctx := servex.NewContext(w, r)

	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "use POST"})
		return
	}

	body, err := ctx.Read()
	if err != nil {
		ctx.BadRequest(err, "failed to read request body")
		return
	}

	var req AnalyzeRequest
	if err := json.Unmarshal(body, &req); err != nil {
		ctx.BadRequest(err, "failed to parse request body")
		return
	}

	ref, cfg, err := requestToRun(req)
	if err != nil {
		ctx.BadRequest(err, "invalid analysis request")
		return
	}

	s.log.Info("received analysis request", "repo", ref.FullName(), "depth", string(cfg.Depth))

	report, err := s.analyzer.Analyze(r.Context(), ref, cfg)
	if err != nil {
		s.respondError(ctx, w, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// respondError maps the pipeline error taxonomy onto HTTP statuses without
// leaking tokens or raw response bodies.
func (s *Server) respondError(ctx *servex.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrInputInvalid):
		ctx.BadRequest(err, "invalid repository reference")
	case errors.Is(err, model.ErrUnauthorized):
		ctx.Unauthorized(err, "host rejected credentials")
	case errors.Is(err, model.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "repository not found"})
	default:
		var rateErr *model.RateLimitedError
		if errors.As(err, &rateErr) {
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: rateErr.Error()})
			return
		}
		ctx.InternalServerError(err, "analysis failed")
	}
}

func requestToRun(req AnalyzeRequest) (model.RepositoryRef, model.AnalysisConfig, error) {
	ref, err := model.ParseRepositoryRef(req.Repository)
	if err != nil {
		return model.RepositoryRef{}, model.AnalysisConfig{}, err
	}
	depth, err := model.ParseDepth(req.Depth)
	if err != nil {
		return model.RepositoryRef{}, model.AnalysisConfig{}, err
	}
	cfg := model.AnalysisConfig{
		MaxFiles:    req.MaxFiles,
		Depth:       depth,
		CommitLimit: req.CommitLimit,
	}
	cfg.Filter.Extensions = req.Extensions
	return ref, cfg, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
