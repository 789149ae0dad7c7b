package main

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/alecthomas/kingpin/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/maxbolgarin/contem"
	"github.com/maxbolgarin/erro"
	"github.com/maxbolgarin/logze/v2"

	"github.com/maxbolgarin/repoq/internal/app"
	"github.com/maxbolgarin/repoq/internal/config"
	"github.com/maxbolgarin/repoq/internal/model"
	"github.com/maxbolgarin/repoq/internal/remote"
	"github.com/maxbolgarin/repoq/internal/server"
)

var (
	Version, Branch, Commit, BuildDate string
)

var (
	configPath = kingpin.Flag("config", "path to config file").Short('c').String()
	repository = kingpin.Arg("repository", "repository to analyze: URL or owner/name[@ref]").String()

	token      = kingpin.Flag("token", "host API token, raises the rate-limit ceiling").Short('t').String()
	depth      = kingpin.Flag("depth", "analysis depth: basic, standard or deep").Short('d').String()
	maxFiles   = kingpin.Flag("max-files", "maximum number of files to analyze").Short('n').Int()
	extensions = kingpin.Flag("ext", "file extension to analyze, repeatable").Short('e').Strings()

	serve     = kingpin.Flag("serve", "run the analysis API server instead of a one-off run").Bool()
	remoteURL = kingpin.Flag("remote", "send the request to a running repoq server at this URL").String()

	asJSON  = kingpin.Flag("json", "print the full report as JSON").Bool()
	verbose = kingpin.Flag("verbose", "enable debug logging").Short('v').Bool()
)

func main() {
	kingpin.Parse()
	var err error
	ctx := contem.New(contem.WithLogger(logze.DefaultPtr()), contem.Exit(&err))
	defer ctx.Shutdown()
	err = run(ctx)
	if err != nil {
		logze.DefaultPtr().Error("cannot run", "error", err)
	}
}

func run(ctx contem.Context) error {
	level := logze.LevelInfo
	if *verbose {
		level = logze.LevelDebug
	}
	logze.Init(logze.C().WithConsole().WithLevel(level))

	cfg, err := config.Load(*configPath)
	if err != nil {
		return erro.Wrap(err, "load config")
	}
	applyFlags(&cfg)

	if *remoteURL != "" {
		return runRemote(ctx, cfg)
	}

	repoq, err := app.New(ctx, cfg)
	if err != nil {
		return erro.Wrap(err, "create application")
	}

	if *serve {
		if err := repoq.StartServer(ctx); err != nil {
			return erro.Wrap(err, "start server")
		}
		<-ctx.Done()
		return nil
	}

	if *repository == "" {
		return erro.New("repository argument is required, try: repoq owner/name")
	}

	report, err := repoq.Analyze(ctx, *repository)
	if err != nil {
		return erro.Wrap(err, "analyze repository")
	}
	return printReport(report)
}

func runRemote(ctx context.Context, cfg config.Config) error {
	if *repository == "" {
		return erro.New("repository argument is required in remote mode")
	}

	client, err := remote.New(*remoteURL)
	if err != nil {
		return erro.Wrap(err, "create remote client")
	}

	report, err := client.Analyze(ctx, server.AnalyzeRequest{
		Repository:  *repository,
		Extensions:  cfg.Analysis.Filter.Extensions,
		MaxFiles:    cfg.Analysis.MaxFiles,
		Depth:       string(cfg.Analysis.Depth),
		CommitLimit: cfg.Analysis.CommitLimit,
	})
	if err != nil {
		return erro.Wrap(err, "remote analysis")
	}
	return printReport(report)
}

// applyFlags overlays command line flags over the loaded configuration.
func applyFlags(cfg *config.Config) {
	if *token != "" {
		cfg.Provider.Token = *token
	}
	if *depth != "" {
		if d, err := model.ParseDepth(*depth); err == nil {
			cfg.Analysis.Depth = d
		}
	}
	if *maxFiles > 0 {
		cfg.Analysis.MaxFiles = *maxFiles
	}
	if len(*extensions) > 0 {
		cfg.Analysis.Filter.Extensions = *extensions
	}
	cfg.Analyzer.Verbose = *verbose
}

func printReport(report *model.RepositoryReport) error {
	if *asJSON {
		out, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(report, "", "  ")
		if err != nil {
			return erro.Wrap(err, "marshal report")
		}
		fmt.Println(string(out))
		return nil
	}

	fmt.Fprintf(os.Stdout, "%s - score %.1f/10 (%s depth)\n",
		report.Repository.FullName, report.Score, report.Depth)
	if report.Repository.Description != "" {
		fmt.Println(report.Repository.Description)
	}
	fmt.Printf("analyzed %d of %d listed files, %d findings, %d skipped\n",
		report.Stats.AnalyzedFiles, report.Stats.ListedFiles,
		report.Stats.TotalFindings, report.Stats.SkippedFiles)

	categories := make([]string, 0, len(report.Histogram))
	for category := range report.Histogram {
		categories = append(categories, string(category))
	}
	sort.Strings(categories)
	for _, category := range categories {
		fmt.Printf("  %-14s %d\n", category, report.Histogram[model.Category(category)])
	}

	for _, file := range report.Files {
		fmt.Printf("\n%s [%s] - %.1f/10, %d findings\n", file.Path, file.Language, file.Score, len(file.Findings))
		for _, f := range file.Findings {
			if f.Line > 0 {
				fmt.Printf("  %s:%d [%s/%s] %s\n", file.Path, f.Line, f.Category, f.Severity, f.Message)
			} else {
				fmt.Printf("  %s [%s/%s] %s\n", file.Path, f.Category, f.Severity, f.Message)
			}
		}
	}

	for _, fe := range report.Errors {
		fmt.Printf("skipped %s: %s\n", fe.Path, fe.Reason)
	}
	return nil
}
