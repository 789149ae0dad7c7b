package analyzer

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/maxbolgarin/abstract"
	"github.com/maxbolgarin/erro"
	"github.com/maxbolgarin/logze/v2"
	"github.com/panjf2000/ants/v2"

	"github.com/maxbolgarin/repoq/internal/model"
	"github.com/maxbolgarin/repoq/internal/model/interfaces"
	"github.com/maxbolgarin/repoq/internal/rules"
	"github.com/maxbolgarin/repoq/internal/scoring"
)

// Config tunes the analysis pipeline.
type Config struct {
	Rules   rules.Config `yaml:"rules"`
	Verbose bool         `yaml:"verbose" env:"ANALYZER_VERBOSE"`
}

// Analyzer runs the fetch -> filter -> analyze pipeline over one
// repository and assembles the report. It is safe for concurrent use:
// each Analyze call owns its run state.
type Analyzer struct {
	host     interfaces.CodeHost
	registry *rules.Registry
	cfg      Config
	log      logze.Logger
}

// New creates the analysis orchestrator.
func New(host interfaces.CodeHost, cfg Config) (*Analyzer, error) {
	registry, err := rules.NewRegistry(cfg.Rules)
	if err != nil {
		return nil, erro.Wrap(err, "failed to create rule registry")
	}
	return &Analyzer{
		host:     host,
		registry: registry,
		cfg:      cfg,
		log:      logze.With("component", "analyzer"),
	}, nil
}

// Analyze is the single synchronous entry point of the pipeline. It walks
// the state machine Idle -> FetchingMetadata -> ListingFiles ->
// AnalyzingFiles -> Aggregated -> Done. Per-file failures are recorded in
// the report and the run continues; run-level failures abort with a
// PipelineError and no partial report.
func (a *Analyzer) Analyze(ctx context.Context, ref model.RepositoryRef, cfg model.AnalysisConfig) (*model.RepositoryReport, error) {
	timer := abstract.StartTimer()
	startedAt := time.Now()

	state := model.StateIdle
	if err := ref.Validate(); err != nil {
		return nil, a.fail(state, err)
	}
	if err := cfg.PrepareAndValidate(); err != nil {
		return nil, a.fail(state, err)
	}
	log := a.log.WithFields("repo", ref.FullName())

	state = a.transition(log, state, model.StateFetchingMetadata)
	info, err := a.host.GetRepositoryInfo(ctx, ref)
	if err != nil {
		return nil, a.fail(state, err)
	}

	commits, err := a.host.GetCommitHistory(ctx, ref, cfg.CommitLimit)
	if err != nil {
		// The commit sample is context, not the subject of analysis.
		log.Warn("failed to fetch commit history, continuing without it", "error", err)
	}

	state = a.transition(log, state, model.StateListingFiles)
	entries, err := a.host.ListFiles(ctx, ref, cfg.MaxDepth)
	if err != nil {
		return nil, a.fail(state, err)
	}
	selected, skipped := selectFiles(entries, cfg, log)

	state = a.transition(log, state, model.StateAnalyzingFiles)
	results, fileErrors := a.analyzeFiles(ctx, ref, selected, cfg, log)
	fileErrors = append(skipped, fileErrors...)

	state = a.transition(log, state, model.StateAggregated)
	report := &model.RepositoryReport{
		Repository: info,
		Commits:    commits,
		Files:      results,
		Errors:     fileErrors,
		Score:      scoring.Aggregate(results),
		Histogram:  totalHistogram(results),
		Depth:      cfg.Depth,
		StartedAt:  startedAt,
		Stats: model.ReportStats{
			ListedFiles:   len(entries),
			SelectedFiles: len(selected),
			AnalyzedFiles: len(results),
			SkippedFiles:  len(fileErrors),
			TotalFindings: totalFindings(results),
			ElapsedMS:     timer.ElapsedTime().Milliseconds(),
		},
	}

	state = a.transition(log, state, model.StateDone)
	report.State = state
	report.FinishedAt = time.Now()

	log.Info("analysis finished",
		"files", len(results),
		"skipped", len(fileErrors),
		"score", report.Score,
		"elapsed", timer.ElapsedTime().String(),
	)
	return report, nil
}

// selectFiles filters the listing by extension and exclusion policy and
// truncates to the file cap. Files beyond the cap are recorded as skipped,
// never silently dropped.
func selectFiles(entries []model.FileEntry, cfg model.AnalysisConfig, log logze.Logger) ([]model.FileEntry, []model.FileError) {
	var selected []model.FileEntry
	var skipped []model.FileError
	for _, e := range entries {
		if !e.IsFile() {
			continue
		}
		if !cfg.Filter.HasAllowedExtension(e.Path) {
			continue
		}
		if cfg.Filter.IsPathExcluded(e.Path) {
			log.Debug("excluding file by policy", "path", e.Path)
			continue
		}
		if len(selected) >= cfg.MaxFiles {
			skipped = append(skipped, model.FileError{
				Path:   e.Path,
				Reason: model.SkipFileLimit,
				Detail: "file count limit reached",
			})
			continue
		}
		selected = append(selected, e)
	}
	return selected, skipped
}

// analyzeFiles fetches and analyzes the selected files on a bounded worker
// pool. Rules are pure functions over one file's text, so the only shared
// state here is the result slices behind the mutex.
func (a *Analyzer) analyzeFiles(ctx context.Context, ref model.RepositoryRef, files []model.FileEntry, cfg model.AnalysisConfig, log logze.Logger) ([]model.FileAnalysisResult, []model.FileError) {
	pool, err := ants.NewPool(cfg.Workers)
	if err != nil {
		log.Err(err, "failed to create worker pool, analyzing sequentially")
	} else {
		defer pool.Release()
	}

	var (
		mu         sync.Mutex
		wg         sync.WaitGroup
		results    []model.FileAnalysisResult
		fileErrors []model.FileError
	)

	for _, entry := range files {
		entry := entry
		job := func() {
			defer wg.Done()
			result, fileErr := a.analyzeOne(ctx, ref, entry, cfg.Depth)
			mu.Lock()
			defer mu.Unlock()
			if fileErr != nil {
				fileErrors = append(fileErrors, *fileErr)
				return
			}
			results = append(results, *result)
		}

		wg.Add(1)
		if pool == nil || pool.Submit(job) != nil {
			job()
		}
	}
	wg.Wait()

	// Workers finish in arbitrary order; the report is ordered by path.
	sort.Slice(results, func(i, j int) bool { return results[i].Path < results[j].Path })
	sort.Slice(fileErrors, func(i, j int) bool { return fileErrors[i].Path < fileErrors[j].Path })

	return results, fileErrors
}

// analyzeOne fetches one file's content and runs the rule engine over it.
// Failures become per-file error records, not run failures.
func (a *Analyzer) analyzeOne(ctx context.Context, ref model.RepositoryRef, entry model.FileEntry, depth model.Depth) (*model.FileAnalysisResult, *model.FileError) {
	content, err := a.host.GetFileContent(ctx, ref, entry)
	if err != nil {
		a.log.DebugIf(a.cfg.Verbose, "skipping file", "path", entry.Path, "error", err)
		return nil, &model.FileError{
			Path:   entry.Path,
			Reason: skipReasonOf(err),
			Detail: err.Error(),
		}
	}

	language := rules.DetectLanguage(entry.Path)
	src := rules.NewSource(entry.Path, language, content)
	findings := a.registry.Analyze(src, depth)

	score, histogram := scoring.Score(findings, src.LineCount())
	return &model.FileAnalysisResult{
		Path:        entry.Path,
		Language:    language,
		Findings:    findings,
		Suggestions: scoring.Suggestions(findings, language),
		Histogram:   histogram,
		Score:       score,
		Lines:       src.LineCount(),
		Characters:  len(content),
	}, nil
}

func skipReasonOf(err error) model.SkipReason {
	switch {
	case errors.Is(err, model.ErrDecode):
		return model.SkipDecodeError
	case errors.Is(err, model.ErrTooLarge):
		return model.SkipTooLarge
	default:
		return model.SkipFetchError
	}
}

func (a *Analyzer) transition(log logze.Logger, from, to model.RunState) model.RunState {
	log.Debug("state transition", "from", string(from), "to", string(to))
	return to
}

func (a *Analyzer) fail(state model.RunState, err error) error {
	a.log.Err(err, "analysis run failed", "stage", string(state))
	return &model.PipelineError{Stage: state, Err: err}
}

func totalHistogram(results []model.FileAnalysisResult) map[model.Category]int {
	total := make(map[model.Category]int)
	for _, r := range results {
		for category, count := range r.Histogram {
			total[category] += count
		}
	}
	return total
}

func totalFindings(results []model.FileAnalysisResult) int {
	n := 0
	for _, r := range results {
		n += len(r.Findings)
	}
	return n
}
