package analyzer_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxbolgarin/repoq/internal/analyzer"
	"github.com/maxbolgarin/repoq/internal/model"
)

// fakeHost serves a repository held in memory.
type fakeHost struct {
	info      model.RepositoryInfo
	commits   []model.Commit
	files     map[string]string // path -> content
	infoErr   error
	commitErr error
	listErr   error
	fetchErr  map[string]error // per-path content failures
}

func (h *fakeHost) GetRepositoryInfo(_ context.Context, ref model.RepositoryRef) (model.RepositoryInfo, error) {
	if h.infoErr != nil {
		return model.RepositoryInfo{}, h.infoErr
	}
	info := h.info
	info.Owner = ref.Owner
	info.Name = ref.Name
	info.FullName = ref.FullName()
	return info, nil
}

func (h *fakeHost) GetCommitHistory(_ context.Context, _ model.RepositoryRef, limit int) ([]model.Commit, error) {
	if h.commitErr != nil {
		return nil, h.commitErr
	}
	if limit < len(h.commits) {
		return h.commits[:limit], nil
	}
	return h.commits, nil
}

func (h *fakeHost) ListFiles(_ context.Context, _ model.RepositoryRef, _ int) ([]model.FileEntry, error) {
	if h.listErr != nil {
		return nil, h.listErr
	}
	paths := make([]string, 0, len(h.files))
	for p := range h.files {
		paths = append(paths, p)
	}
	// Deterministic listing order keeps the file-cap tests stable.
	for i := range paths {
		for j := i + 1; j < len(paths); j++ {
			if paths[j] < paths[i] {
				paths[i], paths[j] = paths[j], paths[i]
			}
		}
	}
	entries := make([]model.FileEntry, 0, len(paths))
	for _, p := range paths {
		entries = append(entries, model.FileEntry{
			Path: p,
			Size: int64(len(h.files[p])),
			Type: model.EntryFile,
		})
	}
	return entries, nil
}

func (h *fakeHost) GetFileContent(_ context.Context, _ model.RepositoryRef, entry model.FileEntry) (string, error) {
	if err, ok := h.fetchErr[entry.Path]; ok {
		return "", err
	}
	content, ok := h.files[entry.Path]
	if !ok {
		return "", model.ErrNotFound
	}
	return content, nil
}

func newAnalyzer(t *testing.T, host *fakeHost) *analyzer.Analyzer {
	t.Helper()
	a, err := analyzer.New(host, analyzer.Config{})
	require.NoError(t, err)
	return a
}

func testRef() model.RepositoryRef {
	return model.RepositoryRef{Owner: "acme", Name: "widgets", Host: model.HostGitHub}
}

// longFunction is a public 60-line python function with no docstring.
func longFunction() string {
	lines := []string{
		"def aggregate_totals(records):",
		"    total = 0",
	}
	for i := 0; i < 57; i++ {
		lines = append(lines, fmt.Sprintf("    total += records[%d].value", i))
	}
	lines = append(lines, "    return total")
	return strings.Join(lines, "\n")
}

const cleanPython = "def add(left, right):\n" +
	"    \"\"\"Return the sum.\"\"\"\n" +
	"    return left + right\n"

func TestAnalyzeEndToEnd(t *testing.T) {
	host := &fakeHost{
		info: model.RepositoryInfo{DefaultBranch: "main", Stars: 7},
		commits: []model.Commit{
			{SHA: "aaaa111", Message: "initial import", Timestamp: time.Now()},
		},
		files: map[string]string{
			"src/report.py": longFunction(),
			"src/util.py":   cleanPython,
			"empty.py":      "",
		},
	}
	a := newAnalyzer(t, host)

	report, err := a.Analyze(context.Background(), testRef(), model.AnalysisConfig{})
	require.NoError(t, err)

	assert.Equal(t, model.StateDone, report.State)
	assert.Equal(t, "acme/widgets", report.Repository.FullName)
	assert.Len(t, report.Commits, 1)
	assert.Empty(t, report.Errors)
	require.Len(t, report.Files, 3)

	// Results come back ordered by path.
	assert.Equal(t, "empty.py", report.Files[0].Path)
	assert.Equal(t, "src/report.py", report.Files[1].Path)
	assert.Equal(t, "src/util.py", report.Files[2].Path)

	empty := report.Files[0]
	assert.Equal(t, 10.0, empty.Score)
	assert.Empty(t, empty.Findings)
	assert.Equal(t, 0, empty.Lines)

	long := report.Files[1]
	assert.Equal(t, "python", long.Language)
	require.Len(t, long.Findings, 2)
	assert.Less(t, long.Score, 10.0)
	assert.NotEmpty(t, long.Suggestions)

	clean := report.Files[2]
	assert.Equal(t, 10.0, clean.Score)
	assert.Empty(t, clean.Findings)

	assert.Equal(t, 3, report.Stats.ListedFiles)
	assert.Equal(t, 3, report.Stats.AnalyzedFiles)
	assert.Equal(t, 2, report.Stats.TotalFindings)
	assert.Equal(t, model.DepthStandard, report.Depth)
	assert.False(t, report.StartedAt.IsZero())
	assert.False(t, report.FinishedAt.After(time.Now()))
	assert.Less(t, report.Score, 10.0)
}

func TestAnalyzeInvalidRef(t *testing.T) {
	a := newAnalyzer(t, &fakeHost{})

	_, err := a.Analyze(context.Background(), model.RepositoryRef{Owner: "acme"}, model.AnalysisConfig{})
	require.Error(t, err)

	var pipelineErr *model.PipelineError
	require.ErrorAs(t, err, &pipelineErr)
	assert.Equal(t, model.StateIdle, pipelineErr.Stage)
	assert.ErrorIs(t, err, model.ErrInputInvalid)
}

func TestAnalyzeRepositoryNotFound(t *testing.T) {
	a := newAnalyzer(t, &fakeHost{infoErr: model.ErrNotFound})

	_, err := a.Analyze(context.Background(), testRef(), model.AnalysisConfig{})
	require.Error(t, err)

	var pipelineErr *model.PipelineError
	require.ErrorAs(t, err, &pipelineErr)
	assert.Equal(t, model.StateFetchingMetadata, pipelineErr.Stage)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestAnalyzeCommitHistoryFailureIsNotFatal(t *testing.T) {
	host := &fakeHost{
		commitErr: model.ErrUnauthorized,
		files:     map[string]string{"main.py": cleanPython},
	}
	a := newAnalyzer(t, host)

	report, err := a.Analyze(context.Background(), testRef(), model.AnalysisConfig{})
	require.NoError(t, err)
	assert.Empty(t, report.Commits)
	assert.Len(t, report.Files, 1)
	assert.Equal(t, model.StateDone, report.State)
}

func TestAnalyzeFileLimit(t *testing.T) {
	files := make(map[string]string, 5)
	for i := 0; i < 5; i++ {
		files[fmt.Sprintf("f%d.py", i)] = cleanPython
	}
	a := newAnalyzer(t, &fakeHost{files: files})

	report, err := a.Analyze(context.Background(), testRef(), model.AnalysisConfig{MaxFiles: 3})
	require.NoError(t, err)

	assert.Len(t, report.Files, 3)
	require.Len(t, report.Errors, 2)
	for _, fe := range report.Errors {
		assert.Equal(t, model.SkipFileLimit, fe.Reason)
	}
	assert.Equal(t, 5, report.Stats.ListedFiles)
	assert.Equal(t, 3, report.Stats.SelectedFiles)
	assert.Equal(t, 2, report.Stats.SkippedFiles)
}

func TestAnalyzePerFileFailuresDoNotAbort(t *testing.T) {
	files := make(map[string]string, 5)
	for i := 0; i < 5; i++ {
		files[fmt.Sprintf("f%d.py", i)] = cleanPython
	}
	host := &fakeHost{
		files: files,
		fetchErr: map[string]error{
			"f2.py": model.ErrNotFound,
		},
	}
	a := newAnalyzer(t, host)

	report, err := a.Analyze(context.Background(), testRef(), model.AnalysisConfig{})
	require.NoError(t, err)

	assert.Equal(t, model.StateDone, report.State)
	assert.Len(t, report.Files, 4)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "f2.py", report.Errors[0].Path)
	assert.Equal(t, model.SkipFetchError, report.Errors[0].Reason)
}

func TestAnalyzeSkipReasons(t *testing.T) {
	host := &fakeHost{
		files: map[string]string{
			"binary.py": "x",
			"huge.py":   "x",
			"gone.py":   "x",
		},
		fetchErr: map[string]error{
			"binary.py": model.ErrDecode,
			"huge.py":   model.ErrTooLarge,
			"gone.py":   model.ErrNotFound,
		},
	}
	a := newAnalyzer(t, host)

	report, err := a.Analyze(context.Background(), testRef(), model.AnalysisConfig{})
	require.NoError(t, err)

	require.Len(t, report.Errors, 3)
	reasons := make(map[string]model.SkipReason, 3)
	for _, fe := range report.Errors {
		reasons[fe.Path] = fe.Reason
	}
	assert.Equal(t, model.SkipDecodeError, reasons["binary.py"])
	assert.Equal(t, model.SkipTooLarge, reasons["huge.py"])
	assert.Equal(t, model.SkipFetchError, reasons["gone.py"])
	assert.Empty(t, report.Files)
	assert.Equal(t, 10.0, report.Score)
}

func TestAnalyzeAppliesExclusionPolicy(t *testing.T) {
	host := &fakeHost{
		files: map[string]string{
			"src/app.py":              cleanPython,
			"node_modules/lib.js":     "var x = 1",
			"vendor/dep.go":           "package dep",
			"web/bundle.min.js":       "x",
			"README.md":               "# readme",
			"__pycache__/app.cpython": "x",
		},
	}
	a := newAnalyzer(t, host)

	report, err := a.Analyze(context.Background(), testRef(), model.AnalysisConfig{})
	require.NoError(t, err)

	require.Len(t, report.Files, 1)
	assert.Equal(t, "src/app.py", report.Files[0].Path)
	assert.Empty(t, report.Errors)
}

func TestAnalyzeCustomExtensions(t *testing.T) {
	host := &fakeHost{
		files: map[string]string{
			"src/app.py":  cleanPython,
			"src/main.go": "package main\n",
		},
	}
	a := newAnalyzer(t, host)

	cfg := model.AnalysisConfig{Filter: model.FileFilter{Extensions: []string{".go"}}}
	report, err := a.Analyze(context.Background(), testRef(), cfg)
	require.NoError(t, err)

	require.Len(t, report.Files, 1)
	assert.Equal(t, "src/main.go", report.Files[0].Path)
	assert.Equal(t, "go", report.Files[0].Language)
}

func TestAnalyzeListFailure(t *testing.T) {
	a := newAnalyzer(t, &fakeHost{listErr: model.ErrUnauthorized})

	_, err := a.Analyze(context.Background(), testRef(), model.AnalysisConfig{})
	require.Error(t, err)

	var pipelineErr *model.PipelineError
	require.ErrorAs(t, err, &pipelineErr)
	assert.Equal(t, model.StateListingFiles, pipelineErr.Stage)
}

func TestAnalyzeDepthBasicReducesFindings(t *testing.T) {
	host := &fakeHost{files: map[string]string{"report.py": longFunction()}}
	a := newAnalyzer(t, host)

	standard, err := a.Analyze(context.Background(), testRef(), model.AnalysisConfig{Depth: model.DepthStandard})
	require.NoError(t, err)
	basic, err := a.Analyze(context.Background(), testRef(), model.AnalysisConfig{Depth: model.DepthBasic})
	require.NoError(t, err)

	require.Len(t, standard.Files, 1)
	require.Len(t, basic.Files, 1)
	assert.Len(t, standard.Files[0].Findings, 2)
	assert.Empty(t, basic.Files[0].Findings)
	assert.Equal(t, 10.0, basic.Files[0].Score)
}
