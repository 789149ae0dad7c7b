package model

import (
	"strings"
	"time"

	"github.com/maxbolgarin/errm"
)

// Category classifies what aspect of the code a finding concerns.
type Category string

const (
	CategoryStyle         Category = "style"
	CategoryComplexity    Category = "complexity"
	CategoryDocumentation Category = "documentation"
	CategorySecurity      Category = "security"
	CategoryPerformance   Category = "performance"
	CategoryNaming        Category = "naming"
)

// Severity ranks how serious a finding is.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Depth selects how much analysis work runs per file.
type Depth string

const (
	DepthBasic    Depth = "basic"
	DepthStandard Depth = "standard"
	DepthDeep     Depth = "deep"
)

// ParseDepth converts user input into a Depth value.
func ParseDepth(s string) (Depth, error) {
	switch Depth(strings.ToLower(strings.TrimSpace(s))) {
	case DepthBasic:
		return DepthBasic, nil
	case DepthStandard, "":
		return DepthStandard, nil
	case DepthDeep:
		return DepthDeep, nil
	}
	return "", errm.New("unknown analysis depth %q", s)
}

// Finding is a single detected issue in a file. A finding is never mutated
// after a rule creates it.
type Finding struct {
	Category Category `json:"category"`
	Severity Severity `json:"severity"`
	Line     int      `json:"line"` // 1-based, 0 for file-level findings
	Message  string   `json:"message"`
	Fix      string   `json:"fix,omitempty"`
}

// Suggestion is a static remediation example attached per finding category.
type Suggestion struct {
	Category Category `json:"category"`
	Title    string   `json:"title"`
	Before   string   `json:"before,omitempty"`
	After    string   `json:"after,omitempty"`
}

// FileAnalysisResult holds everything the pipeline produced for one file.
// It is produced once and read-only afterward.
type FileAnalysisResult struct {
	Path        string           `json:"path"`
	Language    string           `json:"language"`
	Findings    []Finding        `json:"findings"`
	Suggestions []Suggestion     `json:"suggestions,omitempty"`
	Histogram   map[Category]int `json:"histogram,omitempty"`
	Score       float64          `json:"score"`
	Lines       int              `json:"lines"`
	Characters  int              `json:"characters"`
}

// SkipReason says why a listed file produced no analysis result.
type SkipReason string

const (
	SkipFileLimit   SkipReason = "file_limit"
	SkipFetchError  SkipReason = "fetch_error"
	SkipDecodeError SkipReason = "decode_error"
	SkipTooLarge    SkipReason = "too_large"
)

// FileError records a per-file failure that did not abort the run.
type FileError struct {
	Path   string     `json:"path"`
	Reason SkipReason `json:"reason"`
	Detail string     `json:"detail,omitempty"`
}

// RunState is one state of the orchestrator state machine.
type RunState string

const (
	StateIdle             RunState = "idle"
	StateFetchingMetadata RunState = "fetching_metadata"
	StateListingFiles     RunState = "listing_files"
	StateAnalyzingFiles   RunState = "analyzing_files"
	StateAggregated       RunState = "aggregated"
	StateDone             RunState = "done"
	StateFailed           RunState = "failed"
)

// IsTerminal reports whether the run can make no further progress.
func (s RunState) IsTerminal() bool {
	return s == StateDone || s == StateFailed
}

// ReportStats summarizes the work a run performed.
type ReportStats struct {
	ListedFiles   int   `json:"listed_files"`
	SelectedFiles int   `json:"selected_files"`
	AnalyzedFiles int   `json:"analyzed_files"`
	SkippedFiles  int   `json:"skipped_files"`
	TotalFindings int   `json:"total_findings"`
	ElapsedMS     int64 `json:"elapsed_ms"`
}

// RepositoryReport is the final product of one analysis run. The caller owns
// it after return; the pipeline retains no reference.
type RepositoryReport struct {
	Repository RepositoryInfo       `json:"repository"`
	Commits    []Commit             `json:"commits,omitempty"`
	Files      []FileAnalysisResult `json:"files"`
	Errors     []FileError          `json:"errors,omitempty"`
	Score      float64              `json:"score"`
	Histogram  map[Category]int     `json:"histogram"`
	Depth      Depth                `json:"depth"`
	State      RunState             `json:"state"`
	StartedAt  time.Time            `json:"started_at"`
	FinishedAt time.Time            `json:"finished_at"`
	Stats      ReportStats          `json:"stats"`
}
