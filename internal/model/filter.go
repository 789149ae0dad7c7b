package model

import (
	"path"
	"strings"

	"github.com/maxbolgarin/lang"
)

// DefaultExcludedDirs are dependency, build and VCS directories that are
// pruned from tree listings without being descended into.
var DefaultExcludedDirs = []string{
	".git", "node_modules", "vendor", "venv", ".venv",
	"__pycache__", "dist", "build", "target",
}

// DefaultExcludedPatterns are generated or locked files that carry no
// hand-written code worth analyzing.
var DefaultExcludedPatterns = []string{
	"*.min.js", "*.min.css", "*.lock", "*-lock.json", "*.pb.go",
}

// DefaultExtensions is the extension set analyzed when the caller does not
// narrow it down.
var DefaultExtensions = []string{".py", ".js", ".jsx", ".ts", ".tsx", ".java", ".go"}

// FileFilter selects which listed files enter analysis.
type FileFilter struct {
	Extensions       []string `yaml:"extensions" env:"ANALYSIS_EXTENSIONS"`
	ExcludedDirs     []string `yaml:"excluded_dirs" env:"ANALYSIS_EXCLUDED_DIRS"`
	ExcludedPatterns []string `yaml:"excluded_patterns" env:"ANALYSIS_EXCLUDED_PATTERNS"`
}

func (f *FileFilter) SetDefaults() {
	if len(f.Extensions) == 0 {
		f.Extensions = DefaultExtensions
	}
	if len(f.ExcludedDirs) == 0 {
		f.ExcludedDirs = DefaultExcludedDirs
	}
	if len(f.ExcludedPatterns) == 0 {
		f.ExcludedPatterns = DefaultExcludedPatterns
	}
}

// IsDirExcluded reports whether a directory with the given base name must
// be pruned from the walk.
func (f FileFilter) IsDirExcluded(name string) bool {
	for _, dir := range f.ExcludedDirs {
		if name == dir {
			return true
		}
	}
	return false
}

// IsPathExcluded reports whether any segment of the path sits inside an
// excluded directory or the file matches an excluded pattern.
func (f FileFilter) IsPathExcluded(p string) bool {
	for _, part := range strings.Split(path.Dir(p), "/") {
		if f.IsDirExcluded(part) {
			return true
		}
	}
	base := path.Base(p)
	for _, pattern := range f.ExcludedPatterns {
		if ok, err := path.Match(pattern, base); err == nil && ok {
			return true
		}
	}
	return false
}

// HasAllowedExtension reports whether the file's extension is in the
// configured set. An empty set allows everything.
func (f FileFilter) HasAllowedExtension(p string) bool {
	if len(f.Extensions) == 0 {
		return true
	}
	ext := strings.ToLower(path.Ext(p))
	for _, allowed := range f.Extensions {
		if ext == strings.ToLower(allowed) {
			return true
		}
	}
	return false
}

// Selects reports whether a file passes the filter entirely.
func (f FileFilter) Selects(p string) bool {
	return f.HasAllowedExtension(p) && !f.IsPathExcluded(p)
}

const (
	defaultMaxFiles    = 20
	defaultMaxDepth    = 10
	defaultCommitLimit = 50
	defaultWorkers     = 4
)

// AnalysisConfig carries the caller's knobs for one analysis run.
type AnalysisConfig struct {
	Filter      FileFilter `yaml:"filter"`
	MaxFiles    int        `yaml:"max_files" env:"ANALYSIS_MAX_FILES"`
	MaxDepth    int        `yaml:"max_depth" env:"ANALYSIS_MAX_DEPTH"`
	Depth       Depth      `yaml:"depth" env:"ANALYSIS_DEPTH"`
	CommitLimit int        `yaml:"commit_limit" env:"ANALYSIS_COMMIT_LIMIT"`
	Workers     int        `yaml:"workers" env:"ANALYSIS_WORKERS"`
}

func (c *AnalysisConfig) PrepareAndValidate() error {
	c.Filter.SetDefaults()
	c.MaxFiles = lang.Check(c.MaxFiles, defaultMaxFiles)
	c.MaxDepth = lang.Check(c.MaxDepth, defaultMaxDepth)
	c.CommitLimit = lang.Check(c.CommitLimit, defaultCommitLimit)
	c.Workers = lang.Check(c.Workers, defaultWorkers)
	if c.MaxFiles < 0 {
		return ErrInputInvalid
	}
	if c.Depth == "" {
		c.Depth = DepthStandard
	}
	return nil
}
