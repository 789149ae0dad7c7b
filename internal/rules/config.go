package rules

import "github.com/maxbolgarin/lang"

const (
	defaultMaxLineLength   = 100
	defaultMaxFunctionLine = 50
	defaultMaxFileLines    = 300
	defaultMaxNestingDepth = 4
)

// maxLineLengths holds the conventional maximum line width per language.
var maxLineLengths = map[string]int{
	"python":     88,
	"javascript": 100,
	"typescript": 100,
	"java":       120,
	"go":         120,
}

// Config holds the rule thresholds. Exact values are tuning policy, not
// correctness requirements; they stay configurable.
type Config struct {
	MaxLineLength   int `yaml:"max_line_length" env:"RULES_MAX_LINE_LENGTH"`
	MaxFunctionLine int `yaml:"max_function_lines" env:"RULES_MAX_FUNCTION_LINES"`
	MaxFileLines    int `yaml:"max_file_lines" env:"RULES_MAX_FILE_LINES"`
	MaxNestingDepth int `yaml:"max_nesting_depth" env:"RULES_MAX_NESTING_DEPTH"`
}

func (cfg *Config) PrepareAndValidate() error {
	cfg.MaxFunctionLine = lang.Check(cfg.MaxFunctionLine, defaultMaxFunctionLine)
	cfg.MaxFileLines = lang.Check(cfg.MaxFileLines, defaultMaxFileLines)
	cfg.MaxNestingDepth = lang.Check(cfg.MaxNestingDepth, defaultMaxNestingDepth)
	return nil
}

// Thresholds are the resolved limits one analysis pass runs with.
type Thresholds struct {
	MaxLineLength   int
	MaxFunctionLine int
	MaxFileLines    int
	MaxNestingDepth int
}

// thresholdsFor resolves the limits for one file: the per-language line
// width plus the configured limits, relaxed by half again in basic mode so
// only the worst offenders surface.
func (cfg Config) thresholdsFor(language string, relaxed bool) Thresholds {
	maxLine := cfg.MaxLineLength
	if maxLine == 0 {
		maxLine = lang.Check(maxLineLengths[language], defaultMaxLineLength)
	}
	th := Thresholds{
		MaxLineLength:   maxLine,
		MaxFunctionLine: cfg.MaxFunctionLine,
		MaxFileLines:    cfg.MaxFileLines,
		MaxNestingDepth: cfg.MaxNestingDepth,
	}
	if relaxed {
		th.MaxLineLength = th.MaxLineLength * 3 / 2
		th.MaxFunctionLine = th.MaxFunctionLine * 3 / 2
		th.MaxFileLines = th.MaxFileLines * 3 / 2
		th.MaxNestingDepth++
	}
	return th
}
