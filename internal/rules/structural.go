package rules

import (
	"fmt"

	"github.com/maxbolgarin/repoq/internal/model"
)

// Structural rules run only at deep analysis depth: they make a second
// pass over the file's shape (brace and indentation structure) instead of
// single-line patterns.

type nestingDepthRule struct{}

func (nestingDepthRule) Name() string { return "nesting-depth" }

// Check flags code nested deeper than the threshold. Brace languages are
// tracked by brace depth, indentation languages by indent width. Only the
// first line of each too-deep region is reported so one deep block does
// not flood the findings.
func (nestingDepthRule) Check(src *Source, th Thresholds) []model.Finding {
	if src.Language == "python" {
		return checkIndentDepth(src, th)
	}
	return checkBraceDepth(src, th)
}

func checkBraceDepth(src *Source, th Thresholds) []model.Finding {
	var out []model.Finding
	depth := 0
	inViolation := false
	for i, line := range src.Lines {
		code := stripLineComment(line)
		lineMax := depth
		for _, r := range code {
			switch r {
			case '{':
				depth++
				if depth > lineMax {
					lineMax = depth
				}
			case '}':
				depth--
			}
		}
		if depth < 0 {
			depth = 0 // malformed input, keep going
		}
		// Depth 1 is the function body itself.
		if lineMax-1 > th.MaxNestingDepth {
			if !inViolation {
				out = append(out, model.Finding{
					Category: model.CategoryComplexity,
					Severity: model.SeverityWarning,
					Line:     i + 1,
					Message:  fmt.Sprintf("nesting depth %d exceeds %d, extract a function", lineMax-1, th.MaxNestingDepth),
				})
			}
			inViolation = true
		} else {
			inViolation = false
		}
	}
	return out
}

func checkIndentDepth(src *Source, th Thresholds) []model.Finding {
	var out []model.Finding
	inViolation := false
	for i, line := range src.Lines {
		if isBlank(line) {
			continue
		}
		// Four columns per level is the convention the indent metric
		// assumes; tabs already count as four in indentOf.
		level := indentOf(line) / 4
		if level > th.MaxNestingDepth {
			if !inViolation {
				out = append(out, model.Finding{
					Category: model.CategoryComplexity,
					Severity: model.SeverityWarning,
					Line:     i + 1,
					Message:  fmt.Sprintf("nesting depth %d exceeds %d, extract a function", level, th.MaxNestingDepth),
				})
			}
			inViolation = true
		} else {
			inViolation = false
		}
	}
	return out
}
