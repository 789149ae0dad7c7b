package rules

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/maxbolgarin/repoq/internal/model"
)

func goRules() []Rule {
	return []Rule{
		goFunctionLengthRule{},
		goNamingRule{},
		goDocRule{},
		goSecurityRule{},
		goNestedLoopRule{},
	}
}

var (
	goFuncRE     = regexp.MustCompile(`^func\s+(?:\([^)]*\)\s+)?([A-Za-z_]\w*)\s*\(`)
	goExportedRE = regexp.MustCompile(`^(?:func\s+(?:\([^)]*\)\s+)?|type\s+)([A-Z]\w*)`)
	goLoopRE     = regexp.MustCompile(`^\s*(?:\}?\s*)?for\b`)
)

type goFunctionLengthRule struct{}

func (goFunctionLengthRule) Name() string { return "go-function-length" }

func (goFunctionLengthRule) Check(src *Source, th Thresholds) []model.Finding {
	var out []model.Finding
	for i, line := range src.Lines {
		m := goFuncRE.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		length := braceBlockLength(src.Lines, i)
		if length == 0 || length <= th.MaxFunctionLine {
			continue
		}
		out = append(out, model.Finding{
			Category: model.CategoryComplexity,
			Severity: model.SeverityWarning,
			Line:     i + 1,
			Message:  fmt.Sprintf("function %q is %d lines long (max %d)", m[1], length, th.MaxFunctionLine),
		})
	}
	return out
}

type goNamingRule struct{}

func (goNamingRule) Name() string { return "go-naming" }

// Check flags underscore names: Go convention is MixedCaps for both
// exported and unexported identifiers.
func (goNamingRule) Check(src *Source, _ Thresholds) []model.Finding {
	var out []model.Finding
	for i, line := range src.Lines {
		m := goFuncRE.FindStringSubmatch(line)
		if m == nil || m[1] == "_" || !strings.Contains(m[1], "_") {
			continue
		}
		out = append(out, model.Finding{
			Category: model.CategoryNaming,
			Severity: model.SeverityInfo,
			Line:     i + 1,
			Message:  fmt.Sprintf("function %q has underscores, use MixedCaps", m[1]),
		})
	}
	return out
}

type goDocRule struct{}

func (goDocRule) Name() string { return "go-doc" }

// Check flags exported top-level declarations without a doc comment on
// the line directly above.
func (goDocRule) Check(src *Source, _ Thresholds) []model.Finding {
	var out []model.Finding
	for i, line := range src.Lines {
		m := goExportedRE.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if i > 0 && strings.HasPrefix(strings.TrimSpace(src.Lines[i-1]), "//") {
			continue
		}
		out = append(out, model.Finding{
			Category: model.CategoryDocumentation,
			Severity: model.SeverityInfo,
			Line:     i + 1,
			Message:  fmt.Sprintf("exported %q has no doc comment", m[1]),
		})
	}
	return out
}

var goSecurityPatterns = []struct {
	pattern *regexp.Regexp
	message string
}{
	{regexp.MustCompile(`InsecureSkipVerify:\s*true`), "TLS certificate verification is disabled"},
	{regexp.MustCompile(`exec\.Command\([^)]*\+`), "shell command built by concatenation, validate every argument"},
	{regexp.MustCompile(`(?i)(?:Sprintf|Sprint)\s*\(\s*"(?:SELECT|INSERT|UPDATE|DELETE)\b`), "string-built SQL query, use parameterized queries"},
	{regexp.MustCompile(`md5\.New\(\)|sha1\.New\(\)`), "weak hash function for anything security sensitive"},
	{regexp.MustCompile(`math/rand.*crypt|rand\.Read\b.*math`), "math/rand is not a cryptographic source"},
}

type goSecurityRule struct{}

func (goSecurityRule) Name() string { return "go-security" }

func (goSecurityRule) Check(src *Source, _ Thresholds) []model.Finding {
	var out []model.Finding
	for i, line := range src.Lines {
		code := stripLineComment(line)
		for _, p := range goSecurityPatterns {
			if !p.pattern.MatchString(code) {
				continue
			}
			out = append(out, model.Finding{
				Category: model.CategorySecurity,
				Severity: model.SeverityError,
				Line:     i + 1,
				Message:  p.message,
			})
		}
	}
	return out
}

type goNestedLoopRule struct{}

func (goNestedLoopRule) Name() string { return "go-nested-loops" }

func (goNestedLoopRule) Check(src *Source, _ Thresholds) []model.Finding {
	var out []model.Finding
	depth := 0
	var loopDepths []int
	for i, line := range src.Lines {
		code := stripLineComment(line)
		isLoop := goLoopRE.MatchString(code)
		if isLoop && len(loopDepths) > 0 {
			out = append(out, model.Finding{
				Category: model.CategoryPerformance,
				Severity: model.SeverityWarning,
				Line:     i + 1,
				Message:  "nested loop, check the algorithmic complexity",
			})
		}
		for _, r := range code {
			switch r {
			case '{':
				depth++
				if isLoop {
					loopDepths = append(loopDepths, depth)
					isLoop = false
				}
			case '}':
				for len(loopDepths) > 0 && loopDepths[len(loopDepths)-1] == depth {
					loopDepths = loopDepths[:len(loopDepths)-1]
				}
				depth--
			}
		}
	}
	return out
}
