package rules

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/maxbolgarin/repoq/internal/model"
)

// javascriptRules covers both JavaScript and TypeScript.
func javascriptRules() []Rule {
	return []Rule{
		jsFunctionLengthRule{},
		jsNamingRule{},
		jsDocRule{},
		jsVarRule{},
		jsEqualityRule{},
		jsSecurityRule{},
		jsNestedLoopRule{},
	}
}

var (
	jsFunctionRE = regexp.MustCompile(`^\s*(?:export\s+)?(?:default\s+)?(?:async\s+)?function\s*\*?\s*([A-Za-z_$][\w$]*)\s*\(`)
	jsArrowRE    = regexp.MustCompile(`^\s*(?:export\s+)?(?:const|let|var)\s+([A-Za-z_$][\w$]*)\s*=\s*(?:async\s+)?(?:\([^)]*\)|[A-Za-z_$][\w$]*)\s*=>\s*\{`)
	jsLoopRE     = regexp.MustCompile(`^\s*(?:\}?\s*)?(?:for|while)\s*\(`)

	jsCamelCaseRE = regexp.MustCompile(`^_?[a-z$][A-Za-z0-9$]*$|^[A-Z][A-Za-z0-9$]*$`)
)

// jsFunctions locates function declarations and arrow-function bindings
// and measures them by brace matching.
func jsFunctions(src *Source) []braceFunction {
	var out []braceFunction
	for i, line := range src.Lines {
		var name string
		if m := jsFunctionRE.FindStringSubmatch(line); m != nil {
			name = m[1]
		} else if m := jsArrowRE.FindStringSubmatch(line); m != nil {
			name = m[1]
		} else {
			continue
		}
		length := braceBlockLength(src.Lines, i)
		if length == 0 {
			continue // block never closes, skip the construct
		}
		out = append(out, braceFunction{name: name, line: i + 1, length: length})
	}
	return out
}

type jsFunctionLengthRule struct{}

func (jsFunctionLengthRule) Name() string { return "js-function-length" }

func (jsFunctionLengthRule) Check(src *Source, th Thresholds) []model.Finding {
	var out []model.Finding
	for _, fn := range jsFunctions(src) {
		if fn.length <= th.MaxFunctionLine {
			continue
		}
		out = append(out, model.Finding{
			Category: model.CategoryComplexity,
			Severity: model.SeverityWarning,
			Line:     fn.line,
			Message:  fmt.Sprintf("function %q is %d lines long (max %d)", fn.name, fn.length, th.MaxFunctionLine),
		})
	}
	return out
}

type jsNamingRule struct{}

func (jsNamingRule) Name() string { return "js-naming" }

func (jsNamingRule) Check(src *Source, _ Thresholds) []model.Finding {
	var out []model.Finding
	for i, line := range src.Lines {
		m := jsFunctionRE.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if strings.Contains(m[1], "_") || !jsCamelCaseRE.MatchString(m[1]) {
			out = append(out, model.Finding{
				Category: model.CategoryNaming,
				Severity: model.SeverityInfo,
				Line:     i + 1,
				Message:  fmt.Sprintf("function %q is not camelCase", m[1]),
			})
		}
	}
	return out
}

type jsDocRule struct{}

func (jsDocRule) Name() string { return "js-doc" }

// Check flags exported functions without a JSDoc block right above them.
func (jsDocRule) Check(src *Source, _ Thresholds) []model.Finding {
	var out []model.Finding
	for i, line := range src.Lines {
		if !strings.Contains(line, "export") {
			continue
		}
		m := jsFunctionRE.FindStringSubmatch(line)
		if m == nil {
			m = jsArrowRE.FindStringSubmatch(line)
		}
		if m == nil {
			continue
		}
		if hasDocCommentAbove(src.Lines, i, 3, "/**", "*", "//") {
			continue
		}
		out = append(out, model.Finding{
			Category: model.CategoryDocumentation,
			Severity: model.SeverityInfo,
			Line:     i + 1,
			Message:  fmt.Sprintf("exported function %q has no documentation comment", m[1]),
		})
	}
	return out
}

type jsVarRule struct{}

func (jsVarRule) Name() string { return "js-var" }

var jsVarDeclRE = regexp.MustCompile(`^\s*var\s+[A-Za-z_$]`)

func (jsVarRule) Check(src *Source, _ Thresholds) []model.Finding {
	var out []model.Finding
	for i, line := range src.Lines {
		if !jsVarDeclRE.MatchString(stripLineComment(line)) {
			continue
		}
		out = append(out, model.Finding{
			Category: model.CategoryStyle,
			Severity: model.SeverityInfo,
			Line:     i + 1,
			Message:  "var declaration, prefer const or let",
		})
	}
	return out
}

type jsEqualityRule struct{}

func (jsEqualityRule) Name() string { return "js-equality" }

var jsLooseEqRE = regexp.MustCompile(`[^=!<>]==[^=]|[^=!<>]!=[^=]`)

func (jsEqualityRule) Check(src *Source, _ Thresholds) []model.Finding {
	var out []model.Finding
	for i, line := range src.Lines {
		if !jsLooseEqRE.MatchString(stripLineComment(line)) {
			continue
		}
		out = append(out, model.Finding{
			Category: model.CategoryStyle,
			Severity: model.SeverityInfo,
			Line:     i + 1,
			Message:  "loose equality, prefer === or !==",
		})
	}
	return out
}

var jsSecurityPatterns = []struct {
	pattern *regexp.Regexp
	message string
}{
	{regexp.MustCompile(`\beval\s*\(`), "eval() on dynamic input is dangerous"},
	{regexp.MustCompile(`new\s+Function\s*\(`), "new Function() on dynamic input is dangerous"},
	{regexp.MustCompile(`\.innerHTML\s*=`), "innerHTML assignment allows XSS, use textContent or sanitize"},
	{regexp.MustCompile(`document\.write\s*\(`), "document.write() allows XSS"},
	{regexp.MustCompile(`dangerouslySetInnerHTML`), "dangerouslySetInnerHTML allows XSS, sanitize the value"},
	{regexp.MustCompile(`child_process`), "child_process runs shell commands, validate every argument"},
}

type jsSecurityRule struct{}

func (jsSecurityRule) Name() string { return "js-security" }

func (jsSecurityRule) Check(src *Source, _ Thresholds) []model.Finding {
	var out []model.Finding
	for i, line := range src.Lines {
		code := stripLineComment(line)
		for _, p := range jsSecurityPatterns {
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

type jsNestedLoopRule struct{}

func (jsNestedLoopRule) Name() string { return "js-nested-loops" }

// Check flags loops opened while another loop's brace block is still open.
func (jsNestedLoopRule) Check(src *Source, _ Thresholds) []model.Finding {
	var out []model.Finding
	depth := 0
	var loopDepths []int
	for i, line := range src.Lines {
		code := stripLineComment(line)
		isLoop := jsLoopRE.MatchString(code)
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
