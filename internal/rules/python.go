package rules

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/maxbolgarin/repoq/internal/model"
)

func pythonRules() []Rule {
	return []Rule{
		pyFunctionLengthRule{},
		pyNamingRule{},
		pyDocstringRule{},
		pySecurityRule{},
		pyNestedLoopRule{},
	}
}

var (
	pyDefRE   = regexp.MustCompile(`^(\s*)def\s+([A-Za-z_]\w*)\s*\(`)
	pyClassRE = regexp.MustCompile(`^(\s*)class\s+([A-Za-z_]\w*)`)
	pyLoopRE  = regexp.MustCompile(`^\s*(for|while)\b.*:\s*(#.*)?$`)

	pySnakeCaseRE  = regexp.MustCompile(`^_*[a-z0-9]+(_[a-z0-9]+)*_*$`)
	pyPascalCaseRE = regexp.MustCompile(`^_?[A-Z][A-Za-z0-9]*$`)
)

// pyFunction is one located def block.
type pyFunction struct {
	name   string
	line   int // 1-based line of the def
	indent int
	length int
}

// pyFunctions locates def blocks and measures their extent by indentation:
// a function ends at the first non-blank line indented at or below its def.
func pyFunctions(src *Source) []pyFunction {
	var out []pyFunction
	for i := 0; i < len(src.Lines); i++ {
		m := pyDefRE.FindStringSubmatch(src.Lines[i])
		if m == nil {
			continue
		}
		fn := pyFunction{name: m[2], line: i + 1, indent: indentOf(src.Lines[i])}
		end := i + 1
		for ; end < len(src.Lines); end++ {
			line := src.Lines[end]
			if isBlank(line) {
				continue
			}
			if indentOf(line) <= fn.indent {
				break
			}
		}
		fn.length = end - i
		out = append(out, fn)
	}
	return out
}

type pyFunctionLengthRule struct{}

func (pyFunctionLengthRule) Name() string { return "py-function-length" }

func (pyFunctionLengthRule) Check(src *Source, th Thresholds) []model.Finding {
	var out []model.Finding
	for _, fn := range pyFunctions(src) {
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

type pyNamingRule struct{}

func (pyNamingRule) Name() string { return "py-naming" }

func (pyNamingRule) Check(src *Source, _ Thresholds) []model.Finding {
	var out []model.Finding
	for i, line := range src.Lines {
		if m := pyDefRE.FindStringSubmatch(line); m != nil {
			if !pySnakeCaseRE.MatchString(m[2]) && !strings.HasPrefix(m[2], "__") {
				out = append(out, model.Finding{
					Category: model.CategoryNaming,
					Severity: model.SeverityInfo,
					Line:     i + 1,
					Message:  fmt.Sprintf("function %q is not snake_case", m[2]),
				})
			}
		}
		if m := pyClassRE.FindStringSubmatch(line); m != nil {
			if !pyPascalCaseRE.MatchString(m[2]) {
				out = append(out, model.Finding{
					Category: model.CategoryNaming,
					Severity: model.SeverityInfo,
					Line:     i + 1,
					Message:  fmt.Sprintf("class %q is not PascalCase", m[2]),
				})
			}
		}
	}
	return out
}

type pyDocstringRule struct{}

func (pyDocstringRule) Name() string { return "py-docstring" }

// Check flags public defs and classes whose body does not open with a
// docstring. Names starting with an underscore are treated as private.
func (pyDocstringRule) Check(src *Source, _ Thresholds) []model.Finding {
	var out []model.Finding
	for i, line := range src.Lines {
		var name, kind string
		if m := pyDefRE.FindStringSubmatch(line); m != nil {
			name, kind = m[2], "function"
		} else if m := pyClassRE.FindStringSubmatch(line); m != nil {
			name, kind = m[2], "class"
		} else {
			continue
		}
		if strings.HasPrefix(name, "_") {
			continue
		}
		if pyHasDocstring(src.Lines, i) {
			continue
		}
		out = append(out, model.Finding{
			Category: model.CategoryDocumentation,
			Severity: model.SeverityInfo,
			Line:     i + 1,
			Message:  fmt.Sprintf("public %s %q has no docstring", kind, name),
		})
	}
	return out
}

// pyHasDocstring reports whether the body opening after the def/class
// header at index i starts with a string literal. The header may span
// several lines until the trailing colon.
func pyHasDocstring(lines []string, i int) bool {
	end := i
	for ; end < len(lines); end++ {
		trimmed := strings.TrimSpace(strings.SplitN(lines[end], "#", 2)[0])
		if strings.HasSuffix(trimmed, ":") {
			break
		}
		if end > i+10 {
			return false // unparseable header, skip the construct
		}
	}
	for j := end + 1; j < len(lines) && j < end+4; j++ {
		if isBlank(lines[j]) {
			continue
		}
		trimmed := strings.TrimSpace(lines[j])
		return strings.HasPrefix(trimmed, `"""`) || strings.HasPrefix(trimmed, "'''") ||
			strings.HasPrefix(trimmed, `r"""`) || strings.HasPrefix(trimmed, `f"""`)
	}
	return false
}

// pySecurityPatterns are known-dangerous call shapes. Substring matching
// keeps this a cheap single pass; false positives are acceptable at
// error severity because every finding carries its line for review.
var pySecurityPatterns = []struct {
	pattern *regexp.Regexp
	message string
}{
	{regexp.MustCompile(`\beval\s*\(`), "eval() on dynamic input is dangerous"},
	{regexp.MustCompile(`\bexec\s*\(`), "exec() on dynamic input is dangerous"},
	{regexp.MustCompile(`os\.system\s*\(`), "os.system() runs an unsanitized shell command"},
	{regexp.MustCompile(`shell\s*=\s*True`), "subprocess with shell=True runs an unsanitized shell command"},
	{regexp.MustCompile(`pickle\.loads?\s*\(`), "unpickling untrusted data allows code execution"},
	{regexp.MustCompile(`yaml\.load\s*\((?:[^)]*)?\)`), "yaml.load without SafeLoader allows code execution"},
	{regexp.MustCompile(`execute\s*\(\s*["'][^"']*%[sd]`), "string-formatted SQL query, use parameterized queries"},
	{regexp.MustCompile(`execute\s*\(\s*f["']`), "f-string SQL query, use parameterized queries"},
}

type pySecurityRule struct{}

func (pySecurityRule) Name() string { return "py-security" }

func (pySecurityRule) Check(src *Source, _ Thresholds) []model.Finding {
	var out []model.Finding
	for i, line := range src.Lines {
		code := strings.SplitN(line, "#", 2)[0]
		for _, p := range pySecurityPatterns {
			if !p.pattern.MatchString(code) {
				continue
			}
			if p.message == "yaml.load without SafeLoader allows code execution" &&
				strings.Contains(code, "Loader") {
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

type pyNestedLoopRule struct{}

func (pyNestedLoopRule) Name() string { return "py-nested-loops" }

// Check flags loops nested inside other loops, tracked by indentation.
func (pyNestedLoopRule) Check(src *Source, _ Thresholds) []model.Finding {
	var out []model.Finding
	var loopStack []int // indents of open loops
	for i, line := range src.Lines {
		if isBlank(line) {
			continue
		}
		indent := indentOf(line)
		for len(loopStack) > 0 && indent <= loopStack[len(loopStack)-1] {
			loopStack = loopStack[:len(loopStack)-1]
		}
		if !pyLoopRE.MatchString(line) {
			continue
		}
		if len(loopStack) > 0 {
			out = append(out, model.Finding{
				Category: model.CategoryPerformance,
				Severity: model.SeverityWarning,
				Line:     i + 1,
				Message:  "nested loop, check the algorithmic complexity",
			})
		}
		loopStack = append(loopStack, indent)
	}
	return out
}
