package rules

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/maxbolgarin/repoq/internal/model"
)

func javaRules() []Rule {
	return []Rule{
		javaMethodLengthRule{},
		javaNamingRule{},
		javaDocRule{},
		javaSecurityRule{},
	}
}

var (
	javaMethodRE = regexp.MustCompile(`^\s*(?:public|protected|private)\s+(?:static\s+)?(?:final\s+)?[\w<>\[\],\s]+\s([A-Za-z_]\w*)\s*\([^)]*\)\s*(?:throws\s+[\w,\s]+)?\{?\s*$`)
	javaClassRE  = regexp.MustCompile(`^\s*(?:public\s+)?(?:abstract\s+)?(?:final\s+)?(?:class|interface|enum|record)\s+([A-Za-z_]\w*)`)

	javaCamelCaseRE  = regexp.MustCompile(`^[a-z][A-Za-z0-9]*$`)
	javaPascalCaseRE = regexp.MustCompile(`^[A-Z][A-Za-z0-9]*$`)
)

type javaMethodLengthRule struct{}

func (javaMethodLengthRule) Name() string { return "java-method-length" }

func (javaMethodLengthRule) Check(src *Source, th Thresholds) []model.Finding {
	var out []model.Finding
	for i, line := range src.Lines {
		m := javaMethodRE.FindStringSubmatch(line)
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
			Message:  fmt.Sprintf("method %q is %d lines long (max %d)", m[1], length, th.MaxFunctionLine),
		})
	}
	return out
}

type javaNamingRule struct{}

func (javaNamingRule) Name() string { return "java-naming" }

func (javaNamingRule) Check(src *Source, _ Thresholds) []model.Finding {
	var out []model.Finding
	for i, line := range src.Lines {
		if m := javaMethodRE.FindStringSubmatch(line); m != nil {
			// Constructors share the class name and are PascalCase.
			if !javaCamelCaseRE.MatchString(m[1]) && !javaPascalCaseRE.MatchString(m[1]) {
				out = append(out, model.Finding{
					Category: model.CategoryNaming,
					Severity: model.SeverityInfo,
					Line:     i + 1,
					Message:  fmt.Sprintf("method %q is not camelCase", m[1]),
				})
			}
		}
		if m := javaClassRE.FindStringSubmatch(line); m != nil {
			if !javaPascalCaseRE.MatchString(m[1]) {
				out = append(out, model.Finding{
					Category: model.CategoryNaming,
					Severity: model.SeverityInfo,
					Line:     i + 1,
					Message:  fmt.Sprintf("type %q is not PascalCase", m[1]),
				})
			}
		}
	}
	return out
}

type javaDocRule struct{}

func (javaDocRule) Name() string { return "java-doc" }

// Check flags public methods and types without a Javadoc block above.
func (javaDocRule) Check(src *Source, _ Thresholds) []model.Finding {
	var out []model.Finding
	for i, line := range src.Lines {
		if !strings.Contains(line, "public") {
			continue
		}
		var name, kind string
		if m := javaMethodRE.FindStringSubmatch(line); m != nil {
			name, kind = m[1], "method"
		} else if m := javaClassRE.FindStringSubmatch(line); m != nil {
			name, kind = m[1], "type"
		} else {
			continue
		}
		if hasDocCommentAbove(src.Lines, i, 3, "/**", "*", "@") {
			continue
		}
		out = append(out, model.Finding{
			Category: model.CategoryDocumentation,
			Severity: model.SeverityInfo,
			Line:     i + 1,
			Message:  fmt.Sprintf("public %s %q has no Javadoc", kind, name),
		})
	}
	return out
}

var javaSecurityPatterns = []struct {
	pattern *regexp.Regexp
	message string
}{
	{regexp.MustCompile(`Runtime\.getRuntime\(\)\.exec\s*\(`), "Runtime.exec runs an unsanitized shell command"},
	{regexp.MustCompile(`(?:executeQuery|executeUpdate|execute)\s*\(\s*"[^"]*"\s*\+`), "string-concatenated SQL query, use PreparedStatement"},
	{regexp.MustCompile(`MessageDigest\.getInstance\s*\(\s*"(?:MD5|SHA-?1)"`), "weak hash function for anything security sensitive"},
	{regexp.MustCompile(`new\s+ObjectInputStream\s*\(`), "deserializing untrusted data allows code execution"},
	{regexp.MustCompile(`setAccessible\s*\(\s*true\s*\)`), "reflection bypassing access control"},
}

type javaSecurityRule struct{}

func (javaSecurityRule) Name() string { return "java-security" }

func (javaSecurityRule) Check(src *Source, _ Thresholds) []model.Finding {
	var out []model.Finding
	for i, line := range src.Lines {
		code := stripLineComment(line)
		for _, p := range javaSecurityPatterns {
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
