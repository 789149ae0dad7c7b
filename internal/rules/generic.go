package rules

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/maxbolgarin/repoq/internal/model"
)

// Generic rules run for every file, including unknown languages.

type lineLengthRule struct{}

func (lineLengthRule) Name() string { return "line-length" }

func (lineLengthRule) Check(src *Source, th Thresholds) []model.Finding {
	var out []model.Finding
	for i, line := range src.Lines {
		width := utf8.RuneCountInString(line)
		if width <= th.MaxLineLength {
			continue
		}
		out = append(out, model.Finding{
			Category: model.CategoryStyle,
			Severity: model.SeverityInfo,
			Line:     i + 1,
			Message:  fmt.Sprintf("line is %d characters long (max %d)", width, th.MaxLineLength),
		})
	}
	return out
}

type trailingWhitespaceRule struct{}

func (trailingWhitespaceRule) Name() string { return "trailing-whitespace" }

func (trailingWhitespaceRule) Check(src *Source, _ Thresholds) []model.Finding {
	var out []model.Finding
	for i, line := range src.Lines {
		if line == "" || strings.TrimRight(line, " \t") == line {
			continue
		}
		if isBlank(line) {
			continue
		}
		out = append(out, model.Finding{
			Category: model.CategoryStyle,
			Severity: model.SeverityInfo,
			Line:     i + 1,
			Message:  "trailing whitespace",
		})
	}
	return out
}

type fileLengthRule struct{}

func (fileLengthRule) Name() string { return "file-length" }

func (fileLengthRule) Check(src *Source, th Thresholds) []model.Finding {
	lines := src.LineCount()
	if lines <= th.MaxFileLines {
		return nil
	}
	return []model.Finding{{
		Category: model.CategoryComplexity,
		Severity: model.SeverityInfo,
		Line:     0, // file-level
		Message:  fmt.Sprintf("file is %d lines long (max %d), consider splitting it", lines, th.MaxFileLines),
	}}
}

type todoRule struct{}

func (todoRule) Name() string { return "todo-marker" }

func (todoRule) Check(src *Source, _ Thresholds) []model.Finding {
	var out []model.Finding
	for i, line := range src.Lines {
		upper := strings.ToUpper(line)
		marker := ""
		switch {
		case strings.Contains(upper, "FIXME"):
			marker = "FIXME"
		case strings.Contains(upper, "TODO"):
			marker = "TODO"
		default:
			continue
		}
		out = append(out, model.Finding{
			Category: model.CategoryDocumentation,
			Severity: model.SeverityInfo,
			Line:     i + 1,
			Message:  marker + " marker left in code",
		})
	}
	return out
}
