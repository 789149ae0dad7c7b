package rules

import "strings"

// Source is one file prepared for analysis: its text split into a line
// index so every rule can work off the same view without re-splitting.
type Source struct {
	Path     string
	Language string
	Text     string
	Lines    []string
}

// NewSource prepares a file for rule checks.
func NewSource(path, language, text string) *Source {
	src := &Source{
		Path:     path,
		Language: language,
		Text:     text,
	}
	if text != "" {
		src.Lines = strings.Split(text, "\n")
	}
	return src
}

// LineCount returns the number of lines, not counting a trailing newline
// as an extra line.
func (s *Source) LineCount() int {
	n := len(s.Lines)
	if n > 0 && s.Lines[n-1] == "" {
		n--
	}
	return n
}

// indentOf returns the indentation width of a line, counting tabs as four
// columns.
func indentOf(line string) int {
	width := 0
	for _, r := range line {
		switch r {
		case ' ':
			width++
		case '\t':
			width += 4
		default:
			return width
		}
	}
	return width
}

// isBlank reports whether a line holds no code.
func isBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}
