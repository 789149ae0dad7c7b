package rules

import "strings"

// braceFunction is one construct delimited by a brace block.
type braceFunction struct {
	name   string
	line   int // 1-based line of the opening declaration
	length int
}

// braceBlockLength measures the extent of a brace-delimited block starting
// at line index start, in lines. It scans until the brace depth returns to
// zero, ignoring braces inside line comments. Returns zero when the block
// never closes (malformed input), so callers skip the construct.
func braceBlockLength(lines []string, start int) int {
	depth := 0
	opened := false
	for i := start; i < len(lines); i++ {
		code := stripLineComment(lines[i])
		for _, r := range code {
			switch r {
			case '{':
				depth++
				opened = true
			case '}':
				depth--
			}
		}
		if opened && depth <= 0 {
			return i - start + 1
		}
	}
	return 0
}

// stripLineComment removes a trailing // comment. String literals holding
// "//" will lose their tail, which only makes brace counting skip a
// construct, never crash it.
func stripLineComment(line string) string {
	if i := strings.Index(line, "//"); i >= 0 {
		return line[:i]
	}
	return line
}

// hasDocCommentAbove reports whether a documentation comment ends within
// maxGap lines above the declaration at index i.
func hasDocCommentAbove(lines []string, i, maxGap int, prefixes ...string) bool {
	for j := i - 1; j >= 0 && j >= i-maxGap; j-- {
		trimmed := strings.TrimSpace(lines[j])
		if trimmed == "" {
			continue
		}
		for _, prefix := range prefixes {
			if strings.HasPrefix(trimmed, prefix) {
				return true
			}
		}
		if strings.HasSuffix(trimmed, "*/") {
			return true
		}
		return false
	}
	return false
}
