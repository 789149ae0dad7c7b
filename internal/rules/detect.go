package rules

import (
	"path/filepath"
	"strings"

	"github.com/go-enry/go-enry/v2"
)

// extLanguages is the fast path for the extensions the pipeline analyzes
// most. Anything else goes through enry's extension tables.
var extLanguages = map[string]string{
	".py":   "python",
	".js":   "javascript",
	".jsx":  "javascript",
	".mjs":  "javascript",
	".ts":   "typescript",
	".tsx":  "typescript",
	".java": "java",
	".go":   "go",
}

// DetectLanguage maps a file path to the language key used for rule
// dispatch. Unknown extensions return an empty string, which selects the
// language-agnostic rule subset.
func DetectLanguage(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if language, ok := extLanguages[ext]; ok {
		return language
	}
	if language, ok := enry.GetLanguageByExtension(path); ok {
		return strings.ToLower(language)
	}
	return ""
}
