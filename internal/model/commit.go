package model

import (
	"strings"
	"time"
)

// Commit represents one commit in the history sample.
type Commit struct {
	SHA       string    `json:"sha"`
	Message   string    `json:"message"`
	Author    string    `json:"author"`
	Email     string    `json:"email,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	URL       string    `json:"url,omitempty"`
}

// ShortSHA returns the abbreviated commit hash used in report output.
func (c Commit) ShortSHA() string {
	if len(c.SHA) <= 7 {
		return c.SHA
	}
	return c.SHA[:7]
}

const maxCommitSubject = 80

// CommitSubject reduces a raw commit message to its first line, truncated
// so report rows stay readable.
func CommitSubject(message string) string {
	first, _, _ := strings.Cut(message, "\n")
	first = strings.TrimSpace(first)
	runes := []rune(first)
	if len(runes) <= maxCommitSubject {
		return first
	}
	return string(runes[:maxCommitSubject-3]) + "..."
}
