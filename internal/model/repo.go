package model

import (
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/maxbolgarin/errm"
)

// HostKind identifies the source-hosting service a reference points at.
type HostKind string

const (
	HostGitHub HostKind = "github"
	HostGitLab HostKind = "gitlab"
)

// RepositoryRef identifies a repository to analyze.
// It is immutable once parsed from user input.
type RepositoryRef struct {
	Owner string   `json:"owner"`
	Name  string   `json:"name"`
	Ref   string   `json:"ref,omitempty"` // branch, tag or commit SHA; empty means default branch
	Host  HostKind `json:"host,omitempty"`
}

// FullName returns the owner/name form of the reference.
func (r RepositoryRef) FullName() string {
	return r.Owner + "/" + r.Name
}

func (r RepositoryRef) String() string {
	if r.Ref == "" {
		return r.FullName()
	}
	return r.FullName() + "@" + r.Ref
}

// Validate reports whether the reference is complete enough to fetch.
func (r RepositoryRef) Validate() error {
	if r.Owner == "" {
		return errm.Wrap(ErrInputInvalid, "missing repository owner")
	}
	if r.Name == "" {
		return errm.Wrap(ErrInputInvalid, "missing repository name")
	}
	if !refPartRE.MatchString(r.Name) {
		return errm.Wrap(ErrInputInvalid, "invalid repository name")
	}
	for _, part := range strings.Split(r.Owner, "/") {
		if !refPartRE.MatchString(part) {
			return errm.Wrap(ErrInputInvalid, "invalid repository owner")
		}
	}
	return nil
}

var (
	refPartRE = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)
	sshFormRE = regexp.MustCompile(`^git@([^:/]+):(.+)$`)
)

// ParseRepositoryRef parses user input into a RepositoryRef before any
// network call is made. Accepted forms:
//
//	https://github.com/owner/name[.git][/...]
//	git@github.com:owner/name.git
//	owner/name[@ref]
//
// GitLab URLs may carry nested groups (group/subgroup/name). Anything else
// fails with ErrInputInvalid.
func ParseRepositoryRef(input string) (RepositoryRef, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return RepositoryRef{}, errm.Wrap(ErrInputInvalid, "empty repository reference")
	}

	if m := sshFormRE.FindStringSubmatch(s); m != nil {
		ref := fromPathParts(hostKindOf(m[1]), splitRepoPath(m[2]))
		return ref, ref.Validate()
	}

	if strings.Contains(s, "://") {
		u, err := url.Parse(s)
		if err != nil {
			return RepositoryRef{}, errm.Wrap(ErrInputInvalid, "unparseable repository URL")
		}
		if u.Host == "" {
			return RepositoryRef{}, errm.Wrap(ErrInputInvalid, "repository URL without a host")
		}
		ref := fromPathParts(hostKindOf(u.Host), splitRepoPath(u.Path))
		return ref, ref.Validate()
	}

	// owner/name shorthand, optionally with @ref
	var branch string
	if at := strings.LastIndex(s, "@"); at > 0 {
		branch = s[at+1:]
		s = s[:at]
	}
	parts := splitRepoPath(s)
	if len(parts) != 2 {
		return RepositoryRef{}, errm.Wrap(ErrInputInvalid, "expected owner/name form")
	}
	ref := RepositoryRef{Owner: parts[0], Name: parts[1], Ref: branch}
	return ref, ref.Validate()
}

func hostKindOf(host string) HostKind {
	host = strings.ToLower(host)
	switch {
	case host == "github.com" || host == "www.github.com":
		return HostGitHub
	case strings.Contains(host, "gitlab"):
		return HostGitLab
	}
	return ""
}

// splitRepoPath splits a repository path into its segments, dropping the web
// UI tail (GitLab "/-/tree/..." and similar) and the trailing ".git".
func splitRepoPath(p string) []string {
	if i := strings.Index(p, "/-/"); i >= 0 {
		p = p[:i]
	}
	parts := strings.Split(strings.Trim(p, "/"), "/")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		out = append(out, strings.TrimSuffix(part, ".git"))
	}
	return out
}

// fromPathParts builds a reference from path segments. GitHub repositories
// are always owner/name; GitLab projects may live under nested groups, so
// everything before the last segment becomes the owner path.
func fromPathParts(host HostKind, parts []string) RepositoryRef {
	switch {
	case len(parts) < 2:
		return RepositoryRef{Host: host}
	case host == HostGitLab && len(parts) > 2:
		return RepositoryRef{
			Host:  host,
			Owner: strings.Join(parts[:len(parts)-1], "/"),
			Name:  parts[len(parts)-1],
		}
	default:
		return RepositoryRef{Host: host, Owner: parts[0], Name: parts[1]}
	}
}

// RepositoryInfo is a point-in-time snapshot of repository metadata.
type RepositoryInfo struct {
	Owner         string    `json:"owner"`
	Name          string    `json:"name"`
	FullName      string    `json:"full_name"`
	Description   string    `json:"description,omitempty"`
	DefaultBranch string    `json:"default_branch"`
	Language      string    `json:"language,omitempty"`
	License       string    `json:"license,omitempty"`
	Stars         int       `json:"stars"`
	Forks         int       `json:"forks"`
	OpenIssues    int       `json:"open_issues"`
	SizeKB        int       `json:"size_kb"`
	Private       bool      `json:"private"`
	URL           string    `json:"url,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// EntryType classifies a tree entry.
type EntryType string

const (
	EntryFile      EntryType = "file"
	EntryDir       EntryType = "dir"
	EntrySubmodule EntryType = "submodule"
)

// FileEntry is one entry of a repository tree listing. Immutable.
type FileEntry struct {
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	Type    EntryType `json:"type"`
	BlobSHA string    `json:"blob_sha,omitempty"`
}

// IsFile reports whether the entry is a regular file blob.
func (e FileEntry) IsFile() bool {
	return e.Type == EntryFile
}
