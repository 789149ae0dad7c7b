package github

import (
	"context"
	"encoding/base64"
	"strconv"
	"strings"
	"time"

	"github.com/google/go-github/v57/github"
	"github.com/maxbolgarin/abstract"
	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/logze/v2"
	"golang.org/x/oauth2"

	"github.com/maxbolgarin/repoq/internal/model"
	"github.com/maxbolgarin/repoq/internal/model/interfaces"
	"github.com/maxbolgarin/repoq/internal/transport"
)

var _ interfaces.CodeHost = (*Provider)(nil)

const (
	// Blobs above this size are not returned by the contents endpoint and
	// have to go through the git blob API.
	inlineContentLimit = 1 << 20

	// Blobs above this size are skipped entirely.
	maxContentSize = 5 << 20

	commitsPerPage = 100
	treePerPage    = 100
)

// Config configures the GitHub code host client.
type Config struct {
	BaseURL   string
	Token     string
	Transport transport.Config
	Filter    model.FileFilter
}

// Provider implements the CodeHost interface for GitHub.
type Provider struct {
	client *github.Client
	runner *transport.Runner
	config Config
	logger logze.Logger

	repoCache    *abstract.SafeMap[string, model.RepositoryInfo]
	contentCache *abstract.SafeMap[string, string]
}

// New creates a new GitHub code host client. The token is optional: an
// unauthenticated client works with a lower rate-limit ceiling.
func New(config Config) (*Provider, error) {
	log := logze.With("provider", "github")

	httpClient := oauth2.NewClient(context.Background(), nil)
	if config.Token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: config.Token})
		httpClient = oauth2.NewClient(context.Background(), ts)
	}
	client := github.NewClient(httpClient)

	// Custom base URL means GitHub Enterprise.
	if config.BaseURL != "" {
		var err error
		client, err = github.NewClient(httpClient).WithEnterpriseURLs(config.BaseURL, config.BaseURL)
		if err != nil {
			return nil, errm.Wrap(err, "failed to create GitHub Enterprise client")
		}
	}

	runner, err := transport.NewRunner(config.Transport)
	if err != nil {
		return nil, errm.Wrap(err, "failed to create transport runner")
	}

	return &Provider{
		client:       client,
		runner:       runner,
		config:       config,
		logger:       log,
		repoCache:    abstract.NewSafeMap[string, model.RepositoryInfo](),
		contentCache: abstract.NewSafeMap[string, string](),
	}, nil
}

// GetRepositoryInfo retrieves repository metadata, cached per run.
func (p *Provider) GetRepositoryInfo(ctx context.Context, ref model.RepositoryRef) (model.RepositoryInfo, error) {
	if info, ok := p.repoCache.Lookup(ref.FullName()); ok {
		return info, nil
	}

	var repo *github.Repository
	err := p.runner.Do(ctx, "get repository", func(ctx context.Context) (transport.Meta, error) {
		var resp *github.Response
		var err error
		repo, resp, err = p.client.Repositories.Get(ctx, ref.Owner, ref.Name)
		return metaOf(resp), err
	})
	if err != nil {
		return model.RepositoryInfo{}, errm.Wrap(err, "failed to get repository from GitHub")
	}

	info := model.RepositoryInfo{
		Owner:         repo.GetOwner().GetLogin(),
		Name:          repo.GetName(),
		FullName:      repo.GetFullName(),
		Description:   repo.GetDescription(),
		DefaultBranch: repo.GetDefaultBranch(),
		Language:      repo.GetLanguage(),
		License:       repo.GetLicense().GetSPDXID(),
		Stars:         repo.GetStargazersCount(),
		Forks:         repo.GetForksCount(),
		OpenIssues:    repo.GetOpenIssuesCount(),
		SizeKB:        repo.GetSize(),
		Private:       repo.GetPrivate(),
		URL:           repo.GetHTMLURL(),
		CreatedAt:     repo.GetCreatedAt().Time,
		UpdatedAt:     repo.GetUpdatedAt().Time,
	}
	p.repoCache.Set(ref.FullName(), info)

	return info, nil
}

// GetCommitHistory retrieves up to limit commits, paginating transparently.
func (p *Provider) GetCommitHistory(ctx context.Context, ref model.RepositoryRef, limit int) ([]model.Commit, error) {
	if limit <= 0 {
		return nil, nil
	}

	opts := &github.CommitsListOptions{
		SHA:         ref.Ref,
		ListOptions: github.ListOptions{PerPage: min(limit, commitsPerPage)},
	}

	commits := make([]model.Commit, 0, limit)
	for {
		var page []*github.RepositoryCommit
		var next int
		err := p.runner.Do(ctx, "list commits", func(ctx context.Context) (transport.Meta, error) {
			var resp *github.Response
			var err error
			page, resp, err = p.client.Repositories.ListCommits(ctx, ref.Owner, ref.Name, opts)
			if resp != nil {
				next = resp.NextPage
			}
			return metaOf(resp), err
		})
		if err != nil {
			return nil, errm.Wrap(err, "failed to list commits from GitHub")
		}

		for _, c := range page {
			commits = append(commits, model.Commit{
				SHA:       c.GetSHA(),
				Message:   model.CommitSubject(c.GetCommit().GetMessage()),
				Author:    c.GetCommit().GetAuthor().GetName(),
				Email:     c.GetCommit().GetAuthor().GetEmail(),
				Timestamp: c.GetCommit().GetAuthor().GetDate().Time,
				URL:       c.GetHTMLURL(),
			})
			if len(commits) >= limit {
				return commits, nil
			}
		}

		if next == 0 {
			return commits, nil
		}
		opts.Page = next
	}
}

// ListFiles walks the repository tree up to maxDepth, pruning excluded
// directories. It uses the recursive tree endpoint and falls back to a
// per-directory walk when the host truncates the listing.
func (p *Provider) ListFiles(ctx context.Context, ref model.RepositoryRef, maxDepth int) ([]model.FileEntry, error) {
	branch, err := p.branchOf(ctx, ref)
	if err != nil {
		return nil, err
	}

	var tree *github.Tree
	err = p.runner.Do(ctx, "get tree", func(ctx context.Context) (transport.Meta, error) {
		var resp *github.Response
		var err error
		tree, resp, err = p.client.Git.GetTree(ctx, ref.Owner, ref.Name, branch, true)
		return metaOf(resp), err
	})
	if err != nil {
		return nil, errm.Wrap(err, "failed to get repository tree from GitHub")
	}

	if tree.GetTruncated() {
		p.logger.Debug("recursive tree listing truncated, walking directories", "repo", ref.FullName())
		return p.walkDirectories(ctx, ref, branch, maxDepth)
	}

	entries := make([]model.FileEntry, 0, len(tree.Entries))
	for _, e := range tree.Entries {
		if pathDepth(e.GetPath()) > maxDepth {
			continue
		}
		if dir, excluded := p.excludedSegment(e.GetPath()); excluded {
			p.logger.Debug("pruning excluded directory", "dir", dir, "path", e.GetPath())
			continue
		}
		entry := convertTreeEntry(e)
		if entry.Type == model.EntryFile {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

// walkDirectories lists the tree breadth-first through the contents
// endpoint, pruning excluded directories before descending into them.
func (p *Provider) walkDirectories(ctx context.Context, ref model.RepositoryRef, branch string, maxDepth int) ([]model.FileEntry, error) {
	var entries []model.FileEntry
	queue := []string{""}

	for len(queue) > 0 {
		dir := queue[0]
		queue = queue[1:]

		var listing []*github.RepositoryContent
		err := p.runner.Do(ctx, "list directory", func(ctx context.Context) (transport.Meta, error) {
			var resp *github.Response
			var err error
			_, listing, resp, err = p.client.Repositories.GetContents(ctx, ref.Owner, ref.Name, dir,
				&github.RepositoryContentGetOptions{Ref: branch})
			return metaOf(resp), err
		})
		if err != nil {
			return nil, errm.Wrap(err, "failed to list directory", "dir", dir)
		}

		for _, c := range listing {
			switch c.GetType() {
			case "dir":
				if p.config.Filter.IsDirExcluded(c.GetName()) {
					p.logger.Debug("pruning excluded directory", "dir", c.GetName(), "path", c.GetPath())
					continue
				}
				if pathDepth(c.GetPath()) < maxDepth {
					queue = append(queue, c.GetPath())
				}
			case "file":
				entries = append(entries, model.FileEntry{
					Path:    c.GetPath(),
					Size:    int64(c.GetSize()),
					Type:    model.EntryFile,
					BlobSHA: c.GetSHA(),
				})
			}
		}
	}
	return entries, nil
}

// GetFileContent retrieves the decoded text of one blob, cached per run.
// Oversized blobs go through the git blob endpoint.
func (p *Provider) GetFileContent(ctx context.Context, ref model.RepositoryRef, entry model.FileEntry) (string, error) {
	if entry.Size > maxContentSize {
		return "", errm.Wrap(model.ErrTooLarge, "file exceeds size limit", "path", entry.Path, "size", entry.Size)
	}

	cacheKey := entry.Path + "@" + ref.Ref
	if content, ok := p.contentCache.Lookup(cacheKey); ok {
		return content, nil
	}

	var raw string
	var err error
	if entry.Size > inlineContentLimit && entry.BlobSHA != "" {
		raw, err = p.getBlobContent(ctx, ref, entry.BlobSHA)
	} else {
		raw, err = p.getInlineContent(ctx, ref, entry)
	}
	if err != nil {
		return "", err
	}

	if !isText(raw) {
		return "", errm.Wrap(model.ErrDecode, "binary content", "path", entry.Path)
	}
	p.contentCache.Set(cacheKey, raw)

	return raw, nil
}

func (p *Provider) getInlineContent(ctx context.Context, ref model.RepositoryRef, entry model.FileEntry) (string, error) {
	var file *github.RepositoryContent
	err := p.runner.Do(ctx, "get file content", func(ctx context.Context) (transport.Meta, error) {
		var resp *github.Response
		var err error
		file, _, resp, err = p.client.Repositories.GetContents(ctx, ref.Owner, ref.Name, entry.Path,
			&github.RepositoryContentGetOptions{Ref: ref.Ref})
		return metaOf(resp), err
	})
	if err != nil {
		return "", errm.Wrap(err, "failed to get file content from GitHub")
	}
	if file == nil {
		return "", errm.Wrap(model.ErrNotFound, "not a file", "path", entry.Path)
	}

	content, err := file.GetContent()
	if err != nil {
		return "", errm.Wrap(model.ErrDecode, "undecodable content", "path", entry.Path)
	}

	// The contents endpoint returns metadata without content for blobs
	// above the inline limit; fetch those through the blob API.
	if content == "" && file.GetSize() > 0 && file.GetSHA() != "" {
		return p.getBlobContent(ctx, ref, file.GetSHA())
	}
	return content, nil
}

// getBlobContent is the large-object fallback path.
func (p *Provider) getBlobContent(ctx context.Context, ref model.RepositoryRef, sha string) (string, error) {
	var blob *github.Blob
	err := p.runner.Do(ctx, "get blob", func(ctx context.Context) (transport.Meta, error) {
		var resp *github.Response
		var err error
		blob, resp, err = p.client.Git.GetBlob(ctx, ref.Owner, ref.Name, sha)
		return metaOf(resp), err
	})
	if err != nil {
		return "", errm.Wrap(err, "failed to get blob from GitHub")
	}

	if blob.GetEncoding() != "base64" {
		return blob.GetContent(), nil
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(blob.GetContent(), "\n", ""))
	if err != nil {
		return "", errm.Wrap(model.ErrDecode, "undecodable blob", "sha", sha)
	}
	return string(decoded), nil
}

// branchOf resolves the ref to fetch from, falling back to the repository
// default branch. GetRepositoryInfo is cached, so this costs one request
// per run at most.
func (p *Provider) branchOf(ctx context.Context, ref model.RepositoryRef) (string, error) {
	if ref.Ref != "" {
		return ref.Ref, nil
	}
	info, err := p.GetRepositoryInfo(ctx, ref)
	if err != nil {
		return "", err
	}
	return info.DefaultBranch, nil
}

// excludedSegment reports the first path segment matching the exclusion set.
func (p *Provider) excludedSegment(path string) (string, bool) {
	for _, part := range strings.Split(path, "/") {
		if p.config.Filter.IsDirExcluded(part) {
			return part, true
		}
	}
	return "", false
}

func convertTreeEntry(e *github.TreeEntry) model.FileEntry {
	entry := model.FileEntry{
		Path:    e.GetPath(),
		Size:    int64(e.GetSize()),
		BlobSHA: e.GetSHA(),
	}
	switch e.GetType() {
	case "blob":
		entry.Type = model.EntryFile
	case "tree":
		entry.Type = model.EntryDir
	case "commit":
		entry.Type = model.EntrySubmodule
	}
	return entry
}

func pathDepth(path string) int {
	return strings.Count(path, "/") + 1
}

// isText reports whether content is readable text rather than binary data.
func isText(content string) bool {
	return !strings.ContainsRune(content, 0) && strings.ToValidUTF8(content, "") == content
}

// metaOf extracts transport metadata from a GitHub API response.
func metaOf(resp *github.Response) transport.Meta {
	if resp == nil || resp.Response == nil {
		return transport.Meta{}
	}
	m := transport.Meta{
		StatusCode:    resp.StatusCode,
		RateRemaining: resp.Rate.Remaining,
		RateLimit:     resp.Rate.Limit,
		RateReset:     resp.Rate.Reset.Time,
		HasRate:       resp.Rate.Limit > 0,
	}
	if ra := resp.Header.Get("Retry-After"); ra != "" {
		if secs, err := strconv.Atoi(ra); err == nil {
			m.RetryAfter = time.Duration(secs) * time.Second
		}
	}
	return m
}
