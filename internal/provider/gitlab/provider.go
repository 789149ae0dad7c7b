package gitlab

import (
	"context"
	"encoding/base64"
	"strconv"
	"strings"
	"time"

	"github.com/maxbolgarin/abstract"
	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/lang"
	"github.com/maxbolgarin/logze/v2"
	gitlab "gitlab.com/gitlab-org/api/client-go"

	"github.com/maxbolgarin/repoq/internal/model"
	"github.com/maxbolgarin/repoq/internal/model/interfaces"
	"github.com/maxbolgarin/repoq/internal/transport"
)

var _ interfaces.CodeHost = (*Provider)(nil)

const (
	defaultBaseURL = "https://gitlab.com"

	// Files above this size go through the raw download endpoint instead
	// of the base64 file API.
	inlineContentLimit = 1 << 20

	// Files above this size are skipped entirely.
	maxContentSize = 5 << 20

	perPage = 100
)

// Config configures the GitLab code host client.
type Config struct {
	BaseURL   string
	Token     string
	Transport transport.Config
	Filter    model.FileFilter
}

// Provider implements the CodeHost interface for GitLab.
type Provider struct {
	client *gitlab.Client
	runner *transport.Runner
	config Config
	logger logze.Logger

	repoCache    *abstract.SafeMap[string, model.RepositoryInfo]
	contentCache *abstract.SafeMap[string, string]
}

// New creates a new GitLab code host client.
func New(config Config) (*Provider, error) {
	log := logze.With("provider", "gitlab")

	baseURL := defaultBaseURL
	if config.BaseURL != "" {
		baseURL = strings.TrimSuffix(config.BaseURL, "/")
	}

	client, err := gitlab.NewClient(config.Token, gitlab.WithBaseURL(baseURL))
	if err != nil {
		return nil, errm.Wrap(err, "failed to create GitLab client")
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

// GetRepositoryInfo retrieves project metadata, cached per run.
func (p *Provider) GetRepositoryInfo(ctx context.Context, ref model.RepositoryRef) (model.RepositoryInfo, error) {
	if info, ok := p.repoCache.Lookup(ref.FullName()); ok {
		return info, nil
	}

	var project *gitlab.Project
	err := p.runner.Do(ctx, "get project", func(ctx context.Context) (transport.Meta, error) {
		var resp *gitlab.Response
		var err error
		project, resp, err = p.client.Projects.GetProject(ref.FullName(),
			&gitlab.GetProjectOptions{License: gitlab.Ptr(true)}, gitlab.WithContext(ctx))
		return metaOf(resp), err
	})
	if err != nil {
		return model.RepositoryInfo{}, errm.Wrap(err, "failed to get project from GitLab")
	}

	info := model.RepositoryInfo{
		Owner:         ref.Owner,
		Name:          project.Path,
		FullName:      project.PathWithNamespace,
		Description:   project.Description,
		DefaultBranch: project.DefaultBranch,
		Stars:         project.StarCount,
		Forks:         project.ForksCount,
		OpenIssues:    project.OpenIssuesCount,
		Private:       project.Visibility == gitlab.PrivateVisibility,
		URL:           project.WebURL,
		CreatedAt:     lang.Deref(project.CreatedAt),
		UpdatedAt:     lang.Deref(project.LastActivityAt),
	}
	if project.License != nil {
		info.License = project.License.Name
	}
	if project.Statistics != nil {
		info.SizeKB = int(project.Statistics.RepositorySize / 1024)
	}
	p.repoCache.Set(ref.FullName(), info)

	return info, nil
}

// GetCommitHistory retrieves up to limit commits, paginating transparently.
func (p *Provider) GetCommitHistory(ctx context.Context, ref model.RepositoryRef, limit int) ([]model.Commit, error) {
	if limit <= 0 {
		return nil, nil
	}

	opts := &gitlab.ListCommitsOptions{
		ListOptions: gitlab.ListOptions{PerPage: min(limit, perPage)},
	}
	if ref.Ref != "" {
		opts.RefName = gitlab.Ptr(ref.Ref)
	}

	commits := make([]model.Commit, 0, limit)
	for {
		var page []*gitlab.Commit
		var next int
		err := p.runner.Do(ctx, "list commits", func(ctx context.Context) (transport.Meta, error) {
			var resp *gitlab.Response
			var err error
			page, resp, err = p.client.Commits.ListCommits(ref.FullName(), opts, gitlab.WithContext(ctx))
			if resp != nil {
				next = resp.NextPage
			}
			return metaOf(resp), err
		})
		if err != nil {
			return nil, errm.Wrap(err, "failed to list commits from GitLab")
		}

		for _, c := range page {
			commits = append(commits, model.Commit{
				SHA:       c.ID,
				Message:   model.CommitSubject(c.Message),
				Author:    c.AuthorName,
				Email:     c.AuthorEmail,
				Timestamp: lang.Deref(c.AuthoredDate),
				URL:       c.WebURL,
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
// directories. GitLab paginates the recursive listing, so no separate
// truncation fallback is needed here.
func (p *Provider) ListFiles(ctx context.Context, ref model.RepositoryRef, maxDepth int) ([]model.FileEntry, error) {
	opts := &gitlab.ListTreeOptions{
		Recursive:   gitlab.Ptr(true),
		ListOptions: gitlab.ListOptions{PerPage: perPage},
	}
	if ref.Ref != "" {
		opts.Ref = gitlab.Ptr(ref.Ref)
	}

	var entries []model.FileEntry
	for {
		var page []*gitlab.TreeNode
		var next int
		err := p.runner.Do(ctx, "list tree", func(ctx context.Context) (transport.Meta, error) {
			var resp *gitlab.Response
			var err error
			page, resp, err = p.client.Repositories.ListTree(ref.FullName(), opts, gitlab.WithContext(ctx))
			if resp != nil {
				next = resp.NextPage
			}
			return metaOf(resp), err
		})
		if err != nil {
			return nil, errm.Wrap(err, "failed to list repository tree from GitLab")
		}

		for _, node := range page {
			if node.Type != "blob" {
				continue
			}
			if pathDepth(node.Path) > maxDepth {
				continue
			}
			if dir, excluded := p.excludedSegment(node.Path); excluded {
				p.logger.Debug("pruning excluded directory", "dir", dir, "path", node.Path)
				continue
			}
			entries = append(entries, model.FileEntry{
				Path:    node.Path,
				Type:    model.EntryFile,
				BlobSHA: node.ID,
			})
		}

		if next == 0 {
			return entries, nil
		}
		opts.Page = next
	}
}

// GetFileContent retrieves the decoded text of one file, cached per run.
// Oversized files go through the raw download endpoint.
func (p *Provider) GetFileContent(ctx context.Context, ref model.RepositoryRef, entry model.FileEntry) (string, error) {
	if entry.Size > maxContentSize {
		return "", errm.Wrap(model.ErrTooLarge, "file exceeds size limit", "path", entry.Path, "size", entry.Size)
	}

	cacheKey := entry.Path + "@" + ref.Ref
	if content, ok := p.contentCache.Lookup(cacheKey); ok {
		return content, nil
	}

	branch, err := p.branchOf(ctx, ref)
	if err != nil {
		return "", err
	}

	var raw string
	if entry.Size > inlineContentLimit {
		raw, err = p.getRawContent(ctx, ref, entry.Path, branch)
	} else {
		raw, err = p.getInlineContent(ctx, ref, entry.Path, branch)
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

func (p *Provider) getInlineContent(ctx context.Context, ref model.RepositoryRef, path, branch string) (string, error) {
	var file *gitlab.File
	err := p.runner.Do(ctx, "get file", func(ctx context.Context) (transport.Meta, error) {
		var resp *gitlab.Response
		var err error
		file, resp, err = p.client.RepositoryFiles.GetFile(ref.FullName(), path,
			&gitlab.GetFileOptions{Ref: gitlab.Ptr(branch)}, gitlab.WithContext(ctx))
		return metaOf(resp), err
	})
	if err != nil {
		return "", errm.Wrap(err, "failed to get file content from GitLab")
	}

	// The tree listing carries no sizes, so the cap is enforced here too.
	if file.Size > maxContentSize {
		return "", errm.Wrap(model.ErrTooLarge, "file exceeds size limit", "path", path, "size", file.Size)
	}

	// Oversized files come back without inline content.
	if file.Content == "" && file.Size > inlineContentLimit {
		return p.getRawContent(ctx, ref, path, branch)
	}

	if file.Encoding != "base64" {
		return file.Content, nil
	}
	decoded, err := base64.StdEncoding.DecodeString(file.Content)
	if err != nil {
		return "", errm.Wrap(model.ErrDecode, "undecodable content", "path", path)
	}
	return string(decoded), nil
}

// getRawContent is the large-object fallback path.
func (p *Provider) getRawContent(ctx context.Context, ref model.RepositoryRef, path, branch string) (string, error) {
	var raw []byte
	err := p.runner.Do(ctx, "get raw file", func(ctx context.Context) (transport.Meta, error) {
		var resp *gitlab.Response
		var err error
		raw, resp, err = p.client.RepositoryFiles.GetRawFile(ref.FullName(), path,
			&gitlab.GetRawFileOptions{Ref: gitlab.Ptr(branch)}, gitlab.WithContext(ctx))
		return metaOf(resp), err
	})
	if err != nil {
		return "", errm.Wrap(err, "failed to get raw file from GitLab")
	}
	return string(raw), nil
}

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

func pathDepth(path string) int {
	return strings.Count(path, "/") + 1
}

// isText reports whether content is readable text rather than binary data.
func isText(content string) bool {
	return !strings.ContainsRune(content, 0) && strings.ToValidUTF8(content, "") == content
}

// metaOf extracts transport metadata from a GitLab API response.
func metaOf(resp *gitlab.Response) transport.Meta {
	if resp == nil || resp.Response == nil {
		return transport.Meta{}
	}
	m := transport.Meta{StatusCode: resp.StatusCode}
	if v := resp.Header.Get("RateLimit-Remaining"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			m.RateRemaining = n
			m.HasRate = true
		}
	}
	if v := resp.Header.Get("RateLimit-Limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			m.RateLimit = n
		}
	}
	if v := resp.Header.Get("RateLimit-Reset"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			m.RateReset = time.Unix(n, 0)
		}
	}
	if v := resp.Header.Get("Retry-After"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			m.RetryAfter = time.Duration(n) * time.Second
		}
	}
	return m
}
