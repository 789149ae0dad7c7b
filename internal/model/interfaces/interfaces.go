package interfaces

import (
	"context"

	"github.com/maxbolgarin/repoq/internal/model"
)

// CodeHost is the read-only surface of a source-hosting service
// (GitHub, GitLab, etc.) the pipeline fetches repository data from.
// All methods are idempotent and safe to retry; none mutate remote state.
type CodeHost interface {
	// GetRepositoryInfo fetches the repository metadata snapshot.
	// The result is cached for the remainder of the run.
	GetRepositoryInfo(ctx context.Context, ref model.RepositoryRef) (model.RepositoryInfo, error)

	// GetCommitHistory returns up to limit commits of the ref's branch,
	// newest first, paginating transparently.
	GetCommitHistory(ctx context.Context, ref model.RepositoryRef, limit int) ([]model.Commit, error)

	// ListFiles walks the repository tree up to maxDepth path segments.
	// Directories matching the exclusion set are pruned without descent.
	ListFiles(ctx context.Context, ref model.RepositoryRef, maxDepth int) ([]model.FileEntry, error)

	// GetFileContent returns the decoded text of one blob. Blobs above the
	// inline-content threshold go through the large-object path. Binary
	// content fails with model.ErrDecode.
	GetFileContent(ctx context.Context, ref model.RepositoryRef, entry model.FileEntry) (string, error)
}
