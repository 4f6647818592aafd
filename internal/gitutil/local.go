// Package gitutil provides helpers for working with Git repositories and
// pull request URLs.
package gitutil

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Client produces unified diffs from a local repository checkout.
type Client struct {
	Logger *slog.Logger
}

// NewClient returns a new Client instance.
func NewClient(logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{Logger: logger}
}

// Open opens a Git repository at a given path.
func (c *Client) Open(path string) (*git.Repository, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open repository at %s: %w", path, err)
	}
	return repo, nil
}

// ResolveRef resolves a revision expression (branch, tag, SHA, HEAD~n) to a
// commit hash.
func (c *Client) ResolveRef(path, ref string) (string, error) {
	repo, err := c.Open(path)
	if err != nil {
		return "", err
	}
	hash, err := repo.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		return "", fmt.Errorf("failed to resolve revision %q: %w", ref, err)
	}
	return hash.String(), nil
}

// DiffCommits renders the unified diff between two committed revisions.
// Either side accepts anything ResolveRef does.
func (c *Client) DiffCommits(ctx context.Context, path, oldRef, newRef string) (string, error) {
	repo, err := c.Open(path)
	if err != nil {
		return "", err
	}

	oldCommit, err := c.commitFor(repo, oldRef)
	if err != nil {
		return "", err
	}
	newCommit, err := c.commitFor(repo, newRef)
	if err != nil {
		return "", err
	}

	patch, err := oldCommit.PatchContext(ctx, newCommit)
	if err != nil {
		return "", fmt.Errorf("failed to diff %s..%s: %w", oldRef, newRef, err)
	}
	return patch.String(), nil
}

func (c *Client) commitFor(repo *git.Repository, ref string) (*object.Commit, error) {
	hash, err := repo.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve revision %q: %w", ref, err)
	}
	commit, err := repo.CommitObject(*hash)
	if err != nil {
		return nil, fmt.Errorf("failed to get commit object for %s: %w", ref, err)
	}
	return commit, nil
}

// MergeBase returns the best common ancestor of two revisions.
func (c *Client) MergeBase(path, a, b string) (string, error) {
	repo, err := c.Open(path)
	if err != nil {
		return "", err
	}
	commitA, err := c.commitFor(repo, a)
	if err != nil {
		return "", err
	}
	commitB, err := c.commitFor(repo, b)
	if err != nil {
		return "", err
	}

	bases, err := commitA.MergeBase(commitB)
	if err != nil {
		return "", fmt.Errorf("failed to compute merge base of %s and %s: %w", a, b, err)
	}
	if len(bases) == 0 {
		return "", fmt.Errorf("no common ancestor between %s and %s", a, b)
	}
	return bases[0].Hash.String(), nil
}

// DiffSinceBranch renders the working tree against the merge base of HEAD
// and the given branch: the same changes a pull request onto that branch
// would carry, uncommitted work included.
func (c *Client) DiffSinceBranch(ctx context.Context, path, branch string) (string, error) {
	base, err := c.MergeBase(path, branch, "HEAD")
	if err != nil {
		return "", err
	}
	return c.runDiff(ctx, path, base)
}

// DiffAgainstRef renders the diff of the working tree against a base
// revision, uncommitted changes included.
func (c *Client) DiffAgainstRef(ctx context.Context, path, baseRef string) (string, error) {
	return c.runDiff(ctx, path, baseRef)
}

// StagedDiff renders the diff of the index against HEAD.
func (c *Client) StagedDiff(ctx context.Context, path string) (string, error) {
	return c.runDiff(ctx, path, "--cached")
}

// runDiff shells out to git for worktree and index diffs, which go-git does
// not render.
func (c *Client) runDiff(ctx context.Context, path string, extra ...string) (string, error) {
	args := []string{"-c", "core.longpaths=true", "diff"}
	args = append(args, extra...)

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = path

	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("git diff failed: %s: %w", strings.TrimSpace(string(exitErr.Stderr)), err)
		}
		return "", fmt.Errorf("git diff failed: %w", err)
	}
	return string(out), nil
}

// HeadSHA returns the current HEAD SHA of the repository at the given path.
func (c *Client) HeadSHA(path string) (string, error) {
	return c.ResolveRef(path, "HEAD")
}
