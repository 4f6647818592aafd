package gitutil

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// initTestRepo creates a repository with two commits touching main.go and
// returns the path with both commit SHAs.
func initTestRepo(t *testing.T) (path, first, second string) {
	t.Helper()
	dir := t.TempDir()

	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)

	sig := &object.Signature{Name: "dev", Email: "dev@example.com", When: time.Now()}

	writeFile(t, dir, "main.go", "package main\n")
	_, err = wt.Add("main.go")
	require.NoError(t, err)
	firstHash, err := wt.Commit("initial", &git.CommitOptions{Author: sig})
	require.NoError(t, err)

	writeFile(t, dir, "main.go", "package main\n\nfunc main() {}\n")
	_, err = wt.Add("main.go")
	require.NoError(t, err)
	secondHash, err := wt.Commit("add entry point", &git.CommitOptions{Author: sig})
	require.NoError(t, err)

	return dir, firstHash.String(), secondHash.String()
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestDiffCommits(t *testing.T) {
	dir, first, second := initTestRepo(t)
	client := NewClient(nil)

	diff, err := client.DiffCommits(context.Background(), dir, first, second)
	require.NoError(t, err)

	assert.Contains(t, diff, "diff --git a/main.go b/main.go")
	assert.Contains(t, diff, "+func main() {}")
	assert.NotContains(t, diff, "-func main() {}")
}

func TestDiffCommitsAcceptsRevisionExpressions(t *testing.T) {
	dir, first, _ := initTestRepo(t)
	client := NewClient(nil)

	diff, err := client.DiffCommits(context.Background(), dir, "HEAD~1", "HEAD")
	require.NoError(t, err)
	assert.Contains(t, diff, "+func main() {}")

	resolved, err := client.ResolveRef(dir, "HEAD~1")
	require.NoError(t, err)
	assert.Equal(t, first, resolved)
}

func TestDiffCommitsUnknownRevision(t *testing.T) {
	dir, _, _ := initTestRepo(t)
	client := NewClient(nil)

	_, err := client.DiffCommits(context.Background(), dir, "no-such-branch", "HEAD")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no-such-branch")
}

func TestHeadSHA(t *testing.T) {
	dir, _, second := initTestRepo(t)
	client := NewClient(nil)

	sha, err := client.HeadSHA(dir)
	require.NoError(t, err)
	assert.Equal(t, second, sha)
}

func TestOpenMissingRepository(t *testing.T) {
	client := NewClient(nil)

	_, err := client.Open(t.TempDir())
	require.Error(t, err)
}

// branchAt points a new branch name at an existing commit.
func branchAt(t *testing.T, dir, name, sha string) {
	t.Helper()
	repo, err := git.PlainOpen(dir)
	require.NoError(t, err)
	ref := plumbing.NewHashReference(plumbing.NewBranchReferenceName(name), plumbing.NewHash(sha))
	require.NoError(t, repo.Storer.SetReference(ref))
}

func TestMergeBase(t *testing.T) {
	dir, first, _ := initTestRepo(t)
	branchAt(t, dir, "release", first)
	client := NewClient(nil)

	base, err := client.MergeBase(dir, "release", "HEAD")
	require.NoError(t, err)
	assert.Equal(t, first, base)
}

func TestMergeBaseUnknownBranch(t *testing.T) {
	dir, _, _ := initTestRepo(t)
	client := NewClient(nil)

	_, err := client.MergeBase(dir, "no-such-branch", "HEAD")
	require.Error(t, err)
}

func TestDiffSinceBranchIncludesCommitsAndWorktree(t *testing.T) {
	requireGit(t)
	dir, first, _ := initTestRepo(t)
	branchAt(t, dir, "release", first)
	client := NewClient(nil)

	writeFile(t, dir, "main.go", "package main\n\nfunc main() { println(1) }\n")

	diff, err := client.DiffSinceBranch(context.Background(), dir, "release")
	require.NoError(t, err)
	assert.Contains(t, diff, "+func main() { println(1) }")
}

func TestDiffAgainstRefSeesWorktreeChanges(t *testing.T) {
	requireGit(t)
	dir, _, _ := initTestRepo(t)
	client := NewClient(nil)

	writeFile(t, dir, "main.go", "package main\n\nfunc main() { println(1) }\n")

	diff, err := client.DiffAgainstRef(context.Background(), dir, "HEAD")
	require.NoError(t, err)
	assert.Contains(t, diff, "+func main() { println(1) }")
}

func TestStagedDiffOnlySeesIndex(t *testing.T) {
	requireGit(t)
	dir, _, _ := initTestRepo(t)
	client := NewClient(nil)

	diff, err := client.StagedDiff(context.Background(), dir)
	require.NoError(t, err)
	assert.Empty(t, diff)
}

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git is not installed")
	}
}
