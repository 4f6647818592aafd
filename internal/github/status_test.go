package github

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-github/v73/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/diff-scout/internal/core"
)

type stubClient struct {
	createCheckRunOpts github.CreateCheckRunOptions
	updateCheckRunOpts github.UpdateCheckRunOptions

	commentCalls  int
	commentBodies []string
	commentErrs   []error
}

func (s *stubClient) GetPullRequest(context.Context, string, string, int) (*github.PullRequest, error) {
	return nil, nil
}

func (s *stubClient) GetPullRequestDiff(context.Context, string, string, int) (string, error) {
	return "", nil
}

func (s *stubClient) GetChangedFiles(context.Context, string, string, int) ([]ChangedFile, error) {
	return nil, nil
}

func (s *stubClient) GetRepoConfig(context.Context, string, string, string) (*core.RepoConfig, error) {
	return core.DefaultRepoConfig(), nil
}

func (s *stubClient) CreateComment(_ context.Context, _, _ string, _ int, body string) error {
	s.commentBodies = append(s.commentBodies, body)
	var err error
	if s.commentCalls < len(s.commentErrs) {
		err = s.commentErrs[s.commentCalls]
	}
	s.commentCalls++
	return err
}

func (s *stubClient) CreateCheckRun(_ context.Context, _, _ string, opts github.CreateCheckRunOptions) (*github.CheckRun, error) {
	s.createCheckRunOpts = opts
	return &github.CheckRun{ID: github.Ptr(int64(77))}, nil
}

func (s *stubClient) UpdateCheckRun(_ context.Context, _, _ string, _ int64, opts github.UpdateCheckRunOptions) (*github.CheckRun, error) {
	s.updateCheckRunOpts = opts
	return &github.CheckRun{}, nil
}

func testEvent() *core.GitHubEvent {
	return &core.GitHubEvent{
		RepoOwner:    "acme",
		RepoName:     "rocket",
		RepoFullName: "acme/rocket",
		PRNumber:     42,
		HeadSHA:      "abc1234def",
		JobID:        "01J5W9GZ8LG0EXAMPLE0000000",
	}
}

func TestStatusUpdaterInProgress(t *testing.T) {
	stub := &stubClient{}
	updater := NewStatusUpdater(stub)

	id, err := updater.InProgress(context.Background(), testEvent(), "Review", "Analysis in progress")
	require.NoError(t, err)
	assert.Equal(t, int64(77), id)

	opts := stub.createCheckRunOpts
	assert.Equal(t, CheckRunName, opts.Name)
	assert.Equal(t, "abc1234def", opts.HeadSHA)
	assert.Equal(t, "in_progress", opts.GetStatus())
	assert.Equal(t, "01J5W9GZ8LG0EXAMPLE0000000", opts.GetExternalID())
}

func TestStatusUpdaterCompleted(t *testing.T) {
	stub := &stubClient{}
	updater := NewStatusUpdater(stub)

	err := updater.Completed(context.Background(), testEvent(), 77, "success", "Review Complete", "done")
	require.NoError(t, err)

	opts := stub.updateCheckRunOpts
	assert.Equal(t, "completed", opts.GetStatus())
	assert.Equal(t, "success", opts.GetConclusion())
	require.NotNil(t, opts.CompletedAt)
}

func TestPostReviewCommentRetry(t *testing.T) {
	t.Run("first attempt succeeds", func(t *testing.T) {
		stub := &stubClient{}
		updater := NewStatusUpdater(stub)

		err := updater.PostReviewComment(context.Background(), testEvent(), "looks good")
		require.NoError(t, err)
		assert.Equal(t, 1, stub.commentCalls)
	})

	t.Run("retry succeeds after one failure", func(t *testing.T) {
		stub := &stubClient{commentErrs: []error{errors.New("502")}}
		updater := NewStatusUpdater(stub)

		err := updater.PostReviewComment(context.Background(), testEvent(), "looks good")
		require.NoError(t, err)
		assert.Equal(t, 2, stub.commentCalls)
	})

	t.Run("both attempts fail", func(t *testing.T) {
		stub := &stubClient{commentErrs: []error{errors.New("502"), errors.New("502")}}
		updater := NewStatusUpdater(stub)

		err := updater.PostReviewComment(context.Background(), testEvent(), "looks good")
		require.Error(t, err)
		assert.Equal(t, core.KindPost, core.KindOf(err))
		assert.Equal(t, 2, stub.commentCalls)
	})
}

func TestPostSimpleCommentSingleAttempt(t *testing.T) {
	stub := &stubClient{commentErrs: []error{errors.New("503")}}
	updater := NewStatusUpdater(stub)

	err := updater.PostSimpleComment(context.Background(), testEvent(), "notice")
	require.Error(t, err)
	assert.Equal(t, 1, stub.commentCalls)
}
