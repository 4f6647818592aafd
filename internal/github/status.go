package github

import (
	"context"
	"fmt"
	"time"

	"github.com/google/go-github/v73/github"

	"github.com/sevigo/diff-scout/internal/core"
)

// CheckRunName labels the check run attached to reviewed pull requests.
const CheckRunName = "Diff Scout Review"

// StatusUpdater defines the contract for updating the status of a GitHub Check Run
// and posting comments on pull requests.
type StatusUpdater interface {
	InProgress(ctx context.Context, event *core.GitHubEvent, title, summary string) (int64, error)
	Completed(ctx context.Context, event *core.GitHubEvent, checkRunID int64, conclusion, title, summary string) error

	// PostReviewComment writes the invocation's result comment. A failed
	// write is retried exactly once; the error returned after that carries
	// the post_error kind.
	PostReviewComment(ctx context.Context, event *core.GitHubEvent, body string) error

	// PostSimpleComment writes a best-effort notice with a single attempt.
	PostSimpleComment(ctx context.Context, event *core.GitHubEvent, body string) error
}

type statusUpdater struct {
	client Client
}

// NewStatusUpdater creates and returns a new instance of a statusUpdater.
func NewStatusUpdater(client Client) StatusUpdater {
	return &statusUpdater{client: client}
}

// InProgress creates a new GitHub Check Run with an "in_progress" status.
func (s *statusUpdater) InProgress(ctx context.Context, event *core.GitHubEvent, title, summary string) (int64, error) {
	opts := github.CreateCheckRunOptions{
		Name:    CheckRunName,
		HeadSHA: event.HeadSHA,
		Status:  github.Ptr("in_progress"),
		Output: &github.CheckRunOutput{
			Title:   &title,
			Summary: &summary,
		},
	}
	if event.JobID != "" {
		opts.ExternalID = github.Ptr(event.JobID)
	}
	checkRun, err := s.client.CreateCheckRun(ctx, event.RepoOwner, event.RepoName, opts)
	if err != nil {
		return 0, fmt.Errorf("failed to create check run: %w", err)
	}
	return checkRun.GetID(), nil
}

// Completed updates an existing GitHub Check Run to a "completed" status.
func (s *statusUpdater) Completed(ctx context.Context, event *core.GitHubEvent, checkRunID int64, conclusion, title, summary string) error {
	now := time.Now()
	opts := github.UpdateCheckRunOptions{
		Name:        CheckRunName,
		Status:      github.Ptr("completed"),
		Conclusion:  &conclusion,
		CompletedAt: &github.Timestamp{Time: now},
		Output: &github.CheckRunOutput{
			Title:   &title,
			Summary: &summary,
		},
	}
	_, err := s.client.UpdateCheckRun(ctx, event.RepoOwner, event.RepoName, checkRunID, opts)
	return err
}

// PostReviewComment posts the result comment, retrying once on failure.
func (s *statusUpdater) PostReviewComment(ctx context.Context, event *core.GitHubEvent, body string) error {
	err := s.client.CreateComment(ctx, event.RepoOwner, event.RepoName, event.PRNumber, body)
	if err == nil {
		return nil
	}

	if err = s.client.CreateComment(ctx, event.RepoOwner, event.RepoName, event.PRNumber, body); err != nil {
		return core.PostError(fmt.Errorf("posting review comment after retry: %w", err))
	}
	return nil
}

// PostSimpleComment posts a single, general comment on the pull request.
func (s *statusUpdater) PostSimpleComment(ctx context.Context, event *core.GitHubEvent, body string) error {
	return s.client.CreateComment(ctx, event.RepoOwner, event.RepoName, event.PRNumber, body)
}
