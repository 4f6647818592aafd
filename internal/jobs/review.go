package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sevigo/diff-scout/internal/config"
	"github.com/sevigo/diff-scout/internal/core"
	"github.com/sevigo/diff-scout/internal/github"
	"github.com/sevigo/diff-scout/internal/review"
)

// clientFactory mints a GitHub client for one installation.
type clientFactory func(ctx context.Context, cfg *config.Config, installationID int64, logger *slog.Logger) (github.Client, error)

// ReviewJob is a background job that reviews one pull request: it
// authenticates as the App installation, resolves the head commit, tracks
// progress through a check run and drives the review invocation.
type ReviewJob struct {
	cfg       *config.Config
	invoker   *review.Invoker
	logger    *slog.Logger
	newClient clientFactory
}

// NewReviewJob creates a new ReviewJob with config, review invoker, and logger.
func NewReviewJob(cfg *config.Config, invoker *review.Invoker, logger *slog.Logger) core.Job {
	if cfg == nil {
		panic("config cannot be nil")
	}
	if invoker == nil {
		panic("invoker cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &ReviewJob{
		cfg:       cfg,
		invoker:   invoker,
		logger:    logger,
		newClient: github.CreateInstallationClient,
	}
}

// Run executes the review job for a given GitHub event.
func (j *ReviewJob) Run(ctx context.Context, event *core.GitHubEvent) error {
	if err := j.validateInputs(ctx, event); err != nil {
		j.logger.Error("input validation failed", "error", err)
		return fmt.Errorf("input validation failed: %w", err)
	}

	logger := j.logger.With("repo", event.RepoFullName, "pr", event.PRNumber, "job_id", event.JobID)
	logger.Info("starting review job")

	ghClient, err := j.newClient(ctx, j.cfg, event.InstallationID, j.logger)
	if err != nil {
		logger.Error("failed to create GitHub client", "error", err)
		return fmt.Errorf("failed to create GitHub client: %w", err)
	}

	pr, err := ghClient.GetPullRequest(ctx, event.RepoOwner, event.RepoName, event.PRNumber)
	if err != nil {
		logger.Error("failed to get PR details", "error", err)
		return fmt.Errorf("failed to get PR details: %w", err)
	}
	if pr.GetHead() == nil || pr.GetHead().GetSHA() == "" {
		return fmt.Errorf("PR %d has no valid head SHA", event.PRNumber)
	}
	event.HeadSHA = pr.GetHead().GetSHA()
	if event.PRBody == "" {
		event.PRBody = pr.GetBody()
	}

	statusUpdater := github.NewStatusUpdater(ghClient)
	checkRunID, err := statusUpdater.InProgress(ctx, event, github.CheckRunName, "Reviewing the pull request diff...")
	if err != nil {
		logger.Error("failed to set in-progress status", "error", err)
		return fmt.Errorf("failed to set in-progress status: %w", err)
	}

	res := j.invoker.Run(ctx, event, ghClient, statusUpdater)
	if !res.Success {
		j.updateStatusOnError(ctx, statusUpdater, event, checkRunID, failureSummary(res))
		return fmt.Errorf("review failed in phase %s: %w", res.Phase, res.Err)
	}

	conclusion, title, summary := "success", "Review Complete", "The review comment has been posted."
	if res.ErrorKind == core.KindEmptyDiff {
		conclusion, title, summary = "neutral", "Nothing to Review", "The pull request has no reviewable changes."
	}
	if err := statusUpdater.Completed(ctx, event, checkRunID, conclusion, title, summary); err != nil {
		logger.Error("failed to update completion status", "error", err)
		return fmt.Errorf("failed to update completion status: %w", err)
	}

	logger.Info("review job completed successfully")
	return nil
}

// validateInputs ensures the event contains all required fields.
func (j *ReviewJob) validateInputs(ctx context.Context, event *core.GitHubEvent) error {
	if ctx == nil {
		return fmt.Errorf("context cannot be nil")
	}
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}
	if event.RepoOwner == "" {
		return fmt.Errorf("repository owner cannot be empty")
	}
	if event.RepoName == "" {
		return fmt.Errorf("repository name cannot be empty")
	}
	if event.RepoFullName == "" {
		return fmt.Errorf("repository full name cannot be empty")
	}
	if event.PRNumber <= 0 {
		return fmt.Errorf("pull request number must be positive, got: %d", event.PRNumber)
	}
	if event.InstallationID <= 0 {
		return fmt.Errorf("installation ID must be positive, got: %d", event.InstallationID)
	}
	return nil
}

// failureSummary condenses a failed result into the check run output line.
func failureSummary(res *core.ReviewResult) string {
	switch res.ErrorKind {
	case core.KindConfiguration:
		return "The reviewer is not configured correctly."
	case core.KindUpstream:
		return "The language model could not be reached."
	case core.KindPost:
		return "The review could not be posted back to the pull request."
	default:
		return "The review did not complete."
	}
}

// updateStatusOnError sends a failure status to GitHub Check Runs.
func (j *ReviewJob) updateStatusOnError(ctx context.Context, statusUpdater github.StatusUpdater, event *core.GitHubEvent, checkRunID int64, message string) {
	if err := statusUpdater.Completed(ctx, event, checkRunID, "failure", "Review Failed", message); err != nil {
		j.logger.Error("failed to update failure status", "error", err)
	}
}
