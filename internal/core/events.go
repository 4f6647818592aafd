// Package core defines the essential interfaces and data structures that form the
// backbone of the application. These components are designed to be abstract,
// allowing for flexible and decoupled implementations of the application's logic.
package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/go-github/v73/github"
)

// ErrNotTriggered marks events that are well formed but simply not review
// triggers: comment edits, comments on plain issues, or bodies without the
// trigger phrase. Callers drop these without any side effect.
var ErrNotTriggered = errors.New("event is not a review trigger")

// GitHubEvent represents a simplified, internal view of a GitHub webhook event.
type GitHubEvent struct {
	// Repository details
	RepoOwner    string
	RepoName     string
	RepoFullName string
	Language     string

	PRNumber int
	PRTitle  string
	PRBody   string
	HeadSHA  string

	Commenter      string
	Trigger        string
	InstallationID int64

	// JobID is assigned by the dispatcher when the event is queued and tags
	// every log record and check run of the invocation.
	JobID string
}

// EventFromIssueComment transforms a raw GitHub IssueCommentEvent into the application's
// internal GitHubEvent representation. It acts as an anti-corruption layer, ensuring
// that the incoming webhook payload is valid and contains all necessary data before
// it's processed by a job. Only newly created comments on pull requests whose body
// contains the trigger phrase qualify; the match is a case-sensitive substring match.
func EventFromIssueComment(event *github.IssueCommentEvent, trigger string) (*GitHubEvent, error) {
	if event.GetAction() != "created" {
		return nil, fmt.Errorf("action %q: %w", event.GetAction(), ErrNotTriggered)
	}

	if !event.GetIssue().IsPullRequest() {
		return nil, fmt.Errorf("comment is not on a pull request: %w", ErrNotTriggered)
	}

	if !strings.Contains(event.GetComment().GetBody(), trigger) {
		return nil, fmt.Errorf("comment does not contain %q: %w", trigger, ErrNotTriggered)
	}

	repo := event.GetRepo()
	if repo == nil || repo.GetOwner() == nil || repo.GetOwner().GetLogin() == "" || repo.GetName() == "" {
		return nil, fmt.Errorf("repository or owner information is missing from the event")
	}

	prNumber := event.GetIssue().GetNumber()
	if prNumber <= 0 {
		return nil, fmt.Errorf("invalid pull request number: %d", prNumber)
	}

	if event.GetComment().GetUser() == nil || event.GetComment().GetUser().GetLogin() == "" {
		return nil, fmt.Errorf("commenter information is missing from the event")
	}

	if event.GetInstallation() == nil || event.GetInstallation().GetID() == 0 {
		return nil, fmt.Errorf("installation ID is missing from the event")
	}

	return &GitHubEvent{
		RepoOwner:      repo.GetOwner().GetLogin(),
		RepoName:       repo.GetName(),
		RepoFullName:   repo.GetFullName(),
		Language:       repo.GetLanguage(),
		InstallationID: event.GetInstallation().GetID(),
		PRNumber:       prNumber,
		PRTitle:        event.GetIssue().GetTitle(),
		PRBody:         event.GetIssue().GetBody(),
		Commenter:      event.GetComment().GetUser().GetLogin(),
		Trigger:        trigger,
	}, nil
}
