package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sevigo/diff-scout/internal/config"
	"github.com/sevigo/diff-scout/internal/core"
	"github.com/sevigo/diff-scout/internal/github"
	"github.com/sevigo/diff-scout/internal/gitutil"
	"github.com/sevigo/diff-scout/internal/llm"
	"github.com/sevigo/diff-scout/internal/logger"
	"github.com/sevigo/diff-scout/internal/review"
)

// session bundles the review pipeline behind the console.
type session struct {
	cfg     *config.Config
	logger  *slog.Logger
	invoker *review.Invoker
	cleanup func()
}

// initSessionCmd builds the LLM client and invoker in the background. Log
// output goes to the log file; stdout belongs to the console.
func initSessionCmd() tea.Cmd {
	return func() tea.Msg {
		cfg, err := config.LoadCLIConfig()
		if err != nil {
			return sessionReadyMsg{err: err}
		}
		log := logger.NewLogger(logger.Config{
			Level:  cfg.LogLevel.String(),
			Format: "text",
			Output: "file",
		}, nil)

		completer, err := llm.New(context.Background(), cfg)
		if err != nil {
			return sessionReadyMsg{err: fmt.Errorf("failed to create LLM client: %w", err)}
		}
		cleanup := func() {
			if closer, ok := completer.(io.Closer); ok {
				_ = closer.Close()
			}
		}

		prompts, err := llm.NewPromptManager()
		if err != nil {
			cleanup()
			return sessionReadyMsg{err: fmt.Errorf("failed to initialize prompt manager: %w", err)}
		}

		return sessionReadyMsg{session: &session{
			cfg:     cfg,
			logger:  log,
			invoker: review.NewInvoker(cfg, completer, prompts, nil, log),
			cleanup: cleanup,
		}}
	}
}

// reviewPRCmd fetches and reviews a pull request by URL.
func reviewPRCmd(s *session, prURL string) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()

		owner, repoName, prNumber, err := gitutil.ParsePullRequestURL(prURL)
		if err != nil {
			return errorMsg{fmt.Errorf("invalid PR URL: %w", err)}
		}
		if s.cfg.GitHubToken == "" {
			return errorMsg{errors.New("GITHUB_TOKEN is not set; it is required for PR review")}
		}

		ghClient := github.NewPATClient(s.cfg.GitHubToken, s.logger)
		pr, err := ghClient.GetPullRequest(ctx, owner, repoName, prNumber)
		if err != nil {
			return errorMsg{fmt.Errorf("failed to fetch PR: %w", err)}
		}

		repoCfg, err := ghClient.GetRepoConfig(ctx, owner, repoName, pr.GetHead().GetSHA())
		if err != nil {
			repoCfg = core.DefaultRepoConfig()
		}
		diff, err := ghClient.GetPullRequestDiff(ctx, owner, repoName, prNumber)
		if err != nil {
			return errorMsg{fmt.Errorf("failed to fetch diff: %w", err)}
		}
		var validLines map[string]map[int]struct{}
		if files, ferr := ghClient.GetChangedFiles(ctx, owner, repoName, prNumber); ferr == nil {
			validLines = github.ValidLineMaps(files, s.logger)
		}

		res := s.invoker.Review(ctx, &core.ReviewRequest{
			RepoFullName: fmt.Sprintf("%s/%s", owner, repoName),
			PRNumber:     prNumber,
			PRTitle:      pr.GetTitle(),
			PRBody:       pr.GetBody(),
			Language:     pr.GetBase().GetRepo().GetLanguage(),
			Diff:         diff,
			Config:       repoCfg,
			ValidLines:   validLines,
		})
		return reviewDoneMsg{target: prURL, res: res}
	}
}

// reviewLocalCmd reviews a local repository: the index with staged true, or
// the working tree against the merge base with baseBranch.
func reviewLocalCmd(s *session, repoPath, baseBranch string, staged bool) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		git := gitutil.NewClient(s.logger)

		var (
			diff   string
			target string
			err    error
		)
		if staged {
			diff, err = git.StagedDiff(ctx, repoPath)
			target = repoPath + " (staged)"
		} else {
			diff, err = git.DiffSinceBranch(ctx, repoPath, baseBranch)
			target = fmt.Sprintf("%s (since %s)", repoPath, baseBranch)
		}
		if err != nil {
			return errorMsg{err}
		}

		repoCfg, err := config.LoadRepoConfig(repoPath)
		if err != nil {
			repoCfg = core.DefaultRepoConfig()
		}

		res := s.invoker.Review(ctx, &core.ReviewRequest{
			RepoFullName: repoPath,
			Diff:         diff,
			Config:       repoCfg,
		})
		return reviewDoneMsg{target: target, res: res}
	}
}
