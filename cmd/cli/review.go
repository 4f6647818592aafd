package main

import (
	"fmt"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sevigo/diff-scout/internal/config"
	"github.com/sevigo/diff-scout/internal/core"
	"github.com/sevigo/diff-scout/internal/github"
	"github.com/sevigo/diff-scout/internal/gitutil"
)

var (
	reviewPost    bool
	reviewContext string
)

// Color definitions
var (
	titleColor   = color.New(color.FgCyan, color.Bold)
	successColor = color.New(color.FgGreen)
	errorColor   = color.New(color.FgRed)
	dimColor     = color.New(color.FgHiBlack)
)

var reviewCmd = &cobra.Command{
	Use:   "review [pr-url]",
	Short: "Review a GitHub pull request",
	Long: `Review a GitHub pull request.

The review command fetches the PR diff with a personal access token, asks the
configured language model for a review, and prints the result. With --post the
review comment is posted back to the pull request.

Examples:
  scout review https://github.com/owner/repo/pull/123
  scout review --post https://github.com/owner/repo/pull/123`,
	Args: cobra.ExactArgs(1),
	RunE: runReview,
}

func init() { //nolint:gochecknoinits // Cobra command registration
	reviewCmd.Flags().BoolVar(&reviewPost, "post", false, "Post the review comment to the pull request")
	reviewCmd.Flags().StringVar(&reviewContext, "context", "", "Extra context handed to the model alongside the diff")
	rootCmd.AddCommand(reviewCmd)
}

// stepTimer tracks timing for verbose output
type stepTimer struct {
	stepNum    int
	totalSteps int
	start      time.Time
	verbose    bool
}

func newStepTimer(totalSteps int, verbose bool) *stepTimer {
	return &stepTimer{
		stepNum:    0,
		totalSteps: totalSteps,
		verbose:    verbose,
	}
}

func (t *stepTimer) step(name string) {
	t.stepNum++
	t.start = time.Now()
	if t.verbose {
		titleColor.Printf("\n🔧 Step %d/%d: %s...\n", t.stepNum, t.totalSteps, name)
	} else {
		dimColor.Printf("%s...\n", name)
	}
}

func (t *stepTimer) done(details ...string) {
	if t.verbose {
		elapsed := time.Since(t.start).Round(time.Millisecond)
		successColor.Printf("   ✓ Done (%s)\n", elapsed)
		for _, d := range details {
			dimColor.Printf("   └── %s\n", d)
		}
	}
}

func (t *stepTimer) info(format string, args ...any) {
	if t.verbose {
		dimColor.Printf("   ├── "+format+"\n", args...)
	}
}

func runReview(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	prURL := args[0]

	timer := newStepTimer(4, verbose)
	overallStart := time.Now()

	titleColor.Println("🔍 Diff Scout - PR Review")
	dimColor.Printf("   Target: %s\n\n", prURL)

	// 1. Configuration
	timer.step("Loading configuration")
	cfg, err := config.LoadCLIConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.GitHubToken == "" {
		return fmt.Errorf("GITHUB_TOKEN is not set\n\nTip: Set the GITHUB_TOKEN environment variable or pass --github-token")
	}
	log := cliLogger(cfg)
	timer.info("Provider: %s (%s)", cfg.LLMProvider, cfg.LLMModel)
	timer.done()

	// 2. Pull request metadata
	timer.step("Fetching pull request")
	owner, repoName, prNumber, err := gitutil.ParsePullRequestURL(prURL)
	if err != nil {
		return fmt.Errorf("invalid PR URL: %w\n\nExpected format: https://github.com/owner/repo/pull/123", err)
	}

	ghClient := github.NewPATClient(cfg.GitHubToken, log)
	pr, err := ghClient.GetPullRequest(ctx, owner, repoName, prNumber)
	if err != nil {
		return fmt.Errorf("failed to fetch PR: %w\n\nTip: Check that the PR exists and your token has access", err)
	}
	timer.info("PR #%d: %s", prNumber, pr.GetTitle())
	timer.info("Head SHA: %s", shortSHA(pr.GetHead().GetSHA()))
	timer.done()

	event := &core.GitHubEvent{
		RepoOwner:    owner,
		RepoName:     repoName,
		RepoFullName: fmt.Sprintf("%s/%s", owner, repoName),
		PRNumber:     prNumber,
		PRTitle:      pr.GetTitle(),
		PRBody:       pr.GetBody(),
		HeadSHA:      pr.GetHead().GetSHA(),
		Language:     pr.GetBase().GetRepo().GetLanguage(),
	}

	// 3. Diff and repo config
	timer.step("Fetching diff")
	repoCfg, err := ghClient.GetRepoConfig(ctx, owner, repoName, event.HeadSHA)
	if err != nil {
		log.Warn("could not load repository config, using defaults", "error", err)
		repoCfg = core.DefaultRepoConfig()
	}

	diff, err := ghClient.GetPullRequestDiff(ctx, owner, repoName, prNumber)
	if err != nil {
		return fmt.Errorf("failed to fetch diff: %w", err)
	}
	timer.info("Diff size: %d bytes", len(diff))

	var validLines map[string]map[int]struct{}
	if files, ferr := ghClient.GetChangedFiles(ctx, owner, repoName, prNumber); ferr != nil {
		log.Warn("could not list changed files", "error", ferr)
	} else {
		validLines = github.ValidLineMaps(files, log)
	}
	timer.done()

	// 4. Review
	timer.step("Generating review")
	inv, cleanup, err := newInvoker(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	res := inv.Review(ctx, &core.ReviewRequest{
		RepoFullName: event.RepoFullName,
		PRNumber:     prNumber,
		PRTitle:      event.PRTitle,
		PRBody:       event.PRBody,
		Language:     event.Language,
		Diff:         diff,
		Config:       repoCfg,
		Context:      reviewContext,
		ValidLines:   validLines,
	})
	if !res.Success {
		errorColor.Printf("✗ Review failed (%s)\n", res.ErrorKind)
		return fmt.Errorf("review failed: %w", res.Err)
	}
	timer.info("Model: %s, tokens: %d", res.Model, res.TokensUsed)
	timer.done()

	if verbose {
		dimColor.Printf("\n⏱  Total time: %s\n", time.Since(overallStart).Round(time.Millisecond))
	}

	fmt.Println(renderMarkdown(res.Comment))

	if reviewPost {
		sink := github.NewStatusUpdater(ghClient)
		if err := sink.PostReviewComment(ctx, event, res.Comment); err != nil {
			return fmt.Errorf("failed to post review comment: %w", err)
		}
		successColor.Printf("✓ Review comment posted to PR #%d\n", prNumber)
	}
	return nil
}

// renderMarkdown pretty-prints the review for the terminal. On any rendering
// problem the raw Markdown is still usable output.
func renderMarkdown(md string) string {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}
