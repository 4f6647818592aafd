// Package review implements the review invocation flow: fetch the pull
// request diff, fit it into the prompt budget, call the language model and
// render the result as a comment.
package review

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/sevigo/diff-scout/internal/config"
	"github.com/sevigo/diff-scout/internal/core"
	"github.com/sevigo/diff-scout/internal/github"
	"github.com/sevigo/diff-scout/internal/llm"
	"github.com/sevigo/diff-scout/internal/metrics"
)

// DiffSource is the forge subset the invoker reads from.
type DiffSource interface {
	GetPullRequestDiff(ctx context.Context, owner, repo string, number int) (string, error)
	GetChangedFiles(ctx context.Context, owner, repo string, number int) ([]github.ChangedFile, error)
	GetRepoConfig(ctx context.Context, owner, repo, ref string) (*core.RepoConfig, error)
}

// CommentSink posts review output back to the pull request.
type CommentSink interface {
	PostReviewComment(ctx context.Context, event *core.GitHubEvent, body string) error
	PostSimpleComment(ctx context.Context, event *core.GitHubEvent, body string) error
}

// Invoker runs one review invocation end to end. It holds no per-invocation
// state; a single Invoker serves concurrent invocations.
type Invoker struct {
	cfg       *config.Config
	completer llm.Completer
	prompts   *llm.PromptManager
	recorder  *metrics.Recorder
	logger    *slog.Logger
}

// NewInvoker wires the invoker. recorder may be nil for one-shot runs.
func NewInvoker(cfg *config.Config, completer llm.Completer, prompts *llm.PromptManager, recorder *metrics.Recorder, logger *slog.Logger) *Invoker {
	if cfg == nil {
		panic("config cannot be nil")
	}
	if completer == nil {
		panic("completer cannot be nil")
	}
	if prompts == nil {
		panic("prompt manager cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &Invoker{cfg: cfg, completer: completer, prompts: prompts, recorder: recorder, logger: logger}
}

// Run executes the full invocation for a triggered event: fetch, review,
// post. It always returns a result; Success and ErrorKind carry the outcome,
// and exactly one structured record is logged per call.
func (inv *Invoker) Run(ctx context.Context, event *core.GitHubEvent, src DiffSource, sink CommentSink) *core.ReviewResult {
	start := time.Now()
	res := inv.run(ctx, event, src, sink)
	res.Latency = time.Since(start)

	inv.logOutcome(event, res)
	inv.recorder.ObserveReview(outcomeOf(res), res.Latency, res.TokensUsed)
	return res
}

func (inv *Invoker) run(ctx context.Context, event *core.GitHubEvent, src DiffSource, sink CommentSink) *core.ReviewResult {
	logger := inv.logger.With("repo", event.RepoFullName, "pr", event.PRNumber)

	// The credential must be checked before the first network call.
	if err := inv.credentialCheck(); err != nil {
		return failedResult(core.PhaseTriggered, err)
	}

	repoCfg, err := src.GetRepoConfig(ctx, event.RepoOwner, event.RepoName, event.HeadSHA)
	if err != nil {
		logger.Warn("could not load repository config, using defaults", "error", err)
		repoCfg = core.DefaultRepoConfig()
	}

	logger.Debug("fetching pull request diff", "head_sha", event.HeadSHA)
	diff, err := src.GetPullRequestDiff(ctx, event.RepoOwner, event.RepoName, event.PRNumber)
	if err != nil {
		res := failedResult(core.PhaseFetching, core.UpstreamError(err, false))
		inv.postFailureNotice(ctx, event, sink, res, logger)
		return res
	}

	// Without the file list findings lose their anchors but the review can
	// still run.
	var validLines map[string]map[int]struct{}
	files, err := src.GetChangedFiles(ctx, event.RepoOwner, event.RepoName, event.PRNumber)
	if err != nil {
		logger.Warn("could not list changed files", "error", err)
	} else {
		validLines = github.ValidLineMaps(files, logger)
	}

	req := &core.ReviewRequest{
		RepoFullName: event.RepoFullName,
		PRNumber:     event.PRNumber,
		PRTitle:      event.PRTitle,
		PRBody:       event.PRBody,
		Language:     event.Language,
		Commenter:    event.Commenter,
		Trigger:      event.Trigger,
		Diff:         diff,
		Config:       repoCfg,
		ValidLines:   validLines,
	}

	res := inv.Review(ctx, req)
	if !res.Success {
		inv.postFailureNotice(ctx, event, sink, res, logger)
		return res
	}

	res.Phase = core.PhasePosting
	logger.Debug("posting review comment", "bytes", len(res.Comment))
	if err := sink.PostReviewComment(ctx, event, res.Comment); err != nil {
		if core.KindOf(err) == "" {
			err = core.PostError(err)
		}
		res.Success = false
		res.ErrorKind = core.KindOf(err)
		res.Err = err
		return res
	}

	res.Phase = core.PhaseDone
	return res
}

// Review turns a prepared request into a result: precondition checks, prompt
// budget, one model call with bounded retries, parse and render. It posts
// nothing.
func (inv *Invoker) Review(ctx context.Context, req *core.ReviewRequest) *core.ReviewResult {
	start := time.Now()

	if err := inv.credentialCheck(); err != nil {
		return failedResult(core.PhaseTriggered, err)
	}

	model := inv.completer.Model()
	if strings.TrimSpace(req.Diff) == "" {
		return neutralResult(model, start)
	}

	trim := TrimDiff(req.Diff, req.Config, inv.cfg.MaxDiffBytes)
	if strings.TrimSpace(trim.Diff) == "" {
		// Everything the diff touched is excluded by the repo config.
		return neutralResult(model, start)
	}

	provider := llm.ModelProvider(inv.completer.Name())
	system, err := inv.prompts.Render(llm.SystemPromptKey, provider, nil)
	if err != nil {
		return failedResult(core.PhaseRequesting, core.ConfigurationError(err))
	}
	prompt, err := inv.prompts.Render(llm.CodeReviewPrompt, provider, promptData{
		Language:     req.Language,
		Title:        req.PRTitle,
		Body:         req.PRBody,
		Instructions: instructionsOf(req.Config),
		Context:      req.Context,
		Diff:         trim.Diff,
	})
	if err != nil {
		return failedResult(core.PhaseRequesting, core.ConfigurationError(err))
	}

	inv.logger.Debug("requesting completion", "repo", req.RepoFullName, "pr", req.PRNumber, "model", model, "diff_bytes", len(trim.Diff))
	var resp llm.CompletionResponse
	err = llm.RetryWithBackoff(ctx, inv.cfg.LLMMaxRetries, inv.cfg.LLMRetryWait, func() error {
		callCtx, cancel := context.WithTimeout(ctx, inv.cfg.LLMTimeout)
		defer cancel()

		var callErr error
		resp, callErr = inv.completer.Complete(callCtx, llm.CompletionRequest{
			System:      system,
			Prompt:      prompt,
			MaxTokens:   inv.cfg.MaxTokens,
			Temperature: inv.cfg.LLMTemperature,
		})
		return callErr
	})
	if err != nil {
		if core.KindOf(err) == "" {
			err = core.UpstreamError(err, false)
		}
		res := failedResult(core.PhaseRequesting, err)
		res.Model = model
		res.Latency = time.Since(start)
		return res
	}

	opts := CommentOptions{
		Model:      model,
		Truncated:  trim.Truncated,
		Omitted:    trim.Omitted,
		ValidLines: req.ValidLines,
	}

	var comment string
	parsed, perr := llm.ParseReview(resp.Content)
	if perr != nil {
		// The completion succeeded; post the raw text rather than losing it.
		inv.logger.Warn("model output did not parse, posting raw review",
			"repo", req.RepoFullName, "pr", req.PRNumber, "error", perr)
		comment = RawComment(resp.Content, opts)
	} else {
		comment = RenderComment(parsed, opts)
	}

	return &core.ReviewResult{
		Comment:    comment,
		Success:    true,
		Truncated:  trim.Truncated,
		Model:      model,
		TokensUsed: resp.TokensUsed,
		Phase:      core.PhaseDone,
		Latency:    time.Since(start),
	}
}

// postFailureNotice writes the single best-effort failure comment. A
// configuration failure posts nothing, and a notice that cannot be posted is
// only logged.
func (inv *Invoker) postFailureNotice(ctx context.Context, event *core.GitHubEvent, sink CommentSink, res *core.ReviewResult, logger *slog.Logger) {
	if res.ErrorKind == core.KindConfiguration {
		return
	}
	if err := sink.PostSimpleComment(ctx, event, FailureComment(res.ErrorKind)); err != nil {
		logger.Warn("could not post failure notice", "error", err)
	}
}

func (inv *Invoker) credentialCheck() error {
	var missing string
	switch inv.cfg.LLMProvider {
	case "anthropic":
		if inv.cfg.AnthropicAPIKey == "" {
			missing = "ANTHROPIC_API_KEY"
		}
	case "openai":
		if inv.cfg.OpenAIAPIKey == "" {
			missing = "OPENAI_API_KEY"
		}
	case "gemini", "google":
		if inv.cfg.GeminiAPIKey == "" {
			missing = "GEMINI_API_KEY"
		}
	}
	if missing == "" {
		return nil
	}
	return core.ConfigurationError(errors.New(missing + " is not configured"))
}

// logOutcome emits the one structured record every invocation produces.
func (inv *Invoker) logOutcome(event *core.GitHubEvent, res *core.ReviewResult) {
	args := []any{
		"repo", event.RepoFullName,
		"pr", event.PRNumber,
		"outcome", outcomeOf(res),
		"latency_ms", res.Latency.Milliseconds(),
		"phase", string(res.Phase),
		"model", res.Model,
		"tokens", res.TokensUsed,
	}
	if event.JobID != "" {
		args = append(args, "job_id", event.JobID)
	}
	if res.Truncated {
		args = append(args, "truncated", true)
	}
	if !res.Success {
		args = append(args, "error_kind", string(res.ErrorKind), "error", res.Err)
		inv.logger.Error("review invocation failed", args...)
		return
	}
	inv.logger.Info("review invocation finished", args...)
}

// outcomeOf collapses a result into the label used for logs and metrics.
func outcomeOf(res *core.ReviewResult) string {
	switch {
	case res.ErrorKind == core.KindEmptyDiff:
		return "empty_diff"
	case res.Success:
		return "success"
	case res.ErrorKind != "":
		return string(res.ErrorKind)
	default:
		return "failed"
	}
}

func failedResult(phase core.Phase, err error) *core.ReviewResult {
	return &core.ReviewResult{
		Success:   false,
		ErrorKind: core.KindOf(err),
		Err:       err,
		Phase:     phase,
	}
}

// neutralResult short-circuits an invocation with nothing to review. Not a
// failure: the neutral comment is the result.
func neutralResult(model string, start time.Time) *core.ReviewResult {
	return &core.ReviewResult{
		Comment:   NeutralComment(),
		Success:   true,
		ErrorKind: core.KindEmptyDiff,
		Model:     model,
		Phase:     core.PhaseDone,
		Latency:   time.Since(start),
	}
}

func instructionsOf(cfg *core.RepoConfig) string {
	if cfg == nil {
		return ""
	}
	return strings.Join(cfg.CustomInstructions, "\n")
}

// promptData feeds the code review prompt template.
type promptData struct {
	Language     string
	Title        string
	Body         string
	Instructions string
	Context      string
	Diff         string
}
