package jobs

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	gh "github.com/google/go-github/v73/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/sevigo/diff-scout/internal/config"
	"github.com/sevigo/diff-scout/internal/core"
	"github.com/sevigo/diff-scout/internal/github"
	"github.com/sevigo/diff-scout/internal/llm"
	"github.com/sevigo/diff-scout/internal/review"
	"github.com/sevigo/diff-scout/mocks"
)

const jobsSampleDiff = `diff --git a/main.go b/main.go
--- a/main.go
+++ b/main.go
@@ -1,2 +1,3 @@
 package main
+
 func main() {}
`

const jobsModelReply = `# SUMMARY
Trivial change.

# VERDICT
approve
`

type stubCompleter struct {
	content string
	err     error
	calls   int
}

func (s *stubCompleter) Complete(context.Context, llm.CompletionRequest) (llm.CompletionResponse, error) {
	s.calls++
	if s.err != nil {
		return llm.CompletionResponse{}, s.err
	}
	return llm.CompletionResponse{Content: s.content, TokensUsed: 10}, nil
}

func (s *stubCompleter) Name() string  { return "ollama" }
func (s *stubCompleter) Model() string { return "test-model" }

func jobsTestConfig() *config.Config {
	return &config.Config{
		LLMProvider:   "ollama",
		LLMModel:      "test-model",
		LLMTimeout:    5 * time.Second,
		LLMMaxRetries: 2,
		LLMRetryWait:  time.Millisecond,
		MaxTokens:     500,
		MaxDiffBytes:  100000,
	}
}

func jobsTestEvent() *core.GitHubEvent {
	return &core.GitHubEvent{
		RepoOwner:      "sevigo",
		RepoName:       "demo",
		RepoFullName:   "sevigo/demo",
		PRNumber:       7,
		InstallationID: 99,
		JobID:          "job-1",
	}
}

func newTestReviewJob(t *testing.T, completer llm.Completer, client github.Client) *ReviewJob {
	t.Helper()
	prompts, err := llm.NewPromptManager()
	require.NoError(t, err)
	cfg := jobsTestConfig()
	invoker := review.NewInvoker(cfg, completer, prompts, nil, discardLogger())
	return &ReviewJob{
		cfg:     cfg,
		invoker: invoker,
		logger:  discardLogger(),
		newClient: func(context.Context, *config.Config, int64, *slog.Logger) (github.Client, error) {
			return client, nil
		},
	}
}

func TestReviewJobRunSuccess(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)

	pr := &gh.PullRequest{
		Head: &gh.PullRequestBranch{SHA: gh.Ptr("headsha123")},
		Body: gh.Ptr("Adds an entry point."),
	}
	client.EXPECT().GetPullRequest(gomock.Any(), "sevigo", "demo", 7).Return(pr, nil)
	client.EXPECT().CreateCheckRun(gomock.Any(), "sevigo", "demo", gomock.Any()).
		Return(&gh.CheckRun{ID: gh.Ptr(int64(55))}, nil)
	client.EXPECT().GetRepoConfig(gomock.Any(), "sevigo", "demo", "headsha123").
		Return(core.DefaultRepoConfig(), nil)
	client.EXPECT().GetPullRequestDiff(gomock.Any(), "sevigo", "demo", 7).Return(jobsSampleDiff, nil)
	client.EXPECT().GetChangedFiles(gomock.Any(), "sevigo", "demo", 7).
		Return([]github.ChangedFile{{Filename: "main.go", Patch: "@@ -1,2 +1,3 @@\n package main\n+\n func main() {}"}}, nil)

	var postedBody string
	client.EXPECT().CreateComment(gomock.Any(), "sevigo", "demo", 7, gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _ string, _ int, body string) error {
			postedBody = body
			return nil
		})

	var conclusion string
	client.EXPECT().UpdateCheckRun(gomock.Any(), "sevigo", "demo", int64(55), gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _ string, _ int64, opts gh.UpdateCheckRunOptions) (*gh.CheckRun, error) {
			conclusion = opts.GetConclusion()
			return &gh.CheckRun{}, nil
		})

	job := newTestReviewJob(t, &stubCompleter{content: jobsModelReply}, client)
	event := jobsTestEvent()

	err := job.Run(context.Background(), event)
	require.NoError(t, err)

	assert.Equal(t, "headsha123", event.HeadSHA)
	assert.Equal(t, "Adds an entry point.", event.PRBody)
	assert.Equal(t, "success", conclusion)
	assert.Contains(t, postedBody, "Verdict: approve")
}

func TestReviewJobRunEmptyDiffConcludesNeutral(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)

	pr := &gh.PullRequest{Head: &gh.PullRequestBranch{SHA: gh.Ptr("headsha123")}}
	client.EXPECT().GetPullRequest(gomock.Any(), "sevigo", "demo", 7).Return(pr, nil)
	client.EXPECT().CreateCheckRun(gomock.Any(), "sevigo", "demo", gomock.Any()).
		Return(&gh.CheckRun{ID: gh.Ptr(int64(55))}, nil)
	client.EXPECT().GetRepoConfig(gomock.Any(), "sevigo", "demo", "headsha123").
		Return(core.DefaultRepoConfig(), nil)
	client.EXPECT().GetPullRequestDiff(gomock.Any(), "sevigo", "demo", 7).Return("", nil)
	client.EXPECT().GetChangedFiles(gomock.Any(), "sevigo", "demo", 7).Return(nil, nil)

	var postedBody string
	client.EXPECT().CreateComment(gomock.Any(), "sevigo", "demo", 7, gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _ string, _ int, body string) error {
			postedBody = body
			return nil
		})

	var conclusion string
	client.EXPECT().UpdateCheckRun(gomock.Any(), "sevigo", "demo", int64(55), gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _ string, _ int64, opts gh.UpdateCheckRunOptions) (*gh.CheckRun, error) {
			conclusion = opts.GetConclusion()
			return &gh.CheckRun{}, nil
		})

	completer := &stubCompleter{content: jobsModelReply}
	job := newTestReviewJob(t, completer, client)

	err := job.Run(context.Background(), jobsTestEvent())
	require.NoError(t, err)

	assert.Equal(t, 0, completer.calls)
	assert.Equal(t, "neutral", conclusion)
	assert.Contains(t, postedBody, "no reviewable changes")
}

func TestReviewJobRunUpstreamFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)

	pr := &gh.PullRequest{Head: &gh.PullRequestBranch{SHA: gh.Ptr("headsha123")}}
	client.EXPECT().GetPullRequest(gomock.Any(), "sevigo", "demo", 7).Return(pr, nil)
	client.EXPECT().CreateCheckRun(gomock.Any(), "sevigo", "demo", gomock.Any()).
		Return(&gh.CheckRun{ID: gh.Ptr(int64(55))}, nil)
	client.EXPECT().GetRepoConfig(gomock.Any(), "sevigo", "demo", "headsha123").
		Return(core.DefaultRepoConfig(), nil)
	client.EXPECT().GetPullRequestDiff(gomock.Any(), "sevigo", "demo", 7).Return(jobsSampleDiff, nil)
	client.EXPECT().GetChangedFiles(gomock.Any(), "sevigo", "demo", 7).Return(nil, nil)

	// Exactly one failure notice.
	var postedBody string
	client.EXPECT().CreateComment(gomock.Any(), "sevigo", "demo", 7, gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _ string, _ int, body string) error {
			postedBody = body
			return nil
		}).Times(1)

	var conclusion string
	client.EXPECT().UpdateCheckRun(gomock.Any(), "sevigo", "demo", int64(55), gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _ string, _ int64, opts gh.UpdateCheckRunOptions) (*gh.CheckRun, error) {
			conclusion = opts.GetConclusion()
			return &gh.CheckRun{}, nil
		})

	completer := &stubCompleter{err: core.UpstreamError(errors.New("529"), true)}
	job := newTestReviewJob(t, completer, client)

	err := job.Run(context.Background(), jobsTestEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "review failed in phase requesting")

	assert.Equal(t, 3, completer.calls)
	assert.Equal(t, "failure", conclusion)
	assert.Contains(t, postedBody, "Review failed")
}

func TestReviewJobRunRejectsPRWithoutHeadSHA(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)
	client.EXPECT().GetPullRequest(gomock.Any(), "sevigo", "demo", 7).Return(&gh.PullRequest{}, nil)

	job := newTestReviewJob(t, &stubCompleter{content: jobsModelReply}, client)

	err := job.Run(context.Background(), jobsTestEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no valid head SHA")
}

func TestReviewJobValidateInputs(t *testing.T) {
	tests := []struct {
		name  string
		event *core.GitHubEvent
	}{
		{"nil event", nil},
		{"missing owner", &core.GitHubEvent{RepoName: "demo", RepoFullName: "sevigo/demo", PRNumber: 1, InstallationID: 1}},
		{"missing repo name", &core.GitHubEvent{RepoOwner: "sevigo", RepoFullName: "sevigo/demo", PRNumber: 1, InstallationID: 1}},
		{"missing full name", &core.GitHubEvent{RepoOwner: "sevigo", RepoName: "demo", PRNumber: 1, InstallationID: 1}},
		{"zero PR number", &core.GitHubEvent{RepoOwner: "sevigo", RepoName: "demo", RepoFullName: "sevigo/demo", InstallationID: 1}},
		{"zero installation", &core.GitHubEvent{RepoOwner: "sevigo", RepoName: "demo", RepoFullName: "sevigo/demo", PRNumber: 1}},
	}

	ctrl := gomock.NewController(t)
	job := newTestReviewJob(t, &stubCompleter{content: jobsModelReply}, mocks.NewMockClient(ctrl))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := job.Run(context.Background(), tt.event)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "input validation failed")
		})
	}
}
