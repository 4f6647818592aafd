package core

import "time"

// ReviewRequest carries everything a single review invocation needs. It is
// assembled when a trigger fires and discarded when the invocation ends;
// nothing in it survives across invocations.
type ReviewRequest struct {
	RepoFullName string
	PRNumber     int
	PRTitle      string
	PRBody       string
	Language     string
	Commenter    string
	Trigger      string

	// Diff is the unified diff under review.
	Diff string

	// Context is optional free-text appended to the prompt.
	Context string

	// Config holds per-repository overrides, nil when the repository has none.
	Config *RepoConfig

	// ValidLines maps each changed file to the new-side line numbers the diff
	// touches. Findings outside these lines are demoted to general notes.
	// A nil map skips the check.
	ValidLines map[string]map[int]struct{}
}

// ReviewResult is the transient outcome of one invocation.
type ReviewResult struct {
	// Comment is the rendered Markdown that was (or would be) posted.
	Comment string

	Success   bool
	ErrorKind ErrorKind
	Err       error

	// Truncated reports that diff sections were dropped to fit the prompt
	// budget.
	Truncated bool

	Model      string
	TokensUsed int
	Latency    time.Duration

	// Phase is where the invocation ended: Done on success, otherwise the
	// phase that failed.
	Phase Phase
}

// Phase tracks an invocation through its lifecycle. Transitions are strictly
// forward; Failed ends any phase between trigger and completion.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseTriggered  Phase = "triggered"
	PhaseFetching   Phase = "fetching"
	PhaseRequesting Phase = "requesting"
	PhasePosting    Phase = "posting"
	PhaseDone       Phase = "done"
	PhaseFailed     Phase = "failed"
)
