package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/diff-scout/internal/core"
)

// blockingJob holds each Run until released so tests can control the queue.
type blockingJob struct {
	started chan string
	release chan struct{}

	mu   sync.Mutex
	runs []string
	err  error
}

func newBlockingJob() *blockingJob {
	return &blockingJob{
		started: make(chan string, jobQueueSize+10),
		release: make(chan struct{}),
	}
}

func (b *blockingJob) Run(_ context.Context, event *core.GitHubEvent) error {
	b.started <- event.JobID
	<-b.release

	b.mu.Lock()
	b.runs = append(b.runs, event.JobID)
	b.mu.Unlock()
	return b.err
}

func (b *blockingJob) ranJobs() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.runs...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDispatcherAssignsJobID(t *testing.T) {
	job := newBlockingJob()
	close(job.release)
	d := NewDispatcher(job, 1, nil, discardLogger())
	defer d.Stop()

	first := &core.GitHubEvent{RepoFullName: "sevigo/demo", PRNumber: 1}
	second := &core.GitHubEvent{RepoFullName: "sevigo/demo", PRNumber: 2}

	require.NoError(t, d.Dispatch(context.Background(), first))
	require.NoError(t, d.Dispatch(context.Background(), second))

	assert.Len(t, first.JobID, 26)
	assert.Len(t, second.JobID, 26)
	assert.NotEqual(t, first.JobID, second.JobID)
}

func TestDispatcherKeepsCallerAssignedJobID(t *testing.T) {
	job := newBlockingJob()
	close(job.release)
	d := NewDispatcher(job, 1, nil, discardLogger())
	defer d.Stop()

	event := &core.GitHubEvent{RepoFullName: "sevigo/demo", PRNumber: 1, JobID: "preassigned"}
	require.NoError(t, d.Dispatch(context.Background(), event))
	assert.Equal(t, "preassigned", event.JobID)
}

func TestDispatcherRejectsWhenQueueIsFull(t *testing.T) {
	job := newBlockingJob()
	d := NewDispatcher(job, 1, nil, discardLogger())

	ctx := context.Background()

	// The single worker takes the first event and blocks inside Run.
	require.NoError(t, d.Dispatch(ctx, &core.GitHubEvent{PRNumber: 1}))
	select {
	case <-job.started:
	case <-time.After(5 * time.Second):
		t.Fatal("worker never picked up the first job")
	}

	for i := 0; i < jobQueueSize; i++ {
		require.NoError(t, d.Dispatch(ctx, &core.GitHubEvent{PRNumber: i + 2}))
	}

	err := d.Dispatch(ctx, &core.GitHubEvent{PRNumber: 999})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "queue is full")

	close(job.release)
	d.Stop()
}

func TestDispatcherStopDrainsQueuedJobs(t *testing.T) {
	job := newBlockingJob()
	close(job.release)
	d := NewDispatcher(job, 3, nil, discardLogger())

	ctx := context.Background()
	for i := 0; i < 10; i++ {
		require.NoError(t, d.Dispatch(ctx, &core.GitHubEvent{PRNumber: i + 1}))
	}

	d.Stop()
	assert.Len(t, job.ranJobs(), 10)
}

func TestDispatcherSurvivesJobFailure(t *testing.T) {
	job := newBlockingJob()
	job.err = errors.New("review blew up")
	close(job.release)
	d := NewDispatcher(job, 1, nil, discardLogger())

	ctx := context.Background()
	require.NoError(t, d.Dispatch(ctx, &core.GitHubEvent{PRNumber: 1}))
	require.NoError(t, d.Dispatch(ctx, &core.GitHubEvent{PRNumber: 2}))

	d.Stop()
	assert.Len(t, job.ranJobs(), 2)
}
