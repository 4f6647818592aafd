// Package jobs runs triggered review invocations in the background.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/sevigo/diff-scout/internal/core"
	"github.com/sevigo/diff-scout/internal/metrics"
)

// jobQueueSize bounds the number of accepted-but-unstarted reviews. A full
// queue rejects new triggers instead of growing without limit.
const jobQueueSize = 100

// dispatcher implements core.JobDispatcher and manages a pool of worker
// goroutines for processing GitHub events as review jobs.
type dispatcher struct {
	reviewJob  core.Job
	jobQueue   chan *core.GitHubEvent
	maxWorkers int
	recorder   *metrics.Recorder
	wg         sync.WaitGroup
	logger     *slog.Logger
}

// NewDispatcher initializes a dispatcher with a worker pool.
// If maxWorkers is 0 or negative, it defaults to 1. recorder may be nil.
func NewDispatcher(reviewJob core.Job, maxWorkers int, recorder *metrics.Recorder, logger *slog.Logger) core.JobDispatcher {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	d := &dispatcher{
		reviewJob:  reviewJob,
		maxWorkers: maxWorkers,
		jobQueue:   make(chan *core.GitHubEvent, jobQueueSize),
		recorder:   recorder,
		logger:     logger,
	}
	d.startWorkers()
	return d
}

// startWorkers launches maxWorkers goroutines to process jobs from the queue.
func (d *dispatcher) startWorkers() {
	for i := range d.maxWorkers {
		d.wg.Add(1)
		go d.startWorker(i)
	}
}

// startWorker processes events from the queue until it's closed.
func (d *dispatcher) startWorker(workerID int) {
	defer d.wg.Done()
	d.logger.Info("starting review worker", "id", workerID)

	for event := range d.jobQueue {
		d.recorder.SetQueueDepth(len(d.jobQueue))
		d.processEvent(workerID, event)
	}

	d.logger.Info("shutting down review worker", "id", workerID)
}

// processEvent logs and runs a review job for a GitHub event.
func (d *dispatcher) processEvent(workerID int, event *core.GitHubEvent) {
	d.logger.Info("worker processing job",
		"worker_id", workerID,
		"repo", event.RepoFullName,
		"job_id", event.JobID,
	)

	err := d.reviewJob.Run(context.Background(), event)
	if err != nil {
		d.logger.Error("review job failed",
			"repo", event.RepoFullName,
			"pr", event.PRNumber,
			"job_id", event.JobID,
			"error", err,
		)
	}
}

// Dispatch queues a GitHub event for processing by a worker. The job ID it
// assigns tags every log record and check run of the invocation.
func (d *dispatcher) Dispatch(_ context.Context, event *core.GitHubEvent) error {
	if event.JobID == "" {
		event.JobID = ulid.Make().String()
	}
	d.logger.Info("queuing review job", "repo", event.RepoFullName, "pr", event.PRNumber, "job_id", event.JobID)

	select {
	case d.jobQueue <- event:
		d.recorder.SetQueueDepth(len(d.jobQueue))
		return nil
	default:
		return fmt.Errorf("job queue is full, cannot accept new review job")
	}
}

// Stop gracefully shuts down the dispatcher, waiting for all workers to finish.
func (d *dispatcher) Stop() {
	d.logger.Info("stopping dispatcher and waiting for jobs to finish")
	close(d.jobQueue)
	d.wg.Wait()
	d.logger.Info("all review jobs have finished")
}
