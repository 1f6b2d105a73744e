package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bnema/zalo-accounts/internal/domain"
	"github.com/bnema/zalo-accounts/internal/goroutine"
	"github.com/bnema/zalo-accounts/internal/ports"
)

const DefaultItemDelay = 1500 * time.Millisecond

// BatchOp performs the operation for one target. A returned error marks only
// that target as failed.
type BatchOp func(ctx context.Context, target string) error

type BatchOptions struct {
	ItemDelay time.Duration
}

// BatchRunner runs operations over a target list one at a time, in input
// order, pausing between items. Failures are recorded and never abort the
// run; nothing is retried.
type BatchRunner struct {
	jobs   ports.JobRepository
	events ports.EventPublisher
	clock  ports.Clock
	log    *slog.Logger
	opts   BatchOptions
	newID  func() string
}

func NewBatchRunner(jobs ports.JobRepository, events ports.EventPublisher, clock ports.Clock, log *slog.Logger, opts BatchOptions) *BatchRunner {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if log == nil {
		log = slog.Default()
	}
	if opts.ItemDelay < 0 {
		opts.ItemDelay = 0
	}

	return &BatchRunner{
		jobs:   jobs,
		events: events,
		clock:  clock,
		log:    log.With("component", "batch"),
		opts:   opts,
		newID:  func() string { return uuid.New().String() },
	}
}

func (r *BatchRunner) NewJob(accountID domain.AccountID, kind domain.JobKind, targets []string) domain.Job {
	outcomes := make([]domain.Outcome, len(targets))
	for i, target := range targets {
		outcomes[i] = domain.Outcome{Target: target, Status: domain.OutcomePending}
	}

	return domain.Job{
		ID:        r.newID(),
		AccountID: accountID,
		Kind:      kind,
		State:     domain.JobStateRunning,
		Outcomes:  outcomes,
		CreatedAt: r.clock.Now(),
	}
}

// Run processes every target of job synchronously and returns the finished
// snapshot. Progress is stored and published after each item.
func (r *BatchRunner) Run(ctx context.Context, job domain.Job, op BatchOp) domain.Job {
	log := r.log.With("job_id", job.ID, "account_id", job.AccountID, "kind", job.Kind)
	log.Info("batch started", "targets", len(job.Outcomes))
	r.save(job)

	for i := job.Cursor; i < len(job.Outcomes); i++ {
		if i > 0 {
			if err := r.clock.Sleep(ctx, r.opts.ItemDelay); err != nil {
				r.abandon(&job, i, err)
				break
			}
		}

		target := job.Outcomes[i].Target
		if err := r.runItem(ctx, op, target); err != nil {
			log.Warn("batch item failed", "index", i, "target", target, "error", err)
			job.Outcomes[i].Status = domain.OutcomeFailure
			job.Outcomes[i].Reason = err.Error()
		} else {
			job.Outcomes[i].Status = domain.OutcomeSuccess
		}
		job.Cursor = i + 1

		r.save(job)
		r.publish(domain.EventJobProgress, job)
	}

	finished := r.clock.Now()
	job.State = domain.JobStateCompleted
	job.FinishedAt = &finished
	r.save(job)
	r.publish(domain.EventJobFinished, job)

	succeeded, failed := job.Counts()
	log.Info("batch finished", "succeeded", succeeded, "failed", failed)
	return job
}

// Submit stores job and runs it in the background, detached from the caller's
// context. The returned snapshot is taken before the first item runs.
func (r *BatchRunner) Submit(job domain.Job, op BatchOp) domain.Job {
	r.save(job)
	running := job
	running.Outcomes = append([]domain.Outcome(nil), job.Outcomes...)
	goroutine.SafeGo(r.log, "batch "+job.ID, func() {
		r.Run(context.Background(), running, op)
	})
	return job
}

func (r *BatchRunner) Job(ctx context.Context, id string) (domain.Job, error) {
	job, err := r.jobs.GetByID(ctx, id)
	if err != nil {
		return domain.Job{}, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

func (r *BatchRunner) Jobs(ctx context.Context) ([]domain.Job, error) {
	jobs, err := r.jobs.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, nil
}

func (r *BatchRunner) runItem(ctx context.Context, op BatchOp, target string) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return op(ctx, target)
}

// abandon marks every unprocessed target failed when the run context ends.
func (r *BatchRunner) abandon(job *domain.Job, from int, cause error) {
	for i := from; i < len(job.Outcomes); i++ {
		job.Outcomes[i].Status = domain.OutcomeFailure
		job.Outcomes[i].Reason = cause.Error()
	}
	job.Cursor = len(job.Outcomes)
}

func (r *BatchRunner) save(job domain.Job) {
	if r.jobs == nil {
		return
	}
	if err := r.jobs.Save(context.Background(), job); err != nil {
		r.log.Warn("store job snapshot", "job_id", job.ID, "error", err)
	}
}

func (r *BatchRunner) publish(kind domain.EventKind, job domain.Job) {
	if r.events == nil {
		return
	}
	snapshot := job
	snapshot.Outcomes = append([]domain.Outcome(nil), job.Outcomes...)
	r.events.Publish(domain.Event{
		Kind:      kind,
		AccountID: job.AccountID,
		Job:       &snapshot,
		At:        r.clock.Now(),
	})
}
