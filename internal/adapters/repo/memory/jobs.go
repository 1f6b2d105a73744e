package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/bnema/zalo-accounts/internal/domain"
	"github.com/bnema/zalo-accounts/internal/ports"
)

const defaultRetain = 200

// JobRepository keeps batch job snapshots. Once more than retain finished
// jobs are stored the oldest finished ones are evicted; running jobs are
// never evicted.
type JobRepository struct {
	mu     sync.RWMutex
	jobs   map[string]domain.Job
	retain int
}

var _ ports.JobRepository = (*JobRepository)(nil)

func NewJobRepository(retain int) *JobRepository {
	if retain <= 0 {
		retain = defaultRetain
	}
	return &JobRepository{jobs: map[string]domain.Job{}, retain: retain}
}

func (r *JobRepository) Save(ctx context.Context, job domain.Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.jobs[job.ID] = cloneJob(job)
	if job.State == domain.JobStateCompleted {
		r.evictLocked()
	}
	return nil
}

func (r *JobRepository) GetByID(ctx context.Context, id string) (domain.Job, error) {
	if err := ctx.Err(); err != nil {
		return domain.Job{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[id]
	if !ok {
		return domain.Job{}, domain.ErrJobNotFound
	}
	return cloneJob(job), nil
}

// List returns every stored job, newest first.
func (r *JobRepository) List(ctx context.Context) ([]domain.Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	jobs := make([]domain.Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		jobs = append(jobs, cloneJob(job))
	}
	r.mu.RUnlock()

	sort.SliceStable(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})
	return jobs, nil
}

func (r *JobRepository) evictLocked() {
	finished := make([]domain.Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		if job.State == domain.JobStateCompleted {
			finished = append(finished, job)
		}
	}
	if len(finished) <= r.retain {
		return
	}

	sort.Slice(finished, func(i, j int) bool {
		return finishedAt(finished[i]).Before(finishedAt(finished[j]))
	})
	for _, job := range finished[:len(finished)-r.retain] {
		delete(r.jobs, job.ID)
	}
}

func finishedAt(job domain.Job) time.Time {
	if job.FinishedAt != nil {
		return *job.FinishedAt
	}
	return job.CreatedAt
}

func cloneJob(job domain.Job) domain.Job {
	job.Outcomes = append([]domain.Outcome(nil), job.Outcomes...)
	if job.FinishedAt != nil {
		at := *job.FinishedAt
		job.FinishedAt = &at
	}
	return job
}
