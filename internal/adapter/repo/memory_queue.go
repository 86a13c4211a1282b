package repo

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"gamecre8/internal/domain"
)

// MemoryQueueRepository keeps jobs in process memory. It is meant for tests
// and single-process development; the mutex makes its conditional updates
// atomic within one process only.
type MemoryQueueRepository struct {
	mu   sync.Mutex
	jobs map[string]*domain.PromptJob
}

// NewMemoryQueueRepository returns an empty in-memory queue.
func NewMemoryQueueRepository() *MemoryQueueRepository {
	return &MemoryQueueRepository{jobs: make(map[string]*domain.PromptJob)}
}

func (r *MemoryQueueRepository) Insert(_ context.Context, job *domain.PromptJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.jobs[job.ID]; exists {
		return fmt.Errorf("job %s already exists", job.ID)
	}
	r.jobs[job.ID] = clonePromptJob(job)
	return nil
}

func (r *MemoryQueueRepository) ListQueued(_ context.Context, limit int) ([]domain.PromptJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	queued := make([]domain.PromptJob, 0, len(r.jobs))
	for _, job := range r.jobs {
		if job.Status == domain.JobStatusQueued {
			queued = append(queued, *clonePromptJob(job))
		}
	}
	sort.Slice(queued, func(i, j int) bool {
		if !queued[i].CreatedAt.Equal(queued[j].CreatedAt) {
			return queued[i].CreatedAt.Before(queued[j].CreatedAt)
		}
		return queued[i].ID < queued[j].ID
	})
	if limit >= 0 && len(queued) > limit {
		queued = queued[:limit]
	}
	return queued, nil
}

func (r *MemoryQueueRepository) TryClaim(_ context.Context, jobID string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok || job.Status != domain.JobStatusQueued {
		return false, nil
	}
	job.Status = domain.JobStatusWorking
	job.UpdatedAt = at
	return true, nil
}

func (r *MemoryQueueRepository) Complete(_ context.Context, jobID, resultRef string, at time.Time) error {
	return r.finish(jobID, domain.JobStatusDone, at, func(job *domain.PromptJob) {
		job.ResultRef = &resultRef
	})
}

func (r *MemoryQueueRepository) Fail(_ context.Context, jobID, message string, at time.Time) error {
	return r.finish(jobID, domain.JobStatusError, at, func(job *domain.PromptJob) {
		job.ErrorMessage = &message
	})
}

func (r *MemoryQueueRepository) GetByID(_ context.Context, jobID string) (*domain.PromptJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return clonePromptJob(job), nil
}

func (r *MemoryQueueRepository) RecentPrompts(_ context.Context, since time.Time) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var prompts []string
	for _, job := range r.jobs {
		if !job.CreatedAt.Before(since) {
			prompts = append(prompts, job.NormalizedPrompt)
		}
	}
	return prompts, nil
}

func (r *MemoryQueueRepository) finish(jobID string, to domain.JobStatus, at time.Time, set func(*domain.PromptJob)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return domain.ErrNotFound
	}
	if job.Status != domain.JobStatusWorking {
		return fmt.Errorf("%w: job %s is %s", domain.ErrInvalidTransition, jobID, job.Status)
	}
	job.Status = to
	job.UpdatedAt = at
	set(job)
	return nil
}

func clonePromptJob(job *domain.PromptJob) *domain.PromptJob {
	c := *job
	if job.ResultRef != nil {
		v := *job.ResultRef
		c.ResultRef = &v
	}
	if job.ErrorMessage != nil {
		v := *job.ErrorMessage
		c.ErrorMessage = &v
	}
	return &c
}

var _ domain.PromptQueueRepository = (*MemoryQueueRepository)(nil)
