// Package queue implements the prompt queue state machine on top of a
// domain.PromptQueueRepository.
//
// Enqueue and EnqueueMany serialize their dedup check and insert inside one
// Queue value. Separate processes sharing a repository can still both insert
// the same prompt when they enqueue it at the same moment.
//
// Jobs only move forward: queued → working → done | error. Moving a job out
// of queued is a conditional write in the repository, so when several
// workers claim from the same table at once each job is handed to exactly one
// of them. Losers simply skip the job; it is gone from their batch and they
// do not retry it.
package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"gamecre8/internal/domain"
	"gamecre8/internal/infra"
)

const (
	// DefaultDedupWindow is how far back Enqueue looks for an identical prompt.
	DefaultDedupWindow = 7 * 24 * time.Hour
	// DefaultClaimBatch is used when Claim is asked for a non-positive batch.
	DefaultClaimBatch = 1

	unknownFailure = "unknown error"
)

// Options tunes a Queue.
type Options struct {
	DedupWindow time.Duration
	Now         func() time.Time
	NewID       func() string
	Logger      *infra.Logger
}

// Queue enqueues prompts and hands them out to workers.
type Queue struct {
	repo        domain.PromptQueueRepository
	dedupWindow time.Duration
	now         func() time.Time
	newID       func() string
	logger      zerolog.Logger

	enqueueMu sync.Mutex
}

// EnqueueResult reports the outcome of a single Enqueue call. Skipped is true
// when an equivalent prompt was already enqueued inside the dedup window; in
// that case Job is nil and nothing was written.
type EnqueueResult struct {
	Job     *domain.PromptJob `json:"job,omitempty"`
	Skipped bool              `json:"skipped"`
}

// BatchResult reports the outcome of EnqueueMany.
type BatchResult struct {
	Enqueued []domain.PromptJob `json:"enqueued"`
	Skipped  int                `json:"skipped"`
}

// New builds a Queue over repo.
func New(repo domain.PromptQueueRepository, opts Options) *Queue {
	q := &Queue{
		repo:        repo,
		dedupWindow: opts.DedupWindow,
		now:         opts.Now,
		newID:       opts.NewID,
		logger:      zerolog.Nop(),
	}
	if q.dedupWindow <= 0 {
		q.dedupWindow = DefaultDedupWindow
	}
	if q.now == nil {
		q.now = time.Now
	}
	if q.newID == nil {
		q.newID = uuid.NewString
	}
	if opts.Logger != nil {
		q.logger = *opts.Logger
	}
	return q
}

// NormalizePrompt returns the form prompts are compared in for dedup.
func NormalizePrompt(prompt string) string {
	return cases.Lower(language.Und).String(strings.TrimSpace(prompt))
}

// Enqueue stores prompt as a new queued job unless the same prompt (after
// normalization) was enqueued within the dedup window. The prompt text is
// stored as given.
func (q *Queue) Enqueue(ctx context.Context, prompt string) (EnqueueResult, error) {
	normalized := NormalizePrompt(prompt)
	if normalized == "" {
		return EnqueueResult{}, domain.ErrInvalidPrompt
	}
	q.enqueueMu.Lock()
	defer q.enqueueMu.Unlock()
	seen, err := q.recentPrompts(ctx)
	if err != nil {
		return EnqueueResult{}, err
	}
	if _, dup := seen[normalized]; dup {
		q.logger.Info().Str("prompt", normalized).Msg("queue: duplicate prompt skipped")
		return EnqueueResult{Skipped: true}, nil
	}
	job, err := q.insert(ctx, prompt, normalized)
	if err != nil {
		return EnqueueResult{}, err
	}
	return EnqueueResult{Job: job}, nil
}

// EnqueueMany enqueues every prompt that is neither blank, a duplicate of a
// recent job, nor a repeat of an earlier prompt in the same batch.
func (q *Queue) EnqueueMany(ctx context.Context, prompts []string) (BatchResult, error) {
	var res BatchResult
	q.enqueueMu.Lock()
	defer q.enqueueMu.Unlock()
	seen, err := q.recentPrompts(ctx)
	if err != nil {
		return res, err
	}
	for _, p := range prompts {
		normalized := NormalizePrompt(p)
		if normalized == "" {
			res.Skipped++
			continue
		}
		if _, dup := seen[normalized]; dup {
			res.Skipped++
			continue
		}
		seen[normalized] = struct{}{}
		job, err := q.insert(ctx, p, normalized)
		if err != nil {
			return res, err
		}
		res.Enqueued = append(res.Enqueued, *job)
	}
	q.logger.Info().Int("enqueued", len(res.Enqueued)).Int("skipped", res.Skipped).Msg("queue: batch enqueued")
	return res, nil
}

// Claim hands out up to n of the oldest queued jobs, now marked working.
// Jobs another worker claimed first are left out of the result.
func (q *Queue) Claim(ctx context.Context, n int) ([]domain.PromptJob, error) {
	if n <= 0 {
		n = DefaultClaimBatch
	}
	candidates, err := q.repo.ListQueued(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("queue: list queued: %w", err)
	}
	claimed := make([]domain.PromptJob, 0, len(candidates))
	for _, job := range candidates {
		at := q.now().UTC()
		ok, err := q.repo.TryClaim(ctx, job.ID, at)
		if err != nil {
			return claimed, fmt.Errorf("queue: claim %s: %w", job.ID, err)
		}
		if !ok {
			q.logger.Debug().Str("job_id", job.ID).Msg("queue: claim lost")
			continue
		}
		job.Status = domain.JobStatusWorking
		job.UpdatedAt = at
		claimed = append(claimed, job)
	}
	return claimed, nil
}

// Complete marks a working job done and records where its result lives.
func (q *Queue) Complete(ctx context.Context, jobID, resultRef string) error {
	if err := q.repo.Complete(ctx, jobID, resultRef, q.now().UTC()); err != nil {
		return fmt.Errorf("queue: complete %s: %w", jobID, err)
	}
	return nil
}

// Fail marks a working job errored with a human-readable message. Errored
// jobs are never picked up again; see Requeue.
func (q *Queue) Fail(ctx context.Context, jobID, message string) error {
	message = strings.TrimSpace(message)
	if message == "" {
		message = unknownFailure
	}
	if err := q.repo.Fail(ctx, jobID, message, q.now().UTC()); err != nil {
		return fmt.Errorf("queue: fail %s: %w", jobID, err)
	}
	return nil
}

// Requeue enqueues the prompt of an errored job again as a brand new job,
// bypassing the dedup window. The errored job keeps its status and message.
func (q *Queue) Requeue(ctx context.Context, jobID string) (*domain.PromptJob, error) {
	old, err := q.repo.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if old.Status != domain.JobStatusError {
		return nil, fmt.Errorf("%w: job %s is %s", domain.ErrInvalidTransition, jobID, old.Status)
	}
	return q.insert(ctx, old.Prompt, old.NormalizedPrompt)
}

// Get returns a job by id.
func (q *Queue) Get(ctx context.Context, jobID string) (*domain.PromptJob, error) {
	job, err := q.repo.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("queue: get %s: %w", jobID, err)
	}
	return job, nil
}

func (q *Queue) insert(ctx context.Context, prompt, normalized string) (*domain.PromptJob, error) {
	now := q.now().UTC()
	job := &domain.PromptJob{
		ID:               q.newID(),
		Prompt:           prompt,
		NormalizedPrompt: normalized,
		Status:           domain.JobStatusQueued,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := q.repo.Insert(ctx, job); err != nil {
		return nil, fmt.Errorf("queue: insert: %w", err)
	}
	q.logger.Info().Str("job_id", job.ID).Msg("queue: job enqueued")
	return job, nil
}

func (q *Queue) recentPrompts(ctx context.Context) (map[string]struct{}, error) {
	since := q.now().UTC().Add(-q.dedupWindow)
	recent, err := q.repo.RecentPrompts(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("queue: recent prompts: %w", err)
	}
	seen := make(map[string]struct{}, len(recent))
	for _, p := range recent {
		seen[p] = struct{}{}
	}
	return seen, nil
}
