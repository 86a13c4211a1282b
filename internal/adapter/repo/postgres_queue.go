package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"gamecre8/internal/domain"
	"gamecre8/internal/infra"
	"gamecre8/internal/sqlinline"
)

// PromptQueueRepositoryPG implements domain.PromptQueueRepository on PostgreSQL.
// Every query goes through an infra.SQLExecutor so it carries a sql marker.
type PromptQueueRepositoryPG struct {
	db infra.SQLExecutor
}

// NewPromptQueueRepository creates a queue repository backed by PostgreSQL.
func NewPromptQueueRepository(db infra.SQLExecutor) *PromptQueueRepositoryPG {
	return &PromptQueueRepositoryPG{db: db}
}

// EnsureSchema creates the prompt_queue table when it does not exist yet.
func (r *PromptQueueRepositoryPG) EnsureSchema(ctx context.Context) error {
	_, err := r.db.Exec(ctx, sqlinline.QPromptQueueSchema)
	return err
}

// Insert stores a new job.
func (r *PromptQueueRepositoryPG) Insert(ctx context.Context, job *domain.PromptJob) error {
	_, err := r.db.Exec(ctx, sqlinline.QPromptQueueInsert,
		job.ID,
		job.Prompt,
		job.NormalizedPrompt,
		string(job.Status),
		job.CreatedAt,
		job.UpdatedAt,
	)
	return err
}

// ListQueued returns up to limit queued jobs, oldest first.
func (r *PromptQueueRepositoryPG) ListQueued(ctx context.Context, limit int) ([]domain.PromptJob, error) {
	rows, err := r.db.Query(ctx, sqlinline.QPromptQueueListQueued, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []domain.PromptJob
	for rows.Next() {
		job, err := scanPromptJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return jobs, nil
}

// TryClaim flips a queued job to working. The status predicate in the update
// makes the flip atomic, so only one caller sees a row affected.
func (r *PromptQueueRepositoryPG) TryClaim(ctx context.Context, jobID string, at time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, sqlinline.QPromptQueueClaim, jobID, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Complete flips a working job to done.
func (r *PromptQueueRepositoryPG) Complete(ctx context.Context, jobID, resultRef string, at time.Time) error {
	tag, err := r.db.Exec(ctx, sqlinline.QPromptQueueComplete, jobID, resultRef, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	return r.transitionMiss(ctx, jobID)
}

// Fail flips a working job to error.
func (r *PromptQueueRepositoryPG) Fail(ctx context.Context, jobID, message string, at time.Time) error {
	tag, err := r.db.Exec(ctx, sqlinline.QPromptQueueFail, jobID, message, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	return r.transitionMiss(ctx, jobID)
}

// GetByID fetches a job by its identifier.
func (r *PromptQueueRepositoryPG) GetByID(ctx context.Context, jobID string) (*domain.PromptJob, error) {
	job, err := scanPromptJob(r.db.QueryRow(ctx, sqlinline.QPromptQueueGet, jobID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return job, nil
}

// RecentPrompts returns normalized prompts created at or after since.
func (r *PromptQueueRepositoryPG) RecentPrompts(ctx context.Context, since time.Time) ([]string, error) {
	rows, err := r.db.Query(ctx, sqlinline.QPromptQueueRecent, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var prompts []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		prompts = append(prompts, p)
	}
	return prompts, rows.Err()
}

// transitionMiss explains why a conditional update touched no row.
func (r *PromptQueueRepositoryPG) transitionMiss(ctx context.Context, jobID string) error {
	job, err := r.GetByID(ctx, jobID)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: job %s is %s", domain.ErrInvalidTransition, jobID, job.Status)
}

func scanPromptJob(row pgx.Row) (*domain.PromptJob, error) {
	var (
		job    domain.PromptJob
		status string
	)
	if err := row.Scan(
		&job.ID,
		&job.Prompt,
		&job.NormalizedPrompt,
		&status,
		&job.CreatedAt,
		&job.UpdatedAt,
		&job.ResultRef,
		&job.ErrorMessage,
	); err != nil {
		return nil, err
	}
	job.Status = domain.JobStatus(status)
	return &job, nil
}

var _ domain.PromptQueueRepository = (*PromptQueueRepositoryPG)(nil)
