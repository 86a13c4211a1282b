package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gamecre8/internal/domain"
)

const sqliteQueueSchema = `
create table if not exists prompt_queue (
    id text primary key,
    prompt text not null,
    normalized_prompt text not null,
    status text not null default 'queued',
    created_at integer not null,
    updated_at integer not null,
    result_ref text,
    error_message text
);
create index if not exists prompt_queue_status_created_idx on prompt_queue (status, created_at, id);
create index if not exists prompt_queue_created_idx on prompt_queue (created_at);
`

const sqliteJobColumns = `id, prompt, normalized_prompt, status, created_at, updated_at, result_ref, error_message`

// PromptQueueRepositorySQLite implements domain.PromptQueueRepository on a
// SQLite database. Timestamps are stored as unix nanoseconds so ordering and
// range filters stay numeric.
type PromptQueueRepositorySQLite struct {
	db *sql.DB
}

// NewSQLitePromptQueueRepository creates the schema if needed and returns the repository.
func NewSQLitePromptQueueRepository(ctx context.Context, db *sql.DB) (*PromptQueueRepositorySQLite, error) {
	if _, err := db.ExecContext(ctx, sqliteQueueSchema); err != nil {
		return nil, fmt.Errorf("create prompt_queue schema: %w", err)
	}
	return &PromptQueueRepositorySQLite{db: db}, nil
}

func (r *PromptQueueRepositorySQLite) Insert(ctx context.Context, job *domain.PromptJob) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO prompt_queue (id, prompt, normalized_prompt, status, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?);
`,
		job.ID,
		job.Prompt,
		job.NormalizedPrompt,
		string(job.Status),
		job.CreatedAt.UnixNano(),
		job.UpdatedAt.UnixNano(),
	)
	return err
}

func (r *PromptQueueRepositorySQLite) ListQueued(ctx context.Context, limit int) ([]domain.PromptJob, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+sqliteJobColumns+`
FROM prompt_queue
WHERE status = 'queued'
ORDER BY created_at ASC, id ASC
LIMIT ?;
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []domain.PromptJob
	for rows.Next() {
		job, err := scanSQLiteJob(rows)
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

func (r *PromptQueueRepositorySQLite) TryClaim(ctx context.Context, jobID string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
UPDATE prompt_queue
SET status = 'working', updated_at = ?
WHERE id = ? AND status = 'queued';
`, at.UnixNano(), jobID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *PromptQueueRepositorySQLite) Complete(ctx context.Context, jobID, resultRef string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE prompt_queue
SET status = 'done', result_ref = ?, updated_at = ?
WHERE id = ? AND status = 'working';
`, resultRef, at.UnixNano(), jobID)
	if err != nil {
		return err
	}
	return r.checkTransition(ctx, res, jobID)
}

func (r *PromptQueueRepositorySQLite) Fail(ctx context.Context, jobID, message string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE prompt_queue
SET status = 'error', error_message = ?, updated_at = ?
WHERE id = ? AND status = 'working';
`, message, at.UnixNano(), jobID)
	if err != nil {
		return err
	}
	return r.checkTransition(ctx, res, jobID)
}

func (r *PromptQueueRepositorySQLite) GetByID(ctx context.Context, jobID string) (*domain.PromptJob, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+sqliteJobColumns+`
FROM prompt_queue
WHERE id = ?;
`, jobID)
	job, err := scanSQLiteJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return job, nil
}

func (r *PromptQueueRepositorySQLite) RecentPrompts(ctx context.Context, since time.Time) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT normalized_prompt
FROM prompt_queue
WHERE created_at >= ?;
`, since.UnixNano())
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

func (r *PromptQueueRepositorySQLite) checkTransition(ctx context.Context, res sql.Result, jobID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	job, err := r.GetByID(ctx, jobID)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: job %s is %s", domain.ErrInvalidTransition, jobID, job.Status)
}

type sqlScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteJob(row sqlScanner) (*domain.PromptJob, error) {
	var (
		job                  domain.PromptJob
		status               string
		createdAt, updatedAt int64
		resultRef, errMsg    sql.NullString
	)
	if err := row.Scan(
		&job.ID,
		&job.Prompt,
		&job.NormalizedPrompt,
		&status,
		&createdAt,
		&updatedAt,
		&resultRef,
		&errMsg,
	); err != nil {
		return nil, err
	}
	job.Status = domain.JobStatus(status)
	job.CreatedAt = time.Unix(0, createdAt).UTC()
	job.UpdatedAt = time.Unix(0, updatedAt).UTC()
	if resultRef.Valid {
		job.ResultRef = &resultRef.String
	}
	if errMsg.Valid {
		job.ErrorMessage = &errMsg.String
	}
	return &job, nil
}

var _ domain.PromptQueueRepository = (*PromptQueueRepositorySQLite)(nil)
