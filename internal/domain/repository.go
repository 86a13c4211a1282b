package domain

import (
	"context"
	"time"
)

// PromptQueueRepository persists prompt jobs. Every status change is a
// conditional write: TryClaim only succeeds while the job is still queued,
// Complete and Fail only while it is working. Implementations must make these
// writes atomic at the storage layer so concurrent workers in different
// processes cannot both win the same job.
type PromptQueueRepository interface {
	Insert(ctx context.Context, job *PromptJob) error
	ListQueued(ctx context.Context, limit int) ([]PromptJob, error)
	// TryClaim moves a job from queued to working. It returns false, nil when
	// the job was no longer queued.
	TryClaim(ctx context.Context, jobID string, at time.Time) (bool, error)
	Complete(ctx context.Context, jobID, resultRef string, at time.Time) error
	Fail(ctx context.Context, jobID, message string, at time.Time) error
	GetByID(ctx context.Context, jobID string) (*PromptJob, error)
	// RecentPrompts returns the normalized prompts of jobs created at or after since.
	RecentPrompts(ctx context.Context, since time.Time) ([]string, error)
}

// GameRepository stores generated games.
type GameRepository interface {
	Save(ctx context.Context, game *Game) (string, error)
	GetBySlug(ctx context.Context, slug string) (*Game, error)
}
