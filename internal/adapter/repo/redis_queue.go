package repo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"gamecre8/internal/domain"
)

// claimScript moves a job hash from queued to working and drops it from the
// FIFO set in one step.
//
// KEYS[1] job hash, KEYS[2] queued zset. ARGV[1] job id, ARGV[2] updated_at.
var claimScript = redis.NewScript(`
if redis.call('HGET', KEYS[1], 'status') ~= 'queued' then
  return 0
end
redis.call('HSET', KEYS[1], 'status', 'working', 'updated_at', ARGV[2])
redis.call('ZREM', KEYS[2], ARGV[1])
return 1
`)

// transitionScript compares and sets the status field. It replies "ok" on
// success, the current status on mismatch and nil when the job is missing.
//
// KEYS[1] job hash. ARGV: from, to, field, value, updated_at.
var transitionScript = redis.NewScript(`
local status = redis.call('HGET', KEYS[1], 'status')
if not status then
  return false
end
if status ~= ARGV[1] then
  return status
end
redis.call('HSET', KEYS[1], 'status', ARGV[2], ARGV[3], ARGV[4], 'updated_at', ARGV[5])
return 'ok'
`)

// PromptQueueRepositoryRedis implements domain.PromptQueueRepository on Redis.
//
// Layout under gamecre8:{namespace}:
//
//	job:{id}   hash with the job fields
//	queued     zset of queued job ids scored by created_at (unix ms)
//	created    zset of every job id scored by created_at (unix ms)
type PromptQueueRepositoryRedis struct {
	rdb       *redis.Client
	namespace string
}

// NewRedisPromptQueueRepository wraps rdb. namespace separates independent
// queues sharing one Redis database.
func NewRedisPromptQueueRepository(rdb *redis.Client, namespace string) (*PromptQueueRepositoryRedis, error) {
	if namespace == "" {
		return nil, fmt.Errorf("redis queue namespace cannot be empty")
	}
	return &PromptQueueRepositoryRedis{rdb: rdb, namespace: namespace}, nil
}

func (r *PromptQueueRepositoryRedis) jobKey(id string) string {
	return "gamecre8:" + r.namespace + ":job:" + id
}

func (r *PromptQueueRepositoryRedis) queuedKey() string {
	return "gamecre8:" + r.namespace + ":queued"
}

func (r *PromptQueueRepositoryRedis) createdKey() string {
	return "gamecre8:" + r.namespace + ":created"
}

func (r *PromptQueueRepositoryRedis) Insert(ctx context.Context, job *domain.PromptJob) error {
	score := float64(job.CreatedAt.UnixMilli())
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, r.jobKey(job.ID), promptJobToHash(job))
		pipe.ZAdd(ctx, r.createdKey(), redis.Z{Score: score, Member: job.ID})
		if job.Status == domain.JobStatusQueued {
			pipe.ZAdd(ctx, r.queuedKey(), redis.Z{Score: score, Member: job.ID})
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write job to Redis: %w", err)
	}
	return nil
}

func (r *PromptQueueRepositoryRedis) ListQueued(ctx context.Context, limit int) ([]domain.PromptJob, error) {
	if limit <= 0 {
		return nil, nil
	}
	ids, err := r.rdb.ZRange(ctx, r.queuedKey(), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read queued jobs: %w", err)
	}
	hashes, err := r.loadHashes(ctx, ids)
	if err != nil {
		return nil, err
	}
	jobs := make([]domain.PromptJob, 0, len(hashes))
	for _, h := range hashes {
		job, err := hashToPromptJob(h)
		if err != nil {
			return nil, err
		}
		// A job can leave the set between ZRANGE and HGETALL.
		if job.Status != domain.JobStatusQueued {
			continue
		}
		jobs = append(jobs, *job)
	}
	return jobs, nil
}

func (r *PromptQueueRepositoryRedis) TryClaim(ctx context.Context, jobID string, at time.Time) (bool, error) {
	n, err := claimScript.Run(ctx, r.rdb,
		[]string{r.jobKey(jobID), r.queuedKey()},
		jobID, formatRedisTime(at),
	).Int()
	if err != nil {
		return false, fmt.Errorf("failed to claim job: %w", err)
	}
	return n == 1, nil
}

func (r *PromptQueueRepositoryRedis) Complete(ctx context.Context, jobID, resultRef string, at time.Time) error {
	return r.transition(ctx, jobID, domain.JobStatusDone, "result_ref", resultRef, at)
}

func (r *PromptQueueRepositoryRedis) Fail(ctx context.Context, jobID, message string, at time.Time) error {
	return r.transition(ctx, jobID, domain.JobStatusError, "error_message", message, at)
}

func (r *PromptQueueRepositoryRedis) GetByID(ctx context.Context, jobID string) (*domain.PromptJob, error) {
	h, err := r.rdb.HGetAll(ctx, r.jobKey(jobID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read job from Redis: %w", err)
	}
	if len(h) == 0 {
		return nil, domain.ErrNotFound
	}
	return hashToPromptJob(h)
}

func (r *PromptQueueRepositoryRedis) RecentPrompts(ctx context.Context, since time.Time) ([]string, error) {
	ids, err := r.rdb.ZRangeByScore(ctx, r.createdKey(), &redis.ZRangeBy{
		Min: strconv.FormatInt(since.UnixMilli(), 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read recent jobs: %w", err)
	}
	hashes, err := r.loadHashes(ctx, ids)
	if err != nil {
		return nil, err
	}
	prompts := make([]string, 0, len(hashes))
	for _, h := range hashes {
		created, err := parseRedisTime(h["created_at"])
		if err != nil {
			return nil, err
		}
		// Scores are millisecond precision; the hash carries the exact time.
		if created.Before(since) {
			continue
		}
		prompts = append(prompts, h["normalized_prompt"])
	}
	return prompts, nil
}

func (r *PromptQueueRepositoryRedis) transition(ctx context.Context, jobID string, to domain.JobStatus, field, value string, at time.Time) error {
	reply, err := transitionScript.Run(ctx, r.rdb,
		[]string{r.jobKey(jobID)},
		string(domain.JobStatusWorking), string(to), field, value, formatRedisTime(at),
	).Text()
	if errors.Is(err, redis.Nil) {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}
	if reply != "ok" {
		return fmt.Errorf("%w: job %s is %s", domain.ErrInvalidTransition, jobID, reply)
	}
	return nil
}

// loadHashes fetches job hashes in one round trip, skipping ids whose hash
// has disappeared.
func (r *PromptQueueRepositoryRedis) loadHashes(ctx context.Context, ids []string) ([]map[string]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err := r.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, r.jobKey(id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read jobs from Redis: %w", err)
	}
	out := make([]map[string]string, 0, len(cmds))
	for _, cmd := range cmds {
		h := cmd.Val()
		if len(h) == 0 {
			continue
		}
		out = append(out, h)
	}
	return out, nil
}

func promptJobToHash(job *domain.PromptJob) map[string]any {
	h := map[string]any{
		"id":                job.ID,
		"prompt":            job.Prompt,
		"normalized_prompt": job.NormalizedPrompt,
		"status":            string(job.Status),
		"created_at":        formatRedisTime(job.CreatedAt),
		"updated_at":        formatRedisTime(job.UpdatedAt),
	}
	if job.ResultRef != nil {
		h["result_ref"] = *job.ResultRef
	}
	if job.ErrorMessage != nil {
		h["error_message"] = *job.ErrorMessage
	}
	return h
}

func hashToPromptJob(h map[string]string) (*domain.PromptJob, error) {
	created, err := parseRedisTime(h["created_at"])
	if err != nil {
		return nil, err
	}
	updated, err := parseRedisTime(h["updated_at"])
	if err != nil {
		return nil, err
	}
	job := &domain.PromptJob{
		ID:               h["id"],
		Prompt:           h["prompt"],
		NormalizedPrompt: h["normalized_prompt"],
		Status:           domain.JobStatus(h["status"]),
		CreatedAt:        created,
		UpdatedAt:        updated,
	}
	if !job.Status.Valid() {
		return nil, fmt.Errorf("job %s has unknown status %q", job.ID, h["status"])
	}
	if v, ok := h["result_ref"]; ok {
		job.ResultRef = &v
	}
	if v, ok := h["error_message"]; ok {
		job.ErrorMessage = &v
	}
	return job, nil
}

func formatRedisTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseRedisTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid job timestamp %q: %w", s, err)
	}
	return t, nil
}

var _ domain.PromptQueueRepository = (*PromptQueueRepositoryRedis)(nil)
