package repo

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"gamecre8/internal/domain"
)

var contractBase = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func contractJob(id, prompt string, offset time.Duration) *domain.PromptJob {
	at := contractBase.Add(offset)
	return &domain.PromptJob{
		ID:               id,
		Prompt:           prompt,
		NormalizedPrompt: prompt,
		Status:           domain.JobStatusQueued,
		CreatedAt:        at,
		UpdatedAt:        at,
	}
}

// runQueueContract checks the behaviour every PromptQueueRepository backend
// must share. newRepo returns a fresh, empty repository per subtest.
func runQueueContract(t *testing.T, newRepo func(t *testing.T) domain.PromptQueueRepository) {
	t.Helper()
	ctx := context.Background()

	t.Run("insert and get", func(t *testing.T) {
		r := newRepo(t)
		if err := r.Insert(ctx, contractJob("a", "space ninja", 0)); err != nil {
			t.Fatalf("Insert: %v", err)
		}
		got, err := r.GetByID(ctx, "a")
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if got.Prompt != "space ninja" || got.Status != domain.JobStatusQueued {
			t.Fatalf("unexpected job: %+v", got)
		}
		if !got.CreatedAt.Equal(contractBase) {
			t.Fatalf("CreatedAt = %v, want %v", got.CreatedAt, contractBase)
		}
		if got.ResultRef != nil || got.ErrorMessage != nil {
			t.Fatalf("fresh job should have no result or error: %+v", got)
		}
	})

	t.Run("get missing", func(t *testing.T) {
		r := newRepo(t)
		if _, err := r.GetByID(ctx, "nope"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("GetByID error = %v, want ErrNotFound", err)
		}
	})

	t.Run("list queued is fifo and limited", func(t *testing.T) {
		r := newRepo(t)
		for _, j := range []*domain.PromptJob{
			contractJob("c", "third", 2*time.Second),
			contractJob("a", "first", 0),
			contractJob("b", "second", time.Second),
		} {
			if err := r.Insert(ctx, j); err != nil {
				t.Fatalf("Insert: %v", err)
			}
		}
		got, err := r.ListQueued(ctx, 2)
		if err != nil {
			t.Fatalf("ListQueued: %v", err)
		}
		if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
			t.Fatalf("ListQueued = %+v, want a then b", got)
		}
	})

	t.Run("claim only once", func(t *testing.T) {
		r := newRepo(t)
		if err := r.Insert(ctx, contractJob("a", "x", 0)); err != nil {
			t.Fatalf("Insert: %v", err)
		}
		at := contractBase.Add(time.Minute)
		ok, err := r.TryClaim(ctx, "a", at)
		if err != nil || !ok {
			t.Fatalf("first TryClaim = %v, %v", ok, err)
		}
		ok, err = r.TryClaim(ctx, "a", at)
		if err != nil || ok {
			t.Fatalf("second TryClaim = %v, %v; want false, nil", ok, err)
		}
		queued, err := r.ListQueued(ctx, 10)
		if err != nil {
			t.Fatalf("ListQueued: %v", err)
		}
		if len(queued) != 0 {
			t.Fatalf("claimed job still listed: %+v", queued)
		}
		got, _ := r.GetByID(ctx, "a")
		if got.Status != domain.JobStatusWorking || !got.UpdatedAt.Equal(at) {
			t.Fatalf("claimed job = %+v", got)
		}
	})

	t.Run("claim missing job", func(t *testing.T) {
		r := newRepo(t)
		ok, err := r.TryClaim(ctx, "ghost", contractBase)
		if err != nil || ok {
			t.Fatalf("TryClaim missing = %v, %v; want false, nil", ok, err)
		}
	})

	t.Run("complete working job", func(t *testing.T) {
		r := newRepo(t)
		_ = r.Insert(ctx, contractJob("a", "x", 0))
		if _, err := r.TryClaim(ctx, "a", contractBase); err != nil {
			t.Fatalf("TryClaim: %v", err)
		}
		if err := r.Complete(ctx, "a", "space-ninja-abc123", contractBase.Add(time.Minute)); err != nil {
			t.Fatalf("Complete: %v", err)
		}
		got, _ := r.GetByID(ctx, "a")
		if got.Status != domain.JobStatusDone || got.ResultRef == nil || *got.ResultRef != "space-ninja-abc123" {
			t.Fatalf("completed job = %+v", got)
		}
		if err := r.Complete(ctx, "a", "again", contractBase); !errors.Is(err, domain.ErrInvalidTransition) {
			t.Fatalf("second Complete error = %v, want ErrInvalidTransition", err)
		}
		if err := r.Fail(ctx, "a", "late", contractBase); !errors.Is(err, domain.ErrInvalidTransition) {
			t.Fatalf("Fail after done error = %v, want ErrInvalidTransition", err)
		}
	})

	t.Run("fail working job", func(t *testing.T) {
		r := newRepo(t)
		_ = r.Insert(ctx, contractJob("a", "x", 0))
		if _, err := r.TryClaim(ctx, "a", contractBase); err != nil {
			t.Fatalf("TryClaim: %v", err)
		}
		if err := r.Fail(ctx, "a", "generate: boom", contractBase); err != nil {
			t.Fatalf("Fail: %v", err)
		}
		got, _ := r.GetByID(ctx, "a")
		if got.Status != domain.JobStatusError || got.ErrorMessage == nil || *got.ErrorMessage != "generate: boom" {
			t.Fatalf("failed job = %+v", got)
		}
		ok, err := r.TryClaim(ctx, "a", contractBase)
		if err != nil || ok {
			t.Fatalf("errored job must not be claimable: %v, %v", ok, err)
		}
	})

	t.Run("transitions need a working job", func(t *testing.T) {
		r := newRepo(t)
		_ = r.Insert(ctx, contractJob("a", "x", 0))
		if err := r.Complete(ctx, "a", "ref", contractBase); !errors.Is(err, domain.ErrInvalidTransition) {
			t.Fatalf("Complete on queued error = %v, want ErrInvalidTransition", err)
		}
		if err := r.Fail(ctx, "missing", "msg", contractBase); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("Fail on missing error = %v, want ErrNotFound", err)
		}
	})

	t.Run("recent prompts", func(t *testing.T) {
		r := newRepo(t)
		_ = r.Insert(ctx, contractJob("old", "old prompt", -48*time.Hour))
		_ = r.Insert(ctx, contractJob("new", "new prompt", 0))
		got, err := r.RecentPrompts(ctx, contractBase.Add(-time.Hour))
		if err != nil {
			t.Fatalf("RecentPrompts: %v", err)
		}
		if len(got) != 1 || got[0] != "new prompt" {
			t.Fatalf("RecentPrompts = %v, want [new prompt]", got)
		}
	})

	t.Run("concurrent claims have one winner", func(t *testing.T) {
		r := newRepo(t)
		_ = r.Insert(ctx, contractJob("a", "x", 0))

		const workers = 8
		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			wins int
		)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ok, err := r.TryClaim(ctx, "a", contractBase)
				if err != nil {
					t.Errorf("TryClaim: %v", err)
					return
				}
				if ok {
					mu.Lock()
					wins++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		if wins != 1 {
			t.Fatalf("wins = %d, want 1", wins)
		}
	})
}
