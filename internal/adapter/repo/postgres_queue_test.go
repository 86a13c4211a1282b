package repo

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"gamecre8/internal/domain"
	"gamecre8/internal/sqlinline"
)

type recordedCall struct {
	query string
	args  []any
}

// stubExecutor answers queries by their sqlinline constant.
type stubExecutor struct {
	calls    []recordedCall
	execTags map[string]string
	rows     map[string][][]any
	execErr  error
}

func (s *stubExecutor) Exec(_ context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	s.calls = append(s.calls, recordedCall{query: query, args: args})
	if s.execErr != nil {
		return pgconn.CommandTag{}, s.execErr
	}
	return pgconn.NewCommandTag(s.execTags[query]), nil
}

func (s *stubExecutor) QueryRow(_ context.Context, query string, args ...any) pgx.Row {
	s.calls = append(s.calls, recordedCall{query: query, args: args})
	data := s.rows[query]
	if len(data) == 0 {
		return stubRow{}
	}
	return stubRow{values: data[0]}
}

func (s *stubExecutor) Query(_ context.Context, query string, args ...any) (pgx.Rows, error) {
	s.calls = append(s.calls, recordedCall{query: query, args: args})
	return &stubRows{data: s.rows[query], idx: -1}, nil
}

type stubRow struct {
	values []any
}

func (r stubRow) Scan(dest ...any) error {
	if r.values == nil {
		return pgx.ErrNoRows
	}
	return assignValues(r.values, dest)
}

type stubRows struct {
	data [][]any
	idx  int
}

func (r *stubRows) Close()                                       {}
func (r *stubRows) Err() error                                   { return nil }
func (r *stubRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *stubRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *stubRows) Values() ([]any, error) {
	return nil, fmt.Errorf("values not supported in test rows")
}
func (r *stubRows) RawValues() [][]byte { return nil }
func (r *stubRows) Conn() *pgx.Conn     { return nil }

func (r *stubRows) Next() bool {
	r.idx++
	return r.idx < len(r.data)
}

func (r *stubRows) Scan(dest ...any) error {
	return assignValues(r.data[r.idx], dest)
}

func assignValues(values []any, dest []any) error {
	if len(values) != len(dest) {
		return fmt.Errorf("scan: got %d values for %d destinations", len(values), len(dest))
	}
	for i, v := range values {
		switch d := dest[i].(type) {
		case *string:
			*d = v.(string)
		case *time.Time:
			*d = v.(time.Time)
		case **string:
			if v == nil {
				*d = nil
			} else {
				s := v.(string)
				*d = &s
			}
		default:
			return fmt.Errorf("scan: unsupported destination %T", dest[i])
		}
	}
	return nil
}

func jobRow(id, status string, ref any) []any {
	return []any{id, "Space Ninja", "space ninja", status, contractBase, contractBase, ref, nil}
}

func TestPromptQueueRepositoryPGTryClaim(t *testing.T) {
	ctx := context.Background()
	db := &stubExecutor{execTags: map[string]string{sqlinline.QPromptQueueClaim: "UPDATE 1"}}
	r := NewPromptQueueRepository(db)

	ok, err := r.TryClaim(ctx, "job-1", contractBase)
	if err != nil || !ok {
		t.Fatalf("TryClaim = %v, %v; want true", ok, err)
	}
	if got := db.calls[0]; got.query != sqlinline.QPromptQueueClaim || got.args[0] != "job-1" {
		t.Fatalf("unexpected call: %+v", got)
	}

	db.execTags[sqlinline.QPromptQueueClaim] = "UPDATE 0"
	ok, err = r.TryClaim(ctx, "job-1", contractBase)
	if err != nil || ok {
		t.Fatalf("TryClaim on lost race = %v, %v; want false, nil", ok, err)
	}
}

func TestPromptQueueRepositoryPGCompleteWrongState(t *testing.T) {
	db := &stubExecutor{
		execTags: map[string]string{sqlinline.QPromptQueueComplete: "UPDATE 0"},
		rows:     map[string][][]any{sqlinline.QPromptQueueGet: {jobRow("job-1", "done", "slug")}},
	}
	r := NewPromptQueueRepository(db)

	err := r.Complete(context.Background(), "job-1", "other", contractBase)
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("Complete error = %v, want ErrInvalidTransition", err)
	}
}

func TestPromptQueueRepositoryPGFailMissing(t *testing.T) {
	db := &stubExecutor{execTags: map[string]string{sqlinline.QPromptQueueFail: "UPDATE 0"}}
	r := NewPromptQueueRepository(db)

	err := r.Fail(context.Background(), "ghost", "boom", contractBase)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Fail error = %v, want ErrNotFound", err)
	}
}

func TestPromptQueueRepositoryPGListQueued(t *testing.T) {
	db := &stubExecutor{rows: map[string][][]any{
		sqlinline.QPromptQueueListQueued: {
			jobRow("a", "queued", nil),
			jobRow("b", "queued", nil),
		},
	}}
	r := NewPromptQueueRepository(db)

	jobs, err := r.ListQueued(context.Background(), 5)
	if err != nil {
		t.Fatalf("ListQueued: %v", err)
	}
	if len(jobs) != 2 || jobs[0].ID != "a" || jobs[1].Status != domain.JobStatusQueued {
		t.Fatalf("ListQueued = %+v", jobs)
	}
	if db.calls[0].args[0] != 5 {
		t.Fatalf("limit arg = %v, want 5", db.calls[0].args[0])
	}
}

func TestPromptQueueRepositoryPGGetByID(t *testing.T) {
	db := &stubExecutor{rows: map[string][][]any{
		sqlinline.QPromptQueueGet: {jobRow("a", "done", "space-ninja-x1")},
	}}
	r := NewPromptQueueRepository(db)

	job, err := r.GetByID(context.Background(), "a")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if job.ResultRef == nil || *job.ResultRef != "space-ninja-x1" || job.ErrorMessage != nil {
		t.Fatalf("unexpected job: %+v", job)
	}

	empty := NewPromptQueueRepository(&stubExecutor{})
	if _, err := empty.GetByID(context.Background(), "a"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("GetByID error = %v, want ErrNotFound", err)
	}
}

func TestPromptQueueRepositoryPGInsertPassesExecErrors(t *testing.T) {
	boom := errors.New("connection reset")
	r := NewPromptQueueRepository(&stubExecutor{execErr: boom})
	if err := r.Insert(context.Background(), contractJob("a", "x", 0)); !errors.Is(err, boom) {
		t.Fatalf("Insert error = %v, want %v", err, boom)
	}
}

func TestPromptQueueRepositoryPGRecentPrompts(t *testing.T) {
	db := &stubExecutor{rows: map[string][][]any{
		sqlinline.QPromptQueueRecent: {{"space ninja"}, {"lava run"}},
	}}
	r := NewPromptQueueRepository(db)

	got, err := r.RecentPrompts(context.Background(), contractBase)
	if err != nil {
		t.Fatalf("RecentPrompts: %v", err)
	}
	if len(got) != 2 || got[1] != "lava run" {
		t.Fatalf("RecentPrompts = %v", got)
	}
}
