package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	postgrest "github.com/supabase-community/postgrest-go"

	"gamecre8/internal/domain"
	"gamecre8/internal/game"
)

const (
	gameStatusReady = "ready"
	gameColumns     = "slug,prompt,game_json,status,created_at"
)

// TableClient opens a PostgREST query on a table. Both *supabase.Client and
// *postgrest.Client satisfy it.
type TableClient interface {
	From(table string) *postgrest.QueryBuilder
}

type gameRow struct {
	Slug      string          `json:"slug"`
	Prompt    string          `json:"prompt"`
	GameJSON  json.RawMessage `json:"game_json"`
	Status    string          `json:"status"`
	CreatedAt *time.Time      `json:"created_at,omitempty"`
}

// GameRepositorySupabase stores games in a PostgREST table with one row per
// slug and the envelope in a JSON column.
type GameRepositorySupabase struct {
	client TableClient
	table  string
}

// NewGameRepositorySupabase creates a table backed game repository.
func NewGameRepositorySupabase(client TableClient, table string) *GameRepositorySupabase {
	if table == "" {
		table = "games"
	}
	return &GameRepositorySupabase{client: client, table: table}
}

// Save inserts the game row and returns the slug.
func (r *GameRepositorySupabase) Save(ctx context.Context, g *domain.Game) (string, error) {
	if g == nil || !game.ValidSlug(g.Slug) {
		return "", fmt.Errorf("save game: invalid slug")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	payload, err := json.Marshal(g)
	if err != nil {
		return "", fmt.Errorf("save game: encode: %w", err)
	}
	row := gameRow{Slug: g.Slug, Prompt: g.Prompt, GameJSON: payload, Status: gameStatusReady}
	if _, _, err := r.client.From(r.table).Insert(row, false, "", "minimal", "").Execute(); err != nil {
		return "", fmt.Errorf("save game: insert: %w", err)
	}
	return g.Slug, nil
}

// GetBySlug fetches the game row for slug.
func (r *GameRepositorySupabase) GetBySlug(ctx context.Context, slug string) (*domain.Game, error) {
	if !game.ValidSlug(slug) {
		return nil, domain.ErrNotFound
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rows []gameRow
	_, err := r.client.From(r.table).
		Select(gameColumns, "", false).
		Eq("slug", slug).
		Limit(1, "").
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("get game %s: %w", slug, err)
	}
	if len(rows) == 0 || len(rows[0].GameJSON) == 0 {
		return nil, domain.ErrNotFound
	}
	var g domain.Game
	if err := json.Unmarshal(rows[0].GameJSON, &g); err != nil {
		return nil, fmt.Errorf("decode game %s: %w", slug, err)
	}
	return &g, nil
}

var _ domain.GameRepository = (*GameRepositorySupabase)(nil)
