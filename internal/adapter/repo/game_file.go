package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"gamecre8/internal/domain"
	"gamecre8/internal/game"
)

const gamesPrefix = "games/"

// ObjectStore reads and writes whole objects by key. storage.FileStore
// satisfies it.
type ObjectStore interface {
	Write(ctx context.Context, key string, data []byte) (string, error)
	Read(ctx context.Context, key string) ([]byte, error)
}

// GameRepositoryFile stores each game as games/{slug}.json in an ObjectStore.
type GameRepositoryFile struct {
	store ObjectStore
}

// NewGameRepositoryFile creates a file backed game repository.
func NewGameRepositoryFile(store ObjectStore) *GameRepositoryFile {
	return &GameRepositoryFile{store: store}
}

// Save writes the game and returns its slug as the result reference.
func (r *GameRepositoryFile) Save(ctx context.Context, g *domain.Game) (string, error) {
	if g == nil || !game.ValidSlug(g.Slug) {
		return "", fmt.Errorf("save game: invalid slug")
	}
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return "", fmt.Errorf("save game: encode: %w", err)
	}
	if _, err := r.store.Write(ctx, gameKey(g.Slug), data); err != nil {
		return "", fmt.Errorf("save game: %w", err)
	}
	return g.Slug, nil
}

// GetBySlug loads a stored game.
func (r *GameRepositoryFile) GetBySlug(ctx context.Context, slug string) (*domain.Game, error) {
	if !game.ValidSlug(slug) {
		return nil, domain.ErrNotFound
	}
	data, err := r.store.Read(ctx, gameKey(slug))
	if err != nil {
		return nil, err
	}
	var g domain.Game
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("decode game %s: %w", slug, err)
	}
	return &g, nil
}

func gameKey(slug string) string {
	return gamesPrefix + slug + ".json"
}

var _ domain.GameRepository = (*GameRepositoryFile)(nil)
