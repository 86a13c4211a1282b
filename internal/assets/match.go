package assets

import (
	"fmt"
	"math/rand"
	"strings"

	"gamecre8/internal/domain"
)

const (
	exactMatchPoints   = 3
	partialMatchPoints = 1
)

// RandSource picks an index in [0, n). *math/rand.Rand satisfies it.
type RandSource interface {
	Intn(n int) int
}

type defaultRand struct{}

func (defaultRand) Intn(n int) int { return rand.Intn(n) }

// Score rates how well an asset's tags cover the wanted tags. Every
// (want, have) pair earns 3 for an exact match, or 1 when either tag
// contains the other.
func Score(have, want []string) int {
	score := 0
	for _, w := range want {
		for _, h := range have {
			switch {
			case w == h:
				score += exactMatchPoints
			case strings.Contains(h, w) || strings.Contains(w, h):
				score += partialMatchPoints
			}
		}
	}
	return score
}

// Selector chooses the best matching asset out of a candidate list.
type Selector struct {
	rand RandSource
}

// NewSelector returns a Selector drawing its zero-score fallback from src.
// A nil src uses the process-wide generator.
func NewSelector(src RandSource) *Selector {
	if src == nil {
		src = defaultRand{}
	}
	return &Selector{rand: src}
}

// Pick returns the highest scoring candidate. Among equal scores the
// earliest candidate wins. When nothing scores above zero, including an
// empty want list, a candidate is picked uniformly at random. ok is false
// only when candidates is empty.
func (s *Selector) Pick(candidates []domain.AssetRecord, want []string) (domain.AssetRecord, bool) {
	if len(candidates) == 0 {
		return domain.AssetRecord{}, false
	}
	best, bestScore := 0, 0
	for i, c := range candidates {
		if sc := Score(c.Tags, want); sc > bestScore {
			best, bestScore = i, sc
		}
	}
	if bestScore == 0 {
		return candidates[s.rand.Intn(len(candidates))], true
	}
	return candidates[best], true
}

// Selection is the art chosen for one prompt.
type Selection struct {
	Sprite     domain.AssetRecord `json:"sprite"`
	Background domain.AssetRecord `json:"background"`
	TagsUsed   []string           `json:"tags_used"`
}

// SelectArt picks a sprite and a background from m. A game needs both, so a
// manifest missing either kind yields domain.ErrNoAssets.
func (s *Selector) SelectArt(m *domain.Manifest, want []string) (Selection, error) {
	if m == nil {
		return Selection{}, domain.ErrNoAssets
	}
	sprite, ok := s.Pick(m.Sprites, want)
	if !ok {
		return Selection{}, fmt.Errorf("%w: no sprite candidates", domain.ErrNoAssets)
	}
	background, ok := s.Pick(m.Backgrounds, want)
	if !ok {
		return Selection{}, fmt.Errorf("%w: no background candidates", domain.ErrNoAssets)
	}
	return Selection{
		Sprite:     sprite,
		Background: background,
		TagsUsed:   append([]string(nil), want...),
	}, nil
}
