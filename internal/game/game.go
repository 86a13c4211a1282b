// Package game assembles the playable envelope stored for a prompt.
package game

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"gamecre8/internal/domain"
)

const (
	envelopeVersion = 1
	defaultGravity  = 9.8
	defaultWin      = "collect all coins"
	defaultLose     = "fall in lava"

	maxSlugBase  = 48
	fallbackSlug = "game"
	suffixBytes  = 3
)

// Request is everything the generator needs to build one game.
type Request struct {
	Prompt          string   `json:"prompt"`
	SpritePath      string   `json:"sprite_path"`
	BackgroundPath  string   `json:"background_path"`
	TagsUsed        []string `json:"tags_used"`
	BackgroundColor string   `json:"background_color,omitempty"`
}

// Generator turns a request into a game.
type Generator interface {
	Generate(ctx context.Context, req Request) (*domain.Game, error)
}

// URLResolver maps a storage path to a URL the player can load.
type URLResolver interface {
	ResolveURL(ctx context.Context, path string) (string, error)
}

// TemplateGenerator fills a fixed platformer template with the selected art.
type TemplateGenerator struct {
	resolver URLResolver
	now      func() time.Time
	suffix   func() string
}

// NewTemplateGenerator returns a generator resolving art URLs through resolver.
// A nil resolver leaves the URL fields empty.
func NewTemplateGenerator(resolver URLResolver) *TemplateGenerator {
	return &TemplateGenerator{
		resolver: resolver,
		now:      time.Now,
		suffix:   randomSuffix,
	}
}

// Generate implements Generator.
func (g *TemplateGenerator) Generate(ctx context.Context, req Request) (*domain.Game, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, domain.ErrInvalidPrompt
	}
	if req.SpritePath == "" || req.BackgroundPath == "" {
		return nil, domain.ErrNoAssets
	}
	art := domain.GameArt{Sprite: req.SpritePath, Background: req.BackgroundPath}
	if g.resolver != nil {
		var err error
		if art.SpriteURL, err = g.resolver.ResolveURL(ctx, req.SpritePath); err != nil {
			return nil, fmt.Errorf("resolve sprite url: %w", err)
		}
		if art.BackgroundURL, err = g.resolver.ResolveURL(ctx, req.BackgroundPath); err != nil {
			return nil, fmt.Errorf("resolve background url: %w", err)
		}
	}
	tags := append([]string{}, req.TagsUsed...)
	return &domain.Game{
		Slug:            NewSlug(prompt, g.suffix()),
		Version:         envelopeVersion,
		Title:           Title(prompt),
		Prompt:          prompt,
		Art:             art,
		BackgroundColor: req.BackgroundColor,
		Tags:            tags,
		Physics:         domain.GamePhysics{Gravity: defaultGravity},
		Win:             defaultWin,
		Lose:            defaultLose,
		CreatedAt:       g.now().UTC(),
	}, nil
}

// Title returns the prompt in title case.
func Title(prompt string) string {
	return cases.Title(language.English).String(strings.Join(strings.Fields(prompt), " "))
}

// SlugBase lowercases prompt, collapses every run of characters outside
// [a-z0-9] into a single hyphen and caps the result at 48 characters.
func SlugBase(prompt string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(prompt) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	base := b.String()
	if len(base) > maxSlugBase {
		base = strings.TrimRight(base[:maxSlugBase], "-")
	}
	if base == "" {
		return fallbackSlug
	}
	return base
}

// NewSlug joins the slug base of prompt with suffix.
func NewSlug(prompt, suffix string) string {
	base := SlugBase(prompt)
	if suffix == "" {
		return base
	}
	return base + "-" + suffix
}

// ValidSlug reports whether s only uses the characters NewSlug emits.
func ValidSlug(s string) bool {
	if s == "" || len(s) > maxSlugBase+1+2*suffixBytes {
		return false
	}
	for _, r := range s {
		if !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-') {
			return false
		}
	}
	return true
}

func randomSuffix() string {
	buf := make([]byte, suffixBytes)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%06x", time.Now().UnixNano()&0xffffff)
	}
	return hex.EncodeToString(buf)
}

var _ Generator = (*TemplateGenerator)(nil)
