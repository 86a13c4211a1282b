package game

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"gamecre8/internal/domain"
)

type prefixResolver struct {
	base string
	err  error
}

func (r prefixResolver) ResolveURL(_ context.Context, path string) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	return r.base + path, nil
}

func fixedGenerator(resolver URLResolver) *TemplateGenerator {
	g := NewTemplateGenerator(resolver)
	g.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	g.suffix = func() string { return "abc123" }
	return g
}

func TestTemplateGeneratorBuildsEnvelope(t *testing.T) {
	g := fixedGenerator(prefixResolver{base: "https://cdn.test/"})
	got, err := g.Generate(context.Background(), Request{
		Prompt:          "  ninja in a lava cave ",
		SpritePath:      "Sprites/ninja.png",
		BackgroundPath:  "Backgrounds/lava.png",
		TagsUsed:        []string{"lava", "ninja"},
		BackgroundColor: "#ff4500",
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	want := &domain.Game{
		Slug:    "ninja-in-a-lava-cave-abc123",
		Version: 1,
		Title:   "Ninja In A Lava Cave",
		Prompt:  "ninja in a lava cave",
		Art: domain.GameArt{
			Sprite:        "Sprites/ninja.png",
			Background:    "Backgrounds/lava.png",
			SpriteURL:     "https://cdn.test/Sprites/ninja.png",
			BackgroundURL: "https://cdn.test/Backgrounds/lava.png",
		},
		BackgroundColor: "#ff4500",
		Tags:            []string{"lava", "ninja"},
		Physics:         domain.GamePhysics{Gravity: 9.8},
		Win:             "collect all coins",
		Lose:            "fall in lava",
		CreatedAt:       time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("game mismatch (-want +got):\n%s", diff)
	}
}

func TestTemplateGeneratorWithoutResolver(t *testing.T) {
	got, err := fixedGenerator(nil).Generate(context.Background(), Request{
		Prompt: "space", SpritePath: "a.png", BackgroundPath: "b.png",
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got.Art.SpriteURL != "" || got.Art.BackgroundURL != "" {
		t.Fatalf("expected empty urls, got %+v", got.Art)
	}
	if got.Tags == nil {
		t.Fatalf("tags must encode as an empty list, not null")
	}
}

func TestTemplateGeneratorErrors(t *testing.T) {
	ctx := context.Background()
	g := fixedGenerator(nil)
	if _, err := g.Generate(ctx, Request{Prompt: " ", SpritePath: "a.png", BackgroundPath: "b.png"}); !errors.Is(err, domain.ErrInvalidPrompt) {
		t.Fatalf("expected ErrInvalidPrompt, got %v", err)
	}
	if _, err := g.Generate(ctx, Request{Prompt: "x", SpritePath: "a.png"}); !errors.Is(err, domain.ErrNoAssets) {
		t.Fatalf("expected ErrNoAssets, got %v", err)
	}
	boom := errors.New("sign failed")
	_, err := fixedGenerator(prefixResolver{err: boom}).Generate(ctx, Request{Prompt: "x", SpritePath: "a.png", BackgroundPath: "b.png"})
	if !errors.Is(err, boom) || !strings.Contains(err.Error(), "resolve sprite url") {
		t.Fatalf("expected wrapped resolver error, got %v", err)
	}
}

func TestSlugBase(t *testing.T) {
	cases := map[string]string{
		"Ninja in a Lava Cave!":   "ninja-in-a-lava-cave",
		"  --Hello__World--  ":    "hello-world",
		"???":                     "game",
		"":                        "game",
		"café au lait":            "caf-au-lait",
		strings.Repeat("ab ", 40): strings.TrimRight(strings.Repeat("ab-", 16), "-"),
	}
	for in, want := range cases {
		if got := SlugBase(in); got != want {
			t.Errorf("SlugBase(%q) = %q, want %q", in, got, want)
		}
		if got := SlugBase(in); len(got) > 48 {
			t.Errorf("SlugBase(%q) too long: %d", in, len(got))
		}
	}
}

func TestRandomSuffixIsUnique(t *testing.T) {
	seen := map[string]struct{}{}
	for i := 0; i < 50; i++ {
		s := randomSuffix()
		if len(s) != 6 {
			t.Fatalf("suffix length %d", len(s))
		}
		seen[s] = struct{}{}
	}
	if len(seen) < 45 {
		t.Fatalf("suffixes collide too often: %d unique", len(seen))
	}
}

func TestValidSlug(t *testing.T) {
	for _, ok := range []string{"a", "ninja-abc123", NewSlug(strings.Repeat("z", 100), "ffffff")} {
		if !ValidSlug(ok) {
			t.Errorf("ValidSlug(%q) = false", ok)
		}
	}
	for _, bad := range []string{"", "../etc", "UPPER", "a b", strings.Repeat("a", 60)} {
		if ValidSlug(bad) {
			t.Errorf("ValidSlug(%q) = true", bad)
		}
	}
}
