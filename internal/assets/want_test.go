package assets

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"gamecre8/internal/domain"
)

type extractorFunc func(ctx context.Context, prompt string) (*domain.TagExtraction, error)

func (f extractorFunc) ExtractTags(ctx context.Context, prompt string) (*domain.TagExtraction, error) {
	return f(ctx, prompt)
}

func TestWantTagsMergesExtractor(t *testing.T) {
	ex := extractorFunc(func(ctx context.Context, prompt string) (*domain.TagExtraction, error) {
		return &domain.TagExtraction{Tags: []string{"Nebula", "space"}, SuggestedBackgroundColor: "#101028"}, nil
	})
	got := WantTags(context.Background(), "galaxy defense blaster", ex, zerolog.Nop())
	want := []string{"blaster", "defense", "galaxy", "nebula", "space"}
	if diff := cmp.Diff(want, got.Tags); diff != "" {
		t.Fatalf("WantTags mismatch (-want +got):\n%s", diff)
	}
	if got.BackgroundColor != "#101028" {
		t.Fatalf("BackgroundColor = %q, want #101028", got.BackgroundColor)
	}
}

func TestWantTagsDegradesToHeuristics(t *testing.T) {
	failing := extractorFunc(func(ctx context.Context, prompt string) (*domain.TagExtraction, error) {
		return nil, errors.New("model unavailable")
	})
	for name, ex := range map[string]TagExtractor{"nil extractor": nil, "failing extractor": failing} {
		t.Run(name, func(t *testing.T) {
			got := WantTags(context.Background(), "forest fox runner", ex, zerolog.Nop())
			want := []string{"forest", "fox", "runner"}
			if diff := cmp.Diff(want, got.Tags); diff != "" {
				t.Fatalf("WantTags mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
