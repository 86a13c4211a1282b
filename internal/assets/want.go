package assets

import (
	"context"

	"github.com/rs/zerolog"

	"gamecre8/internal/domain"
)

// TagExtractor derives descriptive tags from a prompt, typically by asking a
// language model.
type TagExtractor interface {
	ExtractTags(ctx context.Context, prompt string) (*domain.TagExtraction, error)
}

// Want holds the want tags for one matching attempt.
type Want struct {
	Tags            []string
	BackgroundColor string
}

// WantTags combines heuristic prompt tags with whatever extractor returns.
// A nil extractor, an extractor error or an empty result all leave the
// heuristic tags in place.
func WantTags(ctx context.Context, prompt string, extractor TagExtractor, logger zerolog.Logger) Want {
	want := Want{Tags: PromptTags(prompt)}
	if extractor == nil {
		return want
	}
	extracted, err := extractor.ExtractTags(ctx, prompt)
	if err != nil {
		logger.Warn().Err(err).Msg("assets: tag extraction failed, using prompt heuristics")
		return want
	}
	if extracted == nil {
		return want
	}
	want.Tags = MergeTags(want.Tags, extracted.Tags)
	want.BackgroundColor = extracted.SuggestedBackgroundColor
	return want
}
