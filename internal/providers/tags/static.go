// Package tags derives asset tags from free-text prompts. StaticExtractor
// works offline from a keyword table, GeminiExtractor asks a Gemini model and
// falls back to another extractor on any failure, and CachedExtractor
// memoizes either of them.
package tags

import (
	"context"
	"strings"

	"gamecre8/internal/assets"
	"gamecre8/internal/domain"
)

const (
	staticProviderName = "static"
	geminiProviderName = "gemini"
)

type keywordRule struct {
	keyword string
	tags    []string
	color   string
}

// keywordRules is ordered; the first matching rule with a colour decides
// the suggested background colour.
var keywordRules = []keywordRule{
	{keyword: "ninja", tags: []string{"ninja", "character"}},
	{keyword: "lava", tags: []string{"lava", "fire"}, color: "#3b0a0a"},
	{keyword: "cloud", tags: []string{"cloud", "sky"}, color: "#bfe3ff"},
	{keyword: "space", tags: []string{"space", "ship", "star"}, color: "#0b0b2b"},
	{keyword: "rocket", tags: []string{"ship", "space"}, color: "#0b0b2b"},
	{keyword: "forest", tags: []string{"forest", "tree", "green"}, color: "#1f4d2b"},
	{keyword: "ocean", tags: []string{"water", "fish", "blue"}, color: "#0e4f7a"},
	{keyword: "underwater", tags: []string{"water", "fish"}, color: "#0e4f7a"},
	{keyword: "desert", tags: []string{"desert", "sand"}, color: "#e3c07a"},
	{keyword: "snow", tags: []string{"snow", "ice"}, color: "#eef6fb"},
	{keyword: "castle", tags: []string{"castle", "knight"}, color: "#5a5a6e"},
	{keyword: "robot", tags: []string{"robot", "metal"}},
	{keyword: "zombie", tags: []string{"zombie", "enemy"}, color: "#26331f"},
	{keyword: "pastel", tags: []string{"pastel"}, color: "#f7d6e6"},
	{keyword: "night", tags: []string{"night", "dark"}, color: "#10131f"},
	{keyword: "candy", tags: []string{"candy", "sweet"}, color: "#ffd1ec"},
}

// StaticExtractor matches prompts against a fixed keyword table.
type StaticExtractor struct{}

func NewStaticExtractor() *StaticExtractor {
	return &StaticExtractor{}
}

func (s *StaticExtractor) ExtractTags(_ context.Context, prompt string) (*domain.TagExtraction, error) {
	lower := strings.ToLower(prompt)
	var (
		found []string
		color string
	)
	for _, rule := range keywordRules {
		if !strings.Contains(lower, rule.keyword) {
			continue
		}
		found = append(found, rule.tags...)
		if color == "" {
			color = rule.color
		}
	}
	return &domain.TagExtraction{
		Tags:                     assets.MergeTags(found),
		SuggestedBackgroundColor: color,
		Provider:                 staticProviderName,
	}, nil
}

var _ assets.TagExtractor = (*StaticExtractor)(nil)
