package tags

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"gamecre8/internal/assets"
	"gamecre8/internal/domain"
)

const (
	geminiDefaultModel   = "gemini-1.5-flash"
	geminiDefaultTimeout = 15 * time.Second
	geminiMaxTags        = 12
)

// contentGenerator is the part of *genai.GenerativeModel the extractor calls.
type contentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

type GeminiOptions struct {
	APIKey  string
	Model   string
	Timeout time.Duration
	// Fallback answers whenever Gemini cannot. Defaults to StaticExtractor.
	Fallback   assets.TagExtractor
	OnFallback func(reason string, err error)
}

type GeminiExtractor struct {
	client     *genai.Client
	model      contentGenerator
	timeout    time.Duration
	fallback   assets.TagExtractor
	onFallback func(reason string, err error)
}

type geminiTagPayload struct {
	Tags                     []string `json:"tags"`
	SuggestedBackgroundColor string   `json:"suggestedBackgroundColor"`
}

func NewGeminiExtractor(ctx context.Context, opts GeminiOptions) (*GeminiExtractor, error) {
	if opts.APIKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(opts.APIKey))
	if err != nil {
		return nil, fmt.Errorf("init gemini client: %w", err)
	}
	name := strings.TrimSpace(opts.Model)
	if name == "" {
		name = geminiDefaultModel
	}
	model := client.GenerativeModel(name)
	model.ResponseMIMEType = "application/json"
	model.SetTemperature(0.2)

	g := newGeminiExtractor(model, opts)
	g.client = client
	return g, nil
}

func newGeminiExtractor(model contentGenerator, opts GeminiOptions) *GeminiExtractor {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = geminiDefaultTimeout
	}
	fallback := opts.Fallback
	if fallback == nil {
		fallback = NewStaticExtractor()
	}
	return &GeminiExtractor{
		model:      model,
		timeout:    timeout,
		fallback:   fallback,
		onFallback: opts.OnFallback,
	}
}

// Close releases the underlying client connection.
func (g *GeminiExtractor) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

func (g *GeminiExtractor) ExtractTags(ctx context.Context, prompt string) (*domain.TagExtraction, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.model.GenerateContent(callCtx, genai.Text(buildTagPrompt(prompt)))
	if err != nil {
		return g.useFallback(ctx, prompt, "generate", err)
	}
	text := responseText(resp)
	if text == "" {
		return g.useFallback(ctx, prompt, "empty_response", nil)
	}
	parsed, err := parseModelPayload[geminiTagPayload](text)
	if err != nil {
		return g.useFallback(ctx, prompt, "parse", err)
	}
	tags := assets.MergeTags(parsed.Tags)
	if len(tags) == 0 {
		return g.useFallback(ctx, prompt, "no_tags", nil)
	}
	if len(tags) > geminiMaxTags {
		tags = tags[:geminiMaxTags]
	}
	return &domain.TagExtraction{
		Tags:                     tags,
		SuggestedBackgroundColor: normalizeColor(parsed.SuggestedBackgroundColor),
		Provider:                 geminiProviderName,
	}, nil
}

func (g *GeminiExtractor) useFallback(ctx context.Context, prompt, reason string, cause error) (*domain.TagExtraction, error) {
	if g.onFallback != nil {
		g.onFallback(reason, cause)
	}
	res, err := g.fallback.ExtractTags(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: gemini %s, fallback: %v", domain.ErrProviderFailure, reason, err)
	}
	if res != nil {
		res.FallbackReason = reason
	}
	return res, nil
}

func buildTagPrompt(prompt string) string {
	sb := &strings.Builder{}
	sb.WriteString("You pick art for a tiny 2D arcade game. Respond strictly with JSON matching this schema: ")
	sb.WriteString(`{"tags":string[],"suggestedBackgroundColor":string}`)
	fmt.Fprintf(sb, ". tags are up to %d single lowercase words naming characters, objects, places or moods that sprite and background filenames might contain (e.g. ship, ninja, lava, forest, space). suggestedBackgroundColor is a #rrggbb hex colour. Game idea: %q", geminiMaxTags, prompt)
	return sb.String()
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	sb := &strings.Builder{}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if txt, ok := part.(genai.Text); ok {
				sb.WriteString(string(txt))
			}
		}
		if sb.Len() > 0 {
			break
		}
	}
	return strings.TrimSpace(sb.String())
}

// normalizeColor keeps #rgb and #rrggbb values and drops anything else.
func normalizeColor(c string) string {
	c = strings.ToLower(strings.TrimSpace(c))
	if c != "" && !strings.HasPrefix(c, "#") {
		c = "#" + c
	}
	if len(c) != 4 && len(c) != 7 {
		return ""
	}
	for _, r := range c[1:] {
		if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'f') {
			return ""
		}
	}
	return c
}

var _ assets.TagExtractor = (*GeminiExtractor)(nil)
