package tags

import (
	"context"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"gamecre8/internal/assets"
	"gamecre8/internal/domain"
)

// CachedExtractor memoizes another extractor per normalized prompt.
// Failures are not cached.
type CachedExtractor struct {
	next  assets.TagExtractor
	cache *cache.Cache
}

func NewCachedExtractor(next assets.TagExtractor, ttl time.Duration) *CachedExtractor {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &CachedExtractor{
		next:  next,
		cache: cache.New(ttl, 2*ttl),
	}
}

func (c *CachedExtractor) ExtractTags(ctx context.Context, prompt string) (*domain.TagExtraction, error) {
	key := strings.ToLower(strings.TrimSpace(prompt))
	if v, ok := c.cache.Get(key); ok {
		return cloneExtraction(v.(*domain.TagExtraction)), nil
	}
	res, err := c.next.ExtractTags(ctx, prompt)
	if err != nil || res == nil {
		return res, err
	}
	// Fallback answers are not worth pinning for the whole TTL.
	if res.FallbackReason == "" {
		c.cache.SetDefault(key, cloneExtraction(res))
	}
	return res, nil
}

func cloneExtraction(e *domain.TagExtraction) *domain.TagExtraction {
	c := *e
	c.Tags = append([]string(nil), e.Tags...)
	return &c
}

var _ assets.TagExtractor = (*CachedExtractor)(nil)
