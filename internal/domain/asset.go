package domain

import "time"

// AssetKind enumerates the art categories a game needs.
type AssetKind string

const (
	AssetKindSprite     AssetKind = "sprite"
	AssetKindBackground AssetKind = "background"
)

// AssetRecord is an image found in the asset store together with the tags
// derived from its path. Records are never mutated after construction.
type AssetRecord struct {
	Kind AssetKind `json:"kind"`
	Path string    `json:"path"`
	Tags []string  `json:"tags"`
}

// HasTag reports whether tag is one of the record's tags.
func (a AssetRecord) HasTag(tag string) bool {
	for _, t := range a.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Manifest is a point-in-time snapshot of every usable asset. A new manifest
// is built for each request; existing manifests are never patched.
type Manifest struct {
	GeneratedAt time.Time     `json:"generated_at"`
	Sprites     []AssetRecord `json:"sprites"`
	Backgrounds []AssetRecord `json:"backgrounds"`
}

// Counts returns the number of sprites and backgrounds in the manifest.
func (m *Manifest) Counts() (sprites, backgrounds int) {
	if m == nil {
		return 0, 0
	}
	return len(m.Sprites), len(m.Backgrounds)
}

// TagExtraction is what a tag extraction provider derived from a prompt.
type TagExtraction struct {
	Tags                     []string `json:"tags"`
	SuggestedBackgroundColor string   `json:"suggested_background_color,omitempty"`
	Provider                 string   `json:"provider,omitempty"`
	FallbackReason           string   `json:"fallback_reason,omitempty"`
}
