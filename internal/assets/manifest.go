package assets

import (
	"context"
	"fmt"
	"time"

	"gamecre8/internal/domain"
)

var (
	// DefaultSpritePrefixes are the folders scanned for sprites when none are configured.
	DefaultSpritePrefixes = []string{"Spritesheet", "sprite", "Sprites", "PNG"}
	// DefaultBackgroundPrefixes are the folders scanned for backgrounds when none are configured.
	DefaultBackgroundPrefixes = []string{"Backgrounds"}
)

// ManifestSource produces manifests. The runner depends on this rather than
// on Builder so tests can hand it a fixed snapshot.
type ManifestSource interface {
	Build(ctx context.Context) (*domain.Manifest, error)
}

// Builder scans the configured prefixes and tags every image it finds.
type Builder struct {
	scanner            *Scanner
	spritePrefixes     []string
	backgroundPrefixes []string
	now                func() time.Time
}

// NewBuilder wires a Builder. Empty prefix lists fall back to the defaults.
func NewBuilder(scanner *Scanner, spritePrefixes, backgroundPrefixes []string) *Builder {
	if len(spritePrefixes) == 0 {
		spritePrefixes = DefaultSpritePrefixes
	}
	if len(backgroundPrefixes) == 0 {
		backgroundPrefixes = DefaultBackgroundPrefixes
	}
	return &Builder{
		scanner:            scanner,
		spritePrefixes:     append([]string(nil), spritePrefixes...),
		backgroundPrefixes: append([]string(nil), backgroundPrefixes...),
		now:                time.Now,
	}
}

// Build scans storage and returns a new manifest snapshot.
func (b *Builder) Build(ctx context.Context) (*domain.Manifest, error) {
	sprites, err := b.scanner.Scan(ctx, b.spritePrefixes)
	if err != nil {
		return nil, fmt.Errorf("scan sprites: %w", err)
	}
	backgrounds, err := b.scanner.Scan(ctx, b.backgroundPrefixes)
	if err != nil {
		return nil, fmt.Errorf("scan backgrounds: %w", err)
	}
	return NewManifest(b.now(), sprites, backgrounds), nil
}

// NewManifest tags the given paths and assembles a manifest from them.
func NewManifest(at time.Time, spritePaths, backgroundPaths []string) *domain.Manifest {
	return &domain.Manifest{
		GeneratedAt: at.UTC(),
		Sprites:     toRecords(domain.AssetKindSprite, spritePaths),
		Backgrounds: toRecords(domain.AssetKindBackground, backgroundPaths),
	}
}

func toRecords(kind domain.AssetKind, paths []string) []domain.AssetRecord {
	records := make([]domain.AssetRecord, 0, len(paths))
	for _, p := range paths {
		if !IsImage(p) {
			continue
		}
		records = append(records, domain.AssetRecord{
			Kind: kind,
			Path: p,
			Tags: TagsForPath(p),
		})
	}
	return records
}

// StaticSource always returns the same manifest.
type StaticSource struct {
	Manifest *domain.Manifest
}

// Build implements ManifestSource.
func (s StaticSource) Build(context.Context) (*domain.Manifest, error) {
	if s.Manifest == nil {
		return &domain.Manifest{}, nil
	}
	return s.Manifest, nil
}

var (
	_ ManifestSource = (*Builder)(nil)
	_ ManifestSource = StaticSource{}
)
