package assets

import (
	"context"
	"testing"
	"time"
)

func TestManifestEndToEndSelection(t *testing.T) {
	l := newFakeLister()
	l.file("Spritesheet", "ship_red.png", 10)
	l.file("Backgrounds", "space_nebula.png", 10)
	l.file("Backgrounds", "forest_day.png", 10)

	b := NewBuilder(NewScanner(l, ScannerOptions{}), []string{"Spritesheet"}, []string{"Backgrounds"})
	fixed := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return fixed }

	m, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if !m.GeneratedAt.Equal(fixed) {
		t.Fatalf("GeneratedAt = %v, want %v", m.GeneratedAt, fixed)
	}
	if s, bg := m.Counts(); s != 1 || bg != 2 {
		t.Fatalf("Counts = %d sprites, %d backgrounds; want 1, 2", s, bg)
	}

	want := []string{"space"}
	sel := NewSelector(&sequenceRand{})
	bg, ok := sel.Pick(m.Backgrounds, want)
	if !ok {
		t.Fatal("Pick returned no background")
	}
	if bg.Path != "Backgrounds/space_nebula.png" {
		t.Fatalf("background = %q, want Backgrounds/space_nebula.png", bg.Path)
	}
	if score := Score(bg.Tags, want); score < 3 {
		t.Fatalf("selected background score = %d, want >= 3", score)
	}
	for _, r := range m.Backgrounds {
		if r.Path != bg.Path && Score(r.Tags, want) >= Score(bg.Tags, want) {
			t.Fatalf("%q scores as high as the selected background", r.Path)
		}
	}
}

func TestBuildUsesDefaultPrefixes(t *testing.T) {
	l := newFakeLister()
	l.file("PNG", "hero.png", 1)
	l.file("Backgrounds", "sky.png", 1)

	m, err := NewBuilder(NewScanner(l, ScannerOptions{}), nil, nil).Build(context.Background())
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if len(m.Sprites) != 1 || m.Sprites[0].Path != "PNG/hero.png" {
		t.Fatalf("Sprites = %+v, want PNG/hero.png", m.Sprites)
	}
	if len(m.Backgrounds) != 1 || !m.Backgrounds[0].HasTag("sky") {
		t.Fatalf("Backgrounds = %+v, want sky background", m.Backgrounds)
	}
}

func TestStaticSourceReturnsEmptyManifest(t *testing.T) {
	m, err := StaticSource{}.Build(context.Background())
	if err != nil || m == nil {
		t.Fatalf("StaticSource.Build = %v, %v", m, err)
	}
}
