package seed

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"gamecre8/internal/domain"
)

type mapReader map[string]string

func (m mapReader) Read(_ context.Context, key string) ([]byte, error) {
	v, ok := m[key]
	if !ok {
		return nil, fmt.Errorf("object %s: %w", key, domain.ErrNotFound)
	}
	return []byte(v), nil
}

type failingReader struct{ err error }

func (f failingReader) Read(context.Context, string) ([]byte, error) { return nil, f.err }

func TestParseFormats(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want []string
	}{
		{"json strings", `["ninja lava", " space rocket "]`, []string{"ninja lava", "space rocket"}},
		{"json objects", `[{"prompt":"ninja lava"},{"prompt":""},{"other":1}]`, []string{"ninja lava"}},
		{"mixed", `["a", {"prompt": "b"}]`, []string{"a", "b"}},
		{"yaml", "- forest fox\n- prompt: ocean surfer\n", []string{"forest fox", "ocean surfer"}},
		{"empty", "  ", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Parse([]byte(tc.in))
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if len(got) == 0 && len(tc.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestParseRejectsNonList(t *testing.T) {
	for _, in := range []string{`{"prompt":"x"}`, `[[1,2]]`, `[`} {
		if _, err := Parse([]byte(in)); err == nil {
			t.Errorf("Parse(%q) expected error", in)
		}
	}
}

func TestSourceLoad(t *testing.T) {
	src := NewSource(mapReader{"prompts.json": `["a","b"]`}, "")
	if src.Key() != DefaultKey {
		t.Fatalf("unexpected key %q", src.Key())
	}
	got, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("unexpected prompts %v", got)
	}
}

func TestSourceLoadMissing(t *testing.T) {
	_, err := NewSource(mapReader{}, "seed.yaml").Load(context.Background())
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	_, err = NewSource(nil, "").Load(context.Background())
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound without reader, got %v", err)
	}
}

func TestSourceLoadReadError(t *testing.T) {
	boom := errors.New("network down")
	_, err := NewSource(failingReader{err: boom}, "").Load(context.Background())
	if !errors.Is(err, boom) || errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected wrapped read error, got %v", err)
	}
}

func TestDefaultPrompts(t *testing.T) {
	prompts := Default()
	if len(prompts) != 15 {
		t.Fatalf("expected 15 demo prompts, got %d", len(prompts))
	}
	prompts[0] = "changed"
	if Default()[0] == "changed" {
		t.Fatalf("Default must return a fresh slice")
	}
}
