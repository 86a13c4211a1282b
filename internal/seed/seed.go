// Package seed loads prompt lists used to fill the queue in bulk.
package seed

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"gamecre8/internal/domain"
)

// DefaultKey is where the prompt list lives at the object store root.
const DefaultKey = "prompts.json"

// Reader fetches an object by key. storage.FileStore and
// storage.SupabaseBucket satisfy it.
type Reader interface {
	Read(ctx context.Context, key string) ([]byte, error)
}

// Source loads a prompt list from an object store.
type Source struct {
	reader Reader
	key    string
}

// NewSource reads key through reader. An empty key uses DefaultKey.
func NewSource(reader Reader, key string) *Source {
	if strings.TrimSpace(key) == "" {
		key = DefaultKey
	}
	return &Source{reader: reader, key: key}
}

// Key returns the object key the source reads.
func (s *Source) Key() string { return s.key }

// Load returns the prompts in the list. A missing list is reported as
// domain.ErrNotFound so callers can treat it as "nothing to seed".
func (s *Source) Load(ctx context.Context) ([]string, error) {
	if s == nil || s.reader == nil {
		return nil, fmt.Errorf("seed: %w", domain.ErrNotFound)
	}
	data, err := s.reader.Read(ctx, s.key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("seed: %s: %w", s.key, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("seed: read %s: %w", s.key, err)
	}
	return Parse(data)
}

// Parse decodes a JSON or YAML sequence. Items are either plain strings or
// mappings with a prompt field; blank items are dropped.
func Parse(data []byte) ([]string, error) {
	if strings.TrimSpace(string(data)) == "" {
		return nil, nil
	}
	var items []yaml.Node
	if err := yaml.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("seed: parse prompt list: %w", err)
	}
	prompts := make([]string, 0, len(items))
	for i := range items {
		p, err := promptOf(&items[i])
		if err != nil {
			return nil, err
		}
		if p = strings.TrimSpace(p); p != "" {
			prompts = append(prompts, p)
		}
	}
	return prompts, nil
}

func promptOf(n *yaml.Node) (string, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		return n.Value, nil
	case yaml.MappingNode:
		var item struct {
			Prompt string `yaml:"prompt"`
		}
		if err := n.Decode(&item); err != nil {
			return "", fmt.Errorf("seed: line %d: %w", n.Line, err)
		}
		return item.Prompt, nil
	default:
		return "", fmt.Errorf("seed: line %d: unsupported prompt entry", n.Line)
	}
}

// Default returns the built in demo prompts.
func Default() []string {
	return []string{
		"pastel cloud jumper",
		"galaxy defense blaster",
		"forest fox runner",
		"lava cavern escape",
		"retro neon city dash",
		"underwater coral surfer",
		"ice peak slider",
		"desert dune hop",
		"candy land bouncer",
		"cyber grid dodger",
		"pumpkin patch jumper",
		"space minefield drift",
		"sky island glide",
		"haunted mist runner",
		"jungle vine swing",
	}
}
