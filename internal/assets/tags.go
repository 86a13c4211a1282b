package assets

import (
	"path"
	"sort"
	"strings"
)

// tagSynonyms folds known spelling variants onto one canonical tag.
var tagSynonyms = map[string]string{
	"spaceship":   "ship",
	"bg":          "background",
	"backgrounds": "background",
}

// droppedTags are structural folder names that say nothing about the art.
var droppedTags = map[string]struct{}{
	"spritesheet": {},
}

// promptStopwords never become want tags when they appear in a prompt.
var promptStopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "and": {}, "or": {}, "of": {}, "in": {},
	"on": {}, "at": {}, "to": {}, "with": {}, "for": {}, "from": {}, "by": {},
	"my": {}, "your": {}, "game": {}, "make": {}, "me": {}, "some": {},
	"is": {}, "it": {}, "that": {}, "this": {},
}

// NormalizeTag lowercases t, strips everything outside [a-z0-9] and applies
// the synonym table. The second return value is false when nothing usable
// remains.
func NormalizeTag(t string) (string, bool) {
	t = strings.ToLower(t)
	var b strings.Builder
	b.Grow(len(t))
	for i := 0; i < len(t); i++ {
		c := t[i]
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') {
			b.WriteByte(c)
		}
	}
	tag := b.String()
	if tag == "" {
		return "", false
	}
	if syn, ok := tagSynonyms[tag]; ok {
		tag = syn
	}
	if _, drop := droppedTags[tag]; drop {
		return "", false
	}
	return tag, true
}

// TagsForPath derives the tag set of an asset from its object path: every
// path segment plus the words of the file name without its extension.
func TagsForPath(p string) []string {
	segments := strings.Split(strings.ToLower(p), "/")
	words := make([]string, 0, len(segments)+4)
	words = append(words, segments...)

	name := segments[len(segments)-1]
	name = strings.TrimSuffix(name, path.Ext(name))
	words = append(words, splitWords(name)...)

	return normalizeAll(words)
}

// PromptTags derives heuristic want tags from free prompt text.
func PromptTags(prompt string) []string {
	fields := strings.FieldsFunc(strings.ToLower(prompt), func(r rune) bool {
		return !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'))
	})
	words := fields[:0]
	for _, f := range fields {
		if _, stop := promptStopwords[f]; stop {
			continue
		}
		words = append(words, f)
	}
	return normalizeAll(words)
}

// MergeTags normalizes and unions tag lists.
func MergeTags(lists ...[]string) []string {
	var all []string
	for _, l := range lists {
		all = append(all, l...)
	}
	return normalizeAll(all)
}

func splitWords(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		switch r {
		case '_', '-', ' ', '\t', '\n', '\r', '\v', '\f':
			return true
		}
		return false
	})
}

func normalizeAll(words []string) []string {
	seen := make(map[string]struct{}, len(words))
	out := make([]string, 0, len(words))
	for _, w := range words {
		tag, ok := NormalizeTag(w)
		if !ok {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}
