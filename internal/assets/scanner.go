package assets

import (
	"context"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"gamecre8/internal/infra"
)

const (
	// DefaultMaxDepth bounds how many folder levels below a root prefix are walked.
	DefaultMaxDepth = 16
	// DefaultScanConcurrency is the number of root prefixes walked in parallel.
	DefaultScanConcurrency = 4
)

var imageExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".gif":  {},
	".webp": {},
}

// Entry is one child returned by a storage listing. Size is nil for folders.
type Entry struct {
	Name string
	Size *int64
}

// IsFolder reports whether the entry has no byte size and therefore names a
// folder to descend into.
func (e Entry) IsFolder() bool {
	return e.Size == nil
}

// Lister lists the direct children of a prefix in an object tree.
type Lister interface {
	List(ctx context.Context, prefix string) ([]Entry, error)
}

// ScannerOptions tunes a Scanner.
type ScannerOptions struct {
	MaxDepth    int
	Concurrency int
	// Limiter, when set, paces listing calls against the storage backend.
	Limiter *rate.Limiter
	Logger  *infra.Logger
}

// Scanner walks object trees and collects image paths.
type Scanner struct {
	lister      Lister
	maxDepth    int
	concurrency int
	limiter     *rate.Limiter
	logger      zerolog.Logger
}

// NewScanner builds a Scanner reading through lister.
func NewScanner(lister Lister, opts ScannerOptions) *Scanner {
	s := &Scanner{
		lister:      lister,
		maxDepth:    opts.MaxDepth,
		concurrency: opts.Concurrency,
		limiter:     opts.Limiter,
		logger:      zerolog.Nop(),
	}
	if s.maxDepth <= 0 {
		s.maxDepth = DefaultMaxDepth
	}
	if s.concurrency <= 0 {
		s.concurrency = DefaultScanConcurrency
	}
	if opts.Logger != nil {
		s.logger = *opts.Logger
	}
	return s
}

// IsImage reports whether p has one of the supported image extensions.
func IsImage(p string) bool {
	_, ok := imageExtensions[strings.ToLower(path.Ext(p))]
	return ok
}

// Scan returns the deduplicated, sorted image paths found under prefixes.
//
// A listing failure only drops the affected subtree; the rest of the scan
// carries on and the partial result is returned without error. The only
// error Scan reports is cancellation of ctx.
func (s *Scanner) Scan(ctx context.Context, prefixes []string) ([]string, error) {
	var (
		mu   sync.Mutex
		seen = make(map[string]struct{})
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, prefix := range prefixes {
		prefix := strings.Trim(strings.TrimSpace(prefix), "/")
		g.Go(func() error {
			found, err := s.walk(gctx, prefix)
			mu.Lock()
			for _, p := range found {
				seen[p] = struct{}{}
			}
			mu.Unlock()
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}

type pendingPrefix struct {
	prefix string
	depth  int
}

// walk traverses one root with an explicit work list instead of recursion.
func (s *Scanner) walk(ctx context.Context, root string) ([]string, error) {
	var found []string
	work := []pendingPrefix{{prefix: root}}
	for len(work) > 0 {
		if err := ctx.Err(); err != nil {
			return found, err
		}
		next := work[len(work)-1]
		work = work[:len(work)-1]

		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return found, err
			}
		}
		entries, err := s.lister.List(ctx, next.prefix)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return found, ctxErr
			}
			s.logger.Warn().Err(err).Str("prefix", next.prefix).Msg("assets: listing failed, skipping subtree")
			continue
		}

		for _, entry := range entries {
			if entry.Name == "" {
				continue
			}
			child := joinPrefix(next.prefix, entry.Name)
			if entry.IsFolder() {
				if next.depth+1 > s.maxDepth {
					s.logger.Warn().Str("prefix", child).Int("max_depth", s.maxDepth).Msg("assets: depth limit reached, skipping folder")
					continue
				}
				work = append(work, pendingPrefix{prefix: child, depth: next.depth + 1})
				continue
			}
			if IsImage(child) {
				found = append(found, child)
			}
		}
	}
	return found, nil
}

func joinPrefix(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}
