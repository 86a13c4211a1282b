// Package bootstrap builds the service graph described by infra.Config.
// Every entrypoint goes through Build so the API, the worker and the CLI
// talk to the same queue, asset store and game store.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	supa "github.com/supabase-community/supabase-go"
	"golang.org/x/time/rate"

	"gamecre8/internal/adapter/repo"
	"gamecre8/internal/assets"
	"gamecre8/internal/domain"
	"gamecre8/internal/game"
	"gamecre8/internal/http/handlers"
	"gamecre8/internal/infra"
	"gamecre8/internal/providers/tags"
	"gamecre8/internal/queue"
	"gamecre8/internal/runner"
	"gamecre8/internal/seed"
	"gamecre8/internal/storage"
)

// Services is the wired application.
type Services struct {
	Config    *infra.Config
	Logger    infra.Logger
	Queue     *queue.Queue
	Runner    *runner.Runner
	Manifests *assets.Builder
	Games     domain.GameRepository
	Seeds     *seed.Source
	// AssetsDir is the local asset root, empty when assets live in Supabase.
	AssetsDir string

	closers []func() error
}

// Build opens every backend named by cfg. Callers must Close the result.
func Build(ctx context.Context, cfg *infra.Config, logger infra.Logger) (*Services, error) {
	s := &Services{Config: cfg, Logger: logger}
	if err := s.build(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Services) build(ctx context.Context) error {
	cfg := s.Config

	var client *supa.Client
	if cfg.NeedsSupabase() {
		var err error
		if client, err = infra.NewSupabaseClient(cfg); err != nil {
			return err
		}
	}

	store, err := s.queueRepository(ctx)
	if err != nil {
		return err
	}
	queueLogger := s.Logger.With().Str("component", "queue").Logger()
	s.Queue = queue.New(store, queue.Options{DedupWindow: cfg.QueueDedupWindow, Logger: &queueLogger})

	var (
		files  *storage.FileStore
		bucket *storage.SupabaseBucket
		lister assets.Lister
		reader seed.Reader
	)
	if cfg.AssetsSource == infra.SourceLocal || cfg.GameStore == infra.GameStoreFile {
		if files, err = storage.NewFileStore(cfg.StoragePath); err != nil {
			return err
		}
	}
	if cfg.AssetsSource == infra.SourceSupabase {
		bucket = storage.NewSupabaseBucket(client.Storage, cfg.SupabaseBucket, cfg.SignedURLTTL)
		lister, reader = bucket, bucket
	} else {
		lister, reader = files, files
		s.AssetsDir = files.BasePath()
	}

	scanLogger := s.Logger.With().Str("component", "scanner").Logger()
	scanOpts := assets.ScannerOptions{MaxDepth: cfg.ScanMaxDepth, Concurrency: cfg.ScanConcurrency, Logger: &scanLogger}
	if cfg.ScanRatePerSecond > 0 {
		scanOpts.Limiter = rate.NewLimiter(rate.Limit(cfg.ScanRatePerSecond), cfg.ScanRatePerSecond)
	}
	s.Manifests = assets.NewBuilder(assets.NewScanner(lister, scanOpts), cfg.SpritePrefixes, cfg.BackgroundPrefixes)
	s.Seeds = seed.NewSource(reader, cfg.SeedPath)

	if cfg.GameStore == infra.GameStoreSupabase {
		s.Games = repo.NewGameRepositorySupabase(client, cfg.SupabaseGamesTable)
	} else {
		s.Games = repo.NewGameRepositoryFile(files)
	}

	extractor, err := s.tagExtractor(ctx)
	if err != nil {
		return err
	}

	runLogger := s.Logger.With().Str("component", "runner").Logger()
	runOpts := runner.Options{Concurrency: cfg.RunnerConcurrency, Extractor: extractor, Logger: &runLogger}
	if cfg.RunnerRatePerMinute > 0 {
		runOpts.Limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RunnerRatePerMinute)), 1)
	}
	generator := game.NewTemplateGenerator(s.urlResolver(bucket))
	s.Runner = runner.New(s.Queue, s.Manifests, generator, s.Games, runOpts)
	return nil
}

func (s *Services) queueRepository(ctx context.Context) (domain.PromptQueueRepository, error) {
	cfg := s.Config
	switch cfg.QueueBackend {
	case infra.QueueBackendPostgres:
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		s.onClose(func() error { pool.Close(); return nil })
		r := repo.NewPromptQueueRepository(infra.NewSQLRunner(pool, s.Logger))
		if err := r.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return r, nil
	case infra.QueueBackendSQLite:
		db, err := infra.NewSQLiteDB(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		s.onClose(db.Close)
		return repo.NewSQLitePromptQueueRepository(ctx, db)
	case infra.QueueBackendRedis:
		rdb, err := infra.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		s.onClose(rdb.Close)
		return repo.NewRedisPromptQueueRepository(rdb, cfg.RedisNamespace)
	case infra.QueueBackendMemory, "":
		return repo.NewMemoryQueueRepository(), nil
	default:
		return nil, fmt.Errorf("bootstrap: unknown queue backend %q", cfg.QueueBackend)
	}
}

// tagExtractor stacks the cache over Gemini, or over the keyword table when
// no API key is configured.
func (s *Services) tagExtractor(ctx context.Context) (assets.TagExtractor, error) {
	cfg := s.Config
	var base assets.TagExtractor = tags.NewStaticExtractor()
	if cfg.GeminiAPIKey != "" {
		logger := s.Logger.With().Str("component", "tags").Logger()
		gemini, err := tags.NewGeminiExtractor(ctx, tags.GeminiOptions{
			APIKey: cfg.GeminiAPIKey,
			Model:  cfg.GeminiModel,
			OnFallback: func(reason string, err error) {
				logger.Warn().Err(err).Str("reason", reason).Msg("tags: gemini fallback")
			},
		})
		if err != nil {
			return nil, err
		}
		s.onClose(gemini.Close)
		base = gemini
	}
	return tags.NewCachedExtractor(base, cfg.TagCacheTTL), nil
}

func (s *Services) urlResolver(bucket *storage.SupabaseBucket) game.URLResolver {
	cfg := s.Config
	switch {
	case cfg.PublicAssetBaseURL != "":
		return storage.PublicURLResolver{BaseURL: cfg.PublicAssetBaseURL}
	case bucket != nil:
		return bucket
	case cfg.ServeAssets && cfg.PublicSiteURL != "":
		return storage.PublicURLResolver{BaseURL: strings.TrimRight(cfg.PublicSiteURL, "/") + "/assets"}
	default:
		return nil
	}
}

// App exposes the services to the HTTP handlers.
func (s *Services) App() *handlers.App {
	logger := s.Logger
	return &handlers.App{
		Queue:         s.Queue,
		Runner:        s.Runner,
		Manifests:     s.Manifests,
		Games:         s.Games,
		Seeds:         s.Seeds,
		Logger:        &logger,
		BatchSize:     s.Config.RunnerBatchSize,
		PublicSiteURL: s.Config.PublicSiteURL,
	}
}

func (s *Services) onClose(fn func() error) {
	s.closers = append(s.closers, fn)
}

// Close releases backends in reverse order of opening.
func (s *Services) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
