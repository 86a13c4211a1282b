package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Queue backends accepted by QUEUE_BACKEND.
const (
	QueueBackendMemory   = "memory"
	QueueBackendPostgres = "postgres"
	QueueBackendSQLite   = "sqlite"
	QueueBackendRedis    = "redis"
)

// Asset sources accepted by ASSETS_SOURCE and game stores accepted by GAME_STORE.
const (
	SourceSupabase    = "supabase"
	SourceLocal       = "local"
	GameStoreFile     = "file"
	GameStoreSupabase = "supabase"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv string
	Port   string

	QueueBackend     string
	DatabaseURL      string
	SQLitePath       string
	RedisURL         string
	RedisNamespace   string
	QueueDedupWindow time.Duration

	SupabaseURL         string
	SupabaseServiceRole string
	SupabaseBucket      string
	SupabaseGamesTable  string
	AssetsSource        string
	StoragePath         string
	SignedURLTTL        time.Duration
	PublicAssetBaseURL  string

	SpritePrefixes     []string
	BackgroundPrefixes []string
	ScanMaxDepth       int
	ScanConcurrency    int
	ScanRatePerSecond  int

	RunnerBatchSize     int
	RunnerConcurrency   int
	RunnerRatePerMinute int
	WorkerPollInterval  time.Duration

	GeminiAPIKey string
	GeminiModel  string
	TagCacheTTL  time.Duration

	GameStore     string
	PublicSiteURL string
	SeedPath      string

	HTTPReadTimeout       time.Duration
	HTTPReadHeaderTimeout time.Duration
	HTTPWriteTimeout      time.Duration
	HTTPIdleTimeout       time.Duration
	RateLimitPerMin       int
	CORSOrigins           []string
	ServeAssets           bool
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:                getEnv("APP_ENV", "development"),
		Port:                  getEnv("PORT", "8080"),
		QueueBackend:          strings.ToLower(getEnv("QUEUE_BACKEND", QueueBackendMemory)),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		SQLitePath:            getEnv("SQLITE_PATH", "gamecre8.db"),
		RedisURL:              os.Getenv("REDIS_URL"),
		RedisNamespace:        getEnv("REDIS_NAMESPACE", "default"),
		QueueDedupWindow:      getEnvDuration("QUEUE_DEDUP_WINDOW", 7*24*time.Hour),
		SupabaseURL:           os.Getenv("SUPABASE_URL"),
		SupabaseServiceRole:   os.Getenv("SUPABASE_SERVICE_ROLE"),
		SupabaseBucket:        getEnv("SUPABASE_BUCKET", "game-assets"),
		SupabaseGamesTable:    getEnv("SUPABASE_GAMES_TABLE", "games"),
		AssetsSource:          strings.ToLower(getEnv("ASSETS_SOURCE", SourceLocal)),
		StoragePath:           getEnv("STORAGE_PATH", "./storage"),
		SignedURLTTL:          getEnvDuration("SIGNED_URL_TTL", 24*time.Hour),
		PublicAssetBaseURL:    os.Getenv("PUBLIC_ASSET_BASE_URL"),
		SpritePrefixes:        getEnvList("SPRITE_PREFIXES"),
		BackgroundPrefixes:    getEnvList("BACKGROUND_PREFIXES"),
		ScanMaxDepth:          getEnvInt("SCAN_MAX_DEPTH", 16),
		ScanConcurrency:       getEnvInt("SCAN_CONCURRENCY", 4),
		ScanRatePerSecond:     getEnvInt("SCAN_RATE_PER_SECOND", 0),
		RunnerBatchSize:       getEnvInt("RUNNER_BATCH_SIZE", 1),
		RunnerConcurrency:     getEnvInt("RUNNER_CONCURRENCY", 1),
		RunnerRatePerMinute:   getEnvInt("RUNNER_RATE_PER_MINUTE", 0),
		WorkerPollInterval:    getEnvDuration("WORKER_POLL_INTERVAL", 30*time.Second),
		GeminiAPIKey:          os.Getenv("GEMINI_API_KEY"),
		GeminiModel:           getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		TagCacheTTL:           getEnvDuration("TAG_CACHE_TTL", time.Hour),
		GameStore:             strings.ToLower(getEnv("GAME_STORE", GameStoreFile)),
		PublicSiteURL:         getEnv("PUBLIC_SITE_URL", "http://localhost:8080"),
		SeedPath:              getEnv("SEED_PATH", "prompts.json"),
		HTTPReadTimeout:       time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPReadHeaderTimeout: time.Second * time.Duration(getEnvInt("HTTP_READ_HEADER_TIMEOUT_SECONDS", 5)),
		HTTPWriteTimeout:      time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 120)),
		HTTPIdleTimeout:       time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:       getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		CORSOrigins:           getEnvList("CORS_ALLOWED_ORIGINS"),
		ServeAssets:           getEnvBool("SERVE_ASSETS", true),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that every selected backend has the settings it needs.
func (c *Config) Validate() error {
	switch c.QueueBackend {
	case QueueBackendMemory, QueueBackendSQLite:
	case QueueBackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when QUEUE_BACKEND=postgres")
		}
	case QueueBackendRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when QUEUE_BACKEND=redis")
		}
	default:
		return fmt.Errorf("unknown QUEUE_BACKEND %q", c.QueueBackend)
	}

	switch c.AssetsSource {
	case SourceLocal, SourceSupabase:
	default:
		return fmt.Errorf("unknown ASSETS_SOURCE %q", c.AssetsSource)
	}
	switch c.GameStore {
	case GameStoreFile, GameStoreSupabase:
	default:
		return fmt.Errorf("unknown GAME_STORE %q", c.GameStore)
	}
	if c.NeedsSupabase() && (c.SupabaseURL == "" || c.SupabaseServiceRole == "") {
		return fmt.Errorf("SUPABASE_URL and SUPABASE_SERVICE_ROLE are required for supabase storage")
	}
	return nil
}

// NeedsSupabase reports whether any component reads from Supabase.
func (c *Config) NeedsSupabase() bool {
	return c.AssetsSource == SourceSupabase || c.GameStore == GameStoreSupabase
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

// getEnvDuration accepts Go duration strings ("90s", "168h") or a bare
// number of seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	v = strings.TrimSpace(v)
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

func getEnvList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
