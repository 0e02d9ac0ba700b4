package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Helpdesk     HelpdeskConfig
	Embedding    EmbeddingConfig
	Knowledge    KnowledgeConfig
	Triage       TriageConfig
	Worker       WorkerConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines admin API authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AdminPasswordHash     string
	AccessTokenTTLMinutes int
}

// HelpdeskConfig holds helpdesk API credentials and limits.
type HelpdeskConfig struct {
	Domain         string
	APIKey         string
	WebhookSecret  string
	TimeoutSeconds int
	BaseURL        string
}

// EmbeddingConfig configures the optional embedding backend. An empty
// APIKey disables the embedding path entirely.
type EmbeddingConfig struct {
	APIKey         string
	Model          string
	BaseURL        string
	TimeoutSeconds int
}

// KnowledgeConfig points at the knowledge base corpus.
type KnowledgeConfig struct {
	DocsDir string
}

// CategoryKeywords pairs a category name with its keyword list. Order
// across the Categories slice is significant: first match wins.
type CategoryKeywords struct {
	Name     string
	Keywords []string
}

// TriageConfig carries the classification keyword sets and decision
// thresholds. These are data, not constants, so behavior is tunable
// without a code change.
type TriageConfig struct {
	Tier1Keywords         []string
	Tier2Keywords         []string
	ComplexKeywords       []string
	Categories            []CategoryKeywords
	RelevanceThreshold    float64
	AutoResolveConfidence float64
	EscalationConfidence  float64
}

// WorkerConfig controls the background triage workers.
type WorkerConfig struct {
	Concurrency int
	QueueKey    string
}

// NotificationConfig holds stub notification endpoints.
type NotificationConfig struct {
	WebhookURL string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "ticket-triage"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AdminPasswordHash:     os.Getenv("AUTH_ADMIN_PASSWORD_HASH"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
		},
		Helpdesk: HelpdeskConfig{
			Domain:         os.Getenv("HELPDESK_DOMAIN"),
			APIKey:         os.Getenv("HELPDESK_API_KEY"),
			WebhookSecret:  os.Getenv("HELPDESK_WEBHOOK_SECRET"),
			TimeoutSeconds: getEnvAsInt("HELPDESK_TIMEOUT_SECONDS", 15),
			BaseURL:        os.Getenv("HELPDESK_BASE_URL"),
		},
		Embedding: EmbeddingConfig{
			APIKey:         os.Getenv("EMBEDDING_API_KEY"),
			Model:          getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
			BaseURL:        os.Getenv("EMBEDDING_BASE_URL"),
			TimeoutSeconds: getEnvAsInt("EMBEDDING_TIMEOUT_SECONDS", 20),
		},
		Knowledge: KnowledgeConfig{
			DocsDir: getEnv("KNOWLEDGE_DOCS_DIR", "docs"),
		},
		Triage: TriageConfig{
			Tier1Keywords:         getEnvAsList("TRIAGE_TIER1_KEYWORDS", defaultTier1Keywords),
			Tier2Keywords:         getEnvAsList("TRIAGE_TIER2_KEYWORDS", defaultTier2Keywords),
			ComplexKeywords:       getEnvAsList("TRIAGE_COMPLEX_KEYWORDS", defaultComplexKeywords),
			Categories:            getEnvAsCategories("TRIAGE_CATEGORIES", defaultCategories),
			RelevanceThreshold:    getEnvAsFloat("TRIAGE_RELEVANCE_THRESHOLD", 0.3),
			AutoResolveConfidence: getEnvAsFloat("TRIAGE_AUTO_RESOLVE_CONFIDENCE", 0.6),
			EscalationConfidence:  getEnvAsFloat("TRIAGE_ESCALATION_CONFIDENCE", 0.5),
		},
		Worker: WorkerConfig{
			Concurrency: getEnvAsInt("WORKER_CONCURRENCY", 2),
			QueueKey:    getEnv("WORKER_QUEUE_KEY", "triage:queue"),
		},
		Notification: NotificationConfig{
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
	}

	return cfg, nil
}

var defaultTier1Keywords = []string{
	"password", "reset", "login", "forgot", "access",
	"unlock", "username", "credentials", "sign in",
}

var defaultTier2Keywords = []string{
	"billing", "payment", "invoice", "subscription", "upgrade",
	"downgrade", "refund", "charge", "account", "settings",
}

var defaultComplexKeywords = []string{
	"error", "bug", "crash", "broken", "not working", "issue",
	"problem", "critical", "urgent", "system", "technical",
}

var defaultCategories = []CategoryKeywords{
	{Name: "password_reset", Keywords: []string{"password", "reset", "forgot", "login"}},
	{Name: "billing", Keywords: []string{"billing", "payment", "invoice", "charge"}},
	{Name: "technical", Keywords: []string{"error", "bug", "crash", "broken"}},
	{Name: "account", Keywords: []string{"account", "profile", "settings"}},
	{Name: "general", Keywords: []string{"help", "support", "question"}},
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Timeout returns the per-call helpdesk timeout.
func (h HelpdeskConfig) Timeout() time.Duration {
	if h.TimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(h.TimeoutSeconds) * time.Second
}

// Timeout returns the embedding inference timeout.
func (e EmbeddingConfig) Timeout() time.Duration {
	if e.TimeoutSeconds <= 0 {
		return 20 * time.Second
	}
	return time.Duration(e.TimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsFloat(key string, fallback float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

// getEnvAsList parses a comma-separated keyword list.
func getEnvAsList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

// getEnvAsCategories parses an ordered category mapping of the form
// "name:kw1|kw2;name2:kw3". Order in the value is preserved.
func getEnvAsCategories(key string, fallback []CategoryKeywords) []CategoryKeywords {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	entries := strings.Split(val, ";")
	out := make([]CategoryKeywords, 0, len(entries))
	for _, entry := range entries {
		name, keywords, ok := strings.Cut(entry, ":")
		if !ok {
			continue
		}
		cat := CategoryKeywords{Name: strings.TrimSpace(name)}
		for _, kw := range strings.Split(keywords, "|") {
			if trimmed := strings.TrimSpace(kw); trimmed != "" {
				cat.Keywords = append(cat.Keywords, trimmed)
			}
		}
		if cat.Name != "" && len(cat.Keywords) > 0 {
			out = append(out, cat)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
