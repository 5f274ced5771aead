package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"brevity-server/internal/domain"
)

// AppConfig implements the domain.Config interface
type AppConfig struct {
	ServerPort     string
	LogLevel       string
	AppName        string
	MaxFileSize    int64
	AllowedOrigins []string

	SupabaseURL        string
	SupabaseKey        string
	SupabaseServiceKey string
	BucketName         string
	DatabaseURL        string
	DefaultCredits     int

	AIProvider   string
	AIAPIKey     string
	AIModel      string
	GCPProjectID string
	GCPLocation  string
	AITimeout    time.Duration
	AIMaxRetries int
	AIRateLimit  float64

	SummaryConcurrency int
	MaxPageWindow      int
	PageFailurePolicy  domain.PageFailurePolicy
	PDFExtractor       string
}

// NewConfig creates a new configuration instance with default values
func NewConfig() domain.Config {
	return &AppConfig{
		// Cloud Run (and many PaaS) provide the listening port via PORT.
		// Keep SERVER_PORT for local/dev compatibility.
		ServerPort:  getEnvOrDefault("PORT", getEnvOrDefault("SERVER_PORT", "8080")),
		LogLevel:    getEnvOrDefault("LOG_LEVEL", "info"),
		AppName:     getEnvOrDefault("APP_NAME", "Brevity"),
		MaxFileSize: getEnvInt64OrDefault("MAX_FILE_SIZE", 20*1024*1024), // 20MB default
		AllowedOrigins: getEnvListOrDefault("ALLOWED_ORIGINS", []string{
			"http://localhost:5173",
			"http://localhost:4173",
			"http://localhost:3000",
		}),

		SupabaseURL:        getEnvOrDefault("SUPABASE_URL", ""),
		SupabaseKey:        getEnvOrDefault("SUPABASE_ANON_KEY", ""),
		SupabaseServiceKey: getEnvOrDefault("SUPABASE_SERVICE_KEY", ""),
		BucketName:         getEnvOrDefault("SUPABASE_BUCKET_NAME", "Brevity"),
		DatabaseURL:        getEnvOrDefault("DATABASE_URL", ""),
		DefaultCredits:     getEnvIntOrDefault("DEFAULT_CREDITS", 5),

		AIProvider:   strings.ToLower(getEnvOrDefault("AI_PROVIDER", "gemini")),
		AIAPIKey:     getEnvOrDefault("AI_API_KEY", ""),
		AIModel:      getEnvOrDefault("AI_MODEL", "gemini-1.5-flash"),
		GCPProjectID: getEnvOrDefault("GCP_PROJECT_ID", ""),
		GCPLocation:  getEnvOrDefault("GCP_LOCATION", "us-central1"),
		AITimeout:    getEnvDurationOrDefault("AI_TIMEOUT", 30*time.Second),
		AIMaxRetries: getEnvIntOrDefault("AI_MAX_RETRIES", 2),
		AIRateLimit:  getEnvFloatOrDefault("AI_RATE_LIMIT", 0),

		SummaryConcurrency: getEnvIntOrDefault("SUMMARY_CONCURRENCY", 4),
		MaxPageWindow:      getEnvIntOrDefault("MAX_PAGE_WINDOW", domain.DefaultMaxPageWindow),
		PageFailurePolicy:  domain.ParsePageFailurePolicy(getEnvOrDefault("PAGE_FAILURE_POLICY", string(domain.PageFailureDegrade))),
		PDFExtractor:       strings.ToLower(getEnvOrDefault("PDF_EXTRACTOR", "fitz")),
	}
}

// GetServerPort returns the server port
func (c *AppConfig) GetServerPort() string {
	return c.ServerPort
}

// GetLogLevel returns the logging level
func (c *AppConfig) GetLogLevel() string {
	return c.LogLevel
}

// GetAppName returns the name printed in report footers
func (c *AppConfig) GetAppName() string {
	return c.AppName
}

// GetMaxFileSize returns the maximum allowed upload size
func (c *AppConfig) GetMaxFileSize() int64 {
	return c.MaxFileSize
}

// GetAllowedOrigins returns the CORS origins
func (c *AppConfig) GetAllowedOrigins() []string {
	return c.AllowedOrigins
}

// GetSupabaseURL returns the Supabase URL
func (c *AppConfig) GetSupabaseURL() string {
	return c.SupabaseURL
}

// GetSupabaseKey returns the Supabase anon key
func (c *AppConfig) GetSupabaseKey() string {
	return c.SupabaseKey
}

// GetSupabaseServiceKey returns the service role key used for storage.
// Falls back to the anon key when unset.
func (c *AppConfig) GetSupabaseServiceKey() string {
	if c.SupabaseServiceKey == "" {
		return c.SupabaseKey
	}
	return c.SupabaseServiceKey
}

// GetBucketName returns the storage bucket for rendered reports
func (c *AppConfig) GetBucketName() string {
	return c.BucketName
}

// GetDatabaseURL returns the Postgres DSN; empty means records live behind PostgREST
func (c *AppConfig) GetDatabaseURL() string {
	return c.DatabaseURL
}

// GetDefaultCredits returns the credit allowance for accounts without a ledger row
func (c *AppConfig) GetDefaultCredits() int {
	return c.DefaultCredits
}

func (c *AppConfig) GetAIProvider() string {
	return c.AIProvider
}

func (c *AppConfig) GetAIAPIKey() string {
	return c.AIAPIKey
}

func (c *AppConfig) GetAIModel() string {
	return c.AIModel
}

func (c *AppConfig) GetGCPProjectID() string {
	return c.GCPProjectID
}

func (c *AppConfig) GetGCPLocation() string {
	return c.GCPLocation
}

// GetAITimeout returns the deadline for a single model call
func (c *AppConfig) GetAITimeout() time.Duration {
	return c.AITimeout
}

// GetAIMaxRetries returns how many times a failed model call is retried
func (c *AppConfig) GetAIMaxRetries() int {
	return c.AIMaxRetries
}

// GetAIRateLimit returns the model calls allowed per second; 0 disables limiting
func (c *AppConfig) GetAIRateLimit() float64 {
	return c.AIRateLimit
}

// GetSummaryConcurrency returns the number of pages summarized in parallel
func (c *AppConfig) GetSummaryConcurrency() int {
	if c.SummaryConcurrency < 1 {
		return 1
	}
	return c.SummaryConcurrency
}

// GetMaxPageWindow returns the largest page range processed per request
func (c *AppConfig) GetMaxPageWindow() int {
	if c.MaxPageWindow < 1 {
		return domain.DefaultMaxPageWindow
	}
	return c.MaxPageWindow
}

func (c *AppConfig) GetPageFailurePolicy() domain.PageFailurePolicy {
	return c.PageFailurePolicy
}

// GetPDFExtractor returns "fitz" (MuPDF) or "native" (pure Go)
func (c *AppConfig) GetPDFExtractor() string {
	return c.PDFExtractor
}

// Helper functions for environment variable handling
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64OrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
