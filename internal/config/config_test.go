package config

import (
	"testing"
	"time"

	"brevity-server/internal/domain"
)

const defaultMaxFileSize int64 = 20 * 1024 * 1024

var configKeys = []string{
	"PORT", "SERVER_PORT", "MAX_FILE_SIZE", "LOG_LEVEL", "APP_NAME", "ALLOWED_ORIGINS",
	"SUPABASE_URL", "SUPABASE_ANON_KEY", "SUPABASE_SERVICE_KEY", "SUPABASE_BUCKET_NAME",
	"DATABASE_URL", "DEFAULT_CREDITS", "AI_PROVIDER", "AI_API_KEY", "AI_MODEL",
	"GCP_PROJECT_ID", "GCP_LOCATION", "AI_TIMEOUT", "AI_MAX_RETRIES", "AI_RATE_LIMIT",
	"SUMMARY_CONCURRENCY", "MAX_PAGE_WINDOW", "PAGE_FAILURE_POLICY", "PDF_EXTRACTOR",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		t.Setenv(key, "")
	}
}

func TestNewConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := NewConfig()

	if cfg.GetServerPort() != "8080" {
		t.Fatalf("expected default server port 8080, got %s", cfg.GetServerPort())
	}
	if cfg.GetMaxFileSize() != defaultMaxFileSize {
		t.Fatalf("expected default max file size %d, got %d", defaultMaxFileSize, cfg.GetMaxFileSize())
	}
	if cfg.GetLogLevel() != "info" {
		t.Fatalf("expected default log level info, got %s", cfg.GetLogLevel())
	}
	if cfg.GetBucketName() != "Brevity" {
		t.Fatalf("expected default bucket Brevity, got %s", cfg.GetBucketName())
	}
	if cfg.GetAIProvider() != "gemini" {
		t.Fatalf("expected default provider gemini, got %s", cfg.GetAIProvider())
	}
	if cfg.GetAIModel() != "gemini-1.5-flash" {
		t.Fatalf("expected default model gemini-1.5-flash, got %s", cfg.GetAIModel())
	}
	if cfg.GetAITimeout() != 30*time.Second {
		t.Fatalf("expected default timeout 30s, got %s", cfg.GetAITimeout())
	}
	if cfg.GetMaxPageWindow() != 20 {
		t.Fatalf("expected default page window 20, got %d", cfg.GetMaxPageWindow())
	}
	if cfg.GetSummaryConcurrency() != 4 {
		t.Fatalf("expected default concurrency 4, got %d", cfg.GetSummaryConcurrency())
	}
	if cfg.GetPageFailurePolicy() != domain.PageFailureDegrade {
		t.Fatalf("expected degrade policy, got %s", cfg.GetPageFailurePolicy())
	}
	if cfg.GetPDFExtractor() != "fitz" {
		t.Fatalf("expected fitz extractor, got %s", cfg.GetPDFExtractor())
	}
	if cfg.GetDatabaseURL() != "" {
		t.Fatalf("expected empty database url, got %s", cfg.GetDatabaseURL())
	}
	if len(cfg.GetAllowedOrigins()) != 3 {
		t.Fatalf("expected 3 default origins, got %v", cfg.GetAllowedOrigins())
	}
}

func TestNewConfig_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("SERVER_PORT", "7070")
	t.Setenv("MAX_FILE_SIZE", "12345")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SUPABASE_URL", "http://localhost:54321")
	t.Setenv("SUPABASE_ANON_KEY", "anon-key")
	t.Setenv("SUPABASE_SERVICE_KEY", "service-key")
	t.Setenv("AI_PROVIDER", "Vertex")
	t.Setenv("AI_TIMEOUT", "5s")
	t.Setenv("AI_RATE_LIMIT", "2.5")
	t.Setenv("MAX_PAGE_WINDOW", "10")
	t.Setenv("PAGE_FAILURE_POLICY", "fail_fast")
	t.Setenv("ALLOWED_ORIGINS", "https://app.example.com, https://admin.example.com")

	cfg := NewConfig()

	if cfg.GetServerPort() != "9090" {
		t.Fatalf("expected server port 9090, got %s", cfg.GetServerPort())
	}
	if cfg.GetMaxFileSize() != 12345 {
		t.Fatalf("expected max file size 12345, got %d", cfg.GetMaxFileSize())
	}
	if cfg.GetLogLevel() != "debug" {
		t.Fatalf("expected log level debug, got %s", cfg.GetLogLevel())
	}
	if cfg.GetSupabaseKey() != "anon-key" || cfg.GetSupabaseServiceKey() != "service-key" {
		t.Fatalf("unexpected supabase keys %s / %s", cfg.GetSupabaseKey(), cfg.GetSupabaseServiceKey())
	}
	if cfg.GetAIProvider() != "vertex" {
		t.Fatalf("expected provider to be lowercased, got %s", cfg.GetAIProvider())
	}
	if cfg.GetAITimeout() != 5*time.Second {
		t.Fatalf("expected timeout 5s, got %s", cfg.GetAITimeout())
	}
	if cfg.GetAIRateLimit() != 2.5 {
		t.Fatalf("expected rate limit 2.5, got %v", cfg.GetAIRateLimit())
	}
	if cfg.GetMaxPageWindow() != 10 {
		t.Fatalf("expected page window 10, got %d", cfg.GetMaxPageWindow())
	}
	if cfg.GetPageFailurePolicy() != domain.PageFailureFailFast {
		t.Fatalf("expected fail_fast policy, got %s", cfg.GetPageFailurePolicy())
	}
	origins := cfg.GetAllowedOrigins()
	if len(origins) != 2 || origins[1] != "https://admin.example.com" {
		t.Fatalf("unexpected origins %v", origins)
	}
}

func TestNewConfig_Fallbacks(t *testing.T) {
	clearEnv(t)
	t.Setenv("SERVER_PORT", "9091")
	t.Setenv("MAX_FILE_SIZE", "not-a-number")
	t.Setenv("AI_TIMEOUT", "soon")
	t.Setenv("SUMMARY_CONCURRENCY", "0")
	t.Setenv("MAX_PAGE_WINDOW", "-3")
	t.Setenv("SUPABASE_ANON_KEY", "anon-key")

	cfg := NewConfig()

	if cfg.GetServerPort() != "9091" {
		t.Fatalf("expected server port 9091, got %s", cfg.GetServerPort())
	}
	if cfg.GetMaxFileSize() != defaultMaxFileSize {
		t.Fatalf("expected default max file size %d, got %d", defaultMaxFileSize, cfg.GetMaxFileSize())
	}
	if cfg.GetAITimeout() != 30*time.Second {
		t.Fatalf("expected timeout fallback 30s, got %s", cfg.GetAITimeout())
	}
	if cfg.GetSummaryConcurrency() != 1 {
		t.Fatalf("expected concurrency floor of 1, got %d", cfg.GetSummaryConcurrency())
	}
	if cfg.GetMaxPageWindow() != 20 {
		t.Fatalf("expected page window fallback 20, got %d", cfg.GetMaxPageWindow())
	}
	if cfg.GetSupabaseServiceKey() != "anon-key" {
		t.Fatalf("expected service key to fall back to anon key, got %s", cfg.GetSupabaseServiceKey())
	}
}
