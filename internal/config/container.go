package config

import (
	"context"
	"database/sql"
	"fmt"

	"brevity-server/internal/domain"
	infrasupabase "brevity-server/internal/infra/supabase"
	"brevity-server/internal/repository"
	"brevity-server/internal/service"
	"brevity-server/pkg/logger"
)

// Container holds all application dependencies
type Container struct {
	Config            domain.Config
	Logger            domain.Logger
	SupabaseClient    domain.SupabaseClient
	AuthService       domain.AuthService
	ConversionService domain.ConversionService

	inference domain.InferenceClient
	db        *sql.DB
}

// NewContainer creates a new dependency injection container
func NewContainer(ctx context.Context) (*Container, error) {
	config := NewConfig()
	appLogger := logger.NewLogger(config.GetLogLevel())

	supabaseClient := infrasupabase.NewSupabaseClient(config, appLogger)
	if err := supabaseClient.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize supabase: %w", err)
	}

	c := &Container{
		Config:         config,
		Logger:         appLogger,
		SupabaseClient: supabaseClient,
		AuthService:    service.NewAuthService(supabaseClient, appLogger),
	}

	quota, repo, err := c.newRepositories(ctx, supabaseClient)
	if err != nil {
		return nil, err
	}

	inference, err := newInferenceClient(ctx, config, appLogger)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.inference = inference

	summarizer := service.NewPageSummarizer(inference, appLogger, service.SummarizerOptions{
		Timeout:    config.GetAITimeout(),
		MaxRetries: config.GetAIMaxRetries(),
		RateLimit:  config.GetAIRateLimit(),
	})

	store := service.NewStorageService(
		config.GetSupabaseURL(),
		config.GetSupabaseServiceKey(),
		config.GetBucketName(),
		appLogger,
	)

	c.ConversionService = service.NewConversionService(
		newExtractor(config, appLogger),
		service.NewPDFInspector(appLogger),
		summarizer,
		service.NewFPDFRenderer(appLogger),
		store,
		quota,
		repo,
		appLogger,
		service.ConversionOptions{
			MaxPageWindow: config.GetMaxPageWindow(),
			Concurrency:   config.GetSummaryConcurrency(),
			FailurePolicy: config.GetPageFailurePolicy(),
			AppName:       config.GetAppName(),
		},
	)

	appLogger.Info("Container ready",
		"ai_provider", config.GetAIProvider(),
		"ai_model", config.GetAIModel(),
		"pdf_extractor", config.GetPDFExtractor(),
		"records", c.recordsBackend(),
		"failure_policy", string(config.GetPageFailurePolicy()),
	)
	return c, nil
}

// newRepositories uses Postgres when DATABASE_URL is set and Supabase
// PostgREST otherwise.
func (c *Container) newRepositories(ctx context.Context, supabaseClient domain.SupabaseClient) (domain.QuotaLedger, domain.ConversionRepository, error) {
	credits := c.Config.GetDefaultCredits()

	if dsn := c.Config.GetDatabaseURL(); dsn != "" {
		db, err := repository.OpenPostgres(ctx, dsn)
		if err != nil {
			return nil, nil, err
		}
		c.db = db
		pg := repository.NewPostgresRepository(db, c.Logger, credits)
		return pg, pg, nil
	}

	return repository.NewSupabaseQuotaRepository(supabaseClient, c.Logger, credits),
		repository.NewSupabaseConversionRepository(supabaseClient, c.Logger),
		nil
}

func (c *Container) recordsBackend() string {
	if c.db != nil {
		return "postgres"
	}
	return "supabase"
}

func newInferenceClient(ctx context.Context, config domain.Config, log domain.Logger) (domain.InferenceClient, error) {
	switch config.GetAIProvider() {
	case "vertex":
		client, err := service.NewVertexClient(ctx, config.GetGCPProjectID(), config.GetGCPLocation(), config.GetAIModel(), log)
		if err != nil {
			return nil, err
		}
		return client, nil
	case "gemini", "":
		client, err := service.NewGeminiClient(ctx, config.GetAIAPIKey(), config.GetAIModel(), log)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown AI_PROVIDER %q", config.GetAIProvider())
	}
}

func newExtractor(config domain.Config, log domain.Logger) domain.PageExtractor {
	if config.GetPDFExtractor() == "native" {
		return service.NewNativeExtractor(log)
	}
	return service.NewFitzExtractor(log)
}

// Close releases the inference client and database pool
func (c *Container) Close() error {
	var firstErr error
	if c.inference != nil {
		if err := c.inference.Close(); err != nil {
			firstErr = err
		}
	}
	if c.db != nil {
		if err := c.db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
