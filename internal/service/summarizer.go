package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"brevity-server/internal/domain"

	"golang.org/x/time/rate"
)

// SummarizerOptions tunes how each page call is made.
type SummarizerOptions struct {
	Timeout    time.Duration
	MaxRetries int
	// RateLimit caps calls per second across the process; 0 disables it.
	RateLimit float64
	// BaseBackoff is the first retry delay; it doubles on each attempt.
	BaseBackoff time.Duration
}

// PageSummarizer implements domain.Summarizer on top of an InferenceClient.
type PageSummarizer struct {
	client  domain.InferenceClient
	logger  domain.Logger
	opts    SummarizerOptions
	limiter *rate.Limiter
}

// NewPageSummarizer creates a summarizer. A zero Timeout falls back to 30s
// and a zero BaseBackoff to 1s.
func NewPageSummarizer(client domain.InferenceClient, logger domain.Logger, opts SummarizerOptions) *PageSummarizer {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.BaseBackoff <= 0 {
		opts.BaseBackoff = time.Second
	}

	s := &PageSummarizer{
		client: client,
		logger: logger,
		opts:   opts,
	}
	if opts.RateLimit > 0 {
		burst := int(opts.RateLimit)
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	return s
}

// BuildPagePrompt returns the instruction part sent ahead of the page text.
func BuildPagePrompt(template string, pageNumber int) string {
	return fmt.Sprintf("%s\n\nAnalyzing Page %d:\n", template, pageNumber)
}

// Summarize never returns an error. Failures come back as placeholder text
// with Failed set.
func (s *PageSummarizer) Summarize(ctx context.Context, pageText string, style domain.SummaryStyle, pageNumber int) domain.PageSummary {
	def, ok := domain.LookupStyle(style)
	if !ok {
		s.logger.Warn("Unknown summary style", "style", string(style), "page", pageNumber)
		return failedSummary(pageNumber, fmt.Errorf("unknown style %q", style))
	}

	text, err := s.generateWithRetry(ctx, BuildPagePrompt(def.Prompt, pageNumber), pageText, pageNumber)
	if err != nil {
		s.logger.Warn("Page summary failed", "page", pageNumber, "style", string(style), "error", err)
		return failedSummary(pageNumber, err)
	}

	return domain.PageSummary{PageNumber: pageNumber, Text: text}
}

func failedSummary(pageNumber int, err error) domain.PageSummary {
	text := fmt.Sprintf("Error generating summary for page %d", pageNumber)
	if errors.Is(err, domain.ErrEmptyResponse) {
		text = fmt.Sprintf("Unable to generate summary for page %d", pageNumber)
	}
	return domain.PageSummary{PageNumber: pageNumber, Text: text, Failed: true}
}

func (s *PageSummarizer) generateWithRetry(ctx context.Context, prompt, pageText string, pageNumber int) (string, error) {
	var lastErr error
	attempts := s.opts.MaxRetries + 1

	for i := 0; i < attempts; i++ {
		if i > 0 {
			backoff := s.opts.BaseBackoff * time.Duration(1<<uint(i-1))
			s.logger.Debug("Retrying page summary", "page", pageNumber, "attempt", i+1, "backoff_ms", backoff.Milliseconds())
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", fmt.Errorf("context cancelled during backoff: %w", ctx.Err())
			}
		}

		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return "", fmt.Errorf("rate limiter: %w", err)
			}
		}

		text, err := s.generateOnce(ctx, prompt, pageText)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if errors.Is(err, domain.ErrEmptyResponse) {
			return "", err
		}
		if ctx.Err() != nil {
			return "", fmt.Errorf("context cancelled: %w", ctx.Err())
		}
	}

	return "", fmt.Errorf("inference failed after %d attempts: %w", attempts, lastErr)
}

func (s *PageSummarizer) generateOnce(ctx context.Context, prompt, pageText string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	text, err := s.client.GenerateText(callCtx, prompt, pageText)
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", domain.ErrEmptyResponse
	}
	return text, nil
}
