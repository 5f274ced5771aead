package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"brevity-server/internal/domain"
	apperrors "brevity-server/pkg/errors"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	reportSubtitle        = "Summary Analysis"
	quotaExhaustedMessage = "You have used all your credits. Please purchase more to continue."
)

// ConversionOptions holds the pipeline settings read from config.
type ConversionOptions struct {
	MaxPageWindow int
	Concurrency   int
	FailurePolicy domain.PageFailurePolicy
	AppName       string
}

type conversionService struct {
	extractor  domain.PageExtractor
	inspector  domain.DocumentInspector
	summarizer domain.Summarizer
	renderer   domain.ReportRenderer
	store      domain.ReportStore
	quota      domain.QuotaLedger
	repo       domain.ConversionRepository
	validator  *RequestValidator
	logger     domain.Logger
	opts       ConversionOptions

	locks *userLocks
	now   func() time.Time
	newID func() string
}

// NewConversionService wires the conversion pipeline. inspector may be nil.
func NewConversionService(
	extractor domain.PageExtractor,
	inspector domain.DocumentInspector,
	summarizer domain.Summarizer,
	renderer domain.ReportRenderer,
	store domain.ReportStore,
	quota domain.QuotaLedger,
	repo domain.ConversionRepository,
	logger domain.Logger,
	opts ConversionOptions,
) *conversionService {
	if opts.MaxPageWindow < 1 {
		opts.MaxPageWindow = domain.DefaultMaxPageWindow
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.FailurePolicy == "" {
		opts.FailurePolicy = domain.PageFailureDegrade
	}

	return &conversionService{
		extractor:  extractor,
		inspector:  inspector,
		summarizer: summarizer,
		renderer:   renderer,
		store:      store,
		quota:      quota,
		repo:       repo,
		validator:  NewRequestValidator(),
		logger:     logger,
		opts:       opts,
		locks:      newUserLocks(),
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// Convert runs one upload through the pipeline: quota check, validation,
// page range resolution, per-page summaries, rendering, upload and finally
// the record insert together with the credit charge.
func (s *conversionService) Convert(ctx context.Context, req *domain.ConversionRequest, userID string, token string) (*domain.ConversionResult, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	ok, err := s.quota.HasRemaining(ctx, userID, token)
	if err != nil {
		s.logger.Error("Failed to read credits", err, "user_id", userID)
		return nil, apperrors.NewPersistenceError("Failed to read credits", err)
	}
	if !ok {
		s.logger.Info("Conversion rejected, no credits left", "user_id", userID)
		return nil, apperrors.NewQuotaExhaustedError(quotaExhaustedMessage, domain.ErrQuotaExhausted)
	}

	if err := s.validator.Validate(req); err != nil {
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			return nil, apperrors.NewValidationError(ve.Error(), ve, ve.Field)
		}
		return nil, apperrors.NewValidationError("Invalid request", err)
	}

	doc, err := s.extractor.Open(req.Document)
	if err != nil {
		s.logger.Warn("PDF parsing error", "user_id", userID, "file", req.OriginalFilename, "error", err)
		return nil, apperrors.NewProcessingError("Unable to parse the PDF file. Please ensure it's a valid PDF document.", err)
	}
	defer doc.Close()

	totalPages := doc.PageCount()
	s.inspect(req.Document, totalPages, userID)
	if totalPages < 1 {
		return nil, apperrors.NewProcessingError("The PDF file has no pages", domain.ErrParseFailure)
	}

	rng, err := domain.ResolvePageRange(req.FromPage, req.ToPage, totalPages, s.opts.MaxPageWindow)
	if err != nil {
		return nil, apperrors.NewValidationError("Invalid page range", err, "Ensure 'from_page' is less than or equal to 'to_page'.")
	}

	theme, err := domain.ResolveTheme(req.Theme)
	if err != nil {
		return nil, apperrors.NewValidationError("Invalid theme", err, "theme")
	}

	extractedText, summaries, err := s.summarizePages(ctx, doc, rng, req.SummaryStyle, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	sections := make([]domain.ReportSection, len(summaries))
	for i, sum := range summaries {
		sections[i] = domain.ReportSection{Header: fmt.Sprintf("Page %d", sum.PageNumber), Body: sum.Text}
	}

	report, err := s.renderer.Render(domain.ReportInput{
		Title:       ReportTitle(req.OriginalFilename),
		Subtitle:    reportSubtitle,
		TotalPages:  totalPages,
		Sections:    sections,
		Theme:       theme,
		AppName:     s.opts.AppName,
		GeneratedAt: now,
	})
	if err != nil {
		s.logger.Error("Summary generation error", err, "user_id", userID)
		return nil, apperrors.NewInternalError("Error generating summary", err)
	}

	recordID := s.newID()
	path := SummaryObjectPath(userID, req.OriginalFilename, now, shortID(recordID))
	if err := s.store.Upload(ctx, path, bytes.NewReader(report)); err != nil {
		s.logger.Error("Failed to upload summary", err, "user_id", userID, "path", path)
		return nil, apperrors.NewStorageError("Failed to store summary", err)
	}

	record := &domain.ConversionRecord{
		ID:               recordID,
		UserID:           userID,
		OriginalFilename: SanitizeFilename(req.OriginalFilename),
		SummaryPath:      path,
		SummaryStyle:     req.SummaryStyle,
		PagesProcessed:   rng.Count(),
		CreatedAt:        now,
	}

	remaining, err := s.repo.CommitConversion(ctx, record, token)
	if err != nil {
		if errors.Is(err, domain.ErrQuotaExhausted) {
			s.removeOrphan(ctx, path, userID)
			return nil, apperrors.NewQuotaExhaustedError(quotaExhaustedMessage, err)
		}
		s.logger.Error("Conversion record not persisted, stored summary needs reconciliation", err,
			"user_id", userID, "path", path, "file", record.OriginalFilename)
		return nil, apperrors.NewPersistenceError("Failed to save conversion", fmt.Errorf("%w: %v", domain.ErrRecordPersistence, err))
	}

	s.logger.Info("Conversion completed",
		"user_id", userID,
		"conversion_id", record.ID,
		"from_page", rng.From,
		"to_page", rng.To,
		"style", string(req.SummaryStyle),
		"theme", theme.Key,
		"remaining_credits", remaining,
	)

	return &domain.ConversionResult{
		Record:           record,
		ExtractedText:    extractedText,
		PageSummaries:    summaries,
		Range:            rng,
		RemainingCredits: remaining,
	}, nil
}

// inspect logs structural facts about the upload. Failures are not fatal;
// the extractor is the source of truth for the page count.
func (s *conversionService) inspect(data []byte, pageCount int, userID string) {
	if s.inspector == nil {
		return
	}
	info, err := s.inspector.Inspect(data)
	if err != nil {
		s.logger.Debug("PDF inspection failed", "user_id", userID, "error", err)
		return
	}
	if info.Encrypted {
		s.logger.Warn("Encrypted PDF uploaded", "user_id", userID)
	}
	if info.PageCount != pageCount {
		s.logger.Debug("Page count mismatch", "user_id", userID, "inspector", info.PageCount, "extractor", pageCount)
	}
}

// summarizePages extracts text in page order, then summarizes with up to
// Concurrency calls in flight. Results are stored by index so the output
// stays in page order.
func (s *conversionService) summarizePages(ctx context.Context, doc domain.PDFDocument, rng domain.PageRange, style domain.SummaryStyle, userID string) (string, []domain.PageSummary, error) {
	n := rng.Count()
	texts := make([]string, n)
	summaries := make([]domain.PageSummary, n)
	extracted := make([]bool, n)

	for i := 0; i < n; i++ {
		page := rng.From + i
		text, err := doc.PageText(page)
		if err != nil {
			s.logger.Warn("Page processing error", "user_id", userID, "page", page, "error", err)
			if s.opts.FailurePolicy == domain.PageFailureFailFast {
				return "", nil, apperrors.NewInternalError(fmt.Sprintf("Error processing page %d", page), fmt.Errorf("%w: %v", domain.ErrPageProcessing, err))
			}
			summaries[i] = domain.PageSummary{
				PageNumber: page,
				Text:       fmt.Sprintf("Error generating summary for page %d", page),
				Failed:     true,
			}
			continue
		}
		texts[i] = text
		extracted[i] = true
	}

	sem := make(chan struct{}, s.opts.Concurrency)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		if !extracted[i] {
			continue
		}
		i := i
		page := rng.From + i
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-gctx.Done():
				return gctx.Err()
			}

			sum := s.summarizer.Summarize(gctx, texts[i], style, page)
			summaries[i] = sum
			if sum.Failed && s.opts.FailurePolicy == domain.PageFailureFailFast {
				return fmt.Errorf("%w: page %d", domain.ErrPageProcessing, page)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if errors.Is(err, domain.ErrPageProcessing) {
			return "", nil, apperrors.NewInternalError("Error processing page", err)
		}
		return "", nil, apperrors.NewInternalError("Conversion cancelled", err)
	}

	failed := 0
	for _, sum := range summaries {
		if sum.Failed {
			failed++
		}
	}
	if failed > 0 {
		s.logger.Warn("Conversion degraded", "user_id", userID, "failed_pages", failed, "pages", n)
	}

	// Pages that could not be extracted have no text to contribute.
	kept := make([]string, 0, n)
	for i, ok := range extracted {
		if ok {
			kept = append(kept, texts[i])
		}
	}
	return strings.Join(kept, "\n\n"), summaries, nil
}

// removeOrphan deletes an uploaded report whose record could not be written.
func (s *conversionService) removeOrphan(ctx context.Context, path, userID string) {
	if err := s.store.Delete(context.WithoutCancel(ctx), path); err != nil {
		s.logger.Error("Failed to remove orphaned summary", err, "user_id", userID, "path", path)
		return
	}
	s.logger.Info("Removed summary after lost credit race", "user_id", userID, "path", path)
}

func (s *conversionService) ListConversions(ctx context.Context, userID string, token string) ([]*domain.ConversionRecord, error) {
	records, err := s.repo.ListByUser(ctx, userID, token)
	if err != nil {
		s.logger.Error("Failed to list conversions", err, "user_id", userID)
		return nil, apperrors.NewPersistenceError("Failed to list conversions", err)
	}
	return records, nil
}

func (s *conversionService) GetConversion(ctx context.Context, id, userID string, token string) (*domain.ConversionRecord, error) {
	record, err := s.repo.GetByIDAndOwner(ctx, id, userID, token)
	if err != nil {
		if errors.Is(err, domain.ErrConversionNotFound) {
			return nil, apperrors.NewNotFoundError("Conversion not found", err)
		}
		s.logger.Error("Failed to get conversion", err, "user_id", userID, "conversion_id", id)
		return nil, apperrors.NewPersistenceError("Failed to get conversion", err)
	}
	return record, nil
}

func (s *conversionService) DownloadConversion(ctx context.Context, id, userID string, token string) (*domain.ConversionRecord, []byte, error) {
	record, err := s.GetConversion(ctx, id, userID, token)
	if err != nil {
		return nil, nil, err
	}

	data, err := s.store.Download(ctx, record.SummaryPath)
	if err != nil {
		if errors.Is(err, domain.ErrObjectNotFound) {
			return nil, nil, apperrors.NewNotFoundError("Summary file not found", err)
		}
		s.logger.Error("Failed to download summary", err, "user_id", userID, "path", record.SummaryPath)
		return nil, nil, apperrors.NewStorageError("Failed to download summary", err)
	}
	return record, data, nil
}

// DeleteConversion removes the stored report first, then the record. A report
// that is already gone does not block deleting the record.
func (s *conversionService) DeleteConversion(ctx context.Context, id, userID string, token string) error {
	record, err := s.GetConversion(ctx, id, userID, token)
	if err != nil {
		return err
	}

	if err := s.store.Delete(ctx, record.SummaryPath); err != nil && !errors.Is(err, domain.ErrObjectNotFound) {
		s.logger.Error("Failed to delete summary file", err, "user_id", userID, "path", record.SummaryPath)
		return apperrors.NewStorageError("Failed to delete summary file", err)
	}

	if err := s.repo.DeleteByIDAndOwner(ctx, id, userID, token); err != nil {
		if errors.Is(err, domain.ErrConversionNotFound) {
			return apperrors.NewNotFoundError("Conversion not found", err)
		}
		s.logger.Error("Failed to delete conversion", err, "user_id", userID, "conversion_id", id)
		return apperrors.NewPersistenceError("Failed to delete conversion", err)
	}

	s.logger.Info("Conversion deleted", "user_id", userID, "conversion_id", id)
	return nil
}

func (s *conversionService) GetCredits(ctx context.Context, userID string, token string) (*domain.QuotaAccount, error) {
	account, err := s.quota.Account(ctx, userID, token)
	if err != nil {
		s.logger.Error("Failed to read credits", err, "user_id", userID)
		return nil, apperrors.NewPersistenceError("Failed to read credits", err)
	}
	return account, nil
}

func shortID(id string) string {
	id = strings.ReplaceAll(id, "-", "")
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// userLocks serializes conversions per user within this process.
type userLocks struct {
	mu    sync.Mutex
	locks map[string]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[string]*userLock)}
}

// Lock blocks until key is free and returns the matching unlock func.
func (l *userLocks) Lock(key string) func() {
	l.mu.Lock()
	ul, ok := l.locks[key]
	if !ok {
		ul = &userLock{}
		l.locks[key] = ul
	}
	ul.refs++
	l.mu.Unlock()

	ul.mu.Lock()
	return func() {
		ul.mu.Unlock()
		l.mu.Lock()
		ul.refs--
		if ul.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}
