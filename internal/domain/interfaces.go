package domain

import (
	"context"
	"io"
	"time"
)

// Logger defines the interface for logging operations
type Logger interface {
	Info(msg string, fields ...interface{})
	Error(msg string, err error, fields ...interface{})
	Debug(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
}

// Config defines the interface for configuration management
type Config interface {
	GetServerPort() string
	GetLogLevel() string
	GetAppName() string
	GetMaxFileSize() int64
	GetAllowedOrigins() []string

	GetSupabaseURL() string
	GetSupabaseKey() string
	GetSupabaseServiceKey() string
	GetBucketName() string
	GetDatabaseURL() string
	GetDefaultCredits() int

	GetAIProvider() string
	GetAIAPIKey() string
	GetAIModel() string
	GetGCPProjectID() string
	GetGCPLocation() string
	GetAITimeout() time.Duration
	GetAIMaxRetries() int
	GetAIRateLimit() float64

	GetSummaryConcurrency() int
	GetMaxPageWindow() int
	GetPageFailurePolicy() PageFailurePolicy
	GetPDFExtractor() string
}

// PDFDocument is an opened upload that can be read page by page.
type PDFDocument interface {
	PageCount() int
	// PageText returns the plain text of a 1-based page.
	PageText(page int) (string, error)
	Close() error
}

// PageExtractor opens raw PDF bytes for per-page text extraction.
type PageExtractor interface {
	Open(data []byte) (PDFDocument, error)
}

// DocumentInspector reads document structure without extracting text.
type DocumentInspector interface {
	Inspect(data []byte) (*DocumentInfo, error)
}

// InferenceClient sends one prompt made of text parts to a generative model.
type InferenceClient interface {
	GenerateText(ctx context.Context, parts ...string) (string, error)
	Close() error
}

// Summarizer turns one page of text into a PageSummary. It never fails:
// errors are reported through PageSummary.Failed and placeholder text.
type Summarizer interface {
	Summarize(ctx context.Context, pageText string, style SummaryStyle, pageNumber int) PageSummary
}

// ReportRenderer lays out report sections as a PDF.
type ReportRenderer interface {
	Render(input ReportInput) ([]byte, error)
}

// ReportStore keeps rendered reports in object storage.
type ReportStore interface {
	Upload(ctx context.Context, path string, file io.Reader) error
	Download(ctx context.Context, path string) ([]byte, error)
	Delete(ctx context.Context, path string) error
}

// QuotaLedger tracks per-user credits.
type QuotaLedger interface {
	Account(ctx context.Context, userID string, token string) (*QuotaAccount, error)
	HasRemaining(ctx context.Context, userID string, token string) (bool, error)
	// Charge spends one credit and returns what is left. It fails with
	// ErrQuotaExhausted instead of going past the limit.
	//
	// Charge is the standalone ledger operation for spending a credit that has
	// no conversion record attached. Convert does not call it; it charges
	// through ConversionRepository.CommitConversion so the record and the
	// credit land together.
	Charge(ctx context.Context, userID string, token string) (int, error)
}

// ConversionRepository stores conversion records.
type ConversionRepository interface {
	// CommitConversion inserts the record and charges one credit as a single
	// unit. It returns the remaining credits, or ErrQuotaExhausted with
	// nothing written.
	CommitConversion(ctx context.Context, record *ConversionRecord, token string) (int, error)
	ListByUser(ctx context.Context, userID string, token string) ([]*ConversionRecord, error)
	GetByIDAndOwner(ctx context.Context, id, userID string, token string) (*ConversionRecord, error)
	DeleteByIDAndOwner(ctx context.Context, id, userID string, token string) error
}

// ConversionService is the application surface used by HTTP handlers.
type ConversionService interface {
	Convert(ctx context.Context, req *ConversionRequest, userID string, token string) (*ConversionResult, error)
	ListConversions(ctx context.Context, userID string, token string) ([]*ConversionRecord, error)
	GetConversion(ctx context.Context, id, userID string, token string) (*ConversionRecord, error)
	DownloadConversion(ctx context.Context, id, userID string, token string) (*ConversionRecord, []byte, error)
	DeleteConversion(ctx context.Context, id, userID string, token string) error
	GetCredits(ctx context.Context, userID string, token string) (*QuotaAccount, error)
}
