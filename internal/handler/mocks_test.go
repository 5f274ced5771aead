package handler

import (
	"context"
	"net/http"

	"brevity-server/internal/domain"
	apperrors "brevity-server/pkg/errors"
)

// mockConversionService keeps records in memory and records the last request.
type mockConversionService struct {
	records     map[string]*domain.ConversionRecord
	files       map[string][]byte
	account     domain.QuotaAccount
	convertErr  error
	lastRequest *domain.ConversionRequest
	lastUserID  string
	lastToken   string
}

func newMockConversionService() *mockConversionService {
	return &mockConversionService{
		records: make(map[string]*domain.ConversionRecord),
		files:   make(map[string][]byte),
		account: domain.QuotaAccount{UserID: "user-1", MaxCredits: 5, UsedCredits: 1},
	}
}

func (m *mockConversionService) add(record *domain.ConversionRecord, file []byte) {
	m.records[record.ID] = record
	if file != nil {
		m.files[record.SummaryPath] = file
	}
}

func (m *mockConversionService) Convert(ctx context.Context, req *domain.ConversionRequest, userID string, token string) (*domain.ConversionResult, error) {
	m.lastRequest = req
	m.lastUserID = userID
	m.lastToken = token
	if m.convertErr != nil {
		return nil, m.convertErr
	}

	to := req.FromPage + 1
	record := &domain.ConversionRecord{
		ID:               "conv-1",
		UserID:           userID,
		OriginalFilename: req.OriginalFilename,
		SummaryPath:      "pdfs/summaries/" + userID + "/summary_report.pdf",
		SummaryStyle:     req.SummaryStyle,
		PagesProcessed:   2,
	}
	m.add(record, nil)
	return &domain.ConversionResult{
		Record:        record,
		ExtractedText: "page one\n\npage two",
		PageSummaries: []domain.PageSummary{
			{PageNumber: req.FromPage, Text: "first"},
			{PageNumber: to, Text: "second"},
		},
		Range:            domain.PageRange{From: req.FromPage, To: to},
		RemainingCredits: 3,
	}, nil
}

func (m *mockConversionService) owned(id, userID string) (*domain.ConversionRecord, error) {
	r, ok := m.records[id]
	if !ok || r.UserID != userID {
		return nil, apperrors.NewNotFoundError("Conversion not found", domain.ErrConversionNotFound)
	}
	return r, nil
}

func (m *mockConversionService) ListConversions(ctx context.Context, userID string, token string) ([]*domain.ConversionRecord, error) {
	var out []*domain.ConversionRecord
	for _, r := range m.records {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockConversionService) GetConversion(ctx context.Context, id, userID string, token string) (*domain.ConversionRecord, error) {
	return m.owned(id, userID)
}

func (m *mockConversionService) DownloadConversion(ctx context.Context, id, userID string, token string) (*domain.ConversionRecord, []byte, error) {
	r, err := m.owned(id, userID)
	if err != nil {
		return nil, nil, err
	}
	data, ok := m.files[r.SummaryPath]
	if !ok {
		return nil, nil, apperrors.NewNotFoundError("Summary file not found", domain.ErrObjectNotFound)
	}
	return r, data, nil
}

func (m *mockConversionService) DeleteConversion(ctx context.Context, id, userID string, token string) error {
	r, err := m.owned(id, userID)
	if err != nil {
		return err
	}
	delete(m.files, r.SummaryPath)
	delete(m.records, id)
	return nil
}

func (m *mockConversionService) GetCredits(ctx context.Context, userID string, token string) (*domain.QuotaAccount, error) {
	account := m.account
	account.UserID = userID
	return &account, nil
}

// passThroughAuth stands in for AuthMiddleware and authenticates as user-1.
func passThroughAuth(next http.Handler) http.Handler {
	return NewAuthMiddleware(&mockAuthService{
		user: &domain.SupabaseUser{ID: "user-1", Email: "test@example.com"},
	}, NewMockHandlerLogger()).Middleware(next)
}

func newTestRouter(svc *mockConversionService, maxFileSize int64) http.Handler {
	logger := NewMockHandlerLogger()
	return NewRouter(
		NewAuthHandler(svc, logger),
		NewConversionHandler(svc, logger, maxFileSize),
		NewCatalogHandler(),
		passThroughAuth,
		[]string{"http://localhost:5173"},
	)
}
