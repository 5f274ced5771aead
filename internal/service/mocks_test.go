package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"brevity-server/internal/domain"
)

// MockLogger records messages and is safe for concurrent use.
type MockLogger struct {
	mu       sync.Mutex
	messages []string
}

func NewMockLogger() *MockLogger {
	return &MockLogger{messages: []string{}}
}

func (m *MockLogger) add(s string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, s)
}

func (m *MockLogger) Info(msg string, args ...interface{}) { m.add("INFO: " + msg) }
func (m *MockLogger) Error(msg string, err error, args ...interface{}) {
	if err != nil {
		m.add("ERROR: " + msg + " - " + err.Error())
		return
	}
	m.add("ERROR: " + msg)
}
func (m *MockLogger) Debug(msg string, args ...interface{}) { m.add("DEBUG: " + msg) }
func (m *MockLogger) Warn(msg string, args ...interface{})  { m.add("WARN: " + msg) }

func (m *MockLogger) Contains(prefix string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.messages {
		if strings.HasPrefix(msg, prefix) {
			return true
		}
	}
	return false
}

// fakePDF returns bytes that pass the signature and size checks.
func fakePDF() []byte {
	return append([]byte("%PDF-1.4\n"), bytes.Repeat([]byte("x"), 200)...)
}

type mockDocument struct {
	pages    []string
	failPage int
	closed   bool
}

func (d *mockDocument) PageCount() int { return len(d.pages) }

func (d *mockDocument) PageText(page int) (string, error) {
	if page == d.failPage {
		return "", errors.New("broken content stream")
	}
	if page < 1 || page > len(d.pages) {
		return "", fmt.Errorf("page %d out of range", page)
	}
	return d.pages[page-1], nil
}

func (d *mockDocument) Close() error {
	d.closed = true
	return nil
}

type mockExtractor struct {
	mu      sync.Mutex
	doc     *mockDocument
	openErr error
	opens   int
}

func newMockExtractor(pageCount int) *mockExtractor {
	pages := make([]string, pageCount)
	for i := range pages {
		pages[i] = fmt.Sprintf("text of page %d", i+1)
	}
	return &mockExtractor{doc: &mockDocument{pages: pages}}
}

func (e *mockExtractor) Open(data []byte) (domain.PDFDocument, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.opens++
	if e.openErr != nil {
		return nil, e.openErr
	}
	return e.doc, nil
}

func (e *mockExtractor) Opens() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.opens
}

type mockSummarizer struct {
	mu       sync.Mutex
	pages    []int
	failPage int
	// delay makes earlier pages finish later so ordering is exercised.
	delay func(page int) time.Duration
}

func (m *mockSummarizer) Summarize(ctx context.Context, pageText string, style domain.SummaryStyle, pageNumber int) domain.PageSummary {
	if m.delay != nil {
		select {
		case <-time.After(m.delay(pageNumber)):
		case <-ctx.Done():
		}
	}

	m.mu.Lock()
	m.pages = append(m.pages, pageNumber)
	m.mu.Unlock()

	if pageNumber == m.failPage {
		return domain.PageSummary{PageNumber: pageNumber, Text: fmt.Sprintf("Error generating summary for page %d", pageNumber), Failed: true}
	}
	return domain.PageSummary{PageNumber: pageNumber, Text: fmt.Sprintf("**%s** summary of %s", style, pageText)}
}

func (m *mockSummarizer) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pages)
}

type mockRenderer struct {
	mu     sync.Mutex
	inputs []domain.ReportInput
	err    error
}

func (r *mockRenderer) Render(input domain.ReportInput) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inputs = append(r.inputs, input)
	if r.err != nil {
		return nil, r.err
	}
	return []byte("%PDF-1.4 report"), nil
}

type mockStore struct {
	mu        sync.Mutex
	objects   map[string][]byte
	uploads   int
	deletes   []string
	uploadErr error
}

func newMockStore() *mockStore {
	return &mockStore{objects: make(map[string][]byte)}
}

func (s *mockStore) Upload(ctx context.Context, path string, file io.Reader) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploads++
	if s.uploadErr != nil {
		return s.uploadErr
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return err
	}
	s.objects[path] = data
	return nil
}

func (s *mockStore) Download(ctx context.Context, path string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[path]
	if !ok {
		return nil, domain.ErrObjectNotFound
	}
	return data, nil
}

func (s *mockStore) Delete(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes = append(s.deletes, path)
	delete(s.objects, path)
	return nil
}

func (s *mockStore) Uploads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uploads
}

// memLedger is an in-memory QuotaLedger and ConversionRepository.
type memLedger struct {
	mu      sync.Mutex
	max     int
	used    map[string]int
	records []*domain.ConversionRecord
	// spendBeforeCommit simulates another request winning the last credit.
	spendBeforeCommit bool
	commitErr         error
}

func newMemLedger(max int) *memLedger {
	return &memLedger{max: max, used: make(map[string]int)}
}

func (l *memLedger) Account(ctx context.Context, userID string, token string) (*domain.QuotaAccount, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return &domain.QuotaAccount{UserID: userID, MaxCredits: l.max, UsedCredits: l.used[userID]}, nil
}

func (l *memLedger) HasRemaining(ctx context.Context, userID string, token string) (bool, error) {
	account, _ := l.Account(ctx, userID, token)
	return !account.Exhausted(), nil
}

func (l *memLedger) Charge(ctx context.Context, userID string, token string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.used[userID] >= l.max {
		return 0, domain.ErrQuotaExhausted
	}
	l.used[userID]++
	return l.max - l.used[userID], nil
}

func (l *memLedger) CommitConversion(ctx context.Context, record *domain.ConversionRecord, token string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.commitErr != nil {
		return 0, l.commitErr
	}
	if l.spendBeforeCommit {
		l.used[record.UserID] = l.max
	}
	if l.used[record.UserID] >= l.max {
		return 0, domain.ErrQuotaExhausted
	}
	l.used[record.UserID]++
	l.records = append(l.records, record)
	return l.max - l.used[record.UserID], nil
}

func (l *memLedger) ListByUser(ctx context.Context, userID string, token string) ([]*domain.ConversionRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []*domain.ConversionRecord
	for i := len(l.records) - 1; i >= 0; i-- {
		if l.records[i].UserID == userID {
			out = append(out, l.records[i])
		}
	}
	return out, nil
}

func (l *memLedger) GetByIDAndOwner(ctx context.Context, id, userID string, token string) (*domain.ConversionRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, r := range l.records {
		if r.ID == id && r.UserID == userID {
			return r, nil
		}
	}
	return nil, domain.ErrConversionNotFound
}

func (l *memLedger) DeleteByIDAndOwner(ctx context.Context, id, userID string, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, r := range l.records {
		if r.ID == id && r.UserID == userID {
			l.records = append(l.records[:i], l.records[i+1:]...)
			return nil
		}
	}
	return domain.ErrConversionNotFound
}

func (l *memLedger) Records() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// mockInference is a scripted domain.InferenceClient.
type mockInference struct {
	mu        sync.Mutex
	calls     int
	responses []inferenceResponse
	lastParts []string
}

type inferenceResponse struct {
	text string
	err  error
}

func (m *mockInference) GenerateText(ctx context.Context, parts ...string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastParts = parts
	idx := m.calls
	m.calls++
	if idx >= len(m.responses) {
		idx = len(m.responses) - 1
	}
	r := m.responses[idx]
	return r.text, r.err
}

func (m *mockInference) Close() error { return nil }

func (m *mockInference) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
