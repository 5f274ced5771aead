package service

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"brevity-server/internal/domain"

	"github.com/gen2brain/go-fitz"
)

const defaultPageTimeout = 90 * time.Second

// FitzExtractor opens PDFs with MuPDF through go-fitz.
type FitzExtractor struct {
	logger      domain.Logger
	pageTimeout time.Duration
}

// NewFitzExtractor creates a new MuPDF page extractor
func NewFitzExtractor(logger domain.Logger) *FitzExtractor {
	return &FitzExtractor{
		logger:      logger,
		pageTimeout: defaultPageTimeout,
	}
}

// Open parses the document. The caller must Close it.
func (e *FitzExtractor) Open(data []byte) (domain.PDFDocument, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrParseFailure, err)
	}
	return &fitzDocument{doc: doc, logger: e.logger, pageTimeout: e.pageTimeout}, nil
}

// pageSource is the part of *fitz.Document that fitzDocument uses.
type pageSource interface {
	NumPage() int
	Text(pageNumber int) (string, error)
	Close() error
}

// fitzDocument counts extractions still running in MuPDF. A timed out page
// keeps its goroutine, so Close leaves the last one to release the document.
type fitzDocument struct {
	doc         pageSource
	logger      domain.Logger
	pageTimeout time.Duration

	mu       sync.Mutex
	inflight int
	closed   bool
}

func (d *fitzDocument) PageCount() int {
	return d.doc.NumPage()
}

// PageText returns the text of a 1-based page. A page that takes longer
// than pageTimeout is reported as an error.
func (d *fitzDocument) PageText(page int) (string, error) {
	total := d.doc.NumPage()
	if page < 1 || page > total {
		return "", fmt.Errorf("page %d out of range 1..%d", page, total)
	}

	type pageResult struct {
		text string
		err  error
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return "", fmt.Errorf("page %d: document is closed", page)
	}
	d.inflight++
	d.mu.Unlock()

	resultCh := make(chan pageResult, 1)
	go func(idx int) {
		t, e := d.doc.Text(idx)
		resultCh <- pageResult{text: t, err: e}
		d.release()
	}(page - 1)

	select {
	case res := <-resultCh:
		if res.err != nil {
			return "", fmt.Errorf("failed to extract page %d: %w", page, res.err)
		}
		return sanitizeText(strings.TrimSpace(res.text)), nil
	case <-time.After(d.pageTimeout):
		d.logger.Warn("PDF page extraction timeout", "page", page, "total", total, "timeout_sec", int(d.pageTimeout.Seconds()))
		return "", fmt.Errorf("page %d: timeout after %v", page, d.pageTimeout)
	}
}

// release ends one extraction and closes the document if Close already ran.
func (d *fitzDocument) release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.inflight--
	if d.closed && d.inflight == 0 {
		if err := d.doc.Close(); err != nil {
			d.logger.Warn("Failed to close PDF after late extraction", "error", err)
		}
	}
}

func (d *fitzDocument) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	pending := d.inflight
	d.mu.Unlock()

	if pending > 0 {
		d.logger.Debug("Deferring PDF close until extraction returns", "pending", pending)
		return nil
	}
	return d.doc.Close()
}

// sanitizeText drops NUL, stray control characters and lone surrogates so
// extracted text can go into prompts and JSON responses unchanged.
func sanitizeText(text string) string {
	var result strings.Builder
	result.Grow(len(text))

	for _, r := range text {
		switch {
		case r == 0x09 || r == 0x0A || r == 0x0D:
			result.WriteRune(r)
		case r >= 0x20 && r < 0x7F:
			result.WriteRune(r)
		case r >= 0x7F && r <= 0x9F:
			// C1 controls
		case r >= 0xD800 && r <= 0xDFFF:
		case r == 0xFFFD:
		case r > 0x9F && r <= 0x10FFFF:
			result.WriteRune(r)
		}
	}

	return result.String()
}
