package service

import (
	"bytes"
	"fmt"
	"strings"

	"brevity-server/internal/domain"

	"github.com/ledongthuc/pdf"
)

// NativeExtractor reads PDFs with the pure Go ledongthuc/pdf reader. It is
// used where MuPDF is not available.
type NativeExtractor struct {
	logger domain.Logger
}

// NewNativeExtractor creates a new pure Go page extractor
func NewNativeExtractor(logger domain.Logger) *NativeExtractor {
	return &NativeExtractor{logger: logger}
}

// Open parses the document
func (e *NativeExtractor) Open(data []byte) (doc domain.PDFDocument, err error) {
	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = fmt.Errorf("%w: %v", domain.ErrParseFailure, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrParseFailure, err)
	}
	return &nativeDocument{reader: reader, logger: e.logger}, nil
}

type nativeDocument struct {
	reader *pdf.Reader
	logger domain.Logger
}

func (d *nativeDocument) PageCount() int {
	return d.reader.NumPage()
}

// PageText returns the plain text of a 1-based page. The reader panics on
// some malformed content streams, so those panics become errors.
func (d *nativeDocument) PageText(page int) (text string, err error) {
	total := d.reader.NumPage()
	if page < 1 || page > total {
		return "", fmt.Errorf("page %d out of range 1..%d", page, total)
	}

	defer func() {
		if r := recover(); r != nil {
			d.logger.Warn("PDF page extraction panicked", "page", page, "panic", fmt.Sprint(r))
			text = ""
			err = fmt.Errorf("page %d: %v", page, r)
		}
	}()

	p := d.reader.Page(page)
	if p.V.IsNull() {
		return "", nil
	}

	raw, err := p.GetPlainText(nil)
	if err != nil {
		return "", fmt.Errorf("failed to extract page %d: %w", page, err)
	}
	return sanitizeText(strings.TrimSpace(raw)), nil
}

func (d *nativeDocument) Close() error {
	return nil
}
