package service

import (
	"bytes"
	"fmt"

	"brevity-server/internal/domain"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PDFInspector reads document structure with pdfcpu without extracting text.
type PDFInspector struct {
	logger domain.Logger
}

// NewPDFInspector creates a new pdfcpu inspector
func NewPDFInspector(logger domain.Logger) *PDFInspector {
	return &PDFInspector{logger: logger}
}

// Inspect returns the page count and whether the document is encrypted
func (i *PDFInspector) Inspect(data []byte) (*domain.DocumentInfo, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF context: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("failed to count pages: %w", err)
	}

	info := &domain.DocumentInfo{
		PageCount: ctx.PageCount,
		Encrypted: ctx.Encrypt != nil,
	}
	i.logger.Debug("Inspected PDF", "page_count", info.PageCount, "encrypted", info.Encrypted, "size", len(data))
	return info, nil
}
