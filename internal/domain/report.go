package domain

import "time"

// ReportSection is one block of the rendered report. Body may use
// **bold**, *italic* and # to ###### headings.
type ReportSection struct {
	Header string
	Body   string
}

// ReportInput is everything the renderer needs to lay out a report.
type ReportInput struct {
	Title       string
	Subtitle    string
	TotalPages  int
	Sections    []ReportSection
	Theme       Theme
	AppName     string
	GeneratedAt time.Time
}

// DocumentInfo is what can be learned about an upload before extracting text.
type DocumentInfo struct {
	PageCount int
	Encrypted bool
}
