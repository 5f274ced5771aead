package domain

import "time"

// PageFailurePolicy decides what happens when a single page cannot be summarized.
type PageFailurePolicy string

const (
	// PageFailureDegrade keeps going and puts a placeholder in the report.
	PageFailureDegrade PageFailurePolicy = "degrade"
	// PageFailureFailFast aborts the whole conversion without charging a credit.
	PageFailureFailFast PageFailurePolicy = "fail_fast"
)

// ParsePageFailurePolicy maps a config value to a policy, defaulting to degrade.
func ParsePageFailurePolicy(value string) PageFailurePolicy {
	if PageFailurePolicy(value) == PageFailureFailFast {
		return PageFailureFailFast
	}
	return PageFailureDegrade
}

// ConversionRequest is one upload to be summarized.
type ConversionRequest struct {
	Document         []byte       `json:"-" form:"pdf" validate:"required"`
	OriginalFilename string       `json:"original_filename" form:"filename" validate:"required,max=255"`
	FromPage         int          `json:"from_page" form:"from_page" validate:"gte=1"`
	ToPage           *int         `json:"to_page,omitempty" form:"to_page" validate:"omitempty,gte=1"`
	SummaryStyle     SummaryStyle `json:"summary_type" form:"summary_type" validate:"required,summary_style"`
	Theme            *string      `json:"theme,omitempty" form:"theme" validate:"omitempty,theme"`
}

// PageSummary is the model output for one source page.
type PageSummary struct {
	PageNumber int    `json:"page_number"`
	Text       string `json:"summary"`
	Failed     bool   `json:"failed,omitempty"`
}

// ConversionRecord is the persisted trace of one successful conversion.
type ConversionRecord struct {
	ID               string       `json:"id"`
	UserID           string       `json:"user_id"`
	OriginalFilename string       `json:"original_filename"`
	SummaryPath      string       `json:"summary_path"`
	SummaryStyle     SummaryStyle `json:"summary_type"`
	PagesProcessed   int          `json:"pages_processed"`
	CreatedAt        time.Time    `json:"created_at"`
}

// ConversionResult is what a successful conversion returns to the caller.
type ConversionResult struct {
	Record           *ConversionRecord
	ExtractedText    string
	PageSummaries    []PageSummary
	Range            PageRange
	RemainingCredits int
}
