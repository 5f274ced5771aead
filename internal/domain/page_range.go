package domain

import "fmt"

// DefaultMaxPageWindow is the largest number of pages summarized per request.
const DefaultMaxPageWindow = 20

// PageRange is an inclusive, 1-based range of pages.
type PageRange struct {
	From int `json:"from_page"`
	To   int `json:"to_page"`
}

// Count returns the number of pages in the range.
func (r PageRange) Count() int {
	if r.To < r.From {
		return 0
	}
	return r.To - r.From + 1
}

// ResolvePageRange clamps the requested range against the document and the
// window size, and only then rejects what is still unusable.
func ResolvePageRange(from int, to *int, totalPages, maxWindow int) (PageRange, error) {
	if maxWindow <= 0 {
		maxWindow = DefaultMaxPageWindow
	}

	end := totalPages
	if to != nil && *to <= totalPages {
		end = *to
	}

	if end-from+1 > maxWindow {
		end = from + maxWindow - 1
	}

	if from < 1 || from > totalPages || from > end {
		return PageRange{}, fmt.Errorf("%w: pages %d-%d of a %d page document", ErrInvalidPageRange, from, end, totalPages)
	}

	return PageRange{From: from, To: end}, nil
}
