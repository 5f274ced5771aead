package service

import (
	"fmt"
	"path"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	maxFilenameLength = 100
	fallbackFilename  = "document.pdf"
	summaryTimeLayout = "2006-01-02_15-04-05"
)

var titleCaser = cases.Title(language.English, cases.NoLower)

// SanitizeFilename keeps [a-z0-9._-] of the lowercased name, capped at 100 bytes.
func SanitizeFilename(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		}
		return -1
	}, name)

	if len(cleaned) > maxFilenameLength {
		cleaned = cleaned[:maxFilenameLength]
	}
	if strings.Trim(cleaned, ".") == "" {
		return fallbackFilename
	}
	return cleaned
}

// FilenameStem returns the sanitized name without its extension.
func FilenameStem(name string) string {
	clean := SanitizeFilename(name)
	stem := strings.TrimSuffix(clean, path.Ext(clean))
	if stem == "" {
		return strings.TrimSuffix(fallbackFilename, path.Ext(fallbackFilename))
	}
	return stem
}

// ReportTitle turns "quarterly_report-2024.pdf" into "Quarterly Report 2024".
func ReportTitle(originalFilename string) string {
	base := path.Base(strings.ReplaceAll(originalFilename, "\\", "/"))
	stem := strings.TrimSuffix(base, path.Ext(base))
	stem = strings.Join(strings.Fields(strings.NewReplacer("-", " ", "_", " ").Replace(stem)), " ")
	if stem == "" || stem == "." || stem == "/" {
		return "Document"
	}
	return titleCaser.String(stem)
}

// SummaryObjectPath is the bucket key for a rendered report.
func SummaryObjectPath(userID, originalFilename string, at time.Time, shortID string) string {
	return fmt.Sprintf("pdfs/summaries/%s/summary_%s_%s_%s_%s.pdf",
		userID, userID, FilenameStem(originalFilename), at.UTC().Format(summaryTimeLayout), shortID)
}
