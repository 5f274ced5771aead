// Package handler provides HTTP handlers for the API.
package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"brevity-server/internal/domain"
	apperrors "brevity-server/pkg/errors"

	"github.com/gorilla/mux"
)

const (
	multipartOverhead = 1 << 20
	multipartMemory   = 32 << 20
)

// ConversionHandler handles upload, listing, download and deletion of summaries
type ConversionHandler struct {
	service     domain.ConversionService
	logger      domain.Logger
	maxFileSize int64
}

// NewConversionHandler creates a new conversion handler
func NewConversionHandler(service domain.ConversionService, logger domain.Logger, maxFileSize int64) *ConversionHandler {
	return &ConversionHandler{
		service:     service,
		logger:      logger,
		maxFileSize: maxFileSize,
	}
}

type conversionResponse struct {
	Message          string               `json:"message"`
	ID               string               `json:"id"`
	ExtractedText    string               `json:"extracted_text"`
	PageSummaries    []domain.PageSummary `json:"page_summaries"`
	SummaryFile      string               `json:"summary_file"`
	PagesProcessed   int                  `json:"pages_processed"`
	FromPage         int                  `json:"from_page"`
	ToPage           int                  `json:"to_page"`
	RemainingCredits int                  `json:"remaining_credits"`
}

type quotaResponse struct {
	Message          string `json:"message"`
	Error            string `json:"error"`
	RemainingCredits int    `json:"remaining_credits"`
}

// Convert handles POST /conversions
func (h *ConversionHandler) Convert(w http.ResponseWriter, r *http.Request) {
	user, ok := GetUserFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "User not found in context")
		return
	}
	token, ok := GetTokenFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Token not found in context")
		return
	}

	req, status, err := h.parseConversionRequest(w, r)
	if err != nil {
		writeError(w, status, err.Error())
		return
	}

	result, err := h.service.Convert(r.Context(), req, user.ID, token)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeQuotaExhausted) {
			var appErr *apperrors.AppError
			errors.As(err, &appErr)
			writeJSON(w, http.StatusForbidden, quotaResponse{
				Message:          "Insufficient credits",
				Error:            appErr.Message,
				RemainingCredits: 0,
			})
			return
		}
		writeAppError(w, h.logger, err, "user_id", user.ID)
		return
	}

	writeJSON(w, http.StatusOK, conversionResponse{
		Message:          "Text extracted and summarized successfully",
		ID:               result.Record.ID,
		ExtractedText:    result.ExtractedText,
		PageSummaries:    result.PageSummaries,
		SummaryFile:      result.Record.SummaryPath,
		PagesProcessed:   result.Record.PagesProcessed,
		FromPage:         result.Range.From,
		ToPage:           result.Range.To,
		RemainingCredits: result.RemainingCredits,
	})
}

// parseConversionRequest reads the multipart form. A missing file is left
// for the service to reject so quota is still checked first.
func (h *ConversionHandler) parseConversionRequest(w http.ResponseWriter, r *http.Request) (*domain.ConversionRequest, int, error) {
	if h.maxFileSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize+multipartOverhead)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, http.StatusRequestEntityTooLarge, h.tooLargeError()
		}
		return nil, http.StatusBadRequest, errors.New("Invalid multipart form")
	}

	// from_page is required; left at zero when absent so validation rejects it.
	req := &domain.ConversionRequest{
		SummaryStyle: domain.SummaryStyle(strings.TrimSpace(r.FormValue("summary_type"))),
	}

	file, header, err := r.FormFile("pdf")
	switch {
	case err == nil:
		defer file.Close()
		if h.maxFileSize > 0 && header.Size > h.maxFileSize {
			return nil, http.StatusRequestEntityTooLarge, h.tooLargeError()
		}
		data, err := io.ReadAll(file)
		if err != nil {
			return nil, http.StatusBadRequest, errors.New("Failed to read uploaded file")
		}
		req.Document = data
		req.OriginalFilename = strings.TrimSpace(filepath.Base(header.Filename))
	case errors.Is(err, http.ErrMissingFile):
	default:
		return nil, http.StatusBadRequest, errors.New("Invalid file upload")
	}

	if v := strings.TrimSpace(r.FormValue("from_page")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, http.StatusUnprocessableEntity, errors.New("from_page must be an integer")
		}
		req.FromPage = n
	}
	if v := strings.TrimSpace(r.FormValue("to_page")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, http.StatusUnprocessableEntity, errors.New("to_page must be an integer")
		}
		req.ToPage = &n
	}
	if v := strings.TrimSpace(r.FormValue("theme")); v != "" {
		req.Theme = &v
	}

	return req, 0, nil
}

func (h *ConversionHandler) tooLargeError() error {
	return fmt.Errorf("File too large. Maximum size is %d MB.", h.maxFileSize>>20)
}

// ListConversions handles GET /conversions
func (h *ConversionHandler) ListConversions(w http.ResponseWriter, r *http.Request) {
	user, token, ok := h.caller(w, r)
	if !ok {
		return
	}

	records, err := h.service.ListConversions(r.Context(), user.ID, token)
	if err != nil {
		writeAppError(w, h.logger, err, "user_id", user.ID)
		return
	}

	// Ensure JSON is [] not null when there are no conversions.
	if records == nil {
		records = make([]*domain.ConversionRecord, 0)
	}
	writeJSON(w, http.StatusOK, records)
}

// GetConversion handles GET /conversions/{id}
func (h *ConversionHandler) GetConversion(w http.ResponseWriter, r *http.Request) {
	user, token, ok := h.caller(w, r)
	if !ok {
		return
	}

	id := mux.Vars(r)["id"]
	record, err := h.service.GetConversion(r.Context(), id, user.ID, token)
	if err != nil {
		writeAppError(w, h.logger, err, "user_id", user.ID, "conversion_id", id)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// DownloadConversion handles GET /conversions/{id}/download
func (h *ConversionHandler) DownloadConversion(w http.ResponseWriter, r *http.Request) {
	user, token, ok := h.caller(w, r)
	if !ok {
		return
	}

	id := mux.Vars(r)["id"]
	record, data, err := h.service.DownloadConversion(r.Context(), id, user.ID, token)
	if err != nil {
		writeAppError(w, h.logger, err, "user_id", user.ID, "conversion_id", id)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", path.Base(record.SummaryPath)))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// DeleteConversion handles DELETE /conversions/{id}
func (h *ConversionHandler) DeleteConversion(w http.ResponseWriter, r *http.Request) {
	user, token, ok := h.caller(w, r)
	if !ok {
		return
	}

	id := mux.Vars(r)["id"]
	if err := h.service.DeleteConversion(r.Context(), id, user.ID, token); err != nil {
		writeAppError(w, h.logger, err, "user_id", user.ID, "conversion_id", id)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Conversion deleted"})
}

func (h *ConversionHandler) caller(w http.ResponseWriter, r *http.Request) (*domain.SupabaseUser, string, bool) {
	user, ok := GetUserFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "User not found in context")
		return nil, "", false
	}
	token, ok := GetTokenFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Token not found in context")
		return nil, "", false
	}
	return user, token, true
}
