package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"brevity-server/internal/domain"

	"github.com/supabase-community/postgrest-go"
)

const conversionsTable = "conversions"

// SupabaseConversionRepository implements domain.ConversionRepository on PostgREST.
type SupabaseConversionRepository struct {
	supabaseClient domain.SupabaseClient
	logger         domain.Logger
}

// NewSupabaseConversionRepository creates a new Supabase conversion repository
func NewSupabaseConversionRepository(supabaseClient domain.SupabaseClient, logger domain.Logger) *SupabaseConversionRepository {
	return &SupabaseConversionRepository{
		supabaseClient: supabaseClient,
		logger:         logger,
	}
}

type conversionRow struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	OriginalFilename string    `json:"original_filename"`
	SummaryPath      string    `json:"summary_path"`
	SummaryType      string    `json:"summary_type"`
	PagesProcessed   int       `json:"pages_processed"`
	CreatedAt        time.Time `json:"created_at"`
}

func (row conversionRow) toDomain() *domain.ConversionRecord {
	return &domain.ConversionRecord{
		ID:               row.ID,
		UserID:           row.UserID,
		OriginalFilename: row.OriginalFilename,
		SummaryPath:      row.SummaryPath,
		SummaryStyle:     domain.SummaryStyle(row.SummaryType),
		PagesProcessed:   row.PagesProcessed,
		CreatedAt:        row.CreatedAt,
	}
}

// CommitConversion inserts the record and spends one credit through the
// commit_conversion function, which does both in one transaction. The credit
// ceiling is owned by the database and is never sent from here.
func (r *SupabaseConversionRepository) CommitConversion(ctx context.Context, record *domain.ConversionRecord, token string) (int, error) {
	params := map[string]interface{}{
		"p_id":                record.ID,
		"p_user_id":           record.UserID,
		"p_original_filename": record.OriginalFilename,
		"p_summary_path":      record.SummaryPath,
		"p_summary_type":      string(record.SummaryStyle),
		"p_pages_processed":   record.PagesProcessed,
		"p_created_at":        record.CreatedAt.UTC().Format(time.RFC3339),
	}

	remaining, err := callIntRPC(r.supabaseClient.RPCClient(token), "commit_conversion", params)
	if err != nil {
		return 0, err
	}
	r.logger.Debug("Conversion committed", "conversion_id", record.ID, "user_id", record.UserID, "remaining", remaining)
	return remaining, nil
}

// ListByUser returns the user's conversions, most recent first
func (r *SupabaseConversionRepository) ListByUser(ctx context.Context, userID string, token string) ([]*domain.ConversionRecord, error) {
	client, err := r.supabaseClient.GetClientWithToken(token)
	if err != nil {
		return nil, fmt.Errorf("failed to get client with token: %w", err)
	}

	data, _, err := client.From(conversionsTable).
		Select("*", "", false).
		Eq("user_id", userID).
		Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to list conversions: %w", err)
	}

	rows, err := decodeConversionRows(data)
	if err != nil {
		return nil, err
	}

	records := make([]*domain.ConversionRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.toDomain())
	}
	return records, nil
}

// GetByIDAndOwner returns one conversion. Records owned by someone else
// are reported as not found.
func (r *SupabaseConversionRepository) GetByIDAndOwner(ctx context.Context, id, userID string, token string) (*domain.ConversionRecord, error) {
	client, err := r.supabaseClient.GetClientWithToken(token)
	if err != nil {
		return nil, fmt.Errorf("failed to get client with token: %w", err)
	}

	data, _, err := client.From(conversionsTable).
		Select("*", "", false).
		Eq("id", id).
		Eq("user_id", userID).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to get conversion: %w", err)
	}

	rows, err := decodeConversionRows(data)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, domain.ErrConversionNotFound
	}
	return rows[0].toDomain(), nil
}

// DeleteByIDAndOwner removes one conversion record
func (r *SupabaseConversionRepository) DeleteByIDAndOwner(ctx context.Context, id, userID string, token string) error {
	client, err := r.supabaseClient.GetClientWithToken(token)
	if err != nil {
		return fmt.Errorf("failed to get client with token: %w", err)
	}

	data, _, err := client.From(conversionsTable).
		Delete("representation", "").
		Eq("id", id).
		Eq("user_id", userID).
		Execute()
	if err != nil {
		return fmt.Errorf("failed to delete conversion: %w", err)
	}

	rows, err := decodeConversionRows(data)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return domain.ErrConversionNotFound
	}
	return nil
}

func decodeConversionRows(data []byte) ([]conversionRow, error) {
	var rows []conversionRow
	if len(data) == 0 {
		return rows, nil
	}
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to unmarshal conversions: %w", err)
	}
	return rows, nil
}
