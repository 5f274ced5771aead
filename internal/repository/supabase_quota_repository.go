package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"brevity-server/internal/domain"
)

const creditsTable = "user_credits"

// SupabaseQuotaRepository implements domain.QuotaLedger on the user_credits table.
// Users without a row are reported with defaultCredits, which should match the
// column default that charge_credit uses when it creates the row.
type SupabaseQuotaRepository struct {
	supabaseClient domain.SupabaseClient
	logger         domain.Logger
	defaultCredits int
}

// NewSupabaseQuotaRepository creates a new Supabase quota repository
func NewSupabaseQuotaRepository(supabaseClient domain.SupabaseClient, logger domain.Logger, defaultCredits int) *SupabaseQuotaRepository {
	return &SupabaseQuotaRepository{
		supabaseClient: supabaseClient,
		logger:         logger,
		defaultCredits: defaultCredits,
	}
}

type creditsRow struct {
	UserID      string `json:"user_id"`
	MaxCredits  int    `json:"max_credits"`
	UsedCredits int    `json:"used_credits"`
}

// Account returns the user's credit balance
func (r *SupabaseQuotaRepository) Account(ctx context.Context, userID string, token string) (*domain.QuotaAccount, error) {
	client, err := r.supabaseClient.GetClientWithToken(token)
	if err != nil {
		return nil, fmt.Errorf("failed to get client with token: %w", err)
	}

	data, _, err := client.From(creditsTable).
		Select("user_id,max_credits,used_credits", "", false).
		Eq("user_id", userID).
		Limit(1, "").
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to get credits: %w", err)
	}

	var rows []creditsRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to unmarshal credits: %w", err)
	}
	if len(rows) == 0 {
		return &domain.QuotaAccount{UserID: userID, MaxCredits: r.defaultCredits}, nil
	}

	return &domain.QuotaAccount{
		UserID:      rows[0].UserID,
		MaxCredits:  rows[0].MaxCredits,
		UsedCredits: rows[0].UsedCredits,
	}, nil
}

// HasRemaining reports whether the user can start another conversion
func (r *SupabaseQuotaRepository) HasRemaining(ctx context.Context, userID string, token string) (bool, error) {
	account, err := r.Account(ctx, userID, token)
	if err != nil {
		return false, err
	}
	return !account.Exhausted(), nil
}

// Charge spends one credit with a conditional increment in charge_credit.
func (r *SupabaseQuotaRepository) Charge(ctx context.Context, userID string, token string) (int, error) {
	remaining, err := callIntRPC(r.supabaseClient.RPCClient(token), "charge_credit", map[string]interface{}{
		"p_user_id": userID,
	})
	if err != nil {
		return 0, err
	}
	r.logger.Debug("Credit charged", "user_id", userID, "remaining", remaining)
	return remaining, nil
}
