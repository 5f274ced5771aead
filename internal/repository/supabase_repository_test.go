package repository

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"brevity-server/internal/domain"
	infrasupabase "brevity-server/internal/infra/supabase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubConfig struct {
	domain.Config
	url string
}

func (c *stubConfig) GetSupabaseURL() string { return c.url }
func (c *stubConfig) GetSupabaseKey() string { return "anon-key" }

type MockLogger struct{}

func (l *MockLogger) Info(msg string, fields ...interface{})             {}
func (l *MockLogger) Error(msg string, err error, fields ...interface{}) {}
func (l *MockLogger) Debug(msg string, fields ...interface{})            {}
func (l *MockLogger) Warn(msg string, fields ...interface{})             {}

func newTestSupabase(t *testing.T, handler http.HandlerFunc) *infrasupabase.SupabaseClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := infrasupabase.NewSupabaseClient(&stubConfig{url: srv.URL}, &MockLogger{})
	require.NoError(t, client.Initialize())
	return client
}

func TestSupabaseConversionRepository_ListByUser(t *testing.T) {
	client := newTestSupabase(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/rest/v1/conversions", r.URL.Path)
		assert.Equal(t, "eq.user-1", r.URL.Query().Get("user_id"))
		assert.True(t, strings.HasPrefix(r.URL.Query().Get("order"), "created_at.desc"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"id":"c2","user_id":"user-1","original_filename":"b.pdf","summary_path":"pdfs/summaries/user-1/b.pdf","summary_type":"short","pages_processed":2,"created_at":"2026-02-02T10:00:00Z"},
			{"id":"c1","user_id":"user-1","original_filename":"a.pdf","summary_path":"pdfs/summaries/user-1/a.pdf","summary_type":"detailed","pages_processed":5,"created_at":"2026-01-01T10:00:00Z"}
		]`))
	})
	repo := NewSupabaseConversionRepository(client, &MockLogger{})

	records, err := repo.ListByUser(context.Background(), "user-1", "user-token")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "c2", records[0].ID)
	assert.Equal(t, domain.SummaryStyle("detailed"), records[1].SummaryStyle)
	assert.Equal(t, 5, records[1].PagesProcessed)
	assert.True(t, records[0].CreatedAt.After(records[1].CreatedAt))
}

func TestSupabaseConversionRepository_GetByIDAndOwner_NotFound(t *testing.T) {
	client := newTestSupabase(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "eq.c1", r.URL.Query().Get("id"))
		assert.Equal(t, "eq.intruder", r.URL.Query().Get("user_id"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[]`))
	})
	repo := NewSupabaseConversionRepository(client, &MockLogger{})

	_, err := repo.GetByIDAndOwner(context.Background(), "c1", "intruder", "token")
	assert.True(t, errors.Is(err, domain.ErrConversionNotFound))
}

func TestSupabaseConversionRepository_Delete(t *testing.T) {
	deleted := false
	client := newTestSupabase(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.Header().Set("Content-Type", "application/json")
		if deleted {
			w.Write([]byte(`[]`))
			return
		}
		deleted = true
		w.Write([]byte(`[{"id":"c1","user_id":"user-1","original_filename":"a.pdf","summary_path":"p","summary_type":"short","pages_processed":1,"created_at":"2026-01-01T10:00:00Z"}]`))
	})
	repo := NewSupabaseConversionRepository(client, &MockLogger{})

	require.NoError(t, repo.DeleteByIDAndOwner(context.Background(), "c1", "user-1", "token"))

	err := repo.DeleteByIDAndOwner(context.Background(), "c1", "user-1", "token")
	assert.True(t, errors.Is(err, domain.ErrConversionNotFound))
}

func TestSupabaseConversionRepository_CommitConversion(t *testing.T) {
	client := newTestSupabase(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/rest/v1/rpc/commit_conversion", r.URL.Path)
		assert.Equal(t, "Bearer user-token", r.Header.Get("Authorization"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "user-1", body["p_user_id"])
		assert.Equal(t, "short", body["p_summary_type"])
		assert.EqualValues(t, 3, body["p_pages_processed"])
		_, sent := body["p_max_credits"]
		assert.False(t, sent, "credit ceiling must not come from the client")

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`4`))
	})
	repo := NewSupabaseConversionRepository(client, &MockLogger{})

	remaining, err := repo.CommitConversion(context.Background(), &domain.ConversionRecord{
		ID:               "c1",
		UserID:           "user-1",
		OriginalFilename: "a.pdf",
		SummaryPath:      "pdfs/summaries/user-1/a.pdf",
		SummaryStyle:     "short",
		PagesProcessed:   3,
		CreatedAt:        time.Now(),
	}, "user-token")
	require.NoError(t, err)
	assert.Equal(t, 4, remaining)
}

func TestSupabaseConversionRepository_CommitConversion_QuotaExhausted(t *testing.T) {
	client := newTestSupabase(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":"P0001","message":"quota_exhausted","details":null,"hint":null}`))
	})
	repo := NewSupabaseConversionRepository(client, &MockLogger{})

	_, err := repo.CommitConversion(context.Background(), &domain.ConversionRecord{ID: "c1", UserID: "user-1"}, "token")
	assert.True(t, errors.Is(err, domain.ErrQuotaExhausted))
}

func TestSupabaseConversionRepository_CommitConversion_OtherError(t *testing.T) {
	client := newTestSupabase(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"code":"23505","message":"duplicate key value violates unique constraint"}`))
	})
	repo := NewSupabaseConversionRepository(client, &MockLogger{})

	_, err := repo.CommitConversion(context.Background(), &domain.ConversionRecord{ID: "c1", UserID: "user-1"}, "token")
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrQuotaExhausted))
	assert.Contains(t, err.Error(), "23505")
}

func TestSupabaseQuotaRepository_Account(t *testing.T) {
	rows := `[]`
	client := newTestSupabase(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/user_credits", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(rows))
	})
	repo := NewSupabaseQuotaRepository(client, &MockLogger{}, 5)

	account, err := repo.Account(context.Background(), "user-1", "token")
	require.NoError(t, err)
	assert.Equal(t, 5, account.MaxCredits)
	assert.Equal(t, 0, account.UsedCredits)

	rows = `[{"user_id":"user-1","max_credits":3,"used_credits":3}]`
	ok, err := repo.HasRemaining(context.Background(), "user-1", "token")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSupabaseQuotaRepository_Charge(t *testing.T) {
	client := newTestSupabase(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/rpc/charge_credit", r.URL.Path)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]interface{}{"p_user_id": "user-1"}, body)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`2`))
	})
	repo := NewSupabaseQuotaRepository(client, &MockLogger{}, 5)

	remaining, err := repo.Charge(context.Background(), "user-1", "token")
	require.NoError(t, err)
	assert.Equal(t, 2, remaining)
}
