package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"brevity-server/internal/domain"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresRepository stores conversions and credits directly in Postgres.
// It implements both domain.ConversionRepository and domain.QuotaLedger;
// the token arguments are ignored because access is checked by user id.
type PostgresRepository struct {
	db             *sql.DB
	logger         domain.Logger
	defaultCredits int
}

// OpenPostgres opens a pgx-backed connection pool and checks it is reachable.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}
	return db, nil
}

// NewPostgresRepository creates a new Postgres repository
func NewPostgresRepository(db *sql.DB, logger domain.Logger, defaultCredits int) *PostgresRepository {
	return &PostgresRepository{
		db:             db,
		logger:         logger,
		defaultCredits: defaultCredits,
	}
}

// ensureAccount creates the credits row on first use.
func (r *PostgresRepository) ensureAccount(ctx context.Context, tx *sql.Tx, userID string) error {
	_, err := tx.ExecContext(ctx, `
		insert into user_credits (user_id, max_credits, used_credits)
		values ($1, $2, 0)
		on conflict (user_id) do nothing
	`, userID, r.defaultCredits)
	return err
}

// lockAccount reads the balance and holds the row until the transaction ends.
func (r *PostgresRepository) lockAccount(ctx context.Context, tx *sql.Tx, userID string) (*domain.QuotaAccount, error) {
	if err := r.ensureAccount(ctx, tx, userID); err != nil {
		return nil, fmt.Errorf("failed to create credits row: %w", err)
	}
	account := &domain.QuotaAccount{UserID: userID}
	err := tx.QueryRowContext(ctx, `
		select max_credits, used_credits from user_credits
		where user_id = $1
		for update
	`, userID).Scan(&account.MaxCredits, &account.UsedCredits)
	if err != nil {
		return nil, fmt.Errorf("failed to lock credits row: %w", err)
	}
	return account, nil
}

func (r *PostgresRepository) spendCredit(ctx context.Context, tx *sql.Tx, userID string) error {
	_, err := tx.ExecContext(ctx, `
		update user_credits
		set used_credits = used_credits + 1, updated_at = now()
		where user_id = $1
	`, userID)
	return err
}

// CommitConversion inserts the record and spends one credit in one transaction.
func (r *PostgresRepository) CommitConversion(ctx context.Context, record *domain.ConversionRecord, token string) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	account, err := r.lockAccount(ctx, tx, record.UserID)
	if err != nil {
		return 0, err
	}
	if account.Exhausted() {
		return 0, domain.ErrQuotaExhausted
	}

	_, err = tx.ExecContext(ctx, `
		insert into conversions (id, user_id, original_filename, summary_path, summary_type, pages_processed, created_at)
		values ($1, $2, $3, $4, $5, $6, $7)
	`, record.ID, record.UserID, record.OriginalFilename, record.SummaryPath, string(record.SummaryStyle), record.PagesProcessed, record.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert conversion: %w", err)
	}

	if err := r.spendCredit(ctx, tx, record.UserID); err != nil {
		return 0, fmt.Errorf("failed to charge credit: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit conversion: %w", err)
	}
	return account.Remaining() - 1, nil
}

// ListByUser returns the user's conversions, most recent first
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string, token string) ([]*domain.ConversionRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		select id, user_id, original_filename, summary_path, summary_type, pages_processed, created_at
		from conversions
		where user_id = $1
		order by created_at desc
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversions: %w", err)
	}
	defer rows.Close()

	records := make([]*domain.ConversionRecord, 0)
	for rows.Next() {
		rec, err := scanConversion(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// GetByIDAndOwner returns one conversion owned by userID
func (r *PostgresRepository) GetByIDAndOwner(ctx context.Context, id, userID string, token string) (*domain.ConversionRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		select id, user_id, original_filename, summary_path, summary_type, pages_processed, created_at
		from conversions
		where id = $1 and user_id = $2
	`, id, userID)

	rec, err := scanConversion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrConversionNotFound
	}
	return rec, err
}

// DeleteByIDAndOwner removes one conversion owned by userID
func (r *PostgresRepository) DeleteByIDAndOwner(ctx context.Context, id, userID string, token string) error {
	res, err := r.db.ExecContext(ctx, `delete from conversions where id = $1 and user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete conversion: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return domain.ErrConversionNotFound
	}
	return nil
}

// Account returns the user's credit balance
func (r *PostgresRepository) Account(ctx context.Context, userID string, token string) (*domain.QuotaAccount, error) {
	account := &domain.QuotaAccount{UserID: userID}
	err := r.db.QueryRowContext(ctx, `
		select max_credits, used_credits from user_credits where user_id = $1
	`, userID).Scan(&account.MaxCredits, &account.UsedCredits)
	if errors.Is(err, sql.ErrNoRows) {
		account.MaxCredits = r.defaultCredits
		return account, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get credits: %w", err)
	}
	return account, nil
}

// HasRemaining reports whether the user can start another conversion
func (r *PostgresRepository) HasRemaining(ctx context.Context, userID string, token string) (bool, error) {
	account, err := r.Account(ctx, userID, token)
	if err != nil {
		return false, err
	}
	return !account.Exhausted(), nil
}

// Charge spends one credit unless the balance is already at the limit
func (r *PostgresRepository) Charge(ctx context.Context, userID string, token string) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	account, err := r.lockAccount(ctx, tx, userID)
	if err != nil {
		return 0, err
	}
	if account.Exhausted() {
		return 0, domain.ErrQuotaExhausted
	}
	if err := r.spendCredit(ctx, tx, userID); err != nil {
		return 0, fmt.Errorf("failed to charge credit: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit charge: %w", err)
	}
	return account.Remaining() - 1, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversion(row rowScanner) (*domain.ConversionRecord, error) {
	var (
		rec         domain.ConversionRecord
		summaryType string
	)
	if err := row.Scan(&rec.ID, &rec.UserID, &rec.OriginalFilename, &rec.SummaryPath, &summaryType, &rec.PagesProcessed, &rec.CreatedAt); err != nil {
		return nil, err
	}
	rec.SummaryStyle = domain.SummaryStyle(summaryType)
	return &rec, nil
}
