package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/kilnworks/be-brick-ledger/internal/apperr"
	"github.com/kilnworks/be-brick-ledger/internal/database"
	"github.com/kilnworks/be-brick-ledger/internal/repository"
)

// AccountStore is the Postgres implementation of repository.AccountStore.
type AccountStore struct {
	db *database.DB
}

// NewAccountStore creates a new account store.
func NewAccountStore(db *database.DB) *AccountStore {
	return &AccountStore{db: db}
}

func (s *AccountStore) CreateAccount(ctx context.Context, acct *repository.Account) error {
	query := `
		INSERT INTO accounts (id, account_number, current_balance, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	err := s.db.Exec(ctx, query,
		acct.ID, acct.AccountNumber, acct.CurrentBalance, acct.Active, acct.CreatedAt, acct.UpdatedAt)
	if err != nil {
		return apperr.Wrap(err, apperr.ErrCodeInternal, "failed to create account")
	}
	return nil
}

func (s *AccountStore) GetAccount(ctx context.Context, id string) (*repository.Account, error) {
	query := `
		SELECT id, account_number, current_balance, active, created_at, updated_at
		FROM accounts
		WHERE id = $1
	`
	acct, err := scanAccount(s.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.Newf(apperr.ErrCodeUnknownReference, "account %q not found", id)
	}
	if err != nil {
		return nil, apperr.Wrap(err, apperr.ErrCodeInternal, "failed to get account")
	}
	return acct, nil
}

func (s *AccountStore) GetAccountByNumber(ctx context.Context, number string) (*repository.Account, error) {
	query := `
		SELECT id, account_number, current_balance, active, created_at, updated_at
		FROM accounts
		WHERE account_number = $1
		ORDER BY active DESC, created_at DESC
		LIMIT 1
	`
	acct, err := scanAccount(s.db.QueryRow(ctx, query, number))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.Newf(apperr.ErrCodeNotFound, "account number %q not found", number)
	}
	if err != nil {
		return nil, apperr.Wrap(err, apperr.ErrCodeInternal, "failed to get account by number")
	}
	return acct, nil
}

func (s *AccountStore) ListAccounts(ctx context.Context) ([]*repository.Account, error) {
	query := `
		SELECT id, account_number, current_balance, active, created_at, updated_at
		FROM accounts
		ORDER BY account_number
	`
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.ErrCodeInternal, "failed to list accounts")
	}
	defer rows.Close()

	var out []*repository.Account
	for rows.Next() {
		acct, err := scanAccount(rows)
		if err != nil {
			return nil, apperr.Wrap(err, apperr.ErrCodeInternal, "failed to scan account")
		}
		out = append(out, acct)
	}
	return out, rows.Err()
}

func (s *AccountStore) UpdateAccount(ctx context.Context, acct *repository.Account) error {
	query := `
		UPDATE accounts
		SET current_balance = $2, active = $3, updated_at = $4
		WHERE id = $1
	`
	err := s.db.Exec(ctx, query, acct.ID, acct.CurrentBalance, acct.Active, acct.UpdatedAt)
	if err != nil {
		return apperr.Wrap(err, apperr.ErrCodeInternal, "failed to update account")
	}
	return nil
}

func scanAccount(row pgx.Row) (*repository.Account, error) {
	var acct repository.Account
	err := row.Scan(&acct.ID, &acct.AccountNumber, &acct.CurrentBalance,
		&acct.Active, &acct.CreatedAt, &acct.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &acct, nil
}

var _ repository.AccountStore = (*AccountStore)(nil)
