package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kilnworks/be-brick-ledger/internal/apperr"
	"github.com/kilnworks/be-brick-ledger/internal/logger"
	"github.com/kilnworks/be-brick-ledger/internal/repository"
)

// AccountService is the account registry. It creates, lists and deactivates
// accounts; balances are only ever mutated through day-ledger postings.
type AccountService struct {
	accounts repository.AccountStore
	locks    *lockMap
	log      *logger.Logger
}

// NewAccountService creates a new account service.
func NewAccountService(accounts repository.AccountStore, log *logger.Logger) *AccountService {
	return &AccountService{
		accounts: accounts,
		locks:    newLockMap(),
		log:      log,
	}
}

// CreateAccount registers a new account with a non-negative opening balance.
// The account number must be unique among active accounts.
func (s *AccountService) CreateAccount(ctx context.Context, accountNumber string, openingBalance int64) (*repository.Account, error) {
	if accountNumber == "" {
		return nil, apperr.InvalidInput("account_number", "required")
	}
	if openingBalance < 0 {
		return nil, apperr.InvalidInput("opening_balance", "must not be negative")
	}

	mu := s.locks.get("registry")
	mu.Lock()
	defer mu.Unlock()

	existing, err := s.accounts.GetAccountByNumber(ctx, accountNumber)
	if err != nil && !apperr.IsCode(err, apperr.ErrCodeNotFound) {
		return nil, err
	}
	if existing != nil && existing.Active {
		return nil, apperr.Newf(apperr.ErrCodeDuplicateAccount,
			"account number %q already exists", accountNumber)
	}

	now := time.Now()
	acct := &repository.Account{
		ID:             uuid.NewString(),
		AccountNumber:  accountNumber,
		CurrentBalance: openingBalance,
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.accounts.CreateAccount(ctx, acct); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("account_id", acct.ID).
		Str("account_number", acct.AccountNumber).
		Int64("opening_balance", openingBalance).
		Msg("Account created")

	return acct, nil
}

// GetAccount retrieves an account by id.
func (s *AccountService) GetAccount(ctx context.Context, id string) (*repository.Account, error) {
	return s.accounts.GetAccount(ctx, id)
}

// GetBalance returns the account's current balance.
func (s *AccountService) GetBalance(ctx context.Context, id string) (int64, error) {
	acct, err := s.accounts.GetAccount(ctx, id)
	if err != nil {
		return 0, err
	}
	return acct.CurrentBalance, nil
}

// ListAccounts lists all accounts.
func (s *AccountService) ListAccounts(ctx context.Context) ([]*repository.Account, error) {
	return s.accounts.ListAccounts(ctx)
}

// Deactivate marks an account inactive. There is no delete.
func (s *AccountService) Deactivate(ctx context.Context, id string) (*repository.Account, error) {
	mu := s.locks.get("registry")
	mu.Lock()
	defer mu.Unlock()

	acct, err := s.accounts.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	if !acct.Active {
		return nil, apperr.Newf(apperr.ErrCodeConflict, "account %q is already inactive", id)
	}

	acct.Active = false
	acct.UpdatedAt = time.Now()
	if err := s.accounts.UpdateAccount(ctx, acct); err != nil {
		return nil, err
	}

	s.log.Info().Str("account_id", id).Msg("Account deactivated")
	return acct, nil
}
