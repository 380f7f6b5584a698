package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/kilnworks/be-brick-ledger/internal/apperr"
	"github.com/kilnworks/be-brick-ledger/internal/database"
	"github.com/kilnworks/be-brick-ledger/internal/repository"
)

// LoanStore is the Postgres implementation of repository.LoanStore.
type LoanStore struct {
	db *database.DB
}

// NewLoanStore creates a new loan store.
func NewLoanStore(db *database.DB) *LoanStore {
	return &LoanStore{db: db}
}

func (s *LoanStore) CreateLoan(ctx context.Context, l *repository.Loan) error {
	query := `
		INSERT INTO loans
		    (id, lender_name, loan_type, principal_amount, interest_rate,
		     disbursement_account_ref, start_date, status, created_at, updated_at)
		VALUES ($1, $2, $3::loan_type, $4, $5, $6, $7, $8::loan_status, $9, $10)
	`
	err := s.db.Exec(ctx, query,
		l.ID, l.LenderName, l.Type, l.PrincipalAmount, l.InterestRate,
		l.DisbursementAccountRef, l.StartDate, l.Status, l.CreatedAt, l.UpdatedAt)
	if err != nil {
		return apperr.Wrap(err, apperr.ErrCodeInternal, "failed to create loan")
	}
	return nil
}

func (s *LoanStore) GetLoan(ctx context.Context, id string) (*repository.Loan, error) {
	query := `
		SELECT id, lender_name, loan_type, principal_amount, interest_rate,
		       disbursement_account_ref, start_date, status, created_at, updated_at
		FROM loans
		WHERE id = $1
	`
	l, err := scanLoan(s.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.Newf(apperr.ErrCodeUnknownReference, "loan %q not found", id)
	}
	if err != nil {
		return nil, apperr.Wrap(err, apperr.ErrCodeInternal, "failed to get loan")
	}
	return l, nil
}

func (s *LoanStore) ListLoans(ctx context.Context) ([]*repository.Loan, error) {
	query := `
		SELECT id, lender_name, loan_type, principal_amount, interest_rate,
		       disbursement_account_ref, start_date, status, created_at, updated_at
		FROM loans
		ORDER BY created_at
	`
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.ErrCodeInternal, "failed to list loans")
	}
	defer rows.Close()

	var out []*repository.Loan
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, apperr.Wrap(err, apperr.ErrCodeInternal, "failed to scan loan")
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *LoanStore) UpdateLoan(ctx context.Context, l *repository.Loan) error {
	query := `
		UPDATE loans
		SET status = $2::loan_status, updated_at = $3
		WHERE id = $1
	`
	err := s.db.Exec(ctx, query, l.ID, l.Status, l.UpdatedAt)
	if err != nil {
		return apperr.Wrap(err, apperr.ErrCodeInternal, "failed to update loan")
	}
	return nil
}

func scanLoan(row pgx.Row) (*repository.Loan, error) {
	var (
		l         repository.Loan
		startDate time.Time
	)
	err := row.Scan(&l.ID, &l.LenderName, &l.Type, &l.PrincipalAmount, &l.InterestRate,
		&l.DisbursementAccountRef, &startDate, &l.Status, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	l.StartDate = formatDate(startDate)
	return &l, nil
}

var _ repository.LoanStore = (*LoanStore)(nil)
