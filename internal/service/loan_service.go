package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kilnworks/be-brick-ledger/internal/apperr"
	"github.com/kilnworks/be-brick-ledger/internal/logger"
	"github.com/kilnworks/be-brick-ledger/internal/repository"
	"github.com/kilnworks/be-brick-ledger/internal/validate"
)

// LoanService manages loan records on top of the loan sub-ledger. Creating
// a loan seeds the ledger with the disbursement; outstanding balance is the
// ledger's running balance (interest payments excluded by policy).
type LoanService struct {
	loans     repository.LoanStore
	owners    repository.OwnerStore
	subLedger *SubLedgerService
	locks     *lockMap
	log       *logger.Logger
}

// NewLoanService creates a new loan service.
func NewLoanService(
	loans repository.LoanStore,
	owners repository.OwnerStore,
	subLedger *SubLedgerService,
	log *logger.Logger,
) *LoanService {
	return &LoanService{
		loans:     loans,
		owners:    owners,
		subLedger: subLedger,
		locks:     newLockMap(),
		log:       log,
	}
}

// CreateLoanRequest describes a new borrowing.
type CreateLoanRequest struct {
	LenderName             string
	Type                   repository.LoanType
	PrincipalAmount        int64
	InterestRate           *decimal.Decimal
	DisbursementAccountRef string
	StartDate              string
	CreatedBy              string
	IdempotencyKey         string
}

// CreateLoan registers the loan and posts its disbursement entry.
func (s *LoanService) CreateLoan(ctx context.Context, req CreateLoanRequest) (*repository.Loan, error) {
	fields := make(map[string]string)
	if req.LenderName == "" {
		fields["lender_name"] = "required"
	}
	switch req.Type {
	case repository.LoanOwner, repository.LoanBank, repository.LoanShortTerm:
	default:
		fields["loan_type"] = "must be owner, bank or short_term"
	}
	if req.PrincipalAmount <= 0 {
		fields["principal_amount"] = "must be greater than zero"
	}
	if req.InterestRate != nil && req.InterestRate.IsNegative() {
		fields["interest_rate"] = "must not be negative"
	}
	if _, err := time.Parse("2006-01-02", req.StartDate); err != nil {
		fields["start_date"] = "invalid date format, expected YYYY-MM-DD"
	}
	if len(fields) > 0 {
		return nil, apperr.Validation(fields)
	}

	// The disbursement is validated up front so a loan is never persisted
	// for an entry the ledger would reject (a future start date, say).
	if err := validate.Check(validate.Transaction{
		Amount:      req.PrincipalAmount,
		Date:        req.StartDate,
		Today:       validate.Today(),
		PaymentMode: repository.ModeCash,
	}); err != nil {
		return nil, err
	}

	// A replayed creation key resolves to the loan the original call made.
	if req.IdempotencyKey != "" {
		prior, err := s.subLedger.EntryByKey(ctx, req.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		if prior != nil {
			return s.loans.GetLoan(ctx, prior.OwnerID)
		}
	}

	now := time.Now()
	loan := &repository.Loan{
		ID:                     uuid.NewString(),
		LenderName:             req.LenderName,
		Type:                   req.Type,
		PrincipalAmount:        req.PrincipalAmount,
		InterestRate:           req.InterestRate,
		DisbursementAccountRef: req.DisbursementAccountRef,
		StartDate:              req.StartDate,
		Status:                 repository.LoanActive,
		CreatedAt:              now,
		UpdatedAt:              now,
	}

	if err := s.owners.SaveOwner(ctx, &repository.LedgerOwner{
		ID:        loan.ID,
		Kind:      repository.OwnerLoan,
		Name:      req.LenderName,
		Active:    true,
		CreatedAt: now,
	}); err != nil {
		return nil, err
	}

	// Loan row last: a loan only becomes visible once its ledger holds the
	// seed disbursement.
	_, err := s.subLedger.AppendEntry(ctx, AppendEntryRequest{
		OwnerKind:      repository.OwnerLoan,
		OwnerID:        loan.ID,
		Kind:           repository.KindDisbursement,
		Amount:         req.PrincipalAmount,
		PaymentMode:    repository.ModeCash,
		EntryDate:      req.StartDate,
		CreatedBy:      req.CreatedBy,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		return nil, err
	}
	if err := s.loans.CreateLoan(ctx, loan); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("loan_id", loan.ID).
		Str("lender", loan.LenderName).
		Str("loan_type", string(loan.Type)).
		Int64("principal", loan.PrincipalAmount).
		Msg("Loan created")

	return loan, nil
}

// LoanView is a loan with its derived outstanding balance.
type LoanView struct {
	Loan        *repository.Loan
	Outstanding int64
}

// GetLoan returns the loan and its outstanding balance.
func (s *LoanService) GetLoan(ctx context.Context, id string) (*LoanView, error) {
	loan, err := s.loans.GetLoan(ctx, id)
	if err != nil {
		return nil, err
	}
	outstanding, err := s.subLedger.RunningBalance(ctx, repository.OwnerLoan, id, nil)
	if err != nil {
		return nil, err
	}
	return &LoanView{Loan: loan, Outstanding: outstanding}, nil
}

// ListLoans returns all loans with outstanding balances.
func (s *LoanService) ListLoans(ctx context.Context) ([]*LoanView, error) {
	loans, err := s.loans.ListLoans(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*LoanView, 0, len(loans))
	for _, l := range loans {
		outstanding, err := s.subLedger.RunningBalance(ctx, repository.OwnerLoan, l.ID, nil)
		if err != nil {
			return nil, err
		}
		out = append(out, &LoanView{Loan: l, Outstanding: outstanding})
	}
	return out, nil
}

// RecordEntry posts a repayment or interest payment against an active loan.
// Disbursements are seeded at creation and cannot be added here.
func (s *LoanService) RecordEntry(ctx context.Context, loanID string, req AppendEntryRequest) (*AppendEntryResult, error) {
	if req.Kind == repository.KindDisbursement {
		return nil, apperr.New(apperr.ErrCodeConflict,
			"disbursement is recorded at loan creation")
	}

	mu := s.locks.get(loanID)
	mu.Lock()
	defer mu.Unlock()

	loan, err := s.loans.GetLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if loan.Status == repository.LoanClosed {
		return nil, apperr.Newf(apperr.ErrCodeAlreadyFinalized, "loan %q is closed", loanID)
	}

	req.OwnerKind = repository.OwnerLoan
	req.OwnerID = loanID
	return s.subLedger.AppendEntry(ctx, req)
}

// CloseLoan closes a fully repaid loan. One-way.
func (s *LoanService) CloseLoan(ctx context.Context, loanID string) (*repository.Loan, error) {
	mu := s.locks.get(loanID)
	mu.Lock()
	defer mu.Unlock()

	loan, err := s.loans.GetLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if loan.Status == repository.LoanClosed {
		return nil, apperr.Newf(apperr.ErrCodeAlreadyFinalized, "loan %q is already closed", loanID)
	}

	outstanding, err := s.subLedger.RunningBalance(ctx, repository.OwnerLoan, loanID, nil)
	if err != nil {
		return nil, err
	}
	if outstanding != 0 {
		return nil, apperr.Newf(apperr.ErrCodeConflict,
			"loan has outstanding balance %d", outstanding)
	}

	loan.Status = repository.LoanClosed
	loan.UpdatedAt = time.Now()
	if err := s.loans.UpdateLoan(ctx, loan); err != nil {
		return nil, err
	}

	s.log.Info().Str("loan_id", loanID).Msg("Loan closed")
	return loan, nil
}

// AccruedInterest computes simple interest on the outstanding balance at the
// loan's annual rate for the given number of days. Advisory display data.
func AccruedInterest(outstanding int64, annualRate decimal.Decimal, days int) int64 {
	principal := decimal.NewFromInt(outstanding)
	factor := annualRate.
		Div(decimal.NewFromInt(100)).
		Mul(decimal.NewFromInt(int64(days))).
		Div(decimal.NewFromInt(365))
	return principal.Mul(factor).Round(0).IntPart()
}
