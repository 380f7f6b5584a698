package repository

import "context"

// Store interfaces are consumed by the service layer. The postgres package
// implements them on pgx; the memory package backs tests.
//
// Lookup methods return a typed NOT_FOUND / UNKNOWN_REFERENCE error when the
// id does not resolve. Idempotency-key lookups return (nil, nil) on a miss.

// AccountStore persists accounts.
type AccountStore interface {
	CreateAccount(ctx context.Context, acct *Account) error
	GetAccount(ctx context.Context, id string) (*Account, error)
	GetAccountByNumber(ctx context.Context, number string) (*Account, error)
	ListAccounts(ctx context.Context) ([]*Account, error)
	UpdateAccount(ctx context.Context, acct *Account) error
}

// DayLedgerStore persists day ledgers and their cash transaction log.
type DayLedgerStore interface {
	GetDayLedger(ctx context.Context, date string) (*DayLedger, error)
	// GetLatestDayBefore returns the most recent day ledger strictly before
	// date, or (nil, nil) when none exists.
	GetLatestDayBefore(ctx context.Context, date string) (*DayLedger, error)
	// ListOpenDatesBefore returns business dates of Open day ledgers strictly
	// before date, ascending.
	ListOpenDatesBefore(ctx context.Context, date string) ([]string, error)
	SaveDayLedger(ctx context.Context, d *DayLedger) error
	ListDayLedgersRange(ctx context.Context, from, to string) ([]*DayLedger, error)

	// ApplyPosting persists the day ledger, appends its new transaction and
	// applies the account balance update in one unit of work. acct is nil
	// when the posting hit the Cash pseudo-account.
	ApplyPosting(ctx context.Context, d *DayLedger, tx *CashTransaction, acct *Account) error
	ListCashTransactions(ctx context.Context, date string) ([]*CashTransaction, error)
	ListCashTransactionsRange(ctx context.Context, from, to string) ([]*CashTransaction, error)
	GetCashTransactionByKey(ctx context.Context, idempotencyKey string) (*CashTransaction, error)
}

// OwnerStore is the vendor/employee/loan directory.
type OwnerStore interface {
	SaveOwner(ctx context.Context, o *LedgerOwner) error
	GetOwner(ctx context.Context, id string) (*LedgerOwner, error)
	ListOwners(ctx context.Context, kind OwnerKind) ([]*LedgerOwner, error)
}

// SubLedgerStore persists the append-only entry log per owner.
type SubLedgerStore interface {
	AppendEntry(ctx context.Context, e *SubLedgerEntry) error
	// ListEntries returns all entries for the owner ordered by
	// (created_at, seq) ascending.
	ListEntries(ctx context.Context, ownerID string) ([]*SubLedgerEntry, error)
	ListEntriesRange(ctx context.Context, ownerID string, from, to string) ([]*SubLedgerEntry, error)
	GetEntryByKey(ctx context.Context, idempotencyKey string) (*SubLedgerEntry, error)
}

// LoanStore persists loan records.
type LoanStore interface {
	CreateLoan(ctx context.Context, l *Loan) error
	GetLoan(ctx context.Context, id string) (*Loan, error)
	ListLoans(ctx context.Context) ([]*Loan, error)
	UpdateLoan(ctx context.Context, l *Loan) error
}

// ProcurementStore persists procurement requests.
type ProcurementStore interface {
	CreateRequest(ctx context.Context, r *ProcurementRequest) error
	GetRequest(ctx context.Context, id string) (*ProcurementRequest, error)
	ListRequests(ctx context.Context, status *RequestStatus) ([]*ProcurementRequest, error)
	UpdateRequest(ctx context.Context, r *ProcurementRequest) error
}
