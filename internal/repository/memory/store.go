package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/kilnworks/be-brick-ledger/internal/apperr"
	"github.com/kilnworks/be-brick-ledger/internal/repository"
)

// Store is an in-memory implementation of every repository interface.
// It backs tests and local development; the postgres package is the
// production store.
type Store struct {
	mu sync.Mutex

	accounts   map[string]*repository.Account
	dayLedgers map[string]*repository.DayLedger // keyed by business date
	cashTxs    []*repository.CashTransaction
	cashTxKeys map[string]*repository.CashTransaction

	owners   map[string]*repository.LedgerOwner
	entries  map[string][]*repository.SubLedgerEntry // keyed by owner id
	entryKey map[string]*repository.SubLedgerEntry
	seq      int64

	loans    map[string]*repository.Loan
	requests map[string]*repository.ProcurementRequest
}

// New returns an empty store.
func New() *Store {
	return &Store{
		accounts:   make(map[string]*repository.Account),
		dayLedgers: make(map[string]*repository.DayLedger),
		cashTxKeys: make(map[string]*repository.CashTransaction),
		owners:     make(map[string]*repository.LedgerOwner),
		entries:    make(map[string][]*repository.SubLedgerEntry),
		entryKey:   make(map[string]*repository.SubLedgerEntry),
		loans:      make(map[string]*repository.Loan),
		requests:   make(map[string]*repository.ProcurementRequest),
	}
}

// ── AccountStore ─────────────────────────────────────────────────────────────

func (s *Store) CreateAccount(ctx context.Context, acct *repository.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *acct
	s.accounts[acct.ID] = &cp
	return nil
}

func (s *Store) GetAccount(ctx context.Context, id string) (*repository.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[id]
	if !ok {
		return nil, apperr.Newf(apperr.ErrCodeUnknownReference, "account %q not found", id)
	}
	cp := *acct
	return &cp, nil
}

func (s *Store) GetAccountByNumber(ctx context.Context, number string) (*repository.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Active rows win over deactivated ones sharing the number.
	var match *repository.Account
	for _, acct := range s.accounts {
		if acct.AccountNumber != number {
			continue
		}
		if match == nil || (acct.Active && !match.Active) {
			match = acct
		}
	}
	if match == nil {
		return nil, apperr.Newf(apperr.ErrCodeNotFound, "account number %q not found", number)
	}
	cp := *match
	return &cp, nil
}

func (s *Store) ListAccounts(ctx context.Context) ([]*repository.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*repository.Account, 0, len(s.accounts))
	for _, acct := range s.accounts {
		cp := *acct
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountNumber < out[j].AccountNumber })
	return out, nil
}

func (s *Store) UpdateAccount(ctx context.Context, acct *repository.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[acct.ID]; !ok {
		return apperr.Newf(apperr.ErrCodeUnknownReference, "account %q not found", acct.ID)
	}
	cp := *acct
	s.accounts[acct.ID] = &cp
	return nil
}

// ── DayLedgerStore ───────────────────────────────────────────────────────────

func copyDayLedger(d *repository.DayLedger) *repository.DayLedger {
	cp := *d
	cp.Breakdown = make(map[string]*repository.DayBreakdown, len(d.Breakdown))
	for ref, b := range d.Breakdown {
		bc := *b
		cp.Breakdown[ref] = &bc
	}
	return &cp
}

func (s *Store) GetDayLedger(ctx context.Context, date string) (*repository.DayLedger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.dayLedgers[date]
	if !ok {
		return nil, apperr.Newf(apperr.ErrCodeNotFound, "no day ledger for %s", date)
	}
	return copyDayLedger(d), nil
}

func (s *Store) GetLatestDayBefore(ctx context.Context, date string) (*repository.DayLedger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *repository.DayLedger
	for d, dl := range s.dayLedgers {
		if d >= date {
			continue
		}
		if latest == nil || dl.BusinessDate > latest.BusinessDate {
			latest = dl
		}
	}
	if latest == nil {
		return nil, nil
	}
	return copyDayLedger(latest), nil
}

func (s *Store) ListOpenDatesBefore(ctx context.Context, date string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for d, dl := range s.dayLedgers {
		if d < date && dl.Status == repository.DayOpen {
			out = append(out, d)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) SaveDayLedger(ctx context.Context, d *repository.DayLedger) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dayLedgers[d.BusinessDate] = copyDayLedger(d)
	return nil
}

func (s *Store) ListDayLedgersRange(ctx context.Context, from, to string) ([]*repository.DayLedger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*repository.DayLedger
	for d, dl := range s.dayLedgers {
		if d >= from && d <= to {
			out = append(out, copyDayLedger(dl))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BusinessDate < out[j].BusinessDate })
	return out, nil
}

func (s *Store) ApplyPosting(ctx context.Context, d *repository.DayLedger, tx *repository.CashTransaction, acct *repository.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if acct != nil {
		if _, ok := s.accounts[acct.ID]; !ok {
			return apperr.Newf(apperr.ErrCodeUnknownReference, "account %q not found", acct.ID)
		}
	}
	s.dayLedgers[d.BusinessDate] = copyDayLedger(d)
	cp := *tx
	s.cashTxs = append(s.cashTxs, &cp)
	if tx.IdempotencyKey != "" {
		s.cashTxKeys[tx.IdempotencyKey] = &cp
	}
	if acct != nil {
		ac := *acct
		s.accounts[acct.ID] = &ac
	}
	return nil
}

func (s *Store) ListCashTransactions(ctx context.Context, date string) ([]*repository.CashTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*repository.CashTransaction
	for _, tx := range s.cashTxs {
		if tx.BusinessDate == date {
			cp := *tx
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *Store) ListCashTransactionsRange(ctx context.Context, from, to string) ([]*repository.CashTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*repository.CashTransaction
	for _, tx := range s.cashTxs {
		if tx.BusinessDate >= from && tx.BusinessDate <= to {
			cp := *tx
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *Store) GetCashTransactionByKey(ctx context.Context, key string) (*repository.CashTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.cashTxKeys[key]
	if !ok {
		return nil, nil
	}
	cp := *tx
	return &cp, nil
}

// ── OwnerStore ───────────────────────────────────────────────────────────────

func (s *Store) SaveOwner(ctx context.Context, o *repository.LedgerOwner) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *o
	s.owners[o.ID] = &cp
	return nil
}

func (s *Store) GetOwner(ctx context.Context, id string) (*repository.LedgerOwner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.owners[id]
	if !ok {
		return nil, apperr.Newf(apperr.ErrCodeUnknownReference, "ledger owner %q not found", id)
	}
	cp := *o
	return &cp, nil
}

func (s *Store) ListOwners(ctx context.Context, kind repository.OwnerKind) ([]*repository.LedgerOwner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*repository.LedgerOwner
	for _, o := range s.owners {
		if o.Kind == kind {
			cp := *o
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ── SubLedgerStore ───────────────────────────────────────────────────────────

func (s *Store) AppendEntry(ctx context.Context, e *repository.SubLedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	cp := *e
	cp.Seq = s.seq
	e.Seq = s.seq
	s.entries[e.OwnerID] = append(s.entries[e.OwnerID], &cp)
	if e.IdempotencyKey != "" {
		s.entryKey[e.IdempotencyKey] = &cp
	}
	return nil
}

func (s *Store) ListEntries(ctx context.Context, ownerID string) ([]*repository.SubLedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyEntriesSorted(s.entries[ownerID]), nil
}

func (s *Store) ListEntriesRange(ctx context.Context, ownerID, from, to string) ([]*repository.SubLedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var filtered []*repository.SubLedgerEntry
	for _, e := range s.entries[ownerID] {
		d := e.CreatedAt.Format("2006-01-02")
		if d >= from && d <= to {
			filtered = append(filtered, e)
		}
	}
	return copyEntriesSorted(filtered), nil
}

func (s *Store) GetEntryByKey(ctx context.Context, key string) (*repository.SubLedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entryKey[key]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func copyEntriesSorted(in []*repository.SubLedgerEntry) []*repository.SubLedgerEntry {
	out := make([]*repository.SubLedgerEntry, 0, len(in))
	for _, e := range in {
		cp := *e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Seq < out[j].Seq
	})
	return out
}

// ── LoanStore ────────────────────────────────────────────────────────────────

func (s *Store) CreateLoan(ctx context.Context, l *repository.Loan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *l
	s.loans[l.ID] = &cp
	return nil
}

func (s *Store) GetLoan(ctx context.Context, id string) (*repository.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.loans[id]
	if !ok {
		return nil, apperr.Newf(apperr.ErrCodeUnknownReference, "loan %q not found", id)
	}
	cp := *l
	return &cp, nil
}

func (s *Store) ListLoans(ctx context.Context) ([]*repository.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*repository.Loan, 0, len(s.loans))
	for _, l := range s.loans {
		cp := *l
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) UpdateLoan(ctx context.Context, l *repository.Loan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.loans[l.ID]; !ok {
		return apperr.Newf(apperr.ErrCodeUnknownReference, "loan %q not found", l.ID)
	}
	cp := *l
	s.loans[l.ID] = &cp
	return nil
}

// ── ProcurementStore ─────────────────────────────────────────────────────────

func (s *Store) CreateRequest(ctx context.Context, r *repository.ProcurementRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.requests[r.ID] = &cp
	return nil
}

func (s *Store) GetRequest(ctx context.Context, id string) (*repository.ProcurementRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[id]
	if !ok {
		return nil, apperr.Newf(apperr.ErrCodeNotFound, "procurement request %q not found", id)
	}
	cp := *r
	return &cp, nil
}

func (s *Store) ListRequests(ctx context.Context, status *repository.RequestStatus) ([]*repository.ProcurementRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*repository.ProcurementRequest
	for _, r := range s.requests {
		if status != nil && r.Status != *status {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) UpdateRequest(ctx context.Context, r *repository.ProcurementRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[r.ID]; !ok {
		return apperr.Newf(apperr.ErrCodeNotFound, "procurement request %q not found", r.ID)
	}
	cp := *r
	s.requests[r.ID] = &cp
	return nil
}

// Compile-time interface checks.
var (
	_ repository.AccountStore     = (*Store)(nil)
	_ repository.DayLedgerStore   = (*Store)(nil)
	_ repository.OwnerStore       = (*Store)(nil)
	_ repository.SubLedgerStore   = (*Store)(nil)
	_ repository.LoanStore        = (*Store)(nil)
	_ repository.ProcurementStore = (*Store)(nil)
)
