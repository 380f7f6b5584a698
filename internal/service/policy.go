package service

import (
	"github.com/kilnworks/be-brick-ledger/internal/apperr"
	"github.com/kilnworks/be-brick-ledger/internal/repository"
)

// LedgerPolicy parameterizes the generic sub-ledger engine per owner kind:
// which entry kinds are legal, how each kind signs into the running balance,
// which kinds are bounded by the current balance, and the notes limit.
//
// Sign +1 charges the owner (balance owed grows), -1 pays it down, 0 keeps
// the entry in the audit stream without moving the balance (loan interest).
type LedgerPolicy struct {
	Kind     repository.OwnerKind
	signs    map[repository.EntryKind]int64
	bounded  map[repository.EntryKind]bool
	NotesMax int
}

var vendorPolicy = &LedgerPolicy{
	Kind: repository.OwnerVendor,
	signs: map[repository.EntryKind]int64{
		repository.KindProcurement:   +1,
		repository.KindVendorPayment: -1,
	},
	bounded:  map[repository.EntryKind]bool{},
	NotesMax: 100,
}

var employeePolicy = &LedgerPolicy{
	Kind: repository.OwnerEmployee,
	signs: map[repository.EntryKind]int64{
		repository.KindSalaryAccrual:    +1,
		repository.KindAdvancePayment:   -1,
		repository.KindWeeklyPayment:    -1,
		repository.KindEmergencyPayment: -1,
		repository.KindSettlement:       -1,
	},
	bounded: map[repository.EntryKind]bool{
		repository.KindSettlement: true,
	},
	NotesMax: 80,
}

var loanPolicy = &LedgerPolicy{
	Kind: repository.OwnerLoan,
	signs: map[repository.EntryKind]int64{
		repository.KindDisbursement:    +1,
		repository.KindRepayment:       -1,
		repository.KindInterestPayment: 0,
	},
	bounded: map[repository.EntryKind]bool{
		repository.KindRepayment: true,
	},
	NotesMax: 100,
}

// PolicyFor returns the policy for an owner kind.
func PolicyFor(kind repository.OwnerKind) (*LedgerPolicy, error) {
	switch kind {
	case repository.OwnerVendor:
		return vendorPolicy, nil
	case repository.OwnerEmployee:
		return employeePolicy, nil
	case repository.OwnerLoan:
		return loanPolicy, nil
	default:
		return nil, apperr.Newf(apperr.ErrCodeInternal, "no ledger policy for owner kind %q", kind)
	}
}

// Sign returns the balance sign for an entry kind, or false when the kind
// is not valid for this ledger.
func (p *LedgerPolicy) Sign(kind repository.EntryKind) (int64, bool) {
	sign, ok := p.signs[kind]
	return sign, ok
}

// Bounded reports whether entries of this kind may not exceed the current
// running balance.
func (p *LedgerPolicy) Bounded(kind repository.EntryKind) bool {
	return p.bounded[kind]
}

// Contribution is the signed amount an entry adds to the running balance.
// Balance-neutral kinds contribute zero regardless of the stored amount.
func (p *LedgerPolicy) Contribution(e *repository.SubLedgerEntry) int64 {
	sign, ok := p.signs[e.Kind]
	if !ok || sign == 0 {
		return 0
	}
	// Entries are stored with the sign already applied; sign lookup here
	// only filters out balance-neutral kinds.
	return e.Amount
}

// FoldBalance computes the running balance as a left fold over entries in
// (created_at, seq) order. Idempotent and re-derivable from the log alone.
func (p *LedgerPolicy) FoldBalance(entries []*repository.SubLedgerEntry) int64 {
	var balance int64
	for _, e := range entries {
		balance += p.Contribution(e)
	}
	return balance
}
