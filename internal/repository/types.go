package repository

import (
	"time"

	"github.com/shopspring/decimal"
)

// All money values are int64 minor units (paise). Business dates are
// YYYY-MM-DD strings; ISO format keeps lexical and chronological order
// identical.

// CashRef is the pseudo-account for cash in hand. It never exists in the
// accounts table but participates in every day ledger breakdown.
const CashRef = "Cash"

// ── Accounts ─────────────────────────────────────────────────────────────────

// Account is a named cash/bank account. Balance moves only through day
// ledger postings; accounts are deactivated, never deleted.
type Account struct {
	ID             string    `json:"id"`
	AccountNumber  string    `json:"account_number"`
	CurrentBalance int64     `json:"current_balance"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ── Day ledger ───────────────────────────────────────────────────────────────

type DayStatus string

const (
	DayOpen   DayStatus = "open"
	DayFrozen DayStatus = "frozen"
)

type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

// DayBreakdown is the per-account slice of one business day.
type DayBreakdown struct {
	AccountRef string `json:"account_ref"`
	Opening    int64  `json:"opening"`
	In         int64  `json:"in"`
	Out        int64  `json:"out"`
}

// Closing derives the account's closing figure for the day.
func (b *DayBreakdown) Closing() int64 { return b.Opening + b.In - b.Out }

// DayLedger is the cash book for one calendar business date. Totals are
// maintained transactionally with each posting and remain re-derivable from
// the transaction log.
type DayLedger struct {
	ID             string                   `json:"id"`
	BusinessDate   string                   `json:"business_date"`
	Status         DayStatus                `json:"status"`
	OpeningBalance int64                    `json:"opening_balance"`
	CashInTotal    int64                    `json:"cash_in_total"`
	CashOutTotal   int64                    `json:"cash_out_total"`
	Breakdown      map[string]*DayBreakdown `json:"breakdown"`
	FrozenAt       *time.Time               `json:"frozen_at"`
	CreatedAt      time.Time                `json:"created_at"`
}

// ClosingBalance derives the day's closing figure.
func (d *DayLedger) ClosingBalance() int64 {
	return d.OpeningBalance + d.CashInTotal - d.CashOutTotal
}

// CashTransaction is one immutable movement within a day ledger.
type CashTransaction struct {
	ID             string    `json:"id"`
	DayLedgerID    string    `json:"day_ledger_id"`
	BusinessDate   string    `json:"business_date"`
	Direction      Direction `json:"direction"`
	AccountRef     string    `json:"account_ref"`
	CounterpartRef string    `json:"counterpart_ref"`
	Amount         int64     `json:"amount"`
	TxType         string    `json:"tx_type"`
	IdempotencyKey string    `json:"idempotency_key"`
	CreatedAt      time.Time `json:"created_at"`
}

// ── Sub-ledgers ──────────────────────────────────────────────────────────────

type OwnerKind string

const (
	OwnerVendor   OwnerKind = "vendor"
	OwnerEmployee OwnerKind = "employee"
	OwnerLoan     OwnerKind = "loan"
)

// LedgerOwner is a directory record for a vendor, employee or loan that a
// sub-ledger hangs off. The engine only does referential lookup on it.
type LedgerOwner struct {
	ID        string    `json:"id"`
	Kind      OwnerKind `json:"kind"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type PaymentMode string

const (
	ModeCash         PaymentMode = "cash"
	ModeUPI          PaymentMode = "upi"
	ModeBankTransfer PaymentMode = "bank_transfer"
	ModeCheque       PaymentMode = "cheque"
)

type EntryKind string

const (
	// Vendor ledger
	KindProcurement   EntryKind = "procurement"
	KindVendorPayment EntryKind = "vendor_payment"

	// Salary ledger
	KindSalaryAccrual    EntryKind = "salary_accrual"
	KindAdvancePayment   EntryKind = "advance_payment"
	KindWeeklyPayment    EntryKind = "weekly_payment"
	KindEmergencyPayment EntryKind = "emergency_payment"
	KindSettlement       EntryKind = "settlement"

	// Loan ledger
	KindDisbursement    EntryKind = "disbursement"
	KindRepayment       EntryKind = "repayment"
	KindInterestPayment EntryKind = "interest_payment"
)

// SubLedgerEntry is one append-only line in an owner's running ledger.
// Amount is signed: charges against the owner positive, payments negative.
// Seq breaks created_at ties by insertion order.
type SubLedgerEntry struct {
	ID                  string      `json:"id"`
	OwnerID             string      `json:"owner_id"`
	OwnerKind           OwnerKind   `json:"owner_kind"`
	Kind                EntryKind   `json:"kind"`
	Amount              int64       `json:"amount"`
	PaymentMode         PaymentMode `json:"payment_mode"`
	SenderAccountInfo   *string     `json:"sender_account_info"`
	ReceiverAccountInfo *string     `json:"receiver_account_info"`
	Notes               *string     `json:"notes"`
	IdempotencyKey      string      `json:"idempotency_key"`
	CreatedBy           string      `json:"created_by"`
	CreatedAt           time.Time   `json:"created_at"`
	Seq                 int64       `json:"seq"`
}

// ── Loans ────────────────────────────────────────────────────────────────────

type LoanType string

const (
	LoanOwner     LoanType = "owner"
	LoanBank      LoanType = "bank"
	LoanShortTerm LoanType = "short_term"
)

type LoanStatus string

const (
	LoanActive LoanStatus = "active"
	LoanClosed LoanStatus = "closed"
)

// Loan is a borrowing record. Its entry stream lives in the loan sub-ledger
// under OwnerID == Loan.ID and must begin with a disbursement equal to the
// principal. Outstanding balance is derived, never stored.
type Loan struct {
	ID                     string           `json:"id"`
	LenderName             string           `json:"lender_name"`
	Type                   LoanType         `json:"type"`
	PrincipalAmount        int64            `json:"principal_amount"`
	InterestRate           *decimal.Decimal `json:"interest_rate"`
	DisbursementAccountRef string           `json:"disbursement_account_ref"`
	StartDate              string           `json:"start_date"`
	Status                 LoanStatus       `json:"status"`
	CreatedAt              time.Time        `json:"created_at"`
	UpdatedAt              time.Time        `json:"updated_at"`
}

// ── Procurement ──────────────────────────────────────────────────────────────

type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

// Urgency is the requester's own priority choice, independent of the
// stock-derived classification.
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

// StockLevel is the advisory classification derived from the stock snapshot.
type StockLevel string

const (
	StockCritical StockLevel = "critical"
	StockLow      StockLevel = "low"
	StockNormal   StockLevel = "normal"
)

// ProcurementRequest is a material-purchase proposal. Stock figures are a
// snapshot taken at request time.
type ProcurementRequest struct {
	ID              string        `json:"id"`
	Material        string        `json:"material"`
	Quantity        float64       `json:"quantity"`
	Unit            string        `json:"unit"`
	VendorID        string        `json:"vendor_id"`
	RequestedBy     string        `json:"requested_by"`
	Urgency         Urgency       `json:"urgency"`
	RequiredByDate  string        `json:"required_by_date"`
	CurrentStock    int64         `json:"current_stock"`
	MinThreshold    int64         `json:"min_threshold"`
	Status          RequestStatus `json:"status"`
	RejectionReason *string       `json:"rejection_reason"`
	ApprovedBy      *string       `json:"approved_by"`
	ApprovalDate    *time.Time    `json:"approval_date"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}
