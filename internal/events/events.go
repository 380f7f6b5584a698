// Package events defines the messages the engine publishes after successful
// mutations, plus the publisher contract. Publishing is best-effort: a failed
// publish is logged by the caller and never fails the mutation.
package events

import "time"

const (
	TypeCashTransactionPosted = "ledger.cash_transaction.posted"
	TypeDayFrozen             = "ledger.day.frozen"
	TypeSubLedgerEntryPosted  = "ledger.entry.posted"
	TypeProcurementDecided    = "procurement.request.decided"
)

// Publisher is implemented by the kafka package. A nil Publisher is valid
// and disables event publishing.
type Publisher interface {
	Publish(eventType string, event any) error
	Close() error
}

// CashTransactionPosted is emitted after a day-ledger posting commits.
type CashTransactionPosted struct {
	TransactionID  string    `json:"transaction_id"`
	BusinessDate   string    `json:"business_date"`
	Direction      string    `json:"direction"`
	AccountRef     string    `json:"account_ref"`
	Amount         int64     `json:"amount"`
	ClosingBalance int64     `json:"closing_balance"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// DayFrozen is emitted when a day ledger is frozen.
type DayFrozen struct {
	BusinessDate   string    `json:"business_date"`
	ClosingBalance int64     `json:"closing_balance"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// SubLedgerEntryPosted is emitted after a sub-ledger append commits.
type SubLedgerEntryPosted struct {
	EntryID        string    `json:"entry_id"`
	OwnerID        string    `json:"owner_id"`
	OwnerKind      string    `json:"owner_kind"`
	EntryKind      string    `json:"entry_kind"`
	Amount         int64     `json:"amount"`
	RunningBalance int64     `json:"running_balance"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// ProcurementDecided is emitted when a request reaches a terminal state.
type ProcurementDecided struct {
	RequestID  string    `json:"request_id"`
	Status     string    `json:"status"`
	DecidedBy  string    `json:"decided_by"`
	OccurredAt time.Time `json:"occurred_at"`
}
