// Package validate holds the payment-mode-conditional checks shared by every
// transaction-creating flow: vendor payments, salary payments, loan
// transactions, settlements and withdrawals.
package validate

import (
	"fmt"
	"time"

	"github.com/kilnworks/be-brick-ledger/internal/apperr"
	"github.com/kilnworks/be-brick-ledger/internal/repository"
)

// DefaultNotesMax bounds free-text notes when the caller does not set a
// type-specific limit.
const DefaultNotesMax = 100

const dateLayout = "2006-01-02"

// Transaction is the input to Check. Today is injected so the future-date
// rule stays a pure function; callers use Today() outside tests.
type Transaction struct {
	Amount      int64
	UpperBound  *int64 // optional inclusive cap, e.g. outstanding balance
	Date        string // YYYY-MM-DD
	Today       string // YYYY-MM-DD
	PaymentMode repository.PaymentMode
	SAI         *string
	RAI         *string
	Notes       *string
	NotesMax    int // 0 means DefaultNotesMax
}

// Today returns the current business date in the validator's layout.
func Today() string { return time.Now().Format(dateLayout) }

// Check applies the shared rules and returns nil or a validation error
// carrying a field→reason map. An unknown payment mode is a programming
// error and comes back as INTERNAL, not a field failure.
func Check(in Transaction) error {
	switch in.PaymentMode {
	case repository.ModeCash, repository.ModeUPI, repository.ModeBankTransfer, repository.ModeCheque:
	default:
		return apperr.Newf(apperr.ErrCodeInternal, "unknown payment mode %q", in.PaymentMode)
	}

	fields := make(map[string]string)

	if in.Amount <= 0 {
		fields["amount"] = "must be greater than zero"
	} else if in.UpperBound != nil && in.Amount > *in.UpperBound {
		fields["amount"] = fmt.Sprintf("must not exceed %d", *in.UpperBound)
	}

	if _, err := time.Parse(dateLayout, in.Date); err != nil {
		fields["date"] = "invalid date format, expected YYYY-MM-DD"
	} else if in.Today != "" && in.Date > in.Today {
		fields["date"] = "must not be in the future"
	}

	// Non-cash modes require both account info fields; cash ignores them.
	if in.PaymentMode != repository.ModeCash {
		if in.SAI == nil || *in.SAI == "" {
			fields["sender_account_info"] = "required for non-cash payment modes"
		}
		if in.RAI == nil || *in.RAI == "" {
			fields["receiver_account_info"] = "required for non-cash payment modes"
		}
	}

	max := in.NotesMax
	if max == 0 {
		max = DefaultNotesMax
	}
	if in.Notes != nil && len([]rune(*in.Notes)) > max {
		fields["notes"] = fmt.Sprintf("must be at most %d characters", max)
	}

	if len(fields) > 0 {
		return apperr.Validation(fields)
	}
	return nil
}
