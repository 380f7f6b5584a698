package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kilnworks/be-brick-ledger/internal/apperr"
	"github.com/kilnworks/be-brick-ledger/internal/events"
	"github.com/kilnworks/be-brick-ledger/internal/logger"
	"github.com/kilnworks/be-brick-ledger/internal/repository"
	"github.com/kilnworks/be-brick-ledger/internal/validate"
)

// DayLedgerService owns the daily cash book lifecycle. A day ledger is
// created lazily on the first posting for its date, accepts postings while
// Open, and freezes exactly once. Days must be frozen in date order.
//
// Account balances are mutated here and nowhere else.
type DayLedgerService struct {
	days      repository.DayLedgerStore
	accounts  repository.AccountStore
	publisher events.Publisher
	dateLocks *lockMap
	acctLocks *lockMap
	// freezeMu serializes all freezes so the ordered-history check cannot
	// race with a concurrent freeze of another date.
	freezeMu sync.Mutex
	log      *logger.Logger
}

// NewDayLedgerService creates a new day ledger service.
func NewDayLedgerService(
	days repository.DayLedgerStore,
	accounts repository.AccountStore,
	publisher events.Publisher,
	log *logger.Logger,
) *DayLedgerService {
	return &DayLedgerService{
		days:      days,
		accounts:  accounts,
		publisher: publisher,
		dateLocks: newLockMap(),
		acctLocks: newLockMap(),
		log:       log,
	}
}

// PostCashRequest describes one cash book posting.
type PostCashRequest struct {
	Date           string
	Direction      repository.Direction
	Amount         int64
	AccountRef     string
	CounterpartRef string
	TxType         string
	IdempotencyKey string
}

// PostCashResult carries the posted transaction and the derived balances
// after it applied.
type PostCashResult struct {
	Transaction    *repository.CashTransaction
	Day            *repository.DayLedger
	AccountBalance *int64 // nil when the posting hit the Cash pseudo-account
	Replayed       bool
}

// WithdrawRequest is an owner withdrawal from an account or from cash in hand.
type WithdrawRequest struct {
	Date           string
	AccountRef     string
	Amount         int64
	IdempotencyKey string
}

// PostCashTransaction applies a cash-in or cash-out to the date's ledger.
func (s *DayLedgerService) PostCashTransaction(ctx context.Context, req PostCashRequest) (*PostCashResult, error) {
	if req.Direction != repository.DirectionIn && req.Direction != repository.DirectionOut {
		return nil, apperr.InvalidInput("direction", "must be in or out")
	}
	if req.TxType == "" {
		return nil, apperr.InvalidInput("type", "required")
	}
	return s.post(ctx, req, false)
}

// Withdraw posts an owner withdrawal. The amount is bounded by cash in hand
// for the Cash ref, and by the account balance otherwise.
func (s *DayLedgerService) Withdraw(ctx context.Context, req WithdrawRequest) (*PostCashResult, error) {
	return s.post(ctx, PostCashRequest{
		Date:           req.Date,
		Direction:      repository.DirectionOut,
		Amount:         req.Amount,
		AccountRef:     req.AccountRef,
		CounterpartRef: "Owner",
		TxType:         "owner_withdrawal",
		IdempotencyKey: req.IdempotencyKey,
	}, true)
}

func (s *DayLedgerService) post(ctx context.Context, req PostCashRequest, bounded bool) (*PostCashResult, error) {
	if err := validate.Check(validate.Transaction{
		Amount:      req.Amount,
		Date:        req.Date,
		Today:       validate.Today(),
		PaymentMode: repository.ModeCash,
	}); err != nil {
		return nil, err
	}

	// A replayed idempotency key returns the original posting untouched.
	if req.IdempotencyKey != "" {
		prior, err := s.days.GetCashTransactionByKey(ctx, req.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		if prior != nil {
			return s.replayResult(ctx, prior)
		}
	}

	// Account lock before date lock. Every posting takes at most one of
	// each, always in this order. The balance is re-read under the lock so
	// concurrent postings to one account never fold a stale figure.
	if req.AccountRef != repository.CashRef {
		amu := s.acctLocks.get(req.AccountRef)
		amu.Lock()
		defer amu.Unlock()
	}
	mu := s.dateLocks.get(req.Date)
	mu.Lock()
	defer mu.Unlock()

	var acct *repository.Account
	if req.AccountRef != repository.CashRef {
		var err error
		acct, err = s.accounts.GetAccount(ctx, req.AccountRef)
		if err != nil {
			return nil, err
		}
		if !acct.Active {
			return nil, apperr.Newf(apperr.ErrCodeConflict, "account %q is inactive", req.AccountRef)
		}
	}

	day, err := s.loadOrCreateDay(ctx, req.Date)
	if err != nil {
		return nil, err
	}
	if day.Status == repository.DayFrozen {
		return nil, apperr.Newf(apperr.ErrCodeDayClosed, "day ledger %s is frozen", req.Date)
	}

	b, ok := day.Breakdown[req.AccountRef]
	if !ok {
		opening := int64(0)
		if acct != nil {
			opening = acct.CurrentBalance
		}
		b = &repository.DayBreakdown{AccountRef: req.AccountRef, Opening: opening}
		day.Breakdown[req.AccountRef] = b
	}

	if bounded && req.Direction == repository.DirectionOut {
		bound := b.Closing()
		if acct != nil {
			bound = acct.CurrentBalance
		}
		if req.Amount > bound {
			return nil, apperr.Newf(apperr.ErrCodeInsufficientBalance,
				"withdrawal of %d exceeds available balance %d for %q", req.Amount, bound, req.AccountRef)
		}
	}

	switch req.Direction {
	case repository.DirectionIn:
		day.CashInTotal += req.Amount
		b.In += req.Amount
	case repository.DirectionOut:
		day.CashOutTotal += req.Amount
		b.Out += req.Amount
	}

	tx := &repository.CashTransaction{
		ID:             uuid.NewString(),
		DayLedgerID:    day.ID,
		BusinessDate:   req.Date,
		Direction:      req.Direction,
		AccountRef:     req.AccountRef,
		CounterpartRef: req.CounterpartRef,
		Amount:         req.Amount,
		TxType:         req.TxType,
		IdempotencyKey: req.IdempotencyKey,
		CreatedAt:      time.Now(),
	}

	var acctBalance *int64
	if acct != nil {
		if req.Direction == repository.DirectionIn {
			acct.CurrentBalance += req.Amount
		} else {
			acct.CurrentBalance -= req.Amount
		}
		acct.UpdatedAt = time.Now()
		acctBalance = &acct.CurrentBalance
	}

	// Day totals, transaction row and account balance commit together, so a
	// partial write can never leave totals without their transaction.
	if err := s.days.ApplyPosting(ctx, day, tx, acct); err != nil {
		return nil, err
	}

	s.publish(events.TypeCashTransactionPosted, events.CashTransactionPosted{
		TransactionID:  tx.ID,
		BusinessDate:   tx.BusinessDate,
		Direction:      string(tx.Direction),
		AccountRef:     tx.AccountRef,
		Amount:         tx.Amount,
		ClosingBalance: day.ClosingBalance(),
		OccurredAt:     tx.CreatedAt,
	})

	s.log.Info().
		Str("transaction_id", tx.ID).
		Str("business_date", req.Date).
		Str("direction", string(req.Direction)).
		Str("account_ref", req.AccountRef).
		Int64("amount", req.Amount).
		Int64("closing_balance", day.ClosingBalance()).
		Msg("Cash transaction posted")

	return &PostCashResult{Transaction: tx, Day: day, AccountBalance: acctBalance}, nil
}

// Freeze closes the date's ledger to further postings. All earlier days must
// already be frozen; the transition is one-way.
func (s *DayLedgerService) Freeze(ctx context.Context, date string) (*repository.DayLedger, error) {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, apperr.InvalidInput("date", "invalid date format, expected YYYY-MM-DD")
	}

	s.freezeMu.Lock()
	defer s.freezeMu.Unlock()

	mu := s.dateLocks.get(date)
	mu.Lock()
	defer mu.Unlock()

	openBefore, err := s.days.ListOpenDatesBefore(ctx, date)
	if err != nil {
		return nil, err
	}
	if len(openBefore) > 0 {
		return nil, apperr.Newf(apperr.ErrCodeEarlierDayOpen,
			"day ledger %s is still open; days must be frozen in date order", openBefore[0])
	}

	day, err := s.loadOrCreateDay(ctx, date)
	if err != nil {
		return nil, err
	}
	if day.Status == repository.DayFrozen {
		return nil, apperr.Newf(apperr.ErrCodeDayClosed, "day ledger %s is already frozen", date)
	}

	now := time.Now()
	day.Status = repository.DayFrozen
	day.FrozenAt = &now
	if err := s.days.SaveDayLedger(ctx, day); err != nil {
		return nil, err
	}

	s.publish(events.TypeDayFrozen, events.DayFrozen{
		BusinessDate:   date,
		ClosingBalance: day.ClosingBalance(),
		OccurredAt:     now,
	})

	s.log.Info().
		Str("business_date", date).
		Int64("closing_balance", day.ClosingBalance()).
		Msg("Day ledger frozen")

	return day, nil
}

// DayView is one date's cash book with its transaction log and per-account
// rows, Cash first.
type DayView struct {
	Day          *repository.DayLedger
	Rows         []*repository.DayBreakdown
	Transactions []*repository.CashTransaction
}

// Day returns the date's cash book. The aggregate totals on the ledger are
// the "Total" row; Rows carry the per-account split.
func (s *DayLedgerService) Day(ctx context.Context, date string) (*DayView, error) {
	day, err := s.days.GetDayLedger(ctx, date)
	if err != nil {
		return nil, err
	}
	txs, err := s.days.ListCashTransactions(ctx, date)
	if err != nil {
		return nil, err
	}

	rows := make([]*repository.DayBreakdown, 0, len(day.Breakdown))
	for _, b := range day.Breakdown {
		rows = append(rows, b)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].AccountRef == repository.CashRef {
			return true
		}
		if rows[j].AccountRef == repository.CashRef {
			return false
		}
		return rows[i].AccountRef < rows[j].AccountRef
	})

	return &DayView{Day: day, Rows: rows, Transactions: txs}, nil
}

// loadOrCreateDay fetches the date's ledger, creating it lazily with the
// opening balance copied from the previous day's closing. Callers must hold
// the date lock.
func (s *DayLedgerService) loadOrCreateDay(ctx context.Context, date string) (*repository.DayLedger, error) {
	day, err := s.days.GetDayLedger(ctx, date)
	if err == nil {
		return day, nil
	}
	if !apperr.IsCode(err, apperr.ErrCodeNotFound) {
		return nil, err
	}

	prev, err := s.days.GetLatestDayBefore(ctx, date)
	if err != nil {
		return nil, err
	}

	day = &repository.DayLedger{
		ID:           uuid.NewString(),
		BusinessDate: date,
		Status:       repository.DayOpen,
		Breakdown:    make(map[string]*repository.DayBreakdown),
		CreatedAt:    time.Now(),
	}
	if prev != nil {
		day.OpeningBalance = prev.ClosingBalance()
		for ref, b := range prev.Breakdown {
			day.Breakdown[ref] = &repository.DayBreakdown{AccountRef: ref, Opening: b.Closing()}
		}
	}

	if err := s.days.SaveDayLedger(ctx, day); err != nil {
		return nil, err
	}
	return day, nil
}

func (s *DayLedgerService) replayResult(ctx context.Context, tx *repository.CashTransaction) (*PostCashResult, error) {
	day, err := s.days.GetDayLedger(ctx, tx.BusinessDate)
	if err != nil {
		return nil, err
	}
	res := &PostCashResult{Transaction: tx, Day: day, Replayed: true}
	if tx.AccountRef != repository.CashRef {
		acct, err := s.accounts.GetAccount(ctx, tx.AccountRef)
		if err == nil {
			res.AccountBalance = &acct.CurrentBalance
		}
	}
	return res, nil
}

func (s *DayLedgerService) publish(eventType string, event any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(eventType, event); err != nil {
		s.log.Warn().Err(err).Str("event_type", eventType).Msg("Event publish failed")
	}
}
