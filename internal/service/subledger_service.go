package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kilnworks/be-brick-ledger/internal/apperr"
	"github.com/kilnworks/be-brick-ledger/internal/cache"
	"github.com/kilnworks/be-brick-ledger/internal/events"
	"github.com/kilnworks/be-brick-ledger/internal/logger"
	"github.com/kilnworks/be-brick-ledger/internal/repository"
	"github.com/kilnworks/be-brick-ledger/internal/validate"
)

// SubLedgerService is the generic running-balance engine behind the vendor,
// salary and loan ledgers. Behavior differences between the three are
// carried entirely by LedgerPolicy.
type SubLedgerService struct {
	entries    repository.SubLedgerStore
	owners     repository.OwnerStore
	balances   *cache.BalanceCache
	publisher  events.Publisher
	ownerLocks *lockMap
	log        *logger.Logger
}

// NewSubLedgerService creates a new sub-ledger service. balances and
// publisher may be nil.
func NewSubLedgerService(
	entries repository.SubLedgerStore,
	owners repository.OwnerStore,
	balances *cache.BalanceCache,
	publisher events.Publisher,
	log *logger.Logger,
) *SubLedgerService {
	return &SubLedgerService{
		entries:    entries,
		owners:     owners,
		balances:   balances,
		publisher:  publisher,
		ownerLocks: newLockMap(),
		log:        log,
	}
}

// AppendEntryRequest describes one sub-ledger append. Amount is the positive
// magnitude; the policy sign convention is applied on write.
type AppendEntryRequest struct {
	OwnerKind      repository.OwnerKind
	OwnerID        string
	Kind           repository.EntryKind
	Amount         int64
	PaymentMode    repository.PaymentMode
	SAI            *string
	RAI            *string
	Notes          *string
	EntryDate      string // optional; defaults to today
	CreatedBy      string
	IdempotencyKey string
}

// AppendEntryResult carries the appended entry and the recomputed balance.
type AppendEntryResult struct {
	Entry          *repository.SubLedgerEntry
	RunningBalance int64
	Replayed       bool
}

// SettleRequest settles an owner's running balance. Amount is ignored for
// full settlements: the engine computes it as exactly the current balance.
type SettleRequest struct {
	OwnerKind      repository.OwnerKind
	OwnerID        string
	Amount         int64 // partial settlements only
	PaymentMode    repository.PaymentMode
	SAI            *string
	RAI            *string
	Notes          *string
	EntryDate      string
	CreatedBy      string
	IdempotencyKey string
}

// AppendEntry validates, appends and recomputes the owner's running balance.
func (s *SubLedgerService) AppendEntry(ctx context.Context, req AppendEntryRequest) (*AppendEntryResult, error) {
	policy, err := PolicyFor(req.OwnerKind)
	if err != nil {
		return nil, err
	}
	sign, ok := policy.Sign(req.Kind)
	if !ok {
		return nil, apperr.InvalidInput("entry_kind",
			"not valid for "+string(req.OwnerKind)+" ledgers")
	}

	entryDate := req.EntryDate
	if entryDate == "" {
		entryDate = validate.Today()
	}
	if err := validate.Check(validate.Transaction{
		Amount:      req.Amount,
		Date:        entryDate,
		Today:       validate.Today(),
		PaymentMode: req.PaymentMode,
		SAI:         req.SAI,
		RAI:         req.RAI,
		Notes:       req.Notes,
		NotesMax:    policy.NotesMax,
	}); err != nil {
		return nil, err
	}

	if req.IdempotencyKey != "" {
		prior, err := s.entries.GetEntryByKey(ctx, req.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		if prior != nil {
			balance, err := s.RunningBalance(ctx, req.OwnerKind, req.OwnerID, nil)
			if err != nil {
				return nil, err
			}
			return &AppendEntryResult{Entry: prior, RunningBalance: balance, Replayed: true}, nil
		}
	}

	owner, err := s.owners.GetOwner(ctx, req.OwnerID)
	if err != nil {
		return nil, err
	}
	if owner.Kind != req.OwnerKind {
		return nil, apperr.Newf(apperr.ErrCodeUnknownReference,
			"%q is not a %s", req.OwnerID, req.OwnerKind)
	}

	mu := s.ownerLocks.get(req.OwnerID)
	mu.Lock()
	defer mu.Unlock()

	existing, err := s.entries.ListEntries(ctx, req.OwnerID)
	if err != nil {
		return nil, err
	}
	balance := policy.FoldBalance(existing)

	// Loan streams begin with the disbursement, exactly once.
	if req.OwnerKind == repository.OwnerLoan {
		if req.Kind == repository.KindDisbursement && len(existing) > 0 {
			return nil, apperr.New(apperr.ErrCodeConflict,
				"disbursement must be the first entry of a loan ledger")
		}
		if req.Kind != repository.KindDisbursement && len(existing) == 0 {
			return nil, apperr.New(apperr.ErrCodeConflict,
				"loan ledger must begin with a disbursement")
		}
	}

	if policy.Bounded(req.Kind) && req.Amount > balance {
		return nil, apperr.Newf(apperr.ErrCodeExceedsBalance,
			"amount %d exceeds running balance %d", req.Amount, balance)
	}

	entry, err := s.append(ctx, policy, owner, req, sign, entryDate)
	if err != nil {
		return nil, err
	}

	newBalance := balance + policy.Contribution(entry)
	s.balances.Set(ctx, string(req.OwnerKind), req.OwnerID, newBalance)
	s.publishEntry(entry, newBalance)

	return &AppendEntryResult{Entry: entry, RunningBalance: newBalance}, nil
}

// SettlePartial pays down part of the owner's balance. The amount may not
// exceed the current running balance.
func (s *SubLedgerService) SettlePartial(ctx context.Context, req SettleRequest) (*AppendEntryResult, error) {
	return s.settle(ctx, req, false)
}

// SettleFull drives the owner's balance to exactly zero. The amount is
// always server-computed from the entry log; any client-supplied figure is
// ignored.
func (s *SubLedgerService) SettleFull(ctx context.Context, req SettleRequest) (*AppendEntryResult, error) {
	return s.settle(ctx, req, true)
}

func (s *SubLedgerService) settle(ctx context.Context, req SettleRequest, full bool) (*AppendEntryResult, error) {
	policy, err := PolicyFor(req.OwnerKind)
	if err != nil {
		return nil, err
	}
	kind := policy.settlementKind()

	entryDate := req.EntryDate
	if entryDate == "" {
		entryDate = validate.Today()
	}

	if req.IdempotencyKey != "" {
		prior, err := s.entries.GetEntryByKey(ctx, req.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		if prior != nil {
			balance, err := s.RunningBalance(ctx, req.OwnerKind, req.OwnerID, nil)
			if err != nil {
				return nil, err
			}
			return &AppendEntryResult{Entry: prior, RunningBalance: balance, Replayed: true}, nil
		}
	}

	owner, err := s.owners.GetOwner(ctx, req.OwnerID)
	if err != nil {
		return nil, err
	}
	if owner.Kind != req.OwnerKind {
		return nil, apperr.Newf(apperr.ErrCodeUnknownReference,
			"%q is not a %s", req.OwnerID, req.OwnerKind)
	}

	mu := s.ownerLocks.get(req.OwnerID)
	mu.Lock()
	defer mu.Unlock()

	existing, err := s.entries.ListEntries(ctx, req.OwnerID)
	if err != nil {
		return nil, err
	}
	balance := policy.FoldBalance(existing)

	amount := req.Amount
	if full {
		if balance <= 0 {
			return nil, apperr.New(apperr.ErrCodeConflict, "no outstanding balance to settle")
		}
		amount = balance
	} else if amount > balance {
		return nil, apperr.Newf(apperr.ErrCodeExceedsBalance,
			"settlement of %d exceeds running balance %d", amount, balance)
	}

	if err := validate.Check(validate.Transaction{
		Amount:      amount,
		Date:        entryDate,
		Today:       validate.Today(),
		PaymentMode: req.PaymentMode,
		SAI:         req.SAI,
		RAI:         req.RAI,
		Notes:       req.Notes,
		NotesMax:    policy.NotesMax,
	}); err != nil {
		return nil, err
	}

	entry, err := s.append(ctx, policy, owner, AppendEntryRequest{
		OwnerKind:      req.OwnerKind,
		OwnerID:        req.OwnerID,
		Kind:           kind,
		Amount:         amount,
		PaymentMode:    req.PaymentMode,
		SAI:            req.SAI,
		RAI:            req.RAI,
		Notes:          req.Notes,
		CreatedBy:      req.CreatedBy,
		IdempotencyKey: req.IdempotencyKey,
	}, -1, entryDate)
	if err != nil {
		return nil, err
	}

	newBalance := balance - amount
	s.balances.Set(ctx, string(req.OwnerKind), req.OwnerID, newBalance)
	s.publishEntry(entry, newBalance)

	return &AppendEntryResult{Entry: entry, RunningBalance: newBalance}, nil
}

// append writes the entry and invalidates the cached balance in the same
// unit of work. Callers hold the owner lock.
func (s *SubLedgerService) append(
	ctx context.Context,
	policy *LedgerPolicy,
	owner *repository.LedgerOwner,
	req AppendEntryRequest,
	sign int64,
	entryDate string,
) (*repository.SubLedgerEntry, error) {
	createdAt, err := entryTimestamp(entryDate)
	if err != nil {
		return nil, err
	}

	signed := req.Amount
	if sign < 0 {
		signed = -req.Amount
	}
	if sign == 0 {
		// Balance-neutral kinds keep the payment sign for the audit stream.
		signed = -req.Amount
	}

	entry := &repository.SubLedgerEntry{
		ID:                  uuid.NewString(),
		OwnerID:             owner.ID,
		OwnerKind:           owner.Kind,
		Kind:                req.Kind,
		Amount:              signed,
		PaymentMode:         req.PaymentMode,
		SenderAccountInfo:   req.SAI,
		ReceiverAccountInfo: req.RAI,
		Notes:               req.Notes,
		IdempotencyKey:      req.IdempotencyKey,
		CreatedBy:           req.CreatedBy,
		CreatedAt:           createdAt,
	}

	s.balances.Invalidate(ctx, string(owner.Kind), owner.ID)
	if err := s.entries.AppendEntry(ctx, entry); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("entry_id", entry.ID).
		Str("owner_id", owner.ID).
		Str("owner_kind", string(owner.Kind)).
		Str("entry_kind", string(entry.Kind)).
		Int64("amount", entry.Amount).
		Msg("Sub-ledger entry appended")

	return entry, nil
}

// EntryByKey returns the previously appended entry for an idempotency key,
// or nil when the key is unseen.
func (s *SubLedgerService) EntryByKey(ctx context.Context, key string) (*repository.SubLedgerEntry, error) {
	return s.entries.GetEntryByKey(ctx, key)
}

// RunningBalance folds the owner's entries up to asOf (inclusive, YYYY-MM-DD)
// or over the whole log when asOf is nil. The cached figure is only consulted
// for whole-log reads; it is never authoritative.
func (s *SubLedgerService) RunningBalance(ctx context.Context, kind repository.OwnerKind, ownerID string, asOf *string) (int64, error) {
	policy, err := PolicyFor(kind)
	if err != nil {
		return 0, err
	}

	if asOf == nil {
		if cached, ok := s.balances.Get(ctx, string(kind), ownerID); ok {
			return cached, nil
		}
	}

	entries, err := s.entries.ListEntries(ctx, ownerID)
	if err != nil {
		return 0, err
	}

	var balance int64
	for _, e := range entries {
		if asOf != nil && e.CreatedAt.Format("2006-01-02") > *asOf {
			continue
		}
		balance += policy.Contribution(e)
	}

	if asOf == nil {
		s.balances.Set(ctx, string(kind), ownerID, balance)
	}
	return balance, nil
}

// Entries returns the owner's full entry stream with the current balance.
func (s *SubLedgerService) Entries(ctx context.Context, kind repository.OwnerKind, ownerID string) ([]*repository.SubLedgerEntry, int64, error) {
	policy, err := PolicyFor(kind)
	if err != nil {
		return nil, 0, err
	}
	owner, err := s.owners.GetOwner(ctx, ownerID)
	if err != nil {
		return nil, 0, err
	}
	if owner.Kind != kind {
		return nil, 0, apperr.Newf(apperr.ErrCodeUnknownReference, "%q is not a %s", ownerID, kind)
	}
	entries, err := s.entries.ListEntries(ctx, ownerID)
	if err != nil {
		return nil, 0, err
	}
	return entries, policy.FoldBalance(entries), nil
}

func (s *SubLedgerService) publishEntry(e *repository.SubLedgerEntry, runningBalance int64) {
	if s.publisher == nil {
		return
	}
	err := s.publisher.Publish(events.TypeSubLedgerEntryPosted, events.SubLedgerEntryPosted{
		EntryID:        e.ID,
		OwnerID:        e.OwnerID,
		OwnerKind:      string(e.OwnerKind),
		EntryKind:      string(e.Kind),
		Amount:         e.Amount,
		RunningBalance: runningBalance,
		OccurredAt:     e.CreatedAt,
	})
	if err != nil {
		s.log.Warn().Err(err).Str("entry_id", e.ID).Msg("Event publish failed")
	}
}

// settlementKind maps a ledger to the entry kind its settlements post as.
func (p *LedgerPolicy) settlementKind() repository.EntryKind {
	switch p.Kind {
	case repository.OwnerEmployee:
		return repository.KindSettlement
	case repository.OwnerLoan:
		return repository.KindRepayment
	default:
		return repository.KindVendorPayment
	}
}

// entryTimestamp places a backdated entry at local midnight of its date and
// a same-day entry at the current instant, keeping intraday order.
func entryTimestamp(entryDate string) (time.Time, error) {
	d, err := time.ParseInLocation("2006-01-02", entryDate, time.Local)
	if err != nil {
		return time.Time{}, apperr.InvalidInput("date", "invalid date format, expected YYYY-MM-DD")
	}
	now := time.Now()
	if entryDate == now.Format("2006-01-02") {
		return now, nil
	}
	return d, nil
}
