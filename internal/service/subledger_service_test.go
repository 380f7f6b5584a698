package service

import (
	"context"
	"testing"

	"github.com/kilnworks/be-brick-ledger/internal/apperr"
	"github.com/kilnworks/be-brick-ledger/internal/events"
	"github.com/kilnworks/be-brick-ledger/internal/logger"
	"github.com/kilnworks/be-brick-ledger/internal/repository"
	"github.com/kilnworks/be-brick-ledger/internal/repository/memory"
)

func TestVendorLedgerRunningBalance(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := newSubLedger(store)
	newVendor(t, store, "v1", "Clay Supplier")

	res, err := svc.AppendEntry(ctx, AppendEntryRequest{
		OwnerKind: repository.OwnerVendor, OwnerID: "v1",
		Kind: repository.KindProcurement, Amount: 60000,
		PaymentMode: repository.ModeCash, CreatedBy: "owner",
	})
	if err != nil {
		t.Fatalf("procurement: %v", err)
	}
	if res.RunningBalance != 60000 {
		t.Errorf("balance after procurement = %d, want 60000", res.RunningBalance)
	}
	if res.Entry.Amount != 60000 {
		t.Errorf("stored amount = %d, want +60000", res.Entry.Amount)
	}

	res, err = svc.AppendEntry(ctx, AppendEntryRequest{
		OwnerKind: repository.OwnerVendor, OwnerID: "v1",
		Kind: repository.KindVendorPayment, Amount: 35000,
		PaymentMode: repository.ModeUPI,
		SAI:         strPtr("owner@upi"), RAI: strPtr("vendor@upi"),
		CreatedBy: "owner",
	})
	if err != nil {
		t.Fatalf("payment: %v", err)
	}
	if res.RunningBalance != 25000 {
		t.Errorf("balance after payment = %d, want 25000", res.RunningBalance)
	}
	if res.Entry.Amount != -35000 {
		t.Errorf("stored amount = %d, want -35000", res.Entry.Amount)
	}

	balance, err := svc.RunningBalance(ctx, repository.OwnerVendor, "v1", nil)
	if err != nil {
		t.Fatalf("RunningBalance: %v", err)
	}
	if balance != 25000 {
		t.Errorf("refolded balance = %d, want 25000", balance)
	}
}

func TestAppendEntryKindMustMatchLedger(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := newSubLedger(store)
	newVendor(t, store, "v1", "Clay Supplier")

	_, err := svc.AppendEntry(ctx, AppendEntryRequest{
		OwnerKind: repository.OwnerVendor, OwnerID: "v1",
		Kind: repository.KindSalaryAccrual, Amount: 100,
		PaymentMode: repository.ModeCash,
	})
	if !apperr.IsCode(err, apperr.ErrCodeValidation) {
		t.Fatalf("salary kind on vendor ledger: got %v, want VALIDATION", err)
	}
}

func TestAppendEntryOwnerKindMismatch(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := newSubLedger(store)
	newEmployee(t, store, "e1", "Ramesh")

	_, err := svc.AppendEntry(ctx, AppendEntryRequest{
		OwnerKind: repository.OwnerVendor, OwnerID: "e1",
		Kind: repository.KindProcurement, Amount: 100,
		PaymentMode: repository.ModeCash,
	})
	if !apperr.IsCode(err, apperr.ErrCodeUnknownReference) {
		t.Fatalf("employee on vendor path: got %v, want UNKNOWN_REFERENCE", err)
	}
}

func TestAppendEntryNonCashNeedsAccountInfo(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := newSubLedger(store)
	newVendor(t, store, "v1", "Clay Supplier")

	_, err := svc.AppendEntry(ctx, AppendEntryRequest{
		OwnerKind: repository.OwnerVendor, OwnerID: "v1",
		Kind: repository.KindProcurement, Amount: 100,
		PaymentMode: repository.ModeBankTransfer,
	})
	if !apperr.IsCode(err, apperr.ErrCodeValidation) {
		t.Fatalf("bank transfer with no account info: got %v, want VALIDATION", err)
	}
}

func TestAppendEntryIdempotent(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := newSubLedger(store)
	newVendor(t, store, "v1", "Clay Supplier")

	req := AppendEntryRequest{
		OwnerKind: repository.OwnerVendor, OwnerID: "v1",
		Kind: repository.KindProcurement, Amount: 500,
		PaymentMode:    repository.ModeCash,
		IdempotencyKey: "proc-500-once",
	}

	first, err := svc.AppendEntry(ctx, req)
	if err != nil {
		t.Fatalf("first append: %v", err)
	}
	second, err := svc.AppendEntry(ctx, req)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if !second.Replayed {
		t.Error("replay should be marked Replayed")
	}
	if second.Entry.ID != first.Entry.ID {
		t.Error("replay should return the original entry")
	}
	if second.RunningBalance != 500 {
		t.Errorf("balance after replay = %d, want 500 (applied once)", second.RunningBalance)
	}
}

func TestEmployeeSettlement(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := newSubLedger(store)
	newEmployee(t, store, "e1", "Ramesh")

	if _, err := svc.AppendEntry(ctx, AppendEntryRequest{
		OwnerKind: repository.OwnerEmployee, OwnerID: "e1",
		Kind: repository.KindSalaryAccrual, Amount: 10000,
		PaymentMode: repository.ModeCash,
	}); err != nil {
		t.Fatalf("accrual: %v", err)
	}

	// Partial settlement pays down part of the dues.
	res, err := svc.SettlePartial(ctx, SettleRequest{
		OwnerKind: repository.OwnerEmployee, OwnerID: "e1",
		Amount: 4000, PaymentMode: repository.ModeCash,
	})
	if err != nil {
		t.Fatalf("SettlePartial: %v", err)
	}
	if res.RunningBalance != 6000 {
		t.Errorf("balance after partial = %d, want 6000", res.RunningBalance)
	}
	if res.Entry.Kind != repository.KindSettlement {
		t.Errorf("entry kind = %s, want settlement", res.Entry.Kind)
	}

	// Partial settlement may not exceed the balance.
	_, err = svc.SettlePartial(ctx, SettleRequest{
		OwnerKind: repository.OwnerEmployee, OwnerID: "e1",
		Amount: 6001, PaymentMode: repository.ModeCash,
	})
	if !apperr.IsCode(err, apperr.ErrCodeExceedsBalance) {
		t.Fatalf("over-settlement: got %v, want EXCEEDS_BALANCE", err)
	}

	// Full settlement computes the amount server-side and zeros the balance.
	res, err = svc.SettleFull(ctx, SettleRequest{
		OwnerKind: repository.OwnerEmployee, OwnerID: "e1",
		Amount: 999999, // ignored
		PaymentMode: repository.ModeCash,
	})
	if err != nil {
		t.Fatalf("SettleFull: %v", err)
	}
	if res.Entry.Amount != -6000 {
		t.Errorf("full settlement amount = %d, want -6000", res.Entry.Amount)
	}
	if res.RunningBalance != 0 {
		t.Errorf("balance after full = %d, want 0", res.RunningBalance)
	}

	// Nothing left to settle.
	_, err = svc.SettleFull(ctx, SettleRequest{
		OwnerKind: repository.OwnerEmployee, OwnerID: "e1",
		PaymentMode: repository.ModeCash,
	})
	if !apperr.IsCode(err, apperr.ErrCodeConflict) {
		t.Fatalf("settle at zero: got %v, want CONFLICT", err)
	}
}

func TestLoanLedgerStream(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := newSubLedger(store)
	if err := store.SaveOwner(ctx, &repository.LedgerOwner{
		ID: "l1", Kind: repository.OwnerLoan, Name: "State Bank", Active: true,
	}); err != nil {
		t.Fatalf("SaveOwner: %v", err)
	}

	// A loan stream must begin with the disbursement.
	_, err := svc.AppendEntry(ctx, AppendEntryRequest{
		OwnerKind: repository.OwnerLoan, OwnerID: "l1",
		Kind: repository.KindRepayment, Amount: 100,
		PaymentMode: repository.ModeCash,
	})
	if !apperr.IsCode(err, apperr.ErrCodeConflict) {
		t.Fatalf("repayment before disbursement: got %v, want CONFLICT", err)
	}

	if _, err := svc.AppendEntry(ctx, AppendEntryRequest{
		OwnerKind: repository.OwnerLoan, OwnerID: "l1",
		Kind: repository.KindDisbursement, Amount: 1000000,
		PaymentMode: repository.ModeCash,
	}); err != nil {
		t.Fatalf("disbursement: %v", err)
	}

	// Exactly one disbursement per loan.
	_, err = svc.AppendEntry(ctx, AppendEntryRequest{
		OwnerKind: repository.OwnerLoan, OwnerID: "l1",
		Kind: repository.KindDisbursement, Amount: 1,
		PaymentMode: repository.ModeCash,
	})
	if !apperr.IsCode(err, apperr.ErrCodeConflict) {
		t.Fatalf("second disbursement: got %v, want CONFLICT", err)
	}

	for _, amount := range []int64{100000, 200000} {
		if _, err := svc.AppendEntry(ctx, AppendEntryRequest{
			OwnerKind: repository.OwnerLoan, OwnerID: "l1",
			Kind: repository.KindRepayment, Amount: amount,
			PaymentMode: repository.ModeCash,
		}); err != nil {
			t.Fatalf("repayment %d: %v", amount, err)
		}
	}

	// Interest stays in the audit stream but never moves the balance.
	res, err := svc.AppendEntry(ctx, AppendEntryRequest{
		OwnerKind: repository.OwnerLoan, OwnerID: "l1",
		Kind: repository.KindInterestPayment, Amount: 50000,
		PaymentMode: repository.ModeCash,
	})
	if err != nil {
		t.Fatalf("interest: %v", err)
	}
	if res.RunningBalance != 700000 {
		t.Errorf("outstanding = %d, want 700000", res.RunningBalance)
	}
	if res.Entry.Amount != -50000 {
		t.Errorf("interest stored amount = %d, want -50000", res.Entry.Amount)
	}

	// Repayments are bounded by the outstanding balance.
	_, err = svc.AppendEntry(ctx, AppendEntryRequest{
		OwnerKind: repository.OwnerLoan, OwnerID: "l1",
		Kind: repository.KindRepayment, Amount: 700001,
		PaymentMode: repository.ModeCash,
	})
	if !apperr.IsCode(err, apperr.ErrCodeExceedsBalance) {
		t.Fatalf("overpayment: got %v, want EXCEEDS_BALANCE", err)
	}

	entries, balance, err := svc.Entries(ctx, repository.OwnerLoan, "l1")
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(entries) != 4 {
		t.Errorf("entries = %d, want 4", len(entries))
	}
	if balance != 700000 {
		t.Errorf("folded balance = %d, want 700000", balance)
	}
}

func TestRunningBalanceAsOf(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := newSubLedger(store)
	newVendor(t, store, "v1", "Clay Supplier")

	day1, day2 := pastDate(2), pastDate(1)

	if _, err := svc.AppendEntry(ctx, AppendEntryRequest{
		OwnerKind: repository.OwnerVendor, OwnerID: "v1",
		Kind: repository.KindProcurement, Amount: 1000,
		PaymentMode: repository.ModeCash, EntryDate: day1,
	}); err != nil {
		t.Fatalf("day1 entry: %v", err)
	}
	if _, err := svc.AppendEntry(ctx, AppendEntryRequest{
		OwnerKind: repository.OwnerVendor, OwnerID: "v1",
		Kind: repository.KindProcurement, Amount: 500,
		PaymentMode: repository.ModeCash, EntryDate: day2,
	}); err != nil {
		t.Fatalf("day2 entry: %v", err)
	}

	asOf := day1
	balance, err := svc.RunningBalance(ctx, repository.OwnerVendor, "v1", &asOf)
	if err != nil {
		t.Fatalf("RunningBalance asOf: %v", err)
	}
	if balance != 1000 {
		t.Errorf("balance as of %s = %d, want 1000", day1, balance)
	}

	balance, err = svc.RunningBalance(ctx, repository.OwnerVendor, "v1", nil)
	if err != nil {
		t.Fatalf("RunningBalance: %v", err)
	}
	if balance != 1500 {
		t.Errorf("current balance = %d, want 1500", balance)
	}
}

// capturePublisher records published events in order.
type capturePublisher struct {
	events []any
}

func (p *capturePublisher) Publish(eventType string, event any) error {
	p.events = append(p.events, event)
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func TestEntryPostedEventCarriesRunningBalance(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	pub := &capturePublisher{}
	svc := NewSubLedgerService(store, store, nil, pub, logger.Nop())
	newVendor(t, store, "v1", "Clay Supplier")

	if _, err := svc.AppendEntry(ctx, AppendEntryRequest{
		OwnerKind: repository.OwnerVendor, OwnerID: "v1",
		Kind: repository.KindProcurement, Amount: 600, PaymentMode: repository.ModeCash,
	}); err != nil {
		t.Fatalf("charge: %v", err)
	}
	if _, err := svc.AppendEntry(ctx, AppendEntryRequest{
		OwnerKind: repository.OwnerVendor, OwnerID: "v1",
		Kind: repository.KindVendorPayment, Amount: 200, PaymentMode: repository.ModeCash,
	}); err != nil {
		t.Fatalf("payment: %v", err)
	}

	if len(pub.events) != 2 {
		t.Fatalf("published %d events, want 2", len(pub.events))
	}
	first, ok := pub.events[0].(events.SubLedgerEntryPosted)
	if !ok {
		t.Fatalf("event[0] type = %T, want SubLedgerEntryPosted", pub.events[0])
	}
	if first.RunningBalance != 600 {
		t.Errorf("running balance after charge = %d, want 600", first.RunningBalance)
	}
	second := pub.events[1].(events.SubLedgerEntryPosted)
	if second.RunningBalance != 400 {
		t.Errorf("running balance after payment = %d, want 400", second.RunningBalance)
	}
}
