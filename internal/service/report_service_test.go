package service

import (
	"context"
	"testing"

	"github.com/kilnworks/be-brick-ledger/internal/apperr"
	"github.com/kilnworks/be-brick-ledger/internal/logger"
	"github.com/kilnworks/be-brick-ledger/internal/repository"
	"github.com/kilnworks/be-brick-ledger/internal/repository/memory"
)

func newReportEnv(store *memory.Store) (*ReportService, *SubLedgerService, *DayLedgerService) {
	subLedger := newSubLedger(store)
	dayLedger := NewDayLedgerService(store, store, nil, logger.Nop())
	return NewReportService(store, store, store, logger.Nop()), subLedger, dayLedger
}

func TestExportRange(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	reports, subLedger, _ := newReportEnv(store)
	newVendor(t, store, "v1", "Clay Supplier")

	day1, day2, day3 := pastDate(3), pastDate(2), pastDate(1)

	// Before the range: a 1000 charge that becomes the opening balance.
	if _, err := subLedger.AppendEntry(ctx, AppendEntryRequest{
		OwnerKind: repository.OwnerVendor, OwnerID: "v1",
		Kind: repository.KindProcurement, Amount: 1000,
		PaymentMode: repository.ModeCash, EntryDate: day1,
	}); err != nil {
		t.Fatalf("day1 entry: %v", err)
	}
	// In the range: a 600 charge and a 400 payment.
	if _, err := subLedger.AppendEntry(ctx, AppendEntryRequest{
		OwnerKind: repository.OwnerVendor, OwnerID: "v1",
		Kind: repository.KindProcurement, Amount: 600,
		PaymentMode: repository.ModeCash, EntryDate: day2,
	}); err != nil {
		t.Fatalf("day2 entry: %v", err)
	}
	if _, err := subLedger.AppendEntry(ctx, AppendEntryRequest{
		OwnerKind: repository.OwnerVendor, OwnerID: "v1",
		Kind: repository.KindVendorPayment, Amount: 400,
		PaymentMode: repository.ModeCash, EntryDate: day3,
	}); err != nil {
		t.Fatalf("day3 entry: %v", err)
	}

	export, err := reports.ExportRange(ctx, repository.OwnerVendor, "v1", day2, day3)
	if err != nil {
		t.Fatalf("ExportRange: %v", err)
	}
	if export.OwnerName != "Clay Supplier" {
		t.Errorf("owner name = %q, want Clay Supplier", export.OwnerName)
	}
	if len(export.Entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(export.Entries))
	}
	if export.OpeningBalance != 1000 {
		t.Errorf("opening = %d, want 1000", export.OpeningBalance)
	}
	if export.TotalCharges != 600 || export.TotalPayments != 400 {
		t.Errorf("totals = charges %d payments %d, want 600/400",
			export.TotalCharges, export.TotalPayments)
	}
	if export.ClosingBalance != 1200 {
		t.Errorf("closing = %d, want 1200", export.ClosingBalance)
	}
}

func TestExportRangeErrors(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	reports, subLedger, _ := newReportEnv(store)
	newVendor(t, store, "v1", "Clay Supplier")

	day1 := pastDate(5)
	if _, err := subLedger.AppendEntry(ctx, AppendEntryRequest{
		OwnerKind: repository.OwnerVendor, OwnerID: "v1",
		Kind: repository.KindProcurement, Amount: 100,
		PaymentMode: repository.ModeCash, EntryDate: day1,
	}); err != nil {
		t.Fatalf("seed entry: %v", err)
	}

	// A range with no entries is reported, not returned empty.
	_, err := reports.ExportRange(ctx, repository.OwnerVendor, "v1", pastDate(3), pastDate(2))
	if !apperr.IsCode(err, apperr.ErrCodeEmptyRange) {
		t.Errorf("empty range: got %v, want EMPTY_RANGE", err)
	}

	_, err = reports.ExportRange(ctx, repository.OwnerVendor, "v1", pastDate(1), pastDate(2))
	if !apperr.IsCode(err, apperr.ErrCodeValidation) {
		t.Errorf("inverted range: got %v, want VALIDATION", err)
	}

	_, err = reports.ExportRange(ctx, repository.OwnerVendor, "v1", "not-a-date", pastDate(1))
	if !apperr.IsCode(err, apperr.ErrCodeValidation) {
		t.Errorf("bad from date: got %v, want VALIDATION", err)
	}

	_, err = reports.ExportRange(ctx, repository.OwnerVendor, "missing", day1, day1)
	if !apperr.IsCode(err, apperr.ErrCodeUnknownReference) {
		t.Errorf("unknown owner: got %v, want UNKNOWN_REFERENCE", err)
	}
}

func TestExportCashBook(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	reports, _, dayLedger := newReportEnv(store)

	day1, day2 := pastDate(2), pastDate(1)

	if _, err := dayLedger.PostCashTransaction(ctx, PostCashRequest{
		Date: day1, Direction: repository.DirectionIn, Amount: 5000,
		AccountRef: repository.CashRef, CounterpartRef: "BrickCo", TxType: "sale",
	}); err != nil {
		t.Fatalf("day1 posting: %v", err)
	}
	if _, err := dayLedger.Freeze(ctx, day1); err != nil {
		t.Fatalf("Freeze: %v", err)
	}
	if _, err := dayLedger.PostCashTransaction(ctx, PostCashRequest{
		Date: day2, Direction: repository.DirectionOut, Amount: 2000,
		AccountRef: repository.CashRef, CounterpartRef: "Clay Supplier", TxType: "vendor_payment",
	}); err != nil {
		t.Fatalf("day2 posting: %v", err)
	}

	export, err := reports.ExportCashBook(ctx, day1, day2)
	if err != nil {
		t.Fatalf("ExportCashBook: %v", err)
	}
	if len(export.Days) != 2 {
		t.Fatalf("days = %d, want 2", len(export.Days))
	}
	if export.TotalCashIn != 5000 || export.TotalCashOut != 2000 {
		t.Errorf("totals = in %d out %d, want 5000/2000", export.TotalCashIn, export.TotalCashOut)
	}
	if export.OpeningBalance != 0 {
		t.Errorf("opening = %d, want 0", export.OpeningBalance)
	}
	if export.ClosingBalance != 3000 {
		t.Errorf("closing = %d, want 3000", export.ClosingBalance)
	}
}

func TestExportCashBookEmptyRange(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	reports, _, _ := newReportEnv(store)

	_, err := reports.ExportCashBook(ctx, pastDate(10), pastDate(9))
	if !apperr.IsCode(err, apperr.ErrCodeEmptyRange) {
		t.Fatalf("empty range: got %v, want EMPTY_RANGE", err)
	}
}
