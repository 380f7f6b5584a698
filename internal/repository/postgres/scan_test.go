package postgres

import (
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/kilnworks/be-brick-ledger/internal/repository"
)

// stubRow feeds typed column values to the scan functions the way the driver
// hands them back: date columns as time.Time, never as strings.
type stubRow struct {
	vals []any
}

func (r stubRow) Scan(dest ...any) error {
	if len(dest) != len(r.vals) {
		return fmt.Errorf("scan arity %d, row has %d columns", len(dest), len(r.vals))
	}
	for i, d := range dest {
		if r.vals[i] == nil {
			continue
		}
		dv := reflect.ValueOf(d).Elem()
		sv := reflect.ValueOf(r.vals[i])
		switch {
		case sv.Type().AssignableTo(dv.Type()):
			dv.Set(sv)
		case sv.Type().ConvertibleTo(dv.Type()):
			dv.Set(sv.Convert(dv.Type()))
		default:
			return fmt.Errorf("column %d: cannot assign %s to %s", i, sv.Type(), dv.Type())
		}
	}
	return nil
}

func TestScanDayLedgerFormatsBusinessDate(t *testing.T) {
	created := time.Date(2026, 8, 30, 9, 15, 0, 0, time.UTC)
	day, err := scanDayLedger(stubRow{vals: []any{
		"dl-1", time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC), "open",
		int64(500000), int64(85000), int64(45000), nil, created,
	}})
	if err != nil {
		t.Fatalf("scanDayLedger: %v", err)
	}
	if day.BusinessDate != "2026-08-30" {
		t.Errorf("business date = %q, want 2026-08-30", day.BusinessDate)
	}
	if day.Status != repository.DayOpen {
		t.Errorf("status = %s, want open", day.Status)
	}
	if day.FrozenAt != nil {
		t.Errorf("frozen at = %v, want nil", day.FrozenAt)
	}
}

func TestScanCashTransactionFormatsBusinessDate(t *testing.T) {
	tx, err := scanCashTransaction(stubRow{vals: []any{
		"tx-1", "dl-1", time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC), "in",
		repository.CashRef, "BrickCo", int64(85000), "sale", "",
		time.Date(2026, 8, 30, 9, 15, 0, 0, time.UTC),
	}})
	if err != nil {
		t.Fatalf("scanCashTransaction: %v", err)
	}
	if tx.BusinessDate != "2026-08-30" {
		t.Errorf("business date = %q, want 2026-08-30", tx.BusinessDate)
	}
	if tx.Direction != repository.DirectionIn {
		t.Errorf("direction = %s, want in", tx.Direction)
	}
}

func TestScanLoanFormatsStartDate(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	l, err := scanLoan(stubRow{vals: []any{
		"loan-1", "State Bank", "bank", int64(1000000), nil,
		"HDFC-001", time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), "active", now, now,
	}})
	if err != nil {
		t.Fatalf("scanLoan: %v", err)
	}
	if l.StartDate != "2026-07-01" {
		t.Errorf("start date = %q, want 2026-07-01", l.StartDate)
	}
	if l.InterestRate != nil {
		t.Errorf("interest rate = %v, want nil", l.InterestRate)
	}
}

func TestScanRequestFormatsRequiredByDate(t *testing.T) {
	now := time.Date(2026, 8, 20, 8, 0, 0, 0, time.UTC)
	r, err := scanRequest(stubRow{vals: []any{
		"req-1", "clay", float64(500), "ton", "vendor-1", "supervisor", "high",
		time.Date(2026, 9, 5, 0, 0, 0, 0, time.UTC), int64(40), int64(100), "pending",
		nil, nil, nil, now, now,
	}})
	if err != nil {
		t.Fatalf("scanRequest: %v", err)
	}
	if r.RequiredByDate != "2026-09-05" {
		t.Errorf("required by date = %q, want 2026-09-05", r.RequiredByDate)
	}
	if r.Status != repository.RequestPending {
		t.Errorf("status = %s, want pending", r.Status)
	}
}
