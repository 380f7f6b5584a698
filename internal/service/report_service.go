package service

import (
	"context"
	"time"

	"github.com/kilnworks/be-brick-ledger/internal/apperr"
	"github.com/kilnworks/be-brick-ledger/internal/logger"
	"github.com/kilnworks/be-brick-ledger/internal/repository"
)

// ReportService is the read-only export adapter. It never mutates ledger
// state and is safe to run against open and frozen days alike.
type ReportService struct {
	entries repository.SubLedgerStore
	owners  repository.OwnerStore
	days    repository.DayLedgerStore
	log     *logger.Logger
}

// NewReportService creates a new report service.
func NewReportService(
	entries repository.SubLedgerStore,
	owners repository.OwnerStore,
	days repository.DayLedgerStore,
	log *logger.Logger,
) *ReportService {
	return &ReportService{entries: entries, owners: owners, days: days, log: log}
}

// LedgerExport is an owner's statement over an inclusive date range.
type LedgerExport struct {
	OwnerID        string
	OwnerKind      repository.OwnerKind
	OwnerName      string
	FromDate       string
	ToDate         string
	Entries        []*repository.SubLedgerEntry
	TotalCharges   int64
	TotalPayments  int64
	OpeningBalance int64
	ClosingBalance int64
}

// ExportRange builds an owner's statement. Opening balance is the fold of
// everything before the range; closing is opening plus the range's net.
func (s *ReportService) ExportRange(ctx context.Context, kind repository.OwnerKind, ownerID, from, to string) (*LedgerExport, error) {
	if err := checkRange(from, to); err != nil {
		return nil, err
	}
	policy, err := PolicyFor(kind)
	if err != nil {
		return nil, err
	}
	owner, err := s.owners.GetOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if owner.Kind != kind {
		return nil, apperr.Newf(apperr.ErrCodeUnknownReference, "%q is not a %s", ownerID, kind)
	}

	all, err := s.entries.ListEntries(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	export := &LedgerExport{
		OwnerID:   ownerID,
		OwnerKind: kind,
		OwnerName: owner.Name,
		FromDate:  from,
		ToDate:    to,
	}

	for _, e := range all {
		d := e.CreatedAt.Format("2006-01-02")
		switch {
		case d < from:
			export.OpeningBalance += policy.Contribution(e)
		case d <= to:
			export.Entries = append(export.Entries, e)
			if e.Amount >= 0 {
				export.TotalCharges += e.Amount
			} else {
				export.TotalPayments += -e.Amount
			}
			export.ClosingBalance += policy.Contribution(e)
		}
	}

	if len(export.Entries) == 0 {
		return nil, apperr.Newf(apperr.ErrCodeEmptyRange,
			"no transactions found between %s and %s", from, to)
	}

	export.ClosingBalance += export.OpeningBalance
	return export, nil
}

// CashBookExport is the day-ledger series over an inclusive date range.
type CashBookExport struct {
	FromDate       string
	ToDate         string
	Days           []*repository.DayLedger
	Transactions   []*repository.CashTransaction
	TotalCashIn    int64
	TotalCashOut   int64
	OpeningBalance int64
	ClosingBalance int64
}

// ExportCashBook builds the day-ledger statement for a date range.
func (s *ReportService) ExportCashBook(ctx context.Context, from, to string) (*CashBookExport, error) {
	if err := checkRange(from, to); err != nil {
		return nil, err
	}

	days, err := s.days.ListDayLedgersRange(ctx, from, to)
	if err != nil {
		return nil, err
	}
	txs, err := s.days.ListCashTransactionsRange(ctx, from, to)
	if err != nil {
		return nil, err
	}
	if len(txs) == 0 {
		return nil, apperr.Newf(apperr.ErrCodeEmptyRange,
			"no transactions found between %s and %s", from, to)
	}

	export := &CashBookExport{
		FromDate:     from,
		ToDate:       to,
		Days:         days,
		Transactions: txs,
	}
	for _, d := range days {
		export.TotalCashIn += d.CashInTotal
		export.TotalCashOut += d.CashOutTotal
	}
	if len(days) > 0 {
		export.OpeningBalance = days[0].OpeningBalance
		export.ClosingBalance = days[len(days)-1].ClosingBalance()
	}

	return export, nil
}

func checkRange(from, to string) error {
	fields := make(map[string]string)
	if _, err := time.Parse("2006-01-02", from); err != nil {
		fields["from_date"] = "invalid date format, expected YYYY-MM-DD"
	}
	if _, err := time.Parse("2006-01-02", to); err != nil {
		fields["to_date"] = "invalid date format, expected YYYY-MM-DD"
	}
	if len(fields) == 0 && from > to {
		fields["to_date"] = "must not be before from_date"
	}
	if len(fields) > 0 {
		return apperr.Validation(fields)
	}
	return nil
}
