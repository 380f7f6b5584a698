package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/kilnworks/be-brick-ledger/internal/apperr"
	"github.com/kilnworks/be-brick-ledger/internal/database"
	"github.com/kilnworks/be-brick-ledger/internal/repository"
)

// DayLedgerStore is the Postgres implementation of repository.DayLedgerStore.
// The per-account breakdown lives in day_ledger_accounts; the cash
// transaction log is append-only.
type DayLedgerStore struct {
	db *database.DB
}

// NewDayLedgerStore creates a new day ledger store.
func NewDayLedgerStore(db *database.DB) *DayLedgerStore {
	return &DayLedgerStore{db: db}
}

func (s *DayLedgerStore) GetDayLedger(ctx context.Context, date string) (*repository.DayLedger, error) {
	query := `
		SELECT id, business_date, status, opening_balance, cash_in_total, cash_out_total,
		       frozen_at, created_at
		FROM day_ledgers
		WHERE business_date = $1
	`
	day, err := scanDayLedger(s.db.QueryRow(ctx, query, date))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.Newf(apperr.ErrCodeNotFound, "no day ledger for %s", date)
	}
	if err != nil {
		return nil, apperr.Wrap(err, apperr.ErrCodeInternal, "failed to get day ledger")
	}
	if err := s.loadBreakdown(ctx, day); err != nil {
		return nil, err
	}
	return day, nil
}

func (s *DayLedgerStore) GetLatestDayBefore(ctx context.Context, date string) (*repository.DayLedger, error) {
	query := `
		SELECT id, business_date, status, opening_balance, cash_in_total, cash_out_total,
		       frozen_at, created_at
		FROM day_ledgers
		WHERE business_date < $1
		ORDER BY business_date DESC
		LIMIT 1
	`
	day, err := scanDayLedger(s.db.QueryRow(ctx, query, date))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(err, apperr.ErrCodeInternal, "failed to get previous day ledger")
	}
	if err := s.loadBreakdown(ctx, day); err != nil {
		return nil, err
	}
	return day, nil
}

func (s *DayLedgerStore) ListOpenDatesBefore(ctx context.Context, date string) ([]string, error) {
	query := `
		SELECT business_date
		FROM day_ledgers
		WHERE business_date < $1 AND status = 'open'
		ORDER BY business_date
	`
	rows, err := s.db.Query(ctx, query, date)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.ErrCodeInternal, "failed to list open days")
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, apperr.Wrap(err, apperr.ErrCodeInternal, "failed to scan open day")
		}
		out = append(out, formatDate(d))
	}
	return out, rows.Err()
}

func (s *DayLedgerStore) SaveDayLedger(ctx context.Context, d *repository.DayLedger) error {
	return s.db.InTransaction(ctx, func(tx pgx.Tx) error {
		return saveDayLedger(ctx, tx, d)
	})
}

// ApplyPosting commits the day upsert, the transaction append and the
// optional account balance update in a single transaction.
func (s *DayLedgerStore) ApplyPosting(ctx context.Context, d *repository.DayLedger, t *repository.CashTransaction, acct *repository.Account) error {
	return s.db.InTransaction(ctx, func(tx pgx.Tx) error {
		if err := saveDayLedger(ctx, tx, d); err != nil {
			return err
		}
		if err := appendCashTransaction(ctx, tx, t); err != nil {
			return err
		}
		if acct == nil {
			return nil
		}
		query := `
			UPDATE accounts
			SET current_balance = $2, updated_at = $3
			WHERE id = $1
		`
		if _, err := tx.Exec(ctx, query, acct.ID, acct.CurrentBalance, acct.UpdatedAt); err != nil {
			return apperr.Wrap(err, apperr.ErrCodeInternal, "failed to update account balance")
		}
		return nil
	})
}

func saveDayLedger(ctx context.Context, tx pgx.Tx, d *repository.DayLedger) error {
	query := `
		INSERT INTO day_ledgers
		    (id, business_date, status, opening_balance, cash_in_total, cash_out_total,
		     frozen_at, created_at)
		VALUES ($1, $2, $3::day_status, $4, $5, $6, $7, $8)
		ON CONFLICT (business_date) DO UPDATE
		SET status = EXCLUDED.status,
		    cash_in_total = EXCLUDED.cash_in_total,
		    cash_out_total = EXCLUDED.cash_out_total,
		    frozen_at = EXCLUDED.frozen_at
	`
	_, err := tx.Exec(ctx, query,
		d.ID, d.BusinessDate, d.Status, d.OpeningBalance,
		d.CashInTotal, d.CashOutTotal, d.FrozenAt, d.CreatedAt)
	if err != nil {
		return apperr.Wrap(err, apperr.ErrCodeInternal, "failed to save day ledger")
	}

	breakdownQuery := `
		INSERT INTO day_ledger_accounts (day_ledger_id, account_ref, opening, cash_in, cash_out)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (day_ledger_id, account_ref) DO UPDATE
		SET opening = EXCLUDED.opening,
		    cash_in = EXCLUDED.cash_in,
		    cash_out = EXCLUDED.cash_out
	`
	for _, b := range d.Breakdown {
		_, err := tx.Exec(ctx, breakdownQuery, d.ID, b.AccountRef, b.Opening, b.In, b.Out)
		if err != nil {
			return apperr.Wrap(err, apperr.ErrCodeInternal, "failed to save day breakdown")
		}
	}
	return nil
}

func (s *DayLedgerStore) ListDayLedgersRange(ctx context.Context, from, to string) ([]*repository.DayLedger, error) {
	query := `
		SELECT id, business_date, status, opening_balance, cash_in_total, cash_out_total,
		       frozen_at, created_at
		FROM day_ledgers
		WHERE business_date BETWEEN $1 AND $2
		ORDER BY business_date
	`
	rows, err := s.db.Query(ctx, query, from, to)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.ErrCodeInternal, "failed to list day ledgers")
	}
	defer rows.Close()

	var out []*repository.DayLedger
	for rows.Next() {
		day, err := scanDayLedger(rows)
		if err != nil {
			return nil, apperr.Wrap(err, apperr.ErrCodeInternal, "failed to scan day ledger")
		}
		out = append(out, day)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, day := range out {
		if err := s.loadBreakdown(ctx, day); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func appendCashTransaction(ctx context.Context, tx pgx.Tx, t *repository.CashTransaction) error {
	query := `
		INSERT INTO cash_transactions
		    (id, day_ledger_id, business_date, direction, account_ref, counterpart_ref,
		     amount, tx_type, idempotency_key, created_at)
		VALUES ($1, $2, $3, $4::cash_direction, $5, $6, $7, $8, NULLIF($9, ''), $10)
	`
	_, err := tx.Exec(ctx, query,
		t.ID, t.DayLedgerID, t.BusinessDate, t.Direction, t.AccountRef,
		t.CounterpartRef, t.Amount, t.TxType, t.IdempotencyKey, t.CreatedAt)
	if err != nil {
		return apperr.Wrap(err, apperr.ErrCodeInternal, "failed to append cash transaction")
	}
	return nil
}

func (s *DayLedgerStore) ListCashTransactions(ctx context.Context, date string) ([]*repository.CashTransaction, error) {
	return s.listCashTransactions(ctx, `
		SELECT id, day_ledger_id, business_date, direction, account_ref, counterpart_ref,
		       amount, tx_type, COALESCE(idempotency_key, ''), created_at
		FROM cash_transactions
		WHERE business_date = $1
		ORDER BY created_at, id
	`, date)
}

func (s *DayLedgerStore) ListCashTransactionsRange(ctx context.Context, from, to string) ([]*repository.CashTransaction, error) {
	return s.listCashTransactions(ctx, `
		SELECT id, day_ledger_id, business_date, direction, account_ref, counterpart_ref,
		       amount, tx_type, COALESCE(idempotency_key, ''), created_at
		FROM cash_transactions
		WHERE business_date BETWEEN $1 AND $2
		ORDER BY business_date, created_at, id
	`, from, to)
}

func (s *DayLedgerStore) GetCashTransactionByKey(ctx context.Context, key string) (*repository.CashTransaction, error) {
	query := `
		SELECT id, day_ledger_id, business_date, direction, account_ref, counterpart_ref,
		       amount, tx_type, COALESCE(idempotency_key, ''), created_at
		FROM cash_transactions
		WHERE idempotency_key = $1
	`
	t, err := scanCashTransaction(s.db.QueryRow(ctx, query, key))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(err, apperr.ErrCodeInternal, "failed to get transaction by key")
	}
	return t, nil
}

func (s *DayLedgerStore) listCashTransactions(ctx context.Context, query string, args ...any) ([]*repository.CashTransaction, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.ErrCodeInternal, "failed to list cash transactions")
	}
	defer rows.Close()

	var out []*repository.CashTransaction
	for rows.Next() {
		t, err := scanCashTransaction(rows)
		if err != nil {
			return nil, apperr.Wrap(err, apperr.ErrCodeInternal, "failed to scan cash transaction")
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *DayLedgerStore) loadBreakdown(ctx context.Context, day *repository.DayLedger) error {
	query := `
		SELECT account_ref, opening, cash_in, cash_out
		FROM day_ledger_accounts
		WHERE day_ledger_id = $1
	`
	rows, err := s.db.Query(ctx, query, day.ID)
	if err != nil {
		return apperr.Wrap(err, apperr.ErrCodeInternal, "failed to load day breakdown")
	}
	defer rows.Close()

	day.Breakdown = make(map[string]*repository.DayBreakdown)
	for rows.Next() {
		var b repository.DayBreakdown
		if err := rows.Scan(&b.AccountRef, &b.Opening, &b.In, &b.Out); err != nil {
			return apperr.Wrap(err, apperr.ErrCodeInternal, "failed to scan day breakdown")
		}
		day.Breakdown[b.AccountRef] = &b
	}
	return rows.Err()
}

// Postgres date columns come back in binary format under pgx's default exec
// mode, so they are scanned into time.Time and formatted here.
func formatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

func scanDayLedger(row pgx.Row) (*repository.DayLedger, error) {
	var (
		d            repository.DayLedger
		businessDate time.Time
	)
	err := row.Scan(&d.ID, &businessDate, &d.Status, &d.OpeningBalance,
		&d.CashInTotal, &d.CashOutTotal, &d.FrozenAt, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	d.BusinessDate = formatDate(businessDate)
	return &d, nil
}

func scanCashTransaction(row pgx.Row) (*repository.CashTransaction, error) {
	var (
		t            repository.CashTransaction
		businessDate time.Time
	)
	err := row.Scan(&t.ID, &t.DayLedgerID, &businessDate, &t.Direction, &t.AccountRef,
		&t.CounterpartRef, &t.Amount, &t.TxType, &t.IdempotencyKey, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	t.BusinessDate = formatDate(businessDate)
	return &t, nil
}

var _ repository.DayLedgerStore = (*DayLedgerStore)(nil)
