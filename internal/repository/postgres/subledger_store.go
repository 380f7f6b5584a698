package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/kilnworks/be-brick-ledger/internal/apperr"
	"github.com/kilnworks/be-brick-ledger/internal/database"
	"github.com/kilnworks/be-brick-ledger/internal/repository"
)

// SubLedgerStore is the Postgres implementation of repository.SubLedgerStore
// and repository.OwnerStore. Entries are append-only; seq is a bigserial
// that breaks created_at ties.
type SubLedgerStore struct {
	db *database.DB
}

// NewSubLedgerStore creates a new sub-ledger store.
func NewSubLedgerStore(db *database.DB) *SubLedgerStore {
	return &SubLedgerStore{db: db}
}

func (s *SubLedgerStore) AppendEntry(ctx context.Context, e *repository.SubLedgerEntry) error {
	query := `
		INSERT INTO sub_ledger_entries
		    (id, owner_id, owner_kind, entry_kind, amount, payment_mode,
		     sender_account_info, receiver_account_info, notes,
		     idempotency_key, created_by, created_at)
		VALUES ($1, $2, $3::owner_kind, $4, $5, $6::payment_mode,
		        $7, $8, $9, NULLIF($10, ''), $11, $12)
		RETURNING seq
	`
	err := s.db.QueryRow(ctx, query,
		e.ID, e.OwnerID, e.OwnerKind, e.Kind, e.Amount, e.PaymentMode,
		e.SenderAccountInfo, e.ReceiverAccountInfo, e.Notes,
		e.IdempotencyKey, e.CreatedBy, e.CreatedAt,
	).Scan(&e.Seq)
	if err != nil {
		return apperr.Wrap(err, apperr.ErrCodeInternal, "failed to append sub-ledger entry")
	}
	return nil
}

func (s *SubLedgerStore) ListEntries(ctx context.Context, ownerID string) ([]*repository.SubLedgerEntry, error) {
	return s.listEntries(ctx, `
		SELECT id, owner_id, owner_kind, entry_kind, amount, payment_mode,
		       sender_account_info, receiver_account_info, notes,
		       COALESCE(idempotency_key, ''), created_by, created_at, seq
		FROM sub_ledger_entries
		WHERE owner_id = $1
		ORDER BY created_at, seq
	`, ownerID)
}

func (s *SubLedgerStore) ListEntriesRange(ctx context.Context, ownerID, from, to string) ([]*repository.SubLedgerEntry, error) {
	return s.listEntries(ctx, `
		SELECT id, owner_id, owner_kind, entry_kind, amount, payment_mode,
		       sender_account_info, receiver_account_info, notes,
		       COALESCE(idempotency_key, ''), created_by, created_at, seq
		FROM sub_ledger_entries
		WHERE owner_id = $1 AND created_at::date BETWEEN $2::date AND $3::date
		ORDER BY created_at, seq
	`, ownerID, from, to)
}

func (s *SubLedgerStore) GetEntryByKey(ctx context.Context, key string) (*repository.SubLedgerEntry, error) {
	query := `
		SELECT id, owner_id, owner_kind, entry_kind, amount, payment_mode,
		       sender_account_info, receiver_account_info, notes,
		       COALESCE(idempotency_key, ''), created_by, created_at, seq
		FROM sub_ledger_entries
		WHERE idempotency_key = $1
	`
	e, err := scanEntry(s.db.QueryRow(ctx, query, key))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(err, apperr.ErrCodeInternal, "failed to get entry by key")
	}
	return e, nil
}

func (s *SubLedgerStore) listEntries(ctx context.Context, query string, args ...any) ([]*repository.SubLedgerEntry, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.ErrCodeInternal, "failed to list sub-ledger entries")
	}
	defer rows.Close()

	var out []*repository.SubLedgerEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, apperr.Wrap(err, apperr.ErrCodeInternal, "failed to scan sub-ledger entry")
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanEntry(row pgx.Row) (*repository.SubLedgerEntry, error) {
	var e repository.SubLedgerEntry
	err := row.Scan(&e.ID, &e.OwnerID, &e.OwnerKind, &e.Kind, &e.Amount, &e.PaymentMode,
		&e.SenderAccountInfo, &e.ReceiverAccountInfo, &e.Notes,
		&e.IdempotencyKey, &e.CreatedBy, &e.CreatedAt, &e.Seq)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ── OwnerStore ───────────────────────────────────────────────────────────────

func (s *SubLedgerStore) SaveOwner(ctx context.Context, o *repository.LedgerOwner) error {
	query := `
		INSERT INTO ledger_owners (id, kind, name, active, created_at)
		VALUES ($1, $2::owner_kind, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, active = EXCLUDED.active
	`
	err := s.db.Exec(ctx, query, o.ID, o.Kind, o.Name, o.Active, o.CreatedAt)
	if err != nil {
		return apperr.Wrap(err, apperr.ErrCodeInternal, "failed to save ledger owner")
	}
	return nil
}

func (s *SubLedgerStore) GetOwner(ctx context.Context, id string) (*repository.LedgerOwner, error) {
	query := `
		SELECT id, kind, name, active, created_at
		FROM ledger_owners
		WHERE id = $1
	`
	var o repository.LedgerOwner
	err := s.db.QueryRow(ctx, query, id).Scan(&o.ID, &o.Kind, &o.Name, &o.Active, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.Newf(apperr.ErrCodeUnknownReference, "ledger owner %q not found", id)
	}
	if err != nil {
		return nil, apperr.Wrap(err, apperr.ErrCodeInternal, "failed to get ledger owner")
	}
	return &o, nil
}

func (s *SubLedgerStore) ListOwners(ctx context.Context, kind repository.OwnerKind) ([]*repository.LedgerOwner, error) {
	query := `
		SELECT id, kind, name, active, created_at
		FROM ledger_owners
		WHERE kind = $1::owner_kind
		ORDER BY name
	`
	rows, err := s.db.Query(ctx, query, kind)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.ErrCodeInternal, "failed to list ledger owners")
	}
	defer rows.Close()

	var out []*repository.LedgerOwner
	for rows.Next() {
		var o repository.LedgerOwner
		if err := rows.Scan(&o.ID, &o.Kind, &o.Name, &o.Active, &o.CreatedAt); err != nil {
			return nil, apperr.Wrap(err, apperr.ErrCodeInternal, "failed to scan ledger owner")
		}
		out = append(out, &o)
	}
	return out, rows.Err()
}

var (
	_ repository.SubLedgerStore = (*SubLedgerStore)(nil)
	_ repository.OwnerStore     = (*SubLedgerStore)(nil)
)
